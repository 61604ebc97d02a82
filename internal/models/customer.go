package models

import (
	"time"

	"github.com/google/uuid"
)

// Customer is a borrower. Optional fields are nil when unknown, which keeps
// them out of CRM pushes.
type Customer struct {
	ID              uuid.UUID      `json:"id"`
	HubspotID       *string        `json:"hubspot_id,omitempty"`
	OrganisationID  *uuid.UUID     `json:"organisation_id,omitempty"`
	FirstName       *string        `json:"first_name,omitempty"`
	MiddleName      *string        `json:"middle_name,omitempty"`
	LastName        *string        `json:"last_name,omitempty"`
	Email           *string        `json:"email,omitempty"`
	SubmissionEmail *string        `json:"submission_email,omitempty"`
	MobilePhone     *string        `json:"mobile_phone,omitempty"`
	Phone           *string        `json:"phone,omitempty"`
	DateOfBirth     *string        `json:"date_of_birth,omitempty"`
	Street          *string        `json:"street,omitempty"`
	City            *string        `json:"city,omitempty"`
	State           *string        `json:"state,omitempty"`
	Zip             *string        `json:"zip,omitempty"`
	Incomes         []IncomeRecord `json:"incomes,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

func (c *Customer) GetHubspotID() *string   { return c.HubspotID }
func (c *Customer) SetHubspotID(id *string) { c.HubspotID = id }

// Organisation is a partner dealership or lender
type Organisation struct {
	ID        uuid.UUID `json:"id"`
	HubspotID *string   `json:"hubspot_id,omitempty"`
	Name      *string   `json:"name,omitempty"`
	Domain    *string   `json:"domain,omitempty"`
	Phone     *string   `json:"phone,omitempty"`
	City      *string   `json:"city,omitempty"`
	State     *string   `json:"state,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (o *Organisation) GetHubspotID() *string   { return o.HubspotID }
func (o *Organisation) SetHubspotID(id *string) { o.HubspotID = id }

// Merge copies the fields set on patch onto c and returns their local paths.
// Identity, link and timestamps are never taken from a patch.
func (c *Customer) Merge(patch *Customer) []string {
	var changed []string
	merge := func(path string, dst **string, src *string) {
		if src != nil {
			*dst = src
			changed = append(changed, path)
		}
	}
	merge("firstName", &c.FirstName, patch.FirstName)
	merge("middleName", &c.MiddleName, patch.MiddleName)
	merge("lastName", &c.LastName, patch.LastName)
	merge("email", &c.Email, patch.Email)
	merge("submissionEmail", &c.SubmissionEmail, patch.SubmissionEmail)
	merge("mobilePhone", &c.MobilePhone, patch.MobilePhone)
	merge("phone", &c.Phone, patch.Phone)
	merge("dateOfBirth", &c.DateOfBirth, patch.DateOfBirth)
	merge("street", &c.Street, patch.Street)
	merge("city", &c.City, patch.City)
	merge("state", &c.State, patch.State)
	merge("zip", &c.Zip, patch.Zip)
	if patch.OrganisationID != nil {
		c.OrganisationID = patch.OrganisationID
		changed = append(changed, "organisationId")
	}
	if patch.Incomes != nil {
		c.Incomes = patch.Incomes
		changed = append(changed, "incomes")
	}
	return changed
}

// Merge copies the fields set on patch onto o and returns their local paths
func (o *Organisation) Merge(patch *Organisation) []string {
	var changed []string
	merge := func(path string, dst **string, src *string) {
		if src != nil {
			*dst = src
			changed = append(changed, path)
		}
	}
	merge("name", &o.Name, patch.Name)
	merge("domain", &o.Domain, patch.Domain)
	merge("phone", &o.Phone, patch.Phone)
	merge("city", &o.City, patch.City)
	merge("state", &o.State, patch.State)
	return changed
}

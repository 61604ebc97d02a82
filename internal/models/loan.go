package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// LoanStatus is the pipeline stage of a loan application
type LoanStatus string

const (
	LoanStatusNew       LoanStatus = "new"
	LoanStatusSubmitted LoanStatus = "submitted"
	LoanStatusApproved  LoanStatus = "approved"
	LoanStatusFunded    LoanStatus = "funded"
	LoanStatusDeclined  LoanStatus = "declined"
)

// LoanStatuses lists every known loan status
var LoanStatuses = []LoanStatus{
	LoanStatusNew,
	LoanStatusSubmitted,
	LoanStatusApproved,
	LoanStatusFunded,
	LoanStatusDeclined,
}

// LoanApplication is a customer's request for a loan. OriginationFee is a currency amount.
// LoanWeightFactor and APR are derived on every write.
type LoanApplication struct {
	ID               uuid.UUID  `json:"id"`
	CustomerID       uuid.UUID  `json:"customer_id"`
	HubspotID        *string    `json:"hubspot_id,omitempty"`
	Name             string     `json:"name"`
	Status           LoanStatus `json:"status"`
	LoanAmount       float64    `json:"loan_amount"`
	Term             int        `json:"term"`
	InterestRate     float64    `json:"interest_rate"`
	OriginationFee   float64    `json:"origination_fee"`
	LoanWeightFactor float64    `json:"loan_weight_factor"`
	APR              string     `json:"apr"`
	UpToDate         bool       `json:"up_to_date"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

func (a *LoanApplication) GetHubspotID() *string   { return a.HubspotID }
func (a *LoanApplication) SetHubspotID(id *string) { a.HubspotID = id }

// LoanApplicationPatch carries the fields of an update; nil fields are untouched
type LoanApplicationPatch struct {
	Name           *string     `json:"name,omitempty"`
	Status         *LoanStatus `json:"status,omitempty"`
	LoanAmount     *float64    `json:"loan_amount,omitempty"`
	Term           *int        `json:"term,omitempty"`
	InterestRate   *float64    `json:"interest_rate,omitempty"`
	OriginationFee *float64    `json:"origination_fee,omitempty"`
}

// Apply copies the set fields onto a and returns their local paths
func (p LoanApplicationPatch) Apply(a *LoanApplication) []string {
	var changed []string
	if p.Name != nil {
		a.Name = *p.Name
		changed = append(changed, "name")
	}
	if p.Status != nil {
		a.Status = *p.Status
		changed = append(changed, "status")
	}
	if p.LoanAmount != nil {
		a.LoanAmount = *p.LoanAmount
		changed = append(changed, "loanAmount")
	}
	if p.Term != nil {
		a.Term = *p.Term
		changed = append(changed, "term")
	}
	if p.InterestRate != nil {
		a.InterestRate = *p.InterestRate
		changed = append(changed, "interestRate")
	}
	if p.OriginationFee != nil {
		a.OriginationFee = *p.OriginationFee
		changed = append(changed, "originationFee")
	}
	return changed
}

// TermsChanged reports whether the patch touches a field the derived figures depend on
func (p LoanApplicationPatch) TermsChanged() bool {
	return p.LoanAmount != nil || p.Term != nil || p.InterestRate != nil || p.OriginationFee != nil
}

// LoanPackage is an offer template published by an organisation. OriginationFee is a percentage.
type LoanPackage struct {
	ID                  uuid.UUID  `json:"id"`
	OrganisationID      *uuid.UUID `json:"organisation_id,omitempty"`
	Name                string     `json:"name"`
	LoanAmount          float64    `json:"loan_amount"`
	Term                int        `json:"term"`
	InterestRate        float64    `json:"interest_rate"`
	OriginationFee      *float64   `json:"origination_fee,omitempty"`
	TotalOriginationFee float64    `json:"total_origination_fee"`
	LoanWeightFactor    float64    `json:"loan_weight_factor"`
	APR                 string     `json:"apr"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

// ValidateLoanTerms validates the inputs shared by applications and packages
func ValidateLoanTerms(loanAmount float64, term int, interestRate float64) error {
	if loanAmount <= 0 {
		return fmt.Errorf("%w: loan amount must be positive", ErrInvalidInput)
	}
	if term <= 0 {
		return fmt.Errorf("%w: term must be positive", ErrInvalidInput)
	}
	if interestRate <= 0 || interestRate >= 1 {
		return fmt.Errorf("%w: interest rate must be a decimal between 0 and 1", ErrInvalidInput)
	}
	return nil
}

// Valid reports whether s is a known loan status
func (s LoanStatus) Valid() bool {
	for _, known := range LoanStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// LoanPackagePatch carries the fields of a package update; nil fields are untouched
type LoanPackagePatch struct {
	Name           *string  `json:"name,omitempty"`
	LoanAmount     *float64 `json:"loan_amount,omitempty"`
	Term           *int     `json:"term,omitempty"`
	InterestRate   *float64 `json:"interest_rate,omitempty"`
	OriginationFee *float64 `json:"origination_fee,omitempty"`
}

// Apply copies the set fields onto p
func (patch LoanPackagePatch) Apply(p *LoanPackage) {
	if patch.Name != nil {
		p.Name = *patch.Name
	}
	if patch.LoanAmount != nil {
		p.LoanAmount = *patch.LoanAmount
	}
	if patch.Term != nil {
		p.Term = *patch.Term
	}
	if patch.InterestRate != nil {
		p.InterestRate = *patch.InterestRate
	}
	if patch.OriginationFee != nil {
		p.OriginationFee = patch.OriginationFee
	}
}

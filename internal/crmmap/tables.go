package crmmap

import (
	"fmt"

	"github.com/Dan9191/loan-service/internal/models"
	"github.com/google/uuid"
)

// Contacts maps Customer to CRM contact properties
var Contacts = MustTable(
	String("firstName", "firstname", Both, func(c *models.Customer) **string { return &c.FirstName }),
	String("middleName", "middle_name_or_initial", Both, func(c *models.Customer) **string { return &c.MiddleName }),
	String("lastName", "lastname", Both, func(c *models.Customer) **string { return &c.LastName }),
	String("email", "email", Both, func(c *models.Customer) **string { return &c.Email }),
	String("submissionEmail", "submission_email", Both, func(c *models.Customer) **string { return &c.SubmissionEmail }),
	String("mobilePhone", "mobilephone", Both, func(c *models.Customer) **string { return &c.MobilePhone }),
	String("phone", "phone", Both, func(c *models.Customer) **string { return &c.Phone }),
	String("dateOfBirth", "date_of_birth", Both, func(c *models.Customer) **string { return &c.DateOfBirth }),
	String("street", "address", Both, func(c *models.Customer) **string { return &c.Street }),
	String("city", "city", Both, func(c *models.Customer) **string { return &c.City }),
	String("state", "state", Both, func(c *models.Customer) **string { return &c.State }),
	String("zip", "zip", Both, func(c *models.Customer) **string { return &c.Zip }),
	Custom("id", "local_customer_id", LocalToRemote,
		func(c *models.Customer) (string, bool) { return c.ID.String(), c.ID != uuid.Nil },
		nil,
	),
)

// Companies maps Organisation to CRM company properties
var Companies = MustTable(
	String("name", "name", Both, func(o *models.Organisation) **string { return &o.Name }),
	String("domain", "domain", Both, func(o *models.Organisation) **string { return &o.Domain }),
	String("phone", "phone", Both, func(o *models.Organisation) **string { return &o.Phone }),
	String("city", "city", Both, func(o *models.Organisation) **string { return &o.City }),
	String("state", "state", Both, func(o *models.Organisation) **string { return &o.State }),
)

// DealStages maps loan statuses to CRM pipeline stage ids
var DealStages = MustEnumTable(models.LoanStatuses, map[models.LoanStatus]string{
	models.LoanStatusNew:       "appointmentscheduled",
	models.LoanStatusSubmitted: "qualifiedtobuy",
	models.LoanStatusApproved:  "contractsent",
	models.LoanStatusFunded:    "closedwon",
	models.LoanStatusDeclined:  "closedlost",
})

// Deals maps LoanApplication to CRM deal properties. APR and the weight factor
// are derived locally and only ever pushed.
var Deals = MustTable(
	Text("name", "dealname", Both, func(a *models.LoanApplication) *string { return &a.Name }),
	Float("loanAmount", "amount", Both, func(a *models.LoanApplication) *float64 { return &a.LoanAmount }),
	Int("term", "loan_term", Both, func(a *models.LoanApplication) *int { return &a.Term }),
	Float("interestRate", "interest_rate", Both, func(a *models.LoanApplication) *float64 { return &a.InterestRate }),
	Float("originationFee", "origination_fee", Both, func(a *models.LoanApplication) *float64 { return &a.OriginationFee }),
	Custom("status", "dealstage", Both,
		func(a *models.LoanApplication) (string, bool) {
			if a.Status == "" {
				return "", false
			}
			return DealStages.Remote(a.Status)
		},
		func(a *models.LoanApplication, s string) error {
			status, ok := DealStages.Local(s)
			if !ok {
				return fmt.Errorf("unknown deal stage")
			}
			a.Status = status
			return nil
		},
	),
	Text("apr", "apr", LocalToRemote, func(a *models.LoanApplication) *string { return &a.APR }),
	Float("loanWeightFactor", "loan_weight_factor", LocalToRemote, func(a *models.LoanApplication) *float64 { return &a.LoanWeightFactor }),
)

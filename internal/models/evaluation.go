package models

import (
	"time"

	"github.com/google/uuid"
)

// DebtInput holds the raw debt figures entered for an evaluation; nil means not provided
type DebtInput struct {
	DebtPayment          *float64 `json:"debt_payment,omitempty"`
	DeferredStudentLoans *float64 `json:"deferred_student_loans,omitempty"`
	RentPayment          *float64 `json:"rent_payment,omitempty"`
	SpouseIncome         *float64 `json:"spouse_income,omitempty"`
	SpousalDebt          *float64 `json:"spousal_debt,omitempty"`
	MortgagePayment      *float64 `json:"mortgage_payment,omitempty"`
}

// DebtDetails is the normalised debt record of an evaluation.
// TotalDebtPayment and TotalPayment are always recomputed from the inputs.
type DebtDetails struct {
	DebtPayment          float64 `json:"debt_payment"`
	DeferredStudentLoans float64 `json:"deferred_student_loans"`
	RentPayment          float64 `json:"rent_payment"`
	SpouseIncome         float64 `json:"spouse_income"`
	SpousalDebt          float64 `json:"spousal_debt"`
	MortgagePayment      float64 `json:"mortgage_payment"`
	TotalDebtPayment     float64 `json:"total_debt_payment"`
	TotalPayment         float64 `json:"total_payment"`
}

// OverviewSource names the income basis of an overview row
type OverviewSource string

const (
	OverviewPreviousYear        OverviewSource = "previous-year"
	OverviewCurrentYear         OverviewSource = "current-year"
	OverviewTwoYearAverage      OverviewSource = "two-year-average"
	OverviewThreeYearAverage    OverviewSource = "three-year-average"
	OverviewStudentLoanAdjusted OverviewSource = "student-loan-adjusted"
	OverviewHousehold           OverviewSource = "household"
)

// IncomeOverview is one income basis with its debt-to-income ratio
type IncomeOverview struct {
	Source  OverviewSource `json:"source"`
	Monthly float64        `json:"monthly"`
	Annual  float64        `json:"annual"`
	DTI     float64        `json:"dti"`
}

// LoanAffordability projects how much monthly payment an income basis can carry.
// Term buckets are nil until a pricing policy for them exists.
type LoanAffordability struct {
	Source               OverviewSource `json:"source"`
	DTI                  float64        `json:"dti"`
	Rate                 float64        `json:"rate"`
	AnnualTotal          float64        `json:"annual_total"`
	MonthlyTotal         float64        `json:"monthly_total"`
	MonthlyTotalWithDebt float64        `json:"monthly_total_with_debt"`
	Term60               *float64       `json:"term60"`
	Term72               *float64       `json:"term72"`
	Term84               *float64       `json:"term84"`
	Term120              *float64       `json:"term120"`
	Term144              *float64       `json:"term144"`
}

// CreditEvaluation is the underwriting file of a customer
type CreditEvaluation struct {
	ID             uuid.UUID      `json:"id"`
	CustomerID     uuid.UUID      `json:"customer_id"`
	OrganisationID *uuid.UUID     `json:"organisation_id,omitempty"`
	FirstName      *string        `json:"first_name,omitempty"`
	LastName       *string        `json:"last_name,omitempty"`
	SSN            *string        `json:"ssn,omitempty"`
	Incomes        []IncomeRecord `json:"incomes"`
	Debt           DebtInput      `json:"debt"`
	CreditScore    *int           `json:"credit_score,omitempty"`
	CreditReport   *string        `json:"credit_report_key,omitempty"`

	// derived on every write and read
	DebtDetails       DebtDetails         `json:"debt_details"`
	SummaryOfIncomes  SummaryOfIncomes    `json:"summary_of_incomes"`
	IncomeOverview    []IncomeOverview    `json:"income_overview"`
	LoanAffordability []LoanAffordability `json:"loan_affordability"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

package models

import (
	"fmt"
	"time"
)

// IncomeType classifies an income record
type IncomeType string

const (
	IncomeTypePaystub          IncomeType = "paystub"
	IncomeTypeSelfEmployment   IncomeType = "self-employment"
	IncomeTypeRetirement       IncomeType = "retirement-income"
	IncomeTypeAdditional       IncomeType = "additional-income"
	IncomeTypeHousingAllowance IncomeType = "housing-allowance"
)

// IncomeTypes lists every known income type
var IncomeTypes = []IncomeType{
	IncomeTypePaystub,
	IncomeTypeSelfEmployment,
	IncomeTypeRetirement,
	IncomeTypeAdditional,
	IncomeTypeHousingAllowance,
}

// Valid reports whether t is a known income type
func (t IncomeType) Valid() bool {
	for _, known := range IncomeTypes {
		if t == known {
			return true
		}
	}
	return false
}

// PayPeriod is the reporting frequency of an income record
type PayPeriod string

const (
	PayPeriodWeekly    PayPeriod = "weekly"
	PayPeriodBiWeekly  PayPeriod = "bi-weekly"
	PayPeriodMonthly   PayPeriod = "monthly"
	PayPeriodQuarterly PayPeriod = "quarterly"
	PayPeriodBiMonthly PayPeriod = "bi-monthly"
	PayPeriodAnnual    PayPeriod = "annual"
)

// paymentsPerYear maps each period to the number of payments in a year
var paymentsPerYear = map[PayPeriod]int{
	PayPeriodWeekly:    52,
	PayPeriodBiWeekly:  26,
	PayPeriodMonthly:   12,
	PayPeriodQuarterly: 4,
	PayPeriodBiMonthly: 24,
	PayPeriodAnnual:    1,
}

// PaymentsPerYear returns the fixed number of payments for the period
func (p PayPeriod) PaymentsPerYear() (int, bool) {
	n, ok := paymentsPerYear[p]
	return n, ok
}

// PreviousIncome is one historical year reported on a retirement source
type PreviousIncome struct {
	Year       int     `json:"year"`
	YearIncome float64 `json:"year_income"`
	Months     int     `json:"months"`
}

// IncomeSource is a dated observation inside an income record.
// Which optional fields are used depends on the record type.
type IncomeSource struct {
	Date time.Time `json:"date"`

	// paystub
	Amount                  *float64 `json:"amount,omitempty"`
	YTD                     *float64 `json:"ytd,omitempty"`
	EndOfYearExpectedIncome *float64 `json:"end_of_year_expected_income,omitempty"`

	// self-employment
	GrossRevenue *float64 `json:"gross_revenue,omitempty"`
	NetProfit    *float64 `json:"net_profit,omitempty"`

	// retirement-income
	MonthlyBenefit  *float64         `json:"monthly_benefit,omitempty"`
	PreviousIncomes []PreviousIncome `json:"previous_incomes,omitempty"`
}

// IncomeRecord is one income stream of a person, owned by a Customer or a CreditEvaluation
type IncomeRecord struct {
	Type          IncomeType     `json:"type"`
	Period        PayPeriod      `json:"period"`
	IncomeSources []IncomeSource `json:"income_sources"`
}

// Validate checks the enums of the record
func (r IncomeRecord) Validate() error {
	if !r.Type.Valid() {
		return fmt.Errorf("%w: unknown income type %q", ErrInvalidInput, r.Type)
	}
	if r.Period != "" {
		if _, ok := r.Period.PaymentsPerYear(); !ok {
			return fmt.Errorf("%w: unknown pay period %q", ErrInvalidInput, r.Period)
		}
	}
	return nil
}

// SummaryRow is one contribution to the end-of-year projection
type SummaryRow struct {
	Year        int        `json:"year"`
	EOYExpected float64    `json:"eoy_expected"`
	Type        IncomeType `json:"type"`
}

// SummaryOfIncomes is derived from income records on every read
type SummaryOfIncomes struct {
	Rows  []SummaryRow `json:"rows"`
	Total float64      `json:"total"`
}

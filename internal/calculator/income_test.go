package calculator

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/Dan9191/loan-service/internal/models"
)

func f(v float64) *float64 { return &v }

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 12, 0, 0, 0, time.UTC)
}

func TestSummarizeIncomes_ExcludesSelfEmployment(t *testing.T) {
	asOf := date(2026, time.June, 15)
	records := []models.IncomeRecord{
		{
			Type:   models.IncomeTypePaystub,
			Period: models.PayPeriodBiWeekly,
			IncomeSources: []models.IncomeSource{
				{Date: date(2026, time.March, 1), EndOfYearExpectedIncome: f(1000)},
				{Date: date(2026, time.May, 1), EndOfYearExpectedIncome: f(2000)},
			},
		},
		{
			Type: models.IncomeTypeSelfEmployment,
			IncomeSources: []models.IncomeSource{
				{Date: date(2026, time.April, 1), NetProfit: f(5000)},
			},
		},
	}

	summary := SummarizeIncomes(records, asOf)
	if summary.Total != 3000 {
		t.Errorf("expected total 3000, got %v", summary.Total)
	}
	if len(summary.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(summary.Rows))
	}
	if summary.Rows[0].EOYExpected != 1000 || summary.Rows[1].EOYExpected != 2000 {
		t.Errorf("rows out of traversal order: %+v", summary.Rows)
	}
}

func TestSummarizeIncomes_PaystubOutsideYearAndMissingValue(t *testing.T) {
	asOf := date(2026, time.June, 15)
	records := []models.IncomeRecord{{
		Type: models.IncomeTypePaystub,
		IncomeSources: []models.IncomeSource{
			{Date: date(2025, time.December, 20), EndOfYearExpectedIncome: f(9999)},
			{Date: date(2026, time.January, 5)},
		},
	}}

	summary := SummarizeIncomes(records, asOf)
	if len(summary.Rows) != 1 {
		t.Fatalf("expected only the current-year source, got %d rows", len(summary.Rows))
	}
	if summary.Total != 0 {
		t.Errorf("absent expected income should count as 0, got %v", summary.Total)
	}
}

func TestSummarizeIncomes_Retirement(t *testing.T) {
	// October 15 leaves November 15 and December 15 inside the year
	asOf := time.Date(2026, time.October, 15, 0, 0, 0, 0, time.UTC)
	records := []models.IncomeRecord{{
		Type: models.IncomeTypeRetirement,
		IncomeSources: []models.IncomeSource{
			{Date: date(2019, time.January, 1), MonthlyBenefit: f(1500)},
		},
	}}

	summary := SummarizeIncomes(records, asOf)
	if summary.Total != 3000 {
		t.Errorf("expected 2 months x 1500, got %v", summary.Total)
	}
	if summary.Rows[0].Year != 2026 || summary.Rows[0].Type != models.IncomeTypeRetirement {
		t.Errorf("unexpected row %+v", summary.Rows[0])
	}
}

func TestSummarizeIncomes_Deterministic(t *testing.T) {
	asOf := date(2026, time.February, 2)
	records := []models.IncomeRecord{
		{Type: models.IncomeTypeRetirement, IncomeSources: []models.IncomeSource{{MonthlyBenefit: f(800)}}},
		{Type: models.IncomeTypePaystub, IncomeSources: []models.IncomeSource{{Date: asOf, EndOfYearExpectedIncome: f(40000)}}},
	}
	a := SummarizeIncomes(records, asOf)
	b := SummarizeIncomes(records, asOf)
	if a.Total != b.Total || len(a.Rows) != len(b.Rows) {
		t.Fatalf("expected identical output, got %+v and %+v", a, b)
	}
}

func TestRemainingMonthsInYear(t *testing.T) {
	cases := []struct {
		asOf time.Time
		want int
	}{
		{time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC), 11},
		{time.Date(2026, time.October, 15, 0, 0, 0, 0, time.UTC), 2},
		{time.Date(2026, time.December, 1, 0, 0, 0, 0, time.UTC), 0},
		{time.Date(2026, time.December, 31, 23, 0, 0, 0, time.UTC), 0},
		{time.Date(2026, time.January, 31, 0, 0, 0, 0, time.UTC), 11},
		{time.Date(2026, time.November, 30, 0, 0, 0, 0, time.UTC), 1},
	}
	for _, tc := range cases {
		if got := RemainingMonthsInYear(tc.asOf); got != tc.want {
			t.Errorf("RemainingMonthsInYear(%s) = %d, want %d", tc.asOf.Format(time.RFC3339), got, tc.want)
		}
	}
}

func TestSummarizePreviousYearIncome(t *testing.T) {
	asOf := date(2026, time.March, 10)
	debt := ComputeDebtDetails(models.DebtInput{DebtPayment: f(1000)})
	records := []models.IncomeRecord{{
		Type: models.IncomeTypePaystub,
		IncomeSources: []models.IncomeSource{
			{Date: date(2025, time.June, 30), EndOfYearExpectedIncome: f(12000)},
			{Date: date(2025, time.December, 31), EndOfYearExpectedIncome: f(12000)},
			{Date: date(2026, time.January, 31), EndOfYearExpectedIncome: f(50000)},
		},
	}}

	overview, err := SummarizePreviousYearIncome(records, debt, asOf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if overview.Annual != 24000 || overview.Monthly != 2000 {
		t.Errorf("expected annual 24000 monthly 2000, got %+v", overview)
	}
	if overview.DTI != 0.5 {
		t.Errorf("expected dti 0.5, got %v", overview.DTI)
	}
	if overview.Source != models.OverviewPreviousYear {
		t.Errorf("unexpected source %q", overview.Source)
	}
}

func TestSummarizePreviousYearIncome_AllTypes(t *testing.T) {
	asOf := date(2026, time.March, 10)
	records := []models.IncomeRecord{
		{Type: models.IncomeTypeSelfEmployment, IncomeSources: []models.IncomeSource{
			{Date: date(2025, time.December, 1), NetProfit: f(6000), GrossRevenue: f(20000)},
			{Date: date(2024, time.December, 1), NetProfit: f(7000)},
		}},
		{Type: models.IncomeTypeRetirement, IncomeSources: []models.IncomeSource{
			{Date: date(2026, time.January, 1), PreviousIncomes: []models.PreviousIncome{
				{Year: 2024, YearIncome: 11000, Months: 12},
				{Year: 2025, YearIncome: 12000, Months: 12},
			}},
		}},
		{Type: models.IncomeTypeHousingAllowance, IncomeSources: []models.IncomeSource{
			{Date: date(2025, time.May, 1), Amount: f(900)},
		}},
	}

	overview, err := SummarizePreviousYearIncome(records, models.DebtDetails{TotalDebtPayment: 300}, asOf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if overview.Annual != 18000 {
		t.Errorf("expected 6000 + 12000, got %v", overview.Annual)
	}
	if math.Abs(overview.DTI-0.2) > 1e-12 {
		t.Errorf("expected dti 0.2, got %v", overview.DTI)
	}
}

func TestSummarizePreviousYearIncome_NoIncome(t *testing.T) {
	_, err := SummarizePreviousYearIncome(nil, models.DebtDetails{TotalDebtPayment: 100}, date(2026, time.March, 1))
	if !errors.Is(err, models.ErrDivisionByZero) {
		t.Fatalf("expected ErrDivisionByZero, got %v", err)
	}
}

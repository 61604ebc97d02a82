package calculator

import (
	"fmt"
	"time"

	"github.com/Dan9191/loan-service/internal/models"
)

// SummarizeIncomes projects end-of-year income for the calendar year of asOf.
//
// Paystub sources dated in that year contribute their expected end-of-year income.
// Retirement sources always contribute the remaining months times the monthly benefit.
// Self-employment and the remaining types are not part of the projection.
func SummarizeIncomes(records []models.IncomeRecord, asOf time.Time) models.SummaryOfIncomes {
	asOf = asOf.UTC()
	year := asOf.Year()
	remaining := float64(RemainingMonthsInYear(asOf))

	summary := models.SummaryOfIncomes{Rows: []models.SummaryRow{}}
	for _, record := range records {
		for _, source := range record.IncomeSources {
			var row models.SummaryRow
			switch record.Type {
			case models.IncomeTypePaystub:
				if source.Date.UTC().Year() != year {
					continue
				}
				row = models.SummaryRow{Year: year, EOYExpected: value(source.EndOfYearExpectedIncome), Type: record.Type}
			case models.IncomeTypeRetirement:
				row = models.SummaryRow{Year: year, EOYExpected: remaining * value(source.MonthlyBenefit), Type: record.Type}
			default:
				continue
			}
			summary.Rows = append(summary.Rows, row)
			summary.Total += row.EOYExpected
		}
	}
	return summary
}

// SummarizePreviousYearIncome builds the previous-year overview row.
// It fails with ErrDivisionByZero when there is no previous-year income.
func SummarizePreviousYearIncome(records []models.IncomeRecord, debt models.DebtDetails, asOf time.Time) (models.IncomeOverview, error) {
	prior := asOf.UTC().Year() - 1

	var annual float64
	for _, record := range records {
		for _, source := range record.IncomeSources {
			switch record.Type {
			case models.IncomeTypePaystub:
				if source.Date.UTC().Year() == prior {
					annual += value(source.EndOfYearExpectedIncome)
				}
			case models.IncomeTypeSelfEmployment:
				if source.Date.UTC().Year() == prior {
					annual += value(source.NetProfit)
				}
			case models.IncomeTypeRetirement:
				for _, previous := range source.PreviousIncomes {
					if previous.Year == prior {
						annual += previous.YearIncome
					}
				}
			}
		}
	}

	overview := models.IncomeOverview{
		Source:  models.OverviewPreviousYear,
		Annual:  annual,
		Monthly: annual / 12,
	}
	if overview.Monthly == 0 {
		return overview, fmt.Errorf("%w: no %d income to compute dti", models.ErrDivisionByZero, prior)
	}
	overview.DTI = debt.TotalDebtPayment / overview.Monthly
	return overview, nil
}

// RemainingMonthsInYear counts whole calendar months between asOf and the last
// instant of its UTC year. Day overflow is clamped to the end of the month.
func RemainingMonthsInYear(asOf time.Time) int {
	asOf = asOf.UTC()
	endOfYear := time.Date(asOf.Year()+1, time.January, 1, 0, 0, 0, 0, time.UTC).Add(-time.Millisecond)

	months := 0
	for months < 12 && !addMonths(asOf, months+1).After(endOfYear) {
		months++
	}
	return months
}

func addMonths(t time.Time, n int) time.Time {
	firstOfTarget := time.Date(t.Year(), t.Month()+time.Month(n), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
	lastDay := firstOfTarget.AddDate(0, 1, -1).Day()
	day := t.Day()
	if day > lastDay {
		day = lastDay
	}
	return firstOfTarget.AddDate(0, 0, day-1)
}

func value(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

package calculator

import "github.com/Dan9191/loan-service/internal/models"

// Policy constants, in percent
const (
	AssumedDTI  = 43
	AssumedRate = 14
)

// ComputeLoanAffordability projects the monthly payment each income basis can carry
// at the assumed DTI, net of the existing debt payment.
func ComputeLoanAffordability(rows []models.IncomeOverview, debt models.DebtDetails) []models.LoanAffordability {
	out := make([]models.LoanAffordability, 0, len(rows))
	for _, row := range rows {
		annualTotal := row.Annual * AssumedDTI / 100
		monthlyTotal := annualTotal / 12
		// TODO: fill Term60..Term144 once product defines the rate used per term bucket.
		out = append(out, models.LoanAffordability{
			Source:               row.Source,
			DTI:                  AssumedDTI,
			Rate:                 AssumedRate,
			AnnualTotal:          annualTotal,
			MonthlyTotal:         monthlyTotal,
			MonthlyTotalWithDebt: monthlyTotal - debt.TotalDebtPayment,
		})
	}
	return out
}

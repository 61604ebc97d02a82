package calculator

import (
	"time"

	"github.com/Dan9191/loan-service/internal/models"
)

// BuildEvaluationFigures recomputes every derived figure of an evaluation.
// The evaluation is updated in place even when the previous-year overview
// fails; the error is returned so callers never show a silent zero DTI.
func BuildEvaluationFigures(eval *models.CreditEvaluation, asOf time.Time) error {
	eval.DebtDetails = ComputeDebtDetails(eval.Debt)
	eval.SummaryOfIncomes = SummarizeIncomes(eval.Incomes, asOf)

	overview, err := SummarizePreviousYearIncome(eval.Incomes, eval.DebtDetails, asOf)
	if err != nil {
		eval.IncomeOverview = []models.IncomeOverview{}
		eval.LoanAffordability = []models.LoanAffordability{}
		return err
	}

	eval.IncomeOverview = []models.IncomeOverview{overview}
	eval.LoanAffordability = ComputeLoanAffordability(eval.IncomeOverview, eval.DebtDetails)
	return nil
}

package calculator

import "github.com/Dan9191/loan-service/internal/models"

// ComputeDebtDetails normalises raw debt input and recomputes both totals.
// Missing figures count as zero.
func ComputeDebtDetails(raw models.DebtInput) models.DebtDetails {
	d := models.DebtDetails{
		DebtPayment:          value(raw.DebtPayment),
		DeferredStudentLoans: value(raw.DeferredStudentLoans),
		RentPayment:          value(raw.RentPayment),
		SpouseIncome:         value(raw.SpouseIncome),
		SpousalDebt:          value(raw.SpousalDebt),
		MortgagePayment:      value(raw.MortgagePayment),
	}
	d.TotalDebtPayment = d.DebtPayment + d.DeferredStudentLoans + d.RentPayment
	d.TotalPayment = d.TotalDebtPayment + d.SpousalDebt
	return d
}

package handler

import (
	"net/http"

	"github.com/Dan9191/loan-service/internal/models"
)

func (h *Handler) CreateCreditEvaluation(w http.ResponseWriter, r *http.Request) {
	var e models.CreditEvaluation
	if !h.decode(w, r, &e) {
		return
	}
	created, err := h.svc.CreateCreditEvaluation(r.Context(), &e)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// EvaluationFigures returns the figures recomputed as of today; no income gives 422
func (h *Handler) EvaluationFigures(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	e, err := h.svc.EvaluationFigures(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"debt_details":       e.DebtDetails,
		"summary_of_incomes": e.SummaryOfIncomes,
		"income_overview":    e.IncomeOverview,
		"loan_affordability": e.LoanAffordability,
	})
}

func (h *Handler) PullCreditReport(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	e, err := h.svc.PullCreditReport(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

// CreditReport streams the archived bureau XML
func (h *Handler) CreditReport(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	raw, err := h.svc.CreditReport(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(http.StatusOK)
	w.Write(raw)
}

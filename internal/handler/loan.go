package handler

import (
	"net/http"
	"strconv"

	"github.com/Dan9191/loan-service/internal/models"
)

func (h *Handler) CreateLoanApplication(w http.ResponseWriter, r *http.Request) {
	var a models.LoanApplication
	if !h.decode(w, r, &a) {
		return
	}
	created, out, err := h.svc.CreateLoanApplication(r.Context(), &a)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeSynced(w, http.StatusCreated, created, out, false)
}

func (h *Handler) UpdateLoanApplication(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var patch models.LoanApplicationPatch
	if !h.decode(w, r, &patch) {
		return
	}
	a, out, err := h.svc.UpdateLoanApplication(r.Context(), id, patch)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeSynced(w, http.StatusOK, a, out, false)
}

func (h *Handler) ExportLoanApplication(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	a, out, err := h.svc.ExportLoanApplication(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeSynced(w, http.StatusOK, a, out, true)
}

// ListLoanApplications lists applications; ?refresh=true pulls stale ones from the CRM first
func (h *Handler) ListLoanApplications(w http.ResponseWriter, r *http.Request) {
	refresh, _ := strconv.ParseBool(r.URL.Query().Get("refresh"))
	apps, outcomes, err := h.svc.ListLoanApplications(r.Context(), refresh)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"data": apps,
		"sync": outcomes,
	})
}

func (h *Handler) CreateLoanPackage(w http.ResponseWriter, r *http.Request) {
	var p models.LoanPackage
	if !h.decode(w, r, &p) {
		return
	}
	created, err := h.svc.CreateLoanPackage(r.Context(), &p)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) UpdateLoanPackage(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var patch models.LoanPackagePatch
	if !h.decode(w, r, &patch) {
		return
	}
	p, err := h.svc.UpdateLoanPackage(r.Context(), id, patch)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// QuoteAPR answers GET /apr?loan_amount=&term=&interest_rate=&origination_fee=
func (h *Handler) QuoteAPR(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	amount, errAmount := strconv.ParseFloat(q.Get("loan_amount"), 64)
	term, errTerm := strconv.Atoi(q.Get("term"))
	rate, errRate := strconv.ParseFloat(q.Get("interest_rate"), 64)
	if errAmount != nil || errTerm != nil || errRate != nil {
		http.Error(w, "loan_amount, term and interest_rate are required numbers", http.StatusBadRequest)
		return
	}
	var fee float64
	if raw := q.Get("origination_fee"); raw != "" {
		var err error
		if fee, err = strconv.ParseFloat(raw, 64); err != nil {
			http.Error(w, "origination_fee must be a number", http.StatusBadRequest)
			return
		}
	}

	apr, weight, err := h.svc.QuoteAPR(amount, term, rate, fee)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"apr":                apr,
		"loan_weight_factor": weight,
	})
}

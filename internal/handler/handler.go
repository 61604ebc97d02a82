package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/Dan9191/loan-service/internal/config"
	"github.com/Dan9191/loan-service/internal/middleware"
	"github.com/Dan9191/loan-service/internal/models"
	"github.com/Dan9191/loan-service/internal/service"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

type Handler struct {
	svc *service.Service
	log *logrus.Logger
}

func NewHandler(svc *service.Service, log *logrus.Logger) *Handler {
	return &Handler{svc: svc, log: log}
}

// Routes builds the router: /login is public, everything else requires an operator token
func (h *Handler) Routes(cfg *config.Config) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/login", h.Login).Methods("POST")

	protected := r.PathPrefix("/").Subrouter()
	protected.Use(middleware.AuthMiddleware(cfg, h.log))

	protected.HandleFunc("/customers", h.CreateCustomer).Methods("POST")
	protected.HandleFunc("/customers/{id}", h.UpdateCustomer).Methods("PATCH")
	protected.HandleFunc("/customers/{id}", h.DeleteCustomer).Methods("DELETE")
	protected.HandleFunc("/customers/{id}/export", h.ExportCustomer).Methods("POST")

	protected.HandleFunc("/organisations", h.CreateOrganisation).Methods("POST")
	protected.HandleFunc("/organisations/{id}", h.UpdateOrganisation).Methods("PATCH")
	protected.HandleFunc("/organisations/{id}/export", h.ExportOrganisation).Methods("POST")

	protected.HandleFunc("/loan-packages", h.CreateLoanPackage).Methods("POST")
	protected.HandleFunc("/loan-packages/{id}", h.UpdateLoanPackage).Methods("PATCH")

	protected.HandleFunc("/loan-applications", h.CreateLoanApplication).Methods("POST")
	protected.HandleFunc("/loan-applications", h.ListLoanApplications).Methods("GET")
	protected.HandleFunc("/loan-applications/{id}", h.UpdateLoanApplication).Methods("PATCH")
	protected.HandleFunc("/loan-applications/{id}/export", h.ExportLoanApplication).Methods("POST")

	protected.HandleFunc("/credit-evaluations", h.CreateCreditEvaluation).Methods("POST")
	protected.HandleFunc("/credit-evaluations/{id}/figures", h.EvaluationFigures).Methods("GET")
	protected.HandleFunc("/credit-evaluations/{id}/credit-report", h.PullCreditReport).Methods("POST")
	protected.HandleFunc("/credit-evaluations/{id}/credit-report", h.CreditReport).Methods("GET")

	protected.HandleFunc("/apr", h.QuoteAPR).Methods("GET")
	protected.HandleFunc("/sync-events/{entity}/{id}", h.SyncHistory).Methods("GET")
	return r
}

// Login handles operator authentication
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if !h.decode(w, r, &req) {
		return
	}

	token, err := h.svc.Login(req.Email, req.Password)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

// syncResponse wraps an entity with the outcome of its CRM sync
type syncResponse struct {
	Data any                `json:"data"`
	Sync models.SyncOutcome `json:"sync"`
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		h.log.WithError(err).Debug("Failed to decode request")
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return false
	}
	return true
}

func pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "Invalid id", http.StatusBadRequest)
		return uuid.Nil, false
	}
	return id, true
}

// SyncHistory lists recorded sync outcomes, ?limit= caps the result
func (h *Handler) SyncHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var limit int64
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			http.Error(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}
	events, err := h.svc.SyncHistory(r.Context(), mux.Vars(r)["entity"], id, limit)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}

// writeError maps service errors to status codes
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, models.ErrInvalidInput), errors.Is(err, models.ErrDivisionByZero):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, models.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrInvalidCredentials):
		status = http.StatusUnauthorized
	case errors.Is(err, models.ErrRemoteUnavailable), errors.Is(err, models.ErrRemoteNotFound):
		status = http.StatusBadGateway
	}

	if status == http.StatusInternalServerError {
		h.log.WithError(err).Error("Request failed")
		http.Error(w, "Internal server error", status)
		return
	}
	h.log.WithError(err).Debugf("Request rejected with %d", status)
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// writeSynced answers with the entity and its sync outcome. An explicit export
// whose remote call failed is reported as a bad gateway.
func writeSynced(w http.ResponseWriter, status int, data any, out models.SyncOutcome, explicit bool) {
	if explicit && out.Action == models.SyncFailed {
		status = http.StatusBadGateway
	}
	writeJSON(w, status, syncResponse{Data: data, Sync: out})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

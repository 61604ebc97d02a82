package handler

import (
	"net/http"

	"github.com/Dan9191/loan-service/internal/models"
)

func (h *Handler) CreateCustomer(w http.ResponseWriter, r *http.Request) {
	var c models.Customer
	if !h.decode(w, r, &c) {
		return
	}
	created, out, err := h.svc.CreateCustomer(r.Context(), &c)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeSynced(w, http.StatusCreated, created, out, false)
}

func (h *Handler) UpdateCustomer(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var patch models.Customer
	if !h.decode(w, r, &patch) {
		return
	}
	c, out, err := h.svc.UpdateCustomer(r.Context(), id, &patch)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeSynced(w, http.StatusOK, c, out, false)
}

func (h *Handler) DeleteCustomer(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	out, err := h.svc.DeleteCustomer(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, syncResponse{Sync: out})
}

func (h *Handler) ExportCustomer(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	c, out, err := h.svc.ExportCustomer(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeSynced(w, http.StatusOK, c, out, true)
}

func (h *Handler) CreateOrganisation(w http.ResponseWriter, r *http.Request) {
	var o models.Organisation
	if !h.decode(w, r, &o) {
		return
	}
	created, out, err := h.svc.CreateOrganisation(r.Context(), &o)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeSynced(w, http.StatusCreated, created, out, false)
}

func (h *Handler) UpdateOrganisation(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var patch models.Organisation
	if !h.decode(w, r, &patch) {
		return
	}
	o, out, err := h.svc.UpdateOrganisation(r.Context(), id, &patch)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeSynced(w, http.StatusOK, o, out, false)
}

func (h *Handler) ExportOrganisation(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	o, out, err := h.svc.ExportOrganisation(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeSynced(w, http.StatusOK, o, out, true)
}

package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/Dan9191/bank-ledger/internal/models"
)

type clientRequest struct {
	Name      string `json:"name" validate:"required,max=100"`
	Surname   string `json:"surname" validate:"required,max=100"`
	BirthDate string `json:"birth_date" validate:"required,datetime=2006-01-02"`
	Address   string `json:"address" validate:"max=255"`
}

func (req clientRequest) toModel() (*models.Client, error) {
	birth, err := time.Parse(time.DateOnly, req.BirthDate)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid birth_date", models.ErrValidation)
	}
	return &models.Client{
		Name:      req.Name,
		Surname:   req.Surname,
		BirthDate: birth,
		Address:   req.Address,
	}, nil
}

func (h *Handler) CreateClient(w http.ResponseWriter, r *http.Request) {
	var req clientRequest
	if err := h.decode(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}
	client, err := req.toModel()
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	created, err := h.svc.CreateClient(r.Context(), client)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusCreated, created)
}

func (h *Handler) GetClient(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	client, err := h.svc.GetClient(r.Context(), id)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, client)
}

func (h *Handler) ListClients(w http.ResponseWriter, r *http.Request) {
	skip, limit, err := pageParams(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	clients, err := h.svc.ListClients(r.Context(), skip, limit)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	if clients == nil {
		clients = []models.Client{}
	}
	h.respondJSON(w, http.StatusOK, clients)
}

func (h *Handler) UpdateClient(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	var req clientRequest
	if err := h.decode(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}
	client, err := req.toModel()
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	client.ID = id

	updated, err := h.svc.UpdateClient(r.Context(), client)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, updated)
}

// DeleteClient fails with 409 while the client still owns accounts
func (h *Handler) DeleteClient(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	if err := h.svc.DeleteClient(r.Context(), id); err != nil {
		h.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

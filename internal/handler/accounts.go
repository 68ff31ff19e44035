package handler

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/Dan9191/bank-ledger/internal/models"
)

type accountRequest struct {
	ClientID       int64               `json:"client_id" validate:"required,gt=0"`
	Kind           string              `json:"kind" validate:"required,oneof=CHECKING SAVINGS"`
	Balance        decimal.Decimal     `json:"balance"`
	InterestRate   decimal.NullDecimal `json:"interest_rate"`
	OverdraftLimit decimal.NullDecimal `json:"overdraft_limit"`
}

type limitsRequest struct {
	InterestRate   decimal.NullDecimal `json:"interest_rate"`
	OverdraftLimit decimal.NullDecimal `json:"overdraft_limit"`
}

func (h *Handler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var req accountRequest
	if err := h.decode(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}
	kind, err := models.ParseAccountKind(req.Kind)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	account, err := h.svc.CreateAccount(r.Context(), &models.Account{
		ClientID:       req.ClientID,
		Kind:           kind,
		Balance:        req.Balance,
		InterestRate:   req.InterestRate,
		OverdraftLimit: req.OverdraftLimit,
	})
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusCreated, account)
}

func (h *Handler) GetAccount(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	account, err := h.svc.GetAccount(r.Context(), id)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, account)
}

func (h *Handler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	skip, limit, err := pageParams(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	accounts, err := h.svc.ListAccounts(r.Context(), skip, limit)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	if accounts == nil {
		accounts = []models.Account{}
	}
	h.respondJSON(w, http.StatusOK, accounts)
}

// UpdateAccount replaces the interest rate and overdraft limit. Balance only
// changes through the ledger endpoints.
func (h *Handler) UpdateAccount(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	var req limitsRequest
	if err := h.decode(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}

	account, err := h.svc.UpdateAccountLimits(r.Context(), id, req.InterestRate, req.OverdraftLimit)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, account)
}

func (h *Handler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	if err := h.svc.DeleteAccount(r.Context(), id); err != nil {
		h.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

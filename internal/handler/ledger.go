package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/Dan9191/bank-ledger/internal/models"
)

type amountRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

type interestResponse struct {
	Message    string          `json:"message"`
	NewBalance decimal.Decimal `json:"new_balance"`
}

type keyRateResponse struct {
	KeyRate decimal.Decimal `json:"key_rate"`
}

func (h *Handler) Deposit(w http.ResponseWriter, r *http.Request) {
	h.applyAmount(w, r, h.svc.Deposit)
}

// Withdraw answers 400 when the amount would cross the account floor
func (h *Handler) Withdraw(w http.ResponseWriter, r *http.Request) {
	h.applyAmount(w, r, h.svc.Withdraw)
}

func (h *Handler) applyAmount(w http.ResponseWriter, r *http.Request,
	apply func(ctx context.Context, id int64, amount decimal.Decimal) (*models.Account, error)) {
	id, err := pathID(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	var req amountRequest
	if err := h.decode(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}

	account, err := apply(r.Context(), id, req.Amount)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, account)
}

// AccrueInterest applies one interest period. A missing or non-savings
// account is a bad request here rather than a 404.
func (h *Handler) AccrueInterest(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	account, err := h.svc.AccrueInterest(r.Context(), id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) || errors.Is(err, models.ErrInvalidState) {
			h.respondJSON(w, http.StatusBadRequest, errorResponse{Error: "savings account not found"})
			return
		}
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, interestResponse{
		Message:    "interest accrued",
		NewBalance: account.Balance,
	})
}

func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	txs, err := h.svc.ListTransactions(r.Context(), id)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	if txs == nil {
		txs = []models.Transaction{}
	}
	h.respondJSON(w, http.StatusOK, txs)
}

func (h *Handler) KeyRate(w http.ResponseWriter, r *http.Request) {
	if h.rates == nil {
		h.respondJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "key rate source not configured"})
		return
	}
	rate, err := h.rates.GetKeyRate(r.Context())
	if err != nil {
		h.log.WithError(err).Warn("Failed to fetch key rate")
		h.respondJSON(w, http.StatusBadGateway, errorResponse{Error: "key rate unavailable"})
		return
	}
	h.respondJSON(w, http.StatusOK, keyRateResponse{KeyRate: rate})
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

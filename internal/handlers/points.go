package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"booknook/internal/rewards"
	"booknook/internal/store"
)

type PointsHandler struct {
	ledger *rewards.Ledger
}

func NewPointsHandler(ledger *rewards.Ledger) *PointsHandler {
	return &PointsHandler{ledger: ledger}
}

// Balance godoc
// @Summary Get points balance
// @Description Returns earned, redeemed and available points for the authenticated user
// @Tags points
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Router /points [get]
func (h *PointsHandler) Balance(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("userID").(int)
	b, err := h.ledger.Balance(r.Context(), userID)
	if err != nil {
		http.Error(w, "could not fetch balance", http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]any{
		"earned":    b.Earned,
		"redeemed":  b.Redeemed,
		"available": b.Available(),
	})
}

// History lists recent point transactions, newest first. Optional ?limit=.
func (h *PointsHandler) History(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("userID").(int)
	limit := 50
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}
	txs, err := h.ledger.History(r.Context(), userID, limit)
	if err != nil {
		http.Error(w, "could not fetch history", http.StatusInternalServerError)
		return
	}
	writeJSON(w, txs)
}

type redeemRequest struct {
	Amount int    `json:"amount"`
	Reason string `json:"reason"`
}

// Redeem spends points. Redeeming past the available balance is rejected
// with 409 and leaves the balance untouched.
func (h *PointsHandler) Redeem(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("userID").(int)
	var req redeemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	err := h.ledger.Redeem(r.Context(), userID, req.Amount, req.Reason)
	switch {
	case errors.Is(err, rewards.ErrInvalidInput):
		http.Error(w, "amount and reason required", http.StatusBadRequest)
		return
	case errors.Is(err, store.ErrInsufficientBalance):
		http.Error(w, "insufficient balance", http.StatusConflict)
		return
	case err != nil:
		http.Error(w, "could not redeem", http.StatusInternalServerError)
		return
	}
	b, err := h.ledger.Balance(r.Context(), userID)
	if err != nil {
		http.Error(w, "could not fetch balance", http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]any{"available": b.Available()})
}

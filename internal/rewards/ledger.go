// Package rewards implements the reading-streak and points-award engine:
// an append-only points ledger, a 7-slot streak state machine, one-shot
// reading-progress awards, and a periodic habit-goal aggregator. All shared
// state lives behind store.UserStateStore; every award rides in the same
// storage transaction as the state change that earned it.
package rewards

import (
	"context"
	"errors"
	"strings"

	"booknook/internal/models"
	"booknook/internal/store"
)

// ErrInvalidInput rejects a request before any storage call is made.
var ErrInvalidInput = errors.New("rewards: invalid input")

// Ledger is the points account API: earn, spend, inspect. The balance
// invariant redeemed <= earned is enforced by the store's conditional
// writes, never by this layer reading then writing.
type Ledger struct {
	store store.UserStateStore
}

func NewLedger(s store.UserStateStore) *Ledger {
	return &Ledger{store: s}
}

// Award credits amount points with an audit reason.
func (l *Ledger) Award(ctx context.Context, userID, amount int, reason string) error {
	if amount <= 0 || strings.TrimSpace(reason) == "" {
		return ErrInvalidInput
	}
	return l.store.AwardPoints(ctx, userID, amount, reason)
}

// Redeem spends amount points. Returns store.ErrInsufficientBalance when the
// available balance cannot cover it; the balance is untouched in that case.
func (l *Ledger) Redeem(ctx context.Context, userID, amount int, reason string) error {
	if amount <= 0 || strings.TrimSpace(reason) == "" {
		return ErrInvalidInput
	}
	return l.store.RedeemPoints(ctx, userID, amount, reason)
}

// Balance returns the user's balance, zero-valued for users who have never
// earned a point (the balance row is created lazily on first award).
func (l *Ledger) Balance(ctx context.Context, userID int) (models.PointsBalance, error) {
	b, err := l.store.GetPointsBalance(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return models.PointsBalance{UserID: userID}, nil
	}
	if err != nil {
		return models.PointsBalance{}, err
	}
	return *b, nil
}

// History lists recent transactions, newest first.
func (l *Ledger) History(ctx context.Context, userID, limit int) ([]models.PointTransaction, error) {
	return l.store.ListTransactions(ctx, userID, limit)
}

// Package store persists per-user reward state. Every read-modify-write on
// shared state (points balance, streak slots, award flags) is expressed as a
// single conditional write so concurrent requests for the same user cannot
// double-apply an award.
package store

import (
	"context"
	"errors"

	"booknook/internal/models"
)

var (
	// ErrNotFound is returned when a requested row does not exist.
	ErrNotFound = errors.New("store: not found")
	// ErrInsufficientBalance rejects a redemption that exceeds the
	// available balance. The balance is left unchanged.
	ErrInsufficientBalance = errors.New("store: insufficient balance")
	// ErrVersionConflict signals a compare-and-swap lost to a concurrent
	// writer. Callers re-read, recompute and retry.
	ErrVersionConflict = errors.New("store: version conflict")
)

// PointAward is a point grant applied inside the same storage transaction as
// the state change that earned it, so a failed write never awards points and
// a failed award never advances state.
type PointAward struct {
	Amount int
	Reason string
}

type UserStateStore interface {
	// Points ledger.
	GetPointsBalance(ctx context.Context, userID int) (*models.PointsBalance, error)
	AwardPoints(ctx context.Context, userID, amount int, reason string) error
	RedeemPoints(ctx context.Context, userID, amount int, reason string) error
	ListTransactions(ctx context.Context, userID, limit int) ([]models.PointTransaction, error)

	// Streak state. CompareAndSwapStreak writes next only if the stored
	// version still equals expectedVersion (0 means "no row yet"); any
	// accompanying awards are applied in the same transaction.
	GetStreakState(ctx context.Context, userID int) (*models.StreakState, error)
	CompareAndSwapStreak(ctx context.Context, userID, expectedVersion int, next models.StreakSlots, awards []PointAward) error

	// Reading list. ClaimAwardFlag atomically flips the named flag
	// false->true; it reports whether this call won the claim, and applies
	// the award only when it did.
	GetEntry(ctx context.Context, userID int, bookID string) (*models.ReadingListEntry, error)
	ListEntries(ctx context.Context, userID int, status string) ([]models.ReadingListEntry, error)
	UpsertEntry(ctx context.Context, entry *models.ReadingListEntry) error
	UpdateEntryStatus(ctx context.Context, userID int, bookID, status string) error
	UpdateEntryRating(ctx context.Context, userID int, bookID string, rating float64) error
	UpdateEntryReview(ctx context.Context, userID int, bookID, reviewText string) error
	DeleteEntry(ctx context.Context, userID int, bookID string) error
	ClaimAwardFlag(ctx context.Context, userID int, bookID string, flag models.AwardFlag, award PointAward) (bool, error)

	// Habit goal (at most one active goal per user).
	GetHabitGoal(ctx context.Context, userID int) (*models.HabitGoal, error)
	PutHabitGoal(ctx context.Context, goal *models.HabitGoal) error
	DeleteHabitGoal(ctx context.Context, userID int) error
}

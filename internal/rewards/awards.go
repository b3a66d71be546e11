package rewards

import (
	"context"
	"fmt"
	"math"
	"strings"

	"booknook/internal/models"
	"booknook/internal/store"
)

// One-time bonuses for reading-progress milestones.
const (
	FinishedBonus = 100
	RatingBonus   = 20
	ReviewBonus   = 50
)

// AwardRules grants the one-shot reading-progress bonuses. Each trigger is
// guarded by a per-entry flag claimed atomically at the store, so retries,
// double-clicks and concurrent tabs award at most once.
type AwardRules struct {
	store store.UserStateStore
}

func NewAwardRules(s store.UserStateStore) *AwardRules {
	return &AwardRules{store: s}
}

// OnStatusChanged awards the finish bonus the first time the entry reaches
// Finished. Any other status, and any repeat finish, is a no-op. Returns the
// points granted by this call.
func (r *AwardRules) OnStatusChanged(ctx context.Context, entry *models.ReadingListEntry, newStatus string) (int, error) {
	if newStatus != models.StatusFinished || entry.FlagSet(models.FlagFinished) {
		return 0, nil
	}
	award := store.PointAward{
		Amount: FinishedBonus,
		Reason: fmt.Sprintf("Finished reading %s", entry.Title),
	}
	claimed, err := r.store.ClaimAwardFlag(ctx, entry.UserID, entry.BookID, models.FlagFinished, award)
	if err != nil {
		return 0, err
	}
	if !claimed {
		return 0, nil
	}
	return FinishedBonus, nil
}

// ValidRating reports whether rating is a half-step value in [0, 5].
func ValidRating(rating float64) bool {
	if rating < 0 || rating > 5 {
		return false
	}
	doubled := rating * 2
	return doubled == math.Trunc(doubled)
}

// OnRatingSubmitted awards the rating bonus on the first nonzero rating for
// the entry. The rating value itself is stored by the caller regardless.
func (r *AwardRules) OnRatingSubmitted(ctx context.Context, entry *models.ReadingListEntry, rating float64) (int, error) {
	if !ValidRating(rating) {
		return 0, ErrInvalidInput
	}
	if rating == 0 || entry.FlagSet(models.FlagRating) {
		return 0, nil
	}
	award := store.PointAward{
		Amount: RatingBonus,
		Reason: fmt.Sprintf("Rated %s", entry.Title),
	}
	claimed, err := r.store.ClaimAwardFlag(ctx, entry.UserID, entry.BookID, models.FlagRating, award)
	if err != nil {
		return 0, err
	}
	if !claimed {
		return 0, nil
	}
	return RatingBonus, nil
}

// OnReviewSubmitted awards the review bonus on the first non-empty text
// review for the entry.
func (r *AwardRules) OnReviewSubmitted(ctx context.Context, entry *models.ReadingListEntry, text string) (int, error) {
	if strings.TrimSpace(text) == "" || entry.FlagSet(models.FlagTextReview) {
		return 0, nil
	}
	award := store.PointAward{
		Amount: ReviewBonus,
		Reason: fmt.Sprintf("Reviewed %s", entry.Title),
	}
	claimed, err := r.store.ClaimAwardFlag(ctx, entry.UserID, entry.BookID, models.FlagTextReview, award)
	if err != nil {
		return 0, err
	}
	if !claimed {
		return 0, nil
	}
	return ReviewBonus, nil
}

package rewards

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"booknook/internal/models"
	"booknook/internal/store"
)

func newAwardFixture(t *testing.T) (*AwardRules, *store.InMemoryStore, *models.ReadingListEntry) {
	t.Helper()
	s := store.NewInMemoryStore()
	entry := &models.ReadingListEntry{
		UserID:    1,
		BookID:    "ol-123",
		Title:     "The Left Hand of Darkness",
		PageCount: 304,
		Status:    models.StatusReading,
	}
	require.NoError(t, s.UpsertEntry(context.Background(), entry))
	return NewAwardRules(s), s, entry
}

func TestAwardRules_FinishAwardIsIdempotent(t *testing.T) {
	rules, s, entry := newAwardFixture(t)
	ctx := context.Background()

	awarded, err := rules.OnStatusChanged(ctx, entry, models.StatusFinished)
	require.NoError(t, err)
	assert.Equal(t, FinishedBonus, awarded)

	// Second finish for the same entry is a no-op, even with a stale
	// entry snapshot.
	awarded, err = rules.OnStatusChanged(ctx, entry, models.StatusFinished)
	require.NoError(t, err)
	assert.Equal(t, 0, awarded)

	b, err := s.GetPointsBalance(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, FinishedBonus, b.Earned)

	txs, err := s.ListTransactions(ctx, 1, 10)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, "Finished reading The Left Hand of Darkness", txs[0].Reason)
}

func TestAwardRules_NonFinishStatusAwardsNothing(t *testing.T) {
	rules, s, entry := newAwardFixture(t)
	ctx := context.Background()

	for _, status := range []string{models.StatusToRead, models.StatusReading} {
		awarded, err := rules.OnStatusChanged(ctx, entry, status)
		require.NoError(t, err)
		assert.Equal(t, 0, awarded)
	}
	_, err := s.GetPointsBalance(ctx, 1)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestAwardRules_RatingAwardOnce(t *testing.T) {
	rules, s, entry := newAwardFixture(t)
	ctx := context.Background()

	awarded, err := rules.OnRatingSubmitted(ctx, entry, 4.5)
	require.NoError(t, err)
	assert.Equal(t, RatingBonus, awarded)

	// Re-rating never pays again.
	awarded, err = rules.OnRatingSubmitted(ctx, entry, 3)
	require.NoError(t, err)
	assert.Equal(t, 0, awarded)

	b, err := s.GetPointsBalance(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, RatingBonus, b.Earned)
}

func TestAwardRules_ZeroRatingAwardsNothing(t *testing.T) {
	rules, s, entry := newAwardFixture(t)

	awarded, err := rules.OnRatingSubmitted(context.Background(), entry, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, awarded)

	_, err = s.GetPointsBalance(context.Background(), 1)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestAwardRules_InvalidRatingRejected(t *testing.T) {
	rules, _, entry := newAwardFixture(t)

	for _, r := range []float64{-0.5, 5.5, 3.25, 4.1} {
		_, err := rules.OnRatingSubmitted(context.Background(), entry, r)
		assert.ErrorIs(t, err, ErrInvalidInput, "rating %v", r)
	}
}

func TestValidRating(t *testing.T) {
	for _, r := range []float64{0, 0.5, 1, 2.5, 4.5, 5} {
		assert.True(t, ValidRating(r), "rating %v", r)
	}
	for _, r := range []float64{-1, 5.5, 0.25, 3.3} {
		assert.False(t, ValidRating(r), "rating %v", r)
	}
}

func TestAwardRules_ReviewAwardOnce(t *testing.T) {
	rules, s, entry := newAwardFixture(t)
	ctx := context.Background()

	awarded, err := rules.OnReviewSubmitted(ctx, entry, "   ")
	require.NoError(t, err)
	assert.Equal(t, 0, awarded)

	awarded, err = rules.OnReviewSubmitted(ctx, entry, "Genuinely unsettling and beautiful.")
	require.NoError(t, err)
	assert.Equal(t, ReviewBonus, awarded)

	awarded, err = rules.OnReviewSubmitted(ctx, entry, "Edited my review.")
	require.NoError(t, err)
	assert.Equal(t, 0, awarded)

	b, err := s.GetPointsBalance(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, ReviewBonus, b.Earned)
}

// Two racing submissions for the same entry must produce exactly one award:
// the flag claim is atomic at the store.
func TestAwardRules_ConcurrentRatingRace(t *testing.T) {
	rules, s, entry := newAwardFixture(t)
	ctx := context.Background()

	const racers = 16
	results := make(chan int, racers)
	var wg sync.WaitGroup
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			// Every racer sees the same stale snapshot with the
			// flag still unset.
			snapshot := *entry
			awarded, err := rules.OnRatingSubmitted(ctx, &snapshot, 5)
			assert.NoError(t, err)
			results <- awarded
		}()
	}
	wg.Wait()
	close(results)

	winners := 0
	for awarded := range results {
		if awarded > 0 {
			winners++
			assert.Equal(t, RatingBonus, awarded)
		}
	}
	assert.Equal(t, 1, winners, "exactly one racer should win the award")

	b, err := s.GetPointsBalance(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, RatingBonus, b.Earned)
}

package rewards

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"booknook/internal/models"
	"booknook/internal/store"
)

func newHabitFixture() (*HabitTracker, *store.InMemoryStore, *fakeClock) {
	s := store.NewInMemoryStore()
	clock := &fakeClock{now: testStart}
	return NewHabitTracker(s, clock), s, clock
}

func TestHabit_SetGoalValidation(t *testing.T) {
	tracker, _, _ := newHabitFixture()
	ctx := context.Background()

	_, err := tracker.SetGoal(ctx, 1, "fortnightly", models.MetricBooksRead, 5)
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = tracker.SetGoal(ctx, 1, models.PeriodDaily, "minutes_read", 5)
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = tracker.SetGoal(ctx, 1, models.PeriodDaily, models.MetricPagesRead, 0)
	assert.ErrorIs(t, err, ErrInvalidInput)

	goal, err := tracker.SetGoal(ctx, 1, models.PeriodWeekly, models.MetricPagesRead, 200)
	require.NoError(t, err)
	assert.Equal(t, 0, goal.ProgressValue)
}

func TestHabit_ReportAccumulatesWithinPeriod(t *testing.T) {
	tracker, _, _ := newHabitFixture()
	ctx := context.Background()

	_, err := tracker.SetGoal(ctx, 1, models.PeriodDaily, models.MetricPagesRead, 100)
	require.NoError(t, err)

	goal, applied, err := tracker.Report(ctx, 1, models.MetricPagesRead, 30)
	require.NoError(t, err)
	assert.True(t, applied)
	assert.Equal(t, 30, goal.ProgressValue)

	goal, _, err = tracker.Report(ctx, 1, models.MetricPagesRead, 25)
	require.NoError(t, err)
	assert.Equal(t, 55, goal.ProgressValue)
	assert.InDelta(t, 55.0, PercentComplete(goal), 0.001)
}

// Multiple reports the same day collapse into one history point holding the
// latest cumulative value, not a sum of sums.
func TestHabit_SameDayHistoryCollapses(t *testing.T) {
	tracker, _, clock := newHabitFixture()
	ctx := context.Background()

	_, err := tracker.SetGoal(ctx, 1, models.PeriodWeekly, models.MetricPagesRead, 500)
	require.NoError(t, err)

	_, _, err = tracker.Report(ctx, 1, models.MetricPagesRead, 40)
	require.NoError(t, err)
	goal, _, err := tracker.Report(ctx, 1, models.MetricPagesRead, 10)
	require.NoError(t, err)

	require.Len(t, goal.History, 1)
	assert.Equal(t, clock.now.Format("2006-01-02"), goal.History[0].Date)
	assert.Equal(t, 50, goal.History[0].Value)
}

// A daily goal reported the next calendar day starts from the new delta,
// not the previous total.
func TestHabit_DailyRollover(t *testing.T) {
	tracker, _, clock := newHabitFixture()
	ctx := context.Background()

	_, err := tracker.SetGoal(ctx, 1, models.PeriodDaily, models.MetricBooksRead, 5)
	require.NoError(t, err)
	goal, _, err := tracker.Report(ctx, 1, models.MetricBooksRead, 5)
	require.NoError(t, err)
	assert.InDelta(t, 100.0, PercentComplete(goal), 0.001)

	clock.advance(24 * time.Hour)
	goal, _, err = tracker.Report(ctx, 1, models.MetricBooksRead, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, goal.ProgressValue, "progress should reset, not accumulate")
	require.Len(t, goal.History, 2)
	assert.Equal(t, 2, goal.History[1].Value)
}

func TestHabit_MonthlyRollover(t *testing.T) {
	tracker, _, clock := newHabitFixture()
	ctx := context.Background()

	// testStart is March 10; jump past April 1.
	_, err := tracker.SetGoal(ctx, 1, models.PeriodMonthly, models.MetricBooksRead, 4)
	require.NoError(t, err)
	_, _, err = tracker.Report(ctx, 1, models.MetricBooksRead, 3)
	require.NoError(t, err)

	clock.advance(25 * 24 * time.Hour)
	goal, _, err := tracker.Report(ctx, 1, models.MetricBooksRead, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, goal.ProgressValue)
	assert.Equal(t, time.April, goal.PeriodStart.Month())
	assert.Equal(t, 1, goal.PeriodStart.Day())
}

// View applies rollover as of now without rewriting the stored goal.
func TestHabit_ViewComputesRolloverOnRead(t *testing.T) {
	tracker, s, clock := newHabitFixture()
	ctx := context.Background()

	_, err := tracker.SetGoal(ctx, 1, models.PeriodDaily, models.MetricPagesRead, 50)
	require.NoError(t, err)
	_, _, err = tracker.Report(ctx, 1, models.MetricPagesRead, 50)
	require.NoError(t, err)

	clock.advance(24 * time.Hour)
	goal, err := tracker.View(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 0, goal.ProgressValue)

	stored, err := s.GetHabitGoal(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 50, stored.ProgressValue, "stored row rewritten only on next report")
}

func TestHabit_MismatchedMetricNotApplied(t *testing.T) {
	tracker, _, _ := newHabitFixture()
	ctx := context.Background()

	_, err := tracker.SetGoal(ctx, 1, models.PeriodWeekly, models.MetricBooksRead, 3)
	require.NoError(t, err)

	goal, applied, err := tracker.Report(ctx, 1, models.MetricPagesRead, 40)
	require.NoError(t, err)
	assert.False(t, applied)
	assert.Equal(t, 0, goal.ProgressValue)
}

func TestHabit_RecordFinishedBook(t *testing.T) {
	tracker, _, _ := newHabitFixture()
	ctx := context.Background()

	// No goal: silent no-op.
	require.NoError(t, tracker.RecordFinishedBook(ctx, 1, 304))

	_, err := tracker.SetGoal(ctx, 1, models.PeriodMonthly, models.MetricPagesRead, 1000)
	require.NoError(t, err)
	require.NoError(t, tracker.RecordFinishedBook(ctx, 1, 304))

	goal, err := tracker.View(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 304, goal.ProgressValue)

	// A books_read goal counts the book, not its pages.
	_, err = tracker.SetGoal(ctx, 1, models.PeriodMonthly, models.MetricBooksRead, 4)
	require.NoError(t, err)
	require.NoError(t, tracker.RecordFinishedBook(ctx, 1, 304))

	goal, err = tracker.View(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, goal.ProgressValue)
}

func TestHabit_ReportWithoutGoal(t *testing.T) {
	tracker, _, _ := newHabitFixture()

	_, _, err := tracker.Report(context.Background(), 1, models.MetricPagesRead, 10)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestHabit_PercentCompleteCapsAt100(t *testing.T) {
	goal := &models.HabitGoal{TargetValue: 10, ProgressValue: 25}
	assert.InDelta(t, 100.0, PercentComplete(goal), 0.001)
}

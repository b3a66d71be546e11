package rewards

import (
	"context"
	"errors"
	"time"

	"booknook/internal/models"
	"booknook/internal/store"
)

// HabitTracker keeps cumulative reading progress against the user's single
// active goal. Period rollover is a pure function of the clock and the
// goal's period anchor, computed on every read and report; no background
// job touches goal state.
type HabitTracker struct {
	store store.UserStateStore
	clock Clock
}

func NewHabitTracker(s store.UserStateStore, clock Clock) *HabitTracker {
	return &HabitTracker{store: s, clock: clock}
}

func validPeriodicity(p string) bool {
	switch p {
	case models.PeriodDaily, models.PeriodWeekly, models.PeriodMonthly, models.PeriodYearly:
		return true
	}
	return false
}

func validMetric(m string) bool {
	return m == models.MetricBooksRead || m == models.MetricPagesRead
}

// periodStart anchors now to the beginning of its period. Weeks start on
// Sunday, matching the dashboard's week arithmetic.
func periodStart(now time.Time, periodicity string) time.Time {
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	switch periodicity {
	case models.PeriodWeekly:
		return day.AddDate(0, 0, -int(day.Weekday()))
	case models.PeriodMonthly:
		return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	case models.PeriodYearly:
		return time.Date(now.Year(), 1, 1, 0, 0, 0, 0, now.Location())
	default:
		return day
	}
}

// rollOver resets progress when now has crossed into a new period.
func rollOver(goal *models.HabitGoal, now time.Time) {
	start := periodStart(now, goal.Periodicity)
	if goal.PeriodStart.Before(start) {
		goal.ProgressValue = 0
		goal.PeriodStart = start
	}
}

// SetGoal replaces the user's active goal wholesale. Progress never carries
// over from the previous goal.
func (t *HabitTracker) SetGoal(ctx context.Context, userID int, periodicity, metric string, target int) (*models.HabitGoal, error) {
	if !validPeriodicity(periodicity) || !validMetric(metric) || target < 1 {
		return nil, ErrInvalidInput
	}
	goal := &models.HabitGoal{
		UserID:      userID,
		Periodicity: periodicity,
		Metric:      metric,
		TargetValue: target,
		PeriodStart: periodStart(t.clock.Now(), periodicity),
	}
	if err := t.store.PutHabitGoal(ctx, goal); err != nil {
		return nil, err
	}
	return goal, nil
}

// Report adds delta to the active goal when its metric matches. The second
// return value says whether anything was applied (false when the user
// tracks a different metric). Reports within one calendar day collapse to a
// single history point holding the latest cumulative value.
func (t *HabitTracker) Report(ctx context.Context, userID int, metric string, delta int) (*models.HabitGoal, bool, error) {
	if delta <= 0 || !validMetric(metric) {
		return nil, false, ErrInvalidInput
	}
	goal, err := t.store.GetHabitGoal(ctx, userID)
	if err != nil {
		return nil, false, err
	}
	if goal.Metric != metric {
		return goal, false, nil
	}
	now := t.clock.Now()
	rollOver(goal, now)
	goal.ProgressValue += delta

	today := now.Format("2006-01-02")
	if n := len(goal.History); n > 0 && goal.History[n-1].Date == today {
		goal.History[n-1].Value = goal.ProgressValue
	} else {
		goal.History = append(goal.History, models.ProgressPoint{Date: today, Value: goal.ProgressValue})
	}
	if err := t.store.PutHabitGoal(ctx, goal); err != nil {
		return nil, false, err
	}
	return goal, true, nil
}

// RecordFinishedBook feeds a book-finish event into whichever metric the
// active goal tracks: one book, or the book's page count. Users without a
// goal are a silent no-op.
func (t *HabitTracker) RecordFinishedBook(ctx context.Context, userID, pageCount int) error {
	goal, err := t.store.GetHabitGoal(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	delta := 1
	if goal.Metric == models.MetricPagesRead {
		if pageCount <= 0 {
			return nil
		}
		delta = pageCount
	}
	_, _, err = t.Report(ctx, userID, goal.Metric, delta)
	return err
}

// View returns the goal with rollover applied as of now, without writing.
// The persisted row is only rewritten on the next report.
func (t *HabitTracker) View(ctx context.Context, userID int) (*models.HabitGoal, error) {
	goal, err := t.store.GetHabitGoal(ctx, userID)
	if err != nil {
		return nil, err
	}
	rollOver(goal, t.clock.Now())
	return goal, nil
}

// PercentComplete is progress against target, capped at 100. Target is >= 1
// by construction, so the division is safe.
func PercentComplete(goal *models.HabitGoal) float64 {
	pct := float64(goal.ProgressValue) / float64(goal.TargetValue) * 100
	if pct > 100 {
		return 100
	}
	return pct
}

// ClearGoal removes the user's active goal.
func (t *HabitTracker) ClearGoal(ctx context.Context, userID int) error {
	return t.store.DeleteHabitGoal(ctx, userID)
}

package rewards

import (
	"context"
	"errors"
	"fmt"
	"time"

	"booknook/internal/models"
	"booknook/internal/store"
)

// StreakRewards is the point schedule indexed by slot: days 1-2 are worth 1,
// days 3-4 worth 3, days 5-6 worth 5, day 7 worth 10.
var StreakRewards = [7]int{1, 1, 3, 3, 5, 5, 10}

// RolloverBonus is granted once when a completed 7-day streak rolls over
// into a fresh one.
const RolloverBonus = 10

// Check-in windows, measured from the last filled slot. Within a day the
// check is a no-op; past the grace window the streak resets. Both bounds are
// inclusive on the advance side: exactly 24h advances, exactly 48h still
// advances, anything beyond resets.
const (
	minAdvance = 24 * time.Hour
	maxAdvance = 48 * time.Hour
)

// Outcome says what a streak check did.
type Outcome string

const (
	OutcomeNone     Outcome = "none"     // too soon since the last check-in
	OutcomeStarted  Outcome = "started"  // first slot of a new streak
	OutcomeAdvanced Outcome = "advanced" // next consecutive slot filled
	OutcomeReset    Outcome = "reset"    // missed the window, restarted at day 1
	OutcomeRollover Outcome = "rollover" // completed streak cashed in, restarted
)

type CheckResult struct {
	Slots   models.StreakSlots
	Day     int // filled slot count after the check, 1..7
	Awarded int // points granted by this check, 0 for a no-op
	Outcome Outcome
}

// StreakTracker evaluates the 7-slot streak state machine. Safe to call on
// every page load: repeated checks within 24 hours change nothing.
type StreakTracker struct {
	store store.UserStateStore
	clock Clock
}

func NewStreakTracker(s store.UserStateStore, clock Clock) *StreakTracker {
	return &StreakTracker{store: s, clock: clock}
}

// seeded returns a fresh streak with only slot 0 filled at now.
func seeded(now time.Time) models.StreakSlots {
	var s models.StreakSlots
	s.FilledAt[0] = &now
	s.RewardAwarded[0] = true
	return s
}

func dayReason(day int) string {
	return fmt.Sprintf("Day %d reading streak", day)
}

// nextSlots is the whole streak transition, a pure function of the current
// slots and the clock. It returns the new slots and the awards the write
// must carry; OutcomeNone means nothing should be written.
func nextSlots(cur models.StreakSlots, now time.Time) (models.StreakSlots, []store.PointAward, Outcome) {
	last := cur.LastFilled()
	if last < 0 {
		return seeded(now), []store.PointAward{{Amount: StreakRewards[0], Reason: dayReason(1)}}, OutcomeStarted
	}

	elapsed := now.Sub(*cur.FilledAt[last])
	switch {
	case elapsed > maxAdvance:
		return seeded(now), []store.PointAward{{Amount: StreakRewards[0], Reason: dayReason(1)}}, OutcomeReset
	case elapsed < minAdvance:
		return cur, nil, OutcomeNone
	case last == len(cur.FilledAt)-1:
		// Completed streak: pay the rollover bonus and restart at day 1.
		return seeded(now), []store.PointAward{
			{Amount: RolloverBonus, Reason: "Completed 7-day reading streak"},
			{Amount: StreakRewards[0], Reason: dayReason(1)},
		}, OutcomeRollover
	default:
		next := cur
		next.FilledAt[last+1] = &now
		next.RewardAwarded[last+1] = true
		return next, []store.PointAward{{Amount: StreakRewards[last+1], Reason: dayReason(last + 2)}}, OutcomeAdvanced
	}
}

const casAttempts = 3

// Check runs one streak evaluation for the user. The full state is read,
// the successor computed in memory, and written back in a single versioned
// compare-and-swap with its awards; a conflicting concurrent check triggers
// a bounded re-read-recompute-rewrite retry.
func (t *StreakTracker) Check(ctx context.Context, userID int) (CheckResult, error) {
	now := t.clock.Now()
	for attempt := 0; attempt < casAttempts; attempt++ {
		var cur models.StreakSlots
		version := 0
		st, err := t.store.GetStreakState(ctx, userID)
		switch {
		case errors.Is(err, store.ErrNotFound):
			// first check for this user
		case err != nil:
			return CheckResult{}, fmt.Errorf("streak check: %w", err)
		default:
			cur = st.Slots
			version = st.Version
		}

		next, awards, outcome := nextSlots(cur, now)
		if outcome == OutcomeNone {
			return CheckResult{Slots: cur, Day: cur.LastFilled() + 1, Outcome: outcome}, nil
		}

		err = t.store.CompareAndSwapStreak(ctx, userID, version, next, awards)
		if errors.Is(err, store.ErrVersionConflict) {
			continue
		}
		if err != nil {
			return CheckResult{}, fmt.Errorf("streak check: %w", err)
		}

		total := 0
		for _, a := range awards {
			total += a.Amount
		}
		return CheckResult{Slots: next, Day: next.LastFilled() + 1, Awarded: total, Outcome: outcome}, nil
	}
	return CheckResult{}, fmt.Errorf("streak check: gave up after %d attempts: %w", casAttempts, store.ErrVersionConflict)
}

// Current is the read-only projection of the streak for dashboards. Users
// with no state yet get an empty slot window.
func (t *StreakTracker) Current(ctx context.Context, userID int) (models.StreakSlots, int, error) {
	st, err := t.store.GetStreakState(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return models.StreakSlots{}, 0, nil
	}
	if err != nil {
		return models.StreakSlots{}, 0, err
	}
	return st.Slots, st.Slots.LastFilled() + 1, nil
}

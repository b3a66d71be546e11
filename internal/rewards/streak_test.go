package rewards

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"booknook/internal/store"
)

type fakeClock struct {
	now time.Time
}

func (f *fakeClock) Now() time.Time { return f.now }

func (f *fakeClock) advance(d time.Duration) { f.now = f.now.Add(d) }

var testStart = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

func newStreakFixture() (*StreakTracker, *store.InMemoryStore, *fakeClock) {
	s := store.NewInMemoryStore()
	clock := &fakeClock{now: testStart}
	return NewStreakTracker(s, clock), s, clock
}

// checkDays runs n consecutive daily check-ins, leaving the last fill at the
// clock's current instant.
func checkDays(t *testing.T, tracker *StreakTracker, clock *fakeClock, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		if i > 0 {
			clock.advance(24 * time.Hour)
		}
		res, err := tracker.Check(context.Background(), 1)
		require.NoError(t, err)
		require.Equal(t, i+1, res.Day)
	}
}

func earned(t *testing.T, s *store.InMemoryStore) int {
	t.Helper()
	b, err := s.GetPointsBalance(context.Background(), 1)
	if err != nil {
		return 0
	}
	return b.Earned
}

func TestStreak_FirstCheckStartsStreak(t *testing.T) {
	tracker, s, _ := newStreakFixture()

	res, err := tracker.Check(context.Background(), 1)
	require.NoError(t, err)

	assert.Equal(t, OutcomeStarted, res.Outcome)
	assert.Equal(t, 1, res.Day)
	assert.Equal(t, 1, res.Awarded)
	require.NotNil(t, res.Slots.FilledAt[0])
	assert.True(t, res.Slots.FilledAt[0].Equal(testStart))
	assert.True(t, res.Slots.RewardAwarded[0])
	assert.Equal(t, 1, earned(t, s))
}

// A second check within the same day must not fill a second slot or award
// twice.
func TestStreak_NoDoubleAdvanceSameDay(t *testing.T) {
	tracker, s, clock := newStreakFixture()

	checkDays(t, tracker, clock, 1)
	clock.advance(time.Hour)

	res, err := tracker.Check(context.Background(), 1)
	require.NoError(t, err)

	assert.Equal(t, OutcomeNone, res.Outcome)
	assert.Equal(t, 1, res.Day)
	assert.Equal(t, 0, res.Awarded)
	assert.Equal(t, 1, earned(t, s))
}

func TestStreak_AdvancesThroughRewardSchedule(t *testing.T) {
	tracker, s, clock := newStreakFixture()

	checkDays(t, tracker, clock, 7)

	// 1+1+3+3+5+5+10
	assert.Equal(t, 28, earned(t, s))

	slots, day, err := tracker.Current(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 7, day)
	for i := range slots.FilledAt {
		assert.NotNil(t, slots.FilledAt[i], "slot %d should be filled", i)
		assert.True(t, slots.RewardAwarded[i], "slot %d reward should be marked", i)
	}
}

func TestStreak_ResetAfterMissedWindow(t *testing.T) {
	tracker, s, clock := newStreakFixture()

	// ACTIVE(3), last fill at the current clock instant.
	checkDays(t, tracker, clock, 3)
	before := earned(t, s)

	clock.advance(49 * time.Hour)
	res, err := tracker.Check(context.Background(), 1)
	require.NoError(t, err)

	assert.Equal(t, OutcomeReset, res.Outcome)
	assert.Equal(t, 1, res.Day)
	assert.Equal(t, 1, res.Awarded)
	assert.Equal(t, before+1, earned(t, s))
	for i := 1; i < len(res.Slots.FilledAt); i++ {
		assert.Nil(t, res.Slots.FilledAt[i], "slot %d should be cleared", i)
	}
	require.NotNil(t, res.Slots.FilledAt[0])
	assert.True(t, res.Slots.FilledAt[0].Equal(clock.now))
}

// Pins the inclusive/exclusive window bounds: 23.999h no-op, 24h advance,
// 48h advance, just past 48h reset.
func TestStreak_WindowBoundaries(t *testing.T) {
	cases := []struct {
		name    string
		elapsed time.Duration
		outcome Outcome
		day     int
	}{
		{"just under 24h is a no-op", 24*time.Hour - time.Millisecond, OutcomeNone, 1},
		{"exactly 24h advances", 24 * time.Hour, OutcomeAdvanced, 2},
		{"exactly 48h still advances", 48 * time.Hour, OutcomeAdvanced, 2},
		{"just past 48h resets", 48*time.Hour + time.Millisecond, OutcomeReset, 1},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tracker, _, clock := newStreakFixture()
			checkDays(t, tracker, clock, 1)

			clock.advance(tc.elapsed)
			res, err := tracker.Check(context.Background(), 1)
			require.NoError(t, err)

			assert.Equal(t, tc.outcome, res.Outcome)
			assert.Equal(t, tc.day, res.Day)
		})
	}
}

func TestStreak_RolloverPaysBonusAndRestarts(t *testing.T) {
	tracker, s, clock := newStreakFixture()

	checkDays(t, tracker, clock, 7)
	before := earned(t, s)

	clock.advance(24 * time.Hour)
	res, err := tracker.Check(context.Background(), 1)
	require.NoError(t, err)

	assert.Equal(t, OutcomeRollover, res.Outcome)
	assert.Equal(t, 1, res.Day)
	// 10 bonus plus the fresh day-1 reward.
	assert.Equal(t, RolloverBonus+StreakRewards[0], res.Awarded)
	assert.Equal(t, before+11, earned(t, s))
	for i := 1; i < len(res.Slots.FilledAt); i++ {
		assert.Nil(t, res.Slots.FilledAt[i], "slot %d should be cleared", i)
	}
}

// A no-op check writes nothing, so the stored version stays put.
func TestStreak_NoOpDoesNotWrite(t *testing.T) {
	tracker, s, clock := newStreakFixture()
	checkDays(t, tracker, clock, 1)

	st, err := s.GetStreakState(context.Background(), 1)
	require.NoError(t, err)
	versionBefore := st.Version

	clock.advance(time.Minute)
	_, err = tracker.Check(context.Background(), 1)
	require.NoError(t, err)

	st, err = s.GetStreakState(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, versionBefore, st.Version)
}

func TestStreak_CurrentForNewUserIsEmpty(t *testing.T) {
	tracker, _, _ := newStreakFixture()

	slots, day, err := tracker.Current(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, 0, day)
	assert.Equal(t, -1, slots.LastFilled())
}

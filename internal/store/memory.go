package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"booknook/internal/models"
)

type entryKey struct {
	userID int
	bookID string
}

// InMemoryStore implements UserStateStore with mutex-guarded maps. It mirrors
// the conditional-write semantics of the Postgres store and backs the core
// test suite, including the concurrency properties.
type InMemoryStore struct {
	mu           sync.Mutex
	balances     map[int]*models.PointsBalance
	transactions map[int][]models.PointTransaction
	streaks      map[int]*models.StreakState
	entries      map[entryKey]*models.ReadingListEntry
	goals        map[int]*models.HabitGoal
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		balances:     make(map[int]*models.PointsBalance),
		transactions: make(map[int][]models.PointTransaction),
		streaks:      make(map[int]*models.StreakState),
		entries:      make(map[entryKey]*models.ReadingListEntry),
		goals:        make(map[int]*models.HabitGoal),
	}
}

// applyAward must be called with mu held.
func (s *InMemoryStore) applyAward(userID int, award PointAward) {
	b, ok := s.balances[userID]
	if !ok {
		b = &models.PointsBalance{UserID: userID}
		s.balances[userID] = b
	}
	b.Earned += award.Amount
	s.transactions[userID] = append(s.transactions[userID], models.PointTransaction{
		ID:        uuid.NewString(),
		UserID:    userID,
		Amount:    award.Amount,
		Kind:      models.TxEarned,
		Reason:    award.Reason,
		CreatedAt: time.Now(),
	})
}

func (s *InMemoryStore) GetPointsBalance(_ context.Context, userID int) (*models.PointsBalance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.balances[userID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (s *InMemoryStore) AwardPoints(_ context.Context, userID, amount int, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.applyAward(userID, PointAward{Amount: amount, Reason: reason})
	return nil
}

func (s *InMemoryStore) RedeemPoints(_ context.Context, userID, amount int, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.balances[userID]
	if !ok || b.Earned-b.Redeemed < amount {
		return ErrInsufficientBalance
	}
	b.Redeemed += amount
	s.transactions[userID] = append(s.transactions[userID], models.PointTransaction{
		ID:        uuid.NewString(),
		UserID:    userID,
		Amount:    -amount,
		Kind:      models.TxRedeemed,
		Reason:    reason,
		CreatedAt: time.Now(),
	})
	return nil
}

func (s *InMemoryStore) ListTransactions(_ context.Context, userID, limit int) ([]models.PointTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	txs := append([]models.PointTransaction{}, s.transactions[userID]...)
	sort.SliceStable(txs, func(i, j int) bool { return txs[i].CreatedAt.After(txs[j].CreatedAt) })
	if limit > 0 && len(txs) > limit {
		txs = txs[:limit]
	}
	return txs, nil
}

func (s *InMemoryStore) GetStreakState(_ context.Context, userID int) (*models.StreakState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.streaks[userID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *st
	return &cp, nil
}

func (s *InMemoryStore) CompareAndSwapStreak(_ context.Context, userID, expectedVersion int, next models.StreakSlots, awards []PointAward) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.streaks[userID]
	switch {
	case !ok && expectedVersion != 0:
		return ErrVersionConflict
	case ok && cur.Version != expectedVersion:
		return ErrVersionConflict
	}
	s.streaks[userID] = &models.StreakState{
		UserID:    userID,
		Slots:     next,
		Version:   expectedVersion + 1,
		UpdatedAt: time.Now(),
	}
	for _, a := range awards {
		s.applyAward(userID, a)
	}
	return nil
}

func (s *InMemoryStore) GetEntry(_ context.Context, userID int, bookID string) (*models.ReadingListEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[entryKey{userID, bookID}]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (s *InMemoryStore) ListEntries(_ context.Context, userID int, status string) ([]models.ReadingListEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.ReadingListEntry
	for k, e := range s.entries {
		if k.userID != userID {
			continue
		}
		if status != "" && e.Status != status {
			continue
		}
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func (s *InMemoryStore) UpsertEntry(_ context.Context, entry *models.ReadingListEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := entryKey{entry.UserID, entry.BookID}
	cp := *entry
	cp.UpdatedAt = time.Now()
	if prev, ok := s.entries[key]; ok {
		cp.AddedAt = prev.AddedAt
		if cp.Rating == nil {
			cp.Rating = prev.Rating
		}
		if cp.ReviewText == nil {
			cp.ReviewText = prev.ReviewText
		}
		if cp.Notes == nil {
			cp.Notes = prev.Notes
		}
		cp.FinishedAward = cp.FinishedAward || prev.FinishedAward
		cp.RatingAward = cp.RatingAward || prev.RatingAward
		cp.ReviewAward = cp.ReviewAward || prev.ReviewAward
	} else {
		cp.AddedAt = cp.UpdatedAt
	}
	s.entries[key] = &cp
	return nil
}

func (s *InMemoryStore) UpdateEntryStatus(_ context.Context, userID int, bookID, status string) error {
	return s.mutateEntry(userID, bookID, func(e *models.ReadingListEntry) {
		e.Status = status
	})
}

func (s *InMemoryStore) UpdateEntryRating(_ context.Context, userID int, bookID string, rating float64) error {
	return s.mutateEntry(userID, bookID, func(e *models.ReadingListEntry) {
		e.Rating = &rating
	})
}

func (s *InMemoryStore) UpdateEntryReview(_ context.Context, userID int, bookID, reviewText string) error {
	return s.mutateEntry(userID, bookID, func(e *models.ReadingListEntry) {
		e.ReviewText = &reviewText
	})
}

func (s *InMemoryStore) mutateEntry(userID int, bookID string, fn func(*models.ReadingListEntry)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[entryKey{userID, bookID}]
	if !ok {
		return ErrNotFound
	}
	fn(e)
	e.UpdatedAt = time.Now()
	return nil
}

func (s *InMemoryStore) DeleteEntry(_ context.Context, userID int, bookID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := entryKey{userID, bookID}
	if _, ok := s.entries[key]; !ok {
		return ErrNotFound
	}
	delete(s.entries, key)
	return nil
}

func (s *InMemoryStore) ClaimAwardFlag(_ context.Context, userID int, bookID string, flag models.AwardFlag, award PointAward) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[entryKey{userID, bookID}]
	if !ok {
		return false, ErrNotFound
	}
	var claimed bool
	switch flag {
	case models.FlagFinished:
		claimed = !e.FinishedAward
		e.FinishedAward = true
	case models.FlagRating:
		claimed = !e.RatingAward
		e.RatingAward = true
	case models.FlagTextReview:
		claimed = !e.ReviewAward
		e.ReviewAward = true
	}
	if !claimed {
		return false, nil
	}
	e.UpdatedAt = time.Now()
	s.applyAward(userID, award)
	return true, nil
}

func (s *InMemoryStore) GetHabitGoal(_ context.Context, userID int) (*models.HabitGoal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.goals[userID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *g
	cp.History = append([]models.ProgressPoint{}, g.History...)
	return &cp, nil
}

func (s *InMemoryStore) PutHabitGoal(_ context.Context, goal *models.HabitGoal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *goal
	cp.History = append([]models.ProgressPoint{}, goal.History...)
	s.goals[goal.UserID] = &cp
	return nil
}

func (s *InMemoryStore) DeleteHabitGoal(_ context.Context, userID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.goals[userID]; !ok {
		return ErrNotFound
	}
	delete(s.goals, userID)
	return nil
}

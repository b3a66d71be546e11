package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"booknook/internal/models"
)

// PostgresStore implements UserStateStore on Postgres via sqlx. Atomicity of
// read-modify-write sequences comes from conditional UPDATE guards rather
// than application-side locking.
type PostgresStore struct {
	db *sqlx.DB
}

func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// insertTransaction appends one immutable ledger row inside tx.
func insertTransaction(ctx context.Context, tx *sqlx.Tx, userID, amount int, kind, reason string) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO point_transactions (id, user_id, amount, kind, reason, created_at)
		 VALUES ($1, $2, $3, $4, $5, NOW())`,
		uuid.NewString(), userID, amount, kind, reason)
	return err
}

// applyAward credits points inside tx: one ledger row plus a balance upsert.
func applyAward(ctx context.Context, tx *sqlx.Tx, userID int, award PointAward) error {
	if err := insertTransaction(ctx, tx, userID, award.Amount, models.TxEarned, award.Reason); err != nil {
		return err
	}
	_, err := tx.ExecContext(ctx,
		`INSERT INTO points_balances (user_id, earned, redeemed) VALUES ($1, $2, 0)
		 ON CONFLICT (user_id) DO UPDATE SET earned = points_balances.earned + EXCLUDED.earned`,
		userID, award.Amount)
	return err
}

func (s *PostgresStore) GetPointsBalance(ctx context.Context, userID int) (*models.PointsBalance, error) {
	var b models.PointsBalance
	err := s.db.GetContext(ctx, &b,
		`SELECT user_id, earned, redeemed FROM points_balances WHERE user_id=$1`, userID)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get points balance: %w", err)
	}
	return &b, nil
}

func (s *PostgresStore) AwardPoints(ctx context.Context, userID, amount int, reason string) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("award points: %w", err)
	}
	defer tx.Rollback()
	if err := applyAward(ctx, tx, userID, PointAward{Amount: amount, Reason: reason}); err != nil {
		return fmt.Errorf("award points: %w", err)
	}
	return tx.Commit()
}

func (s *PostgresStore) RedeemPoints(ctx context.Context, userID, amount int, reason string) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("redeem points: %w", err)
	}
	defer tx.Rollback()

	// The guard makes the balance check and the write one atomic step;
	// zero rows means the user cannot cover the redemption.
	res, err := tx.ExecContext(ctx,
		`UPDATE points_balances SET redeemed = redeemed + $2
		 WHERE user_id=$1 AND earned - redeemed >= $2`, userID, amount)
	if err != nil {
		return fmt.Errorf("redeem points: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrInsufficientBalance
	}
	if err := insertTransaction(ctx, tx, userID, -amount, models.TxRedeemed, reason); err != nil {
		return fmt.Errorf("redeem points: %w", err)
	}
	return tx.Commit()
}

func (s *PostgresStore) ListTransactions(ctx context.Context, userID, limit int) ([]models.PointTransaction, error) {
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	var out []models.PointTransaction
	err := s.db.SelectContext(ctx, &out,
		`SELECT id, user_id, amount, kind, reason, created_at
		 FROM point_transactions WHERE user_id=$1 ORDER BY created_at DESC LIMIT $2`,
		userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) GetStreakState(ctx context.Context, userID int) (*models.StreakState, error) {
	var row struct {
		Slots     []byte    `db:"slots"`
		Version   int       `db:"version"`
		UpdatedAt time.Time `db:"updated_at"`
	}
	err := s.db.GetContext(ctx, &row,
		`SELECT slots, version, updated_at FROM streak_states WHERE user_id=$1`, userID)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get streak state: %w", err)
	}
	st := models.StreakState{UserID: userID, Version: row.Version, UpdatedAt: row.UpdatedAt}
	if err := json.Unmarshal(row.Slots, &st.Slots); err != nil {
		return nil, fmt.Errorf("get streak state: decode slots: %w", err)
	}
	return &st, nil
}

func (s *PostgresStore) CompareAndSwapStreak(ctx context.Context, userID, expectedVersion int, next models.StreakSlots, awards []PointAward) error {
	raw, err := json.Marshal(next)
	if err != nil {
		return fmt.Errorf("cas streak: encode slots: %w", err)
	}
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("cas streak: %w", err)
	}
	defer tx.Rollback()

	var res sql.Result
	if expectedVersion == 0 {
		// First check-in for this user; losing the insert race means a
		// concurrent request already seeded the row.
		res, err = tx.ExecContext(ctx,
			`INSERT INTO streak_states (user_id, slots, version, updated_at)
			 VALUES ($1, $2, 1, NOW()) ON CONFLICT (user_id) DO NOTHING`, userID, raw)
	} else {
		res, err = tx.ExecContext(ctx,
			`UPDATE streak_states SET slots=$3, version=version+1, updated_at=NOW()
			 WHERE user_id=$1 AND version=$2`, userID, expectedVersion, raw)
	}
	if err != nil {
		return fmt.Errorf("cas streak: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrVersionConflict
	}
	for _, a := range awards {
		if err := applyAward(ctx, tx, userID, a); err != nil {
			return fmt.Errorf("cas streak: %w", err)
		}
	}
	return tx.Commit()
}

const entryColumns = `user_id, book_id, title, author, page_count, status, rating, review_text, notes,
	finished_award, rating_award, review_award, added_at, updated_at`

func (s *PostgresStore) GetEntry(ctx context.Context, userID int, bookID string) (*models.ReadingListEntry, error) {
	var e models.ReadingListEntry
	err := s.db.GetContext(ctx, &e,
		`SELECT `+entryColumns+` FROM reading_list WHERE user_id=$1 AND book_id=$2`, userID, bookID)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get entry: %w", err)
	}
	return &e, nil
}

func (s *PostgresStore) ListEntries(ctx context.Context, userID int, status string) ([]models.ReadingListEntry, error) {
	query := `SELECT ` + entryColumns + ` FROM reading_list WHERE user_id=$1`
	args := []interface{}{userID}
	if status != "" {
		query += ` AND status=$2`
		args = append(args, status)
	}
	query += ` ORDER BY updated_at DESC LIMIT 200`
	var out []models.ReadingListEntry
	if err := s.db.SelectContext(ctx, &out, query, args...); err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) UpsertEntry(ctx context.Context, entry *models.ReadingListEntry) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO reading_list (user_id, book_id, title, author, page_count, status, rating, review_text, notes,
		                           finished_award, rating_award, review_award, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NOW())
		 ON CONFLICT (user_id, book_id) DO UPDATE SET
		   title = EXCLUDED.title,
		   author = EXCLUDED.author,
		   page_count = EXCLUDED.page_count,
		   status = EXCLUDED.status,
		   rating = COALESCE(EXCLUDED.rating, reading_list.rating),
		   review_text = COALESCE(EXCLUDED.review_text, reading_list.review_text),
		   notes = COALESCE(EXCLUDED.notes, reading_list.notes),
		   finished_award = reading_list.finished_award OR EXCLUDED.finished_award,
		   rating_award = reading_list.rating_award OR EXCLUDED.rating_award,
		   review_award = reading_list.review_award OR EXCLUDED.review_award,
		   updated_at = NOW()`,
		entry.UserID, entry.BookID, entry.Title, entry.Author, entry.PageCount, entry.Status,
		entry.Rating, entry.ReviewText, entry.Notes,
		entry.FinishedAward, entry.RatingAward, entry.ReviewAward)
	if err != nil {
		return fmt.Errorf("upsert entry: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpdateEntryStatus(ctx context.Context, userID int, bookID, status string) error {
	return s.updateEntry(ctx, userID, bookID,
		`UPDATE reading_list SET status=$3, updated_at=NOW() WHERE user_id=$1 AND book_id=$2`, status)
}

func (s *PostgresStore) UpdateEntryRating(ctx context.Context, userID int, bookID string, rating float64) error {
	return s.updateEntry(ctx, userID, bookID,
		`UPDATE reading_list SET rating=$3, updated_at=NOW() WHERE user_id=$1 AND book_id=$2`, rating)
}

func (s *PostgresStore) UpdateEntryReview(ctx context.Context, userID int, bookID, reviewText string) error {
	return s.updateEntry(ctx, userID, bookID,
		`UPDATE reading_list SET review_text=$3, updated_at=NOW() WHERE user_id=$1 AND book_id=$2`, reviewText)
}

func (s *PostgresStore) updateEntry(ctx context.Context, userID int, bookID, query string, value interface{}) error {
	res, err := s.db.ExecContext(ctx, query, userID, bookID, value)
	if err != nil {
		return fmt.Errorf("update entry: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) DeleteEntry(ctx context.Context, userID int, bookID string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM reading_list WHERE user_id=$1 AND book_id=$2`, userID, bookID)
	if err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func awardFlagColumn(flag models.AwardFlag) (string, error) {
	switch flag {
	case models.FlagFinished:
		return "finished_award", nil
	case models.FlagRating:
		return "rating_award", nil
	case models.FlagTextReview:
		return "review_award", nil
	}
	return "", fmt.Errorf("unknown award flag %q", flag)
}

func (s *PostgresStore) ClaimAwardFlag(ctx context.Context, userID int, bookID string, flag models.AwardFlag, award PointAward) (bool, error) {
	col, err := awardFlagColumn(flag)
	if err != nil {
		return false, err
	}
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("claim award flag: %w", err)
	}
	defer tx.Rollback()

	// The WHERE guard is the idempotency contract: only one of any number
	// of concurrent claims flips the flag, and only that one awards.
	res, err := tx.ExecContext(ctx,
		`UPDATE reading_list SET `+col+`=true, updated_at=NOW()
		 WHERE user_id=$1 AND book_id=$2 AND `+col+`=false`, userID, bookID)
	if err != nil {
		return false, fmt.Errorf("claim award flag: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		var exists bool
		if err := tx.QueryRowxContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM reading_list WHERE user_id=$1 AND book_id=$2)`,
			userID, bookID).Scan(&exists); err != nil {
			return false, fmt.Errorf("claim award flag: %w", err)
		}
		if !exists {
			return false, ErrNotFound
		}
		return false, nil
	}
	if err := applyAward(ctx, tx, userID, award); err != nil {
		return false, fmt.Errorf("claim award flag: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("claim award flag: %w", err)
	}
	return true, nil
}

func (s *PostgresStore) GetHabitGoal(ctx context.Context, userID int) (*models.HabitGoal, error) {
	var row struct {
		Periodicity   string    `db:"periodicity"`
		Metric        string    `db:"metric"`
		TargetValue   int       `db:"target_value"`
		ProgressValue int       `db:"progress_value"`
		PeriodStart   time.Time `db:"period_start"`
		History       []byte    `db:"history"`
	}
	err := s.db.GetContext(ctx, &row,
		`SELECT periodicity, metric, target_value, progress_value, period_start, history
		 FROM habit_goals WHERE user_id=$1`, userID)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get habit goal: %w", err)
	}
	g := models.HabitGoal{
		UserID:        userID,
		Periodicity:   row.Periodicity,
		Metric:        row.Metric,
		TargetValue:   row.TargetValue,
		ProgressValue: row.ProgressValue,
		PeriodStart:   row.PeriodStart,
	}
	if len(row.History) > 0 {
		if err := json.Unmarshal(row.History, &g.History); err != nil {
			return nil, fmt.Errorf("get habit goal: decode history: %w", err)
		}
	}
	return &g, nil
}

func (s *PostgresStore) PutHabitGoal(ctx context.Context, goal *models.HabitGoal) error {
	history, err := json.Marshal(goal.History)
	if err != nil {
		return fmt.Errorf("put habit goal: encode history: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO habit_goals (user_id, periodicity, metric, target_value, progress_value, period_start, history)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (user_id) DO UPDATE SET
		   periodicity = EXCLUDED.periodicity,
		   metric = EXCLUDED.metric,
		   target_value = EXCLUDED.target_value,
		   progress_value = EXCLUDED.progress_value,
		   period_start = EXCLUDED.period_start,
		   history = EXCLUDED.history`,
		goal.UserID, goal.Periodicity, goal.Metric, goal.TargetValue,
		goal.ProgressValue, goal.PeriodStart, history)
	if err != nil {
		return fmt.Errorf("put habit goal: %w", err)
	}
	return nil
}

func (s *PostgresStore) DeleteHabitGoal(ctx context.Context, userID int) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM habit_goals WHERE user_id=$1`, userID)
	if err != nil {
		return fmt.Errorf("delete habit goal: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

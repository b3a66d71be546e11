package models

import "time"

type User struct {
	ID           int        `db:"id" json:"id"`
	Email        string     `db:"email" json:"email"`
	PasswordHash string     `db:"password_hash" json:"-"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	DisplayName  *string    `db:"display_name" json:"display_name,omitempty"`
	AvatarID     *int       `db:"avatar_id" json:"avatar_id,omitempty"`
	JoinedAt     *time.Time `db:"joined_at" json:"joined_at,omitempty"`
	IsAdmin      bool       `db:"is_admin" json:"is_admin"`
}

// Reading statuses a list entry moves through.
const (
	StatusToRead   = "To Read"
	StatusReading  = "Reading"
	StatusFinished = "Finished"
)

// AwardFlag names the per-entry idempotency guards. Each flag flips
// false->true at most once for the lifetime of the entry.
type AwardFlag string

const (
	FlagFinished   AwardFlag = "finished"
	FlagRating     AwardFlag = "rating"
	FlagTextReview AwardFlag = "text_review"
)

type ReadingListEntry struct {
	UserID         int       `db:"user_id" json:"user_id"`
	BookID         string    `db:"book_id" json:"book_id"`
	Title          string    `db:"title" json:"title"`
	Author         string    `db:"author" json:"author,omitempty"`
	PageCount      int       `db:"page_count" json:"page_count,omitempty"`
	Status         string    `db:"status" json:"status"`
	Rating         *float64  `db:"rating" json:"rating,omitempty"`
	ReviewText     *string   `db:"review_text" json:"review_text,omitempty"` // Encrypted in DB
	Notes          *string   `db:"notes" json:"notes,omitempty"`             // Encrypted in DB
	FinishedAward  bool      `db:"finished_award" json:"-"`
	RatingAward    bool      `db:"rating_award" json:"-"`
	ReviewAward    bool      `db:"review_award" json:"-"`
	AddedAt        time.Time `db:"added_at" json:"added_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// FlagSet reports whether the given award flag is already set on the entry.
func (e *ReadingListEntry) FlagSet(flag AwardFlag) bool {
	switch flag {
	case FlagFinished:
		return e.FinishedAward
	case FlagRating:
		return e.RatingAward
	case FlagTextReview:
		return e.ReviewAward
	}
	return false
}

type PointsBalance struct {
	UserID   int `db:"user_id" json:"user_id"`
	Earned   int `db:"earned" json:"earned"`
	Redeemed int `db:"redeemed" json:"redeemed"`
}

// Available is the spendable balance. redeemed <= earned always holds,
// so the result is never negative.
func (b PointsBalance) Available() int { return b.Earned - b.Redeemed }

const (
	TxEarned   = "earned"
	TxRedeemed = "redeemed"
)

type PointTransaction struct {
	ID        string    `db:"id" json:"id"`
	UserID    int       `db:"user_id" json:"user_id"`
	Amount    int       `db:"amount" json:"amount"` // positive=earned, negative=redeemed
	Kind      string    `db:"kind" json:"kind"`
	Reason    string    `db:"reason" json:"reason"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// StreakSlots is the 7-slot rolling check-in window. Slots fill contiguously
// from index 0; RewardAwarded[i] is true only when FilledAt[i] is non-nil.
type StreakSlots struct {
	FilledAt      [7]*time.Time `json:"filled_at"`
	RewardAwarded [7]bool       `json:"reward_awarded"`
}

// LastFilled returns the highest filled slot index, or -1 when no slot is
// filled yet.
func (s StreakSlots) LastFilled() int {
	for i := len(s.FilledAt) - 1; i >= 0; i-- {
		if s.FilledAt[i] != nil {
			return i
		}
	}
	return -1
}

// StreakState is the persisted per-user streak row. Version guards
// compare-and-swap updates across concurrent check-ins.
type StreakState struct {
	UserID    int         `json:"user_id"`
	Slots     StreakSlots `json:"slots"`
	Version   int         `json:"version"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// Habit goal periodicities and metrics.
const (
	PeriodDaily   = "daily"
	PeriodWeekly  = "weekly"
	PeriodMonthly = "monthly"
	PeriodYearly  = "yearly"

	MetricBooksRead = "books_read"
	MetricPagesRead = "pages_read"
)

type ProgressPoint struct {
	Date  string `json:"date"` // YYYY-MM-DD
	Value int    `json:"value"`
}

// HabitGoal is a user's single active reading goal. PeriodStart anchors the
// current period; ProgressValue resets to 0 when a new period begins.
type HabitGoal struct {
	UserID        int             `json:"user_id"`
	Periodicity   string          `json:"periodicity"`
	Metric        string          `json:"metric"`
	TargetValue   int             `json:"target_value"`
	ProgressValue int             `json:"progress_value"`
	PeriodStart   time.Time       `json:"period_start"`
	History       []ProgressPoint `json:"history"`
}

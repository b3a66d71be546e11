package handlers

import (
	"errors"
	"net/http"

	"github.com/jmoiron/sqlx"

	"booknook/internal/rewards"
	"booknook/internal/store"
)

// DashboardHandler powers the home screen: a read-only projection over the
// ledger, the streak and the reading list. It never mutates reward state;
// the UI triggers check-ins and awards through their own endpoints.
type DashboardHandler struct {
	db      *sqlx.DB
	ledger  *rewards.Ledger
	tracker *rewards.StreakTracker
	habits  *rewards.HabitTracker
}

func NewDashboardHandler(db *sqlx.DB, ledger *rewards.Ledger, tracker *rewards.StreakTracker, habits *rewards.HabitTracker) *DashboardHandler {
	return &DashboardHandler{db: db, ledger: ledger, tracker: tracker, habits: habits}
}

type dashboardResponse struct {
	AvailablePoints   int           `json:"available_points"`
	PointsThisWeek    int           `json:"points_this_week"`
	StreakDay         int           `json:"streak_day"`
	Streak            streakDTO     `json:"streak"`
	BooksReading      int           `json:"books_reading"`
	BooksFinished     int           `json:"books_finished"`
	FinishedThisWeek  int           `json:"finished_this_week"`
	FinishedThisMonth int           `json:"finished_this_month"`
	FinishedThisYear  int           `json:"finished_this_year"`
	HabitGoal         *habitGoalDTO `json:"habit_goal,omitempty"`
}

// Get aggregates the metrics that power the dashboard.
func (h *DashboardHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("userID").(int)

	var resp dashboardResponse

	b, err := h.ledger.Balance(r.Context(), userID)
	if err != nil {
		http.Error(w, "could not fetch balance", http.StatusInternalServerError)
		return
	}
	resp.AvailablePoints = b.Available()

	if err := h.db.QueryRowx(`
		SELECT COALESCE(SUM(amount) FILTER (WHERE amount > 0), 0)
		FROM point_transactions
		WHERE user_id = $1
		  AND created_at >= date_trunc('week', NOW())`, userID).Scan(&resp.PointsThisWeek); err != nil {
		http.Error(w, "could not fetch points", http.StatusInternalServerError)
		return
	}

	slots, day, err := h.tracker.Current(r.Context(), userID)
	if err != nil {
		http.Error(w, "could not fetch streak", http.StatusInternalServerError)
		return
	}
	resp.StreakDay = day
	resp.Streak = toStreakDTO(slots)

	// Reading-list counts in a single pass using FILTER.
	if err := h.db.QueryRowx(`
		SELECT
			COALESCE(COUNT(*) FILTER (WHERE status = 'Reading'), 0),
			COALESCE(COUNT(*) FILTER (WHERE status = 'Finished'), 0),
			COALESCE(COUNT(*) FILTER (WHERE status = 'Finished' AND updated_at >= date_trunc('week', NOW())), 0),
			COALESCE(COUNT(*) FILTER (WHERE status = 'Finished' AND date_trunc('month', updated_at) = date_trunc('month', NOW())), 0),
			COALESCE(COUNT(*) FILTER (WHERE status = 'Finished' AND date_trunc('year', updated_at) = date_trunc('year', NOW())), 0)
		FROM reading_list
		WHERE user_id = $1`, userID).Scan(
		&resp.BooksReading, &resp.BooksFinished,
		&resp.FinishedThisWeek, &resp.FinishedThisMonth, &resp.FinishedThisYear); err != nil {
		http.Error(w, "could not fetch reading stats", http.StatusInternalServerError)
		return
	}

	goal, err := h.habits.View(r.Context(), userID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		// no active goal; omit the section
	case err != nil:
		http.Error(w, "could not fetch goal", http.StatusInternalServerError)
		return
	default:
		dto := toHabitGoalDTO(goal)
		dto.History = nil
		resp.HabitGoal = &dto
	}

	writeJSON(w, resp)
}

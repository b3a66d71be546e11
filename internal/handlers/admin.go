package handlers

import (
	"database/sql"
	"net/http"

	"github.com/jmoiron/sqlx"
)

type AdminHandler struct {
	db *sqlx.DB
}

func NewAdminHandler(db *sqlx.DB) *AdminHandler { return &AdminHandler{db: db} }

type adminOverview struct {
	TotalUsers           int `json:"total_users"`
	TotalTrackedBooks    int `json:"total_tracked_books"`
	BooksFinishedWeek    int `json:"books_finished_this_week"`
	PointsAwardedWeek    int `json:"points_awarded_this_week"`
	ActiveStreaks        int `json:"active_streaks"`
	ActiveUsersThisWeek  int `json:"active_users_this_week"`
}

// mustBeAdmin checks the current user is admin
func (h *AdminHandler) mustBeAdmin(userID int) (bool, error) {
	var isAdmin bool
	if err := h.db.QueryRowx(`SELECT is_admin FROM users WHERE id=$1`, userID).Scan(&isAdmin); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, err
	}
	return isAdmin, nil
}

// Overview godoc
// @Summary Get admin overview
// @Description Returns administrative statistics and metrics (admin only)
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Success 200 {object} adminOverview
// @Failure 403 {string} string "Forbidden"
// @Failure 500 {string} string "Internal server error"
// @Router /admin/overview [get]
func (h *AdminHandler) Overview(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("userID").(int)
	if ok, err := h.mustBeAdmin(userID); err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	} else if !ok {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	var out adminOverview
	if err := h.db.QueryRowx(`SELECT COUNT(*) FROM users`).Scan(&out.TotalUsers); err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	if err := h.db.QueryRowx(`SELECT COUNT(*) FROM reading_list`).Scan(&out.TotalTrackedBooks); err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	if err := h.db.QueryRowx(`SELECT COUNT(*) FROM reading_list WHERE status='Finished' AND updated_at >= date_trunc('week', NOW())`).Scan(&out.BooksFinishedWeek); err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	if err := h.db.QueryRowx(`SELECT COALESCE(SUM(amount) FILTER (WHERE amount > 0), 0) FROM point_transactions WHERE created_at >= date_trunc('week', NOW())`).Scan(&out.PointsAwardedWeek); err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	if err := h.db.QueryRowx(`SELECT COUNT(*) FROM streak_states WHERE updated_at >= NOW() - INTERVAL '48 hours'`).Scan(&out.ActiveStreaks); err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	if err := h.db.QueryRowx(`SELECT COUNT(DISTINCT user_id) FROM point_transactions WHERE created_at >= date_trunc('week', NOW())`).Scan(&out.ActiveUsersThisWeek); err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, out)
}

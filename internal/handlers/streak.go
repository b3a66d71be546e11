package handlers

import (
	"net/http"

	"booknook/internal/rewards"
)

type StreakHandler struct {
	tracker *rewards.StreakTracker
}

func NewStreakHandler(tracker *rewards.StreakTracker) *StreakHandler {
	return &StreakHandler{tracker: tracker}
}

// CheckIn godoc
// @Summary Run a streak check-in
// @Description Evaluates the 7-day streak for the authenticated user; safe to call on every page load
// @Tags streak
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Router /streak/check-in [post]
func (h *StreakHandler) CheckIn(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("userID").(int)
	res, err := h.tracker.Check(r.Context(), userID)
	if err != nil {
		http.Error(w, "could not update streak", http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]any{
		"outcome":        res.Outcome,
		"points_awarded": res.Awarded,
		"streak":         toStreakDTO(res.Slots),
	})
}

// Get is the read-only streak projection for dashboards.
func (h *StreakHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("userID").(int)
	slots, _, err := h.tracker.Current(r.Context(), userID)
	if err != nil {
		http.Error(w, "could not fetch streak", http.StatusInternalServerError)
		return
	}
	writeJSON(w, toStreakDTO(slots))
}

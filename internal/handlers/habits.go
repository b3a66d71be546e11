package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"booknook/internal/rewards"
	"booknook/internal/store"
)

type HabitsHandler struct {
	habits *rewards.HabitTracker
}

func NewHabitsHandler(habits *rewards.HabitTracker) *HabitsHandler {
	return &HabitsHandler{habits: habits}
}

type setGoalRequest struct {
	Periodicity string `json:"periodicity"`
	Metric      string `json:"metric"`
	TargetValue int    `json:"target_value"`
}

// SetGoal replaces the user's reading goal. Progress from any previous goal
// does not carry over.
func (h *HabitsHandler) SetGoal(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("userID").(int)
	var req setGoalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	goal, err := h.habits.SetGoal(r.Context(), userID, req.Periodicity, req.Metric, req.TargetValue)
	if errors.Is(err, rewards.ErrInvalidInput) {
		http.Error(w, "invalid periodicity, metric or target", http.StatusBadRequest)
		return
	}
	if err != nil {
		http.Error(w, "could not save goal", http.StatusInternalServerError)
		return
	}
	writeJSON(w, toHabitGoalDTO(goal))
}

// GetGoal returns the active goal with percent-complete; period rollover is
// applied as of now without writing.
func (h *HabitsHandler) GetGoal(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("userID").(int)
	goal, err := h.habits.View(r.Context(), userID)
	if errors.Is(err, store.ErrNotFound) {
		http.Error(w, "no active goal", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "could not fetch goal", http.StatusInternalServerError)
		return
	}
	writeJSON(w, toHabitGoalDTO(goal))
}

type reportProgressRequest struct {
	Metric string `json:"metric"`
	Amount int    `json:"amount"`
}

// ReportProgress adds to the active goal's progress when the metric
// matches. Multiple reports in one day collapse to a single history point.
func (h *HabitsHandler) ReportProgress(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("userID").(int)
	var req reportProgressRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	goal, applied, err := h.habits.Report(r.Context(), userID, req.Metric, req.Amount)
	switch {
	case errors.Is(err, rewards.ErrInvalidInput):
		http.Error(w, "invalid metric or amount", http.StatusBadRequest)
		return
	case errors.Is(err, store.ErrNotFound):
		http.Error(w, "no active goal", http.StatusNotFound)
		return
	case err != nil:
		http.Error(w, "could not save progress", http.StatusInternalServerError)
		return
	}
	resp := toHabitGoalDTO(goal)
	writeJSON(w, map[string]any{"applied": applied, "goal": resp})
}

// DeleteGoal removes the active goal.
func (h *HabitsHandler) DeleteGoal(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("userID").(int)
	err := h.habits.ClearGoal(r.Context(), userID)
	if errors.Is(err, store.ErrNotFound) {
		http.Error(w, "no active goal", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "could not delete goal", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"booknook/internal/models"
	"booknook/internal/rewards"
)

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func writeJSONStatus(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

type entryDTO struct {
	BookID     string   `json:"book_id"`
	Title      string   `json:"title"`
	Author     string   `json:"author,omitempty"`
	PageCount  int      `json:"page_count,omitempty"`
	Status     string   `json:"status"`
	Rating     *float64 `json:"rating,omitempty"`
	ReviewText *string  `json:"review_text,omitempty"`
	Notes      *string  `json:"notes,omitempty"`
	AddedAt    string   `json:"added_at"`
	UpdatedAt  string   `json:"updated_at"`
}

func toEntryDTO(e *models.ReadingListEntry) entryDTO {
	return entryDTO{
		BookID:     e.BookID,
		Title:      e.Title,
		Author:     e.Author,
		PageCount:  e.PageCount,
		Status:     e.Status,
		Rating:     e.Rating,
		ReviewText: e.ReviewText,
		Notes:      e.Notes,
		AddedAt:    e.AddedAt.Format(time.RFC3339),
		UpdatedAt:  e.UpdatedAt.Format(time.RFC3339),
	}
}

// streakDTO flattens the slot window into date strings for the UI.
type streakDTO struct {
	Day     int       `json:"day"`
	Slots   []*string `json:"slots"`
	Awarded []bool    `json:"rewards_awarded"`
}

func toStreakDTO(slots models.StreakSlots) streakDTO {
	dto := streakDTO{
		Day:     slots.LastFilled() + 1,
		Slots:   make([]*string, len(slots.FilledAt)),
		Awarded: slots.RewardAwarded[:],
	}
	for i, t := range slots.FilledAt {
		if t != nil {
			s := t.Format(time.RFC3339)
			dto.Slots[i] = &s
		}
	}
	return dto
}

type habitGoalDTO struct {
	Periodicity     string                 `json:"periodicity"`
	Metric          string                 `json:"metric"`
	TargetValue     int                    `json:"target_value"`
	ProgressValue   int                    `json:"progress_value"`
	PercentComplete float64                `json:"percent_complete"`
	PeriodStart     string                 `json:"period_start"`
	History         []models.ProgressPoint `json:"history,omitempty"`
}

func toHabitGoalDTO(g *models.HabitGoal) habitGoalDTO {
	return habitGoalDTO{
		Periodicity:     g.Periodicity,
		Metric:          g.Metric,
		TargetValue:     g.TargetValue,
		ProgressValue:   g.ProgressValue,
		PercentComplete: rewards.PercentComplete(g),
		PeriodStart:     g.PeriodStart.Format("2006-01-02"),
		History:         g.History,
	}
}

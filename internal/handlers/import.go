package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"booknook/internal/models"
	"booknook/internal/rewards"
	"booknook/internal/services"
	"booknook/internal/store"
)

// ImportHandler batch-upserts reading history brought over from another
// service. Imported entries arrive with their award flags pre-set: a shelf
// of already-finished books earns no retroactive points.
type ImportHandler struct {
	store  store.UserStateStore
	encSvc *services.EncryptionService
}

func NewImportHandler(s store.UserStateStore, encSvc *services.EncryptionService) *ImportHandler {
	return &ImportHandler{store: s, encSvc: encSvc}
}

type importedEntry struct {
	BookID     string   `json:"book_id"`
	Title      string   `json:"title"`
	Author     string   `json:"author"`
	PageCount  int      `json:"page_count"`
	Status     string   `json:"status"`
	Rating     *float64 `json:"rating"`
	ReviewText *string  `json:"review_text"`
}

type importRequest struct {
	Entries []importedEntry `json:"entries"`
}

// ImportData godoc
// @Summary Import reading history
// @Description Upserts a batch of reading-list entries for the authenticated user without awarding points
// @Tags import
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param data body importRequest true "Entries to import"
// @Success 201 {object} map[string]interface{} "Data imported successfully"
// @Failure 400 {string} string "Bad request"
// @Failure 500 {string} string "Internal server error"
// @Router /import [post]
func (h *ImportHandler) ImportData(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("userID").(int)
	var req importRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Entries) == 0 {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	imported := 0
	skipped := 0
	for _, in := range req.Entries {
		if in.BookID == "" || in.Title == "" {
			skipped++
			continue
		}
		status := in.Status
		if status == "" {
			status = models.StatusToRead
		}
		if !validStatus(status) {
			skipped++
			continue
		}
		if in.Rating != nil && !rewards.ValidRating(*in.Rating) {
			skipped++
			continue
		}

		entry := &models.ReadingListEntry{
			UserID:     userID,
			BookID:     in.BookID,
			Title:      in.Title,
			Author:     in.Author,
			PageCount:  in.PageCount,
			Status:     status,
			Rating:     in.Rating,
			ReviewText: in.ReviewText,
			// Pre-set so imported history never triggers one-time awards.
			FinishedAward: status == models.StatusFinished,
			RatingAward:   in.Rating != nil && *in.Rating > 0,
			ReviewAward:   in.ReviewText != nil && strings.TrimSpace(*in.ReviewText) != "",
		}
		if err := h.encSvc.EncryptEntry(entry); err != nil {
			http.Error(w, "could not encrypt entry", http.StatusInternalServerError)
			return
		}
		if err := h.store.UpsertEntry(r.Context(), entry); err != nil {
			http.Error(w, "could not save entries", http.StatusInternalServerError)
			return
		}
		imported++
	}

	writeJSONStatus(w, http.StatusCreated, map[string]any{
		"imported": imported,
		"skipped":  skipped,
	})
}

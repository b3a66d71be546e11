package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"booknook/internal/models"
	"booknook/internal/rewards"
	"booknook/internal/services"
	"booknook/internal/store"
)

type BooksHandler struct {
	store  store.UserStateStore
	rules  *rewards.AwardRules
	habits *rewards.HabitTracker
	encSvc *services.EncryptionService
}

func NewBooksHandler(s store.UserStateStore, rules *rewards.AwardRules, habits *rewards.HabitTracker, encSvc *services.EncryptionService) *BooksHandler {
	return &BooksHandler{store: s, rules: rules, habits: habits, encSvc: encSvc}
}

func validStatus(s string) bool {
	return s == models.StatusToRead || s == models.StatusReading || s == models.StatusFinished
}

type addBookRequest struct {
	BookID    string `json:"book_id"`
	Title     string `json:"title"`
	Author    string `json:"author"`
	PageCount int    `json:"page_count"`
	Status    string `json:"status"`
}

// Add puts a book on the user's reading list.
func (h *BooksHandler) Add(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("userID").(int)
	var req addBookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.BookID == "" || req.Title == "" || req.PageCount < 0 {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	if req.Status == "" {
		req.Status = models.StatusToRead
	}
	if !validStatus(req.Status) {
		http.Error(w, "invalid status", http.StatusBadRequest)
		return
	}

	entry := &models.ReadingListEntry{
		UserID:    userID,
		BookID:    req.BookID,
		Title:     req.Title,
		Author:    req.Author,
		PageCount: req.PageCount,
		Status:    req.Status,
	}
	if err := h.store.UpsertEntry(r.Context(), entry); err != nil {
		http.Error(w, "could not save", http.StatusInternalServerError)
		return
	}
	writeJSONStatus(w, http.StatusCreated, toEntryDTO(entry))
}

// List returns the user's reading list, optionally filtered by ?status=.
func (h *BooksHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("userID").(int)
	status := r.URL.Query().Get("status")
	if status != "" && !validStatus(status) {
		http.Error(w, "invalid status", http.StatusBadRequest)
		return
	}
	entries, err := h.store.ListEntries(r.Context(), userID, status)
	if err != nil {
		http.Error(w, "could not fetch", http.StatusInternalServerError)
		return
	}
	out := make([]entryDTO, 0, len(entries))
	for i := range entries {
		if err := h.encSvc.DecryptEntry(&entries[i]); err != nil {
			http.Error(w, "could not decrypt entry", http.StatusInternalServerError)
			return
		}
		out = append(out, toEntryDTO(&entries[i]))
	}
	writeJSON(w, out)
}

// UpdateStatus moves an entry between statuses. The first move to Finished
// pays the finish bonus and feeds the habit goal; repeating it is a no-op.
func (h *BooksHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("userID").(int)
	bookID := chi.URLParam(r, "bookID")
	var body struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || !validStatus(body.Status) {
		http.Error(w, "invalid status", http.StatusBadRequest)
		return
	}

	entry, err := h.store.GetEntry(r.Context(), userID, bookID)
	if err != nil {
		entryError(w, err)
		return
	}
	if err := h.store.UpdateEntryStatus(r.Context(), userID, bookID, body.Status); err != nil {
		entryError(w, err)
		return
	}

	awarded, err := h.rules.OnStatusChanged(r.Context(), entry, body.Status)
	if err != nil {
		http.Error(w, "could not record award", http.StatusInternalServerError)
		return
	}
	if awarded > 0 {
		if err := h.habits.RecordFinishedBook(r.Context(), userID, entry.PageCount); err != nil {
			http.Error(w, "could not record habit progress", http.StatusInternalServerError)
			return
		}
	}
	writeJSON(w, map[string]any{"status": body.Status, "points_awarded": awarded})
}

// SubmitRating stores a half-star rating and pays the rating bonus the
// first time a nonzero rating lands on the entry.
func (h *BooksHandler) SubmitRating(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("userID").(int)
	bookID := chi.URLParam(r, "bookID")
	var body struct {
		Rating float64 `json:"rating"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || !rewards.ValidRating(body.Rating) {
		http.Error(w, "invalid rating; expected half steps in [0,5]", http.StatusBadRequest)
		return
	}

	entry, err := h.store.GetEntry(r.Context(), userID, bookID)
	if err != nil {
		entryError(w, err)
		return
	}
	if err := h.store.UpdateEntryRating(r.Context(), userID, bookID, body.Rating); err != nil {
		entryError(w, err)
		return
	}
	awarded, err := h.rules.OnRatingSubmitted(r.Context(), entry, body.Rating)
	if err != nil {
		http.Error(w, "could not record award", http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]any{"rating": body.Rating, "points_awarded": awarded})
}

// SubmitReview stores a text review (encrypted at rest) and pays the review
// bonus on the entry's first non-empty review.
func (h *BooksHandler) SubmitReview(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("userID").(int)
	bookID := chi.URLParam(r, "bookID")
	var body struct {
		ReviewText string `json:"review_text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || strings.TrimSpace(body.ReviewText) == "" {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	entry, err := h.store.GetEntry(r.Context(), userID, bookID)
	if err != nil {
		entryError(w, err)
		return
	}
	sealed, err := h.encSvc.EncryptText(body.ReviewText)
	if err != nil {
		http.Error(w, "could not encrypt review", http.StatusInternalServerError)
		return
	}
	if err := h.store.UpdateEntryReview(r.Context(), userID, bookID, sealed); err != nil {
		entryError(w, err)
		return
	}
	awarded, err := h.rules.OnReviewSubmitted(r.Context(), entry, body.ReviewText)
	if err != nil {
		http.Error(w, "could not record award", http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]any{"points_awarded": awarded})
}

// Delete removes a book from the list. Award flags go with it; points
// already earned stay on the ledger.
func (h *BooksHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("userID").(int)
	bookID := chi.URLParam(r, "bookID")
	if err := h.store.DeleteEntry(r.Context(), userID, bookID); err != nil {
		entryError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func entryError(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrNotFound) {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	http.Error(w, "could not save", http.StatusInternalServerError)
}

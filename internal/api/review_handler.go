package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/recallgrade/recallgrade/internal/domain/review"
	"github.com/recallgrade/recallgrade/internal/grader"
	"github.com/recallgrade/recallgrade/internal/service"
)

// ── Request / Response types ────────────────────────────────────────────────

type SubmitReviewRequest struct {
	Answer string `json:"answer" validate:"max=20000"`
}

type SubmitReviewResponse struct {
	ReviewID string `json:"review_id"`
	Status   string `json:"status"`
}

// RateReviewRequest carries an optional rating override: a label
// ("Again".."Easy") or its code ("1".."4").
type RateReviewRequest struct {
	Rating string `json:"rating" validate:"max=32"`
}

type ReviewResponse struct {
	ID            string                   `json:"id"`
	CardID        string                   `json:"card_id"`
	Answer        string                   `json:"answer"`
	Status        string                   `json:"status"`
	Evaluation    *grader.EvaluationResult `json:"evaluation,omitempty"`
	AppliedRating *grader.Rating           `json:"applied_rating,omitempty"`
	SubmittedAt   time.Time                `json:"submitted_at"`
	GradedAt      *time.Time               `json:"graded_at,omitempty"`
}

type RateReviewResponse struct {
	Review ReviewResponse `json:"review"`
	Card   CardResponse   `json:"card"`
}

func toReviewResponse(r *review.Review) ReviewResponse {
	resp := ReviewResponse{
		ID:          r.ID,
		CardID:      r.CardID,
		Answer:      r.Answer,
		Status:      string(r.Status),
		Evaluation:  r.Result,
		SubmittedAt: r.SubmittedAt,
		GradedAt:    r.GradedAt,
	}
	if r.AppliedRating.Valid() {
		rating := r.AppliedRating
		resp.AppliedRating = &rating
	}
	return resp
}

// ── Handlers ────────────────────────────────────────────────────────────────

// POST /cards/{cardID}/reviews
func (h *Handler) submitReview(w http.ResponseWriter, r *http.Request) {
	cardID, ok := pathID(w, r, "cardID", "card")
	if !ok {
		return
	}
	var req SubmitReviewRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	rv, err := h.grading.Submit(r.Context(), cardID, req.Answer)
	if errors.Is(err, service.ErrClosed) {
		respondError(w, http.StatusServiceUnavailable, "server is shutting down")
		return
	}
	if h.handleStoreError(w, err, "card") {
		return
	}

	respondJSON(w, http.StatusAccepted, SubmitReviewResponse{
		ReviewID: rv.ID,
		Status:   string(rv.Status),
	})
}

// GET /cards/{cardID}/reviews
func (h *Handler) listReviews(w http.ResponseWriter, r *http.Request) {
	cardID, ok := pathID(w, r, "cardID", "card")
	if !ok {
		return
	}
	if _, err := h.store.GetCard(r.Context(), cardID); h.handleStoreError(w, err, "card") {
		return
	}

	history, err := h.store.ListReviews(r.Context(), cardID)
	if h.handleStoreError(w, err, "reviews") {
		return
	}

	resp := make([]ReviewResponse, 0, len(history))
	for _, rv := range history {
		resp = append(resp, toReviewResponse(rv))
	}
	respondJSON(w, http.StatusOK, resp)
}

// GET /reviews/{reviewID}
func (h *Handler) getReview(w http.ResponseWriter, r *http.Request) {
	reviewID, ok := pathID(w, r, "reviewID", "review")
	if !ok {
		return
	}
	rv, err := h.store.GetReview(r.Context(), reviewID)
	if h.handleStoreError(w, err, "review") {
		return
	}
	respondJSON(w, http.StatusOK, toReviewResponse(rv))
}

// POST /reviews/{reviewID}/rate
func (h *Handler) rateReview(w http.ResponseWriter, r *http.Request) {
	reviewID, ok := pathID(w, r, "reviewID", "review")
	if !ok {
		return
	}
	var req RateReviewRequest
	if r.ContentLength != 0 && !h.decodeJSON(w, r, &req) {
		return
	}

	var override grader.Rating
	if s := strings.TrimSpace(req.Rating); s != "" {
		parsed, ok := grader.ParseRating(s)
		if !ok {
			respondError(w, http.StatusBadRequest, "unknown rating "+s)
			return
		}
		override = parsed
	}

	rv, c, err := h.grading.Rate(r.Context(), reviewID, override)
	if errors.Is(err, review.ErrNotGraded) || errors.Is(err, review.ErrAlreadyRated) || errors.Is(err, review.ErrStale) {
		respondError(w, http.StatusConflict, err.Error())
		return
	}
	if h.handleStoreError(w, err, "review") {
		return
	}

	respondJSON(w, http.StatusOK, RateReviewResponse{
		Review: toReviewResponse(rv),
		Card:   toCardResponse(c),
	})
}

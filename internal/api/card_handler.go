package api

import (
	"net/http"
	"time"

	"github.com/recallgrade/recallgrade/internal/domain/card"
)

// ── Request / Response types ────────────────────────────────────────────────

type CreateCardRequest struct {
	FrontHTML string `json:"front_html" validate:"required"`
	BackHTML  string `json:"back_html"`
	NoteType  int    `json:"note_type" validate:"oneof=0 1"`
}

type ScheduleResponse struct {
	IntervalDays int       `json:"interval_days"`
	Ease         float64   `json:"ease"`
	Reps         int       `json:"reps"`
	Lapses       int       `json:"lapses"`
	Due          time.Time `json:"due"`
}

type CardResponse struct {
	ID        string           `json:"id"`
	FrontHTML string           `json:"front_html"`
	BackHTML  string           `json:"back_html"`
	NoteType  int              `json:"note_type"`
	Question  string           `json:"question"`
	IsCloze   bool             `json:"is_cloze"`
	Schedule  ScheduleResponse `json:"schedule"`
	CreatedAt time.Time        `json:"created_at"`
}

func toCardResponse(c *card.Card) CardResponse {
	return CardResponse{
		ID:        c.ID,
		FrontHTML: c.FrontHTML,
		BackHTML:  c.BackHTML,
		NoteType:  int(c.NoteType),
		Question:  c.Question(),
		IsCloze:   c.IsCloze(),
		Schedule: ScheduleResponse{
			IntervalDays: c.Schedule.IntervalDays,
			Ease:         c.Schedule.Ease,
			Reps:         c.Schedule.Reps,
			Lapses:       c.Schedule.Lapses,
			Due:          c.Schedule.Due,
		},
		CreatedAt: c.CreatedAt,
	}
}

// ── Handlers ────────────────────────────────────────────────────────────────

// POST /cards
func (h *Handler) createCard(w http.ResponseWriter, r *http.Request) {
	var req CreateCardRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	c, err := card.New(req.FrontHTML, req.BackHTML, card.NoteType(req.NoteType), time.Now())
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.store.SaveCard(r.Context(), c); err != nil {
		h.logger.Error("failed to save card", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to save card")
		return
	}

	respondJSON(w, http.StatusCreated, toCardResponse(c))
}

// GET /cards/{cardID}
func (h *Handler) getCard(w http.ResponseWriter, r *http.Request) {
	cardID, ok := pathID(w, r, "cardID", "card")
	if !ok {
		return
	}
	c, err := h.store.GetCard(r.Context(), cardID)
	if h.handleStoreError(w, err, "card") {
		return
	}
	respondJSON(w, http.StatusOK, toCardResponse(c))
}

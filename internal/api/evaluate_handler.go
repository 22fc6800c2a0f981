package api

import (
	"net/http"

	"github.com/recallgrade/recallgrade/internal/domain/card"
	"github.com/recallgrade/recallgrade/internal/grader"
)

type EvaluateRequest struct {
	Question        string `json:"question" validate:"required"`
	ReferenceAnswer string `json:"reference_answer"`
	UserAnswer      string `json:"user_answer"`
	IsCloze         bool   `json:"is_cloze"`
}

// POST /evaluate
//
// Grades synchronously. Grading failures still answer 200 with a fail-safe
// result; the failure field says which step broke.
func (h *Handler) evaluate(w http.ResponseWriter, r *http.Request) {
	var req EvaluateRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	question := card.StripHTML(req.Question)
	result := h.evaluator.Evaluate(r.Context(), grader.GradingRequest{
		Question:        question,
		ReferenceAnswer: card.StripHTML(req.ReferenceAnswer),
		UserAnswer:      req.UserAnswer,
		IsCloze:         req.IsCloze || grader.DetectCloze(int(card.NoteTypeBasic), question),
	})

	respondJSON(w, http.StatusOK, result)
}

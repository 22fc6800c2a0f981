package review

import (
	"errors"
	"time"

	"github.com/recallgrade/recallgrade/internal/grader"
	"github.com/recallgrade/recallgrade/internal/id"
)

type Status string

const (
	StatusPending Status = "pending" // grading in flight
	StatusGraded  Status = "graded"  // evaluation available, rating not applied
	StatusStale   Status = "stale"   // superseded by a newer attempt on the card
	StatusRated   Status = "rated"   // rating applied to the card schedule
)

var (
	ErrNotGraded    = errors.New("review has not been graded")
	ErrAlreadyRated = errors.New("review already rated")
	ErrStale        = errors.New("review was superseded by a newer attempt")
)

// Review is one attempt at answering a card. Its ID is the staleness key:
// a grading result is only accepted while the review is still the card's
// current attempt.
type Review struct {
	ID            string
	CardID        string
	Answer        string
	Status        Status
	Result        *grader.EvaluationResult
	AppliedRating grader.Rating // zero until rated
	SubmittedAt   time.Time
	GradedAt      *time.Time
}

// New creates a pending review attempt.
func New(cardID, answer string, now time.Time) *Review {
	return &Review{
		ID:          id.GenerateID(),
		CardID:      cardID,
		Answer:      answer,
		Status:      StatusPending,
		SubmittedAt: now,
	}
}

// Complete records the evaluation for a pending review.
func (r *Review) Complete(result grader.EvaluationResult, now time.Time) {
	r.Result = &result
	r.Status = StatusGraded
	r.GradedAt = &now
}

// MarkStale discards the review's outcome.
func (r *Review) MarkStale() {
	r.Status = StatusStale
}

// Rate picks the rating to apply: the override when it is valid, otherwise
// the evaluation's suggested rating.
func (r *Review) Rate(override grader.Rating) (grader.Rating, error) {
	switch r.Status {
	case StatusPending:
		return 0, ErrNotGraded
	case StatusStale:
		return 0, ErrStale
	case StatusRated:
		return 0, ErrAlreadyRated
	}

	rating := r.Result.SuggestedRating
	if override.Valid() {
		rating = override
	}
	r.AppliedRating = rating
	r.Status = StatusRated
	return rating, nil
}

package store

import (
	"context"
	"errors"

	"github.com/recallgrade/recallgrade/internal/domain/card"
	"github.com/recallgrade/recallgrade/internal/domain/review"
)

var (
	ErrNotFound = errors.New("not found")
)

// Store is the review host's persistence: cards with their schedules and
// the review-history log.
type Store interface {
	SaveCard(ctx context.Context, c *card.Card) error
	GetCard(ctx context.Context, id string) (*card.Card, error)

	SaveReview(ctx context.Context, r *review.Review) error
	GetReview(ctx context.Context, id string) (*review.Review, error)
	UpdateReview(ctx context.Context, r *review.Review) error
	ListReviews(ctx context.Context, cardID string) ([]*review.Review, error)

	// RateReview persists a rated review and the card's new schedule atomically.
	RateReview(ctx context.Context, r *review.Review, cardID string, s card.Schedule) error
}

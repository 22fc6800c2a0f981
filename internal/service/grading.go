// internal/service/grading.go
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/recallgrade/recallgrade/internal/domain/card"
	"github.com/recallgrade/recallgrade/internal/domain/review"
	"github.com/recallgrade/recallgrade/internal/grader"
	"github.com/recallgrade/recallgrade/internal/observability"
	"github.com/recallgrade/recallgrade/internal/store"
	"github.com/recallgrade/recallgrade/internal/worker"
)

// ErrClosed is returned by Submit once the service has been closed.
var ErrClosed = errors.New("grading service is closed")

// Evaluator grades a single answer. *grader.Grader satisfies it.
type Evaluator interface {
	Evaluate(ctx context.Context, req grader.GradingRequest) grader.EvaluationResult
}

type outcome struct {
	review *review.Review
	result grader.EvaluationResult
}

// GradingService runs review attempts on a bounded worker pool and persists
// their evaluations. A result is only accepted while its review is still the
// card's current attempt; otherwise the review is marked stale.
type GradingService struct {
	store     store.Store
	evaluator Evaluator
	logger    *slog.Logger
	pool      *worker.Pool[outcome]
	now       func() time.Time

	mu      sync.Mutex
	current map[string]string // cardID → reviewID of the latest attempt

	// closeMu is held for reading by Submit and for writing by Close, so
	// Close waits for in-flight submissions and no job reaches a closed pool.
	closeMu sync.RWMutex
	closed  bool

	pending   sync.WaitGroup
	collected chan struct{}
}

// NewGradingService creates a GradingService with the given number of
// grading workers.
func NewGradingService(s store.Store, e Evaluator, logger *slog.Logger, workers int) *GradingService {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	gs := &GradingService{
		store:     s,
		evaluator: e,
		logger:    logger,
		pool:      worker.NewPool[outcome](workers, 64),
		now:       time.Now,
		current:   make(map[string]string),
		collected: make(chan struct{}),
	}
	go gs.collect()
	return gs
}

// Submit records a new review attempt for the card and queues it for grading.
// The returned review is pending; any earlier attempt still in flight becomes
// stale once its result arrives.
func (gs *GradingService) Submit(ctx context.Context, cardID, answer string) (*review.Review, error) {
	gs.closeMu.RLock()
	defer gs.closeMu.RUnlock()
	if gs.closed {
		return nil, ErrClosed
	}

	c, err := gs.store.GetCard(ctx, cardID)
	if err != nil {
		return nil, err
	}

	r := review.New(c.ID, answer, gs.now())
	if err := gs.store.SaveReview(ctx, r); err != nil {
		return nil, fmt.Errorf("saving review: %w", err)
	}

	gs.mu.Lock()
	gs.current[c.ID] = r.ID
	gs.mu.Unlock()

	req := c.GradingRequest(answer)
	job := *r
	gs.pending.Add(1)
	gs.pool.Submit(r.ID, func() outcome {
		// grading outlives the HTTP request that submitted it
		return outcome{
			review: &job,
			result: gs.evaluator.Evaluate(context.Background(), req),
		}
	})

	gs.logger.Info("review submitted", "card_id", c.ID, "review_id", r.ID, "cloze", req.IsCloze)
	return r, nil
}

func (gs *GradingService) collect() {
	defer close(gs.collected)
	for res := range gs.pool.Results() {
		gs.finish(res.Output)
		gs.pending.Done()
	}
}

func (gs *GradingService) finish(o outcome) {
	ctx := context.Background()
	r := o.review

	gs.mu.Lock()
	defer gs.mu.Unlock()

	if gs.current[r.CardID] != r.ID {
		r.MarkStale()
		observability.StaleResults().Inc()
		gs.logger.Info("discarding stale grading result",
			"card_id", r.CardID,
			"review_id", r.ID,
		)
	} else {
		r.Complete(o.result, gs.now())
	}

	if err := gs.store.UpdateReview(ctx, r); err != nil {
		gs.logger.Error("failed to save review result",
			"review_id", r.ID,
			"error", err,
		)
	}
}

// Rate applies the override rating, or the evaluation's suggested rating when
// the override is zero or invalid, to the card's schedule.
func (gs *GradingService) Rate(ctx context.Context, reviewID string, override grader.Rating) (*review.Review, *card.Card, error) {
	r, err := gs.store.GetReview(ctx, reviewID)
	if err != nil {
		return nil, nil, err
	}
	c, err := gs.store.GetCard(ctx, r.CardID)
	if err != nil {
		return nil, nil, err
	}

	if r.Status == review.StatusGraded {
		latest, err := gs.isLatest(ctx, r)
		if err != nil {
			return nil, nil, err
		}
		if !latest {
			r.MarkStale()
			if err := gs.store.UpdateReview(ctx, r); err != nil {
				return nil, nil, fmt.Errorf("marking review stale: %w", err)
			}
			return nil, nil, review.ErrStale
		}
	}

	rating, err := r.Rate(override)
	if err != nil {
		return nil, nil, err
	}
	c.Schedule = c.Schedule.Apply(rating, gs.now())

	if err := gs.store.RateReview(ctx, r, c.ID, c.Schedule); err != nil {
		return nil, nil, fmt.Errorf("saving rating: %w", err)
	}

	gs.logger.Info("review rated",
		"review_id", r.ID,
		"card_id", c.ID,
		"rating", rating.String(),
		"interval_days", c.Schedule.IntervalDays,
	)
	return r, c, nil
}

func (gs *GradingService) isLatest(ctx context.Context, r *review.Review) (bool, error) {
	gs.mu.Lock()
	currentID, ok := gs.current[r.CardID]
	gs.mu.Unlock()
	if ok {
		return currentID == r.ID, nil
	}

	// no attempt since startup: fall back to the stored history
	history, err := gs.store.ListReviews(ctx, r.CardID)
	if err != nil {
		return false, err
	}
	if len(history) == 0 {
		return false, errors.New("review missing from card history")
	}
	return history[len(history)-1].ID == r.ID, nil
}

// Wait blocks until every submitted attempt has been graded and persisted.
func (gs *GradingService) Wait() {
	gs.pending.Wait()
}

// Close drains queued attempts and stops the workers.
func (gs *GradingService) Close() {
	gs.closeMu.Lock()
	gs.closed = true
	gs.closeMu.Unlock()

	gs.pool.Close()
	<-gs.collected
}

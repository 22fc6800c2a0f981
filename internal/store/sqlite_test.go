package store_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recallgrade/recallgrade/internal/domain/card"
	"github.com/recallgrade/recallgrade/internal/domain/review"
	"github.com/recallgrade/recallgrade/internal/grader"
	"github.com/recallgrade/recallgrade/internal/store"
)

func newStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	s, err := store.NewSQLite(filepath.Join(t.TempDir(), "store.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func newCard(t *testing.T, s *store.SQLiteStore, now time.Time) *card.Card {
	t.Helper()
	c, err := card.New("The {{c1::mitochondria}} is [...]", "powerhouse of the cell", card.NoteTypeCloze, now)
	require.NoError(t, err)
	require.NoError(t, s.SaveCard(context.Background(), c))
	return c
}

func TestCardRoundTrip(t *testing.T) {
	s := newStore(t)
	now := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	c := newCard(t, s, now)

	got, err := s.GetCard(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Equal(t, c.FrontHTML, got.FrontHTML)
	assert.Equal(t, c.BackHTML, got.BackHTML)
	assert.Equal(t, card.NoteTypeCloze, got.NoteType)
	assert.Equal(t, c.Schedule.Ease, got.Schedule.Ease)
	assert.True(t, got.Schedule.Due.Equal(now))
	assert.True(t, got.CreatedAt.Equal(now))
}

func TestGetCard_NotFound(t *testing.T) {
	s := newStore(t)

	_, err := s.GetCard(context.Background(), "nope")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestReviewLifecycle(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	c := newCard(t, s, now)

	r := review.New(c.ID, "energy factory", now)
	require.NoError(t, s.SaveReview(ctx, r))

	pending, err := s.GetReview(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, review.StatusPending, pending.Status)
	assert.Nil(t, pending.Result)
	assert.Nil(t, pending.GradedAt)

	r.Complete(grader.EvaluationResult{
		Verdict:         grader.PartiallyCorrect,
		SuggestedRating: grader.Hard,
		Feedback:        []string{"Close, but name the organelle's role.", "Think ATP."},
		RawResponse:     `{"verdict":"Partially Correct"}`,
	}, now.Add(time.Second))
	require.NoError(t, s.UpdateReview(ctx, r))

	graded, err := s.GetReview(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, review.StatusGraded, graded.Status)
	require.NotNil(t, graded.Result)
	assert.Equal(t, grader.PartiallyCorrect, graded.Result.Verdict)
	assert.Equal(t, grader.Hard, graded.Result.SuggestedRating)
	assert.Equal(t, r.Result.Feedback, graded.Result.Feedback)
	assert.Equal(t, r.Result.RawResponse, graded.Result.RawResponse)
	require.NotNil(t, graded.GradedAt)

	rating, err := graded.Rate(0)
	require.NoError(t, err)
	next := c.Schedule.Apply(rating, now)
	require.NoError(t, s.RateReview(ctx, graded, c.ID, next))

	rated, err := s.GetReview(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, review.StatusRated, rated.Status)
	assert.Equal(t, grader.Hard, rated.AppliedRating)

	updated, err := s.GetCard(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, next.IntervalDays, updated.Schedule.IntervalDays)
	assert.Equal(t, next.Reps, updated.Schedule.Reps)
	assert.True(t, updated.Schedule.Due.Equal(next.Due))
}

func TestFailSafeResultRoundTrip(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	now := time.Now()
	c := newCard(t, s, now)

	r := review.New(c.ID, "?", now)
	require.NoError(t, s.SaveReview(ctx, r))
	r.Complete(grader.MalformedResult("not json"), now)
	require.NoError(t, s.UpdateReview(ctx, r))

	got, err := s.GetReview(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, grader.FailureMalformedReply, got.Result.Failure)
	assert.Equal(t, grader.Incorrect, got.Result.Verdict)
	assert.Equal(t, grader.Again, got.Result.SuggestedRating)
}

func TestListReviews_Ordered(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	now := time.Now()
	c := newCard(t, s, now)

	first := review.New(c.ID, "one", now)
	second := review.New(c.ID, "two", now.Add(time.Minute))
	require.NoError(t, s.SaveReview(ctx, first))
	require.NoError(t, s.SaveReview(ctx, second))

	history, err := s.ListReviews(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, first.ID, history[0].ID)
	assert.Equal(t, second.ID, history[1].ID)

	empty, err := s.ListReviews(ctx, "other")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestUpdateReview_NotFound(t *testing.T) {
	s := newStore(t)

	r := review.New("card", "answer", time.Now())
	assert.ErrorIs(t, s.UpdateReview(context.Background(), r), store.ErrNotFound)
}

// Package grader turns a learner's answer to a flashcard into a structured
// EvaluationResult by prompting an LLM backend and normalizing its reply.
package grader

import (
	"context"
	"io"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/recallgrade/recallgrade/internal/observability"
)

// Grader runs the grading pipeline against one backend:
// BuildPrompt → Backend.Call → Normalize.
type Grader struct {
	backend    Backend
	normalizer *Normalizer
	logger     *slog.Logger
	tracer     trace.Tracer
}

// Option customizes a Grader.
type Option func(*Grader)

// WithLogger sets the logger used for attempts and normalization warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Grader) {
		g.logger = logger
	}
}

// WithTracer overrides the tracer taken from the global provider.
func WithTracer(tracer trace.Tracer) Option {
	return func(g *Grader) {
		g.tracer = tracer
	}
}

// NewGrader creates a Grader for backend.
func NewGrader(backend Backend, opts ...Option) *Grader {
	g := &Grader{
		backend: backend,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		tracer:  otel.Tracer("github.com/recallgrade/recallgrade/internal/grader"),
	}
	for _, opt := range opts {
		opt(g)
	}
	g.normalizer = NewNormalizer(g.logger)
	return g
}

// Backend returns the backend this Grader calls.
func (g *Grader) Backend() Backend {
	return g.backend
}

// Evaluate grades one answer. It never returns an error: every failure is
// folded into a fail-safe result (Incorrect / Again) whose feedback explains
// what went wrong. It makes exactly one backend call and does not retry.
func (g *Grader) Evaluate(ctx context.Context, req GradingRequest) EvaluationResult {
	prompt := BuildPrompt(req)

	ctx, span := g.tracer.Start(ctx, "grader.backend_call", trace.WithAttributes(
		attribute.String("grader.backend", g.backend.Name()),
		attribute.Bool("grader.cloze", req.IsCloze),
	))
	start := time.Now()
	raw, err := g.backend.Call(ctx, prompt)
	observability.BackendLatency().WithLabelValues(g.backend.Name()).Observe(time.Since(start).Seconds())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()

	var result EvaluationResult
	if err != nil {
		result = ErrorResult(err)
		g.logger.Error("grading backend error",
			"backend", g.backend.Name(),
			"failure", string(result.Failure),
			"error", err,
		)
	} else {
		result = g.normalizer.Normalize(raw)
	}

	observability.Evaluations().WithLabelValues(
		g.backend.Name(), result.Verdict.String(), string(result.Failure),
	).Inc()

	g.logger.Info("answer graded",
		"backend", g.backend.Name(),
		"verdict", result.Verdict.String(),
		"suggested_rating", result.SuggestedRating.String(),
		"failure", string(result.Failure),
		"duration", time.Since(start),
	)
	return result
}

package grader_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recallgrade/recallgrade/internal/grader"
)

// stubBackend returns a canned reply or error and records the prompt.
type stubBackend struct {
	reply  string
	err    error
	calls  int
	prompt grader.Prompt
}

func (s *stubBackend) Name() string { return "stub" }

func (s *stubBackend) Call(_ context.Context, p grader.Prompt) (string, error) {
	s.calls++
	s.prompt = p
	return s.reply, s.err
}

var sampleRequest = grader.GradingRequest{
	Question:        "What does a mutex protect?",
	ReferenceAnswer: "Shared state from concurrent access",
	UserAnswer:      "It stops two goroutines touching the same data at once",
}

func TestGrader_Success(t *testing.T) {
	backend := &stubBackend{reply: `{"verdict":"Correct","suggested_rating":"Easy","feedback":"Spot on.","memory_tip":"Mutex = mutual exclusion."}`}
	g := grader.NewGrader(backend)

	got := g.Evaluate(context.Background(), sampleRequest)

	assert.Equal(t, 1, backend.calls)
	assert.Equal(t, grader.Correct, got.Verdict)
	assert.Equal(t, grader.Easy, got.SuggestedRating)
	assert.Equal(t, []string{"Spot on.", "Mutex = mutual exclusion."}, got.Feedback)
	assert.Equal(t, backend.reply, got.RawResponse)
	assert.False(t, got.Failed())
	assert.Contains(t, backend.prompt.User, sampleRequest.UserAnswer)
}

func TestGrader_ClozeFlagReachesPrompt(t *testing.T) {
	backend := &stubBackend{reply: `{}`}
	req := sampleRequest
	req.IsCloze = true

	grader.NewGrader(backend).Evaluate(context.Background(), req)
	assert.Contains(t, backend.prompt.System, "This is a cloze card.")
}

func TestGrader_FailSafes(t *testing.T) {
	tests := []struct {
		name     string
		backend  *stubBackend
		failure  grader.FailureKind
		raw      string
		feedback string
	}{
		{
			name:     "missing credential",
			backend:  &stubBackend{err: &grader.GradeError{Kind: grader.FailureMissingCredential, Reason: "GEMINI_API_KEY is not set", Wrapped: grader.ErrMissingCredential}},
			failure:  grader.FailureMissingCredential,
			feedback: "GEMINI_API_KEY",
		},
		{
			name:     "transport",
			backend:  &stubBackend{err: &grader.GradeError{Kind: grader.FailureTransport, Reason: "LLM returned status 503", Body: "unavailable"}},
			failure:  grader.FailureTransport,
			raw:      "unavailable",
			feedback: "AI Error: grading failed: LLM returned status 503",
		},
		{
			name:     "plain error",
			backend:  &stubBackend{err: errors.New("dial tcp: connection refused")},
			failure:  grader.FailureTransport,
			feedback: "connection refused",
		},
		{
			name:     "missing expected field",
			backend:  &stubBackend{err: &grader.GradeError{Kind: grader.FailureMissingExpectedField, Reason: "response missing expected field response", Body: `{"done":true}`}},
			failure:  grader.FailureMissingExpectedField,
			raw:      `{"done":true}`,
			feedback: "missing expected field",
		},
		{
			name:     "malformed reply",
			backend:  &stubBackend{reply: "I think it is fine"},
			failure:  grader.FailureMalformedReply,
			raw:      "I think it is fine",
			feedback: "Could not parse AI response.",
		},
		{
			name:     "format error",
			backend:  &stubBackend{reply: `["Correct"]`},
			failure:  grader.FailureFormat,
			raw:      `["Correct"]`,
			feedback: "AI response format error",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := grader.NewGrader(tt.backend).Evaluate(context.Background(), sampleRequest)

			assert.Equal(t, 1, tt.backend.calls, "exactly one call, no retries")
			assert.Equal(t, tt.failure, got.Failure)
			assert.Equal(t, grader.Incorrect, got.Verdict)
			assert.Equal(t, grader.Again, got.SuggestedRating)
			assert.Equal(t, tt.raw, got.RawResponse)
			require.Len(t, got.Feedback, 2)
			assert.Contains(t, got.Feedback[0], tt.feedback)
			for _, line := range got.Feedback {
				assert.NotEmpty(t, strings.TrimSpace(line))
			}
		})
	}
}

func TestGrader_MissingCredentialShortCircuitsNetwork(t *testing.T) {
	t.Setenv(grader.DefaultGeminiKeyEnvVar, "")
	rec := &recorder{reply: geminiEnvelope(gradeReply)}
	srv := httptest.NewServer(rec)
	defer srv.Close()

	g := grader.NewGrader(grader.NewGeminiBackend(grader.GeminiConfig{
		URL: srv.URL + "/{model}?key={api_key}",
	}))
	got := g.Evaluate(context.Background(), sampleRequest)

	assert.Zero(t, rec.calls.Load())
	assert.Equal(t, grader.FailureMissingCredential, got.Failure)
	assert.Equal(t, grader.Incorrect, got.Verdict)
	assert.Equal(t, grader.Again, got.SuggestedRating)
	assert.Empty(t, got.RawResponse)
	assert.Contains(t, got.Feedback[0], grader.DefaultGeminiKeyEnvVar)
}

func TestGrader_EndToEndOllama(t *testing.T) {
	rec := &recorder{reply: `{"response":"{\"verdict\":\"borderline\",\"suggested_rating\":2,\"key_fix\":\"Name the shared state.\"}","done":true}`}
	srv := httptest.NewServer(rec)
	defer srv.Close()

	g := grader.NewGrader(grader.NewOllamaBackend(grader.OllamaConfig{URL: srv.URL + "/api/generate"}))
	got := g.Evaluate(context.Background(), sampleRequest)

	assert.Equal(t, grader.PartiallyCorrect, got.Verdict)
	assert.Equal(t, grader.Hard, got.SuggestedRating)
	assert.Equal(t, []string{"Name the shared state.", "No memory tip provided."}, got.Feedback)
	assert.Equal(t, `{"verdict":"borderline","suggested_rating":2,"key_fix":"Name the shared state."}`, got.RawResponse)
}

func TestEvaluationResult_JSON(t *testing.T) {
	r := grader.Normalize(`{"verdict":"Partially Correct","suggested_rating":"Hard","feedback":"Close."}`)
	data, err := json.Marshal(r)
	require.NoError(t, err)
	assert.JSONEq(t, `{"verdict":"Partially Correct","suggested_rating":"Hard","feedback":["Close."],"raw_response":"{\"verdict\":\"Partially Correct\",\"suggested_rating\":\"Hard\",\"feedback\":\"Close.\"}"}`, string(data))
}

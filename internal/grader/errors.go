package grader

import (
	"errors"
	"fmt"
)

// ErrMissingCredential is returned by a backend that needs an API key
// and was constructed without one.
var ErrMissingCredential = errors.New("missing credential")

// GradeError is returned by backends so the pipeline can tell
// "the model was unreachable" apart from "the model replied with something odd."
type GradeError struct {
	Kind    FailureKind
	Reason  string
	Body    string // reply bytes received before the failure, if any
	Wrapped error
}

func (e *GradeError) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("grading failed: %s: %v", e.Reason, e.Wrapped)
	}
	return fmt.Sprintf("grading failed: %s", e.Reason)
}

func (e *GradeError) Unwrap() error {
	return e.Wrapped
}

func transportError(reason string, body []byte, err error) *GradeError {
	return &GradeError{Kind: FailureTransport, Reason: reason, Body: string(body), Wrapped: err}
}

func missingFieldError(field string, body []byte) *GradeError {
	return &GradeError{
		Kind:   FailureMissingExpectedField,
		Reason: fmt.Sprintf("response missing expected field %s", field),
		Body:   string(body),
	}
}

func missingCredentialError(envVar string) *GradeError {
	return &GradeError{
		Kind:    FailureMissingCredential,
		Reason:  fmt.Sprintf("%s is not set", envVar),
		Wrapped: ErrMissingCredential,
	}
}

// ============================================================================
// Fail-safe results
// ============================================================================

const (
	retryTip      = "Retry in a moment or check your connection."
	simplifyTip   = "Try again or simplify your answer for clarity."
	malformedText = "Could not parse AI response."
)

func failSafe(kind FailureKind, raw string, feedback ...string) EvaluationResult {
	return EvaluationResult{
		Verdict:         Incorrect,
		SuggestedRating: Again,
		Feedback:        feedback,
		RawResponse:     raw,
		Failure:         kind,
	}
}

// MalformedResult is the fail-safe for a reply that is not JSON at all.
func MalformedResult(raw string) EvaluationResult {
	return failSafe(FailureMalformedReply, raw, malformedText, simplifyTip)
}

// FormatErrorResult is the fail-safe for JSON of an unexpected shape.
func FormatErrorResult(raw string, detail string) EvaluationResult {
	return failSafe(FailureFormat, raw, "AI response format error: "+detail, simplifyTip)
}

// ErrorResult converts a backend error into its fail-safe result.
// Any reply body carried by a *GradeError is kept as the raw response.
func ErrorResult(err error) EvaluationResult {
	var ge *GradeError
	if !errors.As(err, &ge) {
		return failSafe(FailureTransport, "", "AI Error: "+err.Error(), retryTip)
	}

	switch ge.Kind {
	case FailureMissingCredential:
		return failSafe(ge.Kind, "",
			fmt.Sprintf("Missing credential: %s. Set it in your shell or .env file.", ge.Reason),
			"Add the credential to your environment and retry.",
		)
	case FailureMissingExpectedField:
		return failSafe(ge.Kind, ge.Body, "AI Error: "+ge.Error(), retryTip)
	default:
		return failSafe(FailureTransport, ge.Body, "AI Error: "+ge.Error(), retryTip)
	}
}

package grader

import (
	"encoding/json"
	"fmt"
)

// Verdict is the grader's correctness judgment of an answer.
type Verdict int

const (
	Incorrect Verdict = iota
	PartiallyCorrect
	Correct
)

func (v Verdict) String() string {
	switch v {
	case Correct:
		return "Correct"
	case PartiallyCorrect:
		return "Partially Correct"
	default:
		return "Incorrect"
	}
}

func (v Verdict) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.String())
}

func (v *Verdict) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, ok := ParseVerdict(s)
	if !ok {
		return fmt.Errorf("unknown verdict %q", s)
	}
	*v = parsed
	return nil
}

// Rating is the four-point spaced-repetition difficulty signal.
// The numeric values are the canonical codes a model may reply with.
type Rating int

const (
	Again Rating = iota + 1
	Hard
	Good
	Easy
)

func (r Rating) String() string {
	switch r {
	case Again:
		return "Again"
	case Hard:
		return "Hard"
	case Good:
		return "Good"
	case Easy:
		return "Easy"
	default:
		return fmt.Sprintf("Rating(%d)", int(r))
	}
}

// Valid reports whether r is one of the four ratings.
func (r Rating) Valid() bool {
	return r >= Again && r <= Easy
}

func (r Rating) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.String())
}

func (r *Rating) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, ok := ParseRating(s)
	if !ok {
		return fmt.Errorf("unknown rating %q", s)
	}
	*r = parsed
	return nil
}

// FailureKind names the pipeline step that could not complete.
// The zero value means the evaluation succeeded.
type FailureKind string

const (
	FailureNone                 FailureKind = ""
	FailureMissingCredential    FailureKind = "missing_credential"
	FailureTransport            FailureKind = "transport"
	FailureMissingExpectedField FailureKind = "missing_expected_field"
	FailureMalformedReply       FailureKind = "malformed_reply"
	FailureFormat               FailureKind = "format_error"
)

// EvaluationResult is the canonical outcome of grading one answer.
type EvaluationResult struct {
	Verdict         Verdict     `json:"verdict"`
	SuggestedRating Rating      `json:"suggested_rating"`
	Feedback        []string    `json:"feedback"`
	RawResponse     string      `json:"raw_response"`
	Failure         FailureKind `json:"failure,omitempty"`
}

// Failed reports whether the result is a fail-safe rather than a real grade.
func (r EvaluationResult) Failed() bool {
	return r.Failure != FailureNone
}

// GradingRequest carries the per-call inputs of one grading attempt.
// Question and reference text must already be stripped of markup.
type GradingRequest struct {
	Question        string
	ReferenceAnswer string
	UserAnswer      string
	IsCloze         bool
}

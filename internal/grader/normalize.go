package grader

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strings"

	"github.com/recallgrade/recallgrade/internal/observability"
)

const (
	noKeyFix     = "No key fix provided."
	noMemoryTip  = "No memory tip provided."
	maxLoggedRaw = 500
)

// Normalizer converts a model's raw reply into an EvaluationResult.
// The zero value is not usable; use NewNormalizer.
type Normalizer struct {
	logger *slog.Logger
}

// NewNormalizer creates a Normalizer that reports schema drift to logger.
func NewNormalizer(logger *slog.Logger) *Normalizer {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Normalizer{logger: logger}
}

var defaultNormalizer = NewNormalizer(nil)

// Normalize parses raw with a Normalizer that does not log.
func Normalize(raw string) EvaluationResult {
	return defaultNormalizer.Normalize(raw)
}

// Normalize maps any reply text to a valid EvaluationResult. It never fails:
// text that is not JSON yields the malformed fail-safe, JSON of the wrong
// shape yields the format-error fail-safe, and drifted field values are
// coerced to neutral defaults.
func (n *Normalizer) Normalize(raw string) EvaluationResult {
	value, ok := decodeReply(raw)
	if !ok {
		n.logger.Warn("malformed grader reply", "raw", truncate(raw, maxLoggedRaw))
		return MalformedResult(raw)
	}

	obj, ok := value.(map[string]any)
	if !ok {
		return FormatErrorResult(raw, fmt.Sprintf("expected a JSON object, got %s", jsonType(value)))
	}

	feedback, err := feedbackFrom(obj)
	if err != nil {
		n.logger.Warn("grader reply format error", "error", err)
		return FormatErrorResult(raw, err.Error())
	}

	if err := replySchema.Validate(value); err != nil {
		observability.SchemaDrift().Inc()
		n.logger.Info("grader reply drifted from schema", "error", err)
	}

	return EvaluationResult{
		Verdict:         verdictFrom(obj["verdict"]),
		SuggestedRating: ratingFrom(obj["suggested_rating"]),
		Feedback:        feedback,
		RawResponse:     raw,
	}
}

// ============================================================================
// Decoding
// ============================================================================

// decodeReply decodes the reply as exactly one JSON value. Code fences are
// stripped first; if the text still does not decode, the outermost balanced
// object found in it is tried.
func decodeReply(raw string) (any, bool) {
	text := stripCodeFence(raw)
	if v, ok := decodeSingle(text); ok {
		return v, true
	}
	if obj := extractJSON(text); obj != "" {
		return decodeSingle(obj)
	}
	return nil, false
}

func decodeSingle(text string) (any, bool) {
	if strings.TrimSpace(text) == "" {
		return nil, false
	}
	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, false
	}
	// Trailing data means the text was more than one value.
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, false
	}
	return v, true
}

// stripCodeFence removes a surrounding ```json ... ``` block.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	start := 3
	if nl := strings.Index(s[start:], "\n"); nl != -1 {
		start += nl + 1
	}
	body := s[start:]
	if end := strings.LastIndex(body, "```"); end != -1 {
		body = body[:end]
	}
	return strings.TrimSpace(body)
}

// extractJSON finds the outermost JSON object in a string.
// It handles nested braces correctly and skips braces inside quoted strings.
func extractJSON(s string) string {
	start := -1
	depth := 0
	inString := false
	escaped := false

	for i, ch := range s {
		if escaped {
			escaped = false
			continue
		}
		if ch == '\\' && inString {
			escaped = true
			continue
		}
		if ch == '"' {
			inString = !inString
			continue
		}
		if inString {
			continue
		}

		if ch == '{' {
			if depth == 0 {
				start = i
			}
			depth++
		} else if ch == '}' && depth > 0 {
			depth--
			if depth == 0 && start != -1 {
				return s[start : i+1]
			}
		}
	}
	return ""
}

// ============================================================================
// Field coercion
// ============================================================================

var verdictVocabulary = map[string]Verdict{
	// legacy vocabulary
	"pass":       Correct,
	"borderline": PartiallyCorrect,
	"fail":       Incorrect,

	"correct":          Correct,
	"partiallycorrect": PartiallyCorrect,
	"incorrect":        Incorrect,
}

// ParseVerdict accepts both the legacy (pass/borderline/fail) and the current
// (Correct/Partially Correct/Incorrect) vocabularies, ignoring case, spaces,
// underscores and hyphens.
func ParseVerdict(s string) (Verdict, bool) {
	v, ok := verdictVocabulary[vocabKey(s)]
	return v, ok
}

func vocabKey(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '_', '-', '\t':
			return -1
		}
		return r
	}, strings.ToLower(strings.TrimSpace(s)))
}

// verdictFrom never yields Correct for an unknown value.
func verdictFrom(v any) Verdict {
	s, ok := v.(string)
	if !ok {
		return PartiallyCorrect
	}
	if verdict, ok := ParseVerdict(s); ok {
		return verdict
	}
	return PartiallyCorrect
}

var ratingLabels = map[string]Rating{
	"again": Again,
	"hard":  Hard,
	"good":  Good,
	"easy":  Easy,
	"1":     Again,
	"2":     Hard,
	"3":     Good,
	"4":     Easy,
}

// ParseRating accepts a label (any case) or a numeric code "1".."4".
func ParseRating(s string) (Rating, bool) {
	r, ok := ratingLabels[strings.ToLower(strings.TrimSpace(s))]
	return r, ok
}

// RatingFromCode maps the canonical numeric codes 1..4 to ratings.
func RatingFromCode(code int64) (Rating, bool) {
	r := Rating(code)
	return r, r.Valid()
}

// ratingFrom falls back to Good, never to Again or Easy.
func ratingFrom(v any) Rating {
	switch t := v.(type) {
	case json.Number:
		if code, err := t.Int64(); err == nil {
			if r, ok := RatingFromCode(code); ok {
				return r
			}
			return Good
		}
		f, err := t.Float64()
		if err != nil || f != math.Trunc(f) {
			return Good
		}
		if r, ok := RatingFromCode(int64(f)); ok {
			return r
		}
	case string:
		if r, ok := ParseRating(t); ok {
			return r
		}
	}
	return Good
}

// feedbackFrom prefers a consolidated "feedback" field and falls back to the
// split key_fix/memory_tip fields. A present field of the wrong type is a
// format error.
func feedbackFrom(obj map[string]any) ([]string, error) {
	primary, err := feedbackLines(obj["feedback"])
	if err != nil {
		return nil, err
	}
	keyFix, err := optionalString(obj, "key_fix")
	if err != nil {
		return nil, err
	}
	memoryTip, err := optionalString(obj, "memory_tip")
	if err != nil {
		return nil, err
	}

	if len(primary) > 0 {
		if memoryTip != "" {
			primary = append(primary, memoryTip)
		}
		return primary, nil
	}

	if keyFix == "" {
		keyFix = noKeyFix
	}
	if memoryTip == "" {
		memoryTip = noMemoryTip
	}
	return []string{keyFix, memoryTip}, nil
}

func feedbackLines(v any) ([]string, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case string:
		if s := strings.TrimSpace(t); s != "" {
			return []string{s}, nil
		}
		return nil, nil
	case []any:
		var lines []string
		for i, item := range t {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("field \"feedback\"[%d] has type %s, want string", i, jsonType(item))
			}
			if s = strings.TrimSpace(s); s != "" {
				lines = append(lines, s)
			}
		}
		return lines, nil
	default:
		return nil, fmt.Errorf("field \"feedback\" has type %s, want string", jsonType(v))
	}
}

func optionalString(obj map[string]any, key string) (string, error) {
	switch t := obj[key].(type) {
	case nil:
		return "", nil
	case string:
		return strings.TrimSpace(t), nil
	default:
		return "", fmt.Errorf("field %q has type %s, want string", key, jsonType(t))
	}
}

func jsonType(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case json.Number, float64:
		return "number"
	case string:
		return "string"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}

package card

import (
	"errors"
	"html"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"

	"github.com/recallgrade/recallgrade/internal/grader"
	"github.com/recallgrade/recallgrade/internal/id"
)

// NoteType mirrors the review application's note model type.
type NoteType int

const (
	NoteTypeBasic NoteType = 0
	NoteTypeCloze NoteType = 1
)

// Card is a flashcard as stored by the review host. Front and back keep the
// original markup; grading uses the stripped text.
type Card struct {
	ID        string
	FrontHTML string
	BackHTML  string
	NoteType  NoteType
	Schedule  Schedule
	CreatedAt time.Time
}

var stripPolicy = bluemonday.StrictPolicy()

// New creates a card due immediately.
func New(frontHTML, backHTML string, noteType NoteType, now time.Time) (*Card, error) {
	if strings.TrimSpace(StripHTML(frontHTML)) == "" {
		return nil, errors.New("card front cannot be empty")
	}
	if noteType != NoteTypeBasic && noteType != NoteTypeCloze {
		return nil, errors.New("unknown note type")
	}
	return &Card{
		ID:        id.GenerateID(),
		FrontHTML: frontHTML,
		BackHTML:  backHTML,
		NoteType:  noteType,
		Schedule:  NewSchedule(now),
		CreatedAt: now,
	}, nil
}

// Question returns the front as plain text.
func (c *Card) Question() string {
	return StripHTML(c.FrontHTML)
}

// Answer returns the back as plain text.
func (c *Card) Answer() string {
	return StripHTML(c.BackHTML)
}

// IsCloze reports whether the card is graded as a fill-in-the-blank.
func (c *Card) IsCloze() bool {
	return grader.DetectCloze(int(c.NoteType), c.Question())
}

// GradingRequest builds the pipeline input for a user's answer to this card.
func (c *Card) GradingRequest(userAnswer string) grader.GradingRequest {
	return grader.GradingRequest{
		Question:        c.Question(),
		ReferenceAnswer: c.Answer(),
		UserAnswer:      userAnswer,
		IsCloze:         c.IsCloze(),
	}
}

// StripHTML removes all markup, unescapes entities and collapses whitespace.
func StripHTML(s string) string {
	s = strings.NewReplacer("<br>", "\n", "<br/>", "\n", "<br />", "\n", "</div>", "\n", "</p>", "\n").Replace(s)
	text := html.UnescapeString(stripPolicy.Sanitize(s))

	lines := strings.Split(text, "\n")
	out := lines[:0]
	for _, line := range lines {
		if line = strings.Join(strings.Fields(line), " "); line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}

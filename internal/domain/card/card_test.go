package card_test

import (
	"math"
	"testing"
	"time"

	"github.com/recallgrade/recallgrade/internal/domain/card"
	"github.com/recallgrade/recallgrade/internal/grader"
)

var now = time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)

func TestNew(t *testing.T) {
	c, err := card.New("<b>What is DDD?</b>", "Domain-Driven Design", card.NoteTypeBasic, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if c.ID == "" {
		t.Error("expected an ID")
	}
	if c.Question() != "What is DDD?" {
		t.Errorf("expected stripped question, got %q", c.Question())
	}
	if !c.Schedule.Due.Equal(now) {
		t.Errorf("expected new card due now, got %v", c.Schedule.Due)
	}
}

func TestNew_EmptyFront(t *testing.T) {
	if _, err := card.New("<div> </div>", "Answer", card.NoteTypeBasic, now); err == nil {
		t.Error("expected error for empty front, got nil")
	}
}

func TestNew_UnknownNoteType(t *testing.T) {
	if _, err := card.New("Q", "A", card.NoteType(7), now); err == nil {
		t.Error("expected error for unknown note type, got nil")
	}
}

func TestStripHTML(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain", "plain"},
		{"<div>A &amp; B</div>", "A & B"},
		{"line one<br>line two", "line one\nline two"},
		{"<script>alert(1)</script>text", "text"},
		{"  lots   of\tspace  ", "lots of space"},
		{"<span class=\"cloze\">[...]</span> is a keyword", "[...] is a keyword"},
	}
	for _, tt := range tests {
		if got := card.StripHTML(tt.in); got != tt.want {
			t.Errorf("StripHTML(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestGradingRequest(t *testing.T) {
	c, _ := card.New("Go's concurrency unit is the <span>[...]</span>", "goroutine", card.NoteTypeBasic, now)

	req := c.GradingRequest("goroutine")
	if !req.IsCloze {
		t.Error("expected [...] blank to mark the card as cloze")
	}
	if req.ReferenceAnswer != "goroutine" || req.UserAnswer != "goroutine" {
		t.Errorf("unexpected request: %+v", req)
	}

	basic, _ := card.New("What is a goroutine?", "A lightweight thread", card.NoteTypeBasic, now)
	if basic.GradingRequest("x").IsCloze {
		t.Error("expected basic card not to be cloze")
	}

	cloze, _ := card.New("{{c1::Paris}} is the capital", "Paris", card.NoteTypeCloze, now)
	if !cloze.GradingRequest("x").IsCloze {
		t.Error("expected cloze note type to be cloze")
	}
}

func TestSchedule_Apply(t *testing.T) {
	s := card.NewSchedule(now)

	s = s.Apply(grader.Good, now)
	if s.IntervalDays != 1 || s.Reps != 1 {
		t.Fatalf("expected 1 day after first Good, got %+v", s)
	}

	s = s.Apply(grader.Good, now)
	if s.IntervalDays != 3 { // round(1 * 2.5)
		t.Errorf("expected 3 days, got %d", s.IntervalDays)
	}
	if !s.Due.Equal(now.AddDate(0, 0, 3)) {
		t.Errorf("expected due in 3 days, got %v", s.Due)
	}

	s = s.Apply(grader.Again, now)
	if s.IntervalDays != 0 || s.Lapses != 1 || s.Reps != 0 {
		t.Errorf("expected reset after Again, got %+v", s)
	}
	if math.Abs(s.Ease-2.3) > 1e-9 {
		t.Errorf("expected ease 2.3 after Again, got %v", s.Ease)
	}
	if !s.Due.Equal(now.Add(10 * time.Minute)) {
		t.Errorf("expected due in ten minutes, got %v", s.Due)
	}
}

func TestSchedule_EaseFloorAndOrdering(t *testing.T) {
	s := card.NewSchedule(now)
	for i := 0; i < 20; i++ {
		s = s.Apply(grader.Again, now)
	}
	if s.Ease < 1.3 {
		t.Errorf("ease fell below floor: %v", s.Ease)
	}

	base := card.NewSchedule(now).Apply(grader.Good, now).Apply(grader.Good, now)
	hard := base.Apply(grader.Hard, now).IntervalDays
	good := base.Apply(grader.Good, now).IntervalDays
	easy := base.Apply(grader.Easy, now).IntervalDays
	if !(hard < good && good < easy) {
		t.Errorf("expected hard < good < easy, got %d %d %d", hard, good, easy)
	}
}

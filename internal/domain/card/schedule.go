package card

import (
	"math"
	"time"

	"github.com/recallgrade/recallgrade/internal/grader"
)

const (
	initialEase = 2.5
	minEase     = 1.3
	maxInterval = 3650 // days
)

// Schedule tracks when a card is next due.
type Schedule struct {
	IntervalDays int       // 0 = relearning, due again today
	Ease         float64   // interval multiplier for Good answers
	Reps         int       // successful reviews in a row
	Lapses       int       // times the card was forgotten (Again)
	Due          time.Time // next review time
}

// NewSchedule returns the schedule of a never-reviewed card.
func NewSchedule(now time.Time) Schedule {
	return Schedule{Ease: initialEase, Due: now}
}

// Apply updates the schedule for a review rated r at time now.
// It is a simplified SM-2:
//   - Again resets the interval, costs 0.2 ease and counts a lapse;
//     the card is due again in ten minutes.
//   - Hard grows the interval by 1.2 and costs 0.15 ease.
//   - Good grows the interval by the ease.
//   - Easy grows it by ease*1.3 and adds 0.15 ease.
func (s Schedule) Apply(r grader.Rating, now time.Time) Schedule {
	next := s
	if next.Ease == 0 {
		next.Ease = initialEase
	}

	switch r {
	case grader.Again:
		next.Lapses++
		next.Reps = 0
		next.IntervalDays = 0
		next.Ease = math.Max(minEase, next.Ease-0.2)
		next.Due = now.Add(10 * time.Minute)
		return next
	case grader.Hard:
		next.IntervalDays = grow(s.IntervalDays, 1.2, 1)
		next.Ease = math.Max(minEase, next.Ease-0.15)
	case grader.Easy:
		next.IntervalDays = grow(s.IntervalDays, next.Ease*1.3, 4)
		next.Ease += 0.15
	default:
		next.IntervalDays = grow(s.IntervalDays, next.Ease, 1)
	}

	next.Reps++
	next.Due = now.AddDate(0, 0, next.IntervalDays)
	return next
}

// grow multiplies interval by factor, always advancing at least one day and
// starting from first for a card with no interval yet.
func grow(interval int, factor float64, first int) int {
	if interval <= 0 {
		return first
	}
	n := int(math.Round(float64(interval) * factor))
	if n <= interval {
		n = interval + 1
	}
	if n > maxInterval {
		n = maxInterval
	}
	return n
}

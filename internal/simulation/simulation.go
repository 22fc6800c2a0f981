// simulation/simulation.go
package simulation

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/recallgrade/recallgrade/internal/domain/card"
	"github.com/recallgrade/recallgrade/internal/grader"
	"github.com/recallgrade/recallgrade/internal/worker"
)

// Evaluator grades a single answer.
type Evaluator interface {
	Evaluate(ctx context.Context, req grader.GradingRequest) grader.EvaluationResult
}

// Case is one scripted review: a card, a user answer and, optionally, the
// verdict a sound grader should reach.
type Case struct {
	Name      string `yaml:"name"`
	FrontHTML string `yaml:"front"`
	BackHTML  string `yaml:"back"`
	NoteType  int    `yaml:"note_type"`
	Answer    string `yaml:"answer"`
	Expect    string `yaml:"expect"` // verdict label; empty skips the check
}

// Deck is the YAML document read by LoadDeck.
type Deck struct {
	Cases []Case `yaml:"cases"`
}

type Outcome struct {
	Case   Case
	Result grader.EvaluationResult
	// Matched is nil when the case has no expectation.
	Matched *bool
}

type Report struct {
	Outcomes   []Outcome
	Verdicts   map[string]int
	Failures   int
	Mismatches int
}

func LoadDeck(path string) (*Deck, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading deck: %w", err)
	}
	var deck Deck
	if err := yaml.Unmarshal(data, &deck); err != nil {
		return nil, fmt.Errorf("parsing deck: %w", err)
	}
	for i, c := range deck.Cases {
		if c.Expect == "" {
			continue
		}
		if _, ok := grader.ParseVerdict(c.Expect); !ok {
			return nil, fmt.Errorf("case %d (%s): unknown verdict %q", i, c.Name, c.Expect)
		}
	}
	return &deck, nil
}

type indexedOutcome struct {
	index   int
	outcome Outcome
}

// Run grades every case on a pool of workers. Outcomes keep the deck order.
func Run(ctx context.Context, ev Evaluator, deck *Deck, workers int) Report {
	pool := worker.NewPool[indexedOutcome](workers, len(deck.Cases))

	for i, c := range deck.Cases {
		i, c := i, c
		pool.Submit(strconv.Itoa(i), func() indexedOutcome {
			return indexedOutcome{index: i, outcome: grade(ctx, ev, c)}
		})
	}
	pool.Close()

	report := Report{
		Outcomes: make([]Outcome, len(deck.Cases)),
		Verdicts: make(map[string]int),
	}
	for res := range pool.Results() {
		o := res.Output.outcome
		report.Outcomes[res.Output.index] = o

		report.Verdicts[o.Result.Verdict.String()]++
		if o.Result.Failed() {
			report.Failures++
		}
		if o.Matched != nil && !*o.Matched {
			report.Mismatches++
		}
	}
	return report
}

func grade(ctx context.Context, ev Evaluator, c Case) Outcome {
	cd := card.Card{
		FrontHTML: c.FrontHTML,
		BackHTML:  c.BackHTML,
		NoteType:  card.NoteType(c.NoteType),
	}
	result := ev.Evaluate(ctx, cd.GradingRequest(c.Answer))

	out := Outcome{Case: c, Result: result}
	if want, ok := grader.ParseVerdict(c.Expect); ok {
		matched := want == result.Verdict
		out.Matched = &matched
	}
	return out
}

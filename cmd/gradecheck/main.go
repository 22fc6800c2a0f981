// Command gradecheck runs a YAML deck of scripted reviews through the
// configured grading backend and prints one line per case.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/recallgrade/recallgrade/internal/grader"
	"github.com/recallgrade/recallgrade/internal/infrastructure/backend"
	"github.com/recallgrade/recallgrade/internal/infrastructure/config"
	"github.com/recallgrade/recallgrade/internal/simulation"
)

func main() {
	deckPath := flag.String("deck", "deck.yaml", "YAML file with the cases to grade")
	workers := flag.Int("workers", 0, "parallel grading calls (default GRADER_WORKERS)")
	verbose := flag.Bool("v", false, "log every backend call")
	flag.Parse()

	cfg := config.Load()

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	deck, err := simulation.LoadDeck(*deckPath)
	if err != nil {
		logger.Error("failed to load deck", "error", err)
		os.Exit(1)
	}

	llm, err := backend.New(cfg)
	if err != nil {
		logger.Error("failed to configure grader", "error", err)
		os.Exit(1)
	}

	n := *workers
	if n <= 0 {
		n = cfg.GraderWorkers
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	report := simulation.Run(ctx, grader.NewGrader(llm, grader.WithLogger(logger)), deck, n)

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CASE\tVERDICT\tRATING\tEXPECTED\tFEEDBACK")
	for _, o := range report.Outcomes {
		expected := "-"
		if o.Matched != nil {
			expected = o.Case.Expect
			if !*o.Matched {
				expected += " (mismatch)"
			}
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			o.Case.Name,
			o.Result.Verdict,
			o.Result.SuggestedRating,
			expected,
			strings.Join(o.Result.Feedback, " / "),
		)
	}
	tw.Flush()

	fmt.Printf("\n%d cases via %s: %d failed, %d mismatched\n",
		len(report.Outcomes), llm.Name(), report.Failures, report.Mismatches)

	if report.Failures > 0 || report.Mismatches > 0 {
		os.Exit(2)
	}
}

// Package scoring runs a batch of formulas over a batch of items.
//
// Formulas are parsed once into shared Programs. Items are split into
// contiguous chunks, one per worker, and every worker builds its own
// evaluators from the shared Programs, so bytecode machines and script
// engines are never shared between goroutines.
package scoring

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/tliron/commonlog"
	"golang.org/x/sync/errgroup"

	"github.com/chazu/exprscore/compiler"
)

var log = commonlog.GetLogger("exprscore.scoring")

// Script selects the embedded script engine instead of an eval strategy.
const Script = "script"

// checkEvery is how many items a worker scores between context checks.
const checkEvery = 1024

// Job describes one scoring run.
type Job[T any] struct {
	Grammar  *compiler.Grammar
	Formulas []string
	Items    []T
	Strategy string // eval strategy name, or Script
	Workers  int
}

// Report is the outcome of a run. Scores is indexed [formula][item].
type Report struct {
	RunID    string
	Strategy string
	Scores   [][]float64
	Elapsed  time.Duration
}

// FormulaError reports a formula that could not be parsed or compiled.
type FormulaError struct {
	Index   int
	Formula string
	Err     error
}

func (e *FormulaError) Error() string {
	return fmt.Sprintf("formula %d (%q): %v", e.Index+1, e.Formula, e.Err)
}

func (e *FormulaError) Unwrap() error {
	return e.Err
}

// Run scores every item with every formula.
func Run[T any](ctx context.Context, job Job[T]) (*Report, error) {
	if job.Grammar == nil {
		return nil, errors.New("scoring: job has no grammar")
	}
	build, err := builder[T](job)
	if err != nil {
		return nil, err
	}

	report := &Report{
		RunID:    uuid.New().String(),
		Strategy: job.Strategy,
		Scores:   make([][]float64, len(job.Formulas)),
	}
	for f := range report.Scores {
		report.Scores[f] = make([]float64, len(job.Items))
	}

	workers := max(1, min(job.Workers, len(job.Items)))
	log.Debugf("run %s: %d formulas x %d items, %s, %d workers",
		report.RunID, len(job.Formulas), len(job.Items), job.Strategy, workers)

	start := time.Now()
	g, ctx := errgroup.WithContext(ctx)
	chunk := (len(job.Items) + workers - 1) / workers
	for lo := 0; lo < len(job.Items); lo += chunk {
		hi := min(lo+chunk, len(job.Items))
		g.Go(func() error {
			return score(ctx, build, job.Items, lo, hi, report.Scores)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	report.Elapsed = time.Since(start)

	log.Debugf("run %s finished in %s", report.RunID, report.Elapsed)
	return report, nil
}

// score evaluates items[lo:hi] with a fresh set of scorers.
func score[T any](ctx context.Context, build func() ([]scorer[T], error), items []T, lo, hi int, out [][]float64) error {
	scorers, err := build()
	if err != nil {
		return err
	}
	defer closeAll(scorers)

	for i := lo; i < hi; i++ {
		if (i-lo)%checkEvery == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		for f, s := range scorers {
			v, err := s.score(&items[i])
			if err != nil {
				return fmt.Errorf("item %d: %w", i, err)
			}
			out[f][i] = v
		}
	}
	return nil
}

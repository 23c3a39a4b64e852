package scoring

import (
	"fmt"

	"github.com/chazu/exprscore/compiler"
	"github.com/chazu/exprscore/eval"
	"github.com/chazu/exprscore/script"
)

// scorer is the per-worker form of one formula.
type scorer[T any] interface {
	score(item *T) (float64, error)
	Close() error
}

type evalScorer[T any] struct{ eval.Evaluator[T] }

func (s evalScorer[T]) score(item *T) (float64, error) { return s.Eval(item), nil }

// scriptScorer evaluates one formula on its worker's shared engine. Closing
// any of a worker's script scorers closes the engine; Engine.Close is
// idempotent.
type scriptScorer[T any] struct {
	ev     *script.Evaluator[T]
	engine *script.Engine
}

func (s scriptScorer[T]) score(item *T) (float64, error) { return s.ev.Eval(item) }
func (s scriptScorer[T]) Close() error                   { return s.engine.Close() }

// builder parses the job's formulas once and returns a constructor for a
// worker's scorers. Parse and compile failures surface here, before any
// worker starts.
func builder[T any](job Job[T]) (func() ([]scorer[T], error), error) {
	if job.Strategy == Script {
		bindings := job.Grammar.Bindings()
		build := func() ([]scorer[T], error) {
			engine := script.NewEngine()
			out := make([]scorer[T], 0, len(job.Formulas))
			for i, text := range job.Formulas {
				ev, err := script.Define[T](engine, fmt.Sprintf("formula%d", i), bindings, text)
				if err != nil {
					engine.Close()
					return nil, &FormulaError{Index: i, Formula: text, Err: err}
				}
				out = append(out, scriptScorer[T]{ev: ev, engine: engine})
			}
			return out, nil
		}
		return probe(build)
	}

	strategy, err := eval.ParseStrategy(job.Strategy)
	if err != nil {
		return nil, err
	}
	progs := make([]*compiler.Program, len(job.Formulas))
	for i, text := range job.Formulas {
		if progs[i], err = job.Grammar.Parse(text); err != nil {
			return nil, &FormulaError{Index: i, Formula: text, Err: err}
		}
	}
	build := func() ([]scorer[T], error) {
		out := make([]scorer[T], 0, len(progs))
		for i, prog := range progs {
			ev, err := eval.Compile[T](prog, strategy)
			if err != nil {
				closeAll(out)
				return nil, &FormulaError{Index: i, Formula: job.Formulas[i], Err: err}
			}
			out = append(out, evalScorer[T]{ev})
		}
		return out, nil
	}
	return probe(build)
}

// probe builds one throwaway set of scorers so that binding errors are
// reported once, up front.
func probe[T any](build func() ([]scorer[T], error)) (func() ([]scorer[T], error), error) {
	scorers, err := build()
	if err != nil {
		return nil, err
	}
	closeAll(scorers)
	return build, nil
}

func closeAll[T any](scorers []scorer[T]) {
	for _, s := range scorers {
		s.Close()
	}
}

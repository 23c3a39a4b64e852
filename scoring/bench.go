package scoring

import (
	"time"

	"github.com/chazu/exprscore/compiler"
	"github.com/chazu/exprscore/eval"
)

// Timing is the cost of one benchmark configuration.
type Timing struct {
	Name    string
	Elapsed time.Duration
	Sum     float64 // sum of all scores, to compare configurations
}

// Benchmark evaluates every formula on every item rounds times, once with
// native (the hand-written Go equivalent of the formulas' sum), then with
// each eval strategy and the script engine. Scoring runs on the calling
// goroutine.
func Benchmark[T any](g *compiler.Grammar, formulas []string, items []T, rounds int, native func(*T) float64) ([]Timing, error) {
	var timings []Timing

	if native != nil {
		start := time.Now()
		var sum float64
		for range rounds {
			for i := range items {
				sum += native(&items[i])
			}
		}
		timings = append(timings, Timing{Name: "native", Elapsed: time.Since(start), Sum: sum})
	}

	names := make([]string, 0, len(eval.Strategies)+1)
	for _, s := range eval.Strategies {
		names = append(names, s.String())
	}
	names = append(names, Script)

	for _, name := range names {
		build, err := builder(Job[T]{Grammar: g, Formulas: formulas, Strategy: name})
		if err != nil {
			return nil, err
		}
		scorers, err := build()
		if err != nil {
			return nil, err
		}

		start := time.Now()
		var sum float64
		for range rounds {
			for i := range items {
				for _, s := range scorers {
					v, err := s.score(&items[i])
					if err != nil {
						closeAll(scorers)
						return nil, err
					}
					sum += v
				}
			}
		}
		elapsed := time.Since(start)
		closeAll(scorers)

		timings = append(timings, Timing{Name: name, Elapsed: elapsed, Sum: sum})
		log.Debugf("benchmark %s: %s", name, elapsed)
	}
	return timings, nil
}

package main

import (
	"fmt"
	"slices"

	"github.com/chazu/exprscore/compiler"
	"github.com/chazu/exprscore/manifest"
	"github.com/chazu/exprscore/records"
	"github.com/chazu/exprscore/scoring"
)

// runBenchmark times each strategy against the same formulas. A native
// baseline is included when the formulas are the reference ones.
func runBenchmark(g *compiler.Grammar, m *manifest.Manifest, users []records.UserScore, rounds int) {
	var native func(*records.UserScore) float64
	if slices.Equal(m.Expressions(), records.Formulas) {
		native = func(u *records.UserScore) float64 {
			return records.Score1(u) + records.Score2(u) + records.Score3(u)
		}
	}

	timings, err := scoring.Benchmark(g, m.Expressions(), users, rounds, native)
	if err != nil {
		fatal(err)
	}

	fmt.Printf("%s %d rounds x %d users x %d formulas\n", bold("benchmark"), rounds, len(users), len(m.Formulas))
	base := timings[0].Elapsed
	for _, tm := range timings {
		ratio := float64(tm.Elapsed) / float64(max(base, 1))
		fmt.Printf("  %-10s %12s  %6.2fx  %s\n", tm.Name, tm.Elapsed, ratio, dim(fmt.Sprintf("sum=%g", tm.Sum)))
	}
}

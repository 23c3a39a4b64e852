// scorex scores users with arithmetic formulas.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"strings"

	"github.com/fatih/color"
	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/chazu/exprscore/compiler"
	"github.com/chazu/exprscore/manifest"
	"github.com/chazu/exprscore/records"
	"github.com/chazu/exprscore/scoring"
)

var (
	bold   = color.New(color.Bold).SprintFunc()
	green  = color.New(color.FgGreen).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	dim    = color.New(color.Faint).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
)

func main() {
	configDir := flag.String("config", "", "Directory containing scorex.toml (default: search upward from .)")
	strategy := flag.String("strategy", "", "Evaluation strategy: tree, raw, bytecode or script (overrides manifest)")
	workers := flag.Int("workers", 0, "Number of scoring workers (overrides manifest)")
	out := flag.String("out", "", "Write results to this CBOR file (overrides manifest)")
	bench := flag.Int("bench", 0, "Benchmark every strategy for this many rounds instead of scoring")
	disasm := flag.Bool("disasm", false, "Print the bytecode of every formula and exit")
	limit := flag.Int("n", 10, "Number of result rows to print (0 for all)")
	verbose := flag.Int("v", 0, "Log verbosity (0 = errors only)")
	var exprs []string
	flag.Func("e", "Score this formula instead of the manifest's (repeatable)", func(s string) error {
		exprs = append(exprs, s)
		return nil
	})

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: scorex [options]\n\n")
		fmt.Fprintf(os.Stderr, "Scores users with the formulas in scorex.toml.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  scorex                              # Run ./scorex.toml\n")
		fmt.Fprintf(os.Stderr, "  scorex -e 'like + follow/comment'   # Score the sample users\n")
		fmt.Fprintf(os.Stderr, "  scorex -strategy tree -workers 1    # Override the manifest\n")
		fmt.Fprintf(os.Stderr, "  scorex -bench 100000                # Compare strategies\n")
		fmt.Fprintf(os.Stderr, "  scorex -disasm -e '2 + 3 * like'    # Show compiled bytecode\n")
	}
	flag.Parse()

	commonlog.Configure(*verbose, nil)

	m, err := loadManifest(*configDir, exprs)
	if err != nil {
		fatal(err)
	}
	if *strategy != "" {
		m.Run.Strategy = *strategy
	}
	if *workers > 0 {
		m.Run.Workers = *workers
	}
	if *out != "" {
		m.Run.Output = *out
	}

	g, err := buildGrammar(m)
	if err != nil {
		fatal(err)
	}

	if *disasm {
		if err := disassemble(os.Stdout, g, m.Formulas); err != nil {
			fatal(err)
		}
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	users, err := loadUsers(ctx, m)
	if err != nil {
		fatal(err)
	}

	if *bench > 0 {
		runBenchmark(g, m, users, *bench)
		return
	}

	report, err := scoring.Run(ctx, scoring.Job[records.UserScore]{
		Grammar:  g,
		Formulas: m.Expressions(),
		Items:    users,
		Strategy: m.Run.Strategy,
		Workers:  m.Run.Workers,
	})
	if err != nil {
		fatal(err)
	}

	printReport(m, users, report, *limit)

	if path := m.OutputPath(); path != "" {
		res, err := toResults(m, g, users, report)
		if err != nil {
			fatal(err)
		}
		if err := records.WriteResults(path, res); err != nil {
			fatal(err)
		}
		fmt.Printf("%s wrote %s\n", green("✓"), path)
	}
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "%s %v\n", red("Error:"), err)
	os.Exit(1)
}

// loadManifest finds the run configuration. Formulas given with -e replace
// the manifest's; with neither, the reference formulas run over the
// sample users.
func loadManifest(dir string, exprs []string) (*manifest.Manifest, error) {
	var (
		m   *manifest.Manifest
		err error
	)
	if dir != "" {
		m, err = manifest.Load(dir)
	} else {
		m, err = manifest.FindAndLoad(".")
	}
	if err != nil {
		return nil, err
	}
	if m == nil {
		m = &manifest.Manifest{
			Run:    manifest.Run{Strategy: "bytecode", Workers: runtime.NumCPU(), Shape: "field"},
			Source: manifest.Source{Kind: "samples"},
		}
		if len(exprs) == 0 {
			exprs = records.Formulas
		}
	}
	if len(exprs) > 0 {
		m.Formulas = make([]manifest.Formula, len(exprs))
		for i, e := range exprs {
			m.Formulas[i] = manifest.Formula{Name: fmt.Sprintf("e%d", i+1), Expr: e}
		}
	}
	if err := m.Check(); err != nil {
		return nil, fmt.Errorf("%s: %w (add [[formula]] entries or pass -e)", m.Resolve(manifest.FileName), err)
	}
	return m, nil
}

func buildGrammar(m *manifest.Manifest) (*compiler.Grammar, error) {
	shape, err := manifest.ParseShape(m.Run.Shape)
	if err != nil {
		return nil, err
	}
	bindings, err := records.Bindings(shape)
	if err != nil {
		return nil, err
	}
	if len(m.Bindings) > 0 {
		targets := make(map[string]records.Target, len(m.Bindings))
		for name, spec := range m.Bindings {
			shape, target, err := manifest.ParseBinding(spec)
			if err != nil {
				return nil, fmt.Errorf("binding %s: %w", name, err)
			}
			targets[name] = records.Target{Shape: shape, Name: target}
		}
		if bindings, err = records.Override(bindings, targets); err != nil {
			return nil, err
		}
	}
	return compiler.NewGrammar(bindings, compiler.WithCache(len(m.Formulas)))
}

func loadUsers(ctx context.Context, m *manifest.Manifest) ([]records.UserScore, error) {
	switch m.Source.Kind {
	case "samples", "":
		return records.Samples, nil
	case "cbor":
		return records.LoadCBOR(m.SourcePath())
	case records.DriverSQLite:
		return records.LoadSQL(ctx, records.DriverSQLite, m.Resolve(m.Source.DSN), m.Source.Query)
	case records.DriverDuckDB:
		return records.LoadSQL(ctx, records.DriverDuckDB, m.Resolve(m.Source.DSN), m.Source.Query)
	}
	return nil, fmt.Errorf("unknown source kind %q", m.Source.Kind)
}

func printReport(m *manifest.Manifest, users []records.UserScore, r *scoring.Report, limit int) {
	fmt.Printf("%s %s  %s  %d users x %d formulas in %s\n",
		bold("run"), r.RunID, r.Strategy, len(users), len(m.Formulas), r.Elapsed)

	var sb strings.Builder
	fmt.Fprintf(&sb, "%-12s", "id")
	for _, f := range m.Formulas {
		fmt.Fprintf(&sb, " %16s", f.Name)
	}
	fmt.Println(bold(sb.String()))

	rows := len(users)
	if limit > 0 {
		rows = min(rows, limit)
	}
	for i := range rows {
		fmt.Printf("%-12s", users[i].ID)
		for f := range m.Formulas {
			fmt.Printf(" %16.6g", r.Scores[f][i])
		}
		fmt.Println()
	}
	if rows < len(users) {
		fmt.Println(dim(fmt.Sprintf("... %d more", len(users)-rows)))
	}
}

func toResults(m *manifest.Manifest, g *compiler.Grammar, users []records.UserScore, r *scoring.Report) (*records.Results, error) {
	prints, err := fingerprints(g, m.Formulas)
	if err != nil {
		return nil, err
	}
	out := &records.Results{
		RunID:        r.RunID,
		Strategy:     r.Strategy,
		Formulas:     m.Expressions(),
		Fingerprints: prints,
		Results:      make([]records.Result, 0, len(users)*len(m.Formulas)),
	}
	for f := range m.Formulas {
		for i, u := range users {
			out.Results = append(out.Results, records.Result{ID: u.ID, Formula: f, Score: r.Scores[f][i]})
		}
	}
	return out, nil
}

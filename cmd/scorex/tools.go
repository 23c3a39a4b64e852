package main

import (
	"fmt"
	"io"

	"github.com/chazu/exprscore/compiler"
	"github.com/chazu/exprscore/compiler/hash"
	"github.com/chazu/exprscore/manifest"
	"github.com/chazu/exprscore/records"
)

// disassemble prints every formula in postfix form followed by its tape.
func disassemble(w io.Writer, g *compiler.Grammar, formulas []manifest.Formula) error {
	for _, f := range formulas {
		prog, err := g.Parse(f.Expr)
		if err != nil {
			return fmt.Errorf("%s: %w", f.Name, err)
		}
		m, err := compiler.CompileBytecode[records.UserScore](prog)
		if err != nil {
			return fmt.Errorf("%s: %w", f.Name, err)
		}
		fmt.Fprintf(w, "%s %s\n", bold(f.Name+":"), f.Expr)
		fmt.Fprintf(w, "%s %s\n", dim("postfix:"), prog)
		fmt.Fprintf(w, "%s %s\n", dim("fingerprint:"), hash.Hex(prog))
		for _, warning := range compiler.Analyze(prog) {
			fmt.Fprintln(w, yellow(warning))
		}
		fmt.Fprintf(w, "%s %d words, stack depth %d\n", dim("tape:"), len(m.Tape()), m.StackDepth())
		fmt.Fprint(w, m.Disassemble())
		fmt.Fprintln(w)
		m.Close()
	}
	return nil
}

// fingerprints returns the content hash of every formula, in order.
func fingerprints(g *compiler.Grammar, formulas []manifest.Formula) ([]string, error) {
	out := make([]string, len(formulas))
	for i, f := range formulas {
		prog, err := g.Parse(f.Expr)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", f.Name, err)
		}
		out[i] = hash.Hex(prog)
	}
	return out, nil
}

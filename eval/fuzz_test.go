package eval

import (
	"math/rand"
	"strconv"
	"strings"
	"testing"

	"github.com/chazu/exprscore/accessor"
	"github.com/chazu/exprscore/compiler"
	"github.com/chazu/exprscore/records"
	"github.com/chazu/exprscore/vm"
)

// genExpr builds a random well-formed expression over records.Symbols.
func genExpr(r *rand.Rand, sb *strings.Builder, depth int) {
	if depth <= 0 || r.Intn(4) == 0 {
		if r.Intn(2) == 0 {
			sb.WriteString(records.Symbols[r.Intn(len(records.Symbols))])
		} else {
			sb.WriteString(strconv.Itoa(r.Intn(100)))
		}
		return
	}
	switch r.Intn(5) {
	case 0:
		sb.WriteByte("-+"[r.Intn(2)])
		genExpr(r, sb, depth-1)
	case 1:
		sb.WriteByte('(')
		genExpr(r, sb, depth-1)
		sb.WriteByte(')')
	default:
		genExpr(r, sb, depth-1)
		sb.WriteByte(" +-*/"[1+r.Intn(4)])
		genExpr(r, sb, depth-1)
	}
}

// checkSound compiles text with every backend and verifies the tape's
// stack usage against the precomputed depth and that all backends agree.
func checkSound(t *testing.T, g *compiler.Grammar, text string) {
	t.Helper()
	prog, err := g.Parse(text)
	if err != nil {
		t.Fatalf("generated %q does not parse: %v", text, err)
	}

	m, err := compiler.CompileBytecode[records.UserScore](prog)
	if err != nil {
		t.Fatal(err)
	}
	defer m.Close()

	peak, final, err := vm.StackProfile(m.Tape())
	if err != nil {
		t.Fatalf("%q: %v", text, err)
	}
	if peak > m.StackDepth() || final != 1 {
		t.Fatalf("%q: stack peak %d final %d, allocated %d", text, peak, final, m.StackDepth())
	}
	if peak != compiler.StackDepth(prog) {
		t.Errorf("%q: stack peak %d, StackDepth %d", text, peak, compiler.StackDepth(prog))
	}

	tree, err := NewTree[records.UserScore](prog)
	if err != nil {
		t.Fatal(err)
	}
	raw, err := NewRaw[records.UserScore](prog)
	if err != nil {
		t.Fatal(err)
	}
	for i := range records.Samples {
		u := &records.Samples[i]
		want := tree.Eval(u)
		if got := raw.Eval(u); !sameFloat(want, got) {
			t.Errorf("%q on %s: tree %g, raw %g", text, u.ID, want, got)
		}
		if got := m.Eval(u); !sameFloat(want, got) {
			t.Errorf("%q on %s: tree %g, bytecode %g", text, u.ID, want, got)
		}
	}
}

func TestStackDepthSoundness(t *testing.T) {
	g := grammar(t, accessor.ShapeField)
	r := rand.New(rand.NewSource(20240917))
	for range 500 {
		var sb strings.Builder
		genExpr(r, &sb, 1+r.Intn(8))
		checkSound(t, g, sb.String())
	}
}

func FuzzBackendsAgree(f *testing.F) {
	for _, seed := range []int64{0, 1, 42, 20240917, -7} {
		f.Add(seed, uint8(6))
	}
	g := grammar(f, accessor.ShapeMethod)
	f.Fuzz(func(t *testing.T, seed int64, depth uint8) {
		var sb strings.Builder
		genExpr(rand.New(rand.NewSource(seed)), &sb, int(depth%12))
		checkSound(t, g, sb.String())
	})
}

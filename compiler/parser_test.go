package compiler

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chazu/exprscore/accessor"
)

type item struct {
	Like   float64
	Follow float64
}

func (i *item) Ratio() float64 { return i.Like / i.Follow }

func testBindings() []Binding {
	return []Binding{
		{Name: "like", Accessor: accessor.MustBind[item]("like", accessor.Field("Like"))},
		{Name: "follow", Accessor: accessor.MustBind[item]("follow", accessor.Field("Follow"))},
		{Name: "ratio", Accessor: accessor.MustBind[item]("ratio", accessor.Method("Ratio"))},
	}
}

func mustParse(t testing.TB, text string) *Program {
	t.Helper()
	prog, err := Parse(text, testBindings())
	require.NoError(t, err, "parse %q", text)
	return prog
}

// ignoreSpans compares AST shape only.
var ignoreSpans = cmp.Options{
	cmpopts.IgnoreFields(FloatLiteral{}, "SpanVal"),
	cmpopts.IgnoreFields(AccessorRef{}, "SpanVal", "Accessor"),
	cmpopts.IgnoreFields(Signed{}, "SpanVal"),
	cmpopts.IgnoreFields(Program{}, "SpanVal"),
}

func num(v float64) *FloatLiteral { return &FloatLiteral{Value: v} }

func TestParsePostfix(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"5", "5"},
		{"2 + 3 * 4", "2 3 4 mul add"},
		{"(2 + 3) * 4", "2 3 add 4 mul"},
		{"1 - 2 - 3", "1 2 sub 3 sub"},
		{"8 / 4 / 2", "8 4 div 2 div"},
		{"-3 + 5", "3 neg 5 add"},
		{"--3", "3 neg neg"},
		{"-+3", "3 neg"},
		{"+3", "3"},
		{"like*2 - follow/3", "like 2 mul follow 3 div sub"},
		{"-(like + 1)", "like 1 add neg"},
		{".5 * 1e3", "0.5 1000 mul"},
		{"ratio", "ratio"},
	}

	for _, tc := range tests {
		t.Run(tc.input, func(t *testing.T) {
			assert.Equal(t, tc.want, mustParse(t, tc.input).String())
		})
	}
}

func TestParseShape(t *testing.T) {
	tests := []struct {
		input string
		want  *Program
	}{
		{
			input: "5",
			want:  &Program{First: num(5)},
		},
		{
			input: "(((5)))",
			want:  &Program{First: num(5)},
		},
		{
			input: "2 + 3 * 4",
			want: &Program{
				First: num(2),
				Rest: []Operation{{
					Operator: OpAdd,
					Operand:  &Program{First: num(3), Rest: []Operation{{Operator: OpMul, Operand: num(4)}}},
				}},
			},
		},
		{
			input: "(2 + 3) * 4",
			want: &Program{
				First: &Program{First: num(2), Rest: []Operation{{Operator: OpAdd, Operand: num(3)}}},
				Rest:  []Operation{{Operator: OpMul, Operand: num(4)}},
			},
		},
		{
			input: "-follow",
			want: &Program{
				First: &Signed{Sign: '-', Operand: &AccessorRef{Name: "follow", Slot: 1}},
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.input, func(t *testing.T) {
			got := mustParse(t, tc.input)
			if diff := cmp.Diff(tc.want, got, ignoreSpans); diff != "" {
				t.Errorf("Parse(%q) mismatch (-want +got):\n%s", tc.input, diff)
			}
		})
	}
}

func TestParseBindsAccessors(t *testing.T) {
	bindings := testBindings()
	prog, err := Parse("like + ratio", bindings)
	require.NoError(t, err)

	first, ok := prog.First.(*AccessorRef)
	require.True(t, ok, "First is %T", prog.First)
	assert.Equal(t, 0, first.Slot)
	assert.Same(t, bindings[0].Accessor, first.Accessor)

	second, ok := prog.Rest[0].Operand.(*AccessorRef)
	require.True(t, ok)
	assert.Equal(t, 2, second.Slot)
	assert.Equal(t, accessor.ShapeMethod, second.Accessor.Shape())

	accs := Accessors(prog)
	require.Len(t, accs, 3)
	assert.NotNil(t, accs[0])
	assert.Nil(t, accs[1])
	assert.NotNil(t, accs[2])
}

func TestParseSpans(t *testing.T) {
	prog := mustParse(t, "like + 2")
	assert.Equal(t, Position{Offset: 0, Line: 1, Column: 1}, prog.Span().Start)
	assert.Equal(t, Position{Offset: 8, Line: 1, Column: 9}, prog.Span().End)

	ref := prog.First.(*AccessorRef)
	assert.Equal(t, 5, ref.Span().End.Column)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		input  string
		kind   error
		column int
	}{
		{"", ErrSyntax, 1},
		{"2 +", ErrSyntax, 4},
		{"2 3", ErrTrailing, 3},
		{"2e", ErrTrailing, 2},
		{"x + 1", ErrUnbound, 1},
		{"1 + likes", ErrUnbound, 5},
		{"(1 + 2", ErrSyntax, 7},
		{"1 + )", ErrSyntax, 5},
		{"1 % 2", ErrSyntax, 3},
		{"1e999", ErrSyntax, 1},
		{"* 2", ErrSyntax, 1},
		{"()", ErrSyntax, 2},
	}

	for _, tc := range tests {
		t.Run(tc.input, func(t *testing.T) {
			prog, err := Parse(tc.input, testBindings())
			require.Error(t, err)
			assert.Nil(t, prog)

			var perr *ParseError
			require.True(t, errors.As(err, &perr), "error %T is not a *ParseError", err)
			assert.ErrorIs(t, err, tc.kind)
			assert.Equal(t, tc.column, perr.Pos.Column, "error: %v", err)
			assert.Contains(t, err.Error(), perr.Pos.String())
		})
	}
}

func TestParseMultiline(t *testing.T) {
	prog := mustParse(t, "like\n  * 2\n  + follow")
	assert.Equal(t, "like 2 mul follow add", prog.String())

	_, err := Parse("like\n  * ", testBindings())
	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, 2, perr.Pos.Line)
}

func TestProgramStringNil(t *testing.T) {
	prog := &Program{First: num(1), Rest: []Operation{{Operator: OpAdd}}}
	assert.Equal(t, "1 <nil> add", prog.String())
}

func TestOperatorApply(t *testing.T) {
	assert.Equal(t, 5.0, OpAdd.Apply(2, 3))
	assert.Equal(t, -1.0, OpSub.Apply(2, 3))
	assert.Equal(t, 6.0, OpMul.Apply(2, 3))
	assert.Equal(t, 2.5, OpDiv.Apply(5, 2))
	assert.Panics(t, func() { Operator('%').Apply(1, 2) })
}

func TestWalkStopsEarly(t *testing.T) {
	prog := mustParse(t, "1 + 2 + 3")
	visited := 0
	Walk(prog, func(op Operand) bool {
		visited++
		_, isLit := op.(*FloatLiteral)
		return !isLit
	})
	assert.Equal(t, 2, visited)
}

package compiler

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chazu/exprscore/accessor"
	"github.com/chazu/exprscore/vm"
)

// counter is a functor accessor that tracks how many tape sites hold it.
type counter struct{ refs int }

func (c *counter) Score(i *item) float64 { return i.Like + 1 }
func (c *counter) Retain()               { c.refs++ }
func (c *counter) Release()              { c.refs-- }

type stranger struct{ X float64 }

// recoverAs runs fn and returns what it panicked with as a T.
func recoverAs[T error](t *testing.T, fn func()) (out T) {
	t.Helper()
	defer func() {
		r := recover()
		require.NotNil(t, r, "expected panic")
		err, ok := r.(error)
		require.True(t, ok, "panic value %v is not an error", r)
		require.True(t, errors.As(err, &out), "panic value %T", r)
	}()
	fn()
	return out
}

func TestTapeSizeAndStackDepth(t *testing.T) {
	tests := []struct {
		input string
		size  int
		depth int
	}{
		{"5", 3, 1},
		{"like", 2, 1},
		{"-like", 3, 1},
		{"--like", 4, 1},
		{"+like", 2, 1},
		{"1 + 2 + 3", 11, 2},
		{"2 + 3 * 4", 11, 3},
		{"(2 + 3) * 4", 11, 2},
		{"like*2 - follow/3", 13, 3},
		{"1 - (2 - (3 - 4))", 15, 4},
	}

	for _, tc := range tests {
		t.Run(tc.input, func(t *testing.T) {
			prog := mustParse(t, tc.input)
			assert.Equal(t, tc.size, TapeSize(prog))
			assert.Equal(t, tc.depth, StackDepth(prog))

			m, err := CompileBytecode[item](prog)
			require.NoError(t, err)
			defer m.Close()
			assert.Len(t, m.Tape(), tc.size)
			assert.Equal(t, tc.depth, m.StackDepth())

			peak, final, err := vm.StackProfile(m.Tape())
			require.NoError(t, err)
			assert.Equal(t, tc.depth, peak)
			assert.Equal(t, 1, final)
		})
	}
}

func TestCompileEvaluates(t *testing.T) {
	tests := []struct {
		input string
		want  float64
	}{
		{"2 + 3 * 4", 14},
		{"(2 + 3) * 4", 20},
		{"-3 + 5", 2},
		{"--3", 3},
		{"-+3", -3},
		{"like * 2 - follow / 4", 19.5},
		{"ratio", 5},
		{"10 - 2 - 3", 5},
	}

	it := &item{Like: 10, Follow: 2}
	for _, tc := range tests {
		t.Run(tc.input, func(t *testing.T) {
			m, err := CompileBytecode[item](mustParse(t, tc.input))
			require.NoError(t, err)
			defer m.Close()
			assert.Equal(t, tc.want, m.Eval(it))
		})
	}

	m, err := CompileBytecode[item](mustParse(t, "1 / 0"))
	require.NoError(t, err)
	assert.True(t, math.IsInf(m.Eval(it), 1))
}

func TestCompileSharesAccessorSlots(t *testing.T) {
	m, err := CompileBytecode[item](mustParse(t, "like + follow * like"))
	require.NoError(t, err)
	defer m.Close()

	require.Len(t, m.Accessors(), 2)
	assert.Equal(t, "like", m.Accessors()[0].Name())
	assert.Equal(t, "follow", m.Accessors()[1].Name())
}

func TestDisassemble(t *testing.T) {
	m, err := CompileBytecode[item](mustParse(t, "-like + 2.5"))
	require.NoError(t, err)
	defer m.Close()

	want := "0000  CALL_ACCESSOR #0 (like)\n" +
		"0002  NEG\n" +
		"0003  PUSH_CONST 2.5\n" +
		"0006  ADD\n"
	assert.Equal(t, want, m.Disassemble())
}

func TestCompileRetainsPerSite(t *testing.T) {
	c := &counter{}
	bindings := []Binding{{Name: "c", Accessor: accessor.MustBind[item]("c", c)}}

	prog, err := Parse("c + c * 2 - c", bindings)
	require.NoError(t, err)

	m, err := CompileBytecode[item](prog)
	require.NoError(t, err)
	assert.Equal(t, 3, c.refs)

	m2, err := CompileBytecode[item](prog)
	require.NoError(t, err)
	assert.Equal(t, 6, c.refs)

	assert.Equal(t, 11.0+22-11, m.Eval(&item{Like: 10}))

	require.NoError(t, m.Close())
	assert.Equal(t, 3, c.refs)
	require.NoError(t, m.Close())
	assert.Equal(t, 3, c.refs)
	require.NoError(t, m2.Close())
	assert.Zero(t, c.refs)
}

func TestCompileTypeMismatch(t *testing.T) {
	c := &counter{}
	bindings := []Binding{
		{Name: "c", Accessor: accessor.MustBind[item]("c", c)},
		{Name: "x", Accessor: accessor.MustBind[stranger]("x", accessor.Field("X"))},
	}
	prog, err := Parse("c + x", bindings)
	require.NoError(t, err)

	m, err := CompileBytecode[item](prog)
	assert.Nil(t, m)
	var tbe *accessor.TypeBindingError
	require.ErrorAs(t, err, &tbe)
	assert.Equal(t, "x", tbe.Name)
	assert.Zero(t, c.refs, "nothing may be retained when compilation fails")
}

func TestCompileInvalidProgram(t *testing.T) {
	e := recoverAs[*InvalidProgramError](t, func() { CompileBytecode[item](nil) })
	assert.Nil(t, e.Node)

	recoverAs[*InvalidProgramError](t, func() { CompileBytecode[item](&Program{}) })
	recoverAs[*InvalidProgramError](t, func() {
		CompileBytecode[item](&Program{First: num(1), Rest: []Operation{{Operator: OpAdd}}})
	})
	recoverAs[*InvalidProgramError](t, func() {
		CompileBytecode[item](&Program{First: num(1), Rest: []Operation{{Operator: '%', Operand: num(2)}}})
	})
	recoverAs[*InvalidProgramError](t, func() { TapeSize(&Signed{Sign: '-'}) })
	recoverAs[*InvalidProgramError](t, func() { StackDepth(nil) })
}

func TestCompilerReuse(t *testing.T) {
	var c Compiler[item]
	m1, err := c.Compile(mustParse(t, "like"))
	require.NoError(t, err)
	m2, err := c.Compile(mustParse(t, "follow + 1"))
	require.NoError(t, err)

	it := &item{Like: 3, Follow: 4}
	assert.Equal(t, 3.0, m1.Eval(it))
	assert.Equal(t, 5.0, m2.Eval(it))
}

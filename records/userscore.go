// Package records holds the UserScore item that scoring formulas run
// against, its standard symbol bindings, and the sources items are loaded
// from and results written to.
package records

import (
	"fmt"
	"slices"
	"sort"

	"github.com/chazu/exprscore/accessor"
	"github.com/chazu/exprscore/compiler"
)

// UserScore is the engagement record of one user.
type UserScore struct {
	ID      string  `cbor:"id,omitempty"`
	Like    float64 `cbor:"like"`
	Follow  float64 `cbor:"follow"`
	Comment float64 `cbor:"comment"`
}

func (u UserScore) Lk() float64  { return u.Like }
func (u UserScore) Fw() float64  { return u.Follow }
func (u UserScore) Cmt() float64 { return u.Comment }

// Reference formulas, paired with their hand-written Go equivalents below.
const (
	Formula1 = "like + follow/comment"
	Formula2 = "like*follow/(comment-follow)*(like+follow)-0.1"
	Formula3 = "(like+follow)*(like+comment)*(follow+comment)/(comment-follow)/(like-follow)/(like-comment)"
)

// Formulas lists the reference formulas in order.
var Formulas = []string{Formula1, Formula2, Formula3}

func Score1(u *UserScore) float64 {
	return u.Like + u.Follow/u.Comment
}

func Score2(u *UserScore) float64 {
	return u.Like*u.Follow/(u.Comment-u.Follow)*(u.Like+u.Follow) - 0.1
}

func Score3(u *UserScore) float64 {
	return (u.Like + u.Follow) * (u.Like + u.Comment) * (u.Follow + u.Comment) /
		(u.Comment - u.Follow) / (u.Like - u.Follow) / (u.Like - u.Comment)
}

// NativeScores lists Score1..Score3, matching Formulas.
var NativeScores = []func(*UserScore) float64{Score1, Score2, Score3}

// Symbols are the names formulas refer to UserScore values by.
var Symbols = []string{"like", "follow", "comment"}

var (
	fieldTargets  = []accessor.Field{"Like", "Follow", "Comment"}
	methodTargets = []accessor.Method{"Lk", "Fw", "Cmt"}
	funcTargets   = []func(*UserScore) float64{
		func(u *UserScore) float64 { return u.Like },
		func(u *UserScore) float64 { return u.Follow },
		func(u *UserScore) float64 { return u.Comment },
	}
)

// Bindings returns the standard bindings for Symbols, every accessor bound
// in the given shape. The three shapes read the same values.
func Bindings(shape accessor.Shape) ([]compiler.Binding, error) {
	out := make([]compiler.Binding, len(Symbols))
	for i, name := range Symbols {
		var callable any
		switch shape {
		case accessor.ShapeField:
			callable = fieldTargets[i]
		case accessor.ShapeMethod:
			callable = methodTargets[i]
		case accessor.ShapeFunc:
			callable = funcTargets[i]
		default:
			return nil, fmt.Errorf("records: no bindings for shape %s", shape)
		}
		a, err := accessor.Bind[UserScore](name, callable)
		if err != nil {
			return nil, err
		}
		out[i] = compiler.Binding{Name: name, Accessor: a}
	}
	return out, nil
}

// Funcs are the free functions a binding can name with the func shape.
var Funcs = map[string]func(*UserScore) float64{
	"like":    funcTargets[0],
	"follow":  funcTargets[1],
	"comment": funcTargets[2],
	"score1":  Score1,
	"score2":  Score2,
	"score3":  Score3,
}

// Target names what a symbol is bound to: a field, a method, or an entry
// of Funcs.
type Target struct {
	Shape accessor.Shape
	Name  string
}

// Override rebinds symbols in base according to targets. Symbols not in
// base are appended in name order, so slots stay deterministic.
func Override(base []compiler.Binding, targets map[string]Target) ([]compiler.Binding, error) {
	out := slices.Clone(base)
	names := make([]string, 0, len(targets))
	for name := range targets {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		a, err := bindTarget(name, targets[name])
		if err != nil {
			return nil, err
		}
		b := compiler.Binding{Name: name, Accessor: a}
		if i := slices.IndexFunc(out, func(b compiler.Binding) bool { return b.Name == name }); i >= 0 {
			out[i] = b
		} else {
			out = append(out, b)
		}
	}
	return out, nil
}

func bindTarget(name string, t Target) (accessor.Accessor, error) {
	switch t.Shape {
	case accessor.ShapeField:
		return accessor.Bind[UserScore](name, accessor.Field(t.Name))
	case accessor.ShapeMethod:
		return accessor.Bind[UserScore](name, accessor.Method(t.Name))
	case accessor.ShapeFunc:
		fn, ok := Funcs[t.Name]
		if !ok {
			return nil, fmt.Errorf("records: %s: no function %q", name, t.Name)
		}
		return accessor.Bind[UserScore](name, fn)
	}
	return nil, fmt.Errorf("records: %s: unknown shape %s", name, t.Shape)
}

// Grammar builds a grammar over the standard bindings in the given shape.
func Grammar(shape accessor.Shape, opts ...compiler.GrammarOption) (*compiler.Grammar, error) {
	bindings, err := Bindings(shape)
	if err != nil {
		return nil, err
	}
	return compiler.NewGrammar(bindings, opts...)
}

// Samples are the sample users the reference benchmarks run over.
var Samples = []UserScore{
	{ID: "u1", Like: 1, Follow: 2, Comment: 3},
	{ID: "u2", Like: 3, Follow: 90, Comment: 876},
	{ID: "u3", Like: 1223343, Follow: 6787545, Comment: 3453432},
}

package accessor

import (
	"errors"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stats struct {
	Views int64
}

type user struct {
	Like    float64
	Follow  float32
	Comment int
	Label   string
	stats
	Owner *stats
}

func (u *user) Lk() float64    { return u.Like }
func (u user) Fw() float32     { return u.Follow }
func (u *user) Twice() float64 { return 2 * u.Like }
func (u *user) Label2() string { return u.Label }

type other struct{ Like float64 }

type counted struct {
	live int
}

func (c *counted) Score(u *user) float64 { return u.Like }
func (c *counted) Retain()               { c.live++ }
func (c *counted) Release()              { c.live-- }

func TestBindShapes(t *testing.T) {
	u := &user{Like: 3.5, Follow: 2, Comment: 7, stats: stats{Views: 11}}

	tests := []struct {
		desc     string
		callable any
		shape    Shape
		want     float64
	}{
		{"float64 field", Field("Like"), ShapeField, 3.5},
		{"float32 field", Field("Follow"), ShapeField, 2},
		{"int field", Field("Comment"), ShapeField, 7},
		{"promoted field", Field("Views"), ShapeField, 11},
		{"pointer method", Method("Lk"), ShapeMethod, 3.5},
		{"value method float32", Method("Fw"), ShapeMethod, 2},
		{"func pointer", func(u *user) float64 { return u.Like }, ShapeFunc, 3.5},
		{"func value", func(u user) float64 { return u.Like }, ShapeFunc, 3.5},
		{"func float32", func(u *user) float32 { return float32(u.Comment) }, ShapeFunc, 7},
		{"scorer", &counted{}, ShapeFunc, 3.5},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			a, err := Bind[user]("x", tt.callable)
			require.NoError(t, err)
			assert.Equal(t, "x", a.Name())
			assert.Equal(t, tt.shape, a.Shape())
			assert.Equal(t, reflect.TypeFor[user](), a.ItemType())
			assert.Equal(t, tt.want, a.Eval(u))
		})
	}
}

func TestShapesAgree(t *testing.T) {
	field := MustBind[user]("like", Field("Like"))
	method := MustBind[user]("like", Method("Lk"))
	fn := MustBind[user]("like", func(u *user) float64 { return u.Like })

	for _, like := range []float64{0, 1, -2.25, 1e9} {
		u := &user{Like: like}
		assert.Equal(t, field.Eval(u), method.Eval(u))
		assert.Equal(t, field.Eval(u), fn.Eval(u))
	}
}

func TestBindErrors(t *testing.T) {
	tests := []struct {
		desc     string
		callable any
		got      reflect.Type
	}{
		{"missing field", Field("Nope"), nil},
		{"string field", Field("Label"), nil},
		{"field behind pointer", Field("Owner"), nil},
		{"missing method", Method("Nope"), nil},
		{"method wrong result", Method("Label2"), nil},
		{"other item type", func(o *other) float64 { return o.Like }, reflect.TypeFor[other]()},
		{"other item by value", func(o other) float64 { return o.Like }, reflect.TypeFor[other]()},
		{"wrong result", func(u *user) string { return "" }, nil},
		{"not callable", 42, nil},
		{"plain string", "Like", nil},
		{"nil", nil, nil},
		{"nil func", (func(*user) float64)(nil), nil},
		{"nil func by value", (func(user) float64)(nil), nil},
		{"nil float32 func", (func(*user) float32)(nil), nil},
		{"nil float32 func by value", (func(user) float32)(nil), nil},
		{"nil scorer", (*counted)(nil), nil},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			a, err := Bind[user]("x", tt.callable)
			require.Error(t, err)
			assert.Nil(t, a)

			var tbe *TypeBindingError
			require.True(t, errors.As(err, &tbe), "want *TypeBindingError, got %T", err)
			assert.Equal(t, "x", tbe.Name)
			assert.Equal(t, reflect.TypeFor[user](), tbe.Want)
			assert.Equal(t, tt.got, tbe.Got)
			assert.NotEmpty(t, tbe.Error())
		})
	}
}

func TestBindNilFuncReportsNilCallable(t *testing.T) {
	var f func(*user) float64
	_, err := Bind[user]("x", f)
	var tbe *TypeBindingError
	require.ErrorAs(t, err, &tbe)
	assert.Equal(t, "nil callable", tbe.Reason)
}

func TestFieldOfNonStruct(t *testing.T) {
	_, err := Bind[float64]("x", Field("Like"))
	var tbe *TypeBindingError
	require.ErrorAs(t, err, &tbe)
}

func TestAs(t *testing.T) {
	a := MustBind[user]("like", Field("Like"))

	typed, err := As[user](a)
	require.NoError(t, err)
	assert.Equal(t, 1.5, typed.Eval(&user{Like: 1.5}))

	_, err = As[other](a)
	var tbe *TypeBindingError
	require.ErrorAs(t, err, &tbe)
	assert.Equal(t, reflect.TypeFor[other](), tbe.Want)
	assert.Equal(t, reflect.TypeFor[user](), tbe.Got)

	_, err = As[user](nil)
	require.ErrorAs(t, err, &tbe)
}

func TestRetainRelease(t *testing.T) {
	c := &counted{}
	a := MustBind[user]("like", c)
	assert.False(t, Trivial(a))

	Retain(a)
	Retain(a)
	assert.Equal(t, 2, c.live)
	Release(a)
	Release(a)
	assert.Equal(t, 0, c.live)

	plain := MustBind[user]("like", Field("Like"))
	assert.True(t, Trivial(plain))
	Retain(plain) // no-op
	Release(plain)
}

func TestEvalDoesNotAllocate(t *testing.T) {
	u := &user{Like: 1, Follow: 2}
	for _, callable := range []any{Field("Like"), Method("Lk"), Method("Fw"), func(u *user) float64 { return u.Like }} {
		a := MustBind[user]("x", callable)
		allocs := testing.AllocsPerRun(100, func() { _ = a.Eval(u) })
		assert.Zero(t, allocs, "%v", a)
	}
}

func TestMustBindPanics(t *testing.T) {
	assert.Panics(t, func() { MustBind[user]("x", Field("Nope")) })
}

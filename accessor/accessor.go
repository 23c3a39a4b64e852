// Package accessor binds symbol names to float-producing operations on an
// item type.
//
// An accessor is bound exactly once, to exactly one of three callable
// shapes:
//
//   - a data field of the item (Field("Like"))
//   - a zero-argument method of the item (Method("Lk"))
//   - a free unary callable taking the item (func(*T) float64, func(T) float64,
//     or a Scorer[T] functor)
//
// The shape is resolved when Bind runs. Evaluation goes straight to a
// precomputed field offset or a typed function value, so there is no
// per-call dispatch on the shape and no reflection on the hot path.
//
// Accessors are stored type-erased in the AST (Accessor) and recovered as
// Typed[T] by the evaluators when they are built. A mismatch between the
// accessor's item type and the evaluator's item type is a *TypeBindingError
// at bind or compile time; it is never deferred to evaluation.
package accessor

import (
	"fmt"
	"reflect"
	"unsafe"
)

// Shape identifies the kind of callable an accessor was bound to.
type Shape uint8

const (
	ShapeField  Shape = iota // data field of the item
	ShapeMethod              // zero-argument method of the item
	ShapeFunc                // free unary callable taking the item
)

var shapeNames = [...]string{
	ShapeField:  "field",
	ShapeMethod: "method",
	ShapeFunc:   "func",
}

func (s Shape) String() string {
	if int(s) < len(shapeNames) {
		return shapeNames[s]
	}
	return fmt.Sprintf("Shape(%d)", s)
}

// Accessor is a bound reference producing a float from an item, with its
// item type erased. Only this package implements it.
type Accessor interface {
	// Name is the symbol the accessor was bound under.
	Name() string
	// Shape reports which callable shape the accessor was bound to.
	Shape() Shape
	// ItemType is the item type the accessor reads from.
	ItemType() reflect.Type

	sealed()
}

// Typed is an Accessor whose item type is known to be T.
type Typed[T any] interface {
	Accessor
	Eval(item *T) float64
}

// Field names a data field of the item type. The field must be float64,
// float32, int, int32 or int64 (or a named type with one of those kinds).
type Field string

// Method names a zero-argument method of the item type returning float64
// or float32. Both value and pointer receivers are accepted.
type Method string

// Scorer is a functor object usable as a free callable.
type Scorer[T any] interface {
	Score(item *T) float64
}

// Retainer is implemented by callables that own resources and must be told
// when a compiled program starts and stops referring to them. Accessors
// bound to a Retainer forward both calls; such accessors are the
// non-trivially-copyable ones that vm.Machine releases on Close.
type Retainer interface {
	Retain()
	Release()
}

// Bind binds name to callable over item type T.
func Bind[T any](name string, callable any) (Typed[T], error) {
	switch c := callable.(type) {
	case Field:
		return bindField[T](name, string(c))
	case Method:
		return bindMethod[T](name, string(c))
	case func(*T) float64:
		if c == nil {
			return nil, nilCallable[T](name)
		}
		return &funcAccessor[T]{name: name, call: c}, nil
	case func(T) float64:
		if c == nil {
			return nil, nilCallable[T](name)
		}
		return &funcAccessor[T]{name: name, call: func(item *T) float64 { return c(*item) }}, nil
	case func(*T) float32:
		if c == nil {
			return nil, nilCallable[T](name)
		}
		return &funcAccessor[T]{name: name, call: func(item *T) float64 { return float64(c(item)) }}, nil
	case func(T) float32:
		if c == nil {
			return nil, nilCallable[T](name)
		}
		return &funcAccessor[T]{name: name, call: func(item *T) float64 { return float64(c(*item)) }}, nil
	case Scorer[T]:
		if v := reflect.ValueOf(c); v.Kind() == reflect.Pointer && v.IsNil() {
			return nil, nilCallable[T](name)
		}
		fn := funcAccessor[T]{name: name, call: c.Score}
		if r, ok := c.(Retainer); ok {
			return &retainingAccessor[T]{funcAccessor: fn, owner: r}, nil
		}
		return &fn, nil
	}
	return nil, unsupported[T](name, callable)
}

// MustBind is like Bind but panics on error. Intended for package-level
// binding tables.
func MustBind[T any](name string, callable any) Typed[T] {
	a, err := Bind[T](name, callable)
	if err != nil {
		panic(err)
	}
	return a
}

// As recovers the typed form of a. It fails with a *TypeBindingError when a
// was bound against an item type other than T.
func As[T any](a Accessor) (Typed[T], error) {
	if a == nil {
		return nil, &TypeBindingError{Want: reflect.TypeFor[T](), Reason: "nil accessor"}
	}
	if t, ok := a.(Typed[T]); ok {
		return t, nil
	}
	return nil, &TypeBindingError{Name: a.Name(), Want: reflect.TypeFor[T](), Got: a.ItemType()}
}

// Retain tells a non-trivial accessor that one more program refers to it.
func Retain(a Accessor) {
	if r, ok := a.(Retainer); ok {
		r.Retain()
	}
}

// Release undoes one Retain.
func Release(a Accessor) {
	if r, ok := a.(Retainer); ok {
		r.Release()
	}
}

// Trivial reports whether a can be copied and dropped without bookkeeping.
func Trivial(a Accessor) bool {
	_, ok := a.(Retainer)
	return !ok
}

func nilCallable[T any](name string) error {
	return &TypeBindingError{Name: name, Want: reflect.TypeFor[T](), Reason: "nil callable"}
}

// unsupported builds the error for a callable no shape accepts. When the
// callable is a unary function its declared input type is reported.
func unsupported[T any](name string, callable any) error {
	want := reflect.TypeFor[T]()
	if callable == nil {
		return nilCallable[T](name)
	}
	ct := reflect.TypeOf(callable)
	if ct.Kind() == reflect.Func && ct.NumIn() == 1 {
		in := ct.In(0)
		if in.Kind() == reflect.Pointer {
			in = in.Elem()
		}
		if in != want {
			return &TypeBindingError{Name: name, Want: want, Got: in}
		}
		return &TypeBindingError{Name: name, Want: want,
			Reason: fmt.Sprintf("callable %s must return float64 or float32", ct)}
	}
	return &TypeBindingError{Name: name, Want: want, Reason: fmt.Sprintf("unsupported callable %s", ct)}
}

// ---------------------------------------------------------------------------
// Field accessors
// ---------------------------------------------------------------------------

type fieldAccessor[T any] struct {
	name   string
	field  string
	offset uintptr
	read   func(unsafe.Pointer) float64
}

// fieldReaders maps the supported field kinds to their loads.
var fieldReaders = map[reflect.Kind]func(unsafe.Pointer) float64{
	reflect.Float64: func(p unsafe.Pointer) float64 { return *(*float64)(p) },
	reflect.Float32: func(p unsafe.Pointer) float64 { return float64(*(*float32)(p)) },
	reflect.Int:     func(p unsafe.Pointer) float64 { return float64(*(*int)(p)) },
	reflect.Int32:   func(p unsafe.Pointer) float64 { return float64(*(*int32)(p)) },
	reflect.Int64:   func(p unsafe.Pointer) float64 { return float64(*(*int64)(p)) },
}

func bindField[T any](name, field string) (Typed[T], error) {
	t := reflect.TypeFor[T]()
	if t.Kind() != reflect.Struct {
		return nil, &TypeBindingError{Name: name, Want: t,
			Reason: fmt.Sprintf("field %s: %s is not a struct", field, t)}
	}
	sf, ok := t.FieldByName(field)
	if !ok {
		return nil, &TypeBindingError{Name: name, Want: t,
			Reason: fmt.Sprintf("%s has no field %s", t, field)}
	}

	// Sum offsets down the embedding path; embedded pointers would need a
	// load per step and are rejected.
	var offset uintptr
	cur := t
	for i, idx := range sf.Index {
		f := cur.Field(idx)
		offset += f.Offset
		if i < len(sf.Index)-1 {
			if f.Type.Kind() != reflect.Struct {
				return nil, &TypeBindingError{Name: name, Want: t,
					Reason: fmt.Sprintf("field %s is promoted through embedded pointer %s", field, f.Name)}
			}
			cur = f.Type
		}
	}

	read, ok := fieldReaders[sf.Type.Kind()]
	if !ok {
		return nil, &TypeBindingError{Name: name, Want: t,
			Reason: fmt.Sprintf("field %s has type %s, want a float or integer", field, sf.Type)}
	}
	return &fieldAccessor[T]{name: name, field: field, offset: offset, read: read}, nil
}

func (a *fieldAccessor[T]) Name() string           { return a.name }
func (a *fieldAccessor[T]) Shape() Shape           { return ShapeField }
func (a *fieldAccessor[T]) ItemType() reflect.Type { return reflect.TypeFor[T]() }
func (a *fieldAccessor[T]) sealed()                {}

func (a *fieldAccessor[T]) Eval(item *T) float64 {
	return a.read(unsafe.Add(unsafe.Pointer(item), a.offset))
}

func (a *fieldAccessor[T]) String() string { return fmt.Sprintf("%s=field(%s)", a.name, a.field) }

// ---------------------------------------------------------------------------
// Method accessors
// ---------------------------------------------------------------------------

type methodAccessor[T any] struct {
	name   string
	method string
	call   func(*T) float64
}

func bindMethod[T any](name, method string) (Typed[T], error) {
	t := reflect.TypeFor[T]()
	m, ok := reflect.PointerTo(t).MethodByName(method)
	if !ok {
		return nil, &TypeBindingError{Name: name, Want: t,
			Reason: fmt.Sprintf("%s has no method %s", t, method)}
	}

	// The method expression is a plain func value whose first parameter is
	// the receiver, so evaluation never goes back through reflect.
	var call func(*T) float64
	switch fn := m.Func.Interface().(type) {
	case func(*T) float64:
		call = fn
	case func(*T) float32:
		call = func(item *T) float64 { return float64(fn(item)) }
	default:
		return nil, &TypeBindingError{Name: name, Want: t,
			Reason: fmt.Sprintf("method %s has type %s, want func() float64", method, m.Type)}
	}
	return &methodAccessor[T]{name: name, method: method, call: call}, nil
}

func (a *methodAccessor[T]) Name() string           { return a.name }
func (a *methodAccessor[T]) Shape() Shape           { return ShapeMethod }
func (a *methodAccessor[T]) ItemType() reflect.Type { return reflect.TypeFor[T]() }
func (a *methodAccessor[T]) sealed()                {}
func (a *methodAccessor[T]) Eval(item *T) float64   { return a.call(item) }

func (a *methodAccessor[T]) String() string { return fmt.Sprintf("%s=method(%s)", a.name, a.method) }

// ---------------------------------------------------------------------------
// Function accessors
// ---------------------------------------------------------------------------

type funcAccessor[T any] struct {
	name string
	call func(*T) float64
}

func (a *funcAccessor[T]) Name() string           { return a.name }
func (a *funcAccessor[T]) Shape() Shape           { return ShapeFunc }
func (a *funcAccessor[T]) ItemType() reflect.Type { return reflect.TypeFor[T]() }
func (a *funcAccessor[T]) sealed()                {}
func (a *funcAccessor[T]) Eval(item *T) float64   { return a.call(item) }

func (a *funcAccessor[T]) String() string { return fmt.Sprintf("%s=func", a.name) }

// retainingAccessor is a function accessor whose functor owns resources.
type retainingAccessor[T any] struct {
	funcAccessor[T]
	owner Retainer
}

func (a *retainingAccessor[T]) Retain()  { a.owner.Retain() }
func (a *retainingAccessor[T]) Release() { a.owner.Release() }

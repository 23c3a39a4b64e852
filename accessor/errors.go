package accessor

import (
	"fmt"
	"reflect"
)

// TypeBindingError reports a callable that cannot be bound against, or
// used with, the requested item type.
type TypeBindingError struct {
	Name   string       // symbol being bound
	Want   reflect.Type // item type of the binding or evaluator
	Got    reflect.Type // item type the callable declares, if known
	Reason string       // set when Got does not explain the failure
}

func (e *TypeBindingError) Error() string {
	if e.Got != nil {
		return fmt.Sprintf("accessor %q: takes %s, item type is %s", e.Name, e.Got, e.Want)
	}
	return fmt.Sprintf("accessor %q: %s", e.Name, e.Reason)
}

// Package extension holds the pluggable surface of the approval engine:
// lifecycle policy hooks and a type registry for loosely-typed payloads.
package extension

import (
	"reflect"

	"github.com/viant/approvals/model"
	"github.com/viant/x"
)

// Types registers the Go types loosely-typed submissions may convert into.
type Types struct {
	x.Registry
}

// Lookup returns a registered type by name, or nil.
func (t *Types) Lookup(name string) *x.Type {
	return t.Registry.Lookup(name)
}

// NewTypes creates a type registry pre-populated with the engine's payload
// types.
func NewTypes(options ...x.RegistryOption) *Types {
	result := &Types{
		Registry: *x.NewRegistry(options...),
	}
	for _, rType := range []reflect.Type{
		reflect.TypeOf(model.WorkflowSpec{}),
		reflect.TypeOf(model.WorkflowContext{}),
		reflect.TypeOf(model.Decision{}),
	} {
		result.Registry.Register(x.NewType(rType, x.WithName(rType.Name())))
	}
	return result
}

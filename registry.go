package graceful

import (
	"fmt"
	"iter"
	"reflect"
)

// Entry pairs a declaration with the name it is registered under.
type Entry[D any] struct {
	Name string
	Decl D
}

// Declare names a field or parameter declaration.
func Declare[D any](name string, decl D) Entry[D] {
	return Entry[D]{Name: name, Decl: decl}
}

// DeclareField names a field declaration.
func DeclareField(name string, f Field) Entry[Field] {
	return Entry[Field]{Name: name, Decl: f}
}

// DeclareParam names a parameter declaration.
func DeclareParam(name string, p Param) Entry[Param] {
	return Entry[Param]{Name: name, Decl: p}
}

// Fields builds a field registry with no bases.
func Fields(entries ...Entry[Field]) *Registry[Field] {
	return NewRegistry(nil, entries...)
}

// Params builds a parameter registry with no bases.
func Params(entries ...Entry[Param]) *Registry[Param] {
	return NewRegistry(nil, entries...)
}

// Registry is an ordered name → declaration mapping. It is built once and
// never mutated afterwards, so it can be shared by concurrent callers.
type Registry[D any] struct {
	names []string
	decls map[string]D
}

// NewRegistry merges the entries of bases, in the order given, and then
// the entries declared here. A name that is already present keeps the
// position of its earliest declaration and takes the latest value.
//
// An empty name or a nil declaration panics with ErrDeclaration.
func NewRegistry[D any](bases []*Registry[D], entries ...Entry[D]) *Registry[D] {
	r := &Registry[D]{decls: make(map[string]D)}

	for _, base := range bases {
		if base == nil {
			continue
		}
		for _, name := range base.names {
			r.put(name, base.decls[name])
		}
	}

	for _, e := range entries {
		if e.Name == "" {
			panic(fmt.Errorf("%w: empty name", ErrDeclaration))
		}
		if isNil(e.Decl) {
			panic(fmt.Errorf("%w: %s: nil declaration", ErrDeclaration, e.Name))
		}
		r.put(e.Name, e.Decl)
	}

	return r
}

func (r *Registry[D]) put(name string, decl D) {
	if _, ok := r.decls[name]; !ok {
		r.names = append(r.names, name)
	}
	r.decls[name] = decl
}

// Extend returns a new registry that inherits from r.
func (r *Registry[D]) Extend(entries ...Entry[D]) *Registry[D] {
	return NewRegistry([]*Registry[D]{r}, entries...)
}

// Get returns the declaration registered under name.
func (r *Registry[D]) Get(name string) (D, bool) {
	if r == nil {
		var zero D
		return zero, false
	}
	d, ok := r.decls[name]
	return d, ok
}

// Has reports whether name is registered.
func (r *Registry[D]) Has(name string) bool {
	_, ok := r.Get(name)
	return ok
}

// Names returns the registered names in order.
func (r *Registry[D]) Names() []string {
	if r == nil {
		return nil
	}
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// Len returns the number of registered declarations.
func (r *Registry[D]) Len() int {
	if r == nil {
		return 0
	}
	return len(r.names)
}

// All iterates the declarations in registry order.
func (r *Registry[D]) All() iter.Seq2[string, D] {
	return func(yield func(string, D) bool) {
		if r == nil {
			return
		}
		for _, name := range r.names {
			if !yield(name, r.decls[name]) {
				return
			}
		}
	}
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	//exhaustive:ignore
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return rv.IsNil()
	default:
		return false
	}
}

package graceful

import (
	"errors"
	"fmt"
	"maps"
	"reflect"
	"slices"
)

// Representation is the decoded wire form of one resource, e.g. a parsed
// JSON object.
type Representation = map[string]any

// ValidateFunc checks whole-object invariants after every field has been
// coerced and validated. It returns a *ValidationError on failure.
type ValidateFunc func(obj Object, partial bool) error

// Serializer converts resource instances to and from their representation
// using a registry of field declarations. It holds no per-call state.
type Serializer struct {
	fields   *Registry[Field]
	factory  func() Object
	validate ValidateFunc
}

// SerializerOption configures a Serializer.
type SerializerOption func(*Serializer)

// WithFactory sets the constructor for the instances FromRepresentation
// populates. The default creates a Map.
func WithFactory(fn func() Object) SerializerOption {
	return func(s *Serializer) {
		s.factory = fn
	}
}

// WithValidate sets the whole-object validation hook.
func WithValidate(fn ValidateFunc) SerializerOption {
	return func(s *Serializer) {
		s.validate = fn
	}
}

// NewSerializer creates a Serializer for the given fields.
func NewSerializer(fields *Registry[Field], opts ...SerializerOption) *Serializer {
	if fields == nil {
		fields = NewRegistry[Field](nil)
	}
	s := &Serializer{
		fields:  fields,
		factory: NewMap,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Fields returns the field registry.
func (s *Serializer) Fields() *Registry[Field] { return s.fields }

// ToRepresentation renders instance field by field in registry order.
// Absent attributes become nil, or an empty list for many-valued fields.
// Write-only fields are omitted.
func (s *Serializer) ToRepresentation(instance Object) (Representation, error) {
	rep := make(Representation, s.fields.Len())

	for name, f := range s.fields.All() {
		base := f.Base()
		if base.WriteOnly {
			continue
		}

		value := attribute(instance, sourceOf(name, base))
		if value == nil {
			if base.Many {
				rep[name] = []any{}
			} else {
				rep[name] = nil
			}
			continue
		}

		if !base.Many {
			out, err := f.ToRepresentation(value)
			if err != nil {
				return nil, fmt.Errorf("represent %s: %w", name, err)
			}
			rep[name] = out
			continue
		}

		items, ok := asSlice(value)
		if !ok {
			return nil, fmt.Errorf("represent %s: %w: %T is not a list", name, ErrCoercion, value)
		}
		out := make([]any, len(items))
		for i, item := range items {
			v, err := f.ToRepresentation(item)
			if err != nil {
				return nil, fmt.Errorf("represent %s[%d]: %w", name, i, err)
			}
			out[i] = v
		}
		rep[name] = out
	}

	return rep, nil
}

// FromRepresentation builds a new instance from rep.
//
// Every problem is collected before anything is returned: required fields
// that are absent (unless partial), fields that are unknown or read-only,
// values that cannot be coerced, and values rejected by field validators.
// Any of these yields a single *DeserializationError and no instance. A value
// the instance cannot hold without loss, such as -5 for an unsigned struct
// field, is reported as failed too.
// The whole-object hook runs only once all fields have succeeded.
func (s *Serializer) FromRepresentation(rep Representation, partial bool) (Object, error) {
	errs := &DeserializationError{}

	for name, f := range s.fields.All() {
		if partial || f.Base().ReadOnly {
			continue
		}
		if _, ok := rep[name]; !ok {
			errs.Missing = append(errs.Missing, name)
		}
	}

	for _, name := range slices.Sorted(maps.Keys(rep)) {
		f, ok := s.fields.Get(name)
		if !ok || f.Base().ReadOnly {
			errs.Forbidden = append(errs.Forbidden, name)
		}
	}

	values := make(map[string]any, len(rep))
	for name, f := range s.fields.All() {
		raw, ok := rep[name]
		if !ok || f.Base().ReadOnly {
			continue
		}

		value, err := coerceField(f, raw)
		switch {
		case err == nil:
			values[name] = value
		case errors.Is(err, ErrCoercion):
			if errs.Failed == nil {
				errs.Failed = make(map[string]string)
			}
			errs.Failed[name] = err.Error()
		default:
			if errs.Invalid == nil {
				errs.Invalid = make(map[string]string)
			}
			errs.Invalid[name] = err.Error()
		}
	}

	if !errs.Empty() {
		return nil, errs
	}

	obj := s.factory()
	for name, f := range s.fields.All() {
		value, ok := values[name]
		if !ok {
			continue
		}
		src := sourceOf(name, f.Base())
		if src == WildcardSource {
			src = name
		}
		if err := obj.Set(src, value); err != nil {
			if !errors.Is(err, ErrCoercion) {
				return nil, fmt.Errorf("set %s: %w", src, err)
			}
			if errs.Failed == nil {
				errs.Failed = make(map[string]string)
			}
			errs.Failed[name] = err.Error()
		}
	}
	if !errs.Empty() {
		return nil, errs
	}

	if err := s.Validate(obj, partial); err != nil {
		return nil, err
	}

	return obj, nil
}

// Validate runs the whole-object hook, if any.
func (s *Serializer) Validate(obj Object, partial bool) error {
	if s.validate == nil {
		return nil
	}
	return s.validate(obj, partial)
}

// Describe documents every field in registry order.
func (s *Serializer) Describe() Descriptions {
	out := make(Descriptions, 0, s.fields.Len())
	for name, f := range s.fields.All() {
		out = append(out, Described{Name: name, Description: f.Describe()})
	}
	return out
}

// coerceField parses raw and runs the field validators. Coercion failures
// wrap ErrCoercion; anything else came from a validator.
func coerceField(f Field, raw any) (any, error) {
	base := f.Base()

	if !base.Many {
		v, err := f.FromRepresentation(raw)
		if err != nil {
			return nil, asCoercion(err)
		}
		if err := runValidators(base.Validators, v); err != nil {
			return nil, err
		}
		return v, nil
	}

	items, ok := asSlice(raw)
	if !ok {
		return nil, fmt.Errorf("%w: %v is not a list", ErrCoercion, raw)
	}
	out := make([]any, len(items))
	for i, item := range items {
		v, err := f.FromRepresentation(item)
		if err != nil {
			return nil, asCoercion(err)
		}
		if err := runValidators(base.Validators, v); err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func asCoercion(err error) error {
	if errors.Is(err, ErrCoercion) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrCoercion, err)
}

func sourceOf(name string, f *BaseField) string {
	if f.Source != "" {
		return f.Source
	}
	return name
}

func attribute(instance Object, source string) any {
	if source == WildcardSource {
		if instance == nil {
			return nil
		}
		return instance
	}
	if instance == nil {
		return nil
	}
	v, ok := instance.Get(source)
	if !ok {
		return nil
	}
	return v
}

func asSlice(v any) ([]any, bool) {
	if s, ok := v.([]any); ok {
		return s, true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range rv.Len() {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

package graceful

import (
	"fmt"
	"math"
	"reflect"
	"strings"
)

// Object is the internal form of one resource instance. The serializer
// only reads and writes named attributes through it.
type Object interface {
	// Get returns the attribute stored under name. A nil value is treated
	// as absent.
	Get(name string) (any, bool)
	// Set stores value under name.
	Set(name string, value any) error
}

// Map is a map-backed Object.
type Map map[string]any

// Get returns the value stored under name.
func (m Map) Get(name string) (any, bool) {
	v, ok := m[name]
	return v, ok
}

// Set stores value under name.
func (m Map) Set(name string, value any) error {
	m[name] = value
	return nil
}

// NewMap is the default instance factory.
func NewMap() Object { return Map{} }

// StructObject is a struct-backed Object. Attributes are matched by json
// tag name, falling back to the Go field name.
type StructObject struct {
	v      reflect.Value
	fields map[string]int
}

// Struct wraps a pointer to a struct. It panics if ptr is anything else.
func Struct(ptr any) *StructObject {
	rv := reflect.ValueOf(ptr)
	if rv.Kind() != reflect.Pointer || rv.IsNil() || rv.Elem().Kind() != reflect.Struct {
		panic(fmt.Sprintf("graceful: Struct requires a non-nil pointer to a struct, got %T", ptr))
	}

	elem := rv.Elem()
	t := elem.Type()
	fields := make(map[string]int, t.NumField())
	for i := range t.NumField() {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name := jsonFieldName(f)
		if name == "-" {
			continue
		}
		fields[name] = i
	}

	return &StructObject{v: elem, fields: fields}
}

// Value returns the wrapped pointer.
func (s *StructObject) Value() any { return s.v.Addr().Interface() }

// Get returns the field value for name. Nil pointers, slices and maps
// are reported as nil.
func (s *StructObject) Get(name string) (any, bool) {
	i, ok := s.fields[name]
	if !ok {
		return nil, false
	}
	fv := s.v.Field(i)
	//exhaustive:ignore
	switch fv.Kind() {
	case reflect.Pointer:
		if fv.IsNil() {
			return nil, true
		}
		return fv.Elem().Interface(), true
	case reflect.Slice, reflect.Map, reflect.Interface:
		if fv.IsNil() {
			return nil, true
		}
	}
	return fv.Interface(), true
}

// Set converts value to the field's type and stores it.
func (s *StructObject) Set(name string, value any) error {
	i, ok := s.fields[name]
	if !ok {
		return fmt.Errorf("%s has no attribute %q", s.v.Type(), name)
	}
	if err := assign(s.v.Field(i), value); err != nil {
		return fmt.Errorf("%s.%s: %w", s.v.Type(), name, err)
	}
	return nil
}

func assign(dst reflect.Value, value any) error {
	if value == nil {
		dst.SetZero()
		return nil
	}

	v := reflect.ValueOf(value)
	switch {
	case v.Type().AssignableTo(dst.Type()):
		dst.Set(v)
		return nil
	case dst.Kind() == reflect.Pointer:
		ptr := reflect.New(dst.Type().Elem())
		if err := assign(ptr.Elem(), value); err != nil {
			return err
		}
		dst.Set(ptr)
		return nil
	case dst.Kind() == reflect.Slice && v.Kind() == reflect.Slice:
		out := reflect.MakeSlice(dst.Type(), v.Len(), v.Len())
		for i := range v.Len() {
			if err := assign(out.Index(i), v.Index(i).Interface()); err != nil {
				return err
			}
		}
		dst.Set(out)
		return nil
	case isNumericKind(v.Kind()) && isNumericKind(dst.Kind()):
		return assignNumber(dst, v)
	case v.Kind() == dst.Kind() && v.Type().ConvertibleTo(dst.Type()):
		dst.Set(v.Convert(dst.Type()))
		return nil
	default:
		return fmt.Errorf("cannot assign %T to %s", value, dst.Type())
	}
}

// assignNumber stores v in dst only when the value survives the conversion
// unchanged. Sign, range and fractional loss are coercion errors.
func assignNumber(dst, v reflect.Value) error {
	//exhaustive:ignore
	switch dst.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		var n int64
		switch {
		case v.CanInt():
			n = v.Int()
		case v.CanUint():
			if v.Uint() > math.MaxInt64 {
				return fmt.Errorf("%w: %v overflows %s", ErrCoercion, v, dst.Type())
			}
			n = int64(v.Uint())
		default:
			f := v.Float()
			if f != math.Trunc(f) || math.IsInf(f, 0) {
				return fmt.Errorf("%w: %v is not a whole number", ErrCoercion, v)
			}
			if f >= math.MaxInt64 || f < math.MinInt64 {
				return fmt.Errorf("%w: %v overflows %s", ErrCoercion, v, dst.Type())
			}
			n = int64(f)
		}
		if dst.OverflowInt(n) {
			return fmt.Errorf("%w: %v overflows %s", ErrCoercion, v, dst.Type())
		}
		dst.SetInt(n)

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		var n uint64
		switch {
		case v.CanInt():
			if v.Int() < 0 {
				return fmt.Errorf("%w: %v is negative, %s is unsigned", ErrCoercion, v, dst.Type())
			}
			n = uint64(v.Int())
		case v.CanUint():
			n = v.Uint()
		default:
			f := v.Float()
			if f != math.Trunc(f) || math.IsInf(f, 0) {
				return fmt.Errorf("%w: %v is not a whole number", ErrCoercion, v)
			}
			if f < 0 {
				return fmt.Errorf("%w: %v is negative, %s is unsigned", ErrCoercion, v, dst.Type())
			}
			if f >= math.MaxUint64 {
				return fmt.Errorf("%w: %v overflows %s", ErrCoercion, v, dst.Type())
			}
			n = uint64(f)
		}
		if dst.OverflowUint(n) {
			return fmt.Errorf("%w: %v overflows %s", ErrCoercion, v, dst.Type())
		}
		dst.SetUint(n)

	default:
		var f float64
		switch {
		case v.CanInt():
			f = float64(v.Int())
		case v.CanUint():
			f = float64(v.Uint())
		default:
			f = v.Float()
		}
		if dst.OverflowFloat(f) {
			return fmt.Errorf("%w: %v overflows %s", ErrCoercion, v, dst.Type())
		}
		dst.SetFloat(f)
	}
	return nil
}

func isNumericKind(k reflect.Kind) bool {
	//exhaustive:ignore
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	default:
		return false
	}
}

// jsonFieldName returns the JSON field name for a struct field.
func jsonFieldName(f reflect.StructField) string {
	tag := f.Tag.Get("json")
	if tag == "" {
		return f.Name
	}
	name, _, _ := strings.Cut(tag, ",")
	if name == "" {
		return f.Name
	}
	return name
}

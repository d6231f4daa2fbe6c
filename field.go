package graceful

import (
	"encoding/json"
	"math"
	"reflect"
	"strconv"
	"strings"
)

// WildcardSource makes a field read the whole instance instead of one attribute.
const WildcardSource = "*"

// Field converts one attribute between its wire representation and its
// internal value. Implementations embed BaseField.
type Field interface {
	// FromRepresentation parses a wire value. It returns an error wrapping
	// ErrCoercion when the value cannot be parsed as the field's type.
	FromRepresentation(data any) (any, error)
	// ToRepresentation renders an internal value in its canonical wire form.
	ToRepresentation(value any) (any, error)
	// Describe documents the field.
	Describe() Description
	// Base exposes the shared declaration. It must not be modified.
	Base() *BaseField
}

// BaseField holds the declaration shared by every field type.
type BaseField struct {
	Type       string
	Details    string
	Label      string
	Source     string
	Many       bool
	ReadOnly   bool
	WriteOnly  bool
	Validators []Validator
	Spec       *SpecRef
}

func newBaseField(typ, details string, d *declaration) BaseField {
	return BaseField{
		Type:       typ,
		Details:    details,
		Label:      d.label,
		Source:     d.source,
		Many:       d.many,
		ReadOnly:   d.readOnly,
		WriteOnly:  d.writeOnly,
		Validators: d.validators,
		Spec:       d.spec,
	}
}

// Base returns the field declaration.
func (f *BaseField) Base() *BaseField { return f }

// Validate runs every validator on a coerced value and returns the first failure.
func (f *BaseField) Validate(value any) error {
	return runValidators(f.Validators, value)
}

// Describe returns label, details, type, spec and access flags.
func (f *BaseField) Describe() Description {
	typ := f.Type
	if f.Many {
		typ = "list of " + typ
	}
	return Description{
		"label":      nilIfEmpty(f.Label),
		"details":    cleanDoc(f.Details),
		"type":       typ,
		"spec":       f.Spec,
		"read_only":  f.ReadOnly,
		"write_only": f.WriteOnly,
	}
}

// RawField passes values through unchanged in both directions.
type RawField struct {
	BaseField
}

// NewRawField declares a passthrough field.
func NewRawField(details string, opts ...Option) *RawField {
	return &RawField{BaseField: newBaseField("string", details, newDeclaration(opts))}
}

// FromRepresentation returns data unchanged.
func (f *RawField) FromRepresentation(data any) (any, error) { return data, nil }

// ToRepresentation returns value unchanged.
func (f *RawField) ToRepresentation(value any) (any, error) { return value, nil }

// StringField coerces scalar wire values to strings.
type StringField struct {
	BaseField
}

// NewStringField declares a string field.
func NewStringField(details string, opts ...Option) *StringField {
	return &StringField{BaseField: newBaseField("string", details, newDeclaration(opts))}
}

// FromRepresentation accepts strings, numbers and booleans.
func (f *StringField) FromRepresentation(data any) (any, error) {
	return coerceString(data)
}

// ToRepresentation renders value as a string.
func (f *StringField) ToRepresentation(value any) (any, error) {
	return coerceString(value)
}

func coerceString(v any) (string, error) {
	switch s := v.(type) {
	case string:
		return s, nil
	case json.Number:
		return s.String(), nil
	case bool:
		return strconv.FormatBool(s), nil
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64), nil
	case float32:
		return strconv.FormatFloat(float64(s), 'f', -1, 32), nil
	}

	rv := reflect.ValueOf(v)
	//exhaustive:ignore
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(rv.Uint(), 10), nil
	case reflect.String:
		return rv.String(), nil
	default:
		return "", fail(v, "string")
	}
}

var (
	defaultTrueTokens  = []string{"true", "t", "1"}
	defaultFalseTokens = []string{"false", "f", "0", "0.0"}
)

// BoolField parses common true/false spellings. When custom representations
// are configured they become the only accepted input tokens and the output
// tokens.
type BoolField struct {
	BaseField
	representations *[2]any
}

// NewBoolField declares a boolean field. Use WithRepresentations to replace
// the default false/true output tokens.
func NewBoolField(details string, opts ...Option) *BoolField {
	d := newDeclaration(opts)
	return &BoolField{
		BaseField:       newBaseField("bool", details, d),
		representations: d.boolTokens,
	}
}

// FromRepresentation parses data as a boolean.
func (f *BoolField) FromRepresentation(data any) (any, error) {
	if f.representations != nil {
		switch {
		case sameValue(data, f.representations[1]):
			return true, nil
		case sameValue(data, f.representations[0]):
			return false, nil
		}
		return nil, fail(data, "bool")
	}
	return coerceBool(data)
}

// ToRepresentation renders value with the configured tokens.
func (f *BoolField) ToRepresentation(value any) (any, error) {
	b, ok := value.(bool)
	if !ok {
		return nil, fail(value, "bool")
	}
	if f.representations == nil {
		return b, nil
	}
	if b {
		return f.representations[1], nil
	}
	return f.representations[0], nil
}

// Describe adds the accepted representations.
func (f *BoolField) Describe() Description {
	d := f.BaseField.Describe()
	if f.representations != nil {
		d["representations"] = []any{f.representations[0], f.representations[1]}
	}
	return d
}

func coerceBool(data any) (bool, error) {
	switch v := data.(type) {
	case bool:
		return v, nil
	case string:
		return parseBoolToken(v)
	}
	if n, ok := toFloat64(data); ok {
		switch n {
		case 1:
			return true, nil
		case 0:
			return false, nil
		}
	}
	return false, fail(data, "bool")
}

func parseBoolToken(s string) (bool, error) {
	token := strings.ToLower(strings.TrimSpace(s))
	for _, t := range defaultTrueTokens {
		if token == t {
			return true, nil
		}
	}
	for _, t := range defaultFalseTokens {
		if token == t {
			return false, nil
		}
	}
	return false, fail(s, "bool")
}

// IntField parses integral numbers.
type IntField struct {
	BaseField
}

// NewIntField declares an integer field. WithMin and WithMax attach range validators.
func NewIntField(details string, opts ...Option) *IntField {
	return &IntField{BaseField: newBaseField("int", details, newDeclaration(opts))}
}

// FromRepresentation parses data as an int.
func (f *IntField) FromRepresentation(data any) (any, error) {
	return coerceInt(data)
}

// ToRepresentation renders value as an int.
func (f *IntField) ToRepresentation(value any) (any, error) {
	return coerceInt(value)
}

func coerceInt(data any) (int, error) {
	switch v := data.(type) {
	case int:
		return v, nil
	case bool:
		return 0, fail(data, "int")
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, fail(data, "int")
		}
		return n, nil
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0, fail(data, "int")
		}
		return int(n), nil
	}

	rv := reflect.ValueOf(data)
	//exhaustive:ignore
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return int(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if rv.Uint() > math.MaxInt {
			return 0, fail(data, "int")
		}
		return int(rv.Uint()), nil
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		if f != math.Trunc(f) || math.IsInf(f, 0) || f >= math.MaxInt64 || f < math.MinInt64 {
			return 0, fail(data, "int")
		}
		return int(f), nil
	default:
		return 0, fail(data, "int")
	}
}

// FloatField parses floating point numbers.
type FloatField struct {
	BaseField
}

// NewFloatField declares a float field. WithMin and WithMax attach range validators.
func NewFloatField(details string, opts ...Option) *FloatField {
	return &FloatField{BaseField: newBaseField("float", details, newDeclaration(opts))}
}

// FromRepresentation parses data as a float64.
func (f *FloatField) FromRepresentation(data any) (any, error) {
	return coerceFloat(data)
}

// ToRepresentation renders value as a float64.
func (f *FloatField) ToRepresentation(value any) (any, error) {
	return coerceFloat(value)
}

func coerceFloat(data any) (float64, error) {
	switch v := data.(type) {
	case bool:
		return 0, fail(data, "float")
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, fail(data, "float")
		}
		return n, nil
	case json.Number:
		n, err := v.Float64()
		if err != nil {
			return 0, fail(data, "float")
		}
		return n, nil
	}
	if n, ok := toFloat64(data); ok {
		return n, nil
	}
	return 0, fail(data, "float")
}

// sameValue compares two dynamic values without panicking on
// non-comparable types.
func sameValue(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb || !ta.Comparable() {
		return false
	}
	return a == b
}

func nilIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

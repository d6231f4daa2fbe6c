package graceful

import (
	"encoding/base64"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Param decodes one query-string parameter from its raw wire string.
// Implementations embed BaseParam.
type Param interface {
	// Value decodes a raw value. It returns an error wrapping ErrCoercion
	// when raw cannot be parsed.
	Value(raw string) (any, error)
	// Describe documents the parameter.
	Describe() Description
	// Base exposes the shared declaration. It must not be modified.
	Base() *BaseParam
}

// BaseParam holds the declaration shared by every parameter type.
type BaseParam struct {
	Type       string
	Details    string
	Label      string
	Required   bool
	Many       bool
	Default    *string
	Container  func([]any) any
	Validators []Validator
	Spec       *SpecRef
}

// newBaseParam panics with ErrDeclaration when a parameter is both
// required and defaulted.
func newBaseParam(typ, details string, opts []Option) BaseParam {
	d := newDeclaration(opts)
	if d.required && d.defaultRaw != nil {
		panic(fmt.Errorf("%w: %s parameter with default %q cannot be required", ErrDeclaration, typ, *d.defaultRaw))
	}
	return BaseParam{
		Type:       typ,
		Details:    details,
		Label:      d.label,
		Required:   d.required,
		Many:       d.many,
		Default:    d.defaultRaw,
		Container:  d.container,
		Validators: d.validators,
		Spec:       d.spec,
	}
}

// Base returns the parameter declaration.
func (p *BaseParam) Base() *BaseParam { return p }

// Validate runs every validator on a decoded value and returns the first failure.
func (p *BaseParam) Validate(value any) error {
	return runValidators(p.Validators, value)
}

// Describe returns label, details, required, many, spec, default and type.
func (p *BaseParam) Describe() Description {
	var def any
	if p.Default != nil {
		def = *p.Default
	}
	typ := p.Type
	if typ == "" {
		typ = "unspecified"
	}
	return Description{
		"label":    nilIfEmpty(p.Label),
		"details":  cleanDoc(p.Details),
		"required": p.Required,
		"many":     p.Many,
		"spec":     p.Spec,
		"default":  def,
		"type":     typ,
	}
}

// StringParam returns the raw value as-is.
type StringParam struct {
	BaseParam
}

// NewStringParam declares a string parameter.
func NewStringParam(details string, opts ...Option) *StringParam {
	return &StringParam{BaseParam: newBaseParam("string", details, opts)}
}

// Value returns raw unchanged.
func (p *StringParam) Value(raw string) (any, error) { return raw, nil }

// Base64Param decodes a base64 encoded UTF-8 string.
type Base64Param struct {
	BaseParam
}

// NewBase64Param declares a base64 encoded string parameter.
func NewBase64Param(details string, opts ...Option) *Base64Param {
	opts = append([]Option{WithSpec("RFC-4648 Section 4", "https://tools.ietf.org/html/rfc4648#section-4")}, opts...)
	return &Base64Param{BaseParam: newBaseParam("string", details, opts)}
}

// Value decodes raw with the standard base64 alphabet.
func (p *Base64Param) Value(raw string) (any, error) {
	b, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCoercion, err)
	}
	if !utf8.Valid(b) {
		return nil, fmt.Errorf("%w: decoded value is not valid UTF-8", ErrCoercion)
	}
	return string(b), nil
}

// IntParam decodes an integer.
type IntParam struct {
	BaseParam
}

// NewIntParam declares an integer parameter.
func NewIntParam(details string, opts ...Option) *IntParam {
	return &IntParam{BaseParam: newBaseParam("integer", details, opts)}
}

// Value decodes raw as an int.
func (p *IntParam) Value(raw string) (any, error) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return nil, fail(raw, "integer")
	}
	return n, nil
}

// FloatParam decodes a floating point number.
type FloatParam struct {
	BaseParam
}

// NewFloatParam declares a float parameter.
func NewFloatParam(details string, opts ...Option) *FloatParam {
	return &FloatParam{BaseParam: newBaseParam("float", details, opts)}
}

// Value decodes raw as a float64.
func (p *FloatParam) Value(raw string) (any, error) {
	n, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return nil, fail(raw, "float")
	}
	return n, nil
}

// DecimalParam decodes an exact decimal number into a *big.Rat.
type DecimalParam struct {
	BaseParam
}

// NewDecimalParam declares a decimal parameter.
func NewDecimalParam(details string, opts ...Option) *DecimalParam {
	return &DecimalParam{BaseParam: newBaseParam("decimal", details, opts)}
}

// Value decodes raw as a decimal. Fractions such as "1/3" are rejected.
func (p *DecimalParam) Value(raw string) (any, error) {
	raw = strings.TrimSpace(raw)
	if strings.Contains(raw, "/") {
		return nil, fail(raw, "decimal")
	}
	r, ok := new(big.Rat).SetString(raw)
	if !ok {
		return nil, fail(raw, "decimal")
	}
	return r, nil
}

// BoolParam decodes common true/false spellings, case-insensitively.
type BoolParam struct {
	BaseParam
}

// NewBoolParam declares a boolean parameter.
func NewBoolParam(details string, opts ...Option) *BoolParam {
	return &BoolParam{BaseParam: newBaseParam("bool", details, opts)}
}

// Value decodes raw as a bool.
func (p *BoolParam) Value(raw string) (any, error) {
	b, err := parseBoolToken(raw)
	if err != nil {
		return nil, err
	}
	return b, nil
}

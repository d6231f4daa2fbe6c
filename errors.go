package graceful

import (
	"errors"
	"fmt"
	"maps"
	"net/http"
	"slices"
	"strings"
)

// Sentinel errors for declaration, decoding, and validation.
var (
	ErrDeclaration          = errors.New("invalid declaration")
	ErrCoercion             = errors.New("coercion failed")
	ErrValidation           = errors.New("validation failed")
	ErrDeserialization      = errors.New("representation deserialization failed")
	ErrMissingParams        = errors.New("missing required parameters")
	ErrInvalidParam         = errors.New("invalid parameter")
	ErrUnsupportedMediaType = errors.New("unsupported media type")
	ErrBodyTooLarge         = errors.New("request body too large")
)

// Violation kinds reported in a ProblemDetail.
const (
	KindMissing   = "missing"
	KindForbidden = "forbidden"
	KindInvalid   = "invalid"
	KindFailed    = "failed"
)

// StatusCoder is implemented by errors that carry an HTTP status code.
type StatusCoder interface {
	StatusCode() int
}

// ValidationError is returned by validators and by a serializer's
// whole-object validate hook.
type ValidationError struct {
	Message string
}

// Error returns the validation message.
func (e *ValidationError) Error() string { return e.Message }

// Unwrap lets errors.Is match ErrValidation.
func (e *ValidationError) Unwrap() error { return ErrValidation }

// StatusCode returns http.StatusBadRequest.
func (e *ValidationError) StatusCode() int { return http.StatusBadRequest }

// Invalidf returns a *ValidationError with a formatted message.
func Invalidf(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// DeserializationError aggregates every problem found while converting one
// representation. All four categories are filled in the same pass.
type DeserializationError struct {
	Missing   []string          `json:"missing,omitempty"`
	Forbidden []string          `json:"forbidden,omitempty"`
	Invalid   map[string]string `json:"invalid,omitempty"`
	Failed    map[string]string `json:"failed,omitempty"`
}

// Empty reports whether no violation was recorded.
func (e *DeserializationError) Empty() bool {
	return len(e.Missing) == 0 && len(e.Forbidden) == 0 && len(e.Invalid) == 0 && len(e.Failed) == 0
}

// Error lists the non-empty categories.
func (e *DeserializationError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, fmt.Sprintf("missing: %v", e.Missing))
	}
	if len(e.Forbidden) > 0 {
		parts = append(parts, fmt.Sprintf("forbidden: %v", e.Forbidden))
	}
	if len(e.Invalid) > 0 {
		parts = append(parts, "invalid: "+formatMessages(e.Invalid))
	}
	if len(e.Failed) > 0 {
		parts = append(parts, "failed to parse: "+formatMessages(e.Failed))
	}
	if len(parts) == 0 {
		return ErrDeserialization.Error()
	}
	return ErrDeserialization.Error() + ": " + strings.Join(parts, ", ")
}

// Unwrap lets errors.Is match ErrDeserialization.
func (e *DeserializationError) Unwrap() error { return ErrDeserialization }

// StatusCode returns http.StatusBadRequest.
func (e *DeserializationError) StatusCode() int { return http.StatusBadRequest }

func (e *DeserializationError) violations() []Violation {
	var out []Violation
	for _, name := range e.Missing {
		out = append(out, Violation{Field: name, Kind: KindMissing, Message: "field is required"})
	}
	for _, name := range e.Forbidden {
		out = append(out, Violation{Field: name, Kind: KindForbidden, Message: "field is not writable"})
	}
	for _, name := range slices.Sorted(maps.Keys(e.Invalid)) {
		out = append(out, Violation{Field: name, Kind: KindInvalid, Message: e.Invalid[name]})
	}
	for _, name := range slices.Sorted(maps.Keys(e.Failed)) {
		out = append(out, Violation{Field: name, Kind: KindFailed, Message: e.Failed[name]})
	}
	return out
}

// MissingParamsError names every required parameter absent from a query.
type MissingParamsError struct {
	Names []string
}

// Error returns the missing parameter names.
func (e *MissingParamsError) Error() string {
	return fmt.Sprintf("%s: %s", ErrMissingParams, strings.Join(e.Names, ", "))
}

// Unwrap lets errors.Is match ErrMissingParams.
func (e *MissingParamsError) Unwrap() error { return ErrMissingParams }

// StatusCode returns http.StatusBadRequest.
func (e *MissingParamsError) StatusCode() int { return http.StatusBadRequest }

// InvalidParamError reports the first parameter that failed to decode or validate.
type InvalidParamError struct {
	Name string
	Err  error
}

// Error returns the parameter name and the underlying failure.
func (e *InvalidParamError) Error() string {
	return fmt.Sprintf("%s: %s: %s", ErrInvalidParam, e.Name, e.Err)
}

// Unwrap returns both ErrInvalidParam and the underlying failure.
func (e *InvalidParamError) Unwrap() []error { return []error{ErrInvalidParam, e.Err} }

// StatusCode returns http.StatusBadRequest.
func (e *InvalidParamError) StatusCode() int { return http.StatusBadRequest }

// ProblemDetail is an RFC 9457 problem details response.
//
//nolint:errname // RFC 9457 standard name
type ProblemDetail struct {
	Type     string      `json:"type,omitempty" yaml:"type,omitempty"`
	Title    string      `json:"title,omitempty" yaml:"title,omitempty"`
	Status   int         `json:"status" yaml:"status"`
	Detail   string      `json:"detail,omitempty" yaml:"detail,omitempty"`
	Instance string      `json:"instance,omitempty" yaml:"instance,omitempty"`
	Errors   []Violation `json:"errors,omitempty" yaml:"errors,omitempty"`
}

// Error returns the detail message (or title if detail is empty).
func (p *ProblemDetail) Error() string {
	if p.Detail != "" {
		return p.Detail
	}
	return p.Title
}

// StatusCode returns the HTTP status code.
func (p *ProblemDetail) StatusCode() int { return p.Status }

// Violation locates a single offending field or parameter.
type Violation struct {
	Field   string `json:"field" yaml:"field"`
	Kind    string `json:"kind" yaml:"kind"`
	Message string `json:"message,omitempty" yaml:"message,omitempty"`
}

// ErrorStatus extracts the HTTP status code from an error. Returns
// http.StatusInternalServerError if the error does not implement StatusCoder.
func ErrorStatus(err error) int {
	var sc StatusCoder
	if errors.As(err, &sc) {
		return sc.StatusCode()
	}
	return http.StatusInternalServerError
}

// Problem translates an error produced by this package into a problem
// detail whose Errors list names every offending field.
func Problem(err error) *ProblemDetail {
	var (
		pd      *ProblemDetail
		deser   *DeserializationError
		missing *MissingParamsError
		invalid *InvalidParamError
		verr    *ValidationError
	)

	switch {
	case errors.As(err, &pd):
		return pd
	case errors.As(err, &deser):
		return &ProblemDetail{
			Type:   "about:blank",
			Title:  "Representation deserialization failed",
			Status: http.StatusBadRequest,
			Detail: deser.Error(),
			Errors: deser.violations(),
		}
	case errors.As(err, &missing):
		violations := make([]Violation, len(missing.Names))
		for i, name := range missing.Names {
			violations[i] = Violation{Field: name, Kind: KindMissing, Message: "parameter is required"}
		}
		return &ProblemDetail{
			Type:   "about:blank",
			Title:  "Missing parameter",
			Status: http.StatusBadRequest,
			Detail: missing.Error(),
			Errors: violations,
		}
	case errors.As(err, &invalid):
		kind := KindFailed
		if errors.Is(invalid.Err, ErrValidation) {
			kind = KindInvalid
		}
		return &ProblemDetail{
			Type:   "about:blank",
			Title:  "Invalid parameter",
			Status: http.StatusBadRequest,
			Detail: invalid.Error(),
			Errors: []Violation{{Field: invalid.Name, Kind: kind, Message: invalid.Err.Error()}},
		}
	case errors.As(err, &verr):
		return &ProblemDetail{
			Type:   "about:blank",
			Title:  "Validation failed",
			Status: http.StatusBadRequest,
			Detail: verr.Message,
		}
	}

	status := ErrorStatus(err)
	switch {
	case errors.Is(err, ErrUnsupportedMediaType):
		status = http.StatusUnsupportedMediaType
	case errors.Is(err, ErrBodyTooLarge):
		status = http.StatusRequestEntityTooLarge
	case errors.Is(err, ErrCoercion):
		status = http.StatusBadRequest
	}
	return &ProblemDetail{
		Type:   "about:blank",
		Title:  http.StatusText(status),
		Status: status,
		Detail: err.Error(),
	}
}

func formatMessages(m map[string]string) string {
	keys := slices.Sorted(maps.Keys(m))
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + ": " + m[k]
	}
	return "{" + strings.Join(parts, "; ") + "}"
}

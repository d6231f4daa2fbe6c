package graceful

import (
	"fmt"
	"math/big"
	"reflect"
	"regexp"
	"slices"
	"strconv"
)

// Validator checks a coerced value and returns a *ValidationError when the
// value violates its constraint.
type Validator func(value any) error

// Min validates that a numeric value is at least lower.
func Min(lower float64) Validator {
	return func(value any) error {
		n, ok := toFloat64(value)
		if !ok {
			return Invalidf("%v is not a number", value)
		}
		if n < lower {
			return Invalidf("%v is not >= %s", value, formatBound(lower))
		}
		return nil
	}
}

// Max validates that a numeric value is at most upper.
func Max(upper float64) Validator {
	return func(value any) error {
		n, ok := toFloat64(value)
		if !ok {
			return Invalidf("%v is not a number", value)
		}
		if n > upper {
			return Invalidf("%v is not <= %s", value, formatBound(upper))
		}
		return nil
	}
}

// Choices validates that a value equals one of the allowed values.
func Choices(allowed ...any) Validator {
	return func(value any) error {
		if slices.Contains(allowed, value) {
			return nil
		}
		return Invalidf("%v is not in %v", value, allowed)
	}
}

// Match validates that a string value matches pattern. The pattern is
// compiled immediately and an invalid pattern panics.
func Match(pattern string) Validator {
	re := regexp.MustCompile(pattern)
	return func(value any) error {
		s, ok := value.(string)
		if !ok {
			return Invalidf("%v is not a string", value)
		}
		if !re.MatchString(s) {
			return Invalidf("%s does not match pattern: %s", s, re.String())
		}
		return nil
	}
}

// MinLength validates that a string has at least n characters.
func MinLength(n int) Validator {
	return func(value any) error {
		s, ok := value.(string)
		if !ok {
			return Invalidf("%v is not a string", value)
		}
		if len([]rune(s)) < n {
			return Invalidf("must be at least %d characters", n)
		}
		return nil
	}
}

// MaxLength validates that a string has at most n characters.
func MaxLength(n int) Validator {
	return func(value any) error {
		s, ok := value.(string)
		if !ok {
			return Invalidf("%v is not a string", value)
		}
		if len([]rune(s)) > n {
			return Invalidf("must be at most %d characters", n)
		}
		return nil
	}
}

func runValidators(validators []Validator, value any) error {
	for _, v := range validators {
		if err := v(value); err != nil {
			return err
		}
	}
	return nil
}

func formatBound(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

func toFloat64(value any) (float64, bool) {
	if r, ok := value.(*big.Rat); ok {
		if r == nil {
			return 0, false
		}
		f, _ := r.Float64()
		return f, true
	}

	v := reflect.ValueOf(value)
	//exhaustive:ignore
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(v.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(v.Uint()), true
	case reflect.Float32, reflect.Float64:
		return v.Float(), true
	default:
		return 0, false
	}
}

// fail builds a coercion error for a value that cannot be parsed as typ.
func fail(value any, typ string) error {
	return fmt.Errorf("%w: %v is not a valid %s", ErrCoercion, value, typ)
}

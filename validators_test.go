package graceful_test

import (
	"math/big"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bjaus/graceful"
)

func TestValidators(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		validator graceful.Validator
		value     any
		wantErr   string
	}{
		"min ok":           {validator: graceful.Min(0), value: 0},
		"min fails":        {validator: graceful.Min(0), value: -1, wantErr: "-1 is not >= 0"},
		"min uint":         {validator: graceful.Min(2), value: uint(1), wantErr: "1 is not >= 2"},
		"min decimal":      {validator: graceful.Min(1), value: big.NewRat(1, 2), wantErr: "1/2 is not >= 1"},
		"min non number":   {validator: graceful.Min(0), value: "x", wantErr: "x is not a number"},
		"max ok":           {validator: graceful.Max(1.5), value: 1.5},
		"max fails":        {validator: graceful.Max(1.5), value: 2.5, wantErr: "2.5 is not <= 1.5"},
		"choices ok":       {validator: graceful.Choices("a", "b"), value: "b"},
		"choices fails":    {validator: graceful.Choices("a", "b"), value: "c", wantErr: "c is not in [a b]"},
		"choices list":     {validator: graceful.Choices("a"), value: []any{"a"}, wantErr: "[a] is not in [a]"},
		"match ok":         {validator: graceful.Match(`^\w+$`), value: "word"},
		"match fails":      {validator: graceful.Match(`^\w+$`), value: "two words", wantErr: `two words does not match pattern: ^\w+$`},
		"match non string": {validator: graceful.Match(`.`), value: 1, wantErr: "1 is not a string"},
		"min length":       {validator: graceful.MinLength(2), value: "é", wantErr: "must be at least 2 characters"},
		"max length ok":    {validator: graceful.MaxLength(2), value: "éé"},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			err := tc.validator(tc.value)
			if tc.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, graceful.ErrValidation)
			assert.EqualError(t, err, tc.wantErr)
		})
	}
}

func TestMatch_invalidPattern(t *testing.T) {
	t.Parallel()

	assert.Panics(t, func() { graceful.Match("(") })
}

func TestIsNumericKind(t *testing.T) {
	t.Parallel()

	assert.True(t, graceful.IsNumericKind(reflect.Int8))
	assert.True(t, graceful.IsNumericKind(reflect.Float32))
	assert.False(t, graceful.IsNumericKind(reflect.String))
}

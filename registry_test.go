package graceful_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bjaus/graceful"
)

func TestNewRegistry_order(t *testing.T) {
	t.Parallel()

	a := graceful.NewStringField("a")
	b := graceful.NewStringField("b")
	b2 := graceful.NewIntField("b redeclared")
	c := graceful.NewStringField("c")

	base := graceful.Fields(
		graceful.DeclareField("a", a),
		graceful.DeclareField("b", b),
	)

	tests := map[string]struct {
		entries []graceful.Entry[graceful.Field]
		names   []string
		b       graceful.Field
	}{
		"append": {
			entries: []graceful.Entry[graceful.Field]{graceful.DeclareField("c", c)},
			names:   []string{"a", "b", "c"},
			b:       b,
		},
		"override keeps position": {
			entries: []graceful.Entry[graceful.Field]{
				graceful.DeclareField("c", c),
				graceful.DeclareField("b", b2),
			},
			names: []string{"a", "b", "c"},
			b:     b2,
		},
		"nothing declared": {
			names: []string{"a", "b"},
			b:     b,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			child := base.Extend(tc.entries...)
			assert.Equal(t, tc.names, child.Names())

			got, ok := child.Get("b")
			require.True(t, ok)
			assert.Same(t, tc.b, got)
		})
	}
}

func TestNewRegistry_baseUntouched(t *testing.T) {
	t.Parallel()

	base := graceful.Fields(graceful.DeclareField("a", graceful.NewRawField("a")))
	_ = base.Extend(graceful.DeclareField("b", graceful.NewRawField("b")))

	assert.Equal(t, []string{"a"}, base.Names())
	assert.False(t, base.Has("b"))
}

func TestNewRegistry_multipleBases(t *testing.T) {
	t.Parallel()

	first := graceful.Params(
		graceful.DeclareParam("x", graceful.NewStringParam("x")),
		graceful.DeclareParam("y", graceful.NewStringParam("y")),
	)
	yy := graceful.NewIntParam("y from second base")
	second := graceful.Params(
		graceful.DeclareParam("y", yy),
		graceful.DeclareParam("z", graceful.NewStringParam("z")),
	)

	reg := graceful.NewRegistry([]*graceful.Registry[graceful.Param]{first, second},
		graceful.DeclareParam("w", graceful.NewStringParam("w")),
	)

	assert.Equal(t, []string{"x", "y", "z", "w"}, reg.Names())
	got, ok := reg.Get("y")
	require.True(t, ok)
	assert.Same(t, yy, got)
}

func TestNewRegistry_empty(t *testing.T) {
	t.Parallel()

	reg := graceful.Fields()
	assert.Equal(t, 0, reg.Len())
	assert.Empty(t, reg.Names())

	for range reg.All() {
		t.Fatal("empty registry must not yield")
	}
}

func TestNewRegistry_declarationErrors(t *testing.T) {
	t.Parallel()

	tests := map[string]func(){
		"empty name": func() {
			graceful.Fields(graceful.DeclareField("", graceful.NewRawField("x")))
		},
		"nil field": func() {
			var f *graceful.RawField
			graceful.Fields(graceful.DeclareField("x", f))
		},
	}

	for name, fn := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			defer func() {
				r := recover()
				require.NotNil(t, r)
				err, ok := r.(error)
				require.True(t, ok)
				assert.True(t, errors.Is(err, graceful.ErrDeclaration))
			}()
			fn()
		})
	}
}

func TestRegistry_namesIsCopy(t *testing.T) {
	t.Parallel()

	reg := graceful.Fields(graceful.DeclareField("a", graceful.NewRawField("a")))
	names := reg.Names()
	names[0] = "mutated"

	assert.Equal(t, []string{"a"}, reg.Names())
}

func TestRegistry_allStopsEarly(t *testing.T) {
	t.Parallel()

	reg := graceful.Fields(
		graceful.DeclareField("a", graceful.NewRawField("a")),
		graceful.DeclareField("b", graceful.NewRawField("b")),
	)

	var seen []string
	for name := range reg.All() {
		seen = append(seen, name)
		break
	}
	assert.Equal(t, []string{"a"}, seen)
}

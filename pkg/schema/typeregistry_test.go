package schema

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetTypeAliases(t *testing.T) {
	tests := []struct {
		token any
		want  *Type
	}{
		{"string", String},
		{"STRING", String},
		{" Bool ", Boolean},
		{"int", Integer},
		{"datetime", Date},
		{"*", Any},
		{Number, Number},
	}
	for _, tt := range tests {
		got, ok := GetType(tt.token)
		require.True(t, ok, "token %v", tt.token)
		assert.True(t, got.Equal(tt.want), "token %v resolved to %s", tt.token, got)
	}

	_, ok := GetType("uuid-ish")
	assert.False(t, ok)
	_, ok = GetType(42)
	assert.False(t, ok)
	_, ok = GetType([]any{"string", "number"})
	assert.False(t, ok, "shorthand takes exactly one element")
}

func TestGetTypeArrayShorthand(t *testing.T) {
	got, ok := GetType([]any{"string"})
	require.True(t, ok)
	assert.Equal(t, KindArrayOf, got.Kind())
	assert.True(t, got.Elem().Equal(String))

	again, ok := GetType([]string{"str"})
	require.True(t, ok)
	assert.True(t, got.Equal(again), "array-of over the same element must be interned")
}

func TestRegisterAlias(t *testing.T) {
	r := NewTypeRegistry()
	money := NewType("money", Number.factory)

	require.NoError(t, r.RegisterAlias("Money", money))
	require.NoError(t, r.RegisterAlias("money", String), "second registration is a no-op")

	got, ok := r.GetType("MONEY")
	require.True(t, ok)
	assert.True(t, got.Equal(money))

	assert.True(t, r.UnregisterAlias("money"))
	assert.False(t, r.UnregisterAlias("money"))
	assert.False(t, r.UnregisterAlias("string"), "built-in aliases stay")

	_, ok = r.GetType("money")
	assert.False(t, ok)

	err := r.RegisterAlias("broken", &Type{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownType))
}

func TestSchemaAsTypeIsStable(t *testing.T) {
	s := MustNew(Decl{{Name: "c", Spec: "string"}})
	a, ok := GetType(s)
	require.True(t, ok)
	assert.Same(t, a, s.AsType())
	assert.Equal(t, KindSchema, a.Kind())

	other := MustNew(Decl{{Name: "c", Spec: "string"}})
	assert.False(t, a.Equal(other.AsType()), "each schema has its own identity")
}

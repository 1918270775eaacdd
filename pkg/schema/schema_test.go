package schema

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewNormalizesDeclarations(t *testing.T) {
	inner := MustNew(Decl{{Name: "x", Spec: "number"}})
	s, err := New(Decl{
		{Name: "name", Spec: "String"},
		{Name: "tags", Spec: []any{"string"}},
		{Name: "inner", Spec: inner},
		{Name: "score", Spec: &FieldSpec{Type: Number, Min: 0, Max: 1}},
		{Name: "$meta", Spec: FieldSpec{Type: "any"}},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"name", "tags", "inner", "score", "$meta"}, s.FieldNames())
	for _, f := range s.Fields() {
		assert.True(t, IsType(f.Type), "field %s has an unresolved type", f.Name)
		assert.True(t, f.Nullable, "nullable defaults to true")
	}
	f, ok := s.Field("tags")
	require.True(t, ok)
	assert.Equal(t, KindArrayOf, f.Type.Kind())
	f, _ = s.Field("inner")
	assert.Same(t, inner, f.Type.Schema())
}

func TestNewConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		decl Decl
		want error
	}{
		{"path separator", Decl{{Name: "a.b", Spec: "string"}}, ErrInvalidFieldName},
		{"empty name", Decl{{Name: "", Spec: "string"}}, ErrInvalidFieldName},
		{"leading digit", Decl{{Name: "1a", Spec: "string"}}, ErrInvalidFieldName},
		{"duplicate", Decl{{Name: "a", Spec: "string"}, {Name: "a", Spec: "number"}}, ErrInvalidFieldName},
		{"unknown alias", Decl{{Name: "a", Spec: "uuid"}}, ErrUnknownType},
		{"missing type", Decl{{Name: "a", Spec: FieldSpec{}}}, ErrUnknownType},
		{"nil spec", Decl{{Name: "a", Spec: (*FieldSpec)(nil)}}, ErrInvalidOption},
		{"negative timeout", Decl{{Name: "a", Spec: FieldSpec{Type: []any{"string"}, Timeout: -time.Second}}}, ErrInvalidOption},
		{"empty allowed", Decl{{Name: "a", Spec: FieldSpec{Type: "string", AllowedValues: []any{}}}}, ErrInvalidOption},
		{"bad bound", Decl{{Name: "a", Spec: FieldSpec{Type: "string", Min: "x"}}}, ErrInvalidOption},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.decl)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
			var cfg *ConfigError
			assert.ErrorAs(t, err, &cfg)
		})
	}

	assert.Panics(t, func() { MustNew(Decl{{Name: "a", Spec: "nope"}}) })
}

func TestCreateModel(t *testing.T) {
	calls := 0
	s := MustNew(Decl{
		{Name: "status", Spec: FieldSpec{Type: "string", DefaultValue: "draft"}},
		{Name: "created", Spec: FieldSpec{Type: "date", DefaultValue: func() any {
			calls++
			return time.Unix(0, 0).UTC()
		}}},
		{Name: "title", Spec: "string"},
	})

	m := s.CreateModel(map[string]any{"title": "hello", "status": "published"})
	assert.Equal(t, "published", m["status"])
	assert.Equal(t, "hello", m["title"])
	assert.Equal(t, time.Unix(0, 0).UTC(), m["created"])
	assert.Equal(t, 1, calls)

	empty := s.CreateModel(nil)
	assert.Equal(t, "draft", empty["status"])
	_, has := empty["title"]
	assert.False(t, has)
}

func TestCreateContextStartsValid(t *testing.T) {
	s := MustNew(Decl{{Name: "a", Spec: FieldSpec{Type: "string", Required: true}}})
	vc := s.CreateContext()
	assert.True(t, vc.IsValid())
	assert.Same(t, s, vc.Schema())
	p, _ := vc.Parent()
	assert.Nil(t, p)
}

func TestWithTypeRegistry(t *testing.T) {
	r := NewTypeRegistry()
	require.NoError(t, r.RegisterAlias("slug", String))

	s, err := New(Decl{{Name: "s", Spec: "slug"}}, WithTypeRegistry(r))
	require.NoError(t, err)
	f, _ := s.Field("s")
	assert.True(t, f.Type.Equal(String))

	_, err = New(Decl{{Name: "s", Spec: "slug"}})
	assert.True(t, errors.Is(err, ErrUnknownType), "aliases stay local to their registry")
}

package schema

import (
	"strings"

	"github.com/aretw0/vigil/pkg/registry"
)

// TypeRegistry resolves type tokens to descriptors. Aliases are matched
// case-insensitively.
type TypeRegistry struct {
	aliases *registry.Registry[*Type]
}

// builtinAliases maps the accepted spellings of the primitive tokens.
var builtinAliases = map[string]*Type{
	"any":      Any,
	"*":        Any,
	"string":   String,
	"str":      String,
	"text":     String,
	"number":   Number,
	"float":    Number,
	"double":   Number,
	"integer":  Integer,
	"int":      Integer,
	"boolean":  Boolean,
	"bool":     Boolean,
	"date":     Date,
	"datetime": Date,
	"time":     Date,
	"array":    Array,
	"list":     Array,
	"object":   Object,
	"map":      Object,
}

// DefaultTypes is the process-wide registry used by New and the package level
// helpers.
var DefaultTypes = NewTypeRegistry()

// NewTypeRegistry creates a registry preloaded with the built-in aliases.
func NewTypeRegistry() *TypeRegistry {
	r := &TypeRegistry{aliases: registry.New[*Type]()}
	for name, t := range builtinAliases {
		r.aliases.Register(name, 0, t)
	}
	return r
}

// RegisterAlias makes name resolve to t. Registering a name twice is a no-op;
// the first registration wins.
func (r *TypeRegistry) RegisterAlias(name string, t *Type) error {
	if name == "" {
		return configErr("", ErrInvalidOption, "alias name must not be empty")
	}
	if !IsType(t) {
		return configErr("", ErrUnknownType, "alias %q does not point to a type", name)
	}
	r.aliases.Register(strings.ToLower(name), 1, t)
	return nil
}

// UnregisterAlias removes a custom alias. Built-in aliases cannot be removed.
func (r *TypeRegistry) UnregisterAlias(name string) bool {
	key := strings.ToLower(name)
	if _, builtin := builtinAliases[key]; builtin {
		return false
	}
	return r.aliases.Unregister(key)
}

// Aliases lists the registered alias names.
func (r *TypeRegistry) Aliases() []string {
	return r.aliases.Names()
}

// GetType resolves token to a descriptor. Accepted tokens are descriptors,
// alias strings, schemas and one-element slices (array-of shorthand).
func (r *TypeRegistry) GetType(token any) (*Type, bool) {
	switch tok := token.(type) {
	case *Type:
		return tok, IsType(tok)
	case string:
		return r.aliases.Get(strings.ToLower(strings.TrimSpace(tok)))
	case *Schema:
		if tok == nil {
			return nil, false
		}
		return tok.AsType(), true
	case []any:
		if len(tok) != 1 {
			return nil, false
		}
		t, err := r.ArrayOf(tok[0])
		return t, err == nil
	case []*Type:
		if len(tok) != 1 {
			return nil, false
		}
		t, err := r.ArrayOf(tok[0])
		return t, err == nil
	case []string:
		if len(tok) != 1 {
			return nil, false
		}
		t, err := r.ArrayOf(tok[0])
		return t, err == nil
	}
	return nil, false
}

// GetType resolves token with the default registry.
func GetType(token any) (*Type, bool) {
	return DefaultTypes.GetType(token)
}

// IsType reports whether x is a usable descriptor: an assigned identity and a
// factory.
func IsType(x any) bool {
	t, ok := x.(*Type)
	return ok && t != nil && !t.identity.IsZero() && t.factory != nil
}

package catalog

import (
	"fmt"

	"github.com/aretw0/vigil/pkg/registry"
	"github.com/aretw0/vigil/pkg/schema"
)

// CustomRegistry names custom validators so that definitions can refer to
// them with `custom: <name>`.
type CustomRegistry struct {
	funcs *registry.Registry[schema.CustomFunc]
}

// NewCustomRegistry creates an empty registry.
func NewCustomRegistry() *CustomRegistry {
	return &CustomRegistry{funcs: registry.New[schema.CustomFunc]()}
}

// Register adds fn under name. Registering a name twice is an error.
func (r *CustomRegistry) Register(name string, fn schema.CustomFunc) error {
	if name == "" {
		return fmt.Errorf("custom validator name cannot be empty")
	}
	if fn == nil {
		return fmt.Errorf("custom validator %q is nil", name)
	}
	if !r.funcs.Register(name, 0, fn) {
		return fmt.Errorf("custom validator %q already registered", name)
	}
	return nil
}

// Unregister removes a validator. Schemas compiled earlier keep using it.
func (r *CustomRegistry) Unregister(name string) bool {
	return r.funcs.Unregister(name)
}

// Get looks up a validator by name.
func (r *CustomRegistry) Get(name string) (schema.CustomFunc, bool) {
	return r.funcs.Get(name)
}

// Names lists the registered validator names.
func (r *CustomRegistry) Names() []string {
	return r.funcs.Names()
}

package catalog

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"

	"github.com/aretw0/vigil/pkg/domain"
	"github.com/aretw0/vigil/pkg/ports"
	"github.com/aretw0/vigil/pkg/schema"
)

var (
	// ErrInvalidDefinition is returned for definitions that cannot be parsed or
	// do not have the expected shape.
	ErrInvalidDefinition = errors.New("invalid schema definition")
	// ErrCycle is returned when schema references form a cycle.
	ErrCycle = errors.New("schema reference cycle")
	// ErrUnknownCustom is returned for `custom:` names missing from the registry.
	ErrUnknownCustom = errors.New("unknown custom validator")
	// ErrDuplicateSchema is returned when a name is defined twice.
	ErrDuplicateSchema = errors.New("schema already defined")
)

// definition is a parsed, not yet compiled schema.
type definition struct {
	name        string
	description string
	fields      *mapping
}

// Catalog holds named schemas compiled from declarative definitions.
// Safe for concurrent use.
type Catalog struct {
	mu           sync.RWMutex
	defs         map[string]*definition
	schemas      map[string]*schema.Schema
	descriptions map[string]string

	types    *schema.TypeRegistry
	customs  *CustomRegistry
	logger   *slog.Logger
	observer schema.Observer
}

// Option configures a Catalog.
type Option func(*Catalog)

// WithLogger sets the logger handed to compiled schemas.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Catalog) {
		c.logger = logger
	}
}

// WithObserver sets the observer of every compiled top-level schema.
func WithObserver(o schema.Observer) Option {
	return func(c *Catalog) {
		c.observer = o
	}
}

// WithTypeRegistry resolves type tokens with r.
func WithTypeRegistry(r *schema.TypeRegistry) Option {
	return func(c *Catalog) {
		c.types = r
	}
}

// WithCustoms resolves `custom:` names with r.
func WithCustoms(r *CustomRegistry) Option {
	return func(c *Catalog) {
		c.customs = r
	}
}

// New creates an empty catalog.
func New(opts ...Option) *Catalog {
	c := &Catalog{
		defs:         make(map[string]*definition),
		schemas:      make(map[string]*schema.Schema),
		descriptions: make(map[string]string),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if c.types == nil {
		c.types = schema.DefaultTypes
	}
	if c.customs == nil {
		c.customs = NewCustomRegistry()
	}
	return c
}

// Customs returns the registry `custom:` names are resolved with.
func (c *Catalog) Customs() *CustomRegistry { return c.customs }

// Load reads every definition of src and compiles the catalog.
func (c *Catalog) Load(src ports.SchemaSource) error {
	names, err := src.ListDefinitions()
	if err != nil {
		return fmt.Errorf("failed to list definitions: %w", err)
	}
	for _, name := range names {
		data, err := src.GetDefinition(name)
		if err != nil {
			return fmt.Errorf("failed to read definition %s: %w", name, err)
		}
		if err := c.AddDefinition(name, data); err != nil {
			return err
		}
	}
	return c.Compile()
}

// AddDefinition parses a raw definition and queues it for Compile. A
// document with a top-level `schemas:` mapping defines several schemas at
// once and name is ignored.
func (c *Catalog) AddDefinition(name string, data []byte) error {
	doc, err := parse(data)
	if err != nil {
		return fmt.Errorf("definition %s: %w", name, err)
	}
	if bundle, ok := doc.get("schemas"); ok {
		m, ok := bundle.(*mapping)
		if !ok {
			return fmt.Errorf("definition %s: %w: schemas must be a mapping", name, ErrInvalidDefinition)
		}
		for _, key := range m.keys {
			sub, ok := m.values[key].(*mapping)
			if !ok {
				return fmt.Errorf("definition %s: %w: schema %s must be a mapping", name, ErrInvalidDefinition, key)
			}
			if err := c.addDocument(key, sub); err != nil {
				return err
			}
		}
		return nil
	}
	return c.addDocument(name, doc)
}

func (c *Catalog) addDocument(name string, doc *mapping) error {
	def := &definition{name: name}
	if d, ok := doc.get("description"); ok {
		def.description = fmt.Sprint(d)
	}
	raw, ok := doc.get("fields")
	switch f := raw.(type) {
	case *mapping:
		def.fields = f
	case nil:
		if ok {
			def.fields = newMapping()
		} else {
			return fmt.Errorf("definition %s: %w: missing fields", name, ErrInvalidDefinition)
		}
	default:
		return fmt.Errorf("definition %s: %w: fields must be a mapping", name, ErrInvalidDefinition)
	}
	return c.addParsed(def)
}

func (c *Catalog) addParsed(def *definition) error {
	if def.name == "" {
		return fmt.Errorf("%w: definition without a name", ErrInvalidDefinition)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, dup := c.defs[def.name]; dup {
		return fmt.Errorf("%w: %s", ErrDuplicateSchema, def.name)
	}
	if _, dup := c.schemas[def.name]; dup {
		return fmt.Errorf("%w: %s", ErrDuplicateSchema, def.name)
	}
	c.defs[def.name] = def
	return nil
}

// Add registers a schema built in code. Definitions can reference it by name.
func (c *Catalog) Add(name string, s *schema.Schema) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, dup := c.schemas[name]; dup {
		return fmt.Errorf("%w: %s", ErrDuplicateSchema, name)
	}
	if _, dup := c.defs[name]; dup {
		return fmt.Errorf("%w: %s", ErrDuplicateSchema, name)
	}
	c.schemas[name] = s
	return nil
}

// Compile builds every pending definition. On error nothing is added.
func (c *Catalog) Compile() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	comp := &compiler{
		catalog:  c,
		visiting: make(map[string]bool),
		built:    make(map[string]*schema.Schema),
	}
	names := make([]string, 0, len(c.defs))
	for name := range c.defs {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if _, err := comp.schemaFor(name); err != nil {
			return err
		}
	}
	for name, s := range comp.built {
		c.schemas[name] = s
		c.descriptions[name] = c.defs[name].description
		delete(c.defs, name)
	}
	c.logger.Debug("catalog compiled", "schemas", len(comp.built))
	return nil
}

// Get returns the compiled schema called name.
func (c *Catalog) Get(name string) (*schema.Schema, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.schemas[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrSchemaNotFound, name)
	}
	return s, nil
}

// Names lists the compiled schemas, sorted.
func (c *Catalog) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.schemas))
	for name := range c.schemas {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Description returns the free-form description of a definition, if any.
func (c *Catalog) Description(name string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.descriptions[name]
}

// Describe returns the description of the schema called name.
func (c *Catalog) Describe(name string) (*domain.SchemaInfo, error) {
	s, err := c.Get(name)
	if err != nil {
		return nil, err
	}
	info := Describe(s)
	info.Name = name
	return &info, nil
}

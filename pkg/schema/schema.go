package schema

import (
	"io"
	"log/slog"
	"regexp"
	"sync"
	"time"
)

var fieldNamePattern = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$]*$`)

// CustomFunc is a user validation hook. It receives the field's own declared
// options, the value and the context the value is validated in, and runs only
// once every earlier stage has passed.
type CustomFunc func(f *Field, value any, vc *Context) Result

// FieldSpec is the options form of a field declaration.
type FieldSpec struct {
	Type          any
	Required      bool
	Nullable      *bool // nil means nullable
	Min           any
	Max           any
	DefaultValue  any // a value or a func() any producer
	Custom        CustomFunc
	Timeout       time.Duration // array-of iteration budget
	AllowedValues []any
	Extra         map[string]any // options read by user stages
}

// Entry declares one field. Spec is a type token, a one-element slice
// (array-of shorthand), a FieldSpec or a *FieldSpec.
type Entry struct {
	Name string
	Spec any
}

// Decl is an ordered schema declaration.
type Decl []Entry

// Field is a normalized field of a schema.
type Field struct {
	Name          string
	Type          *Type
	Required      bool
	Nullable      bool
	Min           any
	Max           any
	DefaultValue  any
	Custom        CustomFunc
	Timeout       time.Duration
	AllowedValues []any
	Extra         map[string]any

	validator Validator
}

// Validate runs the field's composed validator chain.
func (f *Field) Validate(value any, opts *ValidateOptions, vc *Context) Result {
	return f.validator(value, opts, vc)
}

// Default returns the declared default, invoking producers.
func (f *Field) Default() (any, bool) {
	switch d := f.DefaultValue.(type) {
	case nil:
		return nil, false
	case func() any:
		return d(), true
	default:
		return d, true
	}
}

// Observer is notified whenever a top-level validation pass completes.
type Observer interface {
	OnValidated(e ValidationEvent)
}

// ValidationEvent describes a completed validation pass.
type ValidationEvent struct {
	Schema   string
	Valid    bool
	Messages map[string]string
	Fields   []string
	Duration time.Duration
}

// Schema is an immutable set of typed fields.
type Schema struct {
	name     string
	fields   map[string]*Field
	names    []string
	logger   *slog.Logger
	observer Observer
	types    *TypeRegistry
	chain    []Stage

	typeOnce sync.Once
	asType   *Type
}

// Option configures a Schema.
type Option func(*Schema)

// WithName labels the schema in logs, metrics and descriptor names.
func WithName(name string) Option {
	return func(s *Schema) {
		s.name = name
	}
}

// WithLogger sets the structured logger used by the schema and its contexts.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Schema) {
		s.logger = logger
	}
}

// WithObserver registers an observer for completed validations.
func WithObserver(o Observer) Option {
	return func(s *Schema) {
		s.observer = o
	}
}

// WithTypeRegistry resolves type tokens with r instead of DefaultTypes.
func WithTypeRegistry(r *TypeRegistry) Option {
	return func(s *Schema) {
		s.types = r
	}
}

// WithStages replaces the process-wide stage chain for this schema.
func WithStages(chain ...Stage) Option {
	return func(s *Schema) {
		s.chain = chain
	}
}

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// New normalizes decl into a schema. Any malformed declaration is reported as
// a *ConfigError.
func New(decl Decl, opts ...Option) (*Schema, error) {
	s := &Schema{
		fields: make(map[string]*Field, len(decl)),
		names:  make([]string, 0, len(decl)),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = discardLogger
	}
	if s.types == nil {
		s.types = DefaultTypes
	}
	if s.chain == nil {
		s.chain = Stages()
	}
	if s.name != "" {
		s.logger = s.logger.With("schema", s.name)
	}

	for _, entry := range decl {
		f, err := s.normalize(entry)
		if err != nil {
			return nil, err
		}
		s.fields[f.Name] = f
		s.names = append(s.names, f.Name)
	}

	for _, name := range s.names {
		f := s.fields[name]
		v, err := BuildChain(s.chain, Binding{FieldName: name, Field: f, Schema: s})
		if err != nil {
			return nil, err
		}
		f.validator = v
	}
	return s, nil
}

// MustNew is like New but panics on configuration errors.
func MustNew(decl Decl, opts ...Option) *Schema {
	s, err := New(decl, opts...)
	if err != nil {
		panic(err)
	}
	return s
}

func (s *Schema) normalize(entry Entry) (*Field, error) {
	if !fieldNamePattern.MatchString(entry.Name) {
		return nil, configErr(entry.Name, ErrInvalidFieldName, "must match %s", fieldNamePattern)
	}
	if _, dup := s.fields[entry.Name]; dup {
		return nil, configErr(entry.Name, ErrInvalidFieldName, "declared twice")
	}

	var spec FieldSpec
	switch sp := entry.Spec.(type) {
	case FieldSpec:
		spec = sp
	case *FieldSpec:
		if sp == nil {
			return nil, configErr(entry.Name, ErrInvalidOption, "nil field spec")
		}
		spec = *sp
	default:
		spec = FieldSpec{Type: entry.Spec}
	}

	t, ok := s.types.GetType(spec.Type)
	if !ok {
		return nil, configErr(entry.Name, ErrUnknownType, "%v", spec.Type)
	}
	if spec.Timeout < 0 {
		return nil, configErr(entry.Name, ErrInvalidOption, "timeout must not be negative")
	}
	if spec.AllowedValues != nil && len(spec.AllowedValues) == 0 {
		return nil, configErr(entry.Name, ErrInvalidOption, "allowedValues must not be empty")
	}

	nullable := true
	if spec.Nullable != nil {
		nullable = *spec.Nullable
	}
	return &Field{
		Name:          entry.Name,
		Type:          t,
		Required:      spec.Required,
		Nullable:      nullable,
		Min:           spec.Min,
		Max:           spec.Max,
		DefaultValue:  spec.DefaultValue,
		Custom:        spec.Custom,
		Timeout:       spec.Timeout,
		AllowedValues: spec.AllowedValues,
		Extra:         spec.Extra,
	}, nil
}

// Name returns the label given with WithName.
func (s *Schema) Name() string { return s.name }

// FieldNames returns the field names in declaration order.
func (s *Schema) FieldNames() []string {
	return append([]string(nil), s.names...)
}

// Fields returns the fields in declaration order.
func (s *Schema) Fields() []*Field {
	out := make([]*Field, len(s.names))
	for i, name := range s.names {
		out[i] = s.fields[name]
	}
	return out
}

// Field looks up a field by name.
func (s *Schema) Field(name string) (*Field, bool) {
	f, ok := s.fields[name]
	return f, ok
}

// HasField reports whether name is declared.
func (s *Schema) HasField(name string) bool {
	_, ok := s.fields[name]
	return ok
}

// CreateContext returns a fresh, valid validation context for s.
func (s *Schema) CreateContext() *Context {
	return s.newContext(false)
}

// CreateModel returns a plain map seeded with the declared defaults and
// overlaid with data.
func (s *Schema) CreateModel(data map[string]any) map[string]any {
	model := make(map[string]any, len(s.names)+len(data))
	for _, name := range s.names {
		if v, ok := s.fields[name].Default(); ok {
			model[name] = v
		}
	}
	for k, v := range data {
		model[k] = v
	}
	return model
}

// AsType returns the descriptor that lets s be used as a field type. The same
// descriptor is returned on every call.
func (s *Schema) AsType() *Type {
	s.typeOnce.Do(func() {
		name := s.name
		if name == "" {
			name = "schema"
		}
		s.asType = &Type{
			identity: newIdentity(KindSchema),
			name:     name,
			nullCode: CodeNoValue,
			schema:   s,
		}
		s.asType.factory = s.subSchemaFactory
	})
	return s.asType
}

func (s *Schema) subSchemaFactory(b Binding, next Validator) (Validator, error) {
	return func(v any, opts *ValidateOptions, vc *Context) Result {
		data, ok := toMap(v)
		if !ok {
			return Fail(CodeInvalidType)
		}
		field := b.FieldName
		if field == "" {
			field = AnonymousField
		}
		attached := vc != nil && !b.Detached
		child := s.newContext(true)
		var gen uint64
		if attached {
			gen = vc.generation(field)
			child.link(vc, field, gen)
		}
		completion := child.Validate(data, opts.forChild()...)
		return afterCompletion(completion, func() Result {
			if attached {
				vc.mergeNested(field, gen, field, child.GetMessages())
			}
			if !child.IsValid() {
				return Fail(CodeInvalid)
			}
			return next(v, opts, vc)
		})
	}, nil
}

func (s *Schema) log() *slog.Logger {
	if s == nil || s.logger == nil {
		return discardLogger
	}
	return s.logger
}

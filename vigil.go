package vigil

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/aretw0/loam"

	"github.com/aretw0/vigil/pkg/adapters/file"
	loamAdapter "github.com/aretw0/vigil/pkg/adapters/loam"
	"github.com/aretw0/vigil/pkg/adapters/memory"
	"github.com/aretw0/vigil/pkg/catalog"
	"github.com/aretw0/vigil/pkg/domain"
	"github.com/aretw0/vigil/pkg/ports"
	"github.com/aretw0/vigil/pkg/schema"
)

// DefaultTimeout bounds a single Validate call unless WithTimeout says otherwise.
const DefaultTimeout = 30 * time.Second

// Engine is the high-level entry point for the Vigil library.
// It owns a schema catalog, validates documents against it and keeps the
// resulting reports.
type Engine struct {
	mu      sync.RWMutex
	catalog *catalog.Catalog

	source        ports.SchemaSource
	store         ports.ReportStore
	observer      schema.Observer
	customs       *catalog.CustomRegistry
	types         *schema.TypeRegistry
	schemas       map[string]*schema.Schema
	logger        *slog.Logger
	timeout       time.Duration
	keepDocuments bool
	openapi       [][]byte
	Name          string
}

var _ ports.ValidationEngine = (*Engine)(nil)

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithSource injects a custom SchemaSource, bypassing the default directory source.
func WithSource(src ports.SchemaSource) Option {
	return func(e *Engine) {
		e.source = src
	}
}

// WithStore sets where reports are kept. The default is in memory.
func WithStore(store ports.ReportStore) Option {
	return func(e *Engine) {
		e.store = store
	}
}

// WithObserver is notified of every completed top-level validation.
func WithObserver(o schema.Observer) Option {
	return func(e *Engine) {
		e.observer = o
	}
}

// WithCustoms resolves `custom:` names of definitions with r.
func WithCustoms(r *catalog.CustomRegistry) Option {
	return func(e *Engine) {
		e.customs = r
	}
}

// WithTypeRegistry resolves type tokens of definitions with r.
func WithTypeRegistry(r *schema.TypeRegistry) Option {
	return func(e *Engine) {
		e.types = r
	}
}

// WithSchema adds a schema built in code under name. Definitions can
// reference it.
func WithSchema(name string, s *schema.Schema) Option {
	return func(e *Engine) {
		e.schemas[name] = s
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithTimeout bounds each Validate call.
func WithTimeout(d time.Duration) Option {
	return func(e *Engine) {
		e.timeout = d
	}
}

// WithDocuments keeps a snapshot of the validated data in every report.
func WithDocuments(keep bool) Option {
	return func(e *Engine) {
		e.keepDocuments = keep
	}
}

// WithOpenAPI adds the object components of an OpenAPI 3 document to the
// catalog on every reload. Definitions of the source can reference them.
func WithOpenAPI(doc []byte) Option {
	return func(e *Engine) {
		e.openapi = append(e.openapi, doc)
	}
}

// New initializes a new Vigil Engine.
// By default, it reads definition files (YAML, JSON, TOML) from dir.
// If WithSource is provided, dir can be empty and only labels the engine.
func New(dir string, opts ...Option) (*Engine, error) {
	eng := &Engine{
		schemas: make(map[string]*schema.Schema),
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(eng)
	}

	if eng.source == nil {
		if dir == "" {
			return nil, fmt.Errorf("dir is required when no custom source is provided")
		}
		absPath, err := filepath.Abs(dir)
		if err != nil {
			return nil, fmt.Errorf("invalid path: %w", err)
		}
		eng.source = file.NewSource(absPath)
	}
	if dir != "" {
		eng.Name = filepath.Base(dir)
	}

	if eng.logger == nil {
		eng.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if eng.Name != "" {
		eng.logger = eng.logger.With("catalog", eng.Name)
	}
	if eng.store == nil {
		eng.store = memory.NewStore()
	}
	if eng.customs == nil {
		eng.customs = catalog.NewCustomRegistry()
	}
	if eng.types == nil {
		eng.types = schema.DefaultTypes
	}

	if err := eng.Reload(); err != nil {
		return nil, err
	}
	return eng, nil
}

// NewLoamSource opens the Loam repository at dir as a schema source.
func NewLoamSource(dir string) (*loamAdapter.Source, error) {
	absPath, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("invalid path: %w", err)
	}
	// Strict mode keeps numbers as json.Number; the adapter normalizes them.
	// The engine never writes definitions, hence read-only.
	repo, err := loam.Init(absPath,
		loam.WithStrict(true),
		loam.WithReadOnly(true),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize loam: %w", err)
	}
	return loamAdapter.New(loam.NewTypedRepository[loamAdapter.SchemaMetadata](repo)), nil
}

// Reload rebuilds the catalog from the source. On error the current catalog
// stays in place.
func (e *Engine) Reload() error {
	c := catalog.New(
		catalog.WithLogger(e.logger),
		catalog.WithObserver(e.observer),
		catalog.WithTypeRegistry(e.types),
		catalog.WithCustoms(e.customs),
	)
	for name, s := range e.schemas {
		if err := c.Add(name, s); err != nil {
			return err
		}
	}
	for _, doc := range e.openapi {
		names, err := c.FromOpenAPI(doc)
		if err != nil {
			return err
		}
		e.logger.Debug("openapi components imported", "schemas", names)
	}
	if err := c.Load(e.source); err != nil {
		return fmt.Errorf("failed to load catalog: %w", err)
	}

	e.mu.Lock()
	e.catalog = c
	e.mu.Unlock()
	e.logger.Info("catalog loaded", "schemas", len(c.Names()))
	return nil
}

// Catalog returns the current schema catalog.
func (e *Engine) Catalog() *catalog.Catalog {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.catalog
}

// Schema returns the compiled schema called name.
func (e *Engine) Schema(name string) (*schema.Schema, error) {
	return e.Catalog().Get(name)
}

// Validate checks data against the named schema, stores and returns the
// report. Invalid data is not an error; it yields a report with Valid false.
func (e *Engine) Validate(ctx context.Context, schemaName string, data map[string]any, fields ...string) (*domain.Report, error) {
	s, err := e.Schema(schemaName)
	if err != nil {
		return nil, err
	}
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	var opts []schema.ValidateOption
	if len(fields) > 0 {
		opts = append(opts, schema.WithFields(fields...))
	}

	start := time.Now()
	vc := s.CreateContext()
	if _, err := vc.Validate(data, opts...).Wait(ctx); err != nil {
		return nil, fmt.Errorf("validate %s: %w", schemaName, err)
	}

	report := domain.NewReport(schemaName)
	report.Valid = vc.IsValid()
	report.Messages = vc.GetMessages()
	report.Duration = time.Since(start)
	if len(fields) > 0 {
		report.Fields = append([]string(nil), fields...)
	} else {
		report.Fields = s.FieldNames()
	}
	if e.keepDocuments {
		report.Document = make(map[string]any, len(data))
		for k, v := range data {
			report.Document[k] = v
		}
	}

	if err := e.store.Save(ctx, report); err != nil {
		return nil, fmt.Errorf("failed to save report: %w", err)
	}
	e.logger.Debug("validated", "schema", schemaName, "report", report.ID, "valid", report.Valid)
	return report, nil
}

// Schemas lists the names of the available schemas, sorted.
func (e *Engine) Schemas() []string {
	return e.Catalog().Names()
}

// Describe returns the description of a schema.
func (e *Engine) Describe(schemaName string) (*domain.SchemaInfo, error) {
	return e.Catalog().Describe(schemaName)
}

// Report loads a stored report.
func (e *Engine) Report(ctx context.Context, id string) (*domain.Report, error) {
	return e.store.Load(ctx, id)
}

// Watch reloads the catalog whenever the source reports a change and emits
// the changed names. Returns error if the source does not support watching.
func (e *Engine) Watch(ctx context.Context) (<-chan string, error) {
	w, ok := e.source.(ports.Watchable)
	if !ok {
		return nil, fmt.Errorf("current source does not support watching")
	}
	events, err := w.Watch(ctx)
	if err != nil {
		return nil, err
	}

	ch := make(chan string, 1)
	go func() {
		defer close(ch)
		for name := range events {
			if err := e.Reload(); err != nil {
				e.logger.Warn("reload failed, keeping previous catalog", "changed", name, "err", err)
				continue
			}
			select {
			case ch <- name:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch, nil
}

// Source returns the underlying SchemaSource used by the engine.
func (e *Engine) Source() ports.SchemaSource {
	return e.source
}

package schema

import (
	"context"
	"strings"
	"sync"
	"time"
)

// ValidateOptions are the per-call options of Context.Validate. They are also
// handed to every validator in the chain.
type ValidateOptions struct {
	// Fields restricts the call to a subset of the declared fields.
	Fields []string
	// Values carries caller-defined settings for custom validators and stages.
	Values map[string]any
}

// ValidateOption configures a single Validate call.
type ValidateOption func(*ValidateOptions)

// WithFields limits validation to the named fields. Messages of the other
// fields are left untouched.
func WithFields(names ...string) ValidateOption {
	return func(o *ValidateOptions) {
		o.Fields = append(o.Fields, names...)
	}
}

// WithValue passes a caller-defined setting down to validators.
func WithValue(key string, v any) ValidateOption {
	return func(o *ValidateOptions) {
		if o.Values == nil {
			o.Values = make(map[string]any)
		}
		o.Values[key] = v
	}
}

// Value returns a caller-defined setting.
func (o *ValidateOptions) Value(key string) (any, bool) {
	if o == nil {
		return nil, false
	}
	v, ok := o.Values[key]
	return v, ok
}

// forChild keeps the caller settings but drops the field filter, which only
// applies to the top-level schema.
func (o *ValidateOptions) forChild() []ValidateOption {
	if o == nil || len(o.Values) == 0 {
		return nil
	}
	values := o.Values
	return []ValidateOption{func(c *ValidateOptions) { c.Values = values }}
}

// Completion tracks an in-flight Validate call.
type Completion struct {
	done   chan struct{}
	schema *Schema
	err    error
}

// Done is closed once every field of the call has settled.
func (c *Completion) Done() <-chan struct{} { return c.done }

// Err reports a configuration fault that prevented the call from running.
func (c *Completion) Err() error {
	<-c.done
	return c.err
}

// Wait blocks until the call completes or ctx is done. It returns the schema
// for chaining.
func (c *Completion) Wait(ctx context.Context) (*Schema, error) {
	select {
	case <-c.done:
		if c.err != nil {
			return nil, c.err
		}
		return c.schema, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Context holds the live validation state of one schema instance. Contexts of
// nested schemas are linked to the context of the field that contains them and
// report their validity upwards.
type Context struct {
	schema      *Schema
	internal    bool
	parent      *Context
	parentField string
	parentGen   uint64

	mu       sync.RWMutex
	messages map[string]string
	data     map[string]any
	gens     map[string]uint64
}

func (s *Schema) newContext(internal bool) *Context {
	return &Context{
		schema:   s,
		internal: internal,
		messages: make(map[string]string),
		gens:     make(map[string]uint64),
	}
}

// link attaches c below parent's field for the pass stamped gen. Links only
// ever point upwards. Once parent addresses the field again, c stops reporting
// to it.
func (c *Context) link(parent *Context, field string, gen uint64) {
	if parent == c {
		panic("schema: a validation context cannot be its own parent")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.parent = parent
	c.parentField = field
	c.parentGen = gen
}

// generation returns the current pass counter of field.
func (c *Context) generation(field string) uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.gens[field]
}

// Schema returns the schema c validates against.
func (c *Context) Schema() *Schema { return c.schema }

// Parent returns the parent context and field, if c is nested.
func (c *Context) Parent() (*Context, string) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.parent, c.parentField
}

// Validate checks data against the schema. The call always completes
// asynchronously; use the returned Completion to wait for it.
func (c *Context) Validate(data map[string]any, opts ...ValidateOption) *Completion {
	o := &ValidateOptions{}
	for _, opt := range opts {
		opt(o)
	}
	start := time.Now()
	completion := &Completion{done: make(chan struct{}), schema: c.schema}

	selected, err := c.selectFields(o.Fields)
	if err != nil {
		completion.err = err
		close(completion.done)
		return completion
	}
	isSelected := make(map[string]bool, len(selected))
	for _, name := range selected {
		isSelected[name] = true
	}

	gens := make(map[string]uint64, len(selected))
	c.mu.Lock()
	c.data = data
	for key := range c.messages {
		root, nested := rootSegment(key)
		if !c.schema.HasField(root) {
			delete(c.messages, key)
			continue
		}
		if nested && isSelected[root] {
			delete(c.messages, key)
		}
	}
	for key := range data {
		if !c.schema.HasField(key) {
			c.messages[key] = CodeNotInSchema
		}
	}
	for _, name := range selected {
		c.gens[name]++
		gens[name] = c.gens[name]
	}
	c.propagateLocked()
	c.mu.Unlock()

	var wg sync.WaitGroup
	pending := 0
	for _, name := range selected {
		f := c.schema.fields[name]
		value, present := data[name]
		if !present {
			value = Unset
		}
		r := f.validator(value, o, c)
		if !r.Pending() {
			c.record(name, gens[name], r.Code())
			continue
		}
		pending++
		wg.Add(1)
		go func(name string, gen uint64, r Result) {
			defer wg.Done()
			c.record(name, gen, r.Code())
		}(name, gens[name], r)
	}

	finish := func() {
		c.finish(selected, time.Since(start))
		close(completion.done)
	}
	if pending > 0 {
		go func() {
			wg.Wait()
			finish()
		}()
	} else {
		finish()
	}
	return completion
}

// Check validates data and waits for the outcome.
func (c *Context) Check(ctx context.Context, data map[string]any, opts ...ValidateOption) (bool, error) {
	if _, err := c.Validate(data, opts...).Wait(ctx); err != nil {
		return false, err
	}
	return c.IsValid(), nil
}

func (c *Context) selectFields(names []string) ([]string, error) {
	if len(names) == 0 {
		return c.schema.names, nil
	}
	want := make(map[string]bool, len(names))
	for _, name := range names {
		if !c.schema.HasField(name) {
			return nil, configErr(name, ErrUnknownField, "cannot validate a subset containing it")
		}
		want[name] = true
	}
	out := make([]string, 0, len(want))
	for _, name := range c.schema.names {
		if want[name] {
			out = append(out, name)
		}
	}
	return out, nil
}

func (c *Context) finish(fields []string, elapsed time.Duration) {
	messages := c.GetMessages()
	valid := len(messages) == 0
	if !c.internal {
		c.schema.log().Debug("validation completed",
			"valid", valid, "messages", len(messages), "duration", elapsed)
	}
	if c.internal || c.schema.observer == nil {
		return
	}
	c.schema.observer.OnValidated(ValidationEvent{
		Schema:   c.schema.name,
		Valid:    valid,
		Messages: messages,
		Fields:   append([]string(nil), fields...),
		Duration: elapsed,
	})
}

// record stores the outcome of a field validation unless a newer call has
// addressed the field in the meantime.
func (c *Context) record(field string, gen uint64, code string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gens[field] != gen {
		return
	}
	c.setLocked(field, code)
}

// SetMessage sets or, with an empty code, clears the message of a declared
// field and propagates the resulting validity to the parent context.
func (c *Context) SetMessage(field, code string) error {
	if !c.schema.HasField(field) {
		return configErr(field, ErrUnknownField, "SetMessage")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setLocked(field, code)
	return nil
}

// Reset clears every message. Pending results of earlier calls are dropped.
func (c *Context) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = make(map[string]string)
	for name := range c.gens {
		c.gens[name]++
	}
	c.propagateLocked()
}

// mergeNested copies messages of a nested context below prefix, unless field
// has been addressed by a newer pass or a Reset since gen.
func (c *Context) mergeNested(field string, gen uint64, prefix string, messages map[string]string) {
	if len(messages) == 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gens[field] != gen {
		return
	}
	for path, code := range messages {
		c.messages[prefix+"."+path] = code
	}
	c.propagateLocked()
}

func (c *Context) setLocked(key, code string) {
	if code == "" {
		delete(c.messages, key)
	} else {
		c.messages[key] = code
	}
	c.propagateLocked()
}

// propagateLocked must be called with c.mu held. Locks are only ever taken
// from child to parent.
func (c *Context) propagateLocked() {
	if c.parent == nil || c.parentField == "" {
		return
	}
	code := ""
	if len(c.messages) > 0 {
		code = CodeInvalid
	}
	c.parent.mu.Lock()
	defer c.parent.mu.Unlock()
	if c.parent.gens[c.parentField] != c.parentGen {
		return
	}
	c.parent.setLocked(c.parentField, code)
}

// IsValid reports whether no message is set.
func (c *Context) IsValid() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.messages) == 0
}

// GetMessage returns the code stored for a field or nested path, or "".
func (c *Context) GetMessage(path string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.messages[path]
}

// GetMessages returns a copy of all messages keyed by field or path.
func (c *Context) GetMessages() map[string]string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]string, len(c.messages))
	for k, v := range c.messages {
		out[k] = v
	}
	return out
}

// GetField resolves a dot-separated path against the data of the current
// validation call.
func (c *Context) GetField(path string) FieldValue {
	c.mu.RLock()
	data := c.data
	c.mu.RUnlock()
	if data == nil {
		return FieldValue{}
	}
	return lookup(data, path)
}

func rootSegment(key string) (string, bool) {
	root, _, nested := strings.Cut(key, ".")
	return root, nested
}

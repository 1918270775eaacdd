package schema

import (
	"fmt"

	"github.com/aretw0/vigil/pkg/registry"
)

// Stage priorities. Chains are folded outer to inner by ascending priority;
// user stages must sit between the type stage and the custom stage.
const (
	PriorityRequired = 100
	PriorityNullable = 200
	PriorityType     = 300
	PriorityUser     = 500
	PriorityCustom   = 1000
)

// Stage is one cross-cutting step of a field's validator chain.
type Stage interface {
	Name() string
	Priority() int
	// Apply wraps next with the stage's own check for the field in b.
	Apply(b Binding, next Validator) (Validator, error)
}

type stageFunc struct {
	name     string
	priority int
	apply    func(b Binding, next Validator) (Validator, error)
}

func (s *stageFunc) Name() string  { return s.name }
func (s *stageFunc) Priority() int { return s.priority }
func (s *stageFunc) Apply(b Binding, next Validator) (Validator, error) {
	return s.apply(b, next)
}

// NewStage adapts a function into a Stage.
func NewStage(name string, priority int, apply func(b Binding, next Validator) (Validator, error)) Stage {
	return &stageFunc{name: name, priority: priority, apply: apply}
}

// Built-in stages, registered at their fixed priorities.
var (
	// RequiredStage reports CodeRequired for an absent value of a required field.
	RequiredStage = NewStage("required", PriorityRequired, applyRequired)
	// NullableStage rejects nil on non-nullable fields with the type's NullCode.
	NullableStage = NewStage("nullable", PriorityNullable, applyNullable)
	// TypeStage runs the type-and-bounds validator of the field's descriptor.
	TypeStage = NewStage("type", PriorityType, applyType)
	// CustomStage runs the field's custom validator last.
	CustomStage = NewStage("custom", PriorityCustom, applyCustom)
)

var builtinStages = map[string]bool{
	"required": true,
	"nullable": true,
	"type":     true,
	"custom":   true,
}

var stages = func() *registry.Registry[Stage] {
	r := registry.New[Stage]()
	for _, s := range []Stage{RequiredStage, NullableStage, TypeStage, CustomStage} {
		r.Register(s.Name(), s.Priority(), s)
	}
	return r
}()

// RegisterStage adds a user stage to the process-wide chain. Registering a
// name twice is a no-op. Schemas built afterwards pick it up.
func RegisterStage(s Stage) error {
	if s == nil {
		return configErr("", ErrInvalidOption, "nil stage")
	}
	if p := s.Priority(); p <= PriorityType || p >= PriorityCustom {
		return configErr("", ErrInvalidOption,
			"stage %q priority %d must be between %d and %d", s.Name(), p, PriorityType, PriorityCustom)
	}
	stages.Register(s.Name(), s.Priority(), s)
	return nil
}

// UnregisterStage removes a user stage. Built-in stages stay.
func UnregisterStage(name string) bool {
	if builtinStages[name] {
		return false
	}
	return stages.Unregister(name)
}

// Stages returns the current process-wide chain, outermost first.
func Stages() []Stage {
	return stages.Values()
}

// BuildChain folds chain around the terminal validator, so that chain[0]
// runs first.
func BuildChain(chain []Stage, b Binding) (Validator, error) {
	v := Validator(terminal)
	for i := len(chain) - 1; i >= 0; i-- {
		next, err := chain[i].Apply(b, v)
		if err != nil {
			return nil, err
		}
		if next == nil {
			return nil, configErr(b.FieldName, ErrInvalidOption, "stage %q returned no validator", chain[i].Name())
		}
		v = next
	}
	return v, nil
}

func applyRequired(b Binding, next Validator) (Validator, error) {
	required := b.Field.Required
	return func(v any, opts *ValidateOptions, vc *Context) Result {
		if IsUnset(v) {
			if required {
				return Fail(CodeRequired)
			}
			return Pass()
		}
		return next(v, opts, vc)
	}, nil
}

func applyNullable(b Binding, next Validator) (Validator, error) {
	nullable := b.Field.Nullable
	code := b.Field.Type.NullCode()
	return func(v any, opts *ValidateOptions, vc *Context) Result {
		if v == nil {
			if nullable {
				return Pass()
			}
			return Fail(code)
		}
		return next(v, opts, vc)
	}, nil
}

func applyType(b Binding, next Validator) (Validator, error) {
	return b.Field.Type.Build(b, next)
}

func applyCustom(b Binding, next Validator) (Validator, error) {
	custom := b.Field.Custom
	if custom == nil {
		return next, nil
	}
	field := b.Field
	logger := b.Schema.log()
	return func(v any, opts *ValidateOptions, vc *Context) Result {
		r := callCustom(custom, field, v, vc)
		if !r.Pending() {
			if err := r.Err(); err != nil {
				logger.Warn("custom validator failed", "field", field.Name, "err", err)
			}
			if code := r.Code(); code != "" {
				return Fail(code)
			}
			return next(v, opts, vc)
		}
		return Async(func() (string, error) {
			code := r.Code()
			if err := r.Err(); err != nil {
				logger.Warn("custom validator failed", "field", field.Name, "err", err)
			}
			if code != "" {
				return code, nil
			}
			return next(v, opts, vc).Code(), nil
		})
	}, nil
}

// callCustom shields the chain from panics of synchronous custom validators.
func callCustom(fn CustomFunc, f *Field, v any, vc *Context) (r Result) {
	defer func() {
		if p := recover(); p != nil {
			r = Result{code: CodeError, err: fmt.Errorf("panic: %v", p)}
		}
	}()
	return fn(f, v, vc)
}

package schema

import (
	"fmt"
	"sync/atomic"
	"time"
	"unicode/utf8"
)

// Kind classifies a type descriptor.
type Kind uint8

const (
	KindAny Kind = iota + 1
	KindString
	KindNumber
	KindInteger
	KindBoolean
	KindDate
	KindArray
	KindObject
	KindAnyOf
	KindArrayOf
	KindSchema
	KindCustom
)

var kindNames = map[Kind]string{
	KindAny:     "any",
	KindString:  "string",
	KindNumber:  "number",
	KindInteger: "integer",
	KindBoolean: "boolean",
	KindDate:    "date",
	KindArray:   "array",
	KindObject:  "object",
	KindAnyOf:   "anyOf",
	KindArrayOf: "arrayOf",
	KindSchema:  "schema",
	KindCustom:  "custom",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// Identity is the opaque identity of a type descriptor. Two descriptors denote
// the same validation logic if and only if their identities are equal.
type Identity struct {
	Kind Kind
	ID   uint64
}

// IsZero reports whether the identity was never assigned.
func (i Identity) IsZero() bool { return i.ID == 0 }

func (i Identity) String() string { return fmt.Sprintf("%s#%d", i.Kind, i.ID) }

// Built-in identities are fixed; everything else is allocated from idSeq.
var idSeq atomic.Uint64

func init() { idSeq.Store(100) }

func newIdentity(k Kind) Identity {
	return Identity{Kind: k, ID: idSeq.Add(1)}
}

// Validator checks a single value. vc is the context the value is validated
// in and may be nil when a validator is run on its own.
type Validator func(value any, opts *ValidateOptions, vc *Context) Result

// Binding is what a stage or a type factory knows about the field it builds a
// validator for.
type Binding struct {
	FieldName string
	Field     *Field
	Schema    *Schema
	// Detached validators must not write into the calling context. Candidates of
	// an any-of and array elements are built detached.
	Detached bool
}

// Factory produces the type-and-bounds validator of a descriptor. The returned
// validator calls next once its own checks pass.
type Factory func(b Binding, next Validator) (Validator, error)

// Type is a type descriptor: an identity plus the factory producing its validator.
type Type struct {
	identity Identity
	name     string
	factory  Factory
	nullCode string

	elem    *Type
	members []*Type
	schema  *Schema
}

// NewType creates a custom descriptor with a fresh identity.
func NewType(name string, factory Factory) *Type {
	return &Type{
		identity: newIdentity(KindCustom),
		name:     name,
		factory:  factory,
		nullCode: CodeNoValue,
	}
}

// Identity returns the kind and instance id that make t unique.
func (t *Type) Identity() Identity { return t.identity }

// Kind returns the descriptor family of t.
func (t *Type) Kind() Kind { return t.identity.Kind }

// Name returns the display name used in descriptions and logs.
func (t *Type) Name() string { return t.name }

// NullCode is the code reported when a non-nullable field of this type is nil.
func (t *Type) NullCode() string { return t.nullCode }

// Elem returns the element type of an array-of descriptor.
func (t *Type) Elem() *Type { return t.elem }

// Members returns the candidates of an any-of descriptor.
func (t *Type) Members() []*Type { return append([]*Type(nil), t.members...) }

// Schema returns the schema behind a sub-schema descriptor.
func (t *Type) Schema() *Schema { return t.schema }

// Equal compares descriptors by identity.
func (t *Type) Equal(other *Type) bool {
	return t != nil && other != nil && t.identity == other.identity
}

// Build returns the type-and-bounds validator of t for b.
func (t *Type) Build(b Binding, next Validator) (Validator, error) {
	if next == nil {
		next = terminal
	}
	if b.Field == nil {
		b.Field = &Field{Name: b.FieldName, Type: t, Nullable: true}
	}
	return t.factory(b, next)
}

func (t *Type) String() string { return t.name }

// --- Built-in descriptors ---

var (
	Any     = builtin(KindAny, 1, anyChecker)
	String  = builtin(KindString, 2, stringChecker)
	Number  = builtin(KindNumber, 3, numberChecker(false))
	Integer = builtin(KindInteger, 4, numberChecker(true))
	Boolean = builtin(KindBoolean, 5, booleanChecker)
	Date    = builtin(KindDate, 6, dateChecker)
	Array   = builtin(KindArray, 7, arrayChecker)
	Object  = builtin(KindObject, 8, objectChecker)
)

// checker validates a value and returns an error code, or "" when it passes.
type checker func(v any) string

func builtin(kind Kind, id uint64, build func(f *Field) (checker, error)) *Type {
	t := &Type{
		identity: Identity{Kind: kind, ID: id},
		name:     kind.String(),
		nullCode: CodeNoValue,
	}
	t.factory = func(b Binding, next Validator) (Validator, error) {
		check, err := build(b.Field)
		if err != nil {
			return nil, err
		}
		allowed, err := allowedChecker(b.Field)
		if err != nil {
			return nil, err
		}
		return func(v any, opts *ValidateOptions, vc *Context) Result {
			if code := check(v); code != "" {
				return Fail(code)
			}
			if code := allowed(v); code != "" {
				return Fail(code)
			}
			return next(v, opts, vc)
		}, nil
	}
	return t
}

func anyChecker(*Field) (checker, error) {
	return func(any) string { return "" }, nil
}

func stringChecker(f *Field) (checker, error) {
	minLen, maxLen, err := intBounds(f)
	if err != nil {
		return nil, err
	}
	return func(v any) string {
		s, ok := v.(string)
		if !ok {
			return CodeInvalidType
		}
		n := utf8.RuneCountInString(s)
		if minLen >= 0 && n < minLen {
			return CodeMinString
		}
		if maxLen >= 0 && n > maxLen {
			return CodeMaxString
		}
		return ""
	}, nil
}

func numberChecker(integral bool) func(f *Field) (checker, error) {
	return func(f *Field) (checker, error) {
		minV, hasMin, maxV, hasMax, err := floatBounds(f)
		if err != nil {
			return nil, err
		}
		return func(v any) string {
			n, ok := toFloat(v)
			if !ok || (integral && !isIntegral(n)) {
				return CodeInvalidType
			}
			if hasMin && n < minV {
				return CodeMinNumber
			}
			if hasMax && n > maxV {
				return CodeMaxNumber
			}
			return ""
		}, nil
	}
}

func booleanChecker(*Field) (checker, error) {
	return func(v any) string {
		if _, ok := v.(bool); !ok {
			return CodeInvalidType
		}
		return ""
	}, nil
}

func dateChecker(f *Field) (checker, error) {
	var minT, maxT time.Time
	var hasMin, hasMax bool
	if f.Min != nil {
		t, ok := toTime(f.Min)
		if !ok {
			return nil, configErr(f.Name, ErrInvalidOption, "min must be a date, got %T", f.Min)
		}
		minT, hasMin = t, true
	}
	if f.Max != nil {
		t, ok := toTime(f.Max)
		if !ok {
			return nil, configErr(f.Name, ErrInvalidOption, "max must be a date, got %T", f.Max)
		}
		maxT, hasMax = t, true
	}
	return func(v any) string {
		t, code := asDate(v)
		if code != "" {
			return code
		}
		if hasMin && t.Before(minT) {
			return CodeMinDate
		}
		if hasMax && t.After(maxT) {
			return CodeMaxDate
		}
		return ""
	}, nil
}

func arrayChecker(f *Field) (checker, error) {
	minLen, maxLen, err := intBounds(f)
	if err != nil {
		return nil, err
	}
	return func(v any) string {
		rv, ok := asSlice(v)
		if !ok {
			return CodeInvalidType
		}
		return lengthCode(rv.Len(), minLen, maxLen)
	}, nil
}

func objectChecker(*Field) (checker, error) {
	return func(v any) string {
		if !isMapping(v) {
			return CodeInvalidType
		}
		return ""
	}, nil
}

func lengthCode(n, minLen, maxLen int) string {
	if minLen >= 0 && n < minLen {
		return CodeMinArray
	}
	if maxLen >= 0 && n > maxLen {
		return CodeMaxArray
	}
	return ""
}

// intBounds reads Min/Max as lengths; -1 means unbounded.
func intBounds(f *Field) (int, int, error) {
	minLen, maxLen := -1, -1
	if f.Min != nil {
		n, ok := toFloat(f.Min)
		if !ok || n < 0 || !isIntegral(n) {
			return 0, 0, configErr(f.Name, ErrInvalidOption, "min must be a non-negative integer, got %v", f.Min)
		}
		minLen = int(n)
	}
	if f.Max != nil {
		n, ok := toFloat(f.Max)
		if !ok || n < 0 || !isIntegral(n) {
			return 0, 0, configErr(f.Name, ErrInvalidOption, "max must be a non-negative integer, got %v", f.Max)
		}
		maxLen = int(n)
	}
	return minLen, maxLen, nil
}

func floatBounds(f *Field) (minV float64, hasMin bool, maxV float64, hasMax bool, err error) {
	if f.Min != nil {
		n, ok := toFloat(f.Min)
		if !ok {
			return 0, false, 0, false, configErr(f.Name, ErrInvalidOption, "min must be numeric, got %T", f.Min)
		}
		minV, hasMin = n, true
	}
	if f.Max != nil {
		n, ok := toFloat(f.Max)
		if !ok {
			return 0, false, 0, false, configErr(f.Name, ErrInvalidOption, "max must be numeric, got %T", f.Max)
		}
		maxV, hasMax = n, true
	}
	return minV, hasMin, maxV, hasMax, nil
}

func allowedChecker(f *Field) (checker, error) {
	if f.AllowedValues == nil {
		return func(any) string { return "" }, nil
	}
	if len(f.AllowedValues) == 0 {
		return nil, configErr(f.Name, ErrInvalidOption, "allowedValues must not be empty")
	}
	allowed := append([]any(nil), f.AllowedValues...)
	return func(v any) string {
		for _, a := range allowed {
			if equalValues(v, a) {
				return ""
			}
		}
		return CodeNotAllowed
	}, nil
}

// terminal ends every validator chain.
func terminal(any, *ValidateOptions, *Context) Result { return Pass() }

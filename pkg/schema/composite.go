package schema

import (
	"fmt"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"
	"weak"
)

// DefaultArrayTimeout bounds the time spent iterating the elements of an
// array-of field when the field declares no timeout.
const DefaultArrayTimeout = 200 * time.Millisecond

// AnonymousField prefixes nested element messages of array validators that
// are not bound to a named field.
const AnonymousField = "$"

// composites interns any-of and array-of descriptors so that declarations over
// the same arguments share one identity while any schema still uses them.
// Entries hold weak pointers and are removed once their descriptor is
// collected, so reloaded catalogs do not pin earlier ones.
var composites sync.Map // string -> weak.Pointer[Type]

func intern(key string, build func() *Type) *Type {
	for {
		if wp, ok := composites.Load(key); ok {
			if t := wp.(weak.Pointer[Type]).Value(); t != nil {
				return t
			}
			composites.CompareAndDelete(key, wp)
			continue
		}
		t := build()
		wp := weak.Make(t)
		if _, loaded := composites.LoadOrStore(key, wp); loaded {
			continue
		}
		runtime.AddCleanup(t, func(wp weak.Pointer[Type]) {
			composites.CompareAndDelete(key, wp)
		}, wp)
		return t
	}
}

// NewAnyOf resolves types with the default registry and returns the union
// descriptor. It fails when no type is given or one cannot be resolved.
func NewAnyOf(types ...any) (*Type, error) {
	return DefaultTypes.AnyOf(types...)
}

// AnyOf is like NewAnyOf but panics on configuration errors.
func AnyOf(types ...any) *Type {
	t, err := NewAnyOf(types...)
	if err != nil {
		panic(err)
	}
	return t
}

// NewArrayOf resolves elem with the default registry and returns the
// homogeneous collection descriptor.
func NewArrayOf(elem any) (*Type, error) {
	return DefaultTypes.ArrayOf(elem)
}

// ArrayOf is like NewArrayOf but panics on configuration errors.
func ArrayOf(elem any) *Type {
	t, err := NewArrayOf(elem)
	if err != nil {
		panic(err)
	}
	return t
}

// AnyOf builds a union over tokens resolved by r.
func (r *TypeRegistry) AnyOf(types ...any) (*Type, error) {
	if len(types) == 0 {
		return nil, configErr("", ErrEmptyComposite, "anyOf()")
	}
	members := make([]*Type, len(types))
	ids := make([]string, len(types))
	for i, token := range types {
		t, ok := r.GetType(token)
		if !ok {
			return nil, configErr("", ErrUnknownType, "anyOf argument %d: %v", i, token)
		}
		members[i] = t
		ids[i] = t.identity.String()
	}
	key := "anyOf(" + strings.Join(ids, ",") + ")"
	return intern(key, func() *Type {
		names := make([]string, len(members))
		for i, m := range members {
			names[i] = m.name
		}
		return &Type{
			identity: newIdentity(KindAnyOf),
			name:     "anyOf(" + strings.Join(names, ", ") + ")",
			factory:  anyOfFactory(members),
			nullCode: CodeIsNull,
			members:  members,
		}
	}), nil
}

// ArrayOf builds a collection descriptor over a token resolved by r.
func (r *TypeRegistry) ArrayOf(elem any) (*Type, error) {
	if elem == nil {
		return nil, configErr("", ErrEmptyComposite, "arrayOf()")
	}
	t, ok := r.GetType(elem)
	if !ok {
		return nil, configErr("", ErrUnknownType, "arrayOf argument: %v", elem)
	}
	key := "arrayOf(" + t.identity.String() + ")"
	return intern(key, func() *Type {
		return &Type{
			identity: newIdentity(KindArrayOf),
			name:     fmt.Sprintf("[%s]", t.name),
			factory:  arrayOfFactory(t),
			nullCode: CodeNoValue,
			elem:     t,
		}
	}), nil
}

func anyOfFactory(members []*Type) Factory {
	return func(b Binding, next Validator) (Validator, error) {
		cb := b
		cb.Detached = true
		candidates := make([]Validator, len(members))
		for i, m := range members {
			v, err := m.Build(cb, terminal)
			if err != nil {
				return nil, err
			}
			candidates[i] = v
		}

		return func(v any, opts *ValidateOptions, vc *Context) Result {
			results := make([]Result, len(candidates))
			pending := false
			for i, c := range candidates {
				results[i] = c(v, opts, vc)
				pending = pending || results[i].Pending()
			}

			decide := func() Result {
				first := ""
				for i, r := range results {
					code := r.Code()
					if code == "" {
						return next(v, opts, vc)
					}
					if i == 0 {
						first = code
					}
				}
				return Fail(first)
			}

			if !pending {
				return decide()
			}
			return Async(func() (string, error) {
				return decide().Code(), nil
			})
		}, nil
	}
}

type elementCheck struct {
	index  int
	result Result
	ctx    *Context
}

func arrayOfFactory(elem *Type) Factory {
	return func(b Binding, next Validator) (Validator, error) {
		minLen, maxLen, err := intBounds(b.Field)
		if err != nil {
			return nil, err
		}
		timeout := b.Field.Timeout
		if timeout <= 0 {
			timeout = DefaultArrayTimeout
		}

		var elemValidator Validator
		if elem.Kind() != KindSchema {
			eb := Binding{
				FieldName: b.FieldName,
				Field:     &Field{Name: b.FieldName, Type: elem, Nullable: true},
				Schema:    b.Schema,
				Detached:  true,
			}
			if elemValidator, err = elem.Build(eb, terminal); err != nil {
				return nil, err
			}
		}

		prefix := b.FieldName
		if prefix == "" {
			prefix = AnonymousField
		}

		return func(v any, opts *ValidateOptions, vc *Context) Result {
			rv, ok := asSlice(v)
			if !ok {
				return Fail(CodeInvalidType)
			}
			if code := lengthCode(rv.Len(), minLen, maxLen); code != "" {
				return Fail(code)
			}

			var gen uint64
			if vc != nil && !b.Detached {
				gen = vc.generation(prefix)
			}
			deadline := time.Now().Add(timeout)
			checks := make([]elementCheck, 0, rv.Len())
			pending := false
			for i := 0; i < rv.Len(); i++ {
				if time.Now().After(deadline) {
					b.Schema.log().Debug("array iteration deadline reached",
						"field", b.FieldName, "checked", i, "total", rv.Len())
					break
				}
				item := rv.Index(i).Interface()
				var check elementCheck
				if elemValidator != nil {
					check = elementCheck{index: i, result: elemValidator(item, opts, vc)}
				} else {
					check = validateSchemaElement(elem.schema, i, item, opts)
				}
				pending = pending || check.result.Pending()
				checks = append(checks, check)
			}

			finish := func() Result {
				invalid := false
				for _, c := range checks {
					if c.result.Code() == "" {
						continue
					}
					invalid = true
					if c.ctx != nil && vc != nil && !b.Detached {
						vc.mergeNested(prefix, gen, prefix+"."+strconv.Itoa(c.index), c.ctx.GetMessages())
					}
				}
				if invalid {
					return Fail(CodeInvalid)
				}
				return next(v, opts, vc)
			}

			if !pending {
				return finish()
			}
			return Async(func() (string, error) {
				return finish().Code(), nil
			})
		}, nil
	}
}

func validateSchemaElement(s *Schema, index int, item any, opts *ValidateOptions) elementCheck {
	data, ok := toMap(item)
	if !ok {
		return elementCheck{index: index, result: Fail(CodeInvalidType)}
	}
	child := s.newContext(true)
	completion := child.Validate(data, opts.forChild()...)
	result := afterCompletion(completion, func() Result {
		if !child.IsValid() {
			return Fail(CodeInvalid)
		}
		return Pass()
	})
	return elementCheck{index: index, result: result, ctx: child}
}

// afterCompletion runs finish once c is done, synchronously when it already is.
func afterCompletion(c *Completion, finish func() Result) Result {
	select {
	case <-c.Done():
		return finish()
	default:
	}
	return Async(func() (string, error) {
		<-c.Done()
		return finish().Code(), nil
	})
}

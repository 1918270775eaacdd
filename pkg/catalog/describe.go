package catalog

import (
	"github.com/aretw0/vigil/pkg/domain"
	"github.com/aretw0/vigil/pkg/schema"
)

// Describe walks s and its sub-schemas into a serializable description.
func Describe(s *schema.Schema) domain.SchemaInfo {
	info := domain.SchemaInfo{Name: s.Name()}
	for _, f := range s.Fields() {
		info.Fields = append(info.Fields, describeField(f))
	}
	return info
}

func describeField(f *schema.Field) domain.FieldInfo {
	fi := domain.FieldInfo{
		Name:     f.Name,
		Type:     f.Type.Name(),
		Kind:     f.Type.Kind().String(),
		Required: f.Required,
		Nullable: f.Nullable,
		Min:      f.Min,
		Max:      f.Max,
		Allowed:  f.AllowedValues,
		Custom:   f.Custom != nil,
	}
	switch f.Type.Kind() {
	case schema.KindSchema:
		nested := Describe(f.Type.Schema())
		fi.Nested = &nested
	case schema.KindAnyOf:
		for _, m := range f.Type.Members() {
			fi.Members = append(fi.Members, m.Name())
		}
	case schema.KindArrayOf:
		elem := f.Type.Elem()
		fi.Elem = elem.Name()
		if elem.Kind() == schema.KindSchema {
			nested := Describe(elem.Schema())
			fi.Nested = &nested
		}
	}
	return fi
}

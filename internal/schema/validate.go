package schema

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Validate checks every definition and the cross references between them:
// related types exist, inverses exist and point back at the owning type.
func (s *Schema) Validate() error {
	return validation.ValidateStruct(s,
		validation.Field(&s.Models, validation.Required, validation.By(s.checkModels)),
	)
}

func (s *Schema) checkModels(any) error {
	errs := validation.Errors{}
	for _, typ := range s.Types() {
		m := s.Models[typ]
		for _, name := range slices.Sorted(maps.Keys(m.Attributes)) {
			attr := m.Attributes[name]
			err := validation.ValidateStruct(&attr,
				validation.Field(&attr.Type, validation.In(
					AttrString, AttrNumber, AttrBoolean, AttrDate, AttrDateTime, AttrArray, AttrObject,
				)),
			)
			if err != nil {
				errs[typ+".attributes."+name] = err
			}
		}
		for _, name := range slices.Sorted(maps.Keys(m.Relationships)) {
			if err := s.checkRelationship(typ, name, m.Relationships[name]); err != nil {
				errs[typ+".relationships."+name] = err
			}
		}
		for name := range m.Attributes {
			if _, clash := m.Relationships[name]; clash {
				errs[typ+"."+name] = errors.New("defined as both attribute and relationship")
			}
		}
	}
	return errs.Filter()
}

func (s *Schema) checkRelationship(typ, name string, def RelationshipDefinition) error {
	err := validation.ValidateStruct(&def,
		validation.Field(&def.Kind, validation.Required, validation.In(HasOne, HasMany)),
		validation.Field(&def.Type, validation.Required, validation.By(s.knownType)),
		validation.Field(&def.Dependent, validation.In(DependentRemove)),
	)
	if err != nil {
		return err
	}
	if def.Inverse == "" {
		return nil
	}
	inv, ok := s.Relationship(def.Type, def.Inverse)
	if !ok {
		return fmt.Errorf("inverse %q is not defined on %q", def.Inverse, def.Type)
	}
	if inv.Type != typ {
		return fmt.Errorf("inverse %s.%s relates to %q, not %q", def.Type, def.Inverse, inv.Type, typ)
	}
	if inv.Inverse != "" && inv.Inverse != name {
		return fmt.Errorf("inverse %s.%s names %q as its inverse, not %q", def.Type, def.Inverse, inv.Inverse, name)
	}
	return nil
}

func (s *Schema) knownType(value any) error {
	typ, _ := value.(string)
	if typ != "" && !s.HasType(typ) {
		return fmt.Errorf("unknown type %q", typ)
	}
	return nil
}

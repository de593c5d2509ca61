package query

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/roach88/recache/internal/ir"
	"github.com/roach88/recache/internal/schema"
)

// Validate checks an expression against a schema. It returns an
// *ir.ValidationError naming the first unknown type, relationship or
// attribute, a relationship of the wrong kind, or a malformed operator.
func Validate(expr Expression, s *schema.Schema) error {
	if expr == nil {
		return ir.NewValidationError(ir.ErrCodeInvalidExpression, "", "", "nil expression")
	}
	v := &validator{schema: s}

	switch e := expr.(type) {
	case FindRecord:
		return v.checkType(e.Record.Type)
	case FindRecords:
		return v.validateFindRecords(e)
	case FindRelatedRecord:
		_, err := v.checkRelationship(e.Record.Type, e.Relationship, schema.HasOne)
		return err
	case FindRelatedRecords:
		def, err := v.checkRelationship(e.Record.Type, e.Relationship, schema.HasMany)
		if err != nil {
			return err
		}
		return v.validateList([]string{def.Type}, e.Filter, e.Sort, e.Page)
	}
	return ir.NewValidationError(ir.ErrCodeInvalidExpression, "", "", "unknown expression type %T", expr)
}

type validator struct {
	schema *schema.Schema
}

func (v *validator) validateFindRecords(e FindRecords) error {
	var types []string
	switch {
	case e.Type != "" && e.Records != nil:
		return ir.NewValidationError(ir.ErrCodeInvalidExpression, e.Type, "", "findRecords takes a type or a record list, not both")
	case e.Type != "":
		types = []string{e.Type}
	case e.Records != nil:
		seen := map[string]bool{}
		for _, id := range e.Records {
			if !seen[id.Type] {
				seen[id.Type] = true
				types = append(types, id.Type)
			}
		}
	default:
		return ir.NewValidationError(ir.ErrCodeInvalidExpression, "", "", "findRecords requires a type or a record list")
	}
	for _, typ := range types {
		if err := v.checkType(typ); err != nil {
			return err
		}
	}
	return v.validateList(types, e.Filter, e.Sort, e.Page)
}

func (v *validator) validateList(types []string, filter []Predicate, sort []SortSpecifier, page *Page) error {
	for _, typ := range types {
		for _, p := range filter {
			if err := v.validatePredicate(typ, p); err != nil {
				return err
			}
		}
		for _, spec := range sort {
			if err := v.checkAttribute(typ, spec.Attribute); err != nil {
				return err
			}
			if err := validation.Validate(spec.Order, validation.In(Ascending, Descending)); err != nil {
				return ir.NewValidationError(ir.ErrCodeInvalidExpression, typ, spec.Attribute, "sort order: %v", err)
			}
		}
	}
	if page != nil {
		p := *page
		err := validation.ValidateStruct(&p,
			validation.Field(&p.Offset, validation.Min(0)),
			validation.Field(&p.Limit, validation.Min(0)),
		)
		if err != nil {
			return ir.NewValidationError(ir.ErrCodeInvalidExpression, "", "page", "%v", err)
		}
	}
	return nil
}

func (v *validator) validatePredicate(typ string, p Predicate) error {
	switch pred := p.(type) {
	case AttributeFilter:
		if err := v.checkAttribute(typ, pred.Attribute); err != nil {
			return err
		}
		if err := validation.Validate(pred.Op, validation.Required, validation.In(OpEqual, OpGt, OpGte, OpLt, OpLte)); err != nil {
			return ir.NewValidationError(ir.ErrCodeInvalidExpression, typ, pred.Attribute, "attribute filter op %q: %v", pred.Op, err)
		}
		return nil
	case RelatedRecordFilter:
		_, err := v.checkRelationship(typ, pred.Relationship, schema.HasOne)
		return err
	case RelatedRecordsFilter:
		if _, err := v.checkRelationship(typ, pred.Relationship, schema.HasMany); err != nil {
			return err
		}
		if err := validation.Validate(pred.Op, validation.Required, validation.In(SetEqual, SetAll, SetSome, SetNone)); err != nil {
			return ir.NewValidationError(ir.ErrCodeInvalidExpression, typ, pred.Relationship, "related records filter op %q: %v", pred.Op, err)
		}
		return nil
	}
	return ir.NewValidationError(ir.ErrCodeInvalidExpression, typ, "", "unknown predicate type %T", p)
}

func (v *validator) checkType(typ string) error {
	if !v.schema.HasType(typ) {
		return ir.NewValidationError(ir.ErrCodeUnknownType, typ, "", "unknown record type %q", typ)
	}
	return nil
}

func (v *validator) checkAttribute(typ, name string) error {
	if _, ok := v.schema.Attribute(typ, name); !ok {
		return ir.NewValidationError(ir.ErrCodeUnknownAttribute, typ, name, "unknown attribute %q", name)
	}
	return nil
}

func (v *validator) checkRelationship(typ, name string, kind schema.RelationshipKind) (schema.RelationshipDefinition, error) {
	if err := v.checkType(typ); err != nil {
		return schema.RelationshipDefinition{}, err
	}
	def, ok := v.schema.Relationship(typ, name)
	if !ok {
		return def, ir.NewValidationError(ir.ErrCodeUnknownRelationship, typ, name, "unknown relationship %q", name)
	}
	if def.Kind != kind {
		return def, ir.NewValidationError(ir.ErrCodeRelationshipKind, typ, name, "relationship %q is %s, expected %s", name, def.Kind, kind)
	}
	return def, nil
}

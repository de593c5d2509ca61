package cache

import (
	"context"

	"github.com/roach88/recache/internal/ir"
	"github.com/roach88/recache/internal/schema"
)

// ValidationProcessor rejects operations that do not fit the schema:
// unknown types, keys, attributes and relationships, attribute values of
// the wrong type, relationship values of the wrong kind and related records
// of the wrong type. Its errors are *ir.ValidationError and are raised
// whatever the not-found policy.
type ValidationProcessor struct {
	schema *schema.Schema
}

// NewValidationProcessor returns a ValidationProcessor for s.
func NewValidationProcessor(s *schema.Schema) *ValidationProcessor {
	return &ValidationProcessor{schema: s}
}

// Validate implements Processor.
func (p *ValidationProcessor) Validate(_ context.Context, _ View, op ir.Operation) error {
	if op == nil {
		return ir.NewValidationError(ir.ErrCodeInvalidOperation, "", "", "nil operation")
	}
	target := op.Target()
	if target.Type == "" || target.ID == "" {
		return ir.NewValidationError(ir.ErrCodeInvalidOperation, target.Type, "", "%s requires a record type and id", op.Kind())
	}
	if !p.schema.HasType(target.Type) {
		return ir.NewValidationError(ir.ErrCodeUnknownType, target.Type, "", "unknown record type %q", target.Type)
	}

	switch o := op.(type) {
	case ir.AddRecord:
		return p.validateRecord(&o.Record)
	case ir.UpdateRecord:
		return p.validateRecord(&o.Record)
	case ir.RemoveRecord:
		return nil
	case ir.ReplaceKey:
		return p.validateKey(target.Type, o.Key)
	case ir.ReplaceAttribute:
		return p.validateAttribute(target.Type, o.Attribute, o.Value)
	case ir.AddToRelatedRecords:
		return p.validateRelated(target.Type, o.Relationship, schema.HasMany, o.RelatedRecord)
	case ir.RemoveFromRelatedRecords:
		return p.validateRelated(target.Type, o.Relationship, schema.HasMany, o.RelatedRecord)
	case ir.ReplaceRelatedRecords:
		return p.validateRelated(target.Type, o.Relationship, schema.HasMany, o.RelatedRecords...)
	case ir.ReplaceRelatedRecord:
		if o.RelatedRecord == nil {
			return p.validateRelated(target.Type, o.Relationship, schema.HasOne)
		}
		return p.validateRelated(target.Type, o.Relationship, schema.HasOne, *o.RelatedRecord)
	}
	return ir.NewValidationError(ir.ErrCodeInvalidOperation, target.Type, "", "unknown operation type %T", op)
}

// After implements Processor. Validation produces no follow-up operations.
func (p *ValidationProcessor) After(context.Context, View, Change) ([]ir.Operation, error) {
	return nil, nil
}

func (p *ValidationProcessor) validateRecord(r *ir.Record) error {
	for key := range r.Keys {
		if err := p.validateKey(r.Type, key); err != nil {
			return err
		}
	}
	for name, v := range r.Attributes {
		if err := p.validateAttribute(r.Type, name, v); err != nil {
			return err
		}
	}
	for name, rel := range r.Relationships {
		kind := schema.HasOne
		if rel.ToMany {
			kind = schema.HasMany
		}
		if err := p.validateRelated(r.Type, name, kind, rel.Identities()...); err != nil {
			return err
		}
	}
	return nil
}

func (p *ValidationProcessor) validateKey(typ, key string) error {
	if !p.schema.HasKey(typ, key) {
		return ir.NewValidationError(ir.ErrCodeUnknownKey, typ, key, "unknown key %q", key)
	}
	return nil
}

func (p *ValidationProcessor) validateAttribute(typ, name string, v ir.IRValue) error {
	def, ok := p.schema.Attribute(typ, name)
	if !ok {
		return ir.NewValidationError(ir.ErrCodeUnknownAttribute, typ, name, "unknown attribute %q", name)
	}
	if !attributeTypeMatches(def.Type, v) {
		return ir.NewValidationError(ir.ErrCodeAttributeType, typ, name, "attribute %q expects %s, got %T", name, def.Type, v)
	}
	return nil
}

func (p *ValidationProcessor) validateRelated(typ, name string, kind schema.RelationshipKind, related ...ir.RecordIdentity) error {
	def, ok := p.schema.Relationship(typ, name)
	if !ok {
		return ir.NewValidationError(ir.ErrCodeUnknownRelationship, typ, name, "unknown relationship %q", name)
	}
	if def.Kind != kind {
		return ir.NewValidationError(ir.ErrCodeRelationshipKind, typ, name, "relationship %q is %s, got a %s value", name, def.Kind, kind)
	}
	for _, id := range related {
		if id.Type != def.Type {
			return ir.NewValidationError(ir.ErrCodeRelatedType, typ, name, "relationship %q relates to %q, got %s", name, def.Type, id)
		}
		if id.ID == "" {
			return ir.NewValidationError(ir.ErrCodeInvalidOperation, typ, name, "related record of %q has no id", name)
		}
	}
	return nil
}

// attributeTypeMatches reports whether v fits the declared type. Null fits
// every type and an undeclared type accepts any value.
func attributeTypeMatches(declared string, v ir.IRValue) bool {
	if ir.IsNull(v) {
		return true
	}
	switch declared {
	case schema.AttrString, schema.AttrDate, schema.AttrDateTime:
		_, ok := v.(ir.IRString)
		return ok
	case schema.AttrNumber:
		// Integers only; values carry no float.
		_, ok := v.(ir.IRInt)
		return ok
	case schema.AttrBoolean:
		_, ok := v.(ir.IRBool)
		return ok
	case schema.AttrArray:
		_, ok := v.(ir.IRArray)
		return ok
	case schema.AttrObject:
		_, ok := v.(ir.IRObject)
		return ok
	}
	return true
}

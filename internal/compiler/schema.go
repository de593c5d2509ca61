// Package compiler builds record schemas from CUE.
//
// A CUE schema declares one struct per record type under model:
//
//	model: planet: {
//		attributes: {
//			name:     string
//			sequence: int
//			founded:  "date"
//		}
//		keys: remoteId: {}
//		relationships: moons: {
//			kind:      "hasMany"
//			type:      "moon"
//			inverse:   "planet"
//			dependent: "remove"
//		}
//	}
//
// Attribute types come from the CUE kind of the field: string, int, bool,
// list and struct map to string, number, boolean, array and object, and top
// (_) accepts any value. A concrete string names a schema attribute type
// directly, which is how date and datetime are declared. Floats are
// rejected: record values have no float representation.
package compiler

import (
	"fmt"

	"cuelang.org/go/cue"

	"github.com/roach88/recache/internal/schema"
)

// CompileSchema reads the model struct of v into a validated schema.
//
// v is the root value of a CUE file or package, e.g.:
//
//	ctx := cuecontext.New()
//	s, err := CompileSchema(ctx.CompileString(src))
func CompileSchema(v cue.Value) (*schema.Schema, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	modelsVal := v.LookupPath(cue.ParsePath("model"))
	if !modelsVal.Exists() {
		return nil, &CompileError{Field: "model", Message: "model is required", Pos: v.Pos()}
	}

	iter, err := modelsVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	models := make(map[string]schema.ModelDefinition)
	for iter.Next() {
		def, err := compileModel(iter.Label(), iter.Value())
		if err != nil {
			return nil, err
		}
		models[iter.Label()] = def
	}

	s, err := schema.New(models)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return s, nil
}

func compileModel(typ string, v cue.Value) (schema.ModelDefinition, error) {
	var def schema.ModelDefinition

	if attrs := v.LookupPath(cue.ParsePath("attributes")); attrs.Exists() {
		iter, err := attrs.Fields()
		if err != nil {
			return def, formatCUEError(err)
		}
		def.Attributes = make(map[string]schema.AttributeDefinition)
		for iter.Next() {
			attrType, err := attributeType(iter.Value())
			if err != nil {
				return def, err
			}
			def.Attributes[iter.Label()] = schema.AttributeDefinition{Type: attrType}
		}
	}

	keys, err := compileKeys(v.LookupPath(cue.ParsePath("keys")))
	if err != nil {
		return def, err
	}
	def.Keys = keys

	if rels := v.LookupPath(cue.ParsePath("relationships")); rels.Exists() {
		iter, err := rels.Fields()
		if err != nil {
			return def, formatCUEError(err)
		}
		def.Relationships = make(map[string]schema.RelationshipDefinition)
		for iter.Next() {
			rel, err := compileRelationship(fmt.Sprintf("model.%s.relationships.%s", typ, iter.Label()), iter.Value())
			if err != nil {
				return def, err
			}
			def.Relationships[iter.Label()] = rel
		}
	}
	return def, nil
}

// compileKeys accepts a struct of key names or a list of them.
func compileKeys(v cue.Value) (map[string]schema.KeyDefinition, error) {
	if !v.Exists() {
		return nil, nil
	}
	keys := make(map[string]schema.KeyDefinition)
	if v.IncompleteKind() == cue.ListKind {
		iter, err := v.List()
		if err != nil {
			return nil, formatCUEError(err)
		}
		for iter.Next() {
			name, err := iter.Value().String()
			if err != nil {
				return nil, formatCUEError(err)
			}
			keys[name] = schema.KeyDefinition{}
		}
		return keys, nil
	}
	iter, err := v.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		keys[iter.Label()] = schema.KeyDefinition{}
	}
	return keys, nil
}

func compileRelationship(field string, v cue.Value) (schema.RelationshipDefinition, error) {
	var rel schema.RelationshipDefinition

	kind, err := requiredString(v, "kind", field)
	if err != nil {
		return rel, err
	}
	rel.Kind = schema.RelationshipKind(kind)
	if rel.Type, err = requiredString(v, "type", field); err != nil {
		return rel, err
	}
	if rel.Inverse, err = optionalString(v, "inverse"); err != nil {
		return rel, err
	}
	if rel.Dependent, err = optionalString(v, "dependent"); err != nil {
		return rel, err
	}
	return rel, nil
}

func requiredString(v cue.Value, name, field string) (string, error) {
	f := v.LookupPath(cue.ParsePath(name))
	if !f.Exists() {
		return "", &CompileError{Field: field + "." + name, Message: name + " is required", Pos: v.Pos()}
	}
	s, err := f.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}

func optionalString(v cue.Value, name string) (string, error) {
	f := v.LookupPath(cue.ParsePath(name))
	if !f.Exists() {
		return "", nil
	}
	s, err := f.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}

// attributeType maps a CUE attribute declaration to a schema attribute type.
func attributeType(v cue.Value) (string, error) {
	if v.IsConcrete() && v.Kind() == cue.StringKind {
		s, err := v.String()
		if err != nil {
			return "", formatCUEError(err)
		}
		return s, nil
	}
	switch v.IncompleteKind() {
	case cue.StringKind:
		return schema.AttrString, nil
	case cue.IntKind:
		return schema.AttrNumber, nil
	case cue.BoolKind:
		return schema.AttrBoolean, nil
	case cue.ListKind:
		return schema.AttrArray, nil
	case cue.StructKind:
		return schema.AttrObject, nil
	case cue.TopKind:
		return "", nil
	case cue.FloatKind, cue.NumberKind:
		return "", &CompileError{
			Field:   "type",
			Message: "float types are not supported, use int",
			Pos:     v.Pos(),
		}
	}
	return "", &CompileError{
		Field:   "type",
		Message: fmt.Sprintf("unsupported type kind: %v", v.IncompleteKind()),
		Pos:     v.Pos(),
	}
}

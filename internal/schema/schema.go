// Package schema describes record types: their attributes, relationships and
// keys. The cache consumes a Schema read-only.
package schema

import (
	"maps"
	"slices"
)

// RelationshipKind is the cardinality of a relationship.
type RelationshipKind string

const (
	HasOne  RelationshipKind = "hasOne"
	HasMany RelationshipKind = "hasMany"
)

// DependentRemove marks a relationship whose related records are removed
// together with the owning record.
const DependentRemove = "remove"

// Attribute types. An empty type accepts any value.
const (
	AttrString   = "string"
	AttrNumber   = "number"
	AttrBoolean  = "boolean"
	AttrDate     = "date"
	AttrDateTime = "datetime"
	AttrArray    = "array"
	AttrObject   = "object"
)

// AttributeDefinition declares one attribute.
type AttributeDefinition struct {
	Type string `yaml:"type,omitempty" json:"type,omitempty"`
}

// RelationshipDefinition declares one relationship.
type RelationshipDefinition struct {
	Kind      RelationshipKind `yaml:"kind" json:"kind"`
	Type      string           `yaml:"type" json:"type"`
	Inverse   string           `yaml:"inverse,omitempty" json:"inverse,omitempty"`
	Dependent string           `yaml:"dependent,omitempty" json:"dependent,omitempty"`
}

// IsDependent reports whether related records are removed with the owner.
func (d RelationshipDefinition) IsDependent() bool {
	return d.Dependent == DependentRemove
}

// KeyDefinition declares one remote key.
type KeyDefinition struct{}

// ModelDefinition describes one record type.
type ModelDefinition struct {
	Attributes    map[string]AttributeDefinition    `yaml:"attributes,omitempty" json:"attributes,omitempty"`
	Relationships map[string]RelationshipDefinition `yaml:"relationships,omitempty" json:"relationships,omitempty"`
	Keys          map[string]KeyDefinition          `yaml:"keys,omitempty" json:"keys,omitempty"`
}

// Schema is the set of model definitions, keyed by type name.
type Schema struct {
	Models map[string]ModelDefinition `yaml:"models" json:"models"`
}

// New builds a schema and validates it.
func New(models map[string]ModelDefinition) (*Schema, error) {
	s := &Schema{Models: models}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// MustNew is New for tests and static schemas; it panics on error.
func MustNew(models map[string]ModelDefinition) *Schema {
	s, err := New(models)
	if err != nil {
		panic(err)
	}
	return s
}

// Model returns the definition for a type.
func (s *Schema) Model(typ string) (ModelDefinition, bool) {
	m, ok := s.Models[typ]
	return m, ok
}

// HasType reports whether typ is defined.
func (s *Schema) HasType(typ string) bool {
	_, ok := s.Models[typ]
	return ok
}

// Types returns the defined type names in sorted order.
func (s *Schema) Types() []string {
	return slices.Sorted(maps.Keys(s.Models))
}

// Attribute returns an attribute definition.
func (s *Schema) Attribute(typ, name string) (AttributeDefinition, bool) {
	m, ok := s.Models[typ]
	if !ok {
		return AttributeDefinition{}, false
	}
	a, ok := m.Attributes[name]
	return a, ok
}

// Relationship returns a relationship definition.
func (s *Schema) Relationship(typ, name string) (RelationshipDefinition, bool) {
	m, ok := s.Models[typ]
	if !ok {
		return RelationshipDefinition{}, false
	}
	r, ok := m.Relationships[name]
	return r, ok
}

// HasKey reports whether typ declares the key.
func (s *Schema) HasKey(typ, name string) bool {
	m, ok := s.Models[typ]
	if !ok {
		return false
	}
	_, ok = m.Keys[name]
	return ok
}

// Inverse returns the definition of the inverse side of typ.name as seen
// from relatedType. It reports false when no inverse is configured.
func (s *Schema) Inverse(typ, name, relatedType string) (RelationshipDefinition, bool) {
	def, ok := s.Relationship(typ, name)
	if !ok || def.Inverse == "" {
		return RelationshipDefinition{}, false
	}
	return s.Relationship(relatedType, def.Inverse)
}

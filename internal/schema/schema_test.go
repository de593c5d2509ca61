package schema

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const planetarium = `
models:
  planet:
    attributes:
      name: {type: string}
      classification: {type: string}
      sequence: {type: number}
    relationships:
      moons: {kind: hasMany, type: moon, inverse: planet, dependent: remove}
      solarSystem: {kind: hasOne, type: solarSystem, inverse: planets}
    keys:
      remoteId: {}
  moon:
    attributes:
      name: {type: string}
    relationships:
      planet: {kind: hasOne, type: planet, inverse: moons}
  solarSystem:
    attributes:
      name: {}
    relationships:
      planets: {kind: hasMany, type: planet, inverse: solarSystem}
`

func TestParse(t *testing.T) {
	s, err := Parse([]byte(planetarium))
	require.NoError(t, err)

	assert.Equal(t, []string{"moon", "planet", "solarSystem"}, s.Types())
	assert.True(t, s.HasType("planet"))
	assert.False(t, s.HasType("comet"))
	assert.True(t, s.HasKey("planet", "remoteId"))
	assert.False(t, s.HasKey("moon", "remoteId"))

	def, ok := s.Relationship("planet", "moons")
	require.True(t, ok)
	assert.Equal(t, HasMany, def.Kind)
	assert.True(t, def.IsDependent())

	attr, ok := s.Attribute("planet", "sequence")
	require.True(t, ok)
	assert.Equal(t, AttrNumber, attr.Type)

	inv, ok := s.Inverse("planet", "moons", "moon")
	require.True(t, ok)
	assert.Equal(t, HasOne, inv.Kind)
	assert.Equal(t, "planet", inv.Type)

	_, ok = s.Inverse("moon", "planet", "comet")
	assert.False(t, ok)
}

func TestParseRejectsUnknownFields(t *testing.T) {
	_, err := Parse([]byte(`
models:
  planet:
    relationships:
      moons: {kind: hasMany, type: planet, inverese: x}
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "inverese")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		models  map[string]ModelDefinition
		wantErr string
	}{
		{
			name:    "empty",
			models:  nil,
			wantErr: "models",
		},
		{
			name: "bad kind",
			models: map[string]ModelDefinition{
				"planet": {Relationships: map[string]RelationshipDefinition{
					"moons": {Kind: "hasSome", Type: "planet"},
				}},
			},
			wantErr: "planet.relationships.moons",
		},
		{
			name: "unknown related type",
			models: map[string]ModelDefinition{
				"planet": {Relationships: map[string]RelationshipDefinition{
					"moons": {Kind: HasMany, Type: "moon"},
				}},
			},
			wantErr: `unknown type "moon"`,
		},
		{
			name: "missing inverse",
			models: map[string]ModelDefinition{
				"planet": {Relationships: map[string]RelationshipDefinition{
					"moons": {Kind: HasMany, Type: "moon", Inverse: "planet"},
				}},
				"moon": {},
			},
			wantErr: `inverse "planet" is not defined on "moon"`,
		},
		{
			name: "inverse points elsewhere",
			models: map[string]ModelDefinition{
				"planet": {Relationships: map[string]RelationshipDefinition{
					"moons": {Kind: HasMany, Type: "moon", Inverse: "planet"},
				}},
				"moon": {Relationships: map[string]RelationshipDefinition{
					"planet": {Kind: HasOne, Type: "moon"},
				}},
			},
			wantErr: "relates to",
		},
		{
			name: "bad dependent",
			models: map[string]ModelDefinition{
				"planet": {Relationships: map[string]RelationshipDefinition{
					"moons": {Kind: HasMany, Type: "planet", Dependent: "cascade"},
				}},
			},
			wantErr: "dependent",
		},
		{
			name: "bad attribute type",
			models: map[string]ModelDefinition{
				"planet": {Attributes: map[string]AttributeDefinition{"mass": {Type: "float"}}},
			},
			wantErr: "planet.attributes.mass",
		},
		{
			name: "attribute and relationship clash",
			models: map[string]ModelDefinition{
				"planet": {
					Attributes:    map[string]AttributeDefinition{"moons": {}},
					Relationships: map[string]RelationshipDefinition{"moons": {Kind: HasMany, Type: "planet"}},
				},
			},
			wantErr: "both attribute and relationship",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.models)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "schema.yaml")
	require.NoError(t, os.WriteFile(path, []byte(planetarium), 0644))

	s, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, s.Models, 3)

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestMustNewPanics(t *testing.T) {
	assert.Panics(t, func() { MustNew(nil) })
}

package compiler

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/recache/internal/schema"
)

func TestCompileSchemaBasic(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`
		model: planet: {
			attributes: {
				name:     string
				sequence: int
				habitable: bool
				tags:     [...string]
				orbit:    {...}
				extra:    _
				founded:  "date"
			}
			keys: remoteId: {}
			relationships: moons: {kind: "hasMany", type: "moon", inverse: "planet", dependent: "remove"}
		}
		model: moon: relationships: planet: {kind: "hasOne", type: "planet", inverse: "moons"}
	`)
	require.NoError(t, v.Err())

	s, err := CompileSchema(v)
	require.NoError(t, err)

	assert.Equal(t, []string{"moon", "planet"}, s.Types())
	planet, ok := s.Model("planet")
	require.True(t, ok)
	assert.Equal(t, map[string]schema.AttributeDefinition{
		"name":      {Type: schema.AttrString},
		"sequence":  {Type: schema.AttrNumber},
		"habitable": {Type: schema.AttrBoolean},
		"tags":      {Type: schema.AttrArray},
		"orbit":     {Type: schema.AttrObject},
		"extra":     {},
		"founded":   {Type: schema.AttrDate},
	}, planet.Attributes)
	assert.True(t, s.HasKey("planet", "remoteId"))

	moons, ok := s.Relationship("planet", "moons")
	require.True(t, ok)
	assert.Equal(t, schema.RelationshipDefinition{Kind: schema.HasMany, Type: "moon", Inverse: "planet", Dependent: "remove"}, moons)
}

func TestCompileSchemaErrors(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		message string
	}{
		{"missing model", `types: {}`, "model is required"},
		{"float attribute", `model: planet: attributes: mass: float`, "float"},
		{"missing kind", `model: planet: relationships: moons: {type: "planet"}`, "kind is required"},
		{"unknown related type", `model: planet: relationships: moons: {kind: "hasMany", type: "moon"}`, "moon"},
		{"bad inverse", `
			model: planet: relationships: moons: {kind: "hasMany", type: "moon", inverse: "owner"}
			model: moon: {}
		`, "owner"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := cuecontext.New().CompileString(tt.src)
			_, err := CompileSchema(v)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}

func TestCompileErrorPosition(t *testing.T) {
	v := cuecontext.New().CompileString("model: planet: {\n\tattributes: mass: float\n}", cue.Filename("planets.cue"))
	_, err := CompileSchema(v)

	var ce *CompileError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "type", ce.Field)
	assert.Contains(t, err.Error(), "planets.cue:2:")
}

func TestLoadFileAndDirectory(t *testing.T) {
	for _, path := range []string{
		filepath.Join("testdata", "planetarium.cue"),
		"testdata",
	} {
		t.Run(path, func(t *testing.T) {
			s, err := Load(path)
			require.NoError(t, err)

			assert.Equal(t, []string{"moon", "planet", "solarSystem"}, s.Types())
			attr, ok := s.Attribute("planet", "discovered")
			require.True(t, ok)
			assert.Equal(t, schema.AttrDate, attr.Type)
			attr, ok = s.Attribute("moon", "name")
			require.True(t, ok, "definitions unify into attributes")
			assert.Equal(t, schema.AttrString, attr.Type)
			assert.True(t, s.HasKey("solarSystem", "catalogId"), "keys may be listed")

			rel, ok := s.Relationship("solarSystem", "planets")
			require.True(t, ok)
			assert.True(t, rel.IsDependent())
		})
	}
}

func TestLoadMissing(t *testing.T) {
	_, err := Load(filepath.Join("testdata", "absent.cue"))
	assert.Error(t, err)
}

func TestLoadSchemaByExtension(t *testing.T) {
	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "schema.yml")
	require.NoError(t, os.WriteFile(yamlPath, []byte(`
models:
  comet:
    attributes:
      name: {type: string}
`), 0644))

	s, err := LoadSchema(yamlPath)
	require.NoError(t, err)
	assert.Equal(t, []string{"comet"}, s.Types())

	s, err = LoadSchema(filepath.Join("testdata", "planetarium.cue"))
	require.NoError(t, err)
	assert.True(t, s.HasType("solarSystem"))
}

package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalSchema = `
models:
  planet:
    attributes:
      name: {type: string}
`

// writeScenario writes a schema and a scenario into a temp dir and returns
// the scenario path.
func writeScenario(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "schema.yaml"), []byte(minimalSchema), 0644))
	path := filepath.Join(dir, "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoadScenario_ValidFile(t *testing.T) {
	path := writeScenario(t, `
name: add_planet
description: Adds a planet
schema: schema.yaml
config:
  use_buffer: true
live_queries:
  - name: planets
    expression: {op: findRecords, type: planet}
steps:
  - update:
      operations:
        - {op: addRecord, record: {type: planet, id: earth, attributes: {name: Earth}}}
      raise_not_found_exceptions: true
    expect:
      data: [{id: earth}]
  - query: {op: findRecord, record: {type: planet, id: earth}}
  - undo: true
assertions:
  - type: record_absent
    record: {type: planet, id: earth}
  - type: live_query_deliveries
    live_query: planets
    count: 2
`)

	s, err := LoadScenario(path)
	require.NoError(t, err)

	assert.Equal(t, "add_planet", s.Name)
	assert.Equal(t, filepath.Join(filepath.Dir(path), "schema.yaml"), s.Schema)
	require.NotNil(t, s.Config)
	require.NotNil(t, s.Config.UseBuffer)
	assert.True(t, *s.Config.UseBuffer)
	assert.Nil(t, s.Config.DebounceLiveQueries)
	require.Len(t, s.Steps, 3)
	require.NotNil(t, s.Steps[0].Update)
	assert.Len(t, s.Steps[0].Update.Operations, 1)
	require.NotNil(t, s.Steps[0].Update.RaiseNotFoundExceptions)
	assert.Equal(t, "findRecord", s.Steps[1].Query["op"])
	assert.True(t, s.Steps[2].Undo)
	assert.Len(t, s.Assertions, 2)
}

func TestLoadScenario_QueryExpectations(t *testing.T) {
	path := writeScenario(t, `
name: query_expectations
description: Null and undefined query answers
schema: schema.yaml
steps:
  - query: {op: findRecord, record: {type: planet, id: earth}}
    expect:
      null_result: true
  - query: {op: findRecord, record: {type: planet, id: pluto}}
    expect:
      undefined: true
`)

	s, err := LoadScenario(path)
	require.NoError(t, err)
	require.Len(t, s.Steps, 2)
	require.NotNil(t, s.Steps[0].Expect)
	assert.True(t, s.Steps[0].Expect.Null)
	assert.False(t, s.Steps[0].Expect.Undefined)
	require.NotNil(t, s.Steps[1].Expect)
	assert.True(t, s.Steps[1].Expect.Undefined)
	assert.False(t, s.Steps[1].Expect.Null)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestLoadScenario_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{
			name: "missing name",
			body: "description: d\nschema: schema.yaml\nsteps: [{undo: true}]\n",
			want: "name is required",
		},
		{
			name: "missing description",
			body: "name: n\nschema: schema.yaml\nsteps: [{undo: true}]\n",
			want: "description is required",
		},
		{
			name: "missing schema",
			body: "name: n\ndescription: d\nsteps: [{undo: true}]\n",
			want: "schema is required",
		},
		{
			name: "schema not found",
			body: "name: n\ndescription: d\nschema: absent.yaml\nsteps: [{undo: true}]\n",
			want: "schema not found",
		},
		{
			name: "no steps",
			body: "name: n\ndescription: d\nschema: schema.yaml\n",
			want: "steps list is required",
		},
		{
			name: "two kinds in one step",
			body: "name: n\ndescription: d\nschema: schema.yaml\nsteps:\n  - undo: true\n    query: {op: findRecords, type: planet}\n",
			want: "exactly one of update, query or undo",
		},
		{
			name: "empty update",
			body: "name: n\ndescription: d\nschema: schema.yaml\nsteps:\n  - update: {operations: []}\n",
			want: "update requires operations",
		},
		{
			name: "duplicate live query",
			body: "name: n\ndescription: d\nschema: schema.yaml\nlive_queries:\n  - {name: q, expression: {op: findRecords, type: planet}}\n  - {name: q, expression: {op: findRecords, type: planet}}\nsteps: [{undo: true}]\n",
			want: "duplicate name",
		},
		{
			name: "unknown assertion",
			body: "name: n\ndescription: d\nschema: schema.yaml\nsteps: [{undo: true}]\nassertions: [{type: final_state}]\n",
			want: `unknown assertion type "final_state"`,
		},
		{
			name: "unknown live query in assertion",
			body: "name: n\ndescription: d\nschema: schema.yaml\nsteps: [{undo: true}]\nassertions: [{type: live_query_deliveries, live_query: q, count: 1}]\n",
			want: `unknown live query "q"`,
		},
		{
			name: "attribute assertion without attribute",
			body: "name: n\ndescription: d\nschema: schema.yaml\nsteps: [{undo: true}]\nassertions: [{type: attribute_equals, record: {type: planet, id: p}}]\n",
			want: "record and attribute are required",
		},
		{
			name: "unknown field",
			body: "name: n\ndescription: d\nschema: schema.yaml\nsteps: [{undo: true}]\nasertions: []\n",
			want: "failed to parse scenario YAML",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadScenario(writeScenario(t, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadScenarioWithBasePath(t *testing.T) {
	dir := t.TempDir()
	schemaDir := filepath.Join(dir, "schemas")
	require.NoError(t, os.Mkdir(schemaDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(schemaDir, "schema.yaml"), []byte(minimalSchema), 0644))
	path := filepath.Join(dir, "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: n\ndescription: d\nschema: schema.yaml\nsteps: [{undo: true}]\n"), 0644))

	s, err := LoadScenarioWithBasePath(path, schemaDir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(schemaDir, "schema.yaml"), s.Schema)
}

func TestLoadExampleScenarios(t *testing.T) {
	paths, err := filepath.Glob(filepath.Join("testdata", "scenarios", "*.yaml"))
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, path := range paths {
		t.Run(filepath.Base(path), func(t *testing.T) {
			_, err := LoadScenario(path)
			assert.NoError(t, err)
		})
	}
}

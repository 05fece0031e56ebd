package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeScenario(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadScenario_ValidFile(t *testing.T) {
	scenario, err := LoadScenario(filepath.Join("testdata", "scenarios", "unit_variants.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "unit_variants", scenario.Name)
	assert.Len(t, scenario.Setup, 2)
	assert.Equal(t, "UnitData", scenario.Setup[0].Type)
	assert.Equal(t, "atlas", scenario.Setup[0].Body["id"])
	require.Len(t, scenario.Steps, 6)
	assert.Equal(t, OpResolve, scenario.Steps[0].Op)
	assert.Equal(t, "UNKNOWN_VARIANT", scenario.Steps[1].Expect.Error)
	assert.Equal(t, []string{"atlas", "savannah"}, scenario.Steps[5].Expect.IDs)
	assert.Len(t, scenario.Assertions, 3)
}

func TestLoadScenario_ResolvesSchemaPaths(t *testing.T) {
	scenario, err := LoadScenario(filepath.Join("testdata", "scenarios", "army_catalog.yaml"))
	require.NoError(t, err)

	require.Len(t, scenario.Schemas, 1)
	assert.Equal(t, filepath.Join("testdata", "schemas", "army.cue"), scenario.Schemas[0])
}

func TestLoadScenario_MissingSchemaFile(t *testing.T) {
	path := writeScenario(t, t.TempDir(), `
name: s
description: d
schemas: [nope.cue]
steps:
  - op: check_filter
    input: {}
`)
	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "schema file not found")
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestParseScenario_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "unknown field",
			content: "name: s\ndescription: d\nstep:\n  - op: check_filter\n",
			wantErr: "field step not found",
		},
		{
			name:    "missing name",
			content: "description: d\nsteps:\n  - op: check_filter\n",
			wantErr: "name is required",
		},
		{
			name:    "missing description",
			content: "name: s\nsteps:\n  - op: check_filter\n",
			wantErr: "description is required",
		},
		{
			name:    "no steps",
			content: "name: s\ndescription: d\n",
			wantErr: "steps list is required",
		},
		{
			name:    "unknown op",
			content: "name: s\ndescription: d\nsteps:\n  - op: delete\n",
			wantErr: `steps[0]: unknown op "delete"`,
		},
		{
			name:    "missing op",
			content: "name: s\ndescription: d\nsteps:\n  - type: UnitData\n",
			wantErr: "steps[0]: op is required",
		},
		{
			name:    "resolve without type",
			content: "name: s\ndescription: d\nsteps:\n  - op: resolve\n",
			wantErr: "type is required for resolve",
		},
		{
			name:    "error with result",
			content: "name: s\ndescription: d\nsteps:\n  - op: resolve\n    type: UnitData\n    expect: {error: TYPE_MISMATCH, result: {id: x}}\n",
			wantErr: "error cannot be combined",
		},
		{
			name:    "ids on catalog",
			content: "name: s\ndescription: d\nsteps:\n  - op: catalog\n    type: UnitData\n    expect: {ids: [a]}\n",
			wantErr: "ids only applies to find",
		},
		{
			name:    "setup without body",
			content: "name: s\ndescription: d\nsetup:\n  - type: UnitData\nsteps:\n  - op: check_filter\n",
			wantErr: "setup[0]: body is required",
		},
		{
			name:    "unknown assertion",
			content: "name: s\ndescription: d\nsteps:\n  - op: check_filter\nassertions:\n  - type: final_state\n",
			wantErr: `unknown assertion type "final_state"`,
		},
		{
			name:    "store_count without item class",
			content: "name: s\ndescription: d\nsteps:\n  - op: check_filter\nassertions:\n  - type: store_count\n",
			wantErr: "item_class is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestParseScenario_InputShapes(t *testing.T) {
	scenario, err := ParseScenario([]byte(`
name: shapes
description: d
steps:
  - op: check_filter
    input: {mass: {"$gte": 50}}
  - op: check_pipeline
    input:
      - {"$match": {}}
`))
	require.NoError(t, err)

	filter, ok := scenario.Steps[0].Input.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, map[string]any{"$gte": 50}, filter["mass"])

	pipeline, ok := scenario.Steps[1].Input.([]any)
	require.True(t, ok)
	assert.Len(t, pipeline, 1)
}

package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_Scenarios(t *testing.T) {
	paths, err := filepath.Glob(filepath.Join("testdata", "scenarios", "*.yaml"))
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, path := range paths {
		t.Run(filepath.Base(path), func(t *testing.T) {
			scenario, err := LoadScenario(path)
			require.NoError(t, err)

			result, err := Run(scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
			assert.Len(t, result.Trace, len(scenario.Steps))
		})
	}
}

func TestRun_ResolveStep(t *testing.T) {
	scenario := &Scenario{
		Name:        "resolve",
		Description: "resolve an era",
		Steps: []Step{{
			Op:     OpResolve,
			Type:   "EraItem",
			Input:  map[string]any{"id": 9, "name": "Jihad", "yearStart": 3067, "yearEnd": 3081},
			Expect: &Expect{Result: map[string]any{"name": "Jihad", "yearEnd": 3081}},
		}},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	require.Len(t, result.Trace, 1)
	assert.Equal(t, OutcomeOK, result.Trace[0].Outcome)
	assert.Equal(t, "EraItem", result.Trace[0].Target)
	assert.NotNil(t, result.Trace[0].Value)
}

func TestRun_UnexpectedFailureIsReported(t *testing.T) {
	scenario := &Scenario{
		Name:        "bad_era",
		Description: "yearStart must be an integer",
		Steps: []Step{{
			Op:    OpResolve,
			Type:  "EraItem",
			Input: map[string]any{"id": 9, "name": "Jihad", "yearStart": "soon", "yearEnd": 3081},
		}},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "expected outcome ok, got TYPE_MISMATCH")
	assert.Equal(t, "yearStart", result.Trace[0].Path)
}

func TestRun_ResultMismatchIsReported(t *testing.T) {
	scenario := &Scenario{
		Name:        "wrong_name",
		Description: "subset mismatch",
		Steps: []Step{{
			Op:     OpResolve,
			Type:   "BasicItem",
			Input:  map[string]any{"id": 1, "name": "Clan"},
			Expect: &Expect{Result: map[string]any{"name": "Inner Sphere"}},
		}},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "name: expected")
	assert.Contains(t, result.Errors[0], "resolved record:")
}

func TestRun_ExpectedErrorPathMismatch(t *testing.T) {
	scenario := &Scenario{
		Name:        "path",
		Description: "wrong path",
		Steps: []Step{{
			Op:     OpCheckFilter,
			Input:  map[string]any{"$where": "1"},
			Expect: &Expect{Error: "OPERATOR_NOT_ALLOWED", Path: "elsewhere"},
		}},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	assert.Contains(t, result.Errors[0], `expected path "elsewhere", got "$where"`)
}

func TestRun_SetupMustResolve(t *testing.T) {
	scenario := &Scenario{
		Name:        "bad_setup",
		Description: "setup record with an unknown variant",
		Setup: []SetupRecord{
			{Type: "UnitData", Body: map[string]any{"id": "x", "unitTypeId": 9, "totalWar": map[string]any{}}},
		},
		Steps: []Step{{Op: OpCheckFilter, Input: map[string]any{}}},
	}

	_, err := Run(scenario)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "setup[0]")
	assert.Contains(t, err.Error(), "UNKNOWN_VARIANT")
}

func TestRun_SetupCountsAndFind(t *testing.T) {
	scenario := &Scenario{
		Name:        "eras",
		Description: "seed eras and query them",
		Setup: []SetupRecord{
			{Type: "EraItem", Body: map[string]any{"id": 9, "name": "Jihad", "yearStart": 3067, "yearEnd": 3081}},
			{Type: "EraItem", Body: map[string]any{"id": 10, "name": "Civil War", "yearStart": 3062, "yearEnd": 3067}},
		},
		Steps: []Step{
			{Op: OpFind, Type: "EraItem", Input: map[string]any{"yearStart": map[string]any{"$gte": 3065}}},
			{Op: OpFind, Type: "EraItem", Input: map[string]any{"$where": "true"}, Expect: &Expect{Error: "OPERATOR_NOT_ALLOWED"}},
		},
		Assertions: []Assertion{
			{Type: AssertStoreCount, ItemClass: "EraItem", Count: 2},
			{Type: AssertStoreCount, ItemClass: "EraItem", Filter: map[string]any{"name": map[string]any{"$regex": "^Civil"}}, Count: 1},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Equal(t, map[string]int{"EraItem": 2}, result.Stored)
	assert.Equal(t, []string{"9"}, result.Trace[0].Value)
}

func TestRun_FreshStorePerRun(t *testing.T) {
	scenario := &Scenario{
		Name:        "fresh",
		Description: "each run starts empty",
		Setup: []SetupRecord{
			{Type: "BasicItem", Body: map[string]any{"id": 1, "name": "Clan"}},
		},
		Steps:      []Step{{Op: OpFind, Type: "BasicItem"}},
		Assertions: []Assertion{{Type: AssertStoreCount, ItemClass: "BasicItem", Count: 1}},
	}

	for i := 0; i < 2; i++ {
		result, err := Run(scenario)
		require.NoError(t, err)
		assert.True(t, result.Pass, "errors: %v", result.Errors)
	}
}

func TestRun_Deterministic(t *testing.T) {
	scenario, err := LoadScenario(filepath.Join("testdata", "scenarios", "unit_variants.yaml"))
	require.NoError(t, err)

	first, err := Run(scenario)
	require.NoError(t, err)
	second, err := Run(scenario)
	require.NoError(t, err)
	assert.Equal(t, first.Trace, second.Trace)
}

func TestRun_BadSchemaFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.cue")
	require.NoError(t, os.WriteFile(path, []byte(`schema: Broken: fields: x: {type: "nope"}`), 0o644))

	_, err := Run(&Scenario{
		Name:        "broken",
		Description: "unknown field type",
		Schemas:     []string{path},
		Steps:       []Step{{Op: OpCheckFilter, Input: map[string]any{}}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load schemas")
}

func TestResult_AddError(t *testing.T) {
	r := NewResult()
	assert.True(t, r.Pass)

	r.AddError("boom")
	assert.False(t, r.Pass)
	assert.Equal(t, []string{"boom"}, r.Errors)
}

func TestResult_AddTraceNumbersEvents(t *testing.T) {
	r := NewResult()
	r.AddTrace(TraceEvent{Op: OpCatalog, Index: 42})
	r.AddTrace(TraceEvent{Op: OpFind})

	assert.Equal(t, 0, r.Trace[0].Index)
	assert.Equal(t, 1, r.Trace[1].Index)
}

package harness

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/nullg/internal/ir"
	"github.com/roach88/nullg/internal/models"
)

// Regenerate with: go test ./internal/harness -update

func TestRunWithGolden_UnitVariants(t *testing.T) {
	scenario, err := LoadScenario(filepath.Join("testdata", "scenarios", "unit_variants.yaml"))
	require.NoError(t, err)

	result, err := RunWithGolden(t, scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRunWithGolden_QueryPolicy(t *testing.T) {
	scenario, err := LoadScenario(filepath.Join("testdata", "scenarios", "query_policy.yaml"))
	require.NoError(t, err)

	result, err := RunWithGolden(t, scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestAssertCatalogGolden_EraItem(t *testing.T) {
	require.NoError(t, AssertCatalogGolden(t, models.Graph(), models.EraItem))
}

func TestAssertCatalogGolden_UnknownRoot(t *testing.T) {
	err := AssertCatalogGolden(t, models.Graph(), "Nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown record type")
}

func TestTraceSnapshot_OmitsMessagesAndValues(t *testing.T) {
	snapshot := TraceSnapshot{
		ScenarioName: "snap",
		Trace: []TraceEvent{
			{Index: 0, Op: OpResolve, Target: "UnitData", Outcome: "TYPE_MISMATCH", Path: "mass", Message: "long text", Value: ir.Object{}},
			{Index: 1, Op: OpCheckPipeline, Outcome: "STAGE_NOT_ALLOWED", Key: "$merge", Path: "[0].$merge"},
		},
	}

	data, err := ir.MarshalCanonical(snapshot.toCanonicalMap())
	require.NoError(t, err)
	assert.Equal(t,
		`{"scenario_name":"snap","trace":[`+
			`{"index":0,"op":"resolve","outcome":"TYPE_MISMATCH","path":"mass","target":"UnitData"},`+
			`{"index":1,"key":"$merge","op":"check_pipeline","outcome":"STAGE_NOT_ALLOWED","path":"[0].$merge"}]}`,
		string(data))
}

func TestCanonicalJSONDeterminism(t *testing.T) {
	scenario, err := LoadScenario(filepath.Join("testdata", "scenarios", "query_policy.yaml"))
	require.NoError(t, err)

	var first []byte
	for i := 0; i < 5; i++ {
		result, err := Run(scenario)
		require.NoError(t, err)
		snapshot := TraceSnapshot{ScenarioName: scenario.Name, Trace: result.Trace}
		data, err := ir.MarshalCanonical(snapshot.toCanonicalMap())
		require.NoError(t, err)
		if i == 0 {
			first = data
			continue
		}
		assert.Equal(t, string(first), string(data), "run %d", i)
	}
}

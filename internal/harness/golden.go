package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/nullg/internal/fieldcatalog"
	"github.com/roach88/nullg/internal/ir"
	"github.com/roach88/nullg/internal/schema"
)

// TraceSnapshot captures the outcome trace of a scenario execution.
// Messages and step products are left out; a golden file pins only codes,
// paths and keys.
type TraceSnapshot struct {
	ScenarioName string       `json:"scenario_name"`
	Trace        []TraceEvent `json:"trace"`
}

// toCanonicalMap converts a TraceSnapshot to a raw tree for canonical JSON.
func (s *TraceSnapshot) toCanonicalMap() map[string]any {
	traceList := make([]any, len(s.Trace))
	for i, ev := range s.Trace {
		m := map[string]any{
			"index":   ev.Index,
			"op":      ev.Op,
			"outcome": ev.Outcome,
		}
		if ev.Target != "" {
			m["target"] = ev.Target
		}
		if ev.Path != "" {
			m["path"] = ev.Path
		}
		if ev.Key != "" {
			m["key"] = ev.Key
		}
		traceList[i] = m
	}
	return map[string]any{
		"scenario_name": s.ScenarioName,
		"trace":         traceList,
	}
}

func newGoldie(t *testing.T) *goldie.Goldie {
	return goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
}

// RunWithGolden executes a scenario and compares its trace against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result's trace against a golden file.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	snapshot := TraceSnapshot{ScenarioName: scenarioName, Trace: result.Trace}
	data, err := ir.MarshalCanonical(snapshot.toCanonicalMap())
	if err != nil {
		return err
	}
	newGoldie(t).Assert(t, scenarioName, data)
	return nil
}

// AssertCatalogGolden builds the field catalog of root and compares its
// canonical JSON against testdata/golden/catalog_{root}.golden.
func AssertCatalogGolden(t *testing.T, g *schema.Graph, root string) error {
	t.Helper()

	cat, err := fieldcatalog.BuildNamed(g, root)
	if err != nil {
		return err
	}
	data, err := ir.MarshalCanonical(catalogMap(cat))
	if err != nil {
		return err
	}
	newGoldie(t).Assert(t, "catalog_"+root, data)
	return nil
}

func catalogMap(cat *fieldcatalog.Catalog) map[string]any {
	fields := make([]any, len(cat.Entries))
	for i, e := range cat.Entries {
		ops := make([]any, len(e.Operators))
		for j, op := range e.Operators {
			ops[j] = op
		}
		var example any
		if e.Example != nil {
			example = *e.Example
		}
		fields[i] = map[string]any{
			"name":        e.Path,
			"type":        e.Type,
			"description": e.Description,
			"operators":   ops,
			"example":     example,
			"category":    e.Category,
		}
	}
	return map[string]any{
		"root":   cat.Root,
		"fields": fields,
	}
}

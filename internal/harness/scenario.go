package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Scenario defines a conformance scenario.
// A scenario seeds a store, runs a sequence of data-layer operations against
// the schema graph, and asserts on each outcome and on the final store.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Schemas lists extra CUE declaration files loaded on top of the
	// embedded record types. Paths are relative to the scenario file.
	Schemas []string `yaml:"schemas,omitempty"`

	// Setup lists records resolved and written to the store before the steps.
	// Setup records must resolve.
	Setup []SetupRecord `yaml:"setup,omitempty"`

	// Steps run in order; each records one trace event.
	Steps []Step `yaml:"steps"`

	// Assertions validate the trace and the final store.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// SetupRecord is one record to seed the store with.
type SetupRecord struct {
	Type string         `yaml:"type"`
	Body map[string]any `yaml:"body"`
}

// Step operations.
const (
	OpResolve       = "resolve"
	OpCheckFilter   = "check_filter"
	OpCheckPipeline = "check_pipeline"
	OpCatalog       = "catalog"
	OpFind          = "find"
)

// Step is a single operation.
type Step struct {
	// Op is one of resolve, check_filter, check_pipeline, catalog or find.
	Op string `yaml:"op"`

	// Type names the record type for resolve, catalog and find.
	Type string `yaml:"type,omitempty"`

	// Input is the raw record for resolve, the filter for check_filter and
	// find, and the stage list for check_pipeline.
	Input any `yaml:"input,omitempty"`

	// Expect describes the outcome. A nil Expect only requires success.
	Expect *Expect `yaml:"expect,omitempty"`
}

// Expect specifies the expected outcome of a step.
type Expect struct {
	// Error is the expected error code, e.g. UNKNOWN_VARIANT or
	// OPERATOR_NOT_ALLOWED. Empty means the step must succeed.
	Error string `yaml:"error,omitempty"`

	// Path is the expected error path.
	Path string `yaml:"path,omitempty"`

	// Key is the expected offending operator or stage.
	Key string `yaml:"key,omitempty"`

	// Result is a subset match against the resolved record.
	Result map[string]any `yaml:"result,omitempty"`

	// IDs are the record ids find must return, in order.
	IDs []string `yaml:"ids,omitempty"`

	// Fields are paths the catalog must list.
	Fields []string `yaml:"fields,omitempty"`

	// Count is the number of find matches or catalog entries.
	Count *int `yaml:"count,omitempty"`
}

// Assertion validates the trace or the final store.
type Assertion struct {
	// Type is trace_contains, trace_count or store_count.
	Type string `yaml:"type"`

	// Op and Target select trace events (trace_contains, trace_count).
	Op     string `yaml:"op,omitempty"`
	Target string `yaml:"target,omitempty"`

	// Outcome is "ok" or an error code (trace_contains).
	Outcome string `yaml:"outcome,omitempty"`

	// ItemClass and Filter select stored records (store_count).
	ItemClass string         `yaml:"item_class,omitempty"`
	Filter    map[string]any `yaml:"filter,omitempty"`

	Count int `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceCount    = "trace_count"
	AssertStoreCount    = "store_count"
)

// LoadScenario reads and parses a scenario YAML file. Schema paths resolve
// relative to the file. Unknown fields are rejected.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, filepath.Dir(path))
}

// LoadScenarioWithBasePath reads and parses a scenario YAML file,
// resolving schema paths relative to basePath.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}

	for i, p := range scenario.Schemas {
		if !filepath.IsAbs(p) && basePath != "" {
			scenario.Schemas[i] = filepath.Join(basePath, p)
		}
	}
	for _, p := range scenario.Schemas {
		if _, err := os.Stat(p); os.IsNotExist(err) {
			return nil, fmt.Errorf("invalid scenario: schema file not found: %s", p)
		}
	}
	return scenario, nil
}

// ParseScenario parses and validates scenario YAML. Schema paths are left
// as written.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // catches "step:" vs "steps:"
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for i, rec := range s.Setup {
		if rec.Type == "" {
			return fmt.Errorf("setup[%d]: type is required", i)
		}
		if rec.Body == nil {
			return fmt.Errorf("setup[%d]: body is required", i)
		}
	}

	for i, step := range s.Steps {
		if err := validateStep(i, &step); err != nil {
			return err
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(i, &a); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(index int, s *Step) error {
	switch s.Op {
	case OpResolve, OpCatalog, OpFind:
		if s.Type == "" {
			return fmt.Errorf("steps[%d]: type is required for %s", index, s.Op)
		}
	case OpCheckFilter, OpCheckPipeline:
	case "":
		return fmt.Errorf("steps[%d]: op is required", index)
	default:
		return fmt.Errorf("steps[%d]: unknown op %q", index, s.Op)
	}

	if s.Expect == nil {
		return nil
	}
	e := s.Expect
	if e.Error != "" && (e.Result != nil || e.IDs != nil || e.Fields != nil || e.Count != nil) {
		return fmt.Errorf("steps[%d].expect: error cannot be combined with success expectations", index)
	}
	if e.Result != nil && s.Op != OpResolve {
		return fmt.Errorf("steps[%d].expect: result only applies to resolve", index)
	}
	if e.IDs != nil && s.Op != OpFind {
		return fmt.Errorf("steps[%d].expect: ids only applies to find", index)
	}
	if e.Fields != nil && s.Op != OpCatalog {
		return fmt.Errorf("steps[%d].expect: fields only applies to catalog", index)
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	switch a.Type {
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	case AssertTraceContains, AssertTraceCount:
		if a.Op == "" {
			return fmt.Errorf("assertions[%d]: op is required for %s", index, a.Type)
		}
	case AssertStoreCount:
		if a.ItemClass == "" {
			return fmt.Errorf("assertions[%d]: item_class is required for store_count", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}

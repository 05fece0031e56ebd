package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/roach88/nullg/internal/fieldcatalog"
	"github.com/roach88/nullg/internal/ir"
	"github.com/roach88/nullg/internal/models"
	"github.com/roach88/nullg/internal/queryir"
	"github.com/roach88/nullg/internal/resolver"
	"github.com/roach88/nullg/internal/schema"
	"github.com/roach88/nullg/internal/store"
	"github.com/roach88/nullg/internal/testutil"
)

// Harness executes scenarios against a schema graph and an isolated store.
type Harness struct {
	graph    *schema.Graph
	resolver *resolver.Resolver
	store    *store.Store
	logger   *slog.Logger
}

// Option configures a Harness.
type Option func(*Harness)

// WithLogger sets the logger used for step logging.
func WithLogger(l *slog.Logger) Option {
	return func(h *Harness) {
		h.logger = l
	}
}

// Run executes a scenario and returns its result.
//
// Each run loads the scenario's schemas on top of the embedded record
// types, opens a fresh in-memory store with sequential record ids, seeds
// it, executes the steps and evaluates the assertions.
//
// A non-nil error means the scenario could not run (bad schema, setup
// record that does not resolve); failed expectations are reported in
// Result.Errors instead.
func Run(scenario *Scenario, opts ...Option) (*Result, error) {
	return RunWithContext(context.Background(), scenario, opts...)
}

// RunWithContext is Run with a caller-supplied context.
func RunWithContext(ctx context.Context, scenario *Scenario, opts ...Option) (*Result, error) {
	g, err := loadGraph(scenario.Schemas)
	if err != nil {
		return nil, fmt.Errorf("failed to load schemas: %w", err)
	}

	h := &Harness{
		graph:  g,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.resolver = resolver.New(g)

	st, err := store.Open(":memory:",
		store.WithIDGenerator(testutil.NewSequentialIDGenerator("rec")),
		store.WithLogger(h.logger),
		store.WithDecoder(h.decode),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	defer st.Close()
	h.store = st

	result := NewResult()

	if err := h.executeSetup(ctx, scenario.Setup, result); err != nil {
		return nil, fmt.Errorf("failed to execute setup: %w", err)
	}
	for i, step := range scenario.Steps {
		if err := h.executeStep(ctx, i, step, result); err != nil {
			return nil, fmt.Errorf("step %d: %w", i, err)
		}
	}

	actx := &AssertionContext{Store: st, Ctx: ctx}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(msg)
	}
	return result, nil
}

// loadGraph builds the embedded graph, extended by the given CUE files.
func loadGraph(paths []string) (*schema.Graph, error) {
	if len(paths) == 0 {
		return models.Graph(), nil
	}
	ctx := cuecontext.New()
	values := make([]cue.Value, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, err
		}
		v := ctx.CompileBytes(data, cue.Filename(p))
		if err := v.Err(); err != nil {
			return nil, fmt.Errorf("%s: %w", p, err)
		}
		values = append(values, v)
	}
	return models.Load(values...)
}

// decode re-resolves stored bodies of known record types so numbers come
// back with their declared kinds.
func (h *Harness) decode(itemClass string, raw any) (ir.Object, error) {
	if _, ok := h.graph.Schema(itemClass); !ok {
		v, err := ir.FromRaw(raw)
		if err != nil {
			return nil, err
		}
		obj, ok := v.(ir.Object)
		if !ok {
			return nil, fmt.Errorf("stored body is %s, not an object", ir.KindOf(v))
		}
		return obj, nil
	}
	return h.resolver.Resolve(itemClass, raw)
}

// executeSetup resolves and stores every setup record.
func (h *Harness) executeSetup(ctx context.Context, setup []SetupRecord, result *Result) error {
	for i, rec := range setup {
		obj, err := h.resolver.Resolve(rec.Type, rec.Body)
		if err != nil {
			return fmt.Errorf("setup[%d]: %w", i, err)
		}
		stored, _, err := h.store.PutRecord(ctx, rec.Type, obj)
		if err != nil {
			return fmt.Errorf("setup[%d]: %w", i, err)
		}
		result.Stored[rec.Type]++
		h.logger.Info("setup record stored", "index", i, "item_class", rec.Type, "id", stored.ID)
	}
	return nil
}

// executeStep runs one step, traces its outcome and checks its expectation.
// Only harness failures are returned; a step that fails where it should
// succeed is a result error.
func (h *Harness) executeStep(ctx context.Context, i int, step Step, result *Result) error {
	ev := TraceEvent{Op: step.Op, Target: step.Type}

	var opErr error
	switch step.Op {
	case OpResolve:
		var obj ir.Object
		obj, opErr = h.resolver.Resolve(step.Type, step.Input)
		if opErr == nil {
			ev.Value = obj
		}
	case OpCheckFilter:
		opErr = queryir.ValidateFilter(step.Input)
	case OpCheckPipeline:
		opErr = queryir.ValidatePipeline(step.Input)
	case OpCatalog:
		var cat *fieldcatalog.Catalog
		cat, opErr = fieldcatalog.BuildNamed(h.graph, step.Type)
		if opErr == nil {
			ev.Value = cat.Paths()
		}
	case OpFind:
		var ids []string
		ids, opErr = h.find(ctx, step.Type, step.Input)
		if opErr == nil {
			ev.Value = ids
		}
	default:
		return fmt.Errorf("unknown op %q", step.Op)
	}

	ev.Outcome = OutcomeOK
	if opErr != nil {
		classifyError(&ev, opErr)
	}
	result.AddTrace(ev)

	h.logger.Info("step executed",
		"step", i,
		"op", step.Op,
		"target", step.Type,
		"outcome", ev.Outcome,
	)

	for _, msg := range checkExpect(i, step, ev) {
		result.AddError(msg)
	}
	return nil
}

// find runs a filter against the store and returns matching record ids.
func (h *Harness) find(ctx context.Context, itemClass string, filter any) ([]string, error) {
	if filter == nil {
		filter = map[string]any{}
	}
	p, err := queryir.ParseFilter(filter)
	if err != nil {
		return nil, err
	}
	records, err := h.store.FindRecords(ctx, itemClass, p, 0)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(records))
	for i, r := range records {
		ids[i] = r.ID
	}
	return ids, nil
}

// classifyError fills the outcome fields of ev from a decode or query error.
// Errors of neither kind are traced as ERROR.
func classifyError(ev *TraceEvent, err error) {
	ev.Message = err.Error()
	if de, ok := resolver.AsDecodeError(err); ok {
		ev.Outcome = string(de.Code)
		ev.Path = de.Path
		return
	}
	if se, ok := queryir.AsSecurityError(err); ok {
		ev.Outcome = string(se.Code)
		ev.Path = se.Path
		ev.Key = se.Key
		return
	}
	ev.Outcome = "ERROR"
}

package harness

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/davecgh/go-spew/spew"

	"github.com/roach88/nullg/internal/ir"
	"github.com/roach88/nullg/internal/queryir"
	"github.com/roach88/nullg/internal/store"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nFull trace:\n")
	for _, ev := range e.Trace {
		fmt.Fprintf(&buf, "  [%d] %s %s -> %s\n", ev.Index, ev.Op, ev.Target, ev.Outcome)
	}
	return buf.String()
}

// AssertionContext provides what store assertions need.
type AssertionContext struct {
	Store *store.Store
	Ctx   context.Context
}

// EvaluateAssertions runs every assertion and returns the failure messages.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errs []string
	for i, a := range assertions {
		var err error
		switch a.Type {
		case AssertTraceContains:
			err = assertTraceContains(result.Trace, a)
		case AssertTraceCount:
			err = assertTraceCount(result.Trace, a)
		case AssertStoreCount:
			if actx == nil || actx.Store == nil {
				err = fmt.Errorf("store_count needs a store")
				break
			}
			err = assertStoreCount(actx.Ctx, actx.Store, a)
		default:
			err = fmt.Errorf("unknown assertion type %q", a.Type)
		}
		if err != nil {
			errs = append(errs, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return errs
}

func traceMatches(ev TraceEvent, a Assertion) bool {
	if ev.Op != a.Op {
		return false
	}
	if a.Target != "" && ev.Target != a.Target {
		return false
	}
	return a.Outcome == "" || ev.Outcome == a.Outcome
}

// assertTraceContains checks that some step matches op, target and outcome.
func assertTraceContains(trace []TraceEvent, a Assertion) error {
	for _, ev := range trace {
		if traceMatches(ev, a) {
			return nil
		}
	}
	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: describe(a),
		Actual:   "no matching step",
		Trace:    trace,
	}
}

// assertTraceCount checks that exactly Count steps match.
func assertTraceCount(trace []TraceEvent, a Assertion) error {
	n := 0
	for _, ev := range trace {
		if traceMatches(ev, a) {
			n++
		}
	}
	if n == a.Count {
		return nil
	}
	return &AssertionError{
		Type:     AssertTraceCount,
		Expected: fmt.Sprintf("%d x %s", a.Count, describe(a)),
		Actual:   fmt.Sprintf("%d", n),
		Trace:    trace,
	}
}

// assertStoreCount counts stored records of an item class matching a filter.
func assertStoreCount(ctx context.Context, st *store.Store, a Assertion) error {
	var filter any = a.Filter
	if a.Filter == nil {
		filter = map[string]any{}
	}
	p, err := queryir.ParseFilter(filter)
	if err != nil {
		return fmt.Errorf("store_count filter: %w", err)
	}
	n, err := st.CountRecords(ctx, a.ItemClass, p)
	if err != nil {
		return fmt.Errorf("store_count: %w", err)
	}
	if n != a.Count {
		return &AssertionError{
			Type:     AssertStoreCount,
			Expected: fmt.Sprintf("%d %s records matching %v", a.Count, a.ItemClass, a.Filter),
			Actual:   fmt.Sprintf("%d", n),
		}
	}
	return nil
}

func describe(a Assertion) string {
	s := a.Op
	if a.Target != "" {
		s += " " + a.Target
	}
	if a.Outcome != "" {
		s += " -> " + a.Outcome
	}
	return s
}

// checkExpect compares a step's traced outcome with its expectation.
func checkExpect(i int, step Step, ev TraceEvent) []string {
	var errs []string
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Sprintf("steps[%d] %s: ", i, step.Op)+fmt.Sprintf(format, args...))
	}

	e := step.Expect
	if e == nil {
		e = &Expect{}
	}

	want := OutcomeOK
	if e.Error != "" {
		want = e.Error
	}
	if ev.Outcome != want {
		fail("expected outcome %s, got %s (%s)", want, ev.Outcome, ev.Message)
		return errs
	}
	if e.Path != "" && ev.Path != e.Path {
		fail("expected path %q, got %q", e.Path, ev.Path)
	}
	if e.Key != "" && ev.Key != e.Key {
		fail("expected key %q, got %q", e.Key, ev.Key)
	}
	if e.Error != "" {
		return errs
	}

	switch v := ev.Value.(type) {
	case ir.Object:
		if e.Result != nil {
			if err := MatchSubset(e.Result, v); err != nil {
				fail("%v\nresolved record:\n%s", err, spew.Sdump(ir.ToNative(v)))
			}
		}
	case []string:
		if e.IDs != nil && !slices.Equal(e.IDs, v) {
			fail("expected ids %v, got %v", e.IDs, v)
		}
		for _, f := range e.Fields {
			if !slices.Contains(v, f) {
				fail("catalog has no field %q", f)
			}
		}
		if e.Count != nil && len(v) != *e.Count {
			fail("expected %d, got %d", *e.Count, len(v))
		}
	}
	return errs
}

// MatchSubset checks that every key of want is present in got with a
// matching value. Nested mappings match as subsets; sequences must match
// element for element. Numbers compare by value, so a YAML 100 matches a
// float field holding 100.
func MatchSubset(want map[string]any, got ir.Object) error {
	wv, err := ir.FromRaw(want)
	if err != nil {
		return fmt.Errorf("expected result: %w", err)
	}
	return matchValue("", wv, got)
}

func matchValue(path string, want, got ir.Value) error {
	switch w := want.(type) {
	case ir.Object:
		g, ok := got.(ir.Object)
		if !ok {
			return mismatch(path, want, got)
		}
		for _, k := range w.SortedKeys() {
			gv, present := g[k]
			kp := k
			if path != "" {
				kp = path + "." + k
			}
			if !present {
				return fmt.Errorf("%s: missing", kp)
			}
			if err := matchValue(kp, w[k], gv); err != nil {
				return err
			}
		}
		return nil
	case ir.Array:
		g, ok := got.(ir.Array)
		if !ok || len(g) != len(w) {
			return mismatch(path, want, got)
		}
		for i := range w {
			if err := matchValue(fmt.Sprintf("%s[%d]", path, i), w[i], g[i]); err != nil {
				return err
			}
		}
		return nil
	}

	if wf, ok := number(want); ok {
		if gf, ok := number(got); ok && wf == gf {
			return nil
		}
		return mismatch(path, want, got)
	}
	if !ir.Equal(want, got) {
		return mismatch(path, want, got)
	}
	return nil
}

func number(v ir.Value) (float64, bool) {
	switch n := v.(type) {
	case ir.Int:
		return float64(n), true
	case ir.Float:
		return float64(n), true
	}
	return 0, false
}

func mismatch(path string, want, got ir.Value) error {
	if path == "" {
		path = "(root)"
	}
	return fmt.Errorf("%s: expected %s, got %s", path, spew.Sprint(ir.ToNative(want)), spew.Sprint(ir.ToNative(got)))
}

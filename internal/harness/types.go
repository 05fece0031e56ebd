package harness

// OutcomeOK is the trace outcome of a successful step.
const OutcomeOK = "ok"

// TraceEvent records the outcome of one step.
type TraceEvent struct {
	Index   int    `json:"index"`
	Op      string `json:"op"`
	Target  string `json:"target,omitempty"`  // record type, empty for checks
	Outcome string `json:"outcome"`           // "ok" or an error code
	Path    string `json:"path,omitempty"`    // error path
	Key     string `json:"key,omitempty"`     // offending operator or stage
	Message string `json:"message,omitempty"` // error text, not part of golden snapshots

	// Value is the step's product: the resolved record, matched ids or
	// catalog paths. Not part of golden snapshots.
	Value any `json:"-"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every expectation and assertion held.
	Pass bool `json:"pass"`

	// Trace holds one event per step, in step order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains validation error messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Stored counts the records seeded per item class.
	Stored map[string]int `json:"stored,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
		Stored: make(map[string]int),
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddTrace appends a step outcome to the trace.
func (r *Result) AddTrace(ev TraceEvent) {
	ev.Index = len(r.Trace)
	r.Trace = append(r.Trace, ev)
}

package harness

import "github.com/roach88/recache/internal/ir"

// TraceEvent is one applied operation, synthetic operations included.
type TraceEvent struct {
	Seq       int64       `json:"seq"`
	Step      int         `json:"step"`
	Operation ir.IRObject `json:"operation"`
	Result    ir.IRValue  `json:"result,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall scenario success.
	// True if every step expectation and assertion matched.
	Pass bool `json:"pass"`

	// Trace contains every applied operation in order.
	// Used for golden comparison.
	Trace []TraceEvent `json:"trace"`

	// Errors contains expectation and assertion failures.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Deliveries counts live query deliveries by name.
	Deliveries map[string]int `json:"deliveries,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:       true,
		Trace:      []TraceEvent{},
		Errors:     []string{},
		Deliveries: make(map[string]int),
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddTrace appends an applied operation and its result to the trace.
func (r *Result) AddTrace(step int, op ir.Operation, result *ir.Record, seq int64) {
	ev := TraceEvent{
		Seq:       seq,
		Step:      step,
		Operation: ir.EncodeOperation(op),
	}
	if result != nil {
		ev.Result = ir.EncodeRecord(result)
	}
	r.Trace = append(r.Trace, ev)
}

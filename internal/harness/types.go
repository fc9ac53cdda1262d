package harness

import "github.com/slicer/sequences/internal/engine"

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass is true when every step behaved as declared and every
	// assertion held.
	Pass bool `json:"pass"`

	// Trace holds the engine's synchronization passes in order, starting
	// with the pulls triggered while the scene was built.
	Trace []engine.TraceEvent `json:"trace"`

	// Errors contains step and assertion failures.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []engine.TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddTrace appends an engine trace event.
func (r *Result) AddTrace(ev engine.TraceEvent) {
	r.Trace = append(r.Trace, ev)
}

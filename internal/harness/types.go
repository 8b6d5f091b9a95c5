package harness

import "github.com/roach88/graphcfg/internal/status"

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if every assertion holds.
	Pass bool `json:"pass"`

	// Code is the status code Initialize returned.
	Code status.Code `json:"code"`

	// Hash is the content hash of the canonical config, empty when
	// initialization failed.
	Hash string `json:"hash,omitempty"`

	// Canonical is the canonical JSON of the expanded config, nil when
	// initialization failed.
	Canonical []byte `json:"-"`

	// Errors contains assertion failure messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Code:   status.OK,
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

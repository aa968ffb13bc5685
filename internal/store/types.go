package store

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/cwbudde/descent/internal/objective"
	"github.com/cwbudde/descent/internal/opt"
	"github.com/cwbudde/descent/internal/params"
)

// RunConfig is everything needed to repeat a run: the problem, the start
// point and the optimizer parameters.
type RunConfig struct {
	Problem string    `json:"problem"`
	Dim     int       `json:"dim"`
	X0      []float64 `json:"x0"`

	// Params is a copy of the run's parameters. Its iteration counter is not
	// persisted.
	Params params.Params `json:"params"`

	// Seeded is set when X0 came from a population search rather than the
	// command line.
	Seeded bool `json:"seeded,omitempty"`
}

// RunRecord is the persisted outcome of one optimization run.
//
// Resuming a run restarts the optimizer from Result.X with fresh internal
// state: velocities, moment estimates and inverse-Hessian approximations are
// not saved. The resumed run is a new record that points back to this one
// through ResumedFrom.
type RunRecord struct {
	// RunID is the unique identifier of the run.
	RunID string `json:"runId"`

	Config RunConfig  `json:"config"`
	Result opt.Result `json:"result"`

	// Error holds the failure message when Result.Status is Failure.
	Error string `json:"error,omitempty"`

	// Stats counts objective evaluations made during the run.
	Stats objective.Stats `json:"stats"`

	// ResumedFrom is the RunID this run continued, if any.
	ResumedFrom string `json:"resumedFrom,omitempty"`

	// Started and Finished bracket the Optimize call.
	Started  time.Time `json:"started"`
	Finished time.Time `json:"finished"`
}

// RunInfo contains metadata about a run without the points.
// Used for listing runs.
type RunInfo struct {
	RunID       string        `json:"runId"`
	Method      params.Method `json:"method"`
	Problem     string        `json:"problem"`
	Dim         int           `json:"dim"`
	Status      opt.Status    `json:"status"`
	Value       float64       `json:"value"`
	Iterations  int           `json:"iterations"`
	ResumedFrom string        `json:"resumedFrom,omitempty"`
	Finished    time.Time     `json:"finished"`
}

// NewRunID returns a fresh random run identifier.
func NewRunID() string {
	return uuid.New().String()
}

// NewRunRecord creates a record for a finished run. runErr is the error
// returned by Optimize, if any.
func NewRunRecord(runID string, config RunConfig, result *opt.Result, runErr error, stats objective.Stats, started time.Time) *RunRecord {
	r := &RunRecord{
		RunID:    runID,
		Config:   config,
		Stats:    stats,
		Started:  started,
		Finished: time.Now(),
	}
	if result != nil {
		r.Result = *result
	}
	if runErr != nil {
		r.Error = runErr.Error()
	}
	return r
}

// ToInfo converts a full RunRecord to RunInfo (metadata only).
func (r *RunRecord) ToInfo() RunInfo {
	return RunInfo{
		RunID:       r.RunID,
		Method:      r.Config.Params.Method,
		Problem:     r.Config.Problem,
		Dim:         r.Config.Dim,
		Status:      r.Result.Status,
		Value:       r.Result.Value,
		Iterations:  r.Result.Iterations,
		ResumedFrom: r.ResumedFrom,
		Finished:    r.Finished,
	}
}

// Validate checks that the record is complete and self-consistent.
func (r *RunRecord) Validate() error {
	if r.RunID == "" {
		return &ValidationError{Field: "RunID", Reason: "cannot be empty"}
	}
	if r.Config.Problem == "" {
		return &ValidationError{Field: "Config.Problem", Reason: "cannot be empty"}
	}
	if r.Config.Dim <= 0 {
		return &ValidationError{Field: "Config.Dim", Reason: "must be positive"}
	}
	if len(r.Config.X0) != r.Config.Dim {
		return &ValidationError{
			Field:  "Config.X0",
			Reason: fmt.Sprintf("length mismatch: expected %d entries, got %d", r.Config.Dim, len(r.Config.X0)),
		}
	}
	if len(r.Result.X) != r.Config.Dim {
		return &ValidationError{
			Field:  "Result.X",
			Reason: fmt.Sprintf("length mismatch: expected %d entries, got %d", r.Config.Dim, len(r.Result.X)),
		}
	}
	for _, v := range r.Result.X {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return &ValidationError{Field: "Result.X", Reason: "contains non-finite values"}
		}
	}
	if r.Result.Iterations < 0 {
		return &ValidationError{Field: "Result.Iterations", Reason: "cannot be negative"}
	}
	if r.Finished.IsZero() {
		return &ValidationError{Field: "Finished", Reason: "cannot be zero"}
	}
	return nil
}

// ValidationError represents a run record validation error.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation error: " + e.Field + " " + e.Reason
}

// IsCompatible checks whether a run can be resumed on the given problem.
// The method may change between runs; the problem and dimension may not.
func (r *RunRecord) IsCompatible(problem string, dim int) error {
	if r.Config.Problem != problem {
		return &CompatibilityError{
			Field:    "Problem",
			Expected: r.Config.Problem,
			Actual:   problem,
		}
	}
	if r.Config.Dim != dim {
		return &CompatibilityError{
			Field:    "Dim",
			Expected: fmt.Sprintf("%d", r.Config.Dim),
			Actual:   fmt.Sprintf("%d", dim),
		}
	}
	return nil
}

// CompatibilityError represents a resume compatibility error.
type CompatibilityError struct {
	Field    string
	Expected string
	Actual   string
}

func (e *CompatibilityError) Error() string {
	return "compatibility error: " + e.Field + " mismatch (expected " + e.Expected + ", got " + e.Actual + ")"
}

// Package opt implements iterative descent minimizers behind one Optimizer
// interface: Momentum, Adam, Newton, BFGS and DFP.
//
// Every variant follows the same loop. At the top of each iteration the
// objective's value and gradient are evaluated; if the iteration counter held
// by params.Params exceeds MaxIterations the run stops with IterationLimit;
// otherwise the variant's convergence test is applied and, if it fails, the
// variant computes the next point, pushes it into the objective and advances
// the counter.
package opt

import (
	"errors"

	"github.com/cwbudde/descent/internal/params"
)

// Optimizer runs a minimization to convergence or iteration-cap exhaustion.
// The returned Result always carries the last point reached. A non-nil error
// means a numerical failure stopped the run (Status == Failure); reaching the
// cap is not an error and is reported through Result.Status.
type Optimizer interface {
	Optimize() (*Result, error)
}

var (
	// ErrDimensionMismatch is returned when the start point, gradient or
	// Hessian do not agree in size.
	ErrDimensionMismatch = errors.New("opt: dimension mismatch")

	// ErrNilObjective is returned when an optimizer is built without an
	// objective, parameters, Hessian or step-size search it needs.
	ErrNilObjective = errors.New("opt: missing objective collaborator")

	// ErrSingularHessian is returned by Newton when the exact Hessian cannot
	// be inverted.
	ErrSingularHessian = errors.New("opt: singular Hessian")

	// ErrIndefiniteHessian is returned by Newton when the exact Hessian is
	// not positive definite, so the Newton step is not a descent step.
	ErrIndefiniteHessian = errors.New("opt: Hessian is not positive definite")

	// ErrNonFinite is returned when an update produced NaN or Inf in the
	// point, the objective value or the gradient.
	ErrNonFinite = errors.New("opt: non-finite point, value or gradient")
)

// Result is the outcome of Optimize.
type Result struct {
	Method params.Method `json:"method"`

	X        []float64 `json:"x"`
	Value    float64   `json:"value"`
	GradNorm float64   `json:"gradNorm"`

	// Iterations is the number of completed steps.
	Iterations int    `json:"iterations"`
	Status     Status `json:"status"`

	// SkippedUpdates counts BFGS/DFP iterations whose curvature update was
	// skipped because the curvature condition degenerated.
	SkippedUpdates int `json:"skippedUpdates,omitempty"`
}

// Converged reports whether the run ended by satisfying its convergence test.
// A point from an unconverged run has not been verified as a minimizer.
func (r *Result) Converged() bool {
	return r.Status.Converged()
}

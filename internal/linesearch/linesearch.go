// Package linesearch provides step-size searches for the curvature-based
// optimizers. A search is bound to an objective and, given a direction d,
// returns a scalar step α such that x + α·d is an acceptable next point.
package linesearch

import (
	"errors"
	"fmt"

	"github.com/cwbudde/descent/internal/objective"
	"github.com/cwbudde/descent/internal/params"
	"gonum.org/v1/gonum/mat"
)

var (
	// ErrNotInitialized is returned by Search before Init has bound an objective.
	ErrNotInitialized = errors.New("linesearch: search used before Init")

	// ErrNonDescentDirection is returned when the directional derivative
	// along d is not negative.
	ErrNonDescentDirection = errors.New("linesearch: non-descent search direction")

	// ErrStepUnderflow is returned when the step shrank below the smallest
	// representable useful value without meeting the acceptance condition.
	ErrStepUnderflow = errors.New("linesearch: step size underflow")
)

// StepSizeSearch finds a step length along a direction. Search may move the
// objective's point while probing but restores it before returning; the
// caller applies the returned step itself.
type StepSizeSearch interface {
	Init(obj objective.Objective)
	Search(d *mat.VecDense) (float64, error)
}

// New returns the search selected by p.
func New(p *params.Params) (StepSizeSearch, error) {
	switch p.StepSize {
	case params.GoldenSection, "":
		return &GoldenSection{InitialStep: p.Step}, nil
	case params.Backtracking:
		return &Backtracking{InitialStep: p.Step}, nil
	case params.FixedStep:
		return &Fixed{Step: p.Step}, nil
	default:
		return nil, fmt.Errorf("unknown step size method %q", p.StepSize)
	}
}

// probe evaluates φ(α) = f(x0 + α·d) by moving obj. The caller restores x0.
type probe struct {
	obj objective.Objective
	x0  *mat.VecDense
	d   *mat.VecDense
	buf *mat.VecDense
}

func newProbe(obj objective.Objective, d *mat.VecDense) *probe {
	x0 := obj.X()
	return &probe{
		obj: obj,
		x0:  x0,
		d:   d,
		buf: mat.NewVecDense(x0.Len(), nil),
	}
}

func (p *probe) value(alpha float64) float64 {
	p.buf.AddScaledVec(p.x0, alpha, p.d)
	p.obj.SetX(p.buf)
	return p.obj.Value()
}

func (p *probe) restore() {
	p.obj.SetX(p.x0)
}

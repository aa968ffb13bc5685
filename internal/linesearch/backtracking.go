package linesearch

import (
	"github.com/cwbudde/descent/internal/objective"
	"gonum.org/v1/gonum/mat"
)

const (
	defaultBacktrackingContraction = 0.5
	defaultBacktrackingDecrease    = 1e-4
	minimumBacktrackingStepSize    = 1e-20
)

// Backtracking shrinks the trial step by ContractionFactor until the Armijo
// sufficient decrease condition
//
//	f(x + α·d) ≤ f(x) + DecreaseFactor·α·∇f(x)·d
//
// holds. It needs the gradient only at the starting point.
type Backtracking struct {
	InitialStep       float64 // First trial step. Defaults to 1.
	DecreaseFactor    float64 // Constant in the Armijo condition, in (0, 1).
	ContractionFactor float64 // Step multiplier after a rejected trial, in (0, 1).

	obj objective.Objective
}

// Init binds the search to obj.
func (b *Backtracking) Init(obj objective.Objective) {
	b.obj = obj
}

// Search returns the first trial step satisfying the Armijo condition.
func (b *Backtracking) Search(d *mat.VecDense) (float64, error) {
	if b.obj == nil {
		return 0, ErrNotInitialized
	}
	step := b.InitialStep
	if step <= 0 {
		step = 1
	}
	decrease := b.DecreaseFactor
	if decrease <= 0 || decrease >= 1 {
		decrease = defaultBacktrackingDecrease
	}
	contraction := b.ContractionFactor
	if contraction <= 0 || contraction >= 1 {
		contraction = defaultBacktrackingContraction
	}

	f0 := b.obj.Value()
	slope := mat.Dot(b.obj.Jacobian(), d)
	if slope >= 0 {
		return 0, ErrNonDescentDirection
	}

	p := newProbe(b.obj, d)
	defer p.restore()

	for step >= minimumBacktrackingStepSize {
		if p.value(step) <= f0+decrease*step*slope {
			return step, nil
		}
		step *= contraction
	}
	return 0, ErrStepUnderflow
}

// Fixed always returns the same step.
type Fixed struct {
	Step float64
}

// Init is a no-op; Fixed does not look at the objective.
func (*Fixed) Init(objective.Objective) {}

// Search returns the configured step.
func (f *Fixed) Search(*mat.VecDense) (float64, error) {
	return f.Step, nil
}

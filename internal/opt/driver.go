package opt

import (
	"fmt"
	"math"

	"github.com/cwbudde/descent/internal/objective"
	"github.com/cwbudde/descent/internal/params"
	"gonum.org/v1/gonum/mat"
)

// iterate is the state of the objective at the top of one iteration.
type iterate struct {
	x        *mat.VecDense
	value    float64
	grad     *mat.VecDense
	gradNorm float64

	// Filled in by the rule.
	stepNorm float64
	skipped  bool
}

// rule is one update algorithm plugged into the shared loop.
type rule interface {
	// converged applies the variant's stopping test to it.
	converged(it *iterate) (Status, bool, error)
	// update computes the next point and moves the objective there.
	update(it *iterate) error
}

// base holds what every variant shares: borrowed collaborators, the
// problem dimension and the observer.
type base struct {
	method   params.Method
	obj      objective.Objective
	p        *params.Params
	dim      int
	observer Observer
	skipped  int
}

// init positions obj at x0, evaluates it once and checks dimensions.
func (b *base) init(method params.Method, x0 []float64, obj objective.Objective, p *params.Params, opts []Option) error {
	if obj == nil {
		return fmt.Errorf("%s: %w: objective is nil", method, ErrNilObjective)
	}
	if p == nil {
		return fmt.Errorf("%s: %w: params are nil", method, ErrNilObjective)
	}
	if len(x0) == 0 {
		return fmt.Errorf("%s: %w: empty start point", method, ErrDimensionMismatch)
	}
	if len(x0) != obj.Dim() {
		return fmt.Errorf("%s: %w: start point has %d entries, objective has dimension %d",
			method, ErrDimensionMismatch, len(x0), obj.Dim())
	}
	if err := p.Validate(method); err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}

	b.method = method
	b.obj = obj
	b.p = p
	b.dim = len(x0)
	for _, o := range opts {
		o(b)
	}

	obj.SetX(mat.NewVecDense(b.dim, append([]float64(nil), x0...)))
	v := obj.Value()
	g := obj.Jacobian()
	if g.Len() != b.dim {
		return fmt.Errorf("%s: %w: gradient has %d entries, want %d",
			method, ErrDimensionMismatch, g.Len(), b.dim)
	}
	if !finite(v) || !finiteVec(g) {
		return fmt.Errorf("%s: %w: at the start point", method, ErrNonFinite)
	}
	return nil
}

func (b *base) evaluate() *iterate {
	g := b.obj.Jacobian()
	return &iterate{
		x:        b.obj.X(),
		value:    b.obj.Value(),
		grad:     g,
		gradNorm: mat.Norm(g, 2),
	}
}

// run drives r until convergence, the iteration cap or a failure.
func (b *base) run(r rule) (*Result, error) {
	if b.obj == nil || b.p == nil {
		return nil, fmt.Errorf("%w: optimizer used before initialization", ErrNilObjective)
	}
	b.emit(Event{Kind: EventStart}, b.evaluate())

	var last *iterate
	for {
		it := b.evaluate()
		if !it.finite() {
			if last == nil {
				return b.finish(it, Failure, ErrNonFinite)
			}
			// The last step overflowed f or its gradient. Report the
			// iterate before it and leave the objective there.
			b.obj.SetX(last.x)
			return b.finish(last, Failure, ErrNonFinite)
		}
		last = it
		b.emit(Event{Kind: EventIteration}, it)

		if b.p.Iterations() > b.p.MaxIterations {
			return b.finish(it, IterationLimit, nil)
		}

		status, done, err := r.converged(it)
		if err != nil {
			return b.finish(it, Failure, err)
		}
		if done {
			return b.finish(it, status, nil)
		}

		if err := r.update(it); err != nil {
			return b.finish(it, Failure, err)
		}
		if it.skipped {
			b.skipped++
		}
		b.p.NextIteration()

		if b.observer != nil {
			next := b.evaluate()
			if !next.finite() {
				continue
			}
			next.stepNorm = it.stepNorm
			next.skipped = it.skipped
			b.emit(Event{Kind: EventUpdate}, next)
		}
	}
}

func (b *base) finish(it *iterate, status Status, err error) (*Result, error) {
	if err != nil {
		err = fmt.Errorf("%s: iteration %d: %w", b.method, b.p.Iterations(), err)
	}
	b.emit(Event{Kind: EventTerminate, Status: status, Err: err}, it)
	return &Result{
		Method:         b.method,
		X:              vecData(it.x),
		Value:          it.value,
		GradNorm:       it.gradNorm,
		Iterations:     b.p.Iterations(),
		Status:         status,
		SkippedUpdates: b.skipped,
	}, err
}

func (b *base) emit(e Event, it *iterate) {
	if b.observer == nil {
		return
	}
	e.Method = b.method
	e.Iteration = b.p.Iterations()
	e.X = vecData(it.x)
	e.Value = it.value
	e.GradNorm = it.gradNorm
	e.StepNorm = it.stepNorm
	e.SkippedUpdate = it.skipped
	b.observer.Observe(e)
}

// moveTo checks x for NaN/Inf and moves the objective there.
func (b *base) moveTo(x *mat.VecDense) error {
	if !finiteVec(x) {
		return ErrNonFinite
	}
	b.obj.SetX(x)
	return nil
}

func (it *iterate) finite() bool {
	return finite(it.value) && finite(it.gradNorm) && finiteVec(it.grad)
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func finiteVec(v mat.Vector) bool {
	for i := 0; i < v.Len(); i++ {
		f := v.AtVec(i)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}
	return true
}

// vecData copies v into a new slice.
func vecData(v mat.Vector) []float64 {
	out := make([]float64, v.Len())
	for i := range out {
		out[i] = v.AtVec(i)
	}
	return out
}

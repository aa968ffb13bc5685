package opt

import (
	"fmt"
	"math"

	"github.com/cwbudde/descent/internal/linesearch"
	"github.com/cwbudde/descent/internal/objective"
	"github.com/cwbudde/descent/internal/params"
	"gonum.org/v1/gonum/mat"
)

// curvatureTolerance bounds the cosine between Δx and Δg below which the
// curvature pair is treated as degenerate and the update is skipped.
const curvatureTolerance = 1e-12

// inverseUpdate returns the next inverse-Hessian approximation from h and the
// curvature pair s = Δx, y = Δg, or false if the pair is degenerate.
type inverseUpdate func(h *mat.SymDense, s, y *mat.VecDense) (*mat.SymDense, bool)

// quasiNewton is the loop shared by BFGS and DFP. Each iteration it searches
// along d = −H·g, takes the step Δx = α·d and then refreshes the
// inverse-Hessian approximation H from Δx and Δg. H starts as the identity.
type quasiNewton struct {
	base

	ss      linesearch.StepSizeSearch
	formula inverseUpdate

	h *mat.SymDense // current inverse-Hessian approximation
}

func (q *quasiNewton) setup(method params.Method, x0 []float64, obj objective.Objective, p *params.Params, ss linesearch.StepSizeSearch, f inverseUpdate, opts []Option) error {
	if ss == nil {
		return fmt.Errorf("%s: %w: step size search is nil", method, ErrNilObjective)
	}
	if err := q.init(method, x0, obj, p, opts); err != nil {
		return err
	}
	q.ss = ss
	q.ss.Init(obj)
	q.formula = f
	q.h = identity(q.dim)
	return nil
}

// InverseHessian returns a copy of the current inverse-Hessian approximation.
func (q *quasiNewton) InverseHessian() *mat.SymDense {
	h := mat.NewSymDense(q.dim, nil)
	h.CopySym(q.h)
	return h
}

func (q *quasiNewton) converged(it *iterate) (Status, bool, error) {
	return GradientThreshold, it.gradNorm < q.p.MinGradient, nil
}

func (q *quasiNewton) update(it *iterate) error {
	d := mat.NewVecDense(q.dim, nil)
	d.MulVec(q.h, it.grad)
	d.ScaleVec(-1, d)

	alpha, err := q.ss.Search(d)
	if err != nil {
		return fmt.Errorf("step size search: %w", err)
	}

	dx := mat.NewVecDense(q.dim, nil)
	dx.ScaleVec(alpha, d)
	x := mat.NewVecDense(q.dim, nil)
	x.AddVec(it.x, dx)
	if err := q.moveTo(x); err != nil {
		return err
	}
	it.stepNorm = mat.Norm(dx, 2)

	dg := q.obj.Jacobian()
	dg.SubVec(dg, it.grad)
	if next, ok := q.formula(q.h, dx, dg); ok {
		q.h = next
	} else {
		it.skipped = true
	}
	return nil
}

// degenerate reports whether a·b is too small relative to ‖a‖‖b‖ to divide by,
// including the case where it is negative.
func degenerate(dot, normA, normB float64) bool {
	return !(dot > curvatureTolerance*normA*normB) || math.IsNaN(dot)
}

func identity(n int) *mat.SymDense {
	h := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		h.SetSym(i, i, 1)
	}
	return h
}

func finiteSym(h *mat.SymDense) bool {
	n := h.SymmetricDim()
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			v := h.At(i, j)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return false
			}
		}
	}
	return true
}

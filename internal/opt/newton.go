package opt

import (
	"fmt"
	"math"

	"github.com/cwbudde/descent/internal/objective"
	"github.com/cwbudde/descent/internal/params"
	"gonum.org/v1/gonum/mat"
)

// Newton is Newton's method with the exact Hessian and a unit step:
//
//	Δx_k = H(x_k)⁻¹·g_k
//	x_{k+1} = x_k − Δx_k
//
// Unlike the other variants it stops on the proposed step, when
// ‖Δx_k‖ < MinDeltaX. The Hessian must be positive definite at every
// iterate; a singular or indefinite Hessian stops the run with an error.
type Newton struct {
	base

	hess objective.HessianFunc
	h    *mat.SymDense
	chol mat.Cholesky
	dx   *mat.VecDense // proposed step for the current iterate
}

// NewNewton positions obj at x0 and checks that hess returns a square
// matrix of the problem dimension there.
func NewNewton(x0 []float64, obj objective.Objective, hess objective.HessianFunc, p *params.Params, opts ...Option) (*Newton, error) {
	if hess == nil {
		return nil, fmt.Errorf("%s: %w: Hessian function is nil", params.Newton, ErrNilObjective)
	}
	n := &Newton{hess: hess}
	if err := n.init(params.Newton, x0, obj, p, opts); err != nil {
		return nil, err
	}
	n.h = mat.NewSymDense(n.dim, nil)
	n.dx = mat.NewVecDense(n.dim, nil)
	if err := n.loadHessian(obj.X()); err != nil {
		return nil, fmt.Errorf("%s: %w", params.Newton, err)
	}
	return n, nil
}

// Optimize runs Newton's iteration.
func (n *Newton) Optimize() (*Result, error) {
	return n.run(n)
}

// loadHessian evaluates the Hessian at x into n.h, symmetrizing it.
func (n *Newton) loadHessian(x mat.Vector) error {
	m := n.hess(x)
	if m == nil {
		return fmt.Errorf("%w: Hessian function returned nil", ErrDimensionMismatch)
	}
	r, c := m.Dims()
	if r != n.dim || c != n.dim {
		return fmt.Errorf("%w: Hessian is %dx%d, want %dx%d", ErrDimensionMismatch, r, c, n.dim, n.dim)
	}
	for i := 0; i < n.dim; i++ {
		for j := i; j < n.dim; j++ {
			n.h.SetSym(i, j, (m.At(i, j)+m.At(j, i))/2)
		}
	}
	return nil
}

func (n *Newton) converged(it *iterate) (Status, bool, error) {
	if err := n.loadHessian(it.x); err != nil {
		return Failure, false, err
	}
	if err := n.factorize(); err != nil {
		return Failure, false, err
	}
	if err := n.chol.SolveVecTo(n.dx, it.grad); err != nil {
		return Failure, false, fmt.Errorf("%w: %v", ErrSingularHessian, err)
	}
	if !finiteVec(n.dx) {
		return Failure, false, ErrNonFinite
	}
	it.stepNorm = mat.Norm(n.dx, 2)
	return StepConvergence, it.stepNorm < n.p.MinDeltaX, nil
}

// factorize computes the Cholesky factor of n.h and tells a singular Hessian
// apart from an indefinite one when it fails.
func (n *Newton) factorize() error {
	for i := 0; i < n.dim; i++ {
		for j := i; j < n.dim; j++ {
			if v := n.h.At(i, j); math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("%w: Hessian has non-finite entries", ErrSingularHessian)
			}
		}
	}
	if n.chol.Factorize(n.h) {
		if cond := n.chol.Cond(); cond > mat.ConditionTolerance {
			return fmt.Errorf("%w: condition number %g", ErrSingularHessian, cond)
		}
		return nil
	}
	var lu mat.LU
	lu.Factorize(n.h)
	if cond := lu.Cond(); math.IsInf(cond, 1) || cond > mat.ConditionTolerance {
		return fmt.Errorf("%w: condition number %g", ErrSingularHessian, cond)
	}
	return ErrIndefiniteHessian
}

func (n *Newton) update(it *iterate) error {
	x := mat.NewVecDense(n.dim, nil)
	x.SubVec(it.x, n.dx)
	return n.moveTo(x)
}

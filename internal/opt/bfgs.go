package opt

import (
	"github.com/cwbudde/descent/internal/linesearch"
	"github.com/cwbudde/descent/internal/objective"
	"github.com/cwbudde/descent/internal/params"
	"gonum.org/v1/gonum/mat"
)

// BFGS is the Broyden–Fletcher–Goldfarb–Shanno quasi-Newton method. It keeps
// an approximation H of the inverse Hessian, starting from the identity, and
// after each step with s = Δx, y = Δg, ρ = 1/(yᵀs) replaces it with
//
//	H ← (I − ρ·s·yᵀ)·H·(I − ρ·y·sᵀ) + ρ·s·sᵀ
//
// The step length along −H·g comes from the StepSizeSearch. It stops when
// ‖g‖ < MinGradient. Curvature pairs with yᵀs ≤ 0 (or numerically zero)
// leave H unchanged and are reported as skipped updates.
type BFGS struct {
	quasiNewton
}

// NewBFGS positions obj at x0 and binds ss to it.
func NewBFGS(x0 []float64, obj objective.Objective, p *params.Params, ss linesearch.StepSizeSearch, opts ...Option) (*BFGS, error) {
	b := &BFGS{}
	if err := b.setup(params.BFGS, x0, obj, p, ss, bfgsUpdate, opts); err != nil {
		return nil, err
	}
	return b, nil
}

// Optimize runs the BFGS iteration.
func (b *BFGS) Optimize() (*Result, error) {
	return b.run(b)
}

// bfgsUpdate applies the BFGS inverse update in its expanded form
//
//	H + ((yᵀs + yᵀHy)/(yᵀs)²)·s·sᵀ − (H·y·sᵀ + s·yᵀ·H)/(yᵀs)
//
// which equals the product form and keeps the result symmetric.
func bfgsUpdate(h *mat.SymDense, s, y *mat.VecDense) (*mat.SymDense, bool) {
	sy := mat.Dot(s, y)
	if degenerate(sy, mat.Norm(s, 2), mat.Norm(y, 2)) {
		return nil, false
	}
	n := s.Len()
	hy := mat.NewVecDense(n, nil)
	hy.MulVec(h, y)
	yhy := mat.Dot(y, hy)

	next := mat.NewSymDense(n, nil)
	next.SymRankOne(h, (sy+yhy)/(sy*sy), s)
	next.RankTwo(next, -1/sy, hy, s)
	if !finiteSym(next) {
		return nil, false
	}
	return next, true
}

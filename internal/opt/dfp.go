package opt

import (
	"github.com/cwbudde/descent/internal/linesearch"
	"github.com/cwbudde/descent/internal/objective"
	"github.com/cwbudde/descent/internal/params"
	"gonum.org/v1/gonum/mat"
)

// DFP is the Davidon–Fletcher–Powell quasi-Newton method. It differs from
// BFGS only in the inverse-Hessian update:
//
//	H ← H + s·sᵀ/(sᵀy) − H·y·yᵀ·H/(yᵀ·H·y)
//
// Updates where either denominator is not safely positive are skipped.
type DFP struct {
	quasiNewton
}

// NewDFP positions obj at x0 and binds ss to it.
func NewDFP(x0 []float64, obj objective.Objective, p *params.Params, ss linesearch.StepSizeSearch, opts ...Option) (*DFP, error) {
	d := &DFP{}
	if err := d.setup(params.DFP, x0, obj, p, ss, dfpUpdate, opts); err != nil {
		return nil, err
	}
	return d, nil
}

// Optimize runs the DFP iteration.
func (d *DFP) Optimize() (*Result, error) {
	return d.run(d)
}

func dfpUpdate(h *mat.SymDense, s, y *mat.VecDense) (*mat.SymDense, bool) {
	sy := mat.Dot(s, y)
	if degenerate(sy, mat.Norm(s, 2), mat.Norm(y, 2)) {
		return nil, false
	}
	n := s.Len()
	hy := mat.NewVecDense(n, nil)
	hy.MulVec(h, y)
	yhy := mat.Dot(y, hy)
	if degenerate(yhy, mat.Norm(y, 2), mat.Norm(hy, 2)) {
		return nil, false
	}

	next := mat.NewSymDense(n, nil)
	next.SymRankOne(h, 1/sy, s)
	next.SymRankOne(next, -1/yhy, hy)
	if !finiteSym(next) {
		return nil, false
	}
	return next, true
}

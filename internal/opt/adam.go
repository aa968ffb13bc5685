package opt

import (
	"math"

	"github.com/cwbudde/descent/internal/objective"
	"github.com/cwbudde/descent/internal/params"
	"gonum.org/v1/gonum/mat"
)

// Adam keeps exponential moving averages of the gradient and of its
// elementwise square and steps along their bias-corrected ratio:
//
//	v_k   = γv·v_{k−1} + (1−γv)·g_k
//	s_k,i = γs·s_{k−1,i} + (1−γs)·g_k,i²
//	v̂_k   = v_k / (1−γv^k)
//	ŝ_k,i = s_k,i / (1−γs^k)
//	x_{k+1},i = x_k,i − α·v̂_k,i / (ε + √ŝ_k,i)
//
// k counts steps starting at 1, so the first step is fully bias corrected.
// It stops when ‖g‖ < MinGradient.
type Adam struct {
	base

	v, s       *mat.VecDense // raw moment estimates
	vHat, sHat *mat.VecDense // bias-corrected estimates of the last step
}

// NewAdam positions obj at x0 and zeroes both moment accumulators.
func NewAdam(x0 []float64, obj objective.Objective, p *params.Params, opts ...Option) (*Adam, error) {
	a := &Adam{}
	if err := a.init(params.Adam, x0, obj, p, opts); err != nil {
		return nil, err
	}
	a.v = mat.NewVecDense(a.dim, nil)
	a.s = mat.NewVecDense(a.dim, nil)
	a.vHat = mat.NewVecDense(a.dim, nil)
	a.sHat = mat.NewVecDense(a.dim, nil)
	return a, nil
}

// Optimize runs the Adam iteration.
func (a *Adam) Optimize() (*Result, error) {
	return a.run(a)
}

// Moments returns copies of the raw first and second moment estimates.
func (a *Adam) Moments() (v, s *mat.VecDense) {
	return mat.VecDenseCopyOf(a.v), mat.VecDenseCopyOf(a.s)
}

// Corrected returns copies of the bias-corrected moments of the last step.
func (a *Adam) Corrected() (vHat, sHat *mat.VecDense) {
	return mat.VecDenseCopyOf(a.vHat), mat.VecDenseCopyOf(a.sHat)
}

func (a *Adam) converged(it *iterate) (Status, bool, error) {
	return GradientThreshold, it.gradNorm < a.p.MinGradient, nil
}

func (a *Adam) update(it *iterate) error {
	k := float64(a.p.Iterations() + 1)
	gv, gs := a.p.GammaV, a.p.GammaS
	corrV := 1 - math.Pow(gv, k)
	corrS := 1 - math.Pow(gs, k)

	v := mat.NewVecDense(a.dim, nil)
	s := mat.NewVecDense(a.dim, nil)
	vHat := mat.NewVecDense(a.dim, nil)
	sHat := mat.NewVecDense(a.dim, nil)
	x := mat.NewVecDense(a.dim, nil)
	step := mat.NewVecDense(a.dim, nil)

	for i := 0; i < a.dim; i++ {
		g := it.grad.AtVec(i)
		v.SetVec(i, gv*a.v.AtVec(i)+(1-gv)*g)
		s.SetVec(i, gs*a.s.AtVec(i)+(1-gs)*g*g)
		vHat.SetVec(i, v.AtVec(i)/corrV)
		sHat.SetVec(i, s.AtVec(i)/corrS)
		step.SetVec(i, a.p.Alpha*vHat.AtVec(i)/(a.p.Epsilon+math.Sqrt(sHat.AtVec(i))))
		x.SetVec(i, it.x.AtVec(i)-step.AtVec(i))
	}
	if err := a.moveTo(x); err != nil {
		return err
	}
	a.v, a.s = v, s
	a.vHat, a.sHat = vHat, sHat
	it.stepNorm = mat.Norm(step, 2)
	return nil
}

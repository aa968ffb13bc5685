package opt

import (
	"github.com/cwbudde/descent/internal/objective"
	"github.com/cwbudde/descent/internal/params"
	"gonum.org/v1/gonum/mat"
)

// Momentum is gradient descent with a heavy-ball velocity term:
//
//	v_k = β·v_{k−1} − α·g_k
//	x_{k+1} = x_k + v_k
//
// With β = 0 it is plain gradient descent. It stops when ‖g‖ < MinGradient.
type Momentum struct {
	base

	v *mat.VecDense // velocity from the previous step
}

// NewMomentum positions obj at x0 and prepares a zero velocity.
func NewMomentum(x0 []float64, obj objective.Objective, p *params.Params, opts ...Option) (*Momentum, error) {
	m := &Momentum{}
	if err := m.init(params.Momentum, x0, obj, p, opts); err != nil {
		return nil, err
	}
	m.v = mat.NewVecDense(m.dim, nil)
	return m, nil
}

// Optimize runs the momentum iteration.
func (m *Momentum) Optimize() (*Result, error) {
	return m.run(m)
}

func (m *Momentum) converged(it *iterate) (Status, bool, error) {
	return GradientThreshold, it.gradNorm < m.p.MinGradient, nil
}

func (m *Momentum) update(it *iterate) error {
	v := mat.NewVecDense(m.dim, nil)
	v.ScaleVec(m.p.Beta, m.v)
	v.AddScaledVec(v, -m.p.Alpha, it.grad)

	x := mat.NewVecDense(m.dim, nil)
	x.AddVec(it.x, v)
	if err := m.moveTo(x); err != nil {
		return err
	}
	m.v = v
	it.stepNorm = mat.Norm(v, 2)
	return nil
}

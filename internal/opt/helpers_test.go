package opt

import (
	"testing"

	"github.com/cwbudde/descent/internal/linesearch"
	"github.com/cwbudde/descent/internal/objective"
	"github.com/cwbudde/descent/internal/params"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func sphere(t *testing.T, dim int) *objective.Func {
	t.Helper()
	f, err := objective.New(objective.Sphere(), dim)
	require.NoError(t, err)
	return f
}

func quadratic(t *testing.T, diag []float64, b []float64) (*objective.Func, *mat.SymDense) {
	t.Helper()
	a := mat.NewSymDense(len(diag), nil)
	for i, d := range diag {
		a.SetSym(i, i, d)
	}
	f, err := objective.New(objective.Quadratic(a, b), len(diag))
	require.NoError(t, err)
	return f, a
}

// exactQuadratic is the exact line search on f = ½xᵀAx − bᵀx:
// α = −gᵀd / dᵀAd.
type exactQuadratic struct {
	a   mat.Symmetric
	obj objective.Objective
}

func (e *exactQuadratic) Init(obj objective.Objective) { e.obj = obj }

func (e *exactQuadratic) Search(d *mat.VecDense) (float64, error) {
	g := e.obj.Jacobian()
	return -mat.Dot(g, d) / mat.Inner(d, e.a, d), nil
}

// scripted returns a fixed sequence of gradients, advancing on every SetX.
type scripted struct {
	grads [][]float64
	x     *mat.VecDense
	calls int
}

func newScripted(grads ...[]float64) *scripted {
	return &scripted{grads: grads, x: mat.NewVecDense(len(grads[0]), nil)}
}

func (s *scripted) SetX(x mat.Vector) {
	s.x.CopyVec(x)
	s.calls++
}

func (s *scripted) X() *mat.VecDense { return mat.VecDenseCopyOf(s.x) }
func (s *scripted) Value() float64 { return 1 }
func (s *scripted) Dim() int { return s.x.Len() }

func (s *scripted) Jacobian() *mat.VecDense {
	g := append([]float64(nil), s.grads[s.calls-1]...)
	return mat.NewVecDense(len(g), g)
}

type recorder struct {
	events []Event
}

func (r *recorder) Observe(e Event) {
	r.events = append(r.events, e)
}

func (r *recorder) kinds() []EventKind {
	out := make([]EventKind, len(r.events))
	for i, e := range r.events {
		out[i] = e.Kind
	}
	return out
}

func withMax(m params.Method, n int) *params.Params {
	p := params.Defaults(m)
	p.MaxIterations = n
	return p
}

func mustSearch(t *testing.T, p *params.Params) linesearch.StepSizeSearch {
	t.Helper()
	ss, err := linesearch.New(p)
	require.NoError(t, err)
	return ss
}

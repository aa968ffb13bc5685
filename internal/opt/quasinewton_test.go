package opt

import (
	"math/rand"
	"testing"

	"github.com/cwbudde/descent/internal/linesearch"
	"github.com/cwbudde/descent/internal/objective"
	"github.com/cwbudde/descent/internal/params"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

type quasiNewtonRun interface {
	Optimizer
	InverseHessian() *mat.SymDense
}

func newQuasiNewton(t *testing.T, m params.Method, x0 []float64, obj objective.Objective, p *params.Params, ss linesearch.StepSizeSearch) quasiNewtonRun {
	t.Helper()
	if m == params.BFGS {
		o, err := NewBFGS(x0, obj, p, ss)
		require.NoError(t, err)
		return o
	}
	o, err := NewDFP(x0, obj, p, ss)
	require.NoError(t, err)
	return o
}

func TestQuasiNewtonQuadraticTermination(t *testing.T) {
	diag := []float64{1, 4, 9}
	for _, m := range []params.Method{params.BFGS, params.DFP} {
		t.Run(string(m), func(t *testing.T) {
			obj, a := quadratic(t, diag, []float64{0, 0, 0})
			p := params.Defaults(m)
			p.MinGradient = 1e-8

			o := newQuasiNewton(t, m, []float64{1, 1, 1}, obj, p, &exactQuadratic{a: a})
			res, err := o.Optimize()
			require.NoError(t, err)
			assert.Equal(t, GradientThreshold, res.Status)
			assert.LessOrEqual(t, res.Iterations, len(diag))
			assert.Zero(t, res.SkippedUpdates)
			assert.InDeltaSlice(t, []float64{0, 0, 0}, res.X, 1e-8)

			// After n exact steps the approximation equals A⁻¹.
			h := o.InverseHessian()
			for i := range diag {
				for j := range diag {
					want := 0.0
					if i == j {
						want = 1 / diag[i]
					}
					assert.InDelta(t, want, h.At(i, j), 1e-8, "H[%d][%d]", i, j)
				}
			}
		})
	}
}

func TestQuasiNewtonGoldenSearch(t *testing.T) {
	for _, m := range []params.Method{params.BFGS, params.DFP} {
		t.Run(string(m), func(t *testing.T) {
			obj, err := objective.New(objective.Booth(), 2)
			require.NoError(t, err)
			p := params.Defaults(m)
			p.MinGradient = 1e-6

			o := newQuasiNewton(t, m, []float64{-4, 8}, obj, p, &linesearch.GoldenSection{InitialStep: 1})
			res, err := o.Optimize()
			require.NoError(t, err)
			assert.True(t, res.Converged())
			assert.InDeltaSlice(t, []float64{1, 3}, res.X, 1e-5)
		})
	}
}

func TestQuasiNewtonRosenbrock(t *testing.T) {
	obj, err := objective.New(objective.Rosenbrock(), 2)
	require.NoError(t, err)
	p := params.Defaults(params.BFGS)
	p.MinGradient = 1e-6

	o := newQuasiNewton(t, params.BFGS, []float64{-1.2, 1}, obj, p, &linesearch.GoldenSection{InitialStep: 1})
	res, err := o.Optimize()
	require.NoError(t, err)
	assert.True(t, res.Converged())
	assert.InDeltaSlice(t, []float64{1, 1}, res.X, 1e-4)
}

func TestInverseUpdatesKeepSecantAndSymmetry(t *testing.T) {
	rnd := rand.New(rand.NewSource(1))
	const n = 4
	for name, f := range map[string]inverseUpdate{"bfgs": bfgsUpdate, "dfp": dfpUpdate} {
		t.Run(name, func(t *testing.T) {
			h := identity(n)
			for k := 0; k < 20; k++ {
				s := mat.NewVecDense(n, nil)
				y := mat.NewVecDense(n, nil)
				for i := 0; i < n; i++ {
					s.SetVec(i, rnd.NormFloat64())
				}
				// y = B·s with B positive definite keeps sᵀy > 0.
				for i := 0; i < n; i++ {
					y.SetVec(i, (1+float64(i))*s.AtVec(i)+0.1*s.AtVec((i+1)%n)+0.1*s.AtVec((i+n-1)%n))
				}
				next, ok := f(h, s, y)
				require.True(t, ok)
				h = next

				var hy mat.VecDense
				hy.MulVec(h, y)
				assert.InDeltaSlice(t, s.RawVector().Data, hy.RawVector().Data, 1e-8)
				for i := 0; i < n; i++ {
					for j := 0; j < n; j++ {
						assert.Equal(t, h.At(i, j), h.At(j, i))
					}
				}
				var chol mat.Cholesky
				assert.True(t, chol.Factorize(h), "approximation lost positive definiteness")
			}
		})
	}
}

func TestInverseUpdatesRejectDegenerateCurvature(t *testing.T) {
	h := identity(2)
	s := mat.NewVecDense(2, []float64{1, 0})
	cases := map[string]*mat.VecDense{
		"orthogonal": mat.NewVecDense(2, []float64{0, 1}),
		"negative":   mat.NewVecDense(2, []float64{-1, 0.5}),
		"zero":       mat.NewVecDense(2, nil),
	}
	for name, y := range cases {
		t.Run(name, func(t *testing.T) {
			_, ok := bfgsUpdate(h, s, y)
			assert.False(t, ok)
			_, ok = dfpUpdate(h, s, y)
			assert.False(t, ok)
		})
	}
}

func TestDFPRejectsVanishingYHY(t *testing.T) {
	// sᵀy = 1 but H·y = 0, so the DFP denominator yᵀHy vanishes.
	h := mat.NewSymDense(2, []float64{0, 0, 0, 1})
	s := mat.NewVecDense(2, []float64{1, 0})
	y := mat.NewVecDense(2, []float64{1, 0})

	_, ok := dfpUpdate(h, s, y)
	assert.False(t, ok)

	// BFGS does not divide by yᵀHy and still satisfies the secant condition.
	next, ok := bfgsUpdate(h, s, y)
	require.True(t, ok)
	hy := mat.NewVecDense(2, nil)
	hy.MulVec(next, y)
	assert.InDeltaSlice(t, s.RawVector().Data, hy.RawVector().Data, 1e-12)
}

func TestInverseUpdatesRejectOverflow(t *testing.T) {
	cases := []struct {
		name   string
		update inverseUpdate
		s, y   []float64
	}{
		// s·sᵀ overflows while sᵀy = 1.
		{"bfgs", bfgsUpdate, []float64{1e200, 0}, []float64{1e-200, 0}},
		// s·sᵀ/(sᵀy) = 1e310.
		{"dfp", dfpUpdate, []float64{1e300, 0}, []float64{1e-10, 0}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := identity(2)
			next, ok := tc.update(h, mat.NewVecDense(2, tc.s), mat.NewVecDense(2, tc.y))
			assert.False(t, ok)
			assert.Nil(t, next)
			assert.True(t, mat.Equal(identity(2), h), "h must not be modified")
		})
	}
}

func TestQuasiNewtonSkipsUpdateOnFlatCurvature(t *testing.T) {
	// A linear objective has constant gradient, so Δg = 0 on every step.
	c := []float64{1, -2}
	obj, err := objective.New(objective.Problem{
		Func: func(x []float64) float64 { return c[0]*x[0] + c[1]*x[1] },
		Grad: func(g, _ []float64) { copy(g, c) },
	}, 2)
	require.NoError(t, err)

	for _, m := range []params.Method{params.BFGS, params.DFP} {
		t.Run(string(m), func(t *testing.T) {
			rec := &recorder{}
			p := withMax(m, 3)
			var (
				o   quasiNewtonRun
				err error
			)
			ss := &linesearch.Fixed{Step: 0.1}
			if m == params.BFGS {
				o, err = NewBFGS([]float64{0, 0}, obj, p, ss, WithObserver(rec))
			} else {
				o, err = NewDFP([]float64{0, 0}, obj, p, ss, WithObserver(rec))
			}
			require.NoError(t, err)

			res, err := o.Optimize()
			require.NoError(t, err)
			assert.Equal(t, IterationLimit, res.Status)
			assert.Equal(t, 4, res.Iterations)
			assert.Equal(t, 4, res.SkippedUpdates)
			assert.InDeltaSlice(t, []float64{-0.4, 0.8}, res.X, 1e-12)
			assert.True(t, mat.Equal(identity(2), o.InverseHessian()))

			var skipped int
			for _, e := range rec.events {
				if e.Kind == EventUpdate && e.SkippedUpdate {
					skipped++
				}
			}
			assert.Equal(t, 4, skipped)
		})
	}
}

func TestQuasiNewtonPropagatesSearchFailure(t *testing.T) {
	obj := sphere(t, 2)
	p := params.Defaults(params.BFGS)
	o, err := NewBFGS([]float64{1, 1}, obj, p, failingSearch{})
	require.NoError(t, err)
	res, err := o.Optimize()
	assert.ErrorIs(t, err, linesearch.ErrStepUnderflow)
	assert.Equal(t, Failure, res.Status)
	assert.Equal(t, []float64{1, 1}, res.X)
}

type failingSearch struct{}

func (failingSearch) Init(objective.Objective) {}

func (failingSearch) Search(*mat.VecDense) (float64, error) {
	return 0, linesearch.ErrStepUnderflow
}

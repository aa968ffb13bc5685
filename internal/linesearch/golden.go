package linesearch

import (
	"math"

	"github.com/cwbudde/descent/internal/objective"
	"gonum.org/v1/gonum/mat"
)

const (
	defaultGoldenTolerance = 1e-10
	defaultGoldenMaxIter   = 200
	maxBracketExpansions   = 60
)

// invPhi is 1/φ for the golden ratio φ.
var invPhi = (math.Sqrt(5) - 1) / 2

// GoldenSection minimizes φ(α) = f(x + α·d) over α ≥ 0. It first brackets a
// minimum by expanding the trial step geometrically, then shrinks the bracket
// by golden-section reduction until its width falls below Tolerance.
type GoldenSection struct {
	InitialStep float64 // First trial step. Defaults to 1.
	Tolerance   float64 // Bracket width at which the search stops. Defaults to 1e-10.
	MaxIter     int     // Maximum reduction steps. Defaults to 200.

	obj objective.Objective
}

// Init binds the search to obj.
func (g *GoldenSection) Init(obj objective.Objective) {
	g.obj = obj
}

// Search returns the approximate minimizing step along d.
func (g *GoldenSection) Search(d *mat.VecDense) (float64, error) {
	if g.obj == nil {
		return 0, ErrNotInitialized
	}
	step := g.InitialStep
	if step <= 0 {
		step = 1
	}
	tol := g.Tolerance
	if tol <= 0 {
		tol = defaultGoldenTolerance
	}
	maxIter := g.MaxIter
	if maxIter <= 0 {
		maxIter = defaultGoldenMaxIter
	}

	p := newProbe(g.obj, d)
	defer p.restore()

	f0 := g.obj.Value()

	// Bracket [lo, hi] around a minimum of φ. If the first trial already
	// increases φ the minimum lies in [0, step]; otherwise grow the step.
	lo, hi := 0.0, step
	fHi := p.value(hi)
	if fHi < f0 {
		mid, fMid := hi, fHi
		for i := 0; i < maxBracketExpansions; i++ {
			next := mid + (mid-lo)/invPhi
			fNext := p.value(next)
			if fNext >= fMid {
				hi = next
				break
			}
			lo, mid, fMid = mid, next, fNext
			hi = next
		}
	}

	a, b := lo, hi
	c := b - invPhi*(b-a)
	e := a + invPhi*(b-a)
	fc := p.value(c)
	fe := p.value(e)
	for i := 0; i < maxIter && b-a > tol; i++ {
		if fc < fe {
			b, e, fe = e, c, fc
			c = b - invPhi*(b-a)
			fc = p.value(c)
		} else {
			a, c, fc = c, e, fe
			e = a + invPhi*(b-a)
			fe = p.value(e)
		}
	}
	return (a + b) / 2, nil
}

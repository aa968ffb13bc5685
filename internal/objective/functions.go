package objective

import (
	"fmt"
	"sort"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Sphere is f(x) = Σ x_i², minimum 0 at the origin.
func Sphere() Problem {
	return Problem{
		Func: func(x []float64) float64 {
			return floats.Dot(x, x)
		},
		Grad: func(grad, x []float64) {
			floats.ScaleTo(grad, 2, x)
		},
		Hess: func(hess *mat.SymDense, x []float64) {
			n := len(x)
			for i := 0; i < n; i++ {
				for j := i; j < n; j++ {
					if i == j {
						hess.SetSym(i, i, 2)
					} else {
						hess.SetSym(i, j, 0)
					}
				}
			}
		},
	}
}

// Quadratic is f(x) = ½ xᵀAx − bᵀx. A must be symmetric positive definite for
// the problem to have a unique minimizer A⁻¹b.
func Quadratic(a mat.Symmetric, b []float64) Problem {
	n := a.SymmetricDim()
	if len(b) != n {
		panic(fmt.Sprintf("objective: quadratic b has length %d, want %d", len(b), n))
	}
	bv := mat.NewVecDense(n, b)
	return Problem{
		Func: func(x []float64) float64 {
			xv := mat.NewVecDense(n, x)
			return 0.5*mat.Inner(xv, a, xv) - mat.Dot(bv, xv)
		},
		Grad: func(grad, x []float64) {
			g := mat.NewVecDense(n, grad)
			g.MulVec(a, mat.NewVecDense(n, x))
			g.SubVec(g, bv)
		},
		Hess: func(hess *mat.SymDense, _ []float64) {
			hess.CopySym(a)
		},
	}
}

// Rosenbrock is the extended Rosenbrock function with minimum 0 at (1, …, 1).
func Rosenbrock() Problem {
	return Problem{
		Func: func(x []float64) float64 {
			var sum float64
			for i := 0; i < len(x)-1; i++ {
				a := 1 - x[i]
				b := x[i+1] - x[i]*x[i]
				sum += a*a + 100*b*b
			}
			return sum
		},
		Grad: func(grad, x []float64) {
			for i := range grad {
				grad[i] = 0
			}
			for i := 0; i < len(x)-1; i++ {
				b := x[i+1] - x[i]*x[i]
				grad[i] += -2*(1-x[i]) - 400*x[i]*b
				grad[i+1] += 200 * b
			}
		},
		Hess: func(hess *mat.SymDense, x []float64) {
			n := len(x)
			for i := 0; i < n; i++ {
				for j := i; j < n; j++ {
					hess.SetSym(i, j, 0)
				}
			}
			for i := 0; i < n-1; i++ {
				hess.SetSym(i, i, hess.At(i, i)+2-400*x[i+1]+1200*x[i]*x[i])
				hess.SetSym(i, i+1, -400*x[i])
				hess.SetSym(i+1, i+1, hess.At(i+1, i+1)+200)
			}
		},
	}
}

// Booth is f(x, y) = (x + 2y − 7)² + (2x + y − 5)², minimum 0 at (1, 3).
func Booth() Problem {
	return Problem{
		Func: func(x []float64) float64 {
			a := x[0] + 2*x[1] - 7
			b := 2*x[0] + x[1] - 5
			return a*a + b*b
		},
		Grad: func(grad, x []float64) {
			a := x[0] + 2*x[1] - 7
			b := 2*x[0] + x[1] - 5
			grad[0] = 2*a + 4*b
			grad[1] = 4*a + 2*b
		},
		Hess: func(hess *mat.SymDense, _ []float64) {
			hess.SetSym(0, 0, 10)
			hess.SetSym(0, 1, 8)
			hess.SetSym(1, 1, 10)
		},
	}
}

// Named is a built-in problem with its dimension constraint.
type Named struct {
	Name string

	// Dim is the fixed dimension, or 0 if any dimension ≥ MinDim works.
	Dim    int
	MinDim int
	Make   func(dim int) Problem
}

var registry = map[string]Named{
	"sphere":     {Name: "sphere", MinDim: 1, Make: func(int) Problem { return Sphere() }},
	"rosenbrock": {Name: "rosenbrock", MinDim: 2, Make: func(int) Problem { return Rosenbrock() }},
	"booth":      {Name: "booth", Dim: 2, Make: func(int) Problem { return Booth() }},
}

// Lookup returns a built-in problem by name and checks dim against it.
func Lookup(name string, dim int) (Problem, error) {
	n, ok := registry[strings.ToLower(name)]
	if !ok {
		return Problem{}, fmt.Errorf("unknown problem %q (available: %s)", name, strings.Join(Names(), ", "))
	}
	if n.Dim != 0 && dim != n.Dim {
		return Problem{}, fmt.Errorf("problem %s requires dimension %d, got %d", n.Name, n.Dim, dim)
	}
	if dim < n.MinDim {
		return Problem{}, fmt.Errorf("problem %s requires dimension >= %d, got %d", n.Name, n.MinDim, dim)
	}
	return n.Make(dim), nil
}

// Names lists the built-in problems.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Package objective defines the function being minimized as seen by the
// optimizers: a point held by the objective, with value and gradient queries
// at that point.
package objective

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Objective holds the current iterate and answers value and gradient queries
// for it. SetX is the only way an optimizer mutates external state.
type Objective interface {
	// SetX moves the objective to x. Value and Jacobian afterwards refer to x.
	SetX(x mat.Vector)
	// X returns a copy of the current point.
	X() *mat.VecDense
	// Value returns f at the current point.
	Value() float64
	// Jacobian returns a copy of the gradient at the current point.
	Jacobian() *mat.VecDense
	// Dim returns the problem dimension.
	Dim() int
}

// HessianFunc returns the exact Hessian at x. The result must be a square
// matrix of the problem dimension.
type HessianFunc func(x mat.Vector) mat.Matrix

// Problem describes an objective by plain functions over slices.
type Problem struct {
	Func func(x []float64) float64
	Grad func(grad, x []float64)
	// Hess is optional and only needed by Newton's method.
	Hess func(hess *mat.SymDense, x []float64)
}

// Stats counts evaluations performed by a Func.
type Stats struct {
	FuncEvaluations int `json:"funcEvaluations"`
	GradEvaluations int `json:"gradEvaluations"`
	HessEvaluations int `json:"hessEvaluations"`
}

// Func is an Objective backed by a Problem. Value and gradient are computed
// lazily and cached until the next SetX.
type Func struct {
	p   Problem
	dim int

	x    *mat.VecDense
	grad *mat.VecDense

	value     float64
	haveValue bool
	haveGrad  bool

	stats Stats
}

// New creates a Func of the given dimension positioned at the origin.
func New(p Problem, dim int) (*Func, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("dimension must be positive, got %d", dim)
	}
	if p.Func == nil || p.Grad == nil {
		return nil, fmt.Errorf("problem requires both Func and Grad")
	}
	return &Func{
		p:    p,
		dim:  dim,
		x:    mat.NewVecDense(dim, nil),
		grad: mat.NewVecDense(dim, nil),
	}, nil
}

// Dim returns the problem dimension.
func (f *Func) Dim() int {
	return f.dim
}

// SetX moves the objective to x. It panics if x has the wrong length, since
// optimizers check dimensions before the first SetX.
func (f *Func) SetX(x mat.Vector) {
	if x.Len() != f.dim {
		panic(fmt.Sprintf("objective: point of length %d, want %d", x.Len(), f.dim))
	}
	for i := 0; i < f.dim; i++ {
		f.x.SetVec(i, x.AtVec(i))
	}
	f.haveValue = false
	f.haveGrad = false
}

// X returns a copy of the current point.
func (f *Func) X() *mat.VecDense {
	return mat.VecDenseCopyOf(f.x)
}

// Value returns f at the current point.
func (f *Func) Value() float64 {
	if !f.haveValue {
		f.value = f.p.Func(f.x.RawVector().Data)
		f.haveValue = true
		f.stats.FuncEvaluations++
	}
	return f.value
}

// Jacobian returns a copy of the gradient at the current point.
func (f *Func) Jacobian() *mat.VecDense {
	if !f.haveGrad {
		f.p.Grad(f.grad.RawVector().Data, f.x.RawVector().Data)
		f.haveGrad = true
		f.stats.GradEvaluations++
	}
	return mat.VecDenseCopyOf(f.grad)
}

// Stats returns the evaluation counters.
func (f *Func) Stats() Stats {
	return f.stats
}

// HessianFunc adapts the problem's Hess to a HessianFunc. It returns nil when
// the problem has no Hessian.
func (f *Func) HessianFunc() HessianFunc {
	if f.p.Hess == nil {
		return nil
	}
	return func(x mat.Vector) mat.Matrix {
		xs := make([]float64, x.Len())
		for i := range xs {
			xs[i] = x.AtVec(i)
		}
		h := mat.NewSymDense(len(xs), nil)
		f.p.Hess(h, xs)
		f.stats.HessEvaluations++
		return h
	}
}

package opt

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/cwbudde/descent/internal/objective"
	"github.com/cwbudde/mayfly"
	"gonum.org/v1/gonum/mat"
)

// minPopulation is the smallest population mayfly accepts.
const minPopulation = 20

// Seeder picks a start point for a local optimizer by running a short
// population-based search with the mayfly algorithm inside a box. It only
// evaluates the objective's value. The point it returns is a good place to
// start descending from; it is not a global minimizer.
type Seeder struct {
	Lower, Upper  float64
	MaxIterations int
	Population    int
	RandSeed      int64
}

// NewSeeder returns a Seeder over [lower, upper] in every coordinate.
func NewSeeder(lower, upper float64, maxIters, popSize int, seed int64) *Seeder {
	return &Seeder{
		Lower:         lower,
		Upper:         upper,
		MaxIterations: maxIters,
		Population:    popSize,
		RandSeed:      seed,
	}
}

// Seed searches the box for a low objective value and returns the best point
// with its value. obj is left positioned at that point.
func (s *Seeder) Seed(obj objective.Objective) ([]float64, float64, error) {
	if obj == nil {
		return nil, 0, fmt.Errorf("seed: %w: objective is nil", ErrNilObjective)
	}
	if !(s.Lower < s.Upper) {
		return nil, 0, fmt.Errorf("seed: empty bounds [%g, %g]", s.Lower, s.Upper)
	}
	if s.MaxIterations <= 0 {
		return nil, 0, errors.New("seed: max iterations must be positive")
	}
	dim := obj.Dim()

	eval := func(x []float64) float64 {
		obj.SetX(mat.NewVecDense(dim, append([]float64(nil), x...)))
		return obj.Value()
	}

	config := mayfly.NewDefaultConfig()
	config.ObjectiveFunc = eval
	config.ProblemSize = dim
	config.MaxIterations = s.MaxIterations
	config.NPop = max(s.Population, minPopulation)
	config.LowerBound = s.Lower
	config.UpperBound = s.Upper
	config.Rand = rand.New(rand.NewSource(s.RandSeed))

	result, err := mayfly.Optimize(config)
	if err != nil {
		return nil, 0, fmt.Errorf("seed: %w", err)
	}
	best := append([]float64(nil), result.GlobalBest.Position...)
	if len(best) != dim {
		return nil, 0, fmt.Errorf("seed: %w: search returned %d entries, want %d",
			ErrDimensionMismatch, len(best), dim)
	}
	return best, eval(best), nil
}

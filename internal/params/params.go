package params

import (
	"fmt"
	"strings"
)

// Method names an update rule.
type Method string

const (
	Momentum Method = "momentum"
	Adam     Method = "adam"
	Newton   Method = "newton"
	BFGS     Method = "bfgs"
	DFP      Method = "dfp"
)

// Methods lists every supported method in display order.
var Methods = []Method{Momentum, Adam, Newton, BFGS, DFP}

// ParseMethod converts a case-insensitive name into a Method.
func ParseMethod(s string) (Method, error) {
	m := Method(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Methods {
		if m == known {
			return m, nil
		}
	}
	return "", &InvalidArgumentError{Name: "method", Value: s, Message: "expected one of momentum, adam, newton, bfgs, dfp"}
}

// UsesLineSearch reports whether the method consumes a StepSizeSearch.
func (m Method) UsesLineSearch() bool {
	return m == BFGS || m == DFP
}

// NeedsHessian reports whether the method requires an exact Hessian functor.
func (m Method) NeedsHessian() bool {
	return m == Newton
}

// Verbosity controls what the progress layer prints. The optimizers never read it.
type Verbosity string

const (
	Silent  Verbosity = "silent"
	Summary Verbosity = "summary"
	Detail  Verbosity = "detail"
)

// StepSizeMethod selects the line search used by BFGS and DFP.
type StepSizeMethod string

const (
	GoldenSection StepSizeMethod = "golden"
	Backtracking  StepSizeMethod = "backtracking"
	FixedStep     StepSizeMethod = "fixed"
)

// Params holds the tunable parameters of one optimization run together with
// its iteration counter. Hyperparameters are set before Optimize and are not
// changed during a run; the counter is advanced by the optimizer once per
// completed step and is only reset by constructing a new Params.
type Params struct {
	Method Method `mapstructure:"method" json:"method"`

	// Alpha is the learning rate (Momentum, Adam).
	Alpha float64 `mapstructure:"alpha" json:"alpha"`

	// Beta is the momentum coefficient.
	Beta float64 `mapstructure:"beta" json:"beta"`

	// GammaV and GammaS are Adam's first and second moment decay rates.
	// Epsilon keeps Adam's denominator away from zero.
	GammaV  float64 `mapstructure:"gamma_v" json:"gammaV"`
	GammaS  float64 `mapstructure:"gamma_s" json:"gammaS"`
	Epsilon float64 `mapstructure:"epsilon" json:"epsilon"`

	// MinGradient is the gradient-norm threshold (all methods except Newton).
	MinGradient float64 `mapstructure:"min_gradient" json:"minGradient"`

	// MinDeltaX is Newton's step-norm threshold.
	MinDeltaX float64 `mapstructure:"min_delta_x" json:"minDeltaX"`

	MaxIterations int `mapstructure:"max_iterations" json:"maxIterations"`

	// StepSize and Step configure the line search of BFGS and DFP. Step is
	// the constant step for FixedStep and the initial trial step otherwise.
	StepSize StepSizeMethod `mapstructure:"step_size" json:"stepSize,omitempty"`
	Step     float64        `mapstructure:"step" json:"step,omitempty"`

	Verbosity Verbosity `mapstructure:"verbosity" json:"verbosity"`

	// LogFile enables the per-iteration trace file.
	LogFile bool `mapstructure:"log_file" json:"logFile"`

	iterations int
}

// Defaults returns the default parameters for a method.
func Defaults(m Method) *Params {
	p := &Params{
		Method:        m,
		MinGradient:   0.01,
		MinDeltaX:     1e-6,
		MaxIterations: 10000,
		Verbosity:     Summary,
	}
	switch m {
	case Momentum:
		p.Alpha = 0.01
		p.Beta = 0.9
	case Adam:
		p.Alpha = 0.01
		p.GammaV = 0.9
		p.GammaS = 0.999
		p.Epsilon = 1e-8
	case Newton:
		p.MaxIterations = 100
	case BFGS, DFP:
		p.StepSize = GoldenSection
		p.Step = 1
		p.MaxIterations = 1000
	}
	return p
}

// Iterations returns the number of completed optimization steps.
func (p *Params) Iterations() int {
	return p.iterations
}

// NextIteration advances the iteration counter by one.
func (p *Params) NextIteration() {
	p.iterations++
}

// Validate checks that the parameters are usable by the given method.
func (p *Params) Validate(m Method) error {
	if p.MaxIterations < 0 {
		return &InvalidArgumentError{Name: "max_iterations", Value: p.MaxIterations, Message: "must not be negative"}
	}
	switch m {
	case Momentum:
		if p.Alpha <= 0 {
			return &InvalidArgumentError{Name: "alpha", Value: p.Alpha, Message: "outside allowed range (0, Inf)"}
		}
		if p.Beta < 0 || p.Beta >= 1 {
			return &InvalidArgumentError{Name: "beta", Value: p.Beta, Message: "outside allowed range [0, 1)"}
		}
	case Adam:
		if p.Alpha <= 0 {
			return &InvalidArgumentError{Name: "alpha", Value: p.Alpha, Message: "outside allowed range (0, Inf)"}
		}
		if p.GammaV < 0 || p.GammaV >= 1 {
			return &InvalidArgumentError{Name: "gamma_v", Value: p.GammaV, Message: "outside allowed range [0, 1)"}
		}
		if p.GammaS < 0 || p.GammaS >= 1 {
			return &InvalidArgumentError{Name: "gamma_s", Value: p.GammaS, Message: "outside allowed range [0, 1)"}
		}
		if p.Epsilon < 0 {
			return &InvalidArgumentError{Name: "epsilon", Value: p.Epsilon, Message: "must not be negative"}
		}
	case Newton:
		if p.MinDeltaX <= 0 {
			return &InvalidArgumentError{Name: "min_delta_x", Value: p.MinDeltaX, Message: "outside allowed range (0, Inf)"}
		}
		return nil
	case BFGS, DFP:
		switch p.StepSize {
		case GoldenSection, Backtracking, FixedStep:
		default:
			return &InvalidArgumentError{Name: "step_size", Value: p.StepSize, Message: "expected golden, backtracking or fixed"}
		}
		if p.Step <= 0 {
			return &InvalidArgumentError{Name: "step", Value: p.Step, Message: "outside allowed range (0, Inf)"}
		}
	default:
		return &InvalidArgumentError{Name: "method", Value: m}
	}
	if p.MinGradient <= 0 {
		return &InvalidArgumentError{Name: "min_gradient", Value: p.MinGradient, Message: "outside allowed range (0, Inf)"}
	}
	return nil
}

// InvalidArgumentError reports a parameter outside its allowed range.
type InvalidArgumentError struct {
	Name    string
	Value   interface{}
	Message string
}

func (e *InvalidArgumentError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("value %v is invalid for parameter %q", e.Value, e.Name)
	}
	return fmt.Sprintf("value %v is invalid for parameter %q; %s", e.Value, e.Name, e.Message)
}

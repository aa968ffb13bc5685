package params

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsValidate(t *testing.T) {
	for _, m := range Methods {
		t.Run(string(m), func(t *testing.T) {
			p := Defaults(m)
			assert.Equal(t, m, p.Method)
			assert.NoError(t, p.Validate(m))
			assert.Equal(t, 0, p.Iterations())
		})
	}
}

func TestIterationCounter(t *testing.T) {
	p := Defaults(Momentum)
	for i := 0; i < 3; i++ {
		p.NextIteration()
	}
	assert.Equal(t, 3, p.Iterations())
}

func TestValidateRejects(t *testing.T) {
	tests := map[string]struct {
		method Method
		mutate func(p *Params)
		field  string
	}{
		"negative max iterations": {Momentum, func(p *Params) { p.MaxIterations = -1 }, "max_iterations"},
		"momentum beta one":       {Momentum, func(p *Params) { p.Beta = 1 }, "beta"},
		"momentum zero alpha":     {Momentum, func(p *Params) { p.Alpha = 0 }, "alpha"},
		"adam gamma_s":            {Adam, func(p *Params) { p.GammaS = 1.5 }, "gamma_s"},
		"adam negative epsilon":   {Adam, func(p *Params) { p.Epsilon = -1 }, "epsilon"},
		"newton zero threshold":   {Newton, func(p *Params) { p.MinDeltaX = 0 }, "min_delta_x"},
		"bfgs unknown step size":  {BFGS, func(p *Params) { p.StepSize = "wolfe" }, "step_size"},
		"dfp zero step":           {DFP, func(p *Params) { p.Step = 0 }, "step"},
		"dfp zero gradient":       {DFP, func(p *Params) { p.MinGradient = 0 }, "min_gradient"},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			p := Defaults(tc.method)
			tc.mutate(p)
			err := p.Validate(tc.method)
			var invalid *InvalidArgumentError
			require.True(t, errors.As(err, &invalid), "expected InvalidArgumentError, got %v", err)
			assert.Equal(t, tc.field, invalid.Name)
		})
	}
}

func TestParseMethod(t *testing.T) {
	m, err := ParseMethod(" BFGS ")
	require.NoError(t, err)
	assert.Equal(t, BFGS, m)
	assert.True(t, m.UsesLineSearch())
	assert.False(t, m.NeedsHessian())

	_, err = ParseMethod("lbfgs")
	assert.Error(t, err)
}

func TestLoadFromConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "params.yaml")
	content := "alpha: 0.05\nbeta: 0\nmax_iterations: 42\nverbosity: detail\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	v := viper.New()
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())

	p, err := Load(v, Momentum)
	require.NoError(t, err)
	assert.Equal(t, 0.05, p.Alpha)
	assert.Equal(t, 0.0, p.Beta)
	assert.Equal(t, 42, p.MaxIterations)
	assert.Equal(t, Detail, p.Verbosity)
	// Untouched keys keep their defaults.
	assert.Equal(t, 0.01, p.MinGradient)
}

func TestLoadRejectsBadVerbosity(t *testing.T) {
	v := viper.New()
	v.Set("verbosity", "loud")
	_, err := Load(v, Adam)
	assert.Error(t, err)
}

func TestOverlayKeepsBaseAndResetsCounter(t *testing.T) {
	base := Defaults(Momentum)
	base.Alpha = 0.3
	base.NextIteration()

	v := viper.New()
	v.Set("beta", "0.5")

	p, err := Overlay(v, base, Momentum)
	require.NoError(t, err)
	assert.Equal(t, 0.3, p.Alpha)
	assert.Equal(t, 0.5, p.Beta)
	assert.Equal(t, 0, p.Iterations())
	assert.Equal(t, 1, base.Iterations())
}

func TestOverlaySwitchesMethod(t *testing.T) {
	// A momentum configuration reused for BFGS picks up a line search.
	p, err := Overlay(nil, Defaults(Momentum), BFGS)
	require.NoError(t, err)
	assert.Equal(t, BFGS, p.Method)
	assert.Equal(t, GoldenSection, p.StepSize)
	assert.Equal(t, 1.0, p.Step)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("DESCENT_MAX_ITERATIONS", "7")
	v := viper.New()
	v.SetEnvPrefix("DESCENT")
	for _, key := range Keys {
		require.NoError(t, v.BindEnv(key))
	}
	p, err := Load(v, Newton)
	require.NoError(t, err)
	assert.Equal(t, 7, p.MaxIterations)
	assert.Equal(t, 1e-6, p.MinDeltaX)
}

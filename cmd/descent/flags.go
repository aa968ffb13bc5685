package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// paramFlags maps optimizer parameter flags to their configuration keys.
var paramFlags = []struct {
	flag, key string
}{
	{"alpha", "alpha"},
	{"beta", "beta"},
	{"gamma-v", "gamma_v"},
	{"gamma-s", "gamma_s"},
	{"epsilon", "epsilon"},
	{"min-gradient", "min_gradient"},
	{"min-delta-x", "min_delta_x"},
	{"max-iterations", "max_iterations"},
	{"line-search", "step_size"},
	{"step", "step"},
	{"verbosity", "verbosity"},
	{"trace", "log_file"},
}

// addParamFlags registers the optimizer parameter flags. Their defaults are
// placeholders; only flags set on the command line override the method
// defaults, the config file and the environment.
func addParamFlags(fs *pflag.FlagSet) {
	fs.Float64("alpha", 0, "Learning rate (momentum, adam)")
	fs.Float64("beta", 0, "Momentum coefficient")
	fs.Float64("gamma-v", 0, "Adam first moment decay")
	fs.Float64("gamma-s", 0, "Adam second moment decay")
	fs.Float64("epsilon", 0, "Adam denominator offset")
	fs.Float64("min-gradient", 0, "Gradient norm threshold")
	fs.Float64("min-delta-x", 0, "Newton step norm threshold")
	fs.Int("max-iterations", 0, "Iteration cap")
	fs.String("line-search", "", "Step size search for bfgs/dfp: golden, backtracking, fixed")
	fs.Float64("step", 0, "Initial (or fixed) line search step")
	fs.String("verbosity", "", "Progress output: silent, summary, detail")
	fs.Bool("trace", false, "Write a per-iteration trace next to the run record")
}

// paramOverrides returns a viper layered over base that additionally holds
// every parameter flag set on cmd's command line.
func paramOverrides(cmd *cobra.Command, base *viper.Viper) (*viper.Viper, error) {
	v := viper.New()
	if err := v.MergeConfigMap(base.AllSettings()); err != nil {
		return nil, fmt.Errorf("failed to merge configuration: %w", err)
	}
	for _, pf := range paramFlags {
		f := cmd.Flags().Lookup(pf.flag)
		if f == nil || !f.Changed {
			continue
		}
		v.Set(pf.key, f.Value.String())
	}
	return v, nil
}

package params

import (
	"fmt"

	"github.com/spf13/viper"
)

// Keys lists the configuration keys understood by Load, i.e. the
// mapstructure names of the exported Params fields other than method.
var Keys = []string{
	"alpha",
	"beta",
	"gamma_v",
	"gamma_s",
	"epsilon",
	"min_gradient",
	"min_delta_x",
	"max_iterations",
	"step_size",
	"step",
	"verbosity",
	"log_file",
}

// Load builds Params for a method from the defaults overlaid with whatever keys
// v holds (config file, environment, explicitly set flags).
func Load(v *viper.Viper, m Method) (*Params, error) {
	return Overlay(v, Defaults(m), m)
}

// Overlay returns a copy of base with the keys held by v applied on top, set up
// for method m and validated. The copy starts with a zero iteration counter.
func Overlay(v *viper.Viper, base *Params, m Method) (*Params, error) {
	p := *base
	p.iterations = 0
	if v != nil {
		if err := v.Unmarshal(&p); err != nil {
			return nil, fmt.Errorf("failed to decode parameters: %w", err)
		}
	}
	// The method is chosen by the caller, not by the file.
	p.Method = m
	switch p.Verbosity {
	case Silent, Summary, Detail:
	case "":
		p.Verbosity = Summary
	default:
		return nil, &InvalidArgumentError{Name: "verbosity", Value: p.Verbosity, Message: "expected silent, summary or detail"}
	}
	if m.UsesLineSearch() && p.StepSize == "" {
		p.StepSize = GoldenSection
		if p.Step == 0 {
			p.Step = 1
		}
	}
	if err := p.Validate(m); err != nil {
		return nil, err
	}
	return &p, nil
}

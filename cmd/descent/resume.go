package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cwbudde/descent/internal/params"
	"github.com/cwbudde/descent/internal/store"
)

var (
	resumeMethod  string
	resumeProblem string
	resumeDim     int
)

var resumeCmd = &cobra.Command{
	Use:   "resume [run-id]",
	Short: "Continue a stored run from its last point",
	Long: `Starts a new run at the final point of a stored run. The optimizer starts
with fresh internal state (no velocity, moments or curvature history), with the
stored parameters overlaid by the config file, environment and flags. The
method may be changed with --method.`,
	Args: cobra.ExactArgs(1),
	RunE: runResume,
}

func init() {
	resumeCmd.Flags().StringVar(&resumeMethod, "method", "", "Optimizer to continue with (default: the stored run's)")
	resumeCmd.Flags().StringVar(&resumeProblem, "problem", "", "Expected problem; resuming fails if the run used another")
	resumeCmd.Flags().IntVar(&resumeDim, "dim", 0, "Expected dimension; resuming fails if the run used another")
	resumeCmd.Flags().StringVar(&metricsFile, "metrics-file", "", "Write prometheus metrics of the run to this textfile")
	addParamFlags(resumeCmd.Flags())
	rootCmd.AddCommand(resumeCmd)
}

func runResume(cmd *cobra.Command, args []string) error {
	st, err := store.NewFSStore(dataDir)
	if err != nil {
		return fmt.Errorf("failed to create run store: %w", err)
	}
	v, err := paramOverrides(cmd, cfg)
	if err != nil {
		return err
	}
	plan, err := resumePlan(st, args[0], resumeMethod, resumeProblem, resumeDim, func(base *params.Params, m params.Method) (*params.Params, error) {
		return params.Overlay(v, base, m)
	})
	if err != nil {
		return err
	}

	record, err := execute(st, plan, metricsFile)
	if record != nil {
		printSummary(record)
	}
	return err
}

// resumePlan builds the plan continuing runID. Empty method, problem or a zero
// dim mean "as stored"; a given problem or dim must match the stored run.
func resumePlan(st store.Store, runID, method, problem string, dim int, overlay func(*params.Params, params.Method) (*params.Params, error)) (runPlan, error) {
	prev, err := st.LoadRun(runID)
	if err != nil {
		return runPlan{}, fmt.Errorf("failed to load run: %w", err)
	}
	if err := prev.Validate(); err != nil {
		return runPlan{}, fmt.Errorf("stored run is invalid: %w", err)
	}

	if problem == "" {
		problem = prev.Config.Problem
	}
	if dim == 0 {
		dim = prev.Config.Dim
	}
	if err := prev.IsCompatible(problem, dim); err != nil {
		return runPlan{}, err
	}

	m := prev.Config.Params.Method
	if method != "" {
		if m, err = params.ParseMethod(method); err != nil {
			return runPlan{}, err
		}
	}
	// Hyperparameters of another method do not carry over.
	base := prev.Config.Params
	if m != base.Method {
		d := params.Defaults(m)
		d.Verbosity, d.LogFile = base.Verbosity, base.LogFile
		base = *d
	}
	p, err := overlay(&base, m)
	if err != nil {
		return runPlan{}, err
	}

	return runPlan{
		problem:     prev.Config.Problem,
		dim:         prev.Config.Dim,
		x0:          append([]float64(nil), prev.Result.X...),
		params:      p,
		resumedFrom: prev.RunID,
	}, nil
}

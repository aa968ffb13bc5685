package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/cobra"

	"github.com/cwbudde/descent/internal/linesearch"
	"github.com/cwbudde/descent/internal/objective"
	"github.com/cwbudde/descent/internal/opt"
	"github.com/cwbudde/descent/internal/params"
	"github.com/cwbudde/descent/internal/progress"
	"github.com/cwbudde/descent/internal/store"
)

var (
	methodName  string
	problemName string
	dim         int
	x0          []float64
	metricsFile string

	seedSearch bool
	seedLower  float64
	seedUpper  float64
	seedIters  int
	seedPop    int
	seed       int64
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Minimize a built-in problem",
	Long: `Runs one optimizer on a built-in problem from --x0, or from a start point
found by a mayfly population search with --seed-search, and stores the outcome
under --data-dir.`,
	RunE: runOptimization,
}

func init() {
	runCmd.Flags().StringVar(&methodName, "method", "bfgs", "Optimizer: momentum, adam, newton, bfgs, dfp")
	runCmd.Flags().StringVar(&problemName, "problem", "sphere", "Problem: "+fmt.Sprint(objective.Names()))
	runCmd.Flags().IntVar(&dim, "dim", 2, "Problem dimension")
	runCmd.Flags().Float64SliceVar(&x0, "x0", nil, "Start point, comma separated")
	runCmd.Flags().StringVar(&metricsFile, "metrics-file", "", "Write prometheus metrics of the run to this textfile")

	runCmd.Flags().BoolVar(&seedSearch, "seed-search", false, "Pick the start point with a mayfly search")
	runCmd.Flags().Float64Var(&seedLower, "seed-lower", -10, "Lower bound of the seed search box")
	runCmd.Flags().Float64Var(&seedUpper, "seed-upper", 10, "Upper bound of the seed search box")
	runCmd.Flags().IntVar(&seedIters, "seed-iters", 100, "Seed search iterations")
	runCmd.Flags().IntVar(&seedPop, "seed-pop", 20, "Seed search population size")
	runCmd.Flags().Int64Var(&seed, "seed", 42, "Random seed of the seed search")

	addParamFlags(runCmd.Flags())
	rootCmd.AddCommand(runCmd)
}

func runOptimization(cmd *cobra.Command, args []string) error {
	method, err := params.ParseMethod(methodName)
	if err != nil {
		return err
	}
	v, err := paramOverrides(cmd, cfg)
	if err != nil {
		return err
	}
	p, err := params.Load(v, method)
	if err != nil {
		return err
	}

	plan := runPlan{
		problem: problemName,
		dim:     dim,
		x0:      x0,
		params:  p,
	}
	if seedSearch {
		if len(x0) != 0 {
			return fmt.Errorf("--x0 and --seed-search are mutually exclusive")
		}
		plan.seeder = opt.NewSeeder(seedLower, seedUpper, seedIters, seedPop, seed)
	} else if len(x0) == 0 {
		return fmt.Errorf("a start point is required: pass --x0 or --seed-search")
	}

	st, err := store.NewFSStore(dataDir)
	if err != nil {
		return fmt.Errorf("failed to create run store: %w", err)
	}

	record, err := execute(st, plan, metricsFile)
	if record != nil {
		printSummary(record)
	}
	return err
}

// runPlan describes one run to execute.
type runPlan struct {
	problem string
	dim     int
	x0      []float64
	params  *params.Params

	// seeder, if set, replaces x0 by the result of a population search.
	seeder *opt.Seeder

	resumedFrom string
}

// execute performs the run described by plan, saves its record in st and
// returns it. The record is returned whenever the optimizer ran, even if the
// run failed or its sinks could not be closed.
func execute(st *store.FSStore, plan runPlan, metricsPath string) (*store.RunRecord, error) {
	prob, err := objective.Lookup(plan.problem, plan.dim)
	if err != nil {
		return nil, err
	}

	config := store.RunConfig{
		Problem: plan.problem,
		Dim:     plan.dim,
		X0:      plan.x0,
	}
	if plan.seeder != nil {
		probe, err := objective.New(prob, plan.dim)
		if err != nil {
			return nil, err
		}
		start, value, err := plan.seeder.Seed(probe)
		if err != nil {
			return nil, fmt.Errorf("seed search failed: %w", err)
		}
		slog.Info("Seeded start point", "x0", start, "value", value)
		config.X0 = start
		config.Seeded = true
	}
	if len(config.X0) != plan.dim {
		return nil, fmt.Errorf("start point has %d coordinates, --dim is %d", len(config.X0), plan.dim)
	}

	obj, err := objective.New(prob, plan.dim)
	if err != nil {
		return nil, err
	}

	runID := store.NewRunID()
	observers := opt.Observers{progress.NewLogger(slog.Default(), plan.params.Verbosity)}

	var trace *store.TraceObserver
	if plan.params.LogFile {
		w, err := store.NewTraceWriter(st.BaseDir(), runID, false)
		if err != nil {
			return nil, err
		}
		trace = store.NewTraceObserver(w, true)
		observers = append(observers, trace)
	}
	var metrics *progress.Metrics
	if metricsPath != "" {
		metrics = progress.NewMetrics()
		observers = append(observers, metrics)
	}

	optimizer, err := newOptimizer(plan.params.Method, config.X0, obj, plan.params, opt.WithObserver(observers))
	if err != nil {
		if trace != nil {
			trace.Close()
		}
		return nil, err
	}

	started := time.Now()
	result, runErr := optimizer.Optimize()

	var errs *multierror.Error
	if runErr != nil {
		errs = multierror.Append(errs, fmt.Errorf("optimization failed: %w", runErr))
	}
	if trace != nil {
		if err := trace.Close(); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("failed to write trace: %w", err))
		}
	}
	if metrics != nil {
		if err := metrics.WriteToTextfile(metricsPath); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("failed to write metrics: %w", err))
		}
	}

	config.Params = *plan.params
	record := store.NewRunRecord(runID, config, result, runErr, obj.Stats(), started)
	record.ResumedFrom = plan.resumedFrom
	if err := st.SaveRun(record); err != nil {
		errs = multierror.Append(errs, fmt.Errorf("failed to save run: %w", err))
	}
	return record, errs.ErrorOrNil()
}

// newOptimizer builds the optimizer for method, positioned at x0.
func newOptimizer(method params.Method, x0 []float64, obj *objective.Func, p *params.Params, opts ...opt.Option) (opt.Optimizer, error) {
	switch method {
	case params.Momentum:
		return opt.NewMomentum(x0, obj, p, opts...)
	case params.Adam:
		return opt.NewAdam(x0, obj, p, opts...)
	case params.Newton:
		hess := obj.HessianFunc()
		if hess == nil {
			return nil, fmt.Errorf("problem has no Hessian, cannot use newton")
		}
		return opt.NewNewton(x0, obj, hess, p, opts...)
	case params.BFGS, params.DFP:
		ss, err := linesearch.New(p)
		if err != nil {
			return nil, err
		}
		if method == params.BFGS {
			return opt.NewBFGS(x0, obj, p, ss, opts...)
		}
		return opt.NewDFP(x0, obj, p, ss, opts...)
	default:
		return nil, fmt.Errorf("unknown method %q", method)
	}
}

func printSummary(r *store.RunRecord) {
	fmt.Printf("Run %s: %s %s after %d iterations, f = %.6g, |g| = %.3g\n",
		r.RunID,
		r.Result.Method,
		r.Result.Status,
		r.Result.Iterations,
		r.Result.Value,
		r.Result.GradNorm,
	)
	fmt.Printf("x = %v\n", r.Result.X)
}

// Package progress reports optimizer runs to people and to monitoring. Both
// reporters are opt.Observers, so the optimizers stay free of output.
package progress

import (
	"log/slog"

	"github.com/cwbudde/descent/internal/opt"
	"github.com/cwbudde/descent/internal/params"
)

// Logger prints run progress through slog.
//
// Silent prints nothing. Summary prints the start and the outcome of the run.
// Detail additionally prints every iteration, and every step at debug level.
type Logger struct {
	log       *slog.Logger
	verbosity params.Verbosity
}

// NewLogger returns a Logger writing to log, or to slog.Default() if log is nil.
func NewLogger(log *slog.Logger, verbosity params.Verbosity) *Logger {
	if log == nil {
		log = slog.Default()
	}
	return &Logger{log: log, verbosity: verbosity}
}

// Observe implements opt.Observer.
func (l *Logger) Observe(e opt.Event) {
	if l.verbosity == params.Silent {
		return
	}
	switch e.Kind {
	case opt.EventStart:
		l.log.Info("Starting optimization",
			"method", e.Method,
			"dim", len(e.X),
			"value", e.Value,
			"grad_norm", e.GradNorm,
		)
	case opt.EventIteration:
		if l.verbosity != params.Detail {
			return
		}
		l.log.Info("Iteration",
			"method", e.Method,
			"iteration", e.Iteration,
			"value", e.Value,
			"grad_norm", e.GradNorm,
			"x", e.X,
		)
	case opt.EventUpdate:
		if l.verbosity != params.Detail {
			return
		}
		if e.SkippedUpdate {
			l.log.Debug("Curvature update skipped",
				"method", e.Method,
				"iteration", e.Iteration,
			)
		}
		l.log.Debug("Step taken",
			"method", e.Method,
			"iteration", e.Iteration,
			"step_norm", e.StepNorm,
		)
	case opt.EventTerminate:
		l.terminate(e)
	}
}

func (l *Logger) terminate(e opt.Event) {
	attrs := []any{
		"method", e.Method,
		"iterations", e.Iteration,
		"value", e.Value,
		"grad_norm", e.GradNorm,
		"x", e.X,
	}
	switch {
	case e.Err != nil:
		l.log.Error("Optimization failed", append(attrs, "status", e.Status, "error", e.Err)...)
	case e.Status == opt.IterationLimit:
		l.log.Warn("Beyond max iteration times, cannot converge", attrs...)
	default:
		l.log.Info("Optimization converged", append(attrs, "status", e.Status)...)
	}
}

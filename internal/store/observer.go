package store

import (
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/cwbudde/descent/internal/opt"
)

// TraceObserver writes one TraceEntry per evaluated iterate of a run.
//
// Observe cannot return errors, so the first write error is kept and
// reported by Close. Writing stops after an error.
type TraceObserver struct {
	w        *TraceWriter
	withX    bool
	stepNorm float64
	skipped  bool
	err      error
}

// NewTraceObserver returns an observer writing to w. If withX is set each
// entry carries the iterate.
func NewTraceObserver(w *TraceWriter, withX bool) *TraceObserver {
	return &TraceObserver{w: w, withX: withX}
}

// Observe implements opt.Observer.
func (o *TraceObserver) Observe(e opt.Event) {
	if o.err != nil {
		return
	}
	switch e.Kind {
	case opt.EventUpdate:
		o.stepNorm, o.skipped = e.StepNorm, e.SkippedUpdate
	case opt.EventIteration:
		entry := TraceEntry{
			Iteration:     e.Iteration,
			Value:         e.Value,
			GradNorm:      e.GradNorm,
			StepNorm:      o.stepNorm,
			SkippedUpdate: o.skipped,
			Timestamp:     time.Now(),
		}
		if o.withX {
			entry.X = e.X
		}
		o.err = o.w.Write(entry)
		o.stepNorm, o.skipped = 0, false
	}
}

// Err returns the first write error, if any.
func (o *TraceObserver) Err() error {
	return o.err
}

// Close closes the underlying writer and returns any write or close error.
func (o *TraceObserver) Close() error {
	var result *multierror.Error
	if o.err != nil {
		result = multierror.Append(result, o.err)
	}
	if err := o.w.Close(); err != nil {
		result = multierror.Append(result, err)
	}
	return result.ErrorOrNil()
}

package opt

import "github.com/cwbudde/descent/internal/params"

// EventKind identifies the point in the loop at which an Event is emitted.
type EventKind int

const (
	// EventStart is emitted once, before the first iteration.
	EventStart EventKind = iota
	// EventIteration is emitted after value and gradient were evaluated at
	// the current point, before any stopping test.
	EventIteration
	// EventUpdate is emitted after a step moved the objective and the
	// iteration counter was advanced.
	EventUpdate
	// EventTerminate is emitted once when the run stops.
	EventTerminate
)

func (k EventKind) String() string {
	switch k {
	case EventStart:
		return "start"
	case EventIteration:
		return "iteration"
	case EventUpdate:
		return "update"
	case EventTerminate:
		return "terminate"
	}
	return "unknown"
}

// Event is a snapshot of the run handed to an Observer. X is a copy and may
// be retained.
type Event struct {
	Kind      EventKind
	Method    params.Method
	Iteration int

	X        []float64
	Value    float64
	GradNorm float64

	// StepNorm is the norm of the last step (EventUpdate) or, for Newton,
	// of the proposed step.
	StepNorm float64

	// SkippedUpdate is set on EventUpdate when BFGS/DFP kept the previous
	// curvature approximation.
	SkippedUpdate bool

	// Status and Err are set on EventTerminate.
	Status Status
	Err    error
}

// Observer receives events from a running optimizer. Observers must not
// modify the objective.
type Observer interface {
	Observe(e Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(e Event)

// Observe calls f(e).
func (f ObserverFunc) Observe(e Event) {
	f(e)
}

// Observers fans an event out to each non-nil observer in order.
type Observers []Observer

// Observe forwards e to every observer.
func (os Observers) Observe(e Event) {
	for _, o := range os {
		if o != nil {
			o.Observe(e)
		}
	}
}

// Option configures an optimizer.
type Option func(*base)

// WithObserver attaches an observer to the optimizer.
func WithObserver(o Observer) Option {
	return func(b *base) {
		b.observer = o
	}
}

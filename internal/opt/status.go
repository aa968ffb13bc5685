package opt

import (
	"errors"
	"fmt"
	"strings"
)

// Status describes how an optimization run ended.
type Status int

const (
	NotTerminated Status = iota
	GradientThreshold
	StepConvergence
	IterationLimit
	Failure
)

var statuses = []struct {
	name      string
	converged bool
	err       error
}{
	{name: "NotTerminated"},
	{name: "GradientThreshold", converged: true},
	{name: "StepConvergence", converged: true},
	{name: "IterationLimit", err: errors.New("opt: beyond max iteration times, cannot converge")},
	{name: "Failure", err: errors.New("opt: optimization ended in failure")},
}

func (s Status) String() string {
	if s < 0 || int(s) >= len(statuses) {
		return fmt.Sprintf("Status(%d)", int(s))
	}
	return statuses[s].name
}

// Converged reports whether the status is a successful convergence.
func (s Status) Converged() bool {
	if s < 0 || int(s) >= len(statuses) {
		return false
	}
	return statuses[s].converged
}

// Err returns the error describing an unsuccessful end, or nil.
func (s Status) Err() error {
	if s < 0 || int(s) >= len(statuses) {
		return nil
	}
	return statuses[s].err
}

// MarshalText encodes the status by name.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a status name.
func (s *Status) UnmarshalText(text []byte) error {
	name := string(text)
	for i, st := range statuses {
		if strings.EqualFold(st.name, name) {
			*s = Status(i)
			return nil
		}
	}
	return fmt.Errorf("unknown status %q", name)
}

// Early reports whether the run stopped before satisfying its convergence
// test.
func (s Status) Early() bool {
	return s != NotTerminated && !s.Converged()
}

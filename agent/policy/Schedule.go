// Package policy implements ε-greedy action selection over a
// QFunction with a decaying exploration schedule
package policy

import (
	"fmt"
	"math"
)

// EvalEpsilon is the exploration probability used in evaluation mode
const EvalEpsilon float64 = 0.05

// ScheduleType determines how ε decays over training steps
type ScheduleType string

const (
	LinearSchedule      ScheduleType = "linear"
	ExponentialSchedule ScheduleType = "exponential"
)

// Schedule computes the exploration probability ε for a number of
// completed training selections. Schedules are pure functions.
type Schedule interface {
	Threshold(stepsDone int, training bool) float64
}

// Linear implements a linearly decaying ε schedule. ε equals Start at
// step 0 and End at step Decay. Past Decay, ε continues along the same
// line unless Clamp is set, in which case it is clipped between Start
// and End.
type Linear struct {
	Start float64
	End   float64
	Decay int
	Clamp bool
}

// NewLinear returns a new Linear schedule
func NewLinear(start, end float64, decay int, clamp bool) (Linear, error) {
	if decay <= 0 {
		return Linear{}, fmt.Errorf("newLinear: decay must be positive, "+
			"got %v", decay)
	}
	return Linear{Start: start, End: end, Decay: decay, Clamp: clamp}, nil
}

// Threshold implements the Schedule interface
func (l Linear) Threshold(stepsDone int, training bool) float64 {
	if !training {
		return EvalEpsilon
	}

	eps := float64(stepsDone)*(l.End-l.Start)/float64(l.Decay) + l.Start
	if l.Clamp {
		eps = math.Max(eps, math.Min(l.Start, l.End))
		eps = math.Min(eps, math.Max(l.Start, l.End))
	}
	return eps
}

// Exponential implements an exponentially decaying ε schedule which
// approaches End from Start with time constant Decay
type Exponential struct {
	Start float64
	End   float64
	Decay int
}

// NewExponential returns a new Exponential schedule
func NewExponential(start, end float64, decay int) (Exponential, error) {
	if decay <= 0 {
		return Exponential{}, fmt.Errorf("newExponential: decay must be "+
			"positive, got %v", decay)
	}
	return Exponential{Start: start, End: end, Decay: decay}, nil
}

// Threshold implements the Schedule interface
func (e Exponential) Threshold(stepsDone int, training bool) float64 {
	if !training {
		return EvalEpsilon
	}
	return e.End + (e.Start-e.End)*math.Exp(-float64(stepsDone)/
		float64(e.Decay))
}

// NewSchedule returns the Schedule of type t
func NewSchedule(t ScheduleType, start, end float64, decay int,
	clamp bool) (Schedule, error) {
	switch t {
	case LinearSchedule:
		return NewLinear(start, end, decay, clamp)

	case ExponentialSchedule:
		return NewExponential(start, end, decay)
	}
	return nil, fmt.Errorf("newSchedule: no such schedule type %q", t)
}

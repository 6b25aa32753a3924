package policy

import (
	"fmt"

	"github.com/samuelfneumann/pixeldqn/agent"
	ts "github.com/samuelfneumann/pixeldqn/timestep"
	"github.com/samuelfneumann/pixeldqn/utils/floatutils"
	"golang.org/x/exp/rand"
)

// EGreedy implements an ε-greedy policy over a QFunction.
//
// EGreedy owns the count of training-mode selections, which is the
// only input of its Schedule besides the mode. With probability 1-ε
// the action of maximum value is selected, otherwise an action is
// selected uniformly at random.
type EGreedy struct {
	q        agent.QFunction
	schedule Schedule
	greedy   bool

	stepsDone int
	rng       *rand.Rand
	state     []float64
}

// NewEGreedy returns a new EGreedy policy. If greedy is true,
// exploration is disabled and the action of maximum value is always
// selected.
func NewEGreedy(q agent.QFunction, schedule Schedule, greedy bool,
	rng *rand.Rand) (*EGreedy, error) {
	if q.NumActions() < 1 {
		return nil, fmt.Errorf("newEGreedy: QFunction must value at " +
			"least one action")
	}
	if schedule == nil && !greedy {
		return nil, fmt.Errorf("newEGreedy: nil schedule")
	}

	return &EGreedy{
		q:        q,
		schedule: schedule,
		greedy:   greedy,
		rng:      rng,
	}, nil
}

// Select selects an action in state. In training mode the step
// counter is incremented before ε is computed, even when exploration
// is disabled.
func (e *EGreedy) Select(state ts.State, training bool) (int, error) {
	if training {
		e.stepsDone++
	}
	if e.greedy {
		return e.Greedy(state)
	}

	eps := e.schedule.Threshold(e.stepsDone, training)

	if e.rng.Float64() > eps {
		return e.Greedy(state)
	}
	return e.Random(), nil
}

// Greedy returns the first action of maximum value in state
func (e *EGreedy) Greedy(state ts.State) (int, error) {
	e.state = state.Flatten(e.state)

	values, err := e.q.ActionValues(e.state, 1)
	if err != nil {
		return 0, fmt.Errorf("greedy: could not compute action values: %w",
			err)
	}
	return floatutils.Argmax(values), nil
}

// Random returns a uniformly random action. The step counter is not
// changed.
func (e *EGreedy) Random() int {
	return e.rng.Intn(e.q.NumActions())
}

// Epsilon returns the current exploration probability
func (e *EGreedy) Epsilon(training bool) float64 {
	if e.greedy {
		return 0
	}
	return e.schedule.Threshold(e.stepsDone, training)
}

// StepsDone returns the number of training-mode selections made
func (e *EGreedy) StepsDone() int {
	return e.stepsDone
}

// SetStepsDone sets the number of training-mode selections, for
// example when resuming from a checkpoint
func (e *EGreedy) SetStepsDone(n int) {
	e.stepsDone = n
}

// IsGreedy returns whether exploration is disabled
func (e *EGreedy) IsGreedy() bool {
	return e.greedy
}

// Package agent defines the interfaces between action-value function
// approximators and the policies and learners that use them
package agent

import (
	ts "github.com/samuelfneumann/pixeldqn/timestep"
)

// QFunction approximates the value of each discrete action in a
// state. States are stacked-frame tensors flattened in row-major order.
type QFunction interface {
	// NumActions returns the number of actions valued in each state
	NumActions() int

	// ActionValues returns the values of each action in each of the
	// n states, flattened row-major into a slice of n*NumActions()
	// values. No gradients are computed.
	ActionValues(states []float64, n int) ([]float64, error)
}

// Learner is a QFunction whose parameters can be trained by gradient
// descent
type Learner interface {
	QFunction

	// Fit performs a single gradient step moving the values of the
	// taken actions towards the targets and returns the loss before
	// the step
	Fit(states []float64, actions []int, targets []float64) (float64, error)
}

// Closer is a QFunction that must be closed after it is no longer
// needed
type Closer interface {
	QFunction
	Close() error
}

// Policy selects actions in stacked-frame states
type Policy interface {
	// Select returns the action to take in state. When training is
	// true, the policy may update its internal exploration schedule.
	Select(state ts.State, training bool) (int, error)

	// Random returns a uniformly random action
	Random() int
}

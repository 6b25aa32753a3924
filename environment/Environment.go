// Package environment outlines the interfaces and structs needed to
// implement concrete pixel environments
package environment

import (
	"github.com/samuelfneumann/pixeldqn/timestep"
)

// Environment implements a simulated arcade game with a discrete action
// space whose observations are raw pixels.
type Environment interface {
	// Reset starts a new episode and returns its first TimeStep
	Reset() (timestep.TimeStep, error)

	// Step takes the action and returns the resulting TimeStep and
	// whether the episode has ended
	Step(action int) (timestep.TimeStep, bool, error)

	ObservationSpec() Spec
	ActionSpec() Spec
}

// Closer is an Environment that holds resources which must be released
type Closer interface {
	Environment
	Close() error
}

// NumActions returns the number of discrete actions of an Environment.
// Actions are enumerated from 0.
func NumActions(e Environment) int {
	return int(e.ActionSpec().UpperBound.AtVec(0)) + 1
}

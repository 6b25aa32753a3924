// Package gym provides access to OpenAI Gym's Atari environments
// through the Go bindings for OpenAI Gym, found at
// https://github.com/samuelfneumann/GoGym.
//
// Only environments with a discrete action space and RGB pixel
// observations are supported. Observations are returned by GoGym as
// flattened vectors in (height, width, channel) order.
package gym

import (
	"fmt"

	"github.com/samuelfneumann/gogym"
	env "github.com/samuelfneumann/pixeldqn/environment"
	ts "github.com/samuelfneumann/pixeldqn/timestep"
	"gonum.org/v1/gonum/mat"
)

// Atari frames are 210 x 160 RGB images
const (
	AtariHeight   = 210
	AtariWidth    = 160
	AtariChannels = 3
)

// GymEnv implements access to an OpenAI Gym Atari environment using
// GoGym
type GymEnv struct {
	gogym.Environment

	height, width, channels int
	numActions              int
	currentStep             ts.TimeStep
	action                  *mat.VecDense
}

// New returns a new GymEnv with the given name, which must be a legal
// Atari name from the OpenAI Gym suite, e.g. "Pong-v0". The
// observations are height x width x channels images.
func New(name string, height, width, channels int,
	seed uint64) (*GymEnv, error) {
	goGymEnv, err := gogym.Make(name)
	if err != nil {
		return nil, fmt.Errorf("new: could not create environment: %w",
			err)
	}
	goGymEnv.Seed(int(seed))

	space := goGymEnv.ActionSpace()
	if _, ok := space.(*gogym.DiscreteSpace); !ok {
		goGymEnv.Close()
		return nil, fmt.Errorf("new: environment %v does not have a "+
			"discrete action space", name)
	}
	numActions := int(space.High()[0].AtVec(0)) + 1

	return &GymEnv{
		Environment: goGymEnv,
		height:      height,
		width:       width,
		channels:    channels,
		numActions:  numActions,
		action:      mat.NewVecDense(1, nil),
	}, nil
}

// NewAtari returns a new GymEnv for an Atari game with the default
// Atari frame size
func NewAtari(name string, seed uint64) (*GymEnv, error) {
	return New(name, AtariHeight, AtariWidth, AtariChannels, seed)
}

// Step takes a single environmental step
func (g *GymEnv) Step(a int) (ts.TimeStep, bool, error) {
	if a < 0 || a >= g.numActions {
		return ts.TimeStep{}, true, fmt.Errorf("step: action %v out of "+
			"range [0, %v)", a, g.numActions)
	}
	g.action.SetVec(0, float64(a))

	obs, reward, done, err := g.Environment.Step(g.action)
	if err != nil {
		return ts.TimeStep{}, true, fmt.Errorf("step: could not step "+
			"GoGym environment: %w", err)
	}

	pixels, err := g.pixels(obs)
	if err != nil {
		return ts.TimeStep{}, true, fmt.Errorf("step: %w", err)
	}

	t := ts.New(ts.Mid, reward, pixels, g.currentStep.Number+1)
	if done {
		t.StepType = ts.Last
	}
	g.currentStep = t

	return t, done, nil
}

// Reset resets the environment to some starting state
func (g *GymEnv) Reset() (ts.TimeStep, error) {
	obs, err := g.Environment.Reset()
	if err != nil {
		return ts.TimeStep{}, fmt.Errorf("reset: could not reset "+
			"environment: %w", err)
	}

	pixels, err := g.pixels(obs)
	if err != nil {
		return ts.TimeStep{}, fmt.Errorf("reset: %w", err)
	}

	t := ts.New(ts.First, 0, pixels, 0)
	g.currentStep = t

	return t, nil
}

// pixels copies a GoGym observation into a new slice, checking that it
// has the expected number of pixels
func (g *GymEnv) pixels(obs mat.Vector) ([]float64, error) {
	want := g.height * g.width * g.channels
	if obs.Len() != want {
		return nil, fmt.Errorf("observation has %v values, expected %v "+
			"(%vx%vx%v)", obs.Len(), want, g.height, g.width, g.channels)
	}

	pixels := make([]float64, want)
	for i := range pixels {
		pixels[i] = obs.AtVec(i)
	}
	return pixels, nil
}

// CurrentTimeStep returns the current timestep in the environment
func (g *GymEnv) CurrentTimeStep() ts.TimeStep {
	return g.currentStep
}

// ObservationSpec returns the observation spec of the environment
func (g *GymEnv) ObservationSpec() env.Spec {
	return env.NewPixelSpec(g.height, g.width, g.channels)
}

// ActionSpec returns the action specification of the environment
func (g *GymEnv) ActionSpec() env.Spec {
	return env.NewDiscreteActionSpec(g.numActions)
}

// Close performs resource cleanup after the environment is no longer
// needed
func (g *GymEnv) Close() error {
	g.Environment.Close()
	return nil
}

// Package solver configures the Gorgonia solvers that adapt network
// weights, so that they can be stored in configuration files and
// checkpointed alongside the weights they adapt.
package solver

import (
	"fmt"

	G "gorgonia.org/gorgonia"
)

// Type describes different types of solvers that are available
type Type string

// Available solver types
const (
	Adam    Type = "adam"
	RMSProp Type = "rmsprop"
	Vanilla Type = "vanilla"
)

// Config describes a Solver. Fields unused by Type are ignored.
type Config struct {
	Type     Type    `json:"type"`
	StepSize float64 `json:"step_size"`
	Epsilon  float64 `json:"epsilon,omitempty"`
	Rho      float64 `json:"rho,omitempty"`   // RMSProp decay
	Beta1    float64 `json:"beta1,omitempty"` // Adam moments
	Beta2    float64 `json:"beta2,omitempty"`
	Batch    int     `json:"batch"`
	Clip     float64 `json:"clip,omitempty"` // <= 0 if no clipping
}

// DefaultConfig returns the configuration of a Solver of type t with
// default hyperparameters and the given step size
func DefaultConfig(t Type, stepSize float64) Config {
	c := Config{Type: t, StepSize: stepSize, Batch: 1}
	switch t {
	case Adam:
		c.Epsilon, c.Beta1, c.Beta2 = 1e-8, 0.9, 0.999
	case RMSProp:
		c.Epsilon, c.Rho = 1e-8, 0.99
	}
	return c
}

// Validate checks the hyperparameters of the Config
func (c Config) Validate() error {
	switch c.Type {
	case Adam, RMSProp, Vanilla:
	default:
		return fmt.Errorf("validate: no such solver type %q", c.Type)
	}
	if c.StepSize <= 0 {
		return fmt.Errorf("validate: step size must be positive, got %v",
			c.StepSize)
	}
	if c.Batch < 1 {
		return fmt.Errorf("validate: batch must be positive, got %v",
			c.Batch)
	}
	if c.Type == RMSProp && (c.Rho <= 0 || c.Rho >= 1) {
		return fmt.Errorf("validate: rho must be in (0, 1), got %v", c.Rho)
	}
	if c.Type == Adam && (c.Beta1 < 0 || c.Beta1 >= 1 || c.Beta2 < 0 ||
		c.Beta2 >= 1) {
		return fmt.Errorf("validate: betas must be in [0, 1), got (%v, %v)",
			c.Beta1, c.Beta2)
	}
	return nil
}

// create returns the Gorgonia Solver described by c
func (c Config) create() G.Solver {
	opts := []G.SolverOpt{
		G.WithLearnRate(c.StepSize),
		G.WithBatchSize(float64(c.Batch)),
	}
	if c.Clip > 0 {
		opts = append(opts, G.WithClip(c.Clip))
	}

	switch c.Type {
	case Adam:
		opts = append(opts, G.WithEps(c.Epsilon), G.WithBeta1(c.Beta1),
			G.WithBeta2(c.Beta2))
		return G.NewAdamSolver(opts...)

	case RMSProp:
		opts = append(opts, G.WithEps(c.Epsilon), G.WithRho(c.Rho))
		return G.NewRMSPropSolver(opts...)
	}
	return G.NewVanillaSolver(opts...)
}

// Solver wraps a Gorgonia Solver and counts the updates it performs
type Solver struct {
	solver G.Solver
	config Config
	steps  int
}

// New returns a new Solver of the given type with default
// hyperparameters and the given step size
func New(t Type, stepSize float64) (*Solver, error) {
	s, err := NewFromConfig(DefaultConfig(t, stepSize))
	if err != nil {
		return nil, fmt.Errorf("new: %w", err)
	}
	return s, nil
}

// NewFromConfig returns a new Solver described by c
func NewFromConfig(c Config) (*Solver, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("newFromConfig: %w", err)
	}
	return &Solver{solver: c.create(), config: c}, nil
}

// Step performs one update of the model and counts the number of
// updates performed
func (s *Solver) Step(model []G.ValueGrad) error {
	if err := s.solver.Step(model); err != nil {
		return err
	}
	s.steps++
	return nil
}

// Steps returns the number of updates the Solver has performed
func (s *Solver) Steps() int {
	return s.steps
}

// Type returns the type of the Solver
func (s *Solver) Type() Type {
	return s.config.Type
}

// Config returns the configuration of the Solver
func (s *Solver) Config() Config {
	return s.config
}

// State is the serializable state of a Solver, stored in checkpoints.
//
// Gorgonia does not expose the per-weight caches or the iteration
// count of its solvers, so restoring a State recreates the Solver with
// its configuration only. RMSProp and Adam moment estimates start
// afresh, and Adam's bias correction restarts from its first
// iteration. Steps is a record of the updates made before the
// checkpoint and does not feed back into the restored solver.
type State struct {
	Config Config
	Steps  int
}

// State returns the serializable state of the Solver
func (s *Solver) State() State {
	return State{Config: s.config, Steps: s.steps}
}

// FromState recreates a Solver from a State. Steps() of the new Solver
// continues counting from the State, while the Gorgonia solver within
// starts with no history.
func FromState(state State) (*Solver, error) {
	s, err := NewFromConfig(state.Config)
	if err != nil {
		return nil, fmt.Errorf("fromState: %w", err)
	}
	s.steps = state.Steps
	return s, nil
}

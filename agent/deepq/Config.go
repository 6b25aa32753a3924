package deepq

import (
	"fmt"

	"github.com/samuelfneumann/pixeldqn/network"
	"github.com/samuelfneumann/pixeldqn/solver"
)

// Loss describes the loss minimized between the predicted action
// values and the TD targets
type Loss string

const (
	// Huber is the smooth L1 loss with threshold 1
	Huber Loss = "huber"

	// MSE is the mean squared error
	MSE Loss = "mse"
)

// Config implements a configuration of a DeepQ agent
type Config struct {
	Gamma     float64 `json:"gamma"`
	BatchSize int     `json:"batch_size"`
	Loss      Loss    `json:"loss"`

	Solver       solver.Type `json:"solver"`
	LearningRate float64     `json:"learning_rate"`

	// BootstrapAllTerminal performs an update even when every sampled
	// transition is terminal. By default, such batches are skipped.
	BootstrapAllTerminal bool `json:"bootstrap_all_terminal"`

	Network network.Config `json:"network"`
}

// DefaultConfig returns the default DeepQ configuration for the given
// network
func DefaultConfig(net network.Config) Config {
	return Config{
		Gamma:        0.99,
		BatchSize:    2,
		Loss:         MSE,
		Solver:       solver.RMSProp,
		LearningRate: 1e-4,
		Network:      net,
	}
}

// Validate checks a Config for errors
func (c Config) Validate() error {
	if c.Gamma < 0 || c.Gamma > 1 {
		return fmt.Errorf("validate: gamma must be in [0, 1], got %v",
			c.Gamma)
	}
	if c.BatchSize < 1 {
		return fmt.Errorf("validate: batch size must be positive, got %v",
			c.BatchSize)
	}
	if c.Loss != Huber && c.Loss != MSE {
		return fmt.Errorf("validate: no such loss %q", c.Loss)
	}
	if c.LearningRate <= 0 {
		return fmt.Errorf("validate: learning rate must be positive, got %v",
			c.LearningRate)
	}
	switch c.Solver {
	case solver.Adam, solver.RMSProp, solver.Vanilla:
	default:
		return fmt.Errorf("validate: no such solver %q", c.Solver)
	}
	return c.Network.Validate()
}

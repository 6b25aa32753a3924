// Package config implements the JSON configuration of a training run
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/samuelfneumann/pixeldqn/agent/deepq"
	"github.com/samuelfneumann/pixeldqn/agent/policy"
	"github.com/samuelfneumann/pixeldqn/network"
	"github.com/samuelfneumann/pixeldqn/solver"
)

// ErrInvalid is wrapped by every error returned from Validate
var ErrInvalid = errors.New("invalid configuration")

// Catch is the environment ID of the built-in catch game. Every other
// ID names an Atari environment.
const Catch = "catch"

// Config represents the configuration of a training run
type Config struct {
	Environment EnvironmentConfig `json:"environment"`
	Agent       AgentConfig       `json:"agent"`
	Exploration ExplorationConfig `json:"exploration"`
	Run         RunConfig         `json:"run"`
	Output      OutputConfig      `json:"output"`
}

// EnvironmentConfig contains the environment and preprocessing
// settings
type EnvironmentConfig struct {
	ID          string `json:"id"`
	Balls       int    `json:"balls"` // Balls dropped per catch episode
	FrameHeight int    `json:"frame_height"`
	FrameWidth  int    `json:"frame_width"`
	History     int    `json:"history"` // Frames stacked in each state
}

// AgentConfig contains the model and learning settings
type AgentConfig struct {
	Model                network.Type `json:"model"`
	Hidden               int          `json:"hidden"`
	ExpReplay            bool         `json:"exp_replay"`
	BatchSize            int          `json:"batch_size"`
	BufferCapacity       int          `json:"buffer_capacity"`
	Loss                 deepq.Loss   `json:"loss"`
	Optimizer            solver.Type  `json:"optimizer"`
	Gamma                float64      `json:"gamma"`
	LearningRate         float64      `json:"learning_rate"`
	BootstrapAllTerminal bool         `json:"bootstrap_all_terminal"`
}

// ExplorationConfig contains the ε-greedy settings
type ExplorationConfig struct {
	EGreedy  bool                `json:"egreedy"`
	Start    float64             `json:"start"`
	End      float64             `json:"end"`
	Decay    int                 `json:"decay"`
	Schedule policy.ScheduleType `json:"schedule"`
	Clamp    bool                `json:"clamp"`
}

// RunConfig contains the settings of the phases of a run
type RunConfig struct {
	Episodes        int    `json:"episodes"`
	EvalEpisodes    int    `json:"eval_episodes"`
	BurnIn          int    `json:"burn_in"`
	MaxEpisodeSteps int    `json:"max_episode_steps"`
	Seed            uint64 `json:"seed"`
	Resume          string `json:"resume,omitempty"`
}

// OutputConfig contains logging, checkpoint, video, and metrics
// settings
type OutputConfig struct {
	LogLevel           string `json:"log_level"`
	CheckpointInterval int    `json:"checkpoint_interval"`
	CheckpointDir      string `json:"checkpoint_dir"`
	CheckpointPrefix   string `json:"checkpoint_prefix"`
	VideoInterval      int    `json:"video_interval"`
	VideoDir           string `json:"video_dir"`
	MetricsDB          string `json:"metrics_db"`
	PlotDir            string `json:"plot_dir"`
	Progress           bool   `json:"progress"`
}

// Default returns the default configuration, which trains a
// convolutional network on Space Invaders
func Default() *Config {
	return &Config{
		Environment: EnvironmentConfig{
			ID:          "SpaceInvaders-v0",
			Balls:       10,
			FrameHeight: 84,
			FrameWidth:  84,
			History:     4,
		},
		Agent: AgentConfig{
			Model:          network.Conv,
			Hidden:         32,
			ExpReplay:      true,
			BatchSize:      2,
			BufferCapacity: 500,
			Loss:           deepq.MSE,
			Optimizer:      solver.RMSProp,
			Gamma:          0.99,
			LearningRate:   1e-4,
		},
		Exploration: ExplorationConfig{
			EGreedy:  true,
			Start:    0.95,
			End:      0.05,
			Decay:    100000,
			Schedule: policy.LinearSchedule,
		},
		Run: RunConfig{
			Episodes:     10,
			EvalEpisodes: 100,
			BurnIn:       200,
		},
		Output: OutputConfig{
			LogLevel:           "info",
			CheckpointInterval: 10,
			CheckpointDir:      "checkpoints",
			CheckpointPrefix:   "epoch",
			VideoInterval:      10,
			VideoDir:           "videos",
			MetricsDB:          "metrics.db",
			PlotDir:            ".",
			Progress:           true,
		},
	}
}

// Load reads and parses the configuration file. Fields missing from
// the file keep their default values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load: %w", err)
	}

	cfg := Default()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("load: %w", err)
	}
	return cfg, nil
}

// Save writes the configuration to a file
func (c *Config) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("save: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("save: %w", err)
	}
	return nil
}

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("validate: %w: %v", ErrInvalid,
		fmt.Sprintf(format, args...))
}

// Validate checks the configuration for errors
func (c *Config) Validate() error {
	e := c.Environment
	if e.ID == "" {
		return invalid("environment id must be set")
	}
	if e.ID == Catch && e.Balls < 1 {
		return invalid("catch requires at least one ball, got %v", e.Balls)
	}
	if e.FrameHeight < 1 || e.FrameWidth < 1 {
		return invalid("frame size must be positive, got %vx%v",
			e.FrameHeight, e.FrameWidth)
	}
	if e.History < 1 {
		return invalid("history must be positive, got %v", e.History)
	}

	a := c.Agent
	if a.BufferCapacity < 1 {
		return invalid("buffer capacity must be positive, got %v",
			a.BufferCapacity)
	}
	if !a.ExpReplay && a.BatchSize != 1 {
		return invalid("batch size must be 1 without experience replay, "+
			"got %v", a.BatchSize)
	}
	if a.ExpReplay && a.BatchSize > a.BufferCapacity {
		return invalid("batch size %v exceeds buffer capacity %v",
			a.BatchSize, a.BufferCapacity)
	}
	if err := c.DeepQ().Validate(); err != nil {
		return invalid("%v", err)
	}

	x := c.Exploration
	if x.EGreedy {
		if _, err := c.Schedule(); err != nil {
			return invalid("%v", err)
		}
	}

	r := c.Run
	if r.Episodes < 0 || r.EvalEpisodes < 0 || r.BurnIn < 0 ||
		r.MaxEpisodeSteps < 0 {
		return invalid("episode and step counts must not be negative")
	}

	o := c.Output
	if o.CheckpointInterval > 0 && o.CheckpointDir == "" {
		return invalid("checkpoints require a checkpoint directory")
	}
	if o.VideoInterval > 0 && o.VideoDir == "" {
		return invalid("videos require a video directory")
	}
	return nil
}

// ReplayCapacity returns the capacity of the replay buffer, which is
// 1 when experience replay is disabled
func (c *Config) ReplayCapacity() int {
	if !c.Agent.ExpReplay {
		return 1
	}
	return c.Agent.BufferCapacity
}

// Network returns the configuration of the action-value network
func (c *Config) Network() network.Config {
	return network.Config{
		Type:   c.Agent.Model,
		Hidden: c.Agent.Hidden,
		Frames: c.Environment.History,
		Height: c.Environment.FrameHeight,
		Width:  c.Environment.FrameWidth,
	}
}

// DeepQ returns the configuration of the DeepQ agent
func (c *Config) DeepQ() deepq.Config {
	return deepq.Config{
		Gamma:                c.Agent.Gamma,
		BatchSize:            c.Agent.BatchSize,
		Loss:                 c.Agent.Loss,
		Solver:               c.Agent.Optimizer,
		LearningRate:         c.Agent.LearningRate,
		BootstrapAllTerminal: c.Agent.BootstrapAllTerminal,
		Network:              c.Network(),
	}
}

// Schedule returns the ε schedule of the configuration
func (c *Config) Schedule() (policy.Schedule, error) {
	x := c.Exploration
	return policy.NewSchedule(x.Schedule, x.Start, x.End, x.Decay, x.Clamp)
}

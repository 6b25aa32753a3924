package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/samuelfneumann/pixeldqn/network"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	require.Equal(t, "SpaceInvaders-v0", cfg.Environment.ID)
	require.Equal(t, network.Conv, cfg.Agent.Model)
	require.Equal(t, 500, cfg.ReplayCapacity())

	net := cfg.Network()
	require.Equal(t, 4, net.Frames)
	require.Equal(t, 84, net.Height)
	require.NoError(t, net.Validate())
}

func TestValidate(t *testing.T) {
	cases := map[string]func(*Config){
		"no replay batch":  func(c *Config) { c.Agent.ExpReplay = false },
		"capacity":         func(c *Config) { c.Agent.BufferCapacity = 0 },
		"batch > capacity": func(c *Config) { c.Agent.BatchSize = 600 },
		"model":            func(c *Config) { c.Agent.Model = "rnn" },
		"loss":             func(c *Config) { c.Agent.Loss = "l1" },
		"optimizer":        func(c *Config) { c.Agent.Optimizer = "sgd" },
		"schedule":         func(c *Config) { c.Exploration.Schedule = "step" },
		"decay":            func(c *Config) { c.Exploration.Decay = 0 },
		"history":          func(c *Config) { c.Environment.History = 0 },
		"balls": func(c *Config) {
			c.Environment.ID = Catch
			c.Environment.Balls = 0
		},
		"episodes":   func(c *Config) { c.Run.Episodes = -1 },
		"checkpoint": func(c *Config) { c.Output.CheckpointDir = "" },
	}

	for name, modify := range cases {
		cfg := Default()
		modify(cfg)
		err := cfg.Validate()
		require.ErrorIs(t, err, ErrInvalid, name)
	}
}

func TestNoExpReplay(t *testing.T) {
	cfg := Default()
	cfg.Agent.ExpReplay = false
	cfg.Agent.BatchSize = 1
	require.NoError(t, cfg.Validate())
	require.Equal(t, 1, cfg.ReplayCapacity())

	// Exploration settings are ignored when ε-greedy is disabled
	cfg.Exploration.EGreedy = false
	cfg.Exploration.Decay = 0
	require.NoError(t, cfg.Validate())
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")

	cfg := Default()
	cfg.Environment.ID = Catch
	cfg.Agent.Model = network.Dueling
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, cfg, loaded)

	// Missing fields keep their defaults
	require.NoError(t, os.WriteFile(path, []byte(`{"run": {"episodes": 3}}`),
		0644))
	loaded, err = Load(path)
	require.NoError(t, err)
	require.Equal(t, 3, loaded.Run.Episodes)
	require.Equal(t, 100, loaded.Run.EvalEpisodes)

	_, err = Load(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
}

package experiment

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/samuelfneumann/pixeldqn/config"
	"github.com/samuelfneumann/pixeldqn/environment/box2d/catch"
	"github.com/samuelfneumann/pixeldqn/experiment/checkpointer"
	"github.com/samuelfneumann/pixeldqn/experiment/tracker"
	"github.com/samuelfneumann/pixeldqn/network"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func catchConfig(dir string) *config.Config {
	cfg := config.Default()
	cfg.Environment.ID = config.Catch
	cfg.Environment.Balls = 1
	cfg.Environment.FrameHeight = 12
	cfg.Environment.FrameWidth = 12
	cfg.Environment.History = 2
	cfg.Agent.Model = network.Linear
	cfg.Agent.BufferCapacity = 50
	cfg.Agent.LearningRate = 1e-3
	cfg.Run.Episodes = 2
	cfg.Run.EvalEpisodes = 1
	cfg.Run.BurnIn = 20
	cfg.Run.Seed = 7
	cfg.Output.CheckpointInterval = 1
	cfg.Output.CheckpointDir = filepath.Join(dir, "checkpoints")
	cfg.Output.VideoInterval = 0
	cfg.Output.MetricsDB = filepath.Join(dir, "metrics.db")
	cfg.Output.PlotDir = filepath.Join(dir, "plots")
	cfg.Output.Progress = false
	return cfg
}

func TestBuildAndRunCatch(t *testing.T) {
	dir := t.TempDir()
	cfg := catchConfig(dir)

	env, err := catch.New(cfg.Environment.Balls, cfg.Run.Seed)
	require.NoError(t, err)

	driver, err := Build(cfg, env, zap.NewNop(), nil, nil)
	require.NoError(t, err)

	mean, err := driver.Run(cfg)
	require.NoError(t, err)
	require.Contains(t, []float64{-1, 1}, mean)
	require.Equal(t, 2, driver.Trained())
	require.Greater(t, driver.runner.Updates(), 0)
	require.NoError(t, driver.Close())

	for _, name := range []string{"epoch1.gob", "epoch2.gob"} {
		_, err := os.Stat(filepath.Join(cfg.Output.CheckpointDir, name))
		require.NoError(t, err)
	}
	for _, name := range []string{tracker.DurationsPlot, tracker.RewardsPlot,
		ReturnsFile, LengthsFile} {
		_, err := os.Stat(filepath.Join(cfg.Output.PlotDir, name))
		require.NoError(t, err)
	}

	returns, err := tracker.LoadData(filepath.Join(cfg.Output.PlotDir,
		ReturnsFile))
	require.NoError(t, err)
	require.Len(t, returns, 2)

	// Resuming from the checkpoint directory continues the epoch count
	record, err := checkpointer.Load(filepath.Join(cfg.Output.CheckpointDir,
		"epoch2.gob"))
	require.NoError(t, err)

	// A failed resume releases the metrics database and leaves the saved
	// data alone
	cfg.Run.Resume = filepath.Join(dir, "missing")
	_, err = Build(cfg, env, zap.NewNop(), nil, nil)
	require.Error(t, err)

	store, err := tracker.NewStore(cfg.Output.MetricsDB)
	require.NoError(t, err)
	require.NoError(t, store.Close())
	kept, err := tracker.LoadData(filepath.Join(cfg.Output.PlotDir,
		ReturnsFile))
	require.NoError(t, err)
	require.Equal(t, returns, kept)

	cfg.Run.Resume = cfg.Output.CheckpointDir
	resumed, err := Build(cfg, env, zap.NewNop(), nil, nil)
	require.NoError(t, err)
	require.Equal(t, 2, resumed.Trained())

	again, err := resumed.Record(2)
	require.NoError(t, err)
	require.Equal(t, record.Params, again.Params)
	require.Equal(t, record.StepsDone, again.StepsDone)

	// Training data of the earlier run is extended, not overwritten
	require.NoError(t, resumed.Train(1))
	require.NoError(t, resumed.Close())

	extended, err := tracker.LoadData(filepath.Join(cfg.Output.PlotDir,
		ReturnsFile))
	require.NoError(t, err)
	require.Len(t, extended, 3)
	require.Equal(t, returns, extended[:2])
}

func TestBuildInvalidConfig(t *testing.T) {
	cfg := catchConfig(t.TempDir())
	cfg.Agent.BufferCapacity = 0

	env, err := catch.New(1, 1)
	require.NoError(t, err)
	_, err = Build(cfg, env, nil, nil, nil)
	require.ErrorIs(t, err, config.ErrInvalid)
}

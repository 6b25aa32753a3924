package experiment

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/samuelfneumann/pixeldqn/agent/deepq"
	"github.com/samuelfneumann/pixeldqn/agent/policy"
	"github.com/samuelfneumann/pixeldqn/config"
	"github.com/samuelfneumann/pixeldqn/environment"
	"github.com/samuelfneumann/pixeldqn/experiment/checkpointer"
	"github.com/samuelfneumann/pixeldqn/experiment/tracker"
	"github.com/samuelfneumann/pixeldqn/expreplay"
	"github.com/samuelfneumann/pixeldqn/preprocess"
	"go.uber.org/zap"
	"golang.org/x/exp/rand"
)

// Saved training data
const (
	ReturnsFile = "returns.bin"
	LengthsFile = "lengths.bin"
)

// Build assembles a Driver which trains a DeepQ agent on env as
// described by cfg. If progress is not nil, a progress bar is written
// to it during training when enabled by cfg. If newRecording is not
// nil, it is used to record evaluation episodes.
func Build(cfg *config.Config, env environment.Environment,
	logger *zap.Logger, progress io.Writer,
	newRecording func(episode int) (Recording, error)) (*Driver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("build: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("run", uuid.NewString()))

	h, w, c, err := env.ObservationSpec().PixelShape()
	if err != nil {
		return nil, fmt.Errorf("build: %w", err)
	}
	pre, err := preprocess.NewGrayscaleResize(h, w, c,
		cfg.Environment.FrameHeight, cfg.Environment.FrameWidth)
	if err != nil {
		return nil, fmt.Errorf("build: %w", err)
	}
	features := cfg.Environment.History * pre.FrameSize()
	numActions := environment.NumActions(env)

	// One source drives both exploration and replay sampling
	src := rand.NewSource(cfg.Run.Seed)
	rng := rand.New(src)

	replay, err := expreplay.New(cfg.ReplayCapacity(), src)
	if err != nil {
		return nil, fmt.Errorf("build: %w", err)
	}

	agent, err := deepq.New(cfg.DeepQ(), features, numActions, replay, logger)
	if err != nil {
		return nil, fmt.Errorf("build: %w", err)
	}

	var schedule policy.Schedule
	if cfg.Exploration.EGreedy {
		if schedule, err = cfg.Schedule(); err != nil {
			agent.Close()
			return nil, fmt.Errorf("build: %w", err)
		}
	}
	selector, err := policy.NewEGreedy(agent.QFunction(), schedule,
		!cfg.Exploration.EGreedy, rng)
	if err != nil {
		agent.Close()
		return nil, fmt.Errorf("build: %w", err)
	}

	trackers, err := newTrackers(cfg)
	if err != nil {
		agent.Close()
		return nil, fmt.Errorf("build: %w", err)
	}
	fail := func(err error) (*Driver, error) {
		agent.Close()
		release(trackers)
		return nil, fmt.Errorf("build: %w", err)
	}

	runner, err := NewRunner(env, pre, cfg.Environment.History, selector,
		agent, replay, logger, trackers...)
	if err != nil {
		return fail(err)
	}
	runner.MaxEpisodeSteps = cfg.Run.MaxEpisodeSteps

	o := cfg.Output
	if o.CheckpointInterval > 0 {
		if err := os.MkdirAll(o.CheckpointDir, 0755); err != nil {
			return fail(err)
		}
	}
	dc := DriverConfig{
		CheckpointInterval: o.CheckpointInterval,
		CheckpointDir:      o.CheckpointDir,
		CheckpointPrefix:   o.CheckpointPrefix,
		VideoInterval:      o.VideoInterval,
		NewRecording:       newRecording,
	}
	if o.Progress {
		dc.Progress = progress
	}

	driver, err := NewDriver(runner, agent, dc, logger)
	if err != nil {
		return fail(err)
	}

	// Trackers are released without saving, so that a failed resume
	// leaves the data of the earlier run in place
	if cfg.Run.Resume != "" {
		if err := resume(driver, cfg); err != nil {
			return fail(err)
		}
	}
	return driver, nil
}

// newTrackers returns the Trackers enabled by cfg
func newTrackers(cfg *config.Config) ([]tracker.Tracker, error) {
	var trackers []tracker.Tracker

	if cfg.Output.MetricsDB != "" {
		store, err := tracker.NewStore(cfg.Output.MetricsDB)
		if err != nil {
			return nil, fmt.Errorf("newTrackers: %w", err)
		}
		trackers = append(trackers, store)
	}

	if dir := cfg.Output.PlotDir; dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			release(trackers)
			return nil, fmt.Errorf("newTrackers: %w", err)
		}
		trackers = append(trackers,
			tracker.NewProgress(dir),
			tracker.Register(
				tracker.NewReturn(filepath.Join(dir, ReturnsFile)), true),
			tracker.Register(
				tracker.NewEpisodeLength(filepath.Join(dir, LengthsFile)), true),
		)
	}
	return trackers, nil
}

// release closes the trackers which hold open resources without saving
// any of them
func release(trackers []tracker.Tracker) {
	for _, t := range trackers {
		if c, ok := t.(io.Closer); ok {
			c.Close()
		}
	}
}

// resume restores driver from the checkpoint named by cfg, which is
// either a checkpoint file or a directory of checkpoints, in which case
// the latest is used
func resume(driver *Driver, cfg *config.Config) error {
	path := cfg.Run.Resume
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("resume: %w", err)
	}
	if info.IsDir() {
		if path, err = checkpointer.Latest(path,
			cfg.Output.CheckpointPrefix); err != nil {
			return fmt.Errorf("resume: %w", err)
		}
	}

	r, err := checkpointer.Load(path)
	if err != nil {
		return fmt.Errorf("resume: %w", err)
	}
	if err := driver.Resume(r); err != nil {
		return fmt.Errorf("resume: %w", err)
	}

	// Saved training data beyond the checkpoint belongs to episodes
	// which will be run again
	for _, t := range driver.runner.Trackers() {
		if rs, ok := t.(tracker.Restorer); ok {
			if err := rs.Restore(r.Epoch); err != nil {
				return fmt.Errorf("resume: %w", err)
			}
		}
	}
	return nil
}

// Run runs the phases of a training run described by cfg: burn-in,
// training, and evaluation. The mean evaluation reward is returned.
func (d *Driver) Run(cfg *config.Config) (float64, error) {
	if _, err := d.BurnIn(cfg.Run.BurnIn); err != nil {
		return 0, fmt.Errorf("run: %w", err)
	}
	if err := d.Train(cfg.Run.Episodes); err != nil {
		return 0, fmt.Errorf("run: %w", err)
	}
	if cfg.Run.EvalEpisodes == 0 {
		return 0, nil
	}

	mean, err := d.Evaluate(cfg.Run.EvalEpisodes)
	if err != nil {
		return 0, fmt.Errorf("run: %w", err)
	}
	return mean, nil
}

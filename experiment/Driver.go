package experiment

import (
	"fmt"
	"io"

	"github.com/samuelfneumann/pixeldqn/experiment/checkpointer"
	"github.com/samuelfneumann/pixeldqn/experiment/tracker"
	"github.com/samuelfneumann/pixeldqn/network"
	"github.com/samuelfneumann/pixeldqn/solver"
	"github.com/samuelfneumann/pixeldqn/utils/progressbar"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"
)

// Learner is an Optimizer whose state can be checkpointed
type Learner interface {
	Optimizer
	Snapshot() (network.Snapshot, solver.State, error)
	Restore(network.Snapshot, solver.State) error
	Close() error
}

// Recording is a FrameSink which must be closed after an episode
type Recording interface {
	FrameSink
	Close() error
}

// stepCounter is a policy which counts its training-mode selections
type stepCounter interface {
	StepsDone() int
	SetStepsDone(int)
}

// DriverConfig configures the checkpoints, videos, and progress
// display of a Driver
type DriverConfig struct {
	// CheckpointInterval is the number of training episodes between
	// checkpoints, which are disabled if < 1
	CheckpointInterval int
	CheckpointDir      string
	CheckpointPrefix   string

	// VideoInterval is the number of evaluation episodes between
	// recorded episodes, which are disabled if < 1 or if NewRecording
	// is nil
	VideoInterval int
	NewRecording  func(episode int) (Recording, error)

	// Progress is written a progress bar during training if not nil
	Progress io.Writer
}

// Driver runs the phases of a training run: a burn-in phase of random
// actions, training episodes, and evaluation episodes
type Driver struct {
	runner       *Runner
	learner      Learner
	config       DriverConfig
	checkpointer checkpointer.Checkpointer
	logger       *zap.Logger

	trained        int
	lastReward     float64
	averageRewards []float64
}

// NewDriver returns a new Driver which runs episodes with runner and
// checkpoints learner
func NewDriver(runner *Runner, learner Learner, c DriverConfig,
	logger *zap.Logger) (*Driver, error) {
	if runner == nil {
		return nil, fmt.Errorf("newDriver: nil runner")
	}
	if learner == nil && c.CheckpointInterval > 0 {
		return nil, fmt.Errorf("newDriver: checkpoints require a learner")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	d := &Driver{
		runner:  runner,
		learner: learner,
		config:  c,
		logger:  logger,
	}
	if c.CheckpointInterval > 0 {
		d.checkpointer = checkpointer.NewNEpisode(c.CheckpointInterval, d,
			checkpointer.FilenameEnumerator(c.CheckpointDir,
				c.CheckpointPrefix))
	}
	return d, nil
}

// BurnIn fills the replay buffer with n steps of random actions
func (d *Driver) BurnIn(n int) (BurnInStats, error) {
	stats, err := d.runner.BurnIn(n)
	if err != nil {
		return stats, fmt.Errorf("burnIn: %w", err)
	}
	d.logger.Info("burn-in complete",
		zap.Int("steps", stats.Steps),
		zap.Int("terminals", stats.Terminals),
		zap.Int("buffer", d.runner.replay.Len()))
	return stats, nil
}

// Train runs n training episodes, checkpointing after every
// CheckpointInterval episodes
func (d *Driver) Train(n int) error {
	var bar *progressbar.ManualProgressBar
	if d.config.Progress != nil {
		bar = progressbar.NewManualProgressBar(d.config.Progress, "Training",
			40, n)
		bar.Display("")
	}

	for i := 0; i < n; i++ {
		reward, err := d.runner.Run(d.trained, true, nil)
		if err != nil {
			return fmt.Errorf("train: %w", err)
		}
		d.trained++
		d.lastReward = reward

		if d.checkpointer != nil {
			if err := d.checkpointer.Checkpoint(d.trained); err != nil {
				return fmt.Errorf("train: %w", err)
			}
		}

		if bar != nil {
			bar.Increment()
			bar.Display(fmt.Sprintf("reward: %.2f", reward))
		}
	}

	if bar != nil {
		bar.Close()
	}
	return nil
}

// Evaluate runs n evaluation episodes and returns their mean reward.
// Every VideoInterval episodes are recorded.
func (d *Driver) Evaluate(n int) (float64, error) {
	if n < 1 {
		return 0, fmt.Errorf("evaluate: number of episodes must be "+
			"positive, got %v", n)
	}

	rewards := make([]float64, n)
	for i := 0; i < n; i++ {
		var recording Recording
		if d.config.VideoInterval > 0 && d.config.NewRecording != nil &&
			i%d.config.VideoInterval == 0 {
			var err error
			if recording, err = d.config.NewRecording(i); err != nil {
				return 0, fmt.Errorf("evaluate: could not start "+
					"recording: %w", err)
			}
		}

		var sink FrameSink
		if recording != nil {
			sink = recording
		}
		reward, err := d.runner.Run(i, false, sink)
		if recording != nil {
			err = multierr.Append(err, recording.Close())
		}
		if err != nil {
			return 0, fmt.Errorf("evaluate: %w", err)
		}
		rewards[i] = reward
	}

	mean := floats.Sum(rewards) / float64(n)
	d.averageRewards = append(d.averageRewards, mean)
	for _, t := range d.runner.Trackers() {
		if s, ok := t.(tracker.Summarizer); ok {
			if err := s.Summarize(mean); err != nil {
				return 0, fmt.Errorf("evaluate: %w", err)
			}
		}
	}

	d.logger.Info(fmt.Sprintf("Average reward: %v", mean),
		zap.Int("episodes", n),
		zap.Float64("average_reward", mean))
	return mean, nil
}

// AverageRewards returns the mean reward of each call to Evaluate
func (d *Driver) AverageRewards() []float64 {
	return append([]float64(nil), d.averageRewards...)
}

// Trained returns the number of training episodes completed
func (d *Driver) Trained() int {
	return d.trained
}

// Record implements the checkpointer.Recorder interface
func (d *Driver) Record(epoch int) (checkpointer.Record, error) {
	params, optimizer, err := d.learner.Snapshot()
	if err != nil {
		return checkpointer.Record{}, fmt.Errorf("record: %w", err)
	}

	r := checkpointer.Record{
		Epoch:      epoch,
		Params:     params,
		Optimizer:  optimizer,
		LastReward: d.lastReward,
	}
	if c, ok := d.runner.policy.(stepCounter); ok {
		r.StepsDone = c.StepsDone()
	}
	return r, nil
}

// Resume restores a training run from a checkpoint Record
func (d *Driver) Resume(r checkpointer.Record) error {
	if d.learner == nil {
		return fmt.Errorf("resume: no learner to restore")
	}
	if err := d.learner.Restore(r.Params, r.Optimizer); err != nil {
		return fmt.Errorf("resume: %w", err)
	}
	if c, ok := d.runner.policy.(stepCounter); ok {
		c.SetStepsDone(r.StepsDone)
	}
	d.trained = r.Epoch
	d.lastReward = r.LastReward

	d.logger.Info("resumed from checkpoint",
		zap.Int("epoch", r.Epoch),
		zap.Int("steps_done", r.StepsDone),
		zap.Float64("last_reward", r.LastReward))
	return nil
}

// Close saves the data of every Tracker and releases the learner
func (d *Driver) Close() error {
	var err error
	for _, t := range d.runner.Trackers() {
		err = multierr.Append(err, t.Save())
	}
	if d.learner != nil {
		err = multierr.Append(err, d.learner.Close())
	}
	if err != nil {
		return fmt.Errorf("close: %w", err)
	}
	return nil
}

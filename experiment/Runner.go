package experiment

import (
	"fmt"

	"github.com/samuelfneumann/pixeldqn/agent"
	"github.com/samuelfneumann/pixeldqn/agent/deepq"
	"github.com/samuelfneumann/pixeldqn/environment"
	"github.com/samuelfneumann/pixeldqn/experiment/tracker"
	"github.com/samuelfneumann/pixeldqn/expreplay"
	"github.com/samuelfneumann/pixeldqn/framestack"
	"github.com/samuelfneumann/pixeldqn/preprocess"
	ts "github.com/samuelfneumann/pixeldqn/timestep"
	"go.uber.org/zap"
)

// Phase is the phase of an episode being run by a Runner
type Phase int

const (
	// Reset is the phase before the environment has been reset
	Reset Phase = iota

	// Running is the phase while actions are being taken
	Running

	// Terminal is the phase after the episode has ended
	Terminal
)

func (p Phase) String() string {
	switch p {
	case Reset:
		return "reset"
	case Running:
		return "running"
	case Terminal:
		return "terminal"
	}
	return fmt.Sprintf("Phase(%d)", int(p))
}

// Optimizer performs at most one gradient step per call, returning
// whether a step was taken
type Optimizer interface {
	Optimize() (deepq.Result, bool, error)
}

// FrameSink receives the raw observations of an episode
type FrameSink interface {
	WriteFrame(obs []float64) error
}

// Runner runs single episodes of an agent in an environment. Every
// transition is stored in the replay buffer, and in training episodes
// the optimizer is run once after each environment step.
type Runner struct {
	env       environment.Environment
	pre       preprocess.Preprocessor
	stack     *framestack.FrameStack
	policy    agent.Policy
	optimizer Optimizer
	replay    expreplay.ExperienceReplayer
	trackers  []tracker.Tracker
	logger    *zap.Logger

	// MaxEpisodeSteps truncates episodes after this many steps if
	// positive. The last transition of a truncated episode is stored
	// as non-terminal.
	MaxEpisodeSteps int

	phase      Phase
	totalSteps int
	updates    int
}

// NewRunner returns a new Runner which stacks k preprocessed frames to
// form each state
func NewRunner(env environment.Environment, pre preprocess.Preprocessor,
	k int, policy agent.Policy, optimizer Optimizer,
	replay expreplay.ExperienceReplayer, logger *zap.Logger,
	trackers ...tracker.Tracker) (*Runner, error) {
	if env == nil || pre == nil || policy == nil || replay == nil {
		return nil, fmt.Errorf("newRunner: environment, preprocessor, " +
			"policy, and replay buffer are required")
	}
	stack, err := framestack.New(k, pre.FrameSize())
	if err != nil {
		return nil, fmt.Errorf("newRunner: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Runner{
		env:       env,
		pre:       pre,
		stack:     stack,
		policy:    policy,
		optimizer: optimizer,
		replay:    replay,
		trackers:  trackers,
		logger:    logger,
		phase:     Reset,
	}, nil
}

// Register adds a Tracker to the (possibly already running) Runner
func (r *Runner) Register(t tracker.Tracker) {
	r.trackers = append(r.trackers, t)
}

// Trackers returns the registered Trackers
func (r *Runner) Trackers() []tracker.Tracker {
	return r.trackers
}

// Phase returns the phase of the current or last episode
func (r *Runner) Phase() Phase {
	return r.phase
}

// TotalSteps returns the number of environment steps taken in all
// episodes, including burn-in
func (r *Runner) TotalSteps() int {
	return r.totalSteps
}

// Updates returns the number of gradient steps taken
func (r *Runner) Updates() int {
	return r.updates
}

// reset resets the environment and the frame stack
func (r *Runner) reset(sink FrameSink) (ts.State, error) {
	r.phase = Reset
	step, err := r.env.Reset()
	if err != nil {
		return nil, fmt.Errorf("reset: %w", err)
	}
	if err := writeFrame(sink, step.Observation); err != nil {
		return nil, fmt.Errorf("reset: %w", err)
	}

	frame, err := r.pre.Transform(step.Observation)
	if err != nil {
		return nil, fmt.Errorf("reset: %w", err)
	}
	return r.stack.Reset(frame)
}

// step takes action in the environment and stores the resulting
// transition
func (r *Runner) step(state ts.State, action int,
	sink FrameSink) (ts.TimeStep, ts.State, bool, error) {
	step, done, err := r.env.Step(action)
	if err != nil {
		return ts.TimeStep{}, nil, false, fmt.Errorf("step: %w", err)
	}
	r.totalSteps++
	if err := writeFrame(sink, step.Observation); err != nil {
		return ts.TimeStep{}, nil, false, fmt.Errorf("step: %w", err)
	}

	frame, err := r.pre.Transform(step.Observation)
	if err != nil {
		return ts.TimeStep{}, nil, false, fmt.Errorf("step: %w", err)
	}
	nextState, err := r.stack.Push(frame)
	if err != nil {
		return ts.TimeStep{}, nil, false, fmt.Errorf("step: %w", err)
	}

	next := ts.Continue(nextState)
	if done {
		next = ts.Terminal()
	}
	r.replay.Store(ts.NewTransition(state, action, next, step.Reward))

	return step, nextState, done, nil
}

func writeFrame(sink FrameSink, obs []float64) error {
	if sink == nil {
		return nil
	}
	return sink.WriteFrame(obs)
}

// Run runs a single episode and returns its total reward. In training
// episodes, the optimizer is run after every step. Each Tracker is sent
// the finished episode. If sink is not nil, every raw observation of
// the episode is written to it.
func (r *Runner) Run(episode int, training bool, sink FrameSink) (float64,
	error) {
	state, err := r.reset(sink)
	if err != nil {
		return 0, fmt.Errorf("run: %w", err)
	}
	r.phase = Running

	steps := 0
	total := 0.0
	for r.phase == Running {
		action, err := r.policy.Select(state, training)
		if err != nil {
			return 0, fmt.Errorf("run: could not select action: %w", err)
		}

		step, nextState, done, err := r.step(state, action, sink)
		if err != nil {
			return 0, fmt.Errorf("run: %w", err)
		}
		steps++
		total += step.Reward
		state = nextState

		if training && r.optimizer != nil {
			result, ok, err := r.optimizer.Optimize()
			if err != nil {
				return 0, fmt.Errorf("run: %w", err)
			}
			if ok {
				r.updates++
				r.logger.Debug("optimized",
					zap.Int("update", r.updates),
					zap.Float64("loss", result.Loss),
					zap.Float64("reward_mean", result.RewardMean),
					zap.Int("non_terminal", result.NonTerminal))
			}
		}

		if done || (r.MaxEpisodeSteps > 0 && steps >= r.MaxEpisodeSteps) {
			r.phase = Terminal
		}
	}

	r.logger.Info(fmt.Sprintf("Episode %v completed after %v steps | "+
		"Total steps = %v", episode, steps, r.totalSteps),
		zap.Int("episode", episode),
		zap.Int("steps", steps),
		zap.Int("total_steps", r.totalSteps),
		zap.Float64("reward", total),
		zap.Bool("training", training))

	e := tracker.Episode{
		Number:     episode,
		Training:   training,
		Steps:      steps,
		TotalSteps: r.totalSteps,
		Reward:     total,
	}
	for _, t := range r.trackers {
		if err := t.Track(e); err != nil {
			return 0, fmt.Errorf("run: could not track episode: %w", err)
		}
	}
	return total, nil
}

// BurnIn takes exactly n environment steps with uniform random
// actions, storing every transition and resetting the environment
// when an episode ends. The action selector's step counter is not
// changed and no gradient steps are taken.
func (r *Runner) BurnIn(n int) (BurnInStats, error) {
	var stats BurnInStats
	var state ts.State
	var err error

	needReset := true
	for stats.Steps < n {
		if needReset {
			if state, err = r.reset(nil); err != nil {
				return stats, fmt.Errorf("burnIn: %w", err)
			}
			r.phase = Running
			needReset = false
		}

		action := r.policy.Random()
		_, nextState, done, err := r.step(state, action, nil)
		if err != nil {
			return stats, fmt.Errorf("burnIn: %w", err)
		}
		stats.Steps++
		state = nextState

		if done {
			stats.Terminals++
			r.phase = Terminal
			needReset = true
		}
	}
	return stats, nil
}

// BurnInStats describes a burn-in phase
type BurnInStats struct {
	Steps     int
	Terminals int
}

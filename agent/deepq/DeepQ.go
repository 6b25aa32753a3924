// Package deepq implements deep Q-learning from pixels with an
// experience replay buffer and no target network.
package deepq

import (
	"fmt"

	"github.com/samuelfneumann/pixeldqn/agent"
	"github.com/samuelfneumann/pixeldqn/expreplay"
	"github.com/samuelfneumann/pixeldqn/network"
	"github.com/samuelfneumann/pixeldqn/solver"
	ts "github.com/samuelfneumann/pixeldqn/timestep"
	"github.com/samuelfneumann/pixeldqn/utils/floatutils"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"
)

// Result describes a single gradient step
type Result struct {
	Loss        float64
	RewardSum   float64
	RewardMean  float64
	NonTerminal int // Number of sampled transitions that bootstrap
}

// DeepQ implements the deep Q-learning update. Each call to Optimize
// samples a batch of transitions from the replay buffer and takes one
// gradient step towards the targets
//
//	r + γ * max_a' Q(s', a')
//
// where the bootstrap term is zero for transitions which ended an
// episode. Next-state values are computed with the most recent
// weights.
type DeepQ struct {
	learner agent.Learner
	replay  expreplay.ExperienceReplayer
	logger  *zap.Logger

	gamma                float64
	batchSize            int
	features             int
	numActions           int
	bootstrapAllTerminal bool

	// Batch buffers reused between updates
	states      []float64
	nextStates  []float64
	actions     []int
	rewards     []float64
	nonTerminal []bool
}

// New returns a new DeepQ agent which learns from states of the given
// number of features. The agent learns from transitions stored in
// replay, which it reads but never modifies.
func New(c Config, features, numActions int,
	replay expreplay.ExperienceReplayer, logger *zap.Logger) (*DeepQ, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("new: %w", err)
	}

	s, err := solver.New(c.Solver, c.LearningRate)
	if err != nil {
		return nil, fmt.Errorf("new: %w", err)
	}

	q, err := NewQNet(c.Network, features, numActions, c.BatchSize, c.Loss, s)
	if err != nil {
		return nil, fmt.Errorf("new: %w", err)
	}

	d, err := NewWithLearner(c, q, replay, logger)
	if err != nil {
		q.Close()
		return nil, fmt.Errorf("new: %w", err)
	}
	return d, nil
}

// NewWithLearner returns a new DeepQ agent which trains learner
func NewWithLearner(c Config, learner agent.Learner,
	replay expreplay.ExperienceReplayer, logger *zap.Logger) (*DeepQ, error) {
	if c.Gamma < 0 || c.Gamma > 1 {
		return nil, fmt.Errorf("newWithLearner: gamma must be in [0, 1], "+
			"got %v", c.Gamma)
	}
	if c.BatchSize < 1 {
		return nil, fmt.Errorf("newWithLearner: batch size must be "+
			"positive, got %v", c.BatchSize)
	}
	if replay == nil {
		return nil, fmt.Errorf("newWithLearner: nil replay buffer")
	}
	if c.BatchSize > replay.Capacity() {
		return nil, fmt.Errorf("newWithLearner: batch size %v exceeds "+
			"replay capacity %v", c.BatchSize, replay.Capacity())
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	features := 0
	if f, ok := learner.(interface{ Features() int }); ok {
		features = f.Features()
	}

	return &DeepQ{
		learner:              learner,
		replay:               replay,
		logger:               logger.Named("deepq"),
		gamma:                c.Gamma,
		batchSize:            c.BatchSize,
		features:             features,
		numActions:           learner.NumActions(),
		bootstrapAllTerminal: c.BootstrapAllTerminal,
		actions:              make([]int, c.BatchSize),
		rewards:              make([]float64, c.BatchSize),
		nonTerminal:          make([]bool, c.BatchSize),
	}, nil
}

// QFunction returns the action-value function being learned
func (d *DeepQ) QFunction() agent.QFunction {
	return d.learner
}

// BatchSize returns the number of transitions in each update
func (d *DeepQ) BatchSize() int {
	return d.batchSize
}

// Optimize performs at most one gradient step. If the replay buffer
// holds fewer transitions than a batch, or every sampled transition is
// terminal and bootstrapping all-terminal batches is disabled, no
// update is performed and ok is false.
func (d *DeepQ) Optimize() (Result, bool, error) {
	if d.replay.Len() < d.batchSize {
		return Result{}, false, nil
	}

	batch, err := d.replay.Sample(d.batchSize)
	if expreplay.IsEmptyBuffer(err) || expreplay.IsInsufficientSamples(err) {
		return Result{}, false, nil
	} else if err != nil {
		return Result{}, false, fmt.Errorf("optimize: %w", err)
	}

	// Build the batch, compacting non-terminal next states
	d.states = d.states[:0]
	d.nextStates = d.nextStates[:0]
	numNonTerminal := 0
	for i, t := range batch {
		if d.features != 0 && t.State.Size() != d.features {
			return Result{}, false, fmt.Errorf("optimize: state of size %v, "+
				"expected %v", t.State.Size(), d.features)
		}
		d.states = appendState(d.states, t.State)
		d.actions[i] = t.Action
		d.rewards[i] = t.Reward

		next, cont := t.Next.Get()
		d.nonTerminal[i] = cont
		if cont {
			d.nextStates = appendState(d.nextStates, next)
			numNonTerminal++
		}
	}

	if numNonTerminal == 0 && !d.bootstrapAllTerminal {
		d.logger.Debug("skipping update on all-terminal batch",
			zap.Int("batch_size", d.batchSize))
		return Result{}, false, nil
	}

	var maxNext []float64
	if numNonTerminal > 0 {
		values, err := d.learner.ActionValues(d.nextStates, numNonTerminal)
		if err != nil {
			return Result{}, false, fmt.Errorf("optimize: could not compute "+
				"next state values: %w", err)
		}
		maxNext = floatutils.RowMax(values, d.numActions)
	}

	targets, err := TDTargets(d.rewards, d.nonTerminal, maxNext, d.gamma)
	if err != nil {
		return Result{}, false, fmt.Errorf("optimize: %w", err)
	}

	loss, err := d.learner.Fit(d.states, d.actions, targets)
	if err != nil {
		return Result{}, false, fmt.Errorf("optimize: %w", err)
	}

	rewardSum := floats.Sum(d.rewards)
	result := Result{
		Loss:        loss,
		RewardSum:   rewardSum,
		RewardMean:  rewardSum / float64(d.batchSize),
		NonTerminal: numNonTerminal,
	}
	return result, true, nil
}

func appendState(dst []float64, s ts.State) []float64 {
	for _, frame := range s {
		dst = append(dst, frame...)
	}
	return dst
}

// TDTargets returns the update targets
//
//	reward[i] + γ * maxNext[j]
//
// where j counts the non-terminal transitions before i. The bootstrap
// term is zero wherever nonTerminal is false, and maxNext holds one
// value per non-terminal transition in order.
func TDTargets(rewards []float64, nonTerminal []bool, maxNext []float64,
	gamma float64) ([]float64, error) {
	if len(rewards) != len(nonTerminal) {
		return nil, fmt.Errorf("tdTargets: %v rewards but %v terminal flags",
			len(rewards), len(nonTerminal))
	}

	bootstrap := make([]float64, len(rewards))
	j := 0
	for i, cont := range nonTerminal {
		if !cont {
			continue
		}
		if j >= len(maxNext) {
			return nil, fmt.Errorf("tdTargets: too few next state values "+
				"(%v)", len(maxNext))
		}
		bootstrap[i] = maxNext[j]
		j++
	}
	if j != len(maxNext) {
		return nil, fmt.Errorf("tdTargets: %v next state values for %v "+
			"non-terminal transitions", len(maxNext), j)
	}

	floats.Scale(gamma, bootstrap)
	floats.Add(bootstrap, rewards)
	return bootstrap, nil
}

// Snapshot returns copies of the network weights and solver state
func (d *DeepQ) Snapshot() (network.Snapshot, solver.State, error) {
	q, ok := d.learner.(*QNet)
	if !ok {
		return network.Snapshot{}, solver.State{}, fmt.Errorf("snapshot: "+
			"cannot snapshot learner of type %T", d.learner)
	}

	snap, err := network.NewSnapshot(q.Network())
	if err != nil {
		return network.Snapshot{}, solver.State{}, fmt.Errorf("snapshot: %w",
			err)
	}
	return snap, q.Solver().State(), nil
}

// Restore sets the network weights and solver from a checkpoint
func (d *DeepQ) Restore(snap network.Snapshot, state solver.State) error {
	q, ok := d.learner.(*QNet)
	if !ok {
		return fmt.Errorf("restore: cannot restore learner of type %T",
			d.learner)
	}

	s, err := solver.FromState(state)
	if err != nil {
		return fmt.Errorf("restore: %w", err)
	}
	if err := q.Restore(snap, s); err != nil {
		return fmt.Errorf("restore: %w", err)
	}

	d.logger.Info("restored agent", zap.Int("solver_steps", s.Steps()))
	return nil
}

// Close releases the resources held by the learner
func (d *DeepQ) Close() error {
	if c, ok := d.learner.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}

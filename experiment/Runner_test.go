package experiment

import (
	"path/filepath"
	"testing"

	"github.com/samuelfneumann/pixeldqn/agent/deepq"
	"github.com/samuelfneumann/pixeldqn/agent/policy"
	"github.com/samuelfneumann/pixeldqn/environment"
	"github.com/samuelfneumann/pixeldqn/experiment/tracker"
	"github.com/samuelfneumann/pixeldqn/expreplay"
	"github.com/samuelfneumann/pixeldqn/preprocess"
	ts "github.com/samuelfneumann/pixeldqn/timestep"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/exp/rand"
)

// stubEnv is a 2x2 grayscale environment with 3 actions whose episodes
// end every period steps. Every step has reward 1.
type stubEnv struct {
	period  int
	t       int
	resets  int
	actions []int
}

func obs(t int) []float64 {
	v := float64(t % 256)
	return []float64{v, v, v, v}
}

func (s *stubEnv) Reset() (ts.TimeStep, error) {
	s.t = 0
	s.resets++
	return ts.New(ts.First, 0, obs(0), 0), nil
}

func (s *stubEnv) Step(action int) (ts.TimeStep, bool, error) {
	s.t++
	s.actions = append(s.actions, action)
	done := s.t%s.period == 0
	stepType := ts.Mid
	if done {
		stepType = ts.Last
	}
	return ts.New(stepType, 1, obs(s.t), s.t), done, nil
}

func (s *stubEnv) ObservationSpec() environment.Spec {
	return environment.NewPixelSpec(2, 2, 1)
}

func (s *stubEnv) ActionSpec() environment.Spec {
	return environment.NewDiscreteActionSpec(3)
}

// fixedQ values each action by a fixed table, independent of state
type fixedQ struct {
	values []float64
}

func (f *fixedQ) NumActions() int { return len(f.values) }

func (f *fixedQ) ActionValues(states []float64, n int) ([]float64, error) {
	out := make([]float64, 0, n*len(f.values))
	for i := 0; i < n; i++ {
		out = append(out, f.values...)
	}
	return out, nil
}

// countingOptimizer counts calls to Optimize and never updates
type countingOptimizer struct {
	calls int
}

func (c *countingOptimizer) Optimize() (deepq.Result, bool, error) {
	c.calls++
	return deepq.Result{}, false, nil
}

type fixture struct {
	env       *stubEnv
	replay    expreplay.ExperienceReplayer
	selector  *policy.EGreedy
	optimizer *countingOptimizer
	runner    *Runner
}

func newFixture(t *testing.T, capacity int, greedy bool,
	trackers ...tracker.Tracker) *fixture {
	t.Helper()
	env := &stubEnv{period: 10}
	pre, err := preprocess.NewGrayscaleResize(2, 2, 1, 2, 2)
	require.NoError(t, err)

	replay, err := expreplay.New(capacity, rand.NewSource(1))
	require.NoError(t, err)

	schedule, err := policy.NewLinear(0.9, 0.05, 100, false)
	require.NoError(t, err)
	selector, err := policy.NewEGreedy(&fixedQ{[]float64{0.1, 0.9, 0.3}},
		schedule, greedy, rand.New(rand.NewSource(2)))
	require.NoError(t, err)

	optimizer := &countingOptimizer{}
	runner, err := NewRunner(env, pre, 4, selector, optimizer, replay,
		zap.NewNop(), trackers...)
	require.NoError(t, err)

	return &fixture{
		env:       env,
		replay:    replay,
		selector:  selector,
		optimizer: optimizer,
		runner:    runner,
	}
}

func TestBurnIn(t *testing.T) {
	for _, capacity := range []int{20, 100} {
		f := newFixture(t, capacity, false)

		stats, err := f.runner.BurnIn(50)
		require.NoError(t, err)
		require.Equal(t, BurnInStats{Steps: 50, Terminals: 5}, stats)
		require.Equal(t, min(50, capacity), f.replay.Len())
		require.Equal(t, 5, f.env.resets)
		require.Equal(t, 50, f.runner.TotalSteps())

		// Burn-in neither explores through the selector nor learns
		require.Zero(t, f.selector.StepsDone())
		require.Zero(t, f.optimizer.calls)

		terminals := 0
		transitions, err := expreplay.Transitions(f.replay)
		require.NoError(t, err)
		for _, tr := range transitions {
			if tr.Next.IsTerminal() {
				terminals++
			}
		}
		if capacity >= 50 {
			require.Equal(t, 5, terminals)
		}
	}
}

func TestGreedyTrainingEpisode(t *testing.T) {
	ret := tracker.NewReturn(filepath.Join(t.TempDir(), "return.bin"))
	length := tracker.NewEpisodeLength(filepath.Join(t.TempDir(), "len.bin"))
	f := newFixture(t, 100, true, ret, length)

	reward, err := f.runner.Run(0, true, nil)
	require.NoError(t, err)
	require.Equal(t, 10.0, reward)
	require.Equal(t, Terminal, f.runner.Phase())

	require.Len(t, f.env.actions, 10)
	for _, a := range f.env.actions {
		require.Equal(t, 1, a)
	}
	require.Equal(t, 10, f.optimizer.calls)
	require.Equal(t, 10, f.replay.Len())
	require.Equal(t, 10, f.selector.StepsDone())

	require.Equal(t, []float64{10}, ret.Returns())
	require.Equal(t, []float64{10}, length.Lengths())
}

func TestStoredTransitions(t *testing.T) {
	f := newFixture(t, 100, true)
	_, err := f.runner.Run(0, true, nil)
	require.NoError(t, err)

	transitions, err := expreplay.Transitions(f.replay)
	require.NoError(t, err)
	require.Len(t, transitions, 10)

	for i, tr := range transitions {
		require.Equal(t, 1, tr.Action)
		require.Equal(t, 1.0, tr.Reward)
		require.Len(t, tr.State, 4)

		// The newest frame of each state is the observation before
		// the action, scaled into [0, 1]
		newest := tr.State[len(tr.State)-1]
		require.InDelta(t, float64(i)/255, newest[0], 0.5/255)

		next, ok := tr.Next.Get()
		require.Equal(t, i < 9, ok)
		if ok {
			require.InDelta(t, float64(i+1)/255, next[len(next)-1][0], 0.5/255)
			require.Equal(t, tr.State[1:], next[:3])
		}
	}

	// The first state is the first frame repeated
	first := transitions[0].State
	for _, frame := range first {
		require.Equal(t, first[0], frame)
	}
}

func TestEvaluationEpisode(t *testing.T) {
	f := newFixture(t, 100, false)

	_, err := f.runner.Run(0, false, nil)
	require.NoError(t, err)
	require.Zero(t, f.optimizer.calls)
	require.Zero(t, f.selector.StepsDone())
	require.Equal(t, 10, f.replay.Len())
}

func TestTrainingCountsSteps(t *testing.T) {
	f := newFixture(t, 100, false)

	_, err := f.runner.Run(0, true, nil)
	require.NoError(t, err)
	require.Equal(t, 10, f.selector.StepsDone())
}

func TestMaxEpisodeSteps(t *testing.T) {
	f := newFixture(t, 100, true)
	f.runner.MaxEpisodeSteps = 4

	reward, err := f.runner.Run(0, true, nil)
	require.NoError(t, err)
	require.Equal(t, 4.0, reward)

	transitions, err := expreplay.Transitions(f.replay)
	require.NoError(t, err)
	require.Len(t, transitions, 4)
	require.False(t, transitions[3].Next.IsTerminal())
}

type frameCounter struct {
	frames [][]float64
	closed bool
}

func (c *frameCounter) WriteFrame(obs []float64) error {
	c.frames = append(c.frames, append([]float64(nil), obs...))
	return nil
}

func (c *frameCounter) Close() error {
	c.closed = true
	return nil
}

func TestFrameSink(t *testing.T) {
	f := newFixture(t, 100, true)
	sink := &frameCounter{}

	_, err := f.runner.Run(0, false, sink)
	require.NoError(t, err)
	require.Len(t, sink.frames, 11)
	require.Equal(t, obs(0), sink.frames[0])
	require.Equal(t, obs(10), sink.frames[10])
}

func TestRandomPlay(t *testing.T) {
	env := &stubEnv{period: 10}
	stats, err := RandomPlay(env, 25, rand.New(rand.NewSource(1)), nil)
	require.NoError(t, err)
	require.Equal(t, BurnInStats{Steps: 25, Terminals: 2}, stats)
	require.Equal(t, 3, env.resets)
	for _, a := range env.actions {
		require.GreaterOrEqual(t, a, 0)
		require.Less(t, a, 3)
	}
}

package deepq

import (
	"testing"

	"github.com/samuelfneumann/pixeldqn/expreplay"
	"github.com/samuelfneumann/pixeldqn/initwfn"
	"github.com/samuelfneumann/pixeldqn/network"
	"github.com/samuelfneumann/pixeldqn/solver"
	ts "github.com/samuelfneumann/pixeldqn/timestep"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/exp/rand"
)

// recorder values action a in a single-value state v as (a+1)*v and
// records the arguments of each call to Fit
type recorder struct {
	numActions int
	fits       int
	states     []float64
	actions    []int
	targets    []float64
}

func (r *recorder) NumActions() int { return r.numActions }

func (r *recorder) ActionValues(states []float64, n int) ([]float64, error) {
	out := make([]float64, 0, n*r.numActions)
	for _, v := range states[:n] {
		for a := 0; a < r.numActions; a++ {
			out = append(out, float64(a+1)*v)
		}
	}
	return out, nil
}

func (r *recorder) Fit(states []float64, actions []int,
	targets []float64) (float64, error) {
	r.fits++
	r.states = append([]float64(nil), states...)
	r.actions = append([]int(nil), actions...)
	r.targets = append([]float64(nil), targets...)
	return 0, nil
}

func single(v float64) ts.State {
	return ts.State{ts.Frame{v}}
}

func newReplay(t *testing.T, capacity int) expreplay.ExperienceReplayer {
	replay, err := expreplay.New(capacity, rand.NewSource(1))
	require.NoError(t, err)
	return replay
}

func config(batch int) Config {
	c := DefaultConfig(network.Config{Type: network.Linear})
	c.BatchSize = batch
	c.Gamma = 0.5
	return c
}

func TestTDTargets(t *testing.T) {
	targets, err := TDTargets(
		[]float64{1, 2, 3, 4},
		[]bool{true, false, true, false},
		[]float64{10, 20},
		0.5,
	)
	require.NoError(t, err)
	require.Equal(t, []float64{6, 2, 13, 4}, targets)

	targets, err = TDTargets([]float64{1, 2}, []bool{false, false}, nil, 0.9)
	require.NoError(t, err)
	require.Equal(t, []float64{1, 2}, targets)

	_, err = TDTargets([]float64{1, 2}, []bool{true}, []float64{1}, 0.9)
	require.Error(t, err)

	_, err = TDTargets([]float64{1, 2}, []bool{true, true}, []float64{1}, 0.9)
	require.Error(t, err)

	_, err = TDTargets([]float64{1}, []bool{false}, []float64{1}, 0.9)
	require.Error(t, err)
}

func TestOptimizeInsufficientSamples(t *testing.T) {
	q := &recorder{numActions: 2}
	replay := newReplay(t, 4)
	d, err := NewWithLearner(config(2), q, replay, zap.NewNop())
	require.NoError(t, err)

	_, ok, err := d.Optimize()
	require.NoError(t, err)
	require.False(t, ok)

	replay.Store(ts.NewTransition(single(1), 0, ts.Continue(single(1)), 1))
	_, ok, err = d.Optimize()
	require.NoError(t, err)
	require.False(t, ok)
	require.Zero(t, q.fits)
}

func TestOptimizeMasksTerminals(t *testing.T) {
	q := &recorder{numActions: 2}
	replay := newReplay(t, 4)
	d, err := NewWithLearner(config(4), q, replay, zap.NewNop())
	require.NoError(t, err)

	// Transition i takes action i%2 with reward i and, if it continues,
	// has next state value 10*i
	want := map[float64]float64{}
	for i := 0; i < 4; i++ {
		reward := float64(i)
		next := ts.Terminal()
		want[reward] = reward
		if i%2 == 1 {
			next = ts.Continue(single(10 * reward))
			want[reward] = reward + 0.5*2*10*reward
		}
		replay.Store(ts.NewTransition(single(reward), i%2, next, reward))
	}

	result, ok, err := d.Optimize()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 1, q.fits)
	require.Equal(t, 2, result.NonTerminal)
	require.Equal(t, 6.0, result.RewardSum)
	require.Equal(t, 1.5, result.RewardMean)

	// The state of each sampled transition equals its reward
	for i, s := range q.states {
		require.Equal(t, want[s], q.targets[i])
		require.Equal(t, int(s)%2, q.actions[i])
	}
}

func TestOptimizeSkipsAllTerminal(t *testing.T) {
	q := &recorder{numActions: 2}
	replay := newReplay(t, 1)
	replay.Store(ts.NewTransition(single(1), 1, ts.Terminal(), 3))

	d, err := NewWithLearner(config(1), q, replay, zap.NewNop())
	require.NoError(t, err)

	_, ok, err := d.Optimize()
	require.NoError(t, err)
	require.False(t, ok)
	require.Zero(t, q.fits)
}

func TestOptimizeBootstrapAllTerminal(t *testing.T) {
	q := &recorder{numActions: 2}
	replay := newReplay(t, 1)
	replay.Store(ts.NewTransition(single(1), 1, ts.Terminal(), 3))

	c := config(1)
	c.BootstrapAllTerminal = true
	d, err := NewWithLearner(c, q, replay, zap.NewNop())
	require.NoError(t, err)

	result, ok, err := d.Optimize()
	require.NoError(t, err)
	require.True(t, ok)
	require.Zero(t, result.NonTerminal)
	require.Equal(t, []float64{3}, q.targets)
	require.Equal(t, []int{1}, q.actions)
}

func TestAllTerminalLeavesWeightsUnchanged(t *testing.T) {
	replay := newReplay(t, 2)
	for i := 0; i < 2; i++ {
		state := ts.State{ts.Frame{0.1, 0.2}, ts.Frame{0.3, 0.4}}
		replay.Store(ts.NewTransition(state, i, ts.Terminal(), 1))
	}

	d, err := New(config(2), 4, 2, replay, zap.NewNop())
	require.NoError(t, err)
	defer d.Close()

	before, _, err := d.Snapshot()
	require.NoError(t, err)

	_, ok, err := d.Optimize()
	require.NoError(t, err)
	require.False(t, ok)

	after, _, err := d.Snapshot()
	require.NoError(t, err)
	require.Equal(t, before, after)
}

func TestOptimizeUpdatesWeights(t *testing.T) {
	replay := newReplay(t, 2)
	s := ts.State{ts.Frame{0.1, 0.2}, ts.Frame{0.3, 0.4}}
	for i := 0; i < 2; i++ {
		replay.Store(ts.NewTransition(s, i, ts.Continue(s), 1))
	}

	d, err := New(config(2), 4, 2, replay, zap.NewNop())
	require.NoError(t, err)
	defer d.Close()

	before, state, err := d.Snapshot()
	require.NoError(t, err)
	require.Zero(t, state.Steps)

	_, ok, err := d.Optimize()
	require.NoError(t, err)
	require.True(t, ok)

	after, state, err := d.Snapshot()
	require.NoError(t, err)
	require.NotEqual(t, before, after)
	require.Equal(t, 1, state.Steps)
	require.Equal(t, solver.RMSProp, state.Config.Type)

	// Restoring the first snapshot recovers the initial weights
	require.NoError(t, d.Restore(before, state))
	restored, _, err := d.Snapshot()
	require.NoError(t, err)
	require.Equal(t, before, restored)
}

func TestNewErrors(t *testing.T) {
	replay := newReplay(t, 2)

	_, err := New(config(4), 4, 2, replay, nil)
	require.Error(t, err)

	c := config(1)
	c.Loss = "l1"
	_, err = New(c, 4, 2, replay, nil)
	require.Error(t, err)

	c = config(1)
	c.Network = network.Config{Type: network.MLP}
	_, err = New(c, 4, 2, replay, nil)
	require.Error(t, err)
}

func zeroNet(t *testing.T, loss Loss, batch int) *QNet {
	t.Helper()
	init, err := initwfn.NewZeroes()
	require.NoError(t, err)
	s, err := solver.New(solver.Vanilla, 0.1)
	require.NoError(t, err)

	q, err := NewQNet(network.Config{Type: network.Linear, Init: init}, 2,
		2, batch, loss, s)
	require.NoError(t, err)
	t.Cleanup(func() { q.Close() })
	return q
}

func TestQNetLoss(t *testing.T) {
	states := []float64{1, 0}

	mse := zeroNet(t, MSE, 1)
	loss, err := mse.Fit(states, []int{0}, []float64{3})
	require.NoError(t, err)
	require.InDelta(t, 9.0, loss, 1e-12)

	huber := zeroNet(t, Huber, 1)
	loss, err = huber.Fit(states, []int{0}, []float64{3})
	require.NoError(t, err)
	require.InDelta(t, 2.5, loss, 1e-12)

	huber = zeroNet(t, Huber, 1)
	loss, err = huber.Fit(states, []int{1}, []float64{0.5})
	require.NoError(t, err)
	require.InDelta(t, 0.125, loss, 1e-12)
}

func TestQNetFitMovesTakenAction(t *testing.T) {
	q := zeroNet(t, MSE, 1)
	states := []float64{1, 0}

	_, err := q.Fit(states, []int{1}, []float64{1})
	require.NoError(t, err)

	values, err := q.ActionValues(states, 1)
	require.NoError(t, err)
	require.Zero(t, values[0])
	require.Greater(t, values[1], 0.0)

	// Repeated steps reduce the loss
	prev := 1.0
	for i := 0; i < 20; i++ {
		loss, err := q.Fit(states, []int{1}, []float64{1})
		require.NoError(t, err)
		require.Less(t, loss, prev)
		prev = loss
	}
}

func TestQNetActionValuesBatches(t *testing.T) {
	s, err := solver.New(solver.Adam, 0.01)
	require.NoError(t, err)
	q, err := NewQNet(network.Config{Type: network.MLP, Hidden: 4}, 2, 3, 2,
		Huber, s)
	require.NoError(t, err)
	defer q.Close()

	states := []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6}
	values, err := q.ActionValues(states, 3)
	require.NoError(t, err)
	require.Len(t, values, 9)

	for i := 0; i < 3; i++ {
		row, err := q.ActionValues(states[2*i:2*i+2], 1)
		require.NoError(t, err)
		require.InDeltaSlice(t, row, values[3*i:3*i+3], 1e-12)
	}

	_, err = q.ActionValues(states, 2)
	require.Error(t, err)

	_, err = q.Fit(states[:4], []int{0, 3}, []float64{0, 0})
	require.Error(t, err)
}

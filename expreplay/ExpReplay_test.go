package expreplay

import (
	"testing"

	ts "github.com/samuelfneumann/pixeldqn/timestep"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"
)

func transition(reward float64) ts.Transition {
	state := ts.State{ts.Frame{reward}}
	return ts.NewTransition(state, 0, ts.Continue(state), reward)
}

func rewards(transitions []ts.Transition) []float64 {
	r := make([]float64, len(transitions))
	for i := range transitions {
		r[i] = transitions[i].Reward
	}
	return r
}

func TestNew(t *testing.T) {
	_, err := New(0, rand.NewSource(1))
	require.Error(t, err)

	_, err = New(1, nil)
	require.Error(t, err)

	e, err := New(3, rand.NewSource(1))
	require.NoError(t, err)
	require.Equal(t, 0, e.Len())
	require.Equal(t, 3, e.Capacity())
}

func TestFifoEviction(t *testing.T) {
	e, err := New(4, rand.NewSource(1))
	require.NoError(t, err)

	for r := 1; r <= 6; r++ {
		e.Store(transition(float64(r)))
		require.Equal(t, min(r, 4), e.Len())
	}

	contents, err := Transitions(e)
	require.NoError(t, err)
	require.Equal(t, []float64{3, 4, 5, 6}, rewards(contents))
}

func TestSampleDistinct(t *testing.T) {
	e, err := New(50, rand.NewSource(10))
	require.NoError(t, err)
	for r := 0; r < 75; r++ {
		e.Store(transition(float64(r)))
	}

	for i := 0; i < 20; i++ {
		batch, err := e.Sample(32)
		require.NoError(t, err)
		require.Len(t, batch, 32)

		seen := make(map[float64]bool)
		for _, tr := range batch {
			require.False(t, seen[tr.Reward], "duplicate transition sampled")
			require.GreaterOrEqual(t, tr.Reward, 25.0)
			seen[tr.Reward] = true
		}
	}

	// Sampling the whole buffer returns every transition
	batch, err := e.Sample(50)
	require.NoError(t, err)
	require.ElementsMatch(t, rewards(mustTransitions(t, e)), rewards(batch))
}

func TestSampleDoesNotMutate(t *testing.T) {
	e, err := New(5, rand.NewSource(3))
	require.NoError(t, err)
	for r := 0; r < 5; r++ {
		e.Store(transition(float64(r)))
	}

	before := rewards(mustTransitions(t, e))
	_, err = e.Sample(3)
	require.NoError(t, err)
	require.Equal(t, before, rewards(mustTransitions(t, e)))
}

func TestSampleInsufficient(t *testing.T) {
	e, err := New(5, rand.NewSource(3))
	require.NoError(t, err)

	_, err = e.Sample(1)
	require.True(t, IsEmptyBuffer(err))

	e.Store(transition(1))
	e.Store(transition(2))

	_, err = e.Sample(3)
	require.Error(t, err)
	require.True(t, IsInsufficientSamples(err))
	require.False(t, IsEmptyBuffer(err))

	var replayErr *ExpReplayError
	require.ErrorAs(t, err, &replayErr)
	require.Equal(t, "sample", replayErr.Op)

	batch, err := e.Sample(2)
	require.NoError(t, err)
	require.Len(t, batch, 2)
}

func TestSampleDeterministic(t *testing.T) {
	sample := func() []float64 {
		e, err := New(20, rand.NewSource(42))
		require.NoError(t, err)
		for r := 0; r < 20; r++ {
			e.Store(transition(float64(r)))
		}
		batch, err := e.Sample(8)
		require.NoError(t, err)
		return rewards(batch)
	}
	require.Equal(t, sample(), sample())
}

func mustTransitions(t *testing.T, e ExperienceReplayer) []ts.Transition {
	contents, err := Transitions(e)
	require.NoError(t, err)
	return contents
}

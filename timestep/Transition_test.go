package timestep

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNextState(t *testing.T) {
	terminal := Terminal()
	require.True(t, terminal.IsTerminal())
	s, ok := terminal.Get()
	require.False(t, ok)
	require.Nil(t, s)

	state := State{Frame{1, 2}, Frame{3, 4}}
	next := Continue(state)
	require.False(t, next.IsTerminal())
	s, ok = next.Get()
	require.True(t, ok)
	require.Equal(t, state, s)
}

func TestStateFlatten(t *testing.T) {
	state := State{Frame{1, 2, 3}, Frame{4, 5, 6}}
	require.Equal(t, 6, state.Size())
	require.Equal(t, []float64{1, 2, 3, 4, 5, 6}, state.Flatten(nil))

	dst := make([]float64, 10)
	flat := state.Flatten(dst)
	require.Len(t, flat, 6)
	require.Equal(t, 4.0, dst[3])

	require.Equal(t, 0, State{}.Size())
}

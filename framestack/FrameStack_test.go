package framestack

import (
	"testing"

	ts "github.com/samuelfneumann/pixeldqn/timestep"
	"github.com/stretchr/testify/require"
)

func TestResetPush(t *testing.T) {
	f := ts.Frame{1, 1}
	g := ts.Frame{2, 2}
	h := ts.Frame{3, 3}

	s, err := New(4, 2)
	require.NoError(t, err)
	require.Equal(t, 4, s.Len())

	state, err := s.Reset(f)
	require.NoError(t, err)
	require.Equal(t, ts.State{f, f, f, f}, state)

	pushed, err := s.Push(g)
	require.NoError(t, err)
	require.Equal(t, ts.State{f, f, f, g}, pushed)

	// Earlier states are unaffected by later pushes
	_, err = s.Push(h)
	require.NoError(t, err)
	require.Equal(t, ts.State{f, f, f, f}, state)
	require.Equal(t, ts.State{f, f, f, g}, pushed)
	require.Equal(t, ts.State{f, f, g, h}, s.State())

	require.Equal(t, []float64{1, 1, 1, 1, 2, 2, 3, 3},
		s.State().Flatten(nil))
}

func TestInvalidFrames(t *testing.T) {
	_, err := New(0, 2)
	require.Error(t, err)

	s, err := New(2, 2)
	require.NoError(t, err)

	_, err = s.Push(ts.Frame{1, 1})
	require.Error(t, err)

	_, err = s.Reset(ts.Frame{1})
	require.Error(t, err)

	_, err = s.Reset(ts.Frame{1, 1})
	require.NoError(t, err)
	_, err = s.Push(ts.Frame{1, 2, 3})
	require.Error(t, err)
}

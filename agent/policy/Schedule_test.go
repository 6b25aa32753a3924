package policy

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLinear(t *testing.T) {
	l, err := NewLinear(0.9, 0.05, 1000, false)
	require.NoError(t, err)

	require.InDelta(t, 0.9, l.Threshold(0, true), 1e-12)
	require.InDelta(t, 0.05, l.Threshold(1000, true), 1e-12)
	require.InDelta(t, 0.475, l.Threshold(500, true), 1e-12)

	// Unclamped schedules continue past the end value
	require.Less(t, l.Threshold(2000, true), 0.05)
	require.InDelta(t, -0.8, l.Threshold(2000, true), 1e-12)

	// Evaluation mode always uses the constant threshold
	for _, steps := range []int{0, 10, 1000, 5000} {
		require.Equal(t, EvalEpsilon, l.Threshold(steps, false))
	}
}

func TestLinearClamp(t *testing.T) {
	l, err := NewLinear(0.9, 0.05, 1000, true)
	require.NoError(t, err)

	require.InDelta(t, 0.9, l.Threshold(0, true), 1e-12)
	require.InDelta(t, 0.05, l.Threshold(1000, true), 1e-12)
	require.InDelta(t, 0.05, l.Threshold(2000, true), 1e-12)
}

func TestLinearMonotone(t *testing.T) {
	l, err := NewLinear(1.0, 0.1, 200, false)
	require.NoError(t, err)

	prev := math.Inf(1)
	for steps := 0; steps <= 200; steps++ {
		eps := l.Threshold(steps, true)
		require.Less(t, eps, prev)
		prev = eps
	}
}

func TestExponential(t *testing.T) {
	e, err := NewExponential(0.9, 0.05, 200)
	require.NoError(t, err)

	require.InDelta(t, 0.9, e.Threshold(0, true), 1e-12)
	require.InDelta(t, 0.05+0.85*math.Exp(-1), e.Threshold(200, true), 1e-12)
	require.InDelta(t, 0.05, e.Threshold(1e6, true), 1e-9)
	require.Equal(t, EvalEpsilon, e.Threshold(10, false))
}

func TestNewSchedule(t *testing.T) {
	s, err := NewSchedule(LinearSchedule, 1, 0, 10, false)
	require.NoError(t, err)
	require.IsType(t, Linear{}, s)

	s, err = NewSchedule(ExponentialSchedule, 1, 0, 10, false)
	require.NoError(t, err)
	require.IsType(t, Exponential{}, s)

	_, err = NewSchedule("cosine", 1, 0, 10, false)
	require.Error(t, err)

	_, err = NewSchedule(LinearSchedule, 1, 0, 0, false)
	require.Error(t, err)
}

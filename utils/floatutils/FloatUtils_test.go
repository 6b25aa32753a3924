package floatutils

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestArgmaxFirstTie(t *testing.T) {
	require.Equal(t, 1, Argmax([]float64{0, 3, 1, 3}))
	require.Equal(t, 0, Argmax([]float64{-2, -2}))
}

func TestRowMax(t *testing.T) {
	require.Equal(t, []float64{3, 4}, RowMax([]float64{1, 3, 4, 2}, 2))
}

func TestMovingAverage(t *testing.T) {
	avg := MovingAverage([]float64{2, 4, 6, 8}, 2)
	require.InDeltaSlice(t, []float64{2, 3, 5, 7}, avg, 1e-12)
}

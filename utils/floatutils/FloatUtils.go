// Package floatutils provides utilities for working with floats
package floatutils

import (
	"math"

	"gonum.org/v1/gonum/spatial/r1"
)

// Clip clips a floating point to within a minimum and maximum value.
// If the floating point exceeds max, then the function returns the max
// If min exceeds the floating point, then the function returns the min
func Clip(value, min, max float64) float64 {
	clipped := math.Min(value, max)
	return math.Max(clipped, min)
}

// ClipInterval is a wrapper to use Clip with an r1.Interval instead of
// a separate max and min value
func ClipInterval(value float64, interval r1.Interval) float64 {
	return Clip(value, interval.Min, interval.Max)
}

// Argmax returns the index of the first maximum value in a slice of
// float64. Argmax panics if values is empty.
func Argmax(values []float64) int {
	max, index := values[0], 0

	for i, value := range values {
		if value > max {
			max = value
			index = i
		}
	}
	return index
}

// RowMax returns the maximum of each row of a row-major matrix with
// the given number of columns
func RowMax(values []float64, cols int) []float64 {
	rows := len(values) / cols
	max := make([]float64, rows)
	for i := 0; i < rows; i++ {
		max[i] = Max(values[i*cols : (i+1)*cols]...)
	}
	return max
}

// Max calculates and returns the maximum float64 in a list
func Max(floats ...float64) float64 {
	max := floats[0]
	for _, val := range floats {
		if val > max {
			max = val
		}
	}
	return max
}

// MovingAverage returns the trailing moving average of values with the
// given window. The first window-1 entries average over all values seen
// so far.
func MovingAverage(values []float64, window int) []float64 {
	avg := make([]float64, len(values))
	sum := 0.0
	for i, v := range values {
		sum += v
		if i >= window {
			sum -= values[i-window]
		}
		n := i + 1
		if n > window {
			n = window
		}
		avg[i] = sum / float64(n)
	}
	return avg
}

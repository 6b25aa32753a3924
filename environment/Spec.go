package environment

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// SpecType determines what kind of specification a Spec is. A Spec can
// specify the layout of an action or an observation
type SpecType int

const (
	Action SpecType = iota
	Observation
)

// Cardinality determines the cardinality of a number (discrete or continuous)
type Cardinality string

const (
	Continuous Cardinality = "Continuous"
	Discrete   Cardinality = "Discrete"
)

// Spec implements an environment specification, which tells the type,
// shape, and bounds of an action or an observation in an environment.
//
// Pixel observations have Shape (height, width, channels). Discrete
// actions have Shape (1) and bounds [0, numActions-1].
type Spec struct {
	Shape      mat.Vector
	Type       SpecType
	LowerBound mat.Vector
	UpperBound mat.Vector
	Cardinality
}

// NewSpec constructs a new environment specification
// The shape argument outlines the shape of the data described by the
// specification. The argument t outlines what the specification is
// describing (e.g. actions, observations, etc.). The cardinality
// arguments describes whether the values that the spec describes are
// continuous or discrete.
func NewSpec(shape mat.Vector, t SpecType, lowerBound,
	upperBound mat.Vector, cardinality Cardinality) Spec {
	if lowerBound.Len() != upperBound.Len() {
		panic(fmt.Sprintf("lower bounds length %v must match upper bounds "+
			"length %v", lowerBound.Len(), upperBound.Len()))
	}
	return Spec{shape, t, lowerBound, upperBound, cardinality}
}

// NewPixelSpec returns the observation Spec of an environment emitting
// height x width images with the given number of channels and pixel
// values in [0, 255].
func NewPixelSpec(height, width, channels int) Spec {
	shape := mat.NewVecDense(3, []float64{
		float64(height),
		float64(width),
		float64(channels),
	})
	low := mat.NewVecDense(1, []float64{0})
	high := mat.NewVecDense(1, []float64{255})

	return NewSpec(shape, Observation, low, high, Continuous)
}

// NewDiscreteActionSpec returns the action Spec of an environment with
// n discrete actions
func NewDiscreteActionSpec(n int) Spec {
	shape := mat.NewVecDense(1, []float64{1})
	low := mat.NewVecDense(1, []float64{0})
	high := mat.NewVecDense(1, []float64{float64(n - 1)})

	return NewSpec(shape, Action, low, high, Discrete)
}

// PixelShape returns the (height, width, channels) of an observation
// Spec.
func (s Spec) PixelShape() (int, int, int, error) {
	if s.Type != Observation || s.Shape.Len() != 3 {
		return 0, 0, 0, fmt.Errorf("pixelShape: spec does not describe " +
			"pixel observations")
	}
	return int(s.Shape.AtVec(0)), int(s.Shape.AtVec(1)),
		int(s.Shape.AtVec(2)), nil
}

// Len returns the number of values in a single flattened observation
// described by the Spec.
func (s Spec) Len() int {
	n := 1
	for i := 0; i < s.Shape.Len(); i++ {
		n *= int(s.Shape.AtVec(i))
	}
	return n
}

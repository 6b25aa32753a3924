package network

import (
	G "gorgonia.org/gorgonia"
)

// Activation is a nonlinearity applied to the output of a layer
type Activation struct {
	name string
	f    func(x *G.Node) (*G.Node, error)
}

// fwd applies the Activation to x. A nil Activation is the identity.
func (a *Activation) fwd(x *G.Node) (*G.Node, error) {
	if a == nil || a.f == nil {
		return x, nil
	}
	return a.f(x)
}

// String implements the fmt.Stringer interface
func (a *Activation) String() string {
	if a == nil {
		return "identity"
	}
	return a.name
}

// Identity returns the identity Activation, used on output layers
func Identity() *Activation {
	return &Activation{name: "identity"}
}

// ReLU returns a rectified linear Activation
func ReLU() *Activation {
	return &Activation{name: "relu", f: G.Rectify}
}

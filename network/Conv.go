package network

import (
	"fmt"

	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// convLayer implements a 2D convolutional layer without padding on
// inputs of shape (batch, channels, height, width)
type convLayer struct {
	filter *G.Node
	bias   *G.Node
	kernel int
	stride int
	act    *Activation
}

// newConvLayer returns a new convolutional layer with out filters of
// size kernel x kernel
func newConvLayer(g *G.ExprGraph, name string, in, out, kernel, stride int,
	init G.InitWFn, act *Activation) *convLayer {
	filter := G.NewTensor(g, tensor.Float64, 4,
		G.WithShape(out, in, kernel, kernel), G.WithName(name+"W"),
		G.WithInit(init))
	bias := G.NewTensor(g, tensor.Float64, 4, G.WithShape(1, out, 1, 1),
		G.WithName(name+"B"), G.WithInit(G.Zeroes()))

	return &convLayer{
		filter: filter,
		bias:   bias,
		kernel: kernel,
		stride: stride,
		act:    act,
	}
}

// fwd implements the Layer interface
func (c *convLayer) fwd(x *G.Node) (*G.Node, error) {
	x, err := G.Conv2d(x, c.filter, tensor.Shape{c.kernel, c.kernel},
		[]int{0, 0}, []int{c.stride, c.stride}, []int{1, 1})
	if err != nil {
		return nil, fmt.Errorf("fwd: could not convolve: %w", err)
	}

	x, err = G.BroadcastAdd(x, c.bias, nil, []byte{0, 2, 3})
	if err != nil {
		return nil, fmt.Errorf("fwd: could not add bias: %w", err)
	}
	return c.act.fwd(x)
}

// CloneTo implements the Layer interface
func (c *convLayer) CloneTo(g *G.ExprGraph) Layer {
	return &convLayer{
		filter: zeroesLike(g, c.filter),
		bias:   zeroesLike(g, c.bias),
		kernel: c.kernel,
		stride: c.stride,
		act:    c.act,
	}
}

// Learnables implements the Layer interface
func (c *convLayer) Learnables() G.Nodes {
	return G.Nodes{c.filter, c.bias}
}

package network

import (
	"fmt"

	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// Layer is a single layer of a neural network
type Layer interface {
	// fwd adds the forward pass of the layer to the graph of x
	fwd(x *G.Node) (*G.Node, error)

	// CloneTo returns a copy of the layer on graph g. The weights of
	// the copy are zero until set.
	CloneTo(g *G.ExprGraph) Layer

	// Learnables returns the trainable weights of the layer
	Learnables() G.Nodes
}

// fcLayer implements a fully connected layer of a feed forward neural
// network
type fcLayer struct {
	weights *G.Node
	bias    *G.Node
	act     *Activation
}

// newFCLayer returns a new fully connected layer with in inputs and
// out outputs. Biases are initialized to zero.
func newFCLayer(g *G.ExprGraph, name string, in, out int, init G.InitWFn,
	act *Activation) *fcLayer {
	weights := G.NewMatrix(g, tensor.Float64, G.WithShape(in, out),
		G.WithName(name+"W"), G.WithInit(init))
	bias := G.NewMatrix(g, tensor.Float64, G.WithShape(1, out),
		G.WithName(name+"B"), G.WithInit(G.Zeroes()))

	return &fcLayer{weights: weights, bias: bias, act: act}
}

// addfcLayers returns a stack of fully connected layers with the given
// sizes, each using the same activation
func addfcLayers(g *G.ExprGraph, features int, sizes []int, init G.InitWFn,
	act *Activation) []Layer {
	layers := make([]Layer, len(sizes))
	in := features
	for i, size := range sizes {
		layers[i] = newFCLayer(g, fmt.Sprintf("fc%v", i), in, size, init, act)
		in = size
	}
	return layers
}

// fwd adds the forward pass of the fcLayer to the computational graph
func (f *fcLayer) fwd(x *G.Node) (*G.Node, error) {
	x, err := G.Mul(x, f.weights)
	if err != nil {
		return nil, fmt.Errorf("fwd: could not multiply weights: %w", err)
	}

	// Broadcast the bias weights to all samples along the batch
	// dimension
	x, err = G.BroadcastAdd(x, f.bias, nil, []byte{0})
	if err != nil {
		return nil, fmt.Errorf("fwd: could not add bias: %w", err)
	}
	return f.act.fwd(x)
}

// CloneTo clones an fcLayer to a new computational graph
func (f *fcLayer) CloneTo(g *G.ExprGraph) Layer {
	return &fcLayer{
		weights: zeroesLike(g, f.weights),
		bias:    zeroesLike(g, f.bias),
		act:     f.act,
	}
}

// Learnables implements the Layer interface
func (f *fcLayer) Learnables() G.Nodes {
	return G.Nodes{f.weights, f.bias}
}

// zeroesLike returns a new zero-valued node on graph g with the same
// name and shape as n
func zeroesLike(g *G.ExprGraph, n *G.Node) *G.Node {
	return G.NewTensor(g, n.Dtype(), n.Shape().Dims(),
		G.WithShape(n.Shape().Clone()...), G.WithName(n.Name()),
		G.WithInit(G.Zeroes()))
}

// flattenLayer reshapes a batch of feature maps into a batch of
// feature vectors
type flattenLayer struct {
	size int
}

// fwd implements the Layer interface
func (f *flattenLayer) fwd(x *G.Node) (*G.Node, error) {
	batch := x.Shape()[0]
	return G.Reshape(x, tensor.Shape{batch, f.size})
}

// CloneTo implements the Layer interface
func (f *flattenLayer) CloneTo(*G.ExprGraph) Layer {
	return &flattenLayer{size: f.size}
}

// Learnables implements the Layer interface
func (f *flattenLayer) Learnables() G.Nodes {
	return nil
}

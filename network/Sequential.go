package network

import (
	"fmt"

	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// sequential implements a QNetwork as a stack of layers applied in
// order to a single input node
type sequential struct {
	g          *G.ExprGraph
	config     Config
	layers     []Layer
	input      *G.Node
	numOutputs int
	numInputs  int
	batchSize  int

	learnables G.Nodes
	model      []G.ValueGrad

	prediction *G.Node
	predVal    G.Value
}

// newSequential returns a new sequential network on graph g with an
// input node of the given shape
func newSequential(g *G.ExprGraph, c Config, inputShape []int, features,
	outputs int, layers []Layer) (*sequential, error) {
	input := G.NewTensor(g, tensor.Float64, len(inputShape),
		G.WithShape(inputShape...), G.WithName("input"),
		G.WithInit(G.Zeroes()))

	network := sequential{
		g:          g,
		config:     c,
		layers:     layers,
		input:      input,
		numOutputs: outputs,
		numInputs:  features,
		batchSize:  inputShape[0],
	}
	if _, err := network.fwd(input); err != nil {
		return nil, fmt.Errorf("newSequential: could not compute forward "+
			"pass: %w", err)
	}

	return &network, nil
}

// Graph returns the computational graph of the network
func (s *sequential) Graph() *G.ExprGraph {
	return s.g
}

// Config returns the configuration the network was built from
func (s *sequential) Config() Config {
	return s.config
}

// Clone clones a network onto a new graph with the same batch size
func (s *sequential) Clone() (QNetwork, error) {
	return s.CloneWithBatch(s.batchSize)
}

// CloneWithBatch clones a network onto a new graph with a new input
// batch size. The clone has the same weights as s, but the weights are
// not shared: later changes to one network do not affect the other.
func (s *sequential) CloneWithBatch(batchSize int) (QNetwork, error) {
	if batchSize < 1 {
		return nil, fmt.Errorf("cloneWithBatch: batch size must be "+
			"positive, got %v", batchSize)
	}
	graph := G.NewGraph()

	layers := make([]Layer, len(s.layers))
	for i := range s.layers {
		layers[i] = s.layers[i].CloneTo(graph)
	}

	inputShape := append([]int{batchSize}, s.input.Shape()[1:]...)
	net, err := newSequential(graph, s.config, inputShape, s.numInputs,
		s.numOutputs, layers)
	if err != nil {
		return nil, fmt.Errorf("cloneWithBatch: %w", err)
	}

	if err := net.Set(s); err != nil {
		return nil, fmt.Errorf("cloneWithBatch: could not copy "+
			"weights: %w", err)
	}
	return net, nil
}

// BatchSize returns the batch size of inputs to the network
func (s *sequential) BatchSize() int {
	return s.batchSize
}

// Features returns the number of features in a single input
func (s *sequential) Features() int {
	return s.numInputs
}

// Outputs returns the number of outputs from the network for a single
// input, which equals the number of actions
func (s *sequential) Outputs() int {
	return s.numOutputs
}

// SetInput sets the value of the input node before running the forward
// pass.
func (s *sequential) SetInput(input []float64) error {
	if len(input) != s.numInputs*s.batchSize {
		return fmt.Errorf("setInput: invalid number of inputs\n\twant(%v)"+
			"\n\thave(%v)", s.numInputs*s.batchSize, len(input))
	}
	inputTensor := tensor.New(
		tensor.WithBacking(input),
		tensor.WithShape(s.input.Shape()...),
	)
	return G.Let(s.input, inputTensor)
}

// Set sets the weights of a network to be equal to the weights of
// another network of the same architecture
func (dest *sequential) Set(source QNetwork) error {
	sourceNodes := source.Learnables()
	nodes := dest.Learnables()
	if len(sourceNodes) != len(nodes) {
		return fmt.Errorf("set: source has %v learnables, destination has "+
			"%v", len(sourceNodes), len(nodes))
	}

	for i, destLearnable := range nodes {
		sourceValue := sourceNodes[i].Value()
		if sourceValue == nil {
			return fmt.Errorf("set: source learnable %v has no value",
				sourceNodes[i].Name())
		}
		if !sourceValue.Shape().Eq(destLearnable.Shape()) {
			return fmt.Errorf("set: shape mismatch for learnable %v: %v != %v",
				destLearnable.Name(), sourceValue.Shape(), destLearnable.Shape())
		}

		value := sourceValue.(tensor.Tensor).Clone().(tensor.Tensor)
		if err := G.Let(destLearnable, value); err != nil {
			return fmt.Errorf("set: %w", err)
		}
	}
	return nil
}

// Learnables returns the learnable nodes in a network
func (s *sequential) Learnables() G.Nodes {
	// Lazy instantiation
	if s.learnables == nil {
		s.learnables = s.computeLearnables()
	}
	return s.learnables
}

// computeLearnables computes all the learnables for the network
func (s *sequential) computeLearnables() G.Nodes {
	learnables := make(G.Nodes, 0, 2*len(s.layers))
	for i := range s.layers {
		learnables = append(learnables, s.layers[i].Learnables()...)
	}
	return learnables
}

// Model returns the learnables nodes with their gradients.
func (s *sequential) Model() []G.ValueGrad {
	// Lazy instantiation
	if s.model == nil {
		s.model = make([]G.ValueGrad, 0, len(s.Learnables()))
		for _, node := range s.Learnables() {
			s.model = append(s.model, node)
		}
	}
	return s.model
}

// fwd performs the forward pass of the network on the input node
func (s *sequential) fwd(input *G.Node) (*G.Node, error) {
	pred := input
	var err error
	for i, l := range s.layers {
		if pred, err = l.fwd(pred); err != nil {
			return nil, fmt.Errorf("fwd: could not compute forward pass of "+
				"layer %v: %w", i, err)
		}
	}

	if shape := pred.Shape(); len(shape) != 2 || shape[1] != s.numOutputs {
		return nil, fmt.Errorf("fwd: invalid output shape %v, expected "+
			"(%v, %v)", shape, s.batchSize, s.numOutputs)
	}

	s.prediction = pred
	G.Read(s.prediction, &s.predVal)

	return pred, nil
}

// Output returns the output of the network from the last run of its
// graph
func (s *sequential) Output() G.Value {
	return s.predVal
}

// Prediction returns the node of the computational graph the stores
// the output of the network
func (s *sequential) Prediction() *G.Node {
	return s.prediction
}

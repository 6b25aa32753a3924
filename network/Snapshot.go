package network

import (
	"fmt"

	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// Weight is a serializable copy of a single learnable node
type Weight struct {
	Name  string
	Shape []int
	Data  []float64
}

// Snapshot is a serializable copy of the architecture and weights of
// a QNetwork, used for checkpointing
type Snapshot struct {
	Type     Type
	Hidden   int
	Frames   int
	Height   int
	Width    int
	Features int
	Actions  int
	Weights  []Weight
}

// NewSnapshot copies the architecture and weights of net
func NewSnapshot(net QNetwork) (Snapshot, error) {
	c := net.Config()
	snap := Snapshot{
		Type:     c.Type,
		Hidden:   c.Hidden,
		Frames:   c.Frames,
		Height:   c.Height,
		Width:    c.Width,
		Features: net.Features(),
		Actions:  net.Outputs(),
	}

	for _, node := range net.Learnables() {
		data, ok := node.Value().Data().([]float64)
		if !ok {
			return Snapshot{}, fmt.Errorf("newSnapshot: learnable %v is not "+
				"float64", node.Name())
		}
		weight := Weight{
			Name:  node.Name(),
			Shape: append([]int(nil), node.Shape()...),
			Data:  append([]float64(nil), data...),
		}
		snap.Weights = append(snap.Weights, weight)
	}
	return snap, nil
}

// Config returns the network configuration described by the Snapshot
func (s Snapshot) Config() Config {
	return Config{
		Type:   s.Type,
		Hidden: s.Hidden,
		Frames: s.Frames,
		Height: s.Height,
		Width:  s.Width,
	}
}

// Restore sets the weights of net to those stored in the Snapshot.
// The network must have the same architecture as the snapshotted one.
func (s Snapshot) Restore(net QNetwork) error {
	c := net.Config()
	if c.Type != s.Type || net.Features() != s.Features ||
		net.Outputs() != s.Actions {
		return fmt.Errorf("restore: snapshot of %v network with %v features "+
			"and %v actions cannot restore %v network with %v features and "+
			"%v actions", s.Type, s.Features, s.Actions, c.Type,
			net.Features(), net.Outputs())
	}

	nodes := net.Learnables()
	if len(nodes) != len(s.Weights) {
		return fmt.Errorf("restore: snapshot has %v weights, network has %v",
			len(s.Weights), len(nodes))
	}

	for i, node := range nodes {
		w := s.Weights[i]
		if !tensor.Shape(w.Shape).Eq(node.Shape()) {
			return fmt.Errorf("restore: shape mismatch for %v: %v != %v",
				node.Name(), w.Shape, node.Shape())
		}
		value := tensor.New(tensor.WithShape(w.Shape...),
			tensor.WithBacking(append([]float64(nil), w.Data...)))
		if err := G.Let(node, value); err != nil {
			return fmt.Errorf("restore: %w", err)
		}
	}
	return nil
}

// Build returns a new network with the architecture and weights of the
// Snapshot and the given batch size
func (s Snapshot) Build(batch int) (QNetwork, error) {
	net, err := New(s.Config(), s.Features, s.Actions, batch)
	if err != nil {
		return nil, fmt.Errorf("build: %w", err)
	}
	if err := s.Restore(net); err != nil {
		return nil, fmt.Errorf("build: %w", err)
	}
	return net, nil
}

package network

import (
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// duelingLayer splits its input into a state value stream and an
// action advantage stream, each with one ReLU hidden layer, and
// combines them as
//
//	Q(s, a) = V(s) + A(s, a) - mean_a' A(s, a')
type duelingLayer struct {
	advHidden *fcLayer
	adv       *fcLayer
	valHidden *fcLayer
	val       *fcLayer

	// centre is an (actions x actions) matrix of 1/actions, so that
	// A x centre repeats the mean advantage in every column
	centre *G.Node

	// expand is a (1 x actions) matrix of ones, so that V x expand
	// repeats the state value in every column
	expand *G.Node

	actions int
}

func newDuelingLayer(g *G.ExprGraph, in, hidden, actions int,
	init G.InitWFn) *duelingLayer {
	d := &duelingLayer{
		advHidden: newFCLayer(g, "advHidden", in, hidden, init, ReLU()),
		adv:       newFCLayer(g, "adv", hidden, actions, init, Identity()),
		valHidden: newFCLayer(g, "valHidden", in, hidden, init, ReLU()),
		val:       newFCLayer(g, "val", hidden, 1, init, Identity()),
		actions:   actions,
	}
	d.addConstants(g)
	return d
}

// addConstants adds the constant matrices used to combine streams to
// graph g
func (d *duelingLayer) addConstants(g *G.ExprGraph) {
	centre := make([]float64, d.actions*d.actions)
	for i := range centre {
		centre[i] = 1.0 / float64(d.actions)
	}
	d.centre = G.NewMatrix(g, tensor.Float64,
		G.WithShape(d.actions, d.actions), G.WithName("duelingCentre"),
		G.WithValue(tensor.New(tensor.WithShape(d.actions, d.actions),
			tensor.WithBacking(centre))))

	expand := make([]float64, d.actions)
	for i := range expand {
		expand[i] = 1.0
	}
	d.expand = G.NewMatrix(g, tensor.Float64,
		G.WithShape(1, d.actions), G.WithName("duelingExpand"),
		G.WithValue(tensor.New(tensor.WithShape(1, d.actions),
			tensor.WithBacking(expand))))
}

// fwd implements the Layer interface
func (d *duelingLayer) fwd(x *G.Node) (*G.Node, error) {
	adv, err := d.advHidden.fwd(x)
	if err != nil {
		return nil, err
	}
	if adv, err = d.adv.fwd(adv); err != nil {
		return nil, err
	}

	val, err := d.valHidden.fwd(x)
	if err != nil {
		return nil, err
	}
	if val, err = d.val.fwd(val); err != nil {
		return nil, err
	}

	meanAdv, err := G.Mul(adv, d.centre)
	if err != nil {
		return nil, err
	}
	if val, err = G.Mul(val, d.expand); err != nil {
		return nil, err
	}

	q, err := G.Add(val, adv)
	if err != nil {
		return nil, err
	}
	return G.Sub(q, meanAdv)
}

// CloneTo implements the Layer interface
func (d *duelingLayer) CloneTo(g *G.ExprGraph) Layer {
	clone := &duelingLayer{
		advHidden: d.advHidden.CloneTo(g).(*fcLayer),
		adv:       d.adv.CloneTo(g).(*fcLayer),
		valHidden: d.valHidden.CloneTo(g).(*fcLayer),
		val:       d.val.CloneTo(g).(*fcLayer),
		actions:   d.actions,
	}
	clone.addConstants(g)
	return clone
}

// Learnables implements the Layer interface
func (d *duelingLayer) Learnables() G.Nodes {
	learnables := make(G.Nodes, 0, 8)
	learnables = append(learnables, d.advHidden.Learnables()...)
	learnables = append(learnables, d.adv.Learnables()...)
	learnables = append(learnables, d.valHidden.Learnables()...)
	learnables = append(learnables, d.val.Learnables()...)
	return learnables
}

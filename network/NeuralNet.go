// Package network implements the neural network action-value function
// approximators used by deep Q-learning. Networks are built as
// Gorgonia computational graphs which take a batch of flattened
// stacked-frame states and output one value per action.
package network

import (
	"fmt"

	"github.com/samuelfneumann/pixeldqn/initwfn"
	G "gorgonia.org/gorgonia"
)

// QNetwork is a neural network which predicts the value of each action
// for each state in a batch
type QNetwork interface {
	Graph() *G.ExprGraph
	Clone() (QNetwork, error)
	CloneWithBatch(int) (QNetwork, error)
	BatchSize() int
	Features() int
	Outputs() int
	SetInput([]float64) error
	Set(QNetwork) error
	Learnables() G.Nodes
	Model() []G.ValueGrad
	Output() G.Value
	Prediction() *G.Node
	Config() Config
}

// Type describes a network architecture
type Type string

const (
	// Linear is a single fully connected layer
	Linear Type = "linear"

	// MLP has three ReLU hidden layers of Hidden units
	MLP Type = "mlp"

	// Dueling has two ReLU hidden layers of Hidden and 2*Hidden units
	// followed by separate state value and action advantage streams
	Dueling Type = "dueling"

	// Conv has two ReLU convolutional layers (16 8x8 filters with
	// stride 4, then 32 4x4 filters with stride 2) followed by a ReLU
	// hidden layer of 256 units
	Conv Type = "conv"
)

// Convolutional architecture
const (
	ConvHidden = 256
)

var convLayers = []convSpec{
	{filters: 16, kernel: 8, stride: 4},
	{filters: 32, kernel: 4, stride: 2},
}

type convSpec struct {
	filters, kernel, stride int
}

// Config describes a QNetwork architecture
type Config struct {
	Type   Type `json:"type"`
	Hidden int  `json:"hidden"`

	// Input image layout, used only by Conv networks
	Frames int `json:"frames"`
	Height int `json:"height"`
	Width  int `json:"width"`

	Init *initwfn.InitWFn `json:"init,omitempty"`
}

// Validate returns an error if the Config does not describe a valid
// network
func (c Config) Validate() error {
	if c.Init != nil {
		if err := c.Init.Validate(); err != nil {
			return fmt.Errorf("validate: %w", err)
		}
	}

	switch c.Type {
	case Linear:
		return nil

	case MLP, Dueling:
		if c.Hidden < 1 {
			return fmt.Errorf("validate: %v network requires hidden size "+
				">= 1, got %v", c.Type, c.Hidden)
		}
		return nil

	case Conv:
		if c.Frames < 1 || c.Height < 1 || c.Width < 1 {
			return fmt.Errorf("validate: conv network requires a positive "+
				"input shape, got (%v, %v, %v)", c.Frames, c.Height, c.Width)
		}
		h, w := convOutputSize(c.Height, c.Width)
		if h < 1 || w < 1 {
			return fmt.Errorf("validate: input of %vx%v is too small for "+
				"the conv network", c.Height, c.Width)
		}
		return nil
	}
	return fmt.Errorf("validate: no such network type %q", c.Type)
}

// convOutputSize returns the height and width of the feature maps
// output by the convolutional layers for an input of size h x w
func convOutputSize(h, w int) (int, int) {
	for _, l := range convLayers {
		h = (h-l.kernel)/l.stride + 1
		w = (w-l.kernel)/l.stride + 1
	}
	return h, w
}

// New returns a new QNetwork described by c, which takes batch inputs
// of features values each and predicts the values of actions actions.
// The network is constructed on a new computational graph.
func New(c Config, features, actions, batch int) (QNetwork, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("new: %w", err)
	}
	if features < 1 || actions < 1 || batch < 1 {
		return nil, fmt.Errorf("new: features (%v), actions (%v), and "+
			"batch (%v) must be positive", features, actions, batch)
	}
	if c.Type == Conv && c.Frames*c.Height*c.Width != features {
		return nil, fmt.Errorf("new: conv input shape (%v, %v, %v) does "+
			"not match %v features", c.Frames, c.Height, c.Width, features)
	}

	init := c.Init
	if init == nil {
		init = initwfn.Default()
	}

	g := G.NewGraph()
	var inputShape []int
	var layers []Layer

	switch c.Type {
	case Linear:
		inputShape = []int{batch, features}
		layers = []Layer{
			newFCLayer(g, "out", features, actions, init.InitWFn(), Identity()),
		}

	case MLP:
		inputShape = []int{batch, features}
		layers = addfcLayers(g, features, []int{c.Hidden, c.Hidden, c.Hidden},
			init.InitWFn(), ReLU())
		layers = append(layers, newFCLayer(g, "out", c.Hidden, actions,
			init.InitWFn(), Identity()))

	case Dueling:
		inputShape = []int{batch, features}
		layers = addfcLayers(g, features, []int{c.Hidden, 2 * c.Hidden},
			init.InitWFn(), ReLU())
		layers = append(layers, newDuelingLayer(g, 2*c.Hidden, c.Hidden,
			actions, init.InitWFn()))

	case Conv:
		inputShape = []int{batch, c.Frames, c.Height, c.Width}
		in := c.Frames
		for i, spec := range convLayers {
			layers = append(layers, newConvLayer(g, fmt.Sprintf("conv%v", i),
				in, spec.filters, spec.kernel, spec.stride, init.InitWFn(),
				ReLU()))
			in = spec.filters
		}
		h, w := convOutputSize(c.Height, c.Width)
		flat := in * h * w
		layers = append(layers,
			&flattenLayer{size: flat},
			newFCLayer(g, "fc", flat, ConvHidden, init.InitWFn(), ReLU()),
			newFCLayer(g, "out", ConvHidden, actions, init.InitWFn(),
				Identity()),
		)
	}

	return newSequential(g, c, inputShape, features, actions, layers)
}

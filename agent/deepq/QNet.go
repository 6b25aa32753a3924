package deepq

import (
	"fmt"

	"github.com/samuelfneumann/pixeldqn/network"
	"github.com/samuelfneumann/pixeldqn/solver"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// QNet is a neural network action-value function that can be trained
// by gradient descent. It implements agent.Learner.
//
// A QNet holds three copies of the same network. The training network
// takes batches of states and has a loss and gradients attached. The
// action network takes single states and is used to select actions.
// The batch network takes batches of states and provides next-state
// values. The two forward networks are set to the weights of the
// training network after every gradient step, and no gradients flow
// through them.
type QNet struct {
	trainNet   network.QNetwork
	trainNetVM G.VM
	solver     *solver.Solver

	// Inputs to the loss computed by trainNet
	selectedActions *G.Node
	targets         *G.Node
	cost            *G.Node
	costVal         G.Value

	actNet     network.QNetwork
	actNetVM   G.VM
	batchNet   network.QNetwork
	batchNetVM G.VM

	batchSize  int
	features   int
	numActions int

	oneHot []float64
	padded []float64
}

// NewQNet returns a new QNet with the given network architecture and
// number of features and actions. Gradient steps are taken on batches
// of batchSize states with the given loss.
func NewQNet(c network.Config, features, numActions, batchSize int,
	loss Loss, s *solver.Solver) (*QNet, error) {
	actNet, err := network.New(c, features, numActions, 1)
	if err != nil {
		return nil, fmt.Errorf("newQNet: could not create action network: "+
			"%w", err)
	}
	return newQNet(actNet, batchSize, loss, s)
}

func newQNet(actNet network.QNetwork, batchSize int, loss Loss,
	s *solver.Solver) (*QNet, error) {
	if s == nil {
		return nil, fmt.Errorf("newQNet: nil solver")
	}
	numActions := actNet.Outputs()

	batchNet, err := actNet.CloneWithBatch(batchSize)
	if err != nil {
		return nil, fmt.Errorf("newQNet: could not create batch network: "+
			"%w", err)
	}

	trainNet, err := actNet.CloneWithBatch(batchSize)
	if err != nil {
		return nil, fmt.Errorf("newQNet: could not create training "+
			"network: %w", err)
	}
	gTrain := trainNet.Graph()

	// Actions taken in each state as one-hot rows, used to select the
	// value of the taken action from the network output
	selectedActions := G.NewMatrix(gTrain, tensor.Float64,
		G.WithShape(batchSize, numActions), G.WithName("actionSelected"),
		G.WithInit(G.Zeroes()))
	selectedActionsValue := G.Must(G.HadamardProd(trainNet.Prediction(),
		selectedActions))
	selectedActionsValue = G.Must(G.Sum(selectedActionsValue, 1))

	// TD targets are computed outside the graph and are constants with
	// respect to the gradient
	targets := G.NewVector(gTrain, tensor.Float64, G.WithShape(batchSize),
		G.WithName("targets"), G.WithInit(G.Zeroes()))

	diff := G.Must(G.Sub(targets, selectedActionsValue))
	var losses *G.Node
	switch loss {
	case MSE:
		losses = G.Must(G.Square(diff))

	case Huber:
		losses = huber(diff)

	default:
		return nil, fmt.Errorf("newQNet: no such loss %q", loss)
	}
	cost := G.Must(G.Mean(losses))

	q := &QNet{
		trainNet:        trainNet,
		solver:          s,
		selectedActions: selectedActions,
		targets:         targets,
		cost:            cost,
		actNet:          actNet,
		batchNet:        batchNet,
		batchSize:       batchSize,
		features:        actNet.Features(),
		numActions:      numActions,
		oneHot:          make([]float64, batchSize*numActions),
	}
	G.Read(cost, &q.costVal)

	if _, err := G.Grad(cost, trainNet.Learnables()...); err != nil {
		return nil, fmt.Errorf("newQNet: could not compute gradient: %w",
			err)
	}

	q.trainNetVM = G.NewTapeMachine(gTrain,
		G.BindDualValues(trainNet.Learnables()...))
	q.actNetVM = G.NewTapeMachine(actNet.Graph())
	q.batchNetVM = G.NewTapeMachine(batchNet.Graph())

	return q, nil
}

// huber returns the elementwise smooth L1 loss of x with threshold 1:
//
//	0.5 * x^2      if |x| <= 1
//	|x| - 0.5      otherwise
func huber(x *G.Node) *G.Node {
	one := G.NewConstant(1.0)
	half := G.NewConstant(0.5)

	abs := G.Must(G.Abs(x))
	excess := G.Must(G.Rectify(G.Must(G.Sub(abs, one))))
	quadratic := G.Must(G.Sub(abs, excess))

	sq := G.Must(G.HadamardProd(half, G.Must(G.Square(quadratic))))
	return G.Must(G.Add(sq, excess))
}

// NumActions implements the agent.QFunction interface
func (q *QNet) NumActions() int {
	return q.numActions
}

// Features returns the number of features in a single state
func (q *QNet) Features() int {
	return q.features
}

// BatchSize returns the number of states in each gradient step
func (q *QNet) BatchSize() int {
	return q.batchSize
}

// ActionValues implements the agent.QFunction interface. Single states
// are evaluated with the action network, and larger batches with the
// batch network, padding the last batch with zeroes.
func (q *QNet) ActionValues(states []float64, n int) ([]float64, error) {
	if n < 1 {
		return nil, fmt.Errorf("actionValues: number of states must be "+
			"positive, got %v", n)
	}
	if len(states) != n*q.features {
		return nil, fmt.Errorf("actionValues: expected %v values for %v "+
			"states, got %v", n*q.features, n, len(states))
	}

	if n == 1 {
		return q.run(q.actNet, q.actNetVM, states)
	}

	values := make([]float64, 0, n*q.numActions)
	stride := q.batchSize * q.features
	for start := 0; start < len(states); start += stride {
		end := start + stride
		batch := states[start:]
		rows := q.batchSize
		if end <= len(states) {
			batch = states[start:end]
		} else {
			rows = len(batch) / q.features
			if cap(q.padded) < stride {
				q.padded = make([]float64, stride)
			}
			q.padded = q.padded[:stride]
			copy(q.padded, batch)
			for i := len(batch); i < stride; i++ {
				q.padded[i] = 0
			}
			batch = q.padded
		}

		out, err := q.run(q.batchNet, q.batchNetVM, batch)
		if err != nil {
			return nil, fmt.Errorf("actionValues: %w", err)
		}
		values = append(values, out[:rows*q.numActions]...)
	}
	return values, nil
}

// run runs the forward pass of net on input and returns a copy of the
// output
func (q *QNet) run(net network.QNetwork, vm G.VM,
	input []float64) ([]float64, error) {
	if err := net.SetInput(input); err != nil {
		return nil, fmt.Errorf("run: could not set input: %w", err)
	}
	defer vm.Reset()
	if err := vm.RunAll(); err != nil {
		return nil, fmt.Errorf("run: %w", err)
	}

	out := net.Output().Data().([]float64)
	return append([]float64(nil), out...), nil
}

// Fit implements the agent.Learner interface. Exactly BatchSize()
// states, actions, and targets must be given.
func (q *QNet) Fit(states []float64, actions []int,
	targets []float64) (float64, error) {
	if len(actions) != q.batchSize || len(targets) != q.batchSize {
		return 0, fmt.Errorf("fit: expected batches of %v actions and "+
			"targets, got %v and %v", q.batchSize, len(actions), len(targets))
	}

	for i := range q.oneHot {
		q.oneHot[i] = 0
	}
	for i, a := range actions {
		if a < 0 || a >= q.numActions {
			return 0, fmt.Errorf("fit: illegal action %v", a)
		}
		q.oneHot[i*q.numActions+a] = 1.0
	}

	actionTensor := tensor.New(tensor.WithShape(q.batchSize, q.numActions),
		tensor.WithBacking(append([]float64(nil), q.oneHot...)))
	if err := G.Let(q.selectedActions, actionTensor); err != nil {
		return 0, fmt.Errorf("fit: could not set actions: %w", err)
	}

	targetTensor := tensor.New(tensor.WithShape(q.batchSize),
		tensor.WithBacking(append([]float64(nil), targets...)))
	if err := G.Let(q.targets, targetTensor); err != nil {
		return 0, fmt.Errorf("fit: could not set targets: %w", err)
	}

	if err := q.trainNet.SetInput(states); err != nil {
		return 0, fmt.Errorf("fit: could not set states: %w", err)
	}

	if err := q.trainNetVM.RunAll(); err != nil {
		q.trainNetVM.Reset()
		return 0, fmt.Errorf("fit: %w", err)
	}
	loss := q.costVal.Data().(float64)

	if err := q.solver.Step(q.trainNet.Model()); err != nil {
		q.trainNetVM.Reset()
		return 0, fmt.Errorf("fit: could not step solver: %w", err)
	}
	q.trainNetVM.Reset()

	if err := q.sync(); err != nil {
		return 0, fmt.Errorf("fit: %w", err)
	}
	return loss, nil
}

// sync sets the forward networks to the weights of the training
// network
func (q *QNet) sync() error {
	if err := q.actNet.Set(q.trainNet); err != nil {
		return fmt.Errorf("sync: %w", err)
	}
	if err := q.batchNet.Set(q.trainNet); err != nil {
		return fmt.Errorf("sync: %w", err)
	}
	return nil
}

// Network returns the training network, whose weights all copies
// follow
func (q *QNet) Network() network.QNetwork {
	return q.trainNet
}

// Solver returns the solver adapting the network weights
func (q *QNet) Solver() *solver.Solver {
	return q.solver
}

// Restore sets the weights of the QNet from a snapshot and replaces
// its solver
func (q *QNet) Restore(snap network.Snapshot, s *solver.Solver) error {
	if err := snap.Restore(q.trainNet); err != nil {
		return fmt.Errorf("restore: %w", err)
	}
	if s != nil {
		q.solver = s
	}
	return q.sync()
}

// Close closes the VMs of the QNet
func (q *QNet) Close() error {
	for _, vm := range []G.VM{q.trainNetVM, q.actNetVM, q.batchNetVM} {
		if err := vm.Close(); err != nil {
			return fmt.Errorf("close: %w", err)
		}
	}
	return nil
}

package network

import (
	"fmt"

	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// MLP implements a multi-layered perceptron. The final layer of an MLP
// is always linear, with Outputs() units and a bias.
type MLP struct {
	g          *G.ExprGraph
	layers     []*fcLayer
	input      *G.Node
	numOutputs int
	numInputs  int
	batchSize  int
	prefix     string

	learnables G.Nodes
	model      []G.ValueGrad

	prediction *G.Node
	predVal    G.Value
}

// NewMLP creates and returns a new multi-layered perceptron on the
// graph g. The MLP has len(hiddenSizes) + 1 layers: hidden layer i has
// hiddenSizes[i] units and activation activations[i], and a final
// linear layer with outputs units is always added. All learnable nodes
// are named with the given prefix.
func NewMLP(features, batch, outputs int, g *G.ExprGraph,
	hiddenSizes []int, activations []*Activation, init G.InitWFn,
	prefix string) (*MLP, error) {
	if features <= 0 || batch <= 0 {
		return nil, fmt.Errorf("newMLP: features and batch size must be "+
			"positive\n\thave(%d, %d)", features, batch)
	}
	input := G.NewMatrix(
		g,
		tensor.Float64,
		G.WithShape(batch, features),
		G.WithName(prefix+"input"),
		G.WithInit(G.Zeroes()),
	)

	return NewMLPFromInput(input, outputs, hiddenSizes, activations, init,
		prefix)
}

// NewMLPFromInput returns a new MLP that computes its forward pass on
// an existing input node. Several MLPs may share the same input node
// as long as their prefixes differ.
func NewMLPFromInput(input *G.Node, outputs int, hiddenSizes []int,
	activations []*Activation, init G.InitWFn, prefix string) (*MLP,
	error) {
	if len(hiddenSizes) != len(activations) {
		msg := "newMLPFromInput: invalid number of activations" +
			"\n\twant(%d)\n\thave(%d)"
		return nil, fmt.Errorf(msg, len(hiddenSizes), len(activations))
	}
	if outputs <= 0 {
		return nil, fmt.Errorf("newMLPFromInput: outputs must be positive")
	}
	for i, size := range hiddenSizes {
		if size <= 0 {
			return nil, fmt.Errorf("newMLPFromInput: hidden layer %d has "+
				"non-positive size %d", i, size)
		}
	}
	if !input.IsMatrix() {
		return nil, fmt.Errorf("newMLPFromInput: input must be a matrix")
	}

	sizes := append(append([]int{}, hiddenSizes...), outputs)
	acts := append(append([]*Activation{}, activations...), Identity())

	features := input.Shape()[1]
	layers := addfcLayers(input.Graph(), features, sizes, acts, init, prefix)

	net := &MLP{
		g:          input.Graph(),
		layers:     layers,
		input:      input,
		numOutputs: outputs,
		numInputs:  features,
		batchSize:  input.Shape()[0],
		prefix:     prefix,
	}
	if _, err := net.fwd(input); err != nil {
		return nil, fmt.Errorf("newMLPFromInput: could not compute "+
			"forward pass: %v", err)
	}
	return net, nil
}

// Graph returns the computational graph of the MLP
func (m *MLP) Graph() *G.ExprGraph {
	return m.g
}

// CloneWithBatch clones an MLP onto a new graph with a new input batch
// size. Weights are copied.
func (m *MLP) CloneWithBatch(batchSize int) (NeuralNet, error) {
	if batchSize <= 0 {
		return nil, fmt.Errorf("cloneWithBatch: batch size must be positive")
	}
	graph := G.NewGraph()
	input := G.NewMatrix(
		graph,
		tensor.Float64,
		G.WithShape(batchSize, m.numInputs),
		G.WithName(m.prefix+"input"),
		G.WithInit(G.Zeroes()),
	)

	layers := make([]*fcLayer, len(m.layers))
	for i := range m.layers {
		layers[i] = m.layers[i].cloneTo(graph)
	}

	net := &MLP{
		g:          graph,
		layers:     layers,
		input:      input,
		numOutputs: m.numOutputs,
		numInputs:  m.numInputs,
		batchSize:  batchSize,
		prefix:     m.prefix,
	}
	if _, err := net.fwd(input); err != nil {
		return nil, fmt.Errorf("cloneWithBatch: could not compute forward "+
			"pass: %v", err)
	}
	return net, nil
}

// BatchSize returns the batch size of inputs to the MLP
func (m *MLP) BatchSize() int {
	return m.batchSize
}

// Features returns the number of features in a single input vector
func (m *MLP) Features() int {
	return m.numInputs
}

// Outputs returns the number of outputs of the MLP
func (m *MLP) Outputs() int {
	return m.numOutputs
}

// Input returns the input node of the MLP
func (m *MLP) Input() *G.Node {
	return m.input
}

// SetInput sets the value of the input node before running the forward
// pass. The input is given in row-major order, one row per sample.
func (m *MLP) SetInput(input []float64) error {
	if len(input) != m.numInputs*m.batchSize {
		return fmt.Errorf("setInput: invalid number of inputs\n\twant(%v)"+
			"\n\thave(%v)", m.numInputs*m.batchSize, len(input))
	}
	inputTensor := tensor.New(
		tensor.WithBacking(input),
		tensor.WithShape(m.input.Shape()...),
	)
	return G.Let(m.input, inputTensor)
}

// Learnables returns the learnable nodes of the MLP, ordered as the
// weights then the bias of each layer
func (m *MLP) Learnables() G.Nodes {
	if m.learnables == nil {
		learnables := make([]*G.Node, 0, 2*len(m.layers))
		for _, l := range m.layers {
			learnables = append(learnables, l.weights, l.bias)
		}
		m.learnables = G.Nodes(learnables)
	}
	return m.learnables
}

// Model returns the learnable nodes with their gradients
func (m *MLP) Model() []G.ValueGrad {
	if m.model == nil {
		model := make([]G.ValueGrad, 0, 2*len(m.layers))
		for _, node := range m.Learnables() {
			model = append(model, node)
		}
		m.model = model
	}
	return m.model
}

// fwd performs the forward pass of the MLP on the input node
func (m *MLP) fwd(input *G.Node) (*G.Node, error) {
	pred := input
	var err error
	for i, l := range m.layers {
		if pred, err = l.fwd(pred); err != nil {
			msg := "fwd: could not compute forward pass of layer %v: %v"
			return nil, fmt.Errorf(msg, i, err)
		}
	}

	m.prediction = pred
	G.Read(m.prediction, &m.predVal)

	return pred, nil
}

// Output returns the value of the output layer after the graph has
// been run
func (m *MLP) Output() G.Value {
	return m.predVal
}

// Prediction returns the node of the computational graph that stores
// the output of the MLP
func (m *MLP) Prediction() *G.Node {
	return m.prediction
}

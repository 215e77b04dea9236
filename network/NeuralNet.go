// Package network implements feed-forward neural networks on Gorgonia
// computational graphs.
//
// A NeuralNet only adds its forward pass to a graph. Running the graph
// with a VM, computing gradients and stepping solvers is left to the
// caller, so that several networks can share a single graph and loss.
package network

import (
	"fmt"

	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// NeuralNet is a neural network whose forward pass lives on a Gorgonia
// computational graph
type NeuralNet interface {
	Graph() *G.ExprGraph
	CloneWithBatch(int) (NeuralNet, error)
	BatchSize() int
	Features() int
	Outputs() int
	SetInput([]float64) error
	Learnables() G.Nodes
	Model() []G.ValueGrad
	Output() G.Value
	Prediction() *G.Node
}

// Set sets the weights of dest to be equal to the weights of source.
// Both networks must have the same architecture.
func Set(dest, source NeuralNet) error {
	sourceNodes := source.Learnables()
	nodes := dest.Learnables()
	if len(sourceNodes) != len(nodes) {
		return fmt.Errorf("set: cannot set weights of network with %d "+
			"learnables from network with %d learnables", len(nodes),
			len(sourceNodes))
	}

	for i, destLearnable := range nodes {
		sourceValue, ok := sourceNodes[i].Value().(*tensor.Dense)
		if !ok {
			return fmt.Errorf("set: learnable %v has no dense value",
				sourceNodes[i].Name())
		}
		if !destLearnable.Shape().Eq(sourceValue.Shape()) {
			return fmt.Errorf("set: shape mismatch for learnable %v: "+
				"want(%v) have(%v)", destLearnable.Name(),
				destLearnable.Shape(), sourceValue.Shape())
		}

		if err := G.Let(destLearnable, sourceValue.Clone()); err != nil {
			return fmt.Errorf("set: could not set learnable %v: %v",
				destLearnable.Name(), err)
		}
	}
	return nil
}

package network

import (
	"fmt"

	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// fcLayer implements a fully connected layer of a feed forward neural
// network
type fcLayer struct {
	weights *G.Node
	bias    *G.Node
	act     *Activation
}

// fwd adds the forward pass of the fcLayer to the computational graph
func (f *fcLayer) fwd(x *G.Node) (*G.Node, error) {
	x, err := G.Mul(x, f.weights)
	if err != nil {
		return nil, err
	}

	// Broadcast the bias weights to all samples along the batch
	// dimension
	x, err = G.BroadcastAdd(x, f.bias, nil, []byte{0})
	if err != nil {
		return nil, err
	}

	return f.act.fwd(x)
}

// cloneTo clones an fcLayer to a new computational graph, copying its
// weights
func (f *fcLayer) cloneTo(g *G.ExprGraph) *fcLayer {
	return &fcLayer{
		weights: f.weights.CloneTo(g),
		bias:    f.bias.CloneTo(g),
		act:     f.act,
	}
}

// addfcLayers adds fully connected layers to the graph g. The
// weights of layer i are named prefix + "W" + i and its bias
// prefix + "b" + i; prefixes must be unique within a graph.
func addfcLayers(g *G.ExprGraph, features int, sizes []int,
	activations []*Activation, init G.InitWFn, prefix string) []*fcLayer {
	layers := make([]*fcLayer, len(sizes))

	in := features
	for i, out := range sizes {
		weights := G.NewMatrix(
			g,
			tensor.Float64,
			G.WithShape(in, out),
			G.WithName(fmt.Sprintf("%vW%d", prefix, i)),
			G.WithInit(init),
		)
		bias := G.NewMatrix(
			g,
			tensor.Float64,
			G.WithShape(1, out),
			G.WithName(fmt.Sprintf("%vb%d", prefix, i)),
			G.WithInit(G.Zeroes()),
		)

		layers[i] = &fcLayer{weights: weights, bias: bias, act: activations[i]}
		in = out
	}
	return layers
}

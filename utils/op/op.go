// Package op provides extended Gorgonia graph operations.
package op

import (
	G "gorgonia.org/gorgonia"
)

// Min returns the element-wise minimum of a and b, computed as
// (a + b - |a - b|) / 2 so that gradients flow to both arguments.
// Either argument may be a scalar.
func Min(a, b *G.Node) (*G.Node, error) {
	return halfSum(a, b, G.Sub)
}

// Max returns the element-wise maximum of a and b, computed as
// (a + b + |a - b|) / 2. Either argument may be a scalar.
func Max(a, b *G.Node) (*G.Node, error) {
	return halfSum(a, b, G.Add)
}

func halfSum(a, b *G.Node,
	combine func(x, y *G.Node) (*G.Node, error)) (*G.Node, error) {
	sum, err := G.Add(a, b)
	if err != nil {
		return nil, err
	}
	diff, err := G.Sub(a, b)
	if err != nil {
		return nil, err
	}
	if diff, err = G.Abs(diff); err != nil {
		return nil, err
	}
	if sum, err = combine(sum, diff); err != nil {
		return nil, err
	}

	return G.HadamardProd(G.NewConstant(0.5), sum)
}

// Clip clips the value of a node to the interval [min, max]
func Clip(value *G.Node, min, max float64) (*G.Node, error) {
	clipped, err := Max(value, G.NewConstant(min))
	if err != nil {
		return nil, err
	}
	return Min(clipped, G.NewConstant(max))
}

// LogSumExp calculates the log of the summation of exponentials of
// all logits along the given axis, shifting by the maximum logit.
func LogSumExp(logits *G.Node, along int) (*G.Node, error) {
	max, err := G.Max(logits, along)
	if err != nil {
		return nil, err
	}

	exponent, err := G.BroadcastSub(logits, max, nil, []byte{1})
	if err != nil {
		return nil, err
	}
	if exponent, err = G.Exp(exponent); err != nil {
		return nil, err
	}

	sum, err := G.Sum(exponent, along)
	if err != nil {
		return nil, err
	}
	log, err := G.Log(sum)
	if err != nil {
		return nil, err
	}

	return G.Add(max, log)
}

// LogSoftMax computes the log of the softmax of each row of a matrix
// of logits
func LogSoftMax(logits *G.Node) (*G.Node, error) {
	lse, err := LogSumExp(logits, 1)
	if err != nil {
		return nil, err
	}
	return G.BroadcastSub(logits, lse, nil, []byte{1})
}

// SelectRows returns the sum along each row of the Hadamard product
// of x and mask. With a one-hot mask this selects one entry per row.
func SelectRows(x, mask *G.Node) (*G.Node, error) {
	selected, err := G.HadamardProd(x, mask)
	if err != nil {
		return nil, err
	}
	return G.Sum(selected, 1)
}

package network

import (
	"fmt"

	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// Blob is a flat, serialisable copy of a single learnable tensor
type Blob struct {
	Shape []int     `json:"shape" yaml:"shape"`
	Data  []float64 `json:"data" yaml:"data"`
}

// Export copies the learnables of net into blobs, in learnable order
func Export(net NeuralNet) ([]Blob, error) {
	learnables := net.Learnables()
	blobs := make([]Blob, len(learnables))
	for i, node := range learnables {
		value, ok := node.Value().(*tensor.Dense)
		if !ok {
			return nil, fmt.Errorf("export: learnable %v has no dense value",
				node.Name())
		}
		data, ok := value.Data().([]float64)
		if !ok {
			return nil, fmt.Errorf("export: learnable %v is not float64",
				node.Name())
		}

		blobs[i] = Blob{
			Shape: append([]int{}, value.Shape()...),
			Data:  append([]float64{}, data...),
		}
	}
	return blobs, nil
}

// Import sets the learnables of net from blobs, which must match the
// learnables of net in number, order and shape
func Import(net NeuralNet, blobs []Blob) error {
	learnables := net.Learnables()
	if len(blobs) != len(learnables) {
		return fmt.Errorf("import: invalid number of blobs\n\twant(%d)"+
			"\n\thave(%d)", len(learnables), len(blobs))
	}

	for i, node := range learnables {
		shape := tensor.Shape(blobs[i].Shape)
		if !node.Shape().Eq(shape) {
			return fmt.Errorf("import: shape mismatch for %v\n\twant(%v)"+
				"\n\thave(%v)", node.Name(), node.Shape(), shape)
		}
		if len(blobs[i].Data) != shape.TotalSize() {
			return fmt.Errorf("import: blob %d has %d values for shape %v",
				i, len(blobs[i].Data), shape)
		}

		t := tensor.New(
			tensor.WithShape(shape...),
			tensor.WithBacking(append([]float64{}, blobs[i].Data...)),
		)
		if err := G.Let(node, t); err != nil {
			return fmt.Errorf("import: could not set %v: %v", node.Name(), err)
		}
	}
	return nil
}

// Package initwfn describes Gorgonia weight initializers so that they
// can be stored in JSON and YAML configuration files.
package initwfn

import (
	"fmt"
	"math"

	G "gorgonia.org/gorgonia"
)

// Type describes different types of InitWFn that are available
type Type string

// Available InitWFn types
const (
	GlorotU Type = "GlorotU"
	GlorotN Type = "GlorotN"
	HeU     Type = "HeU"
	Zeroes  Type = "Zeroes"
)

// InitWFn describes a Gorgonia weight initializer. The Gain is ignored
// by initializers that do not use one.
type InitWFn struct {
	Type Type    `json:"type" yaml:"type" mapstructure:"type"`
	Gain float64 `json:"gain" yaml:"gain" mapstructure:"gain"`
}

// NewGlorotU returns a new Glorot Uniform weight initializer
func NewGlorotU(gain float64) InitWFn {
	return InitWFn{Type: GlorotU, Gain: gain}
}

// NewGlorotN returns a new Glorot Normal weight initializer
func NewGlorotN(gain float64) InitWFn {
	return InitWFn{Type: GlorotN, Gain: gain}
}

// NewHeU returns a new He Uniform weight initializer
func NewHeU(gain float64) InitWFn {
	return InitWFn{Type: HeU, Gain: gain}
}

// NewZeroes returns a new weight initializer that sets all weights
// to zero
func NewZeroes() InitWFn {
	return InitWFn{Type: Zeroes}
}

// Validate returns an error if the InitWFn cannot be created
func (i InitWFn) Validate() error {
	switch i.Type {
	case GlorotU, GlorotN, HeU:
		if i.Gain <= 0 || math.IsInf(i.Gain, 0) || math.IsNaN(i.Gain) {
			return fmt.Errorf("validate: %v gain must be positive and "+
				"finite\n\thave(%v)", i.Type, i.Gain)
		}
	case Zeroes:
	default:
		return fmt.Errorf("validate: unknown initializer type %q", i.Type)
	}
	return nil
}

// Create returns the weight initialization algorithm as a Gorgonia
// InitWFn
func (i InitWFn) Create() (G.InitWFn, error) {
	if err := i.Validate(); err != nil {
		return nil, fmt.Errorf("create: %v", err)
	}

	switch i.Type {
	case GlorotU:
		return G.GlorotU(i.Gain), nil
	case GlorotN:
		return G.GlorotN(i.Gain), nil
	case HeU:
		return G.HeU(i.Gain), nil
	}
	return G.Zeroes(), nil
}

// String implements the fmt.Stringer interface
func (i InitWFn) String() string {
	if i.Type == Zeroes {
		return string(i.Type)
	}
	return fmt.Sprintf("%v(gain=%v)", i.Type, i.Gain)
}

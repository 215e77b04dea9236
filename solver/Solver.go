// Package solver wraps Gorgonia Solvers with serialisable
// configurations.
package solver

import (
	"fmt"
	"math"

	G "gorgonia.org/gorgonia"
)

// Solver wraps a Gorgonia Solver together with the configuration it
// was created from
type Solver struct {
	G.Solver
	Config AdamConfig
}

// AdamConfig describes a configuration of the Adam solver
type AdamConfig struct {
	StepSize float64 `json:"step_size" yaml:"step_size" mapstructure:"step_size"`
	Epsilon  float64 `json:"epsilon" yaml:"epsilon" mapstructure:"epsilon"`
	Beta1    float64 `json:"beta1" yaml:"beta1" mapstructure:"beta1"`
	Beta2    float64 `json:"beta2" yaml:"beta2" mapstructure:"beta2"`

	// Gradients are divided by Batch before each step
	Batch int `json:"batch" yaml:"batch" mapstructure:"batch"`
}

// DefaultAdam returns an Adam configuration with the usual
// hyperparameters and the given step size. Gradients are not averaged.
func DefaultAdam(stepSize float64) AdamConfig {
	return AdamConfig{
		StepSize: stepSize,
		Epsilon:  1e-8,
		Beta1:    0.9,
		Beta2:    0.999,
		Batch:    1,
	}
}

// Validate returns an error if the configuration is invalid
func (a AdamConfig) Validate() error {
	if a.StepSize <= 0 || math.IsInf(a.StepSize, 0) || math.IsNaN(a.StepSize) {
		return fmt.Errorf("validate: step size must be positive and finite"+
			"\n\thave(%v)", a.StepSize)
	}
	if a.Epsilon <= 0 {
		return fmt.Errorf("validate: epsilon must be positive\n\thave(%v)",
			a.Epsilon)
	}
	if a.Beta1 < 0 || a.Beta1 >= 1 || a.Beta2 < 0 || a.Beta2 >= 1 {
		return fmt.Errorf("validate: betas must be in [0, 1)\n\thave(%v, %v)",
			a.Beta1, a.Beta2)
	}
	if a.Batch <= 0 {
		return fmt.Errorf("validate: batch must be positive\n\thave(%v)",
			a.Batch)
	}
	return nil
}

// NewAdam returns a new Adam Solver
func NewAdam(c AdamConfig) (*Solver, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("newAdam: %v", err)
	}

	solver := G.NewAdamSolver(
		G.WithLearnRate(c.StepSize),
		G.WithEps(c.Epsilon),
		G.WithBeta1(c.Beta1),
		G.WithBeta2(c.Beta2),
		G.WithBatchSize(float64(c.Batch)),
	)
	return &Solver{Solver: solver, Config: c}, nil
}

package policy

import (
	"fmt"

	"github.com/samuelfneumann/dronerl/network"
)

// Value implements a state value function following the weights of a
// source network with a single output
type Value struct {
	*follower
}

// NewValue returns a new Value function following source
func NewValue(source network.NeuralNet) (*Value, error) {
	if source.Outputs() != 1 {
		return nil, fmt.Errorf("newValue: value network must have a single "+
			"output\n\thave(%d)", source.Outputs())
	}

	v := &Value{newFollower(source, false)}
	if _, err := v.get(1); err != nil {
		return nil, fmt.Errorf("newValue: %v", err)
	}
	return v, nil
}

// Predict returns the value of a state
func (v *Value) Predict(state []float64) (float64, error) {
	r, err := v.get(1)
	if err != nil {
		return 0, fmt.Errorf("predict: %v", err)
	}
	out, err := r.run(state)
	if err != nil {
		return 0, fmt.Errorf("predict: %v", err)
	}
	return out[0], nil
}

// PredictBatch returns the values of n states given in row-major order
func (v *Value) PredictBatch(states []float64, n int) ([]float64, error) {
	r, err := v.get(n)
	if err != nil {
		return nil, fmt.Errorf("predictBatch: %v", err)
	}
	return r.run(states)
}

// Sync marks the value function as out of date with its source network
func (v *Value) Sync() {
	v.sync()
}

// Close releases the VMs of the value function
func (v *Value) Close() error {
	return v.close()
}

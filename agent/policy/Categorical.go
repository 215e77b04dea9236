// Package policy implements neural network policies and value
// functions which follow the weights of networks trained elsewhere.
package policy

import (
	"fmt"

	"github.com/samuelfneumann/dronerl/network"
	"golang.org/x/exp/rand"
)

// Categorical implements a softmax policy over discrete actions. The
// policy follows the weights of a source network, which outputs one
// logit per action; call Sync after the source weights change.
type Categorical struct {
	*follower
	rng *rand.Rand
}

// NewCategorical returns a new Categorical policy following source
func NewCategorical(source network.NeuralNet, seed uint64) (*Categorical,
	error) {
	c := &Categorical{
		follower: newFollower(source, true),
		rng:      rand.New(rand.NewSource(seed)),
	}

	// Build the single-state network eagerly so that construction
	// errors surface here
	if _, err := c.get(1); err != nil {
		return nil, fmt.Errorf("newCategorical: %v", err)
	}
	return c, nil
}

// NumActions returns the number of actions the policy selects between
func (c *Categorical) NumActions() int {
	return c.source.Outputs()
}

// Probabilities returns the probability of each action in state
func (c *Categorical) Probabilities(state []float64) ([]float64, error) {
	r, err := c.get(1)
	if err != nil {
		return nil, fmt.Errorf("probabilities: %v", err)
	}
	return r.run(state)
}

// ProbabilitiesBatch returns the action probabilities in each of n
// states, which are given in row-major order
func (c *Categorical) ProbabilitiesBatch(states []float64,
	n int) ([][]float64, error) {
	r, err := c.get(n)
	if err != nil {
		return nil, fmt.Errorf("probabilitiesBatch: %v", err)
	}
	flat, err := r.run(states)
	if err != nil {
		return nil, fmt.Errorf("probabilitiesBatch: %v", err)
	}

	actions := c.NumActions()
	probs := make([][]float64, n)
	for i := range probs {
		probs[i] = flat[i*actions : (i+1)*actions]
	}
	return probs, nil
}

// SelectAction samples an action in state
func (c *Categorical) SelectAction(state []float64) (int, []float64,
	error) {
	probs, err := c.Probabilities(state)
	if err != nil {
		return 0, nil, fmt.Errorf("selectAction: %v", err)
	}
	return Sample(probs, c.rng.Float64()), probs, nil
}

// Sync marks the policy as out of date with its source network
func (c *Categorical) Sync() {
	c.sync()
}

// Close releases the VMs of the policy
func (c *Categorical) Close() error {
	return c.close()
}

// Sample returns the index of the bucket of the cumulative
// distribution of probs that u falls in. If rounding leaves u beyond
// every bucket, the last index is returned.
func Sample(probs []float64, u float64) int {
	cumulative := 0.0
	for i, p := range probs {
		cumulative += p
		if u < cumulative {
			return i
		}
	}
	return len(probs) - 1
}

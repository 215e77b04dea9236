// Package agent defines the interfaces of policy gradient agents which
// act on discrete actions and learn from rollout windows.
package agent

import (
	"github.com/samuelfneumann/dronerl/buffer/rollout"
	"github.com/samuelfneumann/dronerl/network"
)

// Policy represents a stochastic policy over discrete actions
type Policy interface {
	// Probabilities returns the probability of each action in a state
	Probabilities(state []float64) ([]float64, error)

	// SelectAction samples an action in a state and returns it along
	// with the probabilities it was sampled from
	SelectAction(state []float64) (int, []float64, error)
}

// Learner implements a learning algorithm that updates a Policy from
// minibatches of transitions
type Learner interface {
	Policy

	// Update performs a single gradient step on a minibatch
	Update(b *rollout.Batch) (Loss, error)

	// BatchSize returns the size of the minibatches the Learner
	// accepts
	BatchSize() int

	// ExportWeights returns copies of the actor and critic weights
	ExportWeights() (actor, critic []network.Blob, err error)

	// ImportWeights replaces the actor and critic weights
	ImportWeights(actor, critic []network.Blob) error

	Close() error
}

// Loss is the breakdown of the loss on a single minibatch
type Loss struct {
	Total   float64 `json:"loss"`
	Policy  float64 `json:"policy_loss"`
	Value   float64 `json:"value_loss"`
	Entropy float64 `json:"entropy_loss"`
}

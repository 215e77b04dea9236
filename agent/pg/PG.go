// Package pg implements actor-critic policy gradient learners over
// discrete actions: REINFORCE, A2C and PPO with a clipped surrogate.
//
// The actor and critic are trained on a single graph which shares one
// input node between both networks. A single Adam step over the
// learnables of both networks minimises
//
//	policy_coef * policy_loss + value_coef * value_loss +
//	entropy_coef * entropy
//
// after which the behaviour policy and prediction critic, which run on
// their own graphs, are synced to the trained weights.
package pg

import (
	"fmt"
	"math"

	"github.com/samuelfneumann/dronerl/agent"
	"github.com/samuelfneumann/dronerl/agent/policy"
	"github.com/samuelfneumann/dronerl/buffer/rollout"
	"github.com/samuelfneumann/dronerl/network"
	"github.com/samuelfneumann/dronerl/solver"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// PG implements a policy gradient learner
type PG struct {
	config   Config
	features int
	actions  int

	// Behaviour policy and prediction critic
	behaviour *policy.Categorical
	critic    *policy.Value

	// Training networks and their loss
	trainActor  *network.MLP
	trainCritic *network.MLP
	loss        *lossGraph
	vm          G.VM
	solver      *solver.Solver
	model       []G.ValueGrad

	// Scratch space for inputs computed outside the graph
	advantages  []float64
	oldLogProbs []float64
}

// New returns a new policy gradient learner for states with the given
// number of features and the given number of discrete actions
func New(features, actions int, c Config, seed uint64) (*PG, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("new: %v", err)
	}
	if features <= 0 || actions <= 0 {
		return nil, fmt.Errorf("new: features and actions must be positive")
	}

	init, err := c.InitWFn.Create()
	if err != nil {
		return nil, fmt.Errorf("new: could not create weight initializer: "+
			"%v", err)
	}

	act, err := network.ParseActivation(c.Activation)
	if err != nil {
		return nil, fmt.Errorf("new: %v", err)
	}

	g := G.NewGraph()
	input := G.NewMatrix(
		g,
		tensor.Float64,
		G.WithShape(c.BatchSize, features),
		G.WithName("input"),
		G.WithInit(G.Zeroes()),
	)

	trainActor, err := network.NewMLPFromInput(
		input,
		actions,
		[]int{c.ActorHidden, c.ActorHidden / 2},
		[]*network.Activation{act, act},
		init,
		"actor",
	)
	if err != nil {
		return nil, fmt.Errorf("new: could not create actor: %v", err)
	}

	trainCritic, err := network.NewMLPFromInput(
		input,
		1,
		[]int{c.CriticHidden},
		[]*network.Activation{act},
		init,
		"critic",
	)
	if err != nil {
		return nil, fmt.Errorf("new: could not create critic: %v", err)
	}

	loss, err := newLossGraph(c, trainActor.Prediction(),
		trainCritic.Prediction())
	if err != nil {
		return nil, fmt.Errorf("new: could not create loss: %v", err)
	}

	learnables := append(append(G.Nodes{}, trainActor.Learnables()...),
		trainCritic.Learnables()...)
	if _, err := G.Grad(loss.total, learnables...); err != nil {
		return nil, fmt.Errorf("new: could not compute gradient: %v", err)
	}
	model := append(append([]G.ValueGrad{}, trainActor.Model()...),
		trainCritic.Model()...)

	adam, err := solver.NewAdam(solver.DefaultAdam(c.LearningRate))
	if err != nil {
		return nil, fmt.Errorf("new: could not create solver: %v", err)
	}

	behaviour, err := policy.NewCategorical(trainActor, seed)
	if err != nil {
		return nil, fmt.Errorf("new: could not create behaviour policy: %v",
			err)
	}
	critic, err := policy.NewValue(trainCritic)
	if err != nil {
		behaviour.Close()
		return nil, fmt.Errorf("new: could not create prediction critic: %v",
			err)
	}

	return &PG{
		config:      c,
		features:    features,
		actions:     actions,
		behaviour:   behaviour,
		critic:      critic,
		trainActor:  trainActor,
		trainCritic: trainCritic,
		loss:        loss,
		vm:          G.NewTapeMachine(g, G.BindDualValues(learnables...)),
		solver:      adam,
		model:       model,
		advantages:  make([]float64, c.BatchSize),
		oldLogProbs: make([]float64, c.BatchSize),
	}, nil
}

// Config returns the configuration of the learner
func (p *PG) Config() Config {
	return p.config
}

// BatchSize returns the size of the minibatches accepted by Update
func (p *PG) BatchSize() int {
	return p.config.BatchSize
}

// Probabilities returns the behaviour policy's action probabilities in
// a state
func (p *PG) Probabilities(state []float64) ([]float64, error) {
	return p.behaviour.Probabilities(state)
}

// SelectAction samples an action from the behaviour policy
func (p *PG) SelectAction(state []float64) (int, []float64, error) {
	return p.behaviour.SelectAction(state)
}

// Value returns the prediction critic's estimate of a state's value
func (p *PG) Value(state []float64) (float64, error) {
	return p.critic.Predict(state)
}

// Update performs a single gradient step on a minibatch
func (p *PG) Update(b *rollout.Batch) (agent.Loss, error) {
	if b.Size != p.config.BatchSize || b.Features != p.features ||
		b.NActions != p.actions {
		return agent.Loss{}, fmt.Errorf("update: batch of shape (%d, %d, %d) "+
			"does not match learner (%d, %d, %d)", b.Size, b.Features,
			b.NActions, p.config.BatchSize, p.features, p.actions)
	}

	if err := p.setInputs(b); err != nil {
		return agent.Loss{}, fmt.Errorf("update: %v", err)
	}

	if err := p.vm.RunAll(); err != nil {
		p.vm.Reset()
		return agent.Loss{}, fmt.Errorf("update: could not run loss: %v", err)
	}
	loss := agent.Loss{
		Total:   scalar(p.loss.totalVal),
		Policy:  scalar(p.loss.policyVal),
		Value:   scalar(p.loss.valueVal),
		Entropy: scalar(p.loss.entropyVal),
	}
	if err := p.solver.Step(p.model); err != nil {
		p.vm.Reset()
		return agent.Loss{}, fmt.Errorf("update: could not step solver: %v",
			err)
	}
	p.vm.Reset()

	p.behaviour.Sync()
	p.critic.Sync()

	return loss, nil
}

// setInputs sets the input nodes of the loss graph from a batch
func (p *PG) setInputs(b *rollout.Batch) error {
	// Shared by the actor and critic
	if err := p.trainActor.SetInput(b.States); err != nil {
		return err
	}

	if err := G.Let(p.loss.actions, tensor.New(
		tensor.WithShape(b.Size, b.NActions),
		tensor.WithBacking(b.OneHot),
	)); err != nil {
		return fmt.Errorf("could not set actions: %v", err)
	}
	if err := letVector(p.loss.returns, b.Returns); err != nil {
		return fmt.Errorf("could not set returns: %v", err)
	}

	if p.loss.advantages != nil {
		values, err := p.critic.PredictBatch(b.States, b.Size)
		if err != nil {
			return fmt.Errorf("could not predict values: %v", err)
		}
		for i := range p.advantages {
			p.advantages[i] = b.Returns[i] - values[i]
		}
		if err := letVector(p.loss.advantages, p.advantages); err != nil {
			return fmt.Errorf("could not set advantages: %v", err)
		}
	}

	if p.loss.oldLogProbs != nil {
		for i := range p.oldLogProbs {
			p.oldLogProbs[i] = math.Log(math.Max(b.OldSelected(i),
				logEpsilon))
		}
		if err := letVector(p.loss.oldLogProbs, p.oldLogProbs); err != nil {
			return fmt.Errorf("could not set old log probabilities: %v", err)
		}
	}
	return nil
}

func letVector(node *G.Node, data []float64) error {
	return G.Let(node, tensor.New(
		tensor.WithShape(len(data)),
		tensor.WithBacking(data),
	))
}

// ExportWeights returns copies of the actor and critic weights
func (p *PG) ExportWeights() (actor, critic []network.Blob, err error) {
	if actor, err = network.Export(p.trainActor); err != nil {
		return nil, nil, fmt.Errorf("exportWeights: actor: %v", err)
	}
	if critic, err = network.Export(p.trainCritic); err != nil {
		return nil, nil, fmt.Errorf("exportWeights: critic: %v", err)
	}
	return actor, critic, nil
}

// ImportWeights replaces the actor and critic weights. Either may be
// nil to keep the current weights of that network.
func (p *PG) ImportWeights(actor, critic []network.Blob) error {
	if actor != nil {
		if err := network.Import(p.trainActor, actor); err != nil {
			return fmt.Errorf("importWeights: actor: %v", err)
		}
		p.behaviour.Sync()
	}
	if critic != nil {
		if err := network.Import(p.trainCritic, critic); err != nil {
			return fmt.Errorf("importWeights: critic: %v", err)
		}
		p.critic.Sync()
	}
	return nil
}

// Close releases the VMs of the learner
func (p *PG) Close() error {
	err := p.vm.Close()
	if behaviourErr := p.behaviour.Close(); err == nil {
		err = behaviourErr
	}
	if criticErr := p.critic.Close(); err == nil {
		err = criticErr
	}
	return err
}

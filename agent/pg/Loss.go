package pg

import (
	"fmt"

	"github.com/samuelfneumann/dronerl/utils/op"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// logEpsilon is added to probabilities before taking logarithms
const logEpsilon = 1e-8

// lossGraph holds the input and output nodes of the training loss on
// a minibatch of B samples. Inputs which the algorithm does not use
// are nil.
type lossGraph struct {
	actions     *G.Node // B x actions, one-hot
	returns     *G.Node // B, normalised returns
	advantages  *G.Node // B, detached advantages
	oldLogProbs *G.Node // B, rollout-time log probability of actions

	total   *G.Node
	policy  *G.Node
	value   *G.Node
	entropy *G.Node

	totalVal   G.Value
	policyVal  G.Value
	valueVal   G.Value
	entropyVal G.Value
}

// newLossGraph adds the loss to the graph shared by the actor's logits
// and the critic's values
func newLossGraph(c Config, logits, values *G.Node) (*lossGraph, error) {
	g := logits.Graph()
	if values.Graph() != g {
		return nil, fmt.Errorf("newLossGraph: actor and critic must share " +
			"a graph")
	}
	batch, numActions := logits.Shape()[0], logits.Shape()[1]
	l := &lossGraph{}

	l.actions = G.NewMatrix(
		g,
		tensor.Float64,
		G.WithShape(batch, numActions),
		G.WithName("actionIndices"),
		G.WithInit(G.Zeroes()),
	)
	l.returns = newInputVector(g, batch, "returns")

	logProbs, err := op.LogSoftMax(logits)
	if err != nil {
		return nil, fmt.Errorf("newLossGraph: could not compute log "+
			"probabilities: %v", err)
	}
	probs := G.Must(G.Exp(logProbs))
	logProbSelected, err := op.SelectRows(logProbs, l.actions)
	if err != nil {
		return nil, fmt.Errorf("newLossGraph: could not select log "+
			"probabilities: %v", err)
	}

	// Critic loss on the residual returns - values
	predictions := G.Must(G.Reshape(values, tensor.Shape{batch}))
	residual := G.Must(G.Sub(l.returns, predictions))
	l.value = G.Must(G.Sum(G.Must(G.Square(residual))))

	// -Σ p log(p + ε)
	logSmoothed := G.Must(G.Log(G.Must(G.Add(probs,
		G.NewConstant(logEpsilon)))))
	l.entropy = G.Must(G.Neg(G.Must(G.Sum(G.Must(G.HadamardProd(probs,
		logSmoothed))))))

	switch c.Algorithm {
	case REINFORCE:
		weighted := G.Must(G.HadamardProd(logProbSelected, l.returns))
		l.policy = G.Must(G.Neg(G.Must(G.Sum(weighted))))

	case A2C:
		l.advantages = newInputVector(g, batch, "advantages")
		weighted := G.Must(G.HadamardProd(logProbSelected, l.advantages))
		l.policy = G.Must(G.Neg(G.Must(G.Sum(weighted))))

	case PPO:
		l.advantages = newInputVector(g, batch, "advantages")
		l.oldLogProbs = newInputVector(g, batch, "oldLogProbs")
		if l.policy, err = clippedSurrogate(logProbSelected, l.oldLogProbs,
			l.advantages, c.PPOEpsilon); err != nil {
			return nil, fmt.Errorf("newLossGraph: could not compute "+
				"clipped surrogate: %v", err)
		}

	default:
		return nil, fmt.Errorf("newLossGraph: unknown algorithm %q",
			c.Algorithm)
	}

	terms := G.Nodes{
		G.Must(G.Mul(G.NewConstant(c.PolicyCoef), l.policy)),
		G.Must(G.Mul(G.NewConstant(c.ValueCoef), l.value)),
		G.Must(G.Mul(G.NewConstant(c.EntropyCoef), l.entropy)),
	}
	if l.total, err = G.ReduceAdd(terms); err != nil {
		return nil, fmt.Errorf("newLossGraph: could not compute total "+
			"loss: %v", err)
	}

	G.Read(l.total, &l.totalVal)
	G.Read(l.policy, &l.policyVal)
	G.Read(l.value, &l.valueVal)
	G.Read(l.entropy, &l.entropyVal)

	return l, nil
}

// clippedSurrogate returns -Σ min(ρ A, clip(ρ, 1-ε, 1+ε) A) where
// ρ = exp(log π - log π_old)
func clippedSurrogate(logProbs, oldLogProbs, advantages *G.Node,
	epsilon float64) (*G.Node, error) {
	ratio, err := G.Sub(logProbs, oldLogProbs)
	if err != nil {
		return nil, err
	}
	if ratio, err = G.Exp(ratio); err != nil {
		return nil, err
	}

	clipped, err := op.Clip(ratio, 1-epsilon, 1+epsilon)
	if err != nil {
		return nil, err
	}

	unclippedObj, err := G.HadamardProd(ratio, advantages)
	if err != nil {
		return nil, err
	}
	clippedObj, err := G.HadamardProd(clipped, advantages)
	if err != nil {
		return nil, err
	}

	objective, err := op.Min(unclippedObj, clippedObj)
	if err != nil {
		return nil, err
	}
	sum, err := G.Sum(objective)
	if err != nil {
		return nil, err
	}
	return G.Neg(sum)
}

func newInputVector(g *G.ExprGraph, size int, name string) *G.Node {
	return G.NewVector(
		g,
		tensor.Float64,
		G.WithShape(size),
		G.WithName(name),
		G.WithInit(G.Zeroes()),
	)
}

// scalar returns the float64 held by a scalar graph value
func scalar(v G.Value) float64 {
	if v == nil {
		return 0
	}
	switch data := v.Data().(type) {
	case float64:
		return data
	case []float64:
		if len(data) > 0 {
			return data[0]
		}
	}
	return 0
}

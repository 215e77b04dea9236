package pg

import (
	"fmt"
	"math"
	"strings"

	"github.com/samuelfneumann/dronerl/initwfn"
	"github.com/samuelfneumann/dronerl/network"
)

// Algorithm describes a policy gradient loss
type Algorithm string

// Available algorithms
const (
	REINFORCE Algorithm = "REINFORCE"
	A2C       Algorithm = "A2C"
	PPO       Algorithm = "PPO"
)

// ParseAlgorithm returns the Algorithm with the given name, ignoring
// case
func ParseAlgorithm(name string) (Algorithm, error) {
	for _, a := range []Algorithm{REINFORCE, A2C, PPO} {
		if strings.EqualFold(name, string(a)) {
			return a, nil
		}
	}
	return "", fmt.Errorf("parseAlgorithm: unknown algorithm %q", name)
}

// Config implements a configuration of the policy gradient learner.
// The actor has two hidden layers of ActorHidden and ActorHidden/2
// units, and the critic a single hidden layer of CriticHidden units.
// All hidden layers use the Activation named by Activation.
type Config struct {
	Algorithm    Algorithm `json:"algorithm" yaml:"algorithm" mapstructure:"algorithm"`
	ActorHidden  int       `json:"actor_hidden" yaml:"actor_hidden" mapstructure:"actor_hidden"`
	CriticHidden int       `json:"critic_hidden" yaml:"critic_hidden" mapstructure:"critic_hidden"`
	Activation   string    `json:"activation" yaml:"activation" mapstructure:"activation"`
	LearningRate float64   `json:"learning_rate" yaml:"learning_rate" mapstructure:"learning_rate"`

	PolicyCoef  float64 `json:"policy_coef" yaml:"policy_coef" mapstructure:"policy_coef"`
	ValueCoef   float64 `json:"value_coef" yaml:"value_coef" mapstructure:"value_coef"`
	EntropyCoef float64 `json:"entropy_coef" yaml:"entropy_coef" mapstructure:"entropy_coef"`
	PPOEpsilon  float64 `json:"ppo_epsilon" yaml:"ppo_epsilon" mapstructure:"ppo_epsilon"`

	BatchSize int             `json:"batch_size" yaml:"batch_size" mapstructure:"batch_size"`
	InitWFn   initwfn.InitWFn `json:"init" yaml:"init" mapstructure:"init"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		Algorithm:    A2C,
		ActorHidden:  400,
		CriticHidden: 128,
		Activation:   "relu",
		LearningRate: 5e-4,
		PolicyCoef:   1,
		ValueCoef:    1,
		EntropyCoef:  0.005,
		PPOEpsilon:   0.2,
		BatchSize:    1024,
		InitWFn:      initwfn.NewGlorotU(1),
	}
}

// Validate checks a Config for errors
func (c Config) Validate() error {
	switch c.Algorithm {
	case REINFORCE, A2C, PPO:
	default:
		return fmt.Errorf("validate: unknown algorithm %q", c.Algorithm)
	}
	if c.ActorHidden < 2 {
		return fmt.Errorf("validate: actor hidden size must be at least 2"+
			"\n\thave(%v)", c.ActorHidden)
	}
	if c.CriticHidden < 1 {
		return fmt.Errorf("validate: critic hidden size must be positive"+
			"\n\thave(%v)", c.CriticHidden)
	}
	if _, err := network.ParseActivation(c.Activation); err != nil {
		return fmt.Errorf("validate: %v", err)
	}
	if c.LearningRate <= 0 || math.IsInf(c.LearningRate, 0) ||
		math.IsNaN(c.LearningRate) {
		return fmt.Errorf("validate: learning rate must be positive and "+
			"finite\n\thave(%v)", c.LearningRate)
	}
	for name, coef := range map[string]float64{
		"policy":  c.PolicyCoef,
		"value":   c.ValueCoef,
		"entropy": c.EntropyCoef,
	} {
		if math.IsInf(coef, 0) || math.IsNaN(coef) {
			return fmt.Errorf("validate: %v coefficient must be finite", name)
		}
	}
	if c.Algorithm == PPO && (c.PPOEpsilon <= 0 || c.PPOEpsilon >= 1) {
		return fmt.Errorf("validate: PPO epsilon must be in (0, 1)"+
			"\n\thave(%v)", c.PPOEpsilon)
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("validate: batch size must be positive\n\thave(%v)",
			c.BatchSize)
	}
	if err := c.InitWFn.Validate(); err != nil {
		return fmt.Errorf("validate: %v", err)
	}
	return nil
}

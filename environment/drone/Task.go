package drone

import (
	env "github.com/samuelfneumann/dronerl/environment"
	ts "github.com/samuelfneumann/dronerl/timestep"
)

// Outcome summarises the geometry of a single step, which the Navigate
// task turns into a reward and an episode ending
type Outcome struct {
	Distance      float64 `json:"distance"`      // Distance to the goal after the step
	StartDistance float64 `json:"startDistance"` // Distance to the goal at the start of the episode
	GettingCloser float64 `json:"gettingCloser"` // Progress towards the goal per unit step length

	// SensorIncrease is the sum of the normalised sensor changes and
	// SensorIncreaseClipped the sum of only the increases
	SensorIncrease        float64 `json:"sensorIncrease"`
	SensorIncreaseClipped float64 `json:"sensorIncreaseClipped"`

	// Alignment is the cosine between the action and the direction to
	// the goal, zero for the hold action
	Alignment float64 `json:"alignment"`

	Crashed     bool `json:"crashed"`     // The drone overlaps some obstacle or wall
	BeyondWalls bool `json:"beyondWalls"` // The drone is past the wall threshold
}

// WallBounce returns whether the crash happened at the arena boundary
func (o Outcome) WallBounce() bool {
	return o.Crashed && o.BeyondWalls
}

// Navigate is the task of flying to the goal without crashing
type Navigate struct {
	config    Config
	stepLimit env.Ender
}

// NewNavigate returns a new Navigate task
func NewNavigate(c Config) Navigate {
	return Navigate{
		config:    c,
		stepLimit: env.NewStepLimit(c.MaxSteps),
	}
}

// AtGoal returns whether the outcome is within the goal threshold
func (n Navigate) AtGoal(o Outcome) bool {
	return o.Distance < n.config.GoalThreshold
}

// GetReward returns the reward for an outcome.
//
// A wall bounce is given the obstacle penalty, the same as an interior
// crash, even though the two end the episode differently.
func (n Navigate) GetReward(o Outcome) float64 {
	switch {
	case n.AtGoal(o):
		return n.config.GoalReward
	case o.Crashed:
		return n.config.HitObstaclePenalty
	}
	return n.Shaped(o)
}

// Shaped returns the dense reward used when no terminal event occurred
func (n Navigate) Shaped(o Outcome) float64 {
	c := n.config
	return c.DistancePenalty*o.Distance/o.StartDistance +
		c.DirectionReward*o.GettingCloser +
		c.ProximitySensorPenalty*o.SensorIncrease
}

// End determines whether the outcome ends the episode, marking t as
// the last step with the reason if so
func (n Navigate) End(t *ts.TimeStep, o Outcome) bool {
	switch {
	case n.AtGoal(o):
		t.SetEnd(ts.GoalReached)
		return true
	case o.WallBounce():
		t.SetEnd(ts.WallBounce)
		return true
	case o.Crashed:
		t.SetEnd(ts.ObstacleHit)
		return true
	}
	return n.stepLimit.End(t)
}

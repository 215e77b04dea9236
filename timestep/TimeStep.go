// Package timestep implements timesteps of the agent-environment interaction
package timestep

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// StepType denotes the type of step that a TimeStep can be, either  first
// environmental step, a middle step, or a last step
type StepType int

const (
	First StepType = iota
	Mid
	Last
)

func (s StepType) String() string {
	switch s {
	case First:
		return "First"
	case Last:
		return "Last"
	default:
		return "Mid"
	}
}

// EndType describes why an episode ended
type EndType int

const (
	// Running denotes a TimeStep that did not end its episode
	Running EndType = iota

	// GoalReached denotes that the drone came within the goal threshold
	GoalReached

	// ObstacleHit denotes a crash into an interior obstacle
	ObstacleHit

	// WallBounce denotes a crash into one of the arena walls
	WallBounce

	// Timeout denotes that the episode hit the step cap
	Timeout

	// Forced denotes an episode ended by the host
	Forced
)

func (e EndType) String() string {
	switch e {
	case GoalReached:
		return "GoalReached"
	case ObstacleHit:
		return "ObstacleHit"
	case WallBounce:
		return "WallBounce"
	case Timeout:
		return "Timeout"
	case Forced:
		return "Forced"
	default:
		return "Running"
	}
}

// TimeStep packages together a single timestep in an environment
type TimeStep struct {
	StepType
	Reward      float64
	Discount    float64
	Observation *mat.VecDense
	Number      int

	end EndType
}

// New returns a new TimeStep
func New(t StepType, r, d float64, o *mat.VecDense, n int) TimeStep {
	return TimeStep{
		StepType:    t,
		Reward:      r,
		Discount:    d,
		Observation: o,
		Number:      n,
	}
}

// First returns whether a TimeStep is the first in an environment
func (t *TimeStep) First() bool {
	return t.StepType == First
}

// Mid returns whether a TimeStep is a middle step in an environment
func (t *TimeStep) Mid() bool {
	return t.StepType == Mid
}

// Last returns whether a TimeStep is the last step in an environment
func (t *TimeStep) Last() bool {
	return t.StepType == Last
}

// SetEnd marks the TimeStep as the last in its episode for reason e
func (t *TimeStep) SetEnd(e EndType) {
	t.StepType = Last
	t.end = e
}

// EndType returns why the episode ended on this TimeStep. Running is
// returned for TimeSteps that are not last.
func (t *TimeStep) EndType() EndType {
	return t.end
}

func (t TimeStep) String() string {
	str := "TimeStep | Type: %v  |  Reward:  %.2f  |  Discount: %.2f  |  " +
		"Step Number:  %v  |  End: %v"

	return fmt.Sprintf(str, t.StepType, t.Reward, t.Discount, t.Number,
		t.end)
}

package environment

import ts "github.com/samuelfneumann/dronerl/timestep"

var _ Ender = StepLimit{}

// StepLimit ends episodes with a Timeout once they reach a fixed
// number of steps
type StepLimit struct {
	limit int
}

// NewStepLimit returns an Ender that caps episodes at limit steps
func NewStepLimit(limit int) StepLimit {
	return StepLimit{limit: limit}
}

// End marks t as the last step of its episode if t has reached the cap
func (s StepLimit) End(t *ts.TimeStep) bool {
	if t.Number < s.limit {
		return false
	}
	t.SetEnd(ts.Timeout)
	return true
}

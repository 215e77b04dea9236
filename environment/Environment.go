// Package environment outlines the interfaces and structs needed to
// implement concrete environments
package environment

import (
	ts "github.com/samuelfneumann/dronerl/timestep"
	"gonum.org/v1/gonum/mat"
)

// Starter implements a distribution of starting positions and samples
// from it
type Starter interface {
	Start() *mat.VecDense
}

// Ender determines when an episode should end. If the episode should
// end, End modifies the TimeStep so that it is the last in the episode.
type Ender interface {
	End(*ts.TimeStep) bool
}

// Environment implements a simulated environment
type Environment interface {
	// Reset starts a new episode and returns its first TimeStep
	Reset() (ts.TimeStep, error)

	// Step takes one action in the environment, returning the next
	// TimeStep and whether the episode has ended
	Step(action *mat.VecDense) (ts.TimeStep, bool, error)

	// CurrentTimeStep returns the most recent TimeStep
	CurrentTimeStep() ts.TimeStep

	ObservationSpec() Spec
	ActionSpec() Spec
}

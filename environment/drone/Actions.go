package drone

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
)

// NumActions is the number of discrete actions
const NumActions = 7

// actionTable maps discrete action indices to directions of travel.
// Index 0 holds position.
var actionTable = [NumActions]r3.Vec{
	{},
	{X: 1}, {X: -1},
	{Y: 1}, {Y: -1},
	{Z: 1}, {Z: -1},
}

// Action returns the direction of travel of a discrete action
func Action(index int) r3.Vec {
	if index < 0 || index >= NumActions {
		panic(fmt.Sprintf("action: index %d out of range [0, %d)", index,
			NumActions))
	}
	return actionTable[index]
}

// ActionVec returns the direction of travel of a discrete action as a
// vector that can be passed to Step
func ActionVec(index int) *mat.VecDense {
	a := Action(index)
	return mat.NewVecDense(3, []float64{a.X, a.Y, a.Z})
}

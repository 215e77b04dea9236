package environment

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// SpecType tells whether a Spec describes actions or observations
type SpecType int

const (
	Action SpecType = iota
	Observation
)

func (s SpecType) String() string {
	if s == Action {
		return "Action"
	}
	return "Observation"
}

// Cardinality tells whether the values a Spec describes are discrete or
// continuous
type Cardinality string

const (
	Continuous Cardinality = "Continuous"
	Discrete   Cardinality = "Discrete"
)

// Spec describes the bounds of each feature of an action or
// observation vector
type Spec struct {
	Type SpecType
	Cardinality
	Low  *mat.VecDense
	High *mat.VecDense
}

// NewSpec returns a Spec with the given per-feature bounds, which must
// have equal lengths and satisfy low[i] <= high[i]
func NewSpec(t SpecType, low, high *mat.VecDense,
	cardinality Cardinality) Spec {
	if low.Len() != high.Len() {
		panic(fmt.Sprintf("newSpec: %v bounds of different lengths %v and %v",
			t, low.Len(), high.Len()))
	}
	for i := 0; i < low.Len(); i++ {
		if low.AtVec(i) > high.AtVec(i) {
			panic(fmt.Sprintf("newSpec: %v feature %d has low bound %v "+
				"above high bound %v", t, i, low.AtVec(i), high.AtVec(i)))
		}
	}
	return Spec{Type: t, Cardinality: cardinality, Low: low, High: high}
}

// NewBoxSpec returns a Spec of n features that each lie in [low, high]
func NewBoxSpec(n int, t SpecType, low, high float64,
	cardinality Cardinality) Spec {
	lower := mat.NewVecDense(n, nil)
	upper := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		lower.SetVec(i, low)
		upper.SetVec(i, high)
	}
	return NewSpec(t, lower, upper, cardinality)
}

// Len returns the number of features the Spec describes
func (s Spec) Len() int {
	return s.Low.Len()
}

// Contains returns whether v has the right length and lies within the
// bounds of the Spec
func (s Spec) Contains(v mat.Vector) bool {
	if v.Len() != s.Len() {
		return false
	}
	for i := 0; i < v.Len(); i++ {
		if x := v.AtVec(i); x < s.Low.AtVec(i) || x > s.High.AtVec(i) {
			return false
		}
	}
	return true
}

// Package geometry implements the small amount of 3D geometry needed by
// the drone arena: axis-aligned boxes, box faces and closest-point
// queries. All functions are pure.
package geometry

import (
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/gonum/stat/distuv"
)

// Norm returns the Euclidean length of v
func Norm(v r3.Vec) float64 {
	return math.Sqrt(v.Dot(v))
}

// Distance returns the Euclidean distance between a and b
func Distance(a, b r3.Vec) float64 {
	return Norm(a.Sub(b))
}

// Unit returns v scaled to unit length. The zero vector is returned
// unchanged.
func Unit(v r3.Vec) r3.Vec {
	n := Norm(v)
	if n == 0 {
		return r3.Vec{}
	}
	return v.Scale(1 / n)
}

// Angle returns the angle in radians between a and b. If either vector
// has zero length, π/2 is returned so that the vectors are treated as
// orthogonal.
func Angle(a, b r3.Vec) float64 {
	na, nb := Norm(a), Norm(b)
	if na == 0 || nb == 0 {
		return math.Pi / 2
	}
	cos := a.Dot(b) / (na * nb)

	// Rounding can push |cos| slightly past 1
	cos = math.Max(-1, math.Min(1, cos))
	return math.Acos(cos)
}

// Slice returns v as a []float64 of length 3
func Slice(v r3.Vec) []float64 {
	return []float64{v.X, v.Y, v.Z}
}

// CenteredRandom samples a value uniformly in [-scale/2, scale/2)
type CenteredRandom struct {
	dist distuv.Uniform
}

// NewCenteredRandom returns a new CenteredRandom sampler of the given
// width using src as the source of randomness.
func NewCenteredRandom(scale float64, src rand.Source) CenteredRandom {
	return CenteredRandom{
		dist: distuv.Uniform{Min: -scale / 2, Max: scale / 2, Src: src},
	}
}

// Rand samples a single value
func (c CenteredRandom) Rand() float64 {
	return c.dist.Rand()
}

// Vec samples each coordinate of a vector independently
func (c CenteredRandom) Vec() r3.Vec {
	return r3.Vec{X: c.dist.Rand(), Y: c.dist.Rand(), Z: c.dist.Rand()}
}

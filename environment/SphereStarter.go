package environment

import (
	"golang.org/x/exp/rand"

	"github.com/samuelfneumann/dronerl/utils/geometry"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/gonum/stat/distmv"
)

var _ Starter = SphereStarter{}

// SphereStarter samples starting positions uniformly on the surface of
// a sphere. Directions are drawn from an isotropic Gaussian so that
// they are uniform over the sphere.
type SphereStarter struct {
	radius float64
	rand   *distmv.Normal
}

// NewSphereStarter returns a new SphereStarter for spheres of the
// given radius
func NewSphereStarter(radius float64, seed uint64) SphereStarter {
	source := rand.NewSource(seed)
	sigma := mat.NewSymDense(3, []float64{1, 0, 0, 0, 1, 0, 0, 0, 1})

	normal, ok := distmv.NewNormal(make([]float64, 3), sigma, source)
	if !ok {
		panic("newSphereStarter: identity covariance is not positive " +
			"definite")
	}

	return SphereStarter{radius, normal}
}

// Direction samples a unit vector uniformly over the sphere
func (s SphereStarter) Direction() r3.Vec {
	for {
		d := s.rand.Rand(nil)
		v := r3.Vec{X: d[0], Y: d[1], Z: d[2]}
		if geometry.Norm(v) > 0 {
			return geometry.Unit(v)
		}
	}
}

// Around samples a point on the sphere centred at c
func (s SphereStarter) Around(c r3.Vec) r3.Vec {
	return c.Add(s.Direction().Scale(s.radius))
}

// Start samples a point on the sphere centred at the origin
func (s SphereStarter) Start() *mat.VecDense {
	return mat.NewVecDense(3, geometry.Slice(s.Around(r3.Vec{})))
}

package environment

import (
	"math"
	"testing"

	"github.com/samuelfneumann/dronerl/utils/geometry"
	ts "github.com/samuelfneumann/dronerl/timestep"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
)

func TestSphereStarter(t *testing.T) {
	s := NewSphereStarter(15, 42)
	centre := r3.Vec{X: 1, Y: 2, Z: 3}

	var mean r3.Vec
	n := 2000
	for i := 0; i < n; i++ {
		p := s.Around(centre)
		if d := geometry.Distance(p, centre); math.Abs(d-15) > 1e-9 {
			t.Fatalf("Around: want distance 15 have(%v)", d)
		}
		mean = mean.Add(s.Direction())
	}

	// Directions are uniform over the sphere, so their mean is close
	// to the origin
	mean = mean.Scale(1 / float64(n))
	if geometry.Norm(mean) > 0.1 {
		t.Errorf("Direction: mean direction too far from origin: %v", mean)
	}

	start := s.Start()
	if start.Len() != 3 || math.Abs(mat.Norm(start, 2)-15) > 1e-9 {
		t.Errorf("Start: want 3-vector of norm 15 have %v", start)
	}
}

func TestStepLimit(t *testing.T) {
	limit := NewStepLimit(3)
	step := ts.New(ts.Mid, 0, 1, mat.NewVecDense(1, nil), 2)

	if limit.End(&step) {
		t.Fatalf("End: ended at step 2 with limit 3")
	}

	step.Number = 3
	if !limit.End(&step) {
		t.Fatalf("End: did not end at step 3 with limit 3")
	}
	if !step.Last() || step.EndType() != ts.Timeout {
		t.Errorf("End: want last timeout step have %v", step)
	}
}

func TestNewSpecPanics(t *testing.T) {
	tests := map[string]struct {
		low, high *mat.VecDense
	}{
		"length":   {mat.NewVecDense(1, nil), mat.NewVecDense(2, nil)},
		"inverted": {mat.NewVecDense(1, []float64{1}), mat.NewVecDense(1, nil)},
	}
	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			defer func() {
				if recover() == nil {
					t.Errorf("NewSpec: expected panic")
				}
			}()
			NewSpec(Observation, test.low, test.high, Continuous)
		})
	}
}

func TestBoxSpec(t *testing.T) {
	s := NewBoxSpec(9, Observation, -1, 1, Continuous)
	if s.Len() != 9 || s.Low.AtVec(8) != -1 || s.High.AtVec(0) != 1 {
		t.Errorf("NewBoxSpec: unexpected spec %+v", s)
	}

	inside := mat.NewVecDense(9, nil)
	if !s.Contains(inside) {
		t.Errorf("Contains: zero vector should be inside")
	}
	inside.SetVec(4, 1.5)
	if s.Contains(inside) {
		t.Errorf("Contains: vector outside bounds reported inside")
	}
	if s.Contains(mat.NewVecDense(3, nil)) {
		t.Errorf("Contains: vector of wrong length reported inside")
	}
}

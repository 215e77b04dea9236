package drone

import (
	"math"

	"github.com/samuelfneumann/dronerl/utils/geometry"
	"gonum.org/v1/gonum/spatial/r3"
)

// Sensor indexes one of the six proximity sensors
type Sensor int

// The sensors, in the order they appear in observations
const (
	Left Sensor = iota
	Right
	Front
	Back
	Below
	Above
)

// NumSensors is the number of proximity sensors on the drone
const NumSensors = 6

// SensorCone is the half-angle, in radians, of the cone a sensor sees
const SensorCone = math.Pi / 3

var sensorNames = [NumSensors]string{
	"left", "right", "front", "back", "below", "above",
}

func (s Sensor) String() string {
	if s < 0 || int(s) >= NumSensors {
		return "unknown"
	}
	return sensorNames[s]
}

// Direction returns the unit direction the sensor casts along
func (s Sensor) Direction() r3.Vec {
	switch s {
	case Left:
		return r3.Vec{X: -1}
	case Right:
		return r3.Vec{X: 1}
	case Front:
		return r3.Vec{Z: 1}
	case Back:
		return r3.Vec{Z: -1}
	case Below:
		return r3.Vec{Y: -1}
	case Above:
		return r3.Vec{Y: 1}
	}
	panic("direction: unknown sensor")
}

// Anchor returns where the sensor sits on a drone of the given size
// centred at position. Side sensors sit on the drone's side faces, the
// vertical sensors sit on its thin top and bottom.
func (s Sensor) Anchor(position r3.Vec, droneSize float64) r3.Vec {
	switch s {
	case Left, Right, Front, Back:
		return position.Add(s.Direction().Scale(droneSize / 2))
	default:
		return position.Add(s.Direction().Scale(0.05 * droneSize))
	}
}

// SensorDistance returns the distance from anchor to the nearest
// obstacle face point inside the sensor cone around direction. If no
// face point lies inside the cone, +Inf is returned.
func SensorDistance(anchor, direction r3.Vec,
	obstacles []geometry.Box) float64 {
	min := math.Inf(1)

	for i := range obstacles {
		faces := obstacles[i].Faces()
		for j := range faces {
			closest := geometry.ClosestPointOnFace(anchor, faces[j])
			toClosest := closest.Sub(anchor)
			d := geometry.Norm(toClosest)

			// Contact counts regardless of direction
			if d > 0 && geometry.Angle(direction, toClosest) >= SensorCone {
				continue
			}
			if d < min {
				min = d
			}
		}
	}
	return min
}

// SensorReading converts a sensor distance into a reading in [0, 1]:
// 1 at contact, 0 at or beyond maxDistance.
func SensorReading(distance, maxDistance float64) float64 {
	if math.IsInf(distance, 1) {
		return 0
	}
	return 1 - math.Min(distance, maxDistance)/maxDistance
}

// readSensors fills readings with the sensor readings of a drone
func readSensors(readings *[NumSensors]float64, position r3.Vec,
	obstacles []geometry.Box, c Config) {
	for i := 0; i < NumSensors; i++ {
		s := Sensor(i)
		d := SensorDistance(s.Anchor(position, c.DroneSize), s.Direction(),
			obstacles)
		readings[i] = SensorReading(d, c.MaxSensorDistance)
	}
}

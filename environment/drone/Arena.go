package drone

import (
	"math"

	"github.com/samuelfneumann/dronerl/logger"
	"github.com/samuelfneumann/dronerl/utils/geometry"
	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/spatial/r3"
)

// WallThickness is the thickness of the six arena walls
const WallThickness = 0.02

// WallThreshold is the fraction of the half-arena beyond which a crash
// counts as a bounce off a wall
const WallThreshold = 0.99

// Walls returns the six boundary walls of a cubic arena of the given
// size centred at the origin.
func Walls(size float64) []geometry.Box {
	half := size / 2
	floor := r3.Vec{X: size, Y: WallThickness, Z: size}
	side := r3.Vec{X: WallThickness, Y: size, Z: size}
	end := r3.Vec{X: size, Y: size, Z: WallThickness}

	return []geometry.Box{
		geometry.NewWall(r3.Vec{Y: -half}, floor),
		geometry.NewWall(r3.Vec{Y: half}, floor),
		geometry.NewWall(r3.Vec{X: -half}, side),
		geometry.NewWall(r3.Vec{X: half}, side),
		geometry.NewWall(r3.Vec{Z: -half}, end),
		geometry.NewWall(r3.Vec{Z: half}, end),
	}
}

// crashBox returns the box used for collision tests of a drone at
// position: droneSize wide and deep but only 0.2 droneSize tall.
func crashBox(position r3.Vec, droneSize float64) geometry.Box {
	return geometry.NewBox(position, r3.Vec{
		X: droneSize,
		Y: 0.2 * droneSize,
		Z: droneSize,
	})
}

// didCrash returns whether a drone at position overlaps any obstacle
func didCrash(position r3.Vec, droneSize float64,
	obstacles []geometry.Box) bool {
	box := crashBox(position, droneSize)
	for i := range obstacles {
		if geometry.Overlaps(box, obstacles[i]) {
			return true
		}
	}
	return false
}

// beyondWalls returns whether position lies past WallThreshold of the
// half-arena along any axis
func beyondWalls(position r3.Vec, arenaSize float64) bool {
	limit := WallThreshold * arenaSize / 2
	return math.Abs(position.X) > limit ||
		math.Abs(position.Y) > limit ||
		math.Abs(position.Z) > limit
}

// placeObstacles appends up to c.NumberOfBlocks interior obstacles to
// obstacles by rejection sampling. A candidate is rejected if it would
// enclose the drone or the goal. If the iteration budget runs out, a
// warning is logged and the obstacles placed so far are kept.
func (d *Drone) placeObstacles(obstacles []geometry.Box) []geometry.Box {
	placed := 0
	iterations := 0
	for placed < d.config.NumberOfBlocks &&
		iterations < d.config.MaxPlacementIterations {
		iterations++

		size := d.sizeRand.Vec()
		size = r3.Vec{
			X: math.Abs(size.X),
			Y: math.Abs(size.Y),
			Z: math.Abs(size.Z),
		}
		candidate := geometry.NewBox(d.centerRand.Vec(), size)

		clearance := math.Max(d.config.DroneSize, candidate.Radius())
		if geometry.Distance(candidate.Center, d.position) <= clearance ||
			geometry.Distance(candidate.Center, d.goal) <= clearance {
			continue
		}

		obstacles = append(obstacles, candidate)
		placed++
	}

	if placed < d.config.NumberOfBlocks {
		logger.GetLogger().WithFields(logrus.Fields{
			"placed":     placed,
			"requested":  d.config.NumberOfBlocks,
			"iterations": iterations,
		}).Warn("could not place all obstacles")
	}

	return obstacles
}

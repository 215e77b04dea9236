// Package drone implements a point drone flying through a cubic arena
// of box obstacles towards a goal.
//
// Observations have 9 features: the unit vector from the drone to the
// goal followed by the six proximity sensor readings (left, right,
// front, back, below, above). Actions are 3-vectors giving the
// direction of travel; the drone moves Speed * StepSize along the
// action on every step.
package drone

import (
	"fmt"

	"golang.org/x/exp/rand"

	env "github.com/samuelfneumann/dronerl/environment"
	ts "github.com/samuelfneumann/dronerl/timestep"
	"github.com/samuelfneumann/dronerl/utils/floatutils"
	"github.com/samuelfneumann/dronerl/utils/geometry"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
)

// ObservationSize is the number of features in an observation
const ObservationSize = 3 + NumSensors

var _ env.Environment = (*Drone)(nil)

// Drone implements the drone arena environment
type Drone struct {
	Navigate
	config Config

	position r3.Vec
	goal     r3.Vec

	// Walls first, then interior obstacles; the backing array is reused
	// between episodes
	obstacles []geometry.Box

	sensors      [NumSensors]float64
	lastSensors  [NumSensors]float64
	lastPosition r3.Vec

	startDistance float64
	stepCounter   int
	currentStep   ts.TimeStep
	lastOutcome   Outcome

	goalStarter env.SphereStarter
	sizeRand    geometry.CenteredRandom
	centerRand  geometry.CenteredRandom
}

// New creates a new drone environment and returns it along with the
// first TimeStep of its first episode
func New(c Config, seed uint64) (*Drone, ts.TimeStep, error) {
	if err := c.Validate(); err != nil {
		return nil, ts.TimeStep{}, fmt.Errorf("new: invalid config: %v", err)
	}

	source := rand.NewSource(seed)
	d := &Drone{
		Navigate:    NewNavigate(c),
		config:      c,
		obstacles:   make([]geometry.Box, 0, 6+c.NumberOfBlocks),
		goalStarter: env.NewSphereStarter(c.ArenaSize/2, seed+1),
		sizeRand:    geometry.NewCenteredRandom(c.MaxObstacleSize, source),
		centerRand:  geometry.NewCenteredRandom(c.ArenaSize/2, source),
	}

	step, err := d.Reset()
	if err != nil {
		return nil, ts.TimeStep{}, fmt.Errorf("new: could not reset: %v", err)
	}
	return d, step, nil
}

// Reset starts a new episode: the drone is placed at the centre of the
// arena, a new goal is sampled and a new obstacle layout is generated.
func (d *Drone) Reset() (ts.TimeStep, error) {
	d.position = r3.Vec{}
	d.goal = d.goalStarter.Around(d.position)

	d.obstacles = append(d.obstacles[:0], Walls(d.config.ArenaSize)...)
	d.obstacles = d.placeObstacles(d.obstacles)

	d.sensors = [NumSensors]float64{}
	d.lastSensors = [NumSensors]float64{}
	d.lastPosition = d.position
	d.startDistance = geometry.Distance(d.position, d.goal)
	d.stepCounter = 0
	d.lastOutcome = Outcome{}

	obs := mat.NewVecDense(ObservationSize, nil)
	d.fillObservation(obs, [NumSensors]float64{})

	d.currentStep = ts.New(ts.First, 0, 1, obs, 0)
	return d.currentStep, nil
}

// Step takes a single step in the environment. The action must be a
// 3-vector.
func (d *Drone) Step(action *mat.VecDense) (ts.TimeStep, bool, error) {
	if action.Len() != 3 {
		return ts.TimeStep{}, false, fmt.Errorf("step: actions must be "+
			"3-dimensional but got %v", action.Len())
	}
	a := r3.Vec{X: action.AtVec(0), Y: action.AtVec(1), Z: action.AtVec(2)}

	step, done := d.Move(a)
	return step, done, nil
}

// Move takes a single step along direction a
func (d *Drone) Move(a r3.Vec) (ts.TimeStep, bool) {
	c := d.config
	stepLength := c.Speed * c.StepSize

	d.stepCounter++
	d.position = d.position.Add(a.Scale(stepLength))
	readSensors(&d.sensors, d.position, d.obstacles, c)

	// Nothing to compare against on the first step of an episode
	if d.stepCounter == 1 {
		d.lastPosition = d.position
		d.lastSensors = d.sensors
	}

	distance := geometry.Distance(d.position, d.goal)
	lastDistance := geometry.Distance(d.lastPosition, d.goal)

	var increases [NumSensors]float64
	maxIncrease := stepLength / c.MaxSensorDistance
	sensorIncrease := 0.0
	for i := range d.sensors {
		increases[i] = (d.sensors[i] - d.lastSensors[i]) / maxIncrease
		sensorIncrease += increases[i]
	}

	outcome := Outcome{
		Distance:              distance,
		StartDistance:         d.startDistance,
		GettingCloser:         (lastDistance - distance) / stepLength,
		SensorIncrease:        sensorIncrease,
		SensorIncreaseClipped: floatutils.SumPositive(increases[:]...),
		Alignment:             alignment(a, d.goal.Sub(d.lastPosition)),
		Crashed:               didCrash(d.position, c.DroneSize, d.obstacles),
		BeyondWalls:           beyondWalls(d.position, c.ArenaSize),
	}

	d.lastPosition = d.position
	d.lastSensors = d.sensors
	d.lastOutcome = outcome

	obs := mat.NewVecDense(ObservationSize, nil)
	d.fillObservation(obs, d.sensors)

	next := ts.New(ts.Mid, d.GetReward(outcome), 1, obs, d.stepCounter)
	done := d.End(&next, outcome)

	d.currentStep = next
	return next, done
}

// alignment returns the cosine between the action and the direction to
// the goal. The hold action has no direction and is given zero.
func alignment(a, toGoal r3.Vec) float64 {
	if geometry.Norm(a) == 0 || geometry.Norm(toGoal) == 0 {
		return 0
	}
	return geometry.Unit(a).Dot(geometry.Unit(toGoal))
}

// fillObservation writes the goal direction and sensor readings to obs
func (d *Drone) fillObservation(obs *mat.VecDense,
	sensors [NumSensors]float64) {
	dir := geometry.Unit(d.goal.Sub(d.position))
	obs.SetVec(0, dir.X)
	obs.SetVec(1, dir.Y)
	obs.SetVec(2, dir.Z)
	for i, s := range sensors {
		obs.SetVec(3+i, s)
	}
}

// CurrentTimeStep returns the most recent TimeStep
func (d *Drone) CurrentTimeStep() ts.TimeStep {
	return d.currentStep
}

// Config returns the configuration of the environment
func (d *Drone) Config() Config {
	return d.config
}

// Position returns the position of the drone
func (d *Drone) Position() r3.Vec {
	return d.position
}

// Goal returns the position of the goal
func (d *Drone) Goal() r3.Vec {
	return d.goal
}

// Obstacles returns the walls and obstacles of the current episode.
// The returned slice must not be modified.
func (d *Drone) Obstacles() []geometry.Box {
	return d.obstacles
}

// Sensors returns the current sensor readings
func (d *Drone) Sensors() [NumSensors]float64 {
	return d.sensors
}

// LastOutcome returns the reward breakdown of the most recent step
func (d *Drone) LastOutcome() Outcome {
	return d.lastOutcome
}

// SetGoal moves the goal of the current episode. The start distance is
// measured again so that the distance penalty stays normalised.
func (d *Drone) SetGoal(goal r3.Vec) {
	d.goal = goal
	d.startDistance = geometry.Distance(d.position, d.goal)
}

// ObservationSpec returns the observation specification
func (d *Drone) ObservationSpec() env.Spec {
	spec := env.NewBoxSpec(ObservationSize, env.Observation, 0, 1,
		env.Continuous)
	for i := 0; i < 3; i++ {
		spec.Low.SetVec(i, -1)
	}
	return spec
}

// ActionSpec returns the action specification
func (d *Drone) ActionSpec() env.Spec {
	return env.NewBoxSpec(3, env.Action, -1, 1, env.Continuous)
}

// Snapshot is a copy of the state a host needs to draw the arena
type Snapshot struct {
	Position    r3.Vec              `json:"position"`
	Goal        r3.Vec              `json:"goal"`
	Obstacles   []geometry.Box      `json:"obstacles"`
	Sensors     [NumSensors]float64 `json:"sensors"`
	StepCounter int                 `json:"stepCounter"`
}

// Snapshot returns a copy of the environment state
func (d *Drone) Snapshot() Snapshot {
	obstacles := make([]geometry.Box, len(d.obstacles))
	copy(obstacles, d.obstacles)

	return Snapshot{
		Position:    d.position,
		Goal:        d.goal,
		Obstacles:   obstacles,
		Sensors:     d.sensors,
		StepCounter: d.stepCounter,
	}
}

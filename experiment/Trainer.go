// Package experiment runs online policy gradient training of a drone
// navigating an arena of obstacles.
//
// A Trainer is driven by its host through Tick. Each tick runs a
// number of environment steps with the behaviour policy. When an
// episode ends, the Trainer waits for a short cool-off before
// completing the episode: its transitions are moved to the rollout
// window, and every EpisodesPerUpdate episodes the policy is updated
// on minibatches sampled from the window. Telemetry is delivered to
// registered Observers.
package experiment

import (
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/samuelfneumann/dronerl/agent"
	"github.com/samuelfneumann/dronerl/agent/pg"
	"github.com/samuelfneumann/dronerl/backend"
	"github.com/samuelfneumann/dronerl/buffer/rollout"
	"github.com/samuelfneumann/dronerl/environment"
	"github.com/samuelfneumann/dronerl/environment/drone"
	"github.com/samuelfneumann/dronerl/logger"
	"github.com/samuelfneumann/dronerl/network"
	ts "github.com/samuelfneumann/dronerl/timestep"
	"github.com/sirupsen/logrus"
	"golang.org/x/exp/rand"
)

// Clock tells the time. It is used to measure the terminal cool-off.
type Clock interface {
	Now() time.Time
}

type wallClock struct{}

func (wallClock) Now() time.Time { return time.Now() }

// Option configures a Trainer at construction
type Option func(*Trainer) error

// WithClock sets the clock used to measure the cool-off
func WithClock(c Clock) Option {
	return func(t *Trainer) error {
		t.clock = c
		return nil
	}
}

// WithObservers registers Observers of the Trainer's telemetry
func WithObservers(observers ...Observer) Option {
	return func(t *Trainer) error {
		t.observers = append(t.observers, observers...)
		return nil
	}
}

// WithWeights starts training from pretrained actor and critic
// weights. Either may be nil to keep its random initialisation.
func WithWeights(actor, critic []network.Blob) Option {
	return func(t *Trainer) error {
		if err := t.learner.ImportWeights(actor, critic); err != nil {
			return fmt.Errorf("withWeights: %v", err)
		}
		return nil
	}
}

// Arena is an environment which also exposes what a host needs to
// draw it
type Arena interface {
	environment.Environment
	Snapshot() drone.Snapshot
	LastOutcome() drone.Outcome
	EncodePNG(w io.Writer, width int) error
}

// Trainer trains a policy online in a drone environment
type Trainer struct {
	settings Settings
	env      Arena
	learner  agent.Learner
	backend  backend.Backend

	episode *rollout.Episode
	window  *rollout.Window
	batch   *rollout.Batch
	rng     *rand.Rand

	state         []float64
	episodeReturn float64
	episodeCount  int
	updateCount   int
	lastLoss      LossPoint

	speed      int
	sinceStep  time.Duration
	coolingOff bool
	coolStart  time.Time
	lastEnd    ts.EndType
	updating   atomic.Bool

	clock     Clock
	observers []Observer
}

// New returns a new Trainer
func New(s Settings, opts ...Option) (*Trainer, error) {
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("new: invalid settings: %v", err)
	}

	env, step, err := drone.New(s.Drone, s.Seed)
	if err != nil {
		return nil, fmt.Errorf("new: could not create environment: %v", err)
	}

	learner, err := pg.New(drone.ObservationSize, drone.NumActions, s.Agent,
		s.Seed)
	if err != nil {
		return nil, fmt.Errorf("new: could not create learner: %v", err)
	}

	b, err := backend.Parse(s.Backend)
	if err != nil {
		learner.Close()
		return nil, fmt.Errorf("new: %v", err)
	}

	t := &Trainer{
		settings: s,
		env:      env,
		learner:  learner,
		backend:  b,
		episode: rollout.NewEpisode(s.Drone.MaxSteps, drone.ObservationSize,
			drone.NumActions),
		window: rollout.NewWindow(s.Drone.MaxSteps*s.EpisodesPerUpdate,
			drone.ObservationSize, drone.NumActions),
		batch: rollout.NewBatch(s.Agent.BatchSize, drone.ObservationSize,
			drone.NumActions),
		rng:   rand.New(rand.NewSource(s.Seed + 2)),
		state: make([]float64, drone.ObservationSize),
		speed: s.SpeedMultiplier,
		clock: wallClock{},
	}
	copy(t.state, step.Observation.RawVector().Data)

	for _, opt := range opts {
		if err := opt(t); err != nil {
			learner.Close()
			return nil, fmt.Errorf("new: %v", err)
		}
	}
	return t, nil
}

// Tick advances the Trainer by dt of host time. Once at least one
// environment step size of host time has passed, the Trainer runs up
// to SpeedMultiplier environment steps, stopping early during a
// terminal cool-off, and then pushes the arena state to its
// Observers. Host time left over past a whole step size carries into
// the next tick.
func (t *Trainer) Tick(dt time.Duration) error {
	t.sinceStep += dt
	stepSize := time.Duration(t.settings.Drone.StepSize * float64(time.Second))
	if t.sinceStep < stepSize {
		return nil
	}
	if stepSize > 0 {
		t.sinceStep %= stepSize
	} else {
		t.sinceStep = 0
	}

	defer t.observeState()
	for i := 0; i < t.speed; i++ {
		if t.coolingOff {
			if t.clock.Now().Sub(t.coolStart) < t.settings.CoolOff {
				return nil
			}
			if err := t.completeEpisode(); err != nil {
				return fmt.Errorf("tick: %v", err)
			}
		}

		if err := t.step(); err != nil {
			return fmt.Errorf("tick: %v", err)
		}
	}
	return nil
}

// step runs a single environment step with the behaviour policy
func (t *Trainer) step() error {
	action, probs, err := t.learner.SelectAction(t.state)
	if err != nil {
		return fmt.Errorf("step: could not select action: %v", err)
	}

	next, done, err := t.env.Step(drone.ActionVec(action))
	if err != nil {
		return fmt.Errorf("step: could not step environment: %v", err)
	}

	t.episode.Append(t.state, action, probs, next.Reward)
	t.episodeReturn += next.Reward
	copy(t.state, next.Observation.RawVector().Data)

	point := RewardPoint{
		Episode: t.episodeCount,
		Step:    next.Number,
		Reward:  next.Reward,
	}
	copy(point.Sensors[:], t.state[3:])
	for _, o := range t.observers {
		o.ObserveReward(point)
	}

	if done {
		t.lastEnd = next.EndType()
		if t.settings.CoolOff == 0 {
			return t.completeEpisode()
		}
		t.coolingOff = true
		t.coolStart = t.clock.Now()
	}
	return nil
}

// observeState pushes the arena state to all Observers
func (t *Trainer) observeState() {
	point := StatePoint{
		Episode: t.episodeCount,
		Drone:   t.env.Snapshot(),
		Outcome: t.env.LastOutcome(),
	}
	for _, o := range t.observers {
		o.ObserveState(point)
	}
}

// ForceEndEpisode ends the current episode immediately. The episode is
// completed as if it had ended naturally.
func (t *Trainer) ForceEndEpisode() error {
	if !t.coolingOff {
		t.lastEnd = ts.Forced
	}
	if err := t.completeEpisode(); err != nil {
		return fmt.Errorf("forceEndEpisode: %v", err)
	}
	return nil
}

// completeEpisode moves the current episode into the rollout window,
// resets the environment and updates the policy when due. Observers
// see the episode after any update it triggers.
func (t *Trainer) completeEpisode() error {
	steps := t.episode.Len()
	t.window.FinishEpisode(t.episode, t.settings.Gamma)
	t.episodeCount++
	t.coolingOff = false

	summary := EpisodeSummary{
		Episode: t.episodeCount,
		Steps:   steps,
		Return:  t.episodeReturn,
		End:     t.lastEnd,
	}
	logger.GetLogger().WithFields(logrus.Fields{
		"episode": summary.Episode,
		"steps":   summary.Steps,
		"return":  summary.Return,
		"end":     summary.End.String(),
	}).Debug("episode complete")

	step, err := t.env.Reset()
	if err != nil {
		return fmt.Errorf("completeEpisode: could not reset environment: %v",
			err)
	}
	copy(t.state, step.Observation.RawVector().Data)
	t.episodeReturn = 0
	t.lastEnd = ts.Running

	if t.episodeCount%t.settings.EpisodesPerUpdate == 0 {
		err = t.update()
	}
	for _, o := range t.observers {
		o.ObserveEpisode(summary)
	}
	if err != nil {
		return fmt.Errorf("completeEpisode: %v", err)
	}
	return nil
}

// update runs BatchesPerUpdate gradient steps on minibatches of the
// rollout window and clears the window
func (t *Trainer) update() error {
	defer t.window.Clear()
	if t.window.Len() == 0 {
		logger.GetLogger().Warn("skipping update on empty rollout window")
		return nil
	}

	start := time.Now()
	loss, err := t.minimise()
	if err != nil {
		return fmt.Errorf("update: %v", err)
	}
	t.updateCount++

	t.lastLoss = LossPoint{
		Loss:              loss,
		MeanEpisodeReward: t.window.RewardSum() / float64(t.settings.EpisodesPerUpdate),
		Update:            t.updateCount,
		Episode:           t.episodeCount,
		Duration:          time.Since(start),
	}
	logger.GetLogger().WithFields(logrus.Fields{
		"update":       t.updateCount,
		"episode":      t.episodeCount,
		"transitions":  t.window.Len(),
		"loss":         loss.Total,
		"total_reward": t.lastLoss.MeanEpisodeReward,
		"duration":     t.lastLoss.Duration.String(),
	}).Info("policy updated")
	for _, o := range t.observers {
		o.ObserveLoss(t.lastLoss)
	}
	return nil
}

// minimise takes BatchesPerUpdate gradient steps and returns the loss
// of the final minibatch
func (t *Trainer) minimise() (agent.Loss, error) {
	t.updating.Store(true)
	defer t.updating.Store(false)

	var loss agent.Loss
	err := backend.Scope(t.backend, func() error {
		for i := 0; i < t.settings.BatchesPerUpdate; i++ {
			err := t.window.SampleBatch(t.batch, t.settings.Agent.BatchSize,
				t.settings.Sequential, t.rng)
			if err != nil {
				return err
			}
			if loss, err = t.learner.Update(t.batch); err != nil {
				return err
			}
		}
		return nil
	})
	return loss, err
}

// Updating returns whether a policy update is in progress. It is safe
// to call concurrently with Tick.
func (t *Trainer) Updating() bool {
	return t.updating.Load()
}

// CoolingOff returns whether the Trainer is waiting out the cool-off
// after an episode ended
func (t *Trainer) CoolingOff() bool {
	return t.coolingOff
}

// EpisodeCount returns the number of completed episodes
func (t *Trainer) EpisodeCount() int {
	return t.episodeCount
}

// UpdateCount returns the number of policy updates performed
func (t *Trainer) UpdateCount() int {
	return t.updateCount
}

// LastLoss returns the telemetry of the latest policy update
func (t *Trainer) LastLoss() LossPoint {
	return t.lastLoss
}

// Speed returns the number of environment steps per tick
func (t *Trainer) Speed() int {
	return t.speed
}

// SetSpeed sets the number of environment steps per tick
func (t *Trainer) SetSpeed(n int) error {
	if n <= 0 {
		return fmt.Errorf("setSpeed: speed must be positive\n\thave(%v)", n)
	}
	t.speed = n
	return nil
}

// Settings returns the Settings of the Trainer, with the current speed
func (t *Trainer) Settings() Settings {
	s := t.settings
	s.SpeedMultiplier = t.speed
	return s
}

// Environment returns the environment the Trainer acts in
func (t *Trainer) Environment() Arena {
	return t.env
}

// AddObserver registers an Observer after construction, for observers
// which need the Trainer itself
func (t *Trainer) AddObserver(o Observer) {
	t.observers = append(t.observers, o)
}

// ExportWeights returns copies of the actor and critic weights
func (t *Trainer) ExportWeights() (actor, critic []network.Blob, err error) {
	return t.learner.ExportWeights()
}

// Snapshot is the host-facing state of a Trainer
type Snapshot struct {
	Drone      drone.Snapshot `json:"drone"`
	Episode    int            `json:"episode"`
	Updates    int            `json:"updates"`
	Updating   bool           `json:"updating"`
	CoolingOff bool           `json:"coolingOff"`
	Speed      int            `json:"speed"`
	LastLoss   LossPoint      `json:"lastLoss"`
}

// Snapshot returns the host-facing state of the Trainer
func (t *Trainer) Snapshot() Snapshot {
	return Snapshot{
		Drone:      t.env.Snapshot(),
		Episode:    t.episodeCount,
		Updates:    t.updateCount,
		Updating:   t.Updating(),
		CoolingOff: t.coolingOff,
		Speed:      t.speed,
		LastLoss:   t.lastLoss,
	}
}

// Close releases the resources of the Trainer
func (t *Trainer) Close() error {
	return t.learner.Close()
}

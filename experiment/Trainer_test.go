package experiment

import (
	"encoding/json"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/samuelfneumann/dronerl/agent"
	"github.com/samuelfneumann/dronerl/buffer/rollout"
	"github.com/samuelfneumann/dronerl/logger"
	ts "github.com/samuelfneumann/dronerl/timestep"
	"gonum.org/v1/gonum/floats"
)

func init() {
	logger.Discard()
}

type fakeClock struct {
	now time.Time
}

func (f *fakeClock) Now() time.Time          { return f.now }
func (f *fakeClock) Advance(d time.Duration) { f.now = f.now.Add(d) }

type recorder struct {
	trainer  *Trainer
	rewards  []RewardPoint
	states   []StatePoint
	losses   []LossPoint
	episodes []EpisodeSummary

	updatingDuringLoss bool
	updatesAtEpisode   []int
}

func (r *recorder) ObserveReward(p RewardPoint) { r.rewards = append(r.rewards, p) }
func (r *recorder) ObserveState(s StatePoint) { r.states = append(r.states, s) }
func (r *recorder) ObserveEpisode(e EpisodeSummary) {
	r.episodes = append(r.episodes, e)
	if r.trainer != nil {
		r.updatesAtEpisode = append(r.updatesAtEpisode, r.trainer.UpdateCount())
	}
}
func (r *recorder) ObserveLoss(l LossPoint) {
	r.losses = append(r.losses, l)
	if r.trainer != nil && r.trainer.Updating() {
		r.updatingDuringLoss = true
	}
}

func testSettings() Settings {
	s := DefaultSettings()
	s.Drone.NumberOfBlocks = 0
	s.Drone.MaxSteps = 20
	s.Agent.ActorHidden = 8
	s.Agent.CriticHidden = 4
	s.Agent.BatchSize = 16
	s.Seed = 7
	return s
}

func newTrainer(t *testing.T, s Settings, opts ...Option) (*Trainer,
	*recorder, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Unix(0, 0)}
	rec := &recorder{}
	opts = append([]Option{WithClock(clock), WithObservers(rec)}, opts...)

	trainer, err := New(s, opts...)
	if err != nil {
		t.Fatalf("could not create trainer: %v", err)
	}
	rec.trainer = trainer
	t.Cleanup(func() { trainer.Close() })
	return trainer, rec, clock
}

func stepDuration(s Settings) time.Duration {
	return time.Duration(s.Drone.StepSize * float64(time.Second))
}

func TestTickRateLimit(t *testing.T) {
	s := testSettings()
	trainer, rec, _ := newTrainer(t, s)
	dt := stepDuration(s)

	if err := trainer.Tick(dt / 2); err != nil {
		t.Fatal(err)
	}
	if len(rec.rewards) != 0 {
		t.Fatalf("stepped before a full step size elapsed")
	}
	if err := trainer.Tick(dt / 2); err != nil {
		t.Fatal(err)
	}
	if len(rec.rewards) != 1 {
		t.Fatalf("want 1 step, have %d", len(rec.rewards))
	}
}

func TestTickCarriesRemainder(t *testing.T) {
	s := testSettings()
	trainer, rec, _ := newTrainer(t, s)
	dt := stepDuration(s)

	if err := trainer.Tick(dt + dt/2); err != nil {
		t.Fatal(err)
	}
	if len(rec.rewards) != 1 {
		t.Fatalf("want 1 step, have %d", len(rec.rewards))
	}

	// Half a step is left over from the first tick
	if err := trainer.Tick(dt - dt/2); err != nil {
		t.Fatal(err)
	}
	if len(rec.rewards) != 2 {
		t.Errorf("leftover host time dropped: want 2 steps, have %d",
			len(rec.rewards))
	}
}

func TestStatePushedEachTick(t *testing.T) {
	s := testSettings()
	trainer, rec, _ := newTrainer(t, s)
	if err := trainer.SetSpeed(3); err != nil {
		t.Fatal(err)
	}
	dt := stepDuration(s)

	if err := trainer.Tick(dt / 2); err != nil {
		t.Fatal(err)
	}
	if len(rec.states) != 0 {
		t.Fatalf("state pushed before the environment advanced")
	}

	for i := 1; i <= 4; i++ {
		if err := trainer.Tick(dt); err != nil {
			t.Fatal(err)
		}
		if len(rec.states) != i {
			t.Fatalf("tick %d: want %d state pushes, have %d", i, i,
				len(rec.states))
		}
	}

	last := rec.states[len(rec.states)-1]
	if last.Drone.StepCounter != len(rec.rewards) {
		t.Errorf("want state after step %d, have step %d", len(rec.rewards),
			last.Drone.StepCounter)
	}
	if last.Drone.Sensors != rec.rewards[len(rec.rewards)-1].Sensors {
		t.Error("state sensors differ from the latest reward point")
	}
	d := last.Drone.Position.Sub(last.Drone.Goal)
	dist := math.Sqrt(d.Dot(d))
	if math.Abs(dist-last.Outcome.Distance) > 1e-9 {
		t.Errorf("outcome distance: want(%v) have(%v)", dist,
			last.Outcome.Distance)
	}
}

func TestSpeedMultiplier(t *testing.T) {
	s := testSettings()
	trainer, rec, _ := newTrainer(t, s)

	if err := trainer.SetSpeed(0); err == nil {
		t.Error("expected error for zero speed")
	}
	if err := trainer.SetSpeed(5); err != nil {
		t.Fatal(err)
	}
	if err := trainer.Tick(stepDuration(s)); err != nil {
		t.Fatal(err)
	}
	if len(rec.rewards) != 5 {
		t.Errorf("want 5 steps in one tick, have %d", len(rec.rewards))
	}
	if trainer.Settings().SpeedMultiplier != 5 {
		t.Error("settings do not report the current speed")
	}
}

func TestEpisodeLifecycle(t *testing.T) {
	s := testSettings()
	trainer, rec, clock := newTrainer(t, s)
	dt := stepDuration(s)

	// Step until the episode ends; a drone at the centre of an empty
	// arena cannot reach a wall or the goal within 20 steps
	for i := 0; i < s.Drone.MaxSteps; i++ {
		if err := trainer.Tick(dt); err != nil {
			t.Fatal(err)
		}
	}
	if !trainer.CoolingOff() {
		t.Fatal("trainer should be cooling off after the step cap")
	}
	if len(rec.rewards) != s.Drone.MaxSteps {
		t.Fatalf("want %d steps, have %d", s.Drone.MaxSteps, len(rec.rewards))
	}
	for i, p := range rec.rewards {
		if p.Step != i+1 {
			t.Errorf("reward point %d has step %d", i, p.Step)
		}
		for _, reading := range p.Sensors {
			if reading < 0 || reading > 1 {
				t.Errorf("sensor reading %v out of range", reading)
			}
		}
	}

	// No steps while cooling off
	for i := 0; i < 3; i++ {
		if err := trainer.Tick(dt); err != nil {
			t.Fatal(err)
		}
	}
	if len(rec.rewards) != s.Drone.MaxSteps || trainer.EpisodeCount() != 0 {
		t.Fatal("trainer acted during cool-off")
	}

	clock.Advance(s.CoolOff)
	if err := trainer.Tick(dt); err != nil {
		t.Fatal(err)
	}

	if trainer.EpisodeCount() != 1 || len(rec.episodes) != 1 {
		t.Fatalf("want 1 completed episode, have %d", trainer.EpisodeCount())
	}
	ep := rec.episodes[0]
	if ep.Steps != s.Drone.MaxSteps || ep.End != ts.Timeout {
		t.Errorf("episode summary: want %d steps ending in Timeout, have %d "+
			"ending in %v", s.Drone.MaxSteps, ep.Steps, ep.End)
	}
	sum := 0.0
	for _, p := range rec.rewards[:s.Drone.MaxSteps] {
		sum += p.Reward
	}
	if math.Abs(sum-ep.Return) > 1e-9 {
		t.Errorf("episode return: want(%v) have(%v)", sum, ep.Return)
	}

	if len(rec.losses) != 1 || trainer.UpdateCount() != 1 {
		t.Fatalf("want 1 update, have %d", len(rec.losses))
	}
	loss := rec.losses[0]
	if math.IsNaN(loss.Total) || math.IsInf(loss.Total, 0) {
		t.Errorf("non-finite loss %v", loss.Total)
	}
	if math.Abs(loss.MeanEpisodeReward-ep.Return) > 1e-9 {
		t.Errorf("mean episode reward: want(%v) have(%v)", ep.Return,
			loss.MeanEpisodeReward)
	}
	if rec.updatingDuringLoss || trainer.Updating() {
		t.Error("updating flag set outside of an update")
	}
	if rec.updatesAtEpisode[0] != 1 {
		t.Errorf("episode observed before its update: have %d updates",
			rec.updatesAtEpisode[0])
	}

	// The tick which completed the episode also starts the next one
	if len(rec.rewards) != s.Drone.MaxSteps+1 || trainer.CoolingOff() {
		t.Error("trainer did not resume acting after the episode completed")
	}
	if pos := trainer.Environment().Snapshot().StepCounter; pos != 1 {
		t.Errorf("want step counter 1 in the new episode, have %d", pos)
	}
}

func TestEpisodesPerUpdate(t *testing.T) {
	s := testSettings()
	s.EpisodesPerUpdate = 3
	s.CoolOff = 0
	trainer, rec, _ := newTrainer(t, s)

	for i := 0; i < 3; i++ {
		if err := trainer.Tick(stepDuration(s)); err != nil {
			t.Fatal(err)
		}
		if err := trainer.ForceEndEpisode(); err != nil {
			t.Fatal(err)
		}
		if want := 0; i < 2 && len(rec.losses) != want {
			t.Fatalf("updated after %d episodes", i+1)
		}
	}
	if len(rec.losses) != 1 {
		t.Fatalf("want 1 update after 3 episodes, have %d", len(rec.losses))
	}

	var sum float64
	for _, e := range rec.episodes {
		sum += e.Return
	}
	if math.Abs(rec.losses[0].MeanEpisodeReward-sum/3) > 1e-9 {
		t.Errorf("mean episode reward: want(%v) have(%v)", sum/3,
			rec.losses[0].MeanEpisodeReward)
	}
}

type failingLearner struct {
	agent.Learner
}

func (failingLearner) Update(*rollout.Batch) (agent.Loss, error) {
	return agent.Loss{}, errors.New("update failed")
}

func TestFailedUpdateResetsEnvironment(t *testing.T) {
	s := testSettings()
	s.CoolOff = 0
	trainer, rec, _ := newTrainer(t, s)
	trainer.learner = failingLearner{trainer.learner}

	dt := stepDuration(s)
	var err error
	for i := 0; i < s.Drone.MaxSteps && err == nil; i++ {
		err = trainer.Tick(dt)
	}
	if err == nil {
		t.Fatal("expected error from the failed update")
	}

	if n := trainer.Environment().Snapshot().StepCounter; n != 0 {
		t.Errorf("environment not reset after failed update: step %d", n)
	}
	if len(rec.episodes) != 1 || trainer.EpisodeCount() != 1 {
		t.Errorf("want 1 observed episode, have %d", len(rec.episodes))
	}

	// The next tick starts the new episode instead of stepping past
	// the step cap
	if err := trainer.Tick(dt); err != nil {
		t.Fatal(err)
	}
	last := rec.rewards[len(rec.rewards)-1]
	if last.Step != 1 || last.Episode != 1 {
		t.Errorf("want step 1 of episode 1, have step %d of episode %d",
			last.Step, last.Episode)
	}
}

func TestForceEndEpisode(t *testing.T) {
	s := testSettings()
	trainer, rec, _ := newTrainer(t, s)
	if err := trainer.SetSpeed(3); err != nil {
		t.Fatal(err)
	}
	if err := trainer.Tick(stepDuration(s)); err != nil {
		t.Fatal(err)
	}

	if err := trainer.ForceEndEpisode(); err != nil {
		t.Fatal(err)
	}
	if len(rec.episodes) != 1 {
		t.Fatalf("want 1 episode, have %d", len(rec.episodes))
	}
	if e := rec.episodes[0]; e.Steps != 3 || e.End != ts.Forced {
		t.Errorf("want 3 steps ending in Forced, have %d ending in %v",
			e.Steps, e.End)
	}
	if trainer.Environment().Snapshot().StepCounter != 0 {
		t.Error("environment not reset after forced end")
	}

	// Forcing an empty episode skips the update without failing
	if err := trainer.ForceEndEpisode(); err != nil {
		t.Fatal(err)
	}
	if trainer.EpisodeCount() != 2 || trainer.UpdateCount() != 1 {
		t.Errorf("want 2 episodes and 1 update, have %d and %d",
			trainer.EpisodeCount(), trainer.UpdateCount())
	}
}

func TestWarmStart(t *testing.T) {
	s := testSettings()
	source, _, _ := newTrainer(t, s)
	actor, critic, err := source.ExportWeights()
	if err != nil {
		t.Fatal(err)
	}

	s.Seed = 99
	warm, _, _ := newTrainer(t, s, WithWeights(actor, critic))
	gotActor, gotCritic, err := warm.ExportWeights()
	if err != nil {
		t.Fatal(err)
	}
	for i := range actor {
		if !floats.Equal(actor[i].Data, gotActor[i].Data) {
			t.Errorf("actor blob %d not imported", i)
		}
	}
	for i := range critic {
		if !floats.Equal(critic[i].Data, gotCritic[i].Data) {
			t.Errorf("critic blob %d not imported", i)
		}
	}

	if _, err := New(s, WithWeights(critic, actor)); err == nil {
		t.Error("expected error for mismatched weights")
	}
}

func TestSettingsValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Settings)
	}{
		{"gamma", func(s *Settings) { s.Gamma = 1.5 }},
		{"episodes per update", func(s *Settings) { s.EpisodesPerUpdate = 0 }},
		{"batches per update", func(s *Settings) { s.BatchesPerUpdate = 0 }},
		{"speed", func(s *Settings) { s.SpeedMultiplier = 0 }},
		{"cool-off", func(s *Settings) { s.CoolOff = -time.Second }},
		{"backend", func(s *Settings) { s.Backend = "tpu" }},
		{"batch size", func(s *Settings) { s.Agent.BatchSize = 0 }},
		{"drone", func(s *Settings) { s.Drone.ArenaSize = 0 }},
	}

	if err := DefaultSettings().Validate(); err != nil {
		t.Fatalf("default settings invalid: %v", err)
	}
	for _, test := range tests {
		s := DefaultSettings()
		test.modify(&s)
		if err := s.Validate(); err == nil {
			t.Errorf("%v: expected error", test.name)
		}
		if _, err := New(s); err == nil {
			t.Errorf("%v: trainer constructed from invalid settings",
				test.name)
		}
	}
}

func TestTelemetryJSON(t *testing.T) {
	p := RewardPoint{Reward: -1, Sensors: [6]float64{0.1, 0, 0, 0, 0, 0.6}}
	data, err := json.Marshal(p)
	if err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{`"reward":-1`, `"left":0.1`, `"above":0.6`} {
		if !strings.Contains(string(data), key) {
			t.Errorf("reward point %s missing %s", data, key)
		}
	}

	e := EpisodeSummary{Episode: 2, Steps: 10, End: ts.WallBounce}
	if data, err = json.Marshal(e); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"end":"WallBounce"`) {
		t.Errorf("episode summary %s missing end", data)
	}
}

func BenchmarkTick(b *testing.B) {
	s := DefaultSettings()
	s.CoolOff = 0
	s.Agent.BatchSize = 64
	trainer, err := New(s)
	if err != nil {
		b.Fatal(err)
	}
	defer trainer.Close()
	dt := stepDuration(s)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := trainer.Tick(dt); err != nil {
			b.Fatal(err)
		}
	}
}

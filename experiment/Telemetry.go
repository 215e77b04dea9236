package experiment

import (
	"encoding/json"
	"time"

	"github.com/samuelfneumann/dronerl/agent"
	"github.com/samuelfneumann/dronerl/environment/drone"
	ts "github.com/samuelfneumann/dronerl/timestep"
)

// RewardPoint is the telemetry of a single environment step
type RewardPoint struct {
	Episode int
	Step    int
	Reward  float64
	Sensors [drone.NumSensors]float64
}

// MarshalJSON implements the json.Marshaler interface. Sensors are
// written under their direction names.
func (r RewardPoint) MarshalJSON() ([]byte, error) {
	m := map[string]interface{}{
		"episode": r.Episode,
		"step":    r.Step,
		"reward":  r.Reward,
	}
	for i, value := range r.Sensors {
		m[drone.Sensor(i).String()] = value
	}
	return json.Marshal(m)
}

// LossPoint is the telemetry of a single policy update. The losses
// are those of the final minibatch of the update.
type LossPoint struct {
	agent.Loss
	MeanEpisodeReward float64 `json:"total_reward"`
	Update            int     `json:"update"`
	Episode           int     `json:"episode"`

	// Wall time taken by the update
	Duration time.Duration `json:"duration"`
}

// StatePoint is the arena state pushed to the host after every tick
// which advanced the environment, along with the reward breakdown of
// the latest step
type StatePoint struct {
	Episode int            `json:"episode"`
	Drone   drone.Snapshot `json:"drone"`
	Outcome drone.Outcome  `json:"outcome"`
}

// EpisodeSummary describes a completed episode
type EpisodeSummary struct {
	Episode int        `json:"episode"`
	Steps   int        `json:"steps"`
	Return  float64    `json:"return"`
	End     ts.EndType `json:"-"`
}

// MarshalJSON implements the json.Marshaler interface
func (e EpisodeSummary) MarshalJSON() ([]byte, error) {
	type summary EpisodeSummary
	return json.Marshal(struct {
		summary
		End string `json:"end"`
	}{summary(e), e.End.String()})
}

// Observer receives telemetry from a Trainer. Observers are called
// synchronously from within the Trainer and must not call back into it
// except to read weights.
type Observer interface {
	ObserveReward(RewardPoint)
	ObserveState(StatePoint)
	ObserveLoss(LossPoint)
	ObserveEpisode(EpisodeSummary)
}

// NopObserver implements Observer and ignores all telemetry. Embed it
// to observe only part of the telemetry.
type NopObserver struct{}

// ObserveReward implements the Observer interface
func (NopObserver) ObserveReward(RewardPoint) {}

// ObserveState implements the Observer interface
func (NopObserver) ObserveState(StatePoint) {}

// ObserveLoss implements the Observer interface
func (NopObserver) ObserveLoss(LossPoint) {}

// ObserveEpisode implements the Observer interface
func (NopObserver) ObserveEpisode(EpisodeSummary) {}

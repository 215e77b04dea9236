package experiment

import (
	"fmt"
	"math"
	"time"

	"github.com/samuelfneumann/dronerl/agent/pg"
	"github.com/samuelfneumann/dronerl/backend"
	"github.com/samuelfneumann/dronerl/environment/drone"
)

// Settings configures a Trainer. Settings are fixed once the Trainer
// is constructed, except for the speed multiplier.
type Settings struct {
	Drone drone.Config `json:"drone" yaml:"drone" mapstructure:"drone"`
	Agent pg.Config    `json:"agent" yaml:"agent" mapstructure:"agent"`

	Gamma             float64 `json:"gamma" yaml:"gamma" mapstructure:"gamma"`
	EpisodesPerUpdate int     `json:"episodes_per_update" yaml:"episodes_per_update" mapstructure:"episodes_per_update"`
	BatchesPerUpdate  int     `json:"batches_per_update" yaml:"batches_per_update" mapstructure:"batches_per_update"`

	// Sequential takes minibatches in order from the start of the
	// rollout window instead of sampling them
	Sequential bool `json:"sequential" yaml:"sequential" mapstructure:"sequential"`

	// SpeedMultiplier is the number of environment steps per tick
	SpeedMultiplier int `json:"speed_multiplier" yaml:"speed_multiplier" mapstructure:"speed_multiplier"`

	// CoolOff is the delay between the end of an episode and the next
	// reset. Zero disables it.
	CoolOff time.Duration `json:"cool_off" yaml:"cool_off" mapstructure:"cool_off"`

	Backend string `json:"backend" yaml:"backend" mapstructure:"backend"`
	Seed    uint64 `json:"seed" yaml:"seed" mapstructure:"seed"`
}

// DefaultSettings returns the default Settings
func DefaultSettings() Settings {
	return Settings{
		Drone:             drone.DefaultConfig(),
		Agent:             pg.DefaultConfig(),
		Gamma:             0.7,
		EpisodesPerUpdate: 1,
		BatchesPerUpdate:  2,
		SpeedMultiplier:   1,
		CoolOff:           150 * time.Millisecond,
		Backend:           "cpu",
	}
}

// Validate checks Settings for errors. Invalid values are reported,
// never adjusted.
func (s Settings) Validate() error {
	if err := s.Drone.Validate(); err != nil {
		return fmt.Errorf("validate: drone: %v", err)
	}
	if err := s.Agent.Validate(); err != nil {
		return fmt.Errorf("validate: agent: %v", err)
	}
	if s.Gamma < 0 || s.Gamma > 1 || math.IsNaN(s.Gamma) {
		return fmt.Errorf("validate: gamma must be in [0, 1]\n\thave(%v)",
			s.Gamma)
	}
	if s.EpisodesPerUpdate <= 0 {
		return fmt.Errorf("validate: episodes per update must be positive"+
			"\n\thave(%v)", s.EpisodesPerUpdate)
	}
	if s.BatchesPerUpdate <= 0 {
		return fmt.Errorf("validate: batches per update must be positive"+
			"\n\thave(%v)", s.BatchesPerUpdate)
	}
	if s.SpeedMultiplier <= 0 {
		return fmt.Errorf("validate: speed multiplier must be positive"+
			"\n\thave(%v)", s.SpeedMultiplier)
	}
	if s.CoolOff < 0 {
		return fmt.Errorf("validate: cool-off must not be negative"+
			"\n\thave(%v)", s.CoolOff)
	}
	if _, err := backend.Parse(s.Backend); err != nil {
		return fmt.Errorf("validate: %v", err)
	}
	return nil
}

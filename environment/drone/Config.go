package drone

import (
	"fmt"
	"math"
)

// Config describes the arena, the drone and the reward scheme
type Config struct {
	ArenaSize float64 `json:"arenaSize" yaml:"arena_size" mapstructure:"arena_size"`
	DroneSize float64 `json:"droneSize" yaml:"drone_size" mapstructure:"drone_size"`
	Speed     float64 `json:"speed" yaml:"speed" mapstructure:"speed"`

	// StepSize is the simulated time of a single Step, in seconds
	StepSize float64 `json:"stepSize" yaml:"step_size" mapstructure:"step_size"`
	MaxSteps int     `json:"maxSteps" yaml:"max_steps" mapstructure:"max_steps"`

	NumberOfBlocks         int     `json:"numberOfBlocks" yaml:"number_of_blocks" mapstructure:"number_of_blocks"`
	MaxObstacleSize        float64 `json:"maxObstacleSize" yaml:"max_obstacle_size" mapstructure:"max_obstacle_size"`
	MaxPlacementIterations int     `json:"maxPlacementIterations" yaml:"max_placement_iterations" mapstructure:"max_placement_iterations"`

	MaxSensorDistance float64 `json:"maxSensorDistance" yaml:"max_sensor_distance" mapstructure:"max_sensor_distance"`
	GoalThreshold     float64 `json:"goalThreshold" yaml:"goal_threshold" mapstructure:"goal_threshold"`

	GoalReward             float64 `json:"goalReward" yaml:"goal_reward" mapstructure:"goal_reward"`
	HitObstaclePenalty     float64 `json:"hitObstaclePenalty" yaml:"hit_obstacle_penalty" mapstructure:"hit_obstacle_penalty"`
	DistancePenalty        float64 `json:"distancePenalty" yaml:"distance_penalty" mapstructure:"distance_penalty"`
	DirectionReward        float64 `json:"directionReward" yaml:"direction_reward" mapstructure:"direction_reward"`
	ProximitySensorPenalty float64 `json:"proximitySensorPenalty" yaml:"proximity_sensor_penalty" mapstructure:"proximity_sensor_penalty"`
}

// DefaultConfig returns the default arena
func DefaultConfig() Config {
	return Config{
		ArenaSize:              30,
		DroneSize:              1,
		Speed:                  1,
		StepSize:               1.0 / 60.0,
		MaxSteps:               5000,
		NumberOfBlocks:         60,
		MaxObstacleSize:        7,
		MaxPlacementIterations: 2000,
		MaxSensorDistance:      2,
		GoalThreshold:          1,
		GoalReward:             10,
		HitObstaclePenalty:     -10,
		DistancePenalty:        -0.1,
		DirectionReward:        1,
		ProximitySensorPenalty: -1,
	}
}

// Validate checks a Config for errors. Invalid values are reported,
// never adjusted.
func (c Config) Validate() error {
	positive := []struct {
		name  string
		value float64
	}{
		{"arena size", c.ArenaSize},
		{"drone size", c.DroneSize},
		{"speed", c.Speed},
		{"step size", c.StepSize},
		{"max sensor distance", c.MaxSensorDistance},
		{"goal threshold", c.GoalThreshold},
	}
	for _, p := range positive {
		if p.value <= 0 || math.IsNaN(p.value) || math.IsInf(p.value, 0) {
			return fmt.Errorf("validate: %v must be positive and finite "+
				"but got %v", p.name, p.value)
		}
	}

	if c.MaxSteps <= 0 {
		return fmt.Errorf("validate: max steps must be positive but got %v",
			c.MaxSteps)
	}
	if c.NumberOfBlocks < 0 {
		return fmt.Errorf("validate: number of blocks cannot be negative "+
			"but got %v", c.NumberOfBlocks)
	}
	if c.NumberOfBlocks > 0 && c.MaxObstacleSize <= 0 {
		return fmt.Errorf("validate: max obstacle size must be positive "+
			"but got %v", c.MaxObstacleSize)
	}
	if c.NumberOfBlocks > 0 && c.MaxPlacementIterations <= 0 {
		return fmt.Errorf("validate: max placement iterations must be "+
			"positive but got %v", c.MaxPlacementIterations)
	}
	if c.GoalThreshold >= c.ArenaSize/2 {
		return fmt.Errorf("validate: goal threshold %v must be smaller "+
			"than the goal distance %v", c.GoalThreshold, c.ArenaSize/2)
	}

	return nil
}

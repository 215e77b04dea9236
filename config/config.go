// Package config loads the configuration of a training run from a
// file and environment variables
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/samuelfneumann/dronerl/experiment"
	"github.com/samuelfneumann/dronerl/logger"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes environment variable overrides, e.g.
// DRONERL_TRAINING_GAMMA or DRONERL_SERVER_ADDR
const EnvPrefix = "DRONERL"

// Config is the root configuration
type Config struct {
	Training   experiment.Settings `mapstructure:"training" yaml:"training" json:"training"`
	Logging    logger.Config       `mapstructure:"logging" yaml:"logging" json:"logging"`
	Server     ServerConfig        `mapstructure:"server" yaml:"server" json:"server"`
	Checkpoint CheckpointConfig    `mapstructure:"checkpoint" yaml:"checkpoint" json:"checkpoint"`
}

// ServerConfig configures the HTTP host
type ServerConfig struct {
	Addr         string        `mapstructure:"addr" yaml:"addr" json:"addr"`
	TickInterval time.Duration `mapstructure:"tick_interval" yaml:"tick_interval" json:"tick_interval"`
	RenderWidth  int           `mapstructure:"render_width" yaml:"render_width" json:"render_width"`
}

// CheckpointConfig configures weight persistence
type CheckpointConfig struct {
	Dir string `mapstructure:"dir" yaml:"dir" json:"dir"`

	// Interval is the number of episodes between checkpoints. Zero
	// disables checkpointing.
	Interval int `mapstructure:"interval" yaml:"interval" json:"interval"`

	// Weights is a checkpoint to warm start from, if not empty
	Weights string `mapstructure:"weights" yaml:"weights" json:"weights"`
}

// Default returns the default configuration
func Default() Config {
	return Config{
		Training: experiment.DefaultSettings(),
		Logging:  logger.DefaultConfig(),
		Server: ServerConfig{
			Addr:         ":8080",
			TickInterval: time.Second / 60,
			RenderWidth:  512,
		},
		Checkpoint: CheckpointConfig{Dir: "checkpoints"},
	}
}

// Load loads the configuration at path, falling back to defaults for
// anything the file does not set. Environment variables override both.
// An empty path loads defaults and environment variables only.
func Load(path string) (*Config, error) {
	v := viper.New()

	if err := setDefaults(v); err != nil {
		return nil, err
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("load: failed to read config file: %w",
					err)
			}
		}
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetEnvPrefix(EnvPrefix)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("load: failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the configuration for errors
func (c *Config) Validate() error {
	if err := c.Training.Validate(); err != nil {
		return fmt.Errorf("invalid training settings: %w", err)
	}
	if c.Server.Addr == "" {
		return fmt.Errorf("server address cannot be empty")
	}
	if c.Server.TickInterval <= 0 {
		return fmt.Errorf("tick interval must be positive\n\thave(%v)",
			c.Server.TickInterval)
	}
	if c.Server.RenderWidth <= 0 {
		return fmt.Errorf("render width must be positive\n\thave(%v)",
			c.Server.RenderWidth)
	}
	if c.Checkpoint.Interval < 0 {
		return fmt.Errorf("checkpoint interval cannot be negative"+
			"\n\thave(%v)", c.Checkpoint.Interval)
	}
	if c.Checkpoint.Interval > 0 && c.Checkpoint.Dir == "" {
		return fmt.Errorf("checkpoint directory required when " +
			"checkpointing is enabled")
	}
	return nil
}

// Save writes cfg to path as YAML
func Save(path string, cfg *Config) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("save: failed to create directory: %w", err)
		}
	}

	out, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("save: failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, out, 0644); err != nil {
		return fmt.Errorf("save: failed to write config: %w", err)
	}
	return nil
}

// setDefaults registers every key of Default with v, so that each one
// can be overridden from the environment
func setDefaults(v *viper.Viper) error {
	defaults := Default()
	out, err := yaml.Marshal(&defaults)
	if err != nil {
		return fmt.Errorf("setDefaults: %w", err)
	}

	tree := make(map[string]interface{})
	if err := yaml.Unmarshal(out, &tree); err != nil {
		return fmt.Errorf("setDefaults: %w", err)
	}
	setTree(v, "", tree)
	return nil
}

func setTree(v *viper.Viper, prefix string, tree map[string]interface{}) {
	for key, value := range tree {
		if prefix != "" {
			key = prefix + "." + key
		}
		if sub, ok := value.(map[string]interface{}); ok {
			setTree(v, key, sub)
			continue
		}
		v.SetDefault(key, value)
	}
}

// Package logger provides the process-wide structured logger
package logger

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// Config describes how log messages are formatted and where they go
type Config struct {
	Level  string `mapstructure:"level" yaml:"level" json:"level"`    // debug, info, warn, error
	Format string `mapstructure:"format" yaml:"format" json:"format"` // json or text
	Output string `mapstructure:"output" yaml:"output" json:"output"` // stdout, stderr, or a file path
}

// DefaultConfig returns the configuration used when none is given
func DefaultConfig() Config {
	return Config{Level: "info", Format: "text", Output: "stderr"}
}

var Log *logrus.Logger

// Initialize sets up the logger based on configuration
func Initialize(cfg Config) {
	Log = logrus.New()

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		Log.Warnf("Invalid log level '%s', using 'info'", cfg.Level)
		level = logrus.InfoLevel
	}
	Log.SetLevel(level)

	switch cfg.Format {
	case "json":
		Log.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
		})
	case "text":
		Log.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
		})
	default:
		Log.Warnf("Invalid log format '%s', using 'text'", cfg.Format)
		Log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	switch cfg.Output {
	case "stdout":
		Log.SetOutput(os.Stdout)
	case "stderr", "":
		Log.SetOutput(os.Stderr)
	default:
		file, err := os.OpenFile(cfg.Output,
			os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err != nil {
			Log.Warnf("Failed to open log file '%s', using stderr",
				cfg.Output)
			Log.SetOutput(os.Stderr)
		} else {
			Log.SetOutput(file)
		}
	}
}

// GetLogger returns the global logger instance
func GetLogger() *logrus.Logger {
	if Log == nil {
		Log = logrus.New()
		Log.SetLevel(logrus.InfoLevel)
		Log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
		Log.SetOutput(os.Stderr)
	}
	return Log
}

// Discard silences the global logger, used by tests and benchmarks
func Discard() {
	GetLogger().SetOutput(io.Discard)
}

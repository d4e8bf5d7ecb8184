package app

import "errors"

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	// ServerURL overrides the config file's server address when non-empty.
	ServerURL string
	// ConfigPath points at an .hcl file or a directory of them.
	ConfigPath string

	// LogFormat and LogLevel override the config file's logging block when
	// non-empty.
	LogFormat string
	LogLevel  string

	// Command is the one-shot command line; empty means interactive mode.
	Command []string
}

// NewConfig validates a Config and returns it.
func NewConfig(cfg Config) (*Config, error) {
	switch cfg.LogFormat {
	case "", "text", "json":
	default:
		return nil, errors.New("invalid log-format: must be 'text' or 'json'")
	}
	switch cfg.LogLevel {
	case "", "debug", "info", "warn", "error":
	default:
		return nil, errors.New("invalid log-level: must be 'debug', 'info', 'warn', or 'error'")
	}
	return &cfg, nil
}

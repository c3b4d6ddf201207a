package app

import (
	"errors"
	"fmt"
	"time"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	ScriptPath string // hcl file or directory

	// Event, when set, is dispatched once after loading with Payload, a
	// JSON object, as its fields.
	Event   string
	Payload string

	// StatePath is a directory for snapshot files or a redis:// URL.
	// Snapshots older than StateTTL are ignored; zero keeps them forever.
	StatePath string
	StateTTL  time.Duration

	SocketIOURL       string
	SocketIONamespace string
	SocketIOEvents    []string
	SocketIOTimeout   time.Duration

	LogFormat       string
	LogLevel        string
	HealthcheckPort int
	AutoRecompile   bool
	MaxSteps        int
}

func NewConfig(cfg Config) (*Config, error) {
	if cfg.ScriptPath == "" {
		return nil, errors.New("ScriptPath is a required configuration field and cannot be empty")
	}
	if cfg.MaxSteps < 0 {
		return nil, fmt.Errorf("MaxSteps must not be negative, got %d", cfg.MaxSteps)
	}
	if cfg.StateTTL < 0 {
		return nil, fmt.Errorf("StateTTL must not be negative, got %s", cfg.StateTTL)
	}
	if cfg.StateTTL > 0 && cfg.StatePath == "" {
		return nil, errors.New("StateTTL requires StatePath")
	}
	if cfg.Payload != "" && cfg.Event == "" {
		return nil, errors.New("Payload requires Event")
	}
	if cfg.SocketIOURL == "" && (cfg.SocketIONamespace != "" || len(cfg.SocketIOEvents) > 0) {
		return nil, errors.New("SocketIO options require SocketIOURL")
	}
	return &cfg, nil
}

// Serving reports whether the app keeps running after the initial event,
// waiting for socket.io events.
func (c *Config) Serving() bool {
	return c.SocketIOURL != ""
}

package cli

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/specialistvlad/gridscript/internal/app"
	"gopkg.in/yaml.v3"
)

// fileConfig mirrors the YAML config file.
type fileConfig struct {
	Script   string `yaml:"script"`
	Event    string `yaml:"event"`
	Payload  string `yaml:"payload"`
	State    string `yaml:"state"`
	StateTTL string `yaml:"state_ttl"`
	SocketIO struct {
		URL       string   `yaml:"url"`
		Namespace string   `yaml:"namespace"`
		Events    []string `yaml:"events"`
		Timeout   string   `yaml:"timeout"`
	} `yaml:"socketio"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
	HealthcheckPort int  `yaml:"healthcheck_port"`
	AutoRecompile   bool `yaml:"auto_recompile"`
	MaxSteps        int  `yaml:"max_steps"`
}

// loadFile reads a YAML config file. Unknown keys are rejected.
func loadFile(path string) (*fileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}
	var fc fileConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&fc); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("error parsing config file %s: %w", path, err)
	}
	return &fc, nil
}

// apply copies the values set in the file onto cfg.
func (fc *fileConfig) apply(cfg *app.Config) error {
	setString(&cfg.ScriptPath, fc.Script)
	setString(&cfg.Event, fc.Event)
	setString(&cfg.Payload, fc.Payload)
	setString(&cfg.StatePath, fc.State)
	setString(&cfg.SocketIOURL, fc.SocketIO.URL)
	setString(&cfg.SocketIONamespace, fc.SocketIO.Namespace)
	setString(&cfg.LogLevel, fc.Log.Level)
	setString(&cfg.LogFormat, fc.Log.Format)
	if len(fc.SocketIO.Events) > 0 {
		cfg.SocketIOEvents = fc.SocketIO.Events
	}
	if fc.StateTTL != "" {
		d, err := time.ParseDuration(fc.StateTTL)
		if err != nil {
			return fmt.Errorf("invalid state_ttl: %w", err)
		}
		cfg.StateTTL = d
	}
	if fc.SocketIO.Timeout != "" {
		d, err := time.ParseDuration(fc.SocketIO.Timeout)
		if err != nil {
			return fmt.Errorf("invalid socketio.timeout: %w", err)
		}
		cfg.SocketIOTimeout = d
	}
	if fc.HealthcheckPort != 0 {
		cfg.HealthcheckPort = fc.HealthcheckPort
	}
	if fc.MaxSteps != 0 {
		cfg.MaxSteps = fc.MaxSteps
	}
	cfg.AutoRecompile = cfg.AutoRecompile || fc.AutoRecompile
	return nil
}

// envVars maps environment variables onto config fields.
var envVars = map[string]func(*app.Config) *string{
	"GRIDSCRIPT_SCRIPT":             func(c *app.Config) *string { return &c.ScriptPath },
	"GRIDSCRIPT_STATE":              func(c *app.Config) *string { return &c.StatePath },
	"GRIDSCRIPT_SOCKETIO_URL":       func(c *app.Config) *string { return &c.SocketIOURL },
	"GRIDSCRIPT_SOCKETIO_NAMESPACE": func(c *app.Config) *string { return &c.SocketIONamespace },
	"GRIDSCRIPT_LOG_LEVEL":          func(c *app.Config) *string { return &c.LogLevel },
	"GRIDSCRIPT_LOG_FORMAT":         func(c *app.Config) *string { return &c.LogFormat },
}

// loadEnv reads the .env file at path into the process environment, without
// overriding variables that are already set, then applies the GRIDSCRIPT_*
// variables onto cfg. A missing file is not an error.
func loadEnv(path string, cfg *app.Config) error {
	if path != "" {
		if err := godotenv.Load(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("error loading env file %s: %w", path, err)
		}
	}
	for name, field := range envVars {
		setString(field(cfg), os.Getenv(name))
	}
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// splitList parses a comma separated flag value.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

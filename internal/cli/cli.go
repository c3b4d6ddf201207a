package cli

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/specialistvlad/gridscript/internal/app"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

func usageError(format string, args ...any) *ExitError {
	return &ExitError{Code: 2, Message: fmt.Sprintf(format, args...)}
}

// Parse processes command-line arguments. It returns a populated Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
//
// Settings are layered: defaults, then the YAML file given with -config,
// then GRIDSCRIPT_* environment variables (a .env file included), then
// flags set on the command line.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := flag.NewFlagSet("gridscript", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
gridscript - runs node-graph scripts and feeds them events.

Usage:
  gridscript [options] [SCRIPT_PATH]

Arguments:
  SCRIPT_PATH
    Path to a single .hcl script or a directory containing .hcl scripts.

Options:
`)
		flagSet.PrintDefaults()
	}

	scriptFlag := flagSet.String("script", "", "Path to the script file or directory.")
	sFlag := flagSet.String("s", "", "Path to the script file or directory (shorthand).")
	configFlag := flagSet.String("config", "", "Path to a YAML config file.")
	envFileFlag := flagSet.String("env-file", ".env", "Path to a .env file. A missing file is ignored.")
	eventFlag := flagSet.String("event", "", "Event dispatched once after the scripts are loaded.")
	payloadFlag := flagSet.String("payload", "", "JSON object with the fields of -event.")
	stateFlag := flagSet.String("state", "", "Directory or redis:// URL where script variables are kept between runs.")
	stateTTLFlag := flagSet.Duration("state-ttl", 0, "Ignore saved variables older than this. 0 keeps them forever.")
	socketURLFlag := flagSet.String("socketio-url", "", "socket.io server whose events are dispatched into the scripts.")
	socketNSFlag := flagSet.String("socketio-namespace", "", "socket.io namespace.")
	socketEventsFlag := flagSet.String("socketio-events", "", "Comma separated socket.io events to forward. Empty forwards all.")
	socketTimeoutFlag := flagSet.Duration("socketio-timeout", 15*time.Second, "Timeout for the socket.io connection.")
	logFormatFlag := flagSet.String("log-format", "json", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	healthPortFlag := flagSet.Int("healthcheck-port", 0, "Port for the HTTP health check server. 0 is disabled.")
	recompileFlag := flagSet.Bool("auto-recompile", false, "Recompile nodes before they run so edits take effect immediately.")
	maxStepsFlag := flagSet.Int("max-steps", 0, "Maximum node activations per event. 0 is unlimited.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, usageError("%s", err.Error())
	}
	slog.Debug("Arguments parsed successfully.")

	cfg := app.Config{
		LogFormat:       *logFormatFlag,
		LogLevel:        *logLevelFlag,
		SocketIOTimeout: *socketTimeoutFlag,
	}
	if *configFlag != "" {
		fc, err := loadFile(*configFlag)
		if err != nil {
			return nil, false, usageError("%s", err.Error())
		}
		if err := fc.apply(&cfg); err != nil {
			return nil, false, usageError("%s", err.Error())
		}
	}
	if err := loadEnv(*envFileFlag, &cfg); err != nil {
		return nil, false, usageError("%s", err.Error())
	}

	set := make(map[string]bool)
	flagSet.Visit(func(f *flag.Flag) { set[f.Name] = true })
	override := func(name string, dst *string, v string) {
		if set[name] {
			*dst = v
		}
	}
	override("event", &cfg.Event, *eventFlag)
	override("payload", &cfg.Payload, *payloadFlag)
	override("state", &cfg.StatePath, *stateFlag)
	override("socketio-url", &cfg.SocketIOURL, *socketURLFlag)
	override("socketio-namespace", &cfg.SocketIONamespace, *socketNSFlag)
	override("log-format", &cfg.LogFormat, *logFormatFlag)
	override("log-level", &cfg.LogLevel, *logLevelFlag)
	if set["socketio-events"] {
		cfg.SocketIOEvents = splitList(*socketEventsFlag)
	}
	if set["state-ttl"] {
		cfg.StateTTL = *stateTTLFlag
	}
	if set["socketio-timeout"] {
		cfg.SocketIOTimeout = *socketTimeoutFlag
	}
	if set["healthcheck-port"] {
		cfg.HealthcheckPort = *healthPortFlag
	}
	if set["auto-recompile"] {
		cfg.AutoRecompile = *recompileFlag
	}
	if set["max-steps"] {
		cfg.MaxSteps = *maxStepsFlag
	}

	switch {
	case *scriptFlag != "":
		cfg.ScriptPath = *scriptFlag
	case *sFlag != "":
		cfg.ScriptPath = *sFlag
	case flagSet.NArg() > 0:
		cfg.ScriptPath = flagSet.Arg(0)
	}
	slog.Debug("Script path determined.", "path", cfg.ScriptPath)

	if cfg.ScriptPath == "" {
		slog.Debug("No script path provided, printing usage and exiting.")
		flagSet.Usage()
		return nil, true, nil
	}

	cfg.LogFormat = strings.ToLower(cfg.LogFormat)
	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		return nil, false, usageError("invalid log-format: must be 'text' or 'json'")
	}
	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return nil, false, usageError("invalid log-level: must be 'debug', 'info', 'warn', or 'error'")
	}
	slog.Debug("CLI parameter validation complete.")

	config, err := app.NewConfig(cfg)
	if err != nil {
		return nil, false, usageError("%s", err.Error())
	}

	slog.Debug("CLI parser finished successfully.", "config", config)
	return config, false, nil
}

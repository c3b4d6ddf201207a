// Package cli is responsible for parsing command-line arguments, validating
// user input, and handling process-level concerns like exit codes. It
// layers flags over environment variables, an optional .env file and an
// optional YAML config file, and translates them into the application's
// configuration.
package cli

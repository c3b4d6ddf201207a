// Package app contains the host application: it wires the registry and the
// builtin modules, loads scripts, dispatches events into them and persists
// their variables, decoupled from any specific entrypoint like a CLI.
package app

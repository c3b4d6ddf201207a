// Package statestore persists snapshots of a script's primitive variables
// between runs. Object variables reference host memory and are never
// stored.
package statestore

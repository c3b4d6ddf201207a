// Package dag provides a small dependency graph used by the script compiler
// to check that pure data dependencies are acyclic and to put them into a
// valid evaluation order.
package dag

package dag

// Graph is a collection of nodes and their dependencies, representing a DAG.
// It is not safe for concurrent use.
type Graph[K comparable] struct {
	// nodes stores all nodes in the graph, keyed by their ID.
	nodes map[K]*node[K]
	// order remembers insertion order, which breaks ties when ordering.
	order []K
}

// node represents a single vertex in the graph. It is un-exported to
// enforce interaction with the graph via the public API (using IDs),
// not by direct struct manipulation.
type node[K comparable] struct {
	// id is the node's key in the graph.
	id K
	// deps holds the set of nodes that this node depends on (predecessors).
	deps map[K]*node[K]
	// dependents holds the set of nodes that depend on this node (successors).
	dependents map[K]*node[K]
}

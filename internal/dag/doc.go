// Package dag implements a small directed graph used to order template
// expansion. Nodes are identified by string IDs; edges point from a node to
// the nodes it depends on. The graph supports cycle detection with full
// chain reporting and Kahn topological ordering.
package dag

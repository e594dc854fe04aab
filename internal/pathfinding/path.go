package pathfinding

import (
	"tilewalk/client/internal/grid"
	"tilewalk/client/internal/motion"
)

// Node is one step of a path: the tile reached and how it is reached.
type Node struct {
	Coordinate grid.Coordinate
	Method     motion.Mode
}

// Path is an ordered route towards a destination. The starting tile is not
// part of the node list.
type Path struct {
	destination grid.Coordinate
	nodes       []Node
	cost        int
}

// NewPath builds a path from precomputed nodes.
func NewPath(destination grid.Coordinate, nodes []Node) *Path {
	copied := make([]Node, len(nodes))
	copy(copied, nodes)
	return &Path{destination: destination, nodes: copied}
}

// Destination returns the tile the path was computed for.
func (p *Path) Destination() grid.Coordinate {
	return p.destination
}

// Valid reports whether the path still leads to target and has steps left.
func (p *Path) Valid(target grid.Coordinate) bool {
	return p != nil && p.destination == target && len(p.nodes) > 0
}

// Len reports the number of remaining nodes.
func (p *Path) Len() int {
	if p == nil {
		return 0
	}
	return len(p.nodes)
}

// Nodes returns a copy of the remaining nodes.
func (p *Path) Nodes() []Node {
	if p == nil {
		return nil
	}
	copied := make([]Node, len(p.nodes))
	copy(copied, p.nodes)
	return copied
}

// Cost is the summed edge cost the search assigned to the path.
func (p *Path) Cost() int {
	if p == nil {
		return 0
	}
	return p.cost
}

// Next consumes and returns the first remaining node.
func (p *Path) Next() (Node, bool) {
	if p == nil || len(p.nodes) == 0 {
		return Node{}, false
	}
	node := p.nodes[0]
	p.nodes = p.nodes[1:]
	return node, true
}

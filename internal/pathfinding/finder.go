package pathfinding

import (
	"container/heap"
	"math"

	"tilewalk/client/internal/grid"
	"tilewalk/client/internal/motion"
)

// DefaultMaxNodes bounds how many tiles a single search may expand.
const DefaultMaxNodes = 4096

// CostSource prices the edges of the search graph.
type CostSource interface {
	// StepCost returns the cost of a step from origin, or motion.Blocked.
	StepCost(origin grid.Coordinate, method motion.Mode, dir grid.Direction) int
	// LowerBound returns a cost no single step of method can undercut.
	LowerBound(method motion.Mode) int
}

// ModelCosts adapts a motion.Model to CostSource.
type ModelCosts struct {
	Model motion.Model
}

// StepCost implements CostSource.
func (c ModelCosts) StepCost(origin grid.Coordinate, method motion.Mode, dir grid.Direction) int {
	return c.Model.Evaluate(origin, method, dir)
}

// LowerBound implements CostSource.
func (c ModelCosts) LowerBound(method motion.Mode) int {
	return motion.LowerBound(method)
}

// Options restricts a single search.
type Options struct {
	// Directions allowed for each step. Empty means all eight.
	Directions []grid.Direction
	// Methods allowed for each step. Empty means walking only.
	Methods []motion.Mode
	// GoalRadius accepts any tile within this step distance of the goal.
	GoalRadius int
	// MaxNodes overrides the finder's expansion budget when positive.
	MaxNodes int
}

// Finder runs A* searches over the tile grid.
type Finder struct {
	costs    CostSource
	maxNodes int
}

// NewFinder constructs a finder pricing edges with costs.
func NewFinder(costs CostSource) *Finder {
	return &Finder{costs: costs, maxNodes: DefaultMaxNodes}
}

type searchNode struct {
	point  grid.Coordinate
	method motion.Mode
	g      int
	f      float64
	h      float64
	seq    int
	index  int
	parent *searchNode
}

type searchQueue []*searchNode

func (pq searchQueue) Len() int { return len(pq) }

func (pq searchQueue) Less(i, j int) bool {
	if pq[i].f != pq[j].f {
		return pq[i].f < pq[j].f
	}
	if pq[i].h != pq[j].h {
		return pq[i].h < pq[j].h
	}
	return pq[i].seq < pq[j].seq
}

func (pq searchQueue) Swap(i, j int) {
	pq[i], pq[j] = pq[j], pq[i]
	pq[i].index = i
	pq[j].index = j
}

func (pq *searchQueue) Push(x any) {
	n := len(*pq)
	item := x.(*searchNode)
	item.index = n
	*pq = append(*pq, item)
}

func (pq *searchQueue) Pop() any {
	old := *pq
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	*pq = old[:n-1]
	return item
}

// Find searches for the cheapest route from start to within opts.GoalRadius of
// goal. It returns false when the goal cannot be reached under the given
// restrictions or within the expansion budget.
func (f *Finder) Find(start, goal grid.Coordinate, opts Options) (*Path, bool) {
	if f == nil || f.costs == nil {
		return nil, false
	}
	if start.Layer != goal.Layer {
		return nil, false
	}
	directions := opts.Directions
	if len(directions) == 0 {
		directions = grid.Directions[:]
	}
	methods := opts.Methods
	if len(methods) == 0 {
		methods = []motion.Mode{motion.ModeWalk}
	}
	budget := f.maxNodes
	if opts.MaxNodes > 0 {
		budget = opts.MaxNodes
	}
	perTile := f.perTileBound(methods)
	heuristic := func(c grid.Coordinate) float64 {
		remaining := c.StepDistance(goal) - opts.GoalRadius
		if remaining <= 0 {
			return 0
		}
		return float64(remaining) * perTile
	}

	if start.StepDistance(goal) <= opts.GoalRadius {
		return NewPath(goal, nil), true
	}

	open := &searchQueue{}
	heap.Init(open)
	seq := 0
	h0 := heuristic(start)
	heap.Push(open, &searchNode{point: start, f: h0, h: h0})
	gScore := map[grid.Coordinate]int{start: 0}
	closed := make(map[grid.Coordinate]struct{})

	for open.Len() > 0 {
		current := heap.Pop(open).(*searchNode)
		if _, seen := closed[current.point]; seen {
			continue
		}
		closed[current.point] = struct{}{}
		if current.point.StepDistance(goal) <= opts.GoalRadius {
			path := reconstructPath(goal, current)
			path.cost = current.g
			return path, true
		}
		if len(closed) >= budget {
			return nil, false
		}

		for _, dir := range directions {
			for _, method := range methods {
				cost := f.costs.StepCost(current.point, method, dir)
				if cost == motion.Blocked || cost < 0 {
					continue
				}
				next := current.point.Add(dir, method.StepLength())
				if _, seen := closed[next]; seen {
					continue
				}
				tentativeG := current.g + cost
				if prev, ok := gScore[next]; ok && tentativeG >= prev {
					continue
				}
				gScore[next] = tentativeG
				seq++
				h := heuristic(next)
				heap.Push(open, &searchNode{
					point:  next,
					method: method,
					g:      tentativeG,
					f:      float64(tentativeG) + h,
					h:      h,
					seq:    seq,
					parent: current,
				})
			}
		}
	}
	return nil, false
}

// perTileBound is the cheapest cost per tile of progress among methods. Multiplied
// by the remaining step distance it never overestimates, keeping A* optimal.
func (f *Finder) perTileBound(methods []motion.Mode) float64 {
	best := math.Inf(1)
	for _, method := range methods {
		length := method.StepLength()
		if length == 0 {
			continue
		}
		bound := float64(f.costs.LowerBound(method)) / float64(length)
		if bound < best {
			best = bound
		}
	}
	if math.IsInf(best, 1) || best < 0 {
		return 0
	}
	return best
}

func reconstructPath(goal grid.Coordinate, end *searchNode) *Path {
	nodes := make([]Node, 0)
	for node := end; node != nil && node.parent != nil; node = node.parent {
		nodes = append(nodes, Node{Coordinate: node.point, Method: node.method})
	}
	for i := 0; i < len(nodes)/2; i++ {
		j := len(nodes) - 1 - i
		nodes[i], nodes[j] = nodes[j], nodes[i]
	}
	return &Path{destination: goal, nodes: nodes}
}

package routing

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/graph/path"
)

// ErrNoPath is returned when no directed path joins two nodes.
var ErrNoPath = errors.New("no path between nodes")

func (g *Graph) shortestFrom(from int64) (path.Shortest, error) {
	if _, ok := g.nodes[from]; !ok {
		return path.Shortest{}, fmt.Errorf("%w: %d", ErrNodeNotFound, from)
	}
	return path.DijkstraFrom(g.lines.Node(from), g.lines), nil
}

// ShortestPath returns the length-weighted shortest path from -> to and its
// length in meters. The path starts with from and ends with to.
func (g *Graph) ShortestPath(from, to int64) ([]int64, float64, error) {
	if _, ok := g.nodes[to]; !ok {
		return nil, 0, fmt.Errorf("%w: %d", ErrNodeNotFound, to)
	}
	if from == to {
		if _, ok := g.nodes[from]; !ok {
			return nil, 0, fmt.Errorf("%w: %d", ErrNodeNotFound, from)
		}
		return []int64{from}, 0, nil
	}

	sp, err := g.shortestFrom(from)
	if err != nil {
		return nil, 0, err
	}
	nodes, weight := sp.To(to)
	if len(nodes) == 0 || math.IsInf(weight, 1) {
		return nil, 0, fmt.Errorf("%d -> %d: %w", from, to, ErrNoPath)
	}

	ids := make([]int64, len(nodes))
	for i, n := range nodes {
		ids[i] = n.ID()
	}
	return ids, weight, nil
}

// ShortestPathLength returns the length in meters of the shortest path
// from -> to.
func (g *Graph) ShortestPathLength(from, to int64) (float64, error) {
	_, weight, err := g.ShortestPath(from, to)
	return weight, err
}

// distancesFrom returns the shortest-path length from source to every node
// reachable within maxDistance.
func (g *Graph) distancesFrom(source int64, maxDistance float64) (map[int64]float64, error) {
	sp, err := g.shortestFrom(source)
	if err != nil {
		return nil, err
	}
	within := make(map[int64]float64)
	for id := range g.nodes {
		if d := sp.WeightTo(id); d <= maxDistance {
			within[id] = d
		}
	}
	return within, nil
}

// ReturnTree answers shortest-path queries from any node to one fixed target
// with a single search over the reversed graph.
type ReturnTree struct {
	target int64
	sp     path.Shortest
}

// ReturnTree runs one Dijkstra toward to.
func (g *Graph) ReturnTree(to int64) (*ReturnTree, error) {
	if _, ok := g.nodes[to]; !ok {
		return nil, fmt.Errorf("%w: %d", ErrNodeNotFound, to)
	}
	return &ReturnTree{target: to, sp: path.DijkstraFrom(g.rev.Node(to), g.rev)}, nil
}

// Length returns the shortest distance from -> target, +Inf when the target
// cannot be reached.
func (t *ReturnTree) Length(from int64) float64 {
	return t.sp.WeightTo(from)
}

// Path returns the shortest path from -> target and its length. The path
// starts with from and ends with the target.
func (t *ReturnTree) Path(from int64) ([]int64, float64, error) {
	nodes, weight := t.sp.To(from)
	if len(nodes) == 0 || math.IsInf(weight, 1) {
		return nil, 0, fmt.Errorf("%d -> %d: %w", from, t.target, ErrNoPath)
	}
	ids := make([]int64, len(nodes))
	for i, n := range nodes {
		ids[len(nodes)-1-i] = n.ID()
	}
	return ids, weight, nil
}

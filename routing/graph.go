package routing

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/quadtree"
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/multi"
)

var (
	ErrEmptyGraph   = errors.New("graph has no nodes")
	ErrNodeNotFound = errors.New("node not found in graph")
	ErrInvalidEdge  = errors.New("invalid edge")
)

// Node represents a street intersection.
type Node struct {
	ID int64   `json:"id"`
	X  float64 `json:"x"` // longitude in degrees
	Y  float64 `json:"y"` // latitude in degrees
}

// Point returns the node position as an orb point (lon, lat).
func (n Node) Point() orb.Point {
	return orb.Point{n.X, n.Y}
}

// Edge represents a directed street segment. Parallel segments between the
// same pair of nodes are told apart by Key.
type Edge struct {
	FromID   int64
	ToID     int64
	Key      int
	Length   float64        // meters
	Bearing  float64        // compass degrees in [0, 360)
	Geometry orb.LineString // lon/lat polyline, at least the two endpoints
}

// Graph is an immutable street multigraph. It is safe for concurrent reads.
type Graph struct {
	nodes map[int64]Node
	out   map[int64][]Edge  // outgoing edges ordered by (ToID, Key)
	preds map[int64][]int64 // distinct predecessors of a node
	lines *multi.WeightedDirectedGraph
	rev   *multi.WeightedDirectedGraph // lines with every direction flipped
	index *quadtree.Quadtree
	bound orb.Bound
	edges int
}

type nodePoint struct {
	id int64
	p  orb.Point
}

func (n nodePoint) Point() orb.Point { return n.p }

// NewGraph builds a graph from nodes and edges. Edges with a NaN bearing get
// one computed from their endpoint coordinates. Edges with a missing
// endpoint, a negative or non-finite length, or a duplicate (from, to, key)
// triple are rejected.
func NewGraph(nodes []Node, edges []Edge) (*Graph, error) {
	if len(nodes) == 0 {
		return nil, ErrEmptyGraph
	}

	g := &Graph{
		nodes: make(map[int64]Node, len(nodes)),
		out:   make(map[int64][]Edge),
		preds: make(map[int64][]int64),
		lines: multi.NewWeightedDirectedGraph(),
		rev:   multi.NewWeightedDirectedGraph(),
	}
	g.lines.EdgeWeightFunc = shortestLine
	g.rev.EdgeWeightFunc = shortestLine

	g.bound = orb.Bound{Min: nodes[0].Point(), Max: nodes[0].Point()}
	for _, n := range nodes {
		if _, dup := g.nodes[n.ID]; dup {
			return nil, fmt.Errorf("duplicate node %d", n.ID)
		}
		if math.IsNaN(n.X) || math.IsNaN(n.Y) {
			return nil, fmt.Errorf("node %d has no coordinates", n.ID)
		}
		g.nodes[n.ID] = n
		g.bound = g.bound.Extend(n.Point())
		g.lines.AddNode(multi.Node(n.ID))
		g.rev.AddNode(multi.Node(n.ID))
	}

	seen := make(map[Segment]bool, len(edges))
	predSeen := make(map[[2]int64]bool, len(edges))
	for _, e := range edges {
		from, ok := g.nodes[e.FromID]
		if !ok {
			return nil, fmt.Errorf("edge %d->%d: %w: %d", e.FromID, e.ToID, ErrNodeNotFound, e.FromID)
		}
		to, ok := g.nodes[e.ToID]
		if !ok {
			return nil, fmt.Errorf("edge %d->%d: %w: %d", e.FromID, e.ToID, ErrNodeNotFound, e.ToID)
		}
		if math.IsNaN(e.Length) || math.IsInf(e.Length, 0) || e.Length < 0 {
			return nil, fmt.Errorf("edge %d->%d: %w: length %v", e.FromID, e.ToID, ErrInvalidEdge, e.Length)
		}
		seg := Segment{From: e.FromID, To: e.ToID, Key: e.Key}
		if seen[seg] {
			return nil, fmt.Errorf("edge %d->%d key %d: %w: duplicate", e.FromID, e.ToID, e.Key, ErrInvalidEdge)
		}
		seen[seg] = true

		if math.IsNaN(e.Bearing) {
			e.Bearing = Bearing(from.Point(), to.Point())
		}
		if len(e.Geometry) < 2 {
			e.Geometry = orb.LineString{from.Point(), to.Point()}
		}
		g.out[e.FromID] = append(g.out[e.FromID], e)
		g.edges++

		if !predSeen[[2]int64{e.ToID, e.FromID}] {
			predSeen[[2]int64{e.ToID, e.FromID}] = true
			g.preds[e.ToID] = append(g.preds[e.ToID], e.FromID)
		}

		// Self loops never shorten a path.
		if e.FromID != e.ToID {
			g.lines.SetWeightedLine(g.lines.NewWeightedLine(multi.Node(e.FromID), multi.Node(e.ToID), e.Length))
			g.rev.SetWeightedLine(g.rev.NewWeightedLine(multi.Node(e.ToID), multi.Node(e.FromID), e.Length))
		}
	}

	for id := range g.out {
		out := g.out[id]
		sort.Slice(out, func(i, j int) bool {
			if out[i].ToID != out[j].ToID {
				return out[i].ToID < out[j].ToID
			}
			return out[i].Key < out[j].Key
		})
	}

	g.index = quadtree.New(g.bound.Pad(1e-6))
	for _, n := range g.nodes {
		if err := g.index.Add(nodePoint{id: n.ID, p: n.Point()}); err != nil {
			return nil, fmt.Errorf("index node %d: %w", n.ID, err)
		}
	}

	return g, nil
}

// shortestLine weighs a bundle of parallel lines by its shortest member.
func shortestLine(lines graph.WeightedLines) float64 {
	if lines == nil || lines.Len() == 0 {
		return 0
	}
	w := math.Inf(1)
	for lines.Next() {
		w = math.Min(w, lines.WeightedLine().Weight())
	}
	lines.Reset()
	return w
}

// NumNodes returns the number of nodes.
func (g *Graph) NumNodes() int { return len(g.nodes) }

// NumEdges returns the number of directed edges, parallel edges included.
func (g *Graph) NumEdges() int { return g.edges }

// Node returns the node with the given id.
func (g *Graph) Node(id int64) (Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// NodeIDs returns all node ids in ascending order.
func (g *Graph) NodeIDs() []int64 {
	ids := make([]int64, 0, len(g.nodes))
	for id := range g.nodes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// OutEdges returns the outgoing edges of a node. The slice must not be
// modified.
func (g *Graph) OutEdges(id int64) []Edge {
	return g.out[id]
}

// Edge returns the edge (from, to, key).
func (g *Graph) Edge(from, to int64, key int) (Edge, bool) {
	for _, e := range g.out[from] {
		if e.ToID == to && e.Key == key {
			return e, true
		}
	}
	return Edge{}, false
}

// Neighbors returns the distinct nodes adjacent to id in either direction.
func (g *Graph) Neighbors(id int64) []int64 {
	seen := make(map[int64]bool)
	var ids []int64
	for _, e := range g.out[id] {
		if !seen[e.ToID] {
			seen[e.ToID] = true
			ids = append(ids, e.ToID)
		}
	}
	for _, p := range g.preds[id] {
		if !seen[p] {
			seen[p] = true
			ids = append(ids, p)
		}
	}
	return ids
}

// SegmentLength returns the length of the key-0 edge from -> to, falling back
// to the reverse edge for streets stored in one direction only, and to 0 when
// neither exists.
func (g *Graph) SegmentLength(from, to int64) float64 {
	if e, ok := g.Edge(from, to, 0); ok {
		return e.Length
	}
	if e, ok := g.Edge(to, from, 0); ok {
		return e.Length
	}
	return 0
}

// segmentBearing returns the bearing of the key-0 edge from -> to, or NaN.
func (g *Graph) segmentBearing(from, to int64) float64 {
	if e, ok := g.Edge(from, to, 0); ok {
		return e.Bearing
	}
	return math.NaN()
}

// Bound returns the bounding box of all nodes.
func (g *Graph) Bound() orb.Bound { return g.bound }

// Contains reports whether p lies inside the network bounding box.
func (g *Graph) Contains(p orb.Point) bool { return g.bound.Contains(p) }

// Edges returns every edge ordered by (FromID, ToID, Key).
func (g *Graph) Edges() []Edge {
	edges := make([]Edge, 0, g.edges)
	for _, id := range g.NodeIDs() {
		edges = append(edges, g.out[id]...)
	}
	return edges
}

// subgraph returns the graph induced by keep.
func (g *Graph) subgraph(keep map[int64]bool) (*Graph, error) {
	nodes := make([]Node, 0, len(keep))
	var edges []Edge
	for _, id := range g.NodeIDs() {
		if !keep[id] {
			continue
		}
		nodes = append(nodes, g.nodes[id])
		for _, e := range g.out[id] {
			if keep[e.ToID] {
				edges = append(edges, e)
			}
		}
	}
	return NewGraph(nodes, edges)
}

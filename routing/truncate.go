package routing

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/topo"
)

// DefaultTruncateRadius is the walking radius of an area, in meters.
const DefaultTruncateRadius = 2000.0

// Area is the walkable street network around a center node.
type Area struct {
	Center   int64
	Graph    *Graph
	Geometry *geojson.FeatureCollection
	BBox     [4]float64 // min lon, min lat, max lon, max lat
}

// Truncate returns the subgraph of nodes within maxDistance meters of center
// along the street network. Only the largest weakly connected component is
// kept.
func (g *Graph) Truncate(center int64, maxDistance float64) (*Graph, error) {
	within, err := g.distancesFrom(center, maxDistance)
	if err != nil {
		return nil, err
	}
	keep := make(map[int64]bool, len(within))
	for id := range within {
		keep[id] = true
	}
	sub, err := g.subgraph(keep)
	if err != nil {
		return nil, fmt.Errorf("truncate around %d: %w", center, err)
	}
	return sub.largestComponent(center)
}

// largestComponent keeps the biggest weakly connected component. Ties go to
// the component holding prefer.
func (g *Graph) largestComponent(prefer int64) (*Graph, error) {
	components := topo.ConnectedComponents(graph.Undirect{G: g.lines})
	if len(components) <= 1 {
		return g, nil
	}

	var best []graph.Node
	bestHasPrefer := false
	for _, c := range components {
		hasPrefer := false
		for _, n := range c {
			if n.ID() == prefer {
				hasPrefer = true
				break
			}
		}
		if len(c) > len(best) || (len(c) == len(best) && hasPrefer && !bestHasPrefer) {
			best, bestHasPrefer = c, hasPrefer
		}
	}

	keep := make(map[int64]bool, len(best))
	for _, n := range best {
		keep[n.ID()] = true
	}
	return g.subgraph(keep)
}

// Truncator cuts walking areas out of a shared street network.
type Truncator struct {
	graph  *Graph
	radius float64
	logger *slog.Logger
}

// NewTruncator returns a truncator using radius meters, or
// DefaultTruncateRadius when radius is not positive.
func NewTruncator(g *Graph, radius float64, logger *slog.Logger) *Truncator {
	if radius <= 0 {
		radius = DefaultTruncateRadius
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Truncator{graph: g, radius: radius, logger: logger}
}

// Radius returns the truncation radius in meters.
func (t *Truncator) Radius() float64 { return t.radius }

// Truncate builds the simplified walking area around the node nearest to p.
func (t *Truncator) Truncate(ctx context.Context, p orb.Point) (*Area, error) {
	began := time.Now()
	center, err := t.graph.NearestNode(p)
	if err != nil {
		return nil, err
	}
	sub, err := t.graph.Truncate(center, t.radius)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	simple, err := sub.Simplify()
	if err != nil {
		return nil, fmt.Errorf("simplify area around %d: %w", center, err)
	}

	fc := simple.FeatureCollection()
	area := &Area{
		Center:   center,
		Graph:    simple,
		Geometry: fc,
		BBox:     bbox(fc, simple.Bound()),
	}
	t.logger.Debug("area truncated",
		"center", center,
		"radius_m", t.radius,
		"nodes", simple.NumNodes(),
		"edges", simple.NumEdges(),
		"elapsed", time.Since(began),
	)
	return area, nil
}

package routing

import (
	"errors"
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
)

// ErrOutOfBounds is returned for coordinates outside the street network.
var ErrOutOfBounds = errors.New("coordinates outside the street network")

// nearestCandidates is how many planar neighbours are re-ranked by
// great-circle distance.
const nearestCandidates = 8

// Bearing returns the compass bearing in [0, 360) from a to b. It is NaN when
// the two points coincide.
func Bearing(a, b orb.Point) float64 {
	if a.Equal(b) {
		return math.NaN()
	}
	return math.Mod(geo.Bearing(a, b)+360, 360)
}

// bearingDelta returns the smallest angle between two bearings, in [0, 180].
func bearingDelta(a, b float64) float64 {
	if math.IsNaN(a) || math.IsNaN(b) {
		return math.NaN()
	}
	d := math.Mod(math.Abs(a-b), 360)
	if d > 180 {
		d = 360 - d
	}
	return d
}

// NearestNode returns the id of the node closest to p.
func (g *Graph) NearestNode(p orb.Point) (int64, error) {
	if len(g.nodes) == 0 {
		return 0, ErrEmptyGraph
	}

	var nearest int64
	minDistance := math.Inf(1)
	for _, ptr := range g.index.KNearest(nil, p, nearestCandidates) {
		np := ptr.(nodePoint)
		dist := geo.DistanceHaversine(p, np.p)
		if dist < minDistance || (dist == minDistance && np.id < nearest) {
			minDistance = dist
			nearest = np.id
		}
	}
	if math.IsInf(minDistance, 1) {
		return 0, fmt.Errorf("nearest node to %v: %w", p, ErrNodeNotFound)
	}
	return nearest, nil
}

// NearestNodeInBounds is NearestNode restricted to points inside the network
// bounding box.
func (g *Graph) NearestNodeInBounds(p orb.Point) (int64, error) {
	if !g.Contains(p) {
		return 0, fmt.Errorf("lon %.6f lat %.6f: %w", p.Lon(), p.Lat(), ErrOutOfBounds)
	}
	return g.NearestNode(p)
}

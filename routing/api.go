package routing

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// PointRequest is the body of POST /streets.
type PointRequest struct {
	Lat *float64 `json:"lat" binding:"required"`
	Lon *float64 `json:"lon" binding:"required"`
}

// Point returns the request coordinates as (lon, lat).
func (r PointRequest) Point() orb.Point {
	return orb.Point{*r.Lon, *r.Lat}
}

// LoopRequest is the body of POST /route. Goal and Tolerance fall back to the
// server defaults when omitted.
type LoopRequest struct {
	PointRequest
	User      string   `json:"user,omitempty"`
	Goal      *float64 `json:"goal,omitempty"`
	Tolerance *float64 `json:"tolerance,omitempty"`
	Unit      string   `json:"unit,omitempty"`
}

// ErrorResponse is returned with every 4xx and 5xx status.
type ErrorResponse struct {
	Message string `json:"message"`
}

// AreaResponse is the [geometry, bbox] pair the front end expects.
func AreaResponse(a *Area) []any {
	return []any{a.Geometry, a.BBox}
}

// LoopResponse renders loop over g as a [geometry, bbox] pair.
func LoopResponse(g *Graph, loop *Loop) []any {
	fc := g.RouteFeatureCollection(loop)
	return []any{fc, BBox(fc)}
}

// LoopSummary is the machine-readable form of a loop printed by the CLI.
type LoopSummary struct {
	*Loop
	Geometry *geojson.FeatureCollection `json:"geometry"`
	BBox     [4]float64                 `json:"bbox"`
}

// Summarize bundles a loop with its geometry.
func Summarize(g *Graph, loop *Loop) LoopSummary {
	fc := g.RouteFeatureCollection(loop)
	return LoopSummary{Loop: loop, Geometry: fc, BBox: BBox(fc)}
}

package routing

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// FeatureCollection renders every edge as a LineString feature.
func (g *Graph) FeatureCollection() *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, e := range g.Edges() {
		f := geojson.NewFeature(e.Geometry)
		f.Properties["u"] = e.FromID
		f.Properties["v"] = e.ToID
		f.Properties["key"] = e.Key
		f.Properties["length"] = e.Length
		f.Properties["bearing"] = e.Bearing
		fc.Append(f)
	}
	fc.BBox = geojson.NewBBox(g.bound)
	return fc
}

// RouteFeatureCollection renders a loop as one LineString following the
// stored street geometry, with the loop statistics as properties.
func (g *Graph) RouteFeatureCollection(loop *Loop) *geojson.FeatureCollection {
	var line orb.LineString
	for i, id := range loop.Nodes {
		if i == 0 {
			n := g.nodes[id]
			line = append(line, n.Point())
			continue
		}
		line = append(line, g.segmentGeometry(loop.Nodes[i-1], id)[1:]...)
	}
	if len(line) == 1 {
		line = append(line, line[0])
	}

	f := geojson.NewFeature(line)
	f.ID = loop.ID
	f.Properties["start"] = loop.Start
	f.Properties["length"] = loop.Length
	f.Properties["novel_segments"] = loop.NovelSegments
	f.Properties["novel_length"] = loop.NovelLength
	f.Properties["degenerate"] = loop.Degenerate

	fc := geojson.NewFeatureCollection()
	fc.Append(f)
	fc.BBox = geojson.NewBBox(line.Bound())
	return fc
}

// segmentGeometry returns the polyline from -> to, reversing the reverse
// edge when only that one exists.
func (g *Graph) segmentGeometry(from, to int64) orb.LineString {
	if e, ok := g.Edge(from, to, 0); ok {
		return e.Geometry
	}
	if e, ok := g.Edge(to, from, 0); ok {
		rev := e.Geometry.Clone()
		rev.Reverse()
		return rev
	}
	return orb.LineString{g.nodes[from].Point(), g.nodes[to].Point()}
}

// bbox returns the bounds of the features in fc, falling back to fallback for
// a collection without geometry.
func bbox(fc *geojson.FeatureCollection, fallback orb.Bound) [4]float64 {
	b, ok := orb.Bound{}, false
	for _, f := range fc.Features {
		if f.Geometry == nil {
			continue
		}
		if !ok {
			b, ok = f.Geometry.Bound(), true
			continue
		}
		b = b.Union(f.Geometry.Bound())
	}
	if !ok {
		b = fallback
	}
	return [4]float64{b.Min.Lon(), b.Min.Lat(), b.Max.Lon(), b.Max.Lat()}
}

// BBox returns the bounds of a feature collection as
// [min lon, min lat, max lon, max lat].
func BBox(fc *geojson.FeatureCollection) [4]float64 {
	return bbox(fc, orb.Bound{})
}

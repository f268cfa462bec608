package routing

import "math"

// isEndpoint reports whether id must survive topology simplification. A node
// is interstitial only when it sits in the middle of a single street: two
// distinct neighbours, no self loop, and either one edge in and one out or two
// edges in and two out.
func (g *Graph) isEndpoint(id int64) bool {
	neighbors := g.Neighbors(id)
	if len(neighbors) != 2 {
		return true
	}
	for _, n := range neighbors {
		if n == id {
			return true
		}
	}

	out := len(g.out[id])
	in := 0
	for _, p := range g.preds[id] {
		for _, e := range g.out[p] {
			if e.ToID == id {
				in++
			}
		}
	}
	if in == 0 || out == 0 {
		return true
	}
	return !((in == 1 && out == 1) || (in == 2 && out == 2))
}

// chain follows e through interstitial nodes and returns the edges walked.
func (g *Graph) chain(e Edge, endpoints map[int64]bool) []Edge {
	path := []Edge{e}
	visited := map[int64]bool{e.FromID: true}
	for cur := e; !endpoints[cur.ToID] && !visited[cur.ToID]; {
		visited[cur.ToID] = true
		var next []Edge
		for _, o := range g.out[cur.ToID] {
			if o.ToID != cur.FromID {
				next = append(next, o)
			}
		}
		if len(next) != 1 {
			break
		}
		cur = next[0]
		path = append(path, cur)
	}
	return path
}

// Simplify merges chains of interstitial nodes into single edges. Merged
// edges carry the summed length and the concatenated geometry; their bearing
// is taken between the chain endpoints. Edges that belong to no chain, such
// as isolated rings, are kept unchanged.
func (g *Graph) Simplify() (*Graph, error) {
	endpoints := make(map[int64]bool)
	for id := range g.nodes {
		if g.isEndpoint(id) {
			endpoints[id] = true
		}
	}

	consumed := make(map[Segment]bool)
	used := make(map[Segment]bool)
	keep := make(map[int64]bool, len(endpoints))
	var edges []Edge

	add := func(e Edge) {
		key := 0
		for used[Segment{From: e.FromID, To: e.ToID, Key: key}] {
			key++
		}
		e.Key = key
		used[Segment{From: e.FromID, To: e.ToID, Key: key}] = true
		keep[e.FromID], keep[e.ToID] = true, true
		edges = append(edges, e)
	}

	for _, id := range g.NodeIDs() {
		if !endpoints[id] {
			continue
		}
		keep[id] = true
		for _, e := range g.out[id] {
			seg := Segment{From: e.FromID, To: e.ToID, Key: e.Key}
			if consumed[seg] {
				continue
			}
			path := g.chain(e, endpoints)
			merged := Edge{FromID: e.FromID, ToID: path[len(path)-1].ToID, Bearing: e.Bearing}
			for i, p := range path {
				consumed[Segment{From: p.FromID, To: p.ToID, Key: p.Key}] = true
				merged.Length += p.Length
				if i == 0 {
					merged.Geometry = append(merged.Geometry, p.Geometry...)
				} else {
					merged.Geometry = append(merged.Geometry, p.Geometry[1:]...)
				}
			}
			if len(path) > 1 {
				from, to := g.nodes[merged.FromID], g.nodes[merged.ToID]
				if b := Bearing(from.Point(), to.Point()); !math.IsNaN(b) {
					merged.Bearing = b
				}
			}
			add(merged)
		}
	}

	for _, e := range g.Edges() {
		if !consumed[Segment{From: e.FromID, To: e.ToID, Key: e.Key}] {
			add(e)
		}
	}

	nodes := make([]Node, 0, len(keep))
	for _, id := range g.NodeIDs() {
		if keep[id] {
			nodes = append(nodes, g.nodes[id])
		}
	}
	return NewGraph(nodes, edges)
}

package routing

import (
	"math"
	"testing"
)

// metersPerDegree approximates one degree of latitude near the equator.
const metersPerDegree = 111_195.0

func twoWay(a, b int64, length float64) []Edge {
	return []Edge{
		{FromID: a, ToID: b, Length: length, Bearing: math.NaN()},
		{FromID: b, ToID: a, Length: length, Bearing: math.NaN()},
	}
}

func mustGraph(t testing.TB, nodes []Node, edges []Edge) *Graph {
	t.Helper()
	g, err := NewGraph(nodes, edges)
	if err != nil {
		t.Fatalf("NewGraph: %v", err)
	}
	return g
}

// ringGraph is a hexagon of six nodes joined by two-way 1000 m streets.
func ringGraph(t testing.TB) *Graph {
	t.Helper()
	r := 1000 / metersPerDegree
	var nodes []Node
	var edges []Edge
	for k := 0; k < 6; k++ {
		angle := float64(k) * math.Pi / 3
		nodes = append(nodes, Node{ID: int64(k + 1), X: r * math.Cos(angle), Y: r * math.Sin(angle)})
		edges = append(edges, twoWay(int64(k+1), int64((k+1)%6+1), 1000)...)
	}
	return mustGraph(t, nodes, edges)
}

// gridGraph is an n x n lattice of two-way 100 m streets. Node ids run row by
// row from 1.
func gridGraph(t testing.TB, n int) *Graph {
	t.Helper()
	spacing := 100 / metersPerDegree
	id := func(i, j int) int64 { return int64(i*n + j + 1) }
	var nodes []Node
	var edges []Edge
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			nodes = append(nodes, Node{ID: id(i, j), X: float64(j) * spacing, Y: float64(i) * spacing})
			if j+1 < n {
				edges = append(edges, twoWay(id(i, j), id(i, j+1), 100)...)
			}
			if i+1 < n {
				edges = append(edges, twoWay(id(i, j), id(i+1, j), 100)...)
			}
		}
	}
	return mustGraph(t, nodes, edges)
}

// lineGraph is a straight east-west street of n nodes with 100 m segments.
func lineGraph(t testing.TB, n int) *Graph {
	t.Helper()
	spacing := 100 / metersPerDegree
	var nodes []Node
	var edges []Edge
	for i := 0; i < n; i++ {
		nodes = append(nodes, Node{ID: int64(i + 1), X: float64(i) * spacing})
		if i+1 < n {
			edges = append(edges, twoWay(int64(i+1), int64(i+2), 100)...)
		}
	}
	return mustGraph(t, nodes, edges)
}

func equalPath(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func almostEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

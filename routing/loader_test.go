package routing

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestGraphFileRoundTrip(t *testing.T) {
	g := ringGraph(t)
	dir := t.TempDir()

	for _, name := range []string{"walk_graph.gob", "walk_graph.json"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name)
			if err := WriteGraphFile(path, NewGraphFile(g)); err != nil {
				t.Fatalf("WriteGraphFile returned error: %v", err)
			}
			loaded, err := LoadGraph(path)
			if err != nil {
				t.Fatalf("LoadGraph returned error: %v", err)
			}
			if loaded.NumNodes() != g.NumNodes() || loaded.NumEdges() != g.NumEdges() {
				t.Errorf("loaded %d nodes %d edges, want %d and %d",
					loaded.NumNodes(), loaded.NumEdges(), g.NumNodes(), g.NumEdges())
			}
			want, _ := g.Edge(1, 2, 0)
			got, ok := loaded.Edge(1, 2, 0)
			if !ok || got.Length != want.Length || !almostEqual(got.Bearing, want.Bearing, 1e-9) {
				t.Errorf("edge 1->2 = %+v, want %+v", got, want)
			}
		})
	}
}

func TestDecodeGraphFileComputesMissingBearing(t *testing.T) {
	body := `{
		"nodes": [{"id": 1, "x": 0, "y": 0}, {"id": 2, "x": 0, "y": 0.001}],
		"edges": [{"u": 1, "v": 2, "key": 0, "length": 111}]
	}`
	f, err := DecodeGraphFile(strings.NewReader(body), true)
	if err != nil {
		t.Fatalf("DecodeGraphFile returned error: %v", err)
	}
	g, err := f.Build()
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	e, _ := g.Edge(1, 2, 0)
	if math.IsNaN(e.Bearing) || !almostEqual(e.Bearing, 0, 1e-6) {
		t.Errorf("bearing = %v, want 0", e.Bearing)
	}
}

func TestLoadGraphRejectsBrokenFiles(t *testing.T) {
	dir := t.TempDir()

	bad := filepath.Join(dir, "bad.json")
	body := `{"nodes": [{"id": 1}], "edges": [{"u": 1, "v": 2, "length": 5}]}`
	if err := os.WriteFile(bad, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadGraph(bad); !errors.Is(err, ErrNodeNotFound) {
		t.Errorf("expected ErrNodeNotFound, got %v", err)
	}

	if _, err := LoadGraph(filepath.Join(dir, "missing.gob")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected os.ErrNotExist, got %v", err)
	}
}

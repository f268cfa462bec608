package routing

import (
	"encoding/gob"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/paulmach/orb"
)

// GraphFile is the on-disk form of a street graph, stored as gob or JSON.
type GraphFile struct {
	Nodes []Node       `json:"nodes"`
	Edges []EdgeRecord `json:"edges"`
}

// EdgeRecord is one stored edge. A nil Bearing is computed from the endpoint
// coordinates at load time.
type EdgeRecord struct {
	U        int64        `json:"u"`
	V        int64        `json:"v"`
	Key      int          `json:"key"`
	Length   float64      `json:"length"`
	Bearing  *float64     `json:"bearing,omitempty"`
	Geometry [][2]float64 `json:"geometry,omitempty"`
}

// Build validates the file and constructs the graph.
func (f *GraphFile) Build() (*Graph, error) {
	edges := make([]Edge, len(f.Edges))
	for i, r := range f.Edges {
		e := Edge{FromID: r.U, ToID: r.V, Key: r.Key, Length: r.Length, Bearing: math.NaN()}
		if r.Bearing != nil {
			e.Bearing = *r.Bearing
		}
		for _, c := range r.Geometry {
			e.Geometry = append(e.Geometry, orb.Point(c))
		}
		edges[i] = e
	}
	return NewGraph(f.Nodes, edges)
}

// NewGraphFile is the inverse of Build.
func NewGraphFile(g *Graph) *GraphFile {
	f := &GraphFile{Nodes: make([]Node, 0, g.NumNodes())}
	for _, id := range g.NodeIDs() {
		f.Nodes = append(f.Nodes, g.nodes[id])
	}
	for _, e := range g.Edges() {
		bearing := e.Bearing
		r := EdgeRecord{U: e.FromID, V: e.ToID, Key: e.Key, Length: e.Length}
		if !math.IsNaN(bearing) {
			r.Bearing = &bearing
		}
		for _, p := range e.Geometry {
			r.Geometry = append(r.Geometry, [2]float64(p))
		}
		f.Edges = append(f.Edges, r)
	}
	return f
}

func isJSON(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".json" || ext == ".geojson"
}

// DecodeGraphFile reads a graph file in gob or JSON form.
func DecodeGraphFile(r io.Reader, asJSON bool) (*GraphFile, error) {
	var f GraphFile
	var err error
	if asJSON {
		err = json.NewDecoder(r).Decode(&f)
	} else {
		err = gob.NewDecoder(r).Decode(&f)
	}
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// LoadGraph reads and builds the graph stored at path. Files ending in .json
// are decoded as JSON, everything else as gob.
func LoadGraph(path string) (*Graph, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	f, err := DecodeGraphFile(file, isJSON(path))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	g, err := f.Build()
	if err != nil {
		return nil, fmt.Errorf("build graph from %s: %w", path, err)
	}
	return g, nil
}

// WriteGraphFile stores f at path, as JSON when the extension asks for it and
// gob otherwise.
func WriteGraphFile(path string, f *GraphFile) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	if isJSON(path) {
		enc := json.NewEncoder(file)
		err = enc.Encode(f)
	} else {
		err = gob.NewEncoder(file).Encode(f)
	}
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return file.Close()
}

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkt"
	"github.com/paulmach/orb/geo"

	"walk-loop-server/routing"
)

// JSONGraph is networkx node-link data as written by osmnx. Some exports wrap
// the graph under a "graph" key next to a metadata block.
type JSONGraph struct {
	Directed   bool       `json:"directed"`
	Multigraph bool       `json:"multigraph"`
	Nodes      []JSONNode `json:"nodes"`
	Links      []JSONEdge `json:"links"`
	Edges      []JSONEdge `json:"edges"`
	Graph      *JSONGraph `json:"graph"`
}

type JSONNode struct {
	Y   float64 `json:"y"`
	X   float64 `json:"x"`
	Lon float64 `json:"lon"`
	Lat float64 `json:"lat"`
	ID  any     `json:"id"` // Can be int64 or string
}

type JSONEdge struct {
	Source   any      `json:"source"` // Can be int64 or string
	Target   any      `json:"target"` // Can be int64 or string
	Key      int      `json:"key"`
	Length   *float64 `json:"length"`
	Bearing  *float64 `json:"bearing"`
	Geometry any      `json:"geometry"` // WKT string or coordinate list
}

func (g *JSONGraph) links() []JSONEdge {
	if len(g.Links) > 0 {
		return g.Links
	}
	return g.Edges
}

func convertID(id any) (int64, error) {
	switch v := id.(type) {
	case float64:
		return int64(v), nil
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	case string:
		return strconv.ParseInt(v, 10, 64)
	case json.Number:
		return v.Int64()
	default:
		return 0, fmt.Errorf("unsupported ID type: %T", id)
	}
}

func convertGeometry(val any) (orb.LineString, error) {
	switch v := val.(type) {
	case nil:
		return nil, nil
	case string:
		return wkt.UnmarshalLineString(v)
	case []any:
		ls := make(orb.LineString, 0, len(v))
		for _, c := range v {
			pair, ok := c.([]any)
			if !ok || len(pair) < 2 {
				return nil, fmt.Errorf("invalid coordinate %v", c)
			}
			var p orb.Point
			for i := range p {
				n, ok := pair[i].(json.Number)
				if !ok {
					return nil, fmt.Errorf("invalid coordinate %v", c)
				}
				f, err := n.Float64()
				if err != nil {
					return nil, err
				}
				p[i] = f
			}
			ls = append(ls, p)
		}
		return ls, nil
	default:
		return nil, fmt.Errorf("unsupported geometry type: %T", val)
	}
}

// convert decodes node-link JSON into a graph file. Missing lengths are
// measured along the geometry, missing bearings are computed when the graph
// is built.
func convert(r io.Reader) (*routing.GraphFile, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var jsonGraph JSONGraph
	if err := dec.Decode(&jsonGraph); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}
	data := &jsonGraph
	if len(data.Nodes) == 0 && data.Graph != nil {
		data = data.Graph
	}

	file := &routing.GraphFile{}
	coords := make(map[int64]orb.Point, len(data.Nodes))
	for _, jsonNode := range data.Nodes {
		nodeID, err := convertID(jsonNode.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to convert node ID (%v): %w", jsonNode.ID, err)
		}

		lon, lat := jsonNode.X, jsonNode.Y
		if lon == 0 && lat == 0 {
			lon, lat = jsonNode.Lon, jsonNode.Lat
		}
		coords[nodeID] = orb.Point{lon, lat}
		file.Nodes = append(file.Nodes, routing.Node{ID: nodeID, X: lon, Y: lat})
	}

	for _, jsonEdge := range data.links() {
		sourceID, err := convertID(jsonEdge.Source)
		if err != nil {
			return nil, fmt.Errorf("failed to convert source ID (%v): %w", jsonEdge.Source, err)
		}
		targetID, err := convertID(jsonEdge.Target)
		if err != nil {
			return nil, fmt.Errorf("failed to convert target ID (%v): %w", jsonEdge.Target, err)
		}
		geometry, err := convertGeometry(jsonEdge.Geometry)
		if err != nil {
			return nil, fmt.Errorf("edge %d->%d geometry: %w", sourceID, targetID, err)
		}

		record := routing.EdgeRecord{
			U:       sourceID,
			V:       targetID,
			Key:     jsonEdge.Key,
			Bearing: jsonEdge.Bearing,
		}
		switch {
		case jsonEdge.Length != nil:
			record.Length = *jsonEdge.Length
		case len(geometry) > 1:
			record.Length = geo.LengthHaversine(geometry)
		default:
			record.Length = geo.DistanceHaversine(coords[sourceID], coords[targetID])
		}
		for _, p := range geometry {
			record.Geometry = append(record.Geometry, [2]float64(p))
		}
		file.Edges = append(file.Edges, record)
	}

	// Build validates the edges and fills in bearings.
	g, err := file.Build()
	if err != nil {
		return nil, err
	}
	return routing.NewGraphFile(g), nil
}

func convertJSONToGOB(inputPath, outputPath string) error {
	f, err := os.Open(inputPath)
	if err != nil {
		return fmt.Errorf("failed to open JSON file %s: %w", inputPath, err)
	}
	defer f.Close()

	file, err := convert(f)
	if err != nil {
		return fmt.Errorf("%s: %w", inputPath, err)
	}
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory for %s: %w", outputPath, err)
	}
	if err := routing.WriteGraphFile(outputPath, file); err != nil {
		return fmt.Errorf("failed to write %s: %w", outputPath, err)
	}

	fmt.Printf("Successfully converted %s to %s\n", inputPath, outputPath)
	fmt.Printf("Nodes: %d, Edges: %d\n", len(file.Nodes), len(file.Edges))
	return nil
}

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: go run json_to_gob.go <input_json_file> [output_gob_file]")
		os.Exit(1)
	}

	inputPath := os.Args[1]

	var outputPath string
	if len(os.Args) > 2 {
		outputPath = os.Args[2]
	} else {
		ext := filepath.Ext(inputPath)
		base := strings.TrimSuffix(filepath.Base(inputPath), ext)
		outputPath = filepath.Join(filepath.Dir(inputPath), base+".gob")
	}

	if err := convertJSONToGOB(inputPath, outputPath); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

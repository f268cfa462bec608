package main

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"os"

	"github.com/paulmach/orb"
	"github.com/spf13/cobra"

	"walk-loop-server/export"
	"walk-loop-server/routing"
)

var routeCmd = &cobra.Command{
	Use:   "route",
	Short: "Generate one loop from a start point",
	Example: `  loopwalk route --lat 45.5017 --lon -73.5673 --goal 5
  loopwalk route --lat 45.5017 --lon -73.5673 --goal 800 --unit m --seed 7 --json`,
	RunE: runRoute,
}

var truncateCmd = &cobra.Command{
	Use:   "truncate",
	Short: "Extract the walkable area around a point as GeoJSON",
	RunE:  runTruncate,
}

func init() {
	for _, cmd := range []*cobra.Command{routeCmd, truncateCmd} {
		cmd.Flags().Float64("lat", 0, "latitude of the start point")
		cmd.Flags().Float64("lon", 0, "longitude of the start point")
		cmd.Flags().String("graph", "", "graph file (overrides LOOPWALK_GRAPH)")
		cmd.Flags().Bool("json", false, "print JSON even on a terminal")
		_ = cmd.MarkFlagRequired("lat")
		_ = cmd.MarkFlagRequired("lon")
	}

	routeCmd.Flags().Float64("goal", 0, "target loop length (default from config)")
	routeCmd.Flags().Float64("tolerance", 0, "accepted deviation from the goal (default from config)")
	routeCmd.Flags().String("unit", "km", "unit of goal and tolerance: km or m")
	routeCmd.Flags().Uint64("seed", 0, "seed for reproducible loops")

	truncateCmd.Flags().Float64("radius", 0, "walking radius in meters (default from config)")
	truncateCmd.Flags().String("out", "", "directory to write "+export.DefaultFileName+" into")
}

// cliApp loads the graph named by --graph or the configuration.
func cliApp(cmd *cobra.Command) (*app, orb.Point, error) {
	cfg, logger, err := setup()
	if err != nil {
		return nil, orb.Point{}, err
	}
	if path, _ := cmd.Flags().GetString("graph"); path != "" {
		cfg.GraphPath = path
	}
	if cmd.Flags().Changed("radius") {
		cfg.RadiusM, _ = cmd.Flags().GetFloat64("radius")
	}
	a, err := loadCore(cfg, logger)
	if err != nil {
		return nil, orb.Point{}, err
	}
	lat, _ := cmd.Flags().GetFloat64("lat")
	lon, _ := cmd.Flags().GetFloat64("lon")
	return a, orb.Point{lon, lat}, nil
}

func optionalFloat(cmd *cobra.Command, name string) *float64 {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	v, _ := cmd.Flags().GetFloat64(name)
	return &v
}

func runRoute(cmd *cobra.Command, _ []string) error {
	a, p, err := cliApp(cmd)
	if err != nil {
		return err
	}
	unit, _ := cmd.Flags().GetString("unit")
	opts, err := a.loopOptions(optionalFloat(cmd, "goal"), optionalFloat(cmd, "tolerance"), unit)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("seed") {
		seed, _ := cmd.Flags().GetUint64("seed")
		opts.Source = rand.NewPCG(seed, seed)
	}

	start, err := a.graph.NearestNodeInBounds(p)
	if err != nil {
		return err
	}
	loop, attempts, err := a.generate(cmd.Context(), start, opts)
	if err != nil {
		return err
	}

	asJSON, _ := cmd.Flags().GetBool("json")
	if useJSON(asJSON) {
		if err := outputJSON(os.Stdout, routing.Summarize(a.graph, loop)); err != nil {
			return err
		}
	} else {
		printLoop(os.Stdout, loop, attempts)
	}
	if loop.Degenerate {
		return errors.New("no loop within tolerance, try a larger tolerance or another start")
	}
	return nil
}

func runTruncate(cmd *cobra.Command, _ []string) error {
	a, p, err := cliApp(cmd)
	if err != nil {
		return err
	}
	area, err := a.truncator.Truncate(cmd.Context(), p)
	if err != nil {
		return err
	}

	if dir, _ := cmd.Flags().GetString("out"); dir != "" {
		dest := export.NewFileDestination(dir)
		if err := export.WriteArea(cmd.Context(), area.Geometry, dest); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "wrote %s\n", dest)
	}

	asJSON, _ := cmd.Flags().GetBool("json")
	if useJSON(asJSON) {
		return outputJSON(os.Stdout, routing.AreaResponse(area))
	}
	printArea(os.Stdout, area, a.truncator.Radius())
	return nil
}

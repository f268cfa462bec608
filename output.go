package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"golang.org/x/term"

	"walk-loop-server/routing"
)

// useJSON reports whether output should be machine-readable: when forced by
// flag or when stdout is not a terminal.
func useJSON(forced bool) bool {
	if forced {
		return true
	}
	return !term.IsTerminal(int(os.Stdout.Fd()))
}

func outputJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

func printLoop(w io.Writer, loop *routing.Loop, attempts int) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Loop\t%s\n", loop.ID)
	fmt.Fprintf(tw, "Start\t%d\n", loop.Start)
	if loop.Degenerate {
		fmt.Fprintf(tw, "Status\tdegenerate after %d attempts\n", attempts)
		tw.Flush()
		return
	}
	fmt.Fprintf(tw, "Length\t%.0f m\n", loop.Length)
	fmt.Fprintf(tw, "Nodes\t%d\n", len(loop.Nodes))
	fmt.Fprintf(tw, "Novel\t%d segments, %.0f m\n", loop.NovelSegments, loop.NovelLength)
	fmt.Fprintf(tw, "Steps\t%d\n", loop.Steps)
	fmt.Fprintf(tw, "Attempts\t%d\n", attempts)
	tw.Flush()
}

func printArea(w io.Writer, area *routing.Area, radius float64) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Center\t%d\n", area.Center)
	fmt.Fprintf(tw, "Radius\t%.0f m\n", radius)
	fmt.Fprintf(tw, "Nodes\t%d\n", area.Graph.NumNodes())
	fmt.Fprintf(tw, "Edges\t%d\n", area.Graph.NumEdges())
	b := area.BBox
	fmt.Fprintf(tw, "BBox\t%.6f, %.6f, %.6f, %.6f\n", b[0], b[1], b[2], b[3])
	tw.Flush()
}

package routing

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"math/rand/v2"
	"strings"
	"testing"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestGenerateRingLoop(t *testing.T) {
	g := ringGraph(t)
	gen := NewGenerator(g, quietLogger())

	for seed := uint64(0); seed < 10; seed++ {
		loop, err := gen.GenerateFrom(context.Background(), 1, LoopOptions{
			Goal:      4000,
			Tolerance: 500,
			Unit:      UnitMeters,
			Source:    rand.NewPCG(seed, seed+1),
		})
		if err != nil {
			t.Fatalf("seed %d: GenerateFrom returned error: %v", seed, err)
		}
		if loop.Degenerate {
			t.Fatalf("seed %d: unexpected degenerate loop", seed)
		}
		if !loop.Closed() || loop.Nodes[0] != 1 {
			t.Fatalf("seed %d: loop %v does not start and end at 1", seed, loop.Nodes)
		}
		if loop.Length < 3500 || loop.Length > 4500 {
			t.Errorf("seed %d: length %v outside [3500, 4500]", seed, loop.Length)
		}
		// Two edges out, shortest path back.
		if len(loop.Nodes) != 5 || loop.Nodes[1] != loop.Nodes[3] {
			t.Errorf("seed %d: unexpected route %v", seed, loop.Nodes)
		}
		if loop.Steps != 2 {
			t.Errorf("seed %d: %d selection steps, want 2", seed, loop.Steps)
		}
		if !strings.HasPrefix(loop.ID, loopIDPrefix) {
			t.Errorf("seed %d: id %q lacks prefix", seed, loop.ID)
		}
	}
}

func TestGenerateConvertsKilometers(t *testing.T) {
	g := ringGraph(t)
	gen := NewGenerator(g, quietLogger())

	loop, err := gen.GenerateFrom(context.Background(), 1, LoopOptions{
		Goal:      4,
		Tolerance: 0.5,
		Unit:      UnitKilometers,
		Source:    rand.NewPCG(1, 1),
	})
	if err != nil {
		t.Fatalf("GenerateFrom returned error: %v", err)
	}
	if loop.Length != 4000 {
		t.Errorf("length = %v, want 4000", loop.Length)
	}
}

func TestGenerateNoveltyWithFullHistory(t *testing.T) {
	g := ringGraph(t)
	freq := Frequency{}
	for _, e := range g.Edges() {
		freq[Segment{From: e.FromID, To: e.ToID}] = 1
	}
	gen := NewGenerator(g, quietLogger())

	loop, err := gen.GenerateFrom(context.Background(), 1, LoopOptions{
		Goal:      4000,
		Tolerance: 500,
		Unit:      UnitMeters,
		Frequency: freq,
		Source:    rand.NewPCG(5, 5),
	})
	if err != nil {
		t.Fatalf("GenerateFrom returned error: %v", err)
	}
	if loop.NovelSegments != 0 || loop.NovelLength != 0 {
		t.Errorf("novelty = %d segments %v m, want 0", loop.NovelSegments, loop.NovelLength)
	}

	fresh, err := gen.GenerateFrom(context.Background(), 1, LoopOptions{
		Goal: 4000, Tolerance: 500, Unit: UnitMeters, Source: rand.NewPCG(5, 5),
	})
	if err != nil {
		t.Fatalf("GenerateFrom returned error: %v", err)
	}
	if fresh.NovelSegments != 4 || fresh.NovelLength != 4000 {
		t.Errorf("novelty = %d segments %v m, want 4 and 4000", fresh.NovelSegments, fresh.NovelLength)
	}
}

func TestGenerateOnGridAlwaysClosesOrGivesUp(t *testing.T) {
	g := gridGraph(t, 8)
	gen := NewGenerator(g, quietLogger())

	for seed := uint64(0); seed < 25; seed++ {
		loop, err := gen.GenerateFrom(context.Background(), 28, LoopOptions{
			Goal:      1.2,
			Tolerance: 0.3,
			Source:    rand.NewPCG(seed, 99),
		})
		if err != nil {
			t.Fatalf("seed %d: GenerateFrom returned error: %v", seed, err)
		}
		if loop.Degenerate {
			if len(loop.Nodes) != 1 || loop.Nodes[0] != 28 {
				t.Errorf("seed %d: degenerate loop %v", seed, loop.Nodes)
			}
			continue
		}
		if loop.Nodes[0] != 28 || loop.Nodes[len(loop.Nodes)-1] != 28 {
			t.Errorf("seed %d: loop %v is not closed at 28", seed, loop.Nodes)
		}
		if loop.Length < 600 {
			t.Errorf("seed %d: length %v shorter than the outbound half", seed, loop.Length)
		}
		if loop.Length > 1500 {
			t.Errorf("seed %d: length %v above goal plus tolerance", seed, loop.Length)
		}
		for i := 1; i < len(loop.Nodes); i++ {
			if loop.Nodes[i] == loop.Nodes[i-1] {
				t.Errorf("seed %d: repeated node at %d in %v", seed, i, loop.Nodes)
			}
		}
	}
}

func TestGenerateDegenerateWhenReturnTooLong(t *testing.T) {
	g := lineGraph(t, 2)
	g2 := mustGraph(t,
		[]Node{{ID: 1}, {ID: 2, X: 0.003}},
		twoWay(1, 2, 300))
	gen := NewGenerator(g2, quietLogger())

	loop, err := gen.GenerateFrom(context.Background(), 1, LoopOptions{Goal: 400, Tolerance: 50, Unit: UnitMeters})
	if err != nil {
		t.Fatalf("GenerateFrom returned error: %v", err)
	}
	if !loop.Degenerate || !equalPath(loop.Nodes, []int64{1}) {
		t.Errorf("expected degenerate [1], got %+v", loop)
	}
	if loop.Length != 0 {
		t.Errorf("degenerate length = %v, want 0", loop.Length)
	}

	// Out and straight back fits a generous tolerance.
	gen = NewGenerator(g, quietLogger())
	loop, err = gen.GenerateFrom(context.Background(), 1, LoopOptions{Goal: 200, Tolerance: 50, Unit: UnitMeters})
	if err != nil {
		t.Fatalf("GenerateFrom returned error: %v", err)
	}
	if loop.Degenerate || !equalPath(loop.Nodes, []int64{1, 2, 1}) {
		t.Errorf("expected [1 2 1], got %+v", loop)
	}
}

func TestGenerateDegenerateOnOvershoot(t *testing.T) {
	g := mustGraph(t,
		[]Node{{ID: 1}, {ID: 2, X: 0.001}, {ID: 3, X: 0.03}},
		append(twoWay(1, 2, 100), twoWay(2, 3, 3000)...))
	gen := NewGenerator(g, quietLogger())

	loop, err := gen.GenerateFrom(context.Background(), 1, LoopOptions{Goal: 400, Tolerance: 50, Unit: UnitMeters})
	if err != nil {
		t.Fatalf("GenerateFrom returned error: %v", err)
	}
	if !loop.Degenerate || len(loop.Nodes) != 1 {
		t.Errorf("expected degenerate loop, got %+v", loop)
	}
}

func TestGenerateStepLimit(t *testing.T) {
	g := ringGraph(t)
	gen := NewGenerator(g, quietLogger())

	loop, err := gen.GenerateFrom(context.Background(), 1, LoopOptions{
		Goal: 4000, Tolerance: 500, Unit: UnitMeters, MaxSteps: 1,
	})
	if err != nil {
		t.Fatalf("GenerateFrom returned error: %v", err)
	}
	if !loop.Degenerate || loop.Steps != 1 {
		t.Errorf("expected degenerate loop after 1 step, got %+v", loop)
	}
}

func TestGenerateHonoursCancellation(t *testing.T) {
	g := ringGraph(t)
	gen := NewGenerator(g, quietLogger())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := gen.GenerateFrom(ctx, 1, LoopOptions{Goal: 4000, Tolerance: 500, Unit: UnitMeters})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestGeneratePreconditions(t *testing.T) {
	g := mustGraph(t,
		[]Node{{ID: 1}, {ID: 2, X: 0.001}, {ID: 3, X: 0.002}},
		append(twoWay(1, 2, 100), Edge{FromID: 2, ToID: 3, Length: 100, Bearing: 90}))
	gen := NewGenerator(g, quietLogger())
	ctx := context.Background()

	tests := []struct {
		name  string
		start int64
		opts  LoopOptions
		want  error
	}{
		{"unknown start", 9, LoopOptions{Goal: 1, Tolerance: 0.1}, ErrNodeNotFound},
		{"no way out", 3, LoopOptions{Goal: 1, Tolerance: 0.1}, ErrDisconnectedStart},
		{"zero goal", 1, LoopOptions{Goal: 0, Tolerance: 0.1}, ErrInvalidOptions},
		{"negative tolerance", 1, LoopOptions{Goal: 1, Tolerance: -1}, ErrInvalidOptions},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := gen.GenerateFrom(ctx, tt.start, tt.opts); !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestGenerateFromPoint(t *testing.T) {
	g := ringGraph(t)
	gen := NewGenerator(g, quietLogger())
	n, _ := g.Node(4)

	loop, err := gen.Generate(context.Background(), n.Point(), LoopOptions{Goal: 4000, Tolerance: 500, Unit: UnitMeters})
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if loop.Start != 4 || loop.Nodes[0] != 4 {
		t.Errorf("expected loop from 4, got %+v", loop)
	}
}

func TestParseUnit(t *testing.T) {
	for in, want := range map[string]Unit{"": UnitKilometers, "km": UnitKilometers, "m": UnitMeters} {
		got, err := ParseUnit(in)
		if err != nil || got != want {
			t.Errorf("ParseUnit(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseUnit("mi"); !errors.Is(err, ErrInvalidOptions) {
		t.Errorf("expected ErrInvalidOptions, got %v", err)
	}
}

func TestDedup(t *testing.T) {
	tests := []struct {
		in, want []int64
	}{
		{nil, nil},
		{[]int64{1, 1, 2}, []int64{1, 1, 2}},
		{[]int64{1, 2, 2, 3}, []int64{1, 2, 3}},
		{[]int64{1, 1, 1, 2, 3, 3, 1}, []int64{1, 2, 3, 1}},
		{[]int64{1, 2, 3, 2, 1}, []int64{1, 2, 3, 2, 1}},
	}
	for _, tt := range tests {
		got := Dedup(tt.in)
		if !equalPath(got, tt.want) {
			t.Errorf("Dedup(%v) = %v, want %v", tt.in, got, tt.want)
		}
		if again := Dedup(got); !equalPath(again, got) {
			t.Errorf("Dedup not idempotent on %v: %v", got, again)
		}
	}
}

func TestDedupDoesNotMutate(t *testing.T) {
	in := []int64{1, 2, 2, 3, 1}
	Dedup(in)
	if !equalPath(in, []int64{1, 2, 2, 3, 1}) {
		t.Errorf("input modified: %v", in)
	}
}

func TestNovelty(t *testing.T) {
	g := ringGraph(t)
	route := []int64{1, 2, 3, 2, 1}

	tests := []struct {
		name     string
		freq     Frequency
		segments int
		length   float64
	}{
		{"no history", nil, 4, 4000},
		{"reverse direction counts", Frequency{{From: 2, To: 1}: 1}, 2, 2000},
		{"all walked", Frequency{{From: 1, To: 2}: 1, {From: 2, To: 3}: 4}, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			segments, length := Novelty(g, route, tt.freq)
			if segments != tt.segments || length != tt.length {
				t.Errorf("Novelty = %d, %v; want %d, %v", segments, length, tt.segments, tt.length)
			}
		})
	}
}

func TestGenerateAcrossSelfLoop(t *testing.T) {
	f := NewGraphFile(gridGraph(t, 8))
	f.Edges = append(f.Edges, EdgeRecord{U: 28, V: 28, Length: 120})
	g, err := f.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if e, _ := g.Edge(28, 28, 0); !math.IsNaN(e.Bearing) {
		t.Fatalf("self loop bearing = %v, want NaN", e.Bearing)
	}
	gen := NewGenerator(g, quietLogger())

	for seed := uint64(0); seed < 10; seed++ {
		loop, err := gen.GenerateFrom(context.Background(), 28, LoopOptions{
			Goal:      1.2,
			Tolerance: 0.3,
			Unit:      UnitKilometers,
			Source:    rand.NewPCG(seed, seed),
		})
		if err != nil {
			t.Fatalf("seed %d: GenerateFrom returned error: %v", seed, err)
		}
		if !loop.Degenerate && !loop.Closed() {
			t.Errorf("seed %d: loop %v neither closed nor degenerate", seed, loop.Nodes)
		}
	}
}

func TestGenerateClosesOverShortestParallelEdge(t *testing.T) {
	nodes := []Node{{ID: 1}, {ID: 2, X: 1000 / metersPerDegree}}
	edges := []Edge{
		{FromID: 1, ToID: 2, Key: 0, Length: 1000, Bearing: math.NaN()},
		{FromID: 2, ToID: 1, Key: 0, Length: 1000, Bearing: math.NaN()},
		{FromID: 2, ToID: 1, Key: 1, Length: 400, Bearing: math.NaN()},
	}
	gen := NewGenerator(mustGraph(t, nodes, edges), quietLogger())

	// Out along 1->2, then home over the 400 m parallel street.
	loop, err := gen.GenerateFrom(context.Background(), 1, LoopOptions{
		Goal:      1400,
		Tolerance: 0,
		Unit:      UnitMeters,
		Source:    rand.NewPCG(1, 2),
	})
	if err != nil {
		t.Fatalf("GenerateFrom returned error: %v", err)
	}
	if loop.Degenerate || !equalPath(loop.Nodes, []int64{1, 2, 1}) {
		t.Fatalf("unexpected loop %+v", loop)
	}
	if !almostEqual(loop.Length, 1400, 1e-9) {
		t.Errorf("length = %v, want 1400", loop.Length)
	}
}

func TestDedupCollapsesFinalPair(t *testing.T) {
	got := Dedup([]int64{1, 2, 3, 1, 1})
	if !equalPath(got, []int64{1, 2, 3, 1}) {
		t.Errorf("Dedup = %v, want [1 2 3 1]", got)
	}
}

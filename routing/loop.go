package routing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"time"

	"github.com/paulmach/orb"
)

var (
	ErrInvalidOptions    = errors.New("invalid loop options")
	ErrDisconnectedStart = errors.New("start node has no outgoing edges")
)

// DefaultMaxSteps caps the number of edge selections in one generation.
const DefaultMaxSteps = 10000

// Unit is the unit goal and tolerance lengths are given in.
type Unit string

const (
	UnitKilometers Unit = "km"
	UnitMeters     Unit = "m"
)

// ParseUnit accepts "km" and "m"; the empty string means kilometers.
func ParseUnit(s string) (Unit, error) {
	switch Unit(s) {
	case "", UnitKilometers:
		return UnitKilometers, nil
	case UnitMeters:
		return UnitMeters, nil
	}
	return "", fmt.Errorf("%w: unknown unit %q", ErrInvalidOptions, s)
}

func (u Unit) meters(v float64) float64 {
	if u == UnitKilometers || u == "" {
		return v * 1000
	}
	return v
}

// LoopOptions configures one generation.
type LoopOptions struct {
	Goal      float64
	Tolerance float64
	Unit      Unit

	// Frequency is the walker's traversal history. It is only read.
	Frequency Frequency

	// MaxSteps defaults to DefaultMaxSteps.
	MaxSteps int

	// Source drives the weighted choice. A freshly seeded PCG is used when
	// nil.
	Source rand.Source
}

// Loop is a generated walk. A degenerate loop holds only the start node and
// signals that generation gave up.
type Loop struct {
	ID            string  `json:"id"`
	Start         int64   `json:"start"`
	Nodes         []int64 `json:"nodes"`
	Length        float64 `json:"length"`
	NovelSegments int     `json:"novel_segments"`
	NovelLength   float64 `json:"novel_length"`
	Degenerate    bool    `json:"degenerate"`
	Steps         int     `json:"steps"`
}

// Closed reports whether the walk ends where it started.
func (l *Loop) Closed() bool {
	return len(l.Nodes) > 1 && l.Nodes[0] == l.Nodes[len(l.Nodes)-1]
}

type phase int

const (
	phaseOutbound phase = iota
	phaseInbound
	phaseTerminal
)

func (p phase) String() string {
	switch p {
	case phaseOutbound:
		return "outbound"
	case phaseInbound:
		return "inbound"
	}
	return "terminal"
}

// Generator builds closed walking loops over a shared street graph.
type Generator struct {
	graph    *Graph
	outbound Scorer
	inbound  Scorer
	logger   *slog.Logger
}

// GeneratorOption customizes a Generator.
type GeneratorOption func(*Generator)

// WithScorers replaces the default outbound and inbound scorers.
func WithScorers(outbound, inbound Scorer) GeneratorOption {
	return func(g *Generator) {
		g.outbound = outbound
		g.inbound = inbound
	}
}

// NewGenerator returns a generator over g.
func NewGenerator(g *Graph, logger *slog.Logger, opts ...GeneratorOption) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	gen := &Generator{
		graph:    g,
		outbound: NewOutboundScorer(),
		inbound:  NewInboundScorer(),
		logger:   logger,
	}
	for _, opt := range opts {
		opt(gen)
	}
	return gen
}

// Generate builds a loop starting at the node nearest to p.
func (gen *Generator) Generate(ctx context.Context, p orb.Point, opts LoopOptions) (*Loop, error) {
	start, err := gen.graph.NearestNode(p)
	if err != nil {
		return nil, err
	}
	return gen.GenerateFrom(ctx, start, opts)
}

// walk is the mutable state of one generation.
type walk struct {
	route  []int64
	length float64
	steps  int
}

func (w *walk) extend(g *Graph, nodes ...int64) {
	for _, n := range nodes {
		w.length += g.SegmentLength(w.route[len(w.route)-1], n)
		w.route = append(w.route, n)
	}
}

// follow appends a path that starts at the current node. length is the path
// weight measured by the search.
func (w *walk) follow(path []int64, length float64) {
	w.route = append(w.route, path[1:]...)
	w.length += length
}

func (w *walk) last() int64 { return w.route[len(w.route)-1] }

// GenerateFrom builds a loop starting and, unless degenerate, ending at start.
func (gen *Generator) GenerateFrom(ctx context.Context, start int64, opts LoopOptions) (*Loop, error) {
	if _, ok := gen.graph.Node(start); !ok {
		return nil, fmt.Errorf("start: %w: %d", ErrNodeNotFound, start)
	}
	if len(gen.graph.OutEdges(start)) == 0 {
		return nil, fmt.Errorf("start %d: %w", start, ErrDisconnectedStart)
	}
	if !(opts.Goal > 0) || opts.Tolerance < 0 || math.IsNaN(opts.Tolerance) {
		return nil, fmt.Errorf("%w: goal %v tolerance %v", ErrInvalidOptions, opts.Goal, opts.Tolerance)
	}

	goal := opts.Unit.meters(opts.Goal)
	tolerance := opts.Unit.meters(opts.Tolerance)
	maxSteps := opts.MaxSteps
	if maxSteps <= 0 {
		maxSteps = DefaultMaxSteps
	}
	source := opts.Source
	if source == nil {
		source = rand.NewPCG(rand.Uint64(), rand.Uint64())
	}
	selector := NewSelector(gen.graph, source)
	home, err := gen.graph.ReturnTree(start)
	if err != nil {
		return nil, err
	}

	log := gen.logger.With("start", start, "goal_m", goal, "tolerance_m", tolerance)
	w := &walk{route: []int64{start}}
	degenerate := false
	began := time.Now()
	phaseBegan := began

	for ph := phaseOutbound; ph != phaseTerminal; {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if w.steps >= maxSteps {
			log.Warn("step limit reached, discarding walk", "phase", ph, "steps", w.steps, "length_m", w.length)
			degenerate = true
			break
		}

		switch ph {
		case phaseOutbound:
			if w.length >= goal/2 {
				log.Debug("outbound phase done", "steps", w.steps, "length_m", w.length, "elapsed", time.Since(phaseBegan))
				ph, phaseBegan = phaseInbound, time.Now()
				continue
			}
			next, err := selector.Next(w.route, opts.Frequency, gen.outbound, 0)
			if err != nil {
				return nil, fmt.Errorf("outbound step %d: %w", w.steps, err)
			}
			w.extend(gen.graph, next)
			w.steps++

		case phaseInbound:
			if w.last() == start {
				ph = phaseTerminal
				continue
			}
			if w.length >= goal+tolerance {
				log.Warn("overshot goal without closing, discarding walk", "length_m", w.length)
				degenerate = true
				ph = phaseTerminal
				continue
			}

			quickReturn := w.length + home.Length(w.last())

			switch {
			case quickReturn < goal-0.5*tolerance:
				next, err := selector.Next(w.route, opts.Frequency, gen.inbound, w.length/goal)
				if err != nil {
					return nil, fmt.Errorf("inbound step %d: %w", w.steps, err)
				}
				w.extend(gen.graph, next)
				w.steps++
			case quickReturn <= goal+tolerance:
				back, length, err := home.Path(w.last())
				if err != nil {
					return nil, fmt.Errorf("close loop: %w", err)
				}
				w.follow(back, length)
				ph = phaseTerminal
			default:
				log.Warn("cannot return within tolerance, discarding walk", "length_m", w.length, "quick_return_m", quickReturn)
				degenerate = true
				ph = phaseTerminal
			}
		}
	}
	log.Debug("inbound phase done", "steps", w.steps, "length_m", w.length, "elapsed", time.Since(phaseBegan))

	id, err := newLoopID()
	if err != nil {
		return nil, err
	}
	loop := &Loop{ID: id, Start: start, Steps: w.steps}
	if degenerate {
		loop.Nodes = []int64{start}
		loop.Degenerate = true
		return loop, nil
	}

	loop.Nodes = Dedup(w.route)
	loop.Length = w.length
	loop.NovelSegments, loop.NovelLength = Novelty(gen.graph, loop.Nodes, opts.Frequency)
	log.Info("loop generated",
		"id", loop.ID,
		"nodes", len(loop.Nodes),
		"length_m", loop.Length,
		"novel_segments", loop.NovelSegments,
		"novel_length_m", loop.NovelLength,
		"elapsed", time.Since(began),
	)
	return loop, nil
}

// Dedup drops consecutive repeats of a node from routes longer than three
// nodes. Shorter routes are returned unchanged. The input is not modified.
func Dedup(route []int64) []int64 {
	if len(route) <= 3 {
		return append([]int64(nil), route...)
	}
	out := make([]int64, 0, len(route))
	for i, id := range route {
		if i > 0 && id == route[i-1] {
			continue
		}
		out = append(out, id)
	}
	return out
}

// Novelty counts the segments of route absent from freq in either direction
// and sums their length.
func Novelty(g *Graph, route []int64, freq Frequency) (segments int, length float64) {
	for i := 0; i+1 < len(route); i++ {
		a, b := route[i], route[i+1]
		if freq.Has(a, b) || freq.Has(b, a) {
			continue
		}
		segments++
		length += g.SegmentLength(a, b)
	}
	return segments, length
}

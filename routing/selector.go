package routing

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/distuv"
)

var (
	ErrNoCandidates  = errors.New("no outgoing edges")
	ErrInvalidScores = errors.New("candidate scores do not form a distribution")
)

// Selector picks the next node of a walk. Filtering (backtrack and dead-end
// exclusion) and scoring are separate stages.
type Selector struct {
	graph  *Graph
	source rand.Source
}

// NewSelector returns a selector drawing from source.
func NewSelector(g *Graph, source rand.Source) *Selector {
	return &Selector{graph: g, source: source}
}

// Next returns the node the walk should move to from the last node of route.
func (s *Selector) Next(route []int64, freq Frequency, scorer Scorer, walked float64) (int64, error) {
	if len(route) == 0 {
		return 0, fmt.Errorf("select: %w: empty route", ErrNoCandidates)
	}
	open, deadEnds := s.viable(route)
	if len(open) == 0 {
		if len(deadEnds) == 0 {
			return 0, fmt.Errorf("select from %d: %w", route[len(route)-1], ErrNoCandidates)
		}
		return deadEnds[0].ToID, nil
	}

	candidates, err := s.describe(route, open, freq)
	if err != nil {
		return 0, err
	}
	scores := make([]float64, len(candidates))
	for i, c := range candidates {
		scores[i] = scorer.Score(c, walked)
	}
	i, err := sample(scores, s.source)
	if err != nil {
		return 0, fmt.Errorf("select from %d: %w", route[len(route)-1], err)
	}
	return candidates[i].Target, nil
}

// viable splits the outgoing edges of the current node into edges worth
// scoring and edges leading into dead ends. An immediate return to the
// previous node is dropped unless nothing else remains.
func (s *Selector) viable(route []int64) (open, deadEnds []Edge) {
	current := route[len(route)-1]
	edges := s.graph.OutEdges(current)

	if len(route) > 1 {
		previous := route[len(route)-2]
		forward := make([]Edge, 0, len(edges))
		for _, e := range edges {
			if e.ToID != previous {
				forward = append(forward, e)
			}
		}
		if len(forward) > 0 {
			edges = forward
		}
	}

	for _, e := range edges {
		if len(s.graph.Neighbors(e.ToID)) > 1 {
			open = append(open, e)
		} else {
			deadEnds = append(deadEnds, e)
		}
	}
	return open, deadEnds
}

// describe assembles the scoring attributes of each open edge.
func (s *Selector) describe(route []int64, open []Edge, freq Frequency) ([]Candidate, error) {
	current := route[len(route)-1]
	start, _ := s.graph.Node(route[0])
	traveled := traveledSegments(route)

	previousBearing := math.NaN()
	if len(route) > 1 {
		previousBearing = s.graph.segmentBearing(route[len(route)-2], current)
	}

	candidates := make([]Candidate, 0, len(open))
	for _, e := range open {
		target, _ := s.graph.Node(e.ToID)
		c := Candidate{
			Target:          e.ToID,
			Key:             e.Key,
			Length:          e.Length,
			Bearing:         e.Bearing,
			Traveled:        e.Key == 0 && traveled[Segment{From: e.FromID, To: e.ToID}],
			Frequency:       freq.Count(e.FromID, e.ToID),
			PreviousBearing: previousBearing,
			HomeBearing:     Bearing(target.Point(), start.Point()),
		}
		if err := c.validate(); err != nil {
			return nil, err
		}
		candidates = append(candidates, c)
	}
	return candidates, nil
}

// sample draws an index with probability proportional to its score.
func sample(scores []float64, source rand.Source) (int, error) {
	total := floats.Sum(scores)
	if !(total > 0) || math.IsInf(total, 1) {
		return 0, fmt.Errorf("%w: sum %v", ErrInvalidScores, total)
	}
	probs := make([]float64, len(scores))
	copy(probs, scores)
	floats.Scale(1/total, probs)
	for _, p := range probs {
		if p < 0 || math.IsNaN(p) {
			return 0, fmt.Errorf("%w: probability %v", ErrInvalidScores, p)
		}
	}
	return int(distuv.NewCategorical(probs, source).Rand()), nil
}

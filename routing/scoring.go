package routing

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/interp"
)

// ErrIncompleteAttributes marks a candidate edge that cannot be scored.
var ErrIncompleteAttributes = errors.New("incomplete edge attributes")

// DefaultBearingScore is used when a bearing delta is undefined: no previous
// edge, a self loop, or a candidate ending where the walk started.
const DefaultBearingScore = 5

// Default weights for the scorers. Outbound order: traveled, frequency,
// previous bearing, home bearing, length. Inbound order: traveled, frequency,
// previous bearing, length.
var (
	DefaultOutboundWeights = [5]float64{0.30, 0.30, 0.25, 0.10, 0.05}
	DefaultInboundWeights  = [4]float64{0.30, 0.30, 0.20, 0.10}
)

var (
	lengthScale   = newScale([]float64{0, 50}, []float64{1, 10})
	straightScale = newScale([]float64{0, 180}, []float64{10, 1})
	homewardScale = newScale([]float64{0, 180}, []float64{1, 10})
)

// Candidate is an outgoing edge under evaluation.
type Candidate struct {
	Target    int64
	Key       int
	Length    float64
	Bearing   float64
	Traveled  bool // already walked on this route
	Frequency int  // prior traversals across the walker's history

	PreviousBearing float64 // NaN when there is no previous edge
	HomeBearing     float64 // bearing from Target to the start node; NaN when undefined
}

func (c Candidate) validate() error {
	if math.IsNaN(c.Length) || math.IsInf(c.Length, 0) || c.Length < 0 {
		return fmt.Errorf("edge to %d: %w: length %v", c.Target, ErrIncompleteAttributes, c.Length)
	}
	return nil
}

// Scorer rates a candidate edge. walked is the fraction of the goal length
// already covered.
type Scorer interface {
	Score(c Candidate, walked float64) float64
}

// OutboundScorer favours unexplored, straight-ahead, long edges that lead away
// from the start.
type OutboundScorer struct {
	Weights [5]float64
}

// NewOutboundScorer returns a scorer with the default weights.
func NewOutboundScorer() OutboundScorer {
	return OutboundScorer{Weights: DefaultOutboundWeights}
}

func (s OutboundScorer) Score(c Candidate, _ float64) float64 {
	w := s.Weights
	return w[0]*traveledScore(c) +
		w[1]*frequencyScore(c) +
		w[2]*bearingScore(c.Bearing, c.PreviousBearing, straightScale) +
		w[3]*bearingScore(c.Bearing, c.HomeBearing, straightScale) +
		w[4]*lengthScore(c.Length)
}

// InboundScorer blends the outbound preferences with a pull toward the start
// node.
type InboundScorer struct {
	Weights [4]float64
}

// NewInboundScorer returns a scorer with the default weights.
func NewInboundScorer() InboundScorer {
	return InboundScorer{Weights: DefaultInboundWeights}
}

func (s InboundScorer) Score(c Candidate, walked float64) float64 {
	w := s.Weights
	explore := w[0]*traveledScore(c) +
		w[1]*frequencyScore(c) +
		w[2]*bearingScore(c.Bearing, c.PreviousBearing, straightScale) +
		w[3]*lengthScore(c.Length)
	return walked*explore + (1-walked)*bearingScore(c.Bearing, c.HomeBearing, homewardScale)
}

func traveledScore(c Candidate) float64 {
	if c.Traveled {
		return 1
	}
	return 10
}

func frequencyScore(c Candidate) float64 {
	if c.Frequency > 0 {
		return 1
	}
	return 10
}

func lengthScore(length float64) float64 {
	return math.Trunc(lengthScale.at(length))
}

func bearingScore(bearing, reference float64, s scale) float64 {
	d := bearingDelta(bearing, reference)
	if math.IsNaN(d) {
		return DefaultBearingScore
	}
	return math.Trunc(s.at(d))
}

// scale is a clamped linear mapping between two ranges.
type scale struct {
	lo, hi float64
	fn     *interp.PiecewiseLinear
}

func newScale(xs, ys []float64) scale {
	var pl interp.PiecewiseLinear
	if err := pl.Fit(xs, ys); err != nil {
		panic(fmt.Sprintf("routing: bad scale %v -> %v: %v", xs, ys, err))
	}
	return scale{lo: xs[0], hi: xs[len(xs)-1], fn: &pl}
}

func (s scale) at(x float64) float64 {
	return s.fn.Predict(math.Max(s.lo, math.Min(x, s.hi)))
}

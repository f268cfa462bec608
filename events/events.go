package events

import (
	"context"
	"time"
)

// Event topic constants
const (
	TopicLoopGenerated = "walks.route.generated"
	TopicAreaTruncated = "walks.area.truncated"
)

// Event types

type LoopGenerated struct {
	LoopID        string    `json:"loop_id"`
	User          string    `json:"user,omitempty"`
	Start         int64     `json:"start"`
	Nodes         int       `json:"nodes"`
	LengthM       float64   `json:"length_m"`
	NovelSegments int       `json:"novel_segments"`
	NovelLengthM  float64   `json:"novel_length_m"`
	Attempts      int       `json:"attempts"`
	GeneratedAt   time.Time `json:"generated_at"`
}

type AreaTruncated struct {
	Center  int64      `json:"center"`
	RadiusM float64    `json:"radius_m"`
	Nodes   int        `json:"nodes"`
	Edges   int        `json:"edges"`
	BBox    [4]float64 `json:"bbox"`
	Export  string     `json:"export,omitempty"`
}

// Publisher is the interface for emitting events.
type Publisher interface {
	Publish(ctx context.Context, topic string, event any) error
	Close() error
}

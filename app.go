package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"walk-loop-server/config"
	"walk-loop-server/events"
	"walk-loop-server/export"
	"walk-loop-server/history"
	"walk-loop-server/routing"
)

// app holds the street graph and the services built around it.
type app struct {
	cfg    *config.Config
	logger *slog.Logger

	graph     *routing.Graph
	generator *routing.Generator
	truncator *routing.Truncator

	history history.Store
	events  events.Publisher
	exports []export.Destination
}

// loadCore reads the graph and builds the generator and truncator. Service
// collaborators start as in-memory or no-op implementations.
func loadCore(cfg *config.Config, logger *slog.Logger) (*app, error) {
	began := time.Now()
	g, err := routing.LoadGraph(cfg.GraphPath)
	if err != nil {
		return nil, fmt.Errorf("load graph: %w", err)
	}
	logger.Info("street graph loaded",
		"path", cfg.GraphPath,
		"nodes", g.NumNodes(),
		"edges", g.NumEdges(),
		"elapsed", time.Since(began),
	)
	return newApp(cfg, logger, g), nil
}

func newApp(cfg *config.Config, logger *slog.Logger, g *routing.Graph) *app {
	return &app{
		cfg:       cfg,
		logger:    logger,
		graph:     g,
		generator: routing.NewGenerator(g, logger, routing.WithScorers(cfg.Scorers())),
		truncator: routing.NewTruncator(g, cfg.RadiusM, logger),
		history:   history.NewMemoryStore(),
		events:    &events.NoopPublisher{},
	}
}

// connect replaces the default collaborators with the configured PostgreSQL
// history, NATS publisher and export destinations.
func (a *app) connect(ctx context.Context) error {
	if a.cfg.DatabaseURL != "" {
		store, err := history.NewPostgresStore(a.cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("history store: %w", err)
		}
		a.history = store
		a.logger.Info("history stored in postgres")
	}

	if a.cfg.NATSURL != "" {
		pub, err := events.NewNATSPublisher(a.cfg.NATSURL)
		if err != nil {
			return err
		}
		a.events = pub
		a.logger.Info("publishing events", "url", a.cfg.NATSURL)
	}

	a.exports = append(a.exports, export.NewFileDestination(a.cfg.StaticDir))
	if a.cfg.ExportS3Bucket != "" {
		dest, err := export.NewS3Destination(ctx, a.cfg.ExportS3Bucket, a.cfg.ExportS3Key, a.cfg.ExportS3Region, a.cfg.ExportS3Endpoint)
		if err != nil {
			return fmt.Errorf("s3 export: %w", err)
		}
		a.exports = append(a.exports, dest)
	}
	return nil
}

func (a *app) Close() error {
	return errors.Join(a.history.Close(), a.events.Close())
}

// loopOptions resolves a request against the configured defaults. Missing
// goal and tolerance take the configured kilometer values in the requested
// unit.
func (a *app) loopOptions(goal, tolerance *float64, unit string) (routing.LoopOptions, error) {
	u, err := routing.ParseUnit(unit)
	if err != nil {
		return routing.LoopOptions{}, err
	}
	scale := 1.0
	if u == routing.UnitMeters {
		scale = 1000
	}
	opts := routing.LoopOptions{
		Goal:      a.cfg.GoalKm * scale,
		Tolerance: a.cfg.ToleranceKm * scale,
		Unit:      u,
		MaxSteps:  a.cfg.MaxSteps,
	}
	if goal != nil {
		opts.Goal = *goal
	}
	if tolerance != nil {
		opts.Tolerance = *tolerance
	}
	if !(opts.Goal > 0) || opts.Tolerance < 0 {
		return routing.LoopOptions{}, fmt.Errorf("%w: goal must be positive and tolerance not negative", routing.ErrInvalidOptions)
	}
	return opts, nil
}

// generate runs up to the configured number of attempts until one produces
// a closed loop. The last loop is returned even when it is degenerate.
func (a *app) generate(ctx context.Context, start int64, opts routing.LoopOptions) (*routing.Loop, int, error) {
	var loop *routing.Loop
	attempt := 0
	for attempt < a.cfg.RouteAttempts {
		attempt++
		var err error
		loop, err = a.generator.GenerateFrom(ctx, start, opts)
		if err != nil {
			return nil, attempt, err
		}
		if !loop.Degenerate {
			break
		}
		a.logger.Debug("degenerate loop, retrying", "start", start, "attempt", attempt)
	}
	return loop, attempt, nil
}

func (a *app) publish(ctx context.Context, topic string, event any) {
	if err := a.events.Publish(ctx, topic, event); err != nil {
		a.logger.Warn("publish event failed", "topic", topic, "error", err)
	}
}

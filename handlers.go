package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"walk-loop-server/events"
	"walk-loop-server/export"
	"walk-loop-server/history"
	"walk-loop-server/routing"
)

const recentLoopsLimit = 20

func (a *app) router() *gin.Engine {
	r := gin.Default()

	config := cors.DefaultConfig()
	config.AllowAllOrigins = true
	config.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	config.AllowHeaders = []string{"*"}
	r.Use(cors.New(config))

	r.POST("/streets", a.handleStreets)
	r.POST("/route", a.handleRoute)
	r.GET("/users/:user/loops", a.handleRecentLoops)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})

	if info, err := os.Stat(a.cfg.StaticDir); err == nil && info.IsDir() {
		r.Static("/static", a.cfg.StaticDir)
		index := filepath.Join(a.cfg.StaticDir, "index.html")
		if _, err := os.Stat(index); err == nil {
			r.StaticFile("/", index)
		}
	}
	return r
}

func abort(c *gin.Context, status int, format string, args ...any) {
	c.JSON(status, routing.ErrorResponse{Message: fmt.Sprintf(format, args...)})
}

// statusFor maps generation and lookup errors to HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, routing.ErrOutOfBounds),
		errors.Is(err, routing.ErrInvalidOptions),
		errors.Is(err, history.ErrNoUser):
		return http.StatusBadRequest
	case errors.Is(err, routing.ErrDisconnectedStart),
		errors.Is(err, routing.ErrNoCandidates):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// handleStreets truncates the street network around the posted point,
// exports it and returns [geometry, bbox].
func (a *app) handleStreets(c *gin.Context) {
	var req routing.PointRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, http.StatusBadRequest, "lat and lon are required: %v", err)
		return
	}
	p := req.Point()
	if !a.graph.Contains(p) {
		abort(c, http.StatusBadRequest, "point (%.6f, %.6f) is outside the street network", *req.Lat, *req.Lon)
		return
	}

	ctx := c.Request.Context()
	area, err := a.truncator.Truncate(ctx, p)
	if err != nil {
		a.logger.Error("truncate failed", "lat", *req.Lat, "lon", *req.Lon, "error", err)
		abort(c, statusFor(err), "could not extract streets: %v", err)
		return
	}

	event := events.AreaTruncated{
		Center:  area.Center,
		RadiusM: a.truncator.Radius(),
		Nodes:   area.Graph.NumNodes(),
		Edges:   area.Graph.NumEdges(),
		BBox:    area.BBox,
	}
	if len(a.exports) > 0 {
		if err := export.WriteArea(ctx, area.Geometry, a.exports...); err != nil {
			a.logger.Warn("area export failed", "error", err)
		} else {
			event.Export = a.exports[0].String()
		}
	}
	a.publish(ctx, events.TopicAreaTruncated, event)

	c.JSON(http.StatusOK, routing.AreaResponse(area))
}

// handleRoute generates a loop from the posted start point. Walkers named in
// the request get loops biased toward streets they have not walked, and the
// result is added to their history.
func (a *app) handleRoute(c *gin.Context) {
	var req routing.LoopRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, http.StatusBadRequest, "lat and lon are required: %v", err)
		return
	}
	p := req.Point()
	ctx := c.Request.Context()

	start, err := a.graph.NearestNodeInBounds(p)
	if err != nil {
		abort(c, statusFor(err), "no start node for (%.6f, %.6f): %v", *req.Lat, *req.Lon, err)
		return
	}

	opts, err := a.loopOptions(req.Goal, req.Tolerance, req.Unit)
	if err != nil {
		abort(c, http.StatusBadRequest, "%v", err)
		return
	}

	if req.User != "" {
		freq, err := a.history.Frequency(ctx, req.User)
		if err != nil {
			a.logger.Error("load walk history failed", "user", req.User, "error", err)
			abort(c, http.StatusInternalServerError, "could not load walk history")
			return
		}
		opts.Frequency = freq
	}

	loop, attempts, err := a.generate(ctx, start, opts)
	if err != nil {
		a.logger.Error("loop generation failed", "start", start, "error", err)
		abort(c, statusFor(err), "could not generate a loop: %v", err)
		return
	}
	if loop.Degenerate {
		abort(c, http.StatusUnprocessableEntity,
			"no loop of %g%s within %g%s of the goal after %d attempts",
			opts.Goal, opts.Unit, opts.Tolerance, opts.Unit, attempts)
		return
	}

	if req.User != "" {
		if err := a.history.RecordLoop(ctx, req.User, loop); err != nil {
			a.logger.Warn("record loop failed", "user", req.User, "loop", loop.ID, "error", err)
		}
	}
	a.publish(ctx, events.TopicLoopGenerated, events.LoopGenerated{
		LoopID:        loop.ID,
		User:          req.User,
		Start:         loop.Start,
		Nodes:         len(loop.Nodes),
		LengthM:       loop.Length,
		NovelSegments: loop.NovelSegments,
		NovelLengthM:  loop.NovelLength,
		Attempts:      attempts,
		GeneratedAt:   time.Now().UTC(),
	})

	c.JSON(http.StatusOK, routing.LoopResponse(a.graph, loop))
}

func (a *app) handleRecentLoops(c *gin.Context) {
	limit := recentLoopsLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			abort(c, http.StatusBadRequest, "invalid limit %q", raw)
			return
		}
		limit = n
	}

	entries, err := a.history.Recent(c.Request.Context(), c.Param("user"), limit)
	if err != nil {
		abort(c, statusFor(err), "could not load loops: %v", err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"walk-loop-server/routing"
)

type Config struct {
	Addr      string // LOOPWALK_ADDR (default ":8080")
	GraphPath string // LOOPWALK_GRAPH (default "data/walk_graph.gob")
	StaticDir string // LOOPWALK_STATIC_DIR (default "static")
	LogLevel  slog.Level

	// Generation defaults
	GoalKm        float64 // LOOPWALK_GOAL_KM (default 4)
	ToleranceKm   float64 // LOOPWALK_TOLERANCE_KM (default 0.5)
	MaxSteps      int     // LOOPWALK_MAX_STEPS (default 10000)
	RouteAttempts int     // LOOPWALK_ROUTE_ATTEMPTS (default 3)
	RadiusM       float64 // LOOPWALK_TRUNCATE_RADIUS (default 2000)

	OutboundWeights [5]float64
	InboundWeights  [4]float64

	DatabaseURL string // LOOPWALK_DATABASE_URL (optional, empty = in-memory history)
	NATSURL     string // LOOPWALK_NATS_URL (optional, empty = no events)

	// Area export
	ExportS3Bucket   string // LOOPWALK_EXPORT_S3_BUCKET (enables S3 when set)
	ExportS3Endpoint string // LOOPWALK_EXPORT_S3_ENDPOINT (custom endpoint for MinIO)
	ExportS3Region   string // LOOPWALK_EXPORT_S3_REGION (default "us-east-1")
	ExportS3Key      string // LOOPWALK_EXPORT_S3_KEY (default "areas/trunc.geojson")

	ShutdownTimeout time.Duration // LOOPWALK_SHUTDOWN_TIMEOUT (default 10s)
}

// fileConfig is the layout of the optional TOML file named by LOOPWALK_CONFIG.
type fileConfig struct {
	Generation struct {
		GoalKm      *float64 `toml:"goal_km"`
		ToleranceKm *float64 `toml:"tolerance_km"`
		MaxSteps    *int     `toml:"max_steps"`
		Attempts    *int     `toml:"attempts"`
	} `toml:"generation"`
	Area struct {
		RadiusM *float64 `toml:"radius_m"`
	} `toml:"area"`
	Scoring struct {
		Outbound []float64 `toml:"outbound"`
		Inbound  []float64 `toml:"inbound"`
	} `toml:"scoring"`
}

func defaults() *Config {
	return &Config{
		Addr:            ":8080",
		GraphPath:       "data/walk_graph.gob",
		StaticDir:       "static",
		LogLevel:        slog.LevelInfo,
		GoalKm:          4,
		ToleranceKm:     0.5,
		MaxSteps:        routing.DefaultMaxSteps,
		RouteAttempts:   3,
		RadiusM:         routing.DefaultTruncateRadius,
		OutboundWeights: routing.DefaultOutboundWeights,
		InboundWeights:  routing.DefaultInboundWeights,
		ExportS3Region:  "us-east-1",
		ExportS3Key:     "areas/trunc.geojson",
		ShutdownTimeout: 10 * time.Second,
	}
}

// Load builds the configuration from defaults, then the TOML file named by
// LOOPWALK_CONFIG, then the environment.
func Load() (*Config, error) {
	c := defaults()

	if path := os.Getenv("LOOPWALK_CONFIG"); path != "" {
		if err := c.applyFile(path); err != nil {
			return nil, err
		}
	}

	c.Addr = envOrDefault("LOOPWALK_ADDR", c.Addr)
	c.GraphPath = envOrDefault("LOOPWALK_GRAPH", c.GraphPath)
	c.StaticDir = envOrDefault("LOOPWALK_STATIC_DIR", c.StaticDir)
	c.DatabaseURL = os.Getenv("LOOPWALK_DATABASE_URL")
	c.NATSURL = os.Getenv("LOOPWALK_NATS_URL")
	c.ExportS3Bucket = os.Getenv("LOOPWALK_EXPORT_S3_BUCKET")
	c.ExportS3Endpoint = os.Getenv("LOOPWALK_EXPORT_S3_ENDPOINT")
	c.ExportS3Region = envOrDefault("LOOPWALK_EXPORT_S3_REGION", c.ExportS3Region)
	c.ExportS3Key = envOrDefault("LOOPWALK_EXPORT_S3_KEY", c.ExportS3Key)

	var err error
	if c.GoalKm, err = envFloat("LOOPWALK_GOAL_KM", c.GoalKm); err != nil {
		return nil, err
	}
	if c.ToleranceKm, err = envFloat("LOOPWALK_TOLERANCE_KM", c.ToleranceKm); err != nil {
		return nil, err
	}
	if c.RadiusM, err = envFloat("LOOPWALK_TRUNCATE_RADIUS", c.RadiusM); err != nil {
		return nil, err
	}
	if c.MaxSteps, err = envInt("LOOPWALK_MAX_STEPS", c.MaxSteps); err != nil {
		return nil, err
	}
	if c.RouteAttempts, err = envInt("LOOPWALK_ROUTE_ATTEMPTS", c.RouteAttempts); err != nil {
		return nil, err
	}

	if v := os.Getenv("LOOPWALK_LOG_LEVEL"); v != "" {
		if err := c.LogLevel.UnmarshalText([]byte(v)); err != nil {
			return nil, fmt.Errorf("LOOPWALK_LOG_LEVEL: %w", err)
		}
	}

	timeoutStr := envOrDefault("LOOPWALK_SHUTDOWN_TIMEOUT", "")
	if timeoutStr != "" {
		d, err := time.ParseDuration(timeoutStr)
		if err != nil {
			return nil, fmt.Errorf("LOOPWALK_SHUTDOWN_TIMEOUT: %w", err)
		}
		c.ShutdownTimeout = d
	}

	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) applyFile(path string) error {
	var f fileConfig
	if _, err := toml.DecodeFile(path, &f); err != nil {
		return fmt.Errorf("config file %s: %w", path, err)
	}

	if v := f.Generation.GoalKm; v != nil {
		c.GoalKm = *v
	}
	if v := f.Generation.ToleranceKm; v != nil {
		c.ToleranceKm = *v
	}
	if v := f.Generation.MaxSteps; v != nil {
		c.MaxSteps = *v
	}
	if v := f.Generation.Attempts; v != nil {
		c.RouteAttempts = *v
	}
	if v := f.Area.RadiusM; v != nil {
		c.RadiusM = *v
	}

	if w := f.Scoring.Outbound; w != nil {
		if len(w) != len(c.OutboundWeights) {
			return fmt.Errorf("config file %s: scoring.outbound needs %d weights, got %d", path, len(c.OutboundWeights), len(w))
		}
		copy(c.OutboundWeights[:], w)
	}
	if w := f.Scoring.Inbound; w != nil {
		if len(w) != len(c.InboundWeights) {
			return fmt.Errorf("config file %s: scoring.inbound needs %d weights, got %d", path, len(c.InboundWeights), len(w))
		}
		copy(c.InboundWeights[:], w)
	}
	return nil
}

func (c *Config) validate() error {
	var problems []string
	if !(c.GoalKm > 0) {
		problems = append(problems, "goal must be positive")
	}
	if c.ToleranceKm < 0 {
		problems = append(problems, "tolerance must not be negative")
	}
	if c.RouteAttempts < 1 {
		problems = append(problems, "route attempts must be at least 1")
	}
	if c.MaxSteps < 1 {
		problems = append(problems, "max steps must be at least 1")
	}
	if !(c.RadiusM > 0) {
		problems = append(problems, "truncate radius must be positive")
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// Scorers returns the outbound and inbound scorers for the configured weights.
func (c *Config) Scorers() (routing.OutboundScorer, routing.InboundScorer) {
	return routing.OutboundScorer{Weights: c.OutboundWeights}, routing.InboundScorer{Weights: c.InboundWeights}
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return f, nil
}

func envInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

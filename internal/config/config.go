package config

import (
	"context"
	"time"

	"github.com/kelseyhightower/envconfig"

	"fedicache/internal/core"
)

// Config carries everything tunable from the CLI. Fields with an envconfig
// tag can additionally be set from FEDICACHE_* variables without a flag.
type Config struct {
	Server   string `flag:"server"`
	Token    string `flag:"token"    envconfig:"TOKEN"`
	ViewerID string `flag:"viewer-id"`

	LogLevel string `flag:"log-level"`

	CacheSize          int           `flag:"cache-size"`
	CacheTTL           time.Duration `flag:"cache-ttl"`
	CacheSweepInterval time.Duration `flag:"cache-sweep-interval"`

	MetricsAddr string `flag:"metrics-addr"`

	Language string `flag:"language"`

	StreamingURL    string        `envconfig:"STREAMING_URL"`
	TrendsURL       string        `flag:"trends-url" envconfig:"TRENDS_URL"`
	TrendsInterval  time.Duration `flag:"trends-interval"`
	EnrichOnResolve bool          `flag:"enrich"`
}

// Init applies environment overrides for the env-tagged fields.
func (c *Config) Init(_ context.Context) error {
	return envconfig.Process("fedicache", c)
}

// RequestContext is the viewer context every resolution call receives.
func (c *Config) RequestContext() core.RequestContext {
	return core.RequestContext{
		Server:   c.Server,
		ViewerID: c.ViewerID,
	}
}

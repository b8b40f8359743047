package flags

import (
	"fmt"
	"slices"
	"time"

	"github.com/urfave/cli/v3"
)

var validLogLevels = []string{"debug", "info", "warn", "error"}

var Server = &cli.StringFlag{
	Name:     "server",
	Aliases:  []string{"s"},
	Usage:    "Hostname of the home server, e.g. mastodon.social",
	Required: true,
	Sources:  cli.EnvVars("FEDICACHE_SERVER"),
}

var Token = &cli.StringFlag{
	Name:    "token",
	Usage:   "Bearer token for authenticated requests to the home server",
	Sources: cli.EnvVars("FEDICACHE_TOKEN"),
}

var ViewerID = &cli.StringFlag{
	Name:    "viewer-id",
	Usage:   "Account id of the viewer the cache is scoped to",
	Sources: cli.EnvVars("FEDICACHE_VIEWER_ID"),
}

var LogLevel = &cli.StringFlag{
	Name:    "log-level",
	Aliases: []string{"l"},
	Usage:   "The level of the logs",
	Value:   "info",
	Validator: func(value string) error {
		if !slices.Contains(validLogLevels, value) {
			return fmt.Errorf("invalid log level: %s, allowed values are: %s", value, validLogLevels)
		}
		return nil
	},
	Sources: cli.EnvVars("LOG_LEVEL"),
}

var CacheSize = &cli.IntFlag{
	Name:  "cache-size",
	Usage: "Maximum number of cached entries",
	Value: 1000,
}

var CacheTTL = &cli.DurationFlag{
	Name:  "cache-ttl",
	Usage: "Lifetime of a cached entry",
	Value: time.Hour,
}

var CacheSweepInterval = &cli.DurationFlag{
	Name:  "cache-sweep-interval",
	Usage: "How often expired entries are swept out",
	Value: 90 * time.Second,
}

var MetricsAddr = &cli.StringFlag{
	Name:  "metrics-addr",
	Usage: "Listen address of the metrics and health server",
	Value: ":8080",
}

var Language = &cli.StringFlag{
	Name:  "language",
	Usage: "Preferred content language for feed filtering",
	Value: "en",
}

var TrendsURL = &cli.StringFlag{
	Name:    "trends-url",
	Usage:   "URL of the external trending posts provider",
	Sources: cli.EnvVars("FEDICACHE_TRENDS_URL"),
}

var TrendsInterval = &cli.DurationFlag{
	Name:  "trends-interval",
	Usage: "How often the trending feed is refreshed",
	Value: 15 * time.Minute,
}

var Enrich = &cli.BoolFlag{
	Name:  "enrich",
	Usage: "Merge authoritative engagement counters when resolving remote posts",
	Value: false,
}

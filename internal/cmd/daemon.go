package cmd

import (
	"context"

	"github.com/urfave/cli/v3"
	"github.com/zhulik/pal"

	"fedicache/internal/cache"
	"fedicache/internal/cmd/flags"
	"fedicache/internal/federation"
	"fedicache/internal/feeds"
	"fedicache/internal/metrics"
	"fedicache/internal/resolver"
	"fedicache/internal/streaming"
	"fedicache/internal/trends"
)

var daemonCmd = &cli.Command{
	Name:  "daemon",
	Usage: "Run the resolution cache: follow the viewer's event stream, refresh trends, serve metrics",
	Flags: []cli.Flag{
		flags.Server,
		flags.Token,
		flags.ViewerID,
		flags.CacheSize,
		flags.CacheTTL,
		flags.CacheSweepInterval,
		flags.MetricsAddr,
		flags.Language,
		flags.TrendsURL,
		flags.TrendsInterval,
		flags.Enrich,
	},
	Action: func(ctx context.Context, c *cli.Command) error {
		return run(ctx, c,
			pal.Provide(&cache.Store{}),
			pal.Provide(&federation.Client{}),
			pal.Provide(&feeds.Feeds{}),
			pal.Provide(&resolver.Engine{}),
			pal.Provide(&streaming.Subscriber{}),
			pal.Provide(&streaming.CacheUpdater{}),
			pal.Provide(&trends.Refresher{}),
			pal.Provide(&metrics.Server{}),
		)
	},
}

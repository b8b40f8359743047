package cmd

import (
	"context"
	"log/slog"

	"github.com/k0kubun/pp"
	"github.com/urfave/cli/v3"
	"github.com/zhulik/pal"

	"fedicache/internal/cache"
	"fedicache/internal/cmd/flags"
	"fedicache/internal/federation"
	"fedicache/internal/feeds"
	"fedicache/internal/resolver"
	"fedicache/internal/trends"
)

var trendsCmd = &cli.Command{
	Name:  "trends",
	Usage: "Fetch the trending feed once, federate it and print the ranked posts",
	Flags: []cli.Flag{
		flags.Server,
		flags.Token,
		flags.ViewerID,
		flags.CacheSize,
		flags.CacheTTL,
		flags.CacheSweepInterval,
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
			pal.Provide(&trends.Refresher{}),
			pal.Provide(&trendsRunner{}),
		)
	},
}

type trendsRunner struct {
	Logger *slog.Logger
	Trends *trends.Refresher
}

func (r *trendsRunner) Run(ctx context.Context) error {
	r.Trends.Refresh(ctx)

	for i, post := range r.Trends.Trending() {
		r.Logger.Info("trending post", "rank", i+1, "uri", post.URI)
	}
	pp.Printf("%+v\n", r.Trends.Trending())

	return nil
}

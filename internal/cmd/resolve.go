package cmd

import (
	"context"
	"errors"
	"log/slog"

	"github.com/k0kubun/pp"
	"github.com/urfave/cli/v3"
	"github.com/zhulik/pal"

	"fedicache/internal/cache"
	"fedicache/internal/cmd/flags"
	"fedicache/internal/config"
	"fedicache/internal/core"
	"fedicache/internal/federation"
	"fedicache/internal/feeds"
	"fedicache/internal/resolver"
)

var ErrNotResolved = errors.New("identifier did not resolve")

var accountFlag = &cli.BoolFlag{
	Name:    "account",
	Aliases: []string{"a"},
	Usage:   "Resolve an account instead of a post",
}

var resolveCmd = &cli.Command{
	Name:      "resolve",
	Usage:     "Resolve a single identifier (local id, URI or handle) and print the result",
	ArgsUsage: "<identifier>",
	Flags: []cli.Flag{
		flags.Server,
		flags.Token,
		flags.ViewerID,
		flags.CacheSize,
		flags.CacheTTL,
		flags.CacheSweepInterval,
		flags.Language,
		flags.Enrich,
		accountFlag,
	},
	Action: func(ctx context.Context, c *cli.Command) error {
		identifier := c.Args().First()
		if identifier == "" {
			return errors.New("an identifier argument is required")
		}

		return run(ctx, c,
			pal.Provide(&cache.Store{}),
			pal.Provide(&federation.Client{}),
			pal.Provide(&feeds.Feeds{}),
			pal.Provide(&resolver.Engine{}),
			pal.Provide(&resolveRunner{
				identifier: identifier,
				account:    c.Bool("account"),
				enrich:     c.Bool("enrich"),
			}),
		)
	},
}

// resolveRunner performs one resolution and exits.
type resolveRunner struct {
	Logger *slog.Logger
	Config *config.Config
	Engine *resolver.Engine

	identifier string
	account    bool
	enrich     bool
}

func (r *resolveRunner) Run(ctx context.Context) error {
	rctx := r.Config.RequestContext()

	if r.account {
		var account *core.Account
		if core.IsNumericID(r.identifier) {
			account = r.Engine.ResolveAccountByID(ctx, rctx, r.identifier, false)
		} else {
			account = r.Engine.ResolveAccountByHandle(ctx, rctx, r.identifier, false)
		}
		if account == nil {
			return ErrNotResolved
		}
		pp.Printf("%+v\n", account)
		return nil
	}

	post := r.Engine.ResolvePostByID(ctx, rctx, r.identifier, resolver.ResolveOptions{Enrich: r.enrich})
	if post == nil {
		return ErrNotResolved
	}
	pp.Printf("%+v\n", post)

	return nil
}

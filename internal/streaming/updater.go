package streaming

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/zhulik/pips"
	"github.com/zhulik/pips/apply"

	"fedicache/internal/config"
	"fedicache/internal/core"
	"fedicache/internal/feeds"
	"fedicache/internal/resolver"
)

var (
	eventsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fedicache_streaming_events_total",
		Help: "The total number of streaming events received, by type",
	}, []string{"event"})
)

const (
	eventUpdate       = "update"
	eventStatusUpdate = "status.update"
	eventDelete       = "delete"
)

// CacheUpdater feeds streaming events into the cache: new and edited posts
// are written through the caching feed, deletes evict.
type CacheUpdater struct {
	Logger *slog.Logger
	Config *config.Config
	Engine *resolver.Engine
	Feeds  *feeds.Feeds
	Sub    *Subscriber
}

func (u *CacheUpdater) Init(_ context.Context) error {
	u.Logger = u.Logger.With("component", "streaming.CacheUpdater")

	return nil
}

func (u *CacheUpdater) Run(ctx context.Context) error {
	return u.pipeline().
		Run(ctx, u.Sub.C()).
		Wait(ctx)
}

func (u *CacheUpdater) pipeline() *pips.Pipeline[*Event, any] {
	return pips.New[*Event, any]().
		Then(apply.Each(func(_ context.Context, event *Event) error {
			eventsProcessed.WithLabelValues(event.Event).Inc()
			return nil
		})).
		Then(apply.Filter(func(_ context.Context, event *Event) (bool, error) {
			switch event.Event {
			case eventUpdate, eventStatusUpdate, eventDelete:
				return true, nil
			}
			return false, nil
		})).
		Then(apply.Map(func(_ context.Context, event *Event) (any, error) {
			return nil, u.handle(event)
		}))
}

func (u *CacheUpdater) handle(event *Event) error {
	rctx := u.Config.RequestContext()

	if event.Event == eventDelete {
		u.Engine.RemoveCachedPost(rctx, event.Payload)
		return nil
	}

	var post core.Post

	err := json.Unmarshal([]byte(event.Payload), &post)
	if err != nil {
		u.Logger.Error("cannot unmarshal streaming post", "error", err)
		return nil
	}

	if !u.Feeds.ShouldCache(&post) {
		return nil
	}

	// Edits replace whatever is cached; fresh posts never clobber an
	// entry an in-flight resolution may have just written.
	u.Engine.CachePost(rctx, &post, event.Event == eventStatusUpdate)

	return nil
}

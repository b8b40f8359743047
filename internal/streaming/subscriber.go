// Package streaming keeps the cache in sync with the viewer's live event
// stream over the server's websocket API.
package streaming

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/zhulik/pips"

	"fedicache/internal/config"
	"fedicache/pkg/async"
	"fedicache/pkg/retry"
)

const reconnectDelay = 5 * time.Second

// Event is a single message off the streaming websocket. Payload is itself
// JSON-encoded: a post for update events, a bare status id for deletes.
type Event struct {
	Stream  []string `json:"stream"`
	Event   string   `json:"event"`
	Payload string   `json:"payload"`
}

type Subscriber struct {
	Logger *slog.Logger
	Config *config.Config

	ch chan pips.D[*Event]

	mu   sync.Mutex
	conn *websocket.Conn
}

func (s *Subscriber) Init(_ context.Context) error {
	s.Logger = s.Logger.With("component", "streaming.Subscriber")
	s.ch = make(chan pips.D[*Event])

	return nil
}

func (s *Subscriber) Shutdown(_ context.Context) error {
	defer close(s.ch)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}

func (s *Subscriber) HealthCheck(_ context.Context) error {
	return nil
}

func (s *Subscriber) C() <-chan pips.D[*Event] {
	return s.ch
}

// Run holds the websocket open for the lifetime of the service,
// reconnecting whenever the connection drops.
func (s *Subscriber) Run(ctx context.Context) error {
	return retry.WrapWithRetry(ctx, func() error {
		return s.connectAndRead(ctx)
	}, func(err error, attempt int) bool {
		s.Logger.Warn("streaming connection lost, reconnecting",
			"error", err, "attempt", attempt)
		return ctx.Err() == nil
	}, reconnectDelay)()
}

func (s *Subscriber) connectAndRead(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.url(), nil)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()

	events := async.Generator(func(yield async.Yielder[*Event]) error {
		for {
			_, message, err := conn.ReadMessage()
			if err != nil {
				return err
			}

			var event Event

			err = json.Unmarshal(message, &event)
			if err != nil {
				s.Logger.Error("cannot unmarshal streaming event", "error", err)
				continue
			}

			yield(&event)
		}
	})

	for result := range events {
		event, err := result.Unpack()
		if err != nil {
			return err
		}

		select {
		case s.ch <- pips.NewD(event):
		case <-ctx.Done():
			conn.Close() //nolint:errcheck
			return ctx.Err()
		}
	}

	return nil
}

func (s *Subscriber) url() string {
	if s.Config.StreamingURL != "" {
		return s.Config.StreamingURL
	}

	return "wss://" + s.Config.Server + "/api/v1/streaming?stream=user&access_token=" + s.Config.Token
}

// Package federation implements core.FederationClient over the server's
// REST API. It is the only place the engine touches the network.
package federation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"resty.dev/v3"

	"fedicache/internal/config"
	"fedicache/internal/core"
)

var (
	apiLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fedicache_federation_request_latency",
			Help:    "Histogram of federation API request latency in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10},
		},
		[]string{"method", "path", "status_code"},
	)
)

var transportSettings = &resty.TransportSettings{
	DialerTimeout:         5 * time.Second,
	DialerKeepAlive:       5 * time.Second,
	IdleConnTimeout:       5 * time.Second,
	TLSHandshakeTimeout:   5 * time.Second,
	ExpectContinueTimeout: 5 * time.Second,
	ResponseHeaderTimeout: 10 * time.Second,
}

// Client talks to the viewer's server with credentials, and to arbitrary
// origin servers without any.
type Client struct {
	Logger *slog.Logger
	Config *config.Config

	api    *resty.Client
	public *resty.Client
}

func (c *Client) Init(_ context.Context) error {
	c.Logger = c.Logger.With("component", "federation.Client")

	c.api = resty.NewWithTransportSettings(transportSettings).
		SetBaseURL("https://"+c.Config.Server).
		SetHeader("Accept", "application/json").
		AddResponseMiddleware(metricMiddleware)
	if c.Config.Token != "" {
		c.api.SetAuthToken(c.Config.Token)
	}

	// Origin fetches are deliberately anonymous: no Authorization header
	// ever leaves the process toward a foreign server.
	c.public = resty.NewWithTransportSettings(transportSettings).
		SetHeader("Accept", "application/json").
		AddResponseMiddleware(metricMiddleware)

	return nil
}

func (c *Client) Shutdown(_ context.Context) error {
	return errors.Join(c.api.Close(), c.public.Close())
}

func metricMiddleware(_ *resty.Client, response *resty.Response) error {
	reqURL, err := url.Parse(response.Request.URL)
	if err != nil {
		return err
	}

	apiLatency.WithLabelValues(
		response.Request.Method,
		reqURL.Path,
		fmt.Sprintf("%d", response.StatusCode()),
	).Observe(response.Duration().Seconds())

	return nil
}

func (c *Client) r(ctx context.Context) *resty.Request {
	return c.api.R().WithContext(ctx)
}

// checked converts a non-2xx response into a core.StatusError so the engine
// can map it to a negative sentinel.
func checked(res *resty.Response, err error) (*resty.Response, error) {
	if err != nil {
		return nil, err
	}
	if res.IsError() {
		return nil, core.StatusError{Code: res.StatusCode()}
	}
	return res, nil
}

// Package fetch downloads calendar sources over HTTP.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/ijug-ev/cindy/internal/feed"
	"github.com/ijug-ev/cindy/internal/ical"
	"github.com/ijug-ev/cindy/internal/redirect"
)

// Config controls Client behavior.
type Config struct {
	// RedirectLimit bounds the number of redirect hops followed per fetch.
	RedirectLimit int
	// Timeout bounds one whole fetch including redirects. Zero disables it.
	Timeout time.Duration
	// UserAgent is sent with every request.
	UserAgent string
	// MaxBodyBytes caps the accepted document size. Zero means 8 MiB.
	MaxBodyBytes int64
}

// Client implements feed.Fetcher over an http.Client whose transport is
// the redirect-following interceptor.
type Client struct {
	http   *http.Client
	cfg    Config
	logger *zap.Logger
}

// New builds a Client around the given transport. The client's own
// redirect handling is disabled so every hop, including the terminal
// over-limit response, is decided by the transport alone.
func New(transport *redirect.Transport, cfg Config, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 8 << 20
	}
	return &Client{
		http: &http.Client{
			Transport: transport,
			Timeout:   cfg.Timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		cfg:    cfg,
		logger: logger,
	}
}

// Fetch downloads and parses one calendar source.
func (c *Client) Fetch(ctx context.Context, source feed.CalendarSource) ([]feed.Event, error) {
	ctx = redirect.WithLimit(ctx, c.cfg.RedirectLimit)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source.URI, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "text/calendar")
	if c.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", c.cfg.UserAgent)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", source.URI, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: unexpected status %d", source.URI, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.cfg.MaxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read body of %s: %w", source.URI, err)
	}

	events, err := ical.Extract(body, c.logger)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", source.URI, err)
	}
	c.logger.Debug("calendar fetched",
		zap.String("source", source.URI),
		zap.Int("events", len(events)),
	)
	return events, nil
}

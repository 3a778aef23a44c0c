package redirect

import (
	"context"
	"net/http"
	"net/url"

	"go.uber.org/zap"

	"github.com/ijug-ev/cindy/internal/metrics"
)

type limitKey struct{}

// WithLimit attaches a redirection limit to ctx. Redirect following is
// enabled only for requests whose context carries a limit; all other
// requests pass through the transport unmodified.
func WithLimit(ctx context.Context, limit int) context.Context {
	return context.WithValue(ctx, limitKey{}, limit)
}

func limitFrom(ctx context.Context) (int, bool) {
	limit, ok := ctx.Value(limitKey{}).(int)
	return limit, ok
}

// chain is the hop counter for one logical request chain. It is created
// per request and never shared.
type chain struct {
	limit int
	hops  int
}

func (c *chain) exceeded() bool {
	return c.hops > c.limit
}

// Transport follows HTTP redirects on behalf of the caller, bounded by
// the per-request limit, memoizing permanent redirects in a shared Cache
// so repeat round trips for known hops are skipped entirely.
//
// Exceeding the limit is a policy outcome, not an error: the caller sees
// the last hop's redirect response unchanged.
type Transport struct {
	base   http.RoundTripper
	cache  *Cache
	logger *zap.Logger
}

// NewTransport wraps base with redirect following backed by cache.
func NewTransport(base http.RoundTripper, cache *Cache, logger *zap.Logger) *Transport {
	if base == nil {
		base = http.DefaultTransport
	}
	if cache == nil {
		cache = NewCache()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Transport{base: base, cache: cache, logger: logger}
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	limit, ok := limitFrom(req.Context())
	if !ok {
		return t.base.RoundTrip(req)
	}
	rc := &chain{limit: limit}
	req = req.Clone(req.Context())

	for {
		resp, sent, err := t.dispatch(req, rc)
		if err != nil {
			return nil, err
		}
		if resp.Request == nil {
			resp.Request = sent
		}
		if resp.StatusCode < 300 || resp.StatusCode > 399 {
			return resp, nil
		}

		origin := sent.URL
		location := resp.Header.Get("Location")
		if location == "" {
			t.logger.Warn("redirect carries no Location header, cannot auto-follow",
				zap.String("url", origin.String()),
				zap.Int("status", resp.StatusCode),
			)
			return resp, nil
		}

		rc.hops++
		if rc.exceeded() {
			t.logger.Warn("redirection limit exceeded, returning last response",
				zap.String("url", origin.String()),
				zap.String("location", location),
				zap.Int("limit", rc.limit),
			)
			return resp, nil
		}

		target, perr := origin.Parse(location)
		if perr != nil {
			t.logger.Warn("redirect Location is unparsable, cannot auto-follow",
				zap.String("url", origin.String()),
				zap.String("location", location),
				zap.Error(perr),
			)
			return resp, nil
		}

		if resp.StatusCode == http.StatusMovedPermanently || resp.StatusCode == http.StatusPermanentRedirect {
			t.cache.Store(origin.String(), target.String())
		}

		t.logger.Debug("following redirect",
			zap.String("from", origin.String()),
			zap.String("to", target.String()),
			zap.Int("hop", rc.hops),
		)
		metrics.ObserveRedirectFollowed()
		discard(resp)
		req = rewrite(req, target)
	}
}

// dispatch rewrites the target URI through the permanent-redirect cache
// before touching the network, then performs the round trip. The request
// actually dispatched is returned alongside the response. When the
// cached chain alone exhausts the limit, a synthetic redirect carrying
// the last known location is returned without any network call.
func (t *Transport) dispatch(req *http.Request, rc *chain) (*http.Response, *http.Request, error) {
	for {
		target, ok := t.cache.Lookup(req.URL.String())
		if !ok {
			break
		}
		rc.hops++
		if rc.exceeded() {
			t.logger.Warn("redirection limit exceeded while replaying cached redirects",
				zap.String("url", req.URL.String()),
				zap.String("location", target),
				zap.Int("limit", rc.limit),
			)
			return synthetic(req, target), req, nil
		}
		u, err := url.Parse(target)
		if err != nil {
			break
		}
		metrics.ObserveRedirectCacheHit()
		req = rewrite(req, u)
	}
	resp, err := t.base.RoundTrip(req)
	return resp, req, err
}

// rewrite clones req pointed at target, keeping method and headers.
func rewrite(req *http.Request, target *url.URL) *http.Request {
	next := req.Clone(req.Context())
	next.URL = target
	next.Host = ""
	if req.GetBody != nil {
		if body, err := req.GetBody(); err == nil {
			next.Body = body
		}
	}
	return next
}

// synthetic builds a local permanent-redirect response for a cached hop
// that was never dispatched.
func synthetic(req *http.Request, location string) *http.Response {
	header := make(http.Header, 1)
	header.Set("Location", location)
	return &http.Response{
		Status:     "308 Permanent Redirect",
		StatusCode: http.StatusPermanentRedirect,
		Proto:      req.Proto,
		ProtoMajor: req.ProtoMajor,
		ProtoMinor: req.ProtoMinor,
		Header:     header,
		Body:       http.NoBody,
		Request:    req,
	}
}

func discard(resp *http.Response) {
	if resp.Body != nil {
		resp.Body.Close()
	}
}

package redirect

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// chainServer serves a configurable redirect chain and counts hits.
type chainServer struct {
	mu       sync.Mutex
	hits     map[string]int
	redirect map[string]redirectHop
}

type redirectHop struct {
	status   int
	location string
}

func newChainServer() *chainServer {
	return &chainServer{
		hits:     make(map[string]int),
		redirect: make(map[string]redirectHop),
	}
}

func (c *chainServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	c.mu.Lock()
	c.hits[r.URL.Path]++
	hop, ok := c.redirect[r.URL.Path]
	c.mu.Unlock()

	if ok {
		if hop.location != "" {
			w.Header().Set("Location", hop.location)
		}
		w.WriteHeader(hop.status)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("payload"))
}

func (c *chainServer) hitCount(path string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits[path]
}

func doGet(t *testing.T, transport *Transport, url string, limit int) *http.Response {
	t.Helper()
	ctx := WithLimit(context.Background(), limit)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	require.NoError(t, err)
	resp, err := transport.RoundTrip(req)
	require.NoError(t, err)
	return resp
}

func TestTransport_FollowsChainToFinalResponse(t *testing.T) {
	t.Parallel()

	cs := newChainServer()
	srv := httptest.NewServer(cs)
	defer srv.Close()
	cs.redirect["/a"] = redirectHop{status: http.StatusMovedPermanently, location: srv.URL + "/b"}
	cs.redirect["/b"] = redirectHop{status: http.StatusFound, location: srv.URL + "/c"}

	transport := NewTransport(nil, NewCache(), zap.NewNop())
	resp := doGet(t, transport, srv.URL+"/a", 10)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, "payload", string(body))
}

func TestTransport_PermanentRedirectIsMemoized(t *testing.T) {
	t.Parallel()

	cs := newChainServer()
	srv := httptest.NewServer(cs)
	defer srv.Close()
	cs.redirect["/a"] = redirectHop{status: http.StatusMovedPermanently, location: srv.URL + "/b"}

	cache := NewCache()
	transport := NewTransport(nil, cache, zap.NewNop())

	resp := doGet(t, transport, srv.URL+"/a", 10)
	resp.Body.Close()
	require.Equal(t, 1, cs.hitCount("/a"))

	target, ok := cache.Lookup(srv.URL + "/a")
	require.True(t, ok)
	require.Equal(t, srv.URL+"/b", target)

	// The second request rewrites to /b before dispatch; /a sees no
	// further round trip.
	resp = doGet(t, transport, srv.URL+"/a", 10)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, 1, cs.hitCount("/a"))
	require.Equal(t, 2, cs.hitCount("/b"))
}

func TestTransport_TemporaryRedirectIsNotMemoized(t *testing.T) {
	t.Parallel()

	cs := newChainServer()
	srv := httptest.NewServer(cs)
	defer srv.Close()
	cs.redirect["/a"] = redirectHop{status: http.StatusFound, location: srv.URL + "/b"}

	cache := NewCache()
	transport := NewTransport(nil, cache, zap.NewNop())

	resp := doGet(t, transport, srv.URL+"/a", 10)
	resp.Body.Close()
	require.Zero(t, cache.Len())

	resp = doGet(t, transport, srv.URL+"/a", 10)
	resp.Body.Close()
	require.Equal(t, 2, cs.hitCount("/a"))
}

func TestTransport_LimitExceededReturnsLastHop(t *testing.T) {
	t.Parallel()

	cs := newChainServer()
	srv := httptest.NewServer(cs)
	defer srv.Close()
	cs.redirect["/r0"] = redirectHop{status: http.StatusFound, location: srv.URL + "/r1"}
	cs.redirect["/r1"] = redirectHop{status: http.StatusFound, location: srv.URL + "/r2"}

	transport := NewTransport(nil, NewCache(), zap.NewNop())
	resp := doGet(t, transport, srv.URL+"/r0", 1)
	defer resp.Body.Close()

	// The caller observes the terminal redirect response, never a final
	// 200 beyond the limit.
	require.Equal(t, http.StatusFound, resp.StatusCode)
	require.Equal(t, srv.URL+"/r2", resp.Header.Get("Location"))
	require.Zero(t, cs.hitCount("/r2"))
}

func TestTransport_MissingLocationPassesThrough(t *testing.T) {
	t.Parallel()

	cs := newChainServer()
	srv := httptest.NewServer(cs)
	defer srv.Close()
	cs.redirect["/a"] = redirectHop{status: http.StatusMovedPermanently}

	transport := NewTransport(nil, NewCache(), zap.NewNop())
	resp := doGet(t, transport, srv.URL+"/a", 10)
	defer resp.Body.Close()

	require.Equal(t, http.StatusMovedPermanently, resp.StatusCode)
	require.Empty(t, resp.Header.Get("Location"))
}

func TestTransport_WithoutLimitPassesThroughUnmodified(t *testing.T) {
	t.Parallel()

	cs := newChainServer()
	srv := httptest.NewServer(cs)
	defer srv.Close()
	cs.redirect["/a"] = redirectHop{status: http.StatusMovedPermanently, location: srv.URL + "/b"}

	cache := NewCache()
	transport := NewTransport(nil, cache, zap.NewNop())

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/a", nil)
	require.NoError(t, err)
	resp, err := transport.RoundTrip(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusMovedPermanently, resp.StatusCode)
	require.Zero(t, cs.hitCount("/b"))
	require.Zero(t, cache.Len())
}

// failingRoundTripper fails the test when a network call happens.
type failingRoundTripper struct {
	t *testing.T
}

func (f failingRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	f.t.Fatal("unexpected network round trip")
	return nil, nil
}

func TestTransport_CachedChainExceedingLimitAbortsLocally(t *testing.T) {
	t.Parallel()

	cache := NewCache()
	cache.Store("https://origin.invalid/a", "https://origin.invalid/b")
	cache.Store("https://origin.invalid/b", "https://origin.invalid/c")
	cache.Store("https://origin.invalid/c", "https://origin.invalid/d")

	transport := NewTransport(failingRoundTripper{t: t}, cache, zap.NewNop())
	resp := doGet(t, transport, "https://origin.invalid/a", 2)
	defer resp.Body.Close()

	// Aborted before the network: a synthetic permanent redirect carrying
	// the last known location.
	require.Equal(t, http.StatusPermanentRedirect, resp.StatusCode)
	require.Equal(t, "https://origin.invalid/d", resp.Header.Get("Location"))
}

func TestTransport_CacheSharedAcrossConcurrentRequests(t *testing.T) {
	t.Parallel()

	cs := newChainServer()
	srv := httptest.NewServer(cs)
	defer srv.Close()
	cs.redirect["/a"] = redirectHop{status: http.StatusPermanentRedirect, location: srv.URL + "/b"}

	transport := NewTransport(nil, NewCache(), zap.NewNop())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ctx := WithLimit(context.Background(), 10)
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/a", nil)
			if err != nil {
				return
			}
			if resp, err := transport.RoundTrip(req); err == nil {
				resp.Body.Close()
			}
		}()
	}
	wg.Wait()

	// At least one request paid the /a round trip; once cached, the rest
	// rewrite straight to /b.
	require.GreaterOrEqual(t, cs.hitCount("/b"), 8)
}

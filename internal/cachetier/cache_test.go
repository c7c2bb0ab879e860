package cachetier

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/toolshed/internal/errors"
)

// origin numbers each response per path so cache hits are visible.
type origin struct {
	mu   sync.Mutex
	hits map[string]int
	fail bool
}

func newOrigin() *origin {
	return &origin{hits: make(map[string]int)}
}

func (o *origin) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	o.mu.Lock()
	o.hits[r.URL.Path]++
	n := o.hits[r.URL.Path]
	fail := o.fail
	o.mu.Unlock()

	if fail {
		http.Error(w, "down", http.StatusInternalServerError)
		return
	}
	switch {
	case strings.HasPrefix(r.URL.Path, "/missing"):
		http.NotFound(w, r)
		return
	case r.URL.Path == "/nostore":
		w.Header().Set("Cache-Control", "private, no-store")
	}
	w.Header().Set("Content-Type", "text/plain")
	fmt.Fprintf(w, "%s %s #%d", r.Method, r.URL.Path, n)
}

func (o *origin) setFail(fail bool) {
	o.mu.Lock()
	o.fail = fail
	o.mu.Unlock()
}

func (o *origin) count(path string) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.hits[path]
}

type requestOpt func(*http.Request)

func navigate(r *http.Request) { r.Header.Set("Sec-Fetch-Mode", "navigate") }
func image(r *http.Request)    { r.Header.Set("Sec-Fetch-Dest", "image") }

func do(c http.Handler, method, target string, opts ...requestOpt) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	for _, opt := range opts {
		opt(req)
	}
	rec := httptest.NewRecorder()
	c.ServeHTTP(rec, req)
	return rec
}

func newTestCache(o *origin, cfg Config) *Cache {
	return Middleware(o, NewStorage(), cfg, nil)
}

func TestClassify(t *testing.T) {
	c := newTestCache(newOrigin(), DefaultConfig())

	tests := []struct {
		name     string
		method   string
		target   string
		opts     []requestOpt
		class    Class
		strategy Strategy
		tier     Tier
		limit    int
	}{
		{"image", http.MethodGet, "/placeholder.svg", []requestOpt{image}, ClassImage, StrategyCacheFirst, TierImages, 60},
		{"image wins over api", http.MethodGet, "/api/avatar", []requestOpt{image}, ClassImage, StrategyCacheFirst, TierImages, 60},
		{"api", http.MethodGet, "/api/calc", nil, ClassAPI, StrategyNetworkFirst, TierRuntime, 50},
		{"api wins over navigation", http.MethodGet, "/api/calc", []requestOpt{navigate}, ClassAPI, StrategyNetworkFirst, TierRuntime, 50},
		{"apiary is not api", http.MethodGet, "/apiary", nil, ClassAsset, StrategyCacheFirst, TierRuntime, 50},
		{"navigation", http.MethodGet, "/tools/luhn", []requestOpt{navigate}, ClassNavigation, StrategyNetworkFirst, TierRuntime, 0},
		{"asset", http.MethodGet, "/static/app.css", nil, ClassAsset, StrategyCacheFirst, TierRuntime, 50},
		{"post", http.MethodPost, "/api/tools/luhn", nil, ClassBypass, StrategyNone, "", 0},
		{"head", http.MethodHead, "/", nil, ClassBypass, StrategyNone, "", 0},
		{"upgrade", http.MethodGet, "/ws/wordcount", []requestOpt{func(r *http.Request) { r.Header.Set("Upgrade", "websocket") }}, ClassBypass, StrategyNone, "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.target, nil)
			for _, opt := range tt.opts {
				opt(req)
			}
			route := c.Classify(req)
			assert.Equal(t, tt.class, route.Class)
			assert.Equal(t, tt.strategy, route.Strategy)
			assert.Equal(t, tt.tier, route.Tier)
			assert.Equal(t, tt.limit, route.Limit)
		})
	}
}

func TestRequestKey(t *testing.T) {
	assert.Equal(t, "GET /a", RequestKey(httptest.NewRequest(http.MethodGet, "/a", nil)))
	assert.Equal(t, "GET /a?b=1", RequestKey(httptest.NewRequest(http.MethodGet, "/a?b=1", nil)))
}

func TestCacheFirst(t *testing.T) {
	o := newOrigin()
	c := newTestCache(o, DefaultConfig())

	first := do(c, http.MethodGet, "/static/app.css")
	assert.Equal(t, StatusMiss, first.Header().Get(HeaderXCache))
	assert.Equal(t, "GET /static/app.css #1", first.Body.String())

	second := do(c, http.MethodGet, "/static/app.css")
	assert.Equal(t, StatusHit, second.Header().Get(HeaderXCache))
	assert.Equal(t, "GET /static/app.css #1", second.Body.String())
	assert.Equal(t, "text/plain", second.Header().Get("Content-Type"))
	assert.Equal(t, 1, o.count("/static/app.css"))

	// A hit is served even when the network is down.
	o.setFail(true)
	third := do(c, http.MethodGet, "/static/app.css")
	assert.Equal(t, StatusHit, third.Header().Get(HeaderXCache))
}

func TestCacheFirstStoresOnlyCacheable(t *testing.T) {
	o := newOrigin()
	c := newTestCache(o, DefaultConfig())

	for i := 0; i < 2; i++ {
		rec := do(c, http.MethodGet, "/nostore")
		assert.Equal(t, StatusMiss, rec.Header().Get(HeaderXCache))
		rec = do(c, http.MethodGet, "/missing/page")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	}
	assert.Equal(t, 2, o.count("/nostore"))
	assert.Equal(t, 2, o.count("/missing/page"))
	assert.Zero(t, c.Storage().Open(c.BucketName(TierRuntime)).Len())
}

func TestCacheFirstMissOffline(t *testing.T) {
	o := newOrigin()
	o.setFail(true)
	c := newTestCache(o, DefaultConfig())

	// The application's own error answer is served, not an offline page.
	rec := do(c, http.MethodGet, "/static/app.js")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, StatusMiss, rec.Header().Get(HeaderXCache))
	assert.Contains(t, rec.Body.String(), "down")
	assert.Zero(t, c.Storage().Open(c.BucketName(TierRuntime)).Len())
}

func TestMissWithoutResponseIsOffline(t *testing.T) {
	c := New(NewStorage(), unreachable{}, DefaultConfig(), nil)

	for _, target := range []string{"/static/app.js", "/api/calc"} {
		rec := do(c, http.MethodGet, target)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code, target)
		assert.Equal(t, StatusMiss, rec.Header().Get(HeaderXCache), target)

		var body errors.Payload
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, errors.ErrCodeOffline, body.Error.Code)
	}
}

// unreachable is a network that never answers.
type unreachable struct{}

func (unreachable) Fetch(context.Context, *http.Request) (*Response, error) {
	return nil, errors.NewNetworkError(errors.ErrCodeNetworkFailed, "connection refused", nil)
}

func (unreachable) Forward(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusBadGateway)
}

func TestNetworkFirstAPI(t *testing.T) {
	o := newOrigin()
	c := newTestCache(o, DefaultConfig())

	rec := do(c, http.MethodGet, "/api/calc")
	assert.Equal(t, StatusMiss, rec.Header().Get(HeaderXCache))
	rec = do(c, http.MethodGet, "/api/calc")
	assert.Equal(t, StatusMiss, rec.Header().Get(HeaderXCache))
	assert.Equal(t, "GET /api/calc #2", rec.Body.String())

	o.setFail(true)
	rec = do(c, http.MethodGet, "/api/calc")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, StatusFallback, rec.Header().Get(HeaderXCache))
	assert.Equal(t, "GET /api/calc #2", rec.Body.String())

	rec = do(c, http.MethodGet, "/api/other")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, StatusMiss, rec.Header().Get(HeaderXCache))
}

func TestNavigationFallsBackToRoot(t *testing.T) {
	o := newOrigin()
	c := newTestCache(o, DefaultConfig())
	require.NoError(t, c.Install(context.Background()))

	rec := do(c, http.MethodGet, "/tools/dates", navigate)
	assert.Equal(t, StatusMiss, rec.Header().Get(HeaderXCache))

	o.setFail(true)
	rec = do(c, http.MethodGet, "/tools/dates", navigate)
	assert.Equal(t, StatusFallback, rec.Header().Get(HeaderXCache))
	assert.Equal(t, "GET /tools/dates #1", rec.Body.String())

	rec = do(c, http.MethodGet, "/tools/never-seen", navigate)
	assert.Equal(t, StatusFallback, rec.Header().Get(HeaderXCache))
	assert.Equal(t, "GET / #1", rec.Body.String())
}

func TestNavigationWithoutCachedRoot(t *testing.T) {
	o := newOrigin()
	o.setFail(true)
	c := newTestCache(o, DefaultConfig())

	rec := do(c, http.MethodGet, "/tools/luhn", navigate)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, StatusMiss, rec.Header().Get(HeaderXCache))
}

func TestImageEviction(t *testing.T) {
	o := newOrigin()
	c := newTestCache(o, DefaultConfig())

	for i := 0; i < 61; i++ {
		rec := do(c, http.MethodGet, fmt.Sprintf("/img/%d.png", i), image)
		require.Equal(t, StatusMiss, rec.Header().Get(HeaderXCache))
	}

	images := c.Storage().Open(c.BucketName(TierImages))
	assert.Equal(t, 60, images.Len())
	keys := images.Keys()
	assert.Equal(t, "GET /img/1.png", keys[0])
	assert.Equal(t, "GET /img/60.png", keys[59])
	assert.EqualValues(t, 1, images.Stats().Evictions)

	rec := do(c, http.MethodGet, "/img/0.png", image)
	assert.Equal(t, StatusMiss, rec.Header().Get(HeaderXCache))
	assert.Equal(t, 2, o.count("/img/0.png"))
}

func TestNavigationsAreNotTrimmed(t *testing.T) {
	o := newOrigin()
	c := newTestCache(o, Config{RuntimeCap: 5})
	runtime := c.Storage().Open(c.BucketName(TierRuntime))

	for i := 0; i < 8; i++ {
		do(c, http.MethodGet, fmt.Sprintf("/tools/page-%d", i), navigate)
	}
	assert.Equal(t, 8, runtime.Len())

	do(c, http.MethodGet, "/static/app.css")
	assert.Equal(t, 5, runtime.Len())
	keys := runtime.Keys()
	assert.Equal(t, "GET /tools/page-4", keys[0])
	assert.Equal(t, "GET /static/app.css", keys[4])
}

func TestBypass(t *testing.T) {
	o := newOrigin()
	c := newTestCache(o, DefaultConfig())

	for i := 0; i < 2; i++ {
		rec := do(c, http.MethodPost, "/api/tools/luhn")
		assert.Equal(t, StatusBypass, rec.Header().Get(HeaderXCache))
		assert.Equal(t, fmt.Sprintf("POST /api/tools/luhn #%d", i+1), rec.Body.String())
	}
	assert.Empty(t, c.Stats())
}

func TestInstall(t *testing.T) {
	o := newOrigin()
	c := newTestCache(o, DefaultConfig())
	require.NoError(t, c.Install(context.Background()))

	precache := c.Storage().Open(c.BucketName(TierPrecache))
	assert.Equal(t, []string{"GET /", "GET /index.html", "GET /placeholder.svg", "GET /manifest.json"}, precache.Keys())

	rec := do(c, http.MethodGet, "/manifest.json")
	assert.Equal(t, StatusHit, rec.Header().Get(HeaderXCache))
	assert.Equal(t, 1, o.count("/manifest.json"))
}

func TestInstallFailsAtomically(t *testing.T) {
	o := newOrigin()
	cfg := DefaultConfig()
	cfg.Precache = []string{"/", "/missing.json"}
	c := newTestCache(o, cfg)

	require.Error(t, c.Install(context.Background()))
	assert.False(t, c.Storage().Has(c.BucketName(TierPrecache)))

	o.setFail(true)
	cfg.Precache = []string{"/"}
	c = newTestCache(o, cfg)
	err := c.Install(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsNetwork(err))
}

func TestActivate(t *testing.T) {
	storage := NewStorage()
	old := New(storage, HandlerFetcher(newOrigin()), Config{Version: "v0"}, nil)
	require.NoError(t, old.Install(context.Background()))
	storage.Open(old.BucketName(TierRuntime))
	storage.Open("unrelated")

	current := New(storage, HandlerFetcher(newOrigin()), Config{Version: "v1"}, nil)
	require.NoError(t, current.Install(context.Background()))
	storage.Open(current.BucketName(TierRuntime))

	deleted := current.Activate(context.Background())
	assert.ElementsMatch(t, []string{"toolshed-precache-v0", "toolshed-runtime-v0", "unrelated"}, deleted)
	assert.Equal(t, []string{"toolshed-precache-v1", "toolshed-runtime-v1"}, storage.Names())

	assert.Empty(t, current.Activate(context.Background()))
}

func TestInvalidateAndStats(t *testing.T) {
	o := newOrigin()
	c := newTestCache(o, DefaultConfig())

	do(c, http.MethodGet, "/static/app.css")
	do(c, http.MethodGet, "/static/app.css")
	assert.Equal(t, 1, c.Invalidate("/static/app.css"))

	rec := do(c, http.MethodGet, "/static/app.css")
	assert.Equal(t, StatusMiss, rec.Header().Get(HeaderXCache))

	stats := c.Stats()
	require.Len(t, stats, 1)
	assert.Equal(t, "toolshed-runtime-v1", stats[0].Name)
	assert.EqualValues(t, 1, stats[0].Hits)
	assert.EqualValues(t, 2, stats[0].Misses)
	assert.Equal(t, 1, stats[0].Entries)
}

func TestCacheable(t *testing.T) {
	assert.True(t, Cacheable(okResponse("x")))
	assert.False(t, Cacheable(nil))
	assert.False(t, Cacheable(&Response{StatusCode: http.StatusCreated, Header: http.Header{}}))

	resp := okResponse("x")
	resp.Header.Set("Cache-Control", "max-age=60, No-Store")
	assert.False(t, Cacheable(resp))
	resp.Header.Set("Cache-Control", "no-cache")
	assert.True(t, Cacheable(resp))
	resp.Header.Set("Cache-Control", "Private, max-age=60")
	assert.False(t, Cacheable(resp))
	resp.Header.Set("Cache-Control", `private="Set-Cookie"`)
	assert.False(t, Cacheable(resp))

	resp = okResponse("x")
	resp.Header.Add("Set-Cookie", "sid=abc")
	assert.False(t, Cacheable(resp))
}

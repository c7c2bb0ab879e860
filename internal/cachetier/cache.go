package cachetier

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/conneroisu/toolshed/internal/errors"
	"github.com/conneroisu/toolshed/internal/logging"
)

// Header set on every response that passes through the cache.
const HeaderXCache = "X-Cache"

// X-Cache values.
const (
	StatusHit      = "HIT"
	StatusMiss     = "MISS"
	StatusFallback = "FALLBACK"
	StatusBypass   = "BYPASS"
)

// DefaultPrecache is the install manifest.
var DefaultPrecache = []string{"/", "/index.html", "/placeholder.svg", "/manifest.json"}

// Config sizes and versions the cache.
type Config struct {
	Prefix     string
	Version    string
	ImageCap   int
	RuntimeCap int
	Precache   []string
}

// DefaultConfig returns the stock tier sizes.
func DefaultConfig() Config {
	return Config{
		Prefix:     "toolshed",
		Version:    "v1",
		ImageCap:   60,
		RuntimeCap: 50,
		Precache:   append([]string(nil), DefaultPrecache...),
	}
}

// Cache serves requests through the tiered strategies. It is an
// http.Handler in front of a Fetcher.
type Cache struct {
	storage *Storage
	fetcher Fetcher
	config  Config
	logger  logging.Logger
}

// New builds a cache over storage. A nil storage gets a fresh one.
func New(storage *Storage, fetcher Fetcher, config Config, logger logging.Logger) *Cache {
	if storage == nil {
		storage = NewStorage()
	}
	if logger == nil {
		logger = logging.Nop()
	}
	defaults := DefaultConfig()
	if config.Prefix == "" {
		config.Prefix = defaults.Prefix
	}
	if config.Version == "" {
		config.Version = defaults.Version
	}
	if config.ImageCap <= 0 {
		config.ImageCap = defaults.ImageCap
	}
	if config.RuntimeCap <= 0 {
		config.RuntimeCap = defaults.RuntimeCap
	}
	if config.Precache == nil {
		config.Precache = defaults.Precache
	}
	return &Cache{
		storage: storage,
		fetcher: fetcher,
		config:  config,
		logger:  logger.WithComponent("cachetier"),
	}
}

// Middleware puts a cache in front of next, using next as the network.
func Middleware(next http.Handler, storage *Storage, config Config, logger logging.Logger) *Cache {
	return New(storage, HandlerFetcher(next), config, logger)
}

// BucketName returns the versioned bucket name for tier.
func (c *Cache) BucketName(tier Tier) string {
	return fmt.Sprintf("%s-%s-%s", c.config.Prefix, tier, c.config.Version)
}

// Storage returns the underlying bucket set.
func (c *Cache) Storage() *Storage {
	return c.storage
}

// Config returns the effective configuration.
func (c *Cache) Config() Config {
	return c.config
}

// Install fetches every precache path and stores the results in the
// precache bucket. Nothing is stored unless every fetch succeeds with 200.
func (c *Cache) Install(ctx context.Context) error {
	fetched := make(map[string]*Response, len(c.config.Precache))
	keys := make([]string, 0, len(c.config.Precache))

	for _, p := range c.config.Precache {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, p, nil)
		if err != nil {
			return errors.NewInternalError("invalid precache path "+p, err)
		}
		resp, err := c.fetcher.Fetch(ctx, req)
		if err != nil {
			return fmt.Errorf("precache %s: %w", p, err)
		}
		if resp.StatusCode != http.StatusOK {
			return errors.NewNetworkError(errors.ErrCodeNetworkFailed,
				fmt.Sprintf("precache %s: status %d", p, resp.StatusCode), nil)
		}
		key := RequestKey(req)
		keys = append(keys, key)
		fetched[key] = resp
	}

	bucket := c.storage.Open(c.BucketName(TierPrecache))
	for _, key := range keys {
		bucket.Put(key, fetched[key], 0)
	}
	c.logger.Info(ctx, "Precache installed", "bucket", bucket.Name(), "entries", len(keys))
	return nil
}

// Activate deletes every bucket that does not belong to this version and
// returns the names removed.
func (c *Cache) Activate(ctx context.Context) []string {
	allowed := map[string]bool{
		c.BucketName(TierPrecache): true,
		c.BucketName(TierRuntime):  true,
		c.BucketName(TierImages):   true,
	}

	var deleted []string
	for _, name := range c.storage.Names() {
		if allowed[name] {
			continue
		}
		if c.storage.Delete(name) {
			deleted = append(deleted, name)
		}
	}
	if len(deleted) > 0 {
		c.logger.Info(ctx, "Stale cache buckets deleted", "buckets", strings.Join(deleted, ","))
	}
	return deleted
}

// Stats returns per-bucket counters.
func (c *Cache) Stats() []BucketStats {
	return c.storage.Stats()
}

// Invalidate removes path from every bucket.
func (c *Cache) Invalidate(path string) int {
	return c.storage.Invalidate(path)
}

// ServeHTTP answers r according to its route.
func (c *Cache) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	route := c.Classify(r)
	switch route.Strategy {
	case StrategyCacheFirst:
		c.cacheFirst(w, r, route)
	case StrategyNetworkFirst:
		c.networkFirst(w, r, route)
	default:
		w.Header().Set(HeaderXCache, StatusBypass)
		c.fetcher.Forward(w, r)
	}
}

func (c *Cache) cacheFirst(w http.ResponseWriter, r *http.Request, route Route) {
	ctx := r.Context()
	key := RequestKey(r)

	if e, _, ok := c.storage.Match(key); ok {
		writeResponse(w, e.Response, StatusHit)
		return
	}

	bucket := c.storage.Open(c.BucketName(route.Tier))
	bucket.miss()

	resp, err := c.fetcher.Fetch(ctx, r)
	if err != nil {
		c.logger.Warn(ctx, err, "Fetch failed on cache miss", "key", key, "class", route.Class.String())
		c.answerUncached(w, key, resp, err)
		return
	}
	c.store(ctx, r, bucket, key, resp, route)
	writeResponse(w, resp, StatusMiss)
}

func (c *Cache) networkFirst(w http.ResponseWriter, r *http.Request, route Route) {
	ctx := r.Context()
	key := RequestKey(r)
	bucket := c.storage.Open(c.BucketName(route.Tier))

	resp, err := c.fetcher.Fetch(ctx, r)
	if err == nil {
		c.store(ctx, r, bucket, key, resp, route)
		writeResponse(w, resp, StatusMiss)
		return
	}

	c.logger.Warn(ctx, err, "Network failed, trying cache", "key", key, "class", route.Class.String())
	if e, _, ok := c.storage.Match(key); ok {
		writeResponse(w, e.Response, StatusFallback)
		return
	}
	if route.Class == ClassNavigation {
		if e, _, ok := c.storage.Match(keyPrefix + "/"); ok {
			writeResponse(w, e.Response, StatusFallback)
			return
		}
	}
	bucket.miss()
	c.answerUncached(w, key, resp, err)
}

// answerUncached replies when the network failed and nothing is cached. A
// server error from the application is passed through as is; only a fetch
// that produced no response at all becomes an offline error.
func (c *Cache) answerUncached(w http.ResponseWriter, key string, resp *Response, err error) {
	if resp != nil {
		writeResponse(w, resp, StatusMiss)
		return
	}
	w.Header().Set(HeaderXCache, StatusMiss)
	writeError(w, offline(key, err))
}

func (c *Cache) store(ctx context.Context, r *http.Request, bucket *Bucket, key string, resp *Response, route Route) {
	if r != nil && r.Header.Get("Authorization") != "" {
		return
	}
	if !Cacheable(resp) {
		return
	}
	if evicted := bucket.Put(key, resp, route.Limit); evicted > 0 {
		c.logger.Debug(ctx, "Cache bucket trimmed", "bucket", bucket.Name(), "evicted", evicted)
	}
}

// Cacheable reports whether resp may be stored in a cache shared by every
// client: a 200 without Set-Cookie and without Cache-Control no-store or
// private.
func Cacheable(resp *Response) bool {
	if resp == nil || resp.StatusCode != http.StatusOK {
		return false
	}
	if len(resp.Header.Values("Set-Cookie")) > 0 {
		return false
	}
	for _, v := range resp.Header.Values("Cache-Control") {
		for _, directive := range strings.Split(v, ",") {
			directive = strings.TrimSpace(directive)
			if name, _, _ := strings.Cut(directive, "="); strings.EqualFold(name, "no-store") || strings.EqualFold(name, "private") {
				return false
			}
		}
	}
	return true
}

func offline(key string, cause error) error {
	return errors.NewNetworkError(errors.ErrCodeOffline, "no network and no cached copy for "+key, cause)
}

func writeResponse(w http.ResponseWriter, resp *Response, status string) {
	h := w.Header()
	for k, vv := range resp.Header {
		h[k] = append([]string(nil), vv...)
	}
	h.Set(HeaderXCache, status)
	h.Set("Content-Length", strconv.Itoa(len(resp.Body)))
	w.WriteHeader(resp.StatusCode)
	_, _ = w.Write(resp.Body)
}

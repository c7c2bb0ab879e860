package cachetier

import (
	"net/http"
	"strings"
)

// Class is the kind of request as seen by the cache.
type Class int

const (
	ClassBypass Class = iota
	ClassImage
	ClassAPI
	ClassNavigation
	ClassAsset
)

func (c Class) String() string {
	switch c {
	case ClassImage:
		return "image"
	case ClassAPI:
		return "api"
	case ClassNavigation:
		return "navigation"
	case ClassAsset:
		return "asset"
	default:
		return "bypass"
	}
}

// Strategy is the order in which cache and network are consulted.
type Strategy int

const (
	StrategyNone Strategy = iota
	StrategyCacheFirst
	StrategyNetworkFirst
)

func (s Strategy) String() string {
	switch s {
	case StrategyCacheFirst:
		return "cache-first"
	case StrategyNetworkFirst:
		return "network-first"
	default:
		return "none"
	}
}

// Tier names the bucket family a route stores into.
type Tier string

const (
	TierPrecache Tier = "precache"
	TierRuntime  Tier = "runtime"
	TierImages   Tier = "images"
)

// Route is the cache plan for one request.
type Route struct {
	Class    Class
	Strategy Strategy
	Tier     Tier
	// Limit is the FIFO cap applied after storing; 0 means no trim.
	Limit int
}

const keyPrefix = http.MethodGet + " "

// RequestKey returns the storage key for r: method, path and raw query.
func RequestKey(r *http.Request) string {
	key := keyPrefix + r.URL.Path
	if r.URL.RawQuery != "" {
		key += "?" + r.URL.RawQuery
	}
	return key
}

// Classify picks the route for r. Rules apply in order: non-GET and
// protocol upgrades bypass the cache, then image destinations, /api/
// paths, navigations and finally everything else.
func (c *Cache) Classify(r *http.Request) Route {
	if r.Method != http.MethodGet || r.Header.Get("Upgrade") != "" {
		return Route{Class: ClassBypass}
	}

	switch {
	case r.Header.Get("Sec-Fetch-Dest") == "image":
		return Route{Class: ClassImage, Strategy: StrategyCacheFirst, Tier: TierImages, Limit: c.config.ImageCap}
	case r.URL.Path == "/api" || strings.HasPrefix(r.URL.Path, "/api/"):
		return Route{Class: ClassAPI, Strategy: StrategyNetworkFirst, Tier: TierRuntime, Limit: c.config.RuntimeCap}
	case r.Header.Get("Sec-Fetch-Mode") == "navigate":
		return Route{Class: ClassNavigation, Strategy: StrategyNetworkFirst, Tier: TierRuntime}
	default:
		return Route{Class: ClassAsset, Strategy: StrategyCacheFirst, Tier: TierRuntime, Limit: c.config.RuntimeCap}
	}
}

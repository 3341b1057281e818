// Package geocode resolves freeform addresses and postal codes into
// coordinates through an external provider.  Provider failures are treated
// uniformly as "no result": callers get a nil Location and decide the
// fallback themselves.
package geocode

import (
	"context"
	"strings"
	"time"

	"github.com/iliyamo/store-locator/internal/cache"
)

// Location is a successful resolution.
type Location struct {
	Latitude         float64 `json:"latitude"`
	Longitude        float64 `json:"longitude"`
	FormattedAddress string  `json:"formatted_address"`
}

// Provider turns an address string into coordinates.  Implementations
// return (nil, nil) when the address cannot be resolved for any reason,
// including timeouts and provider errors.
type Provider interface {
	Resolve(ctx context.Context, address string) (*Location, error)
}

// Cached wraps a Provider with a long-lived cache: addresses rarely move,
// so successful lookups are kept for the configured TTL (30 days by
// default).  The key is the exact lowercased input; two spellings of the
// same place do not share an entry, which is an accepted imprecision.
type Cached struct {
	provider Provider
	cache    *cache.Cache
	ttl      time.Duration
}

// NewCached builds the caching wrapper.
func NewCached(p Provider, c *cache.Cache, ttl time.Duration) *Cached {
	return &Cached{provider: p, cache: c, ttl: ttl}
}

// Resolve looks the address up in the cache before delegating.  Only
// successful resolutions are cached; failures stay uncached so a transient
// provider outage does not pin "no result" for a month.
func (g *Cached) Resolve(ctx context.Context, address string) (*Location, error) {
	key := "geocode:address:" + strings.ToLower(address)
	if v, ok := g.cache.Get(key); ok {
		if loc, ok := v.(*Location); ok {
			return loc, nil
		}
	}

	loc, err := g.provider.Resolve(ctx, address)
	if err != nil || loc == nil {
		return nil, err
	}
	g.cache.Set(key, loc, g.ttl)
	return loc, nil
}

// ResolvePostal composes a postal code and country into an address query
// and delegates to Resolve, sharing its cache.
func (g *Cached) ResolvePostal(ctx context.Context, postalCode, country string) (*Location, error) {
	if country == "" {
		country = "USA"
	}
	return g.Resolve(ctx, postalCode+", "+country)
}

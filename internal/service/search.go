// Package service holds the business logic that sits between handlers and
// repositories: the store search engine and the bulk import pipeline.
package service

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/iliyamo/store-locator/internal/apperr"
	"github.com/iliyamo/store-locator/internal/cache"
	"github.com/iliyamo/store-locator/internal/geo"
	"github.com/iliyamo/store-locator/internal/geocode"
	"github.com/iliyamo/store-locator/internal/model"
)

// Search parameters and bounds.
const (
	defaultRadiusMiles = 10.0
	maxRadiusMiles     = 100.0

	// cacheCoordPrecision is the number of decimal places coordinates are
	// rounded to in cache keys (~11 m).  A tunable approximation: queries
	// differing only in float noise beyond it share a cache entry.
	cacheCoordPrecision = 4
)

// StoreSearcher is the slice of the store repository the engine needs.
type StoreSearcher interface {
	SearchActiveInBox(ctx context.Context, box geo.Box, storeTypes []string) ([]model.Store, error)
	ServicesFor(ctx context.Context, storeID string) ([]string, error)
}

// Geocoder resolves addresses and postal codes to coordinates.
type Geocoder interface {
	Resolve(ctx context.Context, address string) (*geocode.Location, error)
	ResolvePostal(ctx context.Context, postalCode, country string) (*geocode.Location, error)
}

// SearchRequest is the body of POST /stores/search.  Exactly one origin
// mode must resolve: a coordinate pair, a postal code, or an address, in
// that precedence order.
type SearchRequest struct {
	Address    string   `json:"address"`
	PostalCode string   `json:"postal_code"`
	Latitude   *float64 `json:"latitude"`
	Longitude  *float64 `json:"longitude"`

	RadiusMiles *float64 `json:"radius_miles"`
	Services    []string `json:"services"`
	StoreTypes  []string `json:"store_types"`
	OpenNow     bool     `json:"open_now"`
}

// SearchResult is one ranked hit.
type SearchResult struct {
	Store         model.Store `json:"store"`
	DistanceMiles float64     `json:"distance_miles"`
	IsOpenNow     bool        `json:"is_open_now"`
}

// FiltersApplied echoes the effective filters back to the caller.
type FiltersApplied struct {
	RadiusMiles float64  `json:"radius_miles"`
	Services    []string `json:"services"`
	StoreTypes  []string `json:"store_types"`
	OpenNow     bool     `json:"open_now"`
}

// SearchResponse is the full search reply.
type SearchResponse struct {
	Results        []SearchResult `json:"results"`
	SearchLocation map[string]any `json:"search_location"`
	FiltersApplied FiltersApplied `json:"filters_applied"`
	TotalResults   int            `json:"total_results"`
}

// SearchService answers "find stores near me" queries.  It owns no
// persistent state; the cache holds only transient result sets.
type SearchService struct {
	stores   StoreSearcher
	geocoder Geocoder
	cache    *cache.Cache
	cacheTTL time.Duration
	now      func() time.Time
}

// NewSearchService wires the engine.  Dependencies are injected so tests
// substitute fakes for the repository and the geocoder.
func NewSearchService(stores StoreSearcher, geocoder Geocoder, c *cache.Cache, cacheTTL time.Duration) *SearchService {
	return &SearchService{
		stores:   stores,
		geocoder: geocoder,
		cache:    c,
		cacheTTL: cacheTTL,
		now:      time.Now,
	}
}

// Search validates the query, resolves the origin, and runs the pipeline:
// bounding-box prefilter, exact-distance pruning, service and open-now
// filters, distance sort, optional cache.  Each step depends on the
// previous one's output, so the order is fixed.
func (s *SearchService) Search(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	radius, err := s.validate(&req)
	if err != nil {
		return nil, err
	}

	// A result set is cacheable only when the origin was supplied directly
	// as coordinates and open_now is not requested: open/closed flips with
	// the clock and must not be served stale.
	cacheable := req.Latitude != nil && req.Longitude != nil && !req.OpenNow
	var cacheKey string
	if cacheable {
		cacheKey = searchCacheKey(*req.Latitude, *req.Longitude, radius, req.Services, req.StoreTypes)
		if v, ok := s.cache.Get(cacheKey); ok {
			if resp, ok := v.(*SearchResponse); ok {
				return resp, nil
			}
		}
	}

	lat, lon, location, err := s.resolveOrigin(ctx, req)
	if err != nil {
		return nil, err
	}

	box := geo.BoundingBox(lat, lon, radius)
	candidates, err := s.stores.SearchActiveInBox(ctx, box, req.StoreTypes)
	if err != nil {
		return nil, apperr.Wrap(apperr.System, "store query failed", err)
	}

	now := s.now()
	results := []SearchResult{}
	for _, store := range candidates {
		// The box is a superset of the radius disk; corner false positives
		// are dropped here against the exact great-circle distance.
		dist := geo.DistanceMiles(lat, lon, store.Latitude, store.Longitude)
		if dist > radius {
			continue
		}

		services, err := s.stores.ServicesFor(ctx, store.StoreID)
		if err != nil {
			return nil, apperr.Wrap(apperr.System, "store query failed", err)
		}
		if !hasAllServices(services, req.Services) {
			continue
		}
		store.Services = services

		open := geo.IsOpenNow(store.WeekHours(), now)
		if req.OpenNow && !open {
			continue
		}

		results = append(results, SearchResult{
			Store:         store,
			DistanceMiles: math.Round(dist*100) / 100,
			IsOpenNow:     open,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].DistanceMiles < results[j].DistanceMiles
	})

	resp := &SearchResponse{
		Results:        results,
		SearchLocation: location,
		FiltersApplied: FiltersApplied{
			RadiusMiles: radius,
			Services:    orEmpty(req.Services),
			StoreTypes:  orEmpty(req.StoreTypes),
			OpenNow:     req.OpenNow,
		},
		TotalResults: len(results),
	}

	if cacheable {
		s.cache.Set(cacheKey, resp, s.cacheTTL)
	}
	return resp, nil
}

// validate checks the origin-mode and filter constraints and returns the
// effective radius.
func (s *SearchService) validate(req *SearchRequest) (float64, error) {
	if (req.Latitude != nil) != (req.Longitude != nil) {
		return 0, apperr.New(apperr.Validation, "latitude and longitude must be provided together")
	}
	if req.Latitude == nil && req.PostalCode == "" && req.Address == "" {
		return 0, apperr.New(apperr.Validation, "must provide either address, postal_code, or coordinates (latitude & longitude)")
	}
	if req.Latitude != nil {
		if *req.Latitude < -90 || *req.Latitude > 90 {
			return 0, apperr.New(apperr.Validation, "latitude must be between -90 and 90")
		}
		if *req.Longitude < -180 || *req.Longitude > 180 {
			return 0, apperr.New(apperr.Validation, "longitude must be between -180 and 180")
		}
	}

	radius := defaultRadiusMiles
	if req.RadiusMiles != nil {
		radius = *req.RadiusMiles
	}
	if radius < 0 || radius > maxRadiusMiles {
		return 0, apperr.New(apperr.Validation, "radius_miles must be between 0 and 100")
	}

	for _, t := range req.StoreTypes {
		if !model.ValidStoreType(t) {
			return 0, apperr.New(apperr.Validation, "invalid store_type: "+t)
		}
	}
	return radius, nil
}

// resolveOrigin picks the search origin with coordinate > postal > address
// precedence.  Geocoding failures surface as caller-actionable upstream
// errors without retry.
func (s *SearchService) resolveOrigin(ctx context.Context, req SearchRequest) (float64, float64, map[string]any, error) {
	if req.Latitude != nil && req.Longitude != nil {
		return *req.Latitude, *req.Longitude, map[string]any{
			"type":      "coordinates",
			"latitude":  *req.Latitude,
			"longitude": *req.Longitude,
		}, nil
	}

	if req.PostalCode != "" {
		loc, err := s.geocoder.ResolvePostal(ctx, req.PostalCode, "")
		if err != nil || loc == nil {
			return 0, 0, nil, apperr.New(apperr.Upstream, "could not geocode postal code: "+req.PostalCode)
		}
		return loc.Latitude, loc.Longitude, map[string]any{
			"type":              "postal_code",
			"postal_code":       req.PostalCode,
			"latitude":          loc.Latitude,
			"longitude":         loc.Longitude,
			"formatted_address": loc.FormattedAddress,
		}, nil
	}

	loc, err := s.geocoder.Resolve(ctx, req.Address)
	if err != nil || loc == nil {
		return 0, 0, nil, apperr.New(apperr.Upstream, "could not geocode address: "+req.Address)
	}
	return loc.Latitude, loc.Longitude, map[string]any{
		"type":              "address",
		"address":           req.Address,
		"latitude":          loc.Latitude,
		"longitude":         loc.Longitude,
		"formatted_address": loc.FormattedAddress,
	}, nil
}

// searchCacheKey derives a key from rounded coordinates, radius, and
// sorted filters, so filter ordering and sub-precision float noise do not
// split semantically identical queries across entries.
func searchCacheKey(lat, lon, radius float64, services, storeTypes []string) string {
	key := fmt.Sprintf("search:%.*f:%.*f:%g", cacheCoordPrecision, lat, cacheCoordPrecision, lon, radius)
	if len(services) > 0 {
		sorted := append([]string(nil), services...)
		sort.Strings(sorted)
		key += ":" + strings.Join(sorted, ",")
	}
	if len(storeTypes) > 0 {
		sorted := append([]string(nil), storeTypes...)
		sort.Strings(sorted)
		key += ":" + strings.Join(sorted, ",")
	}
	return key
}

// hasAllServices applies the AND semantics of the service filter.
func hasAllServices(have, want []string) bool {
	if len(want) == 0 {
		return true
	}
	set := make(map[string]bool, len(have))
	for _, s := range have {
		set[s] = true
	}
	for _, w := range want {
		if !set[w] {
			return false
		}
	}
	return true
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

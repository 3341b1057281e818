package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/store-locator/internal/apperr"
	"github.com/iliyamo/store-locator/internal/cache"
	"github.com/iliyamo/store-locator/internal/geo"
	"github.com/iliyamo/store-locator/internal/geocode"
	"github.com/iliyamo/store-locator/internal/model"
)

type fakeSearcher struct {
	stores   []model.Store
	services map[string][]string
	queries  int
}

func (f *fakeSearcher) SearchActiveInBox(_ context.Context, box geo.Box, storeTypes []string) ([]model.Store, error) {
	f.queries++
	typeOK := func(t string) bool {
		if len(storeTypes) == 0 {
			return true
		}
		for _, st := range storeTypes {
			if st == t {
				return true
			}
		}
		return false
	}
	var out []model.Store
	for _, s := range f.stores {
		if s.Status != model.StoreStatusActive || !typeOK(s.StoreType) {
			continue
		}
		if s.Latitude < box.MinLat || s.Latitude > box.MaxLat ||
			s.Longitude < box.MinLon || s.Longitude > box.MaxLon {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

func (f *fakeSearcher) ServicesFor(_ context.Context, storeID string) ([]string, error) {
	if svcs, ok := f.services[storeID]; ok {
		return svcs, nil
	}
	return []string{}, nil
}

type fakeGeocoder struct {
	loc   *geocode.Location
	calls int
}

func (f *fakeGeocoder) Resolve(context.Context, string) (*geocode.Location, error) {
	f.calls++
	return f.loc, nil
}

func (f *fakeGeocoder) ResolvePostal(context.Context, string, string) (*geocode.Location, error) {
	f.calls++
	return f.loc, nil
}

// Times Square as origin, a handful of stores at known offsets.
const (
	originLat = 40.7580
	originLon = -73.9855
)

func testStores() []model.Store {
	return []model.Store{
		{StoreID: "NYC001", Name: "Midtown", StoreType: model.StoreTypeFlagship, Status: model.StoreStatusActive,
			Latitude: 40.7589, Longitude: -73.9851, HoursMon: "09:00-21:00"},
		{StoreID: "NYC002", Name: "Downtown", StoreType: model.StoreTypeRegular, Status: model.StoreStatusActive,
			Latitude: 40.7128, Longitude: -74.0060, HoursMon: "closed"},
		{StoreID: "NYC003", Name: "Closed Shop", StoreType: model.StoreTypeOutlet, Status: model.StoreStatusInactive,
			Latitude: 40.7580, Longitude: -73.9855},
		{StoreID: "BOS001", Name: "Boston", StoreType: model.StoreTypeRegular, Status: model.StoreStatusActive,
			Latitude: 42.3601, Longitude: -71.0589},
	}
}

func newTestSearch(t *testing.T) (*SearchService, *fakeSearcher, *fakeGeocoder) {
	t.Helper()
	searcher := &fakeSearcher{
		stores: testStores(),
		services: map[string][]string{
			"NYC001": {"pharmacy", "pickup"},
			"NYC002": {"pickup"},
		},
	}
	gc := &fakeGeocoder{loc: &geocode.Location{Latitude: originLat, Longitude: originLon, FormattedAddress: "Times Square, NYC"}}
	svc := NewSearchService(searcher, gc, cache.New(), 5*time.Minute)
	return svc, searcher, gc
}

func coordsRequest(radius float64) SearchRequest {
	lat, lon := originLat, originLon
	return SearchRequest{Latitude: &lat, Longitude: &lon, RadiusMiles: &radius}
}

func TestSearchByCoordinates(t *testing.T) {
	svc, _, gc := newTestSearch(t)

	resp, err := svc.Search(context.Background(), coordsRequest(10))
	require.NoError(t, err)

	require.Len(t, resp.Results, 2)
	assert.Equal(t, "NYC001", resp.Results[0].Store.StoreID)
	assert.Equal(t, "NYC002", resp.Results[1].Store.StoreID)
	assert.LessOrEqual(t, resp.Results[0].DistanceMiles, resp.Results[1].DistanceMiles)
	assert.Equal(t, 2, resp.TotalResults)
	assert.Equal(t, "coordinates", resp.SearchLocation["type"])
	assert.Zero(t, gc.calls)
}

func TestSearchExcludesInactiveAndOutOfRadius(t *testing.T) {
	svc, _, _ := newTestSearch(t)

	resp, err := svc.Search(context.Background(), coordsRequest(10))
	require.NoError(t, err)

	for _, r := range resp.Results {
		assert.NotEqual(t, "NYC003", r.Store.StoreID, "inactive store must be excluded")
		assert.NotEqual(t, "BOS001", r.Store.StoreID, "Boston is ~190 miles out")
	}
}

func TestSearchRadiusPrunesBoxCorners(t *testing.T) {
	// NYC002 is ~3.5 miles from the origin; a 3-mile radius keeps only
	// the midtown store even though the box query may return both.
	svc, _, _ := newTestSearch(t)

	resp, err := svc.Search(context.Background(), coordsRequest(3))
	require.NoError(t, err)

	require.Len(t, resp.Results, 1)
	assert.Equal(t, "NYC001", resp.Results[0].Store.StoreID)
}

func TestSearchServiceFilterIsConjunctive(t *testing.T) {
	svc, _, _ := newTestSearch(t)

	req := coordsRequest(10)
	req.Services = []string{"pharmacy", "pickup"}
	resp, err := svc.Search(context.Background(), req)
	require.NoError(t, err)

	require.Len(t, resp.Results, 1)
	assert.Equal(t, "NYC001", resp.Results[0].Store.StoreID)
	assert.Equal(t, []string{"pharmacy", "pickup"}, resp.Results[0].Store.Services)
}

func TestSearchStoreTypeFilter(t *testing.T) {
	svc, _, _ := newTestSearch(t)

	req := coordsRequest(10)
	req.StoreTypes = []string{model.StoreTypeRegular}
	resp, err := svc.Search(context.Background(), req)
	require.NoError(t, err)

	require.Len(t, resp.Results, 1)
	assert.Equal(t, "NYC002", resp.Results[0].Store.StoreID)
}

func TestSearchOpenNow(t *testing.T) {
	svc, _, _ := newTestSearch(t)
	// Monday 10:00: NYC001 is open 09:00-21:00, NYC002 is closed.
	svc.now = func() time.Time { return time.Date(2024, 1, 8, 10, 0, 0, 0, time.UTC) }

	req := coordsRequest(10)
	req.OpenNow = true
	resp, err := svc.Search(context.Background(), req)
	require.NoError(t, err)

	require.Len(t, resp.Results, 1)
	assert.Equal(t, "NYC001", resp.Results[0].Store.StoreID)
	assert.True(t, resp.Results[0].IsOpenNow)
}

func TestSearchByAddressUsesGeocoder(t *testing.T) {
	svc, _, gc := newTestSearch(t)

	resp, err := svc.Search(context.Background(), SearchRequest{Address: "Times Square, New York"})
	require.NoError(t, err)

	assert.Equal(t, 1, gc.calls)
	assert.Equal(t, "address", resp.SearchLocation["type"])
	assert.Equal(t, "Times Square, NYC", resp.SearchLocation["formatted_address"])
	assert.NotEmpty(t, resp.Results)
}

func TestSearchByPostalCode(t *testing.T) {
	svc, _, gc := newTestSearch(t)

	resp, err := svc.Search(context.Background(), SearchRequest{PostalCode: "10036"})
	require.NoError(t, err)

	assert.Equal(t, 1, gc.calls)
	assert.Equal(t, "postal_code", resp.SearchLocation["type"])
}

func TestSearchCoordinatesTakePrecedence(t *testing.T) {
	svc, _, gc := newTestSearch(t)

	req := coordsRequest(10)
	req.Address = "somewhere else entirely"
	req.PostalCode = "02108"
	resp, err := svc.Search(context.Background(), req)
	require.NoError(t, err)

	assert.Zero(t, gc.calls)
	assert.Equal(t, "coordinates", resp.SearchLocation["type"])
}

func TestSearchGeocodeFailureIsUpstream(t *testing.T) {
	svc, _, gc := newTestSearch(t)
	gc.loc = nil

	_, err := svc.Search(context.Background(), SearchRequest{Address: "nowhere"})
	require.Error(t, err)
	assert.Equal(t, apperr.Upstream, apperr.KindOf(err))

	_, err = svc.Search(context.Background(), SearchRequest{PostalCode: "00000"})
	require.Error(t, err)
	assert.Equal(t, apperr.Upstream, apperr.KindOf(err))
}

func TestSearchValidation(t *testing.T) {
	svc, _, _ := newTestSearch(t)
	lat := originLat
	bigRadius := 150.0
	negRadius := -1.0
	badLat := 95.0
	lon := originLon

	cases := []struct {
		name string
		req  SearchRequest
	}{
		{"no origin", SearchRequest{}},
		{"lone latitude", SearchRequest{Latitude: &lat}},
		{"radius above cap", func() SearchRequest { r := coordsRequest(10); r.RadiusMiles = &bigRadius; return r }()},
		{"negative radius", func() SearchRequest { r := coordsRequest(10); r.RadiusMiles = &negRadius; return r }()},
		{"latitude out of range", SearchRequest{Latitude: &badLat, Longitude: &lon}},
		{"unknown store type", func() SearchRequest { r := coordsRequest(10); r.StoreTypes = []string{"mega"}; return r }()},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Search(context.Background(), tc.req)
			require.Error(t, err)
			assert.Equal(t, apperr.Validation, apperr.KindOf(err))
		})
	}
}

func TestSearchDefaultRadius(t *testing.T) {
	svc, _, _ := newTestSearch(t)
	lat, lon := originLat, originLon

	resp, err := svc.Search(context.Background(), SearchRequest{Latitude: &lat, Longitude: &lon})
	require.NoError(t, err)
	assert.Equal(t, 10.0, resp.FiltersApplied.RadiusMiles)
}

func TestSearchCachesCoordinateQueries(t *testing.T) {
	svc, searcher, _ := newTestSearch(t)

	first, err := svc.Search(context.Background(), coordsRequest(10))
	require.NoError(t, err)
	second, err := svc.Search(context.Background(), coordsRequest(10))
	require.NoError(t, err)

	assert.Same(t, first, second, "second hit must come from cache")
	assert.Equal(t, 1, searcher.queries)
}

func TestSearchCacheKeyIgnoresFilterOrder(t *testing.T) {
	svc, searcher, _ := newTestSearch(t)

	reqA := coordsRequest(10)
	reqA.Services = []string{"pickup", "pharmacy"}
	reqB := coordsRequest(10)
	reqB.Services = []string{"pharmacy", "pickup"}

	_, err := svc.Search(context.Background(), reqA)
	require.NoError(t, err)
	_, err = svc.Search(context.Background(), reqB)
	require.NoError(t, err)

	assert.Equal(t, 1, searcher.queries)
}

func TestSearchOpenNowNotCached(t *testing.T) {
	svc, searcher, _ := newTestSearch(t)

	req := coordsRequest(10)
	req.OpenNow = true
	_, err := svc.Search(context.Background(), req)
	require.NoError(t, err)
	_, err = svc.Search(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, 2, searcher.queries)
}

func TestSearchGeocodedQueriesNotCached(t *testing.T) {
	svc, searcher, _ := newTestSearch(t)

	_, err := svc.Search(context.Background(), SearchRequest{Address: "Times Square"})
	require.NoError(t, err)
	_, err = svc.Search(context.Background(), SearchRequest{Address: "Times Square"})
	require.NoError(t, err)

	assert.Equal(t, 2, searcher.queries)
}

func TestSearchDistanceRounding(t *testing.T) {
	svc, _, _ := newTestSearch(t)

	resp, err := svc.Search(context.Background(), coordsRequest(10))
	require.NoError(t, err)
	require.NotEmpty(t, resp.Results)
	for _, r := range resp.Results {
		rounded := float64(int(r.DistanceMiles*100+0.5)) / 100
		assert.InDelta(t, rounded, r.DistanceMiles, 1e-9, "distances carry two decimals")
	}
}

package geocode

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Nominatim queries the OpenStreetMap Nominatim search API.  The service
// is rate-limited and not guaranteed available, so every failure (dial
// error, timeout, bad status, empty result) degrades to (nil, nil).
type Nominatim struct {
	baseURL   string
	userAgent string
	client    *http.Client
}

// NewNominatim builds a client.  The timeout bounds the whole outbound
// call; after it fires the lookup is treated as a failed resolution.
func NewNominatim(baseURL, userAgent string, timeout time.Duration) *Nominatim {
	if baseURL == "" {
		baseURL = "https://nominatim.openstreetmap.org"
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Nominatim{
		baseURL:   baseURL,
		userAgent: userAgent,
		client:    &http.Client{Timeout: timeout},
	}
}

// nominatimRow mirrors one element of the provider's JSON response.
// Coordinates arrive as strings.
type nominatimRow struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

// Resolve performs the search with limit=1 and returns the best match.
func (n *Nominatim) Resolve(ctx context.Context, address string) (*Location, error) {
	q := url.Values{}
	q.Set("q", address)
	q.Set("format", "json")
	q.Set("limit", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, n.baseURL+"/search?"+q.Encode(), nil)
	if err != nil {
		return nil, nil
	}
	req.Header.Set("User-Agent", n.userAgent)

	resp, err := n.client.Do(req)
	if err != nil {
		log.Printf("geocode: request failed: %v", err)
		return nil, nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Printf("geocode: provider returned status %d", resp.StatusCode)
		return nil, nil
	}

	var rows []nominatimRow
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		log.Printf("geocode: decode failed: %v", err)
		return nil, nil
	}
	if len(rows) == 0 {
		return nil, nil
	}

	lat, err1 := strconv.ParseFloat(rows[0].Lat, 64)
	lon, err2 := strconv.ParseFloat(rows[0].Lon, 64)
	if err1 != nil || err2 != nil {
		return nil, nil
	}
	return &Location{Latitude: lat, Longitude: lon, FormattedAddress: rows[0].DisplayName}, nil
}

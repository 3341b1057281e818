// Package geo contains the pure math used by store search: a rectangular
// bounding-box estimate for a radius around a point, great-circle distance
// between two points, and evaluation of weekly opening hours.
package geo

import (
	"math"
	"strings"
	"time"
)

// earthRadiusMiles is the mean radius of the Earth in miles, used by the
// haversine formula.
const earthRadiusMiles = 3958.8

// milesPerDegreeLat approximates one degree of latitude anywhere on the
// sphere.  Longitude degrees shrink with cos(latitude).
const milesPerDegreeLat = 69.0

// Box is a rectangular lat/lon prefilter around a search origin.  It is
// always a superset of the true radius disk: it never excludes a store
// within the radius, but admits corner false positives that the exact
// distance check removes.
type Box struct {
	MinLat float64
	MaxLat float64
	MinLon float64
	MaxLon float64
}

// BoundingBox computes the box covering radiusMiles around (lat, lon).
// Near the poles cos(lat) approaches zero and the longitude delta would
// divide by zero; the box then spans the full longitude range.
func BoundingBox(lat, lon, radiusMiles float64) Box {
	latDelta := radiusMiles / milesPerDegreeLat

	cosLat := math.Cos(lat * math.Pi / 180)
	minLon, maxLon := -180.0, 180.0
	if cosLat > 1e-9 {
		lonDelta := radiusMiles / (milesPerDegreeLat * cosLat)
		minLon = lon - lonDelta
		maxLon = lon + lonDelta
	}

	return Box{
		MinLat: lat - latDelta,
		MaxLat: lat + latDelta,
		MinLon: minLon,
		MaxLon: maxLon,
	}
}

// DistanceMiles returns the haversine great-circle distance in miles
// between two points given in degrees.  It is symmetric and returns 0
// for identical points.
func DistanceMiles(lat1, lon1, lat2, lon2 float64) float64 {
	rad := func(deg float64) float64 { return deg * math.Pi / 180 }

	dLat := rad(lat2 - lat1)
	dLon := rad(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rad(lat1))*math.Cos(rad(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusMiles * c
}

// IsOpenNow reports whether a store is open at the given local time.  The
// week array is indexed by time.Weekday (Sunday = 0); each entry is either
// "closed" or "HH:MM-HH:MM".  The comparison is inclusive at both the
// open and close boundary.  Malformed hour strings fail closed: the
// function returns false and never propagates a parse error.
func IsOpenNow(week [7]string, now time.Time) bool {
	today := week[int(now.Weekday())]
	if today == "" || today == "closed" {
		return false
	}

	openStr, closeStr, ok := strings.Cut(today, "-")
	if !ok {
		return false
	}
	open, ok := parseMinutes(openStr)
	if !ok {
		return false
	}
	close, ok := parseMinutes(closeStr)
	if !ok {
		return false
	}

	cur := now.Hour()*60 + now.Minute()
	return open <= cur && cur <= close
}

// parseMinutes converts "HH:MM" into minutes since midnight.  It rejects
// anything that is not two zero-padded fields in valid ranges.
func parseMinutes(s string) (int, bool) {
	h, m, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok || len(h) != 2 || len(m) != 2 {
		return 0, false
	}
	hour, ok := atoi2(h)
	if !ok || hour > 23 {
		return 0, false
	}
	min, ok := atoi2(m)
	if !ok || min > 59 {
		return 0, false
	}
	return hour*60 + min, true
}

func atoi2(s string) (int, bool) {
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
		n = n*10 + int(r-'0')
	}
	return n, true
}

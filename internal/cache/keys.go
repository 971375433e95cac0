package cache

import (
	"strings"

	"github.com/mmcloughlin/geohash"
)

// geoKeyPrecision of 7 characters gives cells of roughly 150m x 150m
const geoKeyPrecision = 7

// GeoKey builds a key from a coarse rounding of a coordinate, so lookups
// from nearby points share one entry.
func GeoKey(prefix string, lat, lng float64) string {
	return prefix + ":" + geohash.EncodeWithPrecision(lat, lng, geoKeyPrecision)
}

// Key joins parts into a case-insensitive cache key
func Key(prefix string, parts ...string) string {
	normalized := make([]string, len(parts))
	for i, p := range parts {
		normalized[i] = strings.ToLower(strings.TrimSpace(p))
	}
	return prefix + ":" + strings.Join(normalized, "|")
}

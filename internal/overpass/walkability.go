package overpass

import (
	"context"
	"math"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"lokalfakta/server/internal/cache"
	"lokalfakta/server/internal/models"
)

// InfrastructureRadius bounds the cycling and pedestrian infrastructure query
const InfrastructureRadius = 1000

// Infrastructure holds raw counts of cycling and pedestrian segments
type Infrastructure struct {
	Cycleways int
	Footways  int
	Crossings int
	Sidewalks int
}

// WalkabilityScorer derives walk and bike scores around a point
type WalkabilityScorer struct {
	client *Client
	cache  *cache.ExpiringCache
	logger *logrus.Logger
}

func NewWalkabilityScorer(client *Client, c *cache.ExpiringCache, logger *logrus.Logger) *WalkabilityScorer {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}
	return &WalkabilityScorer{client: client, cache: c, logger: logger}
}

// InfrastructureQuery builds the cycling/pedestrian infrastructure query
func InfrastructureQuery(lat, lng float64) string {
	a := around(InfrastructureRadius, lat, lng)

	var b strings.Builder
	b.WriteString("[out:json][timeout:10];\n(\n")
	for _, line := range []string{
		`way["highway"="cycleway"]` + a,
		`way["cycleway"]` + a,
		`way["bicycle"="designated"]` + a,
		`way["highway"~"^(footway|pedestrian|path|steps|living_street)$"]` + a,
		`way["foot"="designated"]` + a,
		`node["highway"="crossing"]` + a,
		`way["sidewalk"~"^(both|left|right|yes|separate)$"]` + a,
	} {
		b.WriteString("  " + line + ";\n")
	}
	b.WriteString(");\nout tags;")
	return b.String()
}

// Score returns walkability for lat/lng given the already computed nearby
// amenities. Only the infrastructure counts are cached, so the amenity part
// always reflects nearby. Any failure yields zero scores.
func (s *WalkabilityScorer) Score(ctx context.Context, lat, lng float64, nearby models.NearbyData) models.WalkabilityData {
	key := cache.GeoKey("walk", lat, lng)
	if infra, ok := cache.Lookup[Infrastructure](s.cache, key); ok {
		return ComputeWalkability(infra, nearby)
	}

	elements, err := s.client.Query(ctx, InfrastructureQuery(lat, lng))
	if err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"latitude":  lat,
			"longitude": lng,
		}).Debug("Walkability lookup failed")
		return ComputeWalkability(Infrastructure{}, models.NearbyData{})
	}

	infra := CountInfrastructure(elements)
	s.cache.Set(key, infra)
	return ComputeWalkability(infra, nearby)
}

// CountInfrastructure classifies elements into infrastructure counts
func CountInfrastructure(elements []Element) Infrastructure {
	var infra Infrastructure
	for _, e := range elements {
		switch Classify(InfrastructureRules, e.Tags) {
		case BucketCycleway:
			infra.Cycleways++
		case BucketFootway:
			infra.Footways++
		case BucketCrossing:
			infra.Crossings++
		case BucketSidewalk:
			infra.Sidewalks++
		}
	}
	return infra
}

// ComputeWalkability applies the scoring formula. Both scores are in [0, 100].
func ComputeWalkability(infra Infrastructure, nearby models.NearbyData) models.WalkabilityData {
	amenityCount := nearby.Restaurants + nearby.Shops + nearby.Healthcare + nearby.Schools +
		nearby.BusStops.Count + nearby.TrainStations.Count

	walkInfra := minInt(50, nonNegative(infra.Footways)*2+nonNegative(infra.Crossings)*3+nonNegative(infra.Sidewalks)*2)
	walkAmenity := minInt(50, nonNegative(amenityCount)*2)
	walkScore := minInt(100, walkInfra+walkAmenity)

	bikeInfra := math.Min(60, float64(nonNegative(infra.Cycleways)*4))
	bikeAmenity := math.Min(40, float64(nonNegative(amenityCount))*1.5)
	bikeScore := minInt(100, int(math.Round(bikeInfra+bikeAmenity)))

	return models.WalkabilityData{
		WalkScore: walkScore,
		BikeScore: bikeScore,
		WalkLabel: ScoreLabel(walkScore),
		BikeLabel: ScoreLabel(bikeScore),
		Cycleways: infra.Cycleways,
		Footways:  infra.Footways,
	}
}

// ScoreLabel maps a score to one of five tiers
func ScoreLabel(score int) string {
	switch {
	case score >= 90:
		return "Excellent"
	case score >= 70:
		return "Very good"
	case score >= 50:
		return "Good"
	case score >= 25:
		return "Acceptable"
	default:
		return "Car-dependent"
	}
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func nonNegative(n int) int {
	if n < 0 {
		return 0
	}
	return n
}

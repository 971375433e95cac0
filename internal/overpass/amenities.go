package overpass

import (
	"context"
	"math"
	"os"
	"strings"

	"github.com/paulmach/orb"
	"github.com/sirupsen/logrus"

	"lokalfakta/server/internal/cache"
	"lokalfakta/server/internal/geometry"
	"lokalfakta/server/internal/models"
)

const (
	// DensityRadius bounds point-of-interest density counts
	DensityRadius = 2500
	// TransitRadius bounds transit and education lookups
	TransitRadius = 3000
)

// AmenityFetcher counts amenities around a point
type AmenityFetcher struct {
	client *Client
	cache  *cache.ExpiringCache
	logger *logrus.Logger
}

func NewAmenityFetcher(client *Client, c *cache.ExpiringCache, logger *logrus.Logger) *AmenityFetcher {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}
	return &AmenityFetcher{client: client, cache: c, logger: logger}
}

// AmenityQuery builds the single batched query for all amenity classes
func AmenityQuery(lat, lng float64) string {
	d := around(DensityRadius, lat, lng)
	tr := around(TransitRadius, lat, lng)

	var b strings.Builder
	b.WriteString("[out:json][timeout:10];\n(\n")
	for _, line := range []string{
		`nwr["amenity"~"^(restaurant|cafe|fast_food|bar|pub|food_court|ice_cream)$"]` + d,
		`node["shop"]` + d,
		`nwr["leisure"~"^(fitness_centre|sports_centre)$"]` + d,
		`node["highway"="bus_stop"]` + tr,
		`nwr["railway"~"^(station|halt|tram_stop|subway_entrance)$"]` + tr,
		`nwr["amenity"="parking"]` + d,
		`nwr["amenity"~"^(school|kindergarten|college|university)$"]` + tr,
		`nwr["amenity"~"^(pharmacy|clinic|hospital|doctors|dentist)$"]` + d,
	} {
		b.WriteString("  " + line + ";\n")
	}
	b.WriteString(");\nout center tags;")
	return b.String()
}

// Fetch returns amenity counts around lat/lng. Any failure yields an
// all-zero NearbyData.
func (f *AmenityFetcher) Fetch(ctx context.Context, lat, lng float64) models.NearbyData {
	key := cache.GeoKey("nearby", lat, lng)
	if cached, ok := cache.Lookup[models.NearbyData](f.cache, key); ok {
		return cached
	}

	elements, err := f.client.Query(ctx, AmenityQuery(lat, lng))
	if err != nil {
		f.logger.WithError(err).WithFields(logrus.Fields{
			"latitude":  lat,
			"longitude": lng,
		}).Debug("Nearby amenity lookup failed")
		return models.NearbyData{}
	}

	nearby := SummarizeAmenities(orb.Point{lng, lat}, elements)
	f.cache.Set(key, nearby)
	return nearby
}

// SummarizeAmenities classifies elements and picks the nearest bus stop and
// train station
func SummarizeAmenities(origin orb.Point, elements []Element) models.NearbyData {
	var (
		nearby   models.NearbyData
		busStops []geometry.Candidate
		stations []geometry.Candidate
	)

	for _, e := range elements {
		switch Classify(AmenityRules, e.Tags) {
		case BucketFood:
			nearby.Restaurants++
		case BucketShop:
			nearby.Shops++
		case BucketFitness:
			nearby.Gyms++
		case BucketBusStop:
			nearby.BusStops.Count++
			busStops = appendCandidate(busStops, e)
		case BucketTrainStation:
			nearby.TrainStations.Count++
			stations = appendCandidate(stations, e)
		case BucketParking:
			nearby.Parking++
		case BucketEducation:
			nearby.Schools++
		case BucketHealthcare:
			nearby.Healthcare++
		}
	}

	setNearest(&nearby.BusStops, origin, busStops)
	setNearest(&nearby.TrainStations, origin, stations)
	return nearby
}

func appendCandidate(candidates []geometry.Candidate, e Element) []geometry.Candidate {
	p, ok := e.Point()
	if !ok {
		return candidates
	}
	return append(candidates, geometry.Candidate{Name: ElementName(e.Tags), Point: p})
}

func setNearest(t *models.TransitData, origin orb.Point, candidates []geometry.Candidate) {
	if t.Count == 0 {
		return
	}
	nearest, ok := geometry.Nearest(origin, candidates)
	if !ok {
		return
	}
	name := nearest.Name
	distance := int(math.Round(nearest.DistanceMeters))
	t.NearestName = &name
	t.NearestDistanceMeters = &distance
}

// ElementName falls back through name, the Swedish name, and ref
func ElementName(tags map[string]string) string {
	for _, key := range []string{"name", "name:sv", "ref"} {
		if v := strings.TrimSpace(tags[key]); v != "" {
			return v
		}
	}
	return ""
}


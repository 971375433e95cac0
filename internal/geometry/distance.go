package geometry

import (
	"math"
	"sort"

	"github.com/paulmach/orb"
)

// EarthRadiusMeters is the mean Earth radius used for great-circle distances
const EarthRadiusMeters = 6371000.0

// Haversine returns the great-circle distance in meters between two points.
// Points are orb.Point{lng, lat}.
func Haversine(p1, p2 orb.Point) float64 {
	lat1 := toRadians(p1.Lat())
	lat2 := toRadians(p2.Lat())
	dLat := lat2 - lat1
	dLng := toRadians(p2.Lon() - p1.Lon())

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return EarthRadiusMeters * c
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}

// Candidate is a named location considered for nearest selection
type Candidate struct {
	Name  string
	Point orb.Point
}

// Ranked is a candidate with its distance from the origin
type Ranked struct {
	Candidate
	DistanceMeters float64
}

// RankByDistance returns candidates sorted by ascending distance from
// origin. Equal distances keep their input order.
func RankByDistance(origin orb.Point, candidates []Candidate) []Ranked {
	ranked := make([]Ranked, len(candidates))
	for i, c := range candidates {
		ranked[i] = Ranked{Candidate: c, DistanceMeters: Haversine(origin, c.Point)}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].DistanceMeters < ranked[j].DistanceMeters
	})
	return ranked
}

// Nearest returns the closest candidate, or false if there are none
func Nearest(origin orb.Point, candidates []Candidate) (Ranked, bool) {
	ranked := RankByDistance(origin, candidates)
	if len(ranked) == 0 {
		return Ranked{}, false
	}
	return ranked[0], true
}

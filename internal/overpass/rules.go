package overpass

import "regexp"

// Bucket is the category an element is counted under
type Bucket string

const (
	BucketNone         Bucket = ""
	BucketFood         Bucket = "food"
	BucketShop         Bucket = "shop"
	BucketFitness      Bucket = "fitness"
	BucketBusStop      Bucket = "bus_stop"
	BucketTrainStation Bucket = "train_station"
	BucketParking      Bucket = "parking"
	BucketEducation    Bucket = "education"
	BucketHealthcare   Bucket = "healthcare"

	BucketCycleway Bucket = "cycleway"
	BucketFootway  Bucket = "footway"
	BucketCrossing Bucket = "crossing"
	BucketSidewalk Bucket = "sidewalk"
)

// TagMatch matches one tag value case-insensitively
type TagMatch struct {
	Key     string
	Pattern *regexp.Regexp
}

// Rule credits an element to Bucket when any of its conditions hit
type Rule struct {
	Bucket     Bucket
	Conditions []TagMatch
}

// Matches reports whether the rule applies to a tag set
func (r Rule) Matches(tags map[string]string) bool {
	for _, m := range r.Conditions {
		if v, ok := tags[m.Key]; ok && m.Pattern.MatchString(v) {
			return true
		}
	}
	return false
}

func match(key, pattern string) TagMatch {
	return TagMatch{Key: key, Pattern: regexp.MustCompile("(?i)" + pattern)}
}

// AmenityRules is evaluated in order; the first matching rule wins
var AmenityRules = []Rule{
	{Bucket: BucketFood, Conditions: []TagMatch{
		match("amenity", `^(restaurant|cafe|fast_food|bar|pub|food_court|ice_cream|biergarten)$`),
	}},
	{Bucket: BucketShop, Conditions: []TagMatch{
		match("shop", `.+`),
		match("building", `^(retail|supermarket|kiosk)$`),
	}},
	{Bucket: BucketFitness, Conditions: []TagMatch{
		match("leisure", `^(fitness_centre|sports_centre|fitness_station)$`),
		match("amenity", `^(gym|dojo)$`),
	}},
	{Bucket: BucketBusStop, Conditions: []TagMatch{
		match("highway", `^bus_stop$`),
		match("amenity", `^bus_station$`),
	}},
	{Bucket: BucketTrainStation, Conditions: []TagMatch{
		match("railway", `^(station|halt|tram_stop|subway_entrance)$`),
		match("building", `^train_station$`),
	}},
	{Bucket: BucketParking, Conditions: []TagMatch{
		match("amenity", `^(parking|parking_entrance)$`),
		match("building", `^parking$`),
	}},
	{Bucket: BucketEducation, Conditions: []TagMatch{
		match("amenity", `^(school|kindergarten|college|university)$`),
		match("building", `^(school|kindergarten|college|university)$`),
	}},
	{Bucket: BucketHealthcare, Conditions: []TagMatch{
		match("amenity", `^(pharmacy|clinic|hospital|doctors|dentist)$`),
		match("building", `^hospital$`),
	}},
}

// InfrastructureRules is evaluated in order; the first matching rule wins,
// so a way tagged for both bikes and pedestrians is credited as cycle.
var InfrastructureRules = []Rule{
	{Bucket: BucketCycleway, Conditions: []TagMatch{
		match("highway", `^cycleway$`),
		match("cycleway", `.+`),
		match("bicycle", `^designated$`),
	}},
	{Bucket: BucketFootway, Conditions: []TagMatch{
		match("highway", `^(footway|pedestrian|path|steps|living_street)$`),
		match("foot", `^designated$`),
	}},
	{Bucket: BucketCrossing, Conditions: []TagMatch{
		match("highway", `^crossing$`),
		match("crossing", `.+`),
	}},
	{Bucket: BucketSidewalk, Conditions: []TagMatch{
		match("sidewalk", `^(both|left|right|yes|separate)$`),
	}},
}

// Classify returns the bucket of the first rule matching tags
func Classify(rules []Rule, tags map[string]string) Bucket {
	for _, r := range rules {
		if r.Matches(tags) {
			return r.Bucket
		}
	}
	return BucketNone
}

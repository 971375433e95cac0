package overpass

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify_Amenities(t *testing.T) {
	tests := []struct {
		name     string
		tags     map[string]string
		expected Bucket
	}{
		{name: "Restaurant", tags: map[string]string{"amenity": "restaurant"}, expected: BucketFood},
		{name: "Cafe upper case", tags: map[string]string{"amenity": "CAFE"}, expected: BucketFood},
		{name: "Any shop", tags: map[string]string{"shop": "bakery"}, expected: BucketShop},
		{name: "Retail building", tags: map[string]string{"building": "retail"}, expected: BucketShop},
		{name: "Gym", tags: map[string]string{"leisure": "fitness_centre"}, expected: BucketFitness},
		{name: "Bus stop", tags: map[string]string{"highway": "bus_stop"}, expected: BucketBusStop},
		{name: "Train station", tags: map[string]string{"railway": "station"}, expected: BucketTrainStation},
		{name: "Parking", tags: map[string]string{"amenity": "parking"}, expected: BucketParking},
		{name: "School", tags: map[string]string{"amenity": "school"}, expected: BucketEducation},
		{name: "Pharmacy", tags: map[string]string{"amenity": "pharmacy"}, expected: BucketHealthcare},
		{name: "Unrelated", tags: map[string]string{"natural": "tree"}, expected: BucketNone},
		{name: "No tags", tags: nil, expected: BucketNone},
		{name: "Partial match is not enough", tags: map[string]string{"amenity": "restaurant_supply"}, expected: BucketNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Classify(AmenityRules, tt.tags))
		})
	}
}

func TestClassify_FirstMatchWins(t *testing.T) {
	// A cafe inside a shop building is counted once, as food
	tags := map[string]string{"amenity": "cafe", "shop": "coffee"}
	assert.Equal(t, BucketFood, Classify(AmenityRules, tags))

	// A pharmacy with a shop tag is counted as a shop because shop comes first
	tags = map[string]string{"amenity": "pharmacy", "shop": "chemist"}
	assert.Equal(t, BucketShop, Classify(AmenityRules, tags))

	// Shared cycle and foot ways are credited as cycle
	tags = map[string]string{"highway": "footway", "bicycle": "designated"}
	assert.Equal(t, BucketCycleway, Classify(InfrastructureRules, tags))
}

func TestClassify_Infrastructure(t *testing.T) {
	tests := []struct {
		name     string
		tags     map[string]string
		expected Bucket
	}{
		{name: "Cycleway", tags: map[string]string{"highway": "cycleway"}, expected: BucketCycleway},
		{name: "Cycle lane on road", tags: map[string]string{"highway": "primary", "cycleway": "lane"}, expected: BucketCycleway},
		{name: "Pedestrian street", tags: map[string]string{"highway": "pedestrian"}, expected: BucketFootway},
		{name: "Designated foot", tags: map[string]string{"foot": "designated"}, expected: BucketFootway},
		{name: "Crossing node", tags: map[string]string{"highway": "crossing"}, expected: BucketCrossing},
		{name: "Sidewalk", tags: map[string]string{"highway": "residential", "sidewalk": "both"}, expected: BucketSidewalk},
		{name: "No sidewalk", tags: map[string]string{"highway": "residential", "sidewalk": "no"}, expected: BucketNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Classify(InfrastructureRules, tt.tags))
		})
	}
}

func TestRuleOrder(t *testing.T) {
	var amenityOrder []Bucket
	for _, r := range AmenityRules {
		amenityOrder = append(amenityOrder, r.Bucket)
	}
	assert.Equal(t, []Bucket{
		BucketFood, BucketShop, BucketFitness, BucketBusStop,
		BucketTrainStation, BucketParking, BucketEducation, BucketHealthcare,
	}, amenityOrder)

	var infraOrder []Bucket
	for _, r := range InfrastructureRules {
		infraOrder = append(infraOrder, r.Bucket)
	}
	assert.Equal(t, []Bucket{BucketCycleway, BucketFootway, BucketCrossing, BucketSidewalk}, infraOrder)
}

func TestRule_Matches(t *testing.T) {
	rule := Rule{Bucket: BucketParking, Conditions: []TagMatch{
		match("amenity", `^parking$`),
		match("parking", `^(surface|multi-storey)$`),
	}}

	tests := []struct {
		name     string
		tags     map[string]string
		expected bool
	}{
		{name: "First condition", tags: map[string]string{"amenity": "parking"}, expected: true},
		{name: "Second condition", tags: map[string]string{"parking": "Multi-Storey"}, expected: true},
		{name: "Key present, value differs", tags: map[string]string{"amenity": "bench"}, expected: false},
		{name: "No conditions hit", tags: map[string]string{"shop": "car"}, expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, rule.Matches(tt.tags))
		})
	}
	assert.Equal(t, BucketParking, Classify([]Rule{rule}, map[string]string{"parking": "surface"}))
}

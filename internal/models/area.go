package models

// GenerateInput is what an author provides when creating a listing
type GenerateInput struct {
	Address    string      `json:"address" binding:"required"`
	Type       ListingType `json:"type" binding:"required"`
	Category   string      `json:"category" binding:"required"`
	Price      int         `json:"price" binding:"required"`
	Size       int         `json:"size" binding:"required"`
	Highlights string      `json:"highlights,omitempty"`

	// Lat and Lng bypass geocoding when both are set
	Lat *float64 `json:"lat,omitempty"`
	Lng *float64 `json:"lng,omitempty"`

	Images []string `json:"images,omitempty"`
}

// GeocodeResult is a resolved address. It is never persisted.
type GeocodeResult struct {
	Lat         float64 `json:"lat"`
	Lng         float64 `json:"lng"`
	City        string  `json:"city"`
	DisplayName string  `json:"displayName"`
}

// TransitData counts stops of one transit kind. The nearest fields are
// only set when Count > 0.
type TransitData struct {
	Count                 int     `json:"count"`
	NearestName           *string `json:"nearestName,omitempty"`
	NearestDistanceMeters *int    `json:"nearestDistanceMeters,omitempty"`
}

// NearbyData holds amenity counts around a point
type NearbyData struct {
	Restaurants   int         `json:"restaurants"`
	Shops         int         `json:"shops"`
	Gyms          int         `json:"gyms"`
	Parking       int         `json:"parking"`
	Schools       int         `json:"schools"`
	Healthcare    int         `json:"healthcare"`
	BusStops      TransitData `json:"busStops"`
	TrainStations TransitData `json:"trainStations"`
}

// Total returns the number of classified amenities of every kind
func (n NearbyData) Total() int {
	return n.Restaurants + n.Shops + n.Gyms + n.Parking + n.Schools + n.Healthcare +
		n.BusStops.Count + n.TrainStations.Count
}

// WalkabilityData holds derived walk and bike scores
type WalkabilityData struct {
	WalkScore int    `json:"walkScore"`
	BikeScore int    `json:"bikeScore"`
	WalkLabel string `json:"walkLabel"`
	BikeLabel string `json:"bikeLabel"`
	Cycleways int    `json:"cycleways"`
	Footways  int    `json:"footways"`
}

// NationalCrimeRate is the national average of reported offences per
// 100,000 residents, used when a municipality has no entry of its own
const NationalCrimeRate = 13500

// DemographicsData is either absent or carries a population; the optional
// fields may be missing independently.
type DemographicsData struct {
	Population        int      `json:"population"`
	City              string   `json:"city"`
	MedianIncome      *int     `json:"medianIncome,omitempty"`
	WorkingAgePercent *float64 `json:"workingAgePercent,omitempty"`
	TotalBusinesses   *int     `json:"totalBusinesses,omitempty"`

	// CrimeRate is reported offences per 100,000 residents
	CrimeRate *int `json:"crimeRate,omitempty"`
}

// SaferThanNationalAverage reports whether the crime rate is below the
// national average. A missing rate is never considered safer.
func (d *DemographicsData) SaferThanNationalAverage() bool {
	return d != nil && d.CrimeRate != nil && *d.CrimeRate < NationalCrimeRate
}

// PriceContext summarises prices of comparable listings
type PriceContext struct {
	MedianPrice int `json:"medianPrice"`
	Count       int `json:"count"`
	MinPrice    int `json:"minPrice"`
	MaxPrice    int `json:"maxPrice"`
}

// AreaContext is an encyclopedic summary of a district or city
type AreaContext struct {
	Summary string `json:"summary"`
	Title   string `json:"title"`
	URL     string `json:"url"`
}

// AreaData is the enrichment payload for one address
type AreaData struct {
	Demographics *DemographicsData `json:"demographics"`
	Nearby       NearbyData        `json:"nearby"`
	Walkability  WalkabilityData   `json:"walkability"`
	AreaContext  *AreaContext      `json:"areaContext"`
}

// Empty reports whether nothing was found for the area, which is also what
// every source returns on failure
func (a AreaData) Empty() bool {
	return a.Demographics == nil && a.AreaContext == nil && a.Nearby == NearbyData{} &&
		a.Walkability.WalkScore == 0 && a.Walkability.BikeScore == 0 &&
		a.Walkability.Cycleways == 0 && a.Walkability.Footways == 0
}

// GeneratedContent is the text produced by the AI step
type GeneratedContent struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
}

// GenerateResult is the sole output of listing generation
type GenerateResult struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`

	City     string      `json:"city"`
	Lat      float64     `json:"lat"`
	Lng      float64     `json:"lng"`
	Type     ListingType `json:"type"`
	Category string      `json:"category"`
	Price    int         `json:"price"`
	Size     int         `json:"size"`

	Nearby       NearbyData        `json:"nearby"`
	Walkability  WalkabilityData   `json:"walkability"`
	Demographics *DemographicsData `json:"demographics"`
	PriceContext *PriceContext     `json:"priceContext"`
	AreaContext  *AreaContext      `json:"areaContext"`
}

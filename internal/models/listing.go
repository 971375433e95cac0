package models

import (
	"strings"
	"time"
)

// ListingType is whether a premises is offered for sale or for rent
type ListingType string

const (
	ListingTypeSale ListingType = "sale"
	ListingTypeRent ListingType = "rent"
)

// Valid reports whether t is one of the known listing types
func (t ListingType) Valid() bool {
	return t == ListingTypeSale || t == ListingTypeRent
}

// Category is the kind of commercial premises
type Category string

const (
	CategoryOffice     Category = "office"
	CategoryRetail     Category = "retail"
	CategoryWarehouse  Category = "warehouse"
	CategoryIndustrial Category = "industrial"
	CategoryRestaurant Category = "restaurant"
	CategoryHotel      Category = "hotel"
	CategoryHealthcare Category = "healthcare"
	CategoryShowroom   Category = "showroom"
	CategoryCoworking  Category = "coworking"
	CategoryOther      Category = "other"
)

// Categories lists every accepted category
var Categories = []Category{
	CategoryOffice,
	CategoryRetail,
	CategoryWarehouse,
	CategoryIndustrial,
	CategoryRestaurant,
	CategoryHotel,
	CategoryHealthcare,
	CategoryShowroom,
	CategoryCoworking,
	CategoryOther,
}

// Valid reports whether c is one of the ten accepted categories
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// PrimaryCategory returns the first comma-separated segment of a category
// list, e.g. "office" for "office,retail".
func PrimaryCategory(category string) string {
	primary, _, _ := strings.Cut(category, ",")
	return strings.TrimSpace(primary)
}

// Listing is a stored commercial-property listing. Persistence is owned by
// the storage layer; the pipeline only reads prices and writes area snapshots.
type Listing struct {
	ID          int64       `json:"id" gorm:"primaryKey;autoIncrement"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Address     string      `json:"address" gorm:"not null"`
	City        string      `json:"city" gorm:"index"`
	Category    string      `json:"category" gorm:"index"`
	Type        ListingType `json:"type" gorm:"index"`
	Price       int         `json:"price"`
	Size        int         `json:"size"`
	Latitude    *float64    `json:"latitude"`
	Longitude   *float64    `json:"longitude"`

	// AreaData is the JSON-encoded AreaData snapshot from the last refresh
	AreaData        string     `json:"-"`
	AreaRefreshedAt *time.Time `json:"area_refreshed_at"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

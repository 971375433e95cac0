package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lokalfakta/server/internal/models"
)

func setupTestDB(t *testing.T) *Database {
	db, err := NewTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func seedListings(t *testing.T, db *Database) []*models.Listing {
	listings := []*models.Listing{
		{Address: "Drottninggatan 1", City: "Stockholm", Category: "office", Type: models.ListingTypeRent, Price: 100},
		{Address: "Drottninggatan 2", City: "stockholm", Category: "office,coworking", Type: models.ListingTypeRent, Price: 300},
		{Address: "Drottninggatan 3", City: "STOCKHOLM", Category: "retail,office", Type: models.ListingTypeRent, Price: 200},
		{Address: "Drottninggatan 4", City: "Stockholm", Category: "office", Type: models.ListingTypeSale, Price: 9000000},
		{Address: "Drottninggatan 5", City: "Stockholm", Category: "warehouse", Type: models.ListingTypeRent, Price: 50},
		{Address: "Avenyn 1", City: "Göteborg", Category: "office", Type: models.ListingTypeRent, Price: 400},
	}
	require.NoError(t, db.InsertListings(context.Background(), listings))
	return listings
}

func TestComparablePrices(t *testing.T) {
	db := setupTestDB(t)
	seedListings(t, db)

	tests := []struct {
		name        string
		city        string
		category    string
		listingType models.ListingType
		expected    []int
	}{
		{name: "Case-insensitive city", city: "Stockholm", category: "office", listingType: models.ListingTypeRent, expected: []int{100, 300, 200}},
		{name: "Primary category only", city: "stockholm", category: "office,retail", listingType: models.ListingTypeRent, expected: []int{100, 300, 200}},
		{name: "Type filter", city: "Stockholm", category: "office", listingType: models.ListingTypeSale, expected: []int{9000000}},
		{name: "Other city", city: "Göteborg", category: "office", listingType: models.ListingTypeRent, expected: []int{400}},
		{name: "No match", city: "Lund", category: "office", listingType: models.ListingTypeRent, expected: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prices, err := db.ComparablePrices(context.Background(), tt.city, tt.category, tt.listingType)
			require.NoError(t, err)
			assert.ElementsMatch(t, tt.expected, prices)
		})
	}
}

func TestComparablePrices_Limit(t *testing.T) {
	db := setupTestDB(t)

	listings := make([]*models.Listing, 0, ComparableLimit+20)
	for i := 0; i < ComparableLimit+20; i++ {
		listings = append(listings, &models.Listing{
			Address:  "Storgatan",
			City:     "Umeå",
			Category: "retail",
			Type:     models.ListingTypeRent,
			Price:    1000 + i,
		})
	}
	require.NoError(t, db.InsertListings(context.Background(), listings))

	prices, err := db.ComparablePrices(context.Background(), "Umeå", "retail", models.ListingTypeRent)
	require.NoError(t, err)
	assert.Len(t, prices, ComparableLimit)
}

func TestGetListing(t *testing.T) {
	db := setupTestDB(t)
	listings := seedListings(t, db)

	listing, err := db.GetListing(context.Background(), listings[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "Drottninggatan 1", listing.Address)

	_, err = db.GetListing(context.Background(), 9999)
	assert.True(t, errors.Is(err, ErrListingNotFound))
}

func TestAreaSnapshotLifecycle(t *testing.T) {
	db := setupTestDB(t)
	listings := seedListings(t, db)
	ctx := context.Background()

	ids, err := db.ListingIDsNeedingArea(ctx, time.Time{}, 0)
	require.NoError(t, err)
	assert.Len(t, ids, len(listings))

	area := models.AreaData{
		Nearby:      models.NearbyData{Restaurants: 12},
		Walkability: models.WalkabilityData{WalkScore: 80, WalkLabel: "Very good"},
	}
	refreshedAt := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, SaveAreaSnapshot(db.GetDB(), listings[0].ID, 59.33, 18.06, area, refreshedAt))

	ids, err = db.ListingIDsNeedingArea(ctx, time.Time{}, 0)
	require.NoError(t, err)
	assert.NotContains(t, ids, listings[0].ID)
	assert.Len(t, ids, len(listings)-1)

	// A stale cutoff after the refresh brings the listing back
	ids, err = db.ListingIDsNeedingArea(ctx, refreshedAt.Add(time.Hour), 0)
	require.NoError(t, err)
	assert.Contains(t, ids, listings[0].ID)

	ids, err = db.ListingIDsNeedingArea(ctx, time.Time{}, 2)
	require.NoError(t, err)
	assert.Len(t, ids, 2)

	stored, err := db.GetListing(ctx, listings[0].ID)
	require.NoError(t, err)
	require.NotNil(t, stored.Latitude)
	assert.InDelta(t, 59.33, *stored.Latitude, 1e-9)

	decoded, err := DecodeAreaData(stored)
	require.NoError(t, err)
	require.NotNil(t, decoded)
	assert.Equal(t, 12, decoded.Nearby.Restaurants)
	assert.Equal(t, "Very good", decoded.Walkability.WalkLabel)
}

func TestSaveAreaSnapshot_UnknownListing(t *testing.T) {
	db := setupTestDB(t)
	err := SaveAreaSnapshot(db.GetDB(), 42, 0, 0, models.AreaData{}, time.Now())
	assert.True(t, errors.Is(err, ErrListingNotFound))
}

func TestGetListingsByIDs(t *testing.T) {
	db := setupTestDB(t)
	listings := seedListings(t, db)

	found, err := GetListingsByIDs(db.GetDB(), []int64{listings[1].ID, 9999, listings[0].ID})
	require.NoError(t, err)
	require.Len(t, found, 2)
	assert.Equal(t, listings[0].ID, found[0].ID)
	assert.Equal(t, listings[1].ID, found[1].ID)
}

func TestWithBusyTimeout(t *testing.T) {
	tests := []struct {
		dsn  string
		want string
	}{
		{dsn: "data/listings.db", want: "data/listings.db?_busy_timeout=5000"},
		{dsn: "file::memory:", want: "file::memory:?_busy_timeout=5000"},
		{dsn: "file:listings.db?mode=rwc", want: "file:listings.db?mode=rwc&_busy_timeout=5000"},
	}

	for _, tt := range tests {
		t.Run(tt.dsn, func(t *testing.T) {
			assert.Equal(t, tt.want, withBusyTimeout(tt.dsn))
		})
	}
}

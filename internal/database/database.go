package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"lokalfakta/server/internal/models"
)

// busyTimeout is how long, in milliseconds, a connection waits on a
// locked database before failing
const busyTimeout = 5000

// ComparableLimit caps the rows read for a price comparison
const ComparableLimit = 500

// ErrListingNotFound is returned when no listing has the requested ID
var ErrListingNotFound = errors.New("listing not found")

type Database struct {
	db *gorm.DB
}

func NewDatabase(dbPath string) (*Database, error) {
	db, err := gorm.Open(sqlite.Open(withBusyTimeout(dbPath)), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	// Enable foreign keys
	if err := db.Exec("PRAGMA foreign_keys = ON").Error; err != nil {
		return nil, err
	}

	return &Database{db: db}, nil
}

// withBusyTimeout adds the busy timeout to a sqlite DSN, so concurrent
// refresh workers queue for the write lock
func withBusyTimeout(dsn string) string {
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return fmt.Sprintf("%s%s_busy_timeout=%d", dsn, sep, busyTimeout)
}

// NewTestDB opens a migrated in-memory database. A single connection keeps
// every query on the same in-memory instance.
func NewTestDB() (*Database, error) {
	d, err := NewDatabase("file::memory:")
	if err != nil {
		return nil, err
	}
	sqlDB, err := d.db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	if err := d.RunMigrations(); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Database) Close() error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (d *Database) GetDB() *gorm.DB {
	return d.db
}

// InsertListings inserts a batch of listings in one transaction
func (d *Database) InsertListings(ctx context.Context, listings []*models.Listing) error {
	if len(listings) == 0 {
		return nil
	}
	return d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.CreateInBatches(listings, 100).Error; err != nil {
			return fmt.Errorf("failed to insert listings: %w", err)
		}
		return nil
	})
}

// GetListing returns one listing by ID
func (d *Database) GetListing(ctx context.Context, id int64) (*models.Listing, error) {
	var listing models.Listing
	err := d.db.WithContext(ctx).First(&listing, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrListingNotFound
	}
	if err != nil {
		return nil, err
	}
	return &listing, nil
}

// GetListingsByIDs returns the listings with the given IDs, skipping
// unknown ones
func GetListingsByIDs(tx *gorm.DB, ids []int64) ([]*models.Listing, error) {
	var listings []*models.Listing
	if len(ids) == 0 {
		return listings, nil
	}
	if err := tx.Where("id IN ?", ids).Order("id").Find(&listings).Error; err != nil {
		return nil, err
	}
	return listings, nil
}

// ComparablePrices returns the prices of up to ComparableLimit listings in
// the same city (case-insensitive) with the same type whose category
// contains the primary category
func (d *Database) ComparablePrices(ctx context.Context, city, category string, listingType models.ListingType) ([]int, error) {
	query := d.db.WithContext(ctx).
		Model(&models.Listing{}).
		Where("LOWER(city) = LOWER(?)", strings.TrimSpace(city)).
		Where("type = ?", listingType)

	if primary := models.PrimaryCategory(category); primary != "" {
		query = query.Where("category LIKE ?", "%"+primary+"%")
	}

	var prices []int
	if err := query.Limit(ComparableLimit).Pluck("price", &prices).Error; err != nil {
		return nil, fmt.Errorf("failed to query comparable prices: %w", err)
	}
	return prices, nil
}

// ListingIDsNeedingArea returns IDs of listings without an area snapshot,
// or whose snapshot is older than staleBefore when it is non-zero
func (d *Database) ListingIDsNeedingArea(ctx context.Context, staleBefore time.Time, limit int) ([]int64, error) {
	query := d.db.WithContext(ctx).Model(&models.Listing{})
	if staleBefore.IsZero() {
		query = query.Where("area_refreshed_at IS NULL")
	} else {
		query = query.Where("area_refreshed_at IS NULL OR area_refreshed_at < ?", staleBefore)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}

	var ids []int64
	if err := query.Order("id").Pluck("id", &ids).Error; err != nil {
		return nil, fmt.Errorf("failed to query listings needing area data: %w", err)
	}
	return ids, nil
}

// SaveAreaSnapshot stores coordinates and an area snapshot for a listing
func SaveAreaSnapshot(tx *gorm.DB, id int64, lat, lng float64, area models.AreaData, refreshedAt time.Time) error {
	data, err := json.Marshal(area)
	if err != nil {
		return fmt.Errorf("failed to encode area data: %w", err)
	}

	result := tx.Model(&models.Listing{}).Where("id = ?", id).Updates(map[string]interface{}{
		"latitude":          lat,
		"longitude":         lng,
		"area_data":         string(data),
		"area_refreshed_at": refreshedAt,
	})
	if result.Error != nil {
		return fmt.Errorf("failed to update listing %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: %d", ErrListingNotFound, id)
	}
	return nil
}

// DecodeAreaData returns the stored area snapshot of a listing, or nil
func DecodeAreaData(listing *models.Listing) (*models.AreaData, error) {
	if listing == nil || listing.AreaData == "" {
		return nil, nil
	}
	var area models.AreaData
	if err := json.Unmarshal([]byte(listing.AreaData), &area); err != nil {
		return nil, fmt.Errorf("failed to decode area data: %w", err)
	}
	return &area, nil
}

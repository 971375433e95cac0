package database

import (
	"fmt"

	"lokalfakta/server/internal/models"
)

func (d *Database) RunMigrations() error {
	if err := d.db.AutoMigrate(&models.Listing{}); err != nil {
		return fmt.Errorf("failed to migrate listings table: %w", err)
	}

	// Comparable-price lookups filter on city and type together
	if err := d.db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_listings_city_type
		ON listings(city, type);
	`).Error; err != nil {
		return err
	}

	// Create spatial index on coordinates
	if err := d.db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_listings_coordinates
		ON listings(latitude, longitude);
	`).Error; err != nil {
		return err
	}

	return nil
}

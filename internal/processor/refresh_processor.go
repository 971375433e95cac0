package processor

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"lokalfakta/server/config"
	"lokalfakta/server/internal/database"
	"lokalfakta/server/internal/geocoding"
	"lokalfakta/server/internal/models"
	"lokalfakta/server/internal/queue"
)

// Transactor is the part of *gorm.DB the processor needs
type Transactor interface {
	Transaction(fc func(*gorm.DB) error, opts ...*sql.TxOptions) error
}

// AreaSource locates listings and gathers their area data
type AreaSource interface {
	Geocode(ctx context.Context, address string) *models.GeocodeResult
	FetchAreaData(ctx context.Context, city string, lat, lng float64, address string) models.AreaData
}

// RefreshProcessor stores fresh area snapshots for batches of listings
type RefreshProcessor struct {
	db     Transactor
	areas  AreaSource
	logger *logrus.Logger
	config *config.Config
	queue  *queue.RefreshQueue
	ctx    context.Context
	cancel context.CancelFunc
	now    func() time.Time
}

// NewRefreshProcessor creates a new refresh processor instance
func NewRefreshProcessor(db Transactor, areas AreaSource, queue *queue.RefreshQueue, config *config.Config, logger *logrus.Logger) *RefreshProcessor {
	if logger == nil {
		logger = logrus.New()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &RefreshProcessor{
		db:     db,
		areas:  areas,
		queue:  queue,
		config: config,
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
		now:    time.Now,
	}
}

// Start subscribes to the queue and starts its worker goroutines
func (p *RefreshProcessor) Start() {
	p.queue.Subscribe(p.processBatch)
	p.queue.Start(p.config.Refresh.WorkerCount)
}

// Stop cancels in-flight work and waits for the queue workers to exit
func (p *RefreshProcessor) Stop() {
	p.cancel()
	p.queue.Close()
}

// snapshot is area data fetched for one listing, waiting to be stored
type snapshot struct {
	id       int64
	lat, lng float64
	area     models.AreaData
}

// processBatch refreshes a batch of listings with retry logic. Area data
// is fetched outside any transaction; only the writes share one.
func (p *RefreshProcessor) processBatch(batch []int64) error {
	attempts := p.config.Refresh.MaxRetries + 1
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			p.logger.Infof("Retrying area refresh, attempt %d of %d", attempt, attempts)
			select {
			case <-p.ctx.Done():
				return p.ctx.Err()
			case <-time.After(p.config.Refresh.RetryDelay):
			}
		}

		var refreshed int
		refreshed, err = p.refreshBatch(batch)
		if err == nil {
			p.logger.WithFields(logrus.Fields{
				"batch_size": len(batch),
				"refreshed":  refreshed,
			}).Info("Refreshed area data for batch")
			return nil
		}

		if p.ctx.Err() != nil {
			return p.ctx.Err()
		}
		p.logger.Errorf("Area refresh failed: %v", err)
	}

	return fmt.Errorf("failed to process batch after %d attempts: %w", attempts, err)
}

// refreshBatch loads, fetches and stores one batch, returning how many
// snapshots were written
func (p *RefreshProcessor) refreshBatch(batch []int64) (int, error) {
	var listings []*models.Listing
	err := p.db.Transaction(func(tx *gorm.DB) error {
		var err error
		listings, err = database.GetListingsByIDs(tx, batch)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("failed to load listings: %w", err)
	}

	snapshots := make([]snapshot, 0, len(listings))
	for _, listing := range listings {
		snap, ok := p.fetchSnapshot(listing)
		// Sources swallow cancellation into empty results
		if err := p.ctx.Err(); err != nil {
			return 0, err
		}
		if ok {
			snapshots = append(snapshots, snap)
		}
	}
	if len(snapshots) == 0 {
		return 0, nil
	}

	refreshedAt := p.now()
	err = p.db.Transaction(func(tx *gorm.DB) error {
		for _, s := range snapshots {
			if err := database.SaveAreaSnapshot(tx, s.id, s.lat, s.lng, s.area, refreshedAt); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(snapshots), nil
}

// fetchSnapshot gathers area data for one listing. A listing that cannot
// be located, or whose area came back empty, is left pending for the next
// sweep instead of failing the batch.
func (p *RefreshProcessor) fetchSnapshot(listing *models.Listing) (snapshot, bool) {
	log := p.logger.WithFields(logrus.Fields{
		"listing_id": listing.ID,
		"address":    listing.Address,
	})

	city, lat, lng, ok := p.locate(listing)
	if !ok {
		log.Debug("Skipping listing without coordinates")
		return snapshot{}, false
	}

	area := p.areas.FetchAreaData(p.ctx, city, lat, lng, listing.Address)
	if area.Empty() {
		log.Debug("Skipping listing with empty area data")
		return snapshot{}, false
	}
	return snapshot{id: listing.ID, lat: lat, lng: lng, area: area}, true
}

// locate prefers stored coordinates and geocodes the address otherwise
func (p *RefreshProcessor) locate(listing *models.Listing) (string, float64, float64, bool) {
	city := listing.City
	if city == "" {
		city = geocoding.CityFromAddress(listing.Address)
	}

	if listing.Latitude != nil && listing.Longitude != nil {
		return city, *listing.Latitude, *listing.Longitude, true
	}

	result := p.areas.Geocode(p.ctx, listing.Address)
	if result == nil {
		return "", 0, 0, false
	}
	if listing.City == "" && result.City != "" {
		city = result.City
	}
	return city, result.Lat, result.Lng, true
}

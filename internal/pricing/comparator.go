package pricing

import (
	"context"
	"os"
	"sort"

	"github.com/sirupsen/logrus"

	"lokalfakta/server/internal/models"
)

// MinComparables is the fewest comparable listings a price context needs
const MinComparables = 2

// PriceSource returns prices of comparable stored listings
type PriceSource interface {
	ComparablePrices(ctx context.Context, city, category string, listingType models.ListingType) ([]int, error)
}

// Comparator summarises prices of comparable listings
type Comparator struct {
	source PriceSource
	logger *logrus.Logger
}

func NewComparator(source PriceSource, logger *logrus.Logger) *Comparator {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}
	return &Comparator{source: source, logger: logger}
}

// PriceContext returns the price context for a city, category and type, or
// nil when fewer than MinComparables listings match
func (c *Comparator) PriceContext(ctx context.Context, city, category string, listingType models.ListingType) *models.PriceContext {
	if c.source == nil {
		return nil
	}

	prices, err := c.source.ComparablePrices(ctx, city, category, listingType)
	if err != nil {
		c.logger.WithError(err).WithFields(logrus.Fields{
			"city":     city,
			"category": category,
			"type":     listingType,
		}).Debug("Comparable price lookup failed")
		return nil
	}
	return Summarize(prices)
}

// Summarize computes median, min and max of prices. The median of an even
// count is the mean of the two middle values, rounded half up.
func Summarize(prices []int) *models.PriceContext {
	if len(prices) < MinComparables {
		return nil
	}

	sorted := make([]int, len(prices))
	copy(sorted, prices)
	sort.Ints(sorted)

	n := len(sorted)
	var median int
	if n%2 == 0 {
		lo, hi := sorted[n/2-1], sorted[n/2]
		median = lo + (hi-lo+1)/2
	} else {
		median = sorted[n/2]
	}

	return &models.PriceContext{
		MedianPrice: median,
		Count:       n,
		MinPrice:    sorted[0],
		MaxPrice:    sorted[n-1],
	}
}

package statistics

import (
	"context"
	"os"

	"github.com/sirupsen/logrus"

	"lokalfakta/server/config"
	"lokalfakta/server/internal/cache"
	"lokalfakta/server/internal/models"
)

// Lookup combines the live population figure with the static tables
type Lookup struct {
	population *PopulationClient
	cache      *cache.ExpiringCache
	logger     *logrus.Logger
}

func NewLookup(population *PopulationClient, c *cache.ExpiringCache, logger *logrus.Logger) *Lookup {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}
	return &Lookup{population: population, cache: c, logger: logger}
}

// Demographics returns statistics for the municipality a city belongs to.
// It returns nil unless the population is known.
func (l *Lookup) Demographics(ctx context.Context, city string) *models.DemographicsData {
	m := config.GetMunicipalityByCity(city)
	if m == nil {
		l.logger.WithField("city", city).Debug("No municipality code for city")
		return nil
	}

	key := cache.Key("demographics", m.Code)
	if cached, ok := cache.Lookup[models.DemographicsData](l.cache, key); ok {
		return &cached
	}

	population, err := l.population.Population(ctx, m.Code)
	if err != nil {
		l.logger.WithError(err).WithFields(logrus.Fields{
			"city": city,
			"code": m.Code,
		}).Debug("Population lookup failed")
		return nil
	}

	data := Build(m.Code, m.Name, population)
	l.cache.Set(key, *data)
	return data
}

// Build fills demographics for a code from a known population and the
// reference tables
func Build(code, city string, population int) *models.DemographicsData {
	data := &models.DemographicsData{
		Population: population,
		City:       city,
	}

	if v, ok := MedianIncome(code); ok {
		data.MedianIncome = &v
	}
	if v, ok := WorkingAgePercent(code); ok {
		data.WorkingAgePercent = &v
	}
	if v, ok := TotalBusinesses(code); ok {
		data.TotalBusinesses = &v
	}

	rate := CrimeRateFor(code).PerHundredThousand
	data.CrimeRate = &rate
	return data
}

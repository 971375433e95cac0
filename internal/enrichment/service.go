package enrichment

import (
	"context"
	"net/http"
	"os"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"lokalfakta/server/config"
	"lokalfakta/server/internal/areacontext"
	"lokalfakta/server/internal/cache"
	"lokalfakta/server/internal/fetch"
	"lokalfakta/server/internal/generation"
	"lokalfakta/server/internal/geocoding"
	"lokalfakta/server/internal/models"
	"lokalfakta/server/internal/overpass"
	"lokalfakta/server/internal/pricing"
	"lokalfakta/server/internal/statistics"
)

// StrategyFactory builds the generation cascade for one API key
type StrategyFactory func(apiKey string) []generation.Strategy

// Service runs area enrichment and listing generation
type Service struct {
	geocoder    *geocoding.Geocoder
	amenities   *overpass.AmenityFetcher
	walkability *overpass.WalkabilityScorer
	statistics  *statistics.Lookup
	areaContext *areacontext.Fetcher
	pricing     *pricing.Comparator
	strategies  StrategyFactory
	logger      *logrus.Logger
}

// NewService wires every component from configuration. prices may be nil,
// in which case no price context is produced.
func NewService(cfg *config.Config, prices pricing.PriceSource, logger *logrus.Logger) *Service {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}

	fetcher := fetch.NewFetcher(&http.Client{}, logger, cfg.Timeouts.MaxAttempts, cfg.Timeouts.Backoff)
	c := cache.New(cfg.Cache.TTL, nil)
	ep := cfg.Endpoints

	overpassClient := overpass.NewClient(fetcher, ep.Overpass, ep.UserAgent, cfg.Timeouts.Overpass)
	population := statistics.NewPopulationClient(fetcher, ep.SCB, ep.UserAgent, ep.StatisticYear, cfg.Timeouts.SCB)

	ai := cfg.AI
	strategies := func(apiKey string) []generation.Strategy {
		if apiKey == "" {
			apiKey = ai.APIKey
		}
		return generation.NewOpenAIStrategies(generation.OpenAIOptions{
			APIKey:      apiKey,
			BaseURL:     ai.BaseURL,
			Model:       ai.Model,
			VisionModel: ai.VisionModel,
			Timeout:     ai.Timeout,
		})
	}

	return &Service{
		geocoder: geocoding.NewGeocoder(logger, fetcher, geocoding.Options{
			BaseURL:      ep.Nominatim,
			UserAgent:    ep.UserAgent,
			AcceptLang:   ep.AcceptLang,
			CountryCodes: ep.CountryCodes,
			Timeout:      cfg.Timeouts.Geocode,
		}),
		amenities:   overpass.NewAmenityFetcher(overpassClient, c, logger),
		walkability: overpass.NewWalkabilityScorer(overpassClient, c, logger),
		statistics:  statistics.NewLookup(population, c, logger),
		areaContext: areacontext.NewFetcher(fetcher, c, logger, ep.Wikipedia, ep.UserAgent, cfg.Timeouts.Wikipedia),
		pricing:     pricing.NewComparator(prices, logger),
		strategies:  strategies,
		logger:      logger,
	}
}

// SetStrategyFactory replaces the AI backend
func (s *Service) SetStrategyFactory(factory StrategyFactory) {
	s.strategies = factory
}

// Geocode resolves an address, returning nil on failure
func (s *Service) Geocode(ctx context.Context, address string) *models.GeocodeResult {
	return s.geocoder.Geocode(ctx, address)
}

// FetchAreaData gathers the enrichment payload for a located address.
// Every source soft-fails to its documented default, cancellation included.
func (s *Service) FetchAreaData(ctx context.Context, city string, lat, lng float64, address string) models.AreaData {
	area, _ := s.fetchArea(ctx, city, lat, lng, address, lat != 0 || lng != 0)
	return area
}

// FetchAreaPriceContext summarises prices of comparable stored listings
func (s *Service) FetchAreaPriceContext(ctx context.Context, city, category string, listingType models.ListingType) *models.PriceContext {
	return s.pricing.PriceContext(ctx, city, category, listingType)
}

// fetchArea fans out to the geodata sources. Walkability needs the amenity
// counts, so it runs after them in the same goroutine. The sources never
// fail, so the only error is ctx's.
func (s *Service) fetchArea(ctx context.Context, city string, lat, lng float64, address string, located bool) (models.AreaData, error) {
	var (
		area models.AreaData
		g    errgroup.Group
	)

	if located {
		g.Go(func() error {
			area.Nearby = s.amenities.Fetch(ctx, lat, lng)
			area.Walkability = s.walkability.Score(ctx, lat, lng, area.Nearby)
			return ctx.Err()
		})
	} else {
		area.Walkability = overpass.ComputeWalkability(overpass.Infrastructure{}, models.NearbyData{})
	}

	g.Go(func() error {
		area.Demographics = s.statistics.Demographics(ctx, city)
		return ctx.Err()
	})
	g.Go(func() error {
		area.AreaContext = s.areaContext.Fetch(ctx, city, address)
		return ctx.Err()
	})

	err := g.Wait()
	return area, err
}

// GenerateListingContent validates the input, locates it, enriches it and
// asks the AI for listing text. Invalid input, a failed generation and a
// cancelled ctx are returned as errors.
func (s *Service) GenerateListingContent(ctx context.Context, input models.GenerateInput, aiKey string) (*models.GenerateResult, error) {
	if err := Validate(input); err != nil {
		return nil, err
	}

	city, lat, lng, located := s.locate(ctx, input)
	log := s.logger.WithFields(logrus.Fields{
		"city":    city,
		"located": located,
	})

	var (
		area         models.AreaData
		priceContext *models.PriceContext
		g            errgroup.Group
	)
	g.Go(func() error {
		var err error
		area, err = s.fetchArea(ctx, city, lat, lng, input.Address, located)
		return err
	})
	g.Go(func() error {
		priceContext = s.pricing.PriceContext(ctx, city, input.Category, input.Type)
		return ctx.Err()
	})
	if err := g.Wait(); err != nil {
		log.WithError(err).Info("Listing generation abandoned")
		return nil, err
	}

	prompt := generation.BuildPrompt(generation.PromptData{
		Input:        input,
		City:         city,
		Nearby:       area.Nearby,
		Walkability:  area.Walkability,
		Demographics: area.Demographics,
		PriceContext: priceContext,
		AreaContext:  area.AreaContext,
	})

	generator := generation.NewGenerator(s.logger, s.strategies(aiKey)...)
	content, err := generator.Generate(ctx, generation.Request{
		System: generation.SystemPrompt(),
		Prompt: prompt,
		Images: input.Images,
	})
	if err != nil {
		log.WithError(err).Error("Listing generation failed")
		return nil, err
	}

	log.Info("Generated listing content")
	return &models.GenerateResult{
		Title:        content.Title,
		Description:  content.Description,
		Tags:         content.Tags,
		City:         city,
		Lat:          lat,
		Lng:          lng,
		Type:         input.Type,
		Category:     input.Category,
		Price:        input.Price,
		Size:         input.Size,
		Nearby:       area.Nearby,
		Walkability:  area.Walkability,
		Demographics: area.Demographics,
		PriceContext: priceContext,
		AreaContext:  area.AreaContext,
	}, nil
}

// locate returns the city and coordinates for an input. Supplied
// coordinates skip geocoding; a failed geocode falls back to the first
// address segment at 0,0.
func (s *Service) locate(ctx context.Context, input models.GenerateInput) (string, float64, float64, bool) {
	if input.Lat != nil && input.Lng != nil {
		return geocoding.CityFromAddress(input.Address), *input.Lat, *input.Lng, true
	}

	if result := s.geocoder.Geocode(ctx, input.Address); result != nil {
		return result.City, result.Lat, result.Lng, true
	}

	s.logger.WithField("address", input.Address).Debug("Geocoding failed, continuing without coordinates")
	return geocoding.FallbackCity(input.Address), 0, 0, false
}

package geocoding

import (
	"context"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"lokalfakta/server/internal/fetch"
	"lokalfakta/server/internal/models"
)

// UnknownCity is used when no locality can be derived from an address
const UnknownCity = "Okänd ort"

const maxCityLength = 100

type Geocoder struct {
	logger      *logrus.Logger
	fetcher     *fetch.Fetcher
	baseURL     string
	userAgent   string
	acceptLang  string
	countryCode string
	timeout     time.Duration
}

type Options struct {
	BaseURL      string
	UserAgent    string
	AcceptLang   string
	CountryCodes string
	Timeout      time.Duration
}

func NewGeocoder(logger *logrus.Logger, fetcher *fetch.Fetcher, opts Options) *Geocoder {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 8 * time.Second
	}

	return &Geocoder{
		logger:      logger,
		fetcher:     fetcher,
		baseURL:     strings.TrimRight(opts.BaseURL, "/"),
		userAgent:   opts.UserAgent,
		acceptLang:  opts.AcceptLang,
		countryCode: opts.CountryCodes,
		timeout:     opts.Timeout,
	}
}

type nominatimAddress struct {
	City         string `json:"city"`
	Town         string `json:"town"`
	Village      string `json:"village"`
	Municipality string `json:"municipality"`
	County       string `json:"county"`
}

type nominatimResponse []struct {
	Lat         string           `json:"lat"`
	Lon         string           `json:"lon"`
	DisplayName string           `json:"display_name"`
	Address     nominatimAddress `json:"address"`
}

// Geocode resolves a free-text address. It returns nil on any failure;
// callers then proceed without enrichment.
func (g *Geocoder) Geocode(ctx context.Context, address string) *models.GeocodeResult {
	address = strings.TrimSpace(address)
	if address == "" {
		return nil
	}

	params := url.Values{
		"q":              []string{address},
		"format":         []string{"json"},
		"limit":          []string{"1"},
		"addressdetails": []string{"1"},
	}
	if g.countryCode != "" {
		params.Set("countrycodes", g.countryCode)
	}

	header := http.Header{}
	if g.userAgent != "" {
		header.Set("User-Agent", g.userAgent)
	}
	if g.acceptLang != "" {
		header.Set("Accept-Language", g.acceptLang)
	}

	log := g.logger.WithField("address", address)

	resp, err := g.fetcher.FetchWithRetry(ctx, fetch.Request{
		URL:    g.baseURL + "/search?" + params.Encode(),
		Header: header,
	}, g.timeout)
	if err != nil {
		log.WithError(err).Debug("Geocoding request failed")
		return nil
	}
	if !resp.OK() {
		log.WithField("status", resp.StatusCode).Debug("Geocoding returned non-success status")
		return nil
	}

	var result nominatimResponse
	if err := resp.DecodeJSON(&result); err != nil {
		log.WithError(err).Debug("Failed to parse geocoding response")
		return nil
	}
	if len(result) == 0 {
		log.Debug("No geocoding results found")
		return nil
	}

	lat, errLat := strconv.ParseFloat(result[0].Lat, 64)
	lng, errLng := strconv.ParseFloat(result[0].Lon, 64)
	if errLat != nil || errLng != nil {
		log.Debug("Geocoding result has non-numeric coordinates")
		return nil
	}

	city := resolveCity(result[0].Address, address)

	g.logger.WithFields(logrus.Fields{
		"address":   address,
		"latitude":  lat,
		"longitude": lng,
		"city":      city,
		"source":    "nominatim",
	}).Info("Successfully geocoded address")

	return &models.GeocodeResult{
		Lat:         lat,
		Lng:         lng,
		City:        city,
		DisplayName: result[0].DisplayName,
	}
}

// resolveCity picks the locality through the chain city, town, village,
// municipality, county, first comma segment of the address, UnknownCity.
func resolveCity(addr nominatimAddress, address string) string {
	for _, candidate := range []string{addr.City, addr.Town, addr.Village, addr.Municipality, addr.County, FirstSegment(address)} {
		if c := strings.TrimSpace(candidate); c != "" {
			return truncate(c, maxCityLength)
		}
	}
	return UnknownCity
}

// FirstSegment returns the first comma-separated part of an address
func FirstSegment(address string) string {
	first, _, _ := strings.Cut(address, ",")
	return strings.TrimSpace(first)
}

// FallbackCity is the city used when geocoding fails entirely
func FallbackCity(address string) string {
	if c := FirstSegment(address); c != "" {
		return truncate(c, maxCityLength)
	}
	return UnknownCity
}

// CityFromAddress guesses the city from the last address segment, used
// when coordinates are supplied and geocoding is skipped. A leading postal
// code and a trailing country are ignored.
func CityFromAddress(address string) string {
	segments := strings.Split(address, ",")
	for i := len(segments) - 1; i >= 1; i-- {
		segment := strings.TrimSpace(segments[i])
		if strings.EqualFold(segment, "Sverige") || strings.EqualFold(segment, "Sweden") {
			continue
		}
		segment = strings.TrimSpace(strings.TrimLeft(segment, "0123456789 "))
		if segment != "" {
			return truncate(segment, maxCityLength)
		}
	}
	return FallbackCity(address)
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}

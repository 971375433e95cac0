package config

import (
	"time"

	"github.com/caarlos0/env/v6"
)

type Config struct {
	Server struct {
		Port         string   `env:"PORT" envDefault:"5250"`
		DatabasePath string   `env:"DATABASE_PATH" envDefault:"database/listings.db"`
		LogLevel     string   `env:"LOG_LEVEL" envDefault:"info"`
		CORSOrigins  []string `env:"CORS_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000"`
	}

	// Endpoints of the external data sources
	Endpoints struct {
		Nominatim     string `env:"NOMINATIM_URL" envDefault:"https://nominatim.openstreetmap.org"`
		Overpass      string `env:"OVERPASS_URL" envDefault:"https://overpass-api.de/api/interpreter"`
		SCB           string `env:"SCB_URL" envDefault:"https://api.scb.se/OV0104/v1/doris/sv/ssd/BE/BE0101/BE0101A/BefolkningNy"`
		Wikipedia     string `env:"WIKIPEDIA_URL" envDefault:"https://sv.wikipedia.org"`
		UserAgent     string `env:"USER_AGENT" envDefault:"Lokalfakta Listing Generator/1.0"`
		AcceptLang    string `env:"ACCEPT_LANGUAGE" envDefault:"sv-SE,sv;q=0.9,en;q=0.8"`
		CountryCodes  string `env:"GEOCODE_COUNTRY_CODES" envDefault:"se"`
		StatisticYear string `env:"SCB_YEAR" envDefault:"2023"`
	}

	// Timeouts per outbound source. A source that exceeds its own timeout
	// yields its default value and never blocks the others.
	Timeouts struct {
		Geocode     time.Duration `env:"GEOCODE_TIMEOUT" envDefault:"8s"`
		Overpass    time.Duration `env:"OVERPASS_TIMEOUT" envDefault:"12s"`
		SCB         time.Duration `env:"SCB_TIMEOUT" envDefault:"8s"`
		Wikipedia   time.Duration `env:"WIKIPEDIA_TIMEOUT" envDefault:"5s"`
		MaxAttempts int           `env:"FETCH_MAX_ATTEMPTS" envDefault:"3"`
		Backoff     time.Duration `env:"FETCH_BACKOFF" envDefault:"1s"`
	}

	Cache struct {
		TTL time.Duration `env:"CACHE_TTL" envDefault:"30m"`
	}

	AI struct {
		APIKey      string        `env:"OPENAI_API_KEY"`
		BaseURL     string        `env:"OPENAI_BASE_URL"`
		Model       string        `env:"OPENAI_MODEL" envDefault:"gpt-4o-mini"`
		VisionModel string        `env:"OPENAI_VISION_MODEL" envDefault:"gpt-4o-mini"`
		Timeout     time.Duration `env:"OPENAI_TIMEOUT" envDefault:"30s"`
	}

	// Refresh configures the background area refresh of stored listings
	Refresh struct {
		// Number of listing IDs per batch
		BatchSize int `env:"REFRESH_BATCH_SIZE" envDefault:"10"`

		// Number of concurrent refresh workers
		WorkerCount int `env:"REFRESH_WORKERS" envDefault:"2"`

		// Capacity of the batch queue
		QueueSize int `env:"REFRESH_QUEUE_SIZE" envDefault:"100"`

		// Maximum number of retries for a failed batch
		MaxRetries int `env:"REFRESH_MAX_RETRIES" envDefault:"3"`

		// Delay between retries
		RetryDelay time.Duration `env:"REFRESH_RETRY_DELAY" envDefault:"5s"`

		// How often the scheduler looks for stale listings; zero disables it
		Interval time.Duration `env:"REFRESH_INTERVAL" envDefault:"6h"`

		// Age after which an area snapshot is refreshed again
		StaleAfter time.Duration `env:"REFRESH_STALE_AFTER" envDefault:"168h"`
	}
}

func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"lokalfakta/server/config"
	"lokalfakta/server/internal/database"
	"lokalfakta/server/internal/enrichment"
	"lokalfakta/server/internal/geocoding"
	"lokalfakta/server/internal/models"
	"lokalfakta/server/internal/pricing"
)

func main() {
	app := &cli.App{
		Name:  "areagen",
		Usage: "enrich a Swedish commercial address and generate listing text",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "log-level", Value: "warn", Usage: "logrus level, logs go to stderr"},
			&cli.StringFlag{Name: "db", Usage: "listing database for price comparisons"},
		},
		Commands: []*cli.Command{
			{
				Name:   "enrich",
				Usage:  "print the area data for an address or city",
				Action: enrichAction,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "address", Usage: "street address, geocoded unless lat and lng are given"},
					&cli.StringFlag{Name: "city", Usage: "municipality, derived from the address when empty"},
					&cli.Float64Flag{Name: "lat"},
					&cli.Float64Flag{Name: "lng"},
				},
			},
			{
				Name:   "generate",
				Usage:  "generate a title, description and tags for a listing",
				Action: generateAction,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "address", Required: true},
					&cli.StringFlag{Name: "type", Required: true, Usage: "sale or rent"},
					&cli.StringFlag{Name: "category", Required: true, Usage: "comma-separated, e.g. office,retail"},
					&cli.IntFlag{Name: "price", Required: true, Usage: "SEK, yearly rent or sale price"},
					&cli.IntFlag{Name: "size", Required: true, Usage: "square metres"},
					&cli.StringFlag{Name: "highlights"},
					&cli.Float64Flag{Name: "lat"},
					&cli.Float64Flag{Name: "lng"},
					&cli.StringSliceFlag{Name: "image", Usage: "public image URL, repeatable"},
					&cli.StringFlag{Name: "ai-key", EnvVars: []string{"AREAGEN_AI_KEY"}, Usage: "overrides OPENAI_API_KEY"},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// newService builds the pipeline from the environment and global flags
func newService(c *cli.Context) (*enrichment.Service, func(), error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stderr)
	if level, err := logrus.ParseLevel(c.String("log-level")); err == nil {
		logger.SetLevel(level)
	}

	var prices pricing.PriceSource
	cleanup := func() {}
	if path := c.String("db"); path != "" {
		db, err := database.NewDatabase(path)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open database: %w", err)
		}
		prices = db
		cleanup = func() { db.Close() }
	}

	return enrichment.NewService(cfg, prices, logger), cleanup, nil
}

func enrichAction(c *cli.Context) error {
	address := c.String("address")
	city := c.String("city")
	if address == "" && city == "" {
		return cli.Exit("either --address or --city is required", 2)
	}

	service, cleanup, err := newService(c)
	if err != nil {
		return err
	}
	defer cleanup()

	lat, lng := c.Float64("lat"), c.Float64("lng")
	if !c.IsSet("lat") && address != "" {
		if result := service.Geocode(c.Context, address); result != nil {
			lat, lng = result.Lat, result.Lng
			if city == "" {
				city = result.City
			}
		}
	}
	if city == "" {
		city = geocoding.CityFromAddress(address)
	}

	area := service.FetchAreaData(c.Context, city, lat, lng, address)
	return printJSON(c, area)
}

func generateAction(c *cli.Context) error {
	input := models.GenerateInput{
		Address:    c.String("address"),
		Type:       models.ListingType(c.String("type")),
		Category:   c.String("category"),
		Price:      c.Int("price"),
		Size:       c.Int("size"),
		Highlights: c.String("highlights"),
		Images:     c.StringSlice("image"),
	}
	if c.IsSet("lat") || c.IsSet("lng") {
		lat, lng := c.Float64("lat"), c.Float64("lng")
		input.Lat, input.Lng = &lat, &lng
	}

	service, cleanup, err := newService(c)
	if err != nil {
		return err
	}
	defer cleanup()

	result, err := service.GenerateListingContent(c.Context, input, c.String("ai-key"))
	if err != nil {
		return err
	}
	return printJSON(c, result)
}

func printJSON(c *cli.Context, v interface{}) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	fmt.Fprintln(c.App.Writer, string(out))
	return nil
}

package statistics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"lokalfakta/server/config"
	"lokalfakta/server/internal/fetch"
)

// ErrUnknownMunicipality is returned for the sentinel or an empty code
var ErrUnknownMunicipality = errors.New("unknown municipality")

// populationContent is the SCB content code for total population
const populationContent = "BE0101N1"

type selection struct {
	Filter string   `json:"filter"`
	Values []string `json:"values"`
}

type variable struct {
	Code      string    `json:"code"`
	Selection selection `json:"selection"`
}

type scbQuery struct {
	Query    []variable `json:"query"`
	Response struct {
		Format string `json:"format"`
	} `json:"response"`
}

type scbResponse struct {
	Data []struct {
		Key    []string `json:"key"`
		Values []string `json:"values"`
	} `json:"data"`
}

// PopulationClient queries the SCB statistics API for municipal population
type PopulationClient struct {
	fetcher   *fetch.Fetcher
	url       string
	userAgent string
	year      string
	timeout   time.Duration
}

func NewPopulationClient(fetcher *fetch.Fetcher, url, userAgent, year string, timeout time.Duration) *PopulationClient {
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	return &PopulationClient{
		fetcher:   fetcher,
		url:       url,
		userAgent: userAgent,
		year:      year,
		timeout:   timeout,
	}
}

// PopulationQuery builds the table selection for one region and year
func PopulationQuery(code, year string) ([]byte, error) {
	q := scbQuery{
		Query: []variable{
			{Code: "Region", Selection: selection{Filter: "vs:RegionKommun07", Values: []string{code}}},
			{Code: "ContentsCode", Selection: selection{Filter: "item", Values: []string{populationContent}}},
			{Code: "Tid", Selection: selection{Filter: "item", Values: []string{year}}},
		},
	}
	q.Response.Format = "json"
	return json.Marshal(q)
}

// Population returns the population of the municipality with the given code
func (c *PopulationClient) Population(ctx context.Context, code string) (int, error) {
	if code == "" || code == config.UnknownMunicipalityCode {
		return 0, ErrUnknownMunicipality
	}

	body, err := PopulationQuery(code, c.year)
	if err != nil {
		return 0, fmt.Errorf("failed to build population query: %w", err)
	}

	header := http.Header{}
	header.Set("Content-Type", "application/json")
	if c.userAgent != "" {
		header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.fetcher.FetchWithRetry(ctx, fetch.Request{
		Method: http.MethodPost,
		URL:    c.url,
		Header: header,
		Body:   body,
	}, c.timeout)
	if err != nil {
		return 0, err
	}
	if err := resp.CheckStatus(c.url); err != nil {
		return 0, err
	}

	var result scbResponse
	if err := resp.DecodeJSON(&result); err != nil {
		return 0, err
	}
	if len(result.Data) == 0 || len(result.Data[0].Values) == 0 {
		return 0, fmt.Errorf("no population data for region %s", code)
	}

	population, err := strconv.Atoi(strings.TrimSpace(result.Data[0].Values[0]))
	if err != nil {
		return 0, fmt.Errorf("invalid population value %q: %w", result.Data[0].Values[0], err)
	}
	if population <= 0 {
		return 0, fmt.Errorf("non-positive population %d for region %s", population, code)
	}
	return population, nil
}

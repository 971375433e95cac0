package overpass

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/paulmach/orb"

	"lokalfakta/server/internal/fetch"
)

// Element is a tagged node or way returned by an Overpass query
type Element struct {
	ID     int64             `json:"id"`
	Type   string            `json:"type"`
	Lat    *float64          `json:"lat,omitempty"`
	Lon    *float64          `json:"lon,omitempty"`
	Center *center           `json:"center,omitempty"`
	Tags   map[string]string `json:"tags"`
}

type center struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Point returns the element's position, using the bounding center for ways
func (e Element) Point() (orb.Point, bool) {
	if e.Lat != nil && e.Lon != nil {
		return orb.Point{*e.Lon, *e.Lat}, true
	}
	if e.Center != nil {
		return orb.Point{e.Center.Lon, e.Center.Lat}, true
	}
	return orb.Point{}, false
}

type response struct {
	Elements []Element `json:"elements"`
}

// Client posts Overpass QL queries
type Client struct {
	fetcher   *fetch.Fetcher
	endpoint  string
	userAgent string
	timeout   time.Duration
}

func NewClient(fetcher *fetch.Fetcher, endpoint, userAgent string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 12 * time.Second
	}
	return &Client{
		fetcher:   fetcher,
		endpoint:  endpoint,
		userAgent: userAgent,
		timeout:   timeout,
	}
}

// Query runs a query as one batched POST, retrying transient failures
func (c *Client) Query(ctx context.Context, query string) ([]Element, error) {
	header := http.Header{}
	header.Set("Content-Type", "application/x-www-form-urlencoded")
	if c.userAgent != "" {
		header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.fetcher.FetchWithRetry(ctx, fetch.Request{
		Method: http.MethodPost,
		URL:    c.endpoint,
		Header: header,
		Body:   []byte(url.Values{"data": []string{query}}.Encode()),
	}, c.timeout)
	if err != nil {
		return nil, err
	}
	if err := resp.CheckStatus(c.endpoint); err != nil {
		return nil, err
	}

	var result response
	if err := resp.DecodeJSON(&result); err != nil {
		return nil, err
	}
	return result.Elements, nil
}

func around(radius int, lat, lng float64) string {
	return fmt.Sprintf("(around:%d,%.6f,%.6f)", radius, lat, lng)
}

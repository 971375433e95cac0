package areacontext

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
	"unicode"

	"github.com/sirupsen/logrus"

	"lokalfakta/server/config"
	"lokalfakta/server/internal/cache"
	"lokalfakta/server/internal/fetch"
	"lokalfakta/server/internal/geocoding"
	"lokalfakta/server/internal/models"
)

const (
	// MinSummaryLength is the shortest summary worth showing
	MinSummaryLength = 30
	// MaxSummaryLength caps summaries; longer ones are cut at a sentence
	MaxSummaryLength = 350
	// minSentenceCut is how far into a summary a sentence boundary must be
	// before it is preferred over a hard cut
	minSentenceCut = 100
)

type searchResponse struct {
	Query struct {
		Search []struct {
			Title string `json:"title"`
		} `json:"search"`
	} `json:"query"`
}

type summaryResponse struct {
	Type        string `json:"type"`
	Title       string `json:"title"`
	Extract     string `json:"extract"`
	ContentURLs struct {
		Desktop struct {
			Page string `json:"page"`
		} `json:"desktop"`
	} `json:"content_urls"`
}

// Fetcher looks up encyclopedic summaries of districts and cities
type Fetcher struct {
	fetcher   *fetch.Fetcher
	cache     *cache.ExpiringCache
	logger    *logrus.Logger
	baseURL   string
	userAgent string
	timeout   time.Duration
}

func NewFetcher(fetcher *fetch.Fetcher, c *cache.ExpiringCache, logger *logrus.Logger, baseURL, userAgent string, timeout time.Duration) *Fetcher {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Fetcher{
		fetcher:   fetcher,
		cache:     c,
		logger:    logger,
		baseURL:   strings.TrimRight(baseURL, "/"),
		userAgent: userAgent,
		timeout:   timeout,
	}
}

// Fetch returns the first acceptable summary for the address's district
// or its city, or nil when none is found
func (f *Fetcher) Fetch(ctx context.Context, city, address string) *models.AreaContext {
	district := District(address, city)
	terms := SearchTerms(city, district)
	if len(terms) == 0 {
		return nil
	}

	key := cache.Key("areacontext", city, district)
	if cached, ok := cache.Lookup[models.AreaContext](f.cache, key); ok {
		return &cached
	}

	for _, term := range terms {
		result, err := f.lookup(ctx, term)
		if err != nil {
			f.logger.WithError(err).WithField("term", term).Debug("Area context lookup failed")
			continue
		}
		if result == nil {
			continue
		}
		f.cache.Set(key, *result)
		return result
	}
	return nil
}

func (f *Fetcher) lookup(ctx context.Context, term string) (*models.AreaContext, error) {
	title, err := f.search(ctx, term)
	if err != nil || title == "" {
		return nil, err
	}

	summary, err := f.summary(ctx, title)
	if err != nil {
		return nil, err
	}

	extract := strings.TrimSpace(summary.Extract)
	if summary.Type == "disambiguation" || len([]rune(extract)) < MinSummaryLength {
		return nil, nil
	}

	pageURL := summary.ContentURLs.Desktop.Page
	if pageURL == "" {
		pageURL = f.baseURL + "/wiki/" + url.PathEscape(strings.ReplaceAll(title, " ", "_"))
	}
	resultTitle := summary.Title
	if resultTitle == "" {
		resultTitle = title
	}

	return &models.AreaContext{
		Summary: Truncate(extract),
		Title:   resultTitle,
		URL:     pageURL,
	}, nil
}

func (f *Fetcher) search(ctx context.Context, term string) (string, error) {
	params := url.Values{}
	params.Set("action", "query")
	params.Set("list", "search")
	params.Set("srsearch", term)
	params.Set("srlimit", "1")
	params.Set("format", "json")

	resp, err := f.get(ctx, f.baseURL+"/w/api.php?"+params.Encode())
	if err != nil {
		return "", err
	}

	var result searchResponse
	if err := resp.DecodeJSON(&result); err != nil {
		return "", err
	}
	if len(result.Query.Search) == 0 {
		return "", nil
	}
	return result.Query.Search[0].Title, nil
}

func (f *Fetcher) summary(ctx context.Context, title string) (*summaryResponse, error) {
	endpoint := f.baseURL + "/api/rest_v1/page/summary/" + url.PathEscape(strings.ReplaceAll(title, " ", "_"))
	resp, err := f.get(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	var result summaryResponse
	if err := resp.DecodeJSON(&result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (f *Fetcher) get(ctx context.Context, endpoint string) (*fetch.Response, error) {
	header := http.Header{}
	header.Set("Accept", "application/json")
	if f.userAgent != "" {
		header.Set("User-Agent", f.userAgent)
	}

	resp, err := f.fetcher.FetchWithRetry(ctx, fetch.Request{URL: endpoint, Header: header}, f.timeout)
	if err != nil {
		return nil, err
	}
	if err := resp.CheckStatus(endpoint); err != nil {
		return nil, err
	}
	return resp, nil
}

// District guesses the district from the address: the last segment after
// the street that is neither the city nor a postal code
func District(address, city string) string {
	segments := strings.Split(address, ",")
	if len(segments) < 2 {
		return ""
	}

	normalizedCity := config.NormalizeCity(city)
	for i := len(segments) - 1; i >= 1; i-- {
		segment := strings.TrimSpace(segments[i])
		if segment == "" || hasDigit(segment) {
			continue
		}
		if config.NormalizeCity(segment) == normalizedCity {
			continue
		}
		if strings.EqualFold(segment, "Sverige") || strings.EqualFold(segment, "Sweden") {
			continue
		}
		return segment
	}
	return ""
}

// SearchTerms returns "district city" when a district is known, then the
// bare city
func SearchTerms(city, district string) []string {
	city = strings.TrimSpace(city)
	if city == "" || city == geocoding.UnknownCity {
		if district == "" {
			return nil
		}
		return []string{district}
	}
	if district == "" {
		return []string{city}
	}
	return []string{fmt.Sprintf("%s %s", district, city), city}
}

// Truncate shortens a summary to MaxSummaryLength, preferring the last
// sentence end before the limit
func Truncate(summary string) string {
	r := []rune(summary)
	if len(r) <= MaxSummaryLength {
		return summary
	}

	cut := r[:MaxSummaryLength]
	for i := len(cut) - 1; i >= minSentenceCut-1; i-- {
		if isSentenceEnd(cut, i) {
			return string(cut[:i+1])
		}
	}
	return strings.TrimRightFunc(string(cut[:MaxSummaryLength-1]), unicode.IsSpace) + "…"
}

func isSentenceEnd(r []rune, i int) bool {
	switch r[i] {
	case '.', '!', '?':
	default:
		return false
	}
	return i == len(r)-1 || unicode.IsSpace(r[i+1])
}

func hasDigit(s string) bool {
	for _, c := range s {
		if unicode.IsDigit(c) {
			return true
		}
	}
	return false
}

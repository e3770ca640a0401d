// internal/adapter/trends/googletrends.go

package trends

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"trendwise/internal/adapter/upstream"
	"trendwise/internal/domain/trend"
)

const defaultGoogleTrendsBaseURL = "https://trends.google.com/trends/api"

// xssiPrefix precedes every Google Trends JSON body
var xssiPrefix = []byte(")]}',")

// GoogleTrendsClient collects daily trending searches from the dailytrends endpoint
type GoogleTrendsClient struct {
	BaseURL    string
	HTTPClient *http.Client
}

type dailyTrendsResponse struct {
	Default struct {
		TrendingSearchesDays []struct {
			Date             string           `json:"date"`
			TrendingSearches []trendingSearch `json:"trendingSearches"`
		} `json:"trendingSearchesDays"`
	} `json:"default"`
}

type trendingSearch struct {
	Title struct {
		Query string `json:"query"`
	} `json:"title"`
	FormattedTraffic string `json:"formattedTraffic"`
	Articles         []struct {
		Title  string `json:"title"`
		URL    string `json:"url"`
		Source string `json:"source"`
	} `json:"articles"`
}

// NewGoogleTrendsClient creates a dailytrends client
func NewGoogleTrendsClient(baseURL string, httpClient *http.Client) *GoogleTrendsClient {
	if baseURL == "" {
		baseURL = defaultGoogleTrendsBaseURL
	}
	return &GoogleTrendsClient{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: upstream.Client(httpClient),
	}
}

func (c *GoogleTrendsClient) Kind() trend.SourceKind { return trend.SourceGoogleTrends }

// Fetch returns today's trending searches for q.Geo
func (c *GoogleTrendsClient) Fetch(ctx context.Context, q trend.Query) ([]trend.Record, error) {
	geo := q.Geo
	if geo == "" {
		geo = trend.DefaultGeo
	}
	params := url.Values{}
	params.Set("hl", "en-US")
	params.Set("tz", "0")
	params.Set("geo", geo)
	params.Set("ns", "15")

	body, err := upstream.Get(ctx, c.HTTPClient, "Google Trends", c.BaseURL+"/dailytrends?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	return parseDailyTrends(body)
}

func parseDailyTrends(body []byte) ([]trend.Record, error) {
	body = bytes.TrimPrefix(bytes.TrimSpace(body), xssiPrefix)

	var resp dailyTrendsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode Google Trends response: %w", err)
	}

	records := make([]trend.Record, 0)
	days := resp.Default.TrendingSearchesDays
	if len(days) == 0 {
		return records, nil
	}
	for _, s := range days[0].TrendingSearches {
		if s.Title.Query == "" {
			continue
		}
		r := trend.Record{
			Name:            s.Title.Query,
			Source:          trend.SourceGoogleTrends,
			Traffic:         s.FormattedTraffic,
			RelatedArticles: len(s.Articles),
		}
		if len(s.Articles) > 0 {
			r.URL = s.Articles[0].URL
		}
		records = append(records, r)
	}
	return records, nil
}

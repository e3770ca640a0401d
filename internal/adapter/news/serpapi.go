// internal/adapter/news/serpapi.go

package news

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"trendwise/internal/adapter/upstream"
	"trendwise/internal/domain/trend"
)

const defaultSerpAPIBaseURL = "https://serpapi.com"

var relativeAge = regexp.MustCompile(`(?i)^(\d+)\s+(minute|hour|day|week)s?\s+ago$`)

// SerpAPIClient searches Google News through SerpAPI
type SerpAPIClient struct {
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
	now        func() time.Time
}

type serpAPIResponse struct {
	Error       string `json:"error"`
	NewsResults []struct {
		Title   string `json:"title"`
		Link    string `json:"link"`
		Source  string `json:"source"`
		Date    string `json:"date"`
		Snippet string `json:"snippet"`
	} `json:"news_results"`
}

// NewSerpAPIClient creates a SerpAPI news searcher
func NewSerpAPIClient(apiKey, baseURL string, httpClient *http.Client) *SerpAPIClient {
	if baseURL == "" {
		baseURL = defaultSerpAPIBaseURL
	}
	return &SerpAPIClient{
		APIKey:     apiKey,
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: upstream.Client(httpClient),
		now:        time.Now,
	}
}

func (c *SerpAPIClient) Name() string { return "serpapi" }

// Search returns Google News results for query
func (c *SerpAPIClient) Search(ctx context.Context, query string, limit int) ([]trend.Article, error) {
	if c.APIKey == "" {
		return nil, fmt.Errorf("serpapi key: %w", trend.ErrMissingCredential)
	}

	params := url.Values{}
	params.Set("engine", "google")
	params.Set("tbm", "nws")
	params.Set("q", query)
	params.Set("num", strconv.Itoa(limit))
	params.Set("hl", "en")
	params.Set("api_key", c.APIKey)

	var resp serpAPIResponse
	if err := upstream.GetJSON(ctx, c.HTTPClient, "SerpAPI", c.BaseURL+"/search?"+params.Encode(), nil, &resp); err != nil {
		return nil, err
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("serpapi: %s", resp.Error)
	}

	now := c.now().UTC()
	articles := make([]trend.Article, 0, len(resp.NewsResults))
	for _, r := range resp.NewsResults {
		if r.Title == "" {
			continue
		}
		articles = append(articles, trend.Article{
			Title:       r.Title,
			Description: r.Snippet,
			URL:         r.Link,
			Source:      r.Source,
			Platform:    c.Name(),
			PublishedAt: parseNewsDate(r.Date, now),
		})
	}
	return articles, nil
}

var absoluteDateLayouts = []string{time.RFC3339, "Jan 2, 2006", "01/02/2006"}

// parseNewsDate understands absolute dates and "3 hours ago" style ages.
// Anything else is the zero time, which no recency window accepts.
func parseNewsDate(s string, now time.Time) time.Time {
	s = strings.TrimSpace(s)
	for _, layout := range absoluteDateLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts
		}
	}
	m := relativeAge.FindStringSubmatch(s)
	if m == nil {
		return time.Time{}
	}
	n, _ := strconv.Atoi(m[1])
	unit := map[string]time.Duration{
		"minute": time.Minute,
		"hour":   time.Hour,
		"day":    24 * time.Hour,
		"week":   7 * 24 * time.Hour,
	}[strings.ToLower(m[2])]
	return now.Add(-time.Duration(n) * unit)
}

// internal/adapter/news/newsapi.go

package news

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"trendwise/internal/adapter/upstream"
	"trendwise/internal/domain/trend"
)

const defaultNewsAPIBaseURL = "https://newsapi.org/v2"

// NewsAPIClient searches the NewsAPI everything endpoint
type NewsAPIClient struct {
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
}

type newsAPIResponse struct {
	Status   string `json:"status"`
	Code     string `json:"code"`
	Message  string `json:"message"`
	Articles []struct {
		Source struct {
			Name string `json:"name"`
		} `json:"source"`
		Title       string `json:"title"`
		Description string `json:"description"`
		URL         string `json:"url"`
		PublishedAt string `json:"publishedAt"`
	} `json:"articles"`
}

// NewNewsAPIClient creates a NewsAPI searcher
func NewNewsAPIClient(apiKey, baseURL string, httpClient *http.Client) *NewsAPIClient {
	if baseURL == "" {
		baseURL = defaultNewsAPIBaseURL
	}
	return &NewsAPIClient{
		APIKey:     apiKey,
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: upstream.Client(httpClient),
	}
}

func (c *NewsAPIClient) Name() string { return "newsapi" }

// Search returns the newest English articles matching query
func (c *NewsAPIClient) Search(ctx context.Context, query string, limit int) ([]trend.Article, error) {
	if c.APIKey == "" {
		return nil, fmt.Errorf("newsapi key: %w", trend.ErrMissingCredential)
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("sortBy", "publishedAt")
	params.Set("language", "en")
	params.Set("pageSize", strconv.Itoa(limit))

	header := http.Header{}
	header.Set("X-Api-Key", c.APIKey)

	var resp newsAPIResponse
	if err := upstream.GetJSON(ctx, c.HTTPClient, "NewsAPI", c.BaseURL+"/everything?"+params.Encode(), header, &resp); err != nil {
		return nil, err
	}
	if resp.Status == "error" {
		return nil, fmt.Errorf("newsapi %s: %s", resp.Code, resp.Message)
	}

	articles := make([]trend.Article, 0, len(resp.Articles))
	for _, a := range resp.Articles {
		if a.Title == "" || a.Title == "[Removed]" {
			continue
		}
		published, err := time.Parse(time.RFC3339, a.PublishedAt)
		if err != nil {
			published = time.Now().UTC()
		}
		articles = append(articles, trend.Article{
			Title:       a.Title,
			Description: a.Description,
			URL:         a.URL,
			Source:      a.Source.Name,
			Platform:    c.Name(),
			PublishedAt: published,
		})
	}
	return articles, nil
}

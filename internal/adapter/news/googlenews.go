// internal/adapter/news/googlenews.go

package news

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"trendwise/internal/adapter/upstream"
	"trendwise/internal/domain/trend"
)

const defaultGoogleNewsBaseURL = "https://news.google.com"

// GoogleNewsClient scrapes the Google News search page. It needs no key.
type GoogleNewsClient struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewGoogleNewsClient creates a Google News scraper
func NewGoogleNewsClient(baseURL string, httpClient *http.Client) *GoogleNewsClient {
	if baseURL == "" {
		baseURL = defaultGoogleNewsBaseURL
	}
	return &GoogleNewsClient{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: upstream.Client(httpClient),
	}
}

func (c *GoogleNewsClient) Name() string { return "googlenews" }

// Search scrapes up to limit result cards for query
func (c *GoogleNewsClient) Search(ctx context.Context, query string, limit int) ([]trend.Article, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("hl", "en-US")
	params.Set("gl", "US")
	params.Set("ceid", "US:en")

	page := c.BaseURL + "/search?" + params.Encode()
	body, err := upstream.Get(ctx, c.HTTPClient, "Google News", page, nil)
	if err != nil {
		return nil, err
	}
	return parseGoogleNews(body, c.BaseURL, limit)
}

func parseGoogleNews(body []byte, baseURL string, limit int) ([]trend.Article, error) {
	base, err := url.Parse(baseURL + "/")
	if err != nil {
		return nil, fmt.Errorf("invalid google news base url: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse Google News page: %w", err)
	}

	articles := make([]trend.Article, 0)
	doc.Find("article").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if limit > 0 && len(articles) >= limit {
			return false
		}
		link := s.Find("h3 a, h4 a").First()
		title := strings.TrimSpace(link.Text())
		href, ok := link.Attr("href")
		if title == "" || !ok {
			return true
		}

		a := trend.Article{
			Title:    title,
			URL:      resolve(base, href),
			Source:   strings.TrimSpace(s.Find("div[data-n-tid] a, div[data-n-tid]").First().Text()),
			Platform: "googlenews",
		}
		if a.Source == "" {
			a.Source = "Google News"
		}
		// cards without a machine-readable time stay undated
		if dt, ok := s.Find("time[datetime]").First().Attr("datetime"); ok {
			if ts, err := time.Parse(time.RFC3339, dt); err == nil {
				a.PublishedAt = ts
			}
		}
		articles = append(articles, a)
		return true
	})
	return articles, nil
}

func resolve(base *url.URL, href string) string {
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}

// internal/adapter/trends/rss.go

package trends

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/mmcdole/gofeed"
	ext "github.com/mmcdole/gofeed/extensions"

	"trendwise/internal/adapter/upstream"
	"trendwise/internal/domain/trend"
)

const defaultTrendsFeedURL = "https://trends.google.com/trends/trendingsearches/daily/rss"

var searchesPattern = regexp.MustCompile(`(?i)([0-9][0-9,.]*\s*[KMB]?\+?)\s+searches`)

// FeedClient collects daily trending searches from the Google Trends RSS feed
type FeedClient struct {
	FeedURL    string
	HTTPClient *http.Client
}

// NewFeedClient creates an RSS based macro-trend collector
func NewFeedClient(feedURL string, httpClient *http.Client) *FeedClient {
	if feedURL == "" {
		feedURL = defaultTrendsFeedURL
	}
	return &FeedClient{
		FeedURL:    feedURL,
		HTTPClient: upstream.Client(httpClient),
	}
}

func (c *FeedClient) Kind() trend.SourceKind { return trend.SourceGoogleTrends }

// Fetch downloads and parses the feed for q.Geo
func (c *FeedClient) Fetch(ctx context.Context, q trend.Query) ([]trend.Record, error) {
	geo := q.Geo
	if geo == "" {
		geo = trend.DefaultGeo
	}
	u, err := url.Parse(c.FeedURL)
	if err != nil {
		return nil, fmt.Errorf("invalid trends feed url: %w", err)
	}
	params := u.Query()
	params.Set("geo", geo)
	u.RawQuery = params.Encode()

	body, err := upstream.Get(ctx, c.HTTPClient, "Google Trends RSS", u.String(), nil)
	if err != nil {
		return nil, err
	}
	// gofeed parsers keep per-parse state, so one per call
	feed, err := gofeed.NewParser().Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse Google Trends feed: %w", err)
	}

	records := make([]trend.Record, 0, len(feed.Items))
	for _, item := range feed.Items {
		title := strings.TrimSpace(item.Title)
		if title == "" {
			continue
		}
		r := trend.Record{
			Name:            title,
			Source:          trend.SourceGoogleTrends,
			Traffic:         itemTraffic(item),
			RelatedArticles: len(htExtension(item, "news_item")),
			URL:             item.Link,
		}
		if item.PublishedParsed != nil {
			r.PublishedAt = item.PublishedParsed.UTC()
		}
		records = append(records, r)
	}
	return records, nil
}

// itemTraffic reads ht:approx_traffic, falling back to "N+ searches" in the description
func itemTraffic(item *gofeed.Item) string {
	if values := htExtension(item, "approx_traffic"); len(values) > 0 {
		if v := strings.TrimSpace(values[0].Value); v != "" {
			return v
		}
	}
	if m := searchesPattern.FindStringSubmatch(item.Description); m != nil {
		return strings.ReplaceAll(m[1], " ", "")
	}
	return ""
}

func htExtension(item *gofeed.Item, name string) []ext.Extension {
	if item.Extensions == nil {
		return nil
	}
	return item.Extensions["ht"][name]
}

// internal/adapter/social/reddit.go

package social

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"trendwise/internal/adapter/upstream"
	"trendwise/internal/domain/trend"
)

const (
	defaultRedditBaseURL = "https://www.reddit.com"
	defaultRedditLimit   = 25
)

// RedditClient collects hot posts from a subreddit
type RedditClient struct {
	HTTPClient *http.Client
	BaseURL    string
}

// RedditPost represents a post from Reddit
type RedditPost struct {
	Title       string  `json:"title"`
	URL         string  `json:"url"`
	Permalink   string  `json:"permalink"`
	Score       int     `json:"score"`
	NumComments int     `json:"num_comments"`
	Subreddit   string  `json:"subreddit"`
	Created     float64 `json:"created_utc"`
	Author      string  `json:"author"`
}

// RedditResponse represents the structure of the Reddit listing response
type RedditResponse struct {
	Kind string `json:"kind"`
	Data struct {
		After    string `json:"after"`
		Children []struct {
			Kind string     `json:"kind"`
			Data RedditPost `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

// NewRedditClient creates a Reddit client; an empty baseURL selects www.reddit.com
func NewRedditClient(baseURL string, httpClient *http.Client) *RedditClient {
	if baseURL == "" {
		baseURL = defaultRedditBaseURL
	}
	return &RedditClient{
		HTTPClient: upstream.Client(httpClient),
		BaseURL:    strings.TrimRight(baseURL, "/"),
	}
}

func (c *RedditClient) Kind() trend.SourceKind { return trend.SourceReddit }

// Fetch returns the hot posts of q.RedditSubreddit as records
func (c *RedditClient) Fetch(ctx context.Context, q trend.Query) ([]trend.Record, error) {
	posts, err := c.GetHot(ctx, q.RedditSubreddit, q.Limit)
	if err != nil {
		return nil, err
	}

	records := make([]trend.Record, 0, len(posts))
	for _, p := range posts {
		r := trend.Record{
			Name:   p.Title,
			Source: trend.SourceReddit,
			URL:    c.BaseURL + p.Permalink,
			Metrics: map[string]float64{
				trend.MetricScore:    float64(p.Score),
				trend.MetricComments: float64(p.NumComments),
			},
		}
		if p.Created > 0 {
			r.PublishedAt = time.Unix(int64(p.Created), 0).UTC()
		}
		records = append(records, r)
	}
	return records, nil
}

// GetHot fetches the hot listing of a subreddit
func (c *RedditClient) GetHot(ctx context.Context, subreddit string, limit int) ([]RedditPost, error) {
	if subreddit == "" {
		subreddit = trend.DefaultSubreddit
	}
	if limit <= 0 {
		limit = defaultRedditLimit
	}

	u := fmt.Sprintf("%s/r/%s/hot.json?limit=%d", c.BaseURL, url.PathEscape(subreddit), limit)
	var resp RedditResponse
	if err := upstream.GetJSON(ctx, c.HTTPClient, "Reddit API", u, nil, &resp); err != nil {
		return nil, err
	}

	posts := make([]RedditPost, 0, len(resp.Data.Children))
	for _, child := range resp.Data.Children {
		posts = append(posts, child.Data)
	}
	return posts, nil
}

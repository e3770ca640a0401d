// internal/adapter/social/twitter.go

package social

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	twitter "github.com/g8rswimmer/go-twitter/v2"

	"trendwise/internal/adapter/upstream"
	"trendwise/internal/domain/trend"
)

const (
	defaultTwitterBaseURL = "https://api.twitter.com/1.1"
	defaultTwitterHost    = "https://api.twitter.com"
)

// TwitterClient collects trending topics for a WOEID and searches recent tweets by hashtag
type TwitterClient struct {
	BearerToken string
	BaseURL     string
	HTTPClient  *http.Client

	search *twitter.Client
}

// TwitterTrend represents a trending topic from Twitter
type TwitterTrend struct {
	Name        string `json:"name"`
	URL         string `json:"url"`
	Query       string `json:"query"`
	TweetVolume int    `json:"tweet_volume"`
}

// TwitterTrendsResponse represents the response from Twitter's trends/place endpoint
type TwitterTrendsResponse []struct {
	Trends    []TwitterTrend `json:"trends"`
	AsOf      string         `json:"as_of"`
	Locations []struct {
		Name  string `json:"name"`
		WoeID int    `json:"woeid"`
	} `json:"locations"`
}

// HashtagPost is a recent tweet with its engagement counts
type HashtagPost struct {
	ID         string    `json:"id"`
	Text       string    `json:"text"`
	URL        string    `json:"url"`
	CreatedAt  time.Time `json:"createdAt"`
	Likes      int       `json:"likes"`
	Retweets   int       `json:"retweets"`
	Replies    int       `json:"replies"`
	Engagement int       `json:"engagement"`
}

type bearerAuthorizer string

func (b bearerAuthorizer) Add(req *http.Request) {
	req.Header.Add("Authorization", "Bearer "+string(b))
}

// NewTwitterClient creates a Twitter client. Empty URLs select the public API.
func NewTwitterClient(bearerToken, baseURL, searchHost string, httpClient *http.Client) *TwitterClient {
	if baseURL == "" {
		baseURL = defaultTwitterBaseURL
	}
	if searchHost == "" {
		searchHost = defaultTwitterHost
	}
	httpClient = upstream.Client(httpClient)
	return &TwitterClient{
		BearerToken: bearerToken,
		BaseURL:     strings.TrimRight(baseURL, "/"),
		HTTPClient:  httpClient,
		search: &twitter.Client{
			Authorizer: bearerAuthorizer(bearerToken),
			Client:     httpClient,
			Host:       strings.TrimRight(searchHost, "/"),
		},
	}
}

func (c *TwitterClient) Kind() trend.SourceKind { return trend.SourceTwitter }

// Fetch returns the trends for q.TwitterWOEID as records
func (c *TwitterClient) Fetch(ctx context.Context, q trend.Query) ([]trend.Record, error) {
	trends, err := c.GetTrends(ctx, q.TwitterWOEID)
	if err != nil {
		return nil, err
	}

	records := make([]trend.Record, 0, len(trends))
	for _, t := range trends {
		records = append(records, trend.Record{
			Name:    t.Name,
			Source:  trend.SourceTwitter,
			URL:     t.URL,
			Metrics: map[string]float64{trend.MetricVolume: float64(t.TweetVolume)},
		})
	}
	return records, nil
}

// GetTrends fetches trending topics from Twitter for a specific location
func (c *TwitterClient) GetTrends(ctx context.Context, woeid string) ([]TwitterTrend, error) {
	if c.BearerToken == "" {
		return nil, fmt.Errorf("twitter bearer token: %w", trend.ErrMissingCredential)
	}
	if woeid == "" {
		woeid = trend.DefaultWOEID
	}

	u := fmt.Sprintf("%s/trends/place.json?id=%s", c.BaseURL, url.QueryEscape(woeid))
	var resp TwitterTrendsResponse
	if err := upstream.GetJSON(ctx, c.HTTPClient, "Twitter API", u, c.authHeader(), &resp); err != nil {
		return nil, err
	}
	if len(resp) == 0 {
		return []TwitterTrend{}, nil
	}
	return resp[0].Trends, nil
}

// SearchHashtag returns recent tweets carrying the hashtag.
// Engagement is retweets plus likes.
func (c *TwitterClient) SearchHashtag(ctx context.Context, tag string, maxResults int) ([]HashtagPost, error) {
	if c.BearerToken == "" {
		return nil, fmt.Errorf("twitter bearer token: %w", trend.ErrMissingCredential)
	}
	tag = strings.TrimPrefix(strings.TrimSpace(tag), "#")
	if tag == "" {
		return nil, fmt.Errorf("empty hashtag")
	}
	// recent search accepts 10..100
	maxResults = min(max(maxResults, 10), 100)

	resp, err := c.search.TweetRecentSearch(ctx, "#"+tag, twitter.TweetRecentSearchOpts{
		TweetFields: []twitter.TweetField{twitter.TweetFieldCreatedAt, twitter.TweetFieldPublicMetrics},
		MaxResults:  maxResults,
	})
	if err != nil {
		return nil, fmt.Errorf("twitter recent search: %w", err)
	}

	posts := make([]HashtagPost, 0)
	if resp == nil || resp.Raw == nil {
		return posts, nil
	}
	for _, tw := range resp.Raw.Tweets {
		if tw == nil {
			continue
		}
		p := HashtagPost{
			ID:   tw.ID,
			Text: tw.Text,
			URL:  "https://twitter.com/i/web/status/" + tw.ID,
		}
		if created, err := time.Parse(time.RFC3339, tw.CreatedAt); err == nil {
			p.CreatedAt = created
		}
		if m := tw.PublicMetrics; m != nil {
			p.Likes = m.Likes
			p.Retweets = m.Retweets
			p.Replies = m.Replies
		}
		p.Engagement = p.Retweets + p.Likes
		posts = append(posts, p)
	}
	return posts, nil
}

func (c *TwitterClient) authHeader() http.Header {
	h := http.Header{}
	h.Set("Authorization", "Bearer "+c.BearerToken)
	return h
}

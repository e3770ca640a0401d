// internal/adapter/social/youtube.go

package social

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

const (
	defaultYouTubeBaseURL = "https://www.googleapis.com/youtube/v3"
	defaultYouTubeResults = 50
)

// YouTubeClient collects the most popular videos for a region
type YouTubeClient struct {
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
}

// YouTubeVideo is one entry of the videos list. Counts arrive as decimal strings.
type YouTubeVideo struct {
	ID      string `json:"id"`
	Snippet struct {
		Title        string `json:"title"`
		ChannelTitle string `json:"channelTitle"`
		PublishedAt  string `json:"publishedAt"`
	} `json:"snippet"`
	Statistics struct {
		ViewCount    string `json:"viewCount"`
		LikeCount    string `json:"likeCount"`
		CommentCount string `json:"commentCount"`
	} `json:"statistics"`
}

type youtubeVideosResponse struct {
	Items []YouTubeVideo `json:"items"`
}

// NewYouTubeClient creates a YouTube Data API client
func NewYouTubeClient(apiKey, baseURL string, httpClient *http.Client) *YouTubeClient {
	if baseURL == "" {
		baseURL = defaultYouTubeBaseURL
	}
	return &YouTubeClient{
		APIKey:     apiKey,
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: upstream.Client(httpClient),
	}
}

func (c *YouTubeClient) Kind() trend.SourceKind { return trend.SourceYouTube }

// Fetch returns the most popular videos in q.YouTubeRegion as records
func (c *YouTubeClient) Fetch(ctx context.Context, q trend.Query) ([]trend.Record, error) {
	videos, err := c.MostPopular(ctx, q.YouTubeRegion, q.Limit)
	if err != nil {
		return nil, err
	}

	records := make([]trend.Record, 0, len(videos))
	for _, v := range videos {
		r := trend.Record{
			Name:    v.Snippet.Title,
			Source:  trend.SourceYouTube,
			URL:     "https://www.youtube.com/watch?v=" + v.ID,
			Metrics: map[string]float64{},
		}
		if n, ok := parseCount(v.Statistics.ViewCount); ok {
			r.Metrics[trend.MetricViews] = n
		}
		if n, ok := parseCount(v.Statistics.LikeCount); ok {
			r.Metrics[trend.MetricLikes] = n
		}
		if n, ok := parseCount(v.Statistics.CommentCount); ok {
			r.Metrics[trend.MetricComments] = n
		}
		if ts, err := time.Parse(time.RFC3339, v.Snippet.PublishedAt); err == nil {
			r.PublishedAt = ts
		}
		records = append(records, r)
	}
	return records, nil
}

// MostPopular lists the chart=mostPopular videos for a region
func (c *YouTubeClient) MostPopular(ctx context.Context, region string, maxResults int) ([]YouTubeVideo, error) {
	if c.APIKey == "" {
		return nil, fmt.Errorf("youtube api key: %w", trend.ErrMissingCredential)
	}
	if region == "" {
		region = trend.DefaultGeo
	}
	if maxResults <= 0 || maxResults > defaultYouTubeResults {
		maxResults = defaultYouTubeResults
	}

	params := url.Values{}
	params.Set("part", "snippet,statistics")
	params.Set("chart", "mostPopular")
	params.Set("regionCode", region)
	params.Set("maxResults", strconv.Itoa(maxResults))
	params.Set("key", c.APIKey)

	var resp youtubeVideosResponse
	if err := upstream.GetJSON(ctx, c.HTTPClient, "YouTube API", c.BaseURL+"/videos?"+params.Encode(), nil, &resp); err != nil {
		return nil, err
	}
	if resp.Items == nil {
		return []YouTubeVideo{}, nil
	}
	return resp.Items, nil
}

func parseCount(s string) (float64, bool) {
	if s == "" {
		return 0, false
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

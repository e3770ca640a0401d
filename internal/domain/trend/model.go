package trend

import (
	"strings"
	"time"
)

// SourceKind identifies the platform a raw record came from
type SourceKind string

const (
	SourceGoogleTrends SourceKind = "google"
	SourceTwitter      SourceKind = "twitter"
	SourceReddit       SourceKind = "reddit"
	SourceYouTube      SourceKind = "youtube"
)

// Metric keys carried in Record.Metrics
const (
	MetricVolume   = "volume"
	MetricScore    = "score"
	MetricComments = "comments"
	MetricViews    = "views"
	MetricLikes    = "likes"
)

// AllSources returns every known source in merge order
func AllSources() []SourceKind {
	return []SourceKind{SourceGoogleTrends, SourceTwitter, SourceReddit, SourceYouTube}
}

// ParseSourceKind maps user input such as "Twitter" or "google" to a SourceKind
func ParseSourceKind(s string) (SourceKind, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "google", "googletrends", "google_trends":
		return SourceGoogleTrends, true
	case "twitter", "x":
		return SourceTwitter, true
	case "reddit":
		return SourceReddit, true
	case "youtube":
		return SourceYouTube, true
	}
	return "", false
}

// Label is the human readable platform name used in error entries
func (k SourceKind) Label() string {
	switch k {
	case SourceGoogleTrends:
		return "Google Trends"
	case SourceTwitter:
		return "Twitter"
	case SourceReddit:
		return "Reddit"
	case SourceYouTube:
		return "YouTube"
	}
	return string(k)
}

// Record is one raw trend item as returned by a collector
type Record struct {
	Name            string             `json:"name"`
	Source          SourceKind         `json:"source"`
	Metrics         map[string]float64 `json:"metrics,omitempty"`
	Traffic         string             `json:"traffic,omitempty"`
	RelatedArticles int                `json:"relatedArticles,omitempty"`
	URL             string             `json:"url,omitempty"`
	PublishedAt     time.Time          `json:"publishedAt,omitempty"`
}

// Metric returns the named metric or zero when absent
func (r Record) Metric(key string) float64 {
	if r.Metrics == nil {
		return 0
	}
	return r.Metrics[key]
}

// Article is a news item attached to a topic
type Article struct {
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	URL         string    `json:"url"`
	Source      string    `json:"source"`
	Platform    string    `json:"platform"`
	PublishedAt time.Time `json:"publishedAt"`
}

// Contribution records one source's share of a merged topic score
type Contribution struct {
	Source       SourceKind `json:"source"`
	Score        float64    `json:"score"`
	OriginalName string     `json:"originalName"`
}

// Topic is a merged, scored trend across platforms
type Topic struct {
	Key           string         `json:"key"`
	Name          string         `json:"name"`
	Score         float64        `json:"score"`
	Platforms     []SourceKind   `json:"platforms"`
	Contributions []Contribution `json:"contributions"`
	Articles      []Article      `json:"articles"`
}

// HasPlatform reports whether the topic already counts the given source
func (t *Topic) HasPlatform(k SourceKind) bool {
	for _, p := range t.Platforms {
		if p == k {
			return true
		}
	}
	return false
}

// AddPlatform adds k to the platform set, keeping discovery order
func (t *Topic) AddPlatform(k SourceKind) {
	if !t.HasPlatform(k) {
		t.Platforms = append(t.Platforms, k)
	}
}

// SourceError is a non-fatal failure recorded during aggregation
type SourceError struct {
	Source  string `json:"source"`
	Message string `json:"message"`
}

// SourceResult holds what a single collector returned
type SourceResult struct {
	Records    []Record `json:"records"`
	Error      string   `json:"error,omitempty"`
	DurationMs int64    `json:"durationMs"`
}

// Failed reports whether the collector call returned an error
func (r SourceResult) Failed() bool {
	return r.Error != ""
}

// Result is the outcome of one aggregation run
type Result struct {
	ID               string                      `json:"id"`
	Timestamp        time.Time                   `json:"timestamp"`
	ProcessingTimeMs int64                       `json:"processingTimeMs"`
	TotalTimeMs      int64                       `json:"totalTimeMs"`
	Geo              string                      `json:"geo"`
	Period           Period                      `json:"period"`
	Category         string                      `json:"category,omitempty"`
	RawBySource      map[SourceKind]SourceResult `json:"rawBySource"`
	Topics           []Topic                     `json:"topics"`
	Errors           []SourceError               `json:"errors"`
}

// PlatformCount is the number of raw records one source produced
type PlatformCount struct {
	Name  SourceKind `json:"name"`
	Count int        `json:"count"`
}

// SummaryTopic is the condensed view of a topic
type SummaryTopic struct {
	Name         string       `json:"name"`
	Score        int          `json:"score"`
	Platforms    []SourceKind `json:"platforms"`
	ArticleCount int          `json:"articleCount"`
}

// Summary is the compact report derived from a Result
type Summary struct {
	ID               string          `json:"id"`
	Timestamp        time.Time       `json:"timestamp"`
	ProcessingTimeMs int64           `json:"processingTimeMs"`
	Geo              string          `json:"geo"`
	Period           Period          `json:"period"`
	Category         string          `json:"category,omitempty"`
	TotalTopics      int             `json:"totalTopics"`
	Platforms        []PlatformCount `json:"platforms"`
	TopTrends        []SummaryTopic  `json:"topTrends"`
	Errors           []SourceError   `json:"errors"`
}

// internal/domain/trend/options.go

package trend

import (
	"strings"
)

// Period is a look-back window for article filtering
type Period string

const (
	PeriodHour  Period = "1h"
	PeriodDay   Period = "24h"
	PeriodWeek  Period = "7d"
	PeriodMonth Period = "30d"
)

// ParsePeriod returns the matching Period, or PeriodDay and false for anything unknown
func ParsePeriod(s string) (Period, bool) {
	switch p := Period(strings.TrimSpace(s)); p {
	case PeriodHour, PeriodDay, PeriodWeek, PeriodMonth:
		return p, true
	}
	return PeriodDay, false
}

const (
	DefaultGeo          = "US"
	DefaultArticleLimit = 10
	DefaultTopK         = 10
	DefaultWOEID        = "1"
	DefaultSubreddit    = "all"
)

// SocialOptions carries per-platform collector parameters
type SocialOptions struct {
	TwitterWOEID    string `json:"twitterWoeid"`
	RedditSubreddit string `json:"redditSubreddit"`
	YouTubeRegion   string `json:"youtubeRegion"`
}

// Options controls one aggregation run
type Options struct {
	Sources         []SourceKind  `json:"sources"`
	Geo             string        `json:"geo"`
	Period          Period        `json:"period"`
	Category        string        `json:"category,omitempty"`
	IncludeArticles bool          `json:"includeArticles"`
	ArticleLimit    int           `json:"articleLimit"`
	TopK            int           `json:"topK"`
	Social          SocialOptions `json:"social"`
}

// DefaultOptions enables every source and article attachment
func DefaultOptions() Options {
	return Options{
		Sources:         AllSources(),
		Geo:             DefaultGeo,
		Period:          PeriodDay,
		IncludeArticles: true,
		ArticleLimit:    DefaultArticleLimit,
		TopK:            DefaultTopK,
	}.Normalize()
}

// Normalize resolves malformed or missing values to their defaults.
// Sources is deduplicated and stripped of unknown kinds but never filled in;
// an empty source list means nothing is collected.
func (o Options) Normalize() Options {
	out := o

	seen := make(map[SourceKind]bool, len(o.Sources))
	out.Sources = make([]SourceKind, 0, len(o.Sources))
	for _, s := range o.Sources {
		k, ok := ParseSourceKind(string(s))
		if !ok || seen[k] {
			continue
		}
		seen[k] = true
		out.Sources = append(out.Sources, k)
	}

	out.Geo = strings.ToUpper(strings.TrimSpace(o.Geo))
	if out.Geo == "" {
		out.Geo = DefaultGeo
	}
	out.Period, _ = ParsePeriod(string(o.Period))
	out.Category = strings.ToLower(strings.TrimSpace(o.Category))
	if out.ArticleLimit < 0 {
		out.ArticleLimit = DefaultArticleLimit
	}
	if out.TopK <= 0 {
		out.TopK = DefaultTopK
	}

	if out.Social.TwitterWOEID == "" {
		out.Social.TwitterWOEID = DefaultWOEID
	}
	if out.Social.RedditSubreddit == "" {
		out.Social.RedditSubreddit = DefaultSubreddit
	}
	if out.Social.YouTubeRegion == "" {
		out.Social.YouTubeRegion = out.Geo
	}
	return out
}

// Enabled reports whether k is in the source list
func (o Options) Enabled(k SourceKind) bool {
	for _, s := range o.Sources {
		if s == k {
			return true
		}
	}
	return false
}

// Query builds the collector parameters for this run
func (o Options) Query() Query {
	return Query{
		Geo:             o.Geo,
		TwitterWOEID:    o.Social.TwitterWOEID,
		RedditSubreddit: o.Social.RedditSubreddit,
		YouTubeRegion:   o.Social.YouTubeRegion,
	}
}

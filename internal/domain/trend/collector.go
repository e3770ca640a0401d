// internal/domain/trend/collector.go

package trend

import (
	"context"
	"errors"
)

var (
	// ErrMissingCredential is returned by collectors that have no API key or token configured
	ErrMissingCredential = errors.New("missing credential")

	// ErrUnknownSource is returned when a source has no registered collector
	ErrUnknownSource = errors.New("unknown source")

	// ErrNoCollectors is returned when an engine is built without collectors
	ErrNoCollectors = errors.New("no collectors registered")
)

// Query carries the parameters a collector may use
type Query struct {
	Geo             string
	TwitterWOEID    string
	RedditSubreddit string
	YouTubeRegion   string
	Limit           int
}

// Collector fetches raw trend records from one platform.
// Implementations must be safe for concurrent use. No results is an empty
// slice, not an error.
type Collector interface {
	// Kind identifies the platform
	Kind() SourceKind

	// Fetch returns the platform's current trending items
	Fetch(ctx context.Context, q Query) ([]Record, error)
}

// ArticleSearcher finds news articles for a free-text query
type ArticleSearcher interface {
	// Name identifies the searcher, e.g. "newsapi"
	Name() string

	// Search returns up to limit articles matching query
	Search(ctx context.Context, query string, limit int) ([]Article, error)
}

// ArticleFinder returns merged articles for a topic across searchers
type ArticleFinder interface {
	FindArticles(ctx context.Context, query string, limit int) ([]Article, error)
}

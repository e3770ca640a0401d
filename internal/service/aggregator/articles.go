// internal/service/aggregator/articles.go

package aggregator

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"trendwise/internal/domain/trend"
	"trendwise/internal/logger"
)

// ErrEmptyQuery is returned when an article search is issued without a query
var ErrEmptyQuery = errors.New("empty article query")

const maxSearcherLimit = 100

// ArticleQuery selects searchers and the result size for FetchAll
type ArticleQuery struct {
	Limit int
	// Searchers overrides the default enablement by searcher name
	Searchers map[string]bool
}

type registeredSearcher struct {
	searcher trend.ArticleSearcher
	enabled  bool
}

// ArticleService merges results from several article searchers
type ArticleService struct {
	searchers []registeredSearcher
	timeout   time.Duration
	logger    *slog.Logger
}

// NewArticleService returns a service with no searchers. Register them before first use.
func NewArticleService(l *slog.Logger, timeout time.Duration) *ArticleService {
	if l == nil {
		l = logger.Discard()
	}
	if timeout <= 0 {
		timeout = defaultCollectorTimeout
	}
	return &ArticleService{timeout: timeout, logger: l}
}

// Register adds a searcher; enabledByDefault controls whether FindArticles uses it
func (s *ArticleService) Register(searcher trend.ArticleSearcher, enabledByDefault bool) {
	if searcher == nil {
		return
	}
	s.searchers = append(s.searchers, registeredSearcher{searcher: searcher, enabled: enabledByDefault})
}

// Searchers returns registered searcher names in registration order
func (s *ArticleService) Searchers() []string {
	names := make([]string, 0, len(s.searchers))
	for _, r := range s.searchers {
		names = append(names, r.searcher.Name())
	}
	return names
}

// FindArticles searches with the default searcher set
func (s *ArticleService) FindArticles(ctx context.Context, query string, limit int) ([]trend.Article, error) {
	return s.FetchAll(ctx, query, ArticleQuery{Limit: limit})
}

// FetchAll queries the enabled searchers concurrently. A failing searcher is
// logged and skipped. Results are deduplicated by normalized title, sorted
// newest first and truncated to the limit.
func (s *ArticleService) FetchAll(ctx context.Context, query string, q ArticleQuery) ([]trend.Article, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	limit := q.Limit
	if limit <= 0 {
		limit = trend.DefaultArticleLimit
	}

	active := make([]trend.ArticleSearcher, 0, len(s.searchers))
	for _, r := range s.searchers {
		enabled := r.enabled
		if v, ok := q.Searchers[r.searcher.Name()]; ok {
			enabled = v
		}
		if enabled {
			active = append(active, r.searcher)
		}
	}

	batches := make([][]trend.Article, len(active))
	var g errgroup.Group
	for i, searcher := range active {
		i, searcher := i, searcher
		g.Go(func() error {
			sctx, cancel := context.WithTimeout(ctx, s.timeout)
			defer cancel()

			articles, err := searcher.Search(sctx, query, min(limit, maxSearcherLimit))
			if err != nil {
				s.logger.WarnContext(ctx, "article_search_failed",
					slog.String("searcher", searcher.Name()),
					slog.String("query", query),
					slog.String("error", err.Error()))
				return nil // non-fatal
			}
			batches[i] = articles
			return nil
		})
	}
	_ = g.Wait()

	return mergeArticles(batches, limit), nil
}

func mergeArticles(batches [][]trend.Article, limit int) []trend.Article {
	seen := make(map[string]bool)
	out := make([]trend.Article, 0)
	for _, batch := range batches {
		for _, a := range batch {
			key := articleKey(a.Title)
			if key == "" || seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, a)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].PublishedAt.After(out[j].PublishedAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

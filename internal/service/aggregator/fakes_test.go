package aggregator

import (
	"context"
	"sync"
	"time"

	"trendwise/internal/domain/trend"
)

type fakeCollector struct {
	kind    trend.SourceKind
	records []trend.Record
	err     error
	delay   time.Duration
	panics  bool

	mu    sync.Mutex
	calls []trend.Query
}

func (f *fakeCollector) Kind() trend.SourceKind { return f.kind }

func (f *fakeCollector) Fetch(ctx context.Context, q trend.Query) ([]trend.Record, error) {
	f.mu.Lock()
	f.calls = append(f.calls, q)
	f.mu.Unlock()

	if f.panics {
		panic("upstream exploded")
	}
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.records, nil
}

func (f *fakeCollector) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeFinder struct {
	articles []trend.Article
	err      error

	mu      sync.Mutex
	queries []string
}

func (f *fakeFinder) FindArticles(_ context.Context, query string, _ int) ([]trend.Article, error) {
	f.mu.Lock()
	f.queries = append(f.queries, query)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return append([]trend.Article(nil), f.articles...), nil
}

type fakeSearcher struct {
	name     string
	articles []trend.Article
	err      error
}

func (f *fakeSearcher) Name() string { return f.name }

func (f *fakeSearcher) Search(_ context.Context, _ string, limit int) ([]trend.Article, error) {
	if f.err != nil {
		return nil, f.err
	}
	if len(f.articles) > limit {
		return f.articles[:limit], nil
	}
	return f.articles, nil
}

func googleRecord(name, traffic string, related int) trend.Record {
	return trend.Record{Name: name, Source: trend.SourceGoogleTrends, Traffic: traffic, RelatedArticles: related}
}

func twitterRecord(name string, volume float64) trend.Record {
	return trend.Record{Name: name, Source: trend.SourceTwitter, Metrics: map[string]float64{trend.MetricVolume: volume}}
}

func redditRecord(name string, score, comments float64) trend.Record {
	return trend.Record{Name: name, Source: trend.SourceReddit, Metrics: map[string]float64{
		trend.MetricScore:    score,
		trend.MetricComments: comments,
	}}
}

func youtubeRecord(name string, views, likes float64) trend.Record {
	return trend.Record{Name: name, Source: trend.SourceYouTube, Metrics: map[string]float64{
		trend.MetricViews: views,
		trend.MetricLikes: likes,
	}}
}

func ok(records ...trend.Record) trend.SourceResult {
	return trend.SourceResult{Records: records}
}

package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trendwise/internal/adapter/social"
	"trendwise/internal/adapter/storage"
	"trendwise/internal/domain/trend"
	"trendwise/internal/service/aggregator"
)

type stubCollector struct {
	kind    trend.SourceKind
	records []trend.Record
	err     error

	mu    sync.Mutex
	calls int
}

func (c *stubCollector) Kind() trend.SourceKind { return c.kind }

func (c *stubCollector) Fetch(_ context.Context, _ trend.Query) ([]trend.Record, error) {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()
	return c.records, c.err
}

func (c *stubCollector) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

type stubSearcher struct {
	name     string
	articles []trend.Article

	mu    sync.Mutex
	calls int
}

func (s *stubSearcher) Name() string { return s.name }

func (s *stubSearcher) Search(_ context.Context, _ string, _ int) ([]trend.Article, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	return s.articles, nil
}

func (s *stubSearcher) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type stubHashtags struct {
	posts []social.HashtagPost
	err   error
}

func (s stubHashtags) SearchHashtag(context.Context, string, int) ([]social.HashtagPost, error) {
	return s.posts, s.err
}

type stubHistory struct {
	snapshots []storage.Snapshot
}

func (s stubHistory) Recent(context.Context, int) ([]storage.Snapshot, error) {
	return s.snapshots, nil
}

type stubLatest struct {
	summary trend.Summary
	ok      bool
}

func (s stubLatest) Latest() (trend.Summary, bool) { return s.summary, s.ok }

type fixture struct {
	google  *stubCollector
	twitter *stubCollector
	reddit  *stubCollector
	news    *stubSearcher
	serp    *stubSearcher
	deps    TrendDeps
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	now := time.Now().UTC()

	f := &fixture{
		google: &stubCollector{kind: trend.SourceGoogleTrends, records: []trend.Record{
			{Name: "Championship Game Tonight", Traffic: "500K+", RelatedArticles: 3},
		}},
		twitter: &stubCollector{kind: trend.SourceTwitter, records: []trend.Record{
			{Name: "championship game tonight", Metrics: map[string]float64{trend.MetricVolume: 12000}},
			{Name: "Budget Vote", Metrics: map[string]float64{trend.MetricVolume: 800}},
		}},
		reddit: &stubCollector{kind: trend.SourceReddit, err: errors.New("Reddit API returned status code 503")},
		news: &stubSearcher{name: "newsapi", articles: []trend.Article{
			{Title: "Fresh story", URL: "https://news.example/1", PublishedAt: now.Add(-time.Hour)},
			{Title: "Old story", URL: "https://news.example/2", PublishedAt: now.Add(-72 * time.Hour)},
		}},
		serp: &stubSearcher{name: "serpapi", articles: []trend.Article{
			{Title: "Serp story", URL: "https://serp.example/1", PublishedAt: now},
		}},
	}

	articles := aggregator.NewArticleService(nil, time.Second)
	articles.Register(f.news, true)
	articles.Register(f.serp, false)

	engine, err := aggregator.NewEngine(
		[]trend.Collector{f.google, f.twitter, f.reddit},
		aggregator.WithArticles(articles),
	)
	require.NoError(t, err)

	f.deps = TrendDeps{Engine: engine, Articles: articles}
	return f
}

func (f *fixture) router() http.Handler {
	h := NewTrendHandler(f.deps)
	r := chi.NewRouter()
	r.Get("/", h.GetTrends)
	r.Get("/google", h.GetGoogleTrends)
	r.Get("/social", h.GetSocialTrends)
	r.Get("/articles/{query}", h.GetArticles)
	r.Get("/categories", h.GetCategories)
	r.Get("/category/{category}", h.GetCategoryTrends)
	r.Get("/summary", h.GetSummary)
	r.Post("/analyze", h.Analyze)
	r.Get("/hashtags/{tag}", h.GetHashtag)
	r.Get("/history", h.GetHistory)
	r.Get("/latest", h.GetLatest)
	return r
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

type resultBody struct {
	Success bool          `json:"success"`
	Data    trend.Result  `json:"data"`
	Summary trend.Summary `json:"summary"`
	Meta    responseMeta  `json:"meta"`
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestGetTrends(t *testing.T) {
	f := newFixture(t)
	rec := do(t, f.router(), http.MethodGet, "/?geo=us", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	body := decode[resultBody](t, rec)
	assert.True(t, body.Success)
	assert.Equal(t, "US", body.Meta.Geo)
	require.Len(t, body.Meta.Errors, 1)
	assert.Equal(t, "Reddit", body.Meta.Errors[0].Source)

	require.Len(t, body.Data.Topics, 2)
	top := body.Data.Topics[0]
	assert.Equal(t, "Championship Game Tonight", top.Name)
	assert.ElementsMatch(t, []trend.SourceKind{trend.SourceGoogleTrends, trend.SourceTwitter}, top.Platforms)

	// articles older than the 24h window are dropped
	require.Len(t, top.Articles, 1)
	assert.Equal(t, "Fresh story", top.Articles[0].Title)

	require.NotEmpty(t, body.Summary.TopTrends)
	assert.Equal(t, 2, body.Summary.TotalTopics)
	assert.Equal(t, 1, body.Summary.TopTrends[0].ArticleCount)
}

func TestGetTrendsWithoutSocialMedia(t *testing.T) {
	f := newFixture(t)
	rec := do(t, f.router(), http.MethodGet, "/?includeSocialMedia=false&includeArticles=false", "")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode[resultBody](t, rec)
	assert.Equal(t, []trend.SourceKind{trend.SourceGoogleTrends}, body.Meta.Sources)
	assert.Empty(t, body.Meta.Errors)
	assert.Zero(t, f.twitter.callCount())
	assert.Zero(t, f.news.callCount())
}

func TestGetCategoryTrends(t *testing.T) {
	f := newFixture(t)
	rec := do(t, f.router(), http.MethodGet, "/category/sports?includeArticles=false", "")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode[resultBody](t, rec)
	assert.Equal(t, "sports", body.Meta.Category)
	require.Len(t, body.Data.Topics, 1)
	assert.Equal(t, "Championship Game Tonight", body.Data.Topics[0].Name)

	rec = do(t, f.router(), http.MethodGet, "/category/gardening?includeArticles=false", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body = decode[resultBody](t, rec)
	assert.Empty(t, body.Data.Topics)
}

func TestGetCategories(t *testing.T) {
	f := newFixture(t)
	rec := do(t, f.router(), http.MethodGet, "/categories", "")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode[struct {
		Data map[string][]string `json:"data"`
	}](t, rec)
	assert.Len(t, body.Data, 5)
	assert.Contains(t, body.Data["politics"], "vote")
}

func TestGetSummarySkipsArticles(t *testing.T) {
	f := newFixture(t)
	rec := do(t, f.router(), http.MethodGet, "/summary", "")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode[struct {
		Success bool          `json:"success"`
		Data    trend.Summary `json:"data"`
	}](t, rec)
	assert.True(t, body.Success)
	assert.Equal(t, 2, body.Data.TotalTopics)
	assert.Zero(t, f.news.callCount())
}

func TestGetGoogleTrends(t *testing.T) {
	f := newFixture(t)
	rec := do(t, f.router(), http.MethodGet, "/google?geo=gb", "")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode[struct {
		Data []trend.Record `json:"data"`
		Meta responseMeta   `json:"meta"`
	}](t, rec)
	require.Len(t, body.Data, 1)
	assert.Equal(t, trend.SourceGoogleTrends, body.Data[0].Source)
	assert.Equal(t, "GB", body.Meta.Geo)
}

func TestGetGoogleTrendsFailure(t *testing.T) {
	f := newFixture(t)
	f.google.err = errors.New("Google Trends API returned status code 429")

	rec := do(t, f.router(), http.MethodGet, "/google", "")
	require.Equal(t, http.StatusBadGateway, rec.Code)

	body := decode[errorBody](t, rec)
	assert.False(t, body.Success)
	assert.Equal(t, "Failed to fetch Google Trends", body.Error)
	assert.Contains(t, body.Message, "429")
}

func TestGetSocialTrends(t *testing.T) {
	f := newFixture(t)
	rec := do(t, f.router(), http.MethodGet, "/social?platforms=twitter,reddit", "")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode[struct {
		Data map[trend.SourceKind][]trend.Record `json:"data"`
		Meta responseMeta                        `json:"meta"`
	}](t, rec)
	assert.Len(t, body.Data[trend.SourceTwitter], 2)
	assert.Empty(t, body.Data[trend.SourceReddit])
	require.Len(t, body.Meta.Errors, 1)
	assert.Equal(t, "Reddit", body.Meta.Errors[0].Source)
	assert.Zero(t, f.google.callCount())

	rec = do(t, f.router(), http.MethodGet, "/social?platforms=twitter,myspace", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, f.router(), http.MethodGet, "/social?platforms=google", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetArticles(t *testing.T) {
	f := newFixture(t)
	rec := do(t, f.router(), http.MethodGet, "/articles/climate%20change?limit=2&useSerpAPI=true", "")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode[struct {
		Data []trend.Article `json:"data"`
	}](t, rec)
	require.Len(t, body.Data, 2)
	assert.Equal(t, "Serp story", body.Data[0].Title)
	assert.Equal(t, "Fresh story", body.Data[1].Title)
	assert.Equal(t, 1, f.serp.callCount())
}

func TestGetArticlesEmptyQuery(t *testing.T) {
	f := newFixture(t)
	rec := do(t, f.router(), http.MethodGet, "/articles/%20", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAnalyze(t *testing.T) {
	f := newFixture(t)
	payload := `{"topics":["a","b","c","d","e","f","g"],"options":{"articleLimit":1,"useNewsAPI":false,"useSerpAPI":true}}`
	rec := do(t, f.router(), http.MethodPost, "/analyze", payload)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode[struct {
		Data []topicAnalysis `json:"data"`
	}](t, rec)
	require.Len(t, body.Data, aggregator.MaxArticleTopics)
	assert.Equal(t, "a", body.Data[0].Topic)
	require.Len(t, body.Data[0].Articles, 1)
	assert.Equal(t, "Serp story", body.Data[0].Articles[0].Title)
	assert.Zero(t, f.news.callCount())
}

func TestAnalyzeReportsPerTopicErrors(t *testing.T) {
	f := newFixture(t)
	rec := do(t, f.router(), http.MethodPost, "/analyze", `{"topics":["ok","  "]}`)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode[struct {
		Data []topicAnalysis `json:"data"`
	}](t, rec)
	require.Len(t, body.Data, 2)
	assert.Empty(t, body.Data[0].Error)
	assert.Equal(t, aggregator.ErrEmptyQuery.Error(), body.Data[1].Error)
	assert.Empty(t, body.Data[1].Articles)
}

func TestAnalyzeValidation(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, http.StatusBadRequest, do(t, f.router(), http.MethodPost, "/analyze", `{"topics":[]}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, f.router(), http.MethodPost, "/analyze", `{"topics":`).Code)
}

func TestGetHashtag(t *testing.T) {
	f := newFixture(t)
	rec := do(t, f.router(), http.MethodGet, "/hashtags/golang", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	f.deps.Hashtags = stubHashtags{posts: []social.HashtagPost{
		{ID: "1", Engagement: 12},
		{ID: "2", Engagement: 30},
	}}
	rec = do(t, f.router(), http.MethodGet, "/hashtags/%23golang", "")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode[struct {
		Data hashtagReport `json:"data"`
	}](t, rec)
	assert.Equal(t, "golang", body.Data.Tag)
	assert.Equal(t, 2, body.Data.Count)
	assert.Equal(t, 42, body.Data.TotalEngagement)

	f.deps.Hashtags = stubHashtags{err: trend.ErrMissingCredential}
	rec = do(t, f.router(), http.MethodGet, "/hashtags/golang", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	f.deps.Hashtags = stubHashtags{err: errors.New("twitter recent search: boom")}
	rec = do(t, f.router(), http.MethodGet, "/hashtags/golang", "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestGetHistory(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, http.StatusServiceUnavailable, do(t, f.router(), http.MethodGet, "/history", "").Code)

	f.deps.History = stubHistory{snapshots: []storage.Snapshot{{ID: "s1"}, {ID: "s2"}}}
	rec := do(t, f.router(), http.MethodGet, "/history?limit=2", "")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode[struct {
		Data []storage.Snapshot `json:"data"`
	}](t, rec)
	require.Len(t, body.Data, 2)
	assert.Equal(t, "s1", body.Data[0].ID)
}

func TestGetLatest(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, http.StatusServiceUnavailable, do(t, f.router(), http.MethodGet, "/latest", "").Code)

	f.deps.Watcher = stubLatest{}
	assert.Equal(t, http.StatusNotFound, do(t, f.router(), http.MethodGet, "/latest", "").Code)

	f.deps.Watcher = stubLatest{summary: trend.Summary{ID: "run-9"}, ok: true}
	rec := do(t, f.router(), http.MethodGet, "/latest", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[struct {
		Data trend.Summary `json:"data"`
	}](t, rec)
	assert.Equal(t, "run-9", body.Data.ID)
}

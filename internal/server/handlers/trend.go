// internal/server/handlers/trend.go

package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"trendwise/internal/adapter/social"
	"trendwise/internal/adapter/storage"
	"trendwise/internal/domain/trend"
	"trendwise/internal/logger"
	"trendwise/internal/service/aggregator"
)

const (
	maxAnalyzeBody     = 1 << 20
	defaultHashtagMax  = 50
	defaultHistorySize = 20
)

// Aggregator runs full aggregations and single-source collection
type Aggregator interface {
	Aggregate(ctx context.Context, opts trend.Options) (*trend.Result, error)
	Collect(ctx context.Context, kinds []trend.SourceKind, q trend.Query) (map[trend.SourceKind]trend.SourceResult, []trend.SourceError, time.Duration)
}

// ArticleSearcher searches articles across the configured searchers
type ArticleSearcher interface {
	FetchAll(ctx context.Context, query string, q aggregator.ArticleQuery) ([]trend.Article, error)
}

// HashtagSearcher searches recent posts for a hashtag
type HashtagSearcher interface {
	SearchHashtag(ctx context.Context, tag string, maxResults int) ([]social.HashtagPost, error)
}

// SnapshotLister lists stored summaries, newest first
type SnapshotLister interface {
	Recent(ctx context.Context, limit int) ([]storage.Snapshot, error)
}

// LatestSource exposes the last scheduled summary
type LatestSource interface {
	Latest() (trend.Summary, bool)
}

// TrendDeps collects the handler dependencies. Only Engine is required.
type TrendDeps struct {
	Engine   Aggregator
	Articles ArticleSearcher
	Hashtags HashtagSearcher
	History  SnapshotLister
	Watcher  LatestSource
	Defaults trend.Options
	Logger   *slog.Logger
}

// TrendHandler handles trend-related HTTP requests
type TrendHandler struct {
	engine   Aggregator
	articles ArticleSearcher
	hashtags HashtagSearcher
	history  SnapshotLister
	watcher  LatestSource
	defaults trend.Options
	logger   *slog.Logger
}

// NewTrendHandler creates a new trend handler
func NewTrendHandler(deps TrendDeps) *TrendHandler {
	l := deps.Logger
	if l == nil {
		l = logger.Discard()
	}
	defaults := deps.Defaults
	if len(defaults.Sources) == 0 {
		defaults = trend.DefaultOptions()
	}
	return &TrendHandler{
		engine:   deps.Engine,
		articles: deps.Articles,
		hashtags: deps.Hashtags,
		history:  deps.History,
		watcher:  deps.Watcher,
		defaults: defaults.Normalize(),
		logger:   l,
	}
}

// GetTrends aggregates every enabled source and returns topics plus a summary
func (h *TrendHandler) GetTrends(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	opts := h.options(q)

	sources := make([]trend.SourceKind, 0, len(opts.Sources))
	for _, k := range opts.Sources {
		if k == trend.SourceGoogleTrends && !boolParam(q, "includeGoogleTrends", true) {
			continue
		}
		if k != trend.SourceGoogleTrends && !boolParam(q, "includeSocialMedia", true) {
			continue
		}
		sources = append(sources, k)
	}
	opts.Sources = sources

	h.aggregate(w, r, opts)
}

// GetCategoryTrends aggregates and keeps only topics matching the category
func (h *TrendHandler) GetCategoryTrends(w http.ResponseWriter, r *http.Request) {
	category, _ := url.PathUnescape(chi.URLParam(r, "category"))
	if strings.TrimSpace(category) == "" {
		respondWithError(w, http.StatusBadRequest, "Missing category", nil)
		return
	}

	opts := h.options(r.URL.Query())
	opts.Category = category
	h.aggregate(w, r, opts.Normalize())
}

// GetCategories lists the known categories and their keywords
func (h *TrendHandler) GetCategories(w http.ResponseWriter, r *http.Request) {
	out := make(map[string][]string)
	for _, c := range aggregator.Categories() {
		out[c] = aggregator.CategoryKeywords(c)
	}
	respondOK(w, out, nil, nil)
}

// GetSummary aggregates without articles and returns only the summary
func (h *TrendHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	opts := h.options(r.URL.Query())
	opts.IncludeArticles = false

	res, err := h.engine.Aggregate(r.Context(), opts)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to aggregate trends", err)
		return
	}
	summary := aggregator.Summarize(res, opts.TopK)
	respondOK(w, summary, nil, resultMeta(res, opts))
}

// GetGoogleTrends returns the raw macro-trend records for a region
func (h *TrendHandler) GetGoogleTrends(w http.ResponseWriter, r *http.Request) {
	opts := h.options(r.URL.Query())
	kinds := []trend.SourceKind{trend.SourceGoogleTrends}

	started := time.Now()
	raw, errs, _ := h.engine.Collect(r.Context(), kinds, opts.Query())
	if len(errs) > 0 {
		respondWithError(w, http.StatusBadGateway, "Failed to fetch Google Trends", errors.New(errs[0].Message))
		return
	}

	respondOK(w, raw[trend.SourceGoogleTrends].Records, nil, &responseMeta{
		Timestamp:        time.Now().UTC(),
		ProcessingTimeMs: time.Since(started).Milliseconds(),
		Geo:              opts.Geo,
		Sources:          kinds,
		Errors:           errs,
	})
}

// GetSocialTrends returns raw records per social platform. A failing
// platform is reported in meta.errors.
func (h *TrendHandler) GetSocialTrends(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	opts := h.options(q)

	kinds := []trend.SourceKind{trend.SourceTwitter, trend.SourceReddit, trend.SourceYouTube}
	if p := q.Get("platforms"); p != "" {
		parsed, err := parsePlatforms(p)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid platforms", err)
			return
		}
		kinds = parsed
	}

	started := time.Now()
	raw, errs, _ := h.engine.Collect(r.Context(), kinds, opts.Query())

	data := make(map[trend.SourceKind][]trend.Record, len(kinds))
	for _, k := range kinds {
		data[k] = raw[k].Records
	}
	respondOK(w, data, nil, &responseMeta{
		Timestamp:        time.Now().UTC(),
		ProcessingTimeMs: time.Since(started).Milliseconds(),
		Geo:              opts.Geo,
		Sources:          kinds,
		Errors:           errs,
	})
}

// GetArticles searches articles for a free-text query
func (h *TrendHandler) GetArticles(w http.ResponseWriter, r *http.Request) {
	if h.articles == nil {
		respondWithError(w, http.StatusServiceUnavailable, "Article search is not configured", nil)
		return
	}
	query, err := url.PathUnescape(chi.URLParam(r, "query"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid query", err)
		return
	}

	q := r.URL.Query()
	aq := aggregator.ArticleQuery{
		Limit:     intParam(q, "limit", h.defaults.ArticleLimit),
		Searchers: searcherOverrides(q),
	}

	started := time.Now()
	articles, err := h.articles.FetchAll(r.Context(), query, aq)
	if errors.Is(err, aggregator.ErrEmptyQuery) {
		respondWithError(w, http.StatusBadRequest, "Missing query", err)
		return
	}
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to fetch articles", err)
		return
	}
	respondOK(w, articles, nil, &responseMeta{
		Timestamp:        time.Now().UTC(),
		ProcessingTimeMs: time.Since(started).Milliseconds(),
		Errors:           []trend.SourceError{},
	})
}

type analyzeRequest struct {
	Topics  []string `json:"topics"`
	Options struct {
		ArticleLimit  int   `json:"articleLimit"`
		UseNewsAPI    *bool `json:"useNewsAPI"`
		UseGoogleNews *bool `json:"useGoogleNews"`
		UseSerpAPI    *bool `json:"useSerpAPI"`
	} `json:"options"`
}

type topicAnalysis struct {
	Topic    string          `json:"topic"`
	Articles []trend.Article `json:"articles"`
	Error    string          `json:"error,omitempty"`
}

// Analyze fetches articles for up to MaxArticleTopics submitted topics, one at a time
func (h *TrendHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	if h.articles == nil {
		respondWithError(w, http.StatusServiceUnavailable, "Article search is not configured", nil)
		return
	}

	var req analyzeRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxAnalyzeBody)).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if len(req.Topics) == 0 {
		respondWithError(w, http.StatusBadRequest, "Topics array is required", nil)
		return
	}

	aq := aggregator.ArticleQuery{Limit: req.Options.ArticleLimit, Searchers: map[string]bool{}}
	if aq.Limit <= 0 {
		aq.Limit = h.defaults.ArticleLimit
	}
	for name, v := range map[string]*bool{
		"newsapi":    req.Options.UseNewsAPI,
		"googlenews": req.Options.UseGoogleNews,
		"serpapi":    req.Options.UseSerpAPI,
	} {
		if v != nil {
			aq.Searchers[name] = *v
		}
	}

	started := time.Now()
	topics := req.Topics[:min(len(req.Topics), aggregator.MaxArticleTopics)]
	results := make([]topicAnalysis, 0, len(topics))
	for _, topic := range topics {
		entry := topicAnalysis{Topic: topic, Articles: []trend.Article{}}
		articles, err := h.articles.FetchAll(r.Context(), topic, aq)
		if err != nil {
			entry.Error = err.Error()
		} else {
			entry.Articles = articles
		}
		results = append(results, entry)
	}

	respondOK(w, results, nil, &responseMeta{
		Timestamp:        time.Now().UTC(),
		ProcessingTimeMs: time.Since(started).Milliseconds(),
		Errors:           []trend.SourceError{},
	})
}

type hashtagReport struct {
	Tag             string               `json:"tag"`
	Count           int                  `json:"count"`
	TotalEngagement int                  `json:"totalEngagement"`
	Posts           []social.HashtagPost `json:"posts"`
}

// GetHashtag returns recent posts and their engagement for a hashtag
func (h *TrendHandler) GetHashtag(w http.ResponseWriter, r *http.Request) {
	if h.hashtags == nil {
		respondWithError(w, http.StatusServiceUnavailable, "Hashtag search is not configured", nil)
		return
	}
	tag, _ := url.PathUnescape(chi.URLParam(r, "tag"))
	tag = strings.TrimPrefix(strings.TrimSpace(tag), "#")
	if tag == "" {
		respondWithError(w, http.StatusBadRequest, "Missing hashtag", nil)
		return
	}

	posts, err := h.hashtags.SearchHashtag(r.Context(), tag, intParam(r.URL.Query(), "max", defaultHashtagMax))
	if errors.Is(err, trend.ErrMissingCredential) {
		respondWithError(w, http.StatusServiceUnavailable, "Hashtag search is not configured", err)
		return
	}
	if err != nil {
		respondWithError(w, http.StatusBadGateway, "Failed to search hashtag", err)
		return
	}

	report := hashtagReport{Tag: tag, Count: len(posts), Posts: posts}
	for _, p := range posts {
		report.TotalEngagement += p.Engagement
	}
	respondOK(w, report, nil, nil)
}

// GetHistory lists stored snapshots
func (h *TrendHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		respondWithError(w, http.StatusServiceUnavailable, "Snapshot storage is disabled", nil)
		return
	}
	snapshots, err := h.history.Recent(r.Context(), intParam(r.URL.Query(), "limit", defaultHistorySize))
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to load history", err)
		return
	}
	respondOK(w, snapshots, nil, nil)
}

// GetLatest returns the summary of the last scheduled run
func (h *TrendHandler) GetLatest(w http.ResponseWriter, r *http.Request) {
	if h.watcher == nil {
		respondWithError(w, http.StatusServiceUnavailable, "Scheduler is disabled", nil)
		return
	}
	summary, ok := h.watcher.Latest()
	if !ok {
		respondWithError(w, http.StatusNotFound, "No scheduled run has completed yet", nil)
		return
	}
	respondOK(w, summary, nil, nil)
}

func (h *TrendHandler) aggregate(w http.ResponseWriter, r *http.Request, opts trend.Options) {
	res, err := h.engine.Aggregate(r.Context(), opts)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to aggregate trends", err)
		return
	}
	summary := aggregator.Summarize(res, opts.TopK)
	respondOK(w, res, &summary, resultMeta(res, opts))
}

// options overlays query parameters on the configured defaults
func (h *TrendHandler) options(q url.Values) trend.Options {
	opts := h.defaults
	opts.Sources = append([]trend.SourceKind(nil), h.defaults.Sources...)

	if geo := q.Get("geo"); geo != "" {
		opts.Geo = geo
		if q.Get("youtubeRegion") == "" {
			opts.Social.YouTubeRegion = ""
		}
	}
	if p := q.Get("period"); p != "" {
		opts.Period = trend.Period(p)
	}
	opts.IncludeArticles = boolParam(q, "includeArticles", opts.IncludeArticles)
	opts.ArticleLimit = intParam(q, "articleLimit", opts.ArticleLimit)
	opts.TopK = intParam(q, "topK", opts.TopK)
	if v := q.Get("twitterWoeid"); v != "" {
		opts.Social.TwitterWOEID = v
	}
	if v := q.Get("redditSubreddit"); v != "" {
		opts.Social.RedditSubreddit = v
	}
	if v := q.Get("youtubeRegion"); v != "" {
		opts.Social.YouTubeRegion = v
	}
	return opts.Normalize()
}

func resultMeta(res *trend.Result, opts trend.Options) *responseMeta {
	return &responseMeta{
		Timestamp:        res.Timestamp,
		ProcessingTimeMs: res.ProcessingTimeMs,
		TotalTimeMs:      res.TotalTimeMs,
		Geo:              res.Geo,
		Period:           res.Period,
		Category:         res.Category,
		Sources:          opts.Sources,
		Errors:           res.Errors,
	}
}

func parsePlatforms(s string) ([]trend.SourceKind, error) {
	out := make([]trend.SourceKind, 0, 3)
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		k, ok := trend.ParseSourceKind(p)
		if !ok || k == trend.SourceGoogleTrends {
			return nil, fmt.Errorf("unknown platform %q", p)
		}
		out = append(out, k)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no platforms given")
	}
	return out, nil
}

func searcherOverrides(q url.Values) map[string]bool {
	out := make(map[string]bool)
	for param, name := range map[string]string{
		"useNewsAPI":    "newsapi",
		"useGoogleNews": "googlenews",
		"useSerpAPI":    "serpapi",
	} {
		if q.Get(param) == "" {
			continue
		}
		out[name] = boolParam(q, param, false)
	}
	return out
}

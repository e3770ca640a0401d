// internal/service/aggregator/engine.go

package aggregator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"trendwise/internal/domain/trend"
	"trendwise/internal/logger"
	"trendwise/internal/metrics"
	"trendwise/internal/obs"
)

const (
	// MaxArticleTopics caps how many of the top topics get articles attached
	MaxArticleTopics = 5

	defaultCollectorTimeout = 10 * time.Second
)

// Engine fans out to collectors, merges their records into ranked topics
// and optionally attaches articles. It keeps no state between runs.
type Engine struct {
	collectors map[trend.SourceKind]trend.Collector
	articles   trend.ArticleFinder

	defaultTimeout time.Duration
	timeouts       map[trend.SourceKind]time.Duration

	logger  *slog.Logger
	metrics *metrics.Metrics
	tracer  trace.Tracer
	now     func() time.Time
}

// Option configures an Engine
type Option func(*Engine)

// WithArticles sets the finder used for article attachment
func WithArticles(f trend.ArticleFinder) Option {
	return func(e *Engine) {
		e.articles = f
	}
}

// WithLogger sets the engine logger
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithMetrics sets the Prometheus recorder
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithTimeout sets the per-call deadline for every collector without its own
func WithTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.defaultTimeout = d
		}
	}
}

// WithSourceTimeout overrides the deadline for one source
func WithSourceTimeout(kind trend.SourceKind, d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.timeouts[kind] = d
		}
	}
}

// WithClock replaces time.Now for timestamps and window cutoffs
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// NewEngine builds an engine over the given collectors. A later collector
// of the same kind replaces an earlier one.
func NewEngine(collectors []trend.Collector, opts ...Option) (*Engine, error) {
	e := &Engine{
		collectors:     make(map[trend.SourceKind]trend.Collector),
		defaultTimeout: defaultCollectorTimeout,
		timeouts:       make(map[trend.SourceKind]time.Duration),
		logger:         logger.Discard(),
		tracer:         obs.Tracer("aggregator"),
		now:            time.Now,
	}
	for _, c := range collectors {
		if c == nil {
			continue
		}
		e.collectors[c.Kind()] = c
	}
	if len(e.collectors) == 0 {
		return nil, trend.ErrNoCollectors
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Sources lists the registered source kinds in merge order
func (e *Engine) Sources() []trend.SourceKind {
	out := make([]trend.SourceKind, 0, len(e.collectors))
	for _, k := range trend.AllSources() {
		if _, ok := e.collectors[k]; ok {
			out = append(out, k)
		}
	}
	return out
}

// Aggregate runs one full aggregation. Collector failures are recorded in
// Result.Errors and never fail the call; an error is returned only for a
// nil engine or a context that is already done.
func (e *Engine) Aggregate(ctx context.Context, opts trend.Options) (*trend.Result, error) {
	if e == nil || len(e.collectors) == 0 {
		return nil, trend.ErrNoCollectors
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("aggregate: %w", err)
	}
	opts = opts.Normalize()

	ctx, span := e.tracer.Start(ctx, "trend.aggregate", trace.WithAttributes(
		attribute.String("geo", opts.Geo),
		attribute.String("period", string(opts.Period)),
		attribute.Int("sources", len(opts.Sources)),
	))
	defer span.End()

	started := time.Now()
	res := &trend.Result{
		ID:        uuid.NewString(),
		Timestamp: e.now().UTC(),
		Geo:       opts.Geo,
		Period:    opts.Period,
		Category:  opts.Category,
	}

	raw, errs, fanOut := e.Collect(ctx, opts.Sources, opts.Query())
	res.RawBySource = raw
	res.Errors = errs
	res.ProcessingTimeMs = fanOut.Milliseconds()

	// Articles go to the overall leaders; the category filter runs afterwards.
	topics := Merge(raw)
	if opts.IncludeArticles && opts.ArticleLimit > 0 {
		e.attachArticles(ctx, topics, opts.ArticleLimit)
	}
	if opts.Category != "" {
		topics = Classify(topics, opts.Category)
	}
	ApplyWindow(topics, opts.Period, e.now())
	res.Topics = topics

	total := time.Since(started)
	res.TotalTimeMs = total.Milliseconds()
	e.metrics.ObserveAggregate(total, len(topics))
	span.SetAttributes(attribute.Int("topics", len(topics)), attribute.Int("errors", len(errs)))

	e.logger.InfoContext(ctx, "aggregate_completed",
		slog.String("id", res.ID),
		slog.Int("topics", len(topics)),
		slog.Int("errors", len(errs)),
		slog.Int64("processing_ms", res.ProcessingTimeMs),
		slog.Int64("total_ms", res.TotalTimeMs))
	return res, nil
}

// Collect calls every listed source concurrently and waits for all of them.
// Each goroutine owns one result slot; failures become SourceError entries
// in the order the sources were listed. The duration covers issue to join.
func (e *Engine) Collect(ctx context.Context, kinds []trend.SourceKind, q trend.Query) (map[trend.SourceKind]trend.SourceResult, []trend.SourceError, time.Duration) {
	results := make([]trend.SourceResult, len(kinds))
	errs := make([]error, len(kinds))

	started := time.Now()
	var g errgroup.Group
	for i, kind := range kinds {
		i, kind := i, kind
		g.Go(func() error {
			results[i], errs[i] = e.fetchOne(ctx, kind, q)
			return nil // failures are data
		})
	}
	_ = g.Wait()
	elapsed := time.Since(started)

	raw := make(map[trend.SourceKind]trend.SourceResult, len(kinds))
	sourceErrs := make([]trend.SourceError, 0)
	for i, kind := range kinds {
		raw[kind] = results[i]
		if errs[i] != nil {
			sourceErrs = append(sourceErrs, trend.SourceError{Source: kind.Label(), Message: errs[i].Error()})
		}
	}
	return raw, sourceErrs, elapsed
}

// FetchSource runs a single collector and returns its error directly
func (e *Engine) FetchSource(ctx context.Context, kind trend.SourceKind, q trend.Query) (trend.SourceResult, error) {
	return e.fetchOne(ctx, kind, q)
}

func (e *Engine) fetchOne(ctx context.Context, kind trend.SourceKind, q trend.Query) (trend.SourceResult, error) {
	res := trend.SourceResult{Records: []trend.Record{}}

	c, ok := e.collectors[kind]
	if !ok {
		err := fmt.Errorf("%s: %w", kind, trend.ErrUnknownSource)
		res.Error = err.Error()
		return res, err
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout(kind))
	defer cancel()
	ctx, span := e.tracer.Start(ctx, "collector.fetch", trace.WithAttributes(attribute.String("source", string(kind))))
	defer span.End()

	started := time.Now()
	records, err := safeFetch(ctx, c, q)
	elapsed := time.Since(started)
	res.DurationMs = elapsed.Milliseconds()
	e.metrics.ObserveSource(string(kind), elapsed, err)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		e.logger.WarnContext(ctx, "collector_failed",
			slog.String("source", string(kind)),
			slog.Int64("duration_ms", res.DurationMs),
			slog.String("error", err.Error()))
		res.Error = err.Error()
		return res, err
	}

	for _, r := range records {
		r.Source = kind
		res.Records = append(res.Records, r)
	}
	e.logger.DebugContext(ctx, "collector_completed",
		slog.String("source", string(kind)),
		slog.Int("records", len(res.Records)),
		slog.Int64("duration_ms", res.DurationMs))
	return res, nil
}

func safeFetch(ctx context.Context, c trend.Collector, q trend.Query) (records []trend.Record, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("collector panic: %v", r)
		}
	}()
	return c.Fetch(ctx, q)
}

// attachArticles fetches articles for the leading topics one at a time.
// A failed lookup leaves that topic without articles.
func (e *Engine) attachArticles(ctx context.Context, topics []trend.Topic, limit int) {
	if e.articles == nil {
		return
	}
	n := min(MaxArticleTopics, len(topics))
	for i := 0; i < n; i++ {
		if ctx.Err() != nil {
			return
		}
		articles, err := e.articles.FindArticles(ctx, topics[i].Name, limit)
		if err != nil {
			e.logger.WarnContext(ctx, "article_fetch_failed",
				slog.String("topic", topics[i].Name),
				slog.String("error", err.Error()))
			topics[i].Articles = []trend.Article{}
			continue
		}
		if articles == nil {
			articles = []trend.Article{}
		}
		topics[i].Articles = articles
	}
}

func (e *Engine) timeout(kind trend.SourceKind) time.Duration {
	if d, ok := e.timeouts[kind]; ok {
		return d
	}
	return e.defaultTimeout
}

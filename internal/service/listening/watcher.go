// internal/service/listening/watcher.go

package listening

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"trendwise/internal/domain/trend"
	"trendwise/internal/logger"
	"trendwise/internal/metrics"
	"trendwise/internal/service/aggregator"
)

// DefaultSpec runs the watcher every quarter hour
const DefaultSpec = "@every 15m"

// Aggregator runs one aggregation
type Aggregator interface {
	Aggregate(ctx context.Context, opts trend.Options) (*trend.Result, error)
}

// SummaryStore persists run summaries
type SummaryStore interface {
	SaveSummary(ctx context.Context, s trend.Summary) error
}

// SummaryPublisher announces run summaries and detected topics
type SummaryPublisher interface {
	PublishSummary(ctx context.Context, s trend.Summary) error
	PublishDetected(ctx context.Context, s trend.Summary, threshold int) (int, error)
}

// WatcherConfig contains configuration for the scheduled watcher
type WatcherConfig struct {
	Spec           string
	Options        trend.Options
	RunTimeout     time.Duration
	TrendThreshold int
	RunOnStart     bool
}

// Watcher periodically aggregates, stores and publishes trend summaries
type Watcher struct {
	aggregator Aggregator
	store      SummaryStore
	publisher  SummaryPublisher
	config     WatcherConfig
	logger     *slog.Logger
	metrics    *metrics.Metrics

	cron    *cron.Cron
	entryID cron.EntryID

	mu     sync.RWMutex
	latest *trend.Summary

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewWatcher creates a watcher. store and publisher may be nil.
func NewWatcher(
	agg Aggregator,
	store SummaryStore,
	publisher SummaryPublisher,
	config WatcherConfig,
	l *slog.Logger,
	m *metrics.Metrics,
) (*Watcher, error) {
	if agg == nil {
		return nil, fmt.Errorf("watcher needs an aggregator")
	}
	if config.Spec == "" {
		config.Spec = DefaultSpec
	}
	if config.RunTimeout <= 0 {
		config.RunTimeout = 2 * time.Minute
	}
	if l == nil {
		l = logger.Discard()
	}

	ctx, cancel := context.WithCancel(context.Background())
	w := &Watcher{
		aggregator: agg,
		store:      store,
		publisher:  publisher,
		config:     config,
		logger:     l,
		metrics:    m,
		ctx:        ctx,
		cancel:     cancel,
	}

	cl := cronLogger{l}
	w.cron = cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)))
	id, err := w.cron.AddFunc(config.Spec, w.tick)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("invalid watcher schedule %q: %w", config.Spec, err)
	}
	w.entryID = id
	return w, nil
}

// Start begins the schedule; with RunOnStart the first run happens immediately
func (w *Watcher) Start() {
	if w.config.RunOnStart {
		job := w.cron.Entry(w.entryID).WrappedJob
		w.wg.Add(1)
		go func() {
			defer w.wg.Done()
			job.Run()
		}()
	}
	w.cron.Start()
	w.logger.Info("watcher_started", slog.String("spec", w.config.Spec))
}

// Stop halts the schedule, cancels a run in flight and waits for it to return
func (w *Watcher) Stop(ctx context.Context) error {
	w.cancel()
	cronDone := w.cron.Stop()

	done := make(chan struct{})
	go func() {
		<-cronDone.Done()
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		w.logger.Info("watcher_stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Latest returns the summary of the last successful run
func (w *Watcher) Latest() (trend.Summary, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.latest == nil {
		return trend.Summary{}, false
	}
	return *w.latest, true
}

func (w *Watcher) tick() {
	ctx, cancel := context.WithTimeout(w.ctx, w.config.RunTimeout)
	defer cancel()
	if _, err := w.RunOnce(ctx); err != nil {
		w.logger.Error("watcher_run_failed", slog.String("error", err.Error()))
	}
}

// RunOnce aggregates with the configured options, then saves and publishes
// the summary. Save and publish failures are logged and do not fail the run.
func (w *Watcher) RunOnce(ctx context.Context) (trend.Summary, error) {
	opts := w.config.Options.Normalize()
	res, err := w.aggregator.Aggregate(ctx, opts)
	if err != nil {
		w.metrics.IncWatcherRun("failed")
		return trend.Summary{}, fmt.Errorf("aggregate: %w", err)
	}
	summary := aggregator.Summarize(res, opts.TopK)

	outcome := "ok"
	if w.store != nil {
		if err := w.store.SaveSummary(ctx, summary); err != nil {
			outcome = "degraded"
			w.logger.Warn("snapshot_save_failed", slog.String("id", summary.ID), slog.String("error", err.Error()))
		}
	}
	if w.publisher != nil {
		if err := w.publisher.PublishSummary(ctx, summary); err != nil {
			outcome = "degraded"
			w.logger.Warn("summary_publish_failed", slog.String("id", summary.ID), slog.String("error", err.Error()))
		}
		if w.config.TrendThreshold > 0 {
			if _, err := w.publisher.PublishDetected(ctx, summary, w.config.TrendThreshold); err != nil {
				outcome = "degraded"
				w.logger.Warn("detected_publish_failed", slog.String("id", summary.ID), slog.String("error", err.Error()))
			}
		}
	}

	w.mu.Lock()
	w.latest = &summary
	w.mu.Unlock()

	w.metrics.IncWatcherRun(outcome)
	w.logger.Info("watcher_run_completed",
		slog.String("id", summary.ID),
		slog.Int("topics", summary.TotalTopics),
		slog.Int("errors", len(summary.Errors)),
		slog.String("outcome", outcome))
	return summary, nil
}

// cronLogger routes cron's logging through slog
type cronLogger struct {
	l *slog.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debug("cron_"+msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Error("cron_"+msg, append(keysAndValues, "error", err)...)
}

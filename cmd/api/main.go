// cmd/api/main.go

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/nats-io/nats.go"

	"trendwise/internal/adapter/events"
	"trendwise/internal/adapter/news"
	"trendwise/internal/adapter/social"
	"trendwise/internal/adapter/storage"
	"trendwise/internal/adapter/trends"
	"trendwise/internal/config"
	"trendwise/internal/domain/trend"
	"trendwise/internal/logger"
	"trendwise/internal/metrics"
	"trendwise/internal/obs"
	"trendwise/internal/server"
	"trendwise/internal/server/handlers"
	"trendwise/internal/service/aggregator"
	"trendwise/internal/service/listening"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config_invalid", slog.String("error", err.Error()))
		os.Exit(1)
	}

	log := logger.Init(cfg.Telemetry.LogLevel)

	shutdownTracer, err := obs.InitTracer(cfg.Telemetry.ServiceName, cfg.Telemetry.SampleRatio)
	if err != nil {
		log.Warn("tracer_init_failed", slog.String("error", err.Error()))
	}
	m := metrics.New()

	// Setup context with cancellation for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Collectors and article search
	collectorHTTP := &http.Client{Timeout: cfg.Collectors.Timeout}
	articleHTTP := &http.Client{Timeout: cfg.Collectors.ArticleTimeout}

	twitter := social.NewTwitterClient(
		cfg.Collectors.TwitterBearerToken,
		cfg.Collectors.TwitterBaseURL,
		cfg.Collectors.TwitterSearchHost,
		collectorHTTP,
	)
	collectors := []trend.Collector{
		googleCollector(cfg.Collectors, collectorHTTP),
		twitter,
		social.NewRedditClient(cfg.Collectors.RedditBaseURL, collectorHTTP),
		social.NewYouTubeClient(cfg.Collectors.YouTubeAPIKey, cfg.Collectors.YouTubeBaseURL, collectorHTTP),
	}

	articles := aggregator.NewArticleService(log, cfg.Collectors.ArticleTimeout)
	articles.Register(news.NewNewsAPIClient(cfg.Collectors.NewsAPIKey, cfg.Collectors.NewsAPIBaseURL, articleHTTP), cfg.Collectors.UseNewsAPI)
	articles.Register(news.NewGoogleNewsClient(cfg.Collectors.GoogleNewsURL, articleHTTP), cfg.Collectors.UseGoogleNews)
	articles.Register(news.NewSerpAPIClient(cfg.Collectors.SerpAPIKey, cfg.Collectors.SerpAPIBaseURL, articleHTTP), cfg.Collectors.UseSerpAPI)

	engine, err := aggregator.NewEngine(collectors,
		aggregator.WithArticles(articles),
		aggregator.WithLogger(log),
		aggregator.WithMetrics(m),
		aggregator.WithTimeout(cfg.Collectors.Timeout),
	)
	if err != nil {
		log.Error("engine_init_failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	deps := handlers.TrendDeps{
		Engine:   engine,
		Articles: articles,
		Defaults: cfg.Aggregation.Options(),
		Logger:   log,
	}
	if cfg.Collectors.TwitterBearerToken != "" {
		deps.Hashtags = twitter
	}

	// Optional snapshot storage
	var summaryStore listening.SummaryStore
	if cfg.Database.Enabled {
		db, err := initDatabase(ctx, cfg.Database)
		if err != nil {
			log.Error("database_init_failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer db.Close()

		snapshots := storage.NewSnapshotStore(db)
		if err := snapshots.Migrate(ctx); err != nil {
			log.Error("database_migrate_failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
		summaryStore = snapshots
		deps.History = snapshots
	}

	// Optional event bus
	var natsConn *nats.Conn
	if cfg.NATS.Enabled {
		natsConn, err = initNATS(cfg.NATS, log)
		if err != nil {
			log.Error("nats_init_failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer natsConn.Close()
	}
	publisher := events.NewPublisher(natsConn, cfg.NATS.EventsTopic)

	// Scheduled watcher
	var watcher *listening.Watcher
	if cfg.Scheduler.Enabled {
		watcher, err = listening.NewWatcher(engine, summaryStore, publisher, listening.WatcherConfig{
			Spec:           cfg.Scheduler.Spec,
			Options:        cfg.Aggregation.Options(),
			RunTimeout:     cfg.Scheduler.RunTimeout,
			TrendThreshold: cfg.Scheduler.TrendThreshold,
			RunOnStart:     cfg.Scheduler.RunOnStart,
		}, log, m)
		if err != nil {
			log.Error("watcher_init_failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
		watcher.Start()
		deps.Watcher = watcher
	}

	// Initialize HTTP server
	serverDeps := server.Deps{
		Trends: handlers.NewTrendHandler(deps),
		Topic:  cfg.NATS.EventsTopic,
		Logger: log,
	}
	if natsConn != nil {
		serverDeps.Stream = handlers.NATSSubscriber{Conn: natsConn}
	}
	httpServer := server.NewServer(cfg.Server, cfg.RateLimit, serverDeps)

	// Start HTTP server
	go func() {
		log.Info("http_server_starting", slog.String("addr", cfg.Server.Addr()))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("http_server_failed", slog.String("error", err.Error()))
			cancel()
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()
	log.Info("shutdown_started")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Warn("http_server_shutdown_failed", slog.String("error", err.Error()))
	}
	if watcher != nil {
		if err := watcher.Stop(shutdownCtx); err != nil {
			log.Warn("watcher_shutdown_failed", slog.String("error", err.Error()))
		}
	}
	if err := shutdownTracer(shutdownCtx); err != nil {
		log.Warn("tracer_shutdown_failed", slog.String("error", err.Error()))
	}

	log.Info("shutdown_complete")
}

func googleCollector(cfg config.CollectorsConfig, client *http.Client) trend.Collector {
	if cfg.GoogleTrendsMode == config.GoogleTrendsRSS {
		return trends.NewFeedClient(cfg.GoogleTrendsRSSURL, client)
	}
	return trends.NewGoogleTrendsClient(cfg.GoogleTrendsURL, client)
}

// Initialize database connection
func initDatabase(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("unable to parse connection string: %w", err)
	}
	poolConfig.MaxConnLifetime = cfg.MaxLifetime

	db, err := pgxpool.ConnectConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}

	// Test connection
	if err := db.Ping(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	return db, nil
}

// Initialize NATS connection
func initNATS(cfg config.NATSConfig, log *slog.Logger) (*nats.Conn, error) {
	options := []nats.Option{
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.Timeout(cfg.ConnectTimeout),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				log.Warn("nats_disconnected", slog.String("error", err.Error()))
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("nats_reconnected", slog.String("url", nc.ConnectedUrl()))
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			log.Info("nats_closed")
		}),
	}

	nc, err := nats.Connect(cfg.URL, options...)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to NATS: %w", err)
	}

	return nc, nil
}

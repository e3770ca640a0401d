// internal/config/config.go

package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"trendwise/internal/domain/trend"
)

// Config holds all application configuration
type Config struct {
	Environment string
	Server      ServerConfig
	Database    DatabaseConfig
	NATS        NATSConfig
	Collectors  CollectorsConfig
	Aggregation AggregationConfig
	Scheduler   SchedulerConfig
	RateLimit   RateLimitConfig
	Telemetry   TelemetryConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	RequestTimeout  time.Duration
	CorsOrigins     []string
}

// DatabaseConfig holds database configuration. Snapshots are only
// stored when Enabled is set.
type DatabaseConfig struct {
	Enabled      bool
	Host         string
	Port         int
	User         string
	Password     string
	Database     string
	MaxOpenConns int
	MaxLifetime  time.Duration
	SSLMode      string
}

// NATSConfig holds NATS configuration
type NATSConfig struct {
	Enabled        bool
	URL            string
	MaxReconnects  int
	ReconnectWait  time.Duration
	ConnectTimeout time.Duration
	EventsTopic    string
}

// CollectorsConfig holds upstream credentials, endpoints and timeouts
type CollectorsConfig struct {
	Timeout        time.Duration
	ArticleTimeout time.Duration

	GoogleTrendsMode   string
	GoogleTrendsURL    string
	GoogleTrendsRSSURL string
	TwitterBearerToken string
	TwitterBaseURL     string
	TwitterSearchHost  string
	RedditBaseURL      string
	YouTubeAPIKey      string
	YouTubeBaseURL     string
	NewsAPIKey         string
	NewsAPIBaseURL     string
	GoogleNewsURL      string
	SerpAPIKey         string
	SerpAPIBaseURL     string
	UseNewsAPI         bool
	UseGoogleNews      bool
	UseSerpAPI         bool
}

// AggregationConfig holds defaults applied to every aggregation request
type AggregationConfig struct {
	Geo          string
	Period       string
	ArticleLimit int
	TopK         int
}

// SchedulerConfig holds the background watcher configuration
type SchedulerConfig struct {
	Enabled        bool
	Spec           string
	RunOnStart     bool
	RunTimeout     time.Duration
	TrendThreshold int
}

// RateLimitConfig limits requests per client IP
type RateLimitConfig struct {
	Enabled  bool
	Requests int
	Window   time.Duration
}

// TelemetryConfig holds logging and tracing configuration
type TelemetryConfig struct {
	LogLevel    string
	ServiceName string
	SampleRatio float64
}

// Google Trends collector modes
const (
	GoogleTrendsJSON = "json"
	GoogleTrendsRSS  = "rss"
)

// Load loads configuration from a .env file when present, then from
// environment variables
func Load() (Config, error) {
	// Missing .env is fine.
	_ = godotenv.Load()

	config := Config{
		Environment: getEnv("APP_ENV", "development"),
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getEnvAsInt("SERVER_PORT", 8080),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
			RequestTimeout:  getEnvAsDuration("SERVER_REQUEST_TIMEOUT", 45*time.Second),
			CorsOrigins:     getEnvAsSlice("SERVER_CORS_ORIGINS", []string{"*"}),
		},
		Database: DatabaseConfig{
			Enabled:      getEnvAsBool("DB_ENABLED", false),
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         getEnvAsInt("DB_PORT", 5432),
			User:         getEnv("DB_USER", "postgres"),
			Password:     getEnv("DB_PASSWORD", "postgres"),
			Database:     getEnv("DB_NAME", "trendwise"),
			MaxOpenConns: getEnvAsInt("DB_MAX_OPEN_CONNS", 10),
			MaxLifetime:  getEnvAsDuration("DB_MAX_LIFETIME", 5*time.Minute),
			SSLMode:      getEnv("DB_SSL_MODE", "disable"),
		},
		NATS: NATSConfig{
			Enabled:        getEnvAsBool("NATS_ENABLED", false),
			URL:            getEnv("NATS_URL", "nats://localhost:4222"),
			MaxReconnects:  getEnvAsInt("NATS_MAX_RECONNECTS", 10),
			ReconnectWait:  getEnvAsDuration("NATS_RECONNECT_WAIT", 1*time.Second),
			ConnectTimeout: getEnvAsDuration("NATS_CONNECT_TIMEOUT", 2*time.Second),
			EventsTopic:    getEnv("NATS_EVENTS_TOPIC", "trends"),
		},
		Collectors: CollectorsConfig{
			Timeout:            getEnvAsDuration("COLLECTOR_TIMEOUT", 10*time.Second),
			ArticleTimeout:     getEnvAsDuration("ARTICLE_TIMEOUT", 10*time.Second),
			GoogleTrendsMode:   strings.ToLower(getEnv("GOOGLE_TRENDS_MODE", GoogleTrendsJSON)),
			GoogleTrendsURL:    getEnv("GOOGLE_TRENDS_URL", "https://trends.google.com/trends/api"),
			GoogleTrendsRSSURL: getEnv("GOOGLE_TRENDS_RSS_URL", "https://trends.google.com/trends/trendingsearches/daily/rss"),
			TwitterBearerToken: getEnv("TWITTER_BEARER_TOKEN", ""),
			TwitterBaseURL:     getEnv("TWITTER_BASE_URL", "https://api.twitter.com/1.1"),
			TwitterSearchHost:  getEnv("TWITTER_SEARCH_HOST", "https://api.twitter.com"),
			RedditBaseURL:      getEnv("REDDIT_BASE_URL", "https://www.reddit.com"),
			YouTubeAPIKey:      getEnv("YOUTUBE_API_KEY", ""),
			YouTubeBaseURL:     getEnv("YOUTUBE_BASE_URL", "https://www.googleapis.com/youtube/v3"),
			NewsAPIKey:         getEnv("NEWS_API_KEY", ""),
			NewsAPIBaseURL:     getEnv("NEWS_API_BASE_URL", "https://newsapi.org/v2"),
			GoogleNewsURL:      getEnv("GOOGLE_NEWS_URL", "https://news.google.com"),
			SerpAPIKey:         getEnv("SERPAPI_KEY", ""),
			SerpAPIBaseURL:     getEnv("SERPAPI_BASE_URL", "https://serpapi.com"),
			UseNewsAPI:         getEnvAsBool("USE_NEWS_API", true),
			UseGoogleNews:      getEnvAsBool("USE_GOOGLE_NEWS", true),
			UseSerpAPI:         getEnvAsBool("USE_SERPAPI", false),
		},
		Aggregation: AggregationConfig{
			Geo:          strings.ToUpper(getEnv("TRENDS_DEFAULT_GEO", trend.DefaultGeo)),
			Period:       getEnv("TRENDS_DEFAULT_PERIOD", string(trend.PeriodDay)),
			ArticleLimit: getEnvAsInt("TRENDS_ARTICLE_LIMIT", trend.DefaultArticleLimit),
			TopK:         getEnvAsInt("TRENDS_TOP_K", trend.DefaultTopK),
		},
		Scheduler: SchedulerConfig{
			Enabled:        getEnvAsBool("SCHEDULER_ENABLED", false),
			Spec:           getEnv("SCHEDULER_SPEC", "@every 15m"),
			RunOnStart:     getEnvAsBool("SCHEDULER_RUN_ON_START", false),
			RunTimeout:     getEnvAsDuration("SCHEDULER_RUN_TIMEOUT", 2*time.Minute),
			TrendThreshold: getEnvAsInt("TREND_THRESHOLD", 50),
		},
		RateLimit: RateLimitConfig{
			Enabled:  getEnvAsBool("RATE_LIMIT_ENABLED", true),
			Requests: getEnvAsInt("RATE_LIMIT_REQUESTS", 100),
			Window:   getEnvAsDuration("RATE_LIMIT_WINDOW", 15*time.Minute),
		},
		Telemetry: TelemetryConfig{
			LogLevel:    getEnv("LOG_LEVEL", "info"),
			ServiceName: getEnv("OTEL_SERVICE_NAME", "trendwise"),
			SampleRatio: getEnvAsFloat("OTEL_SAMPLE_RATIO", 1.0),
		},
	}

	return config, validate(config)
}

// DSN returns the Postgres connection string
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s&pool_max_conns=%d",
		c.User, c.Password, c.Host, c.Port, c.Database, c.SSLMode, c.MaxOpenConns)
}

// Addr returns the listen address
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Options builds the default aggregation options
func (c AggregationConfig) Options() trend.Options {
	opts := trend.DefaultOptions()
	opts.Geo = c.Geo
	opts.Period = trend.Period(c.Period)
	opts.ArticleLimit = c.ArticleLimit
	opts.TopK = c.TopK
	return opts.Normalize()
}

// validate checks if config is valid
func validate(config Config) error {
	var errs []error

	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server port %d out of range", config.Server.Port))
	}
	for name, d := range map[string]time.Duration{
		"COLLECTOR_TIMEOUT":      config.Collectors.Timeout,
		"ARTICLE_TIMEOUT":        config.Collectors.ArticleTimeout,
		"SERVER_REQUEST_TIMEOUT": config.Server.RequestTimeout,
	} {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %s", name, d))
		}
	}
	switch config.Collectors.GoogleTrendsMode {
	case GoogleTrendsJSON, GoogleTrendsRSS:
	default:
		errs = append(errs, fmt.Errorf("unknown GOOGLE_TRENDS_MODE %q", config.Collectors.GoogleTrendsMode))
	}
	if _, ok := trend.ParsePeriod(config.Aggregation.Period); !ok {
		errs = append(errs, fmt.Errorf("unknown TRENDS_DEFAULT_PERIOD %q", config.Aggregation.Period))
	}
	if config.Aggregation.ArticleLimit < 0 {
		errs = append(errs, fmt.Errorf("article limit must not be negative"))
	}
	if config.Scheduler.Enabled && strings.TrimSpace(config.Scheduler.Spec) == "" {
		errs = append(errs, fmt.Errorf("scheduler spec must be set when the scheduler is enabled"))
	}
	if config.RateLimit.Enabled && (config.RateLimit.Requests <= 0 || config.RateLimit.Window <= 0) {
		errs = append(errs, fmt.Errorf("rate limit needs positive requests and window"))
	}
	if config.Telemetry.SampleRatio < 0 || config.Telemetry.SampleRatio > 1 {
		errs = append(errs, fmt.Errorf("OTEL_SAMPLE_RATIO must be within [0,1]"))
	}

	return errors.Join(errs...)
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	parts := strings.Split(valueStr, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

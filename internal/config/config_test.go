package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trendwise/internal/domain/trend"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, []string{"*"}, cfg.Server.CorsOrigins)
	assert.False(t, cfg.Database.Enabled)
	assert.False(t, cfg.NATS.Enabled)
	assert.Equal(t, GoogleTrendsJSON, cfg.Collectors.GoogleTrendsMode)
	assert.True(t, cfg.Collectors.UseNewsAPI)
	assert.False(t, cfg.Collectors.UseSerpAPI)
	assert.Equal(t, "US", cfg.Aggregation.Geo)
	assert.Equal(t, 100, cfg.RateLimit.Requests)
	assert.Equal(t, 15*time.Minute, cfg.RateLimit.Window)
	assert.Equal(t, "@every 15m", cfg.Scheduler.Spec)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("SERVER_CORS_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("GOOGLE_TRENDS_MODE", "RSS")
	t.Setenv("TRENDS_DEFAULT_GEO", "gb")
	t.Setenv("TRENDS_DEFAULT_PERIOD", "7d")
	t.Setenv("COLLECTOR_TIMEOUT", "3s")
	t.Setenv("USE_SERPAPI", "true")
	t.Setenv("SERVER_READ_TIMEOUT", "not-a-duration")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, ":9090", cfg.Server.Addr()[len(cfg.Server.Host):])
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.CorsOrigins)
	assert.Equal(t, GoogleTrendsRSS, cfg.Collectors.GoogleTrendsMode)
	assert.Equal(t, 3*time.Second, cfg.Collectors.Timeout)
	assert.True(t, cfg.Collectors.UseSerpAPI)
	assert.Equal(t, 10*time.Second, cfg.Server.ReadTimeout)

	opts := cfg.Aggregation.Options()
	assert.Equal(t, "GB", opts.Geo)
	assert.Equal(t, trend.PeriodWeek, opts.Period)
	assert.Equal(t, "GB", opts.Social.YouTubeRegion)
	assert.Len(t, opts.Sources, len(trend.AllSources()))
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
		want string
	}{
		{"bad mode", "GOOGLE_TRENDS_MODE", "scrape", "GOOGLE_TRENDS_MODE"},
		{"bad period", "TRENDS_DEFAULT_PERIOD", "2w", "TRENDS_DEFAULT_PERIOD"},
		{"negative timeout", "COLLECTOR_TIMEOUT", "-1s", "COLLECTOR_TIMEOUT"},
		{"port", "SERVER_PORT", "70000", "out of range"},
		{"sample ratio", "OTEL_SAMPLE_RATIO", "1.5", "OTEL_SAMPLE_RATIO"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.val)
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestSchedulerNeedsSpec(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	cfg.Scheduler.Enabled = true
	cfg.Scheduler.Spec = "  "
	assert.ErrorContains(t, validate(cfg), "scheduler spec")
}

func TestDSN(t *testing.T) {
	c := DatabaseConfig{User: "u", Password: "p", Host: "db", Port: 5432, Database: "trendwise", SSLMode: "disable", MaxOpenConns: 4}
	assert.Equal(t, "postgres://u:p@db:5432/trendwise?sslmode=disable&pool_max_conns=4", c.DSN())
}

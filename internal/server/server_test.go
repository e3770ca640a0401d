package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trendwise/internal/config"
	"trendwise/internal/domain/trend"
	"trendwise/internal/server/handlers"
	"trendwise/internal/service/aggregator"
)

type staticCollector struct {
	kind    trend.SourceKind
	records []trend.Record
}

func (c staticCollector) Kind() trend.SourceKind { return c.kind }

func (c staticCollector) Fetch(context.Context, trend.Query) ([]trend.Record, error) {
	return c.records, nil
}

type fakeBus struct {
	mu    sync.Mutex
	subs  map[string]func([]byte)
	ready chan struct{}
}

func newFakeBus() *fakeBus {
	return &fakeBus{subs: make(map[string]func([]byte)), ready: make(chan struct{}, 2)}
}

func (b *fakeBus) Subscribe(subject string, fn func([]byte)) (func() error, error) {
	b.mu.Lock()
	b.subs[subject] = fn
	b.mu.Unlock()
	b.ready <- struct{}{}
	return func() error {
		b.mu.Lock()
		delete(b.subs, subject)
		b.mu.Unlock()
		return nil
	}, nil
}

func (b *fakeBus) publish(subject string, data []byte) bool {
	b.mu.Lock()
	fn, ok := b.subs[subject]
	b.mu.Unlock()
	if ok {
		fn(data)
	}
	return ok
}

func testServer(t *testing.T, rl config.RateLimitConfig, bus handlers.Subscriber) *Server {
	t.Helper()
	engine, err := aggregator.NewEngine([]trend.Collector{
		staticCollector{kind: trend.SourceReddit, records: []trend.Record{
			{Name: "Go 1.23 released", Metrics: map[string]float64{trend.MetricScore: 900, trend.MetricComments: 120}},
		}},
	})
	require.NoError(t, err)

	opts := trend.DefaultOptions()
	opts.Sources = []trend.SourceKind{trend.SourceReddit}
	opts.IncludeArticles = false

	cfg := config.ServerConfig{
		Host:           "127.0.0.1",
		Port:           0,
		RequestTimeout: 5 * time.Second,
		CorsOrigins:    []string{"*"},
	}
	s := NewServer(cfg, rl, Deps{
		Trends:  handlers.NewTrendHandler(handlers.TrendDeps{Engine: engine, Defaults: opts}),
		Stream:  bus,
		Topic:   "trendwise",
		Metrics: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.Write([]byte("# metrics")) }),
	})
	t.Cleanup(func() { s.Shutdown(context.Background()) })
	return s
}

func TestHealthAndMetrics(t *testing.T) {
	s := testServer(t, config.RateLimitConfig{}, nil)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())

	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, "# metrics", rec.Body.String())
}

func TestTrendsRoute(t *testing.T) {
	s := testServer(t, config.RateLimitConfig{}, nil)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/trends", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Success bool          `json:"success"`
		Summary trend.Summary `json:"summary"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Success)
	require.Len(t, body.Summary.TopTrends, 1)
	assert.Equal(t, "Go 1.23 released", body.Summary.TopTrends[0].Name)
}

func TestRateLimit(t *testing.T) {
	s := testServer(t, config.RateLimitConfig{Enabled: true, Requests: 2, Window: time.Hour}, nil)

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/trends/summary", nil)
		req.RemoteAddr = "10.0.0.1:5000"
		rec := httptest.NewRecorder()
		s.Handler().ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
		if rec.Code == http.StatusTooManyRequests {
			assert.NotEmpty(t, rec.Header().Get("Retry-After"))
			assert.Contains(t, rec.Body.String(), `"success":false`)
		}
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)

	// another client has its own allowance
	req := httptest.NewRequest(http.MethodGet, "/api/v1/trends/summary", nil)
	req.RemoteAddr = "10.0.0.2:5000"
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	// health is not limited
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
		req.RemoteAddr = "10.0.0.1:5000"
		rec := httptest.NewRecorder()
		s.Handler().ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestStreamDisabled(t *testing.T) {
	s := testServer(t, config.RateLimitConfig{}, nil)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/trends/ws", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestStreamRelaysSummaries(t *testing.T) {
	bus := newFakeBus()
	s := testServer(t, config.RateLimitConfig{}, bus)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/v1/trends/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	for i := 0; i < 2; i++ {
		select {
		case <-bus.ready:
		case <-time.After(2 * time.Second):
			t.Fatal("stream did not subscribe")
		}
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg struct {
		Type string          `json:"type"`
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "welcome", msg.Type)

	require.True(t, bus.publish("trendwise.summary", []byte(`{"id":"run-1"}`)))
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "summary", msg.Type)
	assert.JSONEq(t, `{"id":"run-1"}`, string(msg.Data))

	require.True(t, bus.publish("trendwise.detected", []byte(`{"name":"go"}`)))
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "detected", msg.Type)
}

// internal/server/server.go

package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"trendwise/internal/config"
	"trendwise/internal/logger"
	"trendwise/internal/server/handlers"
)

// Server represents the HTTP server
type Server struct {
	server  *http.Server
	router  *chi.Mux
	limiter *RateLimiter
}

// Deps holds what the router needs besides configuration
type Deps struct {
	Trends *handlers.TrendHandler
	// Stream may be nil; /ws then answers 503
	Stream  handlers.Subscriber
	Topic   string
	Metrics http.Handler
	Logger  *slog.Logger
}

// NewServer creates a new HTTP server
func NewServer(cfg config.ServerConfig, rl config.RateLimitConfig, deps Deps) *Server {
	l := deps.Logger
	if l == nil {
		l = logger.Discard()
	}
	metricsHandler := deps.Metrics
	if metricsHandler == nil {
		metricsHandler = promhttp.Handler()
	}

	router := chi.NewRouter()

	// Middleware
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(requestLogger(l))
	router.Use(middleware.Recoverer)

	// CORS configuration
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CorsOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"Retry-After"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	s := &Server{router: router}

	router.Get("/metrics", metricsHandler.ServeHTTP)

	router.Route("/api", func(r chi.Router) {
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("OK"))
		})

		r.Route("/v1/trends", func(r chi.Router) {
			if rl.Enabled {
				s.limiter = NewRateLimiter(rl.Requests, rl.Window)
				r.Use(s.limiter.Middleware)
			}

			// Stream connections outlive the request timeout
			r.Get("/ws", handlers.TrendStreamHandler(deps.Stream, deps.Topic, l))

			r.Group(func(r chi.Router) {
				r.Use(middleware.Timeout(cfg.RequestTimeout))

				h := deps.Trends
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
			})
		})
	})

	s.server = &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return s
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe starts the HTTP server
func (s *Server) ListenAndServe() error {
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.limiter != nil {
		s.limiter.Stop()
	}
	return s.server.Shutdown(ctx)
}

func requestLogger(l *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			started := time.Now()
			next.ServeHTTP(ww, r)
			l.InfoContext(r.Context(), "http_request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.Status()),
				slog.Int("bytes", ww.BytesWritten()),
				slog.Int64("duration_ms", time.Since(started).Milliseconds()),
				slog.String("request_id", middleware.GetReqID(r.Context())))
		})
	}
}

package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/huythanhnguyen/ai-agent/config"
	"github.com/huythanhnguyen/ai-agent/internal/agent"
	"github.com/huythanhnguyen/ai-agent/internal/metrics"
	"github.com/huythanhnguyen/ai-agent/pkg/models"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Service is what the HTTP layer needs from the agent.
type Service interface {
	agent.ChatAgent
	CustomerProfile(ctx context.Context, userID string) models.AgentResponse
	Suggestions(ctx context.Context, userID string) models.AgentResponse
	Category(ctx context.Context, categoryID string) models.AgentResponse
	Feedback(ctx context.Context, sessionID, userID string, data map[string]any) error
	ClearSession(ctx context.Context, sessionID string) error
}

type Server struct {
	service Service
	logger  zerolog.Logger
	config  *config.Config
}

func NewServer(svc Service, cfg *config.Config, logger zerolog.Logger) *Server {
	return &Server{
		service: svc,
		logger:  logger.With().Str("component", "api").Logger(),
		config:  cfg,
	}
}

func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(2 * time.Minute))

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Group(func(r chi.Router) {
			r.Use(s.apiKeyMiddleware)

			r.Post("/chat", s.handleChat)
			r.Post("/feedback", s.handleFeedback)
			r.Delete("/sessions/{sessionID}", s.handleClearSession)
			r.Get("/customers/{userID}/profile", s.handleCustomerProfile)
			r.Get("/customers/{userID}/suggestions", s.handleSuggestions)
			r.Get("/categories/{categoryID}", s.handleCategory)
		})
	})

	return r
}

func (s *Server) Start() error {
	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.config.Host, s.config.Port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		s.logger.Info().Msg("shutting down server")
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	}()

	s.logger.Info().Str("addr", srv.Addr).Msg("starting API server")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			route := r.URL.Path
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				route = rctx.RoutePattern()
			}
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}

			metrics.RequestCount.WithLabelValues(r.Method, route, fmt.Sprint(status)).Inc()
			metrics.RequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())

			s.logger.Info().
				Str("request_id", middleware.GetReqID(r.Context())).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", status).
				Dur("duration", time.Since(start)).
				Msg("request")
		}()

		next.ServeHTTP(ww, r)
	})
}

func (s *Server) apiKeyMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.config.ValidateAPIKey(r.Header.Get("X-Api-Key")) {
			s.writeError(w, "invalid or missing API key", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

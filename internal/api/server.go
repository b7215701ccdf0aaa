// Package api exposes the HTTP interface for the receipt scraping service.
package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/poupacompra/nfce-scraper/internal/config"
	"github.com/poupacompra/nfce-scraper/internal/metrics"
	"github.com/poupacompra/nfce-scraper/internal/nfce"
)

// ReceiptService is the scraping surface the HTTP layer drives.
type ReceiptService interface {
	Fetch(ctx context.Context, url string) (*nfce.Receipt, error)
	ClearCache(ctx context.Context) int
	CacheStats(ctx context.Context) nfce.CacheStats
	PoolStatus() nfce.PoolStatus
}

// Server wires HTTP handlers to the scraping service.
type Server struct {
	router  chi.Router
	service ReceiptService
	cfg     config.Config
	logger  *zap.Logger
	now     func() time.Time
}

// NewServer constructs a Server with middleware and routes.
func NewServer(service ReceiptService, cfg config.Config, logger *zap.Logger) *Server {
	metrics.Init()
	s := &Server{
		service: service,
		cfg:     cfg,
		logger:  logger,
		now:     time.Now,
	}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(logger))
	r.Use(recoverMiddleware(logger))
	r.Use(metrics.Middleware)
	r.Use(timeoutMiddleware(cfg.Server.RequestTimeout()))
	if cfg.Auth.Enabled {
		r.Use(apiKeyMiddleware(cfg.Auth.APIKey))
	}

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Handle("/metrics", metrics.Handler())

	r.Post("/dados-nota", s.fetchReceipt)
	r.Route("/cache", func(r chi.Router) {
		r.Post("/clear", s.clearCache)
		r.Get("/stats", s.cacheStats)
	})

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(s.logger, w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, _ *http.Request) {
	// Ready once at least one browser session exists; the pool either came
	// up whole at startup or the process never got this far.
	if s.service.PoolStatus().Capacity == 0 {
		s.writeError(w, http.StatusServiceUnavailable, "browser pool unavailable", "")
		return
	}
	writeJSON(s.logger, w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) fetchReceipt(w http.ResponseWriter, r *http.Request) {
	url := strings.TrimSpace(r.URL.Query().Get("url"))
	if url == "" {
		s.writeError(w, http.StatusBadRequest, "url query parameter is required", "")
		return
	}
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		s.writeError(w, http.StatusBadRequest, "url must be absolute", url)
		return
	}

	receipt, err := s.service.Fetch(r.Context(), url)
	if err != nil {
		s.logger.Error("scrape failed",
			zap.String("url", url),
			zap.String("kind", string(nfce.KindOf(err))),
			zap.Error(err))
		s.writeError(w, statusForError(err), err.Error(), url)
		return
	}
	writeJSON(s.logger, w, http.StatusOK, receipt)
}

func (s *Server) clearCache(w http.ResponseWriter, r *http.Request) {
	removed := s.service.ClearCache(r.Context())
	writeJSON(s.logger, w, http.StatusOK, map[string]any{
		"status":  "cache cleared",
		"removed": removed,
	})
}

func (s *Server) cacheStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(s.logger, w, http.StatusOK, map[string]any{
		"cache":       s.service.CacheStats(r.Context()),
		"browserPool": s.service.PoolStatus(),
	})
}

// statusForError maps scrape error kinds onto transport status codes:
// exhaustion is retryable (503), timeouts are gateway timeouts (504), and a
// portal that refused us outright is a bad gateway (502).
func statusForError(err error) int {
	switch nfce.KindOf(err) {
	case nfce.KindPoolExhausted:
		return http.StatusServiceUnavailable
	case nfce.KindNavigationTimeout, nfce.KindContentNotReady:
		return http.StatusGatewayTimeout
	case nfce.KindPageAccess:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

type errorResponse struct {
	Error     string `json:"error"`
	URL       string `json:"url,omitempty"`
	Timestamp string `json:"timestamp"`
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg, url string) {
	writeJSON(s.logger, w, status, errorResponse{
		Error:     msg,
		URL:       url,
		Timestamp: s.now().UTC().Format(time.RFC3339),
	})
}

package httpserver

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/scamr/caboard/internal/config"
	"github.com/scamr/caboard/internal/domain"
	"github.com/scamr/caboard/internal/metrics"
	"github.com/scamr/caboard/internal/realtime"
)

// gifSearchLimit is how many results a single GIF search returns.
const gifSearchLimit = 10

// GIFSearcher finds animated-image URLs for a free-text query.
type GIFSearcher interface {
	Search(ctx context.Context, query string, limit int) ([]string, error)
}

// Server is the HTTP server exposing the board API, the realtime channel
// upgrade endpoint, and operational endpoints.
type Server struct {
	cfg        *config.Config
	board      *domain.BoardService
	hub        *realtime.Hub
	gifs       GIFSearcher
	metrics    *metrics.Metrics
	logger     *slog.Logger
	httpServer *http.Server
}

// NewServer creates a new HTTP server. gifs may be nil, in which case GIF
// searches always return an empty result set.
func NewServer(
	cfg *config.Config,
	board *domain.BoardService,
	hub *realtime.Hub,
	gifs GIFSearcher,
	m *metrics.Metrics,
	registry *prometheus.Registry,
	logger *slog.Logger,
) *Server {
	s := &Server{
		cfg:     cfg,
		board:   board,
		hub:     hub,
		gifs:    gifs,
		metrics: m,
		logger:  logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/posts", s.handleListPosts)
	mux.HandleFunc("POST /api/posts", s.handleCreatePost)
	mux.HandleFunc("GET /api/threads/top", s.handleTopThreads)
	mux.HandleFunc("GET /api/gifs", s.handleSearchGIFs)
	mux.HandleFunc("GET /ws", s.hub.ServeWS)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	// No WriteTimeout: it would sever long-lived websocket sessions.
	s.httpServer = &http.Server{
		Addr:        fmt.Sprintf(":%d", cfg.Port),
		Handler:     withLogging(logger, mux),
		ReadTimeout: 10 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	return s
}

// Handler returns the server's root handler, for tests that mount it on an
// httptest server instead of binding a port.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start begins listening for HTTP requests. It blocks until the server is
// shut down or an error occurs.
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListPosts(w http.ResponseWriter, r *http.Request) {
	filter := domain.PostFilter{
		CA:     r.URL.Query().Get("ca"),
		Search: r.URL.Query().Get("search"),
	}

	posts, err := s.board.ListPosts(r.Context(), filter, domain.ListLimit)
	if err != nil {
		s.logger.Error("failed to list posts", "ca", filter.CA, "search", filter.Search, "error", err)
		writeError(w, http.StatusInternalServerError, "InternalError", "error fetching posts")
		return
	}

	if posts == nil {
		posts = []domain.Post{}
	}
	writeJSON(w, http.StatusOK, posts)
}

func (s *Server) handleCreatePost(w http.ResponseWriter, r *http.Request) {
	var sub domain.Submission
	if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
		s.logger.Warn("invalid post body", "error", err)
		writeError(w, http.StatusBadRequest, "InvalidRequest", "invalid request body")
		return
	}

	post, err := s.board.SubmitPost(r.Context(), sub)
	if err != nil {
		var vErr *domain.ValidationError
		if errors.As(err, &vErr) {
			writeError(w, http.StatusBadRequest, "InvalidRequest", vErr.Error())
			return
		}
		s.logger.Error("failed to create post", "ca", sub.CA, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error":   "error creating post",
			"details": err.Error(),
		})
		return
	}

	s.metrics.PostsCreated.Inc()
	writeJSON(w, http.StatusCreated, post)
}

func (s *Server) handleTopThreads(w http.ResponseWriter, r *http.Request) {
	k := domain.DefaultTopK
	if raw := r.URL.Query().Get("k"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > domain.MaxTopK {
			s.logger.Warn("invalid k parameter", "k", raw, "error", err)
			writeError(w, http.StatusBadRequest, "InvalidRequest",
				fmt.Sprintf("k must be between 1 and %d", domain.MaxTopK))
			return
		}
		k = parsed
	}

	top, err := s.board.TopThreads(r.Context(), k)
	if err != nil {
		s.logger.Error("failed to fetch top threads", "k", k, "error", err)
		writeError(w, http.StatusInternalServerError, "InternalError", "failed to fetch top threads")
		return
	}

	if top == nil {
		top = []domain.TopThread{}
	}
	writeJSON(w, http.StatusOK, top)
}

// handleSearchGIFs proxies the animated-image search. Upstream failures
// degrade to an empty result set; they never surface to the client.
func (s *Server) handleSearchGIFs(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		writeError(w, http.StatusBadRequest, "InvalidRequest", "q parameter is required")
		return
	}

	var urls []string
	if s.gifs != nil {
		var err error
		urls, err = s.gifs.Search(r.Context(), query, gifSearchLimit)
		if err != nil {
			s.logger.Error("gif search failed", "query", query, "error", err)
			urls = nil
		}
	}

	if urls == nil {
		urls = []string{}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"gifs": urls})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, errType, message string) {
	writeJSON(w, status, map[string]string{
		"error":   errType,
		"message": message,
	})
}

func withLogging(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(wrapped, r)
		logger.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", wrapped.status,
			"duration", time.Since(start),
		)
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// Hijack delegates to the wrapped writer so the websocket upgrade still
// works behind the logging middleware.
func (w *statusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("underlying ResponseWriter does not support hijacking")
	}
	return h.Hijack()
}

package civicsense

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/civicsense/civicsense/common/logger"
	"github.com/civicsense/civicsense/config"
	"github.com/civicsense/civicsense/store"
)

// Server exposes the assistant over HTTP.
type Server struct {
	cfg       *config.Config
	assistant *Assistant
	sessions  SessionStore
	records   *store.Store
	http      *http.Server
}

func NewServer(cfg *config.Config, assistant *Assistant, sessions SessionStore, records *store.Store) *Server {
	s := &Server{cfg: cfg, assistant: assistant, sessions: sessions, records: records}
	s.http = &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      s.Routes(),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSec) * time.Second,
	}
	return s
}

// Routes builds the HTTP router. Exposed for tests.
func (s *Server) Routes() http.Handler {
	r := mux.NewRouter()
	r.Use(logRequests)

	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	api := r.PathPrefix("/v1").Subrouter()
	api.HandleFunc("/sessions", s.handleCreateSession).Methods(http.MethodPost)
	api.HandleFunc("/sessions", s.handleListSessions).Methods(http.MethodGet)
	api.HandleFunc("/sessions/{id}", s.handleGetSession).Methods(http.MethodGet)
	api.HandleFunc("/sessions/{id}", s.handleDeleteSession).Methods(http.MethodDelete)
	api.HandleFunc("/sessions/{id}/chat", s.handleChat).Methods(http.MethodPost)
	api.HandleFunc("/stats/feedback", s.handleFeedbackStats).Methods(http.MethodGet)
	return r
}

// Run serves until the context is cancelled, then drains connections.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Infof("server: listening on %s", s.http.Addr)
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	logger.Infof("server: shutting down")
	return s.http.Shutdown(shutdownCtx)
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		logger.Infof("http: %s %s (%s)", r.Method, r.URL.Path, time.Since(start))
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"app":     s.cfg.App.Name,
		"version": s.cfg.App.Version,
	})
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	sess := s.sessions.Create(r.Context())
	if max := s.cfg.Session.MaxSessions; max > 0 {
		if err := s.sessions.Clean(r.Context(), max); err != nil {
			logger.Warnf("server: session clean failed: %v", err)
		}
	}
	writeJSON(w, http.StatusCreated, sess)
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	offset, limit := pageParams(r, 0, 20)
	writeJSON(w, http.StatusOK, map[string]any{
		"sessions": s.sessions.ListRange(r.Context(), offset, limit),
	})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessions.Get(r.Context(), mux.Vars(r)["id"])
	if !ok {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if !s.sessions.Delete(r.Context(), mux.Vars(r)["id"]) {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type chatRequest struct {
	Query string `json:"query"`
}

type chatResponse struct {
	RecordID string   `json:"record_id"`
	Answer   string   `json:"answer"`
	Sources  []string `json:"sources,omitempty"`
	CostUSD  float64  `json:"cost_usd"`
	TotalMs  int64    `json:"total_ms"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	sess, ok := s.sessions.Get(r.Context(), id)
	if !ok {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Query == "" {
		writeError(w, http.StatusBadRequest, "body must be JSON with a non-empty query")
		return
	}

	res, err := s.assistant.Query(r.Context(), id, req.Query, sess.Messages)
	if err != nil {
		writeError(w, http.StatusBadGateway, "failed to answer: "+err.Error())
		return
	}

	now := time.Now()
	s.sessions.AddMessage(r.Context(), id, ChatMessage{Role: "user", Content: req.Query, Timestamp: now})
	s.sessions.AddMessage(r.Context(), id, ChatMessage{
		Role:      "assistant",
		Content:   res.Answer.Text,
		Sources:   res.Answer.Sources,
		Timestamp: now,
	})

	writeJSON(w, http.StatusOK, chatResponse{
		RecordID: res.RecordID,
		Answer:   res.Answer.Text,
		Sources:  res.Answer.Sources,
		CostUSD:  res.CostUSD,
		TotalMs:  res.TotalMs,
	})
}

func (s *Server) handleFeedbackStats(w http.ResponseWriter, r *http.Request) {
	if s.records == nil {
		writeError(w, http.StatusServiceUnavailable, "record store not configured")
		return
	}
	rows, err := s.records.FeedbackSummary(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"feedback": rows})
}

func pageParams(r *http.Request, defOffset, defLimit int) (int, int) {
	offset, limit := defOffset, defLimit
	q := r.URL.Query()
	if n, err := strconv.Atoi(q.Get("offset")); err == nil && n >= 0 {
		offset = n
	}
	if n, err := strconv.Atoi(q.Get("limit")); err == nil && n > 0 {
		limit = n
	}
	return offset, limit
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warnf("http: encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

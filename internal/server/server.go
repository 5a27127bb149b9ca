// Package server exposes merges over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/johnharveymath/oxcovid19db/internal/merge"
	"github.com/johnharveymath/oxcovid19db/internal/metrics"
	"github.com/johnharveymath/oxcovid19db/internal/parser"
	"github.com/johnharveymath/oxcovid19db/internal/rules"
	"github.com/johnharveymath/oxcovid19db/internal/store"
	"github.com/johnharveymath/oxcovid19db/internal/table"
)

// DefaultMaxBody bounds a merge request body.
const DefaultMaxBody = 64 << 20

// Server serves the merge API.
type Server struct {
	merger  *merge.Merger
	rules   merge.RuleSource
	logger  *slog.Logger
	maxBody int64
	router  chi.Router
}

// New builds the router. A nil logger means slog.Default.
func New(rs merge.RuleSource, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		merger:  merge.New(rs, logger),
		rules:   rs,
		logger:  logger,
		maxBody: DefaultMaxBody,
	}
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(access(logger))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", metrics.Handler())
	r.Route("/v1", func(r chi.Router) {
		r.Post("/merge", s.handleMerge)
		r.Get("/rules", s.handleRules)
	})
	s.router = r
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.router.ServeHTTP(w, r) }

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	s.logger.Info("server_listen", "addr", addr)

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// MergeRequest is the body of POST /v1/merge.
type MergeRequest struct {
	Left  *table.Table `json:"left"`
	Right *table.Table `json:"right"`
	How   string       `json:"how,omitempty"`
}

type errorBody struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

type ruleBody struct {
	Column string `json:"column"`
	Op     string `json:"op"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleMerge answers with JSON unless ?format= names another writer
// (csv, xlsx, md).
func (s *Server) handleMerge(w http.ResponseWriter, r *http.Request) {
	var req MergeRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, s.maxBody))
	if err := dec.Decode(&req); err != nil {
		s.fail(w, r, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}
	if req.Left == nil || req.Right == nil {
		s.fail(w, r, http.StatusBadRequest, errors.New("left and right tables are required"))
		return
	}
	format := r.URL.Query().Get("format")
	if format == "" {
		format = "json"
	}
	ct, ok := contentTypes[format]
	if !ok {
		s.fail(w, r, http.StatusBadRequest, fmt.Errorf("%w: %q", parser.ErrUnsupported, format))
		return
	}

	out, err := s.merger.Merge(r.Context(), req.Left, req.Right, merge.How(req.How))
	if err != nil {
		s.fail(w, r, statusFor(err), err)
		return
	}
	w.Header().Set("Content-Type", ct)
	w.WriteHeader(http.StatusOK)
	if err := parser.Write(w, format, out); err != nil {
		s.logger.Error("merge_write", "request_id", RequestID(r.Context()), "err", err)
	}
}

func (s *Server) handleRules(w http.ResponseWriter, r *http.Request) {
	rs, err := s.rules.Rules(r.Context())
	if err != nil {
		s.fail(w, r, statusFor(err), err)
		return
	}
	out := make([]ruleBody, 0, len(rs))
	for _, rule := range rs {
		out = append(out, ruleBody{Column: rule.Column, Op: rule.Op.String()})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"weight_column": s.rules.WeightColumn(),
		"rules":         out,
	})
}

var contentTypes = map[string]string{
	"json": "application/json",
	"csv":  "text/csv; charset=utf-8",
	"md":   "text/markdown; charset=utf-8",
	"xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
}

// statusFor maps the error taxonomy onto HTTP statuses.
func statusFor(err error) int {
	switch {
	case merge.IsInvalidInput(err):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, rules.ErrSchemaMismatch):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, status int, err error) {
	id := RequestID(r.Context())
	if status >= http.StatusInternalServerError {
		s.logger.Error("request_failed", "request_id", id, "status", status, "err", err)
	}
	writeJSON(w, status, errorBody{Error: err.Error(), RequestID: id})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

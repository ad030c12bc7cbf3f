// Package server exposes the lineage query surface over HTTP.
//
// The graph is immutable; the server holds it behind an atomic pointer
// so that watch-triggered rebuilds swap the whole graph at once and
// concurrent readers never observe a partially built state.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/provlens/provlens/internal/lineage"
	"github.com/provlens/provlens/internal/query"
)

// debounce coalesces bursts of filesystem events into one rebuild.
const debounce = 250 * time.Millisecond

// Config holds configuration for the query server.
type Config struct {
	Addr      string
	Watch     bool
	WatchPath string
	Logger    *slog.Logger
	// Rebuild constructs a fresh graph from the transition source.
	Rebuild func(ctx context.Context) (*lineage.Graph, error)
}

// state bundles a graph with the engine answering questions over it, so
// both swap together.
type state struct {
	graph  *lineage.Graph
	engine *query.Engine
}

// Server serves lineage queries over HTTP.
type Server struct {
	cfg     Config
	logger  *slog.Logger
	current atomic.Pointer[state]
}

// New creates a new query server.
func New(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Server{cfg: cfg, logger: logger}
}

// Serve builds the initial graph, starts the HTTP listener, and blocks
// until the context is cancelled. With Watch enabled, changes to the
// transition source trigger a wholesale rebuild and atomic swap.
func (s *Server) Serve(ctx context.Context) error {
	if err := s.rebuild(ctx); err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	eg, egctx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		s.logger.Info("starting lineage query server", "addr", s.cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if s.cfg.Watch && s.cfg.WatchPath != "" {
		eg.Go(func() error {
			return s.watch(egctx)
		})
	}

	return eg.Wait()
}

// Handler returns the HTTP routes. Split out for tests.
func (s *Server) Handler() http.Handler {
	r := chi.NewMux()
	r.Use(
		middleware.Recoverer,
		middleware.Compress(5),
	)

	r.Get("/healthz", s.handleHealth)
	r.Get("/api/query", s.handleQuery)
	r.Get("/api/lineage/{table}", s.handleLineage)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	st := s.current.Load()
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"nodes":  st.graph.NodeCount(),
		"edges":  st.graph.EdgeCount(),
	})
}

// handleQuery answers a natural-language question. The engine contract
// holds here too: any question yields a 200 with text, never an error.
func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	question := r.URL.Query().Get("q")
	answer := s.current.Load().engine.Query(question)
	writeJSON(w, http.StatusOK, map[string]string{
		"question": question,
		"answer":   answer,
	})
}

func (s *Server) handleLineage(w http.ResponseWriter, r *http.Request) {
	st := s.current.Load()
	resolver := lineage.NewResolver(st.graph)

	id, ok := resolver.Resolve(chi.URLParam(r, "table"), r.URL.Query().Get("layer"))
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error": "table not found",
		})
		return
	}
	layer, tbl := lineage.SplitNodeID(id)

	writeJSON(w, http.StatusOK, map[string]any{
		"root":       id,
		"upstream":   st.graph.Upstream(tbl, layer),
		"downstream": st.graph.Downstream(tbl, layer),
	})
}

// rebuild constructs a fresh graph and swaps it in.
func (s *Server) rebuild(ctx context.Context) error {
	graph, err := s.cfg.Rebuild(ctx)
	if err != nil {
		return fmt.Errorf("failed to build lineage graph: %w", err)
	}
	s.current.Store(&state{
		graph:  graph,
		engine: query.NewEngine(graph, s.logger),
	})
	s.logger.Info("lineage graph ready", "nodes", graph.NodeCount(), "edges", graph.EdgeCount())
	return nil
}

// watch rebuilds the graph when the transition source changes. A failed
// rebuild keeps the previous graph serving.
func (s *Server) watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(s.cfg.WatchPath); err != nil {
		return fmt.Errorf("failed to watch %s: %w", s.cfg.WatchPath, err)
	}
	s.logger.Info("watching transition source", "path", s.cfg.WatchPath)

	var timer *time.Timer
	rebuilds := make(chan struct{}, 1)

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(debounce, func() {
				select {
				case rebuilds <- struct{}{}:
				default:
				}
			})

		case <-rebuilds:
			if err := s.rebuild(ctx); err != nil {
				s.logger.Error("rebuild failed, keeping previous graph", "error", err)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Error("watcher error", "error", err)
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

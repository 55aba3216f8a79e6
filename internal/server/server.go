package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/lanerush/engine/internal/config"
	"github.com/lanerush/engine/internal/game"
	"github.com/lanerush/engine/internal/metrics"
	"github.com/lanerush/engine/internal/version"
)

// Server is the HTTP/WebSocket gateway.
type Server struct {
	cfg    config.ServerConfig
	game   game.Game
	hub    *Hub
	logger *slog.Logger

	httpSrv *http.Server
	done    chan struct{}
	wg      sync.WaitGroup
}

// New creates the gateway over a game session.
func New(cfg config.ServerConfig, g game.Game, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		cfg:    cfg,
		game:   g,
		hub:    NewHub(g, logger),
		logger: logger,
		done:   make(chan struct{}),
	}

	s.httpSrv = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.router(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

func (s *Server) router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(metrics.Middleware)
	r.Use(corsMiddleware)

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/ws", s.hub.HandleWS)
		r.Get("/snapshot", s.handleSnapshot)
	})

	return r
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"status":"ok","service":"lanerush-engine","version":%q}`, version.Version)
}

// handleSnapshot serves the current session state over plain HTTP, mainly
// for debugging and the initial page load before the socket is up.
func (s *Server) handleSnapshot(w http.ResponseWriter, _ *http.Request) {
	snap := s.game.Snapshot()
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, serverMessage{Type: "snapshot", Data: &snap})
}

func writeJSON(w http.ResponseWriter, v any) {
	_ = json.NewEncoder(w).Encode(v)
}

// Start runs the hub and the snapshot pusher. The HTTP listener runs
// separately in Serve so its failure is observable by the caller.
func (s *Server) Start(ctx context.Context) error {
	s.wg.Add(2)
	go func() {
		defer s.wg.Done()
		s.hub.Run()
	}()
	go func() {
		defer s.wg.Done()
		s.pushLoop(ctx)
	}()

	return nil
}

// Serve blocks on the HTTP listener until Stop shuts it down. A clean
// shutdown returns nil; anything else is a listener failure.
func (s *Server) Serve() error {
	s.logger.Info("gateway listening", "addr", s.httpSrv.Addr)
	if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("gateway listener: %w", err)
	}
	return nil
}

// pushLoop broadcasts a fresh snapshot whenever the session changes.
func (s *Server) pushLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.done:
			return
		case <-s.game.Updates():
			s.hub.BroadcastSnapshot()
		}
	}
}

// Stop drains the listener and disconnects every client.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("stopping gateway")

	if err := s.httpSrv.Shutdown(ctx); err != nil {
		s.logger.Warn("gateway shutdown error", "error", err)
	}
	close(s.done)
	s.hub.Close()

	finished := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		s.logger.Info("gateway stopped")
	case <-ctx.Done():
		s.logger.Warn("gateway stop timed out")
	}
	return nil
}

package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/livetemplate/chapterdeck/internal/assets"
	"github.com/livetemplate/chapterdeck/internal/cache"
	"github.com/livetemplate/chapterdeck/internal/config"
	"github.com/livetemplate/chapterdeck/internal/library"
	"github.com/livetemplate/chapterdeck/internal/logging"
)

// Server serves chapter decks and the pager websocket.
type Server struct {
	config   *config.Config
	library  *library.Library
	pages    *cache.MemoryCache[[]byte] // slug -> rendered page
	logger   *zap.Logger
	upgrader websocket.Upgrader
	router   chi.Router

	sessionMu sync.RWMutex
	sessions  map[string]*Session

	watcher *Watcher

	stopLimiter context.CancelFunc
}

// New creates a server for the articles in lib.
func New(cfg *config.Config, lib *library.Library, logger *zap.Logger) *Server {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	s := &Server{
		config:   cfg,
		library:  lib,
		pages:    cache.NewMemoryCache[[]byte](0),
		logger:   logging.OrNop(logger),
		sessions: make(map[string]*Session),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
	if cfg.Server.Debug {
		// Allow all origins in development.
		s.upgrader.CheckOrigin = func(r *http.Request) bool { return true }
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLoggerMiddleware(s.logger))
	r.Use(middleware.Recoverer)
	r.Use(SecurityHeadersMiddleware())

	if rl := s.config.Server.RateLimit; rl.IsEnabled() {
		ctx, cancel := context.WithCancel(context.Background())
		s.stopLimiter = cancel
		limit, _ := RateLimitMiddleware(ctx, rl.RequestsPerSecond, rl.GetBurst(), rl.GetMaxTrackedIPs(), s.logger)
		r.Use(limit)
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/ws", s.serveWebSocket)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Compress(5, "text/html", "text/css", "application/javascript"))
		r.Handle("/assets/*", http.StripPrefix("/assets/", http.FileServer(http.FS(assets.ClientFS()))))
		r.Get("/*", s.servePage)
	})

	return r
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Library returns the article library the server reads from.
func (s *Server) Library() *library.Library {
	return s.library
}

// ListenAndServe serves on the configured address until ctx is cancelled,
// then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	httpSrv := &http.Server{
		Addr:              s.config.Addr(),
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", zap.String("addr", httpSrv.Addr))
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.logger.Info("shutting down")
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// Close stops background work. Open sessions end when their connections
// close.
func (s *Server) Close() error {
	s.pages.Stop()
	if s.stopLimiter != nil {
		s.stopLimiter()
	}
	return s.StopWatch()
}

// RegisterSession tracks a session for reload broadcasts.
func (s *Server) RegisterSession(sess *Session) {
	s.sessionMu.Lock()
	defer s.sessionMu.Unlock()
	s.sessions[sess.ID] = sess
	s.logger.Debug("session registered", zap.String("session", sess.ID), zap.Int("active", len(s.sessions)))
}

// UnregisterSession stops tracking a session.
func (s *Server) UnregisterSession(sess *Session) {
	s.sessionMu.Lock()
	defer s.sessionMu.Unlock()
	delete(s.sessions, sess.ID)
	s.logger.Debug("session unregistered", zap.String("session", sess.ID), zap.Int("active", len(s.sessions)))
}

// SessionCount returns the number of open sessions.
func (s *Server) SessionCount() int {
	s.sessionMu.RLock()
	defer s.sessionMu.RUnlock()
	return len(s.sessions)
}

// BroadcastReload tells every open session to reload its page.
func (s *Server) BroadcastReload() {
	s.sessionMu.RLock()
	sessions := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		sessions = append(sessions, sess)
	}
	s.sessionMu.RUnlock()

	if len(sessions) == 0 {
		return
	}

	s.logger.Info("broadcasting reload", zap.Int("sessions", len(sessions)))
	for _, sess := range sessions {
		sess.send(ReloadFrame{Action: "reload"})
	}
}

// Reload re-reads a changed file, drops cached pages and notifies open
// sessions. A file that fails to parse keeps its previous version.
func (s *Server) Reload(path string) error {
	if rel, err := filepath.Rel(s.library.Root(), path); err == nil && s.library.Ignored(rel) {
		return nil
	}
	if err := s.library.Reload(path); err != nil {
		return err
	}
	s.pages.InvalidateAll()
	s.BroadcastReload()
	return nil
}

// EnableWatch starts watching the content root for changes.
func (s *Server) EnableWatch() error {
	if s.watcher != nil {
		return nil
	}
	root := s.library.Root()
	w, err := NewWatcher(root, s.Reload, s.logger)
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	s.watcher = w
	w.Start()
	s.logger.Info("watching for changes", zap.String("root", root))
	return nil
}

// StopWatch stops the file watcher if one is running.
func (s *Server) StopWatch() error {
	if s.watcher == nil {
		return nil
	}
	err := s.watcher.Stop()
	s.watcher = nil
	return err
}

package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net"
	"net/http"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"cherrycake/internal/config"
	"cherrycake/internal/logging"
	"cherrycake/internal/view"
)

// InboxCounter reports how many contact messages are stored.
type InboxCounter interface {
	Count(ctx context.Context) (int, error)
}

// Dependencies are the services the HTTP surface needs. Contact and Inbox
// may be nil; the contact route then answers 503.
type Dependencies struct {
	Library *view.Library
	Contact http.Handler
	Inbox   InboxCounter
}

// Server serves the HTTP API, pages and streams.
type Server struct {
	cfg       *config.Config
	deps      Dependencies
	logger    *slog.Logger
	pages     *template.Template
	upgrader  websocket.Upgrader
	startedAt time.Time
	version   string

	mu       sync.Mutex
	listener net.Listener
	server   *http.Server
	closing  bool
	streams  sync.WaitGroup
	done     chan struct{}
	stopOnce sync.Once
}

// New builds a server. It does not listen until Start.
func New(cfg *config.Config, deps Dependencies, logger *slog.Logger) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("server: config required")
	}
	if deps.Library == nil {
		return nil, errors.New("server: visualization library required")
	}
	pages, err := parsePages()
	if err != nil {
		return nil, err
	}
	return &Server{
		cfg:       cfg,
		deps:      deps,
		logger:    logging.NewComponentLogger(logger, "http"),
		pages:     pages,
		upgrader:  websocket.Upgrader{ReadBufferSize: 1024, WriteBufferSize: 64 << 10},
		startedAt: time.Now(),
		version:   buildVersion(),
		done:      make(chan struct{}),
	}, nil
}

// Handler returns the routed handler with middleware applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /api/status", authMiddleware(s.cfg.Server.APIToken, s.handleStatus))
	mux.HandleFunc("GET /api/datasets", s.handleDatasets)
	mux.HandleFunc("GET /api/narratives", s.handleNarratives)
	mux.HandleFunc("/api/contact", s.handleContact)
	mux.HandleFunc("GET /output/{file}", s.handleOutput)
	mux.HandleFunc("GET /viz/{name}", s.handleViz)
	mux.HandleFunc("GET /viz/{name}/stream", s.handleStream)
	return recoverMiddleware(s.logger, requestIDMiddleware(accessLogMiddleware(s.logger, mux)))
}

// Start listens on the configured bind address and serves until ctx ends.
func (s *Server) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.cfg.Server.Bind)
	if err != nil {
		return fmt.Errorf("http listen: %w", err)
	}
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: config.Seconds(s.cfg.Server.ReadHeaderTimeout),
		ReadTimeout:       config.Seconds(s.cfg.Server.ReadTimeout),
		WriteTimeout:      config.Seconds(s.cfg.Server.WriteTimeout),
		IdleTimeout:       config.Seconds(s.cfg.Server.IdleTimeout),
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	s.mu.Lock()
	s.listener = listener
	s.server = srv
	s.mu.Unlock()

	go func() {
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.ErrorWithContext(s.logger, "http server error", "http_serve_failed", logging.Error(err))
		}
	}()
	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	s.logger.Info("http server listening",
		logging.String("address", listener.Addr().String()),
		logging.String(logging.FieldEventType, "http_listening"),
	)
	return nil
}

// Addr returns the bound address once Start has succeeded.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop shuts the server down and waits for open streams to unmount.
func (s *Server) Stop() {
	s.stopOnce.Do(func() { close(s.done) })
	s.mu.Lock()
	srv := s.server
	s.server = nil
	s.closing = true
	s.mu.Unlock()
	if srv != nil {
		timeout := config.Seconds(s.cfg.Server.ShutdownTimeout)
		if timeout <= 0 {
			timeout = 5 * time.Second
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn("http shutdown incomplete", logging.Error(err))
			_ = srv.Close()
		}
	}
	s.streams.Wait()
}

// trackStream registers an open stream unless Stop has begun.
func (s *Server) trackStream() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closing {
		return false
	}
	s.streams.Add(1)
	return true
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

func buildVersion() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "devel"
	}
	if v := strings.TrimSpace(info.Main.Version); v != "" && v != "(devel)" {
		return v
	}
	for _, setting := range info.Settings {
		if setting.Key == "vcs.revision" && len(setting.Value) >= 7 {
			return setting.Value[:7]
		}
	}
	return "devel"
}

func queryBool(r *http.Request, key string) bool {
	switch strings.ToLower(strings.TrimSpace(r.URL.Query().Get(key))) {
	case "1", "true", "yes":
		return true
	default:
		return false
	}
}

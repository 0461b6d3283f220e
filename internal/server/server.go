// Package server is the development server: static files from the output
// directory with live-reload script injection, the live-reload WebSocket,
// a health endpoint and Prometheus metrics.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os/exec"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/conneroisu/assetflow/internal/config"
	"github.com/conneroisu/assetflow/internal/logging"
	"github.com/conneroisu/assetflow/internal/validation"
	"github.com/conneroisu/assetflow/internal/version"
	"github.com/klauspost/compress/gzhttp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/afero"
)

// Endpoint paths.
const (
	PathPrefix   = "/__assetflow/"
	PathWS       = PathPrefix + "ws"
	PathClient   = PathPrefix + "client.js"
	PathHealth   = PathPrefix + "health"
	PathMetrics  = "/metrics"
	shutdownWait = 5 * time.Second
)

// Server serves the output directory with live reload.
type Server struct {
	config   *config.Config
	fs       afero.Fs
	hub      *Hub
	logger   logging.Logger
	gatherer prometheus.Gatherer
	started  time.Time

	serverMutex sync.RWMutex
	httpServer  *http.Server
	listener    net.Listener
}

// New creates a server reading the output directory from fsys.
func New(cfg *config.Config, fsys afero.Fs, logger logging.Logger, gatherer prometheus.Gatherer) *Server {
	if logger == nil {
		logger = logging.NewNop()
	}
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return &Server{
		config:   cfg,
		fs:       fsys,
		hub:      NewHub(logger, cfg.Server.AllowedOrigins),
		logger:   logger.WithComponent("server"),
		gatherer: gatherer,
		started:  time.Now(),
	}
}

// Hub returns the live-reload hub.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle(PathWS, s.hub)
	mux.HandleFunc(PathClient, s.handleClient)
	mux.HandleFunc(PathHealth, s.handleHealth)
	mux.Handle(PathMetrics, promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	mux.Handle("/", gzhttp.GzipHandler(newStaticHandler(s.fs, s.config.Build.Output, s.logger)))
	return Chain(mux, requestLogging(s.logger), devHeaders)
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return net.JoinHostPort(s.config.Server.Host, strconv.Itoa(s.config.Server.Port))
}

// URL returns the address the server is listening on, or the configured
// one before Start.
func (s *Server) URL() string {
	s.serverMutex.RLock()
	defer s.serverMutex.RUnlock()
	if s.listener != nil {
		return "http://" + s.listener.Addr().String()
	}
	return "http://" + s.Addr()
}

// Start listens and serves until ctx is done.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.Addr())
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.Addr(), err)
	}

	s.serverMutex.Lock()
	s.listener = ln
	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	server := s.httpServer
	s.serverMutex.Unlock()

	hubCtx, stopHub := context.WithCancel(ctx)
	defer stopHub()
	go s.hub.Run(hubCtx)

	s.logger.Info(ctx, "Development server started", "url", s.URL())
	if s.config.Server.Open {
		go s.openBrowser(ctx, s.URL())
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
		stopHub()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownWait)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := map[string]interface{}{
		"status":    "healthy",
		"version":   version.GetShortVersion(),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
		"clients":   s.hub.ClientCount(),
		"output":    s.config.Build.Output,
		"timestamp": time.Now(),
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(health); err != nil {
		s.logger.Error(r.Context(), err, "Failed to encode health response")
	}
}

func (s *Server) handleClient(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
	_, _ = w.Write(clientScript)
}

func (s *Server) openBrowser(ctx context.Context, url string) {
	if err := validation.ValidateURL(url); err != nil {
		s.logger.Warn(ctx, err, "Refusing to open browser")
		return
	}
	time.Sleep(100 * time.Millisecond)

	var err error
	switch runtime.GOOS {
	case "linux":
		err = exec.Command("xdg-open", url).Start()
	case "windows":
		err = exec.Command("rundll32", "url.dll,FileProtocolHandler", url).Start()
	case "darwin":
		err = exec.Command("open", url).Start()
	default:
		err = fmt.Errorf("unsupported platform %s", runtime.GOOS)
	}

	if err != nil {
		s.logger.Warn(ctx, err, "Failed to open browser")
	}
}

package bridge

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/muurk/teensysecure/internal/extension"
	"github.com/muurk/teensysecure/internal/logging"
)

// DefaultListen is the bridge address when none is configured.
const DefaultListen = "127.0.0.1:7755"

// Config holds the bridge configuration
type Config struct {
	// Listen is a loopback host:port. Other interfaces are refused.
	Listen string
	// Session configures the session created for each connection.
	Session extension.Options
}

// Server accepts IDE connections and runs one session per connection.
type Server struct {
	config   *Config
	upgrader websocket.Upgrader
	http     *http.Server
	listener net.Listener

	wg          sync.WaitGroup
	mu          sync.Mutex
	activeConns map[string]*connection
}

// New creates a new Server instance
func New(config *Config) (*Server, error) {
	if config.Listen == "" {
		config.Listen = DefaultListen
	}
	if err := checkLoopback(config.Listen); err != nil {
		return nil, err
	}
	if config.Session.Logger == nil {
		config.Session.Logger = logging.Named("session")
	}

	s := &Server{
		config:      config,
		activeConns: make(map[string]*connection),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     checkOrigin,
	}
	s.http = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

// Handler returns the HTTP handler serving /ws and /healthz.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/healthz", handleHealth)
	return mux
}

// Start listens on the configured address and serves until ctx is done.
func (s *Server) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.config.Listen)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.Listen, err)
	}
	s.listener = listener

	logging.Info("Bridge listening for connections",
		zap.String("addr", listener.Addr().String()),
	)

	errChan := make(chan error, 1)
	go func() {
		errChan <- s.http.Serve(listener)
	}()

	select {
	case <-ctx.Done():
		logging.Info("Shutdown requested, stopping bridge...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.Shutdown(shutdownCtx)
	case err := <-errChan:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// Addr returns the listening address once Start has bound it.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	logRequestDetails(r)

	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied with an HTTP error.
		logging.Error("WebSocket upgrade failed",
			zap.String("remote_addr", r.RemoteAddr),
			zap.Error(err),
		)
		return
	}

	remoteAddr := ws.RemoteAddr().String()
	conn := newConnection(ws, remoteAddr, s.config.Session)

	s.mu.Lock()
	s.activeConns[remoteAddr] = conn
	s.mu.Unlock()
	s.wg.Add(1)

	defer func() {
		s.mu.Lock()
		delete(s.activeConns, remoteAddr)
		s.mu.Unlock()
		s.wg.Done()
	}()

	conn.serve()
}

// Shutdown stops accepting connections and closes the active ones.
func (s *Server) Shutdown(ctx context.Context) error {
	logging.Info("Shutting down bridge...")

	err := s.http.Shutdown(ctx)

	// Hijacked connections are not tracked by http.Server.
	s.mu.Lock()
	for addr, conn := range s.activeConns {
		logging.Info("Closing active connection", zap.String("remote_addr", addr))
		conn.close()
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logging.Info("All connections closed gracefully")
	case <-ctx.Done():
		logging.Warn("Shutdown timeout, forcing close")
	}

	logging.Sync()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// ActiveConnections returns the number of connected IDE windows.
func (s *Server) ActiveConnections() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.activeConns)
}

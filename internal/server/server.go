package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/muurk/mikettle/internal/discovery"
	"github.com/muurk/mikettle/internal/kettle"
	"github.com/muurk/mikettle/internal/logging"
	"github.com/muurk/mikettle/internal/version"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

// Config holds the server configuration
type Config struct {
	Host         string
	Port         int
	CertPath     string // Serve HTTPS when both CertPath and KeyPath are set
	KeyPath      string
	GenerateCert bool // Serve HTTPS with an in-memory self-signed certificate

	// Advertise registers the server over mDNS as InstanceName
	Advertise    bool
	InstanceName string
}

// StatusSource is the kettle the server reads from. *kettle.Client satisfies it.
type StatusSource interface {
	Status(allowCached bool) (kettle.Status, error)
	Address() string
	LastRead() time.Time
}

// Server exposes one kettle's status over HTTP and WebSocket
type Server struct {
	config    *Config
	source    StatusSource
	tlsConfig *tls.Config
	upgrader  websocket.Upgrader

	httpServer *http.Server
	advert     *discovery.Advertisement

	wg          sync.WaitGroup
	mu          sync.Mutex
	activeConns map[string]*websocket.Conn
}

// New creates a new Server instance
func New(config *Config, source StatusSource) (*Server, error) {
	if config == nil {
		return nil, errors.New("server config is required")
	}
	if source == nil {
		return nil, errors.New("status source is required")
	}

	var tlsConfig *tls.Config
	switch {
	case config.GenerateCert:
		if config.CertPath != "" || config.KeyPath != "" {
			return nil, errors.New("a generated certificate cannot be combined with certificate files")
		}
		cert, err := generateCert()
		if err != nil {
			return nil, fmt.Errorf("failed to generate certificate: %w", err)
		}
		logging.Info("Certificate generated",
			zap.String("CN", cert.Certificate.Subject.CommonName),
			zap.Strings("SANs", cert.Certificate.DNSNames),
			zap.Time("not_after", cert.Certificate.NotAfter),
		)
		tlsConfig, err = NewTLSConfigFromMemory(cert.CertPEM, cert.KeyPEM)
		if err != nil {
			return nil, err
		}
	case config.CertPath != "" || config.KeyPath != "":
		var err error
		tlsConfig, err = NewTLSConfig(config.CertPath, config.KeyPath)
		if err != nil {
			return nil, fmt.Errorf("failed to create TLS config: %w", err)
		}
	}

	s := &Server{
		config:      config,
		source:      source,
		tlsConfig:   tlsConfig,
		activeConns: make(map[string]*websocket.Conn),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		// Status is read-only, any origin may watch it
		CheckOrigin: func(*http.Request) bool { return true },
	}
	return s, nil
}

// Handler returns the HTTP routes of the server
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/status", s.handleStatus)
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/version", s.handleVersion)
	return logRequests(mux)
}

// Start starts the server and blocks until shutdown
func (s *Server) Start() error {
	addr := net.JoinHostPort(s.config.Host, fmt.Sprintf("%d", s.config.Port))

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	scheme := "http"
	if s.tlsConfig != nil {
		listener = tls.NewListener(listener, s.tlsConfig)
		scheme = "https"
		logging.Info("TLS Configuration",
			zap.Any("tls_info", GetTLSInfo(s.tlsConfig)),
		)
	}

	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	logging.Info("Starting mikettle status server",
		zap.String("addr", listener.Addr().String()),
		zap.String("scheme", scheme),
		zap.String("kettle", s.source.Address()),
	)

	if s.config.Advertise {
		port := listener.Addr().(*net.TCPAddr).Port
		name := s.config.InstanceName
		if name == "" {
			name = "mikettle"
		}
		s.advert, err = discovery.Advertise(name, port, discovery.TXTRecords(s.source.Address(), version.Version))
		if err != nil {
			_ = listener.Close()
			return err
		}
		logging.Info("Advertising over mDNS",
			zap.String("instance", name),
			zap.String("service", discovery.ServiceType),
			zap.Int("port", port),
		)
	}

	// Set up signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	errChan := make(chan error, 1)
	go func() {
		errChan <- s.httpServer.Serve(listener)
	}()

	select {
	case <-sigChan:
		logging.Info("Shutdown signal received, stopping server...")
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return s.Shutdown(ctx)
	case err := <-errChan:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	logging.Info("Shutting down server...")

	s.advert.Shutdown()

	var err error
	if s.httpServer != nil {
		if err = s.httpServer.Shutdown(ctx); err != nil {
			logging.Error("Error stopping HTTP server", zap.Error(err))
		}
	}

	// Hijacked websocket connections are not closed by http.Server
	s.mu.Lock()
	for addr, conn := range s.activeConns {
		logging.Info("Closing active connection", zap.String("remote_addr", addr))
		_ = conn.Close()
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
	return err
}

// GetActiveConnections returns the number of open websocket connections
func (s *Server) GetActiveConnections() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.activeConns)
}

func (s *Server) track(addr string, conn *websocket.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activeConns[addr] = conn
}

func (s *Server) untrack(addr string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.activeConns, addr)
}

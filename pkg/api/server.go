package api

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"log/slog"
	"math/big"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kawaemon/ios-xr-switch-config-builder/pkg/configstore"
	"github.com/kawaemon/ios-xr-switch-config-builder/pkg/logging"
)

// Config configures the API server.
type Config struct {
	Addr      string
	HTTPSAddr string      // HTTPS listen address (empty = no HTTPS)
	TLS       bool        // enable HTTPS with auto-generated certificate
	CertDir   string      // where the generated certificate is kept
	Auth      *AuthConfig // nil = no authentication
	Store     *configstore.Store
	EventBuf  *logging.EventBuffer
}

// Server is the HTTP API server.
type Server struct {
	httpServer  *http.Server
	httpsServer *http.Server
	handler     http.Handler
	store       *configstore.Store
	eventBuf    *logging.EventBuffer
	metrics     *requestMetrics
	startTime   time.Time
}

// NewServer creates a new API server.
func NewServer(cfg Config) *Server {
	s := &Server{
		store:     cfg.Store,
		eventBuf:  cfg.EventBuf,
		metrics:   newRequestMetrics(),
		startTime: time.Now(),
	}
	if s.store == nil {
		s.store = configstore.New(nil)
	}

	mux := http.NewServeMux()

	// Health + metrics
	mux.HandleFunc("GET /health", s.healthHandler)

	// Prometheus metrics with isolated registry
	registry := prometheus.NewRegistry()
	registry.MustRegister(newCollector(s))
	s.metrics.register(registry)
	mux.Handle("GET /metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	// REST API v1
	mux.HandleFunc("GET /api/v1/status", s.statusHandler)

	// Stateless transformations
	mux.HandleFunc("POST /api/v1/parse", s.parseHandler)
	mux.HandleFunc("POST /api/v1/analyze", s.analyzeHandler)
	mux.HandleFunc("POST /api/v1/generate", s.generateHandler)

	// Config management
	mux.HandleFunc("GET /api/v1/config", s.configHandler)
	mux.HandleFunc("PUT /api/v1/config", s.configSetBaseHandler)
	mux.HandleFunc("POST /api/v1/config/preview", s.configPreviewHandler)
	mux.HandleFunc("POST /api/v1/config/commit", s.configCommitHandler)
	mux.HandleFunc("POST /api/v1/config/commit-check", s.configCommitCheckHandler)
	mux.HandleFunc("POST /api/v1/config/rollback", s.configRollbackHandler)
	mux.HandleFunc("GET /api/v1/config/history", s.configHistoryHandler)
	mux.HandleFunc("GET /api/v1/config/compare", s.configCompareHandler)

	// Events
	mux.HandleFunc("GET /api/v1/events", s.eventsHandler)
	mux.HandleFunc("GET /api/v1/events/stream", s.eventStreamHandler)

	var handler http.Handler = mux
	if cfg.Auth != nil {
		handler = authMiddleware(*cfg.Auth, mux)
	}
	s.handler = handler

	s.httpServer = &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Set up HTTPS server with auto-generated self-signed certificate
	if cfg.TLS && cfg.HTTPSAddr != "" {
		tlsCert, err := generateSelfSignedCert(cfg.CertDir)
		if err != nil {
			slog.Warn("failed to generate self-signed certificate", "err", err)
		} else {
			s.httpsServer = &http.Server{
				Addr:              cfg.HTTPSAddr,
				Handler:           handler,
				ReadHeaderTimeout: 10 * time.Second,
				TLSConfig: &tls.Config{
					Certificates: []tls.Certificate{tlsCert},
					MinVersion:   tls.VersionTLS12,
				},
			}
		}
	}

	return s
}

// Handler returns the root handler, auth middleware included.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Run starts the HTTP (and optionally HTTPS) server and blocks until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 2)
	go func() {
		slog.Info("HTTP API server listening", "addr", ln.Addr().String())
		if err := s.httpServer.Serve(ln); err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// Start HTTPS server if configured
	if s.httpsServer != nil {
		go func() {
			slog.Info("HTTPS API server listening", "addr", s.httpsServer.Addr)
			if err := s.httpsServer.ListenAndServeTLS("", ""); err != http.ErrServerClosed {
				errCh <- err
			}
		}()
	}

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if s.httpsServer != nil {
		s.httpsServer.Shutdown(shutdownCtx)
	}
	return s.httpServer.Shutdown(shutdownCtx)
}

// generateSelfSignedCert loads the certificate kept in dir, creating and
// persisting a new one when none exists. An empty dir keeps it in memory.
func generateSelfSignedCert(dir string) (tls.Certificate, error) {
	certPath := filepath.Join(dir, "api.crt")
	keyPath := filepath.Join(dir, "api.key")

	// Try loading existing cert
	if dir != "" {
		if cert, err := tls.LoadX509KeyPair(certPath, keyPath); err == nil {
			return cert, nil
		}
	}

	// Generate new ECDSA key
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return tls.Certificate{}, err
	}

	hostname, _ := os.Hostname()
	if hostname == "" {
		hostname = "xrcfgd"
	}

	template := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: hostname, Organization: []string{"xrcfg"}},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(10 * 365 * 24 * time.Hour), // 10 years
		KeyUsage:     x509.KeyUsageDigitalSignature | x509.KeyUsageKeyEncipherment,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
	}

	certDER, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	if err != nil {
		return tls.Certificate{}, err
	}

	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: certDER})
	keyDER, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		return tls.Certificate{}, err
	}
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER})

	// Persist for reuse across restarts
	if dir != "" {
		os.MkdirAll(dir, 0700)
		os.WriteFile(certPath, certPEM, 0644)
		os.WriteFile(keyPath, keyPEM, 0600)
	}

	return tls.X509KeyPair(certPEM, keyPEM)
}

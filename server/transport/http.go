package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/gate4ai/hostbridge/shared/config"
	"go.uber.org/zap"
	"golang.org/x/crypto/acme/autocert"
)

const acmeChallengeAddr = ":80"

type tlsSetup struct {
	enabled  bool
	acme     *autocert.Manager
	certFile string
	keyFile  string
}

// StartHTTPServer binds the listen address and serves mux on it. Bind and
// TLS configuration errors are returned immediately; errors from the running
// listener are reported on the returned channel, which is closed when the
// server stops. The server's Addr holds the bound address.
func StartHTTPServer(ctx context.Context, logger *zap.Logger, cfg config.IConfig, mux http.Handler, overwriteListenAddr string) (*http.Server, <-chan error, error) {
	if logger == nil {
		return nil, nil, errors.New("logger cannot be nil")
	}
	if cfg == nil {
		return nil, nil, errors.New("config cannot be nil")
	}
	if mux == nil {
		return nil, nil, errors.New("http handler (mux) cannot be nil")
	}

	listenAddr := overwriteListenAddr
	if listenAddr == "" {
		var err error
		listenAddr, err = cfg.ListenAddr()
		if err != nil {
			return nil, nil, fmt.Errorf("failed to get listen address: %w", err)
		}
	}

	setup, err := loadTLSSetup(cfg)
	if err != nil {
		return nil, nil, err
	}

	server := &http.Server{
		Handler:     mux,
		ReadTimeout: 30 * time.Second,
		// No WriteTimeout: SSE and WebSocket streams stay open for the
		// lifetime of the runtime connection.
		IdleTimeout: 90 * time.Second,
		BaseContext: func(_ net.Listener) context.Context { return ctx },
	}
	if setup.acme != nil {
		server.TLSConfig = setup.acme.TLSConfig()
		startACMEChallengeListener(ctx, logger, setup.acme)
	}

	listener, err := net.Listen("tcp", listenAddr)
	if err != nil {
		return nil, nil, fmt.Errorf("listen on %s: %w", listenAddr, err)
	}
	server.Addr = listener.Addr().String()

	listenerErrChan := make(chan error, 1)
	go func() {
		defer close(listenerErrChan)
		var err error
		if setup.enabled {
			logger.Info("Starting HTTPS Server", zap.String("addr", server.Addr), zap.Bool("isACME", setup.acme != nil))
			err = server.ServeTLS(listener, setup.certFile, setup.keyFile)
		} else {
			logger.Info("Starting HTTP Server", zap.String("addr", server.Addr))
			err = server.Serve(listener)
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP Server listener error", zap.Error(err))
			listenerErrChan <- err
			return
		}
		logger.Info("HTTP Server listener stopped gracefully")
	}()

	return server, listenerErrChan, nil
}

func loadTLSSetup(cfg config.IConfig) (tlsSetup, error) {
	enabled, err := cfg.SSLEnabled()
	if err != nil || !enabled {
		return tlsSetup{}, nil
	}
	setup := tlsSetup{enabled: true}

	if mode, _ := cfg.SSLMode(); mode == "acme" {
		domains, err := cfg.SSLAcmeDomains()
		if err != nil || len(domains) == 0 {
			return setup, fmt.Errorf("ACME mode requires at least one domain in config (key 'ssl.acme_domains'): %w", err)
		}
		email, _ := cfg.SSLAcmeEmail()
		cacheDir, err := cfg.SSLAcmeCacheDir()
		if err != nil {
			return setup, fmt.Errorf("failed to get ACME cache directory: %w", err)
		}
		if err := os.MkdirAll(cacheDir, 0o700); err != nil {
			return setup, fmt.Errorf("failed to create ACME cache directory '%s': %w", cacheDir, err)
		}
		setup.acme = &autocert.Manager{
			Prompt:     autocert.AcceptTOS,
			HostPolicy: autocert.HostWhitelist(domains...),
			Email:      email,
			Cache:      autocert.DirCache(cacheDir),
		}
		return setup, nil
	}

	setup.certFile, err = cfg.SSLCertFile()
	if err != nil || setup.certFile == "" {
		return setup, fmt.Errorf("manual SSL mode requires a certificate file path (config key 'ssl.cert_file'): %w", err)
	}
	setup.keyFile, err = cfg.SSLKeyFile()
	if err != nil || setup.keyFile == "" {
		return setup, fmt.Errorf("manual SSL mode requires a private key file path (config key 'ssl.key_file'): %w", err)
	}
	return setup, nil
}

// startACMEChallengeListener answers HTTP-01 challenges until ctx is done.
func startACMEChallengeListener(ctx context.Context, logger *zap.Logger, m *autocert.Manager) {
	challenge := &http.Server{
		Addr:              acmeChallengeAddr,
		Handler:           m.HTTPHandler(nil),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("Starting ACME HTTP challenge listener", zap.String("addr", acmeChallengeAddr))
		if err := challenge.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("ACME HTTP challenge listener error", zap.Error(err))
		}
	}()
	go func() {
		<-ctx.Done()
		_ = challenge.Close()
	}()
}

// ShutdownHTTPServer attempts a graceful shutdown of the HTTP server.
func ShutdownHTTPServer(ctx context.Context, logger *zap.Logger, server *http.Server) {
	if server == nil {
		logger.Warn("Shutdown requested but server instance is nil")
		return
	}
	logger.Info("Attempting graceful shutdown of HTTP/S server")
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("HTTP/S server graceful shutdown failed", zap.Error(err))
		_ = server.Close()
		return
	}
	logger.Info("HTTP/S server shut down gracefully")
}

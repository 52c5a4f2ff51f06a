package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gate4ai/hostbridge/server/bridge"
	"github.com/gate4ai/hostbridge/server/bridge/capability"
	"github.com/gate4ai/hostbridge/server/bridge/validators"
	"github.com/gate4ai/hostbridge/server/extra"
	"github.com/gate4ai/hostbridge/server/transport"
	"github.com/gate4ai/hostbridge/shared/config"
	"go.uber.org/zap"
)

const shutdownTimeout = 15 * time.Second

// Server is a running bridge host.
type Server struct {
	bridge *bridge.Bridge
	http   *http.Server
	errs   <-chan error
	done   chan struct{}
}

// Bridge returns the bridge the server exposes.
func (s *Server) Bridge() *bridge.Bridge { return s.bridge }

// Addr is the bound listen address.
func (s *Server) Addr() string { return s.http.Addr }

// Errors reports listener failures. It is closed when the listener stops.
func (s *Server) Errors() <-chan error { return s.errs }

// Done is closed once shutdown has finished.
func (s *Server) Done() <-chan struct{} { return s.done }

// Start builds the bridge, registers its routes and starts serving. The
// server shuts down when ctx is done.
func Start(ctx context.Context, logger *zap.Logger, cfg config.IConfig, options ...ServerOption) (*Server, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}

	listenAddr, err := cfg.ListenAddr()
	if err != nil {
		return nil, fmt.Errorf("failed to get listen address: %w", err)
	}
	builder := newBuilder(ctx, logger, cfg, listenAddr)

	logger.Info("Applying server configuration options...")
	for _, option := range options {
		if err := option(builder); err != nil {
			return nil, fmt.Errorf("failed to apply server option: %w", err)
		}
	}

	b := bridge.New(logger, builder.EnsurePlatform())

	if builder.defaultValidators {
		limits, err := cfg.Limits()
		if err != nil {
			logger.Warn("Failed to read limits, using defaults", zap.Error(err))
			limits = config.DefaultLimits()
		}
		b.Manager().AddValidator(validators.FromLimits(limits)...)
	}
	if len(builder.validators) > 0 {
		b.Manager().AddValidator(builder.validators...)
	}

	if builder.defaultCommands {
		b.AddCapability(capability.All(b)...)
	}
	for _, factory := range builder.groupFactories {
		b.AddCapability(factory(b)...)
	}
	logger.Info("Registered commands", zap.Strings("commands", b.Commands()))

	transportOptions := builder.transportOptions
	if builder.lifecycleRoute {
		if driver, ok := builder.platform.(transport.LifecycleDriver); ok {
			transportOptions = append(transportOptions, transport.WithLifecycleDriver(driver))
		}
	}
	t, err := transport.New(b.Manager(), logger, cfg, transportOptions...)
	if err != nil {
		b.Close()
		return nil, fmt.Errorf("failed to create transport: %w", err)
	}
	t.RegisterHandlers(builder.mux)

	logger.Info("Registering status handler", zap.String("path", "/status"))
	builder.mux.HandleFunc("/status", extra.StatusHandler(cfg, b, logger))

	httpServer, listenerErrChan, err := transport.StartHTTPServer(ctx, logger, cfg, builder.mux, builder.listenAddr)
	if err != nil {
		t.Close()
		b.Close()
		return nil, fmt.Errorf("failed to start HTTP server: %w", err)
	}

	s := &Server{bridge: b, http: httpServer, errs: listenerErrChan, done: make(chan struct{})}
	go func() {
		defer close(s.done)
		<-ctx.Done()
		logger.Info("Shutdown signal received, stopping server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		t.Close()
		b.Manager().CloseAllSessions()
		transport.ShutdownHTTPServer(shutdownCtx, logger, httpServer)
		b.Close()
		logger.Info("Server stopped.")
	}()

	return s, nil
}

package server

import (
	"context"
	"net/http"

	"github.com/gate4ai/hostbridge/server/bridge"
	"github.com/gate4ai/hostbridge/server/host"
	"github.com/gate4ai/hostbridge/server/transport"
	"github.com/gate4ai/hostbridge/shared"
	"github.com/gate4ai/hostbridge/shared/config"
	"go.uber.org/zap"
)

// ServerBuilder collects what Start needs before the bridge is created.
type ServerBuilder struct {
	ctx        context.Context
	logger     *zap.Logger
	cfg        config.IConfig
	listenAddr string
	platform   host.Platform
	mux        *http.ServeMux

	// Command groups are built once the bridge exists.
	groupFactories  []func(*bridge.Bridge) []bridge.CommandGroup
	defaultCommands bool

	validators        []shared.MessageValidator
	defaultValidators bool

	transportOptions []transport.TransportOption
	lifecycleRoute   bool
}

func newBuilder(ctx context.Context, logger *zap.Logger, cfg config.IConfig, listenAddr string) *ServerBuilder {
	return &ServerBuilder{
		ctx:               ctx,
		logger:            logger,
		cfg:               cfg,
		listenAddr:        listenAddr,
		mux:               http.NewServeMux(),
		defaultCommands:   true,
		defaultValidators: true,
		lifecycleRoute:    true,
	}
}

// EnsurePlatform falls back to the config-driven shell platform.
func (b *ServerBuilder) EnsurePlatform() host.Platform {
	if b.platform == nil {
		b.logger.Debug("Initializing shell platform")
		b.platform = host.NewShellPlatform(b.cfg, b.logger)
	}
	return b.platform
}

// ServerOption defines a function type for configuring the ServerBuilder.
type ServerOption func(*ServerBuilder) error

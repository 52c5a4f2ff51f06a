package server

import (
	"errors"
	"time"

	"github.com/gate4ai/hostbridge/server/bridge"
	"github.com/gate4ai/hostbridge/server/host"
	"github.com/gate4ai/hostbridge/server/transport"
	"github.com/gate4ai/hostbridge/shared"
	"go.uber.org/zap"
)

// WithListenAddr overrides the listen address from the config.
func WithListenAddr(addr string) ServerOption {
	return func(b *ServerBuilder) error {
		// Empty means "use config default".
		if addr != "" {
			b.listenAddr = addr
			b.logger.Info("Overriding listen address", zap.String("newAddress", addr))
		}
		return nil
	}
}

// WithPlatform replaces the shell platform.
func WithPlatform(p host.Platform) ServerOption {
	return func(b *ServerBuilder) error {
		if p == nil {
			return errors.New("platform cannot be nil")
		}
		b.platform = p
		return nil
	}
}

// WithCommandGroups registers extra command groups. factory runs once the
// bridge exists, so groups can reach its invoker and capabilities.
func WithCommandGroups(factory func(*bridge.Bridge) []bridge.CommandGroup) ServerOption {
	return func(b *ServerBuilder) error {
		if factory == nil {
			return errors.New("command group factory cannot be nil")
		}
		b.groupFactories = append(b.groupFactories, factory)
		return nil
	}
}

// WithoutDefaultCommands skips the built-in command set.
func WithoutDefaultCommands() ServerOption {
	return func(b *ServerBuilder) error {
		b.defaultCommands = false
		return nil
	}
}

// WithValidators adds message validators after the default ones.
func WithValidators(validators ...shared.MessageValidator) ServerOption {
	return func(b *ServerBuilder) error {
		b.validators = append(b.validators, validators...)
		return nil
	}
}

// WithoutDefaultValidators skips the validators derived from config limits.
func WithoutDefaultValidators() ServerOption {
	return func(b *ServerBuilder) error {
		b.defaultValidators = false
		return nil
	}
}

// WithSessionTimeout overrides the idle session timeout from the config.
func WithSessionTimeout(timeout time.Duration) ServerOption {
	return func(b *ServerBuilder) error {
		if timeout <= 0 {
			return errors.New("session timeout must be positive")
		}
		b.logger.Info("Configuring session timeout", zap.Duration("timeout", timeout))
		b.transportOptions = append(b.transportOptions, transport.WithSessionTimeout(timeout))
		return nil
	}
}

// WithoutLifecycleEndpoint keeps the host lifecycle endpoint unregistered
// even when the platform could drive it.
func WithoutLifecycleEndpoint() ServerOption {
	return func(b *ServerBuilder) error {
		b.lifecycleRoute = false
		return nil
	}
}

package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

const EnvPrefix = "BRIDGE_"

// envOverrides lists the settings that may be overridden from the
// environment, e.g. BRIDGE_API_LEVEL=30.
type envOverrides struct {
	ListenAddr  string `env:"LISTEN_ADDR"`
	LogLevel    string `env:"LOG_LEVEL"`
	APILevel    int    `env:"API_LEVEL"`
	PackageName string `env:"PACKAGE_NAME"`
	Authority   string `env:"FILE_PROVIDER_AUTHORITY"`
}

func applyEnvOverrides(cfg *yamlConfig) error {
	var o envOverrides
	if err := env.ParseWithOptions(&o, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	if o.ListenAddr != "" {
		cfg.Server.Address = o.ListenAddr
	}
	if o.LogLevel != "" {
		cfg.Server.LogLevel = o.LogLevel
	}
	if o.APILevel > 0 {
		cfg.Host.APILevel = o.APILevel
	}
	if o.PackageName != "" {
		cfg.Host.PackageName = o.PackageName
	}
	if o.Authority != "" {
		cfg.Host.FileProviderAuthority = o.Authority
	}
	return nil
}

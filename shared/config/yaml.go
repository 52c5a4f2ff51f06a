package config

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

var _ IConfig = (*YamlConfig)(nil)

// YamlConfig implements IConfig backed by a YAML file. Environment
// variables with the BRIDGE_ prefix override file values on every reload.
type YamlConfig struct {
	mu            sync.RWMutex
	configPath    string
	logger        *zap.Logger
	serverAddress string
	serverName    string
	serverVersion string
	logLevel      string
	limits        Limits

	apiLevel    int
	packageName string
	authority   string
	actions     []ActionRule

	sslEnabled      bool
	sslMode         string
	sslCertFile     string
	sslKeyFile      string
	sslAcmeDomains  []string
	sslAcmeEmail    string
	sslAcmeCacheDir string

	onChange []func()
}

// yamlConfig mirrors the file layout.
type yamlConfig struct {
	Server struct {
		Address  string `yaml:"address"`
		Name     string `yaml:"name"`
		Version  string `yaml:"version"`
		LogLevel string `yaml:"log_level"`
		SSL      struct {
			Enabled      bool     `yaml:"enabled"`
			Mode         string   `yaml:"mode"`
			CertFile     string   `yaml:"cert_file"`
			KeyFile      string   `yaml:"key_file"`
			AcmeDomains  []string `yaml:"acme_domains"`
			AcmeEmail    string   `yaml:"acme_email"`
			AcmeCacheDir string   `yaml:"acme_cache_dir"`
		} `yaml:"ssl"`
		Limits struct {
			RPS            int    `yaml:"rps"`
			RPM            int    `yaml:"rpm"`
			MaxMessageSize int64  `yaml:"max_message_size"`
			SessionTimeout string `yaml:"session_timeout"`
		} `yaml:"limits"`
	} `yaml:"server"`

	Host struct {
		APILevel              int          `yaml:"api_level"`
		PackageName           string       `yaml:"package_name"`
		FileProviderAuthority string       `yaml:"file_provider_authority"`
		Actions               []ActionRule `yaml:"actions"`
	} `yaml:"host"`
}

// NewYamlConfig loads configPath and applies environment overrides.
func NewYamlConfig(configPath string, logger *zap.Logger) (*YamlConfig, error) {
	if logger == nil {
		logger, _ = zap.NewProduction()
	}

	config := &YamlConfig{
		configPath: configPath,
		logger:     logger,
	}

	if err := config.Update(); err != nil {
		return nil, err
	}
	return config, nil
}

// Update reloads configuration from the YAML file
func (c *YamlConfig) Update() error {
	c.logger.Debug("Updating configuration from YAML file", zap.String("path", c.configPath))

	data, err := os.ReadFile(c.configPath)
	if err != nil {
		c.logger.Error("Failed to read config file", zap.Error(err))
		return fmt.Errorf("read config %s: %w", c.configPath, err)
	}

	var yamlCfg yamlConfig
	if err := yaml.Unmarshal(data, &yamlCfg); err != nil {
		c.logger.Error("Failed to parse YAML", zap.Error(err))
		return fmt.Errorf("parse config %s: %w", c.configPath, err)
	}
	if err := applyEnvOverrides(&yamlCfg); err != nil {
		return err
	}

	limits := DefaultLimits()
	l := yamlCfg.Server.Limits
	if l.RPS > 0 {
		limits.RPS = l.RPS
	}
	if l.RPM > 0 {
		limits.RPM = l.RPM
	}
	if l.MaxMessageSize > 0 {
		limits.MaxMessageSize = l.MaxMessageSize
	}
	if l.SessionTimeout != "" {
		timeout, err := time.ParseDuration(l.SessionTimeout)
		if err != nil {
			return fmt.Errorf("invalid server.limits.session_timeout %q: %w", l.SessionTimeout, err)
		}
		limits.SessionTimeout = timeout
	}

	c.mu.Lock()
	// --- Server Section ---
	c.serverAddress = yamlCfg.Server.Address
	if c.serverAddress == "" {
		c.serverAddress = ":8080"
	}
	c.serverName = yamlCfg.Server.Name
	c.serverVersion = yamlCfg.Server.Version
	c.logLevel = yamlCfg.Server.LogLevel
	c.limits = limits

	// --- SSL Section ---
	c.sslEnabled = yamlCfg.Server.SSL.Enabled
	c.sslMode = strings.ToLower(yamlCfg.Server.SSL.Mode)
	if c.sslMode != "acme" {
		c.sslMode = "manual"
	}
	c.sslCertFile = yamlCfg.Server.SSL.CertFile
	c.sslKeyFile = yamlCfg.Server.SSL.KeyFile
	c.sslAcmeDomains = yamlCfg.Server.SSL.AcmeDomains
	c.sslAcmeEmail = yamlCfg.Server.SSL.AcmeEmail
	c.sslAcmeCacheDir = yamlCfg.Server.SSL.AcmeCacheDir
	if c.sslAcmeCacheDir == "" {
		c.sslAcmeCacheDir = "./.autocert-cache"
	}

	// --- Host Section ---
	c.apiLevel = yamlCfg.Host.APILevel
	c.packageName = yamlCfg.Host.PackageName
	c.authority = yamlCfg.Host.FileProviderAuthority
	c.actions = append([]ActionRule{}, yamlCfg.Host.Actions...)
	callbacks := append([]func(){}, c.onChange...)
	c.mu.Unlock()

	for _, cb := range callbacks {
		cb()
	}
	return nil
}

// OnChange registers a callback invoked after every successful reload.
func (c *YamlConfig) OnChange(cb func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onChange = append(c.onChange, cb)
}

func (c *YamlConfig) Close() error { return nil }

func (c *YamlConfig) ListenAddr() (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.serverAddress, nil
}
func (c *YamlConfig) ServerName() (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.serverName, nil
}
func (c *YamlConfig) ServerVersion() (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.serverVersion, nil
}
func (c *YamlConfig) LogLevel() (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.logLevel, nil
}
func (c *YamlConfig) Limits() (Limits, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.limits, nil
}

func (c *YamlConfig) HostAPILevel() (int, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.apiLevel <= 0 {
		return 0, fmt.Errorf("host.api_level: %w", ErrNotFound)
	}
	return c.apiLevel, nil
}
func (c *YamlConfig) HostPackageName() (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.packageName == "" {
		return "", fmt.Errorf("host.package_name: %w", ErrNotFound)
	}
	return c.packageName, nil
}
func (c *YamlConfig) FileProviderAuthority() (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return defaultAuthority(c.packageName, c.authority), nil
}
func (c *YamlConfig) HostActions() ([]ActionRule, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	rules := make([]ActionRule, len(c.actions))
	copy(rules, c.actions)
	return rules, nil
}

// Status checks that the backing file is still readable.
func (c *YamlConfig) Status(ctx context.Context) error {
	if _, err := os.Stat(c.configPath); err != nil {
		return fmt.Errorf("config file unavailable: %w", err)
	}
	return nil
}

func (c *YamlConfig) SSLEnabled() (bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sslEnabled, nil
}
func (c *YamlConfig) SSLMode() (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sslMode, nil
}
func (c *YamlConfig) SSLCertFile() (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sslCertFile, nil
}
func (c *YamlConfig) SSLKeyFile() (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sslKeyFile, nil
}
func (c *YamlConfig) SSLAcmeDomains() ([]string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]string{}, c.sslAcmeDomains...), nil
}
func (c *YamlConfig) SSLAcmeEmail() (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sslAcmeEmail, nil
}
func (c *YamlConfig) SSLAcmeCacheDir() (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sslAcmeCacheDir, nil
}

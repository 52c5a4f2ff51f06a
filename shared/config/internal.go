package config

import (
	"context"
	"sync"
)

var _ IConfig = (*InternalConfig)(nil)

// InternalConfig implements IConfig with in-memory storage. Fields are
// exported so tests can set them directly.
type InternalConfig struct {
	mu                 sync.RWMutex
	ServerAddress      string
	ServerNameValue    string
	ServerVersionValue string
	LogLevelValue      string
	LimitsValue        Limits

	APILevelValue    int
	PackageNameValue string
	AuthorityValue   string
	Actions          []ActionRule

	SSLEnabledValue      bool
	SSLModeValue         string
	SSLCertFileValue     string
	SSLKeyFileValue      string
	SSLAcmeDomainsValue  []string
	SSLAcmeEmailValue    string
	SSLAcmeCacheDirValue string
}

// NewInternalConfig creates a new in-memory configuration
func NewInternalConfig() *InternalConfig {
	return &InternalConfig{
		ServerAddress:        ":8080",
		ServerNameValue:      "hostbridge",
		ServerVersionValue:   "0.0.0",
		LogLevelValue:        "info",
		LimitsValue:          DefaultLimits(),
		APILevelValue:        34,
		PackageNameValue:     "com.example.piliplus",
		SSLModeValue:         "manual",
		SSLAcmeCacheDirValue: "./.autocert-cache",
	}
}

func (c *InternalConfig) ListenAddr() (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ServerAddress, nil
}

func (c *InternalConfig) SetListenAddr(addr string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ServerAddress = addr
}

func (c *InternalConfig) ServerName() (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ServerNameValue, nil
}

func (c *InternalConfig) ServerVersion() (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ServerVersionValue, nil
}

func (c *InternalConfig) LogLevel() (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.LogLevelValue, nil
}

func (c *InternalConfig) Limits() (Limits, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.LimitsValue, nil
}

func (c *InternalConfig) HostAPILevel() (int, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.APILevelValue, nil
}

// SetHostAPILevel changes the reported platform version.
func (c *InternalConfig) SetHostAPILevel(level int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.APILevelValue = level
}

func (c *InternalConfig) HostPackageName() (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.PackageNameValue, nil
}

func (c *InternalConfig) FileProviderAuthority() (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return defaultAuthority(c.PackageNameValue, c.AuthorityValue), nil
}

func (c *InternalConfig) HostActions() ([]ActionRule, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	rules := make([]ActionRule, len(c.Actions))
	copy(rules, c.Actions)
	return rules, nil
}

// AddAction appends an action rule.
func (c *InternalConfig) AddAction(rule ActionRule) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Actions = append(c.Actions, rule)
}

func (c *InternalConfig) SSLEnabled() (bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.SSLEnabledValue, nil
}

func (c *InternalConfig) SSLMode() (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.SSLModeValue, nil
}

func (c *InternalConfig) SSLCertFile() (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.SSLCertFileValue, nil
}

func (c *InternalConfig) SSLKeyFile() (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.SSLKeyFileValue, nil
}

func (c *InternalConfig) SSLAcmeDomains() ([]string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	domains := make([]string, len(c.SSLAcmeDomainsValue))
	copy(domains, c.SSLAcmeDomainsValue)
	return domains, nil
}

func (c *InternalConfig) SSLAcmeEmail() (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.SSLAcmeEmailValue, nil
}

func (c *InternalConfig) SSLAcmeCacheDir() (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.SSLAcmeCacheDirValue, nil
}

func (c *InternalConfig) Close() error {
	return nil
}

func (c *InternalConfig) Status(ctx context.Context) error {
	return nil
}

package config

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("not found")

// ActionRule maps a host action onto a local command. Empty Component and
// MIMEType match anything. Command entries may contain placeholders that
// the shell platform expands: {data}, {type}, {component} and {extra:<key>}.
type ActionRule struct {
	Action    string   `yaml:"action"`
	Component string   `yaml:"component"`
	MIMEType  string   `yaml:"mime_type"`
	Command   []string `yaml:"command"`
}

// Limits bounds what a single runtime session may send.
type Limits struct {
	RPS            int
	RPM            int
	MaxMessageSize int64
	SessionTimeout time.Duration
}

type IConfig interface {
	// Core Server Settings
	ListenAddr() (string, error)
	ServerName() (string, error)
	ServerVersion() (string, error)
	LogLevel() (string, error)
	Limits() (Limits, error)

	// Host Platform Settings
	HostAPILevel() (int, error)
	HostPackageName() (string, error)
	FileProviderAuthority() (string, error) // defaults to <package>.fileprovider
	HostActions() ([]ActionRule, error)

	// SSL Settings
	SSLEnabled() (bool, error)
	SSLMode() (string, error)          // Returns "manual" or "acme"
	SSLCertFile() (string, error)      // Path to certificate file (manual mode)
	SSLKeyFile() (string, error)       // Path to private key file (manual mode)
	SSLAcmeDomains() ([]string, error) // List of domains for ACME
	SSLAcmeEmail() (string, error)     // Contact email for ACME
	SSLAcmeCacheDir() (string, error)  // Directory to cache ACME certificates

	// Lifecycle & Status
	Status(ctx context.Context) error
	Close() error
}

// DefaultLimits mirrors the validator defaults used when nothing is configured.
func DefaultLimits() Limits {
	return Limits{
		RPS:            60,
		RPM:            600,
		MaxMessageSize: 100 * 1024,
		SessionTimeout: 30 * time.Minute,
	}
}

func defaultAuthority(packageName, authority string) string {
	if authority != "" {
		return authority
	}
	return packageName + ".fileprovider"
}

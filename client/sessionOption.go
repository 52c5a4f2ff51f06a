package client

import (
	"errors"
	"net/http"
	"time"
)

// SessionOption defines a function type for configuring a Session.
type SessionOption func(*Session) error

// WithHTTPClient sets the client used for POSTing commands.
func WithHTTPClient(client *http.Client) SessionOption {
	return func(s *Session) error {
		if client == nil {
			return errors.New("http client cannot be nil")
		}
		s.httpClient = client
		return nil
	}
}

// WithHeaders adds headers to every request of the session.
func WithHeaders(headers map[string]string) SessionOption {
	return func(s *Session) error {
		if s.headers == nil {
			s.headers = make(map[string]string, len(headers))
		}
		for key, value := range headers {
			s.headers[key] = value
		}
		return nil
	}
}

// WithReconnectTimeout bounds how long the SSE stream keeps retrying.
// Zero retries until the session context is done.
func WithReconnectTimeout(d time.Duration) SessionOption {
	return func(s *Session) error {
		if d < 0 {
			return errors.New("reconnect timeout cannot be negative")
		}
		s.reconnectTimeout = d
		return nil
	}
}

// WithLifecycleListener registers fn for lifecycle pushes.
func WithLifecycleListener(fn LifecycleListener) SessionOption {
	return func(s *Session) error {
		s.lifecycle.Listen(fn)
		return nil
	}
}

func applySessionOptions(s *Session, options []SessionOption) error {
	for _, option := range options {
		if err := option(s); err != nil {
			return err
		}
	}
	return nil
}

package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/gate4ai/hostbridge/shared"
	"github.com/r3labs/sse/v2"
	"go.uber.org/zap"
)

// Backend is a bridge host reachable over HTTP.
type Backend struct {
	URL    *url.URL
	Logger *zap.Logger
}

// New creates a client for the bridge SSE endpoint at bridgeURL.
func New(bridgeURL string, logger *zap.Logger) (*Backend, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	u, err := url.Parse(bridgeURL)
	if err != nil {
		logger.Error("Failed to parse bridge URL", zap.String("url", bridgeURL), zap.Error(err))
		return nil, fmt.Errorf("invalid bridge URL %s: %w", bridgeURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid bridge URL %s: scheme must be http or https", bridgeURL)
	}

	logger = logger.With(zap.String("bridgeURL", u.String()))
	logger.Debug("Created bridge client backend")
	return &Backend{URL: u, Logger: logger}, nil
}

// NewSession creates a session. Nothing is sent until Open is called.
func (backend *Backend) NewSession(ctx context.Context, options ...SessionOption) (*Session, error) {
	input := shared.NewInput(backend.Logger)
	baseSession := shared.NewBaseSession(backend.Logger, input, nil)

	sseClient := sse.NewClient(backend.URL.String())
	sseClient.Headers = map[string]string{
		"Accept":        "text/event-stream",
		"Cache-Control": "no-cache",
		"Connection":    "keep-alive",
	}

	s := &Session{
		ctx:         ctx,
		BaseSession: baseSession,
		Backend:     backend,
		sseClient:   sseClient,
		httpClient:  http.DefaultClient,
		sseCh:       make(chan *sse.Event, 100),
		closeCh:     make(chan struct{}),
		lifecycle:   newLifecycleCapability(baseSession.Logger),
	}
	if err := applySessionOptions(s, options); err != nil {
		return nil, err
	}
	for key, value := range s.headers {
		sseClient.Headers[key] = value
	}

	input.AddCapability(s.lifecycle)
	go input.Process()
	baseSession.Logger.Info("Client session created")
	return s, nil
}

package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gate4ai/hostbridge/shared"
	"github.com/r3labs/sse/v2"
	"go.uber.org/zap"
	"gopkg.in/cenkalti/backoff.v1"
)

var _ shared.ISession = (*Session)(nil)

// Session is one runtime connection to a bridge host. Commands are POSTed
// to the endpoint announced on the SSE stream; results and lifecycle pushes
// come back on the stream.
type Session struct {
	*shared.BaseSession
	Locker           sync.RWMutex
	Backend          *Backend
	ctx              context.Context
	postEndpoint     string
	headers          map[string]string
	sseClient        *sse.Client
	httpClient       *http.Client
	sseCh            chan *sse.Event
	closeCh          chan struct{}
	initialization   chan error
	initDone         bool
	initErr          error
	reconnectTimeout time.Duration
	lifecycle        *lifecycleCapability
}

// signalInitialization reports the outcome of Open exactly once.
func (s *Session) signalInitialization(err error) {
	s.Locker.Lock()
	defer s.Locker.Unlock()

	if s.initialization == nil || s.initDone {
		if err != nil {
			s.BaseSession.Logger.Debug("Initialization already reported", zap.Error(err))
		}
		return
	}
	s.initDone = true
	s.initErr = err
	if err != nil {
		s.initialization <- err
		s.BaseSession.Logger.Error("Signaling initialization failure", zap.Error(err))
	} else {
		s.BaseSession.Logger.Info("Signaling initialization success")
	}
	close(s.initialization)
}

// Open subscribes to the bridge stream. The returned channel yields nil once
// the POST endpoint is known, or the error that prevented it. Later calls
// return the same channel.
func (s *Session) Open() chan error {
	logger := s.BaseSession.Logger
	s.Locker.Lock()

	if s.initialization != nil {
		s.Locker.Unlock()
		return s.initialization
	}
	if s.closeCh == nil {
		s.Locker.Unlock()
		closed := make(chan error, 1)
		closed <- shared.ErrSessionClosed
		close(closed)
		return closed
	}

	logger.Info("Opening bridge session")
	s.initialization = make(chan error, 1)
	s.SetStatus(shared.StatusConnecting)
	s.postEndpoint = ""
	s.Locker.Unlock()

	sseContext, sseCancel := context.WithCancel(s.ctx)
	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.MaxElapsedTime = s.reconnectTimeout
	s.sseClient.ReconnectStrategy = backoff.WithContext(expBackoff, sseContext)
	s.sseClient.ReconnectNotify = func(err error, t time.Duration) {
		logger.Warn("Bridge stream connection error", zap.Error(err), zap.Duration("delay", t))
	}

	if err := s.sseClient.SubscribeChanWithContext(sseContext, "", s.sseCh); err != nil {
		sseCancel()
		logger.Warn("Failed to subscribe to bridge stream", zap.Error(err))
		s.SetStatus(shared.StatusNew)
		s.signalInitialization(fmt.Errorf("bridge stream subscription failed: %w", err))
		return s.initialization
	}
	logger.Debug("Bridge stream subscription initiated")

	go s.processLoop(sseCancel)
	return s.initialization
}

func (s *Session) processLoop(sseCancel context.CancelFunc) {
	loopLogger := s.BaseSession.Logger.With(zap.String("goroutine", "processLoop"))
	loopLogger.Debug("Starting session processing loop")

	defer func() {
		sseCancel()
		s.SetStatus(shared.StatusNew)
		s.signalInitialization(errors.New("session processing loop exited before the bridge announced an endpoint"))
		loopLogger.Info("Session processing loop ended")
	}()

	output, ok := s.AcquireOutput()
	if !ok {
		loopLogger.Error("Failed to acquire output channel")
		return
	}
	defer s.ReleaseOutput()

	s.Locker.RLock()
	closeCh := s.closeCh
	s.Locker.RUnlock()

	for {
		select {
		case sendMsg, ok := <-output:
			if !ok {
				loopLogger.Info("Output channel closed, exiting loop")
				return
			}
			if sendMsg != nil {
				s.executeSendRequest(sendMsg)
			}

		case event, ok := <-s.sseCh:
			if !ok {
				loopLogger.Info("Bridge stream closed, exiting loop")
				return
			}
			if event == nil {
				continue
			}
			loopLogger.Debug("Received stream event", zap.ByteString("event", event.Event), zap.ByteString("data", event.Data))

			switch string(event.Event) {
			case "endpoint":
				if err := s.setEndpoint(string(event.Data)); err != nil {
					loopLogger.Error("Invalid endpoint event", zap.Error(err))
					s.signalInitialization(err)
					return
				}
				s.SetStatus(shared.StatusConnected)
				s.signalInitialization(nil)
			case "message":
				if len(event.Data) == 0 {
					loopLogger.Warn("Received message event with empty data, skipping")
					continue
				}
				msgs, err := shared.ParseMessages(s, event.Data)
				if err != nil {
					loopLogger.Error("Failed to parse JSON-RPC message from stream", zap.Error(err), zap.ByteString("data", event.Data))
					continue
				}
				for _, msg := range msgs {
					if err := s.Input().Put(msg); err != nil {
						loopLogger.Error("Failed to queue message", zap.Error(err))
					}
				}
			case "ping":
			default:
				loopLogger.Warn("Received unknown stream event type", zap.ByteString("event", event.Event))
			}

		case <-closeCh:
			loopLogger.Info("Session explicitly closed")
			return

		case <-s.ctx.Done():
			loopLogger.Info("Session context cancelled", zap.Error(s.ctx.Err()))
			return
		}
	}
}

// setEndpoint records the POST endpoint. A reconnected stream is a new
// server session and announces a new endpoint.
func (s *Session) setEndpoint(data string) error {
	if data == "" {
		return errors.New("protocol error: received empty endpoint data")
	}
	postURL, err := url.Parse(data)
	if err != nil {
		return fmt.Errorf("invalid endpoint URL '%s': %w", data, err)
	}
	s.Locker.Lock()
	previous := s.postEndpoint
	s.postEndpoint = s.Backend.URL.ResolveReference(postURL).String()
	current := s.postEndpoint
	s.Locker.Unlock()

	if previous != "" && previous != current {
		s.BaseSession.Logger.Info("Bridge stream reconnected", zap.String("endpoint", current))
	} else {
		s.BaseSession.Logger.Info("Received POST endpoint", zap.String("endpoint", current))
	}
	return nil
}

// Endpoint returns the POST endpoint, empty until the session is open.
func (s *Session) Endpoint() string {
	s.Locker.RLock()
	defer s.Locker.RUnlock()
	return s.postEndpoint
}

// Close stops the session. It is safe to call more than once.
func (s *Session) Close() error {
	logger := s.BaseSession.Logger
	s.Locker.Lock()
	if s.closeCh == nil {
		s.Locker.Unlock()
		return nil
	}
	close(s.closeCh)
	s.closeCh = nil
	s.Locker.Unlock()

	s.SetStatus(shared.StatusNew)
	err := s.BaseSession.Close()
	s.Input().Close()
	logger.Info("Session closed")
	return err
}

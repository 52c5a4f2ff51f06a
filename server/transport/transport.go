package transport

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gate4ai/hostbridge/server/bridge"
	"github.com/gate4ai/hostbridge/shared"
	"github.com/gate4ai/hostbridge/shared/config"
	"github.com/gate4ai/hostbridge/shared/schema"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	SESSION_ID_KEY = "session_id"        // Query parameter carrying the session ID on POST
	BRIDGE_PATH    = "/bridge"           // SSE stream (GET) and message posting (POST)
	WS_PATH        = "/bridge/ws"        // WebSocket alternative to BRIDGE_PATH
	LIFECYCLE_PATH = "/host/lifecycle"   // Host lifecycle signals
	SESSION_HEADER = "Bridge-Session-Id" // Header alternative to SESSION_ID_KEY

	contentTypeJSON = "application/json"

	statusAccepted            = http.StatusAccepted            // 202
	statusNotFound            = http.StatusNotFound            // 404
	statusBadRequest          = http.StatusBadRequest          // 400
	statusForbidden           = http.StatusForbidden           // 403
	statusMethodNotAllowed    = http.StatusMethodNotAllowed    // 405
	statusInternalServerError = http.StatusInternalServerError // 500
)

var keepaliveInterval = 15 * time.Second

// LifecycleDriver receives host lifecycle signals posted to LIFECYCLE_PATH.
type LifecycleDriver interface {
	UserLeaveHint()
	PictureInPictureModeChanged(inPip bool)
	Destroy()
}

// Transport exposes a bridge over HTTP: an SSE stream plus POST, or a
// WebSocket.
type Transport struct {
	sessionManager  bridge.ISessionManager
	logger          *zap.Logger
	config          config.IConfig
	lifecycle       LifecycleDriver
	upgrader        websocket.Upgrader
	sessionTimeout  time.Duration // Idle timeout for sessions
	cleanupInterval time.Duration // How often to check for idle sessions
	stop            chan struct{}
	stopOnce        sync.Once
}

type TransportOption func(*Transport) error

// WithSessionTimeout sets the idle timeout for sessions.
func WithSessionTimeout(timeout time.Duration) TransportOption {
	return func(t *Transport) error {
		if timeout <= 0 {
			return errors.New("session timeout must be positive")
		}
		t.sessionTimeout = timeout
		return nil
	}
}

// WithCleanupInterval sets the interval for checking idle sessions
func WithCleanupInterval(interval time.Duration) TransportOption {
	return func(t *Transport) error {
		if interval <= 0 {
			return errors.New("cleanup interval must be positive")
		}
		t.cleanupInterval = interval
		return nil
	}
}

// WithLifecycleDriver enables LIFECYCLE_PATH.
func WithLifecycleDriver(d LifecycleDriver) TransportOption {
	return func(t *Transport) error {
		t.lifecycle = d
		return nil
	}
}

func New(manager bridge.ISessionManager, logger *zap.Logger, cfg config.IConfig, options ...TransportOption) (*Transport, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if manager == nil {
		return nil, errors.New("session manager cannot be nil")
	}
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}

	transport := &Transport{
		sessionManager: manager,
		logger:         logger.Named("transport"),
		config:         cfg,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		cleanupInterval: 5 * time.Minute,
		sessionTimeout:  30 * time.Minute,
		stop:            make(chan struct{}),
	}
	if limits, err := cfg.Limits(); err == nil && limits.SessionTimeout > 0 {
		transport.sessionTimeout = limits.SessionTimeout
	}

	for _, option := range options {
		if err := option(transport); err != nil {
			return nil, fmt.Errorf("failed to apply transport option: %w", err)
		}
	}

	go transport.startSessionCleanup()

	transport.logger.Info("Bridge HTTP transport created",
		zap.Duration("sessionTimeout", transport.sessionTimeout),
		zap.Bool("lifecycleEndpoint", transport.lifecycle != nil),
	)
	return transport, nil
}

// RegisterHandlers registers the bridge endpoints with the HTTP mux.
func (t *Transport) RegisterHandlers(mux *http.ServeMux) {
	mux.HandleFunc(BRIDGE_PATH, t.HandleBridge())
	mux.HandleFunc(WS_PATH, t.HandleWebSocket())
	if t.lifecycle != nil {
		mux.HandleFunc(LIFECYCLE_PATH, t.HandleLifecycle())
	}
	t.logger.Info("Registered bridge handlers",
		zap.String("path", BRIDGE_PATH),
		zap.String("wsPath", WS_PATH),
	)
}

func (t *Transport) HandleBridge() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := t.logger
		logger.Debug("Received request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("remoteAddr", r.RemoteAddr),
			zap.String("query", r.URL.RawQuery),
		)

		switch r.Method {
		case http.MethodGet:
			t.handleGET(w, r, logger)
		case http.MethodPost:
			t.handlePOST(w, r, logger)
		case http.MethodOptions:
			w.Header().Set("Allow", "GET, POST, OPTIONS")
			w.WriteHeader(http.StatusNoContent)
		default:
			logger.Warn("Method not allowed", zap.String("method", r.Method))
			http.Error(w, "Method Not Allowed", statusMethodNotAllowed)
		}
	}
}

// Close stops the idle-session cleanup loop.
func (t *Transport) Close() {
	t.stopOnce.Do(func() { close(t.stop) })
}

func (t *Transport) startSessionCleanup() {
	ticker := time.NewTicker(t.cleanupInterval)
	defer ticker.Stop()
	t.logger.Info("Starting session cleanup routine",
		zap.Duration("interval", t.cleanupInterval),
		zap.Duration("timeout", t.sessionTimeout),
	)
	for {
		select {
		case <-t.stop:
			t.logger.Info("Session cleanup routine stopped")
			return
		case <-ticker.C:
			t.sessionManager.CleanupIdleSessions(t.sessionTimeout)
		}
	}
}

func sendJSONResponse(w http.ResponseWriter, statusCode int, data interface{}, logger *zap.Logger) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(statusCode)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			logger.Error("Failed to encode JSON response", zap.Error(err))
		}
	}
}

func sendJSONRPCErrorResponse(w http.ResponseWriter, id *schema.RequestID, code int, message string, logger *zap.Logger) {
	errResp := shared.JSONRPCErrorResponse{
		JSONRPC: shared.JSONRPCVersion,
		ID:      id,
		Error: &shared.JSONRPCError{
			Code:    code,
			Message: message,
		},
	}
	logger.Warn("Sending JSON-RPC Error",
		zap.Int("code", code),
		zap.String("message", message),
		zap.Stringer("reqID", id),
	)
	// JSON-RPC errors still return 200 OK at the HTTP level.
	sendJSONResponse(w, http.StatusOK, errResp, logger)
}

// rejectMessage answers a request the input refused to queue.
func rejectMessage(msg *shared.Message, err error) {
	if !msg.IsRequest() || msg.Session == nil {
		return
	}
	code := shared.JSONRPCErrorInvalidRequest
	if errors.Is(err, shared.ErrInputBusy) {
		code = shared.JSONRPCErrorServerError
	}
	msg.Session.SendResponse(msg.ID, nil, &shared.JSONRPCError{
		Code:    code,
		Message: err.Error(),
	})
}

func (t *Transport) getSession(w http.ResponseWriter, r *http.Request, logger *zap.Logger) (shared.ISession, error) {
	sessionID := r.Header.Get(SESSION_HEADER)
	if sessionID == "" {
		sessionID = r.URL.Query().Get(SESSION_ID_KEY)
	}
	if sessionID == "" {
		logger.Warn("Request without session ID")
		http.Error(w, "Bad Request: missing session_id", statusBadRequest)
		return nil, bridge.ErrSessionNotFound
	}
	session, err := t.sessionManager.GetSession(sessionID)
	if err != nil {
		logger.Warn("Session not found", zap.String("sessionId", sessionID), zap.Error(err))
		http.Error(w, "Not Found: Session expired or invalid", statusNotFound)
		return nil, err
	}
	return session, nil
}

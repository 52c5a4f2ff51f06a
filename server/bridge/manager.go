package bridge

import (
	"errors"
	"sync"
	"time"

	"github.com/gate4ai/hostbridge/shared"
	"go.uber.org/zap"
)

var ErrSessionNotFound = errors.New("session not found")

// ISessionManager is what the transports need from the bridge.
type ISessionManager interface {
	CreateSession(transport string, params *sync.Map) shared.ISession
	GetSession(id string) (shared.ISession, error)
	Connect(s shared.ISession)
	CloseSession(id string)
	CloseAllSessions()
	CleanupIdleSessions(timeout time.Duration)
	GetLogger() *zap.Logger
}

var _ ISessionManager = (*Manager)(nil)

// Manager handles all runtime sessions. They share one input processor.
type Manager struct {
	sessions       map[string]*Session
	mu             sync.RWMutex
	logger         *zap.Logger
	inputProcessor *shared.Input
	notifier       *Notifier
}

func NewManager(logger *zap.Logger) *Manager {
	input := shared.NewInput(logger)
	m := &Manager{
		sessions:       make(map[string]*Session),
		logger:         logger,
		inputProcessor: input,
		notifier:       NewNotifier(input, logger),
	}
	input.AddCapability(m.notifier)
	go m.inputProcessor.Process()
	return m
}

func (m *Manager) GetLogger() *zap.Logger {
	return m.logger
}

func (m *Manager) Input() *shared.Input {
	return m.inputProcessor
}

func (m *Manager) Notifier() *Notifier {
	return m.notifier
}

// CreateSession creates a new session with a unique ID
func (m *Manager) CreateSession(transport string, params *sync.Map) shared.ISession {
	m.mu.Lock()
	defer m.mu.Unlock()

	session := NewSession(m, transport, m.inputProcessor, params)
	m.sessions[session.ID] = session

	m.logger.Debug("Created new session",
		zap.String("sessionID", session.ID),
		zap.String("transport", transport),
	)
	return session
}

// Connect marks s connected and makes it the lifecycle listener.
func (m *Manager) Connect(s shared.ISession) {
	s.SetStatus(shared.StatusConnected)
	m.notifier.Attach(s)
	m.logger.Info("Runtime connected", zap.String("sessionID", s.GetID()))
}

func (m *Manager) GetSession(id string) (shared.ISession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	session, exists := m.sessions[id]
	if !exists {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

// CloseSession removes a session and cleans up resources
func (m *Manager) CloseSession(id string) {
	m.mu.Lock()
	session, exists := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if !exists {
		m.logger.Warn("Attempted to close non-existent session", zap.String("sessionID", id))
		return
	}
	if err := session.Close(); err != nil {
		m.logger.Error("Error closing session resources", zap.String("sessionID", id), zap.Error(err))
	}
	m.logger.Info("Closed session", zap.String("sessionID", id))
}

func (m *Manager) CloseAllSessions() {
	m.mu.RLock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	m.mu.RUnlock()

	for _, id := range ids {
		m.CloseSession(id)
	}
	m.logger.Info("Closed all sessions")
}

func (m *Manager) CleanupIdleSessions(timeout time.Duration) {
	m.mu.RLock()
	var idle []string
	for id, session := range m.sessions {
		if session.GetLastActivity().Add(timeout).Before(time.Now()) {
			idle = append(idle, id)
		}
	}
	m.mu.RUnlock()

	for _, id := range idle {
		m.logger.Debug("Closing idle session", zap.String("sessionID", id))
		m.CloseSession(id)
	}
}

// SessionCount reports the number of open sessions.
func (m *Manager) SessionCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

func (m *Manager) AddValidator(validators ...shared.MessageValidator) {
	m.inputProcessor.AddValidator(validators...)
}

// Shutdown closes every session and stops the input loop.
func (m *Manager) Shutdown() {
	m.CloseAllSessions()
	m.inputProcessor.Close()
}

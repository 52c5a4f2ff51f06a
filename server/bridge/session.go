package bridge

import (
	"sync"

	"github.com/gate4ai/hostbridge/shared"
	"go.uber.org/zap"
)

var _ shared.ISession = (*Session)(nil)

// Session is one runtime connection.
type Session struct {
	*shared.BaseSession
	manager   *Manager
	Transport string
}

func NewSession(manager *Manager, transport string, inputProcessor *shared.Input, params *sync.Map) *Session {
	return &Session{
		BaseSession: shared.NewBaseSession(manager.GetLogger(), inputProcessor, params),
		manager:     manager,
		Transport:   transport,
	}
}

func (s *Session) Close() error {
	logger := s.BaseSession.Logger
	logger.Debug("Closing bridge session", zap.String("transport", s.Transport))
	s.manager.notifier.Detach(s)
	err := s.BaseSession.Close()
	if err != nil {
		logger.Error("Error while closing base session", zap.Error(err))
	}
	return err
}

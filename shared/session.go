package shared

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gate4ai/hostbridge/shared/schema"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SessionStatus represents the current state of a session
type SessionStatus int

const (
	StatusNew SessionStatus = iota
	StatusConnecting
	StatusConnected
)

func (s SessionStatus) String() string {
	switch s {
	case StatusNew:
		return "new"
	case StatusConnecting:
		return "connecting"
	case StatusConnected:
		return "connected"
	}
	return "unknown"
}

var ErrSessionClosed = errors.New("session closed")

type ISession interface {
	GetID() string

	AcquireOutput() (<-chan *Message, bool)
	ReleaseOutput()
	Input() *Input

	SendResponse(msgId *schema.RequestID, result interface{}, err error)
	SendNotification(method string, params map[string]any) error
	SendRequest(method string, params interface{}, callback RequestCallback) (*schema.RequestID, error)

	GetLastActivity() time.Time
	UpdateLastActivity()

	GetStatus() SessionStatus
	SetStatus(status SessionStatus)
	Close() error
	GetRequestManager() *RequestManager
	NextMessageID() schema.RequestID
	GetParams() *sync.Map
	GetLogger() *zap.Logger
}

var _ ISession = (*BaseSession)(nil)

// BaseSession holds what server and client sessions share. Every outbound
// message goes through the output channel, which the transport drains.
type BaseSession struct {
	Mu               sync.RWMutex
	ID               string
	messageID        uint64
	CreatedAt        time.Time
	LastActivity     atomic.Value
	status           SessionStatus
	Params           *sync.Map
	RequestManager   *RequestManager
	output           chan *Message
	isOutputAcquired bool
	Logger           *zap.Logger
	inputProcessor   *Input
}

// NewBaseSession creates a new base session with default values
func NewBaseSession(logger *zap.Logger, inputProcessor *Input, params *sync.Map) *BaseSession {
	if params == nil {
		params = &sync.Map{}
	}
	sessionID := RandomID()
	sessionLogger := logger.With(zap.String("session_id", sessionID))
	sessionLogger.Debug("Creating new session")
	s := &BaseSession{
		Logger:         sessionLogger,
		ID:             sessionID,
		CreatedAt:      time.Now(),
		status:         StatusNew,
		Params:         params,
		RequestManager: NewRequestManager(sessionLogger),
		output:         make(chan *Message, 100),
		inputProcessor: inputProcessor,
	}
	s.UpdateLastActivity()
	return s
}

func RandomID() string {
	return uuid.NewString()
}

func (s *BaseSession) NextMessageID() schema.RequestID {
	return schema.RequestIDFromUint64(atomic.AddUint64(&s.messageID, 1))
}

func (s *BaseSession) GetID() string {
	return s.ID
}

func (s *BaseSession) GetParams() *sync.Map {
	return s.Params
}

func (s *BaseSession) GetStatus() SessionStatus {
	s.Mu.RLock()
	defer s.Mu.RUnlock()
	return s.status
}

func (s *BaseSession) SetStatus(status SessionStatus) {
	s.Mu.Lock()
	defer s.Mu.Unlock()
	s.status = status
}

func (s *BaseSession) UpdateLastActivity() {
	s.LastActivity.Store(time.Now())
}

func (s *BaseSession) GetLastActivity() time.Time {
	return s.LastActivity.Load().(time.Time)
}

func (s *BaseSession) GetRequestManager() *RequestManager {
	s.Mu.RLock()
	defer s.Mu.RUnlock()
	return s.RequestManager
}

func (s *BaseSession) Close() error {
	s.Mu.Lock()
	defer s.Mu.Unlock()
	s.status = StatusNew
	if s.output == nil {
		s.Logger.Debug("Double close of session")
		return nil
	}
	close(s.output)
	s.isOutputAcquired = false
	s.output = nil
	return nil
}

// AcquireOutput hands the output channel to exactly one writer (an SSE
// stream, a WebSocket or a client POST loop).
func (s *BaseSession) AcquireOutput() (<-chan *Message, bool) {
	s.Mu.Lock()
	defer s.Mu.Unlock()

	if s.isOutputAcquired || s.output == nil {
		s.Logger.Debug("Output channel is not available",
			zap.Bool("outputAcquired", s.isOutputAcquired),
			zap.Bool("outputIsNil", s.output == nil),
		)
		return nil, false
	}
	s.isOutputAcquired = true
	return s.output, true
}

func (s *BaseSession) ReleaseOutput() {
	s.Mu.Lock()
	defer s.Mu.Unlock()
	s.isOutputAcquired = false
}

// SendNotification queues a message without an ID. It never blocks; a
// closed or full output drops the notification.
func (s *BaseSession) SendNotification(method string, params map[string]any) error {
	var jsonParams *json.RawMessage
	if params != nil {
		data, err := json.Marshal(params)
		if err != nil {
			s.Logger.Error("failed to marshal notification params", zap.Error(err))
			return fmt.Errorf("marshal notification params: %w", err)
		}
		raw := json.RawMessage(data)
		jsonParams = &raw
	}
	return s.push(&Message{
		Session:   s,
		Timestamp: time.Now(),
		Method:    &method,
		Params:    jsonParams,
	})
}

// SendRequest queues a request and registers callback for its response.
func (s *BaseSession) SendRequest(method string, params interface{}, callback RequestCallback) (*schema.RequestID, error) {
	msgID := s.NextMessageID()
	var jsonParams *json.RawMessage
	if params != nil {
		data, err := json.Marshal(params)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request parameters: %w", err)
		}
		raw := json.RawMessage(data)
		jsonParams = &raw
	}

	msg := &Message{
		ID:        &msgID,
		Method:    &method,
		Session:   s,
		Params:    jsonParams,
		Timestamp: time.Now(),
	}

	s.RequestManager.RegisterRequest(&msgID, callback)
	if err := s.push(msg); err != nil {
		s.RequestManager.Forget(&msgID)
		return nil, err
	}
	return &msgID, nil
}

// SendResponse queues the response to a request. Go errors that are not
// *JSONRPCError become internal errors.
func (s *BaseSession) SendResponse(msgId *schema.RequestID, result interface{}, err error) {
	msg := &Message{
		Session:   s,
		Timestamp: time.Now(),
		ID:        msgId,
	}

	if err != nil {
		var jsonErr *JSONRPCError
		if errors.As(err, &jsonErr) {
			msg.Error = jsonErr
		} else {
			msg.Error = NewJSONRPCError(err)
		}
	} else {
		data, marshalErr := json.Marshal(result)
		if marshalErr != nil {
			s.Logger.Error("Failed to marshal response result", zap.Error(marshalErr), zap.String("msgId", msgId.String()))
			msg.Error = &JSONRPCError{
				Code:    JSONRPCErrorInternal,
				Message: fmt.Sprintf("Failed to marshal result: %v", marshalErr),
			}
		} else {
			raw := json.RawMessage(data)
			msg.Result = &raw
		}
	}

	if status := s.GetStatus(); status == StatusNew {
		s.Logger.Warn("Attempting to send response on non-connected session",
			zap.String("msgId", msgId.String()),
			zap.Stringer("status", status),
		)
		return
	}
	if pushErr := s.push(msg); pushErr != nil {
		s.Logger.Error("Failed to send response", zap.String("msgId", msgId.String()), zap.Error(pushErr))
	}
}

func (s *BaseSession) push(msg *Message) error {
	s.Mu.RLock()
	defer s.Mu.RUnlock()
	if s.output == nil {
		return ErrSessionClosed
	}
	select {
	case s.output <- msg:
		s.UpdateLastActivity()
		return nil
	default:
		return errors.New("output channel full")
	}
}

func (s *BaseSession) Input() *Input {
	return s.inputProcessor
}

func (s *BaseSession) GetLogger() *zap.Logger {
	return s.Logger
}

package shared

import (
	"sync"
	"time"

	"github.com/gate4ai/hostbridge/shared/schema"
	"go.uber.org/zap"
)

// RequestCallback handles the response to a request this side sent.
type RequestCallback func(msg *Message)

// Request holds information about a sent request.
type Request struct {
	Callback  RequestCallback
	Timestamp time.Time
}

// RequestManager correlates responses with the callbacks of pending requests.
type RequestManager struct {
	requests map[string]Request
	mu       sync.RWMutex
	logger   *zap.Logger
}

func NewRequestManager(logger *zap.Logger) *RequestManager {
	return &RequestManager{
		requests: make(map[string]Request),
		logger:   logger,
	}
}

func (rm *RequestManager) RegisterRequest(id *schema.RequestID, callback RequestCallback) {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	rm.requests[id.String()] = Request{
		Callback:  callback,
		Timestamp: time.Now(),
	}
	rm.logger.Debug("RegisterRequest", zap.String("message_id", id.String()), zap.Int("requests_len", len(rm.requests)))
}

// Forget drops a pending request without invoking its callback.
func (rm *RequestManager) Forget(id *schema.RequestID) {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	delete(rm.requests, id.String())
}

// Pending returns the number of requests still waiting for a response.
func (rm *RequestManager) Pending() int {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	return len(rm.requests)
}

// ProcessResponse invokes the callback registered for msg.ID.
// Returns true if a callback was found and invoked.
func (rm *RequestManager) ProcessResponse(msg *Message) bool {
	if msg.ID == nil {
		rm.logger.Error("No message ID found")
		return false
	}

	rm.mu.Lock()
	request, exists := rm.requests[msg.ID.String()]
	if exists {
		delete(rm.requests, msg.ID.String())
	}
	rm.mu.Unlock()

	if !exists || request.Callback == nil {
		rm.logger.Warn("No callback found for message", zap.String("message_id", msg.ID.String()))
		return false
	}

	request.Callback(msg)
	msg.Processed = true
	rm.logger.Debug("Callback invoked", zap.String("message_id", msg.ID.String()))
	return true
}

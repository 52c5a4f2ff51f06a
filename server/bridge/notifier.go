package bridge

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gate4ai/hostbridge/shared"
	"github.com/gate4ai/hostbridge/shared/schema"
	"go.uber.org/zap"
)

var _ shared.ICapability = (*Notifier)(nil)

// Notifier pushes lifecycle events to the attached runtime session. Events
// travel through the same input queue as command results, so a push can
// never interleave with a response. An event raised while no session is
// attached is dropped.
type Notifier struct {
	mu       sync.RWMutex
	listener shared.ISession
	input    *shared.Input
	logger   *zap.Logger
}

func NewNotifier(input *shared.Input, logger *zap.Logger) *Notifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Notifier{input: input, logger: logger.Named("notifier")}
}

// Attach makes s the current listener. A later attach replaces it.
func (n *Notifier) Attach(s shared.ISession) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.listener != nil && n.listener != s {
		n.logger.Info("Replacing lifecycle listener",
			zap.String("previous", n.listener.GetID()),
			zap.String("current", s.GetID()),
		)
	}
	n.listener = s
}

// Detach clears the listener if it is still s.
func (n *Notifier) Detach(s shared.ISession) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.listener == s {
		n.listener = nil
	}
}

func (n *Notifier) Listener() shared.ISession {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.listener
}

func (n *Notifier) isListener(s shared.ISession) bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.listener != nil && n.listener == s
}

// Notify queues ev for the current listener. It never blocks.
func (n *Notifier) Notify(ev schema.LifecycleEvent) {
	listener := n.Listener()
	if listener == nil {
		n.logger.Debug("No listener attached, dropping lifecycle event", zap.String("event", string(ev.Kind)))
		return
	}
	data, err := json.Marshal(ev.Params())
	if err != nil {
		n.logger.Error("Failed to encode lifecycle event", zap.String("event", string(ev.Kind)), zap.Error(err))
		return
	}
	raw := json.RawMessage(data)
	method := string(ev.Kind)
	msg := &shared.Message{
		Method:    &method,
		Params:    &raw,
		Local:     true,
		Session:   listener,
		Timestamp: time.Now(),
	}
	if err := n.input.Enqueue(msg); err != nil {
		n.logger.Warn("Dropping lifecycle event", zap.String("event", method), zap.Error(err))
	}
}

// GetHandlers registers delivery for the lifecycle method names. Delivery
// runs on the input loop, in order with command responses.
func (n *Notifier) GetHandlers() map[string]shared.Handler {
	return map[string]shared.Handler{
		string(schema.EventUserLeaveHint): n.deliver,
		string(schema.EventPipChanged):    n.deliver,
	}
}

func (n *Notifier) deliver(msg *shared.Message) (interface{}, error) {
	method := msg.MethodName()
	if !msg.Local {
		return shared.EncodeResult(method, schema.Unimplemented())
	}
	if !n.isListener(msg.Session) {
		n.logger.Debug("Listener detached before delivery, dropping lifecycle event", zap.String("event", method))
		return nil, nil
	}
	var params map[string]any
	if msg.Params != nil {
		if err := json.Unmarshal(*msg.Params, &params); err != nil {
			return nil, fmt.Errorf("decode lifecycle params: %w", err)
		}
	}
	if err := msg.Session.SendNotification(method, params); err != nil {
		n.logger.Debug("Lifecycle event not delivered", zap.String("event", method), zap.Error(err))
	}
	return nil, nil
}

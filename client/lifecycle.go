package client

import (
	"encoding/json"
	"sync"

	"github.com/gate4ai/hostbridge/shared"
	"github.com/gate4ai/hostbridge/shared/schema"
	"go.uber.org/zap"
)

// LifecycleListener receives host lifecycle pushes in arrival order.
type LifecycleListener func(schema.LifecycleEvent)

var _ shared.ICapability = (*lifecycleCapability)(nil)

// lifecycleCapability turns lifecycle notifications back into events.
type lifecycleCapability struct {
	mu        sync.RWMutex
	listeners []LifecycleListener
	logger    *zap.Logger
}

func newLifecycleCapability(logger *zap.Logger) *lifecycleCapability {
	return &lifecycleCapability{logger: logger}
}

func (lc *lifecycleCapability) Listen(fn LifecycleListener) {
	if fn == nil {
		return
	}
	lc.mu.Lock()
	defer lc.mu.Unlock()
	lc.listeners = append(lc.listeners, fn)
}

func (lc *lifecycleCapability) GetHandlers() map[string]shared.Handler {
	return map[string]shared.Handler{
		string(schema.EventUserLeaveHint): lc.handle,
		string(schema.EventPipChanged):    lc.handle,
	}
}

type lifecycleParams struct {
	Channel                  string `json:"channel"`
	IsInPictureInPictureMode *bool  `json:"isInPictureInPictureMode,omitempty"`
}

func (lc *lifecycleCapability) handle(msg *shared.Message) (interface{}, error) {
	ev := schema.LifecycleEvent{Kind: schema.LifecycleKind(msg.MethodName())}
	if msg.Params != nil {
		var params lifecycleParams
		if err := json.Unmarshal(*msg.Params, &params); err != nil {
			lc.logger.Warn("Malformed lifecycle params", zap.String("event", string(ev.Kind)), zap.Error(err))
		} else {
			ev.Payload = params.IsInPictureInPictureMode
		}
	}

	lc.mu.RLock()
	listeners := append([]LifecycleListener(nil), lc.listeners...)
	lc.mu.RUnlock()

	lc.logger.Debug("Lifecycle event received", zap.String("event", string(ev.Kind)), zap.Int("listeners", len(listeners)))
	for _, fn := range listeners {
		fn(ev)
	}
	return nil, nil
}

// OnLifecycle registers fn for lifecycle pushes.
func (s *Session) OnLifecycle(fn LifecycleListener) {
	s.lifecycle.Listen(fn)
}

package schema

// Logical channels the runtime listens on.
const (
	ChannelMain     = "PiliPlus"
	ChannelFloating = "floating"
)

type LifecycleKind string

const (
	EventUserLeaveHint LifecycleKind = "onUserLeaveHint"
	EventPipChanged    LifecycleKind = "onPipChanged"
)

// LifecycleEvent is a host-originated push. It is never queued for a
// listener that is not attached.
type LifecycleEvent struct {
	Kind    LifecycleKind
	Payload *bool
}

func UserLeaveHint() LifecycleEvent {
	return LifecycleEvent{Kind: EventUserLeaveHint}
}

func PipChanged(inPip bool) LifecycleEvent {
	return LifecycleEvent{Kind: EventPipChanged, Payload: &inPip}
}

// Channel returns the logical channel the event is delivered on.
func (e LifecycleEvent) Channel() string {
	if e.Kind == EventPipChanged {
		return ChannelFloating
	}
	return ChannelMain
}

// Params renders the notification params sent to the runtime.
func (e LifecycleEvent) Params() map[string]any {
	params := map[string]any{"channel": e.Channel()}
	if e.Kind == EventPipChanged && e.Payload != nil {
		params["isInPictureInPictureMode"] = *e.Payload
	}
	return params
}

// IsLifecycleMethod reports whether method names a lifecycle push.
func IsLifecycleMethod(method string) bool {
	switch LifecycleKind(method) {
	case EventUserLeaveHint, EventPipChanged:
		return true
	}
	return false
}

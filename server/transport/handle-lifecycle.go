package transport

import (
	"encoding/json"
	"net"
	"net/http"

	"go.uber.org/zap"
)

// Lifecycle event names accepted on LIFECYCLE_PATH.
const (
	LifecycleUserLeaveHint = "userLeaveHint"
	LifecyclePipChanged    = "pipChanged"
	LifecycleDestroy       = "destroy"
)

// LifecycleRequest is the body posted by the host shell.
type LifecycleRequest struct {
	Event string `json:"event"`
	Value bool   `json:"value,omitempty"`
}

// HandleLifecycle forwards host lifecycle signals to the driver. Only
// loopback callers are accepted.
func (t *Transport) HandleLifecycle() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := t.logger.With(zap.String("path", LIFECYCLE_PATH))
		if r.Method != http.MethodPost {
			http.Error(w, "Method Not Allowed", statusMethodNotAllowed)
			return
		}
		if !isLoopback(r.RemoteAddr) {
			logger.Warn("Rejected lifecycle signal from non-loopback address", zap.String("remoteAddr", r.RemoteAddr))
			http.Error(w, "Forbidden", statusForbidden)
			return
		}
		defer r.Body.Close()

		var req LifecycleRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Bad Request: "+err.Error(), statusBadRequest)
			return
		}

		switch req.Event {
		case LifecycleUserLeaveHint:
			t.lifecycle.UserLeaveHint()
		case LifecyclePipChanged:
			t.lifecycle.PictureInPictureModeChanged(req.Value)
		case LifecycleDestroy:
			// Respond before the host tears the server down.
			w.WriteHeader(statusAccepted)
			logger.Info("Host destroy requested")
			go t.lifecycle.Destroy()
			return
		default:
			http.Error(w, "Bad Request: unknown event "+req.Event, statusBadRequest)
			return
		}
		logger.Debug("Lifecycle signal forwarded", zap.String("event", req.Event), zap.Bool("value", req.Value))
		w.WriteHeader(statusAccepted)
	}
}

func isLoopback(remoteAddr string) bool {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		host = remoteAddr
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

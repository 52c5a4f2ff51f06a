package transport

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const (
	sseEventEndpoint = "endpoint"
	sseEventMessage  = "message"
	sseEventPing     = "ping"
)

// handleGET opens a session and streams its output as SSE. The first event
// announces the POST endpoint for the session. The session closes when the
// client disconnects.
func (t *Transport) handleGET(w http.ResponseWriter, r *http.Request, logger *zap.Logger) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		logger.Error("Streaming unsupported for SSE")
		http.Error(w, "Streaming unsupported", statusInternalServerError)
		return
	}

	session := t.sessionManager.CreateSession("sse", nil)
	sessionID := session.GetID()
	logger = logger.With(zap.String("sessionId", sessionID))
	defer t.sessionManager.CloseSession(sessionID)

	output, ok := session.AcquireOutput()
	if !ok {
		logger.Error("Failed to acquire output channel for SSE stream")
		http.Error(w, "Failed to acquire output channel", statusInternalServerError)
		return
	}
	defer session.ReleaseOutput()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	// A POST may follow the endpoint event immediately.
	t.sessionManager.Connect(session)

	endpointPath := BRIDGE_PATH + "?" + SESSION_ID_KEY + "=" + sessionID
	fmt.Fprintf(w, "id: %s\nevent: %s\ndata: %s\n\n", "endpoint-event-id", sseEventEndpoint, endpointPath)
	flusher.Flush()
	logger.Debug("Sent endpoint event", zap.String("endpoint", endpointPath))

	ticker := time.NewTicker(keepaliveInterval)
	defer ticker.Stop()
	defer logger.Debug("Stopped forwarding session output to SSE stream")

	for {
		select {
		case <-r.Context().Done():
			logger.Info("SSE client disconnected (context done)")
			return
		case msg, ok := <-output:
			if !ok {
				logger.Info("Session output channel closed")
				return
			}
			if msg == nil {
				continue
			}
			data, err := json.Marshal(msg)
			if err != nil {
				logger.Error("Failed to marshal message for SSE", zap.Error(err), zap.Stringer("msgId", msg.ID), zap.Stringp("method", msg.Method))
				continue
			}
			fmt.Fprintf(w, "id: %d\nevent: %s\ndata: %s\n\n", time.Now().UnixNano(), sseEventMessage, data)
			flusher.Flush()
			session.UpdateLastActivity()
		case <-ticker.C:
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", sseEventPing, `{}`)
			flusher.Flush()
		}
	}
}

package transport

import (
	"io"
	"net/http"
	"time"

	"github.com/gate4ai/hostbridge/shared"
	"go.uber.org/zap"
)

// handlePOST queues the posted message(s) for the session named in the
// query. Responses are delivered on the session's stream, so the POST itself
// only acknowledges receipt.
func (t *Transport) handlePOST(w http.ResponseWriter, r *http.Request, logger *zap.Logger) {
	session, err := t.getSession(w, r, logger)
	if err != nil {
		return
	}
	logger = logger.With(zap.String("sessionId", session.GetID()))
	defer r.Body.Close()

	limits, _ := t.config.Limits()
	body := io.Reader(r.Body)
	if limits.MaxMessageSize > 0 {
		body = io.LimitReader(r.Body, limits.MaxMessageSize*2)
	}
	bodyBytes, err := io.ReadAll(body)
	if err != nil {
		logger.Error("Failed to read request body", zap.Error(err))
		http.Error(w, "Bad Request: unreadable body", statusBadRequest)
		return
	}

	msgs, err := shared.ParseMessages(session, bodyBytes)
	if err != nil {
		logger.Warn("Failed to parse JSON-RPC message(s)", zap.Error(err))
		sendJSONRPCErrorResponse(w, nil, shared.JSONRPCErrorParseError, "Parse error", logger)
		return
	}

	for _, msg := range msgs {
		if msg == nil {
			continue
		}
		msg.Session = session
		msg.Timestamp = time.Now()
		if err := session.Input().Put(msg); err != nil {
			logger.Warn("Message rejected", zap.Error(err), zap.Stringer("msgId", msg.ID))
			rejectMessage(msg, err)
		}
	}

	w.WriteHeader(statusAccepted)
	logger.Debug("POST processed, returning 202 Accepted", zap.Int("messageCount", len(msgs)))
}

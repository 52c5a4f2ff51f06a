package transport

import (
	"net/http"
	"time"

	"github.com/gate4ai/hostbridge/shared"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const wsWriteWait = 10 * time.Second

// HandleWebSocket serves a session over one WebSocket connection. Requests
// arrive as text frames, responses and lifecycle pushes leave the same way.
func (t *Transport) HandleWebSocket() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := t.upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.logger.Warn("WebSocket upgrade failed", zap.String("remoteAddr", r.RemoteAddr), zap.Error(err))
			return
		}

		session := t.sessionManager.CreateSession("ws", nil)
		logger := t.logger.With(zap.String("sessionId", session.GetID()), zap.String("transport", "ws"))
		output, ok := session.AcquireOutput()
		if !ok {
			logger.Error("Failed to acquire output channel for WebSocket")
			t.sessionManager.CloseSession(session.GetID())
			conn.Close()
			return
		}
		if limits, err := t.config.Limits(); err == nil && limits.MaxMessageSize > 0 {
			conn.SetReadLimit(limits.MaxMessageSize * 2)
		}
		t.sessionManager.Connect(session)
		logger.Info("WebSocket client connected", zap.String("remoteAddr", r.RemoteAddr))

		done := make(chan struct{})
		go t.wsWritePump(conn, session, output, done, logger)
		t.wsReadPump(conn, session, logger)

		t.sessionManager.CloseSession(session.GetID())
		<-done
		conn.Close()
		logger.Info("WebSocket client disconnected")
	}
}

func (t *Transport) wsReadPump(conn *websocket.Conn, session shared.ISession, logger *zap.Logger) {
	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Warn("WebSocket read error", zap.Error(err))
			}
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}
		msgs, err := shared.ParseMessages(session, data)
		if err != nil {
			logger.Warn("Failed to parse WebSocket message", zap.Error(err))
			continue
		}
		for _, msg := range msgs {
			if msg == nil {
				continue
			}
			msg.Timestamp = time.Now()
			if err := session.Input().Put(msg); err != nil {
				logger.Warn("Message rejected", zap.Error(err), zap.Stringer("msgId", msg.ID))
				rejectMessage(msg, err)
			}
		}
	}
}

// wsWritePump is the only writer on conn.
func (t *Transport) wsWritePump(conn *websocket.Conn, session shared.ISession, output <-chan *shared.Message, done chan<- struct{}, logger *zap.Logger) {
	defer close(done)
	defer session.ReleaseOutput()
	ticker := time.NewTicker(keepaliveInterval)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-output:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session closed"),
					time.Now().Add(wsWriteWait))
				return
			}
			if msg == nil {
				continue
			}
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteJSON(msg); err != nil {
				logger.Warn("WebSocket write failed", zap.Error(err))
				conn.Close()
				return
			}
			session.UpdateLastActivity()
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
				logger.Debug("WebSocket ping failed", zap.Error(err))
				conn.Close()
				return
			}
		}
	}
}

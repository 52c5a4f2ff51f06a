package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gate4ai/hostbridge/shared"
	"github.com/gate4ai/hostbridge/shared/schema"
	"go.uber.org/zap"
)

const postTimeout = 30 * time.Second

func (s *Session) executeSendRequest(msg *shared.Message) {
	logger := s.BaseSession.Logger.With(
		zap.Stringp("method", msg.Method),
		zap.String("reqID", msg.ID.String()),
	)

	s.Locker.RLock()
	endpoint := s.postEndpoint
	httpClient := s.httpClient
	headers := s.headers
	s.Locker.RUnlock()

	notifyError := func(err error) {
		if msg.ID != nil && !msg.ID.IsEmpty() {
			s.GetRequestManager().ProcessResponse(&shared.Message{ID: msg.ID, Error: shared.NewJSONRPCError(err), Session: s})
		}
	}

	if endpoint == "" {
		err := errors.New("post endpoint not initialized")
		logger.Error(err.Error())
		notifyError(err)
		return
	}

	reqJSON, err := json.Marshal(msg)
	if err != nil {
		logger.Error("Failed to marshal JSON-RPC request", zap.Error(err))
		notifyError(fmt.Errorf("marshal %s: %w", msg.MethodName(), err))
		return
	}

	httpReqCtx, cancel := context.WithTimeout(s.ctx, postTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(httpReqCtx, http.MethodPost, endpoint, bytes.NewReader(reqJSON))
	if err != nil {
		logger.Error("Failed to create HTTP request", zap.Error(err), zap.String("endpoint", endpoint))
		notifyError(fmt.Errorf("failed to create HTTP request to %s: %w", endpoint, err))
		return
	}
	req.Header.Set("Content-Type", "application/json")
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	startTime := time.Now()
	resp, err := httpClient.Do(req)
	duration := time.Since(startTime)
	if err != nil {
		logger.Warn("HTTP POST request failed", zap.Error(err), zap.Duration("duration", duration))
		notifyError(fmt.Errorf("http request to %s failed: %w", endpoint, err))
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 500))
		logger.Error("HTTP POST request returned non-success status",
			zap.Int("status", resp.StatusCode),
			zap.String("endpoint", endpoint),
			zap.Duration("duration", duration),
			zap.String("body", string(bodyBytes)),
		)
		notifyError(fmt.Errorf("post to %s failed status %d: %s", endpoint, resp.StatusCode, string(bodyBytes)))
		return
	}

	// A 200 carries a JSON-RPC error for a payload the bridge could not parse.
	if resp.StatusCode == http.StatusOK {
		var reply shared.JSONRPCErrorResponse
		if err := json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&reply); err == nil && reply.Error != nil {
			logger.Warn("Bridge rejected the request payload", zap.Error(reply.Error))
			notifyError(reply.Error)
			return
		}
	}
	logger.Debug("HTTP POST request successful", zap.Int("status", resp.StatusCode), zap.Duration("duration", duration))
}

// SendRequestSync sends a request and returns a channel that yields its
// response once.
func (s *Session) SendRequestSync(method string, params interface{}) <-chan *shared.Message {
	ch := make(chan *shared.Message, 1)
	_, err := s.SendRequest(method, params, func(msg *shared.Message) {
		ch <- msg
		close(ch)
	})
	if err != nil {
		ch <- &shared.Message{Error: shared.NewJSONRPCError(err), Session: s}
		close(ch)
	}
	return ch
}

// Call runs one command on the host and waits for its result. Transport
// failures come back as EXECUTION_FAILURE results; the error is reserved
// for a session that cannot be opened or a cancelled ctx.
func (s *Session) Call(ctx context.Context, command string, args schema.ArgumentSet) (schema.Result, error) {
	if err := s.WaitOpen(ctx); err != nil {
		return schema.Result{}, err
	}

	var params interface{}
	if args != nil {
		params = args
	}
	select {
	case msg := <-s.SendRequestSync(command, params):
		return shared.DecodeResult(msg), nil
	case <-ctx.Done():
		return schema.Result{}, ctx.Err()
	}
}

// WaitOpen opens the session if needed and waits until it can send.
func (s *Session) WaitOpen(ctx context.Context) error {
	s.Locker.RLock()
	closed := s.closeCh == nil
	s.Locker.RUnlock()
	if closed {
		return shared.ErrSessionClosed
	}
	select {
	case <-s.Open():
	case <-ctx.Done():
		return ctx.Err()
	}
	s.Locker.RLock()
	defer s.Locker.RUnlock()
	if s.initErr != nil {
		return fmt.Errorf("open bridge session: %w", s.initErr)
	}
	return nil
}

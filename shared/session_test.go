package shared_test

import (
	"errors"
	"testing"

	"github.com/gate4ai/hostbridge/shared"
	"github.com/gate4ai/hostbridge/shared/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestBaseSession_NilResultEncodesNull(t *testing.T) {
	session, output := newConnectedSession(t, nil)
	id := schema.RequestIDFromUint64(1)

	session.SendResponse(&id, nil, nil)

	msg := receive(t, output)
	require.NotNil(t, msg.Result)
	assert.Equal(t, "null", string(*msg.Result))
	assert.Nil(t, msg.Error)
}

func TestBaseSession_WrappedJSONRPCErrorIsKept(t *testing.T) {
	session, output := newConnectedSession(t, nil)
	id := schema.RequestIDFromUint64(1)
	rpcErr := &shared.JSONRPCError{Code: shared.JSONRPCErrorNoHandler, Message: "none"}

	session.SendResponse(&id, nil, errors.Join(rpcErr))

	msg := receive(t, output)
	require.NotNil(t, msg.Error)
	assert.Equal(t, shared.JSONRPCErrorNoHandler, msg.Error.Code)
}

func TestBaseSession_ResponseDroppedWhenNotConnected(t *testing.T) {
	session := shared.NewBaseSession(zap.NewNop(), nil, nil)
	output, ok := session.AcquireOutput()
	require.True(t, ok)
	id := schema.RequestIDFromUint64(1)

	session.SendResponse(&id, "x", nil)

	assert.Len(t, output, 0)
}

func TestBaseSession_NotificationAfterCloseIsDropped(t *testing.T) {
	session := shared.NewBaseSession(zap.NewNop(), nil, nil)
	require.NoError(t, session.Close())

	err := session.SendNotification("onUserLeaveHint", nil)
	assert.ErrorIs(t, err, shared.ErrSessionClosed)
	assert.NoError(t, session.Close(), "double close is harmless")
}

func TestBaseSession_OutputAcquiredOnce(t *testing.T) {
	session := shared.NewBaseSession(zap.NewNop(), nil, nil)
	_, ok := session.AcquireOutput()
	require.True(t, ok)
	_, ok = session.AcquireOutput()
	assert.False(t, ok)

	session.ReleaseOutput()
	_, ok = session.AcquireOutput()
	assert.True(t, ok)
}

func TestBaseSession_SendRequestRegistersCallback(t *testing.T) {
	session, output := newConnectedSession(t, nil)

	id, err := session.SendRequest("music", map[string]any{"title": "Song"}, func(*shared.Message) {})
	require.NoError(t, err)
	assert.Equal(t, 1, session.GetRequestManager().Pending())

	msg := receive(t, output)
	assert.Equal(t, "music", *msg.Method)
	assert.Equal(t, id.String(), msg.ID.String())
}

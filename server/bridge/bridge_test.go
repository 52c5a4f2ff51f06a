package bridge_test

import (
	"encoding/json"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gate4ai/hostbridge/server/bridge"
	"github.com/gate4ai/hostbridge/server/host/hosttest"
	"github.com/gate4ai/hostbridge/shared"
	"github.com/gate4ai/hostbridge/shared/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

type group map[string]bridge.CommandHandler

func (g group) Commands() map[string]bridge.CommandHandler { return g }

func newBridge(t *testing.T, groups ...bridge.CommandGroup) *bridge.Bridge {
	t.Helper()
	b := bridge.New(zaptest.NewLogger(t), hosttest.New(34))
	b.AddCapability(groups...)
	t.Cleanup(b.Close)
	return b
}

func connect(t *testing.T, b *bridge.Bridge) (shared.ISession, <-chan *shared.Message) {
	t.Helper()
	s := b.Manager().CreateSession("test", nil)
	b.Manager().Connect(s)
	out, ok := s.AcquireOutput()
	require.True(t, ok)
	return s, out
}

func request(t *testing.T, s shared.ISession, id uint64, method string, params any) {
	t.Helper()
	rid := schema.RequestIDFromUint64(id)
	msg := &shared.Message{ID: &rid, Method: &method, Session: s}
	if params != nil {
		data, err := json.Marshal(params)
		require.NoError(t, err)
		raw := json.RawMessage(data)
		msg.Params = &raw
	}
	require.NoError(t, s.Input().Put(msg))
}

func receive(t *testing.T, out <-chan *shared.Message) *shared.Message {
	t.Helper()
	select {
	case msg, ok := <-out:
		require.True(t, ok, "output closed")
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message")
	}
	return nil
}

func expectNothing(t *testing.T, out <-chan *shared.Message) {
	t.Helper()
	select {
	case msg := <-out:
		t.Fatalf("unexpected message: %+v", msg)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestDispatcher_UnknownCommand(t *testing.T) {
	d := bridge.NewDispatcher(zap.NewNop())
	assert.Equal(t, schema.Unimplemented(), d.Dispatch(schema.NewCommand("missing", nil)))
}

func TestDispatcher_PanicBecomesExecutionFailure(t *testing.T) {
	d := bridge.NewDispatcher(zap.NewNop())
	d.Register("explode", func(schema.ArgumentSet) schema.Result { panic("kaboom") })

	r := d.Dispatch(schema.NewCommand("explode", nil))
	assert.Equal(t, schema.ResultFailure, r.Kind)
	assert.Equal(t, schema.CodeExecutionFailure, r.Code)
	assert.Contains(t, r.Message, "kaboom")

	// The route stays usable after a panic.
	d.Register("explode", func(schema.ArgumentSet) schema.Result { return schema.Success(1) })
	assert.True(t, d.Dispatch(schema.NewCommand("explode", nil)).IsSuccess())
}

func TestDispatcher_NilArgumentsBecomeEmpty(t *testing.T) {
	d := bridge.NewDispatcher(zap.NewNop())
	d.Register("args", func(a schema.ArgumentSet) schema.Result {
		return schema.Success(a != nil)
	})
	assert.Equal(t, schema.Success(true), d.Dispatch(schema.Command{Name: "args"}))
}

func TestDispatcher_SameCommandNeverOverlaps(t *testing.T) {
	d := bridge.NewDispatcher(zap.NewNop())
	var running, maxRunning int32
	d.Register("slow", func(schema.ArgumentSet) schema.Result {
		n := atomic.AddInt32(&running, 1)
		for {
			m := atomic.LoadInt32(&maxRunning)
			if n <= m || atomic.CompareAndSwapInt32(&maxRunning, m, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		atomic.AddInt32(&running, -1)
		return schema.Success(nil)
	})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d.Dispatch(schema.NewCommand("slow", nil))
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), atomic.LoadInt32(&maxRunning))
}

func TestBridge_RequestResponse(t *testing.T) {
	b := newBridge(t, group{
		"echo": func(a schema.ArgumentSet) schema.Result { return schema.Success(a["v"]) },
		"fail": func(schema.ArgumentSet) schema.Result {
			return schema.Failure(schema.CodeResourceNotFound, "APK file not found: /x")
		},
		"none": func(schema.ArgumentSet) schema.Result { return schema.Success(nil) },
	})
	s, out := connect(t, b)

	request(t, s, 1, "echo", map[string]any{"v": 9007199254740993})
	msg := receive(t, out)
	require.NotNil(t, msg.Result)
	assert.Equal(t, "9007199254740993", string(*msg.Result))

	request(t, s, 2, "fail", nil)
	msg = receive(t, out)
	require.NotNil(t, msg.Error)
	assert.Equal(t, shared.JSONRPCErrorResourceNotFound, msg.Error.Code)
	assert.Equal(t, "APK file not found: /x", msg.Error.Message)
	assert.Equal(t, schema.Failure(schema.CodeResourceNotFound, "APK file not found: /x"), shared.DecodeResult(msg))

	request(t, s, 3, "none", nil)
	msg = receive(t, out)
	require.NotNil(t, msg.Result)
	assert.Equal(t, "null", string(*msg.Result))

	request(t, s, 4, "doesNotExist", nil)
	msg = receive(t, out)
	require.NotNil(t, msg.Error)
	assert.Equal(t, shared.JSONRPCErrorMethodNotFound, msg.Error.Code)
	assert.Equal(t, "Method not implemented: doesNotExist", msg.Error.Message)
	assert.Equal(t, schema.Unimplemented(), shared.DecodeResult(msg))
}

func TestBridge_NonObjectParams(t *testing.T) {
	b := newBridge(t, group{"echo": func(schema.ArgumentSet) schema.Result { return schema.Success(nil) }})
	s, out := connect(t, b)

	request(t, s, 1, "echo", []int{1, 2})
	msg := receive(t, out)
	require.NotNil(t, msg.Error)
	assert.Equal(t, schema.CodeInvalidArgument, shared.DecodeResult(msg).Code)
}

func TestBridge_NotifyWithoutListenerIsDropped(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	b := bridge.New(zap.New(core), hosttest.New(34))
	t.Cleanup(b.Close)

	assert.NotPanics(t, func() {
		b.Notify(schema.UserLeaveHint())
		b.Notify(schema.PipChanged(true))
	})
	assert.Equal(t, 2, logs.FilterMessage("No listener attached, dropping lifecycle event").Len())

	// A listener attached later does not receive earlier events.
	_, out := connect(t, b)
	expectNothing(t, out)
}

func TestBridge_NotifyDelivers(t *testing.T) {
	b := newBridge(t)
	_, out := connect(t, b)

	b.Notify(schema.UserLeaveHint())
	msg := receive(t, out)
	require.NotNil(t, msg.Method)
	assert.Equal(t, "onUserLeaveHint", *msg.Method)
	assert.True(t, msg.ID.IsEmpty())
	assert.JSONEq(t, `{"channel":"PiliPlus"}`, string(*msg.Params))

	b.Notify(schema.PipChanged(true))
	msg = receive(t, out)
	assert.Equal(t, "onPipChanged", *msg.Method)
	assert.JSONEq(t, `{"channel":"floating","isInPictureInPictureMode":true}`, string(*msg.Params))
}

func TestBridge_NotifyNeverInterleavesWithResponse(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	b := newBridge(t, group{
		"block": func(schema.ArgumentSet) schema.Result {
			close(started)
			<-release
			return schema.Success("done")
		},
	})
	s, out := connect(t, b)

	request(t, s, 1, "block", nil)
	<-started
	b.Notify(schema.PipChanged(false))
	expectNothing(t, out)
	close(release)

	first := receive(t, out)
	second := receive(t, out)
	assert.Equal(t, `"done"`, string(*first.Result))
	require.NotNil(t, second.Method)
	assert.Equal(t, "onPipChanged", *second.Method)
}

func TestBridge_DetachedListenerGetsNothing(t *testing.T) {
	b := newBridge(t)
	s, out := connect(t, b)

	b.Manager().CloseSession(s.GetID())
	assert.Nil(t, b.Manager().Notifier().Listener())
	b.Notify(schema.UserLeaveHint())

	_, ok := <-out
	assert.False(t, ok, "output is closed with the session")
}

func TestBridge_LaterConnectionReplacesListener(t *testing.T) {
	b := newBridge(t)
	_, first := connect(t, b)
	second, out := connect(t, b)

	assert.Equal(t, second, b.Manager().Notifier().Listener())
	b.Notify(schema.UserLeaveHint())
	receive(t, out)
	expectNothing(t, first)
}

func TestBridge_HostHooks(t *testing.T) {
	b := newBridge(t)
	_, out := connect(t, b)
	hooks := b.HostHooks()

	hooks.OnUserLeaveHint()
	assert.Equal(t, "onUserLeaveHint", *receive(t, out).Method)

	hooks.OnPictureInPictureModeChanged(true)
	assert.Equal(t, "onPipChanged", *receive(t, out).Method)

	terminated := make(chan struct{})
	b.OnTerminate(func() { close(terminated) })
	hooks.OnDestroy()

	select {
	case <-terminated:
	case <-time.After(time.Second):
		t.Fatal("terminate callback not invoked")
	}
	assert.Equal(t, 0, b.Manager().SessionCount())
}

func TestBridge_WireLifecycleNamesAreNotCommands(t *testing.T) {
	b := newBridge(t)
	s, out := connect(t, b)

	// Without validators a runtime-sent lifecycle name must not be echoed back
	// as a push.
	request(t, s, 1, "onUserLeaveHint", nil)
	msg := receive(t, out)
	require.NotNil(t, msg.Error)
	assert.Equal(t, schema.Unimplemented(), shared.DecodeResult(msg))
}

func TestManager_CleanupIdleSessions(t *testing.T) {
	b := newBridge(t)
	m := b.Manager()
	m.CreateSession("test", nil)
	require.Equal(t, 1, m.SessionCount())

	m.CleanupIdleSessions(time.Hour)
	assert.Equal(t, 1, m.SessionCount())

	time.Sleep(5 * time.Millisecond)
	m.CleanupIdleSessions(time.Millisecond)
	assert.Equal(t, 0, m.SessionCount())

	_, err := m.GetSession("gone")
	assert.ErrorIs(t, err, bridge.ErrSessionNotFound)
}

package transport_test

import (
	"bytes"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gate4ai/hostbridge/server/host"
	"github.com/gate4ai/hostbridge/server/transport"
	"github.com/gate4ai/hostbridge/shared/schema"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// openStream connects over SSE and returns the events and the POST URL.
func openStream(t *testing.T, ts *testServer) (<-chan sseEvent, string) {
	t.Helper()
	resp := makeSseGetRequest(t, ts.server.URL+transport.BRIDGE_PATH)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	events := readEvents(t, resp.Body)
	endpoint := nextEvent(t, events, "endpoint")
	require.True(t, strings.HasPrefix(endpoint.data, transport.BRIDGE_PATH+"?"+transport.SESSION_ID_KEY+"="))
	require.Eventually(t, func() bool {
		return ts.bridge.Manager().Notifier().Listener() != nil
	}, time.Second, 10*time.Millisecond)
	return events, ts.server.URL + endpoint.data
}

func TestSSE_CommandRoundTrip(t *testing.T) {
	ts := setupServerTest(t)
	events, postURL := openStream(t, ts)

	resp := makePostRequest(t, postURL, createJsonRpcRequestBody(1, schema.CommandPing, nil))
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	reply := decodeReply(t, nextEvent(t, events, "message").data)
	assert.Equal(t, "1", string(reply.ID))
	assert.Equal(t, `"pong"`, string(reply.Result))
	assert.Nil(t, reply.Error)
}

func TestSSE_InstallMissingFile(t *testing.T) {
	ts := setupServerTest(t)
	events, postURL := openStream(t, ts)

	makePostRequest(t, postURL, createJsonRpcRequestBody("a", schema.CommandInstallApk, map[string]any{"apkPath": "/tmp/missing.apk"}))

	reply := decodeReply(t, nextEvent(t, events, "message").data)
	assert.Equal(t, `"a"`, string(reply.ID))
	require.NotNil(t, reply.Error)
	assert.Equal(t, -32002, reply.Error.Code)
	assert.Equal(t, "APK file not found: /tmp/missing.apk", reply.Error.Message)
	assert.Equal(t, "FILE_NOT_FOUND", reply.Error.Data.Code)
}

func TestSSE_UnknownCommand(t *testing.T) {
	ts := setupServerTest(t)
	events, postURL := openStream(t, ts)

	makePostRequest(t, postURL, createJsonRpcRequestBody(7, "teleport", map[string]any{"where": "home"}))

	reply := decodeReply(t, nextEvent(t, events, "message").data)
	require.NotNil(t, reply.Error)
	assert.Equal(t, -32601, reply.Error.Code)
	assert.Equal(t, "Method not implemented: teleport", reply.Error.Message)
	assert.Equal(t, "UNIMPLEMENTED", reply.Error.Data.Code)
}

func TestSSE_MusicWithNothingInstalled(t *testing.T) {
	ts := setupServerTest(t)
	events, postURL := openStream(t, ts)

	makePostRequest(t, postURL, createJsonRpcRequestBody(2, schema.CommandMusic, map[string]any{"title": "Song", "artist": nil, "album": nil}))

	reply := decodeReply(t, nextEvent(t, events, "message").data)
	assert.Equal(t, "false", string(reply.Result))
	assert.Empty(t, ts.platform.Launched)
}

func TestSSE_BatchKeepsOrder(t *testing.T) {
	ts := setupServerTest(t)
	ts.platform.ResolveNames(host.ActionMediaSearch)
	events, postURL := openStream(t, ts)

	body := "[" + createJsonRpcRequestBody(1, schema.CommandPing, nil) + "," +
		createJsonRpcRequestBody(2, schema.CommandMusic, map[string]any{"title": "x"}) + "," +
		createJsonRpcRequestBody(3, schema.CommandBack, nil) + "]"
	makePostRequest(t, postURL, body)

	for _, want := range []struct{ id, result string }{{"1", `"pong"`}, {"2", "true"}, {"3", "null"}} {
		reply := decodeReply(t, nextEvent(t, events, "message").data)
		assert.Equal(t, want.id, string(reply.ID))
		assert.Equal(t, want.result, string(reply.Result))
	}
}

func TestSSE_LifecyclePush(t *testing.T) {
	ts := setupServerTest(t)
	events, _ := openStream(t, ts)

	ts.bridge.HostHooks().OnPictureInPictureModeChanged(true)

	reply := decodeReply(t, nextEvent(t, events, "message").data)
	assert.Equal(t, "onPipChanged", reply.Method)
	assert.JSONEq(t, `{"channel":"floating","isInPictureInPictureMode":true}`, string(reply.Params))
}

func TestSSE_ReservedMethodRejected(t *testing.T) {
	ts := setupServerTest(t)
	events, postURL := openStream(t, ts)

	resp := makePostRequest(t, postURL, createJsonRpcRequestBody(9, "onUserLeaveHint", nil))
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	reply := decodeReply(t, nextEvent(t, events, "message").data)
	require.NotNil(t, reply.Error)
	assert.Equal(t, -32600, reply.Error.Code)
}

func TestPOST_Errors(t *testing.T) {
	ts := setupServerTest(t)

	resp := makePostRequest(t, ts.server.URL+transport.BRIDGE_PATH, createJsonRpcRequestBody(1, "ping", nil))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = makePostRequest(t, ts.server.URL+transport.BRIDGE_PATH+"?session_id=nope", createJsonRpcRequestBody(1, "ping", nil))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	_, postURL := openStream(t, ts)
	resp = makePostRequest(t, postURL, "{not json")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	reply := decodeReply(t, readBody(t, resp))
	require.NotNil(t, reply.Error)
	assert.Equal(t, -32700, reply.Error.Code)
}

func TestSSE_DisconnectClosesSession(t *testing.T) {
	ts := setupServerTest(t)
	resp := makeSseGetRequest(t, ts.server.URL+transport.BRIDGE_PATH)
	events := readEvents(t, resp.Body)
	nextEvent(t, events, "endpoint")
	require.Eventually(t, func() bool { return ts.bridge.Manager().SessionCount() == 1 }, time.Second, 10*time.Millisecond)

	resp.Body.Close()
	require.Eventually(t, func() bool {
		return ts.bridge.Manager().SessionCount() == 0 && ts.bridge.Manager().Notifier().Listener() == nil
	}, 2*time.Second, 10*time.Millisecond)
}

func TestWebSocket_RoundTripAndPush(t *testing.T) {
	ts := setupServerTest(t)
	wsURL := "ws" + strings.TrimPrefix(ts.server.URL, "http") + transport.WS_PATH

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(createJsonRpcRequestBody(1, schema.CommandPing, nil))))
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	reply := decodeReply(t, string(data))
	assert.Equal(t, `"pong"`, string(reply.Result))

	ts.bridge.HostHooks().OnUserLeaveHint()
	_, data, err = conn.ReadMessage()
	require.NoError(t, err)
	reply = decodeReply(t, string(data))
	assert.Equal(t, "onUserLeaveHint", reply.Method)
	assert.JSONEq(t, `{"channel":"PiliPlus"}`, string(reply.Params))
}

func TestWebSocket_DestroyClosesConnection(t *testing.T) {
	ts := setupServerTest(t)
	wsURL := "ws" + strings.TrimPrefix(ts.server.URL, "http") + transport.WS_PATH

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return ts.bridge.Manager().SessionCount() == 1 }, time.Second, 10*time.Millisecond)

	ts.bridge.HostHooks().OnDestroy()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	_, _, err = conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)
}

func TestLifecycleEndpoint(t *testing.T) {
	ts := setupServerTest(t)
	url := ts.server.URL + transport.LIFECYCLE_PATH

	for _, tc := range []struct {
		body string
		want string
	}{
		{`{"event":"userLeaveHint"}`, "leave"},
		{`{"event":"pipChanged","value":true}`, "pip:true"},
		{`{"event":"pipChanged"}`, "pip:false"},
		{`{"event":"destroy"}`, "destroy"},
	} {
		resp := makePostRequest(t, url, tc.body)
		assert.Equal(t, http.StatusAccepted, resp.StatusCode, tc.body)
		select {
		case got := <-ts.driver.events:
			assert.Equal(t, tc.want, got)
		case <-time.After(time.Second):
			t.Fatalf("no lifecycle signal for %s", tc.body)
		}
	}

	resp := makePostRequest(t, url, `{"event":"reboot"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	getResp, err := http.Get(url)
	require.NoError(t, err)
	getResp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, getResp.StatusCode)
}

func TestBridge_MethodNotAllowed(t *testing.T) {
	ts := setupServerTest(t)
	req, err := http.NewRequest(http.MethodPut, ts.server.URL+transport.BRIDGE_PATH, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	var buf bytes.Buffer
	_, err := buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	return buf.String()
}

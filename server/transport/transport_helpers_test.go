package transport_test

import (
	"bufio"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gate4ai/hostbridge/server/bridge"
	"github.com/gate4ai/hostbridge/server/bridge/capability"
	"github.com/gate4ai/hostbridge/server/bridge/validators"
	"github.com/gate4ai/hostbridge/server/host/hosttest"
	"github.com/gate4ai/hostbridge/server/transport"
	"github.com/gate4ai/hostbridge/shared/config"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type recordingDriver struct {
	events chan string
}

func newRecordingDriver() *recordingDriver {
	return &recordingDriver{events: make(chan string, 10)}
}

func (d *recordingDriver) UserLeaveHint() { d.events <- "leave" }

func (d *recordingDriver) PictureInPictureModeChanged(inPip bool) {
	if inPip {
		d.events <- "pip:true"
		return
	}
	d.events <- "pip:false"
}

func (d *recordingDriver) Destroy() { d.events <- "destroy" }

type testServer struct {
	bridge   *bridge.Bridge
	platform *hosttest.Platform
	config   *config.InternalConfig
	driver   *recordingDriver
	server   *httptest.Server
}

func setupServerTest(t *testing.T) *testServer {
	t.Helper()
	logger := zaptest.NewLogger(t)
	cfg := config.NewInternalConfig()
	platform := hosttest.New(34)

	b := bridge.New(logger, platform)
	b.AddCapability(capability.All(b)...)
	b.Manager().AddValidator(validators.FromLimits(config.DefaultLimits())...)

	driver := newRecordingDriver()
	tr, err := transport.New(b.Manager(), logger, cfg, transport.WithLifecycleDriver(driver))
	require.NoError(t, err)

	mux := http.NewServeMux()
	tr.RegisterHandlers(mux)
	server := httptest.NewServer(mux)

	t.Cleanup(func() {
		server.Close()
		tr.Close()
		b.Close()
	})
	return &testServer{bridge: b, platform: platform, config: cfg, driver: driver, server: server}
}

func makeSseGetRequest(t *testing.T, url string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url, nil)
	require.NoError(t, err)
	req.Header.Set("Accept", "text/event-stream")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func makePostRequest(t *testing.T, url string, body string) *http.Response {
	t.Helper()
	client := &http.Client{Timeout: 3 * time.Second}
	resp, err := client.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

type sseEvent struct {
	event string
	data  string
}

// readEvents parses the SSE stream in the background so tests can wait on
// events with a timeout.
func readEvents(t *testing.T, body io.Reader) <-chan sseEvent {
	t.Helper()
	events := make(chan sseEvent, 16)
	go func() {
		defer close(events)
		reader := bufio.NewReader(body)
		ev := sseEvent{event: "message"}
		for {
			line, err := reader.ReadString('\n')
			if err != nil {
				return
			}
			line = strings.TrimRight(line, "\r\n")
			switch {
			case line == "":
				if ev.data != "" {
					events <- ev
				}
				ev = sseEvent{event: "message"}
			case strings.HasPrefix(line, "event:"):
				ev.event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
			case strings.HasPrefix(line, "data:"):
				ev.data = strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			}
		}
	}()
	return events
}

func nextEvent(t *testing.T, events <-chan sseEvent, kind string) sseEvent {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for {
		select {
		case ev, ok := <-events:
			require.True(t, ok, "SSE stream ended")
			if ev.event == kind {
				return ev
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s event", kind)
		}
	}
}

func createJsonRpcRequestBody(id interface{}, method string, params interface{}) string {
	req := map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      id,
		"method":  method,
	}
	if params != nil {
		req["params"] = params
	}
	data, _ := json.Marshal(req)
	return string(data)
}

type rpcReply struct {
	ID     json.RawMessage `json:"id"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params"`
	Result json.RawMessage `json:"result"`
	Error  *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Data    struct {
			Code string `json:"code"`
		} `json:"data"`
	} `json:"error"`
}

func decodeReply(t *testing.T, data string) rpcReply {
	t.Helper()
	var r rpcReply
	require.NoError(t, json.Unmarshal([]byte(data), &r))
	return r
}

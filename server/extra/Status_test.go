package extra_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gate4ai/hostbridge/server/bridge"
	"github.com/gate4ai/hostbridge/server/bridge/capability"
	"github.com/gate4ai/hostbridge/server/extra"
	"github.com/gate4ai/hostbridge/server/host/hosttest"
	"github.com/gate4ai/hostbridge/shared/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type brokenConfig struct {
	*config.InternalConfig
}

func (brokenConfig) Status(context.Context) error { return errors.New("config unreadable") }

func getStatus(t *testing.T, cfg config.IConfig, b *bridge.Bridge) extra.StatusResponse {
	t.Helper()
	rec := httptest.NewRecorder()
	extra.StatusHandler(cfg, b, zaptest.NewLogger(t))(rec, httptest.NewRequest(http.MethodGet, "/status", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp extra.StatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestStatusHandler(t *testing.T) {
	logger := zaptest.NewLogger(t)

	t.Run("ReportsBridgeState", func(t *testing.T) {
		b := bridge.New(logger, hosttest.New(34))
		defer b.Close()
		b.AddCapability(capability.All(b)...)

		resp := getStatus(t, config.NewInternalConfig(), b)
		assert.Equal(t, "ok", resp.Config)
		assert.Equal(t, "hostbridge", resp.Name)
		assert.Equal(t, 34, resp.APILevel)
		assert.True(t, resp.Capabilities.AutoPipEnter)
		assert.True(t, resp.Capabilities.DefaultAppsSettingsDeepLink)
		assert.Contains(t, resp.Commands, "installApk")
		assert.Equal(t, 0, resp.Sessions)
		assert.False(t, resp.ListenerAttached)
	})

	t.Run("OldHost", func(t *testing.T) {
		b := bridge.New(logger, hosttest.New(23))
		defer b.Close()

		resp := getStatus(t, config.NewInternalConfig(), b)
		assert.Equal(t, 23, resp.APILevel)
		assert.False(t, resp.Capabilities.ScopedFileProviderRequired)
		assert.Empty(t, resp.Commands)
	})

	t.Run("ListenerAttached", func(t *testing.T) {
		b := bridge.New(logger, hosttest.New(34))
		defer b.Close()
		s := b.Manager().CreateSession("test", nil)
		b.Manager().Connect(s)

		resp := getStatus(t, config.NewInternalConfig(), b)
		assert.Equal(t, 1, resp.Sessions)
		assert.True(t, resp.ListenerAttached)
	})

	t.Run("ConfigError", func(t *testing.T) {
		b := bridge.New(logger, hosttest.New(34))
		defer b.Close()

		resp := getStatus(t, brokenConfig{config.NewInternalConfig()}, b)
		assert.Equal(t, "error", resp.Config)
	})
}

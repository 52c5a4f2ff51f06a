package extra

import (
	"encoding/json"
	"net/http"

	"github.com/gate4ai/hostbridge/server/bridge"
	"github.com/gate4ai/hostbridge/server/host"
	"github.com/gate4ai/hostbridge/shared/config"
	"go.uber.org/zap"
)

// StatusResponse represents the response structure for the status endpoint
type StatusResponse struct {
	Config           string            `json:"config"`
	Name             string            `json:"name,omitempty"`
	Version          string            `json:"version,omitempty"`
	APILevel         int               `json:"apiLevel"`
	Capabilities     host.Capabilities `json:"capabilities"`
	Commands         []string          `json:"commands"`
	Sessions         int               `json:"sessions"`
	ListenerAttached bool              `json:"listenerAttached"`
}

// StatusHandler reports config health and what the bridge currently serves.
func StatusHandler(cfg config.IConfig, b *bridge.Bridge, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		handlerLogger := logger.With(zap.String("handler", "StatusHandler"))
		w.Header().Set("Content-Type", "application/json")

		// Always 200; problems are reported in the body.
		w.WriteHeader(http.StatusOK)

		response := StatusResponse{
			Config:       "ok",
			APILevel:     b.Platform().APILevel(),
			Capabilities: b.Capabilities(),
			Commands:     b.Commands(),
			Sessions:     b.Manager().SessionCount(),
		}
		if response.Commands == nil {
			response.Commands = []string{}
		}
		response.ListenerAttached = b.Manager().Notifier().Listener() != nil

		if err := cfg.Status(r.Context()); err != nil {
			handlerLogger.Error("Failed to get config status", zap.Error(err))
			response.Config = "error"
		}
		if name, err := cfg.ServerName(); err == nil {
			response.Name = name
		}
		if version, err := cfg.ServerVersion(); err == nil {
			response.Version = version
		}

		if err := json.NewEncoder(w).Encode(response); err != nil {
			handlerLogger.Error("Failed to encode status", zap.Error(err))
		}
	}
}

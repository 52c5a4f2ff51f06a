package capability

import (
	"fmt"

	"github.com/gate4ai/hostbridge/server/bridge"
	"github.com/gate4ai/hostbridge/server/host"
	"github.com/gate4ai/hostbridge/shared/args"
	"github.com/gate4ai/hostbridge/shared/schema"
	"go.uber.org/zap"
)

var _ bridge.CommandGroup = (*PipCapability)(nil)

type PipCapability struct {
	logger   *zap.Logger
	platform host.Platform
	caps     host.Capabilities
	commands map[string]bridge.CommandHandler
}

func NewPip(logger *zap.Logger, platform host.Platform, caps host.Capabilities) *PipCapability {
	pc := &PipCapability{logger: logger, platform: platform, caps: caps}
	pc.commands = map[string]bridge.CommandHandler{
		schema.CommandSetPipAutoEnterEnabled: pc.handleSetAutoEnter,
	}
	return pc
}

func (pc *PipCapability) Commands() map[string]bridge.CommandHandler {
	return pc.commands
}

func (pc *PipCapability) handleSetAutoEnter(a schema.ArgumentSet) schema.Result {
	if !pc.caps.AutoPipEnter {
		return schema.Success(nil)
	}
	enabled := args.Get(a, "autoEnable", false)
	if err := pc.platform.SetAutoEnterPictureInPicture(enabled); err != nil {
		pc.logger.Warn("Failed to update picture-in-picture params", zap.Bool("autoEnable", enabled), zap.Error(err))
		return schema.Failure(schema.CodeExecutionFailure, fmt.Sprintf("Failed to set picture-in-picture params: %v", err))
	}
	return schema.Success(nil)
}

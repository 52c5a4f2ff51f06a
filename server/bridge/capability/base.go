package capability

import (
	"github.com/gate4ai/hostbridge/server/bridge"
	"github.com/gate4ai/hostbridge/shared/schema"
	"go.uber.org/zap"
)

var _ bridge.CommandGroup = (*BaseCapability)(nil)

// BaseCapability answers liveness checks.
type BaseCapability struct {
	logger   *zap.Logger
	commands map[string]bridge.CommandHandler
}

func NewBase(logger *zap.Logger) *BaseCapability {
	bc := &BaseCapability{logger: logger}
	bc.commands = map[string]bridge.CommandHandler{
		schema.CommandPing: bc.handlePing,
	}
	return bc
}

func (bc *BaseCapability) Commands() map[string]bridge.CommandHandler {
	return bc.commands
}

func (bc *BaseCapability) handlePing(schema.ArgumentSet) schema.Result {
	return schema.Success("pong")
}

package capability

import (
	"fmt"

	"github.com/gate4ai/hostbridge/server/bridge"
	"github.com/gate4ai/hostbridge/server/host"
	"github.com/gate4ai/hostbridge/shared/args"
	"github.com/gate4ai/hostbridge/shared/schema"
	"go.uber.org/zap"
)

var _ bridge.CommandGroup = (*InstallCapability)(nil)

// InstallCapability opens a downloaded package with the system installer.
type InstallCapability struct {
	logger   *zap.Logger
	invoker  *host.Invoker
	caps     host.Capabilities
	commands map[string]bridge.CommandHandler
}

func NewInstall(logger *zap.Logger, invoker *host.Invoker, caps host.Capabilities) *InstallCapability {
	ic := &InstallCapability{logger: logger, invoker: invoker, caps: caps}
	ic.commands = map[string]bridge.CommandHandler{
		schema.CommandInstallApk: ic.handleInstallApk,
	}
	return ic
}

func (ic *InstallCapability) Commands() map[string]bridge.CommandHandler {
	return ic.commands
}

func (ic *InstallCapability) handleInstallApk(a schema.ArgumentSet) schema.Result {
	path := args.OptionalString(a, "apkPath")
	if path == nil {
		return schema.Failure(schema.CodeInvalidArgument, "APK path is null")
	}
	platform := ic.invoker.Platform()

	exists, err := platform.FileExists(*path)
	if err != nil {
		return installFailure(err)
	}
	if !exists {
		return schema.Failure(schema.CodeResourceNotFound, "APK file not found: "+*path)
	}

	ref, err := host.FileReference(ic.caps, platform, *path)
	if err != nil {
		return installFailure(err)
	}
	action := host.NewAction(host.ActionView)
	action.Data = ref
	action.MIMEType = host.MIMETypePackageArchive
	action.Flags = host.FlagNewTask | host.FlagGrantReadURIPermission

	if !platform.Resolve(action) {
		return schema.Failure(schema.CodeNoHandlerAvailable, "No app can handle the install intent")
	}
	if err := platform.Launch(action); err != nil {
		return installFailure(err)
	}
	ic.logger.Info("Install started", zap.String("apkPath", *path), zap.String("data", ref))
	return schema.Success(true)
}

func installFailure(err error) schema.Result {
	return schema.Failure(schema.CodeExecutionFailure, fmt.Sprintf("Failed to install APK: %v", err))
}

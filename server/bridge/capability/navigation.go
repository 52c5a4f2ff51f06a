package capability

import (
	"github.com/gate4ai/hostbridge/server/bridge"
	"github.com/gate4ai/hostbridge/server/host"
	"github.com/gate4ai/hostbridge/shared/schema"
	"go.uber.org/zap"
)

const (
	settingsPackage            = "com.android.settings"
	settingsOpenByDefaultClass = "com.android.settings.applications.InstalledAppOpenByDefaultActivity"
)

var _ bridge.CommandGroup = (*NavigationCapability)(nil)

// NavigationCapability sends the user home or to the app's link settings.
// Both commands are best effort and always report success without a value.
type NavigationCapability struct {
	logger   *zap.Logger
	invoker  *host.Invoker
	caps     host.Capabilities
	commands map[string]bridge.CommandHandler
}

func NewNavigation(logger *zap.Logger, invoker *host.Invoker, caps host.Capabilities) *NavigationCapability {
	nc := &NavigationCapability{
		logger:  logger,
		invoker: invoker,
		caps:    caps,
	}
	nc.commands = map[string]bridge.CommandHandler{
		schema.CommandBack:               nc.handleBack,
		schema.CommandLinkVerifySettings: nc.handleLinkVerifySettings,
	}
	return nc
}

func (nc *NavigationCapability) Commands() map[string]bridge.CommandHandler {
	return nc.commands
}

func (nc *NavigationCapability) handleBack(schema.ArgumentSet) schema.Result {
	a := host.NewAction(host.ActionMain).AddCategory(host.CategoryHome)
	a.Flags = host.FlagNewTask
	nc.invoker.Invoke(a)
	return schema.Success(nil)
}

func (nc *NavigationCapability) handleLinkVerifySettings(schema.ArgumentSet) schema.Result {
	uri := "package:" + nc.invoker.Platform().PackageName()

	launched := nc.invoker.FirstResolving(
		host.Strategy{
			Name: "open-by-default",
			Build: host.When(nc.caps.DefaultAppsSettingsDeepLink, func() (*host.Action, error) {
				a := host.NewAction(host.ActionAppOpenByDefault)
				a.Data = uri
				return a, nil
			}),
		},
		host.Strategy{
			Name: "installed-app-open-by-default",
			Build: host.When(!nc.caps.DefaultAppsSettingsDeepLink, func() (*host.Action, error) {
				a := host.NewAction(host.ActionMain)
				a.Data = uri
				a.Component = host.Component{Package: settingsPackage, Class: settingsOpenByDefaultClass}
				return a, nil
			}),
		},
	)
	if !launched {
		nc.logger.Debug("Link settings unavailable, opening application details")
		a := host.NewAction(host.ActionApplicationDetails)
		a.Data = uri
		nc.invoker.Invoke(a)
	}
	return schema.Success(nil)
}

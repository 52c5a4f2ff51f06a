package capability

import "github.com/gate4ai/hostbridge/server/bridge"

// All returns every command group wired to b's invoker and capability flags.
func All(b *bridge.Bridge) []bridge.CommandGroup {
	logger := b.Logger()
	caps := b.Capabilities()
	return []bridge.CommandGroup{
		NewBase(logger),
		NewNavigation(logger, b.Invoker(), caps),
		NewAntifraud(logger, b.Invoker()),
		NewMedia(logger, b.Invoker()),
		NewPip(logger, b.Platform(), caps),
		NewInstall(logger, b.Invoker(), caps),
	}
}

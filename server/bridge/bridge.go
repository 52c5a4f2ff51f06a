// Package bridge connects a runtime session to the host platform: it routes
// named commands to their handlers and pushes host lifecycle events back.
package bridge

import (
	"sync"

	"github.com/gate4ai/hostbridge/server/host"
	"github.com/gate4ai/hostbridge/shared/schema"
	"go.uber.org/zap"
)

// Bridge owns the dispatcher, the session manager and the host invoker.
// Capabilities are derived once, when the bridge is created.
type Bridge struct {
	logger     *zap.Logger
	manager    *Manager
	dispatcher *Dispatcher
	invoker    *host.Invoker
	platform   host.Platform
	caps       host.Capabilities

	mu          sync.Mutex
	onTerminate func()
}

func New(logger *zap.Logger, platform host.Platform) *Bridge {
	if logger == nil {
		logger = zap.NewNop()
	}
	level := platform.APILevel()
	b := &Bridge{
		logger:     logger,
		manager:    NewManager(logger),
		dispatcher: NewDispatcher(logger),
		invoker:    host.NewInvoker(platform, logger),
		platform:   platform,
		caps:       host.DeriveCapabilities(level),
	}
	b.manager.Input().AddNotFoundHandle(b.dispatcher.Handle)
	logger.Info("Bridge created",
		zap.Int("apiLevel", level),
		zap.Bool("autoPipEnter", b.caps.AutoPipEnter),
		zap.Bool("scopedFileProviderRequired", b.caps.ScopedFileProviderRequired),
		zap.Bool("defaultAppsSettingsDeepLink", b.caps.DefaultAppsSettingsDeepLink),
	)
	if r, ok := platform.(host.HookRegistrar); ok {
		r.RegisterHooks(b.HostHooks())
	}
	return b
}

func (b *Bridge) Logger() *zap.Logger { return b.logger }
func (b *Bridge) Manager() *Manager { return b.manager }
func (b *Bridge) Dispatcher() *Dispatcher { return b.dispatcher }
func (b *Bridge) Invoker() *host.Invoker { return b.invoker }
func (b *Bridge) Platform() host.Platform { return b.platform }
func (b *Bridge) Capabilities() host.Capabilities { return b.caps }
func (b *Bridge) Commands() []string { return b.dispatcher.Commands() }
func (b *Bridge) Dispatch(cmd schema.Command) schema.Result { return b.dispatcher.Dispatch(cmd) }

// AddCapability registers command groups with the dispatcher and the
// message loop.
func (b *Bridge) AddCapability(groups ...CommandGroup) {
	b.dispatcher.AddCapability(groups...)
	b.manager.Input().AddCapability(b.dispatcher)
}

// Notify pushes a lifecycle event to the attached runtime, if any.
func (b *Bridge) Notify(ev schema.LifecycleEvent) {
	b.manager.Notifier().Notify(ev)
}

// OnTerminate sets the callback run after the host is destroyed.
func (b *Bridge) OnTerminate(fn func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onTerminate = fn
}

// HostHooks returns the callbacks the host platform drives.
func (b *Bridge) HostHooks() host.Hooks {
	return host.Hooks{
		OnUserLeaveHint: func() {
			b.Notify(schema.UserLeaveHint())
		},
		OnPictureInPictureModeChanged: func(inPip bool) {
			b.Notify(schema.PipChanged(inPip))
		},
		OnDestroy: b.destroy,
	}
}

func (b *Bridge) destroy() {
	b.logger.Info("Host destroyed, closing bridge")
	b.manager.CloseAllSessions()
	b.mu.Lock()
	fn := b.onTerminate
	b.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// Close stops the bridge. Queued messages are drained first.
func (b *Bridge) Close() {
	b.manager.Shutdown()
}

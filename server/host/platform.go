package host

// Platform is the host operating system as seen by the bridge.
type Platform interface {
	// Resolve reports whether some component can handle the action. It is a
	// local lookup and must not block on the component itself.
	Resolve(a *Action) bool
	// Launch starts the component and returns without waiting for it.
	Launch(a *Action) error
	FileExists(path string) (bool, error)
	// ContentReference wraps a local file in a scoped, shareable reference.
	ContentReference(path string) (string, error)
	PackageName() string
	APILevel() int
	SetAutoEnterPictureInPicture(enabled bool) error
}

// Hooks are the host lifecycle callbacks a bridge registers.
type Hooks struct {
	OnUserLeaveHint               func()
	OnPictureInPictureModeChanged func(inPip bool)
	OnDestroy                     func()
}

// HookRegistrar is implemented by hosts that drive lifecycle callbacks.
type HookRegistrar interface {
	RegisterHooks(h Hooks)
}

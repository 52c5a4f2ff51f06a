package shared

// ICapability is a group of method handlers registered together.
type ICapability interface {
	GetHandlers() map[string]Handler
}

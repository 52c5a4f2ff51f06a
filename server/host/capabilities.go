package host

// Platform API levels that change which strategy a command uses.
const (
	APILevelNougat = 24
	APILevelS      = 31
)

// Capabilities are derived once from the host version and consulted by
// handlers instead of comparing versions inline.
type Capabilities struct {
	AutoPipEnter                bool `json:"autoPipEnter"`
	ScopedFileProviderRequired  bool `json:"scopedFileProviderRequired"`
	DefaultAppsSettingsDeepLink bool `json:"defaultAppsSettingsDeepLink"`
}

func DeriveCapabilities(apiLevel int) Capabilities {
	return Capabilities{
		AutoPipEnter:                apiLevel >= APILevelS,
		ScopedFileProviderRequired:  apiLevel >= APILevelNougat,
		DefaultAppsSettingsDeepLink: apiLevel >= APILevelS,
	}
}

package validators

import (
	"github.com/gate4ai/hostbridge/shared"
	"github.com/gate4ai/hostbridge/shared/config"
)

// CreateDefaultValidators returns the standard set of validators with default settings
func CreateDefaultValidators() []shared.MessageValidator {
	return FromLimits(config.DefaultLimits())
}

// FromLimits builds the standard validators for the given limits.
func FromLimits(l config.Limits) []shared.MessageValidator {
	return []shared.MessageValidator{
		NewThrottling(l.RPS, l.RPM),
		NewMessageSizeValidator(l.MaxMessageSize),
		NewMethodValidator(),
	}
}

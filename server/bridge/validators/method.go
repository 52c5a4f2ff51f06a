package validators

import (
	"fmt"
	"unicode"

	"github.com/gate4ai/hostbridge/shared"
	"github.com/gate4ai/hostbridge/shared/schema"
)

const maxMethodLength = 128

// MethodValidator checks that a method name is well formed. It does not
// check that a handler exists: unknown commands must still reach the
// dispatcher and come back as unimplemented. Lifecycle names are reserved
// for host pushes and are rejected from the runtime side.
type MethodValidator struct{}

func NewMethodValidator() *MethodValidator {
	return &MethodValidator{}
}

func (v *MethodValidator) Validate(msg *shared.Message) error {
	if msg.Method == nil {
		if msg.ID.IsEmpty() {
			return fmt.Errorf("method and id is empty")
		}
		return nil
	}
	method := *msg.Method
	if method == "" {
		return fmt.Errorf("empty method")
	}
	if len(method) > maxMethodLength {
		return fmt.Errorf("method name exceeds %d bytes", maxMethodLength)
	}
	for _, r := range method {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			return fmt.Errorf("invalid method: %q", method)
		}
	}
	if schema.IsLifecycleMethod(method) {
		return fmt.Errorf("reserved method: %s", method)
	}
	return nil
}

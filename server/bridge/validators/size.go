package validators

import (
	"errors"
	"sync"

	"github.com/gate4ai/hostbridge/shared"
)

const maxIDLength = 256

var (
	ErrIDTooLong       = errors.New("message ID string exceeds maximum allowed length (256 bytes)")
	ErrMessageTooLarge = errors.New("message exceeds maximum allowed size")
)

// MessageSizeValidator bounds the size of message params and results.
type MessageSizeValidator struct {
	maxSize int64
	mu      sync.RWMutex
}

func NewMessageSizeValidator(maxSize int64) *MessageSizeValidator {
	return &MessageSizeValidator{
		maxSize: maxSize,
	}
}

// SetMaxSize updates the maximum allowed message size
func (v *MessageSizeValidator) SetMaxSize(maxSize int64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.maxSize = maxSize
}

func (v *MessageSizeValidator) Validate(msg *shared.Message) error {
	if len(msg.ID.String()) >= maxIDLength {
		return ErrIDTooLong
	}

	v.mu.RLock()
	maxSize := v.maxSize
	v.mu.RUnlock()
	if maxSize <= 0 {
		return nil
	}

	var size int64
	if msg.Params != nil {
		size += int64(len(*msg.Params))
	}
	if msg.Result != nil {
		size += int64(len(*msg.Result))
	}
	if size > maxSize {
		return ErrMessageTooLarge
	}
	return nil
}

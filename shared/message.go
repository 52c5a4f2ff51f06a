package shared

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/gate4ai/hostbridge/shared/schema"
)

type Message struct {
	ID        *schema.RequestID `json:"id,omitempty"`
	Timestamp time.Time         `json:"-"`
	Method    *string           `json:"method,omitempty"`
	Params    *json.RawMessage  `json:"params,omitempty"`
	Result    *json.RawMessage  `json:"result,omitempty"`
	Error     *JSONRPCError     `json:"error,omitempty"`

	// Local marks messages enqueued by the host itself (lifecycle pushes).
	// It is never read from the wire.
	Local     bool     `json:"-"`
	Processed bool     `json:"-"`
	Session   ISession `json:"-"`
}

func ParseMessages(s ISession, data []byte) ([]*Message, error) {
	var messages []*Message
	err := json.Unmarshal(data, &messages)
	if err == nil {
		for _, msg := range messages {
			if msg != nil {
				msg.Session = s
			}
		}
		return messages, nil
	}

	var singleMessage Message
	err = json.Unmarshal(data, &singleMessage)
	if err != nil {
		return nil, fmt.Errorf("invalid JSON-RPC message (neither batch nor single): %w", err)
	}
	singleMessage.Session = s
	return []*Message{&singleMessage}, nil
}

// MethodName returns the method or "" for responses.
func (m *Message) MethodName() string {
	if m.Method == nil {
		return ""
	}
	return *m.Method
}

// IsRequest reports whether the message expects a response.
func (m *Message) IsRequest() bool {
	return m.Method != nil && !m.ID.IsEmpty()
}

// MarshalJSON picks the response, error or request envelope.
func (m *Message) MarshalJSON() ([]byte, error) {
	if m.Error != nil {
		return json.Marshal(JSONRPCErrorResponse{
			JSONRPC: JSONRPCVersion,
			ID:      m.ID,
			Error:   m.Error,
		})
	}
	if m.Result != nil {
		return json.Marshal(JSONRPCResponse{
			JSONRPC: JSONRPCVersion,
			ID:      m.ID,
			Result:  m.Result,
		})
	}
	return json.Marshal(JSONRPCMessage{
		JSONRPC: JSONRPCVersion,
		ID:      m.ID,
		Method:  m.Method,
		Params:  m.Params,
	})
}

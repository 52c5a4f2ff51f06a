package shared

import (
	"encoding/json"
	"fmt"

	"github.com/gate4ai/hostbridge/shared/schema"
)

const (
	JSONRPCVersion = "2.0"

	// Standard JSON-RPC 2.0 error codes
	JSONRPCErrorParseError     = -32700 // Invalid JSON was received
	JSONRPCErrorInvalidRequest = -32600 // The JSON sent is not a valid Request object
	JSONRPCErrorMethodNotFound = -32601 // The command is not implemented by the host
	JSONRPCErrorInvalidParams  = -32602 // Required argument missing or malformed
	JSONRPCErrorInternal       = -32603 // Unexpected fault while executing a command

	// -32000 to -32099 are reserved for implementation-defined server errors
	JSONRPCErrorServerError      = -32000 // Generic server error
	JSONRPCErrorResourceNotFound = -32002 // Referenced file or resource is absent
	JSONRPCErrorNoHandler        = -32003 // No host component resolves the action
)

type JSONRPCErrorResponse struct {
	JSONRPC string            `json:"jsonrpc"`
	ID      *schema.RequestID `json:"id,omitempty"`
	Error   *JSONRPCError     `json:"error"`
}

// JSONRPCResponse represents the structure for sending successful JSON-RPC responses.
type JSONRPCResponse struct {
	JSONRPC string            `json:"jsonrpc"`
	ID      *schema.RequestID `json:"id"`
	Result  *json.RawMessage  `json:"result"`
}

type JSONRPCMessage struct {
	JSONRPC string            `json:"jsonrpc"`
	ID      *schema.RequestID `json:"id,omitempty"`
	Method  *string           `json:"method,omitempty"`
	Params  *json.RawMessage  `json:"params,omitempty"`
	Error   *JSONRPCError     `json:"error,omitempty"`
}

// JSONRPCError represents a JSON-RPC 2.0 error object.
type JSONRPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Error implements the Go error interface for JSONRPCError.
func (e *JSONRPCError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%d: %s", e.Code, e.Message)
}

func NewJSONRPCError(err error) *JSONRPCError {
	if err == nil {
		return nil
	}
	return &JSONRPCError{
		Code:    JSONRPCErrorInternal,
		Message: err.Error(),
	}
}

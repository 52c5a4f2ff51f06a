package shared

import (
	"encoding/json"
	"fmt"

	"github.com/gate4ai/hostbridge/shared/schema"
)

var codeToJSONRPC = map[schema.ErrorCode]int{
	schema.CodeInvalidArgument:    JSONRPCErrorInvalidParams,
	schema.CodeResourceNotFound:   JSONRPCErrorResourceNotFound,
	schema.CodeNoHandlerAvailable: JSONRPCErrorNoHandler,
	schema.CodeExecutionFailure:   JSONRPCErrorInternal,
	schema.CodeUnimplemented:      JSONRPCErrorMethodNotFound,
}

// ErrorData is the data member of a JSON-RPC error produced by the bridge.
type ErrorData struct {
	Code schema.ErrorCode `json:"code"`
}

// EncodeResult converts a command Result into the (result, error) pair the
// input loop sends back. A nil result with nil error encodes as JSON null.
func EncodeResult(command string, r schema.Result) (interface{}, error) {
	switch r.Kind {
	case schema.ResultSuccess:
		return r.Value, nil
	case schema.ResultUnimplemented:
		return nil, &JSONRPCError{
			Code:    JSONRPCErrorMethodNotFound,
			Message: fmt.Sprintf("Method not implemented: %s", command),
			Data:    ErrorData{Code: schema.CodeUnimplemented},
		}
	}
	code, ok := codeToJSONRPC[r.Code]
	if !ok {
		code = JSONRPCErrorServerError
	}
	return nil, &JSONRPCError{
		Code:    code,
		Message: r.Message,
		Data:    ErrorData{Code: r.Code},
	}
}

// DecodeResult turns a response message back into a Result.
func DecodeResult(msg *Message) schema.Result {
	if msg == nil {
		return schema.Failure(schema.CodeExecutionFailure, "no response")
	}
	if msg.Error != nil {
		code := errorCodeOf(msg.Error)
		if code == schema.CodeUnimplemented {
			return schema.Unimplemented()
		}
		return schema.Failure(code, msg.Error.Message)
	}
	if msg.Result == nil {
		return schema.Success(nil)
	}
	var value any
	if err := json.Unmarshal(*msg.Result, &value); err != nil {
		return schema.Failure(schema.CodeExecutionFailure, fmt.Sprintf("malformed result: %v", err))
	}
	return schema.Success(value)
}

func errorCodeOf(e *JSONRPCError) schema.ErrorCode {
	switch data := e.Data.(type) {
	case ErrorData:
		return data.Code
	case map[string]interface{}:
		if s, ok := data["code"].(string); ok && s != "" {
			return schema.ErrorCode(s)
		}
	}
	for code, num := range codeToJSONRPC {
		if num == e.Code && code != schema.CodeExecutionFailure {
			return code
		}
	}
	return schema.CodeExecutionFailure
}

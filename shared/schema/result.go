package schema

import "fmt"

type ResultKind int

const (
	ResultSuccess ResultKind = iota
	ResultFailure
	ResultUnimplemented
)

func (k ResultKind) String() string {
	switch k {
	case ResultSuccess:
		return "success"
	case ResultFailure:
		return "failure"
	case ResultUnimplemented:
		return "unimplemented"
	}
	return "unknown"
}

// ErrorCode is the string code carried by a failed Result.
type ErrorCode string

const (
	CodeInvalidArgument    ErrorCode = "INVALID_ARGUMENT"
	CodeResourceNotFound   ErrorCode = "FILE_NOT_FOUND"
	CodeNoHandlerAvailable ErrorCode = "NO_HANDLER"
	CodeExecutionFailure   ErrorCode = "EXECUTION_FAILURE"
	CodeUnimplemented      ErrorCode = "UNIMPLEMENTED"
)

// Result is the outcome of exactly one Command.
type Result struct {
	Kind    ResultKind
	Value   any
	Code    ErrorCode
	Message string
}

func Success(value any) Result {
	return Result{Kind: ResultSuccess, Value: value}
}

func Failure(code ErrorCode, message string) Result {
	return Result{Kind: ResultFailure, Code: code, Message: message}
}

func Unimplemented() Result {
	return Result{Kind: ResultUnimplemented, Code: CodeUnimplemented}
}

func (r Result) IsSuccess() bool { return r.Kind == ResultSuccess }

// Bool returns the success value as a bool, false for anything else.
func (r Result) Bool() bool {
	b, _ := r.Value.(bool)
	return r.Kind == ResultSuccess && b
}

func (r Result) String() string {
	switch r.Kind {
	case ResultSuccess:
		return fmt.Sprintf("Success(%v)", r.Value)
	case ResultFailure:
		return fmt.Sprintf("Failure(%s, %q)", r.Code, r.Message)
	}
	return r.Kind.String()
}

package jsonrpc

import "fmt"

// Reserved JSON-RPC 2.0 error codes.
const (
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603

	// CodeServerBusy is returned on the fixed rejection page when the
	// active-client limit is reached.
	CodeServerBusy = -32400
)

var reservedMessages = map[int]string{
	CodeInvalidRequest: "Invalid Request.",
	CodeMethodNotFound: "Method not found.",
	CodeInvalidParams:  "Invalid params.",
	CodeInternalError:  "Internal error.",
}

// Error is a JSON-RPC error object.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("jsonrpc: %d %s", e.Code, e.Message)
}

// NewError builds an error object for code. Reserved codes always carry their
// standard message; handler-specific negative codes keep the handler's
// message; positive codes are host internals that must not leak to clients
// and collapse to an internal error.
func NewError(code int, message string) *Error {
	if msg, ok := reservedMessages[code]; ok {
		return &Error{Code: code, Message: msg}
	}
	if code > 0 {
		return &Error{Code: CodeInternalError, Message: reservedMessages[CodeInternalError]}
	}
	return &Error{Code: code, Message: message}
}

// ErrInvalidParams is the error handlers return for malformed params.
func ErrInvalidParams() *Error { return NewError(CodeInvalidParams, "") }

// ErrInternal is the error handlers return for internal failures.
func ErrInternal() *Error { return NewError(CodeInternalError, "") }

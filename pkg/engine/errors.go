package engine

import "fmt"

// ErrorCode identifies the failure class of a scan or transfer error.
// Codes are stable wire values; UI layers translate them to text but must
// not reinterpret their semantics.
type ErrorCode string

const (
	CodeSourceNotFound          ErrorCode = "source_not_found"
	CodeDestinationExists       ErrorCode = "destination_exists"
	CodePermissionDenied        ErrorCode = "permission_denied"
	CodeInsufficientSpace       ErrorCode = "insufficient_space"
	CodeSameLocation            ErrorCode = "same_location"
	CodeDestinationInsideSource ErrorCode = "destination_inside_source"
	CodeSymlinkLoop             ErrorCode = "symlink_loop"
	CodeCancelled               ErrorCode = "cancelled"
	CodeIO                      ErrorCode = "io_error"
)

// OpError is the tagged error shape shared by scan and transfer operations.
// Required/Available are populated only for insufficient_space.
type OpError struct {
	Code      ErrorCode `json:"code"`
	Path      string    `json:"path,omitempty"`
	Message   string    `json:"message,omitempty"`
	Required  uint64    `json:"required,omitempty"`
	Available uint64    `json:"available,omitempty"`
}

func (e *OpError) Error() string {
	switch {
	case e.Code == CodeInsufficientSpace:
		return fmt.Sprintf("%s: required %d bytes, available %d", e.Code, e.Required, e.Available)
	case e.Path != "" && e.Message != "":
		return fmt.Sprintf("%s: %s: %s", e.Code, e.Path, e.Message)
	case e.Path != "":
		return fmt.Sprintf("%s: %s", e.Code, e.Path)
	case e.Message != "":
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return string(e.Code)
}

func sourceNotFound(path string) *OpError {
	return &OpError{Code: CodeSourceNotFound, Path: path}
}

func destinationExists(path string) *OpError {
	return &OpError{Code: CodeDestinationExists, Path: path}
}

func permissionDenied(path, message string) *OpError {
	return &OpError{Code: CodePermissionDenied, Path: path, Message: message}
}

func insufficientSpace(required, available uint64) *OpError {
	return &OpError{Code: CodeInsufficientSpace, Required: required, Available: available}
}

func sameLocation(path string) *OpError {
	return &OpError{Code: CodeSameLocation, Path: path}
}

func destinationInsideSource() *OpError {
	return &OpError{Code: CodeDestinationInsideSource}
}

func symlinkLoop(path string) *OpError {
	return &OpError{Code: CodeSymlinkLoop, Path: path}
}

func cancelled(message string) *OpError {
	return &OpError{Code: CodeCancelled, Message: message}
}

func ioError(path string, err error) *OpError {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return &OpError{Code: CodeIO, Path: path, Message: msg}
}

// AsOpError unwraps err to an *OpError, wrapping unknown errors as io_error
// so every failure leaving the engine carries a stable code.
func AsOpError(err error) *OpError {
	if err == nil {
		return nil
	}
	if op, ok := err.(*OpError); ok {
		return op
	}
	return &OpError{Code: CodeIO, Message: err.Error()}
}

package app

import (
	"errors"
	"fmt"
)

// CommonError represents application-level errors
type CommonError struct {
	Code    string
	Message string
	Cause   error
}

func (e *CommonError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *CommonError) Unwrap() error {
	return e.Cause
}

// Common error codes. Each names the stage of a check run that failed.
const (
	ErrCodeInvalidInput  = "INVALID_INPUT"
	ErrCodeMapfileRead   = "MAPFILE_READ"
	ErrCodeMapfileParse  = "MAPFILE_PARSE"
	ErrCodeIndexBuild    = "INDEX_BUILD"
	ErrCodeImageAccess   = "IMAGE_ACCESS"
	ErrCodeImageWalk     = "IMAGE_WALK"
	ErrCodeOutputFailure = "OUTPUT"
)

// NewError creates a new CommonError
func NewError(code, message string, cause error) *CommonError {
	return &CommonError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// ErrorCode returns the code of the first CommonError in err's chain, or ""
func ErrorCode(err error) string {
	var ce *CommonError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return ""
}

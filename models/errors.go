package models

import (
	"errors"
	"fmt"
)

// Error codes used in API responses and internal error handling.
const (
	ErrCodeInvalidURL      = "INVALID_URL"
	ErrCodeDeepLinkInvalid = "DEEP_LINK_INVALID"
	ErrCodeSubmitFailed    = "SUBMIT_FAILED"
	ErrCodeBadResponse     = "BAD_RESPONSE"
	ErrCodeUpstreamStatus  = "UPSTREAM_STATUS"
	ErrCodeAuthFailed      = "AUTH_FAILED"
	ErrCodeJobFailed       = "JOB_FAILED"
	ErrCodeInvalidInput    = "INVALID_INPUT"
	ErrCodeUnauthorized    = "UNAUTHORIZED"
	ErrCodeRateLimited     = "RATE_LIMITED"
	ErrCodeInternal        = "INTERNAL_ERROR"
)

// ErrorDetail is the structured error in API responses.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// JobError is the internal error type carrying an error code.
// It implements the error interface and supports error wrapping via Unwrap.
type JobError struct {
	Code    string
	Message string
	Err     error // wrapped original error
}

func (e *JobError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *JobError) Unwrap() error {
	return e.Err
}

// NewJobError creates a new JobError.
func NewJobError(code, message string, err error) *JobError {
	return &JobError{Code: code, Message: message, Err: err}
}

// ToDetail converts an internal error to an API-facing ErrorDetail.
func (e *JobError) ToDetail() *ErrorDetail {
	return &ErrorDetail{Code: e.Code, Message: e.Message}
}

// CodeOf returns the code of the first JobError in err's chain, or
// ErrCodeInternal when there is none.
func CodeOf(err error) string {
	var je *JobError
	if errors.As(err, &je) {
		return je.Code
	}
	return ErrCodeInternal
}

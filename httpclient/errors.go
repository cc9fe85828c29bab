package httpclient

import (
	"errors"
	"fmt"
)

// ErrorCode is a stable, machine-readable classification of pipeline errors.
type ErrorCode string

const (
	// ErrCodeBadOption indicates a malformed transitional option set.
	ErrCodeBadOption ErrorCode = "ERR_BAD_OPTION"
	// ErrCodeCanceled indicates the request's CancelToken was settled.
	ErrCodeCanceled ErrorCode = "ERR_CANCELED"
	// ErrCodeAborted indicates the transport call was aborted, or timed out
	// while clarifyTimeoutError is off.
	ErrCodeAborted ErrorCode = "ECONNABORTED"
	// ErrCodeTimeout indicates the transport call timed out.
	ErrCodeTimeout ErrorCode = "ETIMEDOUT"
	// ErrCodeNetwork indicates a network-level failure (DNS, refused, reset).
	ErrCodeNetwork ErrorCode = "ERR_NETWORK"
	// ErrCodeBadStatus indicates the status validator rejected the response.
	ErrCodeBadStatus ErrorCode = "ERR_BAD_STATUS"
	// ErrCodeJSONParse indicates strict JSON parsing of a response failed.
	ErrCodeJSONParse ErrorCode = "E_JSON_PARSE"
	// ErrCodeBadRequest indicates the request could not be built or sent.
	ErrCodeBadRequest ErrorCode = "ERR_BAD_REQUEST"
	// ErrCodeBadResponse indicates the response body could not be read.
	ErrCodeBadResponse ErrorCode = "ERR_BAD_RESPONSE"
	// ErrCodeNoTransport indicates no transport was configured or injected.
	ErrCodeNoTransport ErrorCode = "ERR_NO_TRANSPORT"
	// ErrCodeRejected indicates a local policy (breaker, limiter, bulkhead)
	// refused to send the request.
	ErrCodeRejected ErrorCode = "ERR_REJECTED"
)

// Error is the uniform failure value produced by the pipeline.
type Error struct {
	// Message describes the failure.
	Message string
	// Code classifies the failure. Empty for errors raised by user code.
	Code ErrorCode
	// Config is the configuration of the failed request (may be nil).
	Config *Config
	// Request is the transport's raw request handle (may be nil).
	Request any
	// Response is set when a response was received (status errors).
	Response *Response
	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("httpclient: %s: %s", e.Code, e.Message)
	}
	return "httpclient: " + e.Message
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates an Error bound to a request configuration.
func NewError(message string, code ErrorCode, cfg *Config, request any, resp *Response) *Error {
	return &Error{
		Message:  message,
		Code:     code,
		Config:   cfg,
		Request:  request,
		Response: resp,
	}
}

// enhance wraps err as an Error carrying code and config. Existing *Error
// values are returned as-is.
func enhance(err error, cfg *Config, code ErrorCode, request any, resp *Response) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return &Error{
		Message:  err.Error(),
		Code:     code,
		Config:   cfg,
		Request:  request,
		Response: resp,
		Err:      err,
	}
}

// CodeOf returns the ErrorCode carried by err, or "" if err is not an *Error.
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// ResponseOf returns the response attached to err, if any.
func ResponseOf(err error) *Response {
	var e *Error
	if errors.As(err, &e) {
		return e.Response
	}
	return nil
}

// IsCancel checks if an error is a cancellation error.
func IsCancel(err error) bool {
	return CodeOf(err) == ErrCodeCanceled
}

// IsTimeout checks if an error is a timeout, whichever code the transport used.
func IsTimeout(err error) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	if e.Code == ErrCodeTimeout {
		return true
	}
	var te interface{ Timeout() bool }
	return e.Code == ErrCodeAborted && errors.As(e.Err, &te) && te.Timeout()
}

// IsNetworkError checks if an error is a network-level transport failure.
func IsNetworkError(err error) bool {
	return CodeOf(err) == ErrCodeNetwork
}

// IsStatusError checks if an error was produced by status validation.
func IsStatusError(err error) bool {
	return CodeOf(err) == ErrCodeBadStatus
}

// IsParseError checks if an error is a strict JSON parse failure.
func IsParseError(err error) bool {
	return CodeOf(err) == ErrCodeJSONParse
}

// IsRejected checks if an error came from a local resilience policy.
func IsRejected(err error) bool {
	return CodeOf(err) == ErrCodeRejected
}

// IsValidationError checks if an error is a configuration validation failure.
func IsValidationError(err error) bool {
	return CodeOf(err) == ErrCodeBadOption
}

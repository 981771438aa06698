package httpclient

import (
	"context"
	"errors"
	"fmt"
)

var errNoResponse = errors.New("backend returned neither a response nor an error")

// ErrorCode classifies failures of a request/response exchange.
type ErrorCode int

const (
	// ErrCodeMalformedRequest means the request could not be built: unknown
	// verb, unparseable URL, invalid header. Never retried.
	ErrCodeMalformedRequest ErrorCode = iota
	// ErrCodeTransport covers refused or reset connections, timeouts, TLS
	// failures and cancellation.
	ErrCodeTransport
	// ErrCodeProtocol means the peer sent a response the backend could not
	// frame. Never retried.
	ErrCodeProtocol
	// ErrCodeCodec means a payload could not be encoded or decoded.
	ErrCodeCodec
	// ErrCodeCookieParse means a Set-Cookie line was malformed. The jar logs
	// and drops it; it never aborts an exchange.
	ErrCodeCookieParse
	// ErrCodeStatus is returned by Response.ErrorForStatus for non-2xx
	// responses.
	ErrCodeStatus
)

// String returns the error code name.
func (c ErrorCode) String() string {
	switch c {
	case ErrCodeMalformedRequest:
		return "malformed_request"
	case ErrCodeTransport:
		return "transport"
	case ErrCodeProtocol:
		return "protocol"
	case ErrCodeCodec:
		return "codec"
	case ErrCodeCookieParse:
		return "cookie_parse"
	case ErrCodeStatus:
		return "status"
	default:
		return "unknown"
	}
}

// Error is the single error type returned by clients, adapters, codecs and
// the cookie jar.
type Error struct {
	// Code classifies the error.
	Code ErrorCode
	// StatusCode is set for ErrCodeStatus.
	StatusCode int
	// Message describes the error.
	Message string
	// Timeout is set for transport errors caused by a deadline.
	Timeout bool
	// Canceled is set for transport errors caused by cancellation.
	Canceled bool
	// Retryable indicates whether repeating the exchange may succeed.
	Retryable bool
	// Body is the response body for ErrCodeStatus (may be nil).
	Body []byte
	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("httpclient: %s (HTTP %d): %s", e.Code, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("httpclient: %s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

func messageOf(msg string, err error) string {
	switch {
	case msg != "" && err != nil:
		return msg + ": " + err.Error()
	case msg != "":
		return msg
	case err != nil:
		return err.Error()
	default:
		return "unknown error"
	}
}

// NewMalformedRequestError creates a malformed-request error.
func NewMalformedRequestError(msg string, err error) *Error {
	return &Error{
		Code:    ErrCodeMalformedRequest,
		Message: messageOf(msg, err),
		Err:     err,
	}
}

// NewTransportError creates a transport error. Context errors are
// recognized and flagged as timeout or cancellation.
func NewTransportError(err error) *Error {
	e := &Error{
		Code:      ErrCodeTransport,
		Message:   messageOf("", err),
		Retryable: true,
		Err:       err,
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		e.Timeout = true
	case errors.Is(err, context.Canceled):
		e.Canceled = true
		e.Retryable = false
	}
	return e
}

// NewTimeoutError creates a transport error caused by a deadline.
func NewTimeoutError(err error) *Error {
	return &Error{
		Code:      ErrCodeTransport,
		Message:   messageOf("timed out", err),
		Timeout:   true,
		Retryable: true,
		Err:       err,
	}
}

// NewCanceledError creates a transport error caused by cancellation.
func NewCanceledError(err error) *Error {
	if err == nil {
		err = context.Canceled
	}
	return &Error{
		Code:     ErrCodeTransport,
		Message:  messageOf("canceled", err),
		Canceled: true,
		Err:      err,
	}
}

// NewProtocolError creates a protocol error.
func NewProtocolError(err error) *Error {
	return &Error{
		Code:    ErrCodeProtocol,
		Message: messageOf("", err),
		Err:     err,
	}
}

// NewCodecError creates a codec error.
func NewCodecError(msg string, err error) *Error {
	return &Error{
		Code:    ErrCodeCodec,
		Message: messageOf(msg, err),
		Err:     err,
	}
}

// NewCookieParseError creates a cookie parse error for the raw Set-Cookie
// line.
func NewCookieParseError(line string, err error) *Error {
	return &Error{
		Code:    ErrCodeCookieParse,
		Message: messageOf(fmt.Sprintf("set-cookie %q", line), err),
		Err:     err,
	}
}

// NewStatusError creates an error for a non-2xx response.
func NewStatusError(statusCode int, body []byte) *Error {
	return &Error{
		Code:       ErrCodeStatus,
		StatusCode: statusCode,
		Message:    fmt.Sprintf("HTTP %d", statusCode),
		Retryable:  statusCode == 429 || statusCode >= 500,
		Body:       body,
	}
}

func codeIs(err error, code ErrorCode) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == code
}

// IsMalformedRequest checks if an error is a malformed-request error.
func IsMalformedRequest(err error) bool { return codeIs(err, ErrCodeMalformedRequest) }

// IsTransport checks if an error is a transport error, including timeouts
// and cancellation.
func IsTransport(err error) bool { return codeIs(err, ErrCodeTransport) }

// IsProtocol checks if an error is a protocol error.
func IsProtocol(err error) bool { return codeIs(err, ErrCodeProtocol) }

// IsCodec checks if an error is a codec error.
func IsCodec(err error) bool { return codeIs(err, ErrCodeCodec) }

// IsCookieParse checks if an error is a cookie parse error.
func IsCookieParse(err error) bool { return codeIs(err, ErrCodeCookieParse) }

// IsStatus checks if an error was produced by Response.ErrorForStatus.
func IsStatus(err error) bool { return codeIs(err, ErrCodeStatus) }

// IsTimeout checks if an error is a transport timeout.
func IsTimeout(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Timeout
}

// IsCanceled checks if an error is a transport cancellation.
func IsCanceled(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Canceled
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Retryable
}

// StatusOf returns the HTTP status carried by a status error, or 0.
func StatusOf(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.StatusCode
	}
	return 0
}

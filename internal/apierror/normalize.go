package apierror

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
)

// errorBody is the structured error shape some backend failures carry.
// Fields found here are surfaced verbatim on the normalized Error.
type errorBody struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

// FromResponse normalizes an HTTP error response. If the body is a JSON
// object with message and/or code fields those win; otherwise the message
// falls back to the operation name and status code.
func FromResponse(op string, statusCode int, body []byte) *Error {
	e := &Error{
		StatusCode: statusCode,
		Message:    fmt.Sprintf("%s: status %d", op, statusCode),
		RawBody:    body,
	}
	var eb errorBody
	if len(body) > 0 && json.Unmarshal(body, &eb) == nil {
		if eb.Message != "" {
			e.Message = eb.Message
		}
		e.Code = eb.Code
	}
	return e
}

// FromTransport normalizes a failure where no HTTP response was received:
// timeouts, DNS and connection failures, aborted requests. Deadline expiry
// counts as a timeout; an aborted (canceled) request is a network error.
func FromTransport(op string, err error) *Error {
	e := &Error{
		Message: fmt.Sprintf("%s: %v", op, err),
		cause:   err,
	}
	if isTimeoutErr(err) {
		e.IsTimeout = true
	} else {
		e.IsNetworkError = true
	}
	return e
}

// FromDecode normalizes a malformed body on an otherwise successful
// response. The status code is kept so callers can still tell a 2xx with
// garbage apart from a transport failure.
func FromDecode(op string, statusCode int, err error) *Error {
	return &Error{
		StatusCode: statusCode,
		Message:    fmt.Sprintf("%s: decode response: %v", op, err),
		cause:      err,
	}
}

// FromValidation normalizes a client-side precondition failure. It carries no
// status code and is never retried.
func FromValidation(err error) *Error {
	return &Error{Message: err.Error(), cause: err}
}

func isTimeoutErr(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

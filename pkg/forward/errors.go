package forward

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// FailureStatus is returned when the upstream could not be reached.
const FailureStatus = http.StatusInternalServerError

// TransportError represents an upstream call that produced no usable
// response: connection refused, timeout, or an unreadable body.
type TransportError struct {
	// Method and Target identify the failed call. Target carries no query.
	Method string
	Target string

	// Timeout is set when the call exceeded its deadline.
	Timeout bool

	// Cause is the underlying error.
	Cause error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("upstream %s %s timed out: %v", e.Method, e.Target, e.Cause)
	}
	return fmt.Sprintf("upstream %s %s failed: %v", e.Method, e.Target, e.Cause)
}

// Unwrap returns the underlying error for error chain support.
func (e *TransportError) Unwrap() error {
	return e.Cause
}

// withoutURL drops the request URL from a *url.Error. The URL carries the
// outbound query credential and must not reach logs or failure bodies.
func withoutURL(err error) error {
	var uerr *url.Error
	if !errors.As(err, &uerr) {
		return err
	}
	return fmt.Errorf("%s: %w", uerr.Op, uerr.Err)
}

// IsTransportError reports whether err is or wraps a *TransportError.
func IsTransportError(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

type failureBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// FailureResponse converts err into the synthetic proxy_failed response. The
// message is never empty.
func FailureResponse(err error) *Response {
	msg := "upstream request failed"
	if err != nil {
		if s := strings.TrimSpace(err.Error()); s != "" {
			msg = s
		}
	}
	body, _ := json.Marshal(failureBody{Error: "proxy_failed", Message: msg})
	return &Response{
		StatusCode:  FailureStatus,
		ContentType: "application/json; charset=utf-8",
		Body:        body,
	}
}

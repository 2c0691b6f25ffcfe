package adapter

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
)

// maxErrorBody caps how much of a failed response body is kept.
const maxErrorBody = 8 << 10

// ModelCallError reports a failed call to the completion endpoint. Status is
// zero when no HTTP response was received.
type ModelCallError struct {
	Status    int
	Body      string
	Temporary bool
	Err       error
}

func (e *ModelCallError) Error() string {
	if e == nil {
		return "model call error"
	}
	switch {
	case e.Status != 0 && e.Body != "":
		return fmt.Sprintf("model call failed (status=%d): %s", e.Status, e.Body)
	case e.Status != 0:
		return fmt.Sprintf("model call failed (status=%d)", e.Status)
	case e.Err != nil:
		return fmt.Sprintf("model call failed: %v", e.Err)
	}
	return "model call failed"
}

func (e *ModelCallError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// IsTransient reports whether an error is likely to succeed on a later attempt.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var callErr *ModelCallError
	if errors.As(err, &callErr) {
		if callErr.Temporary {
			return true
		}
		if callErr.Status == http.StatusTooManyRequests || (callErr.Status >= 500 && callErr.Status <= 599) {
			return true
		}
	}
	return false
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var callErr *ModelCallError
	if errors.As(err, &callErr) {
		return callErr.Status
	}
	return 0
}

// responseCapture records the status and body of a failed HTTP exchange so
// the SDK's own error can be replaced with a ModelCallError. One capture
// serves exactly one call.
type responseCapture struct {
	status int
	body   string
}

func (c *responseCapture) middleware(req *http.Request, next func(*http.Request) (*http.Response, error)) (*http.Response, error) {
	res, err := next(req)
	if err != nil || res == nil {
		return res, err
	}
	if res.StatusCode < 400 {
		return res, nil
	}
	c.status = res.StatusCode
	data, readErr := io.ReadAll(io.LimitReader(res.Body, maxErrorBody))
	_ = res.Body.Close()
	if readErr == nil {
		c.body = string(bytes.TrimSpace(data))
	}
	res.Body = io.NopCloser(bytes.NewReader(data))
	return res, nil
}

// wrap converts an SDK error into a ModelCallError.
func (c *responseCapture) wrap(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return &ModelCallError{Err: err}
	}
	return &ModelCallError{Status: c.status, Body: c.body, Err: err}
}

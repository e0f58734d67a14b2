// Package transport executes Prepared requests.
//
// A Transport returns the raw response for any status it considers
// successful and a *Error for everything else: network failures carry
// StatusCode 0, protocol failures carry the HTTP status. The caller owns
// Response.Body and must close it.
package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/roach88/odyn/internal/request"
)

// Response is a successful transport response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       io.ReadCloser
}

// Transport sends one request. Implementations must be safe for concurrent
// use and must honour ctx cancellation.
type Transport interface {
	Do(ctx context.Context, req *request.Prepared) (*Response, error)
}

// Func adapts a plain function to Transport.
type Func func(ctx context.Context, req *request.Prepared) (*Response, error)

// Do calls f.
func (f Func) Do(ctx context.Context, req *request.Prepared) (*Response, error) {
	return f(ctx, req)
}

// Error is a failed request.
type Error struct {
	// StatusCode is the HTTP status, or 0 when no response was received.
	StatusCode int

	Method string
	URL    string

	// Body holds the start of the error response body, for diagnostics.
	Body string

	// Err is the underlying cause, if any.
	Err error
}

func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s", e.Method, e.URL)
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, ": status %d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether err is or wraps a *Error with status 404.
func IsNotFound(err error) bool {
	return StatusCode(err) == http.StatusNotFound
}

// StatusCode extracts the HTTP status from err, or 0.
func StatusCode(err error) int {
	var te *Error
	if errors.As(err, &te) {
		return te.StatusCode
	}
	return 0
}

// maxErrorBody bounds the snippet kept from an error response.
const maxErrorBody = 512

// StatusError converts a response with status >= 400 into a *Error and
// closes its body. It returns nil for other statuses and leaves the body
// open.
func StatusError(req *request.Prepared, status int, body io.ReadCloser) error {
	if status < http.StatusBadRequest {
		return nil
	}
	te := &Error{StatusCode: status, Method: req.Method, URL: req.URL}
	if body != nil {
		snippet, _ := io.ReadAll(io.LimitReader(body, maxErrorBody))
		te.Body = strings.TrimSpace(string(snippet))
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, body)
		_ = body.Close()
	}
	return te
}

type requestIDKey struct{}

// WithRequestID returns a context carrying id. HTTP sends it as X-Request-ID.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestID returns the id stored by WithRequestID.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

package transport

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/roach88/odyn/internal/request"
)

// DefaultTimeout bounds a whole request when no client is supplied.
const DefaultTimeout = 30 * time.Second

// HTTP is the net/http Transport.
type HTTP struct {
	client    *http.Client
	logger    *slog.Logger
	header    http.Header
	username  string
	password  string
	userAgent string
}

// HTTPOption configures an HTTP transport.
type HTTPOption func(*HTTP)

// WithClient replaces the underlying client.
func WithClient(c *http.Client) HTTPOption {
	return func(h *HTTP) {
		h.client = c
	}
}

// WithTimeout sets the client timeout.
func WithTimeout(d time.Duration) HTTPOption {
	return func(h *HTTP) {
		h.client.Timeout = d
	}
}

// WithLogger sets the logger for request diagnostics.
func WithLogger(l *slog.Logger) HTTPOption {
	return func(h *HTTP) {
		h.logger = l
	}
}

// WithHeader adds a header sent with every request. Request headers win.
func WithHeader(key, value string) HTTPOption {
	return func(h *HTTP) {
		h.header.Set(key, value)
	}
}

// WithBasicAuth sends credentials with every request.
func WithBasicAuth(username, password string) HTTPOption {
	return func(h *HTTP) {
		h.username = username
		h.password = password
	}
}

// WithUserAgent sets the User-Agent header. The default is "odyn".
func WithUserAgent(ua string) HTTPOption {
	return func(h *HTTP) {
		h.userAgent = ua
	}
}

// NewHTTP creates an HTTP transport.
func NewHTTP(opts ...HTTPOption) *HTTP {
	h := &HTTP{
		client:    &http.Client{Timeout: DefaultTimeout},
		logger:    slog.Default(),
		header:    http.Header{},
		userAgent: "odyn",
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Do sends req. Statuses >= 400 are returned as *Error.
func (h *HTTP) Do(ctx context.Context, req *request.Prepared) (*Response, error) {
	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}
	hreq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, body)
	if err != nil {
		return nil, &Error{Method: req.Method, URL: req.URL, Err: err}
	}

	for k, vs := range h.header {
		hreq.Header[k] = append([]string(nil), vs...)
	}
	for k, vs := range req.Header {
		hreq.Header[k] = append([]string(nil), vs...)
	}
	if hreq.Header.Get("User-Agent") == "" && h.userAgent != "" {
		hreq.Header.Set("User-Agent", h.userAgent)
	}
	if id := RequestID(ctx); id != "" {
		hreq.Header.Set("X-Request-ID", id)
	}
	if h.username != "" {
		hreq.SetBasicAuth(h.username, h.password)
	}

	start := time.Now()
	resp, err := h.client.Do(hreq)
	if err != nil {
		h.logger.Debug("http request failed",
			"request_id", RequestID(ctx),
			"method", req.Method,
			"url", req.URL,
			"error", err,
		)
		return nil, &Error{Method: req.Method, URL: req.URL, Err: err}
	}

	h.logger.Debug("http response",
		"request_id", RequestID(ctx),
		"method", req.Method,
		"url", req.URL,
		"status", resp.StatusCode,
		"duration", time.Since(start),
	)

	if err := StatusError(req, resp.StatusCode, resp.Body); err != nil {
		return nil, err
	}
	return &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: resp.Body}, nil
}

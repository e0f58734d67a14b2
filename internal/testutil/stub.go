package testutil

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/roach88/odyn/internal/request"
	"github.com/roach88/odyn/internal/transport"
)

// StubResponse is a canned reply.
//
// A zero Status means 200. When Err is set no response is produced and the
// transport fails with a status-less *transport.Error wrapping Err.
type StubResponse struct {
	Status int
	Body   string
	Header http.Header
	Err    error
}

// StubTransport is an in-memory transport.Transport.
//
// Replies are matched by "METHOD URL" route first, then taken from a FIFO
// queue. Statuses >= 400 are turned into *transport.Error exactly as the
// HTTP transport does. Every body handed out is tracked so tests can assert
// it was closed.
//
// Thread-safety: all methods are safe for concurrent use.
type StubTransport struct {
	mu     sync.Mutex
	routes map[string]StubResponse
	queue  []StubResponse
	calls  []*request.Prepared
	bodies []*TrackingBody
}

// NewStubTransport creates an empty stub.
func NewStubTransport() *StubTransport {
	return &StubTransport{routes: map[string]StubResponse{}}
}

// On registers a reply for every request with method and url.
func (s *StubTransport) On(method, url string, resp StubResponse) *StubTransport {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.routes[method+" "+url] = resp
	return s
}

// Enqueue adds replies used, in order, by requests that match no route.
func (s *StubTransport) Enqueue(resps ...StubResponse) *StubTransport {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queue = append(s.queue, resps...)
	return s
}

// Do implements transport.Transport.
func (s *StubTransport) Do(ctx context.Context, req *request.Prepared) (*transport.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, &transport.Error{Method: req.Method, URL: req.URL, Err: err}
	}

	s.mu.Lock()
	s.calls = append(s.calls, req)
	resp, ok := s.routes[req.Method+" "+req.URL]
	if !ok && len(s.queue) > 0 {
		resp, s.queue, ok = s.queue[0], s.queue[1:], true
	}
	var body *TrackingBody
	if ok && resp.Err == nil {
		body = NewTrackingBody(resp.Body)
		s.bodies = append(s.bodies, body)
	}
	s.mu.Unlock()

	if !ok {
		return nil, &transport.Error{
			Method: req.Method,
			URL:    req.URL,
			Err:    fmt.Errorf("stub: no reply for %s", req),
		}
	}
	if resp.Err != nil {
		return nil, &transport.Error{Method: req.Method, URL: req.URL, Err: resp.Err}
	}

	status := resp.Status
	if status == 0 {
		status = http.StatusOK
	}
	if err := transport.StatusError(req, status, body); err != nil {
		return nil, err
	}

	header := resp.Header.Clone()
	if header == nil {
		header = http.Header{}
	}
	return &transport.Response{StatusCode: status, Header: header, Body: body}, nil
}

// Calls returns the requests received so far.
func (s *StubTransport) Calls() []*request.Prepared {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*request.Prepared(nil), s.calls...)
}

// Bodies returns every body handed out.
func (s *StubTransport) Bodies() []*TrackingBody {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*TrackingBody(nil), s.bodies...)
}

// AllClosed reports whether every body handed out has been closed.
func (s *StubTransport) AllClosed() bool {
	for _, b := range s.Bodies() {
		if !b.Closed() {
			return false
		}
	}
	return true
}

// ErrConnectionRefused is a convenient network-level failure for stubs.
var ErrConnectionRefused = errors.New("connection refused")

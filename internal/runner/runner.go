// Package runner executes prepared requests and turns responses into
// records.
//
// Each operation drives one request through
//
//	NotSent -> Sent -> {Success, HTTPError, TransportError}
//
// and never retries. Status handling differs per operation:
//
//   - FindEntries, ExecuteFunction: 200 decodes the body; any other status
//     degrades to an empty result with Outcome HTTPError.
//   - GetEntry: as above, returning the first record.
//   - InsertEntry: any successful status decodes the first record when one
//     is required.
//   - UpdateEntry, DeleteEntry: report true iff the status is 200.
//
// Transport failures are returned as errors, except that a 404 with
// Settings.IgnoreResourceNotFound becomes Outcome NotFoundSuppressed for
// FindEntries (one nil record) and GetEntry (nil entry).
package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/roach88/odyn/internal/feed"
	"github.com/roach88/odyn/internal/request"
	"github.com/roach88/odyn/internal/store"
	"github.com/roach88/odyn/internal/transport"
)

// ErrNoEntry is returned by GetEntry when a 200 response carries no entry.
var ErrNoEntry = errors.New("response contains no entry")

// Settings are the behavioural switches of a Runner.
type Settings struct {
	// IgnoreResourceNotFound suppresses 404 transport failures on
	// FindEntries and GetEntry.
	IgnoreResourceNotFound bool

	// IncludeResourceType adds each entry's type name under feed.TypeKey.
	IncludeResourceType bool

	// RecordElement selects plain XML decoding; see feed.Options.
	RecordElement string
}

// Journal records finished requests.
type Journal interface {
	Record(ctx context.Context, req store.Request) (store.Request, error)
}

// FindOptions modifies FindEntries.
type FindOptions struct {
	// ScalarResult decodes only the first scalar value.
	ScalarResult bool

	// SetTotalCount exposes the payload's count marker via TotalCount.
	SetTotalCount bool
}

// Runner executes requests against a Transport.
//
// Thread-safety: a Runner holds no per-request state and is safe for
// concurrent use.
type Runner struct {
	transport transport.Transport
	settings  Settings
	decoder   *feed.Decoder
	logger    *slog.Logger
	journal   Journal
	ids       IDGenerator
	now       func() time.Time
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the request logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(r *Runner) {
		r.logger = l
	}
}

// WithJournal records every request in j. Journal failures are logged and
// never fail the operation.
func WithJournal(j Journal) Option {
	return func(r *Runner) {
		r.journal = j
	}
}

// WithIDGenerator replaces the UUIDv7 request id generator.
func WithIDGenerator(g IDGenerator) Option {
	return func(r *Runner) {
		r.ids = g
	}
}

// WithDecoder replaces the decoder derived from Settings.
func WithDecoder(d *feed.Decoder) Option {
	return func(r *Runner) {
		r.decoder = d
	}
}

// WithNow replaces the wall clock used for journal timings.
func WithNow(now func() time.Time) Option {
	return func(r *Runner) {
		r.now = now
	}
}

// New creates a Runner.
func New(t transport.Transport, settings Settings, opts ...Option) *Runner {
	r := &Runner{
		transport: t,
		settings:  settings,
		logger:    slog.Default(),
		ids:       UUIDv7Generator{},
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.decoder == nil {
		r.decoder = feed.NewDecoder(feed.Options{
			IncludeResourceType: settings.IncludeResourceType,
			RecordElement:       settings.RecordElement,
		})
	}
	return r
}

// Settings returns the runner's settings.
func (r *Runner) Settings() Settings {
	return r.settings
}

// call is one request in flight.
type call struct {
	id        string
	operation string
	req       *request.Prepared
	state     State
	outcome   Outcome
	status    int
	records   int
	err       error
	start     time.Time
}

// send moves a call from NotSent to Sent and then to a terminal state.
// On success the caller owns resp.Body.
func (r *Runner) send(ctx context.Context, operation string, req *request.Prepared) (*call, *transport.Response, error) {
	c := &call{
		id:        r.ids.Generate(),
		operation: operation,
		req:       req,
		state:     StateNotSent,
		start:     r.now(),
	}
	if req == nil {
		c.err = fmt.Errorf("%s: nil request", operation)
		return c, nil, c.err
	}

	ctx = transport.WithRequestID(ctx, c.id)
	c.state = StateSent
	r.logger.Debug("sending request",
		"request_id", c.id,
		"operation", operation,
		"method", req.Method,
		"url", req.URL,
	)

	resp, err := r.transport.Do(ctx, req)
	if err != nil {
		c.state = StateTransportError
		c.status = transport.StatusCode(err)
		c.err = err
		return c, nil, err
	}

	c.status = resp.StatusCode
	if resp.StatusCode == http.StatusOK {
		c.state = StateSuccess
	} else {
		c.state = StateHTTPError
		c.outcome = OutcomeHTTPError
	}
	return c, resp, nil
}

// finish logs and journals a call that reached a terminal state.
func (r *Runner) finish(ctx context.Context, c *call) {
	duration := r.now().Sub(c.start)

	attrs := []any{
		"request_id", c.id,
		"operation", c.operation,
		"state", c.state.String(),
		"outcome", c.outcome.String(),
		"status", c.status,
		"duration", duration,
	}
	if c.req != nil {
		attrs = append(attrs, "method", c.req.Method, "url", c.req.URL)
	}
	switch {
	case c.err != nil:
		r.logger.Warn("request failed", append(attrs, "error", c.err)...)
	case c.state == StateHTTPError:
		r.logger.Info("request degraded to empty result", attrs...)
	default:
		r.logger.Debug("request completed", attrs...)
	}

	if r.journal == nil {
		return
	}
	row := store.Request{
		ID:         c.id,
		Operation:  c.operation,
		State:      c.state.String(),
		StatusCode: c.status,
		Records:    c.records,
		StartedAt:  c.start,
		Duration:   duration,
	}
	if c.err == nil {
		row.Outcome = c.outcome.String()
	} else {
		row.Error = c.err.Error()
	}
	if c.req != nil {
		row.Method = c.req.Method
		row.URL = c.req.URL
	}
	// Journal writes must not be cancelled with the caller's request.
	if _, err := r.journal.Record(context.WithoutCancel(ctx), row); err != nil {
		r.logger.Error("failed to journal request", "request_id", c.id, "error", err)
	}
}

// suppress reports whether err is a not-found failure that the settings
// allow read operations to swallow.
func (r *Runner) suppress(err error) bool {
	return r.settings.IgnoreResourceNotFound && transport.IsNotFound(err)
}

func (c *call) httpError() *HTTPError {
	if c.state != StateHTTPError {
		return nil
	}
	return &HTTPError{StatusCode: c.status, Method: c.req.Method, URL: c.req.URL}
}

// FindEntries executes a query and returns its records lazily.
func (r *Runner) FindEntries(ctx context.Context, req *request.Prepared, opts FindOptions) (*Result, error) {
	c, resp, err := r.send(ctx, "find", req)
	if err != nil {
		if r.suppress(err) {
			c.err = nil
			c.outcome = OutcomeNotFoundSuppressed
			c.records = 1
			r.finish(ctx, c)
			return r.result(c, feed.Static(nil), false), nil
		}
		r.finish(ctx, c)
		return nil, fmt.Errorf("find entries: %w", err)
	}

	if c.state != StateSuccess {
		closeBody(resp.Body)
		r.finish(ctx, c)
		return r.result(c, feed.Empty(), false), nil
	}

	var f *feed.Feed
	if opts.ScalarResult {
		f = r.decoder.DecodeScalar(ctx, resp.Body)
	} else {
		f = r.decoder.Decode(ctx, resp.Body)
	}
	r.finish(ctx, c)
	return r.result(c, f, opts.SetTotalCount), nil
}

// GetEntry fetches a single entry.
func (r *Runner) GetEntry(ctx context.Context, req *request.Prepared) (*EntryResult, error) {
	c, resp, err := r.send(ctx, "get", req)
	if err != nil {
		if r.suppress(err) {
			c.err = nil
			c.outcome = OutcomeNotFoundSuppressed
			r.finish(ctx, c)
			return r.entryResult(c, nil), nil
		}
		r.finish(ctx, c)
		return nil, fmt.Errorf("get entry: %w", err)
	}

	if c.state != StateSuccess {
		closeBody(resp.Body)
		r.finish(ctx, c)
		return r.entryResult(c, nil), nil
	}

	entry, ok, err := r.decoder.Decode(ctx, resp.Body).First()
	if err == nil && !ok {
		err = ErrNoEntry
	}
	if err != nil {
		c.err = err
		r.finish(ctx, c)
		return nil, fmt.Errorf("get entry: %w", err)
	}
	c.records = 1
	r.finish(ctx, c)
	return r.entryResult(c, entry), nil
}

// InsertEntry creates an entry. When resultRequired is set the created entry
// echoed by the server is returned; an empty body yields nil.
func (r *Runner) InsertEntry(ctx context.Context, req *request.Prepared, resultRequired bool) (*feed.PropertyMap, error) {
	c, resp, err := r.send(ctx, "insert", req)
	if err != nil {
		r.finish(ctx, c)
		return nil, fmt.Errorf("insert entry: %w", err)
	}
	// Any status below 400 is a successful insert.
	c.state = StateSuccess
	c.outcome = OutcomeSuccess

	if !resultRequired {
		closeBody(resp.Body)
		r.finish(ctx, c)
		return nil, nil
	}

	entry, ok, err := r.decoder.Decode(ctx, resp.Body).First()
	if err != nil {
		c.err = err
		r.finish(ctx, c)
		return nil, fmt.Errorf("insert entry: %w", err)
	}
	if ok {
		c.records = 1
	}
	r.finish(ctx, c)
	return entry, nil
}

// UpdateEntry reports whether the server answered 200.
func (r *Runner) UpdateEntry(ctx context.Context, req *request.Prepared) (bool, error) {
	return r.write(ctx, "update", req)
}

// DeleteEntry reports whether the server answered 200.
func (r *Runner) DeleteEntry(ctx context.Context, req *request.Prepared) (bool, error) {
	return r.write(ctx, "delete", req)
}

func (r *Runner) write(ctx context.Context, operation string, req *request.Prepared) (bool, error) {
	c, resp, err := r.send(ctx, operation, req)
	if err != nil {
		r.finish(ctx, c)
		return false, fmt.Errorf("%s entry: %w", operation, err)
	}
	closeBody(resp.Body)
	r.finish(ctx, c)
	return c.state == StateSuccess, nil
}

// ExecuteFunction calls a service operation.
func (r *Runner) ExecuteFunction(ctx context.Context, req *request.Prepared) (*Result, error) {
	c, resp, err := r.send(ctx, "function", req)
	if err != nil {
		r.finish(ctx, c)
		return nil, fmt.Errorf("execute function: %w", err)
	}

	if c.state != StateSuccess {
		closeBody(resp.Body)
		r.finish(ctx, c)
		return r.result(c, feed.Empty(), false), nil
	}

	f := r.decoder.DecodeFunctionResult(ctx, resp.Body)
	r.finish(ctx, c)
	return r.result(c, f, false), nil
}

func (r *Runner) result(c *call, f *feed.Feed, withCount bool) *Result {
	return &Result{
		ID:         c.id,
		Outcome:    c.outcome,
		State:      c.state,
		StatusCode: c.status,
		feed:       f,
		withCount:  withCount,
		httpErr:    c.httpError(),
	}
}

func (r *Runner) entryResult(c *call, entry *feed.PropertyMap) *EntryResult {
	return &EntryResult{
		ID:         c.id,
		Outcome:    c.outcome,
		State:      c.state,
		StatusCode: c.status,
		Entry:      entry,
		httpErr:    c.httpError(),
	}
}

func closeBody(body io.ReadCloser) {
	if body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, body)
	_ = body.Close()
}

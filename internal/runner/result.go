package runner

import (
	"fmt"
	"iter"
	"net/http"

	"github.com/roach88/odyn/internal/feed"
)

// State is where a request is in its lifecycle.
type State int

const (
	StateNotSent State = iota
	StateSent
	StateSuccess
	StateHTTPError
	StateTransportError
)

var stateNames = map[State]string{
	StateNotSent:        "not_sent",
	StateSent:           "sent",
	StateSuccess:        "success",
	StateHTTPError:      "http_error",
	StateTransportError: "transport_error",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == StateSuccess || s == StateHTTPError || s == StateTransportError
}

// Outcome distinguishes the three results a read operation can return
// without an error.
type Outcome int

const (
	// OutcomeSuccess: status 200, records decoded from the body.
	OutcomeSuccess Outcome = iota
	// OutcomeHTTPError: a non-200 status; the result is empty and
	// HTTPError describes the status.
	OutcomeHTTPError
	// OutcomeNotFoundSuppressed: a 404 transport failure converted into a
	// single nil record because IgnoreResourceNotFound is set.
	OutcomeNotFoundSuppressed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeHTTPError:
		return "http_error"
	case OutcomeNotFoundSuppressed:
		return "not_found_suppressed"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// HTTPError describes a non-200 response that was degraded to an empty
// result. It is never returned as an error by read operations.
type HTTPError struct {
	StatusCode int
	Method     string
	URL        string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%s %s: unexpected status %d %s", e.Method, e.URL, e.StatusCode, http.StatusText(e.StatusCode))
}

// Result is the outcome of FindEntries or ExecuteFunction.
//
// Records are lazy and single-pass; the caller must either drain them or call
// Close to release the response.
type Result struct {
	ID         string
	Outcome    Outcome
	State      State
	StatusCode int

	feed      *feed.Feed
	withCount bool
	httpErr   *HTTPError
}

// Records returns the record sequence. A suppressed not-found yields exactly
// one nil record.
func (r *Result) Records() iter.Seq2[*feed.PropertyMap, error] {
	return r.feed.Records()
}

// Collect drains the records into a slice.
func (r *Result) Collect() ([]*feed.PropertyMap, error) {
	return r.feed.Collect()
}

// TotalCount is the server-reported count when the operation asked for one,
// and 0 otherwise. The count is read from the payload as records are
// decoded; it is final once the records are exhausted.
func (r *Result) TotalCount() int64 {
	if !r.withCount {
		return 0
	}
	return r.feed.TotalCount()
}

// HTTPError returns the degraded status, or nil.
func (r *Result) HTTPError() *HTTPError {
	return r.httpErr
}

// Suppressed reports whether a not-found failure was converted into a nil
// record.
func (r *Result) Suppressed() bool {
	return r.Outcome == OutcomeNotFoundSuppressed
}

// Close releases the response body without reading further.
func (r *Result) Close() error {
	return r.feed.Close()
}

// EntryResult is the outcome of GetEntry.
type EntryResult struct {
	ID         string
	Outcome    Outcome
	State      State
	StatusCode int

	// Entry is the decoded entry; nil when suppressed or degraded.
	Entry *feed.PropertyMap

	httpErr *HTTPError
}

// HTTPError returns the degraded status, or nil.
func (r *EntryResult) HTTPError() *HTTPError {
	return r.httpErr
}

// Suppressed reports whether a not-found failure was converted into a nil
// entry.
func (r *EntryResult) Suppressed() bool {
	return r.Outcome == OutcomeNotFoundSuppressed
}

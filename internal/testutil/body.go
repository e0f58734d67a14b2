package testutil

import (
	"errors"
	"io"
	"strings"
	"sync/atomic"
)

// TrackingBody is an io.ReadCloser that records how much was read and
// whether it was closed.
type TrackingBody struct {
	r      io.Reader
	read   atomic.Int64
	closed atomic.Bool
}

// NewTrackingBody wraps s.
func NewTrackingBody(s string) *TrackingBody {
	return &TrackingBody{r: strings.NewReader(s)}
}

// NewTrackingReader wraps an arbitrary reader.
func NewTrackingReader(r io.Reader) *TrackingBody {
	return &TrackingBody{r: r}
}

func (b *TrackingBody) Read(p []byte) (int, error) {
	if b.closed.Load() {
		return 0, errors.New("read on closed body")
	}
	n, err := b.r.Read(p)
	b.read.Add(int64(n))
	return n, err
}

func (b *TrackingBody) Close() error {
	b.closed.Store(true)
	return nil
}

// Closed reports whether Close was called.
func (b *TrackingBody) Closed() bool {
	return b.closed.Load()
}

// BytesRead returns the number of bytes consumed so far.
func (b *TrackingBody) BytesRead() int64 {
	return b.read.Load()
}

// ErrInjected is returned by FailAfter readers.
var ErrInjected = errors.New("injected read failure")

// FailAfter returns a reader that yields prefix and then fails with
// ErrInjected instead of reaching EOF.
func FailAfter(prefix string) io.Reader {
	return io.MultiReader(strings.NewReader(prefix), failingReader{})
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) {
	return 0, ErrInjected
}

// Package feed decodes response payloads into lazy sequences of property
// maps.
//
// Supported payloads:
//   - Atom XML feeds and entries (m:properties, inline expanded links, m:count)
//   - plain record-oriented XML (records are descendants with a given name)
//   - JSON: light ("value", "@odata.count") and verbose ("d", "results",
//     "__count", "__metadata")
//   - plain text scalars (scalar mode only)
//
// STREAMING:
//
// A Feed never buffers the payload. Records are produced while the body is
// read, one complete PropertyMap at a time. The sequence is single-pass and
// cannot be restarted; ranging over Records a second time yields
// ErrFeedConsumed. The body is closed on every exit path: exhaustion, early
// break, decode error and context cancellation.
package feed

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"strings"
	"sync"
	"sync/atomic"
	"unicode"
)

// ErrFeedConsumed is yielded when a Feed is enumerated a second time.
var ErrFeedConsumed = errors.New("feed already consumed")

// errStop unwinds a walker after the consumer stopped ranging.
var errStop = errors.New("stop")

// Mode selects how a payload is interpreted.
type Mode int

const (
	// ModeEntries yields one record per entry.
	ModeEntries Mode = iota
	// ModeScalar yields a single record holding the first scalar value
	// under ResultKey, then stops reading.
	ModeScalar
	// ModeFunction yields entries and complex values as records and wraps
	// primitive results under ResultKey.
	ModeFunction
)

// Options configures decoding.
type Options struct {
	// IncludeResourceType adds the entry's type name under TypeKey.
	IncludeResourceType bool

	// RecordElement switches XML decoding to plain mode: every element with
	// this local name is a record. Empty means protocol (Atom) mode.
	RecordElement string
}

// Decoder creates Feeds. It is stateless and safe for concurrent use.
type Decoder struct {
	opts Options
}

// NewDecoder creates a Decoder.
func NewDecoder(opts Options) *Decoder {
	return &Decoder{opts: opts}
}

// Decode returns a lazy feed of entries read from body.
func (d *Decoder) Decode(ctx context.Context, body io.ReadCloser) *Feed {
	return d.newFeed(ctx, body, ModeEntries)
}

// DecodeScalar returns a feed yielding the first scalar value in body.
func (d *Decoder) DecodeScalar(ctx context.Context, body io.ReadCloser) *Feed {
	return d.newFeed(ctx, body, ModeScalar)
}

// DecodeFunctionResult returns a feed of function-call results.
func (d *Decoder) DecodeFunctionResult(ctx context.Context, body io.ReadCloser) *Feed {
	return d.newFeed(ctx, body, ModeFunction)
}

func (d *Decoder) newFeed(ctx context.Context, body io.ReadCloser, mode Mode) *Feed {
	if ctx == nil {
		ctx = context.Background()
	}
	return &Feed{ctx: ctx, body: body, mode: mode, opts: d.opts}
}

// Feed is a lazy, single-pass sequence of records.
type Feed struct {
	ctx  context.Context
	body io.ReadCloser
	mode Mode
	opts Options

	// static feeds carry fixed records instead of a body.
	static   []*PropertyMap
	isStatic bool

	count     atomic.Int64
	used      atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

// Static returns an already-materialised feed. It is still single-pass.
// Nil records are allowed and are yielded as nil.
func Static(records ...*PropertyMap) *Feed {
	return &Feed{ctx: context.Background(), static: records, isStatic: true}
}

// Empty returns a feed with no records.
func Empty() *Feed {
	return Static()
}

// TotalCount returns the count marker read from the payload so far, or 0 if
// none has been seen. A zero is ambiguous: the payload may carry no marker or
// a marker of zero. Markers precede records in the protocol formats, so the
// value is available once the first record has been yielded, and is final
// once the sequence is exhausted.
func (f *Feed) TotalCount() int64 {
	return f.count.Load()
}

// Close releases the underlying body. Safe to call more than once.
func (f *Feed) Close() error {
	f.closeOnce.Do(func() {
		if f.body != nil {
			f.closeErr = f.body.Close()
		}
	})
	return f.closeErr
}

// Records returns the record sequence. Each yielded pair carries either a
// record or an error; after an error the sequence ends.
func (f *Feed) Records() iter.Seq2[*PropertyMap, error] {
	return func(yield func(*PropertyMap, error) bool) {
		if !f.used.CompareAndSwap(false, true) {
			yield(nil, ErrFeedConsumed)
			return
		}
		defer f.Close()

		if f.isStatic {
			for _, rec := range f.static {
				if !yield(rec, nil) {
					return
				}
			}
			return
		}

		emit := func(rec *PropertyMap) error {
			if err := f.ctx.Err(); err != nil {
				return err
			}
			if !yield(rec, nil) {
				return errStop
			}
			return nil
		}

		if err := f.walk(emit); err != nil && !errors.Is(err, errStop) {
			yield(nil, err)
		}
	}
}

// Collect drains the feed into a slice.
func (f *Feed) Collect() ([]*PropertyMap, error) {
	var out []*PropertyMap
	for rec, err := range f.Records() {
		if err != nil {
			return out, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// First returns the first record and releases the feed.
// ok is false when the feed holds no records.
func (f *Feed) First() (rec *PropertyMap, ok bool, err error) {
	for r, err := range f.Records() {
		if err != nil {
			return nil, false, err
		}
		return r, true, nil
	}
	return nil, false, nil
}

// walk sniffs the payload format and dispatches to the matching walker.
func (f *Feed) walk(emit func(*PropertyMap) error) error {
	if f.body == nil {
		return nil
	}
	br := bufio.NewReader(f.body)

	first, err := peekSignificant(br)
	if errors.Is(err, io.EOF) {
		// Empty payload: no records.
		return nil
	}
	if err != nil {
		return &DecodeError{Format: "payload", Err: err}
	}

	switch {
	case first == '<':
		return newXMLWalker(f, br).walk(emit)
	case first == '{' || first == '[':
		return newJSONWalker(f, br).walk(emit)
	case f.mode == ModeScalar || f.mode == ModeFunction:
		return f.walkText(br, emit)
	default:
		return &DecodeError{Format: "payload", Err: fmt.Errorf("unrecognised payload starting with %q", first)}
	}
}

// walkText handles raw scalar bodies such as a $count response.
func (f *Feed) walkText(r io.Reader, emit func(*PropertyMap) error) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return &DecodeError{Format: "text", Offset: int64(len(data)), Err: err}
	}
	text := strings.TrimSpace(string(data))
	if strings.HasPrefix(text, `"`) {
		var s string
		if err := json.Unmarshal([]byte(text), &s); err != nil {
			return &DecodeError{Format: "json", Err: err}
		}
		return emit(resultRecord(s))
	}
	return emit(resultRecord(parseScalarText(text)))
}

// peekSignificant skips whitespace and a byte-order mark and returns the
// first significant rune without consuming it.
func peekSignificant(br *bufio.Reader) (rune, error) {
	for {
		r, _, err := br.ReadRune()
		if err != nil {
			return 0, err
		}
		if r == '\uFEFF' || unicode.IsSpace(r) {
			continue
		}
		if err := br.UnreadRune(); err != nil {
			return 0, err
		}
		return r, nil
	}
}

// setCount records a count marker.
func (f *Feed) setCount(n int64) {
	f.count.Store(n)
}

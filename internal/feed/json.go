package feed

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// jsonWalker reads JSON payloads token by token so that entries inside a
// large array are produced one at a time.
type jsonWalker struct {
	feed *Feed
	dec  *json.Decoder

	// entity is set once a context annotation names a single entity; its
	// "value" and "results" keys are then ordinary properties.
	entity bool
}

func newJSONWalker(f *Feed, r io.Reader) *jsonWalker {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	return &jsonWalker{feed: f, dec: dec}
}

func (w *jsonWalker) walk(emit func(*PropertyMap) error) error {
	if w.feed.mode == ModeScalar {
		v, found, err := w.findScalar()
		if err != nil || !found {
			return err
		}
		return emit(resultRecord(v))
	}

	tok, err := w.next()
	if err != nil {
		return err
	}
	switch tok {
	case json.Delim('['):
		err = w.streamArray(emit)
	case json.Delim('{'):
		err = w.streamObject(emit)
	default:
		return w.decodeError(fmt.Errorf("unexpected token %v", tok))
	}
	if err != nil {
		return err
	}
	return w.expectEOF()
}

// expectEOF fails unless the top-level value was the whole document.
func (w *jsonWalker) expectEOF() error {
	tok, err := w.dec.Token()
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err != nil {
		return w.decodeError(err)
	}
	return w.decodeError(fmt.Errorf("unexpected data after top-level value: %v", tok))
}

// next reads a token. Running out of input is always an error here: callers
// only ask for a token when the document is incomplete without one.
func (w *jsonWalker) next() (json.Token, error) {
	if err := w.feed.ctx.Err(); err != nil {
		return nil, err
	}
	tok, err := w.dec.Token()
	if errors.Is(err, io.EOF) {
		return nil, w.decodeError(io.ErrUnexpectedEOF)
	}
	if err != nil {
		return nil, w.decodeError(err)
	}
	return tok, nil
}

func (w *jsonWalker) decodeError(err error) error {
	return &DecodeError{Format: "json", Offset: w.dec.InputOffset(), Err: err}
}

// streamArray emits each element of an array whose '[' was consumed.
func (w *jsonWalker) streamArray(emit func(*PropertyMap) error) error {
	for w.dec.More() {
		v, err := w.readValue()
		if err != nil {
			return err
		}
		rec, ok := v.(*PropertyMap)
		if !ok {
			rec = resultRecord(v)
		}
		if err := emit(rec); err != nil {
			return err
		}
	}
	_, err := w.next()
	return err
}

// streamObject walks a wrapper object whose '{' was consumed. Wrapper keys
// ("d", "value", "results") are streamed; count markers are recorded. The
// first data key turns the object into a single entry.
func (w *jsonWalker) streamObject(emit func(*PropertyMap) error) error {
	var entry *entryBuilder
	pendingType := ""

	for w.dec.More() {
		key, err := w.readKey()
		if err != nil {
			return err
		}

		if entry == nil {
			handled, err := w.wrapperKey(key, emit, &pendingType)
			if err != nil {
				return err
			}
			if handled {
				continue
			}
			entry = newEntryBuilder(w.feed.opts)
			entry.typ = pendingType
		}

		v, err := w.readValue()
		if err != nil {
			return err
		}
		entry.add(key, v)
	}
	if _, err := w.next(); err != nil {
		return err
	}
	if entry != nil {
		return emit(entry.finish())
	}
	return nil
}

// wrapperKey handles a key of a wrapper object. It reports false when key is
// entry data that the caller must read.
func (w *jsonWalker) wrapperKey(key string, emit func(*PropertyMap) error, pendingType *string) (bool, error) {
	switch {
	case key == "d" || ((key == "value" || key == "results") && !w.entity):
		tok, err := w.next()
		if err != nil {
			return true, err
		}
		switch tok {
		case json.Delim('['):
			return true, w.streamArray(emit)
		case json.Delim('{'):
			return true, w.streamObject(emit)
		}
		v, err := w.scalarToken(tok)
		if err != nil {
			return true, err
		}
		return true, emit(resultRecord(v))

	case isCountKey(key):
		v, err := w.readValue()
		if err != nil {
			return true, err
		}
		if n, ok := countValue(v); ok {
			w.feed.setCount(n)
		}
		return true, nil

	case key == "__metadata":
		v, err := w.readValue()
		if err != nil {
			return true, err
		}
		if meta, ok := v.(*PropertyMap); ok {
			*pendingType = meta.Text("type")
		}
		return true, nil

	case isTypeKey(key):
		v, err := w.readValue()
		if err != nil {
			return true, err
		}
		*pendingType, _ = v.(string)
		return true, nil

	case isContextKey(key):
		v, err := w.readValue()
		if err != nil {
			return true, err
		}
		if ctx, ok := v.(string); ok && isEntityContext(ctx) {
			w.entity = true
		}
		return true, nil

	case isAnnotation(key) || key == "__next":
		_, err := w.readValue()
		return true, err
	}
	return false, nil
}

func (w *jsonWalker) readKey() (string, error) {
	tok, err := w.next()
	if err != nil {
		return "", err
	}
	key, ok := tok.(string)
	if !ok {
		return "", w.decodeError(fmt.Errorf("expected object key, got %v", tok))
	}
	return key, nil
}

// readValue reads one complete value. Objects are converted as entries.
func (w *jsonWalker) readValue() (any, error) {
	tok, err := w.next()
	if err != nil {
		return nil, err
	}
	return w.valueFrom(tok)
}

func (w *jsonWalker) valueFrom(tok json.Token) (any, error) {
	switch tok {
	case json.Delim('{'):
		b := newEntryBuilder(w.feed.opts)
		for w.dec.More() {
			key, err := w.readKey()
			if err != nil {
				return nil, err
			}
			v, err := w.readValue()
			if err != nil {
				return nil, err
			}
			b.add(key, v)
		}
		if _, err := w.next(); err != nil {
			return nil, err
		}
		return b.finish(), nil

	case json.Delim('['):
		var items []any
		allMaps := true
		for w.dec.More() {
			v, err := w.readValue()
			if err != nil {
				return nil, err
			}
			if _, ok := v.(*PropertyMap); !ok {
				allMaps = false
			}
			items = append(items, v)
		}
		if _, err := w.next(); err != nil {
			return nil, err
		}
		if allMaps && len(items) > 0 {
			maps := make([]*PropertyMap, len(items))
			for i, item := range items {
				maps[i] = item.(*PropertyMap)
			}
			return maps, nil
		}
		if items == nil {
			items = []any{}
		}
		return items, nil
	}
	return w.scalarToken(tok)
}

func (w *jsonWalker) scalarToken(tok json.Token) (any, error) {
	switch t := tok.(type) {
	case nil:
		return nil, nil
	case bool:
		return t, nil
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return n, nil
		}
		f, err := t.Float64()
		if err != nil {
			return nil, w.decodeError(err)
		}
		return f, nil
	case string:
		if ts, ok := parseJSONDate(t); ok {
			return ts, nil
		}
		return t, nil
	}
	return nil, w.decodeError(fmt.Errorf("unexpected token %v", tok))
}

// findScalar descends to the first primitive value, skipping annotation and
// metadata keys, and stops reading there.
func (w *jsonWalker) findScalar() (any, bool, error) {
	tok, err := w.next()
	if err != nil {
		return nil, false, err
	}
	return w.scalarFrom(tok)
}

func (w *jsonWalker) scalarFrom(tok json.Token) (any, bool, error) {
	switch tok {
	case json.Delim('{'):
		for w.dec.More() {
			key, err := w.readKey()
			if err != nil {
				return nil, false, err
			}
			if key == "__metadata" || isAnnotation(key) || isTypeKey(key) || isCountKey(key) || key == "__next" {
				if _, err := w.readValue(); err != nil {
					return nil, false, err
				}
				continue
			}
			v, found, err := w.findScalar()
			if err != nil || found {
				return v, found, err
			}
		}
		_, err := w.next()
		return nil, false, err

	case json.Delim('['):
		for w.dec.More() {
			v, found, err := w.findScalar()
			if err != nil || found {
				return v, found, err
			}
		}
		_, err := w.next()
		return nil, false, err
	}
	v, err := w.scalarToken(tok)
	return v, err == nil, err
}

// entryBuilder applies entry conventions while an object is read:
// annotations are dropped, deferred links are dropped, nested
// {"results": [...]} collections are unwrapped, and the resource type is
// captured.
type entryBuilder struct {
	opts Options
	rec  *PropertyMap
	typ  string
}

func newEntryBuilder(opts Options) *entryBuilder {
	return &entryBuilder{opts: opts, rec: NewPropertyMap()}
}

func (b *entryBuilder) add(key string, v any) {
	switch {
	case key == "__metadata":
		if meta, ok := v.(*PropertyMap); ok {
			if t := meta.Text("type"); t != "" {
				b.typ = t
			}
		}
		return
	case isTypeKey(key):
		if t, ok := v.(string); ok {
			b.typ = t
		}
		return
	case isAnnotation(key):
		return
	}

	if nested, ok := v.(*PropertyMap); ok {
		if _, deferred := nested.Get("__deferred"); deferred && nested.Len() == 1 {
			return
		}
		if results, ok := nested.Get("results"); ok {
			switch list := results.(type) {
			case []*PropertyMap:
				v = list
			case []any:
				if len(list) == 0 {
					v = []*PropertyMap{}
				} else {
					v = list
				}
			}
		}
	}
	b.rec.Set(key, v)
}

func (b *entryBuilder) finish() *PropertyMap {
	if b.opts.IncludeResourceType && b.typ != "" {
		b.rec.Set(TypeKey, typeName(b.typ))
	}
	return b.rec
}

func isCountKey(key string) bool {
	return key == "@odata.count" || key == "odata.count" || key == "__count"
}

func isContextKey(key string) bool {
	return key == "@odata.context" || key == "odata.metadata"
}

// isEntityContext reports a context URL that addresses one entity rather
// than a collection or a primitive result.
func isEntityContext(ctx string) bool {
	return strings.HasSuffix(ctx, "/$entity") || strings.HasSuffix(ctx, "/@Element")
}

func isTypeKey(key string) bool {
	return key == "@odata.type" || key == "odata.type"
}

// isAnnotation reports instance and property annotations such as
// "@odata.context", "odata.metadata" or "Orders@odata.navigationLink".
func isAnnotation(key string) bool {
	return strings.HasPrefix(key, "odata.") || strings.Contains(key, "@")
}

func countValue(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case float64:
		return int64(n), true
	case string:
		c, err := strconv.ParseInt(n, 10, 64)
		return c, err == nil
	}
	return 0, false
}

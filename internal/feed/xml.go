package feed

import (
	"encoding/xml"
	"errors"
	"io"
	"strconv"
	"strings"
)

// xmlNode is one element read into memory. Only a single record's subtree is
// ever materialised at a time.
type xmlNode struct {
	name     xml.Name
	attrs    []xml.Attr
	children []*xmlNode
	text     strings.Builder
}

// metaAttr returns a namespaced attribute by local name. Unqualified attributes
// are ignored so Atom's link@type does not shadow m:type.
func (n *xmlNode) metaAttr(local string) (string, bool) {
	for _, a := range n.attrs {
		if a.Name.Local == local && a.Name.Space != "" {
			return a.Value, true
		}
	}
	return "", false
}

func (n *xmlNode) plainAttr(local string) string {
	for _, a := range n.attrs {
		if a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}

func (n *xmlNode) child(local string) *xmlNode {
	for _, c := range n.children {
		if c.name.Local == local {
			return c
		}
	}
	return nil
}

func (n *xmlNode) isNull() bool {
	v, ok := n.metaAttr("null")
	return ok && v == "true"
}

type xmlWalker struct {
	feed *Feed
	dec  *xml.Decoder
}

func newXMLWalker(f *Feed, r io.Reader) *xmlWalker {
	dec := xml.NewDecoder(r)
	dec.Strict = true
	return &xmlWalker{feed: f, dec: dec}
}

func (w *xmlWalker) walk(emit func(*PropertyMap) error) error {
	switch {
	case w.feed.mode == ModeScalar:
		return w.walkScalar(emit)
	case w.feed.mode == ModeFunction:
		return w.walkFunction(emit)
	case w.feed.opts.RecordElement != "":
		return w.walkPlain(emit)
	default:
		return w.walkAtom(emit, nil)
	}
}

// token reads the next token, translating syntax errors into DecodeErrors.
// io.EOF is passed through unchanged.
func (w *xmlWalker) token() (xml.Token, error) {
	if err := w.feed.ctx.Err(); err != nil {
		return nil, err
	}
	tok, err := w.dec.Token()
	if err == nil {
		return tok, nil
	}
	if errors.Is(err, io.EOF) {
		return nil, io.EOF
	}
	return nil, w.decodeError(err)
}

func (w *xmlWalker) decodeError(err error) error {
	line, col := w.dec.InputPos()
	return &DecodeError{Format: "xml", Offset: w.dec.InputOffset(), Line: line, Column: col, Err: err}
}

// readNode consumes tokens up to and including the end of start.
func (w *xmlWalker) readNode(start xml.StartElement) (*xmlNode, error) {
	n := &xmlNode{name: start.Name, attrs: start.Attr}
	for {
		tok, err := w.token()
		if errors.Is(err, io.EOF) {
			return nil, w.decodeError(io.ErrUnexpectedEOF)
		}
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			c, err := w.readNode(t)
			if err != nil {
				return nil, err
			}
			n.children = append(n.children, c)
		case xml.CharData:
			n.text.Write(t)
		case xml.EndElement:
			return n, nil
		}
	}
}

// walkAtom streams Atom entries. When root is non-nil it has already been
// read by the caller.
func (w *xmlWalker) walkAtom(emit func(*PropertyMap) error, root *xml.StartElement) error {
	handle := func(t xml.StartElement) error {
		switch {
		case t.Name.Local == "entry":
			n, err := w.readNode(t)
			if err != nil {
				return err
			}
			return emit(w.atomEntry(n))
		case t.Name.Local == "count" && t.Name.Space != "":
			n, err := w.readNode(t)
			if err != nil {
				return err
			}
			if c, err := strconv.ParseInt(strings.TrimSpace(n.text.String()), 10, 64); err == nil {
				w.feed.setCount(c)
			}
		}
		return nil
	}

	if root != nil {
		if err := handle(*root); err != nil {
			return err
		}
	}
	for {
		tok, err := w.token()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if t, ok := tok.(xml.StartElement); ok {
			if err := handle(t); err != nil {
				return err
			}
		}
	}
}

// walkPlain emits every element named RecordElement, at any depth.
func (w *xmlWalker) walkPlain(emit func(*PropertyMap) error) error {
	for {
		tok, err := w.token()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		t, ok := tok.(xml.StartElement)
		if !ok || t.Name.Local != w.feed.opts.RecordElement {
			continue
		}
		n, err := w.readNode(t)
		if err != nil {
			return err
		}
		if err := emit(childrenToMap(n)); err != nil {
			return err
		}
	}
}

// walkScalar emits the first leaf element's value and stops reading.
func (w *xmlWalker) walkScalar(emit func(*PropertyMap) error) error {
	var (
		pending *xml.StartElement
		text    strings.Builder
	)
	for {
		tok, err := w.token()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			start := t.Copy()
			pending = &start
			text.Reset()
		case xml.CharData:
			if pending != nil {
				text.Write(t)
			}
		case xml.EndElement:
			if pending == nil {
				continue
			}
			leaf := &xmlNode{name: pending.Name, attrs: pending.Attr}
			leaf.text.WriteString(text.String())
			return emit(resultRecord(primitiveValue(leaf)))
		}
	}
}

// walkFunction handles service-operation results: a feed or entry, a
// collection of "element" children, a complex value, or a bare primitive.
func (w *xmlWalker) walkFunction(emit func(*PropertyMap) error) error {
	var root xml.StartElement
	for {
		tok, err := w.token()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if t, ok := tok.(xml.StartElement); ok {
			root = t.Copy()
			break
		}
	}

	if root.Name.Local == "feed" || root.Name.Local == "entry" {
		return w.walkAtom(emit, &root)
	}

	rootNode := &xmlNode{name: root.Name, attrs: root.Attr}
	rest := NewPropertyMap()
	restLists := map[string]bool{}
	var sawElement, sawChild bool
	for {
		tok, err := w.token()
		if errors.Is(err, io.EOF) {
			return w.decodeError(io.ErrUnexpectedEOF)
		}
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			sawChild = true
			n, err := w.readNode(t)
			if err != nil {
				return err
			}
			if n.name.Local != "element" {
				addRepeated(rest, n.name.Local, propertyValue(n), restLists)
				continue
			}
			sawElement = true
			if len(n.children) > 0 {
				err = emit(childrenToMap(n))
			} else {
				err = emit(resultRecord(primitiveValue(n)))
			}
			if err != nil {
				return err
			}
		case xml.CharData:
			rootNode.text.Write(t)
		case xml.EndElement:
			switch {
			case !sawChild:
				return emit(resultRecord(primitiveValue(rootNode)))
			case !sawElement:
				return emit(rest)
			}
			return nil
		}
	}
}

// atomEntry converts an entry subtree. Properties come first, in document
// order, followed by expanded links and the resource type.
func (w *xmlWalker) atomEntry(entry *xmlNode) *PropertyMap {
	rec := NewPropertyMap()

	props := entry.child("properties")
	if props == nil {
		if content := entry.child("content"); content != nil {
			props = content.child("properties")
		}
	}
	if props != nil {
		for _, p := range props.children {
			rec.Set(p.name.Local, propertyValue(p))
		}
	}

	for _, link := range entry.children {
		if link.name.Local != "link" {
			continue
		}
		inline := link.child("inline")
		if inline == nil {
			continue
		}
		key := link.plainAttr("title")
		if key == "" {
			continue
		}
		switch {
		case inline.child("feed") != nil:
			list := []*PropertyMap{}
			for _, e := range inline.child("feed").children {
				if e.name.Local == "entry" {
					list = append(list, w.atomEntry(e))
				}
			}
			rec.Set(key, list)
		case inline.child("entry") != nil:
			rec.Set(key, w.atomEntry(inline.child("entry")))
		default:
			rec.Set(key, nil)
		}
	}

	if w.feed.opts.IncludeResourceType {
		if cat := entry.child("category"); cat != nil {
			if term := cat.plainAttr("term"); term != "" {
				rec.Set(TypeKey, typeName(term))
			}
		}
	}
	return rec
}

// propertyValue converts a property element: null, typed primitive,
// collection or complex value.
func propertyValue(n *xmlNode) any {
	if n.isNull() {
		return nil
	}
	edmType, _ := n.metaAttr("type")
	if inner, ok := strings.CutPrefix(edmType, "Collection("); ok {
		inner = strings.TrimSuffix(inner, ")")
		return collectionValue(n, inner)
	}
	if len(n.children) > 0 {
		return childrenToMap(n)
	}
	return convertTyped(edmType, n.text.String())
}

func primitiveValue(n *xmlNode) any {
	if n.isNull() {
		return nil
	}
	edmType, _ := n.metaAttr("type")
	return convertTyped(edmType, n.text.String())
}

func collectionValue(n *xmlNode, itemType string) any {
	var (
		maps  []*PropertyMap
		prims []any
	)
	for _, c := range n.children {
		if c.name.Local != "element" {
			continue
		}
		if len(c.children) > 0 {
			maps = append(maps, childrenToMap(c))
			continue
		}
		if c.isNull() {
			prims = append(prims, nil)
			continue
		}
		t, ok := c.metaAttr("type")
		if !ok {
			t = itemType
		}
		prims = append(prims, convertTyped(t, c.text.String()))
	}
	if len(maps) > 0 && len(prims) == 0 {
		return maps
	}
	if prims == nil {
		prims = []any{}
	}
	for _, m := range maps {
		prims = append(prims, m)
	}
	return prims
}

// childrenToMap converts child elements to fields. Repeated names become
// lists.
func childrenToMap(n *xmlNode) *PropertyMap {
	rec := NewPropertyMap()
	lists := map[string]bool{}
	for _, c := range n.children {
		addRepeated(rec, c.name.Local, propertyValue(c), lists)
	}
	return rec
}

// addRepeated sets key, turning a repeated key into a list. lists tracks keys
// already converted.
func addRepeated(rec *PropertyMap, key string, v any, lists map[string]bool) {
	prev, exists := rec.Get(key)
	if !exists {
		rec.Set(key, v)
		return
	}
	if lists[key] {
		switch l := prev.(type) {
		case []*PropertyMap:
			if m, ok := v.(*PropertyMap); ok {
				rec.Set(key, append(l, m))
				return
			}
			generic := make([]any, 0, len(l)+1)
			for _, item := range l {
				generic = append(generic, item)
			}
			rec.Set(key, append(generic, v))
		case []any:
			rec.Set(key, append(l, v))
		}
		return
	}
	lists[key] = true
	pm, prevIsMap := prev.(*PropertyMap)
	vm, vIsMap := v.(*PropertyMap)
	if prevIsMap && vIsMap {
		rec.Set(key, []*PropertyMap{pm, vm})
		return
	}
	rec.Set(key, []any{prev, v})
}

package feed

import (
	"bytes"
	"encoding/json"
	"time"
)

// Reserved keys added by the decoder.
const (
	// ResultKey holds a scalar or primitive function result.
	ResultKey = "__result"
	// TypeKey holds the entry's resource type when
	// Options.IncludeResourceType is set.
	TypeKey = "__type"
)

// PropertyMap is one decoded record: field names to values in source order.
//
// Values are nil, string, int64, float64, bool, time.Time, uuid.UUID, []byte,
// *PropertyMap, []*PropertyMap (nested collections) or []any (collections of
// primitives).
//
// A PropertyMap is created fresh for each record and owned by the caller once
// yielded; the decoder keeps no reference to it.
type PropertyMap struct {
	keys   []string
	values map[string]any
}

// NewPropertyMap returns an empty map.
func NewPropertyMap() *PropertyMap {
	return &PropertyMap{values: make(map[string]any)}
}

// Set stores a value. An existing key keeps its position.
func (m *PropertyMap) Set(key string, value any) {
	if m.values == nil {
		m.values = make(map[string]any)
	}
	if _, exists := m.values[key]; !exists {
		m.keys = append(m.keys, key)
	}
	m.values[key] = value
}

// Get returns the value stored under key.
func (m *PropertyMap) Get(key string) (any, bool) {
	if m == nil {
		return nil, false
	}
	v, ok := m.values[key]
	return v, ok
}

// Value returns the value under key, or nil when absent.
func (m *PropertyMap) Value(key string) any {
	v, _ := m.Get(key)
	return v
}

// Text returns the value under key if it is a string.
func (m *PropertyMap) Text(key string) string {
	s, _ := m.Value(key).(string)
	return s
}

// Map returns the nested map under key, or nil.
func (m *PropertyMap) Map(key string) *PropertyMap {
	nested, _ := m.Value(key).(*PropertyMap)
	return nested
}

// Lookup descends through nested maps following path.
func (m *PropertyMap) Lookup(path ...string) (any, bool) {
	cur := m
	for i, key := range path {
		v, ok := cur.Get(key)
		if !ok {
			return nil, false
		}
		if i == len(path)-1 {
			return v, true
		}
		next, ok := v.(*PropertyMap)
		if !ok {
			return nil, false
		}
		cur = next
	}
	return nil, false
}

// Delete removes key, preserving the order of the remaining keys.
func (m *PropertyMap) Delete(key string) {
	if _, ok := m.values[key]; !ok {
		return
	}
	delete(m.values, key)
	for i, k := range m.keys {
		if k == key {
			m.keys = append(m.keys[:i:i], m.keys[i+1:]...)
			break
		}
	}
}

// Keys returns the field names in source order.
func (m *PropertyMap) Keys() []string {
	if m == nil {
		return nil
	}
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

// Len returns the number of fields.
func (m *PropertyMap) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

// ToMap converts the record and everything below it to plain Go maps and
// slices. Order is lost.
func (m *PropertyMap) ToMap() map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m.keys))
	for _, k := range m.keys {
		out[k] = plain(m.values[k])
	}
	return out
}

func plain(v any) any {
	switch val := v.(type) {
	case *PropertyMap:
		return val.ToMap()
	case []*PropertyMap:
		list := make([]any, len(val))
		for i, item := range val {
			list[i] = item.ToMap()
		}
		return list
	case []any:
		list := make([]any, len(val))
		for i, item := range val {
			list[i] = plain(item)
		}
		return list
	default:
		return v
	}
}

// MarshalJSON encodes the record as a JSON object in source order.
func (m *PropertyMap) MarshalJSON() ([]byte, error) {
	if m == nil {
		return []byte("null"), nil
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range m.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')

		v := m.values[k]
		if t, ok := v.(time.Time); ok {
			v = t.UTC().Format(time.RFC3339Nano)
		}
		val, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Package funcs holds the closed registry of query functions the remote
// protocol supports.
//
// The registry maps (name, arity) to a rendering rule. It is consulted twice:
// by the dynamic construction engine, to tell field access from function
// invocation, and by the filter compiler, to emit the protocol keyword with
// the implicit receiver in the right argument slot.
//
// There is no wildcard arity. A function usable with one or two arguments is
// registered once per arity.
package funcs

import (
	"fmt"
	"sort"
)

// Key identifies a registry entry. Lookups match both fields exactly.
type Key struct {
	Name  string
	Arity int
}

func (k Key) String() string {
	return fmt.Sprintf("%s/%d", k.Name, k.Arity)
}

// ReceiverPosition says where a MethodChain's caller is placed among the
// rendered arguments.
type ReceiverPosition int

const (
	// ReceiverFirst renders caller.fn(a) as keyword(caller,a).
	ReceiverFirst ReceiverPosition = iota
	// ReceiverLast renders caller.fn(a) as keyword(a,caller).
	ReceiverLast
)

// Entry is a rendering rule for one (name, arity) pair.
type Entry struct {
	Key
	Keyword  string
	Receiver ReceiverPosition
}

// Registry is an immutable lookup table. The zero value is an empty registry.
//
// Thread-safety: a Registry is never written after construction, so
// concurrent lookups need no locking.
type Registry struct {
	entries map[Key]Entry
}

// New builds a registry from the given entries.
// Returns an error if an entry has no name or keyword, or if a key repeats.
func New(entries ...Entry) (*Registry, error) {
	m := make(map[Key]Entry, len(entries))
	for _, e := range entries {
		if e.Name == "" || e.Keyword == "" {
			return nil, fmt.Errorf("registry entry %v: name and keyword are required", e.Key)
		}
		if e.Arity < 0 {
			return nil, fmt.Errorf("registry entry %v: negative arity", e.Key)
		}
		if _, dup := m[e.Key]; dup {
			return nil, fmt.Errorf("registry entry %v: duplicate key", e.Key)
		}
		m[e.Key] = e
	}
	return &Registry{entries: m}, nil
}

// MustNew is like New but panics on error. Intended for package-level tables.
func MustNew(entries ...Entry) *Registry {
	r, err := New(entries...)
	if err != nil {
		panic(err)
	}
	return r
}

// Lookup returns the entry registered for exactly (name, arity).
func (r *Registry) Lookup(name string, arity int) (Entry, bool) {
	if r == nil {
		return Entry{}, false
	}
	e, ok := r.entries[Key{Name: name, Arity: arity}]
	return e, ok
}

// Len returns the number of registered entries.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.entries)
}

// Entries returns all entries sorted by name, then arity.
// The returned slice is a fresh copy.
func (r *Registry) Entries() []Entry {
	if r == nil {
		return nil
	}
	out := make([]Entry, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].Arity < out[j].Arity
	})
	return out
}

// Package dynamic captures schema-free field reads, field writes and method
// calls as expression trees.
//
// Go has no runtime member interception, so the capture surface is an
// explicit builder: Get for "x.Name", Set for "x.Name = v" and Call for
// "x.Name(args...)". Nothing is executed; every operation returns a new
// Handle wrapping a larger tree.
//
//	x := dynamic.Root()
//	f, err := x.Get("Name").Call("StartsWith", "Tom")
//	// f.Node() == MethodChain(Reference(Name), StartsWith('Tom'))
//
// Handles are small immutable values. Two sessions starting from their own
// root handles never interact.
package dynamic

import (
	"github.com/roach88/odyn/internal/expr"
	"github.com/roach88/odyn/internal/funcs"
)

// UnsupportedFunctionError is returned by Call for a (name, arity) pair the
// registry does not know.
type UnsupportedFunctionError = funcs.UnsupportedFunctionError

// Handle wraps an expression node together with the registry used to
// resolve member names.
type Handle struct {
	node expr.Node
	reg  *funcs.Registry
}

// Root returns an empty handle bound to the process-wide registry.
func Root() Handle {
	return Handle{reg: funcs.Default()}
}

// NewRoot returns an empty handle bound to reg.
func NewRoot(reg *funcs.Registry) Handle {
	return Handle{reg: reg}
}

// Wrap returns a handle around an existing node.
func Wrap(node expr.Node) Handle {
	return Handle{node: node, reg: funcs.Default()}
}

// Node returns the captured tree. It is nil for a root handle.
func (h Handle) Node() expr.Node {
	return h.node
}

// IsRoot reports whether the handle wraps no node yet.
func (h Handle) IsRoot() bool {
	return h.node == nil
}

func (h Handle) String() string {
	if h.node == nil {
		return "<root>"
	}
	return expr.Format(h.node)
}

func (h Handle) with(node expr.Node) Handle {
	return Handle{node: node, reg: h.reg}
}

// Get captures a field read.
//
// A registered zero-argument function wins over a field of the same name:
// the result is a MethodChain with the handle as receiver. Otherwise the
// result is a MemberChain. On the root handle a field read is a plain
// Reference.
func (h Handle) Get(name string) Handle {
	if _, ok := h.reg.Lookup(name, 0); ok {
		return h.with(expr.Method(h.node, expr.Call(name)))
	}
	if h.node == nil {
		return h.with(expr.Ref(name))
	}
	return h.with(expr.Member(h.node, name))
}

// Path applies Get for each name in turn.
func (h Handle) Path(names ...string) Handle {
	for _, name := range names {
		h = h.Get(name)
	}
	return h
}

// Set captures a field write as an equality predicate on a fresh Reference.
// The receiver is discarded: the write builds a sibling predicate, it does
// not modify anything.
func (h Handle) Set(name string, value any) Handle {
	return h.with(expr.Eq(expr.Ref(name), expr.Lit(value)))
}

// Call captures a method call. The registry must contain (name, len(args));
// unknown functions fail with *UnsupportedFunctionError and no tree.
//
// Arguments that are Handles or expr.Nodes are embedded as sub-trees; any
// other value becomes a Literal.
func (h Handle) Call(name string, args ...any) (Handle, error) {
	if _, ok := h.reg.Lookup(name, len(args)); !ok {
		return Handle{}, &UnsupportedFunctionError{Name: name, Arity: len(args)}
	}
	nodes := make([]expr.Node, len(args))
	for i, arg := range args {
		nodes[i] = resolve(arg)
	}
	return h.with(expr.Method(h.node, expr.Call(name, nodes...))), nil
}

// MustCall is like Call but panics on an unsupported function.
func (h Handle) MustCall(name string, args ...any) Handle {
	out, err := h.Call(name, args...)
	if err != nil {
		panic(err)
	}
	return out
}

// resolve turns a call argument or operand into a node.
func resolve(v any) expr.Node {
	switch val := v.(type) {
	case Handle:
		if val.node == nil {
			return expr.Lit(nil)
		}
		return val.node
	case *Handle:
		if val == nil || val.node == nil {
			return expr.Lit(nil)
		}
		return val.node
	case expr.Node:
		return val
	default:
		return expr.Lit(v)
	}
}

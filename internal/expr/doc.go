// Package expr defines the immutable query-expression tree that schema-free
// filters are captured into.
//
// ARCHITECTURE:
//
// The expression tree sits between the dynamic construction surface and the
// protocol text compiler:
//
//	[dynamic.Handle] → [expr.Node tree] → [querytext.Compiler] → $filter text
//
// Nodes carry data only. They do not know how to render themselves into the
// remote protocol; that is the compiler's job, which consults the function
// registry for keyword and receiver placement.
//
// SEALED INTERFACE:
//
// Node is sealed with a marker method. Only the variants in this package
// implement it, so compilers can switch exhaustively:
//
//	switch n := node.(type) {
//	case Literal:
//	case Reference:
//	case FunctionCall:
//	case BinaryOp:
//	case UnaryOp:
//	case MemberChain:
//	case MethodChain:
//	}
//
// IMMUTABILITY:
//
// Constructors copy argument slices, and no exported method mutates a node.
// Trees are therefore safe to share between goroutines and to reuse as
// sub-trees of several larger expressions.
package expr

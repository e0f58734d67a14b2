package dynamic

import "github.com/roach88/odyn/internal/expr"

// Operator combinators. The receiver is the left operand; other is resolved
// like a Call argument (Handle or expr.Node as sub-tree, anything else as a
// Literal).

// Eq combines h and other with the equality operator.
func (h Handle) Eq(other any) Handle { return h.binary(expr.OpEq, other) }

// Ne combines h and other with the inequality operator.
func (h Handle) Ne(other any) Handle { return h.binary(expr.OpNe, other) }

// Gt combines h and other with the greater-than operator.
func (h Handle) Gt(other any) Handle { return h.binary(expr.OpGt, other) }

// Ge combines h and other with the greater-than-or-equal operator.
func (h Handle) Ge(other any) Handle { return h.binary(expr.OpGe, other) }

// Lt combines h and other with the less-than operator.
func (h Handle) Lt(other any) Handle { return h.binary(expr.OpLt, other) }

// Le combines h and other with the less-than-or-equal operator.
func (h Handle) Le(other any) Handle { return h.binary(expr.OpLe, other) }

// And combines h and other with the logical and operator.
func (h Handle) And(other any) Handle { return h.binary(expr.OpAnd, other) }

// Or combines h and other with the logical or operator.
func (h Handle) Or(other any) Handle { return h.binary(expr.OpOr, other) }

// Add combines h and other with the addition operator.
func (h Handle) Add(other any) Handle { return h.binary(expr.OpAdd, other) }

// Sub combines h and other with the subtraction operator.
func (h Handle) Sub(other any) Handle { return h.binary(expr.OpSub, other) }

// Mul combines h and other with the multiplication operator.
func (h Handle) Mul(other any) Handle { return h.binary(expr.OpMul, other) }

// Div combines h and other with the division operator.
func (h Handle) Div(other any) Handle { return h.binary(expr.OpDiv, other) }

// Mod combines h and other with the modulo operator.
func (h Handle) Mod(other any) Handle { return h.binary(expr.OpMod, other) }

// Not negates a boolean expression.
func (h Handle) Not() Handle {
	return h.with(expr.Not(resolve(h)))
}

// Negate is arithmetic negation.
func (h Handle) Negate() Handle {
	return h.with(expr.Negate(resolve(h)))
}

func (h Handle) binary(op expr.Operator, other any) Handle {
	return h.with(expr.Binary(resolve(h), op, resolve(other)))
}

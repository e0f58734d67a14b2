package expr

import "fmt"

// Lit creates a Literal node.
func Lit(value any) Literal {
	return Literal{Value: value}
}

// Ref creates a Reference node.
func Ref(name string) Reference {
	return Reference{Name: name}
}

// Call creates a FunctionCall node. The argument slice is copied.
func Call(name string, args ...Node) FunctionCall {
	return FunctionCall{Name: name, Args: cloneNodes(args)}
}

// Binary creates a BinaryOp node.
// Panics if op is unary or not part of the operator set; operator choice is
// a programming error, not a runtime condition.
func Binary(left Node, op Operator, right Node) BinaryOp {
	if !op.Valid() || op.IsUnary() {
		panic(fmt.Sprintf("expr.Binary: %v is not a binary operator", op))
	}
	return BinaryOp{Left: left, Right: right, Op: op}
}

// Unary creates a UnaryOp node.
// Panics if op is not a unary operator.
func Unary(op Operator, operand Node) UnaryOp {
	if !op.IsUnary() {
		panic(fmt.Sprintf("expr.Unary: %v is not a unary operator", op))
	}
	return UnaryOp{Operand: operand, Op: op}
}

// Member creates a MemberChain node.
func Member(caller Node, reference string) MemberChain {
	return MemberChain{Caller: caller, Reference: reference}
}

// Method creates a MethodChain node. The call's argument slice is copied.
func Method(caller Node, call FunctionCall) MethodChain {
	return MethodChain{Caller: caller, Call: Call(call.Name, call.Args...)}
}

// Eq is the equality comparison.
func Eq(l, r Node) BinaryOp { return Binary(l, OpEq, r) }

// Ne is the inequality comparison.
func Ne(l, r Node) BinaryOp { return Binary(l, OpNe, r) }

// Gt is the greater-than comparison.
func Gt(l, r Node) BinaryOp { return Binary(l, OpGt, r) }

// Ge is the greater-than-or-equal comparison.
func Ge(l, r Node) BinaryOp { return Binary(l, OpGe, r) }

// Lt is the less-than comparison.
func Lt(l, r Node) BinaryOp { return Binary(l, OpLt, r) }

// Le is the less-than-or-equal comparison.
func Le(l, r Node) BinaryOp { return Binary(l, OpLe, r) }

// And builds a logical and node.
func And(l, r Node) BinaryOp { return Binary(l, OpAnd, r) }

// Or builds a logical or node.
func Or(l, r Node) BinaryOp { return Binary(l, OpOr, r) }

// Add builds an addition node.
func Add(l, r Node) BinaryOp { return Binary(l, OpAdd, r) }

// Sub builds a subtraction node.
func Sub(l, r Node) BinaryOp { return Binary(l, OpSub, r) }

// Mul builds a multiplication node.
func Mul(l, r Node) BinaryOp { return Binary(l, OpMul, r) }

// Div builds a division node.
func Div(l, r Node) BinaryOp { return Binary(l, OpDiv, r) }

// Mod builds a modulo node.
func Mod(l, r Node) BinaryOp { return Binary(l, OpMod, r) }

// Not is logical negation.
func Not(n Node) UnaryOp { return Unary(OpNot, n) }

// Negate is arithmetic negation.
func Negate(n Node) UnaryOp { return Unary(OpNegate, n) }

// AndAll folds nodes into a left-deep conjunction.
// Returns nil for an empty list and the node itself for a single element.
func AndAll(nodes ...Node) Node {
	var out Node
	for _, n := range nodes {
		if n == nil {
			continue
		}
		if out == nil {
			out = n
			continue
		}
		out = And(out, n)
	}
	return out
}

func cloneNodes(nodes []Node) []Node {
	if len(nodes) == 0 {
		return nil
	}
	out := make([]Node, len(nodes))
	copy(out, nodes)
	return out
}

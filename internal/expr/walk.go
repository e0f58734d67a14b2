package expr

import (
	"bytes"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// Walk visits node and its descendants in pre-order.
// If fn returns false the node's children are skipped.
// Nil nodes (such as the caller of a root-level MethodChain) are not visited.
func Walk(node Node, fn func(Node) bool) {
	if node == nil || !fn(node) {
		return
	}
	switch n := node.(type) {
	case FunctionCall:
		for _, arg := range n.Args {
			Walk(arg, fn)
		}
	case BinaryOp:
		Walk(n.Left, fn)
		Walk(n.Right, fn)
	case UnaryOp:
		Walk(n.Operand, fn)
	case MemberChain:
		Walk(n.Caller, fn)
	case MethodChain:
		Walk(n.Caller, fn)
		Walk(n.Call, fn)
	}
}

// Equal reports whether two trees are structurally identical.
func Equal(a, b Node) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	switch x := a.(type) {
	case Literal:
		y, ok := b.(Literal)
		return ok && literalEqual(x.Value, y.Value)
	case Reference:
		y, ok := b.(Reference)
		return ok && x.Name == y.Name
	case FunctionCall:
		y, ok := b.(FunctionCall)
		return ok && callEqual(x, y)
	case BinaryOp:
		y, ok := b.(BinaryOp)
		return ok && x.Op == y.Op && Equal(x.Left, y.Left) && Equal(x.Right, y.Right)
	case UnaryOp:
		y, ok := b.(UnaryOp)
		return ok && x.Op == y.Op && Equal(x.Operand, y.Operand)
	case MemberChain:
		y, ok := b.(MemberChain)
		return ok && x.Reference == y.Reference && Equal(x.Caller, y.Caller)
	case MethodChain:
		y, ok := b.(MethodChain)
		return ok && callEqual(x.Call, y.Call) && Equal(x.Caller, y.Caller)
	default:
		return false
	}
}

func callEqual(x, y FunctionCall) bool {
	if x.Name != y.Name || len(x.Args) != len(y.Args) {
		return false
	}
	for i := range x.Args {
		if !Equal(x.Args[i], y.Args[i]) {
			return false
		}
	}
	return true
}

func literalEqual(a, b any) bool {
	if ta, ok := a.(time.Time); ok {
		tb, ok := b.(time.Time)
		return ok && ta.Equal(tb)
	}
	if ba, ok := a.([]byte); ok {
		bb, ok := b.([]byte)
		return ok && bytes.Equal(ba, bb)
	}
	return reflect.DeepEqual(a, b)
}

// Format renders a tree as stable debug text. It is not protocol syntax:
// use querytext.Compiler for that.
//
// Example:
//
//	Format(And(Eq(Ref("Name"), Lit("Tom")), Not(Ref("Active"))))
//	// (Name Eq "Tom") And (Not Active)
func Format(node Node) string {
	var sb strings.Builder
	format(&sb, node)
	return sb.String()
}

func format(sb *strings.Builder, node Node) {
	switch n := node.(type) {
	case nil:
		sb.WriteString("<nil>")
	case Literal:
		sb.WriteString(formatLiteral(n.Value))
	case Reference:
		sb.WriteString(n.Name)
	case FunctionCall:
		formatCall(sb, n)
	case BinaryOp:
		formatOperand(sb, n.Left)
		sb.WriteString(" " + n.Op.String() + " ")
		formatOperand(sb, n.Right)
	case UnaryOp:
		sb.WriteString(n.Op.String() + " ")
		formatOperand(sb, n.Operand)
	case MemberChain:
		format(sb, n.Caller)
		sb.WriteString("." + n.Reference)
	case MethodChain:
		if n.Caller != nil {
			format(sb, n.Caller)
			sb.WriteString(".")
		}
		formatCall(sb, n.Call)
	default:
		fmt.Fprintf(sb, "<%T>", node)
	}
}

func formatOperand(sb *strings.Builder, node Node) {
	switch node.(type) {
	case BinaryOp, UnaryOp:
		sb.WriteString("(")
		format(sb, node)
		sb.WriteString(")")
	default:
		format(sb, node)
	}
}

func formatCall(sb *strings.Builder, call FunctionCall) {
	sb.WriteString(call.Name + "(")
	for i, arg := range call.Args {
		if i > 0 {
			sb.WriteString(", ")
		}
		format(sb, arg)
	}
	sb.WriteString(")")
}

func formatLiteral(v any) string {
	switch val := v.(type) {
	case nil:
		return "null"
	case string:
		return strconv.Quote(val)
	case time.Time:
		return val.UTC().Format(time.RFC3339Nano)
	default:
		return fmt.Sprint(val)
	}
}

// Package querytext compiles expression trees into the remote protocol's
// $filter syntax.
package querytext

import (
	"encoding/hex"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"

	"github.com/roach88/odyn/internal/expr"
	"github.com/roach88/odyn/internal/funcs"
)

// dateTimeLayout drops the fraction when it is zero.
const dateTimeLayout = "2006-01-02T15:04:05.9999999"

// Compiler renders expr.Node trees as protocol filter text.
//
// Function calls are rendered from the registry: the entry's keyword is
// emitted and a MethodChain's caller is placed first or last among the
// arguments. A call the registry does not know fails with
// *funcs.UnsupportedFunctionError, so an unrecognised function never reaches
// the server.
//
// Thread-safety: Compiler holds only the immutable registry and is safe for
// concurrent use.
type Compiler struct {
	registry *funcs.Registry
}

// NewCompiler creates a Compiler. A nil registry selects funcs.Default().
func NewCompiler(reg *funcs.Registry) *Compiler {
	if reg == nil {
		reg = funcs.Default()
	}
	return &Compiler{registry: reg}
}

// Compile converts a tree to filter text.
func (c *Compiler) Compile(node expr.Node) (string, error) {
	if node == nil {
		return "", fmt.Errorf("cannot compile nil expression")
	}
	var sb strings.Builder
	if err := c.compileNode(&sb, node); err != nil {
		return "", err
	}
	return sb.String(), nil
}

func (c *Compiler) compileNode(sb *strings.Builder, node expr.Node) error {
	switch n := node.(type) {
	case expr.Literal:
		text, err := FormatLiteral(n.Value)
		if err != nil {
			return err
		}
		sb.WriteString(text)
		return nil
	case expr.Reference:
		if n.Name == "" {
			return fmt.Errorf("empty field reference")
		}
		sb.WriteString(n.Name)
		return nil
	case expr.MemberChain:
		return c.compileMember(sb, n)
	case expr.FunctionCall:
		return c.compileCall(sb, nil, n)
	case expr.MethodChain:
		if n.Caller == nil {
			return fmt.Errorf("function %s has no receiver", n.Call.Name)
		}
		return c.compileCall(sb, n.Caller, n.Call)
	case expr.BinaryOp:
		return c.compileBinary(sb, n)
	case expr.UnaryOp:
		return c.compileUnary(sb, n)
	case nil:
		return fmt.Errorf("nil operand")
	default:
		return fmt.Errorf("unsupported expression node: %T", node)
	}
}

// compileMember renders Caller/Reference.
func (c *Compiler) compileMember(sb *strings.Builder, m expr.MemberChain) error {
	if m.Caller != nil {
		if err := c.compileNode(sb, m.Caller); err != nil {
			return err
		}
		sb.WriteString("/")
	}
	sb.WriteString(m.Reference)
	return nil
}

// compileCall renders a registered function. receiver is nil for a
// standalone FunctionCall.
func (c *Compiler) compileCall(sb *strings.Builder, receiver expr.Node, call expr.FunctionCall) error {
	entry, ok := c.registry.Lookup(call.Name, call.Arity())
	if !ok {
		return &funcs.UnsupportedFunctionError{Name: call.Name, Arity: call.Arity()}
	}

	args := make([]expr.Node, 0, call.Arity()+1)
	if receiver != nil && entry.Receiver == funcs.ReceiverFirst {
		args = append(args, receiver)
	}
	args = append(args, call.Args...)
	if receiver != nil && entry.Receiver == funcs.ReceiverLast {
		args = append(args, receiver)
	}

	sb.WriteString(entry.Keyword)
	sb.WriteString("(")
	for i, arg := range args {
		if i > 0 {
			sb.WriteString(",")
		}
		if err := c.compileNode(sb, arg); err != nil {
			return fmt.Errorf("%s argument %d: %w", call.Name, i, err)
		}
	}
	sb.WriteString(")")
	return nil
}

// compileBinary renders "left op right", parenthesising operands that bind
// more loosely. Operators are left-associative, so a right operand of equal
// precedence is parenthesised too.
func (c *Compiler) compileBinary(sb *strings.Builder, b expr.BinaryOp) error {
	if !b.Op.Valid() || b.Op.IsUnary() {
		return fmt.Errorf("invalid binary operator: %v", b.Op)
	}
	prec := b.Op.Precedence()

	if err := c.compileOperand(sb, b.Left, func(p int) bool { return p < prec }); err != nil {
		return fmt.Errorf("left of %s: %w", b.Op.Symbol(), err)
	}
	sb.WriteString(" " + b.Op.Symbol() + " ")
	if err := c.compileOperand(sb, b.Right, func(p int) bool { return p <= prec }); err != nil {
		return fmt.Errorf("right of %s: %w", b.Op.Symbol(), err)
	}
	return nil
}

func (c *Compiler) compileUnary(sb *strings.Builder, u expr.UnaryOp) error {
	switch u.Op {
	case expr.OpNot:
		sb.WriteString("not ")
	case expr.OpNegate:
		sb.WriteString("-")
	default:
		return fmt.Errorf("invalid unary operator: %v", u.Op)
	}

	var operand strings.Builder
	if err := c.compileOperand(&operand, u.Operand, func(p int) bool { return p < u.Op.Precedence() }); err != nil {
		return err
	}
	// "--5" is not a valid token sequence.
	if u.Op == expr.OpNegate && strings.HasPrefix(operand.String(), "-") {
		sb.WriteString("(" + operand.String() + ")")
		return nil
	}
	sb.WriteString(operand.String())
	return nil
}

// compileOperand wraps operator sub-expressions in parentheses when needParens
// says their precedence requires it.
func (c *Compiler) compileOperand(sb *strings.Builder, node expr.Node, needParens func(int) bool) error {
	var prec int
	switch n := node.(type) {
	case expr.BinaryOp:
		prec = n.Op.Precedence()
	case expr.UnaryOp:
		prec = n.Op.Precedence()
	default:
		return c.compileNode(sb, node)
	}

	if !needParens(prec) {
		return c.compileNode(sb, node)
	}
	sb.WriteString("(")
	if err := c.compileNode(sb, node); err != nil {
		return err
	}
	sb.WriteString(")")
	return nil
}

// FormatLiteral renders a constant in protocol literal syntax.
//
// Strings are NFC-normalised and single-quoted with embedded quotes doubled.
// Times render as datetime'...' in UTC, UUIDs as guid'...', byte slices as
// X'...'.
func FormatLiteral(v any) (string, error) {
	switch val := v.(type) {
	case nil:
		return "null", nil
	case string:
		return quote(val), nil
	case bool:
		return strconv.FormatBool(val), nil
	case int:
		return strconv.FormatInt(int64(val), 10), nil
	case int64:
		return strconv.FormatInt(val, 10), nil
	case int32:
		return strconv.FormatInt(int64(val), 10), nil
	case float64:
		return formatFloat(val, 64), nil
	case float32:
		return formatFloat(float64(val), 32), nil
	case time.Time:
		return "datetime'" + val.UTC().Format(dateTimeLayout) + "'", nil
	case uuid.UUID:
		return "guid'" + val.String() + "'", nil
	case []byte:
		return "X'" + hex.EncodeToString(val) + "'", nil
	}

	// Named types over primitive kinds (type Status string, etc.)
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.String:
		return quote(rv.String()), nil
	case reflect.Bool:
		return strconv.FormatBool(rv.Bool()), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(rv.Uint(), 10), nil
	case reflect.Float32, reflect.Float64:
		return formatFloat(rv.Float(), rv.Type().Bits()), nil
	}
	return "", fmt.Errorf("unsupported literal type: %T", v)
}

// formatFloat uses the protocol spellings INF, -INF and NaN for non-finite
// values.
func formatFloat(f float64, bits int) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "INF"
	case math.IsInf(f, -1):
		return "-INF"
	}
	return strconv.FormatFloat(f, 'f', -1, bits)
}

func quote(s string) string {
	return "'" + strings.ReplaceAll(norm.NFC.String(s), "'", "''") + "'"
}

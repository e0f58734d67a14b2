package expr

import "fmt"

// Operator is the closed set of relational, logical and arithmetic operators
// the remote query protocol understands.
type Operator int

const (
	OpEq Operator = iota + 1
	OpNe
	OpGt
	OpGe
	OpLt
	OpLe
	OpAnd
	OpOr
	OpNot
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMod
	OpNegate
)

type operatorInfo struct {
	name       string
	symbol     string
	precedence int
	unary      bool
}

// Precedence follows the protocol grammar: higher binds tighter.
var operators = map[Operator]operatorInfo{
	OpOr:     {"Or", "or", 1, false},
	OpAnd:    {"And", "and", 2, false},
	OpEq:     {"Eq", "eq", 3, false},
	OpNe:     {"Ne", "ne", 3, false},
	OpGt:     {"Gt", "gt", 4, false},
	OpGe:     {"Ge", "ge", 4, false},
	OpLt:     {"Lt", "lt", 4, false},
	OpLe:     {"Le", "le", 4, false},
	OpAdd:    {"Add", "add", 5, false},
	OpSub:    {"Sub", "sub", 5, false},
	OpMul:    {"Mul", "mul", 6, false},
	OpDiv:    {"Div", "div", 6, false},
	OpMod:    {"Mod", "mod", 6, false},
	OpNot:    {"Not", "not", 7, true},
	OpNegate: {"Negate", "-", 7, true},
}

// Valid reports whether op is a member of the closed operator set.
func (op Operator) Valid() bool {
	_, ok := operators[op]
	return ok
}

// Symbol returns the protocol keyword for the operator (e.g. "eq", "and").
func (op Operator) Symbol() string {
	return operators[op].symbol
}

// Precedence returns the binding strength used when deciding whether a
// sub-expression needs parentheses. Invalid operators return 0.
func (op Operator) Precedence() int {
	return operators[op].precedence
}

// IsUnary reports whether the operator takes a single operand.
func (op Operator) IsUnary() bool {
	return operators[op].unary
}

func (op Operator) String() string {
	if info, ok := operators[op]; ok {
		return info.name
	}
	return fmt.Sprintf("Operator(%d)", int(op))
}

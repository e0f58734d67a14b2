package expr

// Node is one node of an immutable query-expression tree.
//
// This is a sealed interface - only types in this package implement it.
// Node types:
//   - Literal: a constant value
//   - Reference: an unresolved field name
//   - FunctionCall: a registered function applied to arguments
//   - BinaryOp: relational, logical or arithmetic combination of two nodes
//   - UnaryOp: logical not or arithmetic negation of one node
//   - MemberChain: nested field access (caller/reference)
//   - MethodChain: function with an implicit receiver (caller.fn(args))
//
// Callers must treat nodes as read-only. Constructors copy slices so a tree
// never aliases caller-owned memory.
type Node interface {
	exprNode() // Marker method - seals interface to this package
}

// Literal is a constant. Value is one of nil, string, bool, the Go integer
// and float kinds, time.Time, uuid.UUID or []byte; the compiler rejects
// anything else.
type Literal struct {
	Value any
}

func (Literal) exprNode() {}

// Reference names a field on the entity being filtered. Names are not
// validated; an unknown field is only reported by the server.
type Reference struct {
	Name string
}

func (Reference) exprNode() {}

// FunctionCall invokes a registered function. Lookups use (Name, len(Args)).
type FunctionCall struct {
	Name string
	Args []Node
}

func (FunctionCall) exprNode() {}

// Arity returns the number of explicit arguments.
func (f FunctionCall) Arity() int {
	return len(f.Args)
}

// BinaryOp combines two operands with a binary operator.
type BinaryOp struct {
	Left  Node
	Right Node
	Op    Operator
}

func (BinaryOp) exprNode() {}

// UnaryOp applies OpNot or OpNegate to a single operand.
type UnaryOp struct {
	Operand Node
	Op      Operator
}

func (UnaryOp) exprNode() {}

// MemberChain is nested field access: Caller/Reference in protocol syntax.
type MemberChain struct {
	Caller    Node
	Reference string
}

func (MemberChain) exprNode() {}

// MethodChain binds Caller as the implicit receiver of Call.
type MethodChain struct {
	Caller Node
	Call   FunctionCall
}

func (MethodChain) exprNode() {}

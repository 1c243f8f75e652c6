package compiler

// Local is a per-function local slot. Scope is the id of the block that
// declared it, counted from 1 for the function body.
type Local struct {
	Name  string
	Type  TypeID
	Scope int
}

// TypedNode is a node of the typed tree produced by the Typechecker. Node
// kinds and child layout follow ASTNode, with these differences: NodeCall
// children are the arguments only (the callee is Name), and NodeFunc
// children are the body block only (parameters are Params).
type TypedNode struct {
	Kind NodeKind
	Line int
	Type TypeID

	// Variables, declarations, functions, callees, fields, host imports.
	Name string
	// Local slot of NodeVar, NodeAssignment, NodeReassign and NodeFuncArg,
	// -1 elsewhere.
	Slot    int
	Mutable bool
	// NodeVar reading a host variable.
	Global bool

	Op      string
	Integer int64
	String  string
	Boolean bool

	// NodeFunc, NodeExternFunc:
	Sig *Signature
	// NodeFunc:
	Params []*TypedNode
	Locals []Local
	// NodeExternFunc, NodeExternVar: two-level import name.
	Module string
	Field  string
	// NodeStructLiteral:
	FieldNames []string

	Children []*TypedNode
}

// Body returns the body block of a NodeFunc.
func (n *TypedNode) Body() *TypedNode {
	return n.Children[0]
}

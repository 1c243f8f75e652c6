package compiler

// NodeKind represents different types of AST nodes
type NodeKind string

const (
	NodeProgram       NodeKind = "NodeProgram"
	NodeExtern        NodeKind = "NodeExtern"
	NodeExternFunc    NodeKind = "NodeExternFunc"
	NodeExternVar     NodeKind = "NodeExternVar"
	NodeFunc          NodeKind = "NodeFunc"
	NodeFuncArg       NodeKind = "NodeFuncArg"
	NodeBlock         NodeKind = "NodeBlock"
	NodeAssignment    NodeKind = "NodeAssignment"
	NodeReassign      NodeKind = "NodeReassign"
	NodeVar           NodeKind = "NodeVar"
	NodeAttr          NodeKind = "NodeAttr"
	NodeCall          NodeKind = "NodeCall"
	NodeBinary        NodeKind = "NodeBinary"
	NodeUnary         NodeKind = "NodeUnary"
	NodeIf            NodeKind = "NodeIf"
	NodeWhile         NodeKind = "NodeWhile"
	NodeReturn        NodeKind = "NodeReturn"
	NodeBreak         NodeKind = "NodeBreak"
	NodeUnreachable   NodeKind = "NodeUnreachable"
	NodeInteger       NodeKind = "NodeInteger"
	NodeString        NodeKind = "NodeString"
	NodeBoolean       NodeKind = "NodeBoolean"
	NodeStruct        NodeKind = "NodeStruct"
	NodeStructLiteral NodeKind = "NodeStructLiteral"
)

// ASTNode represents a node in the untyped syntax tree
type ASTNode struct {
	Kind NodeKind
	Line int

	// NodeExtern: host module name. NodeVar: the (possibly host-qualified)
	// name. NodeAttr: field name. NodeString: the decoded text. Otherwise
	// the declared name.
	String string
	// NodeInteger:
	Integer int64
	// NodeBoolean:
	Boolean bool
	// NodeBinary, NodeUnary:
	Op string
	// NodeAssignment: let (true) or const (false)
	Mutable bool
	// Annotation on NodeAssignment, NodeFuncArg, NodeExternVar; return type
	// of NodeFunc, NodeExternFunc; struct name of NodeStructLiteral.
	TypeName string
	// NodeExternFunc:
	ArgTypes []string
	// NodeStruct, NodeStructLiteral:
	FieldNames []string
	// NodeStruct:
	FieldTypes []string

	// NodeFunc: args followed by the body block. NodeCall: callee followed
	// by arguments. NodeIf: condition, then block, optional else (a block
	// or another NodeIf). NodeWhile: condition, body.
	Children []*ASTNode
}

// Body returns the body block of a NodeFunc.
func (n *ASTNode) Body() *ASTNode {
	return n.Children[len(n.Children)-1]
}

// Args returns the NodeFuncArg children of a NodeFunc.
func (n *ASTNode) Args() []*ASTNode {
	return n.Children[:len(n.Children)-1]
}

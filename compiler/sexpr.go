package compiler

import (
	"strconv"
	"strings"
)

func quoteString(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"', '\\':
			b.WriteByte('\\')
			b.WriteRune(r)
		case '\n':
			b.WriteString(`\n`)
		case '\t':
			b.WriteString(`\t`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}

func quoteAll(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = quoteString(n)
	}
	return strings.Join(quoted, " ")
}

// ToSExpr renders an untyped tree as an s-expression.
func ToSExpr(node *ASTNode) string {
	switch node.Kind {
	case NodeProgram:
		return "(program" + childrenSExpr(node.Children) + ")"
	case NodeExtern:
		return "(extern " + quoteString(node.String) + childrenSExpr(node.Children) + ")"
	case NodeExternFunc:
		return "(extern-fn " + quoteString(node.String) + " (" + quoteAll(node.ArgTypes) + ") " + quoteString(node.TypeName) + ")"
	case NodeExternVar:
		return "(extern-var " + quoteString(node.String) + " " + quoteString(node.TypeName) + ")"
	case NodeFunc:
		return "(fn " + quoteString(node.String) + " (" + strings.TrimPrefix(childrenSExpr(node.Args()), " ") + ") " +
			quoteString(node.TypeName) + " " + ToSExpr(node.Body()) + ")"
	case NodeFuncArg:
		return "(param " + quoteString(node.String) + " " + quoteString(node.TypeName) + ")"
	case NodeBlock:
		return "(block" + childrenSExpr(node.Children) + ")"
	case NodeAssignment:
		result := "(const "
		if node.Mutable {
			result = "(let "
		}
		result += quoteString(node.String)
		if node.TypeName != "" {
			result += " " + quoteString(node.TypeName)
		}
		return result + " " + ToSExpr(node.Children[0]) + ")"
	case NodeReassign:
		return "(assign " + quoteString(node.String) + " " + ToSExpr(node.Children[0]) + ")"
	case NodeVar:
		return "(ident " + quoteString(node.String) + ")"
	case NodeAttr:
		return "(attr " + quoteString(node.String) + " " + ToSExpr(node.Children[0]) + ")"
	case NodeCall:
		return "(call" + childrenSExpr(node.Children) + ")"
	case NodeBinary:
		return "(binary " + quoteString(node.Op) + childrenSExpr(node.Children) + ")"
	case NodeUnary:
		return "(unary " + quoteString(node.Op) + childrenSExpr(node.Children) + ")"
	case NodeIf:
		return "(if" + childrenSExpr(node.Children) + ")"
	case NodeWhile:
		return "(while" + childrenSExpr(node.Children) + ")"
	case NodeReturn:
		return "(return" + childrenSExpr(node.Children) + ")"
	case NodeBreak:
		return "(break)"
	case NodeUnreachable:
		return "(unreachable)"
	case NodeInteger:
		return "(integer " + strconv.FormatInt(node.Integer, 10) + ")"
	case NodeString:
		return "(string " + quoteString(node.String) + ")"
	case NodeBoolean:
		return "(boolean " + strconv.FormatBool(node.Boolean) + ")"
	case NodeStruct:
		result := "(struct " + quoteString(node.String)
		for i, name := range node.FieldNames {
			result += " (field " + quoteString(name) + " " + quoteString(node.FieldTypes[i]) + ")"
		}
		return result + ")"
	case NodeStructLiteral:
		result := "(struct-literal " + quoteString(node.TypeName)
		for i, name := range node.FieldNames {
			result += " (field " + quoteString(name) + " " + ToSExpr(node.Children[i]) + ")"
		}
		return result + ")"
	default:
		return "(unknown)"
	}
}

func childrenSExpr(children []*ASTNode) string {
	result := ""
	for _, child := range children {
		result += " " + ToSExpr(child)
	}
	return result
}

// TypedSExpr renders a typed tree as an s-expression. Types print by name:
// "number" and "unknown" mark handles inference never resolved.
func TypedSExpr(node *TypedNode, types *TypeTable) string {
	p := typedPrinter{types: types}
	return p.node(node)
}

type typedPrinter struct {
	types *TypeTable
}

func (p typedPrinter) children(nodes []*TypedNode) string {
	result := ""
	for _, child := range nodes {
		result += " " + p.node(child)
	}
	return result
}

func (p typedPrinter) node(n *TypedNode) string {
	t := p.types.Name(n.Type)
	slot := strconv.Itoa(n.Slot)
	switch n.Kind {
	case NodeProgram:
		return "(program" + p.children(n.Children) + ")"
	case NodeExtern:
		return "(extern " + quoteString(n.Name) + p.children(n.Children) + ")"
	case NodeExternFunc:
		params := make([]string, len(n.Sig.Params))
		for i, param := range n.Sig.Params {
			params[i] = p.types.Name(param)
		}
		return "(extern-fn " + quoteString(n.Name) + " (" + strings.Join(params, " ") + ") " + t + ")"
	case NodeExternVar:
		return "(extern-var " + quoteString(n.Name) + " " + t + ")"
	case NodeFunc:
		return "(fn " + quoteString(n.Name) + " " + t + p.children(n.Params) + " " + p.node(n.Body()) + ")"
	case NodeFuncArg:
		return "(param " + quoteString(n.Name) + " " + slot + " " + t + ")"
	case NodeBlock:
		return "(block " + t + p.children(n.Children) + ")"
	case NodeAssignment:
		head := "(const "
		if n.Mutable {
			head = "(let "
		}
		return head + quoteString(n.Name) + " " + slot + " " + t + p.children(n.Children) + ")"
	case NodeReassign:
		return "(assign " + quoteString(n.Name) + " " + slot + " " + p.types.Name(n.Children[0].Type) + p.children(n.Children) + ")"
	case NodeVar:
		if n.Global {
			return "(global " + quoteString(n.Name) + " " + t + ")"
		}
		return "(var " + quoteString(n.Name) + " " + slot + " " + t + ")"
	case NodeAttr:
		return "(attr " + quoteString(n.Name) + " " + t + p.children(n.Children) + ")"
	case NodeCall:
		return "(call " + quoteString(n.Name) + " " + t + p.children(n.Children) + ")"
	case NodeBinary:
		return "(binary " + quoteString(n.Op) + " " + t + p.children(n.Children) + ")"
	case NodeUnary:
		return "(unary " + quoteString(n.Op) + " " + t + p.children(n.Children) + ")"
	case NodeIf:
		return "(if " + t + p.children(n.Children) + ")"
	case NodeWhile:
		return "(while" + p.children(n.Children) + ")"
	case NodeReturn:
		return "(return " + t + p.children(n.Children) + ")"
	case NodeBreak:
		return "(break)"
	case NodeUnreachable:
		return "(unreachable)"
	case NodeInteger:
		return "(integer " + strconv.FormatInt(n.Integer, 10) + " " + t + ")"
	case NodeString:
		return "(string " + quoteString(n.String) + " " + t + ")"
	case NodeBoolean:
		return "(boolean " + strconv.FormatBool(n.Boolean) + ")"
	case NodeStruct:
		return "(struct " + quoteString(n.Name) + ")"
	case NodeStructLiteral:
		result := "(struct-literal " + quoteString(n.Name)
		for i, name := range n.FieldNames {
			result += " (field " + quoteString(name) + " " + p.node(n.Children[i]) + ")"
		}
		return result + ")"
	default:
		return "(unknown)"
	}
}

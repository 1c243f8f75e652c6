package compiler

import "log/slog"

// funcState is the per-function state of the Typechecker.
type funcState struct {
	name   string
	result TypeID
	params int
	locals []Local
	scope  int // id of the innermost open block
	scopes int // blocks opened so far
	loops  int // enclosing while loops
}

// Typechecker resolves an untyped tree into a typed tree in a single
// left-to-right pass. Integer literals start as "number" unknowns and get a
// concrete type when they are unified with something concrete.
type Typechecker struct {
	types  *TypeTable
	env    *Env
	fn     *funcState
	logger *slog.Logger
}

func NewTypechecker(types *TypeTable, logger *slog.Logger) *Typechecker {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Typechecker{types: types, env: NewEnv(nil), logger: logger}
}

func newTyped(kind NodeKind, line int, t TypeID) *TypedNode {
	return &TypedNode{Kind: kind, Line: line, Type: t, Slot: -1}
}

// describeNode names a statement for diagnostics.
func describeNode(n *ASTNode) string {
	switch n.Kind {
	case NodeAssignment:
		if n.Mutable {
			return "let declaration"
		}
		return "const declaration"
	case NodeReturn:
		return "return statement"
	case NodeBreak:
		return "break statement"
	case NodeUnreachable:
		return "unreachable statement"
	case NodeWhile:
		return "while loop"
	case NodeBlock:
		return "block"
	case NodeFunc:
		return "function declaration"
	case NodeExtern:
		return "extern block"
	case NodeStruct:
		return "struct declaration"
	default:
		return "expression"
	}
}

// Check resolves a whole program. The first error aborts the pass.
func (c *Typechecker) Check(program *ASTNode) (*TypedNode, error) {
	typed := newTyped(NodeProgram, program.Line, Void)
	for _, stmt := range program.Children {
		var node *TypedNode
		var err error
		switch stmt.Kind {
		case NodeFunc:
			node, err = c.function(stmt)
		case NodeExtern:
			node, err = c.extern(stmt)
		case NodeStruct:
			node, err = c.structDecl(stmt)
		default:
			err = errorf(InvalidStatement, stmt.Line, "%s is not allowed at top level", describeNode(stmt))
		}
		if err != nil {
			return nil, err
		}
		typed.Children = append(typed.Children, node)
	}
	c.finalize(typed)
	return typed, nil
}

// finalize replaces every type handle with its representative so later
// stages see concrete types wherever inference found one.
func (c *Typechecker) finalize(n *TypedNode) {
	n.Type = c.types.Resolve(n.Type)
	for i := range n.Locals {
		n.Locals[i].Type = c.types.Resolve(n.Locals[i].Type)
	}
	for _, p := range n.Params {
		c.finalize(p)
	}
	for _, child := range n.Children {
		c.finalize(child)
	}
}

func (c *Typechecker) typeFromName(name string, line int) (TypeID, error) {
	if decl, ok := c.env.LookupType(name); ok {
		return decl.Type, nil
	}
	id, err := c.types.FromName(name)
	return id, atLine(err, line)
}

func (c *Typechecker) extern(node *ASTNode) (*TypedNode, error) {
	typed := newTyped(NodeExtern, node.Line, Void)
	typed.Name = node.String
	for _, imp := range node.Children {
		t := newTyped(imp.Kind, imp.Line, Void)
		t.Name = node.String + ":" + imp.String
		t.Module = node.String
		t.Field = imp.String

		switch imp.Kind {
		case NodeExternFunc:
			sig := &Signature{}
			for _, name := range imp.ArgTypes {
				param, err := c.typeFromName(name, imp.Line)
				if err != nil {
					return nil, err
				}
				sig.Params = append(sig.Params, param)
			}
			result, err := c.typeFromName(imp.TypeName, imp.Line)
			if err != nil {
				return nil, err
			}
			sig.Result = result
			if _, err := c.env.DeclareFunction(t.Name, sig); err != nil {
				return nil, atLine(err, imp.Line)
			}
			t.Sig = sig
			t.Type = result

		case NodeExternVar:
			vt, err := c.typeFromName(imp.TypeName, imp.Line)
			if err != nil {
				return nil, err
			}
			sym, err := c.env.DeclareValue(t.Name, vt, false, -1)
			if err != nil {
				return nil, atLine(err, imp.Line)
			}
			sym.Host = true
			t.Type = vt
		}
		typed.Children = append(typed.Children, t)
	}
	return typed, nil
}

func (c *Typechecker) structDecl(node *ASTNode) (*TypedNode, error) {
	decl := &StructDecl{Name: node.String, Type: c.types.StructType(node.String)}
	for i, name := range node.FieldNames {
		if _, dup := decl.Field(name); dup {
			return nil, errorf(DuplicateDeclaration, node.Line, "field %s is declared twice in struct %s", name, node.String)
		}
		ft, err := c.typeFromName(node.FieldTypes[i], node.Line)
		if err != nil {
			return nil, err
		}
		decl.Fields = append(decl.Fields, Field{Name: name, Type: ft})
	}
	if err := c.env.DeclareType(decl); err != nil {
		return nil, atLine(err, node.Line)
	}
	typed := newTyped(NodeStruct, node.Line, decl.Type)
	typed.Name = node.String
	return typed, nil
}

func (c *Typechecker) function(node *ASTNode) (*TypedNode, error) {
	sig := &Signature{}
	for _, arg := range node.Args() {
		t, err := c.typeFromName(arg.TypeName, arg.Line)
		if err != nil {
			return nil, err
		}
		sig.Params = append(sig.Params, t)
	}
	result, err := c.typeFromName(node.TypeName, node.Line)
	if err != nil {
		return nil, err
	}
	sig.Result = result

	// Declared before the body so the function can call itself.
	if _, err := c.env.DeclareFunction(node.String, sig); err != nil {
		return nil, atLine(err, node.Line)
	}

	c.fn = &funcState{name: node.String, result: result, params: len(sig.Params)}
	defer func() { c.fn = nil }()

	scope := NewEnv(c.env)
	var params []*TypedNode
	for i, arg := range node.Args() {
		if _, err := scope.DeclareValue(arg.String, sig.Params[i], false, i); err != nil {
			return nil, atLine(err, arg.Line)
		}
		p := newTyped(NodeFuncArg, arg.Line, sig.Params[i])
		p.Name = arg.String
		p.Slot = i
		params = append(params, p)
	}

	body, err := c.block(node.Body(), scope)
	if err != nil {
		return nil, err
	}

	c.types.Unify(result, body.Type)
	if !c.types.Same(result, body.Type) && !(c.types.Same(body.Type, Void) && terminates(body)) {
		if c.types.Same(body.Type, Void) {
			return nil, errorf(ReturnTypeMismatch, node.Line, "function %s must return %s on every path", node.String, c.types.Name(result))
		}
		return nil, errorf(ReturnTypeMismatch, node.Line, "function %s should return %s but its body returns %s",
			node.String, c.types.Name(result), c.types.Name(body.Type))
	}

	typed := newTyped(NodeFunc, node.Line, result)
	typed.Name = node.String
	typed.Sig = sig
	typed.Params = params
	typed.Locals = c.fn.locals
	typed.Children = []*TypedNode{body}

	c.logger.Debug("resolved function", "name", node.String, "params", len(params), "locals", len(c.fn.locals))
	return typed, nil
}

// terminates reports whether control never reaches the end of n.
func terminates(n *TypedNode) bool {
	switch n.Kind {
	case NodeReturn, NodeUnreachable:
		return true
	case NodeBlock:
		for _, stmt := range n.Children {
			if terminates(stmt) {
				return true
			}
		}
	case NodeIf:
		return len(n.Children) == 3 && terminates(n.Children[1]) && terminates(n.Children[2])
	}
	return false
}

// block resolves a block in a new scope. env is a child of the current scope
// to use, or nil to open a fresh one; its parent is current again afterwards.
// The block's type is that of its last direct return statement, or void.
func (c *Typechecker) block(node *ASTNode, env *Env) (*TypedNode, error) {
	if env == nil {
		env = NewEnv(c.env)
	}
	savedScope := c.fn.scope
	c.env = env
	c.fn.scopes++
	c.fn.scope = c.fn.scopes
	defer func() {
		c.env = env.Parent()
		c.fn.scope = savedScope
	}()

	typed := newTyped(NodeBlock, node.Line, Void)
	for _, stmt := range node.Children {
		s, err := c.statement(stmt)
		if err != nil {
			return nil, err
		}
		if s.Kind == NodeReturn {
			typed.Type = s.Type
		}
		typed.Children = append(typed.Children, s)
	}
	return typed, nil
}

func (c *Typechecker) statement(node *ASTNode) (*TypedNode, error) {
	switch node.Kind {
	case NodeAssignment:
		return c.declaration(node)
	case NodeReturn:
		return c.returnStmt(node)
	case NodeBreak:
		if c.fn.loops == 0 {
			return nil, errorf(BreakOutsideLoop, node.Line, "break outside of a loop")
		}
		return newTyped(NodeBreak, node.Line, Void), nil
	case NodeUnreachable:
		return newTyped(NodeUnreachable, node.Line, Void), nil
	case NodeWhile:
		return c.while(node)
	case NodeBlock:
		return c.block(node, nil)
	case NodeStruct:
		return c.structDecl(node)
	case NodeFunc, NodeExtern:
		return nil, errorf(InvalidStatement, node.Line, "%s must be at top level", describeNode(node))
	default:
		return c.expr(node)
	}
}

func (c *Typechecker) declaration(node *ASTNode) (*TypedNode, error) {
	value, err := c.expr(node.Children[0])
	if err != nil {
		return nil, err
	}

	t := value.Type
	if node.TypeName != "" {
		declared, err := c.typeFromName(node.TypeName, node.Line)
		if err != nil {
			return nil, err
		}
		c.types.Unify(declared, value.Type)
		if !c.types.Same(declared, value.Type) {
			return nil, errorf(TypeMismatch, node.Line, "cannot initialize %s of type %s with %s",
				node.String, c.types.Name(declared), c.types.Name(value.Type))
		}
		t = declared
	}
	if c.types.Same(t, Void) {
		return nil, errorf(TypeMismatch, node.Line, "cannot declare %s with a void value", node.String)
	}

	slot := c.fn.params + len(c.fn.locals)
	if _, err := c.env.DeclareValue(node.String, t, node.Mutable, slot); err != nil {
		return nil, atLine(err, node.Line)
	}
	c.fn.locals = append(c.fn.locals, Local{Name: node.String, Type: t, Scope: c.fn.scope})

	typed := newTyped(NodeAssignment, node.Line, t)
	typed.Name = node.String
	typed.Slot = slot
	typed.Mutable = node.Mutable
	typed.Children = []*TypedNode{value}
	return typed, nil
}

func (c *Typechecker) returnStmt(node *ASTNode) (*TypedNode, error) {
	typed := newTyped(NodeReturn, node.Line, Void)
	if len(node.Children) == 1 {
		value, err := c.expr(node.Children[0])
		if err != nil {
			return nil, err
		}
		typed.Type = value.Type
		typed.Children = []*TypedNode{value}
	}
	c.types.Unify(c.fn.result, typed.Type)
	if !c.types.Same(c.fn.result, typed.Type) {
		return nil, errorf(ReturnTypeMismatch, node.Line, "function %s returns %s, not %s",
			c.fn.name, c.types.Name(c.fn.result), c.types.Name(typed.Type))
	}
	return typed, nil
}

func (c *Typechecker) while(node *ASTNode) (*TypedNode, error) {
	cond, err := c.condition(node.Children[0], "while")
	if err != nil {
		return nil, err
	}
	c.fn.loops++
	body, err := c.block(node.Children[1], nil)
	c.fn.loops--
	if err != nil {
		return nil, err
	}
	typed := newTyped(NodeWhile, node.Line, Void)
	typed.Children = []*TypedNode{cond, body}
	return typed, nil
}

func (c *Typechecker) condition(node *ASTNode, what string) (*TypedNode, error) {
	cond, err := c.expr(node)
	if err != nil {
		return nil, err
	}
	if !c.types.Same(cond.Type, Bool) {
		return nil, errorf(NonBooleanCondition, node.Line, "%s condition must be bool, got %s", what, c.types.Name(cond.Type))
	}
	return cond, nil
}

func (c *Typechecker) expr(node *ASTNode) (*TypedNode, error) {
	switch node.Kind {
	case NodeInteger:
		typed := newTyped(NodeInteger, node.Line, c.types.NewUnknown(SubspecNumber))
		typed.Integer = node.Integer
		return typed, nil
	case NodeString:
		typed := newTyped(NodeString, node.Line, String)
		typed.String = node.String
		return typed, nil
	case NodeBoolean:
		typed := newTyped(NodeBoolean, node.Line, Bool)
		typed.Boolean = node.Boolean
		return typed, nil
	case NodeVar:
		return c.variable(node)
	case NodeReassign:
		return c.reassign(node)
	case NodeCall:
		return c.call(node)
	case NodeBinary:
		return c.binary(node)
	case NodeUnary:
		return c.unary(node)
	case NodeIf:
		return c.ifExpr(node)
	case NodeAttr:
		return c.attr(node)
	case NodeStructLiteral:
		return c.structLiteral(node)
	default:
		return nil, errorf(InvalidStatement, node.Line, "%s is not an expression", describeNode(node))
	}
}

func (c *Typechecker) variable(node *ASTNode) (*TypedNode, error) {
	sym, err := c.env.LookupValue(node.String)
	if err != nil {
		return nil, atLine(err, node.Line)
	}
	if sym.Kind == SymbolFunction {
		return nil, errorf(Unsupported, node.Line, "function %s cannot be used as a value", node.String)
	}
	typed := newTyped(NodeVar, node.Line, sym.Type)
	typed.Name = sym.Name
	typed.Slot = sym.Slot
	typed.Global = sym.Host
	return typed, nil
}

func (c *Typechecker) reassign(node *ASTNode) (*TypedNode, error) {
	value, err := c.expr(node.Children[0])
	if err != nil {
		return nil, err
	}
	sym, err := c.env.Reassign(c.types, node.String, value.Type)
	if err != nil {
		return nil, atLine(err, node.Line)
	}
	typed := newTyped(NodeReassign, node.Line, Void)
	typed.Name = sym.Name
	typed.Slot = sym.Slot
	typed.Children = []*TypedNode{value}
	return typed, nil
}

func (c *Typechecker) call(node *ASTNode) (*TypedNode, error) {
	callee := node.Children[0]
	if callee.Kind != NodeVar {
		return nil, errorf(NotCallable, node.Line, "%s is not callable", describeNode(callee))
	}
	sym, err := c.env.LookupValue(callee.String)
	if err != nil {
		return nil, atLine(err, callee.Line)
	}
	if sym.Kind != SymbolFunction {
		return nil, errorf(NotCallable, node.Line, "%s is not a function", callee.String)
	}

	var args []*TypedNode
	for _, argNode := range node.Children[1:] {
		arg, err := c.expr(argNode)
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
	}
	if len(args) != sym.Arity() {
		return nil, errorf(ArityMismatch, node.Line, "%s expects %d arguments but got %d", sym.Name, sym.Arity(), len(args))
	}
	for i, arg := range args {
		param := sym.Sig.Params[i]
		c.types.Unify(param, arg.Type)
		if !c.types.Same(param, arg.Type) {
			return nil, errorf(TypeMismatch, arg.Line, "argument %d of %s: expected %s, got %s",
				i+1, sym.Name, c.types.Name(param), c.types.Name(arg.Type))
		}
	}

	typed := newTyped(NodeCall, node.Line, sym.Sig.Result)
	typed.Name = sym.Name
	typed.Children = args
	return typed, nil
}

func (c *Typechecker) binary(node *ASTNode) (*TypedNode, error) {
	left, err := c.expr(node.Children[0])
	if err != nil {
		return nil, err
	}
	right, err := c.expr(node.Children[1])
	if err != nil {
		return nil, err
	}

	c.types.Unify(left.Type, right.Type)
	if !c.types.Same(left.Type, right.Type) {
		return nil, errorf(TypeMismatch, node.Line, "mismatched types for %s: %s and %s",
			node.Op, c.types.Name(left.Type), c.types.Name(right.Type))
	}

	t := Bool
	operand := left.Type
	switch node.Op {
	case "+", "-", "*", "/":
		if !c.types.IsNumeric(operand) {
			return nil, c.invalidOperand(node, "numeric", operand)
		}
		t = operand
	case "%":
		if !c.types.IsInteger(operand) {
			return nil, c.invalidOperand(node, "integer", operand)
		}
		t = operand
	case "<", "<=", ">", ">=":
		if !c.types.IsNumeric(operand) {
			return nil, c.invalidOperand(node, "numeric", operand)
		}
	case "==", "!=":
		if !c.types.IsNumeric(operand) && !c.types.Same(operand, Bool) && !c.types.Same(operand, String) {
			return nil, c.invalidOperand(node, "comparable", operand)
		}
	case "&&", "||":
		if !c.types.Same(operand, Bool) {
			return nil, c.invalidOperand(node, "bool", operand)
		}
	default:
		return nil, errorf(Unsupported, node.Line, "unknown operator %s", node.Op)
	}

	typed := newTyped(NodeBinary, node.Line, t)
	typed.Op = node.Op
	typed.Children = []*TypedNode{left, right}
	return typed, nil
}

func (c *Typechecker) invalidOperand(node *ASTNode, want string, got TypeID) error {
	return errorf(InvalidOperandType, node.Line, "operator %s needs %s operands, got %s", node.Op, want, c.types.Name(got))
}

func (c *Typechecker) unary(node *ASTNode) (*TypedNode, error) {
	operand, err := c.expr(node.Children[0])
	if err != nil {
		return nil, err
	}

	var t TypeID
	switch node.Op {
	case "-":
		if !c.types.IsNumeric(operand.Type) {
			return nil, c.invalidOperand(node, "a numeric", operand.Type)
		}
		t = operand.Type
	case "!":
		if !c.types.Same(operand.Type, Bool) {
			return nil, c.invalidOperand(node, "a bool", operand.Type)
		}
		t = Bool
	default:
		return nil, errorf(Unsupported, node.Line, "unknown operator %s", node.Op)
	}

	typed := newTyped(NodeUnary, node.Line, t)
	typed.Op = node.Op
	typed.Children = []*TypedNode{operand}
	return typed, nil
}

// ifExpr resolves an if. Without an else branch its type is the then
// branch's; with one, both branches must agree.
func (c *Typechecker) ifExpr(node *ASTNode) (*TypedNode, error) {
	cond, err := c.condition(node.Children[0], "if")
	if err != nil {
		return nil, err
	}
	then, err := c.block(node.Children[1], nil)
	if err != nil {
		return nil, err
	}

	typed := newTyped(NodeIf, node.Line, then.Type)
	typed.Children = []*TypedNode{cond, then}
	if len(node.Children) == 3 {
		var els *TypedNode
		if node.Children[2].Kind == NodeIf {
			els, err = c.ifExpr(node.Children[2])
		} else {
			els, err = c.block(node.Children[2], nil)
		}
		if err != nil {
			return nil, err
		}
		c.types.Unify(then.Type, els.Type)
		if !c.types.Same(then.Type, els.Type) {
			return nil, errorf(TypeMismatch, node.Line, "if branches have different types: %s and %s",
				c.types.Name(then.Type), c.types.Name(els.Type))
		}
		typed.Children = append(typed.Children, els)
	}
	return typed, nil
}

func (c *Typechecker) attr(node *ASTNode) (*TypedNode, error) {
	value, err := c.expr(node.Children[0])
	if err != nil {
		return nil, err
	}
	d := c.types.Lookup(c.types.Resolve(value.Type))
	if d.Kind != KindStruct {
		return nil, errorf(InvalidOperandType, node.Line, "cannot access field %s of %s", node.String, c.types.Name(value.Type))
	}
	decl, ok := c.env.LookupType(d.Name)
	if !ok {
		return nil, errorf(UnknownTypeName, node.Line, "unknown struct %s", d.Name)
	}
	field, ok := decl.Field(node.String)
	if !ok {
		return nil, errorf(UnknownStructField, node.Line, "struct %s has no field %s", d.Name, node.String)
	}

	typed := newTyped(NodeAttr, node.Line, field.Type)
	typed.Name = node.String
	typed.Children = []*TypedNode{value}
	return typed, nil
}

// structLiteral checks a literal against its struct declaration. A literal
// without a type name gets an unknown type and is not checked.
func (c *Typechecker) structLiteral(node *ASTNode) (*TypedNode, error) {
	typed := newTyped(NodeStructLiteral, node.Line, Void)
	typed.Name = node.TypeName
	typed.FieldNames = node.FieldNames

	values := make(map[string]*TypedNode)
	for i, name := range node.FieldNames {
		if _, dup := values[name]; dup {
			return nil, errorf(DuplicateDeclaration, node.Line, "field %s is set twice", name)
		}
		value, err := c.expr(node.Children[i])
		if err != nil {
			return nil, err
		}
		values[name] = value
		typed.Children = append(typed.Children, value)
	}

	if node.TypeName == "" {
		typed.Type = c.types.NewUnknown(SubspecNone)
		return typed, nil
	}
	decl, ok := c.env.LookupType(node.TypeName)
	if !ok {
		return nil, errorf(UnknownTypeName, node.Line, "unknown struct %s", node.TypeName)
	}
	typed.Type = decl.Type

	for _, name := range node.FieldNames {
		if _, ok := decl.Field(name); !ok {
			return nil, errorf(UnknownStructField, node.Line, "struct %s has no field %s", decl.Name, name)
		}
	}
	for _, field := range decl.Fields {
		value, ok := values[field.Name]
		if !ok {
			return nil, errorf(MissingStructField, node.Line, "struct literal of %s is missing field %s", decl.Name, field.Name)
		}
		c.types.Unify(field.Type, value.Type)
		if !c.types.Same(field.Type, value.Type) {
			return nil, errorf(TypeMismatch, value.Line, "field %s of %s: expected %s, got %s",
				field.Name, decl.Name, c.types.Name(field.Type), c.types.Name(value.Type))
		}
	}
	return typed, nil
}

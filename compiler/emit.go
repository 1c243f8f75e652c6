package compiler

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/strager/taro/wasm"
)

// Emitter lowers a typed tree to a wasm module.
type Emitter struct {
	types   *TypeTable
	opts    Options
	logger  *slog.Logger
	module  *wasm.Module
	strings *StringPool
	fn      *emitFunc
}

type emitFunc struct {
	breaks []string // innermost last
	loops  int
}

func NewEmitter(types *TypeTable, opts Options) *Emitter {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Emitter{
		types:   types,
		opts:    opts,
		logger:  logger,
		module:  wasm.NewModule(),
		strings: NewStringPool(NewAllocator()),
	}
}

// Emit lowers a typed program and validates the result. It returns the
// module and the linear-memory segments holding the string constants.
func (e *Emitter) Emit(program *TypedNode) (*wasm.Module, []Segment, error) {
	for _, n := range program.Children {
		var err error
		switch n.Kind {
		case NodeExtern:
			err = e.extern(n)
		case NodeFunc:
			err = e.function(n)
		case NodeStruct:
			// Declarations only; no code.
		default:
			err = errorf(InvalidStatement, n.Line, "unexpected top-level node")
		}
		if err != nil {
			return nil, nil, err
		}
	}

	segments := e.strings.Segments()
	data := make([]wasm.Segment, len(segments))
	for i, seg := range segments {
		data[i] = wasm.Segment{Offset: seg.Offset, Data: seg.Data}
	}
	e.module.SetMemory(e.opts.MemoryMinPages, e.opts.MemoryMaxPages, e.opts.MemoryExportName, data)

	for _, fn := range e.module.Functions {
		if e.opts.ExportFunctions {
			e.module.AddFunctionExport(fn.Name, fn.Name)
		}
		if fn.Name == e.opts.StartFunction {
			e.module.SetStart(fn.Name)
		}
	}

	if err := e.module.Validate(); err != nil {
		return nil, nil, errorf(InvalidModule, 0, "%v", err)
	}
	e.logger.Debug("emitted module", "functions", len(e.module.Functions), "imports", len(e.module.Imports), "segments", len(segments))
	return e.module, segments, nil
}

// machineType maps a resolved type handle to its wasm value type.
func (e *Emitter) machineType(t TypeID, line int) (wasm.ValType, error) {
	d := e.types.Lookup(e.types.Resolve(t))
	switch d.Kind {
	case KindUnknown:
		return wasm.None, errorf(UnresolvedType, line, "cannot infer the type of this %s expression", e.types.Name(t))
	case KindPrimitive:
		switch d.Prim {
		case PrimVoid:
			return wasm.None, nil
		case PrimI32, PrimString, PrimBool:
			return wasm.I32, nil
		case PrimI64:
			return wasm.I64, nil
		case PrimF32:
			return wasm.F32, nil
		case PrimF64:
			return wasm.F64, nil
		case PrimV128:
			return wasm.V128, nil
		}
	}
	return wasm.None, errorf(Unsupported, line, "values of type %s cannot be compiled", e.types.Name(t))
}

func (e *Emitter) valueType(t TypeID, line int, what string) (wasm.ValType, error) {
	vt, err := e.machineType(t, line)
	if err != nil {
		return vt, err
	}
	if !vt.IsValue() {
		return vt, errorf(Unsupported, line, "%s cannot be void", what)
	}
	return vt, nil
}

func (e *Emitter) extern(n *TypedNode) error {
	for _, imp := range n.Children {
		switch imp.Kind {
		case NodeExternFunc:
			var params []wasm.ValType
			for _, p := range imp.Sig.Params {
				vt, err := e.valueType(p, imp.Line, "host function parameter")
				if err != nil {
					return err
				}
				params = append(params, vt)
			}
			result, err := e.machineType(imp.Sig.Result, imp.Line)
			if err != nil {
				return err
			}
			e.module.AddFunctionImport(imp.Name, imp.Module, imp.Field, params, result)
		case NodeExternVar:
			vt, err := e.valueType(imp.Type, imp.Line, "host variable")
			if err != nil {
				return err
			}
			e.module.AddGlobalImport(imp.Name, imp.Module, imp.Field, vt)
		}
	}
	return nil
}

func (e *Emitter) function(n *TypedNode) error {
	var params []wasm.ValType
	for _, p := range n.Params {
		vt, err := e.valueType(p.Type, p.Line, "parameter "+p.Name)
		if err != nil {
			return err
		}
		params = append(params, vt)
	}
	result, err := e.machineType(n.Sig.Result, n.Line)
	if err != nil {
		return err
	}
	var locals []wasm.ValType
	for _, l := range n.Locals {
		vt, err := e.valueType(l.Type, n.Line, "local "+l.Name)
		if err != nil {
			return err
		}
		locals = append(locals, vt)
	}

	e.fn = &emitFunc{}
	defer func() { e.fn = nil }()
	body, err := e.block(n.Body())
	if err != nil {
		return err
	}
	e.module.AddFunction(n.Name, params, result, locals, body)
	e.logger.Debug("emitted function", "name", n.Name, "locals", len(locals))
	return nil
}

func (e *Emitter) block(n *TypedNode) (*wasm.Instr, error) {
	var body []*wasm.Instr
	for _, stmt := range n.Children {
		in, err := e.statement(stmt)
		if err != nil {
			return nil, err
		}
		if in != nil {
			body = append(body, in)
		}
	}
	return wasm.Block("", body...), nil
}

// statement lowers n so that it leaves nothing on the stack. It returns nil
// for nodes that produce no code.
func (e *Emitter) statement(n *TypedNode) (*wasm.Instr, error) {
	switch n.Kind {
	case NodeStruct:
		return nil, nil
	case NodeAssignment:
		value, err := e.expr(n.Children[0])
		if err != nil {
			return nil, err
		}
		return wasm.LocalSet(uint32(n.Slot), value), nil
	case NodeReturn:
		if len(n.Children) == 0 {
			return wasm.Return(nil), nil
		}
		value, err := e.expr(n.Children[0])
		if err != nil {
			return nil, err
		}
		if !value.Type.IsValue() {
			return wasm.Block("", value, wasm.Return(nil)), nil
		}
		return wasm.Return(value), nil
	case NodeBreak:
		return wasm.Br(e.fn.breaks[len(e.fn.breaks)-1]), nil
	case NodeUnreachable:
		return wasm.Trap(), nil
	case NodeWhile:
		return e.while(n)
	case NodeBlock:
		return e.block(n)
	}

	in, err := e.expr(n)
	if err != nil {
		return nil, err
	}
	if in.Type.IsValue() {
		return wasm.Drop(in), nil
	}
	return in, nil
}

// while lowers a pre-test loop:
//
//	if cond { block $brk { loop $cont { body; br_if $cont cond } } }
func (e *Emitter) while(n *TypedNode) (*wasm.Instr, error) {
	e.fn.loops++
	id := e.fn.loops
	brk := fmt.Sprintf("while_%d_break", id)
	cont := fmt.Sprintf("while_%d_continue", id)

	cond, err := e.expr(n.Children[0])
	if err != nil {
		return nil, err
	}
	again, err := e.expr(n.Children[0])
	if err != nil {
		return nil, err
	}

	e.fn.breaks = append(e.fn.breaks, brk)
	body, err := e.block(n.Children[1])
	e.fn.breaks = e.fn.breaks[:len(e.fn.breaks)-1]
	if err != nil {
		return nil, err
	}

	loop := wasm.Loop(cont, body, wasm.BrIf(cont, again))
	return wasm.If(cond, []*wasm.Instr{wasm.Block(brk, loop)}, nil), nil
}

func (e *Emitter) expr(n *TypedNode) (*wasm.Instr, error) {
	switch n.Kind {
	case NodeInteger:
		return e.integer(n)
	case NodeString:
		return wasm.I32Const(int32(e.strings.Intern(n.String))), nil
	case NodeBoolean:
		if n.Boolean {
			return wasm.I32Const(1), nil
		}
		return wasm.I32Const(0), nil
	case NodeVar:
		vt, err := e.valueType(n.Type, n.Line, n.Name)
		if err != nil {
			return nil, err
		}
		if n.Global {
			return wasm.GlobalGet(n.Name, vt), nil
		}
		return wasm.LocalGet(uint32(n.Slot), vt), nil
	case NodeReassign:
		value, err := e.expr(n.Children[0])
		if err != nil {
			return nil, err
		}
		return wasm.LocalSet(uint32(n.Slot), value), nil
	case NodeCall:
		var args []*wasm.Instr
		for _, arg := range n.Children {
			in, err := e.expr(arg)
			if err != nil {
				return nil, err
			}
			args = append(args, in)
		}
		result, err := e.machineType(n.Type, n.Line)
		if err != nil {
			return nil, err
		}
		return wasm.Call(n.Name, args, result), nil
	case NodeBinary:
		return e.binary(n)
	case NodeUnary:
		return e.unary(n)
	case NodeIf:
		return e.ifExpr(n)
	case NodeAttr, NodeStructLiteral:
		return nil, errorf(Unsupported, n.Line, "struct values cannot be compiled")
	default:
		return nil, errorf(Unsupported, n.Line, "cannot compile %s node", n.Kind)
	}
}

func (e *Emitter) integer(n *TypedNode) (*wasm.Instr, error) {
	vt, err := e.machineType(n.Type, n.Line)
	if err != nil {
		return nil, err
	}
	switch vt {
	case wasm.I32:
		if n.Integer > math.MaxInt32 || n.Integer < math.MinInt32 {
			return nil, errorf(Unsupported, n.Line, "%d does not fit in i32", n.Integer)
		}
		return wasm.I32Const(int32(n.Integer)), nil
	case wasm.I64:
		return wasm.I64Const(n.Integer), nil
	case wasm.F32:
		return wasm.F32Const(float32(n.Integer)), nil
	case wasm.F64:
		return wasm.F64Const(float64(n.Integer)), nil
	}
	return nil, errorf(Unsupported, n.Line, "integer literal of type %s", e.types.Name(n.Type))
}

// binaryOps maps an operator to its opcode per operand type. A zero entry
// means the operator is not defined for that type.
var binaryOps = map[string]map[wasm.ValType]byte{
	"+":  {wasm.I32: wasm.I32_ADD, wasm.I64: wasm.I64_ADD, wasm.F32: wasm.F32_ADD, wasm.F64: wasm.F64_ADD},
	"-":  {wasm.I32: wasm.I32_SUB, wasm.I64: wasm.I64_SUB, wasm.F32: wasm.F32_SUB, wasm.F64: wasm.F64_SUB},
	"*":  {wasm.I32: wasm.I32_MUL, wasm.I64: wasm.I64_MUL, wasm.F32: wasm.F32_MUL, wasm.F64: wasm.F64_MUL},
	"/":  {wasm.I32: wasm.I32_DIV_S, wasm.I64: wasm.I64_DIV_S, wasm.F32: wasm.F32_DIV, wasm.F64: wasm.F64_DIV},
	"%":  {wasm.I32: wasm.I32_REM_S, wasm.I64: wasm.I64_REM_S},
	"==": {wasm.I32: wasm.I32_EQ, wasm.I64: wasm.I64_EQ, wasm.F32: wasm.F32_EQ, wasm.F64: wasm.F64_EQ},
	"!=": {wasm.I32: wasm.I32_NE, wasm.I64: wasm.I64_NE, wasm.F32: wasm.F32_NE, wasm.F64: wasm.F64_NE},
	"<":  {wasm.I32: wasm.I32_LT_S, wasm.I64: wasm.I64_LT_S, wasm.F32: wasm.F32_LT, wasm.F64: wasm.F64_LT},
	"<=": {wasm.I32: wasm.I32_LE_S, wasm.I64: wasm.I64_LE_S, wasm.F32: wasm.F32_LE, wasm.F64: wasm.F64_LE},
	">":  {wasm.I32: wasm.I32_GT_S, wasm.I64: wasm.I64_GT_S, wasm.F32: wasm.F32_GT, wasm.F64: wasm.F64_GT},
	">=": {wasm.I32: wasm.I32_GE_S, wasm.I64: wasm.I64_GE_S, wasm.F32: wasm.F32_GE, wasm.F64: wasm.F64_GE},
}

func (e *Emitter) binary(n *TypedNode) (*wasm.Instr, error) {
	left, err := e.expr(n.Children[0])
	if err != nil {
		return nil, err
	}
	right, err := e.expr(n.Children[1])
	if err != nil {
		return nil, err
	}

	switch n.Op {
	case "&&":
		return wasm.If(left, []*wasm.Instr{right}, []*wasm.Instr{wasm.I32Const(0)}), nil
	case "||":
		return wasm.If(left, []*wasm.Instr{wasm.I32Const(1)}, []*wasm.Instr{right}), nil
	}

	operand, err := e.machineType(n.Children[0].Type, n.Line)
	if err != nil {
		return nil, err
	}
	op, ok := binaryOps[n.Op][operand]
	if !ok {
		return nil, errorf(Unsupported, n.Line, "operator %s is not defined for %s", n.Op, e.types.Name(n.Children[0].Type))
	}
	return wasm.Binary(op, left, right), nil
}

func (e *Emitter) unary(n *TypedNode) (*wasm.Instr, error) {
	operand, err := e.expr(n.Children[0])
	if err != nil {
		return nil, err
	}
	if n.Op == "!" {
		return wasm.Unary(wasm.I32_EQZ, operand), nil
	}

	switch operand.Type {
	case wasm.I32:
		return wasm.Binary(wasm.I32_SUB, wasm.I32Const(0), operand), nil
	case wasm.I64:
		return wasm.Binary(wasm.I64_SUB, wasm.I64Const(0), operand), nil
	case wasm.F32:
		return wasm.Unary(wasm.F32_NEG, operand), nil
	case wasm.F64:
		return wasm.Unary(wasm.F64_NEG, operand), nil
	}
	return nil, errorf(Unsupported, n.Line, "cannot negate %s", e.types.Name(n.Type))
}

func (e *Emitter) ifExpr(n *TypedNode) (*wasm.Instr, error) {
	cond, err := e.expr(n.Children[0])
	if err != nil {
		return nil, err
	}
	then, err := e.statement(n.Children[1])
	if err != nil {
		return nil, err
	}
	var els []*wasm.Instr
	if len(n.Children) == 3 {
		in, err := e.statement(n.Children[2])
		if err != nil {
			return nil, err
		}
		els = []*wasm.Instr{in}
	}
	return wasm.If(cond, []*wasm.Instr{then}, els), nil
}

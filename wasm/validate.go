package wasm

import (
	"errors"
	"fmt"
)

const pageSize = 65536

// maxPages is the largest memory a 32-bit module can declare.
const maxPages = 65536

// Validate checks the module the way an engine would before instantiating
// it: every instruction's operands have the right types, every sequence
// leaves exactly its declared result on the stack, and every name resolves.
func (m *Module) Validate() error {
	seen := make(map[string]bool)
	for _, imp := range m.Imports {
		if seen[imp.Name] {
			return fmt.Errorf("duplicate function name %q", imp.Name)
		}
		seen[imp.Name] = true
		if err := checkSignature(imp.Name, imp.Params, imp.Result); err != nil {
			return err
		}
	}
	for _, fn := range m.Functions {
		if seen[fn.Name] {
			return fmt.Errorf("duplicate function name %q", fn.Name)
		}
		seen[fn.Name] = true
		if err := checkSignature(fn.Name, fn.Params, fn.Result); err != nil {
			return err
		}
	}

	globals := make(map[string]bool)
	for _, g := range m.Globals {
		if globals[g.Name] {
			return fmt.Errorf("duplicate global name %q", g.Name)
		}
		globals[g.Name] = true
		if !g.Type.IsValue() {
			return fmt.Errorf("global %q: invalid type %s", g.Name, g.Type)
		}
	}

	for _, fn := range m.Functions {
		if err := m.validateFunction(fn); err != nil {
			return fmt.Errorf("function %s: %w", fn.Name, err)
		}
	}

	exported := make(map[string]bool)
	if m.Memory != nil && m.Memory.ExportName != "" {
		exported[m.Memory.ExportName] = true
	}
	for _, exp := range m.Exports {
		if exported[exp.Name] {
			return fmt.Errorf("duplicate export name %q", exp.Name)
		}
		exported[exp.Name] = true
		if _, ok := m.funcIndex(exp.Func); !ok {
			return fmt.Errorf("export %q: unknown function %q", exp.Name, exp.Func)
		}
	}

	if m.Start != "" {
		params, result, ok := m.signature(m.Start)
		if !ok {
			return fmt.Errorf("start function %q does not exist", m.Start)
		}
		if len(params) != 0 || result != None {
			return fmt.Errorf("start function %q must take no parameters and return nothing", m.Start)
		}
	}

	return m.validateMemory()
}

func checkSignature(name string, params []ValType, result ValType) error {
	for _, p := range params {
		if !p.IsValue() {
			return fmt.Errorf("function %s: invalid parameter type %s", name, p)
		}
	}
	if result != None && !result.IsValue() {
		return fmt.Errorf("function %s: invalid result type %s", name, result)
	}
	return nil
}

func (m *Module) validateMemory() error {
	if m.Memory == nil {
		return nil
	}
	mem := m.Memory
	if mem.Min > mem.Max {
		return fmt.Errorf("memory: minimum %d pages exceeds maximum %d", mem.Min, mem.Max)
	}
	if mem.Max > maxPages {
		return fmt.Errorf("memory: maximum %d pages exceeds limit %d", mem.Max, maxPages)
	}
	limit := uint64(mem.Min) * pageSize
	for _, seg := range mem.Segments {
		end := uint64(seg.Offset) + uint64(len(seg.Data))
		if end > limit {
			return fmt.Errorf("data segment at %d (%d bytes) exceeds initial memory of %d bytes", seg.Offset, len(seg.Data), limit)
		}
	}
	return nil
}

type funcValidator struct {
	m      *Module
	fn     *Function
	locals []ValType
	labels []string
}

func (m *Module) validateFunction(fn *Function) error {
	if fn.Body == nil {
		return errors.New("missing body")
	}
	for _, l := range fn.Locals {
		if !l.IsValue() {
			return fmt.Errorf("invalid local type %s", l)
		}
	}
	v := &funcValidator{
		m:      m,
		fn:     fn,
		locals: append(append([]ValType{}, fn.Params...), fn.Locals...),
	}
	return v.sequence([]*Instr{fn.Body}, fn.Result)
}

// sequence validates a list of instructions executed in order and checks
// that, unless control never reaches the end, exactly want is left on the
// stack (nothing when want is None).
func (v *funcValidator) sequence(seq []*Instr, want ValType) error {
	var stack []ValType
	reachable := true
	for _, in := range seq {
		if err := v.instr(in); err != nil {
			return err
		}
		switch {
		case in.Type == Unreachable:
			reachable = false
			stack = nil
		case in.Type.IsValue():
			stack = append(stack, in.Type)
		}
	}
	if !reachable {
		// Values pushed after the stack became polymorphic must still
		// match what the end of the block expects.
		switch {
		case len(stack) == 0:
			return nil
		case len(stack) == 1 && want.IsValue() && stack[0] == want:
			return nil
		default:
			return fmt.Errorf("%d value(s) left on the stack after unreachable code", len(stack))
		}
	}
	if want == None || want == Unreachable {
		if len(stack) != 0 {
			return fmt.Errorf("%d value(s) left on the stack at end of block", len(stack))
		}
		if want == Unreachable {
			return errors.New("sequence typed unreachable falls through")
		}
		return nil
	}
	if len(stack) != 1 || stack[0] != want {
		return fmt.Errorf("expected a single %s at end of block, found %v", want, stack)
	}
	return nil
}

// operand checks that in produces a value of type want.
func (v *funcValidator) operand(in *Instr, want ValType, what string) error {
	if err := v.instr(in); err != nil {
		return err
	}
	if in.Type == Unreachable || in.Type == want {
		return nil
	}
	return fmt.Errorf("%s: expected %s operand, got %s", what, want, in.Type)
}

func (v *funcValidator) hasLabel(label string) bool {
	if label == "" {
		return false
	}
	for i := len(v.labels) - 1; i >= 0; i-- {
		if v.labels[i] == label {
			return true
		}
	}
	return false
}

func (v *funcValidator) instr(in *Instr) error {
	switch in.Kind {
	case KindConst, KindUnreachable:
		return nil

	case KindLocalGet:
		if int(in.Index) >= len(v.locals) {
			return fmt.Errorf("local.get %d: no such local", in.Index)
		}
		if in.Type != v.locals[in.Index] {
			return fmt.Errorf("local.get %d: local has type %s, not %s", in.Index, v.locals[in.Index], in.Type)
		}
		return nil

	case KindLocalSet:
		if int(in.Index) >= len(v.locals) {
			return fmt.Errorf("local.set %d: no such local", in.Index)
		}
		return v.operand(in.Operands[0], v.locals[in.Index], fmt.Sprintf("local.set %d", in.Index))

	case KindGlobalGet:
		_, g := v.m.globalIndex(in.Name)
		if g == nil {
			return fmt.Errorf("global.get: unknown global %q", in.Name)
		}
		if g.Type != in.Type {
			return fmt.Errorf("global.get %s: global has type %s, not %s", in.Name, g.Type, in.Type)
		}
		return nil

	case KindNumeric:
		info := numericOps[in.Opcode]
		for _, op := range in.Operands {
			if err := v.operand(op, info.operand, info.name); err != nil {
				return err
			}
		}
		return nil

	case KindCall:
		params, result, ok := v.m.signature(in.Name)
		if !ok {
			return fmt.Errorf("call: unknown function %q", in.Name)
		}
		if len(params) != len(in.Operands) {
			return fmt.Errorf("call %s: expected %d arguments, got %d", in.Name, len(params), len(in.Operands))
		}
		for i, arg := range in.Operands {
			if err := v.operand(arg, params[i], "call "+in.Name); err != nil {
				return err
			}
		}
		if result != in.Type {
			return fmt.Errorf("call %s: function returns %s, not %s", in.Name, result, in.Type)
		}
		return nil

	case KindDrop:
		value := in.Operands[0]
		if err := v.instr(value); err != nil {
			return err
		}
		if value.Type == None {
			return errors.New("drop: operand produces no value")
		}
		return nil

	case KindReturn:
		if v.fn.Result == None {
			if len(in.Operands) != 0 {
				return errors.New("return: function returns nothing")
			}
			return nil
		}
		if len(in.Operands) != 1 {
			return fmt.Errorf("return: expected a %s value", v.fn.Result)
		}
		return v.operand(in.Operands[0], v.fn.Result, "return")

	case KindBlock, KindLoop:
		v.labels = append(v.labels, in.Label)
		defer func() { v.labels = v.labels[:len(v.labels)-1] }()
		return v.sequence(in.Body, in.Type)

	case KindIf:
		if err := v.operand(in.Operands[0], I32, "if condition"); err != nil {
			return err
		}
		if in.Else == nil && in.Type.IsValue() {
			return fmt.Errorf("if without else cannot produce %s", in.Type)
		}
		v.labels = append(v.labels, "")
		defer func() { v.labels = v.labels[:len(v.labels)-1] }()
		if err := v.sequence(in.Body, in.Type); err != nil {
			return err
		}
		if in.Else != nil {
			return v.sequence(in.Else, in.Type)
		}
		return nil

	case KindBr:
		if !v.hasLabel(in.Label) {
			return fmt.Errorf("br: unknown label %q", in.Label)
		}
		return nil

	case KindBrIf:
		if !v.hasLabel(in.Label) {
			return fmt.Errorf("br_if: unknown label %q", in.Label)
		}
		return v.operand(in.Operands[0], I32, "br_if condition")

	default:
		return fmt.Errorf("unknown instruction kind %d", in.Kind)
	}
}

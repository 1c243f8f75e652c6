package wasm

// InstrKind identifies the shape of an instruction tree node.
type InstrKind uint8

const (
	KindConst InstrKind = iota
	KindLocalGet
	KindLocalSet
	KindGlobalGet
	KindNumeric
	KindCall
	KindDrop
	KindReturn
	KindUnreachable
	KindBlock
	KindLoop
	KindIf
	KindBr
	KindBrIf
)

// Instr is one node of a folded instruction tree. Operands are evaluated in
// order before the instruction itself; Body and Else hold the nested
// instruction sequences of structured instructions.
type Instr struct {
	Kind   InstrKind
	Opcode byte    // KindConst, KindNumeric
	Type   ValType // what the instruction leaves on the stack

	Index uint32  // KindLocalGet, KindLocalSet
	Name  string  // KindCall, KindGlobalGet
	Label string  // KindBlock, KindLoop: own label; KindBr, KindBrIf: target
	Int   int64   // I32_CONST, I64_CONST
	Float float64 // F32_CONST, F64_CONST

	Operands []*Instr
	Body     []*Instr
	Else     []*Instr // KindIf only; nil means there is no else arm
}

func I32Const(v int32) *Instr {
	return &Instr{Kind: KindConst, Opcode: I32_CONST, Type: I32, Int: int64(v)}
}

func I64Const(v int64) *Instr {
	return &Instr{Kind: KindConst, Opcode: I64_CONST, Type: I64, Int: v}
}

func F32Const(v float32) *Instr {
	return &Instr{Kind: KindConst, Opcode: F32_CONST, Type: F32, Float: float64(v)}
}

func F64Const(v float64) *Instr {
	return &Instr{Kind: KindConst, Opcode: F64_CONST, Type: F64, Float: v}
}

func LocalGet(index uint32, t ValType) *Instr {
	return &Instr{Kind: KindLocalGet, Index: index, Type: t}
}

func LocalSet(index uint32, value *Instr) *Instr {
	return &Instr{Kind: KindLocalSet, Index: index, Type: None, Operands: []*Instr{value}}
}

func GlobalGet(name string, t ValType) *Instr {
	return &Instr{Kind: KindGlobalGet, Name: name, Type: t}
}

// Binary builds a two-operand numeric instruction such as I32_ADD.
func Binary(op byte, left, right *Instr) *Instr {
	return numeric(op, left, right)
}

// Unary builds a one-operand numeric instruction such as I32_EQZ.
func Unary(op byte, operand *Instr) *Instr {
	return numeric(op, operand)
}

func numeric(op byte, operands ...*Instr) *Instr {
	info, ok := numericOps[op]
	if !ok {
		panic("unknown numeric opcode " + OpName(op))
	}
	if info.arity != len(operands) {
		panic(info.name + ": wrong operand count")
	}
	return &Instr{Kind: KindNumeric, Opcode: op, Type: info.result, Operands: operands}
}

// Call calls a defined or imported function by name. result is the callee's
// result type (None for void callees).
func Call(name string, args []*Instr, result ValType) *Instr {
	return &Instr{Kind: KindCall, Name: name, Type: result, Operands: args}
}

func Drop(value *Instr) *Instr {
	return &Instr{Kind: KindDrop, Type: None, Operands: []*Instr{value}}
}

// Return returns from the current function. value is nil for void functions.
func Return(value *Instr) *Instr {
	in := &Instr{Kind: KindReturn, Type: Unreachable}
	if value != nil {
		in.Operands = []*Instr{value}
	}
	return in
}

func Trap() *Instr {
	return &Instr{Kind: KindUnreachable, Type: Unreachable}
}

// Block builds a block. A labelled block that is the target of a branch
// falls through to its end, so it is never typed Unreachable.
func Block(label string, body ...*Instr) *Instr {
	t := seqType(body)
	if t == Unreachable && label != "" && branchesTo(label, body) {
		t = None
	}
	return &Instr{Kind: KindBlock, Label: label, Type: t, Body: body}
}

// Loop builds a loop. Branches to a loop's label restart it.
func Loop(label string, body ...*Instr) *Instr {
	return &Instr{Kind: KindLoop, Label: label, Type: seqType(body), Body: body}
}

// If builds a conditional. els is nil when there is no else arm.
func If(cond *Instr, then, els []*Instr) *Instr {
	in := &Instr{Kind: KindIf, Operands: []*Instr{cond}, Body: then, Else: els}
	thenType := seqType(then)
	if els == nil {
		in.Type = None
		return in
	}
	elseType := seqType(els)
	switch {
	case thenType == Unreachable:
		in.Type = elseType
	case elseType == Unreachable:
		in.Type = thenType
	default:
		in.Type = thenType
	}
	return in
}

func Br(label string) *Instr {
	return &Instr{Kind: KindBr, Label: label, Type: Unreachable}
}

func BrIf(label string, cond *Instr) *Instr {
	return &Instr{Kind: KindBrIf, Label: label, Type: None, Operands: []*Instr{cond}}
}

// seqType is the type of an instruction sequence: Unreachable if any
// instruction in it never falls through, otherwise the last one's type.
func seqType(seq []*Instr) ValType {
	if len(seq) == 0 {
		return None
	}
	for _, in := range seq {
		if in.Type == Unreachable {
			return Unreachable
		}
	}
	return seq[len(seq)-1].Type
}

func branchesTo(label string, seq []*Instr) bool {
	for _, in := range seq {
		if (in.Kind == KindBr || in.Kind == KindBrIf) && in.Label == label {
			return true
		}
		if branchesTo(label, in.Operands) || branchesTo(label, in.Body) || branchesTo(label, in.Else) {
			return true
		}
	}
	return false
}

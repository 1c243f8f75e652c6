package wasm

import (
	"testing"

	"github.com/nalgeon/be"
)

func voidModule(body ...*Instr) *Module {
	m := NewModule()
	m.AddFunction("f", nil, None, nil, Block("", body...))
	return m
}

func TestValidateAcceptsBalancedFunction(t *testing.T) {
	t.Parallel()
	m := NewModule()
	m.AddFunction("add", []ValType{I32, I32}, I32, []ValType{I32}, Block("",
		LocalSet(2, Binary(I32_ADD, LocalGet(0, I32), LocalGet(1, I32))),
		Return(LocalGet(2, I32)),
	))
	be.Err(t, m.Validate(), nil)
}

func TestValidateErrors(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		module func() *Module
		want   string
	}{
		{
			name:   "value left on stack",
			module: func() *Module { return voidModule(I32Const(1)) },
			want:   "left on the stack",
		},
		{
			name: "call arity",
			module: func() *Module {
				m := voidModule(Call("g", nil, None))
				m.AddFunctionImport("g", "env", "g", []ValType{I32}, None)
				return m
			},
			want: "expected 1 arguments",
		},
		{
			name:   "unknown function",
			module: func() *Module { return voidModule(Call("missing", nil, None)) },
			want:   "unknown function",
		},
		{
			name:   "unknown label",
			module: func() *Module { return voidModule(Br("nowhere")) },
			want:   "unknown label",
		},
		{
			name:   "drop of nothing",
			module: func() *Module { return voidModule(Drop(Block(""))) },
			want:   "produces no value",
		},
		{
			name: "local type mismatch",
			module: func() *Module {
				m := NewModule()
				m.AddFunction("f", nil, None, []ValType{I32}, Block("", LocalSet(0, I64Const(1))))
				return m
			},
			want: "expected i32 operand, got i64",
		},
		{
			name: "operand type mismatch",
			module: func() *Module {
				return voidModule(Drop(Binary(I64_ADD, I64Const(1), I32Const(2))))
			},
			want: "i64.add: expected i64 operand, got i32",
		},
		{
			name: "if without else producing a value",
			module: func() *Module {
				return voidModule(Drop(&Instr{
					Kind:     KindIf,
					Type:     I32,
					Operands: []*Instr{I32Const(1)},
					Body:     []*Instr{I32Const(2)},
				}))
			},
			want: "if without else",
		},
		{
			name: "missing return value",
			module: func() *Module {
				m := NewModule()
				m.AddFunction("f", nil, I32, nil, Block("", Return(nil)))
				return m
			},
			want: "return: expected a i32 value",
		},
		{
			name: "start function with parameters",
			module: func() *Module {
				m := NewModule()
				m.AddFunction("s", []ValType{I32}, None, nil, Block(""))
				m.SetStart("s")
				return m
			},
			want: "must take no parameters",
		},
		{
			name: "duplicate function",
			module: func() *Module {
				m := voidModule()
				m.AddFunctionImport("f", "env", "f", nil, None)
				return m
			},
			want: "duplicate function name",
		},
		{
			name: "duplicate export",
			module: func() *Module {
				m := voidModule()
				m.SetMemory(1, 1, "f", nil)
				m.AddFunctionExport("f", "f")
				return m
			},
			want: "duplicate export name",
		},
		{
			name: "memory limits",
			module: func() *Module {
				m := voidModule()
				m.SetMemory(2, 1, "memory", nil)
				return m
			},
			want: "exceeds maximum",
		},
		{
			name: "segment past initial memory",
			module: func() *Module {
				m := voidModule()
				m.SetMemory(1, 1, "memory", []Segment{{Offset: pageSize - 1, Data: []byte("ab")}})
				return m
			},
			want: "exceeds initial memory",
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			be.Err(t, test.module().Validate(), test.want)
		})
	}
}

func TestValidateUnreachableCode(t *testing.T) {
	t.Parallel()
	m := NewModule()
	m.AddFunction("f", nil, I64, nil, Block("", Trap()))
	be.Err(t, m.Validate(), nil)

	m = NewModule()
	m.AddFunction("f", nil, I64, nil, Block("", Trap(), I32Const(1)))
	be.Err(t, m.Validate(), "after unreachable code")
}

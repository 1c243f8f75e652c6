package wasm

import (
	"testing"

	"github.com/nalgeon/be"
)

func TestModuleText(t *testing.T) {
	t.Parallel()
	m := NewModule()
	m.AddFunctionImport("host:write", "host", "write", []ValType{I32}, I32)
	m.AddFunction("main", nil, None, []ValType{I64}, Block("",
		LocalSet(0, I64Const(-3)),
		If(Binary(I64_LT_S, LocalGet(0, I64), I64Const(0)),
			[]*Instr{Drop(Call("host:write", []*Instr{I32Const(16)}, I32))},
			nil),
	))
	m.AddFunctionExport("main", "main")
	m.SetStart("main")
	m.SetMemory(1, 64, "memory", []Segment{{Offset: 8, Data: []byte{16, 0, 0, 0, 'o', 'k', '\n'}}})

	want := `(module
  (import "host" "write" (func $host:write (param i32) (result i32)))
  (memory (export "memory") 1 64)
  (data (i32.const 8) "\10\00\00\00ok\0a")
  (func $main (local i64)
    (block
      (local.set 0
        (i64.const -3))
      (if
        (i64.lt_s
          (local.get 0)
          (i64.const 0))
        (then
          (drop
            (call $host:write
              (i32.const 16)))))))
  (export "main" (func $main))
  (start $main))
`
	be.Equal(t, m.Text(), want)
}

func TestQuote(t *testing.T) {
	t.Parallel()
	be.Equal(t, quote(`say "hi"\`), `"say \"hi\"\\"`)
	be.Equal(t, quote("\t\xff"), `"\09\ff"`)
}

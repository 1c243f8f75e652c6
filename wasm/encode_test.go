package wasm

import (
	"bytes"
	"testing"

	"github.com/nalgeon/be"
)

var wasmHeader = []byte{0x00, 0x61, 0x73, 0x6D, 0x01, 0x00, 0x00, 0x00}

func TestEncodeSingleFunction(t *testing.T) {
	t.Parallel()
	m := NewModule()
	m.AddFunction("answer", nil, I32, nil, Block("", Return(I32Const(42))))

	out, err := m.Encode()
	be.Err(t, err, nil)

	var want []byte
	want = append(want, wasmHeader...)
	want = append(want, 0x01, 0x05, 0x01, 0x60, 0x00, 0x01, 0x7F)
	want = append(want, 0x03, 0x02, 0x01, 0x00)
	want = append(want, 0x0A, 0x0B, 0x01, 0x09, 0x00, 0x02, 0x40, 0x41, 0x2A, 0x0F, 0x0B, 0x00, 0x0B)
	be.Equal(t, out, want)
}

func TestEncodeMemoryExportsAndStart(t *testing.T) {
	t.Parallel()
	m := NewModule()
	m.AddFunction("main", nil, None, nil, Block(""))
	m.AddFunctionExport("main", "main")
	m.SetStart("main")
	m.SetMemory(1, 64, "memory", []Segment{{Offset: 8, Data: []byte("Hi")}})

	out, err := m.Encode()
	be.Err(t, err, nil)

	var want []byte
	want = append(want, wasmHeader...)
	want = append(want, 0x01, 0x04, 0x01, 0x60, 0x00, 0x00)
	want = append(want, 0x03, 0x02, 0x01, 0x00)
	want = append(want, 0x05, 0x04, 0x01, 0x01, 0x01, 0x40)
	want = append(want, 0x07, 0x11, 0x02,
		0x06, 'm', 'e', 'm', 'o', 'r', 'y', 0x02, 0x00,
		0x04, 'm', 'a', 'i', 'n', 0x00, 0x00)
	want = append(want, 0x08, 0x01, 0x00)
	want = append(want, 0x0A, 0x07, 0x01, 0x05, 0x00, 0x02, 0x40, 0x0B, 0x0B)
	want = append(want, 0x0B, 0x08, 0x01, 0x00, 0x41, 0x08, 0x0B, 0x02, 'H', 'i')
	be.Equal(t, out, want)
}

func TestEncodeImportsComeFirstInIndexSpace(t *testing.T) {
	t.Parallel()
	m := NewModule()
	m.AddFunctionImport("host:write", "host", "write", []ValType{I32, I32}, I32)
	m.AddGlobalImport("host:limit", "host", "limit", I32)
	m.AddFunction("main", nil, None, nil, Block("",
		Drop(Call("host:write", []*Instr{I32Const(1), GlobalGet("host:limit", I32)}, I32)),
	))
	m.AddFunctionExport("main", "run")

	out, err := m.Encode()
	be.Err(t, err, nil)

	imports := []byte{0x02, 0x1C, 0x02,
		0x04, 'h', 'o', 's', 't', 0x05, 'w', 'r', 'i', 't', 'e', 0x00, 0x00,
		0x04, 'h', 'o', 's', 't', 0x05, 'l', 'i', 'm', 'i', 't', 0x03, 0x7F, 0x00}
	be.True(t, bytes.Contains(out, imports))

	// main is function 1 because the import occupies index 0.
	exports := []byte{0x07, 0x07, 0x01, 0x03, 'r', 'u', 'n', 0x00, 0x01}
	be.True(t, bytes.Contains(out, exports))

	body := []byte{0x00, 0x02, 0x40, 0x41, 0x01, 0x23, 0x00, 0x10, 0x00, 0x1A, 0x0B, 0x0B}
	be.True(t, bytes.HasSuffix(out, body))
}

func TestEncodeDeduplicatesSignatures(t *testing.T) {
	t.Parallel()
	m := NewModule()
	m.AddFunction("a", []ValType{I64}, I64, nil, Block("", Return(LocalGet(0, I64))))
	m.AddFunction("b", []ValType{I64}, I64, nil, Block("", Return(LocalGet(0, I64))))

	out, err := m.Encode()
	be.Err(t, err, nil)
	be.True(t, bytes.Contains(out, []byte{0x01, 0x06, 0x01, 0x60, 0x01, 0x7E, 0x01, 0x7E}))
	be.True(t, bytes.Contains(out, []byte{0x03, 0x03, 0x02, 0x00, 0x00}))
}

func TestEncodeUnreachableIf(t *testing.T) {
	t.Parallel()
	m := NewModule()
	m.AddFunction("pick", []ValType{I32}, I32, nil, Block("",
		If(LocalGet(0, I32),
			[]*Instr{Return(I32Const(1))},
			[]*Instr{Return(I32Const(2))}),
	))

	out, err := m.Encode()
	be.Err(t, err, nil)

	body := []byte{0x00,
		0x02, 0x40,
		0x20, 0x00, 0x04, 0x40, 0x41, 0x01, 0x0F, 0x05, 0x41, 0x02, 0x0F, 0x0B, 0x00,
		0x0B, 0x00,
		0x0B}
	be.True(t, bytes.HasSuffix(out, body))
}

func TestEncodeBranchDepths(t *testing.T) {
	t.Parallel()
	m := NewModule()
	m.AddFunction("spin", nil, None, nil, Block("brk",
		Loop("cont",
			BrIf("brk", I32Const(0)),
			Br("cont"),
		),
	))

	out, err := m.Encode()
	be.Err(t, err, nil)

	body := []byte{0x00,
		0x02, 0x40,
		0x03, 0x40, 0x41, 0x00, 0x0D, 0x01, 0x0C, 0x00, 0x0B, 0x00,
		0x0B,
		0x0B}
	be.True(t, bytes.HasSuffix(out, body))
}

func TestEncodeGroupsLocals(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	writeLocals(&buf, []ValType{I32, I32, I64, I32})
	be.Equal(t, buf.Bytes(), []byte{0x03, 0x02, 0x7F, 0x01, 0x7E, 0x01, 0x7F})
}

func TestEncodeRejectsInvalidModule(t *testing.T) {
	t.Parallel()
	m := NewModule()
	m.AddFunction("leaky", nil, None, nil, Block("", I32Const(1)))

	_, err := m.Encode()
	be.Err(t, err, "left on the stack")
}

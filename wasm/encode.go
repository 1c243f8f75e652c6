package wasm

import (
	"bytes"
	"fmt"
)

// Section ids
const (
	sectionType     = 0x01
	sectionImport   = 0x02
	sectionFunction = 0x03
	sectionMemory   = 0x05
	sectionExport   = 0x07
	sectionStart    = 0x08
	sectionCode     = 0x0A
	sectionData     = 0x0B
)

// Import/export kinds
const (
	externFunc   = 0x00
	externMemory = 0x02
	externGlobal = 0x03
)

const (
	funcTypeTag    = 0x60
	blockTypeEmpty = 0x40
)

// Encode validates the module and serializes it to the binary format.
func (m *Module) Encode() ([]byte, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	EmitWASMHeader(&buf)

	types := newTypeSection()
	for _, imp := range m.Imports {
		types.index(imp.Params, imp.Result)
	}
	for _, fn := range m.Functions {
		types.index(fn.Params, fn.Result)
	}
	types.emit(&buf)

	m.emitImportSection(&buf, types)
	m.emitFunctionSection(&buf, types)
	m.emitMemorySection(&buf)
	m.emitExportSection(&buf)
	m.emitStartSection(&buf)
	if err := m.emitCodeSection(&buf); err != nil {
		return nil, err
	}
	m.emitDataSection(&buf)

	return buf.Bytes(), nil
}

func EmitWASMHeader(buf *bytes.Buffer) {
	// WASM magic number
	writeBytes(buf, []byte{0x00, 0x61, 0x73, 0x6D})
	// WASM version
	writeBytes(buf, []byte{0x01, 0x00, 0x00, 0x00})
}

// typeSection deduplicates function signatures.
type typeSection struct {
	sigs    []funcSig
	indexes map[string]uint32
}

type funcSig struct {
	params []ValType
	result ValType
}

func newTypeSection() *typeSection {
	return &typeSection{indexes: make(map[string]uint32)}
}

func (ts *typeSection) index(params []ValType, result ValType) uint32 {
	key := sigKey(params, result)
	if idx, ok := ts.indexes[key]; ok {
		return idx
	}
	idx := uint32(len(ts.sigs))
	ts.sigs = append(ts.sigs, funcSig{params: params, result: result})
	ts.indexes[key] = idx
	return idx
}

func sigKey(params []ValType, result ValType) string {
	key := make([]byte, 0, len(params)+2)
	for _, p := range params {
		key = append(key, byte(p))
	}
	return string(append(key, '|', byte(result)))
}

func (ts *typeSection) emit(buf *bytes.Buffer) {
	var sectionBuf bytes.Buffer
	writeLEB128(&sectionBuf, uint32(len(ts.sigs)))
	for _, sig := range ts.sigs {
		writeByte(&sectionBuf, funcTypeTag)
		writeLEB128(&sectionBuf, uint32(len(sig.params)))
		for _, p := range sig.params {
			writeByte(&sectionBuf, p.code())
		}
		if sig.result == None {
			writeLEB128(&sectionBuf, 0)
		} else {
			writeLEB128(&sectionBuf, 1)
			writeByte(&sectionBuf, sig.result.code())
		}
	}
	writeSection(buf, sectionType, &sectionBuf)
}

func (m *Module) emitImportSection(buf *bytes.Buffer, types *typeSection) {
	count := len(m.Imports) + len(m.Globals)
	if count == 0 {
		return
	}

	var sectionBuf bytes.Buffer
	writeLEB128(&sectionBuf, uint32(count))
	for _, imp := range m.Imports {
		writeName(&sectionBuf, imp.Module)
		writeName(&sectionBuf, imp.Field)
		writeByte(&sectionBuf, externFunc)
		writeLEB128(&sectionBuf, types.index(imp.Params, imp.Result))
	}
	for _, g := range m.Globals {
		writeName(&sectionBuf, g.Module)
		writeName(&sectionBuf, g.Field)
		writeByte(&sectionBuf, externGlobal)
		writeByte(&sectionBuf, g.Type.code())
		writeByte(&sectionBuf, 0x00) // immutable
	}
	writeSection(buf, sectionImport, &sectionBuf)
}

func (m *Module) emitFunctionSection(buf *bytes.Buffer, types *typeSection) {
	if len(m.Functions) == 0 {
		return
	}

	var sectionBuf bytes.Buffer
	writeLEB128(&sectionBuf, uint32(len(m.Functions)))
	for _, fn := range m.Functions {
		writeLEB128(&sectionBuf, types.index(fn.Params, fn.Result))
	}
	writeSection(buf, sectionFunction, &sectionBuf)
}

func (m *Module) emitMemorySection(buf *bytes.Buffer) {
	if m.Memory == nil {
		return
	}

	var sectionBuf bytes.Buffer
	writeLEB128(&sectionBuf, 1)
	writeByte(&sectionBuf, 0x01) // limits with maximum
	writeLEB128(&sectionBuf, m.Memory.Min)
	writeLEB128(&sectionBuf, m.Memory.Max)
	writeSection(buf, sectionMemory, &sectionBuf)
}

func (m *Module) emitExportSection(buf *bytes.Buffer) {
	memoryExported := m.Memory != nil && m.Memory.ExportName != ""
	count := len(m.Exports)
	if memoryExported {
		count++
	}
	if count == 0 {
		return
	}

	var sectionBuf bytes.Buffer
	writeLEB128(&sectionBuf, uint32(count))
	if memoryExported {
		writeName(&sectionBuf, m.Memory.ExportName)
		writeByte(&sectionBuf, externMemory)
		writeLEB128(&sectionBuf, 0)
	}
	for _, exp := range m.Exports {
		idx, _ := m.funcIndex(exp.Func)
		writeName(&sectionBuf, exp.Name)
		writeByte(&sectionBuf, externFunc)
		writeLEB128(&sectionBuf, idx)
	}
	writeSection(buf, sectionExport, &sectionBuf)
}

func (m *Module) emitStartSection(buf *bytes.Buffer) {
	if m.Start == "" {
		return
	}

	idx, _ := m.funcIndex(m.Start)
	var sectionBuf bytes.Buffer
	writeLEB128(&sectionBuf, idx)
	writeSection(buf, sectionStart, &sectionBuf)
}

func (m *Module) emitCodeSection(buf *bytes.Buffer) error {
	if len(m.Functions) == 0 {
		return nil
	}

	var sectionBuf bytes.Buffer
	writeLEB128(&sectionBuf, uint32(len(m.Functions)))
	for _, fn := range m.Functions {
		var bodyBuf bytes.Buffer
		writeLocals(&bodyBuf, fn.Locals)

		e := &instrEncoder{m: m}
		if err := e.encode(&bodyBuf, fn.Body); err != nil {
			return fmt.Errorf("function %s: %w", fn.Name, err)
		}
		writeByte(&bodyBuf, END)

		writeLEB128(&sectionBuf, uint32(bodyBuf.Len()))
		writeBytes(&sectionBuf, bodyBuf.Bytes())
	}
	writeSection(buf, sectionCode, &sectionBuf)
	return nil
}

// writeLocals writes local declarations, grouping runs of the same type.
func writeLocals(buf *bytes.Buffer, locals []ValType) {
	type group struct {
		count uint32
		t     ValType
	}
	var groups []group
	for _, l := range locals {
		if n := len(groups); n > 0 && groups[n-1].t == l {
			groups[n-1].count++
			continue
		}
		groups = append(groups, group{count: 1, t: l})
	}

	writeLEB128(buf, uint32(len(groups)))
	for _, g := range groups {
		writeLEB128(buf, g.count)
		writeByte(buf, g.t.code())
	}
}

func (m *Module) emitDataSection(buf *bytes.Buffer) {
	if m.Memory == nil || len(m.Memory.Segments) == 0 {
		return
	}

	var sectionBuf bytes.Buffer
	writeLEB128(&sectionBuf, uint32(len(m.Memory.Segments)))
	for _, seg := range m.Memory.Segments {
		writeByte(&sectionBuf, 0x00) // active, memory 0
		writeByte(&sectionBuf, I32_CONST)
		writeLEB128Signed(&sectionBuf, int64(int32(seg.Offset)))
		writeByte(&sectionBuf, END)
		writeLEB128(&sectionBuf, uint32(len(seg.Data)))
		writeBytes(&sectionBuf, seg.Data)
	}
	writeSection(buf, sectionData, &sectionBuf)
}

// instrEncoder serializes a folded instruction tree in stack order. Branch
// labels are turned into relative depths using the stack of enclosing
// structured instructions.
type instrEncoder struct {
	m      *Module
	labels []string
}

func (e *instrEncoder) encodeAll(buf *bytes.Buffer, seq []*Instr) error {
	for _, in := range seq {
		if err := e.encode(buf, in); err != nil {
			return err
		}
	}
	return nil
}

func (e *instrEncoder) depth(label string) (uint32, error) {
	for i := len(e.labels) - 1; i >= 0; i-- {
		if e.labels[i] == label {
			return uint32(len(e.labels) - 1 - i), nil
		}
	}
	return 0, fmt.Errorf("unknown label %q", label)
}

func blockType(t ValType) byte {
	if t.IsValue() {
		return t.code()
	}
	return blockTypeEmpty
}

func (e *instrEncoder) encode(buf *bytes.Buffer, in *Instr) error {
	if in.Kind != KindIf {
		if err := e.encodeAll(buf, in.Operands); err != nil {
			return err
		}
	}

	switch in.Kind {
	case KindConst:
		writeByte(buf, in.Opcode)
		switch in.Opcode {
		case I32_CONST:
			writeLEB128Signed(buf, int64(int32(in.Int)))
		case I64_CONST:
			writeLEB128Signed(buf, in.Int)
		case F32_CONST:
			writeF32(buf, float32(in.Float))
		case F64_CONST:
			writeF64(buf, in.Float)
		}

	case KindLocalGet:
		writeByte(buf, LOCAL_GET)
		writeLEB128(buf, in.Index)

	case KindLocalSet:
		writeByte(buf, LOCAL_SET)
		writeLEB128(buf, in.Index)

	case KindGlobalGet:
		idx, _ := e.m.globalIndex(in.Name)
		writeByte(buf, GLOBAL_GET)
		writeLEB128(buf, idx)

	case KindNumeric:
		writeByte(buf, in.Opcode)

	case KindCall:
		idx, ok := e.m.funcIndex(in.Name)
		if !ok {
			return fmt.Errorf("unknown function %q", in.Name)
		}
		writeByte(buf, CALL)
		writeLEB128(buf, idx)

	case KindDrop:
		writeByte(buf, DROP)

	case KindReturn:
		writeByte(buf, RETURN)

	case KindUnreachable:
		writeByte(buf, UNREACHABLE)

	case KindBlock, KindLoop:
		op := byte(BLOCK)
		if in.Kind == KindLoop {
			op = LOOP
		}
		writeByte(buf, op)
		writeByte(buf, blockType(in.Type))
		e.labels = append(e.labels, in.Label)
		err := e.encodeAll(buf, in.Body)
		e.labels = e.labels[:len(e.labels)-1]
		if err != nil {
			return err
		}
		e.endStructured(buf, in)

	case KindIf:
		if err := e.encode(buf, in.Operands[0]); err != nil {
			return err
		}
		writeByte(buf, IF)
		writeByte(buf, blockType(in.Type))
		e.labels = append(e.labels, "")
		err := e.encodeAll(buf, in.Body)
		if err == nil && in.Else != nil {
			writeByte(buf, ELSE)
			err = e.encodeAll(buf, in.Else)
		}
		e.labels = e.labels[:len(e.labels)-1]
		if err != nil {
			return err
		}
		e.endStructured(buf, in)

	case KindBr, KindBrIf:
		d, err := e.depth(in.Label)
		if err != nil {
			return err
		}
		if in.Kind == KindBr {
			writeByte(buf, BR)
		} else {
			writeByte(buf, BR_IF)
		}
		writeLEB128(buf, d)

	default:
		return fmt.Errorf("unknown instruction kind %d", in.Kind)
	}
	return nil
}

// endStructured closes a block, loop or if. A structured instruction that
// never falls through is encoded with an empty block type, so an explicit
// unreachable follows it to keep the stack polymorphic for its consumer.
func (e *instrEncoder) endStructured(buf *bytes.Buffer, in *Instr) {
	writeByte(buf, END)
	if in.Type == Unreachable {
		writeByte(buf, UNREACHABLE)
	}
}

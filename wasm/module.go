// Package wasm builds, validates and serializes WebAssembly modules from
// folded instruction trees.
package wasm

// FuncImport is a host function. Name is the module-internal name used by
// Call; Module and Field are the two-level import name.
type FuncImport struct {
	Name   string
	Module string
	Field  string
	Params []ValType
	Result ValType
}

// GlobalImport is an immutable host global read with GlobalGet.
type GlobalImport struct {
	Name   string
	Module string
	Field  string
	Type   ValType
}

type Function struct {
	Name   string
	Params []ValType
	Result ValType
	Locals []ValType // excludes params
	Body   *Instr
}

// Segment is part of the initial linear-memory image.
type Segment struct {
	Offset uint32
	Data   []byte
}

// Memory sizes are in 64KiB pages.
type Memory struct {
	Min        uint32
	Max        uint32
	ExportName string
	Segments   []Segment
}

type Export struct {
	Name string // exported name
	Func string // function name
}

type Module struct {
	Imports   []*FuncImport
	Globals   []*GlobalImport
	Functions []*Function
	Memory    *Memory
	Exports   []Export
	Start     string
}

func NewModule() *Module {
	return &Module{}
}

func (m *Module) AddFunctionImport(name, module, field string, params []ValType, result ValType) *FuncImport {
	imp := &FuncImport{Name: name, Module: module, Field: field, Params: params, Result: result}
	m.Imports = append(m.Imports, imp)
	return imp
}

func (m *Module) AddGlobalImport(name, module, field string, t ValType) *GlobalImport {
	g := &GlobalImport{Name: name, Module: module, Field: field, Type: t}
	m.Globals = append(m.Globals, g)
	return g
}

func (m *Module) AddFunction(name string, params []ValType, result ValType, locals []ValType, body *Instr) *Function {
	fn := &Function{Name: name, Params: params, Result: result, Locals: locals, Body: body}
	m.Functions = append(m.Functions, fn)
	return fn
}

func (m *Module) AddFunctionExport(funcName, exportName string) {
	m.Exports = append(m.Exports, Export{Name: exportName, Func: funcName})
}

// SetStart marks a function to run when the module is instantiated.
func (m *Module) SetStart(name string) {
	m.Start = name
}

func (m *Module) SetMemory(min, max uint32, exportName string, segments []Segment) {
	m.Memory = &Memory{Min: min, Max: max, ExportName: exportName, Segments: segments}
}

// funcIndex returns the index of a function in the function index space,
// where imports come before defined functions.
func (m *Module) funcIndex(name string) (uint32, bool) {
	for i, imp := range m.Imports {
		if imp.Name == name {
			return uint32(i), true
		}
	}
	for i, fn := range m.Functions {
		if fn.Name == name {
			return uint32(len(m.Imports) + i), true
		}
	}
	return 0, false
}

// signature returns the parameter and result types of a named function.
func (m *Module) signature(name string) (params []ValType, result ValType, ok bool) {
	for _, imp := range m.Imports {
		if imp.Name == name {
			return imp.Params, imp.Result, true
		}
	}
	for _, fn := range m.Functions {
		if fn.Name == name {
			return fn.Params, fn.Result, true
		}
	}
	return nil, None, false
}

func (m *Module) globalIndex(name string) (uint32, *GlobalImport) {
	for i, g := range m.Globals {
		if g.Name == name {
			return uint32(i), g
		}
	}
	return 0, nil
}

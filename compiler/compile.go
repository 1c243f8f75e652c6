// Package compiler turns taro source text into a WebAssembly module: lexing,
// parsing, type resolution and code generation.
package compiler

import (
	"log/slog"

	"github.com/strager/taro/wasm"
)

// Options control the shape of the generated module.
type Options struct {
	MemoryMinPages   uint32
	MemoryMaxPages   uint32
	MemoryExportName string
	// StartFunction runs when the module is instantiated. It is ignored if
	// no function has this name.
	StartFunction   string
	ExportFunctions bool
	Logger          *slog.Logger
}

func DefaultOptions() Options {
	return Options{
		MemoryMinPages:   1,
		MemoryMaxPages:   64,
		MemoryExportName: "memory",
		StartFunction:    "main",
	}
}

// Output is everything a compilation produced.
type Output struct {
	Module   *wasm.Module
	Program  *ASTNode
	Typed    *TypedNode
	Types    *TypeTable
	Segments []Segment
}

// Binary returns the encoded module.
func (o *Output) Binary() ([]byte, error) {
	return o.Module.Encode()
}

// Check parses and type-checks src without generating code. logger may be
// nil.
func Check(src []byte, logger *slog.Logger) (*TypedNode, *TypeTable, error) {
	_, typed, types, err := check(src, orDiscard(logger))
	return typed, types, err
}

func check(src []byte, logger *slog.Logger) (*ASTNode, *TypedNode, *TypeTable, error) {
	program, err := Parse(src)
	if err != nil {
		return nil, nil, nil, err
	}
	logger.Debug("parsed", "statements", len(program.Children))

	types := NewTypeTable()
	typed, err := NewTypechecker(types, logger).Check(program)
	if err != nil {
		return nil, nil, nil, err
	}
	logger.Debug("type-checked", "types", types.Len())
	return program, typed, types, nil
}

func orDiscard(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return logger
}

// Compile runs the whole pipeline on src.
func Compile(src []byte, opts Options) (*Output, error) {
	opts.Logger = orDiscard(opts.Logger)
	program, typed, types, err := check(src, opts.Logger)
	if err != nil {
		return nil, err
	}

	module, segments, err := NewEmitter(types, opts).Emit(typed)
	if err != nil {
		return nil, err
	}

	return &Output{
		Module:   module,
		Program:  program,
		Typed:    typed,
		Types:    types,
		Segments: segments,
	}, nil
}

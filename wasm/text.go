package wasm

import (
	"fmt"
	"strconv"
	"strings"
)

// Text renders the module in the folded s-expression text format.
func (m *Module) Text() string {
	var b strings.Builder
	b.WriteString("(module")

	for _, imp := range m.Imports {
		fmt.Fprintf(&b, "\n  (import %s %s (func $%s%s))", quote(imp.Module), quote(imp.Field), imp.Name, signatureText(imp.Params, imp.Result))
	}
	for _, g := range m.Globals {
		fmt.Fprintf(&b, "\n  (import %s %s (global $%s %s))", quote(g.Module), quote(g.Field), g.Name, g.Type)
	}

	if m.Memory != nil {
		b.WriteString("\n  (memory")
		if m.Memory.ExportName != "" {
			fmt.Fprintf(&b, " (export %s)", quote(m.Memory.ExportName))
		}
		fmt.Fprintf(&b, " %d %d)", m.Memory.Min, m.Memory.Max)
		for _, seg := range m.Memory.Segments {
			fmt.Fprintf(&b, "\n  (data (i32.const %d) %s)", seg.Offset, quote(string(seg.Data)))
		}
	}

	for _, fn := range m.Functions {
		fmt.Fprintf(&b, "\n  (func $%s%s", fn.Name, signatureText(fn.Params, fn.Result))
		if len(fn.Locals) > 0 {
			b.WriteString(" (local")
			for _, l := range fn.Locals {
				b.WriteString(" " + l.String())
			}
			b.WriteString(")")
		}
		if fn.Body != nil {
			writeInstrText(&b, fn.Body, 2)
		}
		b.WriteString(")")
	}

	for _, exp := range m.Exports {
		fmt.Fprintf(&b, "\n  (export %s (func $%s))", quote(exp.Name), exp.Func)
	}
	if m.Start != "" {
		fmt.Fprintf(&b, "\n  (start $%s)", m.Start)
	}

	b.WriteString(")\n")
	return b.String()
}

func signatureText(params []ValType, result ValType) string {
	var b strings.Builder
	if len(params) > 0 {
		b.WriteString(" (param")
		for _, p := range params {
			b.WriteString(" " + p.String())
		}
		b.WriteString(")")
	}
	if result.IsValue() {
		b.WriteString(" (result " + result.String() + ")")
	}
	return b.String()
}

// quote renders a string literal, escaping every byte outside printable
// ASCII as \hh.
func quote(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '"' || c == '\\':
			b.WriteByte('\\')
			b.WriteByte(c)
		case c >= 0x20 && c < 0x7F:
			b.WriteByte(c)
		default:
			fmt.Fprintf(&b, "\\%02x", c)
		}
	}
	b.WriteByte('"')
	return b.String()
}

func writeInstrText(b *strings.Builder, in *Instr, depth int) {
	b.WriteString("\n" + strings.Repeat("  ", depth) + "(")

	switch in.Kind {
	case KindConst:
		switch in.Opcode {
		case I32_CONST:
			fmt.Fprintf(b, "i32.const %d", int32(in.Int))
		case I64_CONST:
			fmt.Fprintf(b, "i64.const %d", in.Int)
		case F32_CONST:
			b.WriteString("f32.const " + strconv.FormatFloat(in.Float, 'g', -1, 32))
		case F64_CONST:
			b.WriteString("f64.const " + strconv.FormatFloat(in.Float, 'g', -1, 64))
		}
	case KindLocalGet:
		fmt.Fprintf(b, "local.get %d", in.Index)
	case KindLocalSet:
		fmt.Fprintf(b, "local.set %d", in.Index)
	case KindGlobalGet:
		b.WriteString("global.get $" + in.Name)
	case KindNumeric:
		b.WriteString(OpName(in.Opcode))
	case KindCall:
		b.WriteString("call $" + in.Name)
	case KindDrop:
		b.WriteString("drop")
	case KindReturn:
		b.WriteString("return")
	case KindUnreachable:
		b.WriteString("unreachable")
	case KindBlock, KindLoop:
		if in.Kind == KindBlock {
			b.WriteString("block")
		} else {
			b.WriteString("loop")
		}
		if in.Label != "" {
			b.WriteString(" $" + in.Label)
		}
		if in.Type.IsValue() {
			b.WriteString(" (result " + in.Type.String() + ")")
		}
	case KindIf:
		b.WriteString("if")
		if in.Type.IsValue() {
			b.WriteString(" (result " + in.Type.String() + ")")
		}
	case KindBr:
		b.WriteString("br $" + in.Label)
	case KindBrIf:
		b.WriteString("br_if $" + in.Label)
	}

	for _, op := range in.Operands {
		writeInstrText(b, op, depth+1)
	}

	switch in.Kind {
	case KindBlock, KindLoop:
		for _, child := range in.Body {
			writeInstrText(b, child, depth+1)
		}
	case KindIf:
		indent := "\n" + strings.Repeat("  ", depth+1)
		b.WriteString(indent + "(then")
		for _, child := range in.Body {
			writeInstrText(b, child, depth+2)
		}
		b.WriteString(")")
		if in.Else != nil {
			b.WriteString(indent + "(else")
			for _, child := range in.Else {
				writeInstrText(b, child, depth+2)
			}
			b.WriteString(")")
		}
	}

	b.WriteString(")")
}

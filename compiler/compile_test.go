package compiler

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/nalgeon/be"
	"github.com/strager/taro/sexy"
)

const helloSource = `extern host {
    fn write(i32, string, i32, i32) i32;
}

fn main() void {
    host:write(1, "Hi", 1, 0);
}
`

func compileText(t *testing.T, src string) string {
	t.Helper()
	out, err := Compile([]byte(src), DefaultOptions())
	be.Err(t, err, nil)
	return out.Module.Text()
}

// assertWat checks the module text against a sexy pattern.
func assertWat(t *testing.T, text, pattern string) {
	t.Helper()
	p, err := sexy.Parse(pattern)
	be.Err(t, err, nil)
	be.Err(t, sexy.MatchString(p, text), nil)
}

func TestCompileHello(t *testing.T) {
	out, err := Compile([]byte(helloSource), DefaultOptions())
	be.Err(t, err, nil)

	be.Equal(t, out.Module.Text(), `(module
  (import "host" "write" (func $host:write (param i32 i32 i32 i32) (result i32)))
  (memory (export "memory") 1 64)
  (data (i32.const 8) "\10\00\00\00\02\00\00\00Hi")
  (func $main
    (block
      (drop
        (call $host:write
          (i32.const 1)
          (i32.const 8)
          (i32.const 1)
          (i32.const 0)))))
  (start $main))
`)

	be.Equal(t, out.Segments, []Segment{
		{Offset: 8, Data: []byte{16, 0, 0, 0, 2, 0, 0, 0, 'H', 'i'}},
	})

	bin, err := out.Binary()
	be.Err(t, err, nil)
	be.True(t, bytes.HasPrefix(bin, []byte("\x00asm\x01\x00\x00\x00")))
}

func TestCompileKeepsIntermediateTrees(t *testing.T) {
	out, err := Compile([]byte(helloSource), DefaultOptions())
	be.Err(t, err, nil)
	be.Equal(t, out.Program.Kind, NodeProgram)
	be.Equal(t, len(out.Program.Children), 2)
	be.Equal(t, out.Typed.Children[1].Name, "main")
	be.Equal(t, out.Types.Name(out.Typed.Children[1].Type), "void")
}

func TestCompileStringDedup(t *testing.T) {
	out, err := Compile([]byte(`extern host { fn puts(string) void; }
fn main() {
    host:puts("same");
    host:puts("other");
    host:puts("same");
}`), DefaultOptions())
	be.Err(t, err, nil)
	be.Equal(t, len(out.Segments), 2)
	be.Equal(t, out.Segments[0].Offset, uint32(8))
	// "same" ends at 20, so "other" starts at the next 4-byte boundary.
	be.Equal(t, out.Segments[1].Offset, uint32(20))

	assertWat(t, out.Module.Text(), `(module ...
  (func $main
    (block
      (call $host:puts (i32.const 8))
      (call $host:puts (i32.const 20))
      (call $host:puts (i32.const 8))))
  ...)`)
}

func TestCompileWhile(t *testing.T) {
	text := compileText(t, `fn main() {
    let i: i32 = 0;
    while i < 10 {
        if i == 3 { break; }
        i = i + 1;
    }
}`)
	assertWat(t, text, `(module ...
  (func $main (local i32)
    (block
      (local.set 0 (i32.const 0))
      (if
        (i32.lt_s (local.get 0) (i32.const 10))
        (then
          (block $while_1_break
            (loop $while_1_continue
              (block
                (if (i32.eq (local.get 0) (i32.const 3))
                  (then (block (br $while_1_break))))
                (local.set 0 (i32.add (local.get 0) (i32.const 1))))
              (br_if $while_1_continue
                (i32.lt_s (local.get 0) (i32.const 10)))))))))
  ...)`)
}

func TestCompileNestedWhileLabels(t *testing.T) {
	text := compileText(t, `fn main() {
    while true {
        while false { break; }
        break;
    }
}`)
	assertWat(t, text, `(module ...
  (func $main
    (block
      (if (i32.const 1)
        (then
          (block $while_1_break
            (loop $while_1_continue
              (block
                (if (i32.const 0)
                  (then (block $while_2_break (loop $while_2_continue (block (br $while_2_break)) ...))))
                (br $while_1_break))
              ...))))))
  ...)`)
}

func TestCompileShortCircuit(t *testing.T) {
	text := compileText(t, `fn f(a: bool, b: bool) bool {
    return a && b || !a;
}`)
	assertWat(t, text, `(module ...
  (func $f (param i32 i32) (result i32)
    (block
      (return
        (if (result i32)
          (if (result i32) (local.get 0)
            (then (local.get 1))
            (else (i32.const 0)))
          (then (i32.const 1))
          (else (i32.eqz (local.get 0)))))))
  ...)`)
}

func TestCompileArithmetic(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		pattern string
	}{
		{
			"i64 negate",
			"fn f(x: i64) i64 { return -x; }",
			`(return (i64.sub (i64.const 0) (local.get 0)))`,
		},
		{
			"f64 negate",
			"fn f(x: f64) f64 { return -x; }",
			`(return (f64.neg (local.get 0)))`,
		},
		{
			"i32 division and remainder",
			"fn f(x: i32) i32 { return x / 2 % 3; }",
			`(return (i32.rem_s (i32.div_s (local.get 0) (i32.const 2)) (i32.const 3)))`,
		},
		{
			"f32 literals",
			"fn f(x: f32) bool { return x >= 2; }",
			`(return (f32.ge (local.get 0) (f32.const 2)))`,
		},
		{
			"bool equality",
			"fn f(a: bool) bool { return a != true; }",
			`(return (i32.ne (local.get 0) (i32.const 1)))`,
		},
		{
			"string equality compares addresses",
			`fn f() bool { return "a" == "a"; }`,
			`(return (i32.eq (i32.const 8) (i32.const 8)))`,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			text := compileText(t, test.src)
			assertWat(t, text, `(module ... (func $f ... (block `+test.pattern+`)) ...)`)
		})
	}
}

func TestCompileVoidReturnValue(t *testing.T) {
	text := compileText(t, `fn g() {}
fn f() { return g(); }`)
	assertWat(t, text, `(module ...
  (func $f (block (block (call $g) (return))))
  ...)`)
}

func TestCompileHostGlobal(t *testing.T) {
	text := compileText(t, `extern env { const depth: i64; }
fn f() i64 { return env:depth + 1; }`)
	assertWat(t, text, `(module
  (import "env" "depth" (global $env:depth i64))
  ...
  (func $f (result i64)
    (block (return (i64.add (global.get $env:depth) (i64.const 1)))))
  ...)`)
}

func TestCompileUnreachable(t *testing.T) {
	text := compileText(t, "fn f() i32 { unreachable; }")
	assertWat(t, text, `(module ... (func $f (result i32) (block (unreachable))) ...)`)
}

func TestCompileIfElseReturns(t *testing.T) {
	out, err := Compile([]byte("fn f(c: bool) i32 { if c { return 1; } else { return 2; } }"), DefaultOptions())
	be.Err(t, err, nil)
	assertWat(t, out.Module.Text(), `(module ...
  (func $f (param i32) (result i32)
    (block
      (if (local.get 0)
        (then (block (return (i32.const 1))))
        (else (block (return (i32.const 2)))))))
  ...)`)
}

func TestCompileOptions(t *testing.T) {
	src := []byte("fn main() {} fn helper(x: i32) i32 { return x; }")

	t.Run("defaults", func(t *testing.T) {
		out, err := Compile(src, DefaultOptions())
		be.Err(t, err, nil)
		be.Equal(t, out.Module.Start, "main")
		be.Equal(t, len(out.Module.Exports), 0)
	})

	t.Run("export functions", func(t *testing.T) {
		opts := DefaultOptions()
		opts.ExportFunctions = true
		out, err := Compile(src, opts)
		be.Err(t, err, nil)
		assertWat(t, out.Module.Text(), `(module ...
  (export "main" (func $main))
  (export "helper" (func $helper))
  (start $main))`)
	})

	t.Run("no start function", func(t *testing.T) {
		opts := DefaultOptions()
		opts.StartFunction = "init"
		out, err := Compile(src, opts)
		be.Err(t, err, nil)
		be.Equal(t, out.Module.Start, "")
	})

	t.Run("memory", func(t *testing.T) {
		opts := DefaultOptions()
		opts.MemoryMinPages = 2
		opts.MemoryMaxPages = 4
		opts.MemoryExportName = "mem"
		out, err := Compile(src, opts)
		be.Err(t, err, nil)
		assertWat(t, out.Module.Text(), `(module (memory (export "mem") 2 4) ...)`)
	})
}

func TestCompileErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		opts func(*Options)
		kind ErrorKind
		msg  string
	}{
		{
			name: "syntax",
			src:  "fn main( {",
			kind: SyntaxError,
		},
		{
			name: "type",
			src:  `fn main() { let x: i32 = "s"; }`,
			kind: TypeMismatch,
		},
		{
			name: "unconstrained literal",
			src:  "fn main() {\n    let x = 5;\n}",
			kind: UnresolvedType,
			msg:  "line 1: UnresolvedType: cannot infer the type of this number expression",
		},
		{
			name: "unconstrained expression statement",
			src:  "fn main() { 1 + 2; }",
			kind: UnresolvedType,
		},
		{
			name: "struct local",
			src:  "struct P { x: i32 } fn main() { let p = #P { x: 1 }; }",
			kind: Unsupported,
		},
		{
			name: "struct parameter",
			src:  "struct P { x: i32 } fn f(p: P) {}",
			kind: Unsupported,
		},
		{
			name: "i32 overflow",
			src:  "fn main() { let x: i32 = 3000000000; }",
			kind: Unsupported,
			msg:  "3000000000 does not fit in i32",
		},
		{
			name: "start function with parameters",
			src:  "fn main(a: i32) {}",
			kind: InvalidModule,
			msg:  "InvalidModule: start function \"main\" must take no parameters and return nothing",
		},
		{
			name: "data beyond initial memory",
			src:  `extern host { fn puts(string) void; } fn main() { host:puts("x"); }`,
			opts: func(o *Options) { o.MemoryMinPages = 0 },
			kind: InvalidModule,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			opts := DefaultOptions()
			if test.opts != nil {
				test.opts(&opts)
			}
			out, err := Compile([]byte(test.src), opts)
			be.True(t, out == nil)
			be.Equal(t, KindOf(err), test.kind)
			if test.msg != "" {
				be.Err(t, err, test.msg)
			}
		})
	}
}

func TestCheckDoesNotEmit(t *testing.T) {
	// Unresolved types only matter once code is generated.
	typed, types, err := Check([]byte("fn main() { let x = 5; }"), nil)
	be.Err(t, err, nil)
	be.Equal(t, types.Name(typed.Children[0].Locals[0].Type), "number")
}

func TestCheckLogsPhases(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	_, _, err := Check([]byte(helloSource), logger)
	be.Err(t, err, nil)

	be.True(t, strings.Contains(logs.String(), "msg=parsed statements=2"))
	be.True(t, strings.Contains(logs.String(), `msg="resolved function" name=main`))
	be.True(t, strings.Contains(logs.String(), "msg=type-checked"))
	be.True(t, !strings.Contains(logs.String(), "emitted"))
}

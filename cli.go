package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"

	"github.com/strager/taro/compiler"
)

func showUsage(w io.Writer) {
	fmt.Fprintf(w, `Taro - A small C-like language that compiles to WebAssembly

Usage:
    taro <command> [arguments]

Commands:
    build <file>    Compile a .taro file to WebAssembly
    check <file>    Parse and type-check a .taro file
    wat <file>      Print the compiled module in text format
    run <file>      Compile a .taro file and execute it with the configured runtime
    eval <code>     Compile inline taro code and execute it
    help            Show this help message

Examples:
    taro build -o hello.wasm examples/hello.taro
    taro check -v examples/hello.taro
    taro wat examples/hello.taro
    taro run -config taro.yaml examples/hello.taro
    taro eval 'fn main() { let x: i32 = 1; }'

Use "taro <command> -h" for more information about a command.
`)
}

// cli runs one command. Output goes to stdout and stderr; the result is the
// process exit code.
type cli struct {
	stdout io.Writer
	stderr io.Writer
	diag   *diagnostics
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		showUsage(stderr)
		return 1
	}

	c := &cli{stdout: stdout, stderr: stderr, diag: newDiagnostics(stderr)}
	command, rest := args[0], args[1:]
	switch command {
	case "build":
		return c.buildCommand(rest)
	case "check":
		return c.checkCommand(rest)
	case "wat":
		return c.watCommand(rest)
	case "run":
		return c.runCommand(rest)
	case "eval":
		return c.evalCommand(rest)
	case "help", "-h", "--help":
		showUsage(stdout)
		return 0
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n\n", command)
		showUsage(stderr)
		return 1
	}
}

// commonFlags are accepted by every command that compiles.
type commonFlags struct {
	config  *string
	verbose *bool
}

func (c *cli) newFlagSet(name, usage, summary string) (*flag.FlagSet, commonFlags) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	flags := commonFlags{
		config:  fs.String("config", "", "Path to a YAML config file (default: "+ConfigFilename+" if present)"),
		verbose: fs.Bool("v", false, "Show verbose compilation details"),
	}
	fs.Usage = func() {
		fmt.Fprintf(c.stderr, "Usage: taro %s\n", usage)
		fmt.Fprintf(c.stderr, "%s\n\n", summary)
		fmt.Fprintf(c.stderr, "Flags:\n")
		fs.PrintDefaults()
	}
	return fs, flags
}

// parseArgs parses flags and expects exactly one positional argument, a
// file unless what says otherwise.
func (c *cli) parseArgs(fs *flag.FlagSet, args []string, what string) (string, bool) {
	if err := fs.Parse(args); err != nil {
		return "", false
	}
	if fs.NArg() != 1 {
		fmt.Fprintf(c.stderr, "Error: expected exactly one %s argument\n", what)
		fs.Usage()
		return "", false
	}
	return fs.Arg(0), true
}

// setup loads the config and builds the logger it asks for.
func (c *cli) setup(flags commonFlags) (Config, *slog.Logger, bool) {
	cfg, err := LoadConfig(*flags.config)
	if err != nil {
		fmt.Fprintf(c.stderr, "Error: %v\n", err)
		return cfg, nil, false
	}
	level, _ := cfg.LogLevel()
	if *flags.verbose {
		level = slog.LevelDebug
	}
	return cfg, newLogger(c.stderr, level), true
}

// compileFile reads and compiles filename, reporting failures.
func (c *cli) compileFile(filename string, cfg Config, logger *slog.Logger) (*compiler.Output, []byte, bool) {
	src, err := os.ReadFile(filename)
	if err != nil {
		fmt.Fprintf(c.stderr, "Error reading file %s: %v\n", filename, err)
		return nil, nil, false
	}
	return c.compileSource(filename, src, cfg, logger)
}

// compileSource compiles src. name labels diagnostics and log lines.
func (c *cli) compileSource(name string, src []byte, cfg Config, logger *slog.Logger) (*compiler.Output, []byte, bool) {
	logger.Debug("compiling", "file", name, "bytes", len(src))
	out, err := compiler.Compile(src, cfg.Options(logger))
	if err != nil {
		c.diag.report(name, err)
		return nil, nil, false
	}

	wasmBytes, err := out.Binary()
	if err != nil {
		fmt.Fprintf(c.stderr, "Error encoding module: %v\n", err)
		return nil, nil, false
	}
	logger.Debug("compiled", "file", name, "wasm_bytes", len(wasmBytes), "segments", len(out.Segments))
	return out, wasmBytes, true
}

func (c *cli) buildCommand(args []string) int {
	fs, flags := c.newFlagSet("build", "build [-o output] [-config file] [-v] <file>", "Compile a .taro file to WebAssembly")
	output := fs.String("o", "", "Output file path (default: <filename>.wasm)")
	filename, ok := c.parseArgs(fs, args, "file")
	if !ok {
		return 1
	}
	cfg, logger, ok := c.setup(flags)
	if !ok {
		return 1
	}

	outputFile := *output
	if outputFile == "" {
		outputFile = strings.TrimSuffix(filename, ".taro") + ".wasm"
	}

	_, wasmBytes, ok := c.compileFile(filename, cfg, logger)
	if !ok {
		return 1
	}
	if err := os.WriteFile(outputFile, wasmBytes, 0644); err != nil {
		fmt.Fprintf(c.stderr, "Error writing WASM file %s: %v\n", outputFile, err)
		return 1
	}

	fmt.Fprintf(c.stdout, "Generated %s (%d bytes)\n", outputFile, len(wasmBytes))
	return 0
}

func (c *cli) checkCommand(args []string) int {
	fs, flags := c.newFlagSet("check", "check [-config file] [-v] <file>", "Parse and type-check a .taro file")
	filename, ok := c.parseArgs(fs, args, "file")
	if !ok {
		return 1
	}
	_, logger, ok := c.setup(flags)
	if !ok {
		return 1
	}

	src, err := os.ReadFile(filename)
	if err != nil {
		fmt.Fprintf(c.stderr, "Error reading file %s: %v\n", filename, err)
		return 1
	}
	typed, types, err := compiler.Check(src, logger)
	if err != nil {
		c.diag.report(filename, err)
		return 1
	}
	logger.Debug("checked", "file", filename, "types", types.Len())

	fmt.Fprintf(c.stdout, "%s: no errors found\n", filename)
	if *flags.verbose {
		fmt.Fprintf(c.stdout, "%s\n", compiler.TypedSExpr(typed, types))
	}
	return 0
}

func (c *cli) watCommand(args []string) int {
	fs, flags := c.newFlagSet("wat", "wat [-config file] [-v] <file>", "Print the compiled module in text format")
	filename, ok := c.parseArgs(fs, args, "file")
	if !ok {
		return 1
	}
	cfg, logger, ok := c.setup(flags)
	if !ok {
		return 1
	}

	out, _, ok := c.compileFile(filename, cfg, logger)
	if !ok {
		return 1
	}
	fmt.Fprint(c.stdout, out.Module.Text())
	return 0
}

func (c *cli) runCommand(args []string) int {
	fs, flags := c.newFlagSet("run", "run [-config file] [-v] <file>", "Compile a .taro file and execute it with the configured runtime")
	filename, ok := c.parseArgs(fs, args, "file")
	if !ok {
		return 1
	}
	cfg, logger, ok := c.setup(flags)
	if !ok {
		return 1
	}

	_, wasmBytes, ok := c.compileFile(filename, cfg, logger)
	if !ok {
		return 1
	}
	return c.execute(cfg, wasmBytes, logger)
}

func (c *cli) evalCommand(args []string) int {
	fs, flags := c.newFlagSet("eval", "eval [-config file] [-v] <code>", "Compile inline taro code and execute it with the configured runtime")
	code, ok := c.parseArgs(fs, args, "code")
	if !ok {
		return 1
	}
	cfg, logger, ok := c.setup(flags)
	if !ok {
		return 1
	}

	logger.Debug("evaluating", "code", code)
	_, wasmBytes, ok := c.compileSource("<eval>", []byte(code), cfg, logger)
	if !ok {
		return 1
	}
	return c.execute(cfg, wasmBytes, logger)
}

// execute writes the module to a temporary file and runs it.
func (c *cli) execute(cfg Config, wasmBytes []byte, logger *slog.Logger) int {
	tmp, err := os.CreateTemp("", "taro-*.wasm")
	if err != nil {
		fmt.Fprintf(c.stderr, "Error creating WASM file: %v\n", err)
		return 1
	}
	defer os.Remove(tmp.Name())
	_, err = tmp.Write(wasmBytes)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		fmt.Fprintf(c.stderr, "Error writing WASM file: %v\n", err)
		return 1
	}

	if err := c.executeWasmFile(cfg.Runtime.Command, tmp.Name(), logger); err != nil {
		fmt.Fprintf(c.stderr, "Execution failed: %v\n", err)
		return 1
	}
	return 0
}

// executeWasmFile runs the runtime command with the module path appended.
func (c *cli) executeWasmFile(command []string, wasmFile string, logger *slog.Logger) error {
	argv := append(append([]string{}, command[1:]...), wasmFile)
	logger.Debug("executing", "runtime", command[0], "args", argv)

	cmd := exec.Command(command[0], argv...)
	cmd.Stdout = c.stdout
	cmd.Stderr = c.stderr
	return cmd.Run()
}

package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/strager/taro/compiler"
	"golang.org/x/term"
)

func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

const (
	ansiBoldRed = "\x1b[1;31m"
	ansiBold    = "\x1b[1m"
	ansiReset   = "\x1b[0m"
)

// diagnostics prints compile errors as "file:line: error: message".
type diagnostics struct {
	w     io.Writer
	color bool
}

func newDiagnostics(w io.Writer) *diagnostics {
	color := false
	if f, ok := w.(*os.File); ok {
		color = term.IsTerminal(int(f.Fd()))
	}
	return &diagnostics{w: w, color: color}
}

func (d *diagnostics) report(filename string, err error) {
	location := filename
	msg := err.Error()
	var cerr *compiler.Error
	if errors.As(err, &cerr) {
		if cerr.Line > 0 {
			location = fmt.Sprintf("%s:%d", filename, cerr.Line)
		}
		msg = fmt.Sprintf("%s: %s", cerr.Kind, cerr.Msg)
	}

	if d.color {
		fmt.Fprintf(d.w, "%s%s:%s %serror:%s %s\n", ansiBold, location, ansiReset, ansiBoldRed, ansiReset, msg)
		return
	}
	fmt.Fprintf(d.w, "%s: error: %s\n", location, msg)
}

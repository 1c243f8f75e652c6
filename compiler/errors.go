package compiler

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a compile failure.
type ErrorKind string

const (
	SyntaxError              ErrorKind = "SyntaxError"
	UnknownTypeName          ErrorKind = "UnknownTypeName"
	DuplicateDeclaration     ErrorKind = "DuplicateDeclaration"
	DuplicateTypeDeclaration ErrorKind = "DuplicateTypeDeclaration"
	UndeclaredVariable       ErrorKind = "UndeclaredVariable"
	AssignToConst            ErrorKind = "AssignToConst"
	TypeMismatch             ErrorKind = "TypeMismatch"
	InvalidOperandType       ErrorKind = "InvalidOperandType"
	ArityMismatch            ErrorKind = "ArityMismatch"
	ReturnTypeMismatch       ErrorKind = "ReturnTypeMismatch"
	NonBooleanCondition      ErrorKind = "NonBooleanCondition"
	MissingStructField       ErrorKind = "MissingStructField"
	UnknownStructField       ErrorKind = "UnknownStructField"
	BreakOutsideLoop         ErrorKind = "BreakOutsideLoop"
	NotCallable              ErrorKind = "NotCallable"
	InvalidStatement         ErrorKind = "InvalidStatement"
	UnresolvedType           ErrorKind = "UnresolvedType"
	Unsupported              ErrorKind = "Unsupported"
	InvalidModule            ErrorKind = "InvalidModule"
)

// Error is a compile failure. Line is 0 when no source position applies.
type Error struct {
	Kind ErrorKind
	Line int
	Msg  string
}

func (e *Error) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s: %s", e.Line, e.Kind, e.Msg)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func errorf(kind ErrorKind, line int, format string, args ...any) *Error {
	return &Error{Kind: kind, Line: line, Msg: fmt.Sprintf(format, args...)}
}

// KindOf returns the kind of a compile error, or "" if err is not one.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// atLine fills in the source line of an error raised by a component that
// does not know it.
func atLine(err error, line int) error {
	var e *Error
	if errors.As(err, &e) && e.Line == 0 {
		e.Line = line
	}
	return err
}

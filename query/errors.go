package query

import (
	"errors"
	"fmt"
	"strings"
)

// Compile error categories. A *CompileError unwraps to exactly one of these,
// so callers test with errors.Is.
var (
	ErrUnknownColumn       = errors.New("unknown column")
	ErrUnknownTable        = errors.New("unknown table")
	ErrNoMatchingFunction  = errors.New("no matching function")
	ErrTypeMismatch        = errors.New("type mismatch")
	ErrUngroupedColumn     = errors.New("ungrouped column")
	ErrAggregateNotAllowed = errors.New("aggregate not allowed")
	ErrInvalidReference    = errors.New("invalid reference")
	ErrInvalidPattern      = errors.New("invalid pattern")
)

// Runtime failure categories wrapped by *ExecutionError.
var (
	ErrDivisionByZero  = errors.New("division by zero")
	ErrIntegerOverflow = errors.New("integer overflow")
)

// LexError reports a malformed token.
type LexError struct {
	Pos int
	Msg string
}

func (e *LexError) Error() string {
	return fmt.Sprintf("lex error at offset %d: %s", e.Pos, e.Msg)
}

// ParseError reports a grammar violation: what the parser expected and the
// token it found instead.
type ParseError struct {
	Pos      int
	Expected []string
	Found    string
	Msg      string // optional detail
}

func (e *ParseError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "parse error at offset %d: ", e.Pos)
	if e.Msg != "" {
		b.WriteString(e.Msg)
		if len(e.Expected) == 0 {
			return b.String()
		}
		b.WriteString(": ")
	}
	if len(e.Expected) > 0 {
		fmt.Fprintf(&b, "expected %s", strings.Join(e.Expected, " or "))
	}
	fmt.Fprintf(&b, ", found %s", e.Found)
	return b.String()
}

// CompileError is a static resolution failure. Kind is one of the Err*
// compile categories; Expr is the canonical rendering of the offending
// expression, when there is one.
type CompileError struct {
	Kind error
	Expr string
	Pos  int
	Msg  string
}

func (e *CompileError) Error() string {
	if e.Expr != "" {
		return fmt.Sprintf("compile error: %v: %s (in %s)", e.Kind, e.Msg, e.Expr)
	}
	return fmt.Sprintf("compile error: %v: %s", e.Kind, e.Msg)
}

func (e *CompileError) Unwrap() error {
	return e.Kind
}

func compileErrorf(kind error, node Expr, format string, args ...interface{}) *CompileError {
	ce := &CompileError{Kind: kind, Msg: fmt.Sprintf(format, args...)}
	if node != nil {
		ce.Expr = Format(node)
		ce.Pos = node.Position()
	}
	return ce
}

// ExecutionError is a runtime evaluation failure. RowKey identifies the
// source row (scan stage) or the group (aggregate stage) being evaluated.
type ExecutionError struct {
	Expr   string
	RowKey string
	Err    error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("execution error: evaluating %s for row %s: %v", e.Expr, e.RowKey, e.Err)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

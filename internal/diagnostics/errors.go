package diagnostics

import (
	"fmt"

	"github.com/funvibe/tyinfer/internal/ast"
)

type ErrorCode string

const (
	ErrT001 ErrorCode = "T001" // infinite type (occurs check)
	ErrT002 ErrorCode = "T002" // type mismatch
	ErrT003 ErrorCode = "T003" // underdetermined type
	ErrT004 ErrorCode = "T004" // convergence exhausted
	ErrT005 ErrorCode = "T005" // validation conflict
	ErrT006 ErrorCode = "T006" // join conflict
	ErrT007 ErrorCode = "T007" // unknown field
	ErrT008 ErrorCode = "T008" // arity mismatch
	ErrT009 ErrorCode = "T009" // declaration conflict
)

var errorMessages = map[ErrorCode]string{
	ErrT001: "infinite type",
	ErrT002: "type mismatch",
	ErrT003: "underdetermined type",
	ErrT004: "convergence exhausted",
	ErrT005: "validation conflict",
	ErrT006: "join conflict",
	ErrT007: "unknown field",
	ErrT008: "arity mismatch",
	ErrT009: "declaration conflict",
}

// Title returns the short description of a code.
func (c ErrorCode) Title() string {
	if m, ok := errorMessages[c]; ok {
		return m
	}
	return "error"
}

type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
)

func (s Severity) String() string {
	if s == SeverityWarning {
		return "warning"
	}
	return "error"
}

// Related is a secondary location, e.g. the usage that pinned a type first.
type Related struct {
	Location ast.Location
	Message  string
}

// DiagnosticError is a structured diagnostic with an optional chain of
// related locations.
type DiagnosticError struct {
	Code     ErrorCode
	Severity Severity
	Location ast.Location
	Message  string
	Related  []Related
}

func (e *DiagnosticError) Error() string {
	return fmt.Sprintf("%s: %s %s: %s", e.Location, e.Code, e.Code.Title(), e.Message)
}

// NewError creates an error-severity diagnostic.
func NewError(code ErrorCode, loc ast.Location, msg string) *DiagnosticError {
	return &DiagnosticError{Code: code, Severity: SeverityError, Location: loc, Message: msg}
}

// NewWarning creates a warning-severity diagnostic.
func NewWarning(code ErrorCode, loc ast.Location, msg string) *DiagnosticError {
	return &DiagnosticError{Code: code, Severity: SeverityWarning, Location: loc, Message: msg}
}

// WithRelated appends a related location and returns e.
func (e *DiagnosticError) WithRelated(loc ast.Location, msg string) *DiagnosticError {
	e.Related = append(e.Related, Related{Location: loc, Message: msg})
	return e
}

// IsWarning reports whether the diagnostic is a warning.
func (e *DiagnosticError) IsWarning() bool { return e.Severity == SeverityWarning }

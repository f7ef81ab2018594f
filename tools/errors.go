package tools

import (
	"errors"
	"fmt"
)

// Error kinds. Every failure returned by the sandboxed operations and the
// dispatcher matches exactly one of these with errors.Is.
var (
	ErrOutsideSandbox = errors.New("outside the permitted working directory")
	ErrNotFound       = errors.New("file not found or is not a regular file")
	ErrNotADirectory  = errors.New("not a directory")
	ErrNotAFile       = errors.New("exists but is not a regular file")
	ErrNotAScript     = errors.New("not a script")
	ErrExecution      = errors.New("execution failed")
	ErrUnknownTool    = errors.New("unknown tool")
	ErrMalformedCall  = errors.New("malformed call")
	ErrFilesystem     = errors.New("filesystem error")
)

// Error describes a failed tool operation.
type Error struct {
	Kind error  // one of the Err* kinds above
	Op   string // "list", "read", "write", "run", "call"
	Path string // path as supplied by the caller, if any
	Err  error  // underlying cause, may be nil
}

func (e *Error) Error() string {
	msg := e.Op
	if e.Path != "" {
		msg += fmt.Sprintf(" %q", e.Path)
	}
	msg += ": " + e.Kind.Error()
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func newError(kind error, op, path string, cause error) *Error {
	return &Error{Kind: kind, Op: op, Path: path, Err: cause}
}

package value

import "fmt"

type ErrorKind int

const (
	ErrTypeMismatch ErrorKind = iota
	ErrDivisionByZero
	ErrIndexOutOfBounds
	ErrNotCallable
	ErrStackOverflow
	ErrImmutableAssign
	ErrNotAClass
	ErrUndefinedVariable
)

func (k ErrorKind) String() string {
	switch k {
	case ErrTypeMismatch:
		return "type mismatch"
	case ErrDivisionByZero:
		return "division by zero"
	case ErrIndexOutOfBounds:
		return "index out of bounds"
	case ErrNotCallable:
		return "not callable"
	case ErrStackOverflow:
		return "stack overflow"
	case ErrImmutableAssign:
		return "immutable assignment"
	case ErrNotAClass:
		return "not a class"
	case ErrUndefinedVariable:
		return "undefined variable"
	}
	return "runtime error"
}

// RuntimeError is the single error type the VM surfaces. Line/Column are
// zero until the VM annotates the error with the best known location.
type RuntimeError struct {
	ErrKind ErrorKind
	Message string
	Line    int
	Column  int
	Text    string
}

func (e *RuntimeError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s at line %d, column %d: %s", e.ErrKind, e.Line, e.Column, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.ErrKind, e.Message)
}

func NewError(kind ErrorKind, format string, args ...interface{}) *RuntimeError {
	return &RuntimeError{ErrKind: kind, Message: fmt.Sprintf(format, args...)}
}

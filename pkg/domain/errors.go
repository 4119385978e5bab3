package domain

import (
	"errors"
	"fmt"
)

// Error kinds. Callers classify failures with errors.Is.
var (
	// ErrInvalidArgument marks invariant violations caused by the caller:
	// duplicate IDs, unknown references, malformed structures.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrNotFound marks lookups of unknown entities.
	ErrNotFound = errors.New("not found")
	// ErrIllegalActivity marks activity values rejected by the parent/child rule.
	ErrIllegalActivity = errors.New("illegal activity")
	// ErrFormat marks malformed markup input.
	ErrFormat = errors.New("malformed input")
	// ErrExitRequested marks a caller-requested abort of a long operation.
	// It is not a failure to report; drivers roll back and return quietly.
	ErrExitRequested = errors.New("exit requested")
)

// ContractError reports a violated model invariant. The operation that
// returns it has not mutated anything.
type ContractError struct {
	Op     string
	Kind   error
	Detail string
}

func (e *ContractError) Error() string {
	return fmt.Sprintf("%s: %v: %s", e.Op, e.Kind, e.Detail)
}

func (e *ContractError) Unwrap() error { return e.Kind }

// Contract builds a ContractError.
func Contract(op string, kind error, format string, args ...any) error {
	return &ContractError{Op: op, Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

// FormatError reports malformed markup at the factory boundary.
type FormatError struct {
	Element string
	Attr    string
	Line    int
	Detail  string
	Err     error
}

func (e *FormatError) Error() string {
	msg := "format error"
	if e.Line > 0 {
		msg = fmt.Sprintf("%s at line %d", msg, e.Line)
	}
	if e.Element != "" {
		msg = fmt.Sprintf("%s in <%s>", msg, e.Element)
	}
	if e.Attr != "" {
		msg = fmt.Sprintf("%s attribute %q", msg, e.Attr)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *FormatError) Unwrap() error { return e.Err }

// Is makes every FormatError match ErrFormat.
func (e *FormatError) Is(target error) bool { return target == ErrFormat }

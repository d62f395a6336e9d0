package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies a command failure.
type ErrorKind uint8

const (
	// KindNotEnoughArgs is a wrong argument count.
	KindNotEnoughArgs ErrorKind = iota + 1
	// KindNotImplemented is an unknown or stubbed command.
	KindNotImplemented
	// KindSyntax is a malformed option or argument list.
	KindSyntax
	// KindNotInteger is a value that is not a 64-bit integer.
	KindNotInteger
	// KindInvalidArgument is an argument of the wrong shape.
	KindInvalidArgument
	// KindRateLimited is a command rejected by the per-client rate limit.
	KindRateLimited
	// KindNotFloat is a value that is not a finite float.
	KindNotFloat
	// KindNaN is a float result that is NaN or infinite.
	KindNaN
	// KindOffsetRange is a negative or oversized string offset.
	KindOffsetRange
	// KindTooLarge is a string that would outgrow the bulk limit.
	KindTooLarge
)

// CommandError is the error a command handler returns. It renders as the
// text of the protocol error reply.
type CommandError struct {
	Kind ErrorKind
	Name string // command name, for NotEnoughArgs and NotImplemented
}

// Error implements the error interface. The result never contains CR or LF.
func (e *CommandError) Error() string {
	switch e.Kind {
	case KindNotEnoughArgs:
		return fmt.Sprintf("ERR wrong number of arguments for '%s' command", oneLine(e.Name))
	case KindNotImplemented:
		return fmt.Sprintf("ERR command '%s' is not yet implemented", oneLine(e.Name))
	case KindSyntax:
		return "ERR syntax error"
	case KindNotInteger:
		return "ERR value is not an integer or out of range"
	case KindInvalidArgument:
		return "ERR invalid argument"
	case KindRateLimited:
		return "ERR rate limit exceeded"
	case KindNotFloat:
		return "ERR value is not a valid float"
	case KindNaN:
		return "ERR increment would produce NaN or Infinity"
	case KindOffsetRange:
		return "ERR offset is out of range"
	case KindTooLarge:
		return "ERR string exceeds maximum allowed size (proto-max-bulk-len)"
	default:
		return "ERR unknown error"
	}
}

// Is matches any CommandError of the same kind.
func (e *CommandError) Is(target error) bool {
	t, ok := target.(*CommandError)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

var (
	// ErrSyntax indicates a malformed option list.
	ErrSyntax = &CommandError{Kind: KindSyntax}

	// ErrNotInteger indicates a value that is not an integer or overflows.
	ErrNotInteger = &CommandError{Kind: KindNotInteger}

	// ErrInvalidArgument indicates an argument of the wrong shape.
	ErrInvalidArgument = &CommandError{Kind: KindInvalidArgument}

	// ErrRateLimited indicates the client exceeded its command rate.
	ErrRateLimited = &CommandError{Kind: KindRateLimited}

	ErrNotFloat    = &CommandError{Kind: KindNotFloat}
	ErrNaN         = &CommandError{Kind: KindNaN}
	ErrOffsetRange = &CommandError{Kind: KindOffsetRange}
	ErrTooLarge    = &CommandError{Kind: KindTooLarge}
)

// NotEnoughArgs returns a wrong-arity error for the named command.
func NotEnoughArgs(name string) *CommandError {
	return &CommandError{Kind: KindNotEnoughArgs, Name: name}
}

// NotImplemented returns an error for an unknown or stubbed command.
func NotImplemented(name string) *CommandError {
	return &CommandError{Kind: KindNotImplemented, Name: name}
}

// Reply returns the protocol error text for err.
// CommandErrors render as their own text; anything else becomes "ERR <msg>".
func Reply(err error) string {
	var ce *CommandError
	if errors.As(err, &ce) {
		return ce.Error()
	}
	return "ERR " + oneLine(err.Error())
}

// crlf maps the line breaks an error reply cannot carry to spaces.
var crlf = strings.NewReplacer("\r", " ", "\n", " ")

func oneLine(s string) string {
	return crlf.Replace(s)
}

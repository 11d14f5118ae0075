package protocol

import (
	"errors"
	"fmt"
)

// Sentinel errors for command construction.
var (
	// ErrEmbeddedNewline indicates a command line containing CR or LF.
	ErrEmbeddedNewline = errors.New("command contains CR or LF")

	// ErrEmptyCommand indicates a blank command line.
	ErrEmptyCommand = errors.New("empty command")
)

// ArgumentErrorKind categorizes argument validation failures.
type ArgumentErrorKind int

const (
	// ErrKindOutOfRange indicates a numeric argument outside its range.
	ErrKindOutOfRange ArgumentErrorKind = iota
	// ErrKindInvalidState indicates a state token other than ON/OFF/?.
	ErrKindInvalidState
	// ErrKindInvalidTarget indicates an unknown verbosity target.
	ErrKindInvalidTarget
)

// ArgumentError reports an argument rejected by a command constructor.
type ArgumentError struct {
	Kind  ArgumentErrorKind
	Verb  Verb
	Name  string
	Value string
	Min   int
	Max   int
}

// Error implements the error interface.
func (e *ArgumentError) Error() string {
	switch e.Kind {
	case ErrKindOutOfRange:
		return fmt.Sprintf("%c: %s %s out of range [%d, %d]", e.Verb, e.Name, e.Value, e.Min, e.Max)
	case ErrKindInvalidState:
		return fmt.Sprintf("%c: invalid state '%s'", e.Verb, e.Value)
	case ErrKindInvalidTarget:
		return fmt.Sprintf("%c: invalid target '%s'", e.Verb, e.Value)
	default:
		return fmt.Sprintf("%c: invalid %s '%s'", e.Verb, e.Name, e.Value)
	}
}

func checkRange(verb Verb, name string, v, lo, hi int) error {
	if v < lo || v > hi {
		return &ArgumentError{
			Kind:  ErrKindOutOfRange,
			Verb:  verb,
			Name:  name,
			Value: fmt.Sprint(v),
			Min:   lo,
			Max:   hi,
		}
	}
	return nil
}

package mml

import (
	"errors"
	"fmt"
)

var (
	ErrBadLength       = errors.New("unsupported note length")
	ErrBadDots         = errors.New("too many dots")
	ErrBadTempo        = errors.New("tempo must be positive")
	ErrZeroDuration    = errors.New("duration rounds to zero samples")
	ErrTrailingPlus    = errors.New("'+' without a following length")
	ErrMissingArgument = errors.New("missing numeric argument")
	ErrNumberRange     = errors.New("number too large")
	ErrVolumeRange     = errors.New("volume out of range 0-100")
	ErrUnterminated    = errors.New("unterminated group")
	ErrEmptyTuplet     = errors.New("tuplet has no notes")
	ErrNestedTuplet    = errors.New("nested tuplets are not supported")
	ErrTooManyNotes    = errors.New("more notes than the tuplet declares")
	ErrTooFewNotes     = errors.New("fewer notes than the tuplet declares")
	ErrIllegal         = errors.New("unknown command")
	ErrChordContent    = errors.New("unexpected command inside chord")
	ErrEmptyChord      = errors.New("chord has no notes")
)

// SyntaxError locates a fault in the score text.
type SyntaxError struct {
	Pos  int
	Code byte
	Err  error
}

func (e *SyntaxError) Error() string {
	if e.Code == 0 {
		return fmt.Sprintf("offset %d: %v", e.Pos, e.Err)
	}
	return fmt.Sprintf("offset %d (%q): %v", e.Pos, e.Code, e.Err)
}

func (e *SyntaxError) Unwrap() error { return e.Err }

func fault(pos int, code byte, err error) Fault {
	return Fault{Err: &SyntaxError{Pos: pos, Code: code, Err: err}}
}

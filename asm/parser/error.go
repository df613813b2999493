package parser

import (
	"fmt"

	"github.com/dextercai/assembler-simulator/internal/translate"
)

var f = translate.From

// ErrorKind tags an assemble-time error with its category.
type ErrorKind int

// Known assemble-time error kinds.
const (
	_ ErrorKind = iota
	ErrInvalidLabel
	ErrStatement
	ErrMissingEnd
	ErrAddress
	ErrInvalidNumber
	ErrOperandType
	ErrMissingComma
	ErrDuplicateLabel
	ErrLabelNotExist
	ErrJumpDistance
	ErrAssembleOverflow
	ErrUnterminatedString
)

func (k ErrorKind) String() string {
	switch k {
	case ErrInvalidLabel:
		return "InvalidLabel"
	case ErrStatement:
		return "Statement"
	case ErrMissingEnd:
		return "MissingEnd"
	case ErrAddress:
		return "Address"
	case ErrInvalidNumber:
		return "InvalidNumber"
	case ErrOperandType:
		return "OperandType"
	case ErrMissingComma:
		return "MissingComma"
	case ErrDuplicateLabel:
		return "DuplicateLabel"
	case ErrLabelNotExist:
		return "LabelNotExist"
	case ErrJumpDistance:
		return "JumpDistance"
	case ErrAssembleOverflow:
		return "AssembleOverflow"
	case ErrUnterminatedString:
		return "UnterminatedString"
	}
	return ""
}

// Error defines an assemble-time error with source context.
// Length covers the offending source range starting at Pos.
type Error struct {
	Kind     ErrorKind
	Pos      Position
	Length   int
	Expected []OperandType // Populated for ErrOperandType.
	Msg      string
}

// NewError creates a new, formatted error message with the given source context.
func NewError(kind ErrorKind, pos Position, length int, format string, argv ...interface{}) *Error {
	return &Error{
		Kind:   kind,
		Pos:    pos,
		Length: length,
		Msg:    f(format, argv...),
	}
}

// tokenError creates an error covering the given token.
func tokenError(kind ErrorKind, tok Token, format string, argv ...interface{}) *Error {
	return NewError(kind, tok.Pos, tok.Len(), format, argv...)
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Pos, e.Msg)
}

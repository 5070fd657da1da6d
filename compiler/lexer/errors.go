package lexer

import (
	"fmt"

	"github.com/r3e-network/neo-solc/compiler/token"
)

// ErrorKind classifies lexical errors.
type ErrorKind int

const (
	ErrUnexpectedCharacter ErrorKind = iota
	ErrUnterminatedString
	ErrInvalidNumber
	ErrInvalidHexNumber
	ErrUnterminatedComment
	ErrInvalidEscape
)

func (k ErrorKind) String() string {
	switch k {
	case ErrUnexpectedCharacter:
		return "unexpected character"
	case ErrUnterminatedString:
		return "unterminated string"
	case ErrInvalidNumber:
		return "invalid number"
	case ErrInvalidHexNumber:
		return "invalid hex number"
	case ErrUnterminatedComment:
		return "unterminated comment"
	case ErrInvalidEscape:
		return "invalid escape sequence"
	default:
		return "lexical error"
	}
}

// Error is a lexical error with an exact source position.
type Error struct {
	Kind    ErrorKind
	Message string
	File    string
	Line    int
	Column  int
}

func (e *Error) Error() string {
	if e.File != "" {
		return fmt.Sprintf("%s:%d:%d: %s", e.File, e.Line, e.Column, e.Message)
	}
	return fmt.Sprintf("%d:%d: %s", e.Line, e.Column, e.Message)
}

func (l *Lexer) errorf(kind ErrorKind, pos token.Position, format string, args ...any) *Error {
	return &Error{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
		File:    l.file,
		Line:    pos.Line,
		Column:  pos.Column,
	}
}

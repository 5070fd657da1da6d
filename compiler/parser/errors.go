package parser

import (
	"fmt"
	"strings"

	"github.com/r3e-network/neo-solc/compiler/token"
)

// ParseError is a parse failure with enough context for a user-facing
// message: what was being parsed, what was expected, and how to fix it.
type ParseError struct {
	File     string
	Position token.Position

	Message string // clear and specific: "missing closing parenthesis"
	Context string // what we were parsing: "function signature"

	Expected []token.Kind // tokens that would have been valid here
	Got      token.Kind   // what was found instead

	Suggestion string // actionable fix: "add ')' after the last parameter"
	Example    string // valid syntax: "function f(a, b) -> r { ... }"
}

func (e ParseError) Error() string {
	var b strings.Builder
	if e.File != "" {
		fmt.Fprintf(&b, "%s:", e.File)
	}
	fmt.Fprintf(&b, "%d:%d: %s", e.Position.Line, e.Position.Column, e.Message)
	if e.Context != "" {
		fmt.Fprintf(&b, " (while parsing %s)", e.Context)
	}
	if len(e.Expected) > 0 {
		names := make([]string, len(e.Expected))
		for i, k := range e.Expected {
			names[i] = k.String()
		}
		fmt.Fprintf(&b, "; expected %s, got %s", strings.Join(names, " or "), e.Got)
	}
	return b.String()
}

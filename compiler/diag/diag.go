// Package diag holds the diagnostic types shared by every compilation stage
// and the per-invocation ErrorContext that collects them.
package diag

import (
	"fmt"

	"github.com/r3e-network/neo-solc/compiler/ast"
)

// Severity orders diagnostics from most to least severe.
type Severity int

const (
	Error Severity = iota + 1
	Warning
	Info
	Hint
)

func (s Severity) String() string {
	switch s {
	case Error:
		return "error"
	case Warning:
		return "warning"
	case Info:
		return "info"
	case Hint:
		return "hint"
	default:
		return "unknown"
	}
}

// Phase identifies the pipeline stage that produced a diagnostic.
type Phase int

const (
	PhaseLexing Phase = iota
	PhaseParsing
	PhaseSemantic
	PhaseOptimization
	PhaseCodegen
)

func (p Phase) String() string {
	switch p {
	case PhaseLexing:
		return "lexing"
	case PhaseParsing:
		return "parsing"
	case PhaseSemantic:
		return "semantic analysis"
	case PhaseOptimization:
		return "optimization"
	case PhaseCodegen:
		return "code generation"
	default:
		return "unknown"
	}
}

// RecoveryStrategy tells the stage how to continue after an error.
type RecoveryStrategy int

const (
	RecoverySkip RecoveryStrategy = iota
	RecoverySynchronize
	RecoveryInsert
	RecoveryReplace
	RecoveryAbort
)

// Diagnostic is a structured message with severity, code, source range, and
// an optional suggestion. It is the sole user-facing channel from any stage.
type Diagnostic struct {
	Severity   Severity
	Code       string
	Message    string
	Location   *ast.SourceLocation
	Related    []ast.SourceLocation
	Suggestion string
}

func (d Diagnostic) String() string {
	if d.Location != nil {
		if d.Location.File != "" {
			return fmt.Sprintf("%s:%d:%d: %s: %s", d.Location.File, d.Location.Line, d.Location.Column, d.Severity, d.Message)
		}
		return fmt.Sprintf("%d:%d: %s: %s", d.Location.Line, d.Location.Column, d.Severity, d.Message)
	}
	return fmt.Sprintf("%s: %s", d.Severity, d.Message)
}

// DefaultMaxErrors bounds how many errors one invocation collects before it
// gives up on recovery.
const DefaultMaxErrors = 20

// ErrorContext accumulates diagnostics across one compile invocation. It is
// append-only per stage and never shared across invocations.
type ErrorContext struct {
	SourceFiles     map[string]string
	Phase           Phase
	RecoveryEnabled bool
	MaxErrors       int

	diagnostics []Diagnostic
	errorCount  int
}

// NewErrorContext creates a context starting in the given phase.
func NewErrorContext(phase Phase) *ErrorContext {
	return &ErrorContext{
		SourceFiles:     make(map[string]string),
		Phase:           phase,
		RecoveryEnabled: true,
		MaxErrors:       DefaultMaxErrors,
	}
}

// AddSourceFile registers source text for diagnostic rendering.
func (c *ErrorContext) AddSourceFile(path, content string) {
	c.SourceFiles[path] = content
}

// SetPhase advances the context to the next pipeline stage.
func (c *ErrorContext) SetPhase(phase Phase) {
	c.Phase = phase
}

// Collect appends a diagnostic and returns the recovery strategy the current
// phase prescribes for it. Non-error severities never abort.
func (c *ErrorContext) Collect(d Diagnostic) RecoveryStrategy {
	c.diagnostics = append(c.diagnostics, d)
	if d.Severity != Error {
		return RecoverySkip
	}
	c.errorCount++

	if !c.RecoveryEnabled || c.errorCount >= c.MaxErrors {
		return RecoveryAbort
	}

	switch c.Phase {
	case PhaseLexing:
		// A broken literal cannot be resumed mid-token
		return RecoveryAbort
	case PhaseParsing:
		return RecoverySynchronize
	case PhaseSemantic:
		return RecoverySkip
	case PhaseOptimization, PhaseCodegen:
		return RecoveryAbort
	default:
		return RecoveryAbort
	}
}

// Errorf collects an Error-severity diagnostic built from a format string.
func (c *ErrorContext) Errorf(code string, loc *ast.SourceLocation, format string, args ...any) RecoveryStrategy {
	return c.Collect(Diagnostic{
		Severity: Error,
		Code:     code,
		Message:  fmt.Sprintf(format, args...),
		Location: loc,
	})
}

// Warnf collects a Warning-severity diagnostic.
func (c *ErrorContext) Warnf(code string, loc *ast.SourceLocation, format string, args ...any) {
	c.Collect(Diagnostic{
		Severity: Warning,
		Code:     code,
		Message:  fmt.Sprintf(format, args...),
		Location: loc,
	})
}

// Diagnostics returns everything collected so far, in collection order.
func (c *ErrorContext) Diagnostics() []Diagnostic {
	return c.diagnostics
}

// HasErrors reports whether any Error-severity diagnostic was collected.
func (c *ErrorContext) HasErrors() bool {
	return c.errorCount > 0
}

// ErrorCount returns the number of Error-severity diagnostics.
func (c *ErrorContext) ErrorCount() int {
	return c.errorCount
}

// CountBySeverity tallies collected diagnostics per severity.
func (c *ErrorContext) CountBySeverity() map[Severity]int {
	counts := make(map[Severity]int)
	for _, d := range c.diagnostics {
		counts[d.Severity]++
	}
	return counts
}

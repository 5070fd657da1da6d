package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/r3e-network/neo-solc/compiler/diag"
)

// CLIError is a formatted driver error with context and a hint.
type CLIError struct {
	Type    string // "usage", "io", "compile"
	Message string
	Details string
	Hint    string
}

func (e *CLIError) Error() string {
	var b strings.Builder
	b.WriteString(e.Message)
	if e.Details != "" {
		b.WriteString("\n")
		b.WriteString(e.Details)
	}
	if e.Hint != "" {
		b.WriteString("\n")
		b.WriteString(e.Hint)
	}
	return b.String()
}

// FormatError renders an error for the terminal with optional color.
func FormatError(w io.Writer, err error, useColor bool) {
	if err == nil {
		return
	}
	if e, ok := err.(*CLIError); ok {
		fmt.Fprintf(w, "%s%s\n", Colorize("Error: ", ColorRed, useColor), e.Message)
		if e.Details != "" {
			fmt.Fprintf(w, "  %s\n", Colorize(e.Details, ColorGray, useColor))
		}
		if e.Hint != "" {
			fmt.Fprintf(w, "  %s %s\n", Colorize("hint:", ColorCyan, useColor), e.Hint)
		}
		return
	}
	fmt.Fprintf(w, "%s%v\n", Colorize("Error: ", ColorRed, useColor), err)
}

// PrintDiagnostics writes diagnostics to w, colorized by severity. Warnings
// and below never fail a run; they are informational.
func PrintDiagnostics(w io.Writer, diagnostics []diag.Diagnostic, useColor bool) {
	for _, d := range diagnostics {
		label := d.Severity.String()
		color := ColorGray
		switch d.Severity {
		case diag.Error:
			color = ColorRed
		case diag.Warning:
			color = ColorYellow
		case diag.Info:
			color = ColorBlue
		}
		position := ""
		if d.Location != nil {
			if d.Location.File != "" {
				position = fmt.Sprintf("%s:%d:%d: ", d.Location.File, d.Location.Line, d.Location.Column)
			} else {
				position = fmt.Sprintf("%d:%d: ", d.Location.Line, d.Location.Column)
			}
		}
		fmt.Fprintf(w, "%s%s: %s", position, Colorize(label, color, useColor), d.Message)
		if d.Code != "" {
			fmt.Fprintf(w, " [%s]", d.Code)
		}
		fmt.Fprintln(w)
		if d.Suggestion != "" {
			fmt.Fprintf(w, "  %s %s\n", Colorize("hint:", ColorCyan, useColor), d.Suggestion)
		}
	}
}

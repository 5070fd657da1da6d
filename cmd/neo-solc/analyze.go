package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/r3e-network/neo-solc/compiler"
	"github.com/r3e-network/neo-solc/compiler/ast"
	"github.com/r3e-network/neo-solc/compiler/semantic"
)

func newAnalyzeCmd(flags *cliFlags) *cobra.Command {
	report := false
	cmd := &cobra.Command{
		Use:   "analyze <input.yul>",
		Short: "Run semantic analysis and print a report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			useColor := ShouldUseColor(flags.color)
			source, err := os.ReadFile(args[0])
			if err != nil {
				return &CLIError{Type: "io", Message: err.Error()}
			}
			opts := compiler.DefaultOptions()
			opts.SourcePath = args[0]

			analysis, unit, diagnostics := compiler.Analyze(string(source), opts)
			PrintDiagnostics(os.Stderr, diagnostics, useColor)
			if analysis == nil {
				return &CLIError{Type: "compile", Message: "analysis failed"}
			}
			if report {
				printReport(args[0], analysis, unit, useColor)
			}
			if hasErrors(diagnostics) {
				return &CLIError{Type: "compile", Message: "analysis reported errors"}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&report, "report", false, "Print the full analysis report")
	return cmd
}

func printReport(path string, analysis *semantic.Result, unit *ast.AST, useColor bool) {
	fmt.Printf("%s %s\n", Colorize("analysis report for", ColorCyan, useColor), path)

	names := make([]string, 0, len(analysis.FunctionSigs))
	for name := range analysis.FunctionSigs {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Printf("\nfunctions (%d):\n", len(names))
	for _, name := range names {
		sig := analysis.FunctionSigs[name]
		gas := staticGas(unit, name)
		fmt.Printf("  %-24s %d param(s), %d return(s), ~%d gas in builtin calls\n",
			name, len(sig.Params), len(sig.Returns), gas)
	}

	flow := analysis.ControlFlow
	fmt.Printf("\ncontrol flow:\n")
	fmt.Printf("  loops            %d (max depth %d)\n", flow.LoopCount, flow.MaxLoopDepth)
	fmt.Printf("  unreachable      %d statement(s)\n", flow.UnreachableStatements)

	if len(analysis.Hints) > 0 {
		fmt.Printf("\noptimization hints:\n")
		for _, hint := range analysis.Hints {
			switch hint.Kind {
			case semantic.HintInlinable:
				fmt.Printf("  %s is small enough to inline\n", hint.Target)
			case semantic.HintConstantExpression:
				fmt.Printf("  call to %s at %d:%d has constant arguments\n",
					hint.Target, hint.Location.Line, hint.Location.Column)
			}
		}
	}
}

// staticGas sums the builtin gas table over every call inside the named
// function.
func staticGas(unit *ast.AST, name string) uint64 {
	var total uint64
	ast.InspectAll(unit, func(n ast.Node) bool {
		fn, ok := n.(*ast.Function)
		if !ok || fn.Name != name {
			return true
		}
		ast.Inspect(fn.Body, func(inner ast.Node) bool {
			if call, ok := inner.(*ast.FunctionCall); ok {
				if sig := semantic.BuiltinSignature(call.Callee.Name); sig != nil {
					total += sig.GasCost
				}
			}
			return true
		})
		return false
	})
	return total
}

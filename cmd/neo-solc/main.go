// Command neo-solc compiles Yul source to NeoVM bytecode.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/r3e-network/neo-solc/compiler"
	"github.com/r3e-network/neo-solc/compiler/diag"
)

// Version is stamped by the release build.
var Version = "0.4.0-dev"

const (
	ExitSuccess          = 0
	ExitInvalidArguments = 1
	ExitIOError          = 2
	ExitCompileError     = 3
)

type cliFlags struct {
	output       string
	outputDir    string
	format       string
	optimization int
	debug        bool
	sourceMaps   bool
	gasLimit     uint64
	noSecurity   bool
	noRuntime    bool
	emit         string
	validateOnly bool
	stats        bool
	color        string
}

func main() {
	flags := &cliFlags{}
	exitCode := ExitSuccess

	rootCmd := &cobra.Command{
		Use:           "neo-solc <input.yul>",
		Short:         "Compile Yul source to NeoVM bytecode",
		Args:          cobra.ExactArgs(1),
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			code, err := runCompile(args[0], flags)
			exitCode = code
			return err
		},
	}

	rootCmd.Flags().StringVarP(&flags.output, "output", "o", "", "Output file (default: stdout)")
	rootCmd.Flags().StringVar(&flags.outputDir, "output-dir", "", "Output directory")
	rootCmd.Flags().StringVarP(&flags.format, "format", "f", "hex", "Output format: binary|hex|assembly|json|debug-info")
	rootCmd.Flags().IntVarP(&flags.optimization, "optimize", "O", 1, "Optimization level (0-3)")
	rootCmd.Flags().BoolVarP(&flags.debug, "debug", "d", false, "Generate debug information")
	rootCmd.Flags().BoolVar(&flags.sourceMaps, "source-maps", false, "Generate source maps")
	rootCmd.Flags().Uint64Var(&flags.gasLimit, "gas-limit", 0, "Fail when the gas estimate exceeds this limit")
	rootCmd.Flags().BoolVar(&flags.noSecurity, "no-security-checks", false, "Skip security analysis warnings")
	rootCmd.Flags().BoolVar(&flags.noRuntime, "no-runtime-validation", false, "Skip runtime validation warnings")
	rootCmd.Flags().StringVar(&flags.emit, "emit", "", "Emit an intermediate form: tokens|ast|assembly|metadata")
	rootCmd.Flags().BoolVar(&flags.validateOnly, "validate-only", false, "Stop after semantic analysis")
	rootCmd.Flags().BoolVar(&flags.stats, "stats", false, "Print pipeline statistics")
	rootCmd.PersistentFlags().StringVar(&flags.color, "color", "auto", "Colorize output: auto|always|never")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newCheckCmd(flags))
	rootCmd.AddCommand(newOptimizeCmd(flags))
	rootCmd.AddCommand(newAnalyzeCmd(flags))
	rootCmd.AddCommand(newDisassembleCmd(flags))
	rootCmd.AddCommand(newReplCmd(flags))

	if err := rootCmd.Execute(); err != nil {
		FormatError(os.Stderr, err, ShouldUseColor(flags.color))
		if exitCode == ExitSuccess {
			exitCode = ExitInvalidArguments
			if e, ok := err.(*CLIError); ok {
				switch e.Type {
				case "io":
					exitCode = ExitIOError
				case "compile":
					exitCode = ExitCompileError
				}
			}
		}
	}
	os.Exit(exitCode)
}

func runCompile(inputPath string, flags *cliFlags) (int, error) {
	useColor := ShouldUseColor(flags.color)

	source, err := os.ReadFile(inputPath)
	if err != nil {
		return ExitIOError, &CLIError{
			Type:    "io",
			Message: fmt.Sprintf("cannot read %s", inputPath),
			Details: err.Error(),
		}
	}

	opts := compiler.DefaultOptions()
	opts.SourcePath = inputPath
	opts.OptimizationLevel = flags.optimization
	opts.Debug = flags.debug
	opts.SourceMaps = flags.sourceMaps
	opts.GasLimit = flags.gasLimit

	format, err := parseFormat(flags.format)
	if err != nil {
		return ExitInvalidArguments, err
	}
	opts.OutputFormat = format

	if flags.emit != "" {
		return runEmit(string(source), opts, flags, useColor)
	}
	if flags.validateOnly {
		diagnostics := compiler.CheckOnly(string(source), opts)
		PrintDiagnostics(os.Stderr, diagnostics, useColor)
		if hasErrors(diagnostics) {
			return ExitCompileError, &CLIError{Type: "compile", Message: "validation failed"}
		}
		return ExitSuccess, nil
	}

	result := compiler.Compile(string(source), opts)
	PrintDiagnostics(os.Stderr, result.Diagnostics, useColor)
	if !result.Ok() {
		return ExitCompileError, &CLIError{
			Type:    "compile",
			Message: fmt.Sprintf("compilation of %s failed", inputPath),
		}
	}

	if flags.stats {
		printStats(result.Artifact, useColor)
	}

	rendered, err := compiler.Render(result.Artifact, format, result.Diagnostics)
	if err != nil {
		return ExitCompileError, &CLIError{Type: "compile", Message: err.Error()}
	}
	return writeOutput(rendered, inputPath, flags)
}

func runEmit(source string, opts compiler.Options, flags *cliFlags, useColor bool) (int, error) {
	switch flags.emit {
	case "tokens":
		tokens, err := compiler.Tokens(source, opts)
		if err != nil {
			return ExitCompileError, &CLIError{Type: "compile", Message: err.Error()}
		}
		for _, tok := range tokens {
			fmt.Printf("%4d:%-3d %s\n", tok.Pos.Line, tok.Pos.Column, tok)
		}
		return ExitSuccess, nil
	case "ast":
		_, unit, diagnostics := compiler.Analyze(source, opts)
		PrintDiagnostics(os.Stderr, diagnostics, useColor)
		if unit == nil || hasErrors(diagnostics) {
			return ExitCompileError, &CLIError{Type: "compile", Message: "cannot emit AST"}
		}
		fmt.Print(DumpAST(unit))
		return ExitSuccess, nil
	case "assembly", "metadata":
		result := compiler.Compile(source, opts)
		PrintDiagnostics(os.Stderr, result.Diagnostics, useColor)
		if !result.Ok() {
			return ExitCompileError, &CLIError{Type: "compile", Message: "compilation failed"}
		}
		if flags.emit == "assembly" {
			fmt.Print(result.Artifact.Assembly)
		} else {
			rendered, err := compiler.Render(result.Artifact, compiler.FormatJSON, result.Diagnostics)
			if err != nil {
				return ExitCompileError, err
			}
			fmt.Println(string(rendered))
		}
		return ExitSuccess, nil
	default:
		return ExitInvalidArguments, &CLIError{
			Type:    "usage",
			Message: fmt.Sprintf("unknown emit target %q", flags.emit),
			Hint:    "valid targets: tokens, ast, assembly, metadata",
		}
	}
}

func writeOutput(data []byte, inputPath string, flags *cliFlags) (int, error) {
	target := flags.output
	if target == "" && flags.outputDir != "" {
		base := strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath))
		target = filepath.Join(flags.outputDir, base+extensionFor(flags.format))
	}
	if target == "" {
		if _, err := os.Stdout.Write(data); err != nil {
			return ExitIOError, err
		}
		if len(data) > 0 && data[len(data)-1] != '\n' && flags.format != "binary" {
			fmt.Println()
		}
		return ExitSuccess, nil
	}
	if flags.outputDir != "" {
		if err := os.MkdirAll(flags.outputDir, 0o755); err != nil {
			return ExitIOError, &CLIError{Type: "io", Message: err.Error()}
		}
	}
	if err := os.WriteFile(target, data, 0o644); err != nil {
		return ExitIOError, &CLIError{Type: "io", Message: err.Error()}
	}
	return ExitSuccess, nil
}

func extensionFor(format string) string {
	switch format {
	case "binary":
		return ".nef"
	case "assembly":
		return ".asm"
	case "json", "debug-info":
		return ".json"
	default:
		return ".hex"
	}
}

func parseFormat(name string) (compiler.OutputFormat, error) {
	switch name {
	case "binary":
		return compiler.FormatBinary, nil
	case "hex":
		return compiler.FormatHex, nil
	case "assembly":
		return compiler.FormatAssembly, nil
	case "json":
		return compiler.FormatJSON, nil
	case "debug-info":
		return compiler.FormatDebugInfo, nil
	default:
		return 0, &CLIError{
			Type:    "usage",
			Message: fmt.Sprintf("unsupported format %q", name),
			Hint:    "valid formats: binary, hex, assembly, json, debug-info",
		}
	}
}

func hasErrors(diagnostics []diag.Diagnostic) bool {
	for _, d := range diagnostics {
		if d.Severity == diag.Error {
			return true
		}
	}
	return false
}

func printStats(artifact *compiler.Artifact, useColor bool) {
	s := artifact.Stats
	fmt.Fprintf(os.Stderr, "%s\n", Colorize("pipeline statistics", ColorCyan, useColor))
	fmt.Fprintf(os.Stderr, "  tokens          %d\n", s.TokenCount)
	fmt.Fprintf(os.Stderr, "  ast nodes       %d\n", s.NodeCount)
	fmt.Fprintf(os.Stderr, "  lex             %v\n", s.LexTime)
	fmt.Fprintf(os.Stderr, "  parse           %v\n", s.ParseTime)
	fmt.Fprintf(os.Stderr, "  analyze         %v\n", s.AnalyzeTime)
	fmt.Fprintf(os.Stderr, "  optimize        %v\n", s.OptimizeTime)
	fmt.Fprintf(os.Stderr, "  codegen         %v\n", s.CodegenTime)
	fmt.Fprintf(os.Stderr, "  bytecode size   %d bytes\n", len(artifact.Bytecode))
	fmt.Fprintf(os.Stderr, "  gas estimate    %d\n", artifact.GasEstimate)
	o := s.Optimizer
	if o.PassesRun > 0 {
		fmt.Fprintf(os.Stderr, "  optimizer: %d pass runs, %d iterations, %d folded, %d inlined, %d nodes removed\n",
			o.PassesRun, o.Iterations, o.ConstantsFolded, o.FunctionsInlined, o.NodesRemoved)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the compiler version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("neo-solc %s\n", Version)
		},
	}
}

func newCheckCmd(flags *cliFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "check <input.yul>",
		Short: "Validate a source file without generating code",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			useColor := ShouldUseColor(flags.color)
			source, err := os.ReadFile(args[0])
			if err != nil {
				return &CLIError{Type: "io", Message: err.Error()}
			}
			opts := compiler.DefaultOptions()
			opts.SourcePath = args[0]
			diagnostics := compiler.CheckOnly(string(source), opts)
			PrintDiagnostics(os.Stderr, diagnostics, useColor)
			if hasErrors(diagnostics) {
				return &CLIError{Type: "compile", Message: "check failed"}
			}
			fmt.Printf("%s: ok\n", args[0])
			return nil
		},
	}
}

func newOptimizeCmd(flags *cliFlags) *cobra.Command {
	level := 2
	cmd := &cobra.Command{
		Use:   "optimize <input.yul>",
		Short: "Optimize a source file and report pass statistics",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			useColor := ShouldUseColor(flags.color)
			source, err := os.ReadFile(args[0])
			if err != nil {
				return &CLIError{Type: "io", Message: err.Error()}
			}
			opts := compiler.DefaultOptions()
			opts.SourcePath = args[0]
			opts.OptimizationLevel = level
			result := compiler.Compile(string(source), opts)
			PrintDiagnostics(os.Stderr, result.Diagnostics, useColor)
			if !result.Ok() {
				return &CLIError{Type: "compile", Message: "compilation failed"}
			}
			printStats(result.Artifact, useColor)
			return nil
		},
	}
	cmd.Flags().IntVarP(&level, "level", "l", 2, "Optimization level (0-3)")
	return cmd
}

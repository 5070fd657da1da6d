// Package compiler wires the pipeline together: lexer, parser, semantic
// analyzer, optimizer, and code generator, in strict order. Each stage owns
// one representation and hands the next stage its output; the only
// cross-cutting channel is the per-invocation ErrorContext.
package compiler

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/r3e-network/neo-solc/compiler/ast"
	"github.com/r3e-network/neo-solc/compiler/codegen"
	"github.com/r3e-network/neo-solc/compiler/diag"
	"github.com/r3e-network/neo-solc/compiler/lexer"
	"github.com/r3e-network/neo-solc/compiler/optimizer"
	"github.com/r3e-network/neo-solc/compiler/parser"
	"github.com/r3e-network/neo-solc/compiler/semantic"
	"github.com/r3e-network/neo-solc/compiler/token"
)

// OutputFormat selects the rendering of a successful compilation.
type OutputFormat int

const (
	FormatBinary OutputFormat = iota
	FormatHex
	FormatAssembly
	FormatJSON
	FormatDebugInfo
)

// Options is the full invocation surface of the pipeline.
type Options struct {
	SourcePath        string
	TargetVersion     string
	OptimizationLevel int
	Debug             bool
	OutputFormat      OutputFormat
	SourceMaps        bool
	GasLimit          uint64 // 0 means unlimited
	MaxErrors         int    // 0 means the default
}

// DefaultOptions mirrors the CLI defaults.
func DefaultOptions() Options {
	return Options{
		TargetVersion:     "3.0",
		OptimizationLevel: 1,
	}
}

// Artifact is the output bundle of a successful compilation.
type Artifact struct {
	Bytecode    []byte
	Assembly    string
	ABI         []codegen.AbiEntry
	GasEstimate uint64
	SourceMap   []codegen.SourceMapEntry
	Debug       *codegen.DebugInfo
	Stats       Stats
}

// Stats records per-stage timing and the optimizer's counters.
type Stats struct {
	TokenCount   int
	NodeCount    int
	LexTime      time.Duration
	ParseTime    time.Duration
	AnalyzeTime  time.Duration
	OptimizeTime time.Duration
	CodegenTime  time.Duration
	Optimizer    optimizer.Statistics
}

// Result carries the artifact or the diagnostics explaining its absence.
// With any Error-severity diagnostic, Artifact is nil and no output is
// written.
type Result struct {
	Artifact    *Artifact
	Diagnostics []diag.Diagnostic
}

// Ok reports whether compilation succeeded.
func (r *Result) Ok() bool {
	return r.Artifact != nil
}

// Compile runs the whole pipeline over one source text. It never panics on
// malformed input and is safe to call repeatedly: no state outlives the
// invocation.
func Compile(source string, opts Options) *Result {
	ectx := diag.NewErrorContext(diag.PhaseLexing)
	if opts.MaxErrors > 0 {
		ectx.MaxErrors = opts.MaxErrors
	}
	path := opts.SourcePath
	if path != "" {
		ectx.AddSourceFile(path, source)
	}

	stats := Stats{}

	// lexing: a single error aborts, tokens cannot resume mid-literal
	lexStart := time.Now()
	tokens, err := lexer.Tokenize(source, lexer.WithFile(path))
	stats.LexTime = time.Since(lexStart)
	if err != nil {
		ectx.Collect(lexDiagnostic(err))
		return &Result{Diagnostics: ectx.Diagnostics()}
	}
	stats.TokenCount = len(tokens)

	// parsing: recovers at statement boundaries, fails the run afterwards
	ectx.SetPhase(diag.PhaseParsing)
	parseStart := time.Now()
	parsed := parser.Parse(tokens, parser.WithFile(path), parser.WithMaxErrors(ectx.MaxErrors))
	stats.ParseTime = time.Since(parseStart)
	for _, perr := range parsed.Errors {
		ectx.Collect(parseDiagnostic(perr))
	}
	if len(parsed.Errors) > 0 {
		return &Result{Diagnostics: ectx.Diagnostics()}
	}
	stats.NodeCount = ast.CountAll(parsed.AST)

	// semantic analysis: skips offending nodes and keeps collecting
	ectx.SetPhase(diag.PhaseSemantic)
	analyzeStart := time.Now()
	analysis := semantic.Analyze(parsed.AST, ectx)
	stats.AnalyzeTime = time.Since(analyzeStart)
	if ectx.HasErrors() {
		return &Result{Diagnostics: ectx.Diagnostics()}
	}

	// optimization: any failure is fatal and names the failing pass
	ectx.SetPhase(diag.PhaseOptimization)
	optimizeStart := time.Now()
	opt := optimizer.New(opts.OptimizationLevel)
	optimized, err := opt.Optimize(parsed.AST)
	stats.OptimizeTime = time.Since(optimizeStart)
	if err != nil {
		ectx.Errorf("optimizer-internal", nil, "%v", err)
		return &Result{Diagnostics: ectx.Diagnostics()}
	}
	stats.Optimizer = opt.Statistics()

	// code generation: fatal on first error, no partial bytecode
	ectx.SetPhase(diag.PhaseCodegen)
	codegenStart := time.Now()
	generator := codegen.New(analysis, codegen.Options{
		Debug:      opts.Debug,
		SourceMaps: opts.SourceMaps || opts.Debug,
	})
	generated, err := generator.Generate(optimized)
	stats.CodegenTime = time.Since(codegenStart)
	if err != nil {
		ectx.Errorf("codegen", nil, "%v", err)
		return &Result{Diagnostics: ectx.Diagnostics()}
	}

	if opts.GasLimit > 0 && generated.GasEstimate > opts.GasLimit {
		ectx.Errorf("gas-limit", nil,
			"estimated gas %d exceeds limit %d", generated.GasEstimate, opts.GasLimit)
		return &Result{Diagnostics: ectx.Diagnostics()}
	}

	return &Result{
		Artifact: &Artifact{
			Bytecode:    generated.Bytecode,
			Assembly:    generated.Assembly,
			ABI:         generated.ABI,
			GasEstimate: generated.GasEstimate,
			SourceMap:   generated.SourceMap,
			Debug:       generated.Debug,
			Stats:       stats,
		},
		Diagnostics: ectx.Diagnostics(),
	}
}

// CheckOnly runs the front half of the pipeline (through semantic analysis)
// and returns the diagnostics.
func CheckOnly(source string, opts Options) []diag.Diagnostic {
	ectx := diag.NewErrorContext(diag.PhaseLexing)
	if opts.MaxErrors > 0 {
		ectx.MaxErrors = opts.MaxErrors
	}
	tokens, err := lexer.Tokenize(source, lexer.WithFile(opts.SourcePath))
	if err != nil {
		ectx.Collect(lexDiagnostic(err))
		return ectx.Diagnostics()
	}
	ectx.SetPhase(diag.PhaseParsing)
	parsed := parser.Parse(tokens, parser.WithFile(opts.SourcePath), parser.WithMaxErrors(ectx.MaxErrors))
	for _, perr := range parsed.Errors {
		ectx.Collect(parseDiagnostic(perr))
	}
	if len(parsed.Errors) > 0 {
		return ectx.Diagnostics()
	}
	ectx.SetPhase(diag.PhaseSemantic)
	semantic.Analyze(parsed.AST, ectx)
	return ectx.Diagnostics()
}

// Analyze runs the front half and returns the semantic result alongside the
// diagnostics, for tooling that inspects the analysis itself.
func Analyze(source string, opts Options) (*semantic.Result, *ast.AST, []diag.Diagnostic) {
	ectx := diag.NewErrorContext(diag.PhaseLexing)
	tokens, err := lexer.Tokenize(source, lexer.WithFile(opts.SourcePath))
	if err != nil {
		ectx.Collect(lexDiagnostic(err))
		return nil, nil, ectx.Diagnostics()
	}
	ectx.SetPhase(diag.PhaseParsing)
	parsed := parser.Parse(tokens, parser.WithFile(opts.SourcePath))
	for _, perr := range parsed.Errors {
		ectx.Collect(parseDiagnostic(perr))
	}
	if len(parsed.Errors) > 0 {
		return nil, parsed.AST, ectx.Diagnostics()
	}
	ectx.SetPhase(diag.PhaseSemantic)
	analysis := semantic.Analyze(parsed.AST, ectx)
	return analysis, parsed.AST, ectx.Diagnostics()
}

// Tokens exposes the lexer for --emit tokens.
func Tokens(source string, opts Options) ([]token.Token, error) {
	return lexer.Tokenize(source, lexer.WithFile(opts.SourcePath))
}

// Render serializes an artifact per the requested output format.
func Render(artifact *Artifact, format OutputFormat, diagnostics []diag.Diagnostic) ([]byte, error) {
	switch format {
	case FormatBinary:
		return artifact.Bytecode, nil
	case FormatHex:
		return []byte(hex.EncodeToString(artifact.Bytecode)), nil
	case FormatAssembly:
		return []byte(artifact.Assembly), nil
	case FormatJSON:
		payload := jsonArtifact{
			Bytecode:    hex.EncodeToString(artifact.Bytecode),
			Assembly:    artifact.Assembly,
			ABI:         artifact.ABI,
			Metadata:    jsonMetadata{GasEstimate: artifact.GasEstimate},
			Diagnostics: diag.ToLSPAll(diagnostics),
		}
		return json.MarshalIndent(payload, "", "  ")
	case FormatDebugInfo:
		if artifact.SourceMap == nil {
			return nil, fmt.Errorf("no source map present; compile with source maps enabled")
		}
		return json.MarshalIndent(artifact.SourceMap, "", "  ")
	default:
		return nil, fmt.Errorf("unknown output format %d", format)
	}
}

type jsonMetadata struct {
	GasEstimate uint64 `json:"gasEstimate"`
}

type jsonArtifact struct {
	Bytecode    string               `json:"bytecode"`
	Assembly    string               `json:"assembly"`
	ABI         []codegen.AbiEntry   `json:"abi"`
	Metadata    jsonMetadata         `json:"metadata"`
	Diagnostics []diag.LSPDiagnostic `json:"diagnostics"`
}

func lexDiagnostic(err error) diag.Diagnostic {
	if lerr, ok := err.(*lexer.Error); ok {
		return diag.Diagnostic{
			Severity: diag.Error,
			Code:     "lex",
			Message:  lerr.Message,
			Location: &ast.SourceLocation{
				Line:   lerr.Line,
				Column: lerr.Column,
				File:   lerr.File,
				Length: 1,
			},
		}
	}
	return diag.Diagnostic{Severity: diag.Error, Code: "lex", Message: err.Error()}
}

func parseDiagnostic(perr parser.ParseError) diag.Diagnostic {
	return diag.Diagnostic{
		Severity: diag.Error,
		Code:     "parse",
		Message:  perr.Message,
		Location: &ast.SourceLocation{
			Line:   perr.Position.Line,
			Column: perr.Position.Column,
			Offset: perr.Position.Offset,
			Length: 1,
			File:   perr.File,
		},
		Suggestion: perr.Suggestion,
	}
}

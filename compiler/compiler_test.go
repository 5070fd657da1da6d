package compiler

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/r3e-network/neo-solc/compiler/diag"
)

func compileOK(t *testing.T, source string, opts Options) *Artifact {
	t.Helper()
	result := Compile(source, opts)
	if !result.Ok() {
		t.Fatalf("compilation of %q failed: %v", source, result.Diagnostics)
	}
	return result.Artifact
}

func errorDiagnostics(diags []diag.Diagnostic) []diag.Diagnostic {
	var out []diag.Diagnostic
	for _, d := range diags {
		if d.Severity == diag.Error {
			out = append(out, d)
		}
	}
	return out
}

// S1: constant folding across arithmetic.
func TestScenarioConstantFolding(t *testing.T) {
	source := "{ let x := add(1, 2)  let y := mul(3, 4)  let z := add(x, y) }"

	opts := DefaultOptions()
	opts.OptimizationLevel = 1
	result := Compile(source, opts)
	if !result.Ok() {
		t.Fatalf("compilation failed: %v", result.Diagnostics)
	}
	if len(errorDiagnostics(result.Diagnostics)) != 0 {
		t.Errorf("unexpected error diagnostics: %v", result.Diagnostics)
	}
	if len(result.Artifact.ABI) != 0 {
		t.Errorf("abi = %+v, want empty (no functions)", result.Artifact.ABI)
	}
	if result.Artifact.Stats.Optimizer.ConstantsFolded < 2 {
		t.Errorf("constants folded = %d, want at least add(1,2) and mul(3,4)",
			result.Artifact.Stats.Optimizer.ConstantsFolded)
	}

	opts.OptimizationLevel = 3
	level3 := compileOK(t, source, opts)
	if level3.Stats.Optimizer.ConstantsFolded < 3 {
		t.Errorf("level 3 folded = %d, want the z initializer folded too",
			level3.Stats.Optimizer.ConstantsFolded)
	}
}

// S2: conditional and loop.
func TestScenarioLoop(t *testing.T) {
	source := `{ let s := 0
    for { let i := 0 } lt(i, 3) { i := add(i, 1) } { s := add(s, i) } }`

	opts := DefaultOptions()
	opts.OptimizationLevel = 0
	artifact := compileOK(t, source, opts)

	if !strings.Contains(artifact.Assembly, "JMPIFNOT") {
		t.Error("assembly lacks JMPIFNOT")
	}
	if !strings.Contains(artifact.Assembly, "JMP ") {
		t.Error("assembly lacks an unconditional JMP")
	}

	baseline := compileOK(t, "{ let s := 0 }", opts)
	if artifact.GasEstimate <= baseline.GasEstimate {
		t.Errorf("loop gas %d not greater than baseline gas %d",
			artifact.GasEstimate, baseline.GasEstimate)
	}
}

// S3: switch over an undeclared scrutinee.
func TestScenarioUndefinedSwitchVariable(t *testing.T) {
	source := "{ switch x case 1 { let a := 1 } case 2 { let b := 2 } default { let c := 3 } }"
	result := Compile(source, DefaultOptions())
	if result.Ok() {
		t.Fatal("compilation succeeded; expected undefined variable error")
	}
	found := false
	for _, d := range result.Diagnostics {
		if d.Severity == diag.Error && strings.Contains(d.Message, "undefined variable x") {
			found = true
		}
	}
	if !found {
		t.Errorf("no undefined-variable diagnostic for x in %v", result.Diagnostics)
	}
}

// S4: duplicate function declaration.
func TestScenarioDuplicateFunction(t *testing.T) {
	source := `function f() -> r { r := 1 }
function f() -> r { r := 2 }`
	result := Compile(source, DefaultOptions())
	if result.Ok() {
		t.Fatal("compilation succeeded; expected duplicate declaration error")
	}
	duplicates := 0
	for _, d := range result.Diagnostics {
		if d.Severity == diag.Error && d.Code == "duplicate-declaration" {
			duplicates++
		}
	}
	if duplicates != 1 {
		t.Errorf("duplicate-declaration errors = %d, want exactly 1", duplicates)
	}
}

// S5: break at top level.
func TestScenarioIllegalBreak(t *testing.T) {
	result := Compile("{ break }", DefaultOptions())
	if result.Ok() {
		t.Fatal("compilation succeeded; expected break-outside-loop error")
	}
	found := false
	for _, d := range result.Diagnostics {
		if d.Severity == diag.Error && strings.Contains(d.Message, "break outside loop") {
			found = true
		}
	}
	if !found {
		t.Errorf("no break-outside-loop diagnostic in %v", result.Diagnostics)
	}
}

// S6: large string literal lowers through PUSHDATA2.
func TestScenarioLargeString(t *testing.T) {
	payload := strings.Repeat("A", 300)
	source := `{ let s := "` + payload + `" s := s }`

	opts := DefaultOptions()
	opts.OptimizationLevel = 0
	artifact := compileOK(t, source, opts)

	if !strings.Contains(artifact.Assembly, "PUSHDATA2") {
		t.Error("assembly lacks PUSHDATA2")
	}
	dataIndex := bytes.Index(artifact.Bytecode, []byte(payload))
	if dataIndex < 0 {
		t.Fatal("payload bytes missing from bytecode")
	}
	// 1 opcode + 2 length bytes precede the payload
	if artifact.Bytecode[dataIndex-3] != 0x0D {
		t.Errorf("byte before length prefix = 0x%02x, want PUSHDATA2", artifact.Bytecode[dataIndex-3])
	}
}

func TestHexRoundTripLaw(t *testing.T) {
	source := "function f(a) -> r { r := add(a, 1) }"
	artifact := compileOK(t, source, DefaultOptions())

	rendered, err := Render(artifact, FormatHex, nil)
	if err != nil {
		t.Fatalf("render hex failed: %v", err)
	}
	decoded, err := hex.DecodeString(string(rendered))
	if err != nil {
		t.Fatalf("hex output does not decode: %v", err)
	}
	binary, err := Render(artifact, FormatBinary, nil)
	if err != nil {
		t.Fatalf("render binary failed: %v", err)
	}
	if !bytes.Equal(decoded, binary) {
		t.Error("hex_decode(hex output) differs from binary output")
	}
	if string(rendered) != strings.ToLower(string(rendered)) {
		t.Error("hex output is not lowercase")
	}
	if strings.HasPrefix(string(rendered), "0x") {
		t.Error("hex output carries a 0x prefix")
	}
}

func TestDeterminism(t *testing.T) {
	source := `object "Token" {
		code {
			let supply := 1000
			switch supply case 1000 { supply := add(supply, 1) } default { supply := 0 }
		}
	}
function mint(amount) -> ok { ok := 1 }`
	opts := DefaultOptions()
	opts.OptimizationLevel = 2

	first := compileOK(t, source, opts)
	second := compileOK(t, source, opts)

	if !bytes.Equal(first.Bytecode, second.Bytecode) {
		t.Error("bytecode differs between identical runs")
	}
	if first.Assembly != second.Assembly {
		t.Error("assembly differs between identical runs")
	}
	if diff := cmp.Diff(first.ABI, second.ABI); diff != "" {
		t.Errorf("abi differs between identical runs:\n%s", diff)
	}
}

func TestJSONOutput(t *testing.T) {
	source := "function f(a) -> r { r := add(a, 1) }"
	artifact := compileOK(t, source, DefaultOptions())

	rendered, err := Render(artifact, FormatJSON, nil)
	if err != nil {
		t.Fatalf("render json failed: %v", err)
	}
	var payload struct {
		Bytecode string `json:"bytecode"`
		Assembly string `json:"assembly"`
		ABI      []struct {
			Name            string `json:"name"`
			Type            string `json:"type"`
			StateMutability string `json:"stateMutability"`
		} `json:"abi"`
		Metadata struct {
			GasEstimate uint64 `json:"gasEstimate"`
		} `json:"metadata"`
	}
	if err := json.Unmarshal(rendered, &payload); err != nil {
		t.Fatalf("json output does not parse: %v", err)
	}
	if payload.Bytecode == "" || payload.Assembly == "" {
		t.Error("json output misses bytecode or assembly")
	}
	if len(payload.ABI) != 1 || payload.ABI[0].Name != "f" || payload.ABI[0].StateMutability != "nonpayable" {
		t.Errorf("abi = %+v", payload.ABI)
	}
	if payload.Metadata.GasEstimate == 0 {
		t.Error("gas estimate missing from metadata")
	}
}

func TestDebugInfoFormatRequiresSourceMap(t *testing.T) {
	opts := DefaultOptions()
	opts.SourceMaps = true
	artifact := compileOK(t, "{ let x := 1 x := x }", opts)
	rendered, err := Render(artifact, FormatDebugInfo, nil)
	if err != nil {
		t.Fatalf("render debug-info failed: %v", err)
	}
	if !json.Valid(rendered) {
		t.Error("debug-info output is not valid JSON")
	}
}

func TestLexerErrorAbortsInvocation(t *testing.T) {
	result := Compile(`{ let s := "unterminated }`, DefaultOptions())
	if result.Ok() {
		t.Fatal("compilation succeeded on a lexical error")
	}
	if len(result.Diagnostics) != 1 {
		t.Errorf("diagnostics = %d, want exactly the lexical error", len(result.Diagnostics))
	}
	if result.Diagnostics[0].Code != "lex" {
		t.Errorf("code = %q, want lex", result.Diagnostics[0].Code)
	}
}

func TestParseErrorsAreCollected(t *testing.T) {
	result := Compile("{ let := 1 let := 2 }", DefaultOptions())
	if result.Ok() {
		t.Fatal("compilation succeeded on parse errors")
	}
	if len(errorDiagnostics(result.Diagnostics)) < 2 {
		t.Errorf("errors = %d, want multiple collected parse errors",
			len(errorDiagnostics(result.Diagnostics)))
	}
}

func TestWarningsDoNotPreventSuccess(t *testing.T) {
	// unused variable produces a warning only
	result := Compile("{ let unused := 1 }", DefaultOptions())
	if !result.Ok() {
		t.Fatalf("compilation failed: %v", result.Diagnostics)
	}
	warned := false
	for _, d := range result.Diagnostics {
		if d.Severity == diag.Warning {
			warned = true
		}
	}
	if !warned {
		t.Error("expected an unused-variable warning")
	}
}

func TestGasLimitEnforced(t *testing.T) {
	opts := DefaultOptions()
	opts.GasLimit = 1
	result := Compile("{ let x := add(1, 2) x := x }", opts)
	if result.Ok() {
		t.Fatal("compilation succeeded over the gas limit")
	}
}

func TestCheckOnlyStopsBeforeCodegen(t *testing.T) {
	// sload has no lowering, so full compilation fails but validation
	// succeeds
	source := "{ let x := sload(0) x := x }"
	diagnostics := CheckOnly(source, DefaultOptions())
	if len(errorDiagnostics(diagnostics)) != 0 {
		t.Errorf("check-only reported errors: %v", diagnostics)
	}
	result := Compile(source, DefaultOptions())
	if result.Ok() {
		t.Error("full compilation unexpectedly succeeded")
	}
}

func TestOptimizationLevelsProduceSmallerOrEqualCode(t *testing.T) {
	source := `function f() -> r {
		let a := add(1, 2)
		let b := mul(a, 2)
		r := add(a, b)
	}`
	o0 := DefaultOptions()
	o0.OptimizationLevel = 0
	unoptimized := compileOK(t, source, o0)

	o3 := DefaultOptions()
	o3.OptimizationLevel = 3
	optimized := compileOK(t, source, o3)

	if len(optimized.Bytecode) > len(unoptimized.Bytecode) {
		t.Errorf("optimized bytecode %d bytes exceeds unoptimized %d bytes",
			len(optimized.Bytecode), len(unoptimized.Bytecode))
	}
}

func TestObjectWithDataSegments(t *testing.T) {
	source := `object "Contract" {
		code { let ready := 1 ready := ready }
		data "name" "token"
	}`
	artifact := compileOK(t, source, DefaultOptions())
	if len(artifact.Bytecode) == 0 {
		t.Error("no bytecode generated for object code")
	}
}

func TestDiagnosticsSerializeToLSP(t *testing.T) {
	result := Compile("{ break }", DefaultOptions())
	lsp := diag.ToLSPAll(result.Diagnostics)
	if len(lsp) == 0 {
		t.Fatal("no LSP diagnostics")
	}
	first := lsp[0]
	if first.Severity != 1 {
		t.Errorf("severity = %d, want 1 (error)", first.Severity)
	}
	if first.Source != "neo-solc" {
		t.Errorf("source = %q, want neo-solc", first.Source)
	}
	if first.Range.Start.Line != 0 {
		t.Errorf("0-based line = %d, want 0", first.Range.Start.Line)
	}
}

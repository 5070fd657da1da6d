package semantic

import (
	"strings"
	"testing"

	"github.com/r3e-network/neo-solc/compiler/diag"
	"github.com/r3e-network/neo-solc/compiler/lexer"
	"github.com/r3e-network/neo-solc/compiler/parser"
)

func analyzeSource(t *testing.T, source string) (*Result, *diag.ErrorContext) {
	t.Helper()
	tokens, err := lexer.Tokenize(source)
	if err != nil {
		t.Fatalf("lexing failed: %v", err)
	}
	parsed := parser.Parse(tokens)
	if len(parsed.Errors) > 0 {
		t.Fatalf("parsing failed: %v", parsed.Errors[0])
	}
	ectx := diag.NewErrorContext(diag.PhaseSemantic)
	result := Analyze(parsed.AST, ectx)
	return result, ectx
}

func findDiagnostic(diags []diag.Diagnostic, code string) *diag.Diagnostic {
	for i := range diags {
		if diags[i].Code == code {
			return &diags[i]
		}
	}
	return nil
}

func countDiagnostics(diags []diag.Diagnostic, code string, severity diag.Severity) int {
	count := 0
	for _, d := range diags {
		if d.Code == code && d.Severity == severity {
			count++
		}
	}
	return count
}

func TestCleanDeclarationAndUse(t *testing.T) {
	_, ectx := analyzeSource(t, "{ let x := 1 let y := add(x, 2) x := y }")
	if ectx.HasErrors() {
		t.Fatalf("unexpected errors: %v", ectx.Diagnostics())
	}
}

func TestUndefinedVariableInSwitch(t *testing.T) {
	_, ectx := analyzeSource(t, "{ switch x case 1 { let a := 1 } case 2 { let b := 2 } default { let c := 3 } }")
	if !ectx.HasErrors() {
		t.Fatal("expected an error for undefined x")
	}
	d := findDiagnostic(ectx.Diagnostics(), CodeUndefinedVariable)
	if d == nil {
		t.Fatalf("no undefined-variable diagnostic in %v", ectx.Diagnostics())
	}
	if !strings.Contains(d.Message, "x") {
		t.Errorf("message %q does not name x", d.Message)
	}
}

func TestDuplicateFunctionReportsOnce(t *testing.T) {
	source := `function f() -> r { r := 1 }
function f() -> r { r := 2 }`
	_, ectx := analyzeSource(t, source)
	if got := countDiagnostics(ectx.Diagnostics(), CodeDuplicateDeclaration, diag.Error); got != 1 {
		t.Fatalf("duplicate-declaration errors = %d, want exactly 1", got)
	}
	d := findDiagnostic(ectx.Diagnostics(), CodeDuplicateDeclaration)
	if len(d.Related) == 0 {
		t.Error("duplicate diagnostic lacks the original declaration site")
	}
}

func TestBreakOutsideLoop(t *testing.T) {
	_, ectx := analyzeSource(t, "{ break }")
	d := findDiagnostic(ectx.Diagnostics(), CodeBreakOutsideLoop)
	if d == nil || d.Severity != diag.Error {
		t.Fatalf("expected break-outside-loop error, got %v", ectx.Diagnostics())
	}
	if !strings.Contains(d.Message, "break outside loop") {
		t.Errorf("message = %q", d.Message)
	}
}

func TestContinueOutsideLoop(t *testing.T) {
	_, ectx := analyzeSource(t, "{ continue }")
	if findDiagnostic(ectx.Diagnostics(), CodeContinueOutsideLoop) == nil {
		t.Fatal("expected continue-outside-loop error")
	}
}

func TestLeaveOutsideFunction(t *testing.T) {
	_, ectx := analyzeSource(t, "{ leave }")
	if findDiagnostic(ectx.Diagnostics(), CodeLeaveOutsideFunction) == nil {
		t.Fatal("expected leave-outside-function error")
	}
}

func TestBreakInsideLoopIsLegal(t *testing.T) {
	_, ectx := analyzeSource(t, "{ for { let i := 0 } lt(i, 3) { i := add(i, 1) } { break } }")
	if ectx.HasErrors() {
		t.Fatalf("unexpected errors: %v", ectx.Diagnostics())
	}
}

func TestBreakInSwitchCaseBindsToEnclosingLoop(t *testing.T) {
	source := `{ for { let i := 0 } lt(i, 3) { i := add(i, 1) } {
		switch i case 1 { break } default { continue }
	} }`
	_, ectx := analyzeSource(t, source)
	if ectx.HasErrors() {
		t.Fatalf("unexpected errors: %v", ectx.Diagnostics())
	}
}

func TestLeaveInsideFunctionIsLegal(t *testing.T) {
	_, ectx := analyzeSource(t, "function f() { leave }")
	if ectx.HasErrors() {
		t.Fatalf("unexpected errors: %v", ectx.Diagnostics())
	}
}

func TestBreakDoesNotEscapeFunctionBoundary(t *testing.T) {
	// the function body does not inherit the loop context around it
	source := `{ for { let i := 0 } lt(i, 1) { i := add(i, 1) } {
		function g() { break }
	} }`
	_, ectx := analyzeSource(t, source)
	if findDiagnostic(ectx.Diagnostics(), CodeBreakOutsideLoop) == nil {
		t.Fatal("expected break-outside-loop inside nested function")
	}
}

func TestDuplicateVariableInSameScope(t *testing.T) {
	_, ectx := analyzeSource(t, "{ let x := 1 let x := 2 }")
	if findDiagnostic(ectx.Diagnostics(), CodeDuplicateDeclaration) == nil {
		t.Fatal("expected duplicate-declaration error")
	}
}

func TestShadowingAcrossScopesIsPermitted(t *testing.T) {
	_, ectx := analyzeSource(t, "{ let x := 1 { let x := 2 let y := x } let z := x }")
	if ectx.HasErrors() {
		t.Fatalf("unexpected errors: %v", ectx.Diagnostics())
	}
}

func TestForwardReferenceWithinBlock(t *testing.T) {
	source := `{
		let x := helper(1)
		function helper(a) -> r { r := add(a, 1) }
	}`
	_, ectx := analyzeSource(t, source)
	if ectx.HasErrors() {
		t.Fatalf("forward reference rejected: %v", ectx.Diagnostics())
	}
}

func TestArityMismatchInCall(t *testing.T) {
	_, ectx := analyzeSource(t, "{ let x := add(1) }")
	d := findDiagnostic(ectx.Diagnostics(), CodeArityMismatch)
	if d == nil {
		t.Fatalf("expected arity-mismatch, got %v", ectx.Diagnostics())
	}
}

func TestDeclarationArityMismatch(t *testing.T) {
	source := `function pair() -> a, b { a := 1 b := 2 }
{ let x := pair() }`
	_, ectx := analyzeSource(t, source)
	if findDiagnostic(ectx.Diagnostics(), CodeArityMismatch) == nil {
		t.Fatal("expected arity-mismatch for one target from two returns")
	}
}

func TestAssignmentArityMatchesReturns(t *testing.T) {
	source := `function pair() -> a, b { a := 1 b := 2 }
{ let x := 0 let y := 0 x, y := pair() }`
	_, ectx := analyzeSource(t, source)
	if ectx.HasErrors() {
		t.Fatalf("unexpected errors: %v", ectx.Diagnostics())
	}
}

func TestAssignmentToUndefined(t *testing.T) {
	_, ectx := analyzeSource(t, "{ y := 1 }")
	if findDiagnostic(ectx.Diagnostics(), CodeUndefinedVariable) == nil {
		t.Fatal("expected undefined-variable error")
	}
}

func TestAssignmentToFunctionName(t *testing.T) {
	source := `function f() { leave }
{ f := 1 }`
	_, ectx := analyzeSource(t, source)
	if findDiagnostic(ectx.Diagnostics(), CodeNotAVariable) == nil {
		t.Fatal("expected not-a-variable error")
	}
}

func TestDuplicateCaseValues(t *testing.T) {
	_, ectx := analyzeSource(t, "{ let x := 1 switch x case 1 { leave } case 1 { leave } }")
	d := findDiagnostic(ectx.Diagnostics(), CodeDuplicateCase)
	if d == nil || d.Severity != diag.Error {
		t.Fatalf("expected duplicate-case error, got %v", ectx.Diagnostics())
	}
}

func TestUndefinedFunctionCall(t *testing.T) {
	_, ectx := analyzeSource(t, "{ let x := missing(1) }")
	if findDiagnostic(ectx.Diagnostics(), CodeUndefinedFunction) == nil {
		t.Fatal("expected undefined-function error")
	}
}

func TestUnusedVariableWarning(t *testing.T) {
	_, ectx := analyzeSource(t, "{ let unused := 1 }")
	d := findDiagnostic(ectx.Diagnostics(), CodeUnusedVariable)
	if d == nil {
		t.Fatal("expected unused-variable warning")
	}
	if d.Severity != diag.Warning {
		t.Errorf("severity = %v, want Warning", d.Severity)
	}
}

func TestUnreachableAfterLeave(t *testing.T) {
	_, ectx := analyzeSource(t, "function f() { leave let x := 1 }")
	d := findDiagnostic(ectx.Diagnostics(), CodeUnreachableCode)
	if d == nil || d.Severity != diag.Warning {
		t.Fatalf("expected unreachable-code warning, got %v", ectx.Diagnostics())
	}
}

func TestUnreachableAfterTerminatingBuiltin(t *testing.T) {
	_, ectx := analyzeSource(t, "{ revert(0, 0) let x := 1 }")
	if findDiagnostic(ectx.Diagnostics(), CodeUnreachableCode) == nil {
		t.Fatal("expected unreachable-code warning after revert")
	}
}

func TestConditionTypeWarning(t *testing.T) {
	_, ectx := analyzeSource(t, `{ let s := "text" if s { leave } }`)
	d := findDiagnostic(ectx.Diagnostics(), CodeConditionType)
	if d == nil || d.Severity != diag.Warning {
		t.Fatalf("expected condition-type warning, got %v", ectx.Diagnostics())
	}
	if d.Suggestion == "" {
		t.Error("warning lacks a suggestion")
	}
}

func TestBoolAndIntConditionsAccepted(t *testing.T) {
	_, ectx := analyzeSource(t, "{ let n := 5 if n { leave } if lt(n, 9) { leave } }")
	if findDiagnostic(ectx.Diagnostics(), CodeConditionType) != nil {
		t.Fatal("bool and uint256 conditions should not warn")
	}
}

func TestWidthPreservingCompatibility(t *testing.T) {
	// address and bytes32 reinterpret to and from uint256
	source := `{ let who:address := caller() let n := add(who, 1) }`
	_, ectx := analyzeSource(t, source)
	if findDiagnostic(ectx.Diagnostics(), CodeTypeMismatch) != nil {
		t.Fatalf("address should be compatible with uint256: %v", ectx.Diagnostics())
	}
}

func TestBoolArgumentRejectedForUint256Parameter(t *testing.T) {
	// lt produces a Bool; add takes uint256 and Bool is not in the
	// reinterpretation whitelist
	_, ectx := analyzeSource(t, "{ let n := add(lt(1, 2), 3) n := n }")
	d := findDiagnostic(ectx.Diagnostics(), CodeTypeMismatch)
	if d == nil || d.Severity != diag.Error {
		t.Fatalf("expected type-mismatch for Bool argument, got %v", ectx.Diagnostics())
	}
}

func TestUint256ArgumentRejectedForBoolParameter(t *testing.T) {
	source := `function requireFlag(flag:bool) { leave }
{ requireFlag(1) }`
	_, ectx := analyzeSource(t, source)
	d := findDiagnostic(ectx.Diagnostics(), CodeTypeMismatch)
	if d == nil || d.Severity != diag.Error {
		t.Fatalf("expected type-mismatch for uint256 argument, got %v", ectx.Diagnostics())
	}
}

func TestBuiltinRegistryCoversLexerTable(t *testing.T) {
	table := NewSymbolTable()
	for _, name := range []string{
		"add", "sub", "mul", "div", "mod", "lt", "gt", "eq", "iszero",
		"and", "or", "not", "mload", "mstore", "sload", "sstore",
		"caller", "timestamp", "keccak256", "sha256", "return", "revert",
	} {
		sig := table.LookupFunction(name)
		if sig == nil {
			t.Errorf("builtin %s missing from registry", name)
			continue
		}
		if !sig.IsBuiltin {
			t.Errorf("builtin %s not flagged as builtin", name)
		}
	}
}

func TestBuiltinPurity(t *testing.T) {
	pure := []string{"add", "sub", "mul", "div", "lt", "gt", "eq", "keccak256"}
	impure := []string{"sstore", "mstore", "caller", "timestamp", "return"}
	for _, name := range pure {
		if !IsPureBuiltin(name) {
			t.Errorf("%s should be pure", name)
		}
	}
	for _, name := range impure {
		if IsPureBuiltin(name) {
			t.Errorf("%s should not be pure", name)
		}
	}
}

func TestTerminatingBuiltins(t *testing.T) {
	for _, name := range []string{"return", "revert", "invalid", "stop", "selfdestruct"} {
		if !IsTerminating(name) {
			t.Errorf("%s should terminate", name)
		}
	}
	if IsTerminating("add") {
		t.Error("add should not terminate")
	}
}

func TestInlinableHint(t *testing.T) {
	result, ectx := analyzeSource(t, "function tiny(a) -> r { r := add(a, 1) }")
	if ectx.HasErrors() {
		t.Fatalf("unexpected errors: %v", ectx.Diagnostics())
	}
	found := false
	for _, hint := range result.Hints {
		if hint.Kind == HintInlinable && hint.Target == "tiny" {
			found = true
		}
	}
	if !found {
		t.Error("expected an inlinable hint for tiny")
	}
}

func TestControlFlowInfo(t *testing.T) {
	source := `{ for { let i := 0 } lt(i, 2) { i := add(i, 1) } {
		for { let j := 0 } lt(j, 2) { j := add(j, 1) } { }
	} }`
	result, _ := analyzeSource(t, source)
	if result.ControlFlow.LoopCount != 2 {
		t.Errorf("loop count = %d, want 2", result.ControlFlow.LoopCount)
	}
	if result.ControlFlow.MaxLoopDepth != 2 {
		t.Errorf("max loop depth = %d, want 2", result.ControlFlow.MaxLoopDepth)
	}
}

package parser

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/r3e-network/neo-solc/compiler/ast"
	"github.com/r3e-network/neo-solc/compiler/lexer"
	"github.com/r3e-network/neo-solc/compiler/token"
)

func parseSource(t *testing.T, source string) *Result {
	t.Helper()
	tokens, err := lexer.Tokenize(source)
	if err != nil {
		t.Fatalf("lexing %q failed: %v", source, err)
	}
	return Parse(tokens)
}

func parseOK(t *testing.T, source string) *ast.AST {
	t.Helper()
	result := parseSource(t, source)
	if len(result.Errors) > 0 {
		t.Fatalf("parse of %q failed: %v", source, result.Errors[0])
	}
	return result.AST
}

func firstBlock(t *testing.T, unit *ast.AST) *ast.Block {
	t.Helper()
	if len(unit.Items) == 0 {
		t.Fatal("no items parsed")
	}
	block, ok := unit.Items[0].(*ast.Block)
	if !ok {
		t.Fatalf("first item is %T, want *ast.Block", unit.Items[0])
	}
	return block
}

func TestParseEmptyBlock(t *testing.T) {
	unit := parseOK(t, "{ }")
	block := firstBlock(t, unit)
	if len(block.Statements) != 0 {
		t.Errorf("statements = %d, want 0", len(block.Statements))
	}
}

func TestParseVariableDeclaration(t *testing.T) {
	unit := parseOK(t, "{ let x := 42 }")
	block := firstBlock(t, unit)
	decl, ok := block.Statements[0].(*ast.VariableDeclaration)
	if !ok {
		t.Fatalf("statement is %T, want *ast.VariableDeclaration", block.Statements[0])
	}
	if len(decl.Vars) != 1 || decl.Vars[0].Name != "x" {
		t.Errorf("vars = %+v, want single x", decl.Vars)
	}
	lit, ok := decl.Init.(*ast.Literal)
	if !ok || lit.Value != "42" {
		t.Errorf("init = %+v, want literal 42", decl.Init)
	}
}

func TestParseMultiDeclaration(t *testing.T) {
	unit := parseOK(t, "{ let a, b, c := f() }")
	block := firstBlock(t, unit)
	decl := block.Statements[0].(*ast.VariableDeclaration)
	names := make([]string, len(decl.Vars))
	for i, v := range decl.Vars {
		names[i] = v.Name
	}
	if diff := cmp.Diff([]string{"a", "b", "c"}, names); diff != "" {
		t.Errorf("names mismatch:\n%s", diff)
	}
	if _, ok := decl.Init.(*ast.FunctionCall); !ok {
		t.Errorf("init = %T, want call", decl.Init)
	}
}

func TestParseTypedDeclaration(t *testing.T) {
	unit := parseOK(t, "{ let x:u256 := 1 let ok:bool := true }")
	block := firstBlock(t, unit)
	first := block.Statements[0].(*ast.VariableDeclaration)
	if first.Vars[0].Type.Name != ast.Uint256 {
		t.Errorf("x type = %s, want uint256", first.Vars[0].Type.Name)
	}
	second := block.Statements[1].(*ast.VariableDeclaration)
	if second.Vars[0].Type.Name != ast.Bool {
		t.Errorf("ok type = %s, want bool", second.Vars[0].Type.Name)
	}
}

func TestParseAssignment(t *testing.T) {
	unit := parseOK(t, "{ let x := 1 x := add(x, 1) }")
	block := firstBlock(t, unit)
	assign, ok := block.Statements[1].(*ast.Assignment)
	if !ok {
		t.Fatalf("statement is %T, want *ast.Assignment", block.Statements[1])
	}
	if len(assign.Targets) != 1 || assign.Targets[0].Name != "x" {
		t.Errorf("targets = %+v", assign.Targets)
	}
}

func TestParseMultiAssignment(t *testing.T) {
	unit := parseOK(t, "{ a, b := g() }")
	block := firstBlock(t, unit)
	assign := block.Statements[0].(*ast.Assignment)
	if len(assign.Targets) != 2 {
		t.Fatalf("targets = %d, want 2", len(assign.Targets))
	}
}

func TestParseFunction(t *testing.T) {
	unit := parseOK(t, "function transfer(from, to, amount) -> ok { ok := 1 }")
	fn, ok := unit.Items[0].(*ast.Function)
	if !ok {
		t.Fatalf("item is %T, want *ast.Function", unit.Items[0])
	}
	if fn.Name != "transfer" {
		t.Errorf("name = %q", fn.Name)
	}
	if len(fn.Params) != 3 || len(fn.Returns) != 1 {
		t.Errorf("params = %d returns = %d, want 3 and 1", len(fn.Params), len(fn.Returns))
	}
}

func TestParseFunctionMultipleReturns(t *testing.T) {
	unit := parseOK(t, "function divmod(a, b) -> q, r { q := div(a, b) r := mod(a, b) }")
	fn := unit.Items[0].(*ast.Function)
	if len(fn.Returns) != 2 {
		t.Errorf("returns = %d, want 2", len(fn.Returns))
	}
}

func TestParseIf(t *testing.T) {
	unit := parseOK(t, "{ if lt(1, 2) { let x := 1 } }")
	block := firstBlock(t, unit)
	ifStmt, ok := block.Statements[0].(*ast.If)
	if !ok {
		t.Fatalf("statement is %T, want *ast.If", block.Statements[0])
	}
	call, ok := ifStmt.Cond.(*ast.FunctionCall)
	if !ok || call.Callee.Name != "lt" {
		t.Errorf("cond = %+v, want lt call", ifStmt.Cond)
	}
}

func TestParseSwitch(t *testing.T) {
	unit := parseOK(t, `{ let x := 1 switch x case 1 { let a := 1 } case 2 { let b := 2 } default { let c := 3 } }`)
	block := firstBlock(t, unit)
	sw, ok := block.Statements[1].(*ast.Switch)
	if !ok {
		t.Fatalf("statement is %T, want *ast.Switch", block.Statements[1])
	}
	if len(sw.Cases) != 2 {
		t.Errorf("cases = %d, want 2", len(sw.Cases))
	}
	if sw.Default == nil {
		t.Error("default clause missing")
	}
	if sw.Cases[0].Value.Value != "1" || sw.Cases[1].Value.Value != "2" {
		t.Errorf("case values = %q, %q", sw.Cases[0].Value.Value, sw.Cases[1].Value.Value)
	}
}

func TestParseSwitchWithoutDefault(t *testing.T) {
	unit := parseOK(t, "{ let x := 0 switch x case 0 { leave } }")
	block := firstBlock(t, unit)
	sw := block.Statements[1].(*ast.Switch)
	if sw.Default != nil {
		t.Error("unexpected default clause")
	}
}

func TestParseFor(t *testing.T) {
	unit := parseOK(t, "{ for { let i := 0 } lt(i, 3) { i := add(i, 1) } { let s := i } }")
	block := firstBlock(t, unit)
	loop, ok := block.Statements[0].(*ast.ForLoop)
	if !ok {
		t.Fatalf("statement is %T, want *ast.ForLoop", block.Statements[0])
	}
	if len(loop.Init.Statements) != 1 || len(loop.Post.Statements) != 1 || len(loop.Body.Statements) != 1 {
		t.Errorf("init/post/body = %d/%d/%d, want 1/1/1",
			len(loop.Init.Statements), len(loop.Post.Statements), len(loop.Body.Statements))
	}
}

func TestParseControlTransfers(t *testing.T) {
	unit := parseOK(t, "{ for { } 1 { } { break continue } leave }")
	block := firstBlock(t, unit)
	loop := block.Statements[0].(*ast.ForLoop)
	if _, ok := loop.Body.Statements[0].(*ast.Break); !ok {
		t.Errorf("first body statement is %T, want *ast.Break", loop.Body.Statements[0])
	}
	if _, ok := loop.Body.Statements[1].(*ast.Continue); !ok {
		t.Errorf("second body statement is %T, want *ast.Continue", loop.Body.Statements[1])
	}
	if _, ok := block.Statements[1].(*ast.Leave); !ok {
		t.Errorf("second statement is %T, want *ast.Leave", block.Statements[1])
	}
}

func TestParseObject(t *testing.T) {
	source := `object "Token" {
		code { let x := 1 }
		data "meta" "v1"
		object "Runtime" {
			code { leave }
		}
	}`
	unit := parseOK(t, source)
	obj, ok := unit.Items[0].(*ast.Object)
	if !ok {
		t.Fatalf("item is %T, want *ast.Object", unit.Items[0])
	}
	if obj.Name != "Token" {
		t.Errorf("name = %q", obj.Name)
	}
	if obj.Code == nil || len(obj.Code.Statements) != 1 {
		t.Error("code block missing or wrong size")
	}
	if len(obj.Data) != 1 || obj.Data[0].Name != "meta" || obj.Data[0].Value != "v1" {
		t.Errorf("data = %+v", obj.Data)
	}
	if _, ok := obj.Children["Runtime"]; !ok {
		t.Error("child object Runtime missing")
	}
}

func TestParseNestedCalls(t *testing.T) {
	unit := parseOK(t, "{ let x := add(mul(2, 3), div(10, 5)) }")
	block := firstBlock(t, unit)
	decl := block.Statements[0].(*ast.VariableDeclaration)
	call := decl.Init.(*ast.FunctionCall)
	if call.Callee.Name != "add" || len(call.Args) != 2 {
		t.Fatalf("call = %+v", call)
	}
	inner := call.Args[0].(*ast.FunctionCall)
	if inner.Callee.Name != "mul" {
		t.Errorf("first arg callee = %q, want mul", inner.Callee.Name)
	}
}

func TestCommentsAreSkipped(t *testing.T) {
	unit := parseOK(t, "{ /* setup */ let x := 1 // done\n }")
	block := firstBlock(t, unit)
	if len(block.Statements) != 1 {
		t.Errorf("statements = %d, want 1", len(block.Statements))
	}
}

func TestTrailingCommaRejected(t *testing.T) {
	result := parseSource(t, "function f(a,) { }")
	if len(result.Errors) == 0 {
		t.Fatal("expected an error for trailing comma")
	}
	if result.Errors[0].Got != token.RPAREN {
		t.Errorf("got token = %s, want RPAREN", result.Errors[0].Got)
	}
}

func TestMissingClosingParen(t *testing.T) {
	result := parseSource(t, "{ let x := add(1, 2 }")
	if len(result.Errors) == 0 {
		t.Fatal("expected an error for missing paren")
	}
}

func TestBuiltinMustBeCalled(t *testing.T) {
	result := parseSource(t, "{ let x := add }")
	if len(result.Errors) == 0 {
		t.Fatal("expected an error for uncalled builtin")
	}
}

func TestErrorRecoveryCollectsMultiple(t *testing.T) {
	// three malformed statements, with a valid one after the first
	result := parseSource(t, "{ let := 1 let ok := 2 if { } let := 3 }")
	if len(result.Errors) < 2 {
		t.Fatalf("errors = %d, want at least 2", len(result.Errors))
	}
	if result.AST == nil {
		t.Fatal("partial tree missing")
	}
}

func TestParseErrorHasPositionAndContext(t *testing.T) {
	result := parseSource(t, "function (a) { }")
	if len(result.Errors) == 0 {
		t.Fatal("expected an error")
	}
	perr := result.Errors[0]
	if perr.Position.Line != 1 {
		t.Errorf("line = %d, want 1", perr.Position.Line)
	}
	if perr.Context == "" {
		t.Error("context missing")
	}
	if perr.Message == "" {
		t.Error("message missing")
	}
}

// Every node's [offset, offset+length) must lie within the input.
func TestNodeLocationsInRange(t *testing.T) {
	source := `function f(a) -> r {
		r := add(a, 1)
		if lt(r, 10) { r := 10 }
		switch r case 10 { leave } default { r := 0 }
		for { let i := 0 } lt(i, r) { i := add(i, 1) } { }
	}`
	unit := parseOK(t, source)
	ast.InspectAll(unit, func(n ast.Node) bool {
		loc := n.Loc()
		if loc.Offset < 0 || loc.Offset+loc.Length > len(source) {
			t.Errorf("node %T location [%d, %d) outside input of length %d",
				n, loc.Offset, loc.Offset+loc.Length, len(source))
		}
		return true
	})
}

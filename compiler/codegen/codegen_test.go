package codegen

import (
	"encoding/binary"
	"strings"
	"testing"

	"github.com/r3e-network/neo-solc/compiler/diag"
	"github.com/r3e-network/neo-solc/compiler/lexer"
	"github.com/r3e-network/neo-solc/compiler/neovm"
	"github.com/r3e-network/neo-solc/compiler/parser"
	"github.com/r3e-network/neo-solc/compiler/semantic"
)

func generate(t *testing.T, source string, opts Options) *Result {
	t.Helper()
	result, err := tryGenerate(t, source, opts)
	if err != nil {
		t.Fatalf("generate failed for %q: %v", source, err)
	}
	return result
}

func tryGenerate(t *testing.T, source string, opts Options) (*Result, error) {
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
	analysis := semantic.Analyze(parsed.AST, ectx)
	if ectx.HasErrors() {
		t.Fatalf("analysis failed: %v", ectx.Diagnostics())
	}
	return New(analysis, opts).Generate(parsed.AST)
}

func assertContainsOpcode(t *testing.T, code []byte, op neovm.Opcode) {
	t.Helper()
	instrs, err := neovm.Disassemble(code)
	if err != nil {
		t.Fatalf("disassembly failed: %v", err)
	}
	for _, instr := range instrs {
		if instr.Op == op {
			return
		}
	}
	t.Errorf("opcode %s not found in bytecode", op.Name())
}

func TestEmptyBlock(t *testing.T) {
	result := generate(t, "{ }", Options{})
	if len(result.Bytecode) != 1 || result.Bytecode[0] != byte(neovm.RET) {
		t.Errorf("bytecode = %x, want bare RET", result.Bytecode)
	}
}

func TestIntegerEncodingSelection(t *testing.T) {
	tests := []struct {
		value string
		want  neovm.Opcode
	}{
		{"0", neovm.PUSH0},
		{"1", neovm.PUSH1},
		{"16", neovm.PUSH16},
		{"17", neovm.PUSHINT8},
		{"300", neovm.PUSHINT16},
		{"70000", neovm.PUSHINT32},
		{"5000000000", neovm.PUSHINT64},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			result := generate(t, "function f() -> r { r := "+tt.value+" }", Options{})
			assertContainsOpcode(t, result.Bytecode, tt.want)
		})
	}
}

func TestWideIntegerEncoding(t *testing.T) {
	// 2^200 needs the 256-bit push
	big := "1606938044258990275541962092341162602522202993782792835301376"
	result := generate(t, "function f() -> r { r := "+big+" }", Options{})
	assertContainsOpcode(t, result.Bytecode, neovm.PUSHINT256)
}

func TestBooleanLiterals(t *testing.T) {
	result := generate(t, "function f() -> r { r := true }", Options{})
	assertContainsOpcode(t, result.Bytecode, neovm.PUSH1)
	result = generate(t, "function f() -> r { r := false }", Options{})
	assertContainsOpcode(t, result.Bytecode, neovm.PUSH0)
}

func TestBuiltinTemplates(t *testing.T) {
	tests := []struct {
		call string
		want neovm.Opcode
	}{
		{"add(a, b)", neovm.ADD},
		{"sub(a, b)", neovm.SUB},
		{"mul(a, b)", neovm.MUL},
		{"div(a, b)", neovm.DIV},
		{"mod(a, b)", neovm.MOD},
		{"lt(a, b)", neovm.LT},
		{"gt(a, b)", neovm.GT},
		{"eq(a, b)", neovm.NUMEQUAL},
		{"and(a, b)", neovm.BOOLAND},
		{"or(a, b)", neovm.BOOLOR},
	}
	for _, tt := range tests {
		t.Run(tt.call, func(t *testing.T) {
			result := generate(t, "function f(a, b) -> r { r := "+tt.call+" }", Options{})
			assertContainsOpcode(t, result.Bytecode, tt.want)
		})
	}
}

func TestIsZeroTemplate(t *testing.T) {
	result := generate(t, "function f(a) -> r { r := iszero(a) }", Options{})
	if !strings.Contains(result.Assembly, "PUSH0\nNUMEQUAL") {
		t.Errorf("iszero did not lower to PUSH0;NUMEQUAL:\n%s", result.Assembly)
	}
}

func TestCryptoTemplates(t *testing.T) {
	result := generate(t, `function f(x:bytes) -> r { r := keccak256(x) }`, Options{})
	assertContainsOpcode(t, result.Bytecode, neovm.HASH256)
	result = generate(t, `function f(x:bytes) -> r { r := sha256(x) }`, Options{})
	assertContainsOpcode(t, result.Bytecode, neovm.SHA256)
}

func TestUnsupportedBuiltinFails(t *testing.T) {
	_, err := tryGenerate(t, "{ let x := sload(0) x := x }", Options{})
	if err == nil {
		t.Fatal("expected an unsupported-construct error for sload")
	}
	cerr, ok := err.(*Error)
	if !ok || cerr.Kind != ErrUnsupported {
		t.Errorf("error = %v, want unsupported construct", err)
	}
}

func TestFunctionPrologue(t *testing.T) {
	result := generate(t, "function f(a, b) -> r { r := add(a, b) }", Options{})
	instrs, err := neovm.Disassemble(result.Bytecode)
	if err != nil {
		t.Fatalf("disassembly failed: %v", err)
	}
	if instrs[0].Op != neovm.INITSLOT {
		t.Fatalf("first instruction = %s, want INITSLOT", instrs[0].Op.Name())
	}
	// one local (the return variable), two parameters
	if instrs[0].Operand[0] != 1 || instrs[0].Operand[1] != 2 {
		t.Errorf("INITSLOT %d %d, want 1 2", instrs[0].Operand[0], instrs[0].Operand[1])
	}
	if instrs[len(instrs)-1].Op != neovm.RET {
		t.Error("function does not end with RET")
	}
}

func TestParameterAndLocalAccess(t *testing.T) {
	result := generate(t, "function f(a) -> r { r := add(a, 1) }", Options{})
	assertContainsOpcode(t, result.Bytecode, neovm.LDARG0)
	assertContainsOpcode(t, result.Bytecode, neovm.STLOC0)
	// the return value is loaded back before RET
	assertContainsOpcode(t, result.Bytecode, neovm.LDLOC0)
}

func TestShortSlotEncodingBoundary(t *testing.T) {
	// eight locals: slots 0..6 use short forms, slot 7 the indexed form
	var b strings.Builder
	b.WriteString("{ ")
	names := []string{"a", "b", "c", "d", "e", "f", "g", "h"}
	for _, name := range names {
		b.WriteString("let " + name + " := 1 ")
	}
	b.WriteString("h := add(a, h) ")
	b.WriteString("}")
	result := generate(t, b.String(), Options{})
	assertContainsOpcode(t, result.Bytecode, neovm.STLOC)
	assertContainsOpcode(t, result.Bytecode, neovm.LDLOC)
}

func TestIfLowering(t *testing.T) {
	result := generate(t, "{ let x := 1 if lt(x, 2) { x := 2 } }", Options{})
	assertContainsOpcode(t, result.Bytecode, neovm.JMPIFNOT)
}

func TestForLowering(t *testing.T) {
	source := "{ let s := 0 for { let i := 0 } lt(i, 3) { i := add(i, 1) } { s := add(s, i) } }"
	result := generate(t, source, Options{})
	assertContainsOpcode(t, result.Bytecode, neovm.JMPIFNOT)
	assertContainsOpcode(t, result.Bytecode, neovm.JMP)
}

func TestSwitchLowering(t *testing.T) {
	source := "{ let x := 1 switch x case 1 { x := 2 } case 3 { x := 4 } default { x := 5 } }"
	result := generate(t, source, Options{})
	assertContainsOpcode(t, result.Bytecode, neovm.DUP)
	assertContainsOpcode(t, result.Bytecode, neovm.NUMEQUAL)
	assertContainsOpcode(t, result.Bytecode, neovm.JMPIF)
	assertContainsOpcode(t, result.Bytecode, neovm.DROP)
}

func TestUserCallLowering(t *testing.T) {
	source := `function helper(a) -> r { r := add(a, 1) }
function f() -> out { out := helper(41) }`
	result := generate(t, source, Options{})
	assertContainsOpcode(t, result.Bytecode, neovm.CALL)
}

// After resolution no jump operand may hold the placeholder value.
func TestLabelClosure(t *testing.T) {
	source := `function helper(a) -> r { r := add(a, 1) }
{ let x := helper(1) for { let i := 0 } lt(i, x) { i := add(i, 1) } { if eq(i, 2) { break } } }`
	result := generate(t, source, Options{})
	instrs, err := neovm.Disassemble(result.Bytecode)
	if err != nil {
		t.Fatalf("disassembly failed: %v", err)
	}
	for _, instr := range instrs {
		switch instr.Op {
		case neovm.JMP, neovm.JMPIF, neovm.JMPIFNOT, neovm.CALL:
			value := binary.LittleEndian.Uint32(instr.Operand)
			if value == 0xFFFFFFFF {
				t.Fatalf("placeholder operand at offset %d", instr.Offset)
			}
			if int(value) > len(result.Bytecode) {
				t.Errorf("jump target %d beyond bytecode of %d bytes", value, len(result.Bytecode))
			}
		}
	}
}

func TestStackHeightLimitEnforced(t *testing.T) {
	if neovm.MaxStackDepth != 2048 {
		t.Fatalf("stack limit = %d, want 2048", neovm.MaxStackDepth)
	}
}

func TestMaxStackTracked(t *testing.T) {
	result := generate(t, "function f(a, b) -> r { r := add(add(a, b), add(a, b)) }", Options{})
	if result.MaxStack < 2 {
		t.Errorf("max stack = %d, want at least 2", result.MaxStack)
	}
	if result.MaxStack > neovm.MaxStackDepth {
		t.Errorf("max stack %d exceeds limit", result.MaxStack)
	}
}

func TestLargeStringUsesPushData2(t *testing.T) {
	payload := strings.Repeat("A", 300)
	result := generate(t, `{ let s := "`+payload+`" s := s }`, Options{})
	if !strings.Contains(result.Assembly, "PUSHDATA2") {
		t.Fatalf("assembly lacks PUSHDATA2:\n%s", truncate(result.Assembly))
	}
	// INITSLOT (3) + PUSHDATA2 (1+2+300) + STLOC0 (1) + LDLOC0 (1) +
	// STLOC0 (1) + RET (1)
	want := 3 + 1 + 2 + 300 + 1 + 1 + 1 + 1
	if len(result.Bytecode) != want {
		t.Errorf("bytecode length = %d, want %d", len(result.Bytecode), want)
	}
}

func TestShortStringUsesBareForm(t *testing.T) {
	result := generate(t, `{ let s := "hi" s := s }`, Options{})
	if !strings.Contains(result.Assembly, "PUSHBYTES2") {
		t.Errorf("assembly lacks bare push:\n%s", result.Assembly)
	}
}

func TestMediumStringUsesPushData1(t *testing.T) {
	payload := strings.Repeat("B", 100)
	result := generate(t, `{ let s := "`+payload+`" s := s }`, Options{})
	if !strings.Contains(result.Assembly, "PUSHDATA1") {
		t.Errorf("assembly lacks PUSHDATA1")
	}
}

func TestHexLiteralPushesBytes(t *testing.T) {
	result := generate(t, "{ let h := 0xdeadbeef h := h }", Options{})
	if !strings.Contains(result.Assembly, "PUSHBYTES4 0xdeadbeef") {
		t.Errorf("assembly = %s", result.Assembly)
	}
}

func TestABIGeneration(t *testing.T) {
	source := `function transfer(from, to, amount) -> ok { ok := 1 }
function pause() { leave }`
	result := generate(t, source, Options{})
	if len(result.ABI) != 2 {
		t.Fatalf("abi entries = %d, want 2", len(result.ABI))
	}
	transfer := result.ABI[0]
	if transfer.Name != "transfer" || transfer.Type != "function" {
		t.Errorf("entry = %+v", transfer)
	}
	if len(transfer.Inputs) != 3 || transfer.Inputs[0].Name != "arg0" || transfer.Inputs[0].Type != "uint256" {
		t.Errorf("inputs = %+v", transfer.Inputs)
	}
	if len(transfer.Outputs) != 1 || transfer.Outputs[0].Name != "ret0" {
		t.Errorf("outputs = %+v", transfer.Outputs)
	}
	if transfer.StateMutability != "nonpayable" {
		t.Errorf("mutability = %q", transfer.StateMutability)
	}
}

func TestEmptyABIForNoFunctions(t *testing.T) {
	result := generate(t, "{ let x := 1 x := x }", Options{})
	if len(result.ABI) != 0 {
		t.Errorf("abi entries = %d, want 0", len(result.ABI))
	}
}

func TestGasEstimatePositive(t *testing.T) {
	result := generate(t, "{ let x := add(1, 2) x := x }", Options{})
	if result.GasEstimate == 0 {
		t.Error("gas estimate is zero")
	}
}

func TestSourceMapPopulated(t *testing.T) {
	result := generate(t, "{ let x := 1 if x { x := 2 } }", Options{SourceMaps: true})
	if len(result.SourceMap) == 0 {
		t.Fatal("source map empty")
	}
	tags := make(map[string]bool)
	for _, entry := range result.SourceMap {
		tags[entry.Instruction] = true
		if entry.Offset > len(result.Bytecode) {
			t.Errorf("entry offset %d beyond bytecode", entry.Offset)
		}
	}
	if !tags["LET"] || !tags["IF"] {
		t.Errorf("statement tags missing: %v", tags)
	}
}

func TestDebugInfo(t *testing.T) {
	source := "function f(a) -> r { r := add(a, 1) }"
	result := generate(t, source, Options{Debug: true})
	if result.Debug == nil {
		t.Fatal("debug info missing")
	}
	if _, ok := result.Debug.FunctionOffsets["f"]; !ok {
		t.Error("function offset for f missing")
	}
	if _, ok := result.Debug.VariableMap["f.a"]; !ok {
		t.Errorf("variable map lacks f.a: %v", result.Debug.VariableMap)
	}
}

func TestAssemblyMatchesDisassembly(t *testing.T) {
	// the listing and a table-driven disassembly must agree instruction by
	// instruction for code that avoids the ambiguous bare push range
	source := `function f(a, b) -> r { r := add(a, b) if lt(r, 10) { r := 10 } }`
	result := generate(t, source, Options{})
	listing, err := neovm.Listing(result.Bytecode)
	if err != nil {
		t.Fatalf("disassembly failed: %v", err)
	}
	if result.Assembly != listing {
		t.Errorf("assembly and disassembly differ:\n--- assembly\n%s--- disassembly\n%s",
			result.Assembly, listing)
	}
}

func truncate(s string) string {
	if len(s) > 400 {
		return s[:400] + "..."
	}
	return s
}

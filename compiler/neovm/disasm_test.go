package neovm

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestSpecTableConsistency(t *testing.T) {
	for op, spec := range Specs {
		if spec.Name == "" {
			t.Errorf("opcode 0x%02x has no name", byte(op))
		}
		if spec.Effect.Pops < 0 || spec.Effect.Pushes < 0 {
			t.Errorf("%s has a negative stack effect", spec.Name)
		}
	}
}

func TestOpcodeValuesMatchTarget(t *testing.T) {
	// spot checks against the published N3 encoding
	tests := []struct {
		op   Opcode
		want byte
	}{
		{PUSH0, 0x10},
		{PUSH16, 0x20},
		{PUSHM1, 0x0F},
		{PUSHDATA1, 0x0C},
		{PUSHDATA2, 0x0D},
		{PUSHDATA4, 0x0E},
		{JMP, 0x22},
		{JMPIF, 0x23},
		{JMPIFNOT, 0x24},
		{CALL, 0x2B},
		{RET, 0x40},
		{INITSLOT, 0x57},
		{LDLOC0, 0x68},
		{STLOC0, 0x70},
		{LDARG0, 0x78},
		{ADD, 0x95},
		{MUL, 0x97},
		{NUMEQUAL, 0xA3},
		{LT, 0xA5},
		{SHA256, 0xB0},
		{HASH256, 0xB2},
	}
	for _, tt := range tests {
		if byte(tt.op) != tt.want {
			t.Errorf("%s = 0x%02x, want 0x%02x", tt.op.Name(), byte(tt.op), tt.want)
		}
	}
}

func TestDisassembleSimpleSequence(t *testing.T) {
	// PUSH1; PUSH2; ADD; RET
	code := []byte{0x11, 0x12, 0x95, 0x40}
	instrs, err := Disassemble(code)
	if err != nil {
		t.Fatalf("disassemble failed: %v", err)
	}
	var names []string
	for _, instr := range instrs {
		names = append(names, instr.Mnemonic())
	}
	want := []string{"PUSH1", "PUSH2", "ADD", "RET"}
	if diff := cmp.Diff(want, names); diff != "" {
		t.Errorf("mnemonics mismatch (-want +got):\n%s", diff)
	}
}

func TestDisassembleJumpOperand(t *testing.T) {
	// JMP 0x00000010 (little-endian)
	code := []byte{0x22, 0x10, 0x00, 0x00, 0x00}
	instrs, err := Disassemble(code)
	if err != nil {
		t.Fatalf("disassemble failed: %v", err)
	}
	if got := instrs[0].Mnemonic(); got != "JMP 16" {
		t.Errorf("mnemonic = %q, want %q", got, "JMP 16")
	}
}

func TestDisassemblePushData1(t *testing.T) {
	code := []byte{byte(PUSHDATA1), 3, 'a', 'b', 'c'}
	instrs, err := Disassemble(code)
	if err != nil {
		t.Fatalf("disassemble failed: %v", err)
	}
	if len(instrs) != 1 {
		t.Fatalf("instructions = %d, want 1", len(instrs))
	}
	if string(instrs[0].Operand) != "abc" {
		t.Errorf("operand = %q, want abc", instrs[0].Operand)
	}
}

func TestDisassemblePushData2(t *testing.T) {
	payload := strings.Repeat("A", 300)
	code := append([]byte{byte(PUSHDATA2), 0x2C, 0x01}, payload...)
	instrs, err := Disassemble(code)
	if err != nil {
		t.Fatalf("disassemble failed: %v", err)
	}
	if len(instrs[0].Operand) != 300 {
		t.Errorf("operand length = %d, want 300", len(instrs[0].Operand))
	}
	if !strings.HasPrefix(instrs[0].Mnemonic(), "PUSHDATA2") {
		t.Errorf("mnemonic = %q", instrs[0].Mnemonic())
	}
}

func TestDisassembleInitSlot(t *testing.T) {
	code := []byte{byte(INITSLOT), 2, 1, 0x40}
	instrs, err := Disassemble(code)
	if err != nil {
		t.Fatalf("disassemble failed: %v", err)
	}
	if got := instrs[0].Mnemonic(); got != "INITSLOT 2 1" {
		t.Errorf("mnemonic = %q, want INITSLOT 2 1", got)
	}
	if instrs[1].Op != RET {
		t.Errorf("second instruction = %s, want RET", instrs[1].Op.Name())
	}
}

func TestDisassembleTruncatedOperand(t *testing.T) {
	code := []byte{byte(JMP), 0x01} // jump needs 4 operand bytes
	if _, err := Disassemble(code); err == nil {
		t.Fatal("expected an error for truncated operand")
	}
}

func TestDisassembleTruncatedData(t *testing.T) {
	code := []byte{byte(PUSHDATA1), 10, 'x'} // promises 10 bytes, has 1
	if _, err := Disassemble(code); err == nil {
		t.Fatal("expected an error for truncated data")
	}
}

func TestBarePushDecodes(t *testing.T) {
	// 0x30 is not a table opcode, so it reads as a 48-byte bare push
	code := append([]byte{0x30}, make([]byte, 48)...)
	instrs, err := Disassemble(code)
	if err != nil {
		t.Fatalf("disassemble failed: %v", err)
	}
	if len(instrs) != 1 || len(instrs[0].Operand) != 48 {
		t.Fatalf("bare push decoded as %+v", instrs)
	}
	if !strings.HasPrefix(instrs[0].Mnemonic(), "PUSHBYTES48") {
		t.Errorf("mnemonic = %q", instrs[0].Mnemonic())
	}
}

func TestListing(t *testing.T) {
	code := []byte{0x11, 0x12, 0x95, 0x40}
	listing, err := Listing(code)
	if err != nil {
		t.Fatalf("listing failed: %v", err)
	}
	want := "PUSH1\nPUSH2\nADD\nRET\n"
	if listing != want {
		t.Errorf("listing = %q, want %q", listing, want)
	}
}

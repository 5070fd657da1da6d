package neovm

import (
	"encoding/binary"
	"fmt"
	"strings"
)

// Instruction is one decoded instruction.
type Instruction struct {
	Offset  int
	Op      Opcode
	Operand []byte // raw operand bytes, data included for pushes
}

// Mnemonic renders the instruction the way the assembly listing does:
// OPCODE_NAME followed by decoded operands.
func (i Instruction) Mnemonic() string {
	spec, ok := Specs[i.Op]
	if !ok {
		return fmt.Sprintf("PUSHBYTES%d 0x%x", len(i.Operand), i.Operand)
	}
	switch spec.Operand {
	case OperandNone:
		return spec.Name
	case OperandU8:
		return fmt.Sprintf("%s %d", spec.Name, i.Operand[0])
	case OperandU8x2:
		return fmt.Sprintf("%s %d %d", spec.Name, i.Operand[0], i.Operand[1])
	case OperandI16:
		return fmt.Sprintf("%s %d", spec.Name, int16(binary.LittleEndian.Uint16(i.Operand)))
	case OperandI32:
		return fmt.Sprintf("%s %d", spec.Name, int32(binary.LittleEndian.Uint32(i.Operand)))
	case OperandI64:
		return fmt.Sprintf("%s %d", spec.Name, int64(binary.LittleEndian.Uint64(i.Operand)))
	case OperandI128, OperandI256, OperandBytes4:
		return fmt.Sprintf("%s 0x%x", spec.Name, i.Operand)
	case OperandData1, OperandData2, OperandData4:
		return fmt.Sprintf("%s 0x%x", spec.Name, i.Operand)
	default:
		return spec.Name
	}
}

// Disassemble decodes a bytecode buffer into instructions. Opcode bytes in
// the bare push range that are not in the instruction table decode as
// length-prefixed data pushes; table entries always win, so a buffer that
// interleaves bare pushes with colliding opcodes may not round-trip.
func Disassemble(code []byte) ([]Instruction, error) {
	var out []Instruction
	offset := 0
	for offset < len(code) {
		op := Opcode(code[offset])
		instr := Instruction{Offset: offset, Op: op}
		spec, known := Specs[op]

		if !known {
			length := int(code[offset])
			if length < 1 || length > BarePushLimit || offset+1+length > len(code) {
				return nil, fmt.Errorf("undefined opcode 0x%02x at offset %d", byte(op), offset)
			}
			instr.Operand = code[offset+1 : offset+1+length]
			out = append(out, instr)
			offset += 1 + length
			continue
		}

		size, err := operandSize(spec.Operand, code[offset+1:])
		if err != nil {
			return nil, fmt.Errorf("%s at offset %d: %w", spec.Name, offset, err)
		}
		if offset+1+size > len(code) {
			return nil, fmt.Errorf("truncated %s at offset %d", spec.Name, offset)
		}
		switch spec.Operand {
		case OperandData1:
			instr.Operand = code[offset+2 : offset+1+size]
		case OperandData2:
			instr.Operand = code[offset+3 : offset+1+size]
		case OperandData4:
			instr.Operand = code[offset+5 : offset+1+size]
		default:
			instr.Operand = code[offset+1 : offset+1+size]
		}
		out = append(out, instr)
		offset += 1 + size
	}
	return out, nil
}

func operandSize(kind OperandKind, rest []byte) (int, error) {
	switch kind {
	case OperandNone:
		return 0, nil
	case OperandU8:
		return 1, nil
	case OperandU8x2, OperandI16:
		return 2, nil
	case OperandI32, OperandBytes4:
		return 4, nil
	case OperandI64:
		return 8, nil
	case OperandI128:
		return 16, nil
	case OperandI256:
		return 32, nil
	case OperandData1:
		if len(rest) < 1 {
			return 0, fmt.Errorf("missing length byte")
		}
		return 1 + int(rest[0]), nil
	case OperandData2:
		if len(rest) < 2 {
			return 0, fmt.Errorf("missing length bytes")
		}
		return 2 + int(binary.LittleEndian.Uint16(rest)), nil
	case OperandData4:
		if len(rest) < 4 {
			return 0, fmt.Errorf("missing length bytes")
		}
		return 4 + int(binary.LittleEndian.Uint32(rest)), nil
	default:
		return 0, fmt.Errorf("unhandled operand kind %d", kind)
	}
}

// Listing renders a newline-delimited assembly listing of a buffer.
func Listing(code []byte) (string, error) {
	instrs, err := Disassemble(code)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	for _, instr := range instrs {
		b.WriteString(instr.Mnemonic())
		b.WriteByte('\n')
	}
	return b.String(), nil
}

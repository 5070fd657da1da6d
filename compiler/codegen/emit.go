package codegen

import (
	"encoding/binary"
	"fmt"
	"math/big"

	"github.com/r3e-network/neo-solc/compiler/neovm"
)

// emitted is one instruction record kept alongside the raw buffer so the
// assembly listing and source map can be rendered after label resolution.
type emitted struct {
	offset  int
	op      neovm.Opcode
	operand []byte
	label   int  // label fixup target, -1 when none
	bare    bool // bare length-prefixed data push
}

// placeholder fills jump operands until resolution; resolution verifies none
// survive.
const placeholder = 0xFFFFFFFF

func (g *Generator) emit(op neovm.Opcode) error {
	return g.emitWithOperand(op, nil)
}

func (g *Generator) emitWithOperand(op neovm.Opcode, operand []byte) error {
	spec, ok := neovm.Lookup(op)
	if !ok {
		return g.failf(ErrInvalidOperand, "unknown opcode 0x%02x", byte(op))
	}

	record := emitted{offset: len(g.code), op: op, operand: operand, label: -1}
	g.code = append(g.code, byte(op))
	g.code = append(g.code, operand...)
	g.instrs = append(g.instrs, record)
	g.gas += spec.Gas

	return g.applyEffect(spec.Effect.Pops, spec.Effect.Pushes)
}

// emitJump emits a control transfer with a 4-byte little-endian placeholder
// resolved to the label's absolute byte offset after emission.
func (g *Generator) emitJump(op neovm.Opcode, label int) error {
	spec, ok := neovm.Lookup(op)
	if !ok {
		return g.failf(ErrInvalidOperand, "unknown opcode 0x%02x", byte(op))
	}
	operand := make([]byte, 4)
	binary.LittleEndian.PutUint32(operand, placeholder)

	record := emitted{offset: len(g.code), op: op, operand: operand, label: label}
	g.code = append(g.code, byte(op))
	g.code = append(g.code, operand...)
	g.instrs = append(g.instrs, record)
	g.gas += spec.Gas

	return g.applyEffect(spec.Effect.Pops, spec.Effect.Pushes)
}

// applyEffect maintains the virtual stack height against the 2048 limit.
func (g *Generator) applyEffect(pops, pushes int) error {
	g.height -= pops
	if g.height < 0 {
		return g.failf(ErrStackUnderflow, "stack underflow")
	}
	g.height += pushes
	if g.height > neovm.MaxStackDepth {
		return g.failf(ErrStackOverflow, "evaluation stack exceeds %d items", neovm.MaxStackDepth)
	}
	if g.height > g.maxHeight {
		g.maxHeight = g.height
	}
	return nil
}

// emitPushInt chooses the narrowest encoding for an integer constant.
func (g *Generator) emitPushInt(value *big.Int) error {
	if value.Sign() < 0 && value.Cmp(minusOne) == 0 {
		return g.emit(neovm.PUSHM1)
	}
	if value.IsInt64() {
		v := value.Int64()
		switch {
		case v == 0:
			return g.emit(neovm.PUSH0)
		case v >= 1 && v <= 16:
			return g.emit(neovm.PUSH1 + neovm.Opcode(v-1))
		case v >= -128 && v <= 127:
			return g.emitWithOperand(neovm.PUSHINT8, []byte{byte(int8(v))})
		case v >= -32768 && v <= 32767:
			operand := make([]byte, 2)
			binary.LittleEndian.PutUint16(operand, uint16(int16(v)))
			return g.emitWithOperand(neovm.PUSHINT16, operand)
		case v >= -2147483648 && v <= 2147483647:
			operand := make([]byte, 4)
			binary.LittleEndian.PutUint32(operand, uint32(int32(v)))
			return g.emitWithOperand(neovm.PUSHINT32, operand)
		default:
			operand := make([]byte, 8)
			binary.LittleEndian.PutUint64(operand, uint64(v))
			return g.emitWithOperand(neovm.PUSHINT64, operand)
		}
	}

	// wide constants: little-endian two's complement, 16 then 32 bytes
	if value.BitLen() <= 127 {
		return g.emitWithOperand(neovm.PUSHINT128, littleEndianBytes(value, 16))
	}
	if value.BitLen() <= 255 {
		return g.emitWithOperand(neovm.PUSHINT256, littleEndianBytes(value, 32))
	}
	return g.failf(ErrInvalidOperand, "integer constant does not fit a signed 256-bit push")
}

var minusOne = big.NewInt(-1)

func littleEndianBytes(value *big.Int, width int) []byte {
	out := make([]byte, width)
	bytes := value.Bytes() // big-endian
	for i := 0; i < len(bytes) && i < width; i++ {
		out[i] = bytes[len(bytes)-1-i]
	}
	return out
}

// emitPushData selects the data push form by length: the bare
// length-prefixed form up to 75 bytes, then PUSHDATA1/2/4.
func (g *Generator) emitPushData(data []byte) error {
	n := len(data)
	switch {
	case n >= 1 && n <= neovm.BarePushLimit:
		record := emitted{offset: len(g.code), op: neovm.Opcode(n), operand: data, label: -1, bare: true}
		g.code = append(g.code, byte(n))
		g.code = append(g.code, data...)
		g.instrs = append(g.instrs, record)
		g.gas += 2
		return g.applyEffect(0, 1)
	case n <= 0xFF:
		operand := append([]byte{byte(n)}, data...)
		return g.emitWithOperand(neovm.PUSHDATA1, operand)
	case n <= 0xFFFF:
		operand := make([]byte, 2, 2+n)
		binary.LittleEndian.PutUint16(operand, uint16(n))
		return g.emitWithOperand(neovm.PUSHDATA2, append(operand, data...))
	default:
		operand := make([]byte, 4, 4+n)
		binary.LittleEndian.PutUint32(operand, uint32(n))
		return g.emitWithOperand(neovm.PUSHDATA4, append(operand, data...))
	}
}

// emitLoadLocal and friends pick the dedicated short encodings for slots 0
// through 6 and fall back to the indexed form.
func (g *Generator) emitLoadLocal(index int) error {
	if index <= neovm.MaxShortSlot {
		return g.emit(neovm.LDLOC0 + neovm.Opcode(index))
	}
	return g.emitWithOperand(neovm.LDLOC, []byte{byte(index)})
}

func (g *Generator) emitStoreLocal(index int) error {
	if index <= neovm.MaxShortSlot {
		return g.emit(neovm.STLOC0 + neovm.Opcode(index))
	}
	return g.emitWithOperand(neovm.STLOC, []byte{byte(index)})
}

func (g *Generator) emitLoadArg(index int) error {
	if index <= neovm.MaxShortSlot {
		return g.emit(neovm.LDARG0 + neovm.Opcode(index))
	}
	return g.emitWithOperand(neovm.LDARG, []byte{byte(index)})
}

func (g *Generator) emitStoreArg(index int) error {
	if index <= neovm.MaxShortSlot {
		return g.emit(neovm.STARG0 + neovm.Opcode(index))
	}
	return g.emitWithOperand(neovm.STARG, []byte{byte(index)})
}

// labels

func (g *Generator) newLabel() int {
	g.labels = append(g.labels, -1)
	return len(g.labels) - 1
}

func (g *Generator) setLabel(label int) {
	g.labels[label] = len(g.code)
}

// resolveLabels rewrites every placeholder jump operand to the absolute
// little-endian byte offset of its label. An unresolved label is an
// internal error.
func (g *Generator) resolveLabels() error {
	for i := range g.instrs {
		instr := &g.instrs[i]
		if instr.label < 0 {
			continue
		}
		target := g.labels[instr.label]
		if target < 0 {
			return g.failf(ErrUndefinedLabel, "label %d never placed", instr.label)
		}
		binary.LittleEndian.PutUint32(g.code[instr.offset+1:instr.offset+5], uint32(target))
		binary.LittleEndian.PutUint32(instr.operand, uint32(target))
	}
	for i := range g.instrs {
		instr := &g.instrs[i]
		if instr.label >= 0 && binary.LittleEndian.Uint32(instr.operand) == placeholder {
			return g.failf(ErrUndefinedLabel, "placeholder operand survived resolution")
		}
	}
	return nil
}

func (g *Generator) failf(kind ErrorKind, format string, args ...any) error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Offset: len(g.code)}
}

// Package neovm describes the target instruction set: Neo N3 compatible
// opcodes, their operand encodings, fixed stack effects, and table gas.
//
// Numeric operands are little-endian. Jump and call operands are 4-byte
// absolute byte offsets. The table is built once at package init and treated
// as immutable.
package neovm

// Opcode is a one-byte instruction tag.
type Opcode byte

// Push constants
const (
	PUSHINT8   Opcode = 0x00
	PUSHINT16  Opcode = 0x01
	PUSHINT32  Opcode = 0x02
	PUSHINT64  Opcode = 0x03
	PUSHINT128 Opcode = 0x04
	PUSHINT256 Opcode = 0x05
	PUSHA      Opcode = 0x0A
	PUSHNULL   Opcode = 0x0B
	PUSHDATA1  Opcode = 0x0C
	PUSHDATA2  Opcode = 0x0D
	PUSHDATA4  Opcode = 0x0E
	PUSHM1     Opcode = 0x0F
	PUSH0      Opcode = 0x10
	PUSH1      Opcode = 0x11
	PUSH2      Opcode = 0x12
	PUSH3      Opcode = 0x13
	PUSH4      Opcode = 0x14
	PUSH5      Opcode = 0x15
	PUSH6      Opcode = 0x16
	PUSH7      Opcode = 0x17
	PUSH8      Opcode = 0x18
	PUSH9      Opcode = 0x19
	PUSH10     Opcode = 0x1A
	PUSH11     Opcode = 0x1B
	PUSH12     Opcode = 0x1C
	PUSH13     Opcode = 0x1D
	PUSH14     Opcode = 0x1E
	PUSH15     Opcode = 0x1F
	PUSH16     Opcode = 0x20
)

// Control flow
const (
	NOP        Opcode = 0x21
	JMP        Opcode = 0x22
	JMPIF      Opcode = 0x23
	JMPIFNOT   Opcode = 0x24
	JMPEQ      Opcode = 0x25
	JMPNE      Opcode = 0x26
	JMPGT      Opcode = 0x27
	JMPLT      Opcode = 0x28
	JMPGE      Opcode = 0x29
	JMPLE      Opcode = 0x2A
	CALL       Opcode = 0x2B
	CALLA      Opcode = 0x2C
	CALLT      Opcode = 0x2D
	ABORT      Opcode = 0x2E
	ASSERT     Opcode = 0x2F
	THROW      Opcode = 0x3A
	TRY        Opcode = 0x3B
	ENDTRY     Opcode = 0x3C
	ENDFINALLY Opcode = 0x3D
	RET        Opcode = 0x40
	SYSCALL    Opcode = 0x41
)

// Stack manipulation
const (
	DEPTH    Opcode = 0x43
	DROP     Opcode = 0x45
	NIP      Opcode = 0x46
	XDROP    Opcode = 0x48
	CLEAR    Opcode = 0x49
	DUP      Opcode = 0x4A
	OVER     Opcode = 0x4B
	PICK     Opcode = 0x4D
	TUCK     Opcode = 0x4E
	SWAP     Opcode = 0x50
	ROT      Opcode = 0x51
	ROLL     Opcode = 0x52
	REVERSE3 Opcode = 0x53
	REVERSE4 Opcode = 0x54
	REVERSEN Opcode = 0x55
)

// Slot access
const (
	INITSSLOT Opcode = 0x56
	INITSLOT  Opcode = 0x57
	LDSFLD0   Opcode = 0x58
	LDSFLD    Opcode = 0x5F
	STSFLD0   Opcode = 0x60
	STSFLD    Opcode = 0x67
	LDLOC0    Opcode = 0x68
	LDLOC1    Opcode = 0x69
	LDLOC2    Opcode = 0x6A
	LDLOC3    Opcode = 0x6B
	LDLOC4    Opcode = 0x6C
	LDLOC5    Opcode = 0x6D
	LDLOC6    Opcode = 0x6E
	LDLOC     Opcode = 0x6F
	STLOC0    Opcode = 0x70
	STLOC1    Opcode = 0x71
	STLOC2    Opcode = 0x72
	STLOC3    Opcode = 0x73
	STLOC4    Opcode = 0x74
	STLOC5    Opcode = 0x75
	STLOC6    Opcode = 0x76
	STLOC     Opcode = 0x77
	LDARG0    Opcode = 0x78
	LDARG1    Opcode = 0x79
	LDARG2    Opcode = 0x7A
	LDARG3    Opcode = 0x7B
	LDARG4    Opcode = 0x7C
	LDARG5    Opcode = 0x7D
	LDARG6    Opcode = 0x7E
	LDARG     Opcode = 0x7F
	STARG0    Opcode = 0x80
	STARG1    Opcode = 0x81
	STARG2    Opcode = 0x82
	STARG3    Opcode = 0x83
	STARG4    Opcode = 0x84
	STARG5    Opcode = 0x85
	STARG6    Opcode = 0x86
	STARG     Opcode = 0x87
)

// Arithmetic and logic
const (
	SIGN        Opcode = 0x90
	ABS         Opcode = 0x91
	NEGATE      Opcode = 0x92
	INC         Opcode = 0x93
	DEC         Opcode = 0x94
	ADD         Opcode = 0x95
	SUB         Opcode = 0x96
	MUL         Opcode = 0x97
	DIV         Opcode = 0x98
	MOD         Opcode = 0x99
	POW         Opcode = 0x9A
	SQRT        Opcode = 0x9B
	MODMUL      Opcode = 0x9C
	MODPOW      Opcode = 0x9D
	SHL         Opcode = 0x9E
	SHR         Opcode = 0x9F
	NOT         Opcode = 0xA0
	BOOLAND     Opcode = 0xA1
	BOOLOR      Opcode = 0xA2
	NUMEQUAL    Opcode = 0xA3
	NUMNOTEQUAL Opcode = 0xA4
	LT          Opcode = 0xA5
	LE          Opcode = 0xA6
	GT          Opcode = 0xA7
	GE          Opcode = 0xA8
	MIN         Opcode = 0xA9
	MAX         Opcode = 0xAA
	WITHIN      Opcode = 0xAB
)

// Crypto
const (
	SHA256        Opcode = 0xB0
	HASH160       Opcode = 0xB1
	HASH256       Opcode = 0xB2
	CHECKSIG      Opcode = 0xB3
	VERIFY        Opcode = 0xB4
	CHECKMULTISIG Opcode = 0xB5
)

// Compound types
const (
	PACK       Opcode = 0xC0
	UNPACK     Opcode = 0xC1
	PICKITEM   Opcode = 0xC2
	SETITEM    Opcode = 0xC3
	NEWARRAY0  Opcode = 0xC4
	NEWARRAY   Opcode = 0xC5
	NEWSTRUCT0 Opcode = 0xC7
	NEWSTRUCT  Opcode = 0xC8
	NEWMAP     Opcode = 0xC9
	SIZE       Opcode = 0xCA
	HASKEY     Opcode = 0xCB
	KEYS       Opcode = 0xCC
	VALUES     Opcode = 0xCD
	APPEND     Opcode = 0xD0
	REMOVE     Opcode = 0xD3
	CLEARITEMS Opcode = 0xD4
	POPITEM    Opcode = 0xD5
	ISNULL     Opcode = 0xD8
	ISTYPE     Opcode = 0xD9
	CONVERT    Opcode = 0xDB
)

// OperandKind describes the encoding of an instruction's operand bytes.
type OperandKind int

const (
	OperandNone   OperandKind = iota
	OperandU8                 // one byte
	OperandU8x2               // two bytes (INITSLOT: locals, params)
	OperandI32                // 4-byte little-endian (jumps, CALL, PUSHINT32)
	OperandI16                // 2-byte little-endian
	OperandI64                // 8-byte little-endian
	OperandI128               // 16 bytes
	OperandI256               // 32 bytes
	OperandData1              // 1-byte length, then data
	OperandData2              // 2-byte little-endian length, then data
	OperandData4              // 4-byte little-endian length, then data
	OperandBytes4             // fixed 4 bytes (SYSCALL interop hash)
)

// StackEffect is the fixed (pops, pushes) pair of an instruction. CALL and
// SYSCALL effects depend on the target; the generator accounts for those
// from the callee's signature.
type StackEffect struct {
	Pops   int
	Pushes int
}

// Spec is one row of the instruction table.
type Spec struct {
	Name    string
	Operand OperandKind
	Effect  StackEffect
	Gas     uint64
}

// Specs maps every supported opcode to its description.
var Specs = map[Opcode]Spec{
	PUSHINT8:   {"PUSHINT8", OperandU8, StackEffect{0, 1}, 1},
	PUSHINT16:  {"PUSHINT16", OperandI16, StackEffect{0, 1}, 1},
	PUSHINT32:  {"PUSHINT32", OperandI32, StackEffect{0, 1}, 1},
	PUSHINT64:  {"PUSHINT64", OperandI64, StackEffect{0, 1}, 1},
	PUSHINT128: {"PUSHINT128", OperandI128, StackEffect{0, 1}, 4},
	PUSHINT256: {"PUSHINT256", OperandI256, StackEffect{0, 1}, 4},
	PUSHA:      {"PUSHA", OperandI32, StackEffect{0, 1}, 4},
	PUSHNULL:   {"PUSHNULL", OperandNone, StackEffect{0, 1}, 1},
	PUSHDATA1:  {"PUSHDATA1", OperandData1, StackEffect{0, 1}, 2},
	PUSHDATA2:  {"PUSHDATA2", OperandData2, StackEffect{0, 1}, 2},
	PUSHDATA4:  {"PUSHDATA4", OperandData4, StackEffect{0, 1}, 4},
	PUSHM1:     {"PUSHM1", OperandNone, StackEffect{0, 1}, 1},
	PUSH0:      {"PUSH0", OperandNone, StackEffect{0, 1}, 1},
	PUSH1:      {"PUSH1", OperandNone, StackEffect{0, 1}, 1},
	PUSH2:      {"PUSH2", OperandNone, StackEffect{0, 1}, 1},
	PUSH3:      {"PUSH3", OperandNone, StackEffect{0, 1}, 1},
	PUSH4:      {"PUSH4", OperandNone, StackEffect{0, 1}, 1},
	PUSH5:      {"PUSH5", OperandNone, StackEffect{0, 1}, 1},
	PUSH6:      {"PUSH6", OperandNone, StackEffect{0, 1}, 1},
	PUSH7:      {"PUSH7", OperandNone, StackEffect{0, 1}, 1},
	PUSH8:      {"PUSH8", OperandNone, StackEffect{0, 1}, 1},
	PUSH9:      {"PUSH9", OperandNone, StackEffect{0, 1}, 1},
	PUSH10:     {"PUSH10", OperandNone, StackEffect{0, 1}, 1},
	PUSH11:     {"PUSH11", OperandNone, StackEffect{0, 1}, 1},
	PUSH12:     {"PUSH12", OperandNone, StackEffect{0, 1}, 1},
	PUSH13:     {"PUSH13", OperandNone, StackEffect{0, 1}, 1},
	PUSH14:     {"PUSH14", OperandNone, StackEffect{0, 1}, 1},
	PUSH15:     {"PUSH15", OperandNone, StackEffect{0, 1}, 1},
	PUSH16:     {"PUSH16", OperandNone, StackEffect{0, 1}, 1},

	NOP:      {"NOP", OperandNone, StackEffect{0, 0}, 1},
	JMP:      {"JMP", OperandI32, StackEffect{0, 0}, 2},
	JMPIF:    {"JMPIF", OperandI32, StackEffect{1, 0}, 2},
	JMPIFNOT: {"JMPIFNOT", OperandI32, StackEffect{1, 0}, 2},
	JMPEQ:    {"JMPEQ", OperandI32, StackEffect{2, 0}, 2},
	JMPNE:    {"JMPNE", OperandI32, StackEffect{2, 0}, 2},
	JMPGT:    {"JMPGT", OperandI32, StackEffect{2, 0}, 2},
	JMPLT:    {"JMPLT", OperandI32, StackEffect{2, 0}, 2},
	JMPGE:    {"JMPGE", OperandI32, StackEffect{2, 0}, 2},
	JMPLE:    {"JMPLE", OperandI32, StackEffect{2, 0}, 2},
	CALL:     {"CALL", OperandI32, StackEffect{0, 0}, 5},
	CALLA:    {"CALLA", OperandNone, StackEffect{1, 0}, 5},
	ABORT:    {"ABORT", OperandNone, StackEffect{0, 0}, 0},
	ASSERT:   {"ASSERT", OperandNone, StackEffect{1, 0}, 1},
	THROW:    {"THROW", OperandNone, StackEffect{1, 0}, 2},
	RET:      {"RET", OperandNone, StackEffect{0, 0}, 1},
	SYSCALL:  {"SYSCALL", OperandBytes4, StackEffect{0, 0}, 100},

	DEPTH:    {"DEPTH", OperandNone, StackEffect{0, 1}, 1},
	DROP:     {"DROP", OperandNone, StackEffect{1, 0}, 1},
	NIP:      {"NIP", OperandNone, StackEffect{2, 1}, 1},
	DUP:      {"DUP", OperandNone, StackEffect{1, 2}, 1},
	OVER:     {"OVER", OperandNone, StackEffect{2, 3}, 1},
	PICK:     {"PICK", OperandNone, StackEffect{1, 1}, 1},
	TUCK:     {"TUCK", OperandNone, StackEffect{2, 3}, 1},
	SWAP:     {"SWAP", OperandNone, StackEffect{2, 2}, 1},
	ROT:      {"ROT", OperandNone, StackEffect{3, 3}, 1},
	ROLL:     {"ROLL", OperandNone, StackEffect{1, 0}, 1},
	REVERSE3: {"REVERSE3", OperandNone, StackEffect{3, 3}, 1},
	REVERSE4: {"REVERSE4", OperandNone, StackEffect{4, 4}, 1},
	REVERSEN: {"REVERSEN", OperandNone, StackEffect{1, 0}, 1},

	INITSSLOT: {"INITSSLOT", OperandU8, StackEffect{0, 0}, 2},
	INITSLOT:  {"INITSLOT", OperandU8x2, StackEffect{0, 0}, 2},
	LDLOC0:    {"LDLOC0", OperandNone, StackEffect{0, 1}, 2},
	LDLOC1:    {"LDLOC1", OperandNone, StackEffect{0, 1}, 2},
	LDLOC2:    {"LDLOC2", OperandNone, StackEffect{0, 1}, 2},
	LDLOC3:    {"LDLOC3", OperandNone, StackEffect{0, 1}, 2},
	LDLOC4:    {"LDLOC4", OperandNone, StackEffect{0, 1}, 2},
	LDLOC5:    {"LDLOC5", OperandNone, StackEffect{0, 1}, 2},
	LDLOC6:    {"LDLOC6", OperandNone, StackEffect{0, 1}, 2},
	LDLOC:     {"LDLOC", OperandU8, StackEffect{0, 1}, 2},
	STLOC0:    {"STLOC0", OperandNone, StackEffect{1, 0}, 2},
	STLOC1:    {"STLOC1", OperandNone, StackEffect{1, 0}, 2},
	STLOC2:    {"STLOC2", OperandNone, StackEffect{1, 0}, 2},
	STLOC3:    {"STLOC3", OperandNone, StackEffect{1, 0}, 2},
	STLOC4:    {"STLOC4", OperandNone, StackEffect{1, 0}, 2},
	STLOC5:    {"STLOC5", OperandNone, StackEffect{1, 0}, 2},
	STLOC6:    {"STLOC6", OperandNone, StackEffect{1, 0}, 2},
	STLOC:     {"STLOC", OperandU8, StackEffect{1, 0}, 2},
	LDARG0:    {"LDARG0", OperandNone, StackEffect{0, 1}, 2},
	LDARG1:    {"LDARG1", OperandNone, StackEffect{0, 1}, 2},
	LDARG2:    {"LDARG2", OperandNone, StackEffect{0, 1}, 2},
	LDARG3:    {"LDARG3", OperandNone, StackEffect{0, 1}, 2},
	LDARG4:    {"LDARG4", OperandNone, StackEffect{0, 1}, 2},
	LDARG5:    {"LDARG5", OperandNone, StackEffect{0, 1}, 2},
	LDARG6:    {"LDARG6", OperandNone, StackEffect{0, 1}, 2},
	LDARG:     {"LDARG", OperandU8, StackEffect{0, 1}, 2},
	STARG0:    {"STARG0", OperandNone, StackEffect{1, 0}, 2},
	STARG1:    {"STARG1", OperandNone, StackEffect{1, 0}, 2},
	STARG2:    {"STARG2", OperandNone, StackEffect{1, 0}, 2},
	STARG3:    {"STARG3", OperandNone, StackEffect{1, 0}, 2},
	STARG4:    {"STARG4", OperandNone, StackEffect{1, 0}, 2},
	STARG5:    {"STARG5", OperandNone, StackEffect{1, 0}, 2},
	STARG6:    {"STARG6", OperandNone, StackEffect{1, 0}, 2},
	STARG:     {"STARG", OperandU8, StackEffect{1, 0}, 2},

	SIGN:        {"SIGN", OperandNone, StackEffect{1, 1}, 1},
	ABS:         {"ABS", OperandNone, StackEffect{1, 1}, 1},
	NEGATE:      {"NEGATE", OperandNone, StackEffect{1, 1}, 1},
	INC:         {"INC", OperandNone, StackEffect{1, 1}, 1},
	DEC:         {"DEC", OperandNone, StackEffect{1, 1}, 1},
	ADD:         {"ADD", OperandNone, StackEffect{2, 1}, 3},
	SUB:         {"SUB", OperandNone, StackEffect{2, 1}, 3},
	MUL:         {"MUL", OperandNone, StackEffect{2, 1}, 5},
	DIV:         {"DIV", OperandNone, StackEffect{2, 1}, 5},
	MOD:         {"MOD", OperandNone, StackEffect{2, 1}, 5},
	POW:         {"POW", OperandNone, StackEffect{2, 1}, 10},
	SQRT:        {"SQRT", OperandNone, StackEffect{1, 1}, 10},
	MODMUL:      {"MODMUL", OperandNone, StackEffect{3, 1}, 8},
	MODPOW:      {"MODPOW", OperandNone, StackEffect{3, 1}, 10},
	SHL:         {"SHL", OperandNone, StackEffect{2, 1}, 3},
	SHR:         {"SHR", OperandNone, StackEffect{2, 1}, 3},
	NOT:         {"NOT", OperandNone, StackEffect{1, 1}, 2},
	BOOLAND:     {"BOOLAND", OperandNone, StackEffect{2, 1}, 3},
	BOOLOR:      {"BOOLOR", OperandNone, StackEffect{2, 1}, 3},
	NUMEQUAL:    {"NUMEQUAL", OperandNone, StackEffect{2, 1}, 3},
	NUMNOTEQUAL: {"NUMNOTEQUAL", OperandNone, StackEffect{2, 1}, 3},
	LT:          {"LT", OperandNone, StackEffect{2, 1}, 3},
	LE:          {"LE", OperandNone, StackEffect{2, 1}, 3},
	GT:          {"GT", OperandNone, StackEffect{2, 1}, 3},
	GE:          {"GE", OperandNone, StackEffect{2, 1}, 3},
	MIN:         {"MIN", OperandNone, StackEffect{2, 1}, 3},
	MAX:         {"MAX", OperandNone, StackEffect{2, 1}, 3},
	WITHIN:      {"WITHIN", OperandNone, StackEffect{3, 1}, 3},

	SHA256:  {"SHA256", OperandNone, StackEffect{1, 1}, 200},
	HASH160: {"HASH160", OperandNone, StackEffect{1, 1}, 200},
	HASH256: {"HASH256", OperandNone, StackEffect{1, 1}, 200},

	PACK:     {"PACK", OperandNone, StackEffect{1, 1}, 4},
	UNPACK:   {"UNPACK", OperandNone, StackEffect{1, 1}, 4},
	PICKITEM: {"PICKITEM", OperandNone, StackEffect{2, 1}, 4},
	SETITEM:  {"SETITEM", OperandNone, StackEffect{3, 0}, 4},
	NEWARRAY: {"NEWARRAY", OperandNone, StackEffect{1, 1}, 4},
	NEWMAP:   {"NEWMAP", OperandNone, StackEffect{0, 1}, 4},
	SIZE:     {"SIZE", OperandNone, StackEffect{1, 1}, 2},
	APPEND:   {"APPEND", OperandNone, StackEffect{2, 0}, 4},
	ISNULL:   {"ISNULL", OperandNone, StackEffect{1, 1}, 1},
	CONVERT:  {"CONVERT", OperandU8, StackEffect{1, 1}, 2},
}

// Lookup returns the spec for an opcode.
func Lookup(op Opcode) (Spec, bool) {
	spec, ok := Specs[op]
	return spec, ok
}

// Name returns the mnemonic, or a hex placeholder for unknown bytes.
func (op Opcode) Name() string {
	if spec, ok := Specs[op]; ok {
		return spec.Name
	}
	return "UNKNOWN"
}

// MaxStackDepth is the evaluation stack limit the generator enforces.
const MaxStackDepth = 2048

// MaxShortSlot is the highest local/argument index with a dedicated
// one-byte load/store encoding.
const MaxShortSlot = 6

// BarePushLimit is the longest byte string pushed with the bare
// length-prefixed form; longer data uses PUSHDATA1/2/4.
const BarePushLimit = 75

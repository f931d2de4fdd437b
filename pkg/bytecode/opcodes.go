package bytecode

import "fmt"

// Opcode represents a bytecode instruction. Each opcode has a fixed operand
// width, listed in opcodeInfoTable.
type Opcode byte

const (
	OpReturn       Opcode = 0  // Pop top of stack and finish the run
	OpConstant     Opcode = 1  // Push constant: OpConstant <index:u8>
	OpConstantLong Opcode = 2  // Push constant: OpConstantLong <index:u24 big-endian>
	OpNegate       Opcode = 3  // Negate numeric top of stack
	OpAdd          Opcode = 4  // Pop two, push sum or string concatenation
	OpSubtract     Opcode = 5  // Pop two, push a - b where b is TOS
	OpMultiply     Opcode = 6  // Pop two, push product
	OpDivide       Opcode = 7  // Pop two, push quotient
	OpNil          Opcode = 8  // Push nil
	OpTrue         Opcode = 9  // Push true
	OpFalse        Opcode = 10 // Push false
	OpNot          Opcode = 11 // Replace TOS with its logical negation
	OpEqual        Opcode = 12 // Pop two, push a == b
	OpGreater      Opcode = 13 // Pop two, push a > b
	OpLess         Opcode = 14 // Pop two, push a < b

	opLast = OpLess
)

// OpcodeInfo provides metadata about each opcode for debugging and validation.
type OpcodeInfo struct {
	Name       string // Mnemonic used by the disassembler
	StackPop   int    // How many values are consumed
	StackPush  int    // How many values are produced
	OperandLen int    // Number of operand bytes following the opcode
}

var opcodeInfoTable = [...]OpcodeInfo{
	OpReturn:       {"OP_RETURN", 1, 0, 0},
	OpConstant:     {"OP_CONSTANT", 0, 1, 1},
	OpConstantLong: {"OP_CONSTANT_LONG", 0, 1, 3},
	OpNegate:       {"OP_NEGATE", 1, 1, 0},
	OpAdd:          {"OP_ADD", 2, 1, 0},
	OpSubtract:     {"OP_SUBTRACT", 2, 1, 0},
	OpMultiply:     {"OP_MULTIPLY", 2, 1, 0},
	OpDivide:       {"OP_DIVIDE", 2, 1, 0},
	OpNil:          {"OP_NIL", 0, 1, 0},
	OpTrue:         {"OP_TRUE", 0, 1, 0},
	OpFalse:        {"OP_FALSE", 0, 1, 0},
	OpNot:          {"OP_NOT", 1, 1, 0},
	OpEqual:        {"OP_EQUAL", 2, 1, 0},
	OpGreater:      {"OP_GREATER", 2, 1, 0},
	OpLess:         {"OP_LESS", 2, 1, 0},
}

// DecodeError reports a byte that does not name any opcode.
type DecodeError struct {
	Byte byte
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("unknown opcode %d", e.Byte)
}

// Decode converts a raw byte to an Opcode. Every byte outside the
// instruction set yields a *DecodeError.
func Decode(b byte) (Opcode, error) {
	if Opcode(b) > opLast {
		return 0, &DecodeError{Byte: b}
	}
	return Opcode(b), nil
}

// Valid reports whether op is part of the instruction set.
func (op Opcode) Valid() bool {
	return op <= opLast
}

// GetOpcodeInfo returns metadata for an opcode.
func GetOpcodeInfo(op Opcode) OpcodeInfo {
	if !op.Valid() {
		return OpcodeInfo{Name: fmt.Sprintf("UNKNOWN_%02X", byte(op))}
	}
	return opcodeInfoTable[op]
}

// String returns the mnemonic of the opcode.
func (op Opcode) String() string {
	return GetOpcodeInfo(op).Name
}

// Width returns the encoded size of the instruction: opcode plus operands.
func (op Opcode) Width() int {
	return 1 + GetOpcodeInfo(op).OperandLen
}

// IsConstantLoad returns true for the two constant-pool load forms.
func (op Opcode) IsConstantLoad() bool {
	return op == OpConstant || op == OpConstantLong
}

// AllOpcodes returns every defined opcode in numeric order.
func AllOpcodes() []Opcode {
	ops := make([]Opcode, 0, len(opcodeInfoTable))
	for i := range opcodeInfoTable {
		ops = append(ops, Opcode(i))
	}
	return ops
}

// OpcodeCount returns the number of defined opcodes.
func OpcodeCount() int {
	return len(opcodeInfoTable)
}

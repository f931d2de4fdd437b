package bytecode

import (
	"errors"
	"testing"
)

func TestOpcodeEncodingTable(t *testing.T) {
	tests := []struct {
		op      Opcode
		value   byte
		name    string
		operand int
	}{
		{OpReturn, 0, "OP_RETURN", 0},
		{OpConstant, 1, "OP_CONSTANT", 1},
		{OpConstantLong, 2, "OP_CONSTANT_LONG", 3},
		{OpNegate, 3, "OP_NEGATE", 0},
		{OpAdd, 4, "OP_ADD", 0},
		{OpSubtract, 5, "OP_SUBTRACT", 0},
		{OpMultiply, 6, "OP_MULTIPLY", 0},
		{OpDivide, 7, "OP_DIVIDE", 0},
		{OpNil, 8, "OP_NIL", 0},
		{OpTrue, 9, "OP_TRUE", 0},
		{OpFalse, 10, "OP_FALSE", 0},
		{OpNot, 11, "OP_NOT", 0},
		{OpEqual, 12, "OP_EQUAL", 0},
		{OpGreater, 13, "OP_GREATER", 0},
		{OpLess, 14, "OP_LESS", 0},
	}

	if OpcodeCount() != len(tests) {
		t.Errorf("OpcodeCount() = %d, want %d", OpcodeCount(), len(tests))
	}
	for _, tt := range tests {
		if byte(tt.op) != tt.value {
			t.Errorf("%s = %d, want %d", tt.name, byte(tt.op), tt.value)
		}
		info := GetOpcodeInfo(tt.op)
		if info.Name != tt.name {
			t.Errorf("GetOpcodeInfo(%d).Name = %q, want %q", tt.value, info.Name, tt.name)
		}
		if info.OperandLen != tt.operand {
			t.Errorf("%s OperandLen = %d, want %d", tt.name, info.OperandLen, tt.operand)
		}
		if tt.op.Width() != tt.operand+1 {
			t.Errorf("%s Width() = %d, want %d", tt.name, tt.op.Width(), tt.operand+1)
		}
	}
}

func TestDecodeIsTotal(t *testing.T) {
	for b := 0; b < 256; b++ {
		op, err := Decode(byte(b))
		if b < OpcodeCount() {
			if err != nil {
				t.Errorf("Decode(%d) error = %v", b, err)
			}
			if byte(op) != byte(b) {
				t.Errorf("Decode(%d) = %d", b, op)
			}
			continue
		}
		var decodeErr *DecodeError
		if !errors.As(err, &decodeErr) {
			t.Errorf("Decode(%d) error = %v, want *DecodeError", b, err)
			continue
		}
		if decodeErr.Byte != byte(b) {
			t.Errorf("DecodeError.Byte = %d, want %d", decodeErr.Byte, b)
		}
	}
}

func TestAllOpcodesHaveMetadata(t *testing.T) {
	for _, op := range AllOpcodes() {
		info := GetOpcodeInfo(op)
		if info.Name == "" {
			t.Errorf("opcode %d has no name", op)
		}
	}
	if name := Opcode(200).String(); name != "UNKNOWN_C8" {
		t.Errorf("Opcode(200).String() = %q, want UNKNOWN_C8", name)
	}
}

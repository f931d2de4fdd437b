package bytecode

import (
	"errors"
	"fmt"
)

const (
	// MaxShortConstant is the largest pool index OpConstant can address.
	MaxShortConstant = 0xFF

	// MaxConstants is the pool size addressable by the 24-bit OpConstantLong operand.
	MaxConstants = 1 << 24
)

// ErrConstantPoolOverflow is returned when a chunk's constant pool is full.
var ErrConstantPoolOverflow = errors.New("constant pool overflow")

// LineRun records that Count consecutive code bytes came from source Line.
type LineRun struct {
	Count int
	Line  int
}

// Chunk is a compiled unit: bytecode, the constants it references, and a
// run-length encoded line table parallel to Code.
//
// A chunk is append-only. Bytes, constants and literal objects are never
// removed or reordered once written, so an interactive session can keep
// appending to the same chunk between runs.
type Chunk struct {
	// Code section
	Code []byte

	// Constant pool. Duplicates are allowed.
	Constants []Value

	// Line table. The counts always sum to len(Code).
	Lines []LineRun

	// Literal objects created at compile time. ObjectRef constants in the
	// pool carry handles into this slice.
	Objects []Object
}

// NewChunk creates a new empty chunk.
func NewChunk() *Chunk {
	return &Chunk{
		Code:      make([]byte, 0, 64),
		Constants: make([]Value, 0, 8),
	}
}

// Write appends a single byte tagged with its source line.
func (c *Chunk) Write(b byte, line int) {
	c.Code = append(c.Code, b)
	if n := len(c.Lines); n > 0 && c.Lines[n-1].Line == line {
		c.Lines[n-1].Count++
		return
	}
	c.Lines = append(c.Lines, LineRun{Count: 1, Line: line})
}

// WriteOp appends an operand-less opcode and returns its offset.
func (c *Chunk) WriteOp(op Opcode, line int) int {
	offset := len(c.Code)
	c.Write(byte(op), line)
	return offset
}

// AddConstant appends value to the pool and returns its index.
func (c *Chunk) AddConstant(value Value) (int, error) {
	if len(c.Constants) >= MaxConstants {
		return 0, fmt.Errorf("%w: %d constants", ErrConstantPoolOverflow, len(c.Constants))
	}
	c.Constants = append(c.Constants, value)
	return len(c.Constants) - 1, nil
}

// EmitConstant adds value to the pool and emits the load for it. Indices
// that fit in a byte use OpConstant, larger ones use OpConstantLong with a
// big-endian 24-bit operand. The form is chosen per emission from the pool
// size at that moment.
func (c *Chunk) EmitConstant(value Value, line int) (int, error) {
	idx, err := c.AddConstant(value)
	if err != nil {
		return 0, err
	}
	offset := len(c.Code)
	if idx <= MaxShortConstant {
		c.Write(byte(OpConstant), line)
		c.Write(byte(idx), line)
		return offset, nil
	}
	c.Write(byte(OpConstantLong), line)
	c.Write(byte(idx>>16), line)
	c.Write(byte(idx>>8), line)
	c.Write(byte(idx), line)
	return offset, nil
}

// AddString records a literal string object and returns a reference to it.
// The handle is local to this chunk.
func (c *Chunk) AddString(b []byte) Value {
	c.Objects = append(c.Objects, NewString(b))
	return ObjectRef(Handle{Index: uint32(len(c.Objects) - 1)})
}

// Object resolves a chunk-local handle.
func (c *Chunk) Object(h Handle) (Object, bool) {
	if h.Gen != 0 || int(h.Index) >= len(c.Objects) {
		return nil, false
	}
	return c.Objects[h.Index], true
}

// Describe returns the debug text for a constant, resolving literal objects.
func (c *Chunk) Describe(v Value) string {
	if v.IsObject() {
		if obj, ok := c.Object(v.AsHandle()); ok {
			return obj.String()
		}
	}
	return v.String()
}

// LineAt returns the source line of the byte at offset, or 0 when offset is
// outside the code. It walks the runs, which is fine for diagnostics.
func (c *Chunk) LineAt(offset int) int {
	if offset < 0 {
		return 0
	}
	end := 0
	for _, run := range c.Lines {
		end += run.Count
		if end > offset {
			return run.Line
		}
	}
	return 0
}

// ReadIndex decodes the constant index operand of the load at offset.
func (c *Chunk) ReadIndex(op Opcode, offset int) int {
	if op == OpConstantLong {
		return int(c.Code[offset+1])<<16 | int(c.Code[offset+2])<<8 | int(c.Code[offset+3])
	}
	return int(c.Code[offset+1])
}

// Len returns the length of the code section.
func (c *Chunk) Len() int {
	return len(c.Code)
}

// ConstantCount returns the number of constants in the pool.
func (c *Chunk) ConstantCount() int {
	return len(c.Constants)
}

// Validate checks the structural invariants of a chunk that did not come
// from the code generator: line runs cover the code exactly, every opcode
// decodes with its full operand, every constant index and literal handle
// resolves.
func (c *Chunk) Validate() error {
	total := 0
	for i, run := range c.Lines {
		if run.Count <= 0 {
			return fmt.Errorf("line run %d has count %d", i, run.Count)
		}
		total += run.Count
	}
	if total != len(c.Code) {
		return fmt.Errorf("line table covers %d bytes, code has %d", total, len(c.Code))
	}
	for i, v := range c.Constants {
		if v.IsObject() {
			if _, ok := c.Object(v.AsHandle()); !ok {
				return fmt.Errorf("constant %d references missing object %s", i, v.AsHandle())
			}
		}
	}
	for offset := 0; offset < len(c.Code); {
		op, err := Decode(c.Code[offset])
		if err != nil {
			return fmt.Errorf("offset %d: %w", offset, err)
		}
		if offset+op.Width() > len(c.Code) {
			return fmt.Errorf("offset %d: truncated %s", offset, op)
		}
		if op.IsConstantLoad() {
			if idx := c.ReadIndex(op, offset); idx >= len(c.Constants) {
				return fmt.Errorf("offset %d: constant index %d out of range", offset, idx)
			}
		}
		offset += op.Width()
	}
	return nil
}

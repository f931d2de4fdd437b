package bytecode

import (
	"fmt"
	"io"
	"strings"
)

// Disassemble returns the listing for the chunk under a "== name ==" header.
func (c *Chunk) Disassemble(name string) string {
	var sb strings.Builder
	c.DisassembleTo(&sb, name)
	return sb.String()
}

// DisassembleTo writes the listing for the chunk to w.
func (c *Chunk) DisassembleTo(w io.Writer, name string) {
	fmt.Fprintf(w, "== %s ==\n", name)
	offset := 0
	for {
		next, ok := c.DisassembleInstruction(w, offset)
		if !ok {
			return
		}
		offset = next
	}
}

// DisassembleInstruction writes one line for the instruction at offset and
// returns the offset of the next instruction. ok is false when offset is at
// or past the end of the code.
//
// Line format: offset, then the source line or "   |" when unchanged from
// the previous byte, then the mnemonic and, for constant loads, the index
// and the constant's debug text.
func (c *Chunk) DisassembleInstruction(w io.Writer, offset int) (next int, ok bool) {
	if offset < 0 || offset >= len(c.Code) {
		return offset, false
	}

	fmt.Fprintf(w, "%04d ", offset)
	if offset > 0 && c.LineAt(offset) == c.LineAt(offset-1) {
		fmt.Fprint(w, "   | ")
	} else {
		fmt.Fprintf(w, "%4d ", c.LineAt(offset))
	}

	op, err := Decode(c.Code[offset])
	if err != nil {
		fmt.Fprintf(w, "Unknown opcode %d\n", c.Code[offset])
		return offset + 1, true
	}

	if op.IsConstantLoad() {
		if offset+op.Width() > len(c.Code) {
			fmt.Fprintf(w, "%-16s <truncated>\n", op)
			return len(c.Code), true
		}
		idx := c.ReadIndex(op, offset)
		text := "<missing>"
		if idx < len(c.Constants) {
			text = c.Describe(c.Constants[idx])
		}
		fmt.Fprintf(w, "%-16s %4d '%s'\n", op, idx, text)
		return offset + op.Width(), true
	}

	fmt.Fprintf(w, "%s\n", op)
	return offset + op.Width(), true
}

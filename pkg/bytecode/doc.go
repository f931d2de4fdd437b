// Package bytecode defines the compiled representation executed by the
// rlox virtual machine.
//
// # Architecture Overview
//
//   - Value: a tagged runtime value (nil, boolean, number, object reference).
//     Object references are handles; the payload lives in an arena owned by
//     a Chunk (compile-time literals) or a VM (runtime objects).
//
//   - Opcodes: fifteen single-byte instructions covering constant loads,
//     literals, arithmetic, comparison, logical not and return. Decode is the
//     only way to turn a raw byte into an Opcode and rejects unknown bytes.
//
//   - Chunk: the append-only unit produced by the compiler. It holds the code,
//     the constant pool, a run-length line table and the literal objects.
//
//   - Disassembler: a deterministic text listing of a chunk, used for
//     tracing and as a golden test oracle.
//
// # Constant Loads
//
// Constants are addressed by OpConstant with a one-byte index while the pool
// holds at most 256 entries. Beyond that OpConstantLong carries a big-endian
// 24-bit index, so a pool may hold up to 2^24 constants. The choice is made
// for each emission from the pool size at that time.
package bytecode

// Package vm implements the rlox virtual machine.
//
// This package contains:
//   - The fetch/decode/execute loop over a bytecode.Chunk
//   - The operand stack and its fault model (RuntimeError vs InternalError)
//   - The object registry, an arena of heap objects with generation-checked
//     handles and an optional mark-sweep pass
//   - Debug tracing to a configurable writer
package vm

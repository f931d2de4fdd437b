package vm

import (
	"fmt"
	"strings"
)

// trace writes the operand stack and the instruction about to execute.
// It has no effect on execution.
func (vm *VM) trace() {
	var sb strings.Builder
	sb.WriteString("[TRACE]           ")
	for _, v := range vm.stack {
		fmt.Fprintf(&sb, "[ %s ]", vm.Format(v))
	}
	sb.WriteString("\n[TRACE] ")
	vm.chunk.DisassembleInstruction(&sb, vm.ip)
	fmt.Fprint(vm.traceOut, sb.String())
}

package vm

import (
	"fmt"
)

// FaultKind classifies a runtime fault.
type FaultKind uint8

const (
	// OperandMustBeNumber: a unary numeric operator saw a non-number.
	OperandMustBeNumber FaultKind = iota + 1
	// OperandsMustBeNumber: a binary numeric operator saw a non-number.
	OperandsMustBeNumber
	// UndefinedVariable is reserved for variable access opcodes.
	UndefinedVariable
	// ArityMismatch is reserved for call opcodes.
	ArityMismatch
)

func (k FaultKind) String() string {
	switch k {
	case OperandMustBeNumber:
		return "Operand must be a number."
	case OperandsMustBeNumber:
		return "Operands must be numbers."
	case UndefinedVariable:
		return "Undefined variable."
	case ArityMismatch:
		return "Wrong number of arguments."
	default:
		return fmt.Sprintf("FaultKind(%d)", k)
	}
}

// RuntimeError is a fault caused by the program being run. The VM stays
// usable: reset the stack and start another compile/run cycle.
type RuntimeError struct {
	Kind   FaultKind
	Line   int // Source line of the faulting instruction
	Offset int // Code offset of the faulting instruction
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("[line %d] %s", e.Line, e.Kind)
}

// InternalError marks a defect in the compiler or the VM itself: the stack
// underflowed, a byte did not decode, or a handle did not resolve. The VM
// panics with it instead of returning it, so it can never be mistaken for
// a RuntimeError.
type InternalError struct {
	Offset int
	Msg    string
	Err    error
}

func (e *InternalError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("internal error at offset %d: %s: %v", e.Offset, e.Msg, e.Err)
	}
	return fmt.Sprintf("internal error at offset %d: %s", e.Offset, e.Msg)
}

func (e *InternalError) Unwrap() error {
	return e.Err
}

// AsInternalError converts a recovered panic value back into the
// *InternalError it carried. ok is false for any other panic.
func AsInternalError(r any) (*InternalError, bool) {
	ie, ok := r.(*InternalError)
	return ie, ok
}

package vm

import (
	"bytes"
	"io"
	"os"

	"github.com/tliron/commonlog"

	"github.com/nimaipatel/rlox-bytecode/pkg/bytecode"
)

// ---------------------------------------------------------------------------
// VM: fetch/decode/execute loop over a Chunk
// ---------------------------------------------------------------------------

// DefaultStackCapacity is the initial capacity of the operand stack. The
// stack grows past it as needed.
const DefaultStackCapacity = 256

var log = commonlog.GetLogger("rlox.vm")

// Config holds construction options for a VM.
type Config struct {
	StackCapacity int       // Initial operand stack capacity; 0 means DefaultStackCapacity
	TraceOutput   io.Writer // Destination of debug traces; nil means stderr
}

// VM executes bytecode chunks. A VM is not safe for concurrent use; callers
// serialize compile/run cycles.
type VM struct {
	chunk    *bytecode.Chunk // Chunk bound by the last Run or Seek
	ip       int             // Offset of the next instruction in chunk.Code
	stack    []bytecode.Value
	registry *Registry
	traceOut io.Writer
}

// NewVM creates a VM with default settings.
func NewVM() *VM {
	return NewVMWithConfig(Config{})
}

// NewVMWithConfig creates a VM using cfg.
func NewVMWithConfig(cfg Config) *VM {
	capacity := cfg.StackCapacity
	if capacity <= 0 {
		capacity = DefaultStackCapacity
	}
	out := cfg.TraceOutput
	if out == nil {
		out = os.Stderr
	}
	return &VM{
		stack:    make([]bytecode.Value, 0, capacity),
		registry: NewRegistry(),
		traceOut: out,
	}
}

// SetTraceOutput redirects debug traces.
func (vm *VM) SetTraceOutput(w io.Writer) {
	vm.traceOut = w
}

// Registry returns the VM's object registry.
func (vm *VM) Registry() *Registry {
	return vm.registry
}

// IP returns the offset of the next instruction.
func (vm *VM) IP() int {
	return vm.ip
}

// Seek binds chunk and positions the instruction pointer at offset. A
// session uses it to step over code it must not execute.
func (vm *VM) Seek(chunk *bytecode.Chunk, offset int) {
	vm.chunk = chunk
	vm.ip = offset
}

// Run executes chunk. When chunk is the one bound by the previous run,
// execution resumes at the persisted instruction pointer so a session can
// append code and run only the new part; otherwise it starts at offset 0.
//
// The run ends at OP_RETURN with the popped value, or at the end of the code
// with Number(0). Program faults are returned as *RuntimeError. Defects in
// the bytecode itself panic with *InternalError.
func (vm *VM) Run(chunk *bytecode.Chunk, debug bool) (bytecode.Value, error) {
	if chunk != vm.chunk {
		vm.chunk = chunk
		vm.ip = 0
	}
	return vm.run(debug)
}

// run is the main execution loop.
func (vm *VM) run(debug bool) (bytecode.Value, error) {
	code := vm.chunk.Code
	for {
		if vm.ip >= len(code) {
			return bytecode.Number(0), nil
		}

		if debug {
			vm.trace()
		}

		offset := vm.ip
		op, err := bytecode.Decode(code[vm.ip])
		if err != nil {
			panic(&InternalError{Offset: offset, Msg: "undecodable instruction", Err: err})
		}
		vm.ip++

		switch op {
		case bytecode.OpReturn:
			return vm.pop(), nil

		case bytecode.OpConstant:
			idx := int(vm.readByte())
			vm.pushConstant(idx, offset)

		case bytecode.OpConstantLong:
			hi := int(vm.readByte())
			mid := int(vm.readByte())
			lo := int(vm.readByte())
			vm.pushConstant(hi<<16|mid<<8|lo, offset)

		case bytecode.OpNegate:
			v := vm.pop()
			if !v.IsNumber() {
				return vm.fault(OperandMustBeNumber, offset)
			}
			vm.push(bytecode.Number(-v.AsNumber()))

		case bytecode.OpAdd:
			b := vm.pop()
			a := vm.pop()
			switch {
			case a.IsNumber() && b.IsNumber():
				vm.push(bytecode.Number(a.AsNumber() + b.AsNumber()))
			case a.IsObject() && b.IsObject():
				as, aok := vm.resolveString(a, offset)
				bs, bok := vm.resolveString(b, offset)
				if !aok || !bok {
					return vm.fault(OperandsMustBeNumber, offset)
				}
				h := vm.registry.Register(bytecode.Concat(as, bs))
				vm.push(bytecode.ObjectRef(h))
			default:
				return vm.fault(OperandsMustBeNumber, offset)
			}

		case bytecode.OpSubtract, bytecode.OpMultiply, bytecode.OpDivide:
			b := vm.pop()
			a := vm.pop()
			if !a.IsNumber() || !b.IsNumber() {
				return vm.fault(OperandsMustBeNumber, offset)
			}
			x, y := a.AsNumber(), b.AsNumber()
			switch op {
			case bytecode.OpSubtract:
				vm.push(bytecode.Number(x - y))
			case bytecode.OpMultiply:
				vm.push(bytecode.Number(x * y))
			default:
				vm.push(bytecode.Number(x / y))
			}

		case bytecode.OpNil:
			vm.push(bytecode.Nil())

		case bytecode.OpTrue:
			vm.push(bytecode.Bool(true))

		case bytecode.OpFalse:
			vm.push(bytecode.Bool(false))

		case bytecode.OpNot:
			top := vm.top(offset)
			*top = bytecode.Bool(!top.Truthy())

		case bytecode.OpEqual:
			b := vm.pop()
			a := vm.pop()
			vm.push(bytecode.Bool(vm.equal(a, b, offset)))

		case bytecode.OpGreater, bytecode.OpLess:
			b := vm.pop()
			a := vm.pop()
			if !a.IsNumber() || !b.IsNumber() {
				return vm.fault(OperandsMustBeNumber, offset)
			}
			if op == bytecode.OpGreater {
				vm.push(bytecode.Bool(a.AsNumber() > b.AsNumber()))
			} else {
				vm.push(bytecode.Bool(a.AsNumber() < b.AsNumber()))
			}
		}
	}
}

// fault builds a RuntimeError for the instruction at offset.
func (vm *VM) fault(kind FaultKind, offset int) (bytecode.Value, error) {
	err := &RuntimeError{Kind: kind, Line: vm.chunk.LineAt(offset), Offset: offset}
	log.Debugf("runtime fault at offset %d: %s", offset, err)
	return bytecode.Nil(), err
}

// ResetStack discards every value on the operand stack. Call it after a
// RuntimeError before the next run.
func (vm *VM) ResetStack() {
	vm.stack = vm.stack[:0]
}

// StackDepth returns the number of values on the operand stack.
func (vm *VM) StackDepth() int {
	return len(vm.stack)
}

// Stack returns a copy of the operand stack, bottom first.
func (vm *VM) Stack() []bytecode.Value {
	return append([]bytecode.Value(nil), vm.stack...)
}

// Collect reclaims registry objects unreachable from the stack and extra.
func (vm *VM) Collect(extra ...bytecode.Value) CollectStats {
	roots := make([]bytecode.Value, 0, len(vm.stack)+len(extra))
	roots = append(roots, vm.stack...)
	roots = append(roots, extra...)
	stats := vm.registry.Collect(roots)
	log.Debugf("collect: marked %d, swept %d, live %d", stats.Marked, stats.Swept, stats.Live)
	return stats
}

// Release frees every object and unbinds the chunk. The VM can be reused.
func (vm *VM) Release() {
	vm.registry.Release()
	vm.stack = vm.stack[:0]
	vm.chunk = nil
	vm.ip = 0
}

// Format renders v for printing, resolving string objects.
func (vm *VM) Format(v bytecode.Value) string {
	if v.IsObject() {
		if obj, ok := vm.registry.Lookup(v.AsHandle()); ok {
			return obj.String()
		}
	}
	return v.String()
}

// ---------------------------------------------------------------------------
// Stack and operand helpers
// ---------------------------------------------------------------------------

func (vm *VM) push(v bytecode.Value) {
	vm.stack = append(vm.stack, v)
}

func (vm *VM) pop() bytecode.Value {
	n := len(vm.stack)
	if n == 0 {
		panic(&InternalError{Offset: vm.ip - 1, Msg: "stack underflow"})
	}
	v := vm.stack[n-1]
	vm.stack = vm.stack[:n-1]
	return v
}

func (vm *VM) top(offset int) *bytecode.Value {
	n := len(vm.stack)
	if n == 0 {
		panic(&InternalError{Offset: offset, Msg: "stack underflow"})
	}
	return &vm.stack[n-1]
}

func (vm *VM) readByte() byte {
	if vm.ip >= len(vm.chunk.Code) {
		panic(&InternalError{Offset: vm.ip, Msg: "operand runs past end of code"})
	}
	b := vm.chunk.Code[vm.ip]
	vm.ip++
	return b
}

// pushConstant pushes the pool entry idx. Literal objects belong to the
// chunk, so they are registered with this VM and the VM handle is pushed.
func (vm *VM) pushConstant(idx, offset int) {
	if idx >= len(vm.chunk.Constants) {
		panic(&InternalError{Offset: offset, Msg: "constant index out of range"})
	}
	v := vm.chunk.Constants[idx]
	if v.IsObject() {
		obj, ok := vm.chunk.Object(v.AsHandle())
		if !ok {
			panic(&InternalError{Offset: offset, Msg: "constant references missing literal"})
		}
		v = bytecode.ObjectRef(vm.registry.Register(obj))
	}
	vm.push(v)
}

// resolveString returns the string behind v. ok is false when the object is
// some other kind. A handle that does not resolve at all is a VM defect.
func (vm *VM) resolveString(v bytecode.Value, offset int) (*bytecode.StringObject, bool) {
	obj, found := vm.registry.Lookup(v.AsHandle())
	if !found {
		panic(&InternalError{Offset: offset, Msg: "stale object handle " + v.AsHandle().String()})
	}
	s, ok := obj.(*bytecode.StringObject)
	return s, ok
}

// equal is Value.Equal extended to compare strings by content.
func (vm *VM) equal(a, b bytecode.Value, offset int) bool {
	if a.IsObject() && b.IsObject() {
		as, aok := vm.resolveString(a, offset)
		bs, bok := vm.resolveString(b, offset)
		if aok && bok {
			return bytes.Equal(as.Bytes, bs.Bytes)
		}
	}
	return a.Equal(b)
}

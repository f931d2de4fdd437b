// Package session drives compile/run cycles over one growing chunk, the
// way an interactive prompt does: every Eval appends its code to the same
// chunk and the VM resumes where the previous unit ended.
package session

import (
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/tliron/commonlog"

	"github.com/nimaipatel/rlox-bytecode/compiler"
	"github.com/nimaipatel/rlox-bytecode/pkg/bytecode"
	"github.com/nimaipatel/rlox-bytecode/vm"
)

var log = commonlog.GetLogger("rlox.session")

// Options configures a Session.
type Options struct {
	VM          vm.Config
	MaxDepth    int       // Parser and compiler nesting limit; 0 means the default
	Trace       bool      // Trace execution to VM.TraceOutput
	Disassemble io.Writer // When set, each compiled unit is listed here before it runs
}

// Session owns one Chunk and one VM.
type Session struct {
	ID    uuid.UUID
	opts  Options
	chunk *bytecode.Chunk
	vm    *vm.VM
	units int
}

// New creates a session with an empty chunk.
func New(opts Options) *Session {
	s := &Session{
		ID:    uuid.New(),
		opts:  opts,
		chunk: bytecode.NewChunk(),
		vm:    vm.NewVMWithConfig(opts.VM),
	}
	log.Debugf("session %s: created", s.ID)
	return s
}

// Eval compiles source into the session chunk and runs the new code.
//
// Errors are compiler.ParseErrors, *compiler.CompileError or
// *vm.RuntimeError. After any of them the session stays usable: code from
// a failed compile is stepped over, and a runtime fault clears the stack.
// Internal VM errors panic through Eval.
//
// Each Eval collects the VM heap before it runs. Object values returned by
// earlier Evals stop resolving unless they are passed in keep; Format then
// renders them as dangling handles.
func (s *Session) Eval(source string, keep ...bytecode.Value) (bytecode.Value, error) {
	p := compiler.NewParser(source)
	p.SetMaxDepth(s.opts.MaxDepth)
	prog, errs := p.ParseProgram()
	if len(errs) > 0 {
		log.Debugf("session %s: %d parse errors", s.ID, len(errs))
		return bytecode.Nil(), errs
	}
	if len(prog.Stmts) == 0 {
		return bytecode.Nil(), nil
	}

	s.vm.Collect(keep...)

	start := s.chunk.Len()
	c := compiler.NewCompiler(s.chunk)
	c.SetMaxDepth(s.opts.MaxDepth)
	if err := c.Compile(prog); err != nil {
		// The chunk is append-only, so partial code stays; never run it.
		s.vm.Seek(s.chunk, s.chunk.Len())
		return bytecode.Nil(), err
	}
	s.units++

	if s.opts.Disassemble != nil {
		s.disassembleRange(s.opts.Disassemble, start, s.chunk.Len())
	}

	s.vm.Seek(s.chunk, start)
	value, err := s.vm.Run(s.chunk, s.opts.Trace)
	if err != nil {
		s.vm.ResetStack()
		s.vm.Seek(s.chunk, s.chunk.Len())
		log.Debugf("session %s: %s", s.ID, err)
		return bytecode.Nil(), err
	}
	return value, nil
}

func (s *Session) disassembleRange(w io.Writer, from, to int) {
	fmt.Fprintf(w, "== unit %d ==\n", s.units)
	for offset := from; offset < to; {
		next, ok := s.chunk.DisassembleInstruction(w, offset)
		if !ok {
			return
		}
		offset = next
	}
}

// Format renders v, resolving strings through the session's VM.
func (s *Session) Format(v bytecode.Value) string {
	return s.vm.Format(v)
}

// Chunk returns the session's chunk.
func (s *Session) Chunk() *bytecode.Chunk {
	return s.chunk
}

// VM returns the session's VM.
func (s *Session) VM() *vm.VM {
	return s.vm
}

// Units returns the number of successfully compiled units.
func (s *Session) Units() int {
	return s.units
}

// Close frees the session's objects.
func (s *Session) Close() {
	s.vm.Release()
	log.Debugf("session %s: closed after %d units", s.ID, s.units)
}

package compiler

import (
	"fmt"
	"strings"
)

// ParseError is a scanning or parsing fault. Lexeme is empty for scanner
// errors and for errors at end of input.
type ParseError struct {
	Line   int
	Lexeme string
	Msg    string
	Scan   bool // raised by the lexer rather than the grammar
}

func (e *ParseError) Error() string {
	if e.Lexeme == "" {
		return fmt.Sprintf("[line %d] Error: %s", e.Line, e.Msg)
	}
	return fmt.Sprintf("[line %d] Error at '%s': %s", e.Line, e.Lexeme, e.Msg)
}

// ParseErrors aggregates the faults of one unit in source order.
type ParseErrors []*ParseError

func (errs ParseErrors) Error() string {
	msgs := make([]string, len(errs))
	for i, e := range errs {
		msgs[i] = e.Error()
	}
	return strings.Join(msgs, "\n")
}

// CompileErrorKind classifies a CompileError.
type CompileErrorKind int

const (
	// ConstantPoolOverflow: the chunk already holds MaxConstants constants.
	ConstantPoolOverflow CompileErrorKind = iota
	// Unsupported: the construct has no lowering in the instruction set.
	Unsupported
	// TooDeep: expression nesting exceeds the configured depth.
	TooDeep
)

func (k CompileErrorKind) String() string {
	switch k {
	case ConstantPoolOverflow:
		return "ConstantPoolOverflow"
	case Unsupported:
		return "Unsupported"
	case TooDeep:
		return "TooDeep"
	default:
		return fmt.Sprintf("CompileErrorKind(%d)", int(k))
	}
}

// CompileError is fatal to the unit being compiled. Code already written to
// the chunk for the unit must not be executed.
type CompileError struct {
	Kind CompileErrorKind
	Line int
	Msg  string
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("[line %d] Compile error: %s", e.Line, e.Msg)
}

package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/nimaipatel/rlox-bytecode/pkg/bytecode"
	"github.com/nimaipatel/rlox-bytecode/pkg/session"
	"github.com/nimaipatel/rlox-bytecode/vm"
)

// repl reads units from in and evaluates them in one session. Input is
// buffered until a line ends with ';' or an empty line is entered.
func (c *cli) repl(in io.Reader) int {
	fmt.Fprintln(c.stdout, "rlox REPL (type 'exit' to quit, ':help' for commands)")

	sess := session.New(sessionOptions(c.cfg, c.traceOut, c.stdout))
	defer func() { sess.Close() }()

	scanner := bufio.NewScanner(in)
	var buf strings.Builder

	for {
		if buf.Len() == 0 {
			fmt.Fprint(c.stdout, "> ")
		} else {
			fmt.Fprint(c.stdout, ". ")
		}
		if !scanner.Scan() {
			break
		}
		line := scanner.Text()

		if buf.Len() == 0 {
			trimmed := strings.TrimSpace(line)
			if trimmed == "exit" || trimmed == "quit" {
				break
			}
			if strings.HasPrefix(trimmed, ":") {
				c.command(sess, trimmed)
				continue
			}
		}

		if buf.Len() > 0 {
			buf.WriteString("\n")
		}
		buf.WriteString(line)

		if line != "" && !strings.HasSuffix(strings.TrimSpace(line), ";") {
			continue
		}
		input := buf.String()
		buf.Reset()
		if strings.TrimSpace(input) == "" {
			continue
		}

		if !c.evalAndPrint(sess, input) {
			// An internal error leaves the session in an unknown state.
			sess.Close()
			sess = session.New(sessionOptions(c.cfg, c.traceOut, c.stdout))
			fmt.Fprintln(c.stderr, "session reset")
		}
	}

	fmt.Fprintln(c.stdout)
	return exitOK
}

// evalAndPrint evaluates one unit and prints its value or fault. It
// returns false after an internal error.
func (c *cli) evalAndPrint(sess *session.Session, input string) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			ie, isInternal := vm.AsInternalError(r)
			if !isInternal {
				panic(r)
			}
			fmt.Fprintf(c.stderr, "internal error: %v\n", ie)
			ok = false
		}
	}()

	value, err := sess.Eval(input)
	if err != nil {
		fmt.Fprintln(c.stderr, err)
		return true
	}
	fmt.Fprintln(c.stdout, sess.Format(value))
	return true
}

// command handles REPL meta-commands.
func (c *cli) command(sess *session.Session, cmd string) {
	switch cmd {
	case ":help", ":h", ":?":
		fmt.Fprintln(c.stdout, "REPL Commands:")
		fmt.Fprintln(c.stdout, "  :help, :h, :?     Show this help")
		fmt.Fprintln(c.stdout, "  :chunk            Disassemble everything compiled so far")
		fmt.Fprintln(c.stdout, "  :stats            Show chunk and heap sizes")
		fmt.Fprintln(c.stdout, "  :gc               Collect unreachable objects")
		fmt.Fprintln(c.stdout, "  exit, quit        Exit REPL")
	case ":chunk":
		sess.Chunk().DisassembleTo(c.stdout, "repl")
	case ":stats":
		chunk := sess.Chunk()
		fmt.Fprintf(c.stdout, "units: %d\n", sess.Units())
		fmt.Fprintf(c.stdout, "code: %s\n", humanize.Bytes(uint64(chunk.Len())))
		fmt.Fprintf(c.stdout, "constants: %s of %s\n",
			humanize.Comma(int64(chunk.ConstantCount())), humanize.Comma(bytecode.MaxConstants))
		fmt.Fprintf(c.stdout, "live objects: %d\n", sess.VM().Registry().Len())
	case ":gc":
		stats := sess.VM().Collect()
		fmt.Fprintf(c.stdout, "swept %d, live %d\n", stats.Swept, stats.Live)
	default:
		fmt.Fprintf(c.stdout, "Unknown command: %s (type :help for commands)\n", cmd)
	}
}

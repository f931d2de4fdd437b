// rlox CLI - compiles and runs Lox expressions on the bytecode VM
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/nimaipatel/rlox-bytecode/manifest"
	"github.com/nimaipatel/rlox-bytecode/pkg/session"
	"github.com/nimaipatel/rlox-bytecode/server"
	"github.com/nimaipatel/rlox-bytecode/vm"
)

// Exit codes follow sysexits.h.
const (
	exitOK       = 0
	exitUsage    = 64
	exitDataErr  = 65
	exitSoftware = 70
	exitIOErr    = 74
)

var log = commonlog.GetLogger("rlox.cli")

func main() {
	disassemble := flag.Bool("d", false, "Disassemble each chunk before running it")
	trace := flag.Bool("trace", false, "Trace execution to the configured trace output")
	configPath := flag.String("config", "", "Path to a config file (default: search upward for rlox.toml)")
	useCache := flag.Bool("cache", false, "Cache compiled chunks in SQLite")
	lspMode := flag.Bool("lsp", false, "Run the language server on stdio")
	verbose := flag.Bool("v", false, "Verbose output")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: rlox [options] [script]\n\n")
		fmt.Fprintf(os.Stderr, "Runs script, or starts a REPL when no script is given.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  rlox                    # Start REPL\n")
		fmt.Fprintf(os.Stderr, "  rlox -d expr.lox        # Print the chunk, then run it\n")
		fmt.Fprintf(os.Stderr, "  rlox -cache expr.lox    # Reuse the compiled chunk on the next run\n")
		fmt.Fprintf(os.Stderr, "  rlox -lsp               # Language server for editors\n")
	}
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitUsage)
	}

	// Flags override the config file.
	if *disassemble {
		cfg.Compiler.Disassemble = true
	}
	if *trace {
		cfg.VM.Trace = true
	}
	if *useCache {
		cfg.Cache.Enabled = true
	}
	if *verbose && cfg.Log.Verbosity < 1 {
		cfg.Log.Verbosity = 1
	}

	var logPath *string
	if p := cfg.LogFilePath(); p != "" {
		logPath = &p
	}
	commonlog.Configure(cfg.Log.Verbosity, logPath)

	if *lspMode {
		if flag.NArg() > 0 {
			flag.Usage()
			os.Exit(exitUsage)
		}
		srv := server.NewLSP(sessionOptions(cfg, nil, nil))
		if err := srv.Run(); err != nil {
			fmt.Fprintf(os.Stderr, "LSP server error: %v\n", err)
			os.Exit(exitSoftware)
		}
		return
	}

	traceOut, closeTrace, err := openTraceOutput(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitIOErr)
	}

	app := &cli{
		cfg:      cfg,
		traceOut: traceOut,
		verbose:  *verbose,
		stdout:   os.Stdout,
		stderr:   os.Stderr,
	}

	var code int
	switch flag.NArg() {
	case 0:
		code = app.repl(os.Stdin)
	case 1:
		code = app.runFile(flag.Arg(0))
	default:
		flag.Usage()
		code = exitUsage
	}

	closeTrace()
	os.Exit(code)
}

// cli carries the resolved configuration and output streams.
type cli struct {
	cfg      *manifest.Config
	traceOut io.Writer // nil means stderr
	verbose  bool
	stdout   io.Writer
	stderr   io.Writer
}

// loadConfig reads the config file at path, or searches upward from the
// working directory when path is empty. Missing files yield the defaults.
func loadConfig(path string) (*manifest.Config, error) {
	if path != "" {
		return manifest.LoadFile(path)
	}
	cwd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	cfg, err := manifest.FindAndLoad(cwd)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		cfg = manifest.Default()
	}
	return cfg, nil
}

// openTraceOutput opens the configured trace file. The returned close
// function is always safe to call.
func openTraceOutput(cfg *manifest.Config) (io.Writer, func(), error) {
	path := cfg.TraceOutputPath()
	if path == "" {
		return nil, func() {}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("cannot open trace output: %w", err)
	}
	return f, func() { f.Close() }, nil
}

func vmConfig(cfg *manifest.Config, traceOut io.Writer) vm.Config {
	return vm.Config{
		StackCapacity: cfg.VM.StackCapacity,
		TraceOutput:   traceOut,
	}
}

func sessionOptions(cfg *manifest.Config, traceOut, listing io.Writer) session.Options {
	opts := session.Options{
		VM:       vmConfig(cfg, traceOut),
		MaxDepth: cfg.Compiler.MaxDepth,
		Trace:    cfg.VM.Trace,
	}
	if cfg.Compiler.Disassemble {
		opts.Disassemble = listing
	}
	return opts
}

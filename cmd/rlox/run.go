package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"

	"github.com/nimaipatel/rlox-bytecode/compiler"
	"github.com/nimaipatel/rlox-bytecode/pkg/bytecode"
	"github.com/nimaipatel/rlox-bytecode/store"
	"github.com/nimaipatel/rlox-bytecode/vm"
)

// runFile compiles and runs a script, printing its value. With the cache
// enabled, a chunk compiled from identical source is reused.
func (c *cli) runFile(path string) int {
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(c.stderr, "Error: %v\n", err)
		return exitIOErr
	}
	source := string(data)
	ctx := context.Background()

	var cache *store.Store
	if c.cfg.Cache.Enabled {
		cache, err = store.Open(c.cfg.CachePath())
		if err != nil {
			// Run uncached rather than fail.
			fmt.Fprintf(c.stderr, "Warning: %v\n", err)
			cache = nil
		} else {
			defer cache.Close()
		}
	}

	chunk, cached := c.lookup(ctx, cache, source)
	if chunk == nil {
		chunk, err = compileSource(source, c.cfg.Compiler.MaxDepth)
		if err != nil {
			fmt.Fprintln(c.stderr, err)
			return exitDataErr
		}
		if cache != nil {
			if err := cache.Put(ctx, source, chunk); err != nil {
				fmt.Fprintf(c.stderr, "Warning: %v\n", err)
			}
		}
	}

	if c.cfg.Compiler.Disassemble {
		chunk.DisassembleTo(c.stdout, filepath.Base(path))
	}

	machine := vm.NewVMWithConfig(vmConfig(c.cfg, c.traceOut))
	defer machine.Release()

	value, err := execute(machine, chunk, c.cfg.VM.Trace)
	if err != nil {
		return c.report(err)
	}
	fmt.Fprintln(c.stdout, machine.Format(value))

	if c.verbose {
		c.summarize(ctx, path, chunk, cached, cache)
	}
	return exitOK
}

func (c *cli) lookup(ctx context.Context, cache *store.Store, source string) (*bytecode.Chunk, bool) {
	if cache == nil {
		return nil, false
	}
	chunk, err := cache.Get(ctx, source)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			fmt.Fprintf(c.stderr, "Warning: %v\n", err)
		}
		return nil, false
	}
	log.Debugf("cache hit for %s", store.Key(source))
	return chunk, true
}

func (c *cli) summarize(ctx context.Context, path string, chunk *bytecode.Chunk, cached bool, cache *store.Store) {
	origin := "compiled"
	if cached {
		origin = "cached"
	}
	fmt.Fprintf(c.stderr, "%s: %s chunk, %s of code, %d constants\n",
		path, origin, humanize.Bytes(uint64(chunk.Len())), chunk.ConstantCount())
	if cache == nil {
		return
	}
	st, err := cache.Stats(ctx)
	if err != nil {
		fmt.Fprintf(c.stderr, "Warning: %v\n", err)
		return
	}
	fmt.Fprintf(c.stderr, "cache %s: %s entries, %s\n",
		cache.Path(), humanize.Comma(int64(st.Entries)), humanize.Bytes(uint64(st.Bytes)))
}

// report prints an evaluation error and returns the matching exit code.
func (c *cli) report(err error) int {
	var (
		parseErrs  compiler.ParseErrors
		compileErr *compiler.CompileError
		internal   *vm.InternalError
	)
	switch {
	case errors.As(err, &parseErrs), errors.As(err, &compileErr):
		fmt.Fprintln(c.stderr, err)
		return exitDataErr
	case errors.As(err, &internal):
		fmt.Fprintf(c.stderr, "internal error: %v\n", internal)
		return exitSoftware
	default:
		fmt.Fprintln(c.stderr, err)
		return exitSoftware
	}
}

// compileSource parses source and compiles it into a fresh chunk.
func compileSource(source string, maxDepth int) (*bytecode.Chunk, error) {
	p := compiler.NewParser(source)
	p.SetMaxDepth(maxDepth)
	prog, errs := p.ParseProgram()
	if len(errs) > 0 {
		return nil, errs
	}

	chunk := bytecode.NewChunk()
	comp := compiler.NewCompiler(chunk)
	comp.SetMaxDepth(maxDepth)
	if err := comp.Compile(prog); err != nil {
		return nil, err
	}
	return chunk, nil
}

// execute runs chunk, turning an internal VM panic back into an error.
func execute(machine *vm.VM, chunk *bytecode.Chunk, trace bool) (value bytecode.Value, err error) {
	defer func() {
		if r := recover(); r != nil {
			ie, ok := vm.AsInternalError(r)
			if !ok {
				panic(r)
			}
			err = ie
		}
	}()
	return machine.Run(chunk, trace)
}

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nimaipatel/rlox-bytecode/manifest"
	"github.com/nimaipatel/rlox-bytecode/vm"
)

func newTestCLI(cfg *manifest.Config) (*cli, *bytes.Buffer, *bytes.Buffer) {
	var stdout, stderr bytes.Buffer
	return &cli{cfg: cfg, stdout: &stdout, stderr: &stderr}, &stdout, &stderr
}

func writeScript(t *testing.T, name, source string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(source), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRunFile(t *testing.T) {
	tests := []struct {
		name   string
		source string
		code   int
		stdout string
		stderr string
	}{
		{"arithmetic", "(1 + 2) * -3;", exitOK, "-9\n", ""},
		{"comparison", "!(2 >= 3);", exitOK, "true\n", ""},
		{"strings", `"con" + "cat";`, exitOK, "concat\n", ""},
		{"parse error", "1 +;", exitDataErr, "", "Error at ';': expect expression"},
		{"compile error", "print 1;", exitDataErr, "", "Compile error"},
		{"runtime error", "\n-nil;", exitSoftware, "", "[line 2] Operand must be a number."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app, stdout, stderr := newTestCLI(manifest.Default())
			code := app.runFile(writeScript(t, "main.lox", tt.source))
			if code != tt.code {
				t.Errorf("exit code = %d, want %d (stderr: %s)", code, tt.code, stderr)
			}
			if stdout.String() != tt.stdout {
				t.Errorf("stdout = %q, want %q", stdout, tt.stdout)
			}
			if tt.stderr != "" && !strings.Contains(stderr.String(), tt.stderr) {
				t.Errorf("stderr = %q, want it to contain %q", stderr, tt.stderr)
			}
		})
	}
}

func TestRunFileMissing(t *testing.T) {
	app, _, stderr := newTestCLI(manifest.Default())
	if code := app.runFile(filepath.Join(t.TempDir(), "nope.lox")); code != exitIOErr {
		t.Errorf("exit code = %d, want %d", code, exitIOErr)
	}
	if stderr.Len() == 0 {
		t.Error("no error message")
	}
}

func TestRunFileDisassemble(t *testing.T) {
	cfg := manifest.Default()
	cfg.Compiler.Disassemble = true
	app, stdout, _ := newTestCLI(cfg)

	if code := app.runFile(writeScript(t, "neg.lox", "-1;")); code != exitOK {
		t.Fatalf("exit code = %d", code)
	}
	want := "== neg.lox ==\n" +
		"0000    1 OP_CONSTANT         0 '1'\n" +
		"0002    | OP_NEGATE\n" +
		"0003    | OP_RETURN\n" +
		"-1\n"
	if stdout.String() != want {
		t.Errorf("stdout =\n%s\nwant\n%s", stdout, want)
	}
}

func TestRunFileCache(t *testing.T) {
	cfg := manifest.Default()
	cfg.Cache.Enabled = true
	cfg.Cache.Path = filepath.Join(t.TempDir(), "cache.db")
	script := writeScript(t, "cached.lox", `"x" + "y";`)

	app, stdout, stderr := newTestCLI(cfg)
	app.verbose = true
	if code := app.runFile(script); code != exitOK {
		t.Fatalf("first run: exit code = %d (%s)", code, stderr)
	}
	if !strings.Contains(stderr.String(), "compiled chunk") {
		t.Errorf("first run stderr = %q, want a compiled chunk", stderr)
	}

	app, stdout, stderr = newTestCLI(cfg)
	app.verbose = true
	if code := app.runFile(script); code != exitOK {
		t.Fatalf("second run: exit code = %d (%s)", code, stderr)
	}
	if stdout.String() != "xy\n" {
		t.Errorf("cached result = %q, want xy", stdout)
	}
	if !strings.Contains(stderr.String(), "cached chunk") {
		t.Errorf("second run stderr = %q, want a cached chunk", stderr)
	}
	if !strings.Contains(stderr.String(), "1 entries") {
		t.Errorf("second run stderr = %q, want cache stats", stderr)
	}
}

func TestReport(t *testing.T) {
	app, _, stderr := newTestCLI(manifest.Default())
	code := app.report(&vm.InternalError{Offset: 4, Msg: "stack underflow"})
	if code != exitSoftware {
		t.Errorf("exit code = %d, want %d", code, exitSoftware)
	}
	if !strings.HasPrefix(stderr.String(), "internal error: ") {
		t.Errorf("stderr = %q", stderr)
	}
}

func TestREPL(t *testing.T) {
	input := strings.Join([]string{
		"1 + 2;",
		"-nil;",
		`"a" +`,
		`"b";`,
		":stats",
		":bogus",
		"4 * 5;",
		"exit",
		"6;",
	}, "\n")

	app, stdout, stderr := newTestCLI(manifest.Default())
	if code := app.repl(strings.NewReader(input)); code != exitOK {
		t.Errorf("exit code = %d", code)
	}

	out := stdout.String()
	for _, want := range []string{"3\n", "ab\n", "units: 3\n", "Unknown command: :bogus", "20\n"} {
		if !strings.Contains(out, want) {
			t.Errorf("stdout missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "6\n") {
		t.Errorf("input after exit was evaluated:\n%s", out)
	}
	if !strings.Contains(stderr.String(), "Operand must be a number.") {
		t.Errorf("stderr = %q, want the runtime fault", stderr)
	}
}

func TestREPLDisassemble(t *testing.T) {
	cfg := manifest.Default()
	cfg.Compiler.Disassemble = true
	app, stdout, _ := newTestCLI(cfg)

	app.repl(strings.NewReader("true;\nnil;\n"))
	out := stdout.String()
	for _, want := range []string{"== unit 1 ==", "OP_TRUE", "== unit 2 ==", "OP_NIL"} {
		if !strings.Contains(out, want) {
			t.Errorf("stdout missing %q:\n%s", want, out)
		}
	}
}

func TestLoadConfig(t *testing.T) {
	path := writeScript(t, "alt.toml", "[compiler]\nmax-depth = 7\n")
	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Compiler.MaxDepth != 7 {
		t.Errorf("MaxDepth = %d, want 7", cfg.Compiler.MaxDepth)
	}

	if _, err := loadConfig(writeScript(t, "bad.toml", "[vm]\nbogus = 1\n")); err == nil {
		t.Error("unknown key accepted")
	}
}

func TestSessionOptions(t *testing.T) {
	cfg := manifest.Default()
	cfg.VM.Trace = true
	cfg.VM.StackCapacity = 8
	var listing bytes.Buffer

	opts := sessionOptions(cfg, nil, &listing)
	if !opts.Trace || opts.VM.StackCapacity != 8 || opts.MaxDepth != 1024 {
		t.Errorf("opts = %+v", opts)
	}
	if opts.Disassemble != nil {
		t.Error("listing enabled without compiler.disassemble")
	}

	cfg.Compiler.Disassemble = true
	if opts := sessionOptions(cfg, nil, &listing); opts.Disassemble != &listing {
		t.Error("listing writer not passed through")
	}
}

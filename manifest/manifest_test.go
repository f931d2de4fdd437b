package manifest

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	tomlContent := `
[vm]
trace = true
stack-capacity = 64
trace-output = "trace.log"

[compiler]
max-depth = 200
disassemble = true

[log]
verbosity = 2
file = "/var/log/rlox.log"

[cache]
enabled = true
path = "build/cache.db"
`
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte(tomlContent), 0644); err != nil {
		t.Fatal(err)
	}

	c, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if !c.VM.Trace || c.VM.StackCapacity != 64 {
		t.Errorf("vm = %+v", c.VM)
	}
	if c.Compiler.MaxDepth != 200 || !c.Compiler.Disassemble {
		t.Errorf("compiler = %+v", c.Compiler)
	}
	if c.Log.Verbosity != 2 {
		t.Errorf("log verbosity = %d, want 2", c.Log.Verbosity)
	}
	if !c.Cache.Enabled {
		t.Error("cache enabled = false, want true")
	}

	absDir, _ := filepath.Abs(dir)
	if c.Dir != absDir {
		t.Errorf("Dir = %q, want %q", c.Dir, absDir)
	}
	if got, want := c.CachePath(), filepath.Join(absDir, "build", "cache.db"); got != want {
		t.Errorf("CachePath() = %q, want %q", got, want)
	}
	if got, want := c.TraceOutputPath(), filepath.Join(absDir, "trace.log"); got != want {
		t.Errorf("TraceOutputPath() = %q, want %q", got, want)
	}
	if got := c.LogFilePath(); got != "/var/log/rlox.log" {
		t.Errorf("LogFilePath() = %q, absolute paths are kept", got)
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte("[vm]\ntrace = true\n"), 0644); err != nil {
		t.Fatal(err)
	}

	c, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if c.VM.StackCapacity != 256 {
		t.Errorf("stack-capacity = %d, want default 256", c.VM.StackCapacity)
	}
	if c.Compiler.MaxDepth != 1024 {
		t.Errorf("max-depth = %d, want default 1024", c.Compiler.MaxDepth)
	}
	if c.Cache.Enabled {
		t.Error("cache enabled by default")
	}
	if c.Cache.Path != filepath.Join(".rlox", "cache.db") {
		t.Errorf("cache path = %q", c.Cache.Path)
	}
	if c.TraceOutputPath() != "" {
		t.Errorf("TraceOutputPath() = %q, want stderr", c.TraceOutputPath())
	}
}

func TestParseRejectsBadConfig(t *testing.T) {
	tests := []struct {
		content string
		errSub  string
	}{
		{"[vm]\nstack-capacty = 3\n", "unknown keys"},
		{"[vm]\nstack-capacity = -1\n", "stack-capacity"},
		{"[compiler]\nmax-depth = 0\n", "max-depth"},
		{"[log]\nverbosity = 9\n", "verbosity"},
		{"[cache]\nenabled = true\npath = \"\"\n", "cache.path"},
		{"[vm\n", ""},
	}

	for _, tc := range tests {
		_, err := Parse([]byte(tc.content))
		if err == nil {
			t.Errorf("Parse(%q) succeeded", tc.content)
			continue
		}
		if !strings.Contains(err.Error(), tc.errSub) {
			t.Errorf("Parse(%q) = %v, want mention of %q", tc.content, err, tc.errSub)
		}
	}
}

func TestFindAndLoad(t *testing.T) {
	root := t.TempDir()
	sub := filepath.Join(root, "a", "b", "c")
	if err := os.MkdirAll(sub, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, FileName), []byte("[compiler]\nmax-depth = 7\n"), 0644); err != nil {
		t.Fatal(err)
	}

	c, err := FindAndLoad(sub)
	if err != nil {
		t.Fatalf("FindAndLoad failed: %v", err)
	}
	if c == nil {
		t.Fatal("FindAndLoad returned nil")
	}
	if c.Compiler.MaxDepth != 7 {
		t.Errorf("max-depth = %d, want 7", c.Compiler.MaxDepth)
	}
}

func TestFindAndLoadNotFound(t *testing.T) {
	c, err := FindAndLoad(t.TempDir())
	if err != nil {
		t.Fatalf("FindAndLoad error: %v", err)
	}
	// A stray rlox.toml above the temp dir would be found; only check nil
	// when nothing was found.
	if c != nil && c.Dir == "" {
		t.Error("found config without a directory")
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.toml")
	if err := os.WriteFile(path, []byte("[cache]\nenabled = true\npath = \"c.db\"\n"), 0644); err != nil {
		t.Fatal(err)
	}

	c, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if !c.Cache.Enabled {
		t.Error("cache not enabled")
	}
	if got, want := c.CachePath(), filepath.Join(dir, "c.db"); got != want {
		t.Errorf("CachePath() = %s, want %s", got, want)
	}

	if _, err := LoadFile(filepath.Join(dir, "missing.toml")); err == nil {
		t.Error("LoadFile(missing) succeeded")
	}
}

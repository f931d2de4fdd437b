// Package manifest handles rlox.toml configuration.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// FileName is the configuration file looked up by FindAndLoad.
const FileName = "rlox.toml"

// Config represents an rlox.toml file. Keys missing from the file keep the
// values returned by Default.
type Config struct {
	VM       VMConfig       `toml:"vm"`
	Compiler CompilerConfig `toml:"compiler"`
	Log      LogConfig      `toml:"log"`
	Cache    CacheConfig    `toml:"cache"`

	// Dir is the directory containing the rlox.toml file (set at load time).
	Dir string `toml:"-"`
}

// VMConfig configures the virtual machine.
type VMConfig struct {
	Trace         bool   `toml:"trace"`
	StackCapacity int    `toml:"stack-capacity"`
	TraceOutput   string `toml:"trace-output"` // "" means stderr
}

// CompilerConfig configures parsing and code generation.
type CompilerConfig struct {
	MaxDepth    int  `toml:"max-depth"`
	Disassemble bool `toml:"disassemble"`
}

// LogConfig configures commonlog.
type LogConfig struct {
	Verbosity int    `toml:"verbosity"`
	File      string `toml:"file"` // "" means stderr
}

// CacheConfig configures the compiled chunk cache.
type CacheConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		VM:       VMConfig{StackCapacity: 256},
		Compiler: CompilerConfig{MaxDepth: 1024},
		Cache:    CacheConfig{Path: filepath.Join(".rlox", "cache.db")},
	}
}

// Load parses the rlox.toml file in the given directory.
func Load(dir string) (*Config, error) {
	return LoadFile(filepath.Join(dir, FileName))
}

// LoadFile parses the configuration file at path. Relative paths inside it
// resolve against the file's directory.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	c.Dir, err = filepath.Abs(filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", path, err)
	}
	return c, nil
}

// Parse decodes rlox.toml content over the defaults. Unknown keys are
// rejected so typos do not silently fall back to defaults.
func Parse(data []byte) (*Config, error) {
	c := Default()
	md, err := toml.Decode(string(data), c)
	if err != nil {
		return nil, err
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("unknown keys: %s", strings.Join(keys, ", "))
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if c.VM.StackCapacity < 0 {
		return fmt.Errorf("vm.stack-capacity must not be negative, got %d", c.VM.StackCapacity)
	}
	if c.Compiler.MaxDepth < 1 {
		return fmt.Errorf("compiler.max-depth must be positive, got %d", c.Compiler.MaxDepth)
	}
	if c.Log.Verbosity < -4 || c.Log.Verbosity > 2 {
		return fmt.Errorf("log.verbosity must be between -4 and 2, got %d", c.Log.Verbosity)
	}
	if c.Cache.Enabled && c.Cache.Path == "" {
		return fmt.Errorf("cache.path is required when the cache is enabled")
	}
	return nil
}

// FindAndLoad walks up from startDir to find an rlox.toml file, then loads
// and returns it. Returns nil if no file is found.
func FindAndLoad(startDir string) (*Config, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return nil, nil
		}
		dir = parent
	}
}

// resolve makes a configured path absolute relative to the config file.
func (c *Config) resolve(p string) string {
	if p == "" || filepath.IsAbs(p) || c.Dir == "" {
		return p
	}
	return filepath.Join(c.Dir, p)
}

// CachePath returns the path of the sqlite cache database.
func (c *Config) CachePath() string {
	return c.resolve(c.Cache.Path)
}

// TraceOutputPath returns the trace destination, "" for stderr.
func (c *Config) TraceOutputPath() string {
	return c.resolve(c.VM.TraceOutput)
}

// LogFilePath returns the log destination, "" for stderr.
func (c *Config) LogFilePath() string {
	return c.resolve(c.Log.File)
}

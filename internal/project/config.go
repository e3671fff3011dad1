package project

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Compiler modes.
const (
	ModePersistent = "persistent"
	ModeBatch      = "batch"
)

// Config is the decoded dpscript.toml. Zero values are filled by Default.
type Config struct {
	Compiler CompilerConfig `toml:"compiler"`
	Reload   ReloadConfig   `toml:"reload"`
}

type CompilerConfig struct {
	Mode string `toml:"mode"`
	// Command starts the persistent compiler; the workspace root is
	// appended as the last argument.
	Command []string `toml:"command"`
	// BatchCommand compiles one folder per run; the folder is appended.
	BatchCommand []string `toml:"batch_command"`
	// WorkDir is where batch runs execute and write their report.
	WorkDir string `toml:"workdir"`
	Report  string `toml:"report"`
	// Output is the manual compile target, relative to the first folder.
	Output         string   `toml:"output"`
	CommandTimeout Duration `toml:"command_timeout"`
	BatchTimeout   Duration `toml:"batch_timeout"`
}

type ReloadConfig struct {
	// Listen is the address of the live reload websocket hub; empty
	// disables it.
	Listen string `toml:"listen"`
}

// Duration decodes TOML strings such as "10s" or "2m".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(text), err)
	}
	if parsed < 0 {
		return fmt.Errorf("invalid duration %q: negative", string(text))
	}
	d.Duration = parsed
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Default returns the configuration used when no manifest exists.
func Default() Config {
	return Config{
		Compiler: CompilerConfig{
			Mode:           ModePersistent,
			Command:        []string{"java", "-jar", "DPScriptServer.jar"},
			BatchCommand:   []string{"java", "-jar", "DPScript.jar"},
			Report:         "compilerOutput.json",
			Output:         filepath.Join("ignore", "out"),
			CommandTimeout: Duration{10 * time.Second},
			BatchTimeout:   Duration{2 * time.Minute},
		},
	}
}

// Manifest is a loaded dpscript.toml and its location.
type Manifest struct {
	Path   string
	Root   string
	Config Config
}

// LoadManifest finds dpscript.toml from startDir upward and decodes it.
// ok is false when no manifest exists; callers then use Default.
func LoadManifest(startDir string) (*Manifest, bool, error) {
	manifestPath, ok, err := FindManifest(startDir)
	if err != nil || !ok {
		return nil, ok, err
	}
	cfg, err := LoadConfig(manifestPath)
	if err != nil {
		return nil, true, err
	}
	return &Manifest{
		Path:   manifestPath,
		Root:   filepath.Dir(manifestPath),
		Config: cfg,
	}, true, nil
}

// LoadConfig decodes path over the defaults and validates the result.
// Relative paths in the file are resolved against its directory.
func LoadConfig(path string) (Config, error) {
	cfg := Default()
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, key := range undecoded {
			keys = append(keys, key.String())
		}
		return Config{}, fmt.Errorf("%s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	base := filepath.Dir(path)
	if cfg.Compiler.WorkDir != "" && !filepath.IsAbs(cfg.Compiler.WorkDir) {
		cfg.Compiler.WorkDir = filepath.Join(base, filepath.FromSlash(cfg.Compiler.WorkDir))
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the mode and required commands.
func (c Config) Validate() error {
	switch c.Compiler.Mode {
	case ModePersistent:
		if len(c.Compiler.Command) == 0 || strings.TrimSpace(c.Compiler.Command[0]) == "" {
			return fmt.Errorf("missing [compiler].command")
		}
	case ModeBatch:
		if len(c.Compiler.BatchCommand) == 0 || strings.TrimSpace(c.Compiler.BatchCommand[0]) == "" {
			return fmt.Errorf("missing [compiler].batch_command")
		}
	default:
		return fmt.Errorf("[compiler].mode must be %q or %q, got %q", ModePersistent, ModeBatch, c.Compiler.Mode)
	}
	if strings.TrimSpace(c.Compiler.Report) == "" {
		return fmt.Errorf("missing [compiler].report")
	}
	if c.Compiler.CommandTimeout.Duration <= 0 || c.Compiler.BatchTimeout.Duration <= 0 {
		return fmt.Errorf("compiler timeouts must be positive")
	}
	return nil
}

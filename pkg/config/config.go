package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/panbanda/inspector/pkg/parser"
)

// Threshold keys accepted by ThresholdConfig.Get and Set.
const (
	KeyFunctionLOCWarning = "function_loc_warning"
	KeyFunctionLOCSevere  = "function_loc_severe"
	KeyFileLOCWarning     = "file_loc_warning"
	KeyComplexityWarning  = "complexity_warning"
	KeyMaxParameters      = "max_parameters"
	KeyMaxNestingDepth    = "max_nesting_depth"
)

// Config holds all configuration options for inspector.
type Config struct {
	// Smell thresholds
	Thresholds ThresholdConfig `koanf:"thresholds" toml:"thresholds"`

	// Analysis settings
	Analysis AnalysisConfig `koanf:"analysis" toml:"analysis"`

	// File exclusion patterns
	Exclude ExcludeConfig `koanf:"exclude" toml:"exclude"`

	// Output settings
	Output OutputConfig `koanf:"output" toml:"output"`

	Logging LoggingConfig `koanf:"logging" toml:"logging"`
}

// ThresholdConfig defines the limits the smell detector checks against.
// It is read-only once a run starts.
type ThresholdConfig struct {
	FunctionLOCWarning int `koanf:"function_loc_warning" toml:"function_loc_warning"`
	FunctionLOCSevere  int `koanf:"function_loc_severe" toml:"function_loc_severe"`
	FileLOCWarning     int `koanf:"file_loc_warning" toml:"file_loc_warning"`
	ComplexityWarning  int `koanf:"complexity_warning" toml:"complexity_warning"`
	MaxParameters      int `koanf:"max_parameters" toml:"max_parameters"`
	MaxNestingDepth    int `koanf:"max_nesting_depth" toml:"max_nesting_depth"`
}

// AnalysisConfig controls which passes run and how.
type AnalysisConfig struct {
	Duplicates  bool  `koanf:"duplicates" toml:"duplicates"`
	Graph       bool  `koanf:"graph" toml:"graph"`
	Workers     int   `koanf:"workers" toml:"workers"` // 0 means GOMAXPROCS
	MaxFileSize int64 `koanf:"max_file_size" toml:"max_file_size"`
	// Languages restricts analysis to these languages; empty means all.
	Languages []string `koanf:"languages" toml:"languages,omitempty"`
}

// ExcludeConfig defines file exclusion rules.
type ExcludeConfig struct {
	Dirs      []string `koanf:"dirs" toml:"dirs"`
	Patterns  []string `koanf:"patterns" toml:"patterns"`
	Gitignore bool     `koanf:"gitignore" toml:"gitignore"`
}

// OutputConfig controls output formatting.
type OutputConfig struct {
	Format string `koanf:"format" toml:"format"` // text, json, markdown, toon, yaml
	Color  bool   `koanf:"color" toml:"color"`
}

// LoggingConfig controls diagnostic logging on stderr.
type LoggingConfig struct {
	Level  string `koanf:"level" toml:"level"`
	Format string `koanf:"format" toml:"format"` // text, json
}

// DefaultThresholds returns the stock smell thresholds.
func DefaultThresholds() ThresholdConfig {
	return ThresholdConfig{
		FunctionLOCWarning: 30,
		FunctionLOCSevere:  200,
		FileLOCWarning:     1000,
		ComplexityWarning:  10,
		MaxParameters:      7,
		MaxNestingDepth:    5,
	}
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Thresholds: DefaultThresholds(),
		Analysis: AnalysisConfig{
			Duplicates:  true,
			Graph:       true,
			Workers:     0,
			MaxFileSize: 1 << 20,
		},
		Exclude: ExcludeConfig{
			Dirs: []string{
				"node_modules",
				".git",
				"venv",
				".venv",
				"env",
				"__pycache__",
				".pytest_cache",
				"build",
				"dist",
				".egg-info",
				"target",
				".gradle",
			},
			Patterns: []string{
				"*.pyc",
				"*.pyo",
				"*.pyd",
				".DS_Store",
				"*.so",
				"*.dll",
				"*.class",
			},
			Gitignore: true,
		},
		Output: OutputConfig{
			Format: "text",
			Color:  true,
		},
		Logging: LoggingConfig{
			Level:  "warn",
			Format: "text",
		},
	}
}

// Get returns the threshold stored under key, or def for unknown keys.
func (t ThresholdConfig) Get(key string, def int) int {
	switch key {
	case KeyFunctionLOCWarning:
		return t.FunctionLOCWarning
	case KeyFunctionLOCSevere:
		return t.FunctionLOCSevere
	case KeyFileLOCWarning:
		return t.FileLOCWarning
	case KeyComplexityWarning:
		return t.ComplexityWarning
	case KeyMaxParameters:
		return t.MaxParameters
	case KeyMaxNestingDepth:
		return t.MaxNestingDepth
	default:
		return def
	}
}

// Set overrides a single threshold. It is meant for CLI flag overrides
// applied before a run starts.
func (t *ThresholdConfig) Set(key string, value int) error {
	switch key {
	case KeyFunctionLOCWarning:
		t.FunctionLOCWarning = value
	case KeyFunctionLOCSevere:
		t.FunctionLOCSevere = value
	case KeyFileLOCWarning:
		t.FileLOCWarning = value
	case KeyComplexityWarning:
		t.ComplexityWarning = value
	case KeyMaxParameters:
		t.MaxParameters = value
	case KeyMaxNestingDepth:
		t.MaxNestingDepth = value
	default:
		return fmt.Errorf("unknown threshold %q", key)
	}
	return nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	t := c.Thresholds
	for key, v := range map[string]int{
		KeyFunctionLOCWarning: t.FunctionLOCWarning,
		KeyFunctionLOCSevere:  t.FunctionLOCSevere,
		KeyFileLOCWarning:     t.FileLOCWarning,
		KeyComplexityWarning:  t.ComplexityWarning,
		KeyMaxParameters:      t.MaxParameters,
		KeyMaxNestingDepth:    t.MaxNestingDepth,
	} {
		if v < 0 {
			return fmt.Errorf("thresholds.%s must not be negative, got %d", key, v)
		}
	}
	if t.FunctionLOCSevere < t.FunctionLOCWarning {
		return fmt.Errorf("thresholds.function_loc_severe (%d) must be >= function_loc_warning (%d)",
			t.FunctionLOCSevere, t.FunctionLOCWarning)
	}
	if c.Analysis.Workers < 0 {
		return fmt.Errorf("analysis.workers must not be negative, got %d", c.Analysis.Workers)
	}
	for _, l := range c.Analysis.Languages {
		if parser.ParseLanguage(l) == parser.LangUnknown {
			return fmt.Errorf("analysis.languages: unknown language %q (supported: %s)", l, supportedLanguages())
		}
	}
	for _, p := range c.Exclude.Patterns {
		if !doublestar.ValidatePattern(p) {
			return fmt.Errorf("exclude.patterns: invalid pattern %q", p)
		}
	}
	return nil
}

// Load loads configuration from a file on top of the defaults.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	cfg := DefaultConfig()

	var codec koanf.Parser
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		codec = yaml.Parser()
	case ".json":
		codec = json.Parser()
	default:
		codec = toml.Parser()
	}

	if err := k.Load(file.Provider(path), codec); err != nil {
		return nil, fmt.Errorf("failed to load config %s: %w", path, err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	return cfg, nil
}

// ConfigNames lists the file names LoadOrDefault looks for.
var ConfigNames = []string{
	"inspector.toml",
	"inspector.yaml",
	"inspector.yml",
	"inspector.json",
	".inspector.toml",
	".inspector.yaml",
	".inspector.yml",
	".inspector.json",
}

// LoadOrDefault looks for a config file in dir and returns it, or the
// defaults when none exists. The returned path is empty for defaults.
func LoadOrDefault(dir string) (*Config, string, error) {
	for _, name := range ConfigNames {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		cfg, err := Load(path)
		if err != nil {
			return nil, path, err
		}
		return cfg, path, nil
	}
	return DefaultConfig(), "", nil
}

// ShouldExclude reports whether a path relative to the scan root is excluded
// by directory name or file pattern. Hidden directories are always excluded.
func (c *Config) ShouldExclude(relPath string) bool {
	relPath = filepath.ToSlash(relPath)
	parts := strings.Split(relPath, "/")

	for _, dir := range parts[:len(parts)-1] {
		if c.IsExcludedDir(dir) {
			return true
		}
	}

	base := parts[len(parts)-1]
	for _, pattern := range c.Exclude.Patterns {
		if matched, _ := doublestar.Match(pattern, base); matched {
			return true
		}
		if strings.Contains(pattern, "/") {
			if matched, _ := doublestar.Match(pattern, relPath); matched {
				return true
			}
		}
	}
	return false
}

// IsExcludedDir reports whether a directory with the given base name is skipped.
func (c *Config) IsExcludedDir(name string) bool {
	if name == "." || name == "" {
		return false
	}
	if strings.HasPrefix(name, ".") {
		return true
	}
	for _, dir := range c.Exclude.Dirs {
		if name == dir || (strings.HasPrefix(dir, ".") && strings.HasSuffix(name, dir)) {
			return true
		}
	}
	return false
}

// LanguageEnabled reports whether files of lang should be analyzed.
func (c *Config) LanguageEnabled(lang parser.Language) bool {
	if lang == parser.LangUnknown {
		return false
	}
	if len(c.Analysis.Languages) == 0 {
		return true
	}
	for _, l := range c.Analysis.Languages {
		if parser.ParseLanguage(l) == lang {
			return true
		}
	}
	return false
}

func supportedLanguages() string {
	names := make([]string, 0, len(parser.SupportedLanguages()))
	for _, l := range parser.SupportedLanguages() {
		names = append(names, l.String())
	}
	return strings.Join(names, ", ")
}

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/panbanda/inspector/pkg/parser"
	"github.com/pelletier/go-toml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NotNil(t, cfg)

	th := cfg.Thresholds
	assert.Equal(t, 30, th.FunctionLOCWarning)
	assert.Equal(t, 200, th.FunctionLOCSevere)
	assert.Equal(t, 1000, th.FileLOCWarning)
	assert.Equal(t, 10, th.ComplexityWarning)
	assert.Equal(t, 7, th.MaxParameters)
	assert.Equal(t, 5, th.MaxNestingDepth)

	assert.True(t, cfg.Analysis.Duplicates)
	assert.True(t, cfg.Analysis.Graph)
	assert.True(t, cfg.Exclude.Gitignore)
	assert.Contains(t, cfg.Exclude.Dirs, "node_modules")
	assert.Equal(t, "text", cfg.Output.Format)
	assert.NoError(t, cfg.Validate())
}

func TestThresholdConfig_Get(t *testing.T) {
	th := DefaultThresholds()

	assert.Equal(t, 200, th.Get(KeyFunctionLOCSevere, 0))
	assert.Equal(t, 7, th.Get(KeyMaxParameters, 0))
	assert.Equal(t, 42, th.Get("no_such_key", 42), "unknown keys fall back to the default")
}

func TestThresholdConfig_Set(t *testing.T) {
	th := DefaultThresholds()

	require.NoError(t, th.Set(KeyComplexityWarning, 3))
	assert.Equal(t, 3, th.ComplexityWarning)

	assert.Error(t, th.Set("bogus", 1))
}

func TestLoadTOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "inspector.toml")
	content := `
[thresholds]
complexity_warning = 15
max_parameters = 4

[exclude]
dirs = ["vendor", "custom_exclude"]
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 15, cfg.Thresholds.ComplexityWarning)
	assert.Equal(t, 4, cfg.Thresholds.MaxParameters)
	assert.Equal(t, 200, cfg.Thresholds.FunctionLOCSevere, "unset keys keep defaults")
	assert.Equal(t, []string{"vendor", "custom_exclude"}, cfg.Exclude.Dirs)
}

func TestLoadYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "inspector.yaml")
	content := `
thresholds:
  function_loc_warning: 50
output:
  format: json
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 50, cfg.Thresholds.FunctionLOCWarning)
	assert.Equal(t, "json", cfg.Output.Format)
}

func TestLoadJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "inspector.json")
	content := `{"thresholds": {"max_nesting_depth": 2}, "analysis": {"workers": 3}}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Thresholds.MaxNestingDepth)
	assert.Equal(t, 3, cfg.Analysis.Workers)
}

func TestLoad_Invalid(t *testing.T) {
	dir := t.TempDir()

	_, err := Load(filepath.Join(dir, "missing.toml"))
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.toml")
	require.NoError(t, os.WriteFile(bad, []byte("[thresholds]\nfunction_loc_severe = 5\nfunction_loc_warning = 10\n"), 0o644))
	_, err = Load(bad)
	assert.ErrorContains(t, err, "function_loc_severe")
}

func TestLoadOrDefault(t *testing.T) {
	dir := t.TempDir()

	cfg, path, err := LoadOrDefault(dir)
	require.NoError(t, err)
	assert.Empty(t, path)
	assert.Equal(t, DefaultConfig(), cfg)

	cfgPath := filepath.Join(dir, ".inspector.toml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("[thresholds]\nmax_parameters = 9\n"), 0o644))

	cfg, path, err = LoadOrDefault(dir)
	require.NoError(t, err)
	assert.Equal(t, cfgPath, path)
	assert.Equal(t, 9, cfg.Thresholds.MaxParameters)
}

func TestDefaultConfig_TOMLRoundTrip(t *testing.T) {
	data, err := toml.Marshal(DefaultConfig())
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "inspector.toml")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Thresholds, cfg.Thresholds)
	assert.Equal(t, DefaultConfig().Exclude.Dirs, cfg.Exclude.Dirs)
}

func TestShouldExclude(t *testing.T) {
	cfg := DefaultConfig()

	tests := []struct {
		path string
		want bool
	}{
		{"src/app.py", false},
		{"node_modules/lib/index.js", true},
		{"pkg/__pycache__/mod.py", true},
		{".hidden/tool.py", true},
		{"mypkg.egg-info/setup.py", true},
		{"lib/native.so", true},
		{"Main.class", true},
		{"src/.DS_Store", true},
		{"src/main.java", false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, cfg.ShouldExclude(tt.path))
		})
	}
}

func TestShouldExclude_GlobPatterns(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Exclude.Patterns = append(cfg.Exclude.Patterns, "generated/**/*.ts", "*.min.js")

	assert.True(t, cfg.ShouldExclude("generated/api/client.ts"))
	assert.True(t, cfg.ShouldExclude("web/app.min.js"))
	assert.False(t, cfg.ShouldExclude("src/client.ts"))
}

func TestLanguageEnabled(t *testing.T) {
	cfg := DefaultConfig()
	for _, lang := range parser.SupportedLanguages() {
		assert.True(t, cfg.LanguageEnabled(lang), "all languages are on by default: %s", lang)
	}
	assert.False(t, cfg.LanguageEnabled(parser.LangUnknown))

	cfg.Analysis.Languages = []string{"py", "TypeScript"}
	assert.True(t, cfg.LanguageEnabled(parser.LangPython))
	assert.True(t, cfg.LanguageEnabled(parser.LangTypeScript))
	assert.False(t, cfg.LanguageEnabled(parser.LangTSX))
	assert.False(t, cfg.LanguageEnabled(parser.LangGo))
}

func TestValidate_Languages(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Analysis.Languages = []string{"go", "cobol"}

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown language "cobol"`)
	assert.Contains(t, err.Error(), "python, javascript, typescript, tsx, java, go")

	cfg.Analysis.Languages = []string{"golang", "js"}
	assert.NoError(t, cfg.Validate())
}

func TestLoadTOML_Languages(t *testing.T) {
	path := filepath.Join(t.TempDir(), "inspector.toml")
	require.NoError(t, os.WriteFile(path, []byte("[analysis]\nlanguages = [\"python\", \"java\"]\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"python", "java"}, cfg.Analysis.Languages)
}

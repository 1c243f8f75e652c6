package main

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/nalgeon/be"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	be.Err(t, os.WriteFile(path, []byte(content), 0644), nil)
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	be.Err(t, cfg.Validate(), nil)
	be.Equal(t, cfg.Memory, MemoryConfig{MinPages: 1, MaxPages: 64, ExportName: "memory"})
	be.Equal(t, cfg.StartFunction, "main")
	be.Equal(t, cfg.Runtime.Command, []string{"wasmtime", "run"})

	opts := cfg.Options(nil)
	be.Equal(t, opts.MemoryMaxPages, uint32(64))
	be.Equal(t, opts.StartFunction, "main")
	be.Equal(t, opts.ExportFunctions, false)
}

func TestLoadConfigMissingDefaultFile(t *testing.T) {
	t.Chdir(t.TempDir())
	cfg, err := LoadConfig("")
	be.Err(t, err, nil)
	be.Equal(t, cfg, DefaultConfig())
}

func TestLoadConfigDefaultFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	writeFile(t, dir, ConfigFilename, "exportFunctions: true\n")
	cfg, err := LoadConfig("")
	be.Err(t, err, nil)
	be.Equal(t, cfg.ExportFunctions, true)
}

func TestLoadConfigMissingExplicitFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	be.Err(t, err, "read config")
}

func TestLoadConfigPartial(t *testing.T) {
	path := writeFile(t, t.TempDir(), "taro.yaml", `
memory:
  maxPages: 8
startFunction: init
log:
  level: debug
`)
	cfg, err := LoadConfig(path)
	be.Err(t, err, nil)
	be.Equal(t, cfg.Memory, MemoryConfig{MinPages: 1, MaxPages: 8, ExportName: "memory"})
	be.Equal(t, cfg.StartFunction, "init")
	be.Equal(t, cfg.Runtime.Command, []string{"wasmtime", "run"})

	level, err := cfg.LogLevel()
	be.Err(t, err, nil)
	be.Equal(t, level, slog.LevelDebug)
}

func TestLoadConfigEmptyFile(t *testing.T) {
	path := writeFile(t, t.TempDir(), "taro.yaml", "")
	cfg, err := LoadConfig(path)
	be.Err(t, err, nil)
	be.Equal(t, cfg, DefaultConfig())
}

func TestLoadConfigErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"unknown field", "startFunc: main\n", "field startFunc not found"},
		{"bad yaml", "memory: [\n", "parse config"},
		{"bad type", "memory:\n  minPages: lots\n", "parse config"},
		{"min above max", "memory:\n  minPages: 10\n  maxPages: 2\n", "memory.minPages (10) exceeds memory.maxPages (2)"},
		{"too many pages", "memory:\n  maxPages: 70000\n", "exceeds 65536"},
		{"empty memory export", "memory:\n  exportName: \"\"\n", "memory.exportName must not be empty"},
		{"empty start", "startFunction: \"\"\n", "startFunction must not be empty"},
		{"empty runtime", "runtime:\n  command: []\n", "runtime.command must not be empty"},
		{"bad level", "log:\n  level: loud\n", "log.level"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), "taro.yaml", test.content)
			_, err := LoadConfig(path)
			be.Err(t, err, test.want)
		})
	}
}

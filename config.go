package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/strager/taro/compiler"
	"gopkg.in/yaml.v3"
)

// ConfigFilename is read from the working directory when no -config flag is
// given.
const ConfigFilename = "taro.yaml"

// Config holds project settings for the taro command.
type Config struct {
	Memory          MemoryConfig  `yaml:"memory"`
	StartFunction   string        `yaml:"startFunction"`
	ExportFunctions bool          `yaml:"exportFunctions"`
	Runtime         RuntimeConfig `yaml:"runtime"`
	Log             LogConfig     `yaml:"log"`
}

type MemoryConfig struct {
	MinPages   uint32 `yaml:"minPages"`
	MaxPages   uint32 `yaml:"maxPages"`
	ExportName string `yaml:"exportName"`
}

// RuntimeConfig is the command `taro run` executes. The path of the compiled
// module is appended as the last argument.
type RuntimeConfig struct {
	Command []string `yaml:"command"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

func DefaultConfig() Config {
	opts := compiler.DefaultOptions()
	return Config{
		Memory: MemoryConfig{
			MinPages:   opts.MemoryMinPages,
			MaxPages:   opts.MemoryMaxPages,
			ExportName: opts.MemoryExportName,
		},
		StartFunction: opts.StartFunction,
		Runtime:       RuntimeConfig{Command: []string{"wasmtime", "run"}},
		Log:           LogConfig{Level: "info"},
	}
}

// LoadConfig reads a config file over the defaults. An empty path means
// ConfigFilename, which may be absent; an explicit path must exist.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	explicit := path != ""
	if !explicit {
		path = ConfigFilename
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.Memory.MinPages > c.Memory.MaxPages {
		return fmt.Errorf("memory.minPages (%d) exceeds memory.maxPages (%d)", c.Memory.MinPages, c.Memory.MaxPages)
	}
	if c.Memory.MaxPages > 65536 {
		return fmt.Errorf("memory.maxPages (%d) exceeds 65536", c.Memory.MaxPages)
	}
	if c.Memory.ExportName == "" {
		return errors.New("memory.exportName must not be empty")
	}
	if c.StartFunction == "" {
		return errors.New("startFunction must not be empty")
	}
	if len(c.Runtime.Command) == 0 {
		return errors.New("runtime.command must not be empty")
	}
	if _, err := c.LogLevel(); err != nil {
		return err
	}
	return nil
}

func (c Config) LogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return level, fmt.Errorf("log.level: %w", err)
	}
	return level, nil
}

// Options converts the config to compiler options.
func (c Config) Options(logger *slog.Logger) compiler.Options {
	return compiler.Options{
		MemoryMinPages:   c.Memory.MinPages,
		MemoryMaxPages:   c.Memory.MaxPages,
		MemoryExportName: c.Memory.ExportName,
		StartFunction:    c.StartFunction,
		ExportFunctions:  c.ExportFunctions,
		Logger:           logger,
	}
}

// Package config reads runtime settings from .env files and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"pixelgraph/internal/graph"
	"pixelgraph/internal/logger"
	"pixelgraph/internal/preview"

	"github.com/joho/godotenv"
)

const (
	EnvLogLevel      = "LOG_LEVEL"
	EnvDebug         = "DEBUG"
	EnvLogFormat     = "LOG_FORMAT"
	EnvDisplay       = "PIXELGRAPH_DISPLAY"
	EnvMode          = "PIXELGRAPH_MODE"
	EnvMemoryLimitMB = "PIXELGRAPH_MEMORY_LIMIT_MB"
	EnvOutputDir     = "PIXELGRAPH_OUTPUT_DIR"
)

type Config struct {
	LogLevel  logger.LogLevel
	LogFormat logger.Format
	Display   preview.Kind
	Mode      graph.Mode
	// MemoryLimitMB is the tracked-buffer size above which a warning is
	// logged. Zero disables the check.
	MemoryLimitMB int
	OutputDir     string
}

func Default() Config {
	return Config{
		LogLevel:  logger.InfoLevel,
		LogFormat: logger.FormatConsole,
		Display:   preview.KindNone,
		Mode:      graph.ModeInsertionOrder,
	}
}

// Load reads envFiles (".env" when none are given) into the process
// environment without overriding variables that are already set, then
// builds a Config. Missing files are ignored. Every invalid variable is
// reported; the returned Config still carries the valid ones.
func Load(envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return Default(), fmt.Errorf("reading %s: %w", f, err)
		}
	}
	return FromEnv()
}

// FromEnv builds a Config from the current environment only.
func FromEnv() (Config, error) {
	cfg := Default()
	var errs []error

	if v, ok := lookup(EnvLogLevel); ok {
		level, err := logger.ParseLevel(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", EnvLogLevel, err))
		} else {
			cfg.LogLevel = level
		}
	}
	if v, _ := lookup(EnvDebug); v == "1" || strings.EqualFold(v, "true") {
		cfg.LogLevel = logger.DebugLevel
	}

	if v, ok := lookup(EnvLogFormat); ok {
		switch f := logger.Format(strings.ToLower(v)); f {
		case logger.FormatConsole, logger.FormatJSON:
			cfg.LogFormat = f
		default:
			errs = append(errs, fmt.Errorf("%s: unknown log format %q", EnvLogFormat, v))
		}
	}

	if v, ok := lookup(EnvDisplay); ok {
		kind, err := preview.ParseKind(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", EnvDisplay, err))
		} else {
			cfg.Display = kind
		}
	}

	if v, ok := lookup(EnvMode); ok {
		mode, err := graph.ParseMode(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", EnvMode, err))
		} else {
			cfg.Mode = mode
		}
	}

	if v, ok := lookup(EnvMemoryLimitMB); ok {
		mb, err := strconv.Atoi(v)
		if err != nil || mb < 0 {
			errs = append(errs, fmt.Errorf("%s: want a non-negative integer, got %q", EnvMemoryLimitMB, v))
		} else {
			cfg.MemoryLimitMB = mb
		}
	}

	if v, ok := lookup(EnvOutputDir); ok {
		cfg.OutputDir = v
	}

	return cfg, errors.Join(errs...)
}

// MemoryLimitBytes converts MemoryLimitMB for the memory manager.
func (c Config) MemoryLimitBytes() int64 {
	return int64(c.MemoryLimitMB) << 20
}

// OutputPath prefixes relative paths with OutputDir.
func (c Config) OutputPath(path string) string {
	if c.OutputDir == "" || path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(c.OutputDir, path)
}

func lookup(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

// Package logging provides categorized structured logging for odoogen.
// Every subsystem asks for a named child of the process logger via Get, so
// log lines carry a "logger" field such as "ports" or "addons".
// Before Initialize is called all loggers are no-ops.
package logging

import (
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category represents a log category/system
type Category string

const (
	CategoryBoot     Category = "boot"     // Startup, config resolution
	CategoryPorts    Category = "ports"    // Port probing and allocation
	CategoryScaffold Category = "scaffold" // Skeleton and descriptor generation
	CategoryAddons   Category = "addons"   // Addon materialization and live sync
	CategoryCatalog  Category = "catalog"  // Catalog checkout and listing
	CategoryTactile  Category = "tactile"  // External command execution
	CategoryRegistry Category = "registry" // Project registry (sqlite)
	CategoryDocker   Category = "docker"   // Docker daemon access
	CategoryPrompt   Category = "prompt"   // Interactive prompts
)

// Options configures the process logger.
type Options struct {
	Level   string // debug, info, warn, error
	Format  string // json, console
	Verbose bool   // forces debug level
	Outputs []string
}

var (
	mu     sync.RWMutex
	root   = zap.NewNop()
	runID  string
	levels = map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		"info":    zapcore.InfoLevel,
		"warn":    zapcore.WarnLevel,
		"warning": zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
	}
)

// ParseLevel maps a config level string onto a zap level.
func ParseLevel(level string) (zapcore.Level, error) {
	if level == "" {
		return zapcore.InfoLevel, nil
	}
	l, ok := levels[strings.ToLower(strings.TrimSpace(level))]
	if !ok {
		return zapcore.InfoLevel, fmt.Errorf("unknown log level %q", level)
	}
	return l, nil
}

// New builds a zap logger from options without installing it.
func New(opts Options) (*zap.Logger, error) {
	config := zap.NewProductionConfig()
	if opts.Format == "console" {
		config = zap.NewDevelopmentConfig()
	}
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, err
	}
	if opts.Verbose {
		level = zapcore.DebugLevel
	}
	config.Level = zap.NewAtomicLevelAt(level)
	if len(opts.Outputs) > 0 {
		config.OutputPaths = opts.Outputs
	}
	logger, err := config.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger, nil
}

// Initialize builds the process logger and tags it with a fresh run id.
func Initialize(opts Options) (*zap.Logger, error) {
	logger, err := New(opts)
	if err != nil {
		return nil, err
	}
	Install(logger)
	return Root(), nil
}

// Install replaces the process logger. Tests use it with zaptest/observer.
func Install(logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}
	id := uuid.NewString()

	mu.Lock()
	defer mu.Unlock()
	runID = id
	root = logger.With(zap.String("run_id", id))
}

// Root returns the process logger.
func Root() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return root
}

// RunID returns the correlation id of the current run ("" before Install).
func RunID() string {
	mu.RLock()
	defer mu.RUnlock()
	return runID
}

// Get returns the logger for the given category.
func Get(category Category) *zap.Logger {
	return Root().Named(string(category))
}

// Sync flushes buffered entries. Errors from syncing stdout/stderr are ignored.
func Sync() {
	_ = Root().Sync()
}

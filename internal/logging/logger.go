// Package logging provides config-driven categorized logging for the intake
// wizard. Every category is a named child of one zap logger so a single sink
// (a file while the terminal UI owns the screen, stderr for subcommands)
// receives all output.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"virtualcare/internal/config"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category represents a log category/system
type Category string

const (
	CategoryBoot       Category = "boot"       // Startup, config, catalog load
	CategoryCatalog    Category = "catalog"    // Catalog parsing and linting
	CategorySequencer  Category = "sequencer"  // Step confirmation and transitions
	CategoryImaging    Category = "imaging"    // Image validation and compression
	CategorySubmission Category = "submission" // Upload + completion pipeline
	CategoryAnalytics  Category = "analytics"  // Page view and conversion events
	CategoryJournal    Category = "journal"    // Submission journal
	CategoryDevServer  Category = "devserver"  // Local endpoint stand-in
	CategoryWizard     Category = "wizard"     // Terminal UI
)

// Sink selects where log output goes.
type Sink int

const (
	SinkFile   Sink = iota // logging.file from config
	SinkStderr             // stderr, for non-interactive commands
)

var (
	base   = zap.NewNop()
	baseMu sync.RWMutex
)

// Setup builds the process logger from config and installs it as the base
// for Get. verbose forces debug level.
func Setup(cfg config.LoggingConfig, sink Sink, verbose bool) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}
	if verbose {
		level = zapcore.DebugLevel
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var enc zapcore.Encoder
	if cfg.Format == "json" {
		enc = zapcore.NewJSONEncoder(encCfg)
	} else {
		enc = zapcore.NewConsoleEncoder(encCfg)
	}

	var ws zapcore.WriteSyncer
	switch sink {
	case SinkStderr:
		ws = zapcore.Lock(os.Stderr)
	default:
		if cfg.File == "" {
			// Interactive mode with no file: discard rather than draw over the UI.
			l := zap.NewNop()
			install(l)
			return l, nil
		}
		if dir := filepath.Dir(cfg.File); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create log directory: %w", err)
			}
		}
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file %s: %w", cfg.File, err)
		}
		ws = zapcore.AddSync(f)
	}

	l := zap.New(zapcore.NewCore(enc, ws, zap.NewAtomicLevelAt(level)))
	install(l)
	return l, nil
}

func install(l *zap.Logger) {
	baseMu.Lock()
	base = l
	baseMu.Unlock()
}

// Get returns the logger for a category. Before Setup it is a no-op logger.
func Get(category Category) *zap.Logger {
	baseMu.RLock()
	defer baseMu.RUnlock()
	return base.Named(string(category))
}

// Sync flushes the base logger.
func Sync() {
	baseMu.RLock()
	defer baseMu.RUnlock()
	_ = base.Sync()
}

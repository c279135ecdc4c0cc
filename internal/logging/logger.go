package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// Config represents logging configuration.
type Config struct {
	Level   string            `toml:"level"`
	Format  string            `toml:"format"`
	Modules map[string]string `toml:"modules"`
	Journal bool              `toml:"journal"`
}

var (
	moduleLoggers   = make(map[string]*slog.Logger)
	moduleLevelVars = make(map[string]*slog.LevelVar)
	globalConfig    Config
	globalLevelVar  = &slog.LevelVar{}
	isInitialized   bool
	output          io.Writer = os.Stderr
	mutex           sync.RWMutex
)

// Initialize sets up the logging system.
func Initialize(config Config) {
	mutex.Lock()
	defer mutex.Unlock()

	globalConfig = config
	isInitialized = true

	globalLevel := slog.LevelInfo
	if parsed := parseLevel(config.Level); parsed != nil {
		globalLevel = *parsed
	}
	globalLevelVar.Set(globalLevel)

	for module, levelVar := range moduleLevelVars {
		levelVar.Set(moduleLevel(module))
		moduleLoggers[module] = slog.New(createHandler(config, levelVar)).With("module", module)
	}

	slog.SetDefault(slog.New(createHandler(config, globalLevelVar)))
}

// SetOutput redirects the text and JSON handlers. It applies to loggers created afterwards
// and to existing ones on the next Initialize.
func SetOutput(w io.Writer) {
	mutex.Lock()
	defer mutex.Unlock()

	output = w
}

// GetLogger returns a logger for the specified module, creating it if needed.
func GetLogger(module string) *slog.Logger {
	mutex.RLock()
	if logger, exists := moduleLoggers[module]; exists {
		mutex.RUnlock()
		return logger
	}
	mutex.RUnlock()

	mutex.Lock()
	defer mutex.Unlock()

	if logger, exists := moduleLoggers[module]; exists {
		return logger
	}

	levelVar := &slog.LevelVar{}
	levelVar.Set(slog.LevelInfo)
	if isInitialized {
		levelVar.Set(moduleLevel(module))
	}

	logger := slog.New(createHandler(globalConfig, levelVar)).With("module", module)
	moduleLoggers[module] = logger
	moduleLevelVars[module] = levelVar

	return logger
}

// SetModuleLevel changes the level of one module at runtime.
func SetModuleLevel(module, level string) bool {
	parsed := parseLevel(level)
	if parsed == nil {
		return false
	}

	GetLogger(module)

	mutex.Lock()
	defer mutex.Unlock()

	moduleLevelVars[module].Set(*parsed)
	if globalConfig.Modules == nil {
		globalConfig.Modules = make(map[string]string)
	}
	globalConfig.Modules[module] = level

	return true
}

// moduleLevel resolves the level for module. Caller holds mutex.
func moduleLevel(module string) slog.Level {
	level := slog.LevelInfo
	if parsed := parseLevel(globalConfig.Level); parsed != nil {
		level = *parsed
	}

	if levelStr, exists := globalConfig.Modules[module]; exists {
		if parsed := parseLevel(levelStr); parsed != nil {
			level = *parsed
		}
	}

	return level
}

// createHandler builds the handler chain. Caller holds mutex.
func createHandler(config Config, level slog.Leveler) slog.Handler {
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if config.Format == "json" {
		handler = slog.NewJSONHandler(output, opts)
	} else {
		handler = slog.NewTextHandler(output, opts)
	}

	if config.Journal && IsJournalAvailable() {
		return NewMultiHandler(handler, NewJournalHandler(level))
	}

	return handler
}

// parseLevel converts string level to slog.Level.
func parseLevel(level string) *slog.Level {
	var l slog.Level

	switch strings.ToLower(level) {
	case "debug":
		l = slog.LevelDebug
	case "info":
		l = slog.LevelInfo
	case "warn", "warning":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		return nil
	}

	return &l
}

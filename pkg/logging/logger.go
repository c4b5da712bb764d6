package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config controls logger construction.
type Config struct {
	// Level is debug, info, warn or error
	Level string `mapstructure:"level" yaml:"level"`

	// Format of the console output: console or json
	Format string `mapstructure:"format" yaml:"format"`

	// File is the JSON log file. Empty means ~/.uiharness/logs/<session>-uiharness.log,
	// "-" disables file logging.
	File string `mapstructure:"file" yaml:"file"`

	MaxSizeMB  int `mapstructure:"max_size_mb" yaml:"max_size_mb"`
	MaxBackups int `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAgeDays int `mapstructure:"max_age_days" yaml:"max_age_days"`
}

// DefaultConfig returns info-level console logging plus the session file.
func DefaultConfig() Config {
	return Config{
		Level:      "info",
		Format:     "console",
		MaxSizeMB:  50,
		MaxBackups: 5,
		MaxAgeDays: 14,
	}
}

var (
	// Global session ID for the current execution
	sessionID     string
	sessionIDOnce sync.Once

	// logDir is the directory where log files are stored
	logDir   string
	initOnce sync.Once
	initErr  error

	root    atomic.Pointer[zap.Logger]
	logPath atomic.Pointer[string]
)

func getSessionID() string {
	sessionIDOnce.Do(func() {
		sessionID = uuid.New().String()
	})
	return sessionID
}

// initLogDirectory ensures the log directory exists
func initLogDirectory() error {
	initOnce.Do(func() {
		if logDir != "" {
			initErr = os.MkdirAll(logDir, 0o750)
			return
		}
		homeDir, err := os.UserHomeDir()
		if err != nil {
			initErr = fmt.Errorf("failed to get home directory: %w", err)
			return
		}
		logDir = filepath.Join(homeDir, ".uiharness", "logs")
		if err := os.MkdirAll(logDir, 0o750); err != nil {
			initErr = fmt.Errorf("failed to create log directory: %w", err)
		}
	})
	return initErr
}

func encoder(format string) zapcore.Encoder {
	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02T15:04:05.000Z07:00")
	if format == "json" {
		cfg.EncodeLevel = zapcore.CapitalLevelEncoder
		return zapcore.NewJSONEncoder(cfg)
	}
	cfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	cfg.EncodeName = func(name string, enc zapcore.PrimitiveArrayEncoder) {
		enc.AppendString("[" + name + "]")
	}
	return zapcore.NewConsoleEncoder(cfg)
}

// New builds a logger that tees console output to console and JSON records to
// a rotating file. When the file cannot be set up the logger falls back to
// console only and the error is returned alongside it.
func New(cfg Config, console zapcore.WriteSyncer) (*zap.Logger, string, error) {
	level := zap.NewAtomicLevel()
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level.SetLevel(zap.InfoLevel)
	}

	cores := []zapcore.Core{zapcore.NewCore(encoder(cfg.Format), console, level)}

	var (
		path    string
		fileErr error
	)
	switch cfg.File {
	case "-":
	case "":
		if fileErr = initLogDirectory(); fileErr == nil {
			path = filepath.Join(logDir, fmt.Sprintf("%s-uiharness.log", getSessionID()))
		}
	default:
		path = cfg.File
		fileErr = os.MkdirAll(filepath.Dir(path), 0o750)
	}

	if path != "" && fileErr == nil {
		file := zapcore.AddSync(&lumberjack.Logger{
			Filename:   path,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
		})
		cores = append(cores, zapcore.NewCore(encoder("json"), file, level))
	} else {
		path = ""
	}

	logger := zap.New(zapcore.NewTee(cores...), zap.AddStacktrace(zap.ErrorLevel)).
		With(zap.String("session", getSessionID()))
	return logger, path, fileErr
}

// Initialize builds the process logger and installs it for NewLogger.
func Initialize(cfg Config) (*zap.Logger, error) {
	logger, path, err := New(cfg, zapcore.Lock(os.Stderr))
	root.Store(logger)
	logPath.Store(&path)
	if err != nil {
		logger.Warn("file logging disabled, falling back to stderr", zap.Error(err))
	}
	return logger, err
}

// NewLogger returns a logger for a specific component. Before Initialize it
// returns a development logger on stderr.
func NewLogger(component string) *zap.Logger {
	logger := root.Load()
	if logger == nil {
		dev, err := zap.NewDevelopment()
		if err != nil {
			return zap.NewNop()
		}
		logger = dev
	}
	return logger.Named(component)
}

// Sync flushes buffered log entries. Errors from syncing stderr are ignored.
func Sync() {
	if logger := root.Load(); logger != nil {
		_ = logger.Sync()
	}
}

// GetSessionID returns the current global session ID
func GetSessionID() string {
	return getSessionID()
}

// LogPath returns the active log file, or "" when logging to the console only.
func LogPath() string {
	if p := logPath.Load(); p != nil {
		return *p
	}
	return ""
}

// GetLogDirectory returns the directory where logs are stored
func GetLogDirectory() (string, error) {
	if err := initLogDirectory(); err != nil {
		return "", err
	}
	return logDir, nil
}

package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/jarupong555/Detec-V1.0/internal/config"
	"github.com/rs/zerolog"
)

// Logger provides leveled logging (info/warning/error) to files and stdout/stderr.
type Logger struct {
	infoLog    zerolog.Logger
	warningLog zerolog.Logger
	errorLog   zerolog.Logger
	logDir     string
}

// NewLogger creates a Logger writing to the console and to one file per level.
func NewLogger(cfg *config.Config) (*Logger, error) {
	if err := os.MkdirAll(cfg.LogDirectory, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	l := &Logger{logDir: cfg.LogDirectory}

	infoFile, err := l.openLogFile("info.log")
	if err != nil {
		return nil, err
	}
	warningFile, err := l.openLogFile("warning.log")
	if err != nil {
		return nil, err
	}
	errorFile, err := l.openLogFile("error.log")
	if err != nil {
		return nil, err
	}

	stdout := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.DateTime}
	stderr := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.DateTime}

	l.infoLog = newZerolog(io.MultiWriter(stdout, infoFile))
	l.warningLog = newZerolog(io.MultiWriter(stdout, warningFile))
	l.errorLog = newZerolog(io.MultiWriter(stderr, errorFile))
	return l, nil
}

// New creates a Logger sending every level to w. Used by tools and tests.
func New(w io.Writer) *Logger {
	zl := newZerolog(w)
	return &Logger{infoLog: zl, warningLog: zl, errorLog: zl}
}

// Nop returns a Logger that discards everything.
func Nop() *Logger {
	return New(io.Discard)
}

func newZerolog(w io.Writer) zerolog.Logger {
	return zerolog.New(w).With().Timestamp().Logger()
}

// Component returns a child logger tagging every entry with the component name.
func (l *Logger) Component(name string) *Logger {
	return &Logger{
		infoLog:    l.infoLog.With().Str("component", name).Logger(),
		warningLog: l.warningLog.With().Str("component", name).Logger(),
		errorLog:   l.errorLog.With().Str("component", name).Logger(),
		logDir:     l.logDir,
	}
}

func (l *Logger) openLogFile(name string) (*os.File, error) {
	path := filepath.Join(l.logDir, name)
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file %s: %w", path, err)
	}
	return file, nil
}

// Info writes a formatted info-level log entry.
func (l *Logger) Info(format string, v ...interface{}) {
	l.infoLog.Info().Msgf(format, v...)
}

// Warning writes a formatted warning-level log entry.
func (l *Logger) Warning(format string, v ...interface{}) {
	l.warningLog.Warn().Msgf(format, v...)
}

// Error writes a formatted error-level log entry.
func (l *Logger) Error(format string, v ...interface{}) {
	l.errorLog.Error().Msgf(format, v...)
}

// LogFile returns the path of the file backing the given level ("info", "warning", "error").
// The second result is false for unknown levels or a logger without files.
func (l *Logger) LogFile(level string) (string, bool) {
	if l.logDir == "" {
		return "", false
	}
	switch level {
	case "info", "warning", "error":
		return filepath.Join(l.logDir, level+".log"), true
	}
	return "", false
}

// CleanLogs truncates the log file for the given level.
func (l *Logger) CleanLogs(level string) error {
	path, ok := l.LogFile(level)
	if !ok {
		return fmt.Errorf("unknown log level %q", level)
	}
	if err := os.Truncate(path, 0); err != nil {
		return fmt.Errorf("failed to truncate %s: %w", path, err)
	}
	l.Info("Log file %s has been cleared", path)
	return nil
}

package log

import (
	"io"
	"os"
	"sync"

	charmlog "github.com/charmbracelet/log"
)

type Level string

const (
	LevelDebug Level = "DEBUG"
	LevelInfo  Level = "INFO"
	LevelError Level = "ERROR"
)

var (
	logger     *charmlog.Logger
	loggerOnce sync.Once
	loggerMu   sync.RWMutex
)

// initLogger initializes the global logger to write to stderr with timestamps.
func initLogger() {
	loggerOnce.Do(func() {
		logger = newLogger(os.Stderr, charmlog.InfoLevel)
	})
}

func newLogger(w io.Writer, level charmlog.Level) *charmlog.Logger {
	return charmlog.NewWithOptions(w, charmlog.Options{
		ReportTimestamp: true,
		TimeFormat:      "2006-01-02T15:04:05.000Z07:00",
		Level:           level,
	})
}

func SetLevel(l Level) {
	initLogger()
	loggerMu.Lock()
	defer loggerMu.Unlock()
	logger.SetLevel(toCharm(l))
}

// ParseLevel maps a config/CLI string onto a Level. Unknown values yield INFO.
func ParseLevel(s string) Level {
	switch Level(s) {
	case LevelDebug, "debug":
		return LevelDebug
	case LevelError, "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// SetOutput redirects log output, keeping the current level.
func SetOutput(w io.Writer) {
	initLogger()
	loggerMu.Lock()
	defer loggerMu.Unlock()
	logger.SetOutput(w)
}

func Debug(msg string, kv ...any) {
	current().Debug(msg, kv...)
}

func Info(msg string, kv ...any) {
	current().Info(msg, kv...)
}

func Error(msg string, err error, kv ...any) {
	// Prepend error into key-value list.
	extended := append([]any{"err", err}, kv...)
	current().Error(msg, extended...)
}

func current() *charmlog.Logger {
	initLogger()
	loggerMu.RLock()
	defer loggerMu.RUnlock()
	return logger
}

func toCharm(l Level) charmlog.Level {
	switch l {
	case LevelDebug:
		return charmlog.DebugLevel
	case LevelError:
		return charmlog.ErrorLevel
	default:
		return charmlog.InfoLevel
	}
}

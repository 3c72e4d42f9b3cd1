package util

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// LogLevel represents the severity of a log message
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
)

// Log output formats
const (
	FormatAuto    = "auto"
	FormatConsole = "console"
	FormatJSON    = "json"
)

var (
	logMu           sync.RWMutex
	logger          zerolog.Logger
	currentLogLevel = LevelInfo
	logFormat       = FormatAuto
	logOutput       io.Writer = os.Stderr
	useColors       = true
)

func init() {
	rebuildLogger()
}

// rebuildLogger must be called with logMu held for writing (or from init)
func rebuildLogger() {
	format := logFormat
	if format == FormatAuto || format == "" {
		format = FormatJSON
		if f, ok := logOutput.(*os.File); ok && IsTerminal(f.Fd()) {
			format = FormatConsole
		}
	}

	out := logOutput
	if format == FormatConsole {
		out = zerolog.ConsoleWriter{
			Out:        logOutput,
			TimeFormat: "15:04:05",
			NoColor:    !useColors,
		}
	}

	logger = zerolog.New(out).Level(zerologLevel(currentLogLevel)).With().Timestamp().Logger()
}

func zerologLevel(level LogLevel) zerolog.Level {
	switch level {
	case LevelDebug:
		return zerolog.DebugLevel
	case LevelWarn:
		return zerolog.WarnLevel
	case LevelError:
		return zerolog.ErrorLevel
	}
	return zerolog.InfoLevel
}

// SetLogLevel sets the minimum log level to display
func SetLogLevel(level LogLevel) {
	logMu.Lock()
	defer logMu.Unlock()
	currentLogLevel = level
	rebuildLogger()
}

// SetVerbose enables verbose (debug) logging
func SetVerbose(verbose bool) {
	if verbose {
		SetLogLevel(LevelDebug)
	}
}

// SetQuiet enables quiet mode (errors only)
func SetQuiet(quiet bool) {
	if quiet {
		SetLogLevel(LevelError)
	}
}

// IsVerbose reports whether debug logging is enabled
func IsVerbose() bool {
	logMu.RLock()
	defer logMu.RUnlock()
	return currentLogLevel <= LevelDebug
}

// IsQuiet reports whether only errors are logged
func IsQuiet() bool {
	logMu.RLock()
	defer logMu.RUnlock()
	return currentLogLevel >= LevelError
}

// SetColors enables or disables colored console output
func SetColors(enabled bool) {
	logMu.Lock()
	defer logMu.Unlock()
	useColors = enabled
	rebuildLogger()
}

// SetLogFormat selects console, json or auto (console on a terminal)
func SetLogFormat(format string) error {
	format = strings.ToLower(strings.TrimSpace(format))
	switch format {
	case "", FormatAuto, FormatConsole, FormatJSON:
	default:
		return fmt.Errorf("%w: unknown log format %q (want auto, console or json)", ErrInvalidConfig, format)
	}

	logMu.Lock()
	defer logMu.Unlock()
	logFormat = format
	rebuildLogger()
	return nil
}

// SetLogOutput redirects log output (tests use a buffer)
func SetLogOutput(w io.Writer) {
	logMu.Lock()
	defer logMu.Unlock()
	logOutput = w
	rebuildLogger()
}

// Logger returns the underlying zerolog logger for structured fields
func Logger() zerolog.Logger {
	logMu.RLock()
	defer logMu.RUnlock()
	return logger
}

// DebugLog logs debug messages
func DebugLog(format string, args ...interface{}) {
	l := Logger()
	l.Debug().Msgf(format, args...)
}

// InfoLog logs informational messages
func InfoLog(format string, args ...interface{}) {
	l := Logger()
	l.Info().Msgf(format, args...)
}

// WarnLog logs warning messages
func WarnLog(format string, args ...interface{}) {
	l := Logger()
	l.Warn().Msgf(format, args...)
}

// ErrorLog logs error messages
func ErrorLog(format string, args ...interface{}) {
	l := Logger()
	l.Error().Msgf(format, args...)
}

// SuccessLog logs success messages (shown unless quiet)
func SuccessLog(format string, args ...interface{}) {
	l := Logger()
	l.Info().Bool("ok", true).Msgf(format, args...)
}

// FormatDuration renders seconds as m:ss or h:mm:ss
func FormatDuration(seconds int64) string {
	d := time.Duration(seconds) * time.Second
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

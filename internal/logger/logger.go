package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	// Global logger instance. Disabled until Initialize is called.
	Logger = zerolog.Nop()
)

func consoleWriter() io.Writer {
	return zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: "2006-01-02 15:04:05",
		NoColor:    false,
	}
}

// Initialize sets up the global logger with appropriate configuration
func Initialize(logLevel string) {
	InitializeWithWriter(logLevel, consoleWriter())
}

// InitializeWithFile logs to the console and, when path is not empty, appends JSON lines to path.
func InitializeWithFile(logLevel, path string) error {
	if path == "" {
		Initialize(logLevel)
		return nil
	}
	file, err := FileWriter(path)
	if err != nil {
		return err
	}
	InitializeWithWriter(logLevel, zerolog.MultiLevelWriter(consoleWriter(), file))
	return nil
}

// InitializeWithWriter sets up the global logger writing to out, e.g. a file from FileWriter
// combined with the console through zerolog.MultiLevelWriter.
func InitializeWithWriter(logLevel string, out io.Writer) {
	// Set time format to be more human-readable
	zerolog.TimeFieldFormat = time.RFC3339

	Logger = zerolog.New(out).
		With().
		Timestamp().
		Caller().
		Logger()

	zerolog.SetGlobalLevel(ParseLevel(logLevel))

	// Replace standard log with zerolog
	log.Logger = Logger
}

// ParseLevel maps a LOG_LEVEL value to a zerolog level, defaulting to info.
func ParseLevel(logLevel string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(logLevel)) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// Get returns the global logger instance
func Get() *zerolog.Logger {
	return &Logger
}

// GetForComponent returns a logger with a component field for better filtering.
// Call it after Initialize; a logger taken earlier stays disabled.
func GetForComponent(component string) zerolog.Logger {
	return Logger.With().Str("component", component).Logger()
}

// FileWriter returns a writer to a log file for optional use alongside console logging
func FileWriter(path string) (io.Writer, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		return nil, err
	}
	return file, nil
}

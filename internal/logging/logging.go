package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// DefaultLogFile is the log file name under the XDG state directory.
const DefaultLogFile = "confshare/confshare.log"

// Setup configures the global logger for the given verbosity. Output goes
// to stderr and, when it can be opened, to an append-only log file. An
// empty logFile selects the XDG state location. It returns the log file
// path actually in use, or "" when logging to the console only.
func Setup(verbosity int, logFile string) string {
	zerolog.SetGlobalLevel(levelFor(verbosity))

	console := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.Kitchen,
	}
	writers := []io.Writer{console}

	path, err := resolveLogFile(logFile)
	var file *os.File
	if err == nil {
		file, err = openLogFile(path)
	}
	if err == nil {
		writers = append(writers, file)
	} else {
		path = ""
	}

	log.Logger = zerolog.New(io.MultiWriter(writers...)).With().Timestamp().Logger()
	if err != nil {
		log.Warn().Err(err).Msg("log file unavailable, logging to console only")
	}
	if verbosity >= 2 {
		log.Logger = log.Logger.With().Caller().Logger()
	}

	log.Debug().Int("verbosity", verbosity).Str("logFile", path).Msg("logger initialized")
	return path
}

func levelFor(verbosity int) zerolog.Level {
	switch {
	case verbosity <= 0:
		return zerolog.WarnLevel
	case verbosity == 1:
		return zerolog.InfoLevel
	case verbosity == 2:
		return zerolog.DebugLevel
	}
	return zerolog.TraceLevel
}

func resolveLogFile(logFile string) (string, error) {
	if logFile != "" {
		return logFile, nil
	}
	return xdg.StateFile(DefaultLogFile)
}

func openLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating log directory: %w", err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}
	return file, nil
}

// GetLogger returns a logger tagged with the component name.
func GetLogger(name string) zerolog.Logger {
	return log.With().Str("component", name).Logger()
}

// LogCommand records an external command at debug level. Callers pass
// arguments that have already been redacted.
func LogCommand(cmd string, args []string) {
	log.Debug().Str("command", cmd).Strs("args", args).Msg("executing command")
}

// LogOperationStart logs the start of an operation and returns a func that
// logs its completion with the elapsed time.
func LogOperationStart(logger zerolog.Logger, operation string) func() {
	start := time.Now()
	logger.Debug().Str("operation", operation).Msg("operation started")
	return func() {
		logger.Debug().
			Str("operation", operation).
			Dur("duration", time.Since(start)).
			Msg("operation completed")
	}
}

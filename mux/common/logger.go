package common

import (
	"fmt"
	"log"
	"os"
	"strings"
	"sync"

	"github.com/lni/dragonboat/v4/logger"
)

// --------------------------------------------------------------------------
// Custom Logger (implements logger.ILogger)
// --------------------------------------------------------------------------

// dMuxLogger implements the ILogger interface with custom formatting
type dMuxLogger struct {
	name   string
	level  logger.LogLevel
	logger *log.Logger
}

func (l *dMuxLogger) SetLevel(level logger.LogLevel) {
	l.level = level
}

func (l *dMuxLogger) Debugf(format string, args ...interface{}) {
	if l.level >= logger.DEBUG {
		l.log("DEBUG", format, args...)
	}
}

func (l *dMuxLogger) Infof(format string, args ...interface{}) {
	if l.level >= logger.INFO {
		l.log("INFO", format, args...)
	}
}

func (l *dMuxLogger) Warningf(format string, args ...interface{}) {
	if l.level >= logger.WARNING {
		l.log("WARN", format, args...)
	}
}

func (l *dMuxLogger) Errorf(format string, args ...interface{}) {
	if l.level >= logger.ERROR {
		l.log("ERROR", format, args...)
	}
}

func (l *dMuxLogger) Panicf(format string, args ...interface{}) {
	if l.level >= logger.CRITICAL {
		panic(fmt.Sprintf(format, args...))
	}
}

// log formats and writes a log message. this internal helper is used by the public methods
func (l *dMuxLogger) log(levelStr string, format string, args ...interface{}) {
	message := fmt.Sprintf(format, args...)
	l.logger.Printf("%-5s | %-15s | %s", levelStr, l.name, message)
}

// --------------------------------------------------------------------------
// Logger Factory
// --------------------------------------------------------------------------

// CreateLogger returns a named logger with the custom format
func CreateLogger(pkgName string) logger.ILogger {
	stdLogger := log.New(os.Stdout, "", log.Ldate|log.Ltime)

	return &dMuxLogger{
		name:   pkgName,
		level:  logger.INFO,
		logger: stdLogger,
	}
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// parseLogLevel converts a string level to logger.LogLevel
func parseLogLevel(level string) logger.LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return logger.DEBUG
	case "info":
		return logger.INFO
	case "warning", "warn":
		return logger.WARNING
	case "error":
		return logger.ERROR
	default:
		panic(fmt.Sprintf("invalid log level: %s. must be one of debug, info, warn, error", level))
	}
}

// --------------------------------------------------------------------------
// Logger initialization
// --------------------------------------------------------------------------

// loggerFactoryOnce guards the factory registration: dragonboat allows
// setting the logger factory only once per process
var loggerFactoryOnce sync.Once

// InitLoggers initializes all package loggers with the custom format.
// Safe to call repeatedly; later calls only adjust the log levels.
func InitLoggers(logLevel string) {
	// Set as the global logger factory
	loggerFactoryOnce.Do(func() {
		logger.SetLoggerFactory(CreateLogger)
	})

	// Configure all package loggers
	logger.GetLogger("mux").SetLevel(parseLogLevel(logLevel))
	logger.GetLogger("mux/transport").SetLevel(parseLogLevel(logLevel))
	logger.GetLogger("mux/dispatch").SetLevel(parseLogLevel(logLevel))
	logger.GetLogger("mux/client").SetLevel(parseLogLevel(logLevel))
	logger.GetLogger("mux/server").SetLevel(parseLogLevel(logLevel))
}

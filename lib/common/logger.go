package common

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/lni/dragonboat/v4/logger"
)

// --------------------------------------------------------------------------
// Custom Logger (implements dragonboats logger.ILogger)
// --------------------------------------------------------------------------

// logOutput is shared by all loggers, writes are serialized by logMu
var (
	logMu     sync.Mutex
	logOutput io.Writer = os.Stderr
)

// SetLogOutput redirects all loggers to w (stderr by default).
func SetLogOutput(w io.Writer) {
	logMu.Lock()
	defer logMu.Unlock()
	logOutput = w
}

// mtreeLogger writes one line per message:
//
//	15:04:05.000 INFO  registry  created multitree 7f3c... with 2 parents
//
// Command output goes to stdout, so the logs never mix with it.
type mtreeLogger struct {
	name  string
	level logger.LogLevel
}

func (l *mtreeLogger) SetLevel(level logger.LogLevel) {
	l.level = level
}

func (l *mtreeLogger) Debugf(format string, args ...interface{}) {
	l.logf(logger.DEBUG, format, args...)
}

func (l *mtreeLogger) Infof(format string, args ...interface{}) {
	l.logf(logger.INFO, format, args...)
}

func (l *mtreeLogger) Warningf(format string, args ...interface{}) {
	l.logf(logger.WARNING, format, args...)
}

func (l *mtreeLogger) Errorf(format string, args ...interface{}) {
	l.logf(logger.ERROR, format, args...)
}

// Panicf logs the message at every level and panics with it
func (l *mtreeLogger) Panicf(format string, args ...interface{}) {
	message := fmt.Sprintf(format, args...)
	l.write(logger.CRITICAL, message)
	panic(message)
}

func (l *mtreeLogger) logf(level logger.LogLevel, format string, args ...interface{}) {
	if l.level < level {
		return
	}
	l.write(level, fmt.Sprintf(format, args...))
}

func (l *mtreeLogger) write(level logger.LogLevel, message string) {
	logMu.Lock()
	defer logMu.Unlock()
	fmt.Fprintf(logOutput, "%s %-5s %-9s %s\n",
		time.Now().Format("15:04:05.000"), levelName(level), l.name, strings.TrimRight(message, "\n"))
}

func levelName(level logger.LogLevel) string {
	switch level {
	case logger.DEBUG:
		return "DEBUG"
	case logger.INFO:
		return "INFO"
	case logger.WARNING:
		return "WARN"
	case logger.ERROR:
		return "ERROR"
	default:
		return "PANIC"
	}
}

// --------------------------------------------------------------------------
// Logger Factory
// --------------------------------------------------------------------------

// CreateLogger is the logger.Factory used by all packages.
func CreateLogger(pkgName string) logger.ILogger {
	return &mtreeLogger{
		name:  pkgName,
		level: logger.INFO,
	}
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// ParseLogLevel converts a string level to logger.LogLevel
func ParseLogLevel(level string) (logger.LogLevel, error) {
	switch strings.ToLower(level) {
	case "debug":
		return logger.DEBUG, nil
	case "info", "":
		return logger.INFO, nil
	case "warning", "warn":
		return logger.WARNING, nil
	case "error":
		return logger.ERROR, nil
	default:
		return 0, fmt.Errorf("invalid log level: %s. must be one of debug, info, warn, error", level)
	}
}

// --------------------------------------------------------------------------
// Logger initialization
// --------------------------------------------------------------------------

// loggerNames are the loggers of all packages of this module
var loggerNames = []string{"mtree", "tree", "registry", "cli"}

// InitLoggers installs the custom logger factory and sets the level of all loggers
func InitLoggers(level string) error {
	lvl, err := ParseLogLevel(level)
	if err != nil {
		return err
	}

	logger.SetLoggerFactory(CreateLogger)
	for _, name := range loggerNames {
		logger.GetLogger(name).SetLevel(lvl)
	}
	return nil
}

package common

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/lni/dragonboat/v4/logger"
	"gopkg.in/natefinch/lumberjack.v2"
)

// --------------------------------------------------------------------------
// Custom Logger (implements dragonboats logger.ILogger)
// --------------------------------------------------------------------------

// levelLabels maps a level to its fixed width label.
var levelLabels = map[logger.LogLevel]string{
	logger.CRITICAL: "CRIT ",
	logger.ERROR:    "ERROR",
	logger.WARNING:  "WARN ",
	logger.INFO:     "INFO ",
	logger.DEBUG:    "DEBUG",
}

// csLogger writes one line per message: UTC time with milliseconds, level,
// logger name in brackets and the message.
//
// The level is changed by InitLoggers while other goroutines may log, so it is atomic.
type csLogger struct {
	name  string
	level atomic.Int32
	out   *log.Logger
}

func (l *csLogger) SetLevel(level logger.LogLevel) {
	l.level.Store(int32(level))
}

func (l *csLogger) enabled(level logger.LogLevel) bool {
	return logger.LogLevel(l.level.Load()) >= level
}

func (l *csLogger) write(level logger.LogLevel, format string, args []interface{}) {
	if !l.enabled(level) {
		return
	}
	l.out.Printf("%s %s [%s] %s",
		time.Now().UTC().Format("2006-01-02T15:04:05.000Z"), levelLabels[level], l.name, fmt.Sprintf(format, args...))
}

func (l *csLogger) Debugf(format string, args ...interface{}) {
	l.write(logger.DEBUG, format, args)
}

func (l *csLogger) Infof(format string, args ...interface{}) {
	l.write(logger.INFO, format, args)
}

func (l *csLogger) Warningf(format string, args ...interface{}) {
	l.write(logger.WARNING, format, args)
}

func (l *csLogger) Errorf(format string, args ...interface{}) {
	l.write(logger.ERROR, format, args)
}

// Panicf logs at critical level and panics regardless of the configured level.
func (l *csLogger) Panicf(format string, args ...interface{}) {
	l.write(logger.CRITICAL, format, args)
	panic(fmt.Sprintf(format, args...))
}

// --------------------------------------------------------------------------
// Logger Factory
// --------------------------------------------------------------------------

// NewLoggerFactory returns a Dragonboat logger factory that writes to out.
// New loggers start at level INFO.
func NewLoggerFactory(out io.Writer) logger.Factory {
	return func(pkgName string) logger.ILogger {
		l := &csLogger{
			name: pkgName,
			out:  log.New(out, "", 0),
		}
		l.SetLevel(logger.INFO)
		return l
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
	case "info":
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

// raftPackages are the loggers used inside Dragonboat.
var raftPackages = []string{"raft", "raftdb", "rsm", "transport", "dragonboat", "grpc", "util", "logdb", "config"}

// ownPackages are the loggers of this module.
var ownPackages = []string{"cloudsync", "cloudstorage", "fstore", "rstore", "dstore", "cmd"}

// logWriter returns the destination for log output: a rotated file if configured, stdout otherwise.
func logWriter(config LogConfig) io.Writer {
	if config.File == "" {
		return os.Stdout
	}
	return &lumberjack.Logger{
		Filename:   config.File,
		MaxSize:    max(config.MaxSizeMB, 1),
		MaxBackups: config.MaxBackups,
		Compress:   config.Compress,
	}
}

// InitLoggers initializes all loggers with the custom format and configured level.
// Dragonboat's own loggers log one level less verbose than ours unless debug is requested.
func InitLoggers(config LogConfig) error {
	level, err := ParseLogLevel(config.Level)
	if err != nil {
		return err
	}

	// Set as the global logger factory for Dragonboat
	logger.SetLoggerFactory(NewLoggerFactory(logWriter(config)))

	raftLevel := level
	if level == logger.INFO {
		raftLevel = logger.WARNING
	}
	for _, pkg := range raftPackages {
		logger.GetLogger(pkg).SetLevel(raftLevel)
	}
	for _, pkg := range ownPackages {
		logger.GetLogger(pkg).SetLevel(level)
	}
	return nil
}

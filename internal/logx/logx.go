// Package logx is a small leveled logger used internally by the scheduler
// and its solver backends to report model size, incumbent improvements and
// timeouts. It is deliberately silent by default: the solver interface
// this package supports requires a way to "silence log output", and the
// quietest default is no logger at all.
package logx

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
)

// Level is the severity of a log message.
type Level int

const (
	// DEBUG carries detail useful while developing a model (variable and
	// constraint counts, genetic-algorithm generation progress).
	DEBUG Level = iota
	// INFO carries normal progress information (incumbent improvements).
	INFO
	// WARN carries recoverable degradations (time limit reached with an
	// incumbent in hand).
	WARN
	// ERROR carries failures the caller should know about even when
	// otherwise silenced.
	ERROR
)

var names = map[Level]string{
	DEBUG: "DEBUG",
	INFO:  "INFO",
	WARN:  "WARN",
	ERROR: "ERROR",
}

var byName = map[string]Level{
	"DEBUG": DEBUG,
	"INFO":  INFO,
	"WARN":  WARN,
	"ERROR": ERROR,
}

// ParseLevel resolves a level by name, defaulting to INFO for anything
// unrecognized.
func ParseLevel(name string) Level {
	if l, ok := byName[strings.ToUpper(name)]; ok {
		return l
	}
	return INFO
}

// Logger is a minimal leveled wrapper around the standard library logger.
// A nil *Logger is valid and discards everything, so call sites never need
// a nil check before logging.
type Logger struct {
	level  Level
	logger *log.Logger
}

// New creates a Logger that writes messages at level or above to output.
// A nil output defaults to os.Stderr.
func New(level Level, output io.Writer) *Logger {
	if output == nil {
		output = os.Stderr
	}
	return &Logger{level: level, logger: log.New(output, "", log.LstdFlags)}
}

// Discard is a Logger that drops every message; it is the default used
// when a caller does not supply one, matching the solver contract's
// request to silence log output unless asked otherwise.
var Discard = (*Logger)(nil)

func (l *Logger) log(level Level, format string, v ...interface{}) {
	if l == nil || level < l.level {
		return
	}
	l.logger.Printf("%s: %s", names[level], fmt.Sprintf(format, v...))
}

// Debugf logs at DEBUG.
func (l *Logger) Debugf(format string, v ...interface{}) { l.log(DEBUG, format, v...) }

// Infof logs at INFO.
func (l *Logger) Infof(format string, v ...interface{}) { l.log(INFO, format, v...) }

// Warnf logs at WARN.
func (l *Logger) Warnf(format string, v ...interface{}) { l.log(WARN, format, v...) }

// Errorf logs at ERROR.
func (l *Logger) Errorf(format string, v ...interface{}) { l.log(ERROR, format, v...) }

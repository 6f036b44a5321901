// Package logger is a small leveled logger over the standard library log
// package. Every process of a run writes its lifecycle through one of these.
package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
)

type Level int

const (
	DEBUG Level = iota
	INFO
	WARN
	ERROR
)

func (l Level) String() string {
	switch l {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	}
	return fmt.Sprintf("Level(%d)", int(l))
}

// ParseLevel maps a level name, in any case, to its Level. Unknown names map
// to INFO and report false.
func ParseLevel(name string) (Level, bool) {
	switch strings.ToUpper(name) {
	case "DEBUG":
		return DEBUG, true
	case "INFO":
		return INFO, true
	case "WARN":
		return WARN, true
	case "ERROR":
		return ERROR, true
	}
	return INFO, false
}

type Logger struct {
	level    Level
	mu       sync.Mutex
	debugLog *log.Logger
	infoLog  *log.Logger
	warnLog  *log.Logger
	errorLog *log.Logger
}

// New returns a logger writing to stderr at the named level. Unknown names
// fall back to INFO.
func New(level string) *Logger {
	lvl, _ := ParseLevel(level)
	return NewWriter(os.Stderr, lvl, "")
}

// NewWriter returns a logger writing to w. prefix is put after the level tag
// of every line, e.g. "rank 3 ".
func NewWriter(w io.Writer, lvl Level, prefix string) *Logger {
	flags := log.LstdFlags | log.Lmicroseconds | log.Lmsgprefix

	return &Logger{
		level:    lvl,
		debugLog: log.New(w, "[DEBUG] "+prefix, flags),
		infoLog:  log.New(w, "[INFO] "+prefix, flags),
		warnLog:  log.New(w, "[WARN] "+prefix, flags),
		errorLog: log.New(w, "[ERROR] "+prefix, flags),
	}
}

// Discard returns a logger that drops everything.
func Discard() *Logger {
	return NewWriter(io.Discard, ERROR+1, "")
}

// Level returns the lowest level the logger writes.
func (l *Logger) Level() Level {
	return l.level
}

func (l *Logger) Debug(format string, args ...interface{}) {
	if l.level <= DEBUG {
		l.mu.Lock()
		defer l.mu.Unlock()
		l.debugLog.Printf(format, args...)
	}
}

func (l *Logger) Info(format string, args ...interface{}) {
	if l.level <= INFO {
		l.mu.Lock()
		defer l.mu.Unlock()
		l.infoLog.Printf(format, args...)
	}
}

func (l *Logger) Warn(format string, args ...interface{}) {
	if l.level <= WARN {
		l.mu.Lock()
		defer l.mu.Unlock()
		l.warnLog.Printf(format, args...)
	}
}

func (l *Logger) Error(format string, args ...interface{}) {
	if l.level <= ERROR {
		l.mu.Lock()
		defer l.mu.Unlock()
		l.errorLog.Printf(format, args...)
	}
}

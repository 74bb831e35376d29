// Copyright 2024 The Mali GPU Governor Authors. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package log

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Level describes the severity of log messages.
type Level int

const (
	// LevelDebug is the severity for debug messages.
	LevelDebug Level = iota
	// LevelInfo is the severity for informational messages.
	LevelInfo
	// LevelWarn is the severity for warnings.
	LevelWarn
	// LevelError is the severity for errors.
	LevelError
	// LevelFatal is the severity for fatal errors.
	LevelFatal
)

// DefaultLevel is the logging severity level in effect until changed.
const DefaultLevel = LevelInfo

// levelNames maps severity levels to the names accepted by SetLevelByName.
var levelNames = map[string]Level{
	"debug":   LevelDebug,
	"info":    LevelInfo,
	"warn":    LevelWarn,
	"warning": LevelWarn,
	"error":   LevelError,
	"fatal":   LevelFatal,
}

// String returns the name of the level.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	case LevelFatal:
		return "fatal"
	}
	return fmt.Sprintf("Level(%d)", int(l))
}

// Logger is the interface for producing log messages for/from a particular source.
type Logger interface {
	// Debug formats and emits a debug message.
	Debug(format string, args ...interface{})
	// Info formats and emits an informational message.
	Info(format string, args ...interface{})
	// Warn formats and emits a warning message.
	Warn(format string, args ...interface{})
	// Error formats and emits an error message.
	Error(format string, args ...interface{})
	// Fatal formats and emits an error message and os.Exit()'s with status 1.
	Fatal(format string, args ...interface{})

	// EnableDebug enables debug messages for this Logger regardless of the level.
	EnableDebug(bool) bool
	// DebugEnabled checks if debug messages are enabled for this Logger.
	DebugEnabled() bool

	// Source returns the source name of this Logger.
	Source() string
}

// logging is the shared runtime state of all loggers.
type logging struct {
	sync.RWMutex
	level    Level              // lowest unsuppressed severity
	active   Backend            // backend messages are emitted with
	loggers  map[string]*logger // loggers by source name
	srcalign int                // longest source name seen, for prefix alignment
}

var log = &logging{
	level:   DefaultLevel,
	active:  &fmtBackend{out: os.Stderr},
	loggers: make(map[string]*logger),
}

// logger implements Logger for a single named source.
type logger struct {
	source string
	debug  bool
}

// NewLogger returns the Logger for the given source, creating it if necessary.
func NewLogger(source string) Logger {
	source = strings.Trim(source, "[] ")

	log.Lock()
	defer log.Unlock()

	if l, ok := log.loggers[source]; ok {
		return l
	}

	l := &logger{source: source}
	log.loggers[source] = l
	if len(source) > log.srcalign {
		log.srcalign = len(source)
	}

	return l
}

// Get is an alias for NewLogger.
func Get(source string) Logger {
	return NewLogger(source)
}

// SetLevel sets the lowest severity level that is not suppressed.
func SetLevel(level Level) Level {
	log.Lock()
	defer log.Unlock()

	old := log.level
	log.level = level

	return old
}

// GetLevel returns the severity level currently in effect.
func GetLevel() Level {
	log.RLock()
	defer log.RUnlock()

	return log.level
}

// SetLevelByName sets the logging level from a level name.
func SetLevelByName(name string) error {
	level, ok := levelNames[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return loggerError("invalid logging level %q", name)
	}
	SetLevel(level)
	return nil
}

// SetBackend replaces the active backend, returning the previous one.
func SetBackend(b Backend) Backend {
	log.Lock()
	defer log.Unlock()

	old := log.active
	log.active = b

	return old
}

func (l *logger) emit(level Level, format string, args ...interface{}) {
	log.RLock()
	active, align := log.active, log.srcalign
	log.RUnlock()

	active.Log(level, prefixed(l.source, align), fmt.Sprintf(format, args...))
}

func (l *logger) passthrough(level Level) bool {
	log.RLock()
	defer log.RUnlock()

	if level == LevelDebug {
		return l.debug || log.level == LevelDebug
	}
	return level >= log.level
}

// Debug logs a debug message.
func (l *logger) Debug(format string, args ...interface{}) {
	if !l.passthrough(LevelDebug) {
		return
	}
	l.emit(LevelDebug, format, args...)
}

// Info logs an informational message.
func (l *logger) Info(format string, args ...interface{}) {
	if !l.passthrough(LevelInfo) {
		return
	}
	l.emit(LevelInfo, format, args...)
}

// Warn logs a warning message.
func (l *logger) Warn(format string, args ...interface{}) {
	if !l.passthrough(LevelWarn) {
		return
	}
	l.emit(LevelWarn, format, args...)
}

// Error logs an error message.
func (l *logger) Error(format string, args ...interface{}) {
	if !l.passthrough(LevelError) {
		return
	}
	l.emit(LevelError, format, args...)
}

// Fatal logs a fatal error message and os.Exit(1)'s.
func (l *logger) Fatal(format string, args ...interface{}) {
	l.emit(LevelFatal, format, args...)
	os.Exit(1)
}

// EnableDebug enables/disables debug logging for this logger, returning the old state.
func (l *logger) EnableDebug(state bool) bool {
	log.Lock()
	defer log.Unlock()

	old := l.debug
	l.debug = state

	return old
}

// DebugEnabled checks if debug logging is enabled for this logger.
func (l *logger) DebugEnabled() bool {
	log.RLock()
	defer log.RUnlock()

	return l.debug || log.level == LevelDebug
}

// Source returns the source name of this Logger.
func (l *logger) Source() string {
	return l.source
}

// prefixed brackets and centers a source name within the alignment width.
func prefixed(source string, align int) string {
	suf := (align - len(source)) / 2
	pre := align - (len(source) + suf)
	return "[" + fmt.Sprintf("%-*s", pre, "") + source + fmt.Sprintf("%*s", suf, "") + "]"
}

// loggerError produces a package-specific formatted error.
func loggerError(format string, args ...interface{}) error {
	return fmt.Errorf("log: "+format, args...)
}

// Default logger, named after the running binary.
var defLogger = NewLogger(filepath.Base(filepath.Clean(os.Args[0])))

// Default returns the default logger.
func Default() Logger {
	return defLogger
}

// Debug emits a debug message with the default source.
func Debug(format string, args ...interface{}) {
	defLogger.Debug(format, args...)
}

// Info emits an informational message with the default source.
func Info(format string, args ...interface{}) {
	defLogger.Info(format, args...)
}

// Warn emits a warning message with the default source.
func Warn(format string, args ...interface{}) {
	defLogger.Warn(format, args...)
}

// Error emits an error message with the default source.
func Error(format string, args ...interface{}) {
	defLogger.Error(format, args...)
}

// Fatal emits a fatal error message with the default source and exits.
func Fatal(format string, args ...interface{}) {
	defLogger.Fatal(format, args...)
}

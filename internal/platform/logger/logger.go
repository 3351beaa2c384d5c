// Package logger provides structured logging for the board server.
// Every turn, landing and lap should be traceable through this.
package logger

import (
	"fmt"
	"io"
	"log"
	"os"
)

// Logger provides leveled logging with context.
type Logger struct {
	infoLogger  *log.Logger
	warnLogger  *log.Logger
	errorLogger *log.Logger
}

// NewLogger creates a new logger writing info/warn to stdout and errors to stderr.
func NewLogger() *Logger {
	return NewLoggerTo(os.Stdout, os.Stderr)
}

// NewLoggerTo creates a logger writing to the given sinks. Tests pass io.Discard.
func NewLoggerTo(out, errOut io.Writer) *Logger {
	return &Logger{
		infoLogger:  log.New(out, "[SUGOROKU-INFO] ", log.Ldate|log.Ltime|log.Lshortfile),
		warnLogger:  log.New(out, "[SUGOROKU-WARN] ", log.Ldate|log.Ltime|log.Lshortfile),
		errorLogger: log.New(errOut, "[SUGOROKU-ERROR] ", log.Ldate|log.Ltime|log.Lshortfile),
	}
}

// Discard returns a logger that drops everything.
func Discard() *Logger {
	return NewLoggerTo(io.Discard, io.Discard)
}

// Info logs informational messages.
func (l *Logger) Info(msg string) {
	l.infoLogger.Output(2, msg)
}

// Warn logs warning messages.
func (l *Logger) Warn(msg string) {
	l.warnLogger.Output(2, msg)
}

// Error logs error messages.
func (l *Logger) Error(msg string) {
	l.errorLogger.Output(2, msg)
}

// Errorf logs a formatted error message.
func (l *Logger) Errorf(format string, args ...any) {
	l.errorLogger.Output(2, fmt.Sprintf(format, args...))
}

// Event logs a game event: a roll, a move, a landing.
func (l *Logger) Event(eventType string, actorID string, details string) {
	l.infoLogger.Output(2, fmt.Sprintf("[EVENT:%s] Actor:%s | %s", eventType, actorID, details))
}

package logger

import (
	"fmt"
	"maps"
	"strings"
	"sync"
)

type testLoggerStorage struct {
	mu      sync.RWMutex
	entries []TestLogEntry
}

// TestLogger records entries in memory so tests can assert on them.
type TestLogger struct {
	storage *testLoggerStorage
	fields  Fields
}

type TestLogEntry struct {
	Level   string
	Message string
	Fields  Fields
}

func NewTestLogger() *TestLogger {
	return &TestLogger{
		storage: &testLoggerStorage{
			entries: make([]TestLogEntry, 0),
		},
		fields: make(Fields),
	}
}

func (l *TestLogger) addEntry(level, message string, fields Fields) {
	l.storage.mu.Lock()
	defer l.storage.mu.Unlock()

	merged := make(Fields)
	maps.Copy(merged, l.fields)
	maps.Copy(merged, fields)

	l.storage.entries = append(l.storage.entries, TestLogEntry{
		Level:   level,
		Message: message,
		Fields:  merged,
	})
}

func (l *TestLogger) Trace(args ...any) {
	l.addEntry("trace", fmt.Sprint(args...), nil)
}

func (l *TestLogger) Debug(args ...any) {
	l.addEntry("debug", fmt.Sprint(args...), nil)
}

func (l *TestLogger) Info(args ...any) {
	l.addEntry("info", fmt.Sprint(args...), nil)
}

func (l *TestLogger) Warn(args ...any) {
	l.addEntry("warn", fmt.Sprint(args...), nil)
}

func (l *TestLogger) Error(args ...any) {
	l.addEntry("error", fmt.Sprint(args...), nil)
}

func (l *TestLogger) Fatal(args ...any) {
	l.addEntry("fatal", fmt.Sprint(args...), nil)
}

func (l *TestLogger) WithFields(fields Fields) Logger {
	merged := make(Fields)
	maps.Copy(merged, l.fields)
	maps.Copy(merged, fields)

	return &TestLogger{
		storage: l.storage,
		fields:  merged,
	}
}

func (l *TestLogger) WithField(key string, value any) Logger {
	return l.WithFields(Fields{key: value})
}

func (l *TestLogger) WithError(err error) Logger {
	return l.WithFields(Fields{"error": err})
}

// Assertion helpers.

func (l *TestLogger) GetEntries() []TestLogEntry {
	l.storage.mu.RLock()
	defer l.storage.mu.RUnlock()
	return append([]TestLogEntry{}, l.storage.entries...)
}

func (l *TestLogger) Clear() {
	l.storage.mu.Lock()
	defer l.storage.mu.Unlock()
	l.storage.entries = make([]TestLogEntry, 0)
}

func (l *TestLogger) HasEntry(level, message string) bool {
	for _, entry := range l.GetEntries() {
		if entry.Level == level && entry.Message == message {
			return true
		}
	}
	return false
}

func (l *TestLogger) HasEntryContaining(level, fragment string) bool {
	for _, entry := range l.GetEntries() {
		if entry.Level == level && strings.Contains(entry.Message, fragment) {
			return true
		}
	}
	return false
}

func (l *TestLogger) CountEntries() int {
	l.storage.mu.RLock()
	defer l.storage.mu.RUnlock()
	return len(l.storage.entries)
}

package logger

// Fields is structured context attached to a log entry.
type Fields map[string]any

// Logger is the logging surface used across the bot. It exists so tests
// can swap in TestLogger and assert on emitted entries.
type Logger interface {
	Trace(args ...any)
	Debug(args ...any)
	Info(args ...any)
	Warn(args ...any)
	Error(args ...any)
	Fatal(args ...any)

	WithFields(fields Fields) Logger
	WithField(key string, value any) Logger
	WithError(err error) Logger
}

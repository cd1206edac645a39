package logger

// teeLogger sends every record to several loggers, for example a console
// handler and a JSON file at the same time.
type teeLogger struct {
	loggers []Logger
}

// NewTee returns a Logger writing to all of loggers.
func NewTee(loggers ...Logger) Logger {
	return &teeLogger{loggers: loggers}
}

func (t *teeLogger) Debug(msg string, keysAndValues ...any) {
	for _, l := range t.loggers {
		l.Debug(msg, keysAndValues...)
	}
}

func (t *teeLogger) Info(msg string, keysAndValues ...any) {
	for _, l := range t.loggers {
		l.Info(msg, keysAndValues...)
	}
}

func (t *teeLogger) Warn(msg string, keysAndValues ...any) {
	for _, l := range t.loggers {
		l.Warn(msg, keysAndValues...)
	}
}

func (t *teeLogger) Error(msg string, keysAndValues ...any) {
	for _, l := range t.loggers {
		l.Error(msg, keysAndValues...)
	}
}

func (t *teeLogger) With(keysAndValues ...any) Logger {
	children := make([]Logger, len(t.loggers))
	for i, l := range t.loggers {
		children[i] = l.With(keysAndValues...)
	}
	return &teeLogger{loggers: children}
}

// Level returns the most verbose level among the loggers.
func (t *teeLogger) Level() Level {
	level := ErrorLevel
	for _, l := range t.loggers {
		level = min(level, l.Level())
	}
	return level
}

func (t *teeLogger) SetLevel(level Level) {
	for _, l := range t.loggers {
		l.SetLevel(level)
	}
}

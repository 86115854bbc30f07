package auth

import (
	"github.com/sirupsen/logrus"
)

type logrusLogger struct {
	entry *logrus.Entry
}

// NewLogrusLogger adapts a logrus logger to Logger, tagging every line with
// the given component name
func NewLogrusLogger(logger *logrus.Logger, component string) Logger {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	entry := logrus.NewEntry(logger)
	if component != "" {
		entry = entry.WithField("component", component)
	}
	return logrusLogger{entry: entry}
}

func (l logrusLogger) Debug(format string, args ...any) {
	l.entry.Debugf(format, args...)
}

func (l logrusLogger) Info(format string, args ...any) {
	l.entry.Infof(format, args...)
}

func (l logrusLogger) Warn(format string, args ...any) {
	l.entry.Warnf(format, args...)
}

func (l logrusLogger) Error(format string, args ...any) {
	l.entry.Errorf(format, args...)
}

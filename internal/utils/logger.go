package utils

import (
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
}

// AppLogger is the printf-style application logger backed by logrus.
type AppLogger struct {
	log *logrus.Logger
}

// NewAppLogger builds a logger writing to stdout. Unknown levels fall back to info.
func NewAppLogger(level, format string) *AppLogger {
	l := logrus.New()
	l.SetOutput(os.Stdout)

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	l.SetLevel(lvl)

	if strings.EqualFold(format, "json") {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	return &AppLogger{log: l}
}

// NewAppLoggerFrom wraps an existing logrus logger, e.g. one from hooks/test.
func NewAppLoggerFrom(l *logrus.Logger) *AppLogger {
	return &AppLogger{log: l}
}

// Logrus exposes the underlying logger for libraries that want an io.Writer or entry.
func (l *AppLogger) Logrus() *logrus.Logger {
	return l.log
}

func (l *AppLogger) Debug(msg string, args ...interface{}) {
	l.log.Debugf(msg, args...)
}

func (l *AppLogger) Info(msg string, args ...interface{}) {
	l.log.Infof(msg, args...)
}

func (l *AppLogger) Warn(msg string, args ...interface{}) {
	l.log.Warnf(msg, args...)
}

func (l *AppLogger) Error(msg string, args ...interface{}) {
	l.log.Errorf(msg, args...)
}

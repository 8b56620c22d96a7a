// Package logging provides the leveled, per-component logger shared by
// the registry, transport, raft, and cluster packages.
package logging

import (
	"fmt"
	"os"
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	rootOnce sync.Once
	root     *logrus.Logger
)

func rootLogger() *logrus.Logger {
	rootOnce.Do(func() {
		root = logrus.New()
		root.SetOutput(os.Stderr)
		root.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "15:04:05.000",
		})
		root.SetLevel(logrus.DebugLevel)
	})
	return root
}

// SetLevel adjusts the package-wide logging verbosity. Accepts the same
// level names logrus does ("debug", "info", "warn", "error").
func SetLevel(level string) error {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	rootLogger().SetLevel(lvl)
	return nil
}

// Logger is a component-scoped log emitter. component is usually a node
// identifier ("node1") or a package name ("transport").
type Logger struct {
	entry *logrus.Entry
}

// New returns a Logger tagged with the given component name.
func New(component string) *Logger {
	return &Logger{entry: rootLogger().WithField("component", component)}
}

// WithFields returns a derived Logger carrying additional structured
// fields, e.g. l.WithFields(logging.Fields{"term": 4}).
func (l *Logger) WithFields(fields Fields) *Logger {
	return &Logger{entry: l.entry.WithFields(logrus.Fields(fields))}
}

// Fields is a set of structured key/value pairs attached to a log line.
type Fields map[string]any

func (l *Logger) Debug(format string, args ...any) { l.entry.Debugf(format, args...) }
func (l *Logger) Info(format string, args ...any)  { l.entry.Infof(format, args...) }
func (l *Logger) Warn(format string, args ...any)  { l.entry.Warnf(format, args...) }
func (l *Logger) Error(format string, args ...any) { l.entry.Errorf(format, args...) }

// Package logger provides the process-wide structured logger.
//
// All components log through a shared logrus logger configured once at
// startup. Components should obtain a tagged entry via Component() rather
// than using the root logger directly, so every line carries its origin.
package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
)

// Fields is re-exported so callers don't need to import logrus.
type Fields = logrus.Fields

var root = newDefault()

func newDefault() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stdout)
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
	})
	return l
}

// Init configures the shared logger. level is a logrus level name
// ("debug", "info", ...). If logDir is non-empty, output is duplicated
// to a dated file in that directory.
func Init(level, logDir string) error {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	root.SetLevel(lvl)

	if logDir != "" {
		if err := os.MkdirAll(logDir, 0o755); err != nil {
			return fmt.Errorf("failed to create log directory: %w", err)
		}
		logFile := filepath.Join(logDir, fmt.Sprintf("virtlab_%s.log", time.Now().Format("2006-01-02")))
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		root.SetOutput(io.MultiWriter(os.Stdout, f))
	}

	return nil
}

// L returns the root logger.
func L() *logrus.Logger {
	return root
}

// Component returns an entry tagged with the originating component name.
func Component(name string) *logrus.Entry {
	return root.WithField("component", name)
}

// Package logging configures the shared logrus logger.
package logging

import (
	"github.com/sirupsen/logrus"
)

// Fields is re-exported so components don't import logrus directly.
type Fields = logrus.Fields

// New creates a configured logger. Level falls back to info when the
// configured value doesn't parse.
func New(level string) *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	logger.SetLevel(lvl)
	return logger
}

// Component returns an entry tagged with a component name, so every line a
// component logs carries its origin.
func Component(logger *logrus.Logger, name string) *logrus.Entry {
	return logger.WithField("component", name)
}

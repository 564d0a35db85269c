// Package logging configures the logrus logger shared by the sync client
// and its command-line front end.
package logging

import (
	"time"

	"github.com/sirupsen/logrus"
)

// Setup returns a logrus.Logger configured with JSON output and the given
// level (debug, info, warn, error). Unrecognized levels default to info.
func Setup(level string) *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: time.RFC3339,
	})

	switch level {
	case "debug":
		logger.SetLevel(logrus.DebugLevel)
	case "info":
		logger.SetLevel(logrus.InfoLevel)
	case "warn":
		logger.SetLevel(logrus.WarnLevel)
	case "error":
		logger.SetLevel(logrus.ErrorLevel)
	default:
		logger.SetLevel(logrus.InfoLevel)
	}

	return logger
}

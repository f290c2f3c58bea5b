package log

import (
	"github.com/sirupsen/logrus"
)

// Setup creates a configured logrus.Logger with the given level and format.
// Invalid values fall back to info/text with a warning rather than failing.
func Setup(levelStr, format string) *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: "15:04:05.000"})
	logger.SetLevel(logrus.InfoLevel)

	if format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else if format != "" && format != "text" {
		logger.Warnf("Invalid log format '%s', using 'text'", format)
	}

	if levelStr != "" {
		level, err := logrus.ParseLevel(levelStr)
		if err != nil {
			logger.Warnf("Invalid log level '%s', using default 'info'. Error: %v", levelStr, err)
		} else {
			logger.SetLevel(level)
		}
	}
	return logger
}

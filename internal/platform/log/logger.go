package log

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
)

// verboseLevel is accepted from configuration and emitted at debug.
const verboseLevel = "verbose"

// NewLogger constructs a logrus logger configured with JSON output and the provided log level.
func NewLogger(level string) (*logrus.Logger, error) {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano})
	logger.SetReportCaller(false)
	logger.SetLevel(logrus.InfoLevel)

	if level == "" {
		return logger, nil
	}

	parsedLevel, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}

	logger.SetLevel(parsedLevel)
	return logger, nil
}

// ParseLevel maps a configured level name onto a logrus level, case-insensitively.
func ParseLevel(level string) (logrus.Level, error) {
	normalized := strings.ToLower(strings.TrimSpace(level))
	if normalized == verboseLevel {
		return logrus.DebugLevel, nil
	}

	parsedLevel, err := logrus.ParseLevel(normalized)
	if err != nil {
		return logrus.InfoLevel, eris.Wrapf(err, "invalid log level: %s", level)
	}

	return parsedLevel, nil
}

// WithComponent returns a child logger entry tagged with the owning component.
func WithComponent(logger *logrus.Logger, component string) *logrus.Entry {
	return logger.WithField("component", component)
}

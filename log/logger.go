package log

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

const (
	defaultLevel = logrus.ErrorLevel
	serviceName  = "request-basket"
)

var Logger logrus.FieldLogger

func init() {
	Logger = newLogger(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"), os.Stdout)
}

// newLogger builds the process logger. Every entry carries the service name so
// that output from the API and the maintenance jobs can be told apart.
func newLogger(level, format string, out io.Writer) logrus.FieldLogger {
	l := logrus.New()
	l.Formatter = resolveFormatter(format)
	l.Out = out

	lvl, err := resolveLogLevel(level)
	l.Level = lvl

	if err != nil {
		l.Errorf("an error occurred resolving the log level: %s", err)
	}

	return l.WithField("service", serviceName)
}

func resolveFormatter(format string) logrus.Formatter {
	if strings.EqualFold(format, "text") {
		return &logrus.TextFormatter{FullTimestamp: true}
	}
	return &logrus.JSONFormatter{}
}

func resolveLogLevel(envLvl string) (logrus.Level, error) {
	if envLvl == "" {
		return defaultLevel, nil
	}

	lvl, err := logrus.ParseLevel(envLvl)
	if err != nil {
		return defaultLevel, err
	}

	return lvl, nil
}

// Writer exposes the underlying logger output for libraries that only accept
// an io.Writer (the New Relic agent, the MySQL driver).
func Writer() io.Writer {
	if e, ok := Logger.(*logrus.Entry); ok {
		return e.Logger.Writer()
	}
	if l, ok := Logger.(*logrus.Logger); ok {
		return l.Writer()
	}
	return os.Stdout
}

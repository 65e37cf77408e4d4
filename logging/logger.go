/*
Package logging holds the process-wide logrus logger.

PURPOSE:
  One logger for the server, the HTTP middleware and the background jobs.
  Engine packages (ledger, analytics, report) never log; failures travel
  as errors and are logged once at the boundary that handles them.

FORMATS:
  text: logrus TextFormatter with full timestamps (default)
  json: logrus JSONFormatter for log shippers

USAGE:
  logging.Init("debug", "json")
  logging.Logger.WithField("scope", scope).Info("dashboard served")

SEE ALSO:
  - api/server.go: RequestLogger middleware
  - config/config.go: logging.level / logging.format
*/
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

var Logger = logrus.New()

// Init configures level and format. An unknown level falls back to info
// with a warning rather than failing startup.
func Init(level, format string) {
	Logger.SetOutput(os.Stdout)

	levelStr := strings.ToLower(level)
	if levelStr == "" {
		levelStr = "info"
	}
	lvl, err := logrus.ParseLevel(levelStr)
	if err != nil {
		Logger.Warnf("Invalid log level '%s', defaulting to INFO", level)
		lvl = logrus.InfoLevel
	}
	Logger.SetLevel(lvl)

	if strings.EqualFold(format, "json") {
		Logger.SetFormatter(&logrus.JSONFormatter{})
		return
	}
	Logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
}

// Discard silences the logger. Tests call this to keep output clean.
func Discard() {
	Logger.SetOutput(io.Discard)
}

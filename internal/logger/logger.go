package logger

import (
	"os"

	"github.com/sirupsen/logrus"
)

// New builds the root logger. Unknown levels fall back to info.
func New(level, format string) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stdout)

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	l.SetLevel(lvl)

	if format == "json" {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return l
}

// Module returns an entry tagged with the component name.
func Module(l logrus.FieldLogger, name string) *logrus.Entry {
	return l.WithField("module", name)
}

package logging

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// New builds the shared logger. Services receive it by injection so tests can
// swap in a silent one.
func New() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stdout)
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	log.SetLevel(logrus.InfoLevel)
	return log
}

// Discard returns a logger that swallows everything. Used in tests.
func Discard() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	log.SetLevel(logrus.PanicLevel)
	return log
}

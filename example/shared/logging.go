package shared

import (
	"os"

	"github.com/sirupsen/logrus"
)

func NewLogger(verbose bool) *logrus.Logger {
	level := logrus.InfoLevel
	if verbose {
		level = logrus.DebugLevel
	}
	return &logrus.Logger{
		Out:   os.Stdout,
		Level: level,
		Formatter: &logrus.TextFormatter{
			FullTimestamp: true,
		},
	}
}

package netem

import (
	"os"

	"github.com/sirupsen/logrus"
)

var log = &logrus.Logger{
	Out:   os.Stderr,
	Level: logrus.WarnLevel,
	Formatter: &logrus.TextFormatter{
		FullTimestamp: true,
	},
}

// SetLogLevel adjusts how much of the emulation is reported.
// Emulated faults are logged at debug level.
func SetLogLevel(level logrus.Level) {
	log.SetLevel(level)
}

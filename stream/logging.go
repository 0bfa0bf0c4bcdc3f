package stream

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

func (s *Stream) logEntry() *logrus.Entry {
	return s.logger.WithField("stream", s.id)
}

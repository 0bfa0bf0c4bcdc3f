package stream

import (
	"time"
	"unblock-toolkit/capability"

	"github.com/sirupsen/logrus"
)

const (
	defaultPollInterval   = capability.DefaultPollInterval
	defaultReadBufferSize = 1024 * 4
	defaultWriteBatchSize = 1024 * 8

	minBufferSize = 1
)

type Config struct {
	// Upper bound on how long a readiness probe may wait, and so on how
	// long the worker takes to notice a stop request.
	PollInterval time.Duration

	// Maximum bytes taken by a single read.
	ReadBufferSize int
	// Maximum bytes drained from the write queue per loop cycle.
	WriteBatchSize int

	Callbacks Callbacks

	// Optional logger, defaults to the package logger
	Logger *logrus.Logger
}

func DefaultConfig() Config {
	return Config{
		PollInterval:   defaultPollInterval,
		ReadBufferSize: defaultReadBufferSize,
		WriteBatchSize: defaultWriteBatchSize,
	}
}

func sanitizeConfig(cfg Config) Config {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	if cfg.ReadBufferSize < minBufferSize {
		cfg.ReadBufferSize = defaultReadBufferSize
	}
	if cfg.WriteBatchSize < minBufferSize {
		cfg.WriteBatchSize = defaultWriteBatchSize
	}
	if cfg.Logger == nil {
		cfg.Logger = log
	}
	return cfg
}

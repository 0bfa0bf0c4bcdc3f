package shared

import (
	"time"
	"unblock-toolkit/netem"
	"unblock-toolkit/stream"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

const DefaultAddr = "127.0.0.1:4500"

type Flags struct {
	Addr         string
	PollInterval time.Duration
	Verbose      bool

	ReadFragmentSize  int
	WriteFragmentSize int
	RetryNth          int
}

// Bind registers the flags shared by the example commands.
func (f *Flags) Bind(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.Addr, "addr", "a", DefaultAddr, "Set the server address.")
	cmd.Flags().DurationVarP(&f.PollInterval, "poll-interval", "p", 100*time.Millisecond, "Set the stream poll interval.")
	cmd.Flags().BoolVarP(&f.Verbose, "verbose", "v", false, "Set verbose mode.")
	cmd.Flags().IntVar(&f.ReadFragmentSize, "read-fragment", 0, "Emulate reads of at most this many bytes.")
	cmd.Flags().IntVar(&f.WriteFragmentSize, "write-fragment", 0, "Emulate writes of at most this many bytes.")
	cmd.Flags().IntVar(&f.RetryNth, "retry-nth", 0, "Emulate a would-block error on every nth read and write.")
}

// Logger builds the command logger. Verbose mode also reports every fault
// netem emulates.
func (f *Flags) Logger() *logrus.Logger {
	if f.Verbose {
		netem.SetLogLevel(logrus.DebugLevel)
	}
	return NewLogger(f.Verbose)
}

// Emulated reports whether any netem flag was set.
func (f *Flags) Emulated() bool {
	return f.ReadFragmentSize > 0 || f.WriteFragmentSize > 0 || f.RetryNth > 0
}

func (f *Flags) NetemConfig() netem.Config {
	return netem.Config{
		ReadFragmentSize:  f.ReadFragmentSize,
		WriteFragmentSize: f.WriteFragmentSize,
		ReadRetryNth:      f.RetryNth,
		WriteRetryNth:     f.RetryNth,
	}
}

func (f *Flags) StreamConfig(logger *logrus.Logger, cb stream.Callbacks) stream.Config {
	cfg := stream.DefaultConfig()
	cfg.PollInterval = f.PollInterval
	cfg.Logger = logger
	cfg.Callbacks = cb
	return cfg
}

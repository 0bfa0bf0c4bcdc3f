package netem

import (
	"errors"
	"io"
	"sync/atomic"
	"time"
	"unblock-toolkit/capability"
	uatomic "unblock-toolkit/util/atomic"
	uerrors "unblock-toolkit/util/errors"

	"github.com/sirupsen/logrus"
)

// Readiness probes on the wrapped handle wait at most this long.
const probeTimeout = 10 * time.Millisecond

var (
	ErrNetemClosed     = errors.New("netem closed")
	ErrEmulatedFailure = errors.New("emulated failure")
)

type Config struct {
	// Maximum bytes returned by a single read.
	// Zero value means no emulation of read fragmentation.
	ReadFragmentSize int
	// Every nth read returns a would-block error without touching the handle.
	// Zero value means no emulation of transient read errors.
	ReadRetryNth int
	// Every nth read fails with ErrEmulatedFailure.
	// Zero value means no emulation of read failures.
	ReadFailNth int

	// Maximum bytes accepted by a single write, emulating short writes.
	// Zero value means no emulation of write fragmentation.
	WriteFragmentSize int
	// Every nth write returns a would-block error without touching the handle.
	// Zero value means no emulation of transient write errors.
	WriteRetryNth int
	// Every nth write fails with ErrEmulatedFailure.
	// Zero value means no emulation of write failures.
	WriteFailNth int
}

func DefaultConfig() Config {
	return Config{}
}

// Netem wraps a handle and degrades it according to its config. It always
// presents the non-blocking and readiness surfaces, backed by whatever
// strategy resolves for the wrapped handle.
type Netem struct {
	io.ReadWriteCloser

	readFragmentSize uint32
	readRetryNth     uint32
	readFailNth      uint32
	readCounter      uint32

	writeFragmentSize uint32
	writeRetryNth     uint32
	writeFailNth      uint32
	writeCounter      uint32

	strategy *capability.Strategy
	closed   uatomic.Bool
}

func New(h io.ReadWriteCloser, cfg Config) *Netem {
	ne := &Netem{
		ReadWriteCloser: h,
		strategy:        capability.Resolve(h),
	}
	ne.Update(cfg)
	return ne
}

func (ne *Netem) Read(b []byte) (int, error) {
	return ne.ReadNonBlock(b)
}

func (ne *Netem) Write(b []byte) (int, error) {
	return ne.WriteNonBlock(b)
}

func (ne *Netem) ReadNonBlock(b []byte) (int, error) {
	if ne.closed.Get() {
		return 0, ErrNetemClosed
	}
	rc := atomic.AddUint32(&ne.readCounter, 1)
	logFields := logrus.Fields{
		"op":      "read",
		"counter": rc,
	}
	if err := ne.inject(rc, &ne.readRetryNth, &ne.readFailNth, logFields); err != nil {
		return 0, err
	}
	// Simulate fragmentation on reader side
	if fs := int(atomic.LoadUint32(&ne.readFragmentSize)); fs > 0 && fs < len(b) {
		b = b[:fs]
	}
	n, err := ne.strategy.Read(b)
	if n > 0 {
		log.WithFields(logFields).Debugf("Read %d bytes", n)
	}
	return n, err
}

func (ne *Netem) WriteNonBlock(b []byte) (int, error) {
	if ne.closed.Get() {
		return 0, ErrNetemClosed
	}
	wc := atomic.AddUint32(&ne.writeCounter, 1)
	logFields := logrus.Fields{
		"op":      "write",
		"counter": wc,
	}
	if err := ne.inject(wc, &ne.writeRetryNth, &ne.writeFailNth, logFields); err != nil {
		return 0, err
	}
	// Short write: hand over only the first fragment
	if fs := int(atomic.LoadUint32(&ne.writeFragmentSize)); fs > 0 && fs < len(b) {
		log.WithFields(logFields).Debugf("Simulating short write of %d/%d bytes", fs, len(b))
		b = b[:fs]
	}
	n, err := ne.strategy.Write(b)
	if n > 0 {
		log.WithFields(logFields).Debugf("Wrote %d bytes", n)
	}
	return n, err
}

func (ne *Netem) Readable() (bool, error) {
	return ne.strategy.Readable(probeTimeout)
}

func (ne *Netem) Writeable() (bool, error) {
	return ne.strategy.Writeable(probeTimeout)
}

// Strategy returns the strategy resolved for the wrapped handle.
func (ne *Netem) Strategy() *capability.Strategy {
	return ne.strategy
}

// Update the config for emulation.
// May take effect on the next read/write operations.
func (ne *Netem) Update(cfg Config) {
	atomic.StoreUint32(&ne.readFragmentSize, uint32(nonNegative(cfg.ReadFragmentSize)))
	atomic.StoreUint32(&ne.writeFragmentSize, uint32(nonNegative(cfg.WriteFragmentSize)))
	atomic.StoreUint32(&ne.readRetryNth, uint32(nonNegative(cfg.ReadRetryNth)))
	atomic.StoreUint32(&ne.writeRetryNth, uint32(nonNegative(cfg.WriteRetryNth)))
	atomic.StoreUint32(&ne.readFailNth, uint32(nonNegative(cfg.ReadFailNth)))
	atomic.StoreUint32(&ne.writeFailNth, uint32(nonNegative(cfg.WriteFailNth)))
	atomic.StoreUint32(&ne.readCounter, 0)
	atomic.StoreUint32(&ne.writeCounter, 0)
}

func (ne *Netem) Reset() {
	ne.Update(Config{})
}

func (ne *Netem) Close() error {
	if !ne.closed.CompareAndSwap(false, true) {
		return ErrNetemClosed
	}
	return ne.ReadWriteCloser.Close()
}

func (ne *Netem) inject(counter uint32, retryNth, failNth *uint32, logFields logrus.Fields) error {
	if nth := atomic.LoadUint32(failNth); nth > 0 && counter%nth == 0 {
		log.WithFields(logFields).Debug("Simulating failure")
		return ErrEmulatedFailure
	}
	if nth := atomic.LoadUint32(retryNth); nth > 0 && counter%nth == 0 {
		log.WithFields(logFields).Debug("Simulating would-block")
		return uerrors.ErrWouldBlock
	}
	return nil
}

func nonNegative(v int) int {
	if v < 0 {
		return 0
	}
	return v
}

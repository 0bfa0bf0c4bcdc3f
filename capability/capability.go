// Package capability picks, once per handle, how a stream reads from it,
// writes to it and probes it for readiness.
//
// A handle only has to be an io.ReadWriteCloser. Handles that can do
// better advertise it by implementing the optional interfaces below, or by
// exposing a file descriptor through syscall.Conn. The preference order is:
//
//	read:      NonBlockingReader, raw descriptor, PartialReader,
//	           ReadDeadliner, io.Reader
//	write:     NonBlockingWriter, raw descriptor, WriteDeadliner, io.Writer
//	readiness: ReadableReporter/WriteableReporter, poll(2) on the
//	           descriptor, deadlines, otherwise assumed ready
//
// Deadline handles are read and written with a deadline one poll interval
// out, so the bounded call itself serves as the readiness probe.
package capability

import (
	"fmt"
	"io"
	"time"
)

const DefaultPollInterval = 100 * time.Millisecond

// NonBlockingReader reads whatever is available and returns a transient
// error instead of blocking when nothing is.
type NonBlockingReader interface {
	ReadNonBlock(b []byte) (int, error)
}

// PartialReader reads up to len(b) bytes, blocking only while none are
// available.
type PartialReader interface {
	ReadPartial(b []byte) (int, error)
}

// NonBlockingWriter writes as much as it can without blocking.
type NonBlockingWriter interface {
	WriteNonBlock(b []byte) (int, error)
}

// ReadDeadliner is implemented by most net.Conn values without a
// descriptor, such as *tls.Conn and net.Pipe ends.
type ReadDeadliner interface {
	SetReadDeadline(t time.Time) error
}

type WriteDeadliner interface {
	SetWriteDeadline(t time.Time) error
}

type ReadableReporter interface {
	Readable() (bool, error)
}

type WriteableReporter interface {
	Writeable() (bool, error)
}

type ReadMode int

const (
	ReadNonBlocking ReadMode = iota
	ReadRaw
	ReadPartial
	ReadDeadline
	ReadBlocking
)

func (m ReadMode) String() string {
	switch m {
	case ReadNonBlocking:
		return "nonblocking"
	case ReadRaw:
		return "raw"
	case ReadPartial:
		return "partial"
	case ReadDeadline:
		return "deadline"
	case ReadBlocking:
		return "blocking"
	}
	return fmt.Sprintf("ReadMode(%d)", int(m))
}

type WriteMode int

const (
	WriteNonBlocking WriteMode = iota
	WriteRaw
	WriteDeadline
	WriteBlocking
)

func (m WriteMode) String() string {
	switch m {
	case WriteNonBlocking:
		return "nonblocking"
	case WriteRaw:
		return "raw"
	case WriteDeadline:
		return "deadline"
	case WriteBlocking:
		return "blocking"
	}
	return fmt.Sprintf("WriteMode(%d)", int(m))
}

type ReadinessMode int

const (
	ReadinessNative ReadinessMode = iota
	ReadinessPoll
	ReadinessDeadline
	ReadinessAssumed
)

func (m ReadinessMode) String() string {
	switch m {
	case ReadinessNative:
		return "native"
	case ReadinessPoll:
		return "poll"
	case ReadinessDeadline:
		return "deadline"
	case ReadinessAssumed:
		return "assumed"
	}
	return fmt.Sprintf("ReadinessMode(%d)", int(m))
}

type (
	ioFunc        func(b []byte) (int, error)
	readinessFunc func(timeout time.Duration) (bool, error)
	timeoutFunc   func() time.Duration
)

// Strategy is the dispatch table resolved for a single handle. It never
// changes after Resolve.
type Strategy struct {
	ReadMode      ReadMode
	WriteMode     WriteMode
	ReadableMode  ReadinessMode
	WriteableMode ReadinessMode

	read      ioFunc
	write     ioFunc
	readable  readinessFunc
	writeable readinessFunc

	timeout timeoutFunc
}

// Resolve resolves h with deadlines of DefaultPollInterval.
func Resolve(h io.ReadWriteCloser) *Strategy {
	return ResolveTimeout(h, func() time.Duration {
		return DefaultPollInterval
	})
}

// ResolveTimeout resolves h. timeout is consulted before every deadline
// bounded read or write, so it can follow a changing poll interval.
func ResolveTimeout(h io.ReadWriteCloser, timeout func() time.Duration) *Strategy {
	s := &Strategy{timeout: timeout}
	rc, hasFD := rawConn(h)
	resolveRead(s, h, rc, hasFD)
	resolveWrite(s, h, rc, hasFD)
	resolveReadiness(s, h, rc, hasFD)
	return s
}

func (s *Strategy) Read(b []byte) (int, error) {
	return s.read(b)
}

func (s *Strategy) Write(b []byte) (int, error) {
	return s.write(b)
}

// Readable reports whether a read is expected not to block. Probes that
// have to wait give up after timeout.
func (s *Strategy) Readable(timeout time.Duration) (bool, error) {
	return s.readable(timeout)
}

func (s *Strategy) Writeable(timeout time.Duration) (bool, error) {
	return s.writeable(timeout)
}

func (s *Strategy) String() string {
	return fmt.Sprintf("read=%s write=%s readable=%s writeable=%s",
		s.ReadMode, s.WriteMode, s.ReadableMode, s.WriteableMode)
}

func resolveRead(s *Strategy, h io.ReadWriteCloser, rc rawHandle, hasFD bool) {
	if r, ok := h.(NonBlockingReader); ok {
		s.ReadMode, s.read = ReadNonBlocking, r.ReadNonBlock
		return
	}
	if hasFD {
		s.ReadMode, s.read = ReadRaw, rc.read
		return
	}
	if r, ok := h.(PartialReader); ok {
		s.ReadMode, s.read = ReadPartial, r.ReadPartial
		return
	}
	if d, ok := h.(ReadDeadliner); ok {
		s.ReadMode = ReadDeadline
		s.read = func(b []byte) (int, error) {
			if err := d.SetReadDeadline(time.Now().Add(s.timeout())); err != nil {
				return 0, err
			}
			return h.Read(b)
		}
		return
	}
	s.ReadMode, s.read = ReadBlocking, h.Read
}

func resolveWrite(s *Strategy, h io.ReadWriteCloser, rc rawHandle, hasFD bool) {
	if w, ok := h.(NonBlockingWriter); ok {
		s.WriteMode, s.write = WriteNonBlocking, w.WriteNonBlock
		return
	}
	if hasFD {
		s.WriteMode, s.write = WriteRaw, rc.write
		return
	}
	if d, ok := h.(WriteDeadliner); ok {
		s.WriteMode = WriteDeadline
		s.write = func(b []byte) (int, error) {
			if err := d.SetWriteDeadline(time.Now().Add(s.timeout())); err != nil {
				return 0, err
			}
			return h.Write(b)
		}
		return
	}
	s.WriteMode, s.write = WriteBlocking, h.Write
}

func resolveReadiness(s *Strategy, h io.ReadWriteCloser, rc rawHandle, hasFD bool) {
	switch r, ok := h.(ReadableReporter); {
	case ok:
		s.ReadableMode = ReadinessNative
		s.readable = func(time.Duration) (bool, error) { return r.Readable() }
	case hasFD:
		s.ReadableMode, s.readable = ReadinessPoll, rc.readable
	case s.ReadMode == ReadDeadline:
		s.ReadableMode, s.readable = ReadinessDeadline, assumeReady
	default:
		s.ReadableMode, s.readable = ReadinessAssumed, assumeReady
	}

	switch w, ok := h.(WriteableReporter); {
	case ok:
		s.WriteableMode = ReadinessNative
		s.writeable = func(time.Duration) (bool, error) { return w.Writeable() }
	case hasFD:
		s.WriteableMode, s.writeable = ReadinessPoll, rc.writeable
	case s.WriteMode == WriteDeadline:
		s.WriteableMode, s.writeable = ReadinessDeadline, assumeReady
	default:
		s.WriteableMode, s.writeable = ReadinessAssumed, assumeReady
	}
}

func assumeReady(time.Duration) (bool, error) {
	return true, nil
}

// Package stream runs a byte-stream handle on a dedicated worker goroutine.
//
// Callers enqueue writes without blocking; the worker reads whenever the
// handle is readable, drains the write queue whenever it is writeable, and
// reports everything it does through Callbacks. Stopping the stream flushes
// every pending write, regardless of readiness, before closing the handle.
package stream

import (
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"time"
	"unblock-toolkit/buffer"
	"unblock-toolkit/capability"
	uatomic "unblock-toolkit/util/atomic"

	"github.com/sirupsen/logrus"
)

var ErrAlreadyStarted = errors.New("stream already started")

type State int32

const (
	StateNotStarted State = iota
	StateRunning
	StateStopped
)

func (st State) String() string {
	switch st {
	case StateNotStarted:
		return "not started"
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	}
	return "unknown"
}

// WriteFunc is called once the whole payload of a WriteAsync call has been
// handed to the handle, with the final chunk written and its length.
type WriteFunc = buffer.Callback

var streamIDs uint64

type Stream struct {
	pollInterval int64
	state        int32
	workerID     uint64

	id       uint64
	handle   io.ReadWriteCloser
	strategy *capability.Strategy
	buffer   *buffer.Queue

	callbacks Callbacks
	logger    *logrus.Logger

	readBuffer     []byte
	writeBatchSize int

	running   uatomic.Bool
	connected uatomic.Bool

	mu sync.Mutex
	wg sync.WaitGroup

	done chan struct{}
}

var _ io.WriteCloser = (*Stream)(nil)

// New wraps an open handle. The stream takes over closing it but does
// nothing until Start.
func New(h io.ReadWriteCloser, cfg Config) *Stream {
	cfg = sanitizeConfig(cfg)
	s := &Stream{
		pollInterval: int64(cfg.PollInterval),
		state:        int32(StateNotStarted),

		id:     atomic.AddUint64(&streamIDs, 1),
		handle: h,
		buffer: buffer.NewQueue(),

		callbacks: cfg.Callbacks,
		logger:    cfg.Logger,

		readBuffer:     make([]byte, cfg.ReadBufferSize),
		writeBatchSize: cfg.WriteBatchSize,

		done: make(chan struct{}),
	}
	s.strategy = capability.ResolveTimeout(h, s.PollInterval)
	s.connected.Set(true)
	return s
}

// Start launches the worker. cb, if given, is called with PhaseStart when
// the worker begins and PhaseStop when it exits. A stream can only be
// started once; later calls return ErrAlreadyStarted.
func (s *Stream) Start(cb LifecycleFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.State() != StateNotStarted {
		return ErrAlreadyStarted
	}
	s.running.Set(true)
	atomic.StoreInt32(&s.state, int32(StateRunning))
	s.wg.Add(1)
	go s.processRoutine(cb)
	return nil
}

// Stop asks the worker to finish and waits until it has flushed pending
// writes, closed the handle and exited. Stopping a stream that was never
// started, or is already stopped, does nothing.
//
// Called from a callback, Stop cannot wait for the worker it runs on and
// behaves like RequestStop.
func (s *Stream) Stop() {
	if s.onWorker() {
		s.RequestStop()
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running.Set(false)
	s.wg.Wait()
}

// RequestStop asks the worker to finish after its current cycle and returns
// immediately.
func (s *Stream) RequestStop() {
	s.running.Set(false)
}

func (s *Stream) Close() error {
	s.Stop()
	return nil
}

// Write enqueues a copy of b and returns immediately.
func (s *Stream) Write(b []byte) (int, error) {
	s.WriteAsync(b, nil)
	return len(b), nil
}

// WriteAsync enqueues a copy of b. cb, if given, runs on the worker once
// all of b has been written, receiving the final chunk, its length and args.
func (s *Stream) WriteAsync(b []byte, cb WriteFunc, args ...interface{}) {
	data := make([]byte, len(b))
	copy(data, b)
	s.buffer.PushTail(buffer.Entry{
		Data:     data,
		Callback: cb,
		Args:     args,
	})
}

func (s *Stream) ID() uint64 {
	return s.id
}

func (s *Stream) Running() bool {
	return s.running.Get()
}

func (s *Stream) Connected() bool {
	return s.connected.Get()
}

// Alive reports whether the worker goroutine is still running.
func (s *Stream) Alive() bool {
	return s.State() == StateRunning
}

func (s *Stream) State() State {
	return State(atomic.LoadInt32(&s.state))
}

// Done is closed once the worker has exited.
func (s *Stream) Done() <-chan struct{} {
	return s.done
}

func (s *Stream) PollInterval() time.Duration {
	return time.Duration(atomic.LoadInt64(&s.pollInterval))
}

func (s *Stream) SetPollInterval(d time.Duration) {
	if d <= 0 {
		d = defaultPollInterval
	}
	atomic.StoreInt64(&s.pollInterval, int64(d))
}

// Buffered returns the number of queued writes not yet fully sent.
func (s *Stream) Buffered() int {
	return s.buffer.Len()
}

func (s *Stream) Callbacks() Callbacks {
	return s.callbacks
}

func (s *Stream) Strategy() *capability.Strategy {
	return s.strategy
}

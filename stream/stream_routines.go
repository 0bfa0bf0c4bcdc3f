package stream

import (
	"runtime"
	"sync/atomic"
	uerrors "unblock-toolkit/util/errors"

	"github.com/sirupsen/logrus"
)

func (s *Stream) processRoutine(cb LifecycleFunc) {
	defer func() {
		s.logEntry().Debug("Process routine done")
		s.wg.Done()
	}()
	atomic.StoreUint64(&s.workerID, goroutineID())
	s.logEntry().WithField("strategy", s.strategy.String()).Debug("Process routine started")

	s.triggerLifecycle(EventStarted, PhaseStart, cb)
	for s.running.Get() && s.connected.Get() {
		s.readAndWrite()
	}
	s.flushAndClose()
	s.triggerLifecycle(EventStopped, PhaseStop, cb)

	s.running.Set(false)
	atomic.StoreInt32(&s.state, int32(StateStopped))
	close(s.done)
}

func (s *Stream) readAndWrite() {
	if s.shouldRead() {
		s.read()
	}
	if s.shouldWrite() {
		s.write()
	}
	s.triggerLooped()
}

func (s *Stream) shouldRead() bool {
	if !s.connected.Get() {
		return false
	}
	ok, err := s.strategy.Readable(s.PollInterval())
	if err != nil {
		if !uerrors.IsTransient(err) {
			s.forceClose(err)
		}
		return false
	}
	return ok
}

func (s *Stream) shouldWrite() bool {
	if !s.connected.Get() || s.buffer.Empty() {
		return false
	}
	ok, err := s.strategy.Writeable(s.PollInterval())
	if err != nil {
		if !uerrors.IsTransient(err) {
			s.forceClose(err)
		}
		return false
	}
	return ok
}

func (s *Stream) read() {
	n, err := s.strategy.Read(s.readBuffer)
	if n > 0 {
		b := make([]byte, n)
		copy(b, s.readBuffer[:n])
		s.triggerRead(b)
	}
	if err != nil && !uerrors.IsTransient(err) {
		s.forceClose(err)
	}
}

// write drains the queue until the batch size is reached, the queue is
// empty, or the handle refuses more. It returns the bytes written.
func (s *Stream) write() int {
	written := 0
	for written < s.writeBatchSize {
		e, ok := s.buffer.PopHead()
		if !ok {
			break
		}
		n, err := s.strategy.Write(e.Data)
		if n < 0 {
			n = 0
		}
		if n > 0 {
			written += n
			s.triggerWrote(e.Data, n)
		}
		if n < len(e.Data) {
			// The unsent suffix goes back to the head to keep send order
			s.buffer.PushHead(e.Remainder(n))
		} else {
			s.triggerWriteComplete(e.Callback, e.Data, n, e.Args)
		}
		if err != nil {
			if !uerrors.IsTransient(err) {
				s.forceClose(err)
			}
			break
		}
		if n == 0 && len(e.Data) > 0 {
			break
		}
	}
	return written
}

// flushAndClose pushes out everything still queued, whether or not the
// handle claims to be writeable, then closes it.
func (s *Stream) flushAndClose() {
	for s.connected.Get() && !s.buffer.Empty() {
		if s.write() == 0 && s.connected.Get() {
			// Nothing went out; give the handle a bounded moment before retrying
			//nolint:errcheck
			s.strategy.Writeable(s.PollInterval())
		}
	}
	s.closeHandle()
}

func (s *Stream) closeHandle() {
	if !s.connected.CompareAndSwap(true, false) {
		return
	}
	if err := s.handle.Close(); err != nil {
		s.logEntry().WithError(err).Debug("Close error ignored")
	}
	s.triggerClosed()
}

func (s *Stream) forceClose(err error) {
	s.logEntry().WithFields(logrus.Fields{
		"error":    err,
		"buffered": s.buffer.Len(),
	}).Debug("Force closing")
	s.closeHandle()
	s.triggerFailed(err)
}

// onWorker reports whether the caller runs on the stream's worker, that is,
// from inside a callback.
func (s *Stream) onWorker() bool {
	id := atomic.LoadUint64(&s.workerID)
	return id != 0 && id == goroutineID()
}

// goroutineID parses the current goroutine's ID out of its stack header,
// which starts with "goroutine NNN [".
func goroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	var id uint64
	for i := len("goroutine "); i < n; i++ {
		if buf[i] < '0' || buf[i] > '9' {
			break
		}
		id = id*10 + uint64(buf[i]-'0')
	}
	return id
}

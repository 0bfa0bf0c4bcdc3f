package stream

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/sirupsen/logrus"
)

type Event string

const (
	EventStarted        Event = "started"
	EventStopped        Event = "stopped"
	EventLooped         Event = "looped"
	EventRead           Event = "read"
	EventWrote          Event = "wrote"
	EventClosed         Event = "closed"
	EventFailed         Event = "failed"
	EventCallbackFailed Event = "callback_failed"
)

func (e Event) String() string {
	return string(e)
}

// Phase is handed to lifecycle handlers to tell starting from stopping.
type Phase string

const (
	PhaseStart Phase = "start"
	PhaseStop  Phase = "stop"
)

type LifecycleFunc func(p Phase)

// Callbacks holds the stream-wide handlers. A nil field means no handler.
//
// Handlers run on the stream's worker goroutine. A handler that panics does
// not disturb the stream: the panic is recovered and reported to
// CallbackFailed along with the event being dispatched.
type Callbacks struct {
	Started        func(p Phase)
	Stopped        func(p Phase)
	Looped         func(s *Stream)
	Read           func(b []byte)
	Wrote          func(b []byte, n int)
	Closed         func()
	Failed         func(err error)
	CallbackFailed func(err error, ev Event)
}

func (s *Stream) triggerLifecycle(ev Event, p Phase, cb LifecycleFunc) {
	if cb != nil {
		s.guard(ev, func() { cb(p) })
	}
	global := s.callbacks.Started
	if ev == EventStopped {
		global = s.callbacks.Stopped
	}
	if global != nil {
		s.guard(ev, func() { global(p) })
	}
}

func (s *Stream) triggerLooped() {
	if cb := s.callbacks.Looped; cb != nil {
		s.guard(EventLooped, func() { cb(s) })
	}
}

func (s *Stream) triggerRead(b []byte) {
	if cb := s.callbacks.Read; cb != nil {
		s.guard(EventRead, func() { cb(b) })
	}
}

func (s *Stream) triggerWrote(b []byte, n int) {
	if cb := s.callbacks.Wrote; cb != nil {
		s.guard(EventWrote, func() { cb(b, n) })
	}
}

func (s *Stream) triggerWriteComplete(cb WriteFunc, b []byte, n int, args []interface{}) {
	if cb != nil {
		s.guard(EventWrote, func() { cb(b, n, args...) })
	}
}

func (s *Stream) triggerClosed() {
	if cb := s.callbacks.Closed; cb != nil {
		s.guard(EventClosed, cb)
	}
}

func (s *Stream) triggerFailed(err error) {
	if cb := s.callbacks.Failed; cb != nil {
		s.guard(EventFailed, func() { cb(err) })
	}
}

func (s *Stream) triggerCallbackFailed(err error, ev Event) {
	if cb := s.callbacks.CallbackFailed; cb != nil {
		s.guard(EventCallbackFailed, func() { cb(err, ev) })
	}
}

// guard runs fn and turns a panic into a callback_failed dispatch. A panic
// inside the callback_failed handler itself is only logged.
func (s *Stream) guard(ev Event, fn func()) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		err := panicError(r)
		if ev == EventCallbackFailed {
			s.logEntry().WithFields(logrus.Fields{
				"event": ev.String(),
				"error": err.Error(),
				"from":  panicSite(),
			}).Warn("Panic raised in callback_failed handler")
			return
		}
		s.triggerCallbackFailed(err, ev)
	}()
	fn()
}

func panicError(r interface{}) error {
	if err, ok := r.(error); ok {
		return err
	}
	return fmt.Errorf("callback panic: %v", r)
}

// panicSite returns the file:line of the frame that panicked. It must be
// called from the deferred function that recovered.
func panicSite() string {
	pcs := make([]uintptr, 32)
	n := runtime.Callers(2, pcs)
	frames := runtime.CallersFrames(pcs[:n])
	afterPanic := false
	for {
		frame, more := frames.Next()
		if frame.Function == "runtime.gopanic" {
			afterPanic = true
		} else if afterPanic && !strings.HasPrefix(frame.Function, "runtime.") {
			return fmt.Sprintf("%s:%d", frame.File, frame.Line)
		}
		if !more {
			break
		}
	}
	return "unknown"
}

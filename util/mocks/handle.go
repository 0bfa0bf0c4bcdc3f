package mocks

import (
	"bytes"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	uerrors "unblock-toolkit/util/errors"
)

var ErrHandleClosed = errors.New("handle closed")

// Handle is an in-memory stream handle. Reads are served from a preloaded
// input buffer, writes land in an output buffer, and both directions can be
// throttled, gated on readiness or made to fail.
type Handle struct {
	input  *bytes.Reader
	output *bytes.Buffer

	maxRead  int
	maxWrite int

	readable  bool
	writeable bool
	eof       bool

	readErr  error
	writeErr error

	readableErr  error
	writeableErr error

	raisedRead  uint32
	raisedWrite uint32
	readCalls   uint32
	writeCalls  uint32
	closeCalls  uint32

	closed bool

	mu sync.Mutex
}

func NewHandle() *Handle {
	return &Handle{
		input:     bytes.NewReader(nil),
		output:    &bytes.Buffer{},
		readable:  true,
		writeable: true,
	}
}

func (h *Handle) Read(b []byte) (int, error) {
	return h.ReadNonBlock(b)
}

func (h *Handle) Write(b []byte) (int, error) {
	return h.WriteNonBlock(b)
}

func (h *Handle) ReadNonBlock(b []byte) (int, error) {
	atomic.AddUint32(&h.readCalls, 1)
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return 0, ErrHandleClosed
	}
	if h.readErr != nil {
		atomic.AddUint32(&h.raisedRead, 1)
		return 0, h.readErr
	}
	if h.input.Len() <= 0 {
		if h.eof {
			return 0, io.EOF
		}
		return 0, uerrors.ErrWouldBlock
	}
	if h.maxRead > 0 && len(b) > h.maxRead {
		b = b[:h.maxRead]
	}
	return h.input.Read(b)
}

func (h *Handle) WriteNonBlock(b []byte) (int, error) {
	atomic.AddUint32(&h.writeCalls, 1)
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return 0, ErrHandleClosed
	}
	if h.writeErr != nil {
		atomic.AddUint32(&h.raisedWrite, 1)
		return 0, h.writeErr
	}
	if h.maxWrite > 0 && len(b) > h.maxWrite {
		b = b[:h.maxWrite]
	}
	return h.output.Write(b)
}

func (h *Handle) Readable() (bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.readableErr != nil {
		return false, h.readableErr
	}
	return h.readable, nil
}

func (h *Handle) Writeable() (bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.writeableErr != nil {
		return false, h.writeableErr
	}
	return h.writeable, nil
}

func (h *Handle) Close() error {
	atomic.AddUint32(&h.closeCalls, 1)
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return ErrHandleClosed
	}
	h.closed = true
	return nil
}

// SetInput replaces the bytes served to readers.
func (h *Handle) SetInput(b []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.input = bytes.NewReader(b)
}

// SetEOF makes an exhausted input report io.EOF instead of would-block.
func (h *Handle) SetEOF(eof bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.eof = eof
}

func (h *Handle) SetMaxRead(n int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.maxRead = n
}

func (h *Handle) SetMaxWrite(n int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.maxWrite = n
}

func (h *Handle) SetReadable(v bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.readable = v
}

func (h *Handle) SetWriteable(v bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.writeable = v
}

// RaiseRead makes every read fail with err until it is cleared with nil.
func (h *Handle) RaiseRead(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.readErr = err
}

func (h *Handle) RaiseWrite(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.writeErr = err
}

// RaiseReadable makes the readable probe fail with err until it is
// cleared with nil.
func (h *Handle) RaiseReadable(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.readableErr = err
}

func (h *Handle) RaiseWriteable(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.writeableErr = err
}

func (h *Handle) RaisedRead() bool {
	return atomic.LoadUint32(&h.raisedRead) > 0
}

func (h *Handle) RaisedWrite() bool {
	return atomic.LoadUint32(&h.raisedWrite) > 0
}

func (h *Handle) WriteCalls() int {
	return int(atomic.LoadUint32(&h.writeCalls))
}

func (h *Handle) ReadCalls() int {
	return int(atomic.LoadUint32(&h.readCalls))
}

func (h *Handle) CloseCalls() int {
	return int(atomic.LoadUint32(&h.closeCalls))
}

// Unread returns how many input bytes are still waiting to be read.
func (h *Handle) Unread() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.input.Len()
}

// Output returns a copy of everything written so far.
func (h *Handle) Output() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.output.String()
}

func (h *Handle) Closed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.closed
}

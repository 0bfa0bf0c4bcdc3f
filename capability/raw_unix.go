//go:build !windows

package capability

import (
	"io"
	"os"
	"syscall"
	"time"
	uerrors "unblock-toolkit/util/errors"

	"golang.org/x/sys/unix"
)

type rawHandle struct {
	conn syscall.RawConn
}

func rawConn(h interface{}) (rawHandle, bool) {
	sc, ok := h.(syscall.Conn)
	if !ok {
		return rawHandle{}, false
	}
	rc, err := sc.SyscallConn()
	if err != nil {
		return rawHandle{}, false
	}
	return rawHandle{conn: rc}, true
}

// read issues a single read(2). The callback always reports done so the
// runtime never parks the goroutine waiting for the descriptor.
func (r rawHandle) read(b []byte) (int, error) {
	var (
		n     int
		inner error
	)
	err := r.conn.Read(func(fd uintptr) bool {
		n, inner = unix.Read(int(fd), b)
		return true
	})
	if err != nil {
		return 0, err
	}
	if inner != nil {
		return 0, wrapSyscallError("read", inner)
	}
	if n == 0 && len(b) > 0 {
		return 0, io.EOF
	}
	return n, nil
}

func (r rawHandle) write(b []byte) (int, error) {
	var (
		n     int
		inner error
	)
	err := r.conn.Write(func(fd uintptr) bool {
		n, inner = unix.Write(int(fd), b)
		return true
	})
	if err != nil {
		return 0, err
	}
	if inner != nil {
		return 0, wrapSyscallError("write", inner)
	}
	return n, nil
}

func (r rawHandle) readable(timeout time.Duration) (bool, error) {
	return r.poll(unix.POLLIN, timeout)
}

func (r rawHandle) writeable(timeout time.Duration) (bool, error) {
	return r.poll(unix.POLLOUT, timeout)
}

// poll waits up to timeout for events on the descriptor. Hang-ups and
// errors count as ready so the following read or write surfaces them.
func (r rawHandle) poll(events int16, timeout time.Duration) (bool, error) {
	var (
		ready bool
		inner error
	)
	err := r.conn.Control(func(fd uintptr) {
		fds := []unix.PollFd{{Fd: int32(fd), Events: events}}
		n, err := unix.Poll(fds, pollTimeout(timeout))
		if err != nil {
			inner = err
			return
		}
		mask := events | unix.POLLERR | unix.POLLHUP | unix.POLLNVAL
		ready = n > 0 && fds[0].Revents&mask != 0
	})
	if err != nil {
		return false, err
	}
	if inner != nil {
		if uerrors.IsTransient(inner) {
			return false, nil
		}
		return false, wrapSyscallError("poll", inner)
	}
	return ready, nil
}

func pollTimeout(timeout time.Duration) int {
	if timeout <= 0 {
		return 0
	}
	ms := int(timeout / time.Millisecond)
	if ms == 0 {
		ms = 1
	}
	return ms
}

func wrapSyscallError(name string, err error) error {
	if _, ok := err.(syscall.Errno); ok {
		return os.NewSyscallError(name, err)
	}
	return err
}

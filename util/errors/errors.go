package errors

import (
	"errors"
	"net"
	"os"
	"syscall"
)

var (
	ErrTimeout    = errors.New("timeout")
	ErrWouldBlock = errors.New("operation would block")
)

func IsDeadlineError(err error) bool {
	if errors.Is(err, ErrTimeout) || errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return ne.Timeout()
	}
	return false
}

// IsTransient reports whether err is a condition worth retrying on a later
// cycle: an interrupted call, a would-block, or an expired deadline.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	switch {
	case errors.Is(err, ErrWouldBlock),
		errors.Is(err, syscall.EINTR),
		errors.Is(err, syscall.EAGAIN),
		errors.Is(err, syscall.EWOULDBLOCK):
		return true
	}
	return IsDeadlineError(err)
}

//go:build windows

package capability

import (
	"errors"
	"time"
)

var errNoRawHandle = errors.New("raw descriptor access not supported")

// Raw descriptor access goes through poll(2), which windows lacks. Every
// handle falls back to its own methods there.
type rawHandle struct{}

func rawConn(interface{}) (rawHandle, bool) {
	return rawHandle{}, false
}

func (rawHandle) read([]byte) (int, error) {
	return 0, errNoRawHandle
}

func (rawHandle) write([]byte) (int, error) {
	return 0, errNoRawHandle
}

func (rawHandle) readable(time.Duration) (bool, error) {
	return false, errNoRawHandle
}

func (rawHandle) writeable(time.Duration) (bool, error) {
	return false, errNoRawHandle
}

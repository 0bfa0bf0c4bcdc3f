package mocks

import (
	"errors"
	"io"
	"testing"
	uerrors "unblock-toolkit/util/errors"

	"github.com/stretchr/testify/require"
)

func TestHandle(t *testing.T) {
	t.Run("read", func(t *testing.T) {
		require := require.New(t)
		h := NewHandle()
		buf := make([]byte, 16)

		_, err := h.Read(buf)
		require.Equal(uerrors.ErrWouldBlock, err)

		h.SetInput([]byte("hello"))
		h.SetMaxRead(3)
		n, err := h.Read(buf)
		require.Nil(err)
		require.Equal("hel", string(buf[:n]))
		require.Equal(2, h.Unread())

		n, err = h.Read(buf)
		require.Nil(err)
		require.Equal("lo", string(buf[:n]))

		h.SetEOF(true)
		_, err = h.Read(buf)
		require.Equal(io.EOF, err)
		require.Equal(4, h.ReadCalls())
	})

	t.Run("write", func(t *testing.T) {
		require := require.New(t)
		h := NewHandle()
		h.SetMaxWrite(3)
		n, err := h.Write([]byte("hello"))
		require.Nil(err)
		require.Equal(3, n)
		require.Equal("hel", h.Output())
		require.Equal(1, h.WriteCalls())
	})

	t.Run("raise", func(t *testing.T) {
		require := require.New(t)
		h := NewHandle()
		fail := errors.New("fail")
		h.RaiseRead(fail)
		h.RaiseWrite(fail)
		_, err := h.Read(make([]byte, 1))
		require.Equal(fail, err)
		_, err = h.Write([]byte("x"))
		require.Equal(fail, err)
		require.True(h.RaisedRead())
		require.True(h.RaisedWrite())

		h.RaiseWrite(nil)
		_, err = h.Write([]byte("x"))
		require.Nil(err)
	})

	t.Run("readiness", func(t *testing.T) {
		require := require.New(t)
		h := NewHandle()
		ok, _ := h.Readable()
		require.True(ok)
		h.SetReadable(false)
		h.SetWriteable(false)
		ok, _ = h.Readable()
		require.False(ok)
		ok, _ = h.Writeable()
		require.False(ok)

		fail := errors.New("probe fail")
		h.SetReadable(true)
		h.RaiseReadable(fail)
		h.RaiseWriteable(fail)
		ok, err := h.Readable()
		require.Equal(fail, err)
		require.False(ok)
		_, err = h.Writeable()
		require.Equal(fail, err)

		h.RaiseReadable(nil)
		ok, err = h.Readable()
		require.Nil(err)
		require.True(ok)
	})

	t.Run("close", func(t *testing.T) {
		require := require.New(t)
		h := NewHandle()
		require.Nil(h.Close())
		require.True(h.Closed())
		require.Equal(ErrHandleClosed, h.Close())
		require.Equal(2, h.CloseCalls())
		_, err := h.Write([]byte("x"))
		require.Equal(ErrHandleClosed, err)
	})
}

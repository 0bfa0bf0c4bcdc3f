//go:build !windows

package capability

import (
	"io"
	"net"
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func tcpPair(t *testing.T) (net.Conn, net.Conn) {
	require := require.New(t)
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.Nil(err)
	defer l.Close()

	ch := make(chan net.Conn, 1)
	go func() {
		c, err := l.Accept()
		if err != nil {
			close(ch)
			return
		}
		ch <- c
	}()
	c, err := net.Dial("tcp", l.Addr().String())
	require.Nil(err)
	s, ok := <-ch
	require.True(ok)
	t.Cleanup(func() {
		c.Close()
		s.Close()
	})
	return c, s
}

func TestResolveRawConn(t *testing.T) {
	c, s := tcpPair(t)
	strategy := Resolve(c)

	t.Run("modes", func(t *testing.T) {
		require := require.New(t)
		require.Equal(ReadRaw, strategy.ReadMode)
		require.Equal(WriteRaw, strategy.WriteMode)
		require.Equal(ReadinessPoll, strategy.ReadableMode)
		require.Equal(ReadinessPoll, strategy.WriteableMode)
	})

	t.Run("read would block", func(t *testing.T) {
		require := require.New(t)
		ok, err := strategy.Readable(10 * time.Millisecond)
		require.Nil(err)
		require.False(ok)

		_, err = strategy.Read(make([]byte, 16))
		require.ErrorIs(err, syscall.EAGAIN)
	})

	t.Run("write then read", func(t *testing.T) {
		require := require.New(t)
		ok, err := strategy.Writeable(10 * time.Millisecond)
		require.Nil(err)
		require.True(ok)

		n, err := strategy.Write([]byte("ping"))
		require.Nil(err)
		require.Equal(4, n)

		buf := make([]byte, 16)
		n, err = s.Read(buf)
		require.Nil(err)
		require.Equal("ping", string(buf[:n]))

		_, err = s.Write([]byte("pong"))
		require.Nil(err)
		require.Eventually(func() bool {
			ok, err := strategy.Readable(10 * time.Millisecond)
			return err == nil && ok
		}, time.Second, time.Millisecond)

		n, err = strategy.Read(buf)
		require.Nil(err)
		require.Equal("pong", string(buf[:n]))
	})

	t.Run("peer closed", func(t *testing.T) {
		require := require.New(t)
		require.Nil(s.Close())
		require.Eventually(func() bool {
			ok, err := strategy.Readable(10 * time.Millisecond)
			return err == nil && ok
		}, time.Second, time.Millisecond)
		_, err := strategy.Read(make([]byte, 16))
		require.Equal(io.EOF, err)
	})
}

func TestResolvePipe(t *testing.T) {
	require := require.New(t)
	r, w, err := os.Pipe()
	require.Nil(err)
	defer r.Close()
	defer w.Close()

	strategy := Resolve(r)
	require.Equal(ReadRaw, strategy.ReadMode)
	require.Equal(ReadinessPoll, strategy.ReadableMode)

	_, err = w.Write([]byte("abc"))
	require.Nil(err)
	ok, err := strategy.Readable(100 * time.Millisecond)
	require.Nil(err)
	require.True(ok)

	buf := make([]byte, 8)
	n, err := strategy.Read(buf)
	require.Nil(err)
	require.Equal("abc", string(buf[:n]))
}

func TestPollTimeout(t *testing.T) {
	require := require.New(t)
	require.Equal(0, pollTimeout(0))
	require.Equal(1, pollTimeout(time.Microsecond))
	require.Equal(100, pollTimeout(DefaultPollInterval))
}

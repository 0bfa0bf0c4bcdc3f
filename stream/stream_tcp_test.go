//go:build !windows

package stream

import (
	"io"
	"net"
	"testing"
	"time"
	"unblock-toolkit/capability"

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

func TestStreamTCP(t *testing.T) {
	t.Run("ping pong", func(t *testing.T) {
		require := require.New(t)
		client, server := tcpPair(t)

		replies := make(chan string, 8)
		s := newStream(client, Callbacks{
			Read: func(b []byte) { replies <- string(b) },
		})
		require.Equal(capability.ReadRaw, s.Strategy().ReadMode)
		require.Equal(capability.ReadinessPoll, s.Strategy().ReadableMode)
		require.Nil(s.Start(nil))

		s.Write([]byte("ping"))
		buf := make([]byte, 4)
		require.Nil(server.SetReadDeadline(time.Now().Add(testTimeout)))
		_, err := io.ReadFull(server, buf)
		require.Nil(err)
		require.Equal("ping", string(buf))

		_, err = server.Write([]byte("pong"))
		require.Nil(err)
		select {
		case reply := <-replies:
			require.Equal("pong", reply)
		case <-time.After(testTimeout):
			require.Fail("no reply")
		}

		s.Stop()
		_, err = server.Read(buf)
		require.ErrorIs(err, io.EOF)
	})

	t.Run("peer close", func(t *testing.T) {
		require := require.New(t)
		client, server := tcpPair(t)

		failed := make(chan error, 1)
		s := newStream(client, Callbacks{
			Failed: func(err error) { failed <- err },
		})
		require.Nil(s.Start(nil))
		require.Nil(server.Close())

		select {
		case err := <-failed:
			require.ErrorIs(err, io.EOF)
		case <-time.After(testTimeout):
			require.Fail("peer close not noticed")
		}
		<-s.Done()
		require.False(s.Connected())
	})
}

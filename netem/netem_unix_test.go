//go:build !windows

package netem

import (
	"net"
	"testing"
	"time"
	"unblock-toolkit/capability"
	uerrors "unblock-toolkit/util/errors"

	"github.com/stretchr/testify/require"
)

func TestNetemTCP(t *testing.T) {
	require := require.New(t)
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.Nil(err)
	defer l.Close()
	go func() {
		c, err := l.Accept()
		if err != nil {
			return
		}
		defer c.Close()
		c.Write([]byte("hello"))
		time.Sleep(time.Second)
	}()

	conn, err := net.Dial("tcp", l.Addr().String())
	require.Nil(err)
	ne := New(conn, Config{ReadFragmentSize: 2})
	defer ne.Close()
	require.Equal(capability.ReadRaw, ne.Strategy().ReadMode)
	require.Equal(capability.ReadinessPoll, ne.Strategy().ReadableMode)

	require.Eventually(func() bool {
		ok, err := ne.Readable()
		return err == nil && ok
	}, 2*time.Second, time.Millisecond)

	buf := make([]byte, 16)
	received := ""
	for len(received) < 5 {
		n, err := ne.ReadNonBlock(buf)
		if err != nil {
			require.True(uerrors.IsTransient(err))
			continue
		}
		require.LessOrEqual(n, 2)
		received += string(buf[:n])
	}
	require.Equal("hello", received)
}

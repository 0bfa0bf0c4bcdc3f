package metrics

import (
	"errors"
	"testing"
	"time"
	"unblock-toolkit/stream"
	"unblock-toolkit/util/mocks"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestCollector(t *testing.T) {
	registry := prometheus.NewRegistry()
	c := New(Config{Namespace: "test", Registry: registry})

	var reads [][]byte
	var failures []error
	cb := c.Instrument("s1", stream.Callbacks{
		Read: func(b []byte) {
			reads = append(reads, b)
		},
		Failed: func(err error) {
			failures = append(failures, err)
		},
	})

	h := mocks.NewHandle()
	h.SetInput([]byte("hello"))
	cfg := stream.DefaultConfig()
	cfg.Callbacks = cb
	s := stream.New(h, cfg)

	t.Run("counts traffic", func(t *testing.T) {
		require := require.New(t)
		require.Nil(s.Start(nil))
		_, err := s.Write([]byte("world"))
		require.Nil(err)
		require.Eventually(func() bool {
			return h.Unread() == 0 && h.Output() == "world"
		}, time.Second, time.Millisecond)

		fail := errors.New("fail")
		h.RaiseRead(fail)
		<-s.Done()

		require.Equal([][]byte{[]byte("hello")}, reads)
		require.Equal([]error{fail}, failures)
		require.Equal(5.0, testutil.ToFloat64(c.BytesRead.WithLabelValues("s1")))
		require.Equal(5.0, testutil.ToFloat64(c.BytesWritten.WithLabelValues("s1")))
		require.Equal(1.0, testutil.ToFloat64(c.Writes.WithLabelValues("s1")))
		require.Equal(1.0, testutil.ToFloat64(c.Closes.WithLabelValues("s1")))
		require.Equal(1.0, testutil.ToFloat64(c.Failures.WithLabelValues("s1")))
		require.Greater(testutil.ToFloat64(c.Loops.WithLabelValues("s1")), 0.0)
		require.Equal(0.0, testutil.ToFloat64(c.Buffered.WithLabelValues("s1")))
	})

	t.Run("counts callback failures", func(t *testing.T) {
		require := require.New(t)
		h := mocks.NewHandle()
		cfg := stream.DefaultConfig()
		cfg.Callbacks = c.Instrument("s2", stream.Callbacks{})
		s := stream.New(h, cfg)
		require.Nil(s.Start(nil))
		s.WriteAsync([]byte("boom"), func([]byte, int, ...interface{}) {
			panic("boom")
		})
		s.Stop()
		require.Equal(1.0, testutil.ToFloat64(c.CallbackFailures.WithLabelValues("s2", "wrote")))
	})

	t.Run("forget", func(t *testing.T) {
		require := require.New(t)
		require.Greater(testutil.CollectAndCount(c.BytesRead), 0)
		c.Forget("s1")
		c.Forget("s2")
		require.Equal(0, testutil.CollectAndCount(c.BytesRead))
		require.Equal(0, testutil.CollectAndCount(c.CallbackFailures))
	})
}

package atomic

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBool(t *testing.T) {
	t.Run("get and set", func(t *testing.T) {
		require := require.New(t)
		var b Bool
		require.False(b.Get())
		b.Set(true)
		require.True(b.Get())
		b.Set(false)
		require.False(b.Get())
		require.True(NewBool(true).Get())
	})

	t.Run("compare and swap", func(t *testing.T) {
		require := require.New(t)
		b := NewBool(true)
		require.False(b.CompareAndSwap(false, true))
		require.True(b.CompareAndSwap(true, false))
		require.False(b.Get())
	})

	t.Run("single winner", func(t *testing.T) {
		b := NewBool(true)
		var wins int32
		wg := &sync.WaitGroup{}
		for i := 0; i < 16; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if b.CompareAndSwap(true, false) {
					atomic.AddInt32(&wins, 1)
				}
			}()
		}
		wg.Wait()
		require.EqualValues(t, 1, wins)
	})
}

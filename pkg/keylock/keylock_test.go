package keylock

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLockSerializesSameKey(t *testing.T) {
	m := New()
	var (
		wg      sync.WaitGroup
		counter int
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := m.Lock("s1")
			defer unlock()
			v := counter
			counter = v + 1
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, counter)
	assert.Zero(t, m.len(), "idle keys are dropped")
}

func TestTryLock(t *testing.T) {
	m := New()
	unlock, ok := m.TryLock("s1")
	require.True(t, ok)

	_, ok = m.TryLock("s1")
	assert.False(t, ok, "held key")

	other, ok := m.TryLock("s2")
	require.True(t, ok, "other keys are independent")
	other()

	unlock()
	again, ok := m.TryLock("s1")
	require.True(t, ok)
	again()
	assert.Zero(t, m.len())
}

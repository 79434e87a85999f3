package core

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBarrierReleasesBothParties(t *testing.T) {
	b := NewBarrier(2)
	var arrived atomic.Int32

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for round := 0; round < 100; round++ {
				arrived.Add(1)
				assert.True(t, b.Wait())
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(200), arrived.Load())
}

func TestBarrierBlocksUntilSecondParty(t *testing.T) {
	b := NewBarrier(2)
	released := make(chan struct{})
	go func() {
		b.Wait()
		close(released)
	}()

	select {
	case <-released:
		t.Fatal("barrier released with a single party")
	case <-time.After(20 * time.Millisecond):
	}

	assert.True(t, b.Wait())
	<-released
}

func TestBarrierBreakUnblocksWaiters(t *testing.T) {
	b := NewBarrier(2)
	done := make(chan bool)
	go func() {
		done <- b.Wait()
	}()

	time.Sleep(10 * time.Millisecond)
	b.Break()

	assert.False(t, <-done)
	assert.False(t, b.Wait())
	assert.True(t, b.Broken())
}

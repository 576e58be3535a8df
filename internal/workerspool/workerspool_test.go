package workerspool

import (
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/onegoml/onego/types/xsync"
	"github.com/stretchr/testify/assert"
)

func TestPool_WaitToStart(t *testing.T) {
	pool := New()
	wantTasks := 5
	pool.SetMaxParallelism(wantTasks)

	var count atomic.Int32
	var wg sync.WaitGroup
	wg.Add(wantTasks)
	for range wantTasks {
		go func() {
			defer wg.Done()
			pool.WaitToStart(func() {
				count.Add(1)
				runtime.Gosched()
			})
		}()
	}

	done := xsync.NewLatch()
	go func() {
		wg.Wait()
		done.Trigger()
	}()
	select {
	case <-done.WaitChan():
	case <-time.After(time.Second):
		t.Fatal("timeout before all tasks were dispatched")
	}
	assert.Equal(t, int32(wantTasks), count.Load())
}

func TestPool_Disabled_RunsInline(t *testing.T) {
	pool := New()
	pool.SetMaxParallelism(0)

	var count atomic.Int32
	pool.WaitToStart(func() { count.Add(1) })
	assert.Equal(t, int32(1), count.Load())
}

func TestPool_Unlimited(t *testing.T) {
	pool := New()
	pool.SetMaxParallelism(-1)
	assert.True(t, pool.IsUnlimited())

	var wg sync.WaitGroup
	var count atomic.Int32
	for range 20 {
		wg.Add(1)
		pool.WaitToStart(func() {
			defer wg.Done()
			count.Add(1)
		})
	}
	wg.Wait()
	assert.Equal(t, int32(20), count.Load())
}

func TestPool_StartIfAvailable_RespectsLimit(t *testing.T) {
	pool := New()
	pool.SetMaxParallelism(1)

	block := xsync.NewLatch()
	started := xsync.NewLatch()
	ok := pool.StartIfAvailable(func() {
		started.Trigger()
		block.Wait()
	})
	assert.True(t, ok)
	started.Wait()

	// The pool allows goroutineToParallelismRatio*maxParallelism concurrent tasks before it's
	// considered full, so saturate it before asserting rejection.
	for pool.StartIfAvailable(func() { block.Wait() }) {
	}
	block.Trigger()
}

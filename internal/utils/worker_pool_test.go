package utils_test

import (
	"sync"
	"sync/atomic"
	"testing"

	"gpsbridge/internal/utils"

	"github.com/stretchr/testify/assert"
)

// TestWorkerPool_RunsAllJobs tests that every submitted job executes
// before Shutdown returns.
func TestWorkerPool_RunsAllJobs(t *testing.T) {
	pool := utils.NewWorkerPool(4, 8)

	var counter atomic.Int64
	for i := 0; i < 100; i++ {
		pool.Submit(func() { counter.Add(1) })
	}
	pool.Shutdown()

	assert.Equal(t, int64(100), counter.Load())
}

// TestWorkerPool_RunsConcurrently tests that jobs run on more than one
// goroutine.
func TestWorkerPool_RunsConcurrently(t *testing.T) {
	pool := utils.NewWorkerPool(2, 4)

	var started sync.WaitGroup
	started.Add(2)
	barrier := make(chan struct{})

	// Both jobs block until each has started, which requires two workers.
	for i := 0; i < 2; i++ {
		pool.Submit(func() {
			started.Done()
			<-barrier
		})
	}

	started.Wait()
	close(barrier)
	pool.Shutdown()
}

// TestWorkerPool_ClampsWorkerCount tests that nonsensical sizes still
// produce a working pool.
func TestWorkerPool_ClampsWorkerCount(t *testing.T) {
	pool := utils.NewWorkerPool(0, -1)

	done := make(chan struct{})
	pool.Submit(func() { close(done) })
	<-done
	pool.Shutdown()
}

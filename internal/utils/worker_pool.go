package utils

import "sync"

// Job is a unit of work executed by the pool.
type Job func()

// WorkerPool runs submitted jobs on a fixed set of goroutines.
type WorkerPool struct {
	jobQueue chan Job
	wg       sync.WaitGroup
}

// NewWorkerPool starts workers goroutines consuming from a queue of the
// given size.
func NewWorkerPool(workers, queueSize int) *WorkerPool {
	if workers <= 0 {
		workers = 1
	}
	if queueSize < workers {
		queueSize = workers
	}
	pool := &WorkerPool{jobQueue: make(chan Job, queueSize)}
	pool.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer pool.wg.Done()
			for job := range pool.jobQueue {
				job()
			}
		}()
	}
	return pool
}

// Submit enqueues a job, blocking while the queue is full.
func (p *WorkerPool) Submit(job Job) {
	p.jobQueue <- job
}

// Shutdown stops accepting jobs and waits for queued ones to finish.
func (p *WorkerPool) Shutdown() {
	close(p.jobQueue)
	p.wg.Wait()
}

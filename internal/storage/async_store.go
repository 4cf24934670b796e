package storage

import (
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"gpsbridge/internal/models"
)

// AsyncRecorder decouples sink writes from the publishing path. Points
// are queued into a bounded buffer and written by a small worker pool;
// when the buffer is full the point is dropped, mirroring how the bridge
// tolerates overrun on its serial feed rather than stalling it.
type AsyncRecorder struct {
	repo   *Repository
	queue  chan models.Position
	wg     sync.WaitGroup
	logger zerolog.Logger

	mu     sync.RWMutex
	closed bool

	queued  atomic.Uint64
	saved   atomic.Uint64
	dropped atomic.Uint64
	errors  atomic.Uint64
}

// NewAsyncRecorder starts workers draining a queue of the given size.
func NewAsyncRecorder(repo *Repository, buffer, workers int, logger zerolog.Logger) *AsyncRecorder {
	if buffer <= 0 {
		buffer = 1
	}
	if workers <= 0 {
		workers = 1
	}
	a := &AsyncRecorder{
		repo:   repo,
		queue:  make(chan models.Position, buffer),
		logger: logger,
	}
	a.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go a.worker()
	}
	return a
}

func (a *AsyncRecorder) worker() {
	defer a.wg.Done()
	for p := range a.queue {
		if err := a.repo.Save(p); err != nil {
			a.errors.Add(1)
		} else {
			a.saved.Add(1)
		}
	}
}

// Record enqueues a point without blocking. Points arriving while the
// queue is full are dropped and counted.
func (a *AsyncRecorder) Record(p models.Position) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return
	}
	select {
	case a.queue <- p:
		a.queued.Add(1)
	default:
		a.dropped.Add(1)
		a.logger.Debug().Str("device_id", p.DeviceID).Msg("Track queue full, dropping point")
	}
}

// Stats returns the recorder counters.
func (a *AsyncRecorder) Stats() models.StorageStats {
	return models.StorageStats{
		Sinks:   a.repo.SinkNames(),
		Queued:  a.queued.Load(),
		Saved:   a.saved.Load(),
		Dropped: a.dropped.Load(),
		Errors:  a.errors.Load(),
	}
}

// Close drains the queue, stops the workers and closes the sinks.
func (a *AsyncRecorder) Close() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	a.mu.Unlock()

	close(a.queue)
	a.wg.Wait()
	return a.repo.Close()
}

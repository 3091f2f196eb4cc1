package queue

import (
	"context"
	"hash/fnv"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/sweetshop/sweet-shop/internal/api/metrics"
	"github.com/sweetshop/sweet-shop/internal/core/domain"
	"github.com/sweetshop/sweet-shop/internal/core/ports"
)

const (
	defaultWorkers = 4
	channelBuffer  = 256
	recordTimeout  = 5 * time.Second
)

// Dispatcher routes stock movements to a fixed set of workers using
// consistent hashing on the sweet id, so movements of one sweet are recorded
// in the order they were enqueued.
type Dispatcher struct {
	workers []chan domain.StockMovement
	repo    ports.MovementRepository
	log     zerolog.Logger

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewDispatcher creates a Dispatcher with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewDispatcher(numWorkers int, repo ports.MovementRepository, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &Dispatcher{
		workers: make([]chan domain.StockMovement, numWorkers),
		repo:    repo,
		log:     log,
	}
	for i := range d.workers {
		d.workers[i] = make(chan domain.StockMovement, channelBuffer)
	}
	return d
}

// Start launches all worker goroutines. Workers exit once Close has been
// called and their channel is drained.
func (d *Dispatcher) Start() {
	for i, ch := range d.workers {
		d.wg.Add(1)
		go d.runWorker(i, ch)
	}
}

// Enqueue hands a movement to the worker responsible for its sweet. It never
// blocks the caller: when the worker's buffer is full the movement is dropped
// and logged.
func (d *Dispatcher) Enqueue(m domain.StockMovement) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		metrics.MovementsDroppedTotal.Inc()
		d.log.Warn().Str("sweet_id", m.SweetID).Msg("dispatcher closed, movement dropped")
		return
	}

	idx := d.shardIndex(m.SweetID)
	select {
	case d.workers[idx] <- m:
		metrics.MovementsQueueDepth.WithLabelValues(strconv.Itoa(idx)).Set(float64(len(d.workers[idx])))
	default:
		metrics.MovementsDroppedTotal.Inc()
		d.log.Warn().Str("sweet_id", m.SweetID).Int("worker_id", idx).Msg("movement queue full, movement dropped")
	}
}

// Close stops accepting movements and waits until queued ones are recorded
// or ctx expires.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		for _, ch := range d.workers {
			close(ch)
		}
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// shardIndex maps a sweet id deterministically to a worker index.
func (d *Dispatcher) shardIndex(sweetID string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(sweetID))
	return int(h.Sum32() % uint32(len(d.workers)))
}

func (d *Dispatcher) runWorker(id int, ch <-chan domain.StockMovement) {
	defer d.wg.Done()
	label := strconv.Itoa(id)

	for m := range ch {
		metrics.MovementsQueueDepth.WithLabelValues(label).Set(float64(len(ch)))

		ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
		err := d.repo.Insert(ctx, &m)
		cancel()

		if err != nil {
			metrics.MovementsRecordedTotal.WithLabelValues(string(m.Kind), "error").Inc()
			d.log.Error().Err(err).
				Str("sweet_id", m.SweetID).
				Int("worker_id", id).
				Msg("movement recording failed")
			continue
		}
		metrics.MovementsRecordedTotal.WithLabelValues(string(m.Kind), "ok").Inc()
	}
}

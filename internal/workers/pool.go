package workers

import (
	"errors"
	"sync"
	"sync/atomic"

	"media-picker/internal/logging"
	"media-picker/internal/metrics"
)

// ErrPoolClosed is returned by Submit after Close has been called.
var ErrPoolClosed = errors.New("worker pool is closed")

// Pool is a fixed set of goroutines draining a shared task queue.
// All blocking pipeline work (queries, copies, decodes, transcodes) runs here.
type Pool struct {
	tasks  chan func()
	wg     sync.WaitGroup
	mu     sync.RWMutex
	closed bool
	active atomic.Int64
}

// NewPool starts size workers. queue is the task channel buffer; Submit
// blocks once it is full.
func NewPool(size, queue int) *Pool {
	if size < 1 {
		size = 1
	}
	if queue < 0 {
		queue = 0
	}

	p := &Pool{tasks: make(chan func(), queue)}
	for i := 0; i < size; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}

	metrics.WorkerPoolSize.Set(float64(size))
	logging.Debug("Worker pool started with %d workers (queue %d)", size, queue)
	return p
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()

	for task := range p.tasks {
		metrics.WorkerPoolQueueDepth.Set(float64(len(p.tasks)))
		p.run(id, task)
	}
}

func (p *Pool) run(id int, task func()) {
	p.active.Add(1)
	metrics.WorkerPoolActive.Set(float64(p.active.Load()))
	defer func() {
		p.active.Add(-1)
		metrics.WorkerPoolActive.Set(float64(p.active.Load()))
		if r := recover(); r != nil {
			metrics.WorkerPoolPanics.Inc()
			logging.Error("worker %d: task panicked: %v", id, r)
		}
	}()

	task()
	metrics.WorkerPoolTasksTotal.Inc()
}

// Submit queues task for execution.
func (p *Pool) Submit(task func()) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return ErrPoolClosed
	}

	p.tasks <- task
	metrics.WorkerPoolQueueDepth.Set(float64(len(p.tasks)))
	return nil
}

// Active returns the number of tasks currently executing.
func (p *Pool) Active() int {
	return int(p.active.Load())
}

// Close stops accepting tasks and waits for queued ones to finish.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.tasks)
	p.mu.Unlock()

	p.wg.Wait()
	logging.Debug("Worker pool stopped")
}

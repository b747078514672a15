package orchestrator

import (
	"sync"
)

// Loop is the caller's callback thread: one goroutine running posted
// funcs in FIFO order. Busy indicator signals and result callbacks are only
// ever invoked from it.
type Loop struct {
	tasks  chan func()
	done   chan struct{}
	mu     sync.RWMutex
	closed bool
}

// NewLoop starts a Loop with a task buffer of size buffer.
func NewLoop(buffer int) *Loop {
	l := &Loop{
		tasks: make(chan func(), max(buffer, 0)),
		done:  make(chan struct{}),
	}
	go l.run()
	return l
}

func (l *Loop) run() {
	defer close(l.done)
	for fn := range l.tasks {
		fn()
	}
}

// Post queues fn. After Close, fn runs on the calling goroutine instead.
func (l *Loop) Post(fn func()) {
	l.mu.RLock()
	if l.closed {
		l.mu.RUnlock()
		fn()
		return
	}
	l.tasks <- fn
	l.mu.RUnlock()
}

// Close drains queued funcs and stops the loop.
func (l *Loop) Close() {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.closed = true
	close(l.tasks)
	l.mu.Unlock()
	<-l.done
}

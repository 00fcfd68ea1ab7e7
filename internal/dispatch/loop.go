package dispatch

import (
	"sync"
)

// Loop is a headless Dispatcher: a single goroutine draining an unbounded
// FIFO. Submissions never block and are never dropped while the loop runs.
type Loop struct {
	mu      sync.Mutex
	cond    *sync.Cond
	queue   []func()
	running bool
	stopped bool
	done    chan struct{}
}

func NewLoop() *Loop {
	l := &Loop{done: make(chan struct{})}
	l.cond = sync.NewCond(&l.mu)
	go l.run()
	return l
}

func (l *Loop) Do(fn func()) {
	if fn == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.stopped {
		return
	}
	l.queue = append(l.queue, fn)
	l.cond.Broadcast()
}

func (l *Loop) run() {
	defer close(l.done)
	for {
		l.mu.Lock()
		for len(l.queue) == 0 && !l.stopped {
			l.cond.Wait()
		}
		if len(l.queue) == 0 && l.stopped {
			l.mu.Unlock()
			return
		}
		fn := l.queue[0]
		l.queue[0] = nil
		l.queue = l.queue[1:]
		l.running = true
		l.mu.Unlock()

		fn()

		l.mu.Lock()
		l.running = false
		l.cond.Broadcast()
		l.mu.Unlock()
	}
}

// Flush blocks until every callback submitted so far, and any callbacks they
// submit in turn, have run. Must not be called from the loop itself.
func (l *Loop) Flush() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for (len(l.queue) > 0 || l.running) && !l.isDone() {
		l.cond.Wait()
	}
}

func (l *Loop) isDone() bool {
	select {
	case <-l.done:
		return true
	default:
		return false
	}
}

// Stop runs what is already queued, rejects new work and waits for the
// goroutine to exit.
func (l *Loop) Stop() {
	l.mu.Lock()
	if !l.stopped {
		l.stopped = true
		l.cond.Broadcast()
	}
	l.mu.Unlock()
	<-l.done
}

// Package loop provides the primary execution context of a client: a
// single-consumer queue of functions run one at a time on the goroutine that
// calls Run. Work finished on other goroutines is marshalled back with Post.
package loop

import (
	"context"
	"sync"
)

// Dispatcher schedules fn on the primary context. It reports false when the
// context has been torn down; fn is then dropped and never runs.
type Dispatcher interface {
	Post(fn func()) bool
}

// Loop is a Dispatcher backed by a FIFO queue.
type Loop struct {
	mu     sync.Mutex
	queue  []func()
	wake   chan struct{}
	done   chan struct{}
	closed bool
}

// New creates a loop. Nothing runs until Run is called.
func New() *Loop {
	return &Loop{
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
}

// Post enqueues fn. It never blocks, so secondary goroutines can always
// hand over a result.
func (l *Loop) Post(fn func()) bool {
	if fn == nil {
		return false
	}
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return false
	}
	l.queue = append(l.queue, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
	return true
}

// Run executes posted functions in order until ctx ends or Close is called.
// Functions still queued at that point are discarded.
func (l *Loop) Run(ctx context.Context) error {
	defer l.Close()
	for {
		for {
			fn, ok := l.next()
			if !ok {
				break
			}
			fn()
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.done:
			return nil
		case <-l.wake:
		}
	}
}

func (l *Loop) next() (func(), bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed || len(l.queue) == 0 {
		return nil, false
	}
	fn := l.queue[0]
	l.queue[0] = nil
	l.queue = l.queue[1:]
	return fn, true
}

// Close tears the loop down. Later Posts report false. Safe to call more than once
// and from inside a posted function.
func (l *Loop) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	l.closed = true
	l.queue = nil
	close(l.done)
}

// Closed reports whether the loop has been torn down.
func (l *Loop) Closed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closed
}

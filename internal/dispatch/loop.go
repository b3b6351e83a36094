// Package dispatch provides the single-threaded execution context each
// window runs on. Work posted to a Loop runs one function at a time, in
// post order, on the loop's own goroutine.
package dispatch

import (
	"context"
	"sync"

	"pkt.systems/pslog"
	"pkt.systems/tabtear/schema"
)

// Options configures a Loop.
type Options struct {
	// MaxPending bounds the queue; zero means schema.DefaultMailboxDepth.
	MaxPending int
	Logger     pslog.Logger
}

// Loop is a FIFO work queue drained by one goroutine.
type Loop struct {
	name    string
	max     int
	log     pslog.Logger
	mu      sync.Mutex
	queue   []func()
	stopped bool
	started bool
	wake    chan struct{}
	done    chan struct{}
}

// New constructs a Loop. Call Start to begin draining it.
func New(name string, opts Options) *Loop {
	logger := opts.Logger
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	max := opts.MaxPending
	if max <= 0 {
		max = schema.DefaultMailboxDepth
	}
	return &Loop{
		name: name,
		max:  max,
		log:  logger.With("loop", name),
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
}

// Name returns the loop name.
func (l *Loop) Name() string {
	return l.name
}

// Start runs the loop on a new goroutine until ctx ends or Stop is called.
func (l *Loop) Start(ctx context.Context) {
	l.mu.Lock()
	if l.started || l.stopped {
		l.mu.Unlock()
		return
	}
	l.started = true
	l.mu.Unlock()
	go l.run(ctx)
}

// Post enqueues fn without blocking.
func (l *Loop) Post(fn func()) error {
	if fn == nil {
		return nil
	}
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return schema.ErrLoopStopped
	}
	if len(l.queue) >= l.max {
		pending := len(l.queue)
		l.mu.Unlock()
		l.log.Warn("dispatch queue full", "pending", pending)
		return schema.ErrMailboxFull
	}
	l.queue = append(l.queue, fn)
	l.mu.Unlock()
	select {
	case l.wake <- struct{}{}:
	default:
	}
	return nil
}

// Do runs fn on the loop and waits for it to finish. It must not be called
// from the loop's own goroutine.
func (l *Loop) Do(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	if err := l.Post(func() {
		defer close(finished)
		fn()
	}); err != nil {
		return err
	}
	select {
	case <-finished:
		return nil
	case <-l.done:
		// The loop may have run fn right before stopping.
		select {
		case <-finished:
			return nil
		default:
			return schema.ErrLoopStopped
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop stops accepting work. Queued work that has not started is dropped.
// Stop does not wait and is safe to call from the loop itself.
func (l *Loop) Stop() {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return
	}
	l.stopped = true
	dropped := len(l.queue)
	l.queue = nil
	started := l.started
	l.mu.Unlock()
	if dropped > 0 {
		l.log.Debug("dispatch stop dropped work", "count", dropped)
	}
	if !started {
		close(l.done)
		return
	}
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Done is closed once the loop goroutine has exited.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}

// Stopped reports whether Stop has been called.
func (l *Loop) Stopped() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stopped
}

func (l *Loop) run(ctx context.Context) {
	defer close(l.done)
	l.log.Trace("dispatch loop start")
	for {
		fn, ok := l.next()
		if !ok {
			l.log.Trace("dispatch loop exit")
			return
		}
		if fn != nil {
			l.invoke(fn)
			continue
		}
		select {
		case <-l.wake:
		case <-ctx.Done():
			l.Stop()
			l.log.Trace("dispatch loop exit", "err", ctx.Err())
			return
		}
	}
}

// next pops the head of the queue. It returns ok=false once stopped and a
// nil fn when the queue is empty.
func (l *Loop) next() (func(), bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.stopped {
		return nil, false
	}
	if len(l.queue) == 0 {
		return nil, true
	}
	fn := l.queue[0]
	l.queue[0] = nil
	l.queue = l.queue[1:]
	return fn, true
}

func (l *Loop) invoke(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.log.Error("dispatch work panicked", "panic", r)
		}
	}()
	fn()
}

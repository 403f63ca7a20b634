// Package looper provides the single scheduling context that owns all overlay
// state. Work from other goroutines is posted as tasks and executed in order on
// one goroutine, so the state it touches needs no further locking.
package looper

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mobile-next/omniclick/utils"
)

// ErrStopped is returned when work is submitted to a looper that has been stopped.
var ErrStopped = errors.New("looper stopped")

type Looper struct {
	mu      sync.Mutex
	queue   []func()
	stopped bool

	wake     chan struct{}
	quit     chan struct{}
	done     chan struct{}
	startMu  sync.Once
	stopOnce sync.Once
}

func New() *Looper {
	return &Looper{
		wake: make(chan struct{}, 1),
		quit: make(chan struct{}),
		done: make(chan struct{}),
	}
}

// Start launches the loop goroutine. Calling it more than once has no effect.
func (l *Looper) Start() {
	l.startMu.Do(func() {
		go l.run()
	})
}

// Stop ends the loop and waits for the task in progress to return. Tasks that
// have not started yet are discarded.
func (l *Looper) Stop() {
	l.stopOnce.Do(func() {
		l.mu.Lock()
		l.stopped = true
		l.queue = nil
		l.mu.Unlock()
		close(l.quit)
	})
	// Start may never have been called
	l.startMu.Do(func() { close(l.done) })
	<-l.done
}

// Done is closed once the loop goroutine has exited.
func (l *Looper) Done() <-chan struct{} {
	return l.done
}

// Post queues fn for execution on the loop. It never blocks; it returns false
// when the looper has been stopped.
func (l *Looper) Post(fn func()) bool {
	l.mu.Lock()
	if l.stopped {
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

// PostDelayed queues fn to run on the loop after d. The returned handle cancels it.
func (l *Looper) PostDelayed(d time.Duration, fn func()) *Pending {
	p := &Pending{}
	p.timer = time.AfterFunc(d, func() {
		l.Post(func() {
			if p.cancelled.Load() {
				return
			}
			p.fired.Store(true)
			fn()
		})
	})
	return p
}

// Call runs fn on the loop and waits for it to return. It must not be called
// from the loop goroutine itself.
func (l *Looper) Call(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	if !l.Post(func() {
		defer close(finished)
		fn()
	}) {
		return ErrStopped
	}

	select {
	case <-finished:
		return nil
	case <-l.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *Looper) run() {
	defer close(l.done)

	for {
		select {
		case <-l.quit:
			return
		case <-l.wake:
		}

		for {
			l.mu.Lock()
			if len(l.queue) == 0 {
				l.mu.Unlock()
				break
			}
			fn := l.queue[0]
			l.queue[0] = nil
			l.queue = l.queue[1:]
			l.mu.Unlock()

			l.exec(fn)

			select {
			case <-l.quit:
				return
			default:
			}
		}
	}
}

func (l *Looper) exec(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			utils.Error("looper task panicked: %v", r)
		}
	}()
	fn()
}

// Pending is a delayed task that has not necessarily run yet.
type Pending struct {
	timer     *time.Timer
	cancelled atomic.Bool
	fired     atomic.Bool
}

// Cancel prevents the task from running if it has not started. Safe to call
// more than once and on a nil handle.
func (p *Pending) Cancel() {
	if p == nil {
		return
	}
	p.cancelled.Store(true)
	p.timer.Stop()
}

// Fired reports whether the task ran.
func (p *Pending) Fired() bool {
	return p != nil && p.fired.Load()
}

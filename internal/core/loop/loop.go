// Package loop provides the single cooperative event loop every engine
// callback runs on. Producer goroutines hand work over with Post; the loop
// runs each closure to completion before taking the next one.
package loop

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/zeusync/xsyncd/internal/core/observability/log"
)

const defaultQueueSize = 64

// Stopper cancels a pending timer. *time.Timer satisfies it.
type Stopper interface {
	Stop() bool
}

// Scheduler posts work to the loop, immediately or after a delay.
type Scheduler interface {
	Post(fn func()) bool
	AfterFunc(d time.Duration, fn func()) Stopper
}

var _ Scheduler = (*Loop)(nil)

type Loop struct {
	tasks  chan func()
	done   chan struct{}
	once   sync.Once
	logger log.Log
}

func New(logger log.Log, queueSize int) *Loop {
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	return &Loop{
		tasks:  make(chan func(), queueSize),
		done:   make(chan struct{}),
		logger: logger.With(log.String("component", "loop")),
	}
}

// Post queues fn for execution on the loop goroutine. It blocks while the
// queue is full and returns false once the loop has stopped.
func (l *Loop) Post(fn func()) bool {
	select {
	case <-l.done:
		return false
	default:
	}
	select {
	case l.tasks <- fn:
		return true
	case <-l.done:
		return false
	}
}

// AfterFunc posts fn to the loop once d has elapsed.
func (l *Loop) AfterFunc(d time.Duration, fn func()) Stopper {
	return time.AfterFunc(d, func() { l.Post(fn) })
}

// Run executes posted closures until ctx is cancelled. Closures still queued
// at that point are dropped.
func (l *Loop) Run(ctx context.Context) error {
	defer l.once.Do(func() { close(l.done) })

	l.logger.Debug("Event loop started")
	for {
		select {
		case <-ctx.Done():
			l.logger.Debug("Event loop stopped")
			return nil
		case fn := <-l.tasks:
			l.run(fn)
		}
	}
}

// Done is closed when Run returns.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}

func (l *Loop) run(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("Loop callback panicked", log.Error(fmt.Errorf("%v", r)))
		}
	}()
	fn()
}

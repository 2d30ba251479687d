package dispatch

import (
	"context"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/tapwire/agent/pkg/input"
)

// Loop hands adapted events to a consumer running on its own goroutine,
// preserving the order of sink calls across native events. The queue is
// bounded; when the consumer falls behind, new events are dropped with a
// warning rather than stalling the delivering goroutine.
//
// Suppression decisions cannot be made behind a Loop: by the time the
// consumer runs, the adapter has already answered the platform. Consumers
// that need SetPreventDefault belong in a synchronous Fanout branch instead.
type Loop struct {
	consumer input.Sink
	queue    chan func()
	logger   *zap.Logger

	accepting atomic.Bool
	dropped   atomic.Uint64
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewLoop starts the consumer goroutine with a queue of queueSize pending
// sink calls.
func NewLoop(consumer input.Sink, queueSize int, logger *zap.Logger) *Loop {
	if queueSize < 1 {
		queueSize = 1
	}

	l := &Loop{
		consumer: consumer,
		queue:    make(chan func(), queueSize),
		logger:   logger.Named("dispatch"),
	}
	l.accepting.Store(true)

	go l.run()
	return l
}

func (l *Loop) run() {
	for fn := range l.queue {
		l.invoke(fn)
	}
}

// invoke runs one queued sink call. wg.Done is called here to match the
// wg.Add in submit.
func (l *Loop) invoke(fn func()) {
	defer l.wg.Done()
	fn()
}

// Shutdown stops accepting events and waits for the queue to drain, up to
// the context deadline. The queue channel is closed only after the drain
// wait, so producers mid-submit never hit a closed channel.
func (l *Loop) Shutdown(ctx context.Context) {
	l.accepting.Store(false)

	done := make(chan struct{})
	go func() {
		l.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		l.logger.Info("dispatch loop drained")
	case <-ctx.Done():
		l.logger.Warn("dispatch loop drain timed out")
	}

	// Close the queue so the consumer goroutine exits and is not leaked.
	l.closeOnce.Do(func() {
		close(l.queue)
	})
}

// Dropped reports how many sink calls were rejected because the queue was
// full or the loop was shut down.
func (l *Loop) Dropped() uint64 {
	return l.dropped.Load()
}

// submit enqueues one sink call. wg.Add is called here (before enqueue) to
// prevent a race with Shutdown's drain wait.
func (l *Loop) submit(fn func()) {
	if !l.accepting.Load() {
		l.dropped.Add(1)
		return
	}

	l.wg.Add(1)
	select {
	case l.queue <- fn:
	default:
		l.wg.Done() // undo the Add since the call was not enqueued
		l.dropped.Add(1)
		l.logger.Warn("dispatch queue full, event dropped")
	}
}

func (l *Loop) OnTouchStart(touches []*input.TouchEvent) {
	l.submit(func() { l.consumer.OnTouchStart(touches) })
}

func (l *Loop) OnTouchEnd(touches []*input.TouchEvent) {
	l.submit(func() { l.consumer.OnTouchEnd(touches) })
}

func (l *Loop) OnTouchMove(touches []*input.TouchEvent) {
	l.submit(func() { l.consumer.OnTouchMove(touches) })
}

func (l *Loop) OnPointerStart(ev *input.PointerEvent) {
	l.submit(func() { l.consumer.OnPointerStart(ev) })
}

func (l *Loop) OnPointerEnd(ev *input.PointerEvent) {
	l.submit(func() { l.consumer.OnPointerEnd(ev) })
}

func (l *Loop) OnPointerDrag(ev *input.PointerEvent) {
	l.submit(func() { l.consumer.OnPointerDrag(ev) })
}

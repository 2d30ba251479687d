package dispatch

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/tapwire/agent/pkg/input"
)

type traceSink struct {
	mu    sync.Mutex
	trace []string
	block chan struct{}
}

func (s *traceSink) record(name string) {
	if s.block != nil {
		<-s.block
	}
	s.mu.Lock()
	s.trace = append(s.trace, name)
	s.mu.Unlock()
}

func (s *traceSink) events() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.trace))
	copy(out, s.trace)
	return out
}

func (s *traceSink) OnTouchStart([]*input.TouchEvent)   { s.record("touchStart") }
func (s *traceSink) OnTouchEnd([]*input.TouchEvent)     { s.record("touchEnd") }
func (s *traceSink) OnTouchMove([]*input.TouchEvent)    { s.record("touchMove") }
func (s *traceSink) OnPointerStart(*input.PointerEvent) { s.record("pointerStart") }
func (s *traceSink) OnPointerEnd(*input.PointerEvent)   { s.record("pointerEnd") }
func (s *traceSink) OnPointerDrag(*input.PointerEvent)  { s.record("pointerDrag") }

func TestFanoutOrderAndSuppression(t *testing.T) {
	first := &traceSink{}
	second := &traceSink{}
	f := NewFanout(first, second)

	flag := input.NewFlag()
	touch := input.NewTouchEvent(1, 0, 0, 1, 0, 0, flag)
	f.OnTouchStart([]*input.TouchEvent{touch})

	if len(first.events()) != 1 || len(second.events()) != 1 {
		t.Fatal("both branches should receive the call")
	}

	// A branch setting suppression is visible right after the fan-out
	// returns, which is what the adapter relies on.
	touch.SetPreventDefault(true)
	if !flag.Get() {
		t.Fatal("suppression set through a fanned-out record must be visible")
	}
}

func TestFanoutEmpty(t *testing.T) {
	f := NewFanout()
	f.OnTouchMove(nil)
	f.OnPointerDrag(input.NewPointerEvent(0, 0, 0, true))
}

func TestLoopPreservesOrder(t *testing.T) {
	sink := &traceSink{}
	loop := NewLoop(sink, 16, zap.NewNop())

	loop.OnTouchStart(nil)
	loop.OnPointerStart(input.NewPointerEvent(0, 0, 0, true))
	loop.OnTouchMove(nil)
	loop.OnPointerDrag(input.NewPointerEvent(0, 0, 0, true))
	loop.OnTouchEnd(nil)
	loop.OnPointerEnd(input.NewPointerEvent(0, 0, 0, true))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	loop.Shutdown(ctx)

	want := []string{"touchStart", "pointerStart", "touchMove", "pointerDrag", "touchEnd", "pointerEnd"}
	got := sink.events()
	if len(got) != len(want) {
		t.Fatalf("events = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("event %d = %q, want %q (full: %v)", i, got[i], want[i], got)
		}
	}
}

func TestLoopDropsWhenFull(t *testing.T) {
	block := make(chan struct{})
	sink := &traceSink{block: block}
	loop := NewLoop(sink, 1, zap.NewNop())

	loop.OnTouchMove(nil) // picked up by the consumer, blocks
	time.Sleep(10 * time.Millisecond)
	loop.OnTouchMove(nil) // fills the queue

	loop.OnTouchMove(nil) // must be dropped
	if loop.Dropped() != 1 {
		t.Fatalf("dropped = %d, want 1", loop.Dropped())
	}

	close(block)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	loop.Shutdown(ctx)

	if got := len(sink.events()); got != 2 {
		t.Fatalf("consumer saw %d events, want 2", got)
	}
}

func TestLoopConcurrentSubmitAndShutdown(t *testing.T) {
	for i := 0; i < 100; i++ {
		sink := &traceSink{}
		loop := NewLoop(sink, 4, zap.NewNop())

		var wg sync.WaitGroup
		start := make(chan struct{})
		for g := 0; g < 4; g++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				<-start
				for j := 0; j < 50; j++ {
					loop.OnTouchMove(nil)
				}
			}()
		}

		close(start)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		loop.Shutdown(ctx)
		cancel()
		wg.Wait()
	}
}

func TestLoopDrainRespectsDeadline(t *testing.T) {
	block := make(chan struct{})
	sink := &traceSink{block: block}
	loop := NewLoop(sink, 4, zap.NewNop())

	loop.OnTouchMove(nil) // consumer blocks on this one

	start := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	loop.Shutdown(ctx)

	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Fatalf("drain should have timed out in ~100ms, took %v", elapsed)
	}

	close(block) // cleanup
}

func TestLoopRejectsAfterShutdown(t *testing.T) {
	sink := &traceSink{}
	loop := NewLoop(sink, 4, zap.NewNop())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	loop.Shutdown(ctx)

	loop.OnTouchStart(nil)
	if loop.Dropped() != 1 {
		t.Fatalf("dropped = %d, want 1", loop.Dropped())
	}
	if len(sink.events()) != 0 {
		t.Fatal("no events should reach the consumer after shutdown")
	}
}

// Package dispatch carries adapted events from the adapter to their
// consumers: a synchronous fan-out stage where suppression decisions are
// made, and a bounded single-consumer loop that crosses to the processing
// goroutine.
package dispatch

import "github.com/tapwire/agent/pkg/input"

// Fanout delivers every sink call to each branch synchronously, in the
// order the branches were given. Because branches run before the adapter
// reads the suppression flags back, a Fanout branch is the place to call
// SetPreventDefault.
type Fanout struct {
	branches []input.Sink
}

// NewFanout combines sinks into one. A Fanout of zero branches behaves like
// input.NopSink.
func NewFanout(branches ...input.Sink) *Fanout {
	return &Fanout{branches: branches}
}

func (f *Fanout) OnTouchStart(touches []*input.TouchEvent) {
	for _, b := range f.branches {
		b.OnTouchStart(touches)
	}
}

func (f *Fanout) OnTouchEnd(touches []*input.TouchEvent) {
	for _, b := range f.branches {
		b.OnTouchEnd(touches)
	}
}

func (f *Fanout) OnTouchMove(touches []*input.TouchEvent) {
	for _, b := range f.branches {
		b.OnTouchMove(touches)
	}
}

func (f *Fanout) OnPointerStart(ev *input.PointerEvent) {
	for _, b := range f.branches {
		b.OnPointerStart(ev)
	}
}

func (f *Fanout) OnPointerEnd(ev *input.PointerEvent) {
	for _, b := range f.branches {
		b.OnPointerEnd(ev)
	}
}

func (f *Fanout) OnPointerDrag(ev *input.PointerEvent) {
	for _, b := range f.branches {
		b.OnPointerDrag(ev)
	}
}
